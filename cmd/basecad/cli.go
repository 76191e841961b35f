package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/liftbot/basecad/internal/catalog"
	"github.com/liftbot/basecad/internal/config"
	"github.com/liftbot/basecad/internal/export"
	"github.com/liftbot/basecad/internal/logging"
	"github.com/liftbot/basecad/internal/metrics"
	"github.com/liftbot/basecad/internal/platform"
	"github.com/liftbot/basecad/internal/viewer"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const usage = `usage: basecad [command]

With no command the platform is built, exported to the output directory and
shown in the configured viewer.

commands:
  export <file>   build and write the STL to <file>
  history [n]     list the last n builds (default 10)
`

// run dispatches the command line and returns the exit code.
func run(ctx context.Context, args []string) int {
	var err error
	if len(args) == 0 {
		err = buildAndDisplay(ctx)
	} else {
		switch strings.ToLower(args[0]) {
		case "export":
			if len(args) < 2 {
				fmt.Fprint(os.Stderr, usage)
				return 2
			}
			err = buildAndExport(ctx, args[1])
		case "history":
			limit := 10
			if len(args) > 1 {
				if limit, err = strconv.Atoi(args[1]); err != nil {
					fmt.Fprint(os.Stderr, usage)
					return 2
				}
			}
			err = history(os.Stdout, limit)
		case "help", "-h", "--help":
			fmt.Print(usage)
			return 0
		default:
			fmt.Fprint(os.Stderr, usage)
			return 2
		}
	}

	if err != nil {
		Logger.Error("Failed", "error", err)
		return 1
	}
	return 0
}

// componentLogger returns a zerolog logger for the catalog and metrics
// managers, writing to the session log file when there is one.
func componentLogger(component string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if LogFile != nil {
		out = LogFile
	}
	return logging.NewZerolog(out, config.GetString("logLevel"), component)
}

func newAssembler() (*platform.Assembler, error) {
	dims, err := config.GetDimensions()
	if err != nil {
		return nil, err
	}

	out := config.GetOutputConfig()
	view := config.GetViewerConfig()
	var meter metric.Meter = noop.Meter{}
	if OTelProvider != nil {
		meter = OTelProvider.Meter(ProgramName)
	}

	return platform.New(dims,
		platform.WithLogger(Logger),
		platform.WithCellSize(config.GetMeshConfig().CellSize),
		platform.WithExportOptions(export.Options{
			ASCII:    out.ASCII,
			Compress: out.Compress,
			Name:     out.Name,
		}),
		platform.WithViewer(viewer.FromConfig(view.Command, view.Args, Logger)),
		platform.WithMeter(meter),
	)
}

// session is one build with its bookkeeping sinks.
type session struct {
	catalog *catalog.Manager
	influx  *metrics.Manager
	prom    *metrics.Collectors
	buildID uint
}

func openSession(ctx context.Context) *session {
	s := &session{prom: metrics.NewCollectors()}

	if cfg := config.GetCatalogConfig(); cfg.Enabled {
		m := catalog.NewManager(componentLogger("catalog"), cfg)
		if err := m.Connect(); err != nil {
			Logger.Warn("Catalog unavailable, build history not recorded", "error", err)
		} else if err := m.Setup(); err != nil {
			Logger.Warn("Catalog setup failed, build history not recorded", "error", err)
		} else {
			s.catalog = m
		}
	}

	m := metrics.NewManager(componentLogger("metrics"), config.GetInfluxConfig())
	if err := m.Connect(ctx); err == nil {
		s.influx = m
	} else if !errors.Is(err, metrics.ErrDisabled) {
		Logger.Warn("InfluxDB unavailable, metrics not recorded", "error", err)
	}
	return s
}

// record publishes a finished build. Bookkeeping failures are logged, never
// returned: the model itself is the product.
func (s *session) record(ctx context.Context, r *platform.Report, d config.Dimensions) {
	if s.catalog != nil {
		id, err := s.catalog.RecordBuild(r, d)
		if err != nil {
			Logger.Warn("Failed to record build", "error", err)
		}
		s.buildID = id
	}
	if s.influx != nil {
		if err := s.influx.WritePoint(ctx, metrics.BuildPoint(r, d)); err != nil {
			Logger.Warn("Failed to write build metrics", "error", err)
		}
	}
	s.prom.Observe(r)
	if path := config.GetString("metrics.textfile"); path != "" {
		if err := s.prom.WriteTextfile(path); err != nil {
			Logger.Warn("Failed to write metrics textfile", "error", err, "path", path)
		}
	}
}

func (s *session) recordExport(path string, triangles int) {
	if s.catalog == nil || s.buildID == 0 {
		return
	}
	if err := s.catalog.RecordExport(s.buildID, path, triangles); err != nil {
		Logger.Warn("Failed to record export", "error", err)
	}
}

func (s *session) close() {
	if s.catalog != nil {
		_ = s.catalog.Close()
	}
	if s.influx != nil {
		if err := s.influx.Close(); err != nil {
			Logger.Warn("Failed to close metrics", "error", err)
		}
	}
}

// build runs the pipeline and records the outcome whether or not it
// succeeded. The returned session must be closed.
func build(ctx context.Context) (*session, error) {
	var err error
	assembler, err = newAssembler()
	if err != nil {
		return nil, err
	}

	s := openSession(ctx)
	r, err := assembler.Build(ctx)
	if err == nil {
		// triangle count is part of the record
		_, err = assembler.Mesh(ctx)
		if err != nil {
			r.Err = err
		}
	}
	s.record(ctx, r, assembler.Dimensions())
	if err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func exportTo(ctx context.Context, s *session, filename string) error {
	path, err := assembler.Export(ctx, filename)
	if err != nil {
		return err
	}
	s.recordExport(path, assembler.Report().Triangles)
	Logger.Info("Exported STL", "path", path)
	return nil
}

func buildAndExport(ctx context.Context, filename string) error {
	s, err := build(ctx)
	if err != nil {
		return err
	}
	defer s.close()
	return exportTo(ctx, s, filename)
}

func buildAndDisplay(ctx context.Context) error {
	s, err := build(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	out := config.GetOutputConfig()
	path, err := export.OutputPath(out.Dir, out.Name, SessionStartTime, export.Options{Compress: out.Compress})
	if err != nil {
		return err
	}
	if err := exportTo(ctx, s, path); err != nil {
		return err
	}
	return assembler.Display(ctx)
}

func history(w io.Writer, limit int) error {
	cfg := config.GetCatalogConfig()
	if !cfg.Enabled {
		return fmt.Errorf("catalog is disabled")
	}
	m := catalog.NewManager(componentLogger("catalog"), cfg)
	if err := m.Connect(); err != nil {
		return err
	}
	defer m.Close()
	if err := m.Setup(); err != nil {
		return err
	}

	builds, err := m.ListBuilds(limit)
	if err != nil {
		return err
	}
	return printHistory(w, builds)
}

func printHistory(w io.Writer, builds []catalog.Build) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tDURATION\tSIZE\tFEATURES\tTRIANGLES\tEXPORTS")
	for _, b := range builds {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.0fms\t%gx%gx%g\t%d\t%d\t%d\n",
			b.ID,
			b.StartedAt.UTC().Format("2006-01-02 15:04:05"),
			b.Status,
			b.DurationMs,
			b.SizeX, b.SizeY, b.SizeZ,
			b.Features,
			b.Triangles,
			len(b.Exports),
		)
	}
	return tw.Flush()
}
