package platform

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/liftbot/basecad/internal/config"
	"github.com/liftbot/basecad/internal/export"
	"github.com/liftbot/basecad/internal/geo"
	"github.com/liftbot/basecad/internal/mesh"
	"github.com/liftbot/basecad/internal/solid"
	"github.com/liftbot/basecad/internal/viewer"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// DefaultCellSize is the mesh resolution used when none is configured.
const DefaultCellSize = 1.5

// StageTiming records how long one stage took.
type StageTiming struct {
	Name     string
	Duration time.Duration
	Err      string
}

// Report summarizes one build.
type Report struct {
	Started    time.Time
	Duration   time.Duration
	Stages     []StageTiming
	Size       v3.Vec
	Features   int
	Triangles  int
	StrayHoles []string // WKT of hole centres that missed the footprint
	Err        error
}

// OK reports whether the build succeeded.
func (r *Report) OK() bool {
	return r.Err == nil
}

// Assembler builds the platform once and serves the result to export and
// display. It is not safe for concurrent use.
type Assembler struct {
	dims          config.Dimensions
	cellSize      float64
	logger        *slog.Logger
	viewer        viewer.Viewer
	exportOptions export.Options
	meter         metric.Meter
	stageDuration metric.Float64Histogram

	current string
	model   solid.Solid
	mesh    *mesh.Mesh
	report  *Report
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Assembler) { a.logger = l }
}

// WithViewer sets the display collaborator.
func WithViewer(v viewer.Viewer) Option {
	return func(a *Assembler) { a.viewer = v }
}

// WithCellSize sets the mesh resolution in millimetres.
func WithCellSize(c float64) Option {
	return func(a *Assembler) { a.cellSize = c }
}

// WithExportOptions sets the STL format used by Export.
func WithExportOptions(o export.Options) Option {
	return func(a *Assembler) { a.exportOptions = o }
}

// WithMeter sets the meter stage durations are recorded on.
func WithMeter(m metric.Meter) Option {
	return func(a *Assembler) { a.meter = m }
}

// New returns an Assembler for d. Nothing is built until Build is called.
func New(d config.Dimensions, opts ...Option) (*Assembler, error) {
	a := &Assembler{
		dims:     d,
		cellSize: DefaultCellSize,
		meter:    noop.Meter{},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.viewer == nil {
		a.viewer = viewer.NewLog(a.logger)
	}
	if !(a.cellSize > 0) {
		return nil, fmt.Errorf("%w: %g", mesh.ErrInvalidCellSize, a.cellSize)
	}

	var err error
	a.stageDuration, err = a.meter.Float64Histogram("basecad.stage.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Time spent constructing each build stage"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stage histogram: %w", err)
	}
	return a, nil
}

// Dimensions returns the dimension table the assembler builds from.
func (a *Assembler) Dimensions() config.Dimensions {
	return a.dims
}

// LogAttrs returns the attributes describing what the assembler is doing.
// It is meant for a logging context provider.
func (a *Assembler) LogAttrs() []slog.Attr {
	if a.current == "" {
		return nil
	}
	return []slog.Attr{slog.String("stage", a.current)}
}

// Build runs every stage. On failure no model is kept. The returned report
// is never nil.
func (a *Assembler) Build(ctx context.Context) (*Report, error) {
	a.model = solid.Solid{}
	a.mesh = nil
	r := &Report{Started: time.Now()}
	a.report = r
	defer func() {
		a.current = ""
		r.Duration = time.Since(r.Started)
	}()

	if err := a.dims.Validate(); err != nil {
		r.Err = err
		return r, err
	}

	stages := Pipeline(a.dims)
	for i := range stages {
		name, apply := stages[i].Name, stages[i].Apply
		stages[i].Apply = func(s solid.Solid) (solid.Solid, error) {
			a.current = name
			return apply(s)
		}
	}

	a.logger.Info("Building platform",
		"length", a.dims.Length, "width", a.dims.Width, "height", a.dims.Height,
		"stages", len(stages))

	s, err := Run(ctx, stages, func(stage string, elapsed time.Duration, err error) {
		t := StageTiming{Name: stage, Duration: elapsed}
		if err != nil {
			t.Err = err.Error()
		}
		r.Stages = append(r.Stages, t)
		a.stageDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.Bool("ok", err == nil),
		))
		if err != nil {
			a.logger.Error("Stage failed", "error", err)
			return
		}
		a.logger.Debug("Stage complete", "duration", elapsed)
	})
	if err != nil {
		r.Err = err
		return r, err
	}

	a.model = s
	r.Size = s.Size()
	r.Features = len(s.Features())
	a.checkStrayHoles(s, r)
	a.logger.Info("Platform built",
		"size", fmt.Sprintf("%gx%gx%g", r.Size.X, r.Size.Y, r.Size.Z),
		"features", r.Features)
	return r, nil
}

func (a *Assembler) checkStrayHoles(s solid.Solid, r *Report) {
	stray, err := StrayHoles(s, a.dims.Length, a.dims.Width)
	if err == nil && len(stray) > 0 {
		r.StrayHoles, err = geo.WKT(stray)
	}
	if err != nil {
		a.logger.Warn("Failed to check hole positions", "error", err)
		return
	}
	if len(r.StrayHoles) > 0 {
		a.logger.Warn("Holes outside the footprint cut nothing", "points", r.StrayHoles)
	}
}

// Report returns the report of the last build, or nil.
func (a *Assembler) Report() *Report {
	return a.report
}

// Model returns the built solid.
func (a *Assembler) Model() (solid.Solid, error) {
	if a.model.IsZero() {
		return solid.Solid{}, ErrNoModel
	}
	return a.model, nil
}

// Mesh returns the surface of the built solid, extracting it on first use.
func (a *Assembler) Mesh(ctx context.Context) (*mesh.Mesh, error) {
	if a.model.IsZero() {
		return nil, ErrNoModel
	}
	if a.mesh != nil {
		return a.mesh, nil
	}

	start := time.Now()
	m, err := mesh.Generate(ctx, a.model.Field(), a.model.Bounds(), a.cellSize)
	if err != nil {
		return nil, fmt.Errorf("failed to mesh model: %w", err)
	}
	a.logger.Info("Meshed model",
		"triangles", len(m.Faces),
		"closed", m.IsClosed(),
		"cellSize", a.cellSize,
		"duration", time.Since(start))

	a.mesh = m
	if a.report != nil {
		a.report.Triangles = len(m.Faces)
	}
	return m, nil
}

// Export writes the model as STL to filename and returns the path written.
// It can be called any number of times after a successful build.
func (a *Assembler) Export(ctx context.Context, filename string) (string, error) {
	m, err := a.Mesh(ctx)
	if err != nil {
		return "", err
	}
	path, err := export.WriteSTL(filename, m, a.exportOptions)
	if err != nil {
		return "", err
	}
	a.logger.Info("Exported model", "path", path, "triangles", len(m.Faces))
	return path, nil
}

// Display writes the model to a temporary STL and hands it to the viewer.
func (a *Assembler) Display(ctx context.Context) error {
	if a.model.IsZero() {
		return ErrNoModel
	}
	m, err := a.Mesh(ctx)
	if err != nil {
		return err
	}

	name := a.exportOptions.Name
	if name == "" {
		name = "base_platform"
	}
	dir, err := os.MkdirTemp("", "basecad-*")
	if err != nil {
		return fmt.Errorf("failed to create display directory: %w", err)
	}
	path, err := export.WriteSTL(filepath.Join(dir, name+".stl"), m, export.Options{Name: name})
	if err != nil {
		_ = os.RemoveAll(dir)
		return err
	}
	if err := a.viewer.Show(ctx, path); err != nil {
		return fmt.Errorf("display: %w", err)
	}
	return nil
}
