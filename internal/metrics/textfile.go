package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/liftbot/basecad/internal/platform"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors holds the gauges describing the most recent build.
type Collectors struct {
	registry *prometheus.Registry

	BuildDuration *prometheus.GaugeVec
	StageDuration *prometheus.GaugeVec
	Features      prometheus.Gauge
	Triangles     prometheus.Gauge
	LastBuild     prometheus.Gauge
}

// NewCollectors registers the build gauges on a private registry.
func NewCollectors() *Collectors {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Collectors{
		registry: reg,
		BuildDuration: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "basecad",
				Name:      "build_duration_seconds",
				Help:      "Wall time of the last platform build.",
			},
			[]string{"status"},
		),
		StageDuration: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "basecad",
				Name:      "stage_duration_seconds",
				Help:      "Wall time of each construction stage in the last build.",
			},
			[]string{"stage"},
		),
		Features: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "basecad",
			Name:      "features",
			Help:      "Number of features in the last built model.",
		}),
		Triangles: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "basecad",
			Name:      "triangles",
			Help:      "Number of triangles in the last exported mesh.",
		}),
		LastBuild: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "basecad",
			Name:      "last_build_timestamp_seconds",
			Help:      "Unix time the last build started.",
		}),
	}
}

// Observe records a build report.
func (c *Collectors) Observe(r *platform.Report) {
	status := "ok"
	if !r.OK() {
		status = "failed"
	}
	c.BuildDuration.WithLabelValues(status).Set(r.Duration.Seconds())
	for _, st := range r.Stages {
		c.StageDuration.WithLabelValues(st.Name).Set(st.Duration.Seconds())
	}
	c.Features.Set(float64(r.Features))
	c.Triangles.Set(float64(r.Triangles))
	c.LastBuild.Set(float64(r.Started.Unix()))
}

// WriteTextfile writes the gauges in the node_exporter textfile format.
func (c *Collectors) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating metrics directory: %w", err)
		}
	}
	return prometheus.WriteToTextfile(path, c.registry)
}
