package metrics

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/liftbot/basecad/internal/config"
	"github.com/liftbot/basecad/internal/platform"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReport() *platform.Report {
	return &platform.Report{
		Started:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Duration: 1500 * time.Millisecond,
		Stages: []platform.StageTiming{
			{Name: platform.StageBasePlate, Duration: 2 * time.Millisecond},
			{Name: platform.StageWalls, Duration: 3 * time.Millisecond},
		},
		Features:  12,
		Triangles: 3400,
	}
}

func readBackup(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	return string(data)
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
	assert.False(t, m.IsValid)
}

func TestConnect_UnreachableFallsBackToBackup(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "sub", "backup.lp.gz")
	m := NewManager(zerolog.Nop(), config.InfluxConfig{
		Enabled:    true,
		URL:        "http://127.0.0.1:1",
		Org:        "basecad",
		Bucket:     "builds",
		BackupPath: backup,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx))
	assert.False(t, m.IsValid)
	require.NotNil(t, m.BackupWriter)

	require.NoError(t, m.WritePoint(context.Background(), BuildPoint(testReport(), config.Default())))
	require.NoError(t, m.Close())

	line := readBackup(t, backup)
	assert.Contains(t, line, Measurement+",status=ok ")
	assert.Contains(t, line, "triangles=3400i")
	assert.Contains(t, line, "base_plate_ms=2")
}

func TestWritePoint_NoWriter(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})
	err := m.WritePoint(context.Background(), BuildPoint(testReport(), config.Default()))
	assert.Error(t, err)
}

func TestWritePoint_Cancelled(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.WritePoint(ctx, BuildPoint(testReport(), config.Default()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildPoint_Failed(t *testing.T) {
	r := testReport()
	r.Err = errors.New("stage walls: boom")

	p := BuildPoint(r, config.Default())
	assert.Equal(t, Measurement, p.Name())
	require.Len(t, p.TagList(), 1)
	assert.Equal(t, "failed", p.TagList()[0].Value)

	fields := map[string]interface{}{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, "stage walls: boom", fields["error"])
	assert.Equal(t, int64(12), fields["features"])
	assert.Contains(t, fields, "walls_ms")
}

func TestCollectors_Observe(t *testing.T) {
	c := NewCollectors()
	c.Observe(testReport())

	assert.InDelta(t, 1.5, testutil.ToFloat64(c.BuildDuration.WithLabelValues("ok")), 1e-9)
	assert.InDelta(t, 0.003, testutil.ToFloat64(c.StageDuration.WithLabelValues(platform.StageWalls)), 1e-9)
	assert.Equal(t, 3400.0, testutil.ToFloat64(c.Triangles))
	assert.Equal(t, 12.0, testutil.ToFloat64(c.Features))
}

func TestCollectors_WriteTextfile(t *testing.T) {
	c := NewCollectors()
	c.Observe(testReport())

	path := filepath.Join(t.TempDir(), "textfile", "basecad.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(data, []byte(`basecad_stage_duration_seconds{stage="base_plate"}`)))
	assert.True(t, bytes.Contains(data, []byte("basecad_triangles 3400")))
}
