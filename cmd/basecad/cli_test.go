package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/liftbot/basecad/internal/catalog"
	"github.com/liftbot/basecad/internal/config"
	"github.com/liftbot/basecad/internal/export"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupSession loads a config from a fresh directory with a file catalog and
// a coarse mesh, plus any overrides, and returns the directory.
func setupSession(t *testing.T, overrides map[string]any) string {
	t.Helper()
	dir := t.TempDir()
	cfg := map[string]any{
		"logsDir": filepath.Join(dir, "logs"),
		"output":  map[string]any{"dir": filepath.Join(dir, "output")},
		"mesh":    map[string]any{"cellSize": 8},
		"catalog": map[string]any{"path": filepath.Join(dir, "basecad.db")},
	}
	for k, v := range overrides {
		cfg[k] = v
	}
	body, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), body, 0644))

	t.Cleanup(viper.Reset)
	require.NoError(t, config.Load(dir))

	prevLogger := Logger
	Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	t.Cleanup(func() {
		Logger = prevLogger
		assembler = nil
	})
	return dir
}

func listBuilds(t *testing.T) []catalog.Build {
	t.Helper()
	m := catalog.NewManager(zerolog.Nop(), config.GetCatalogConfig())
	require.NoError(t, m.Connect())
	defer m.Close()
	require.NoError(t, m.Setup())
	builds, err := m.ListBuilds(10)
	require.NoError(t, err)
	return builds
}

func TestRun_Usage(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, 0, run(ctx, []string{"help"}))
	assert.Equal(t, 2, run(ctx, []string{"bogus"}))
	assert.Equal(t, 2, run(ctx, []string{"export"}))
	assert.Equal(t, 2, run(ctx, []string{"history", "ten"}))
}

func TestRun_ExportRecordsBuild(t *testing.T) {
	dir := setupSession(t, nil)
	path := filepath.Join(dir, "out", "platform.stl")

	require.Equal(t, 0, run(context.Background(), []string{"export", path}))
	require.FileExists(t, path)

	s, err := export.Read(path)
	require.NoError(t, err)
	assert.NotEmpty(t, s.Triangles)

	builds := listBuilds(t)
	require.Len(t, builds, 1)
	b := builds[0]
	assert.Equal(t, "ok", b.Status)
	assert.Equal(t, len(s.Triangles), b.Triangles)
	require.Len(t, b.Exports, 1)
	assert.Equal(t, path, b.Exports[0].Path)
	assert.Equal(t, len(s.Triangles), b.Exports[0].Triangles)

	assert.Equal(t, 0, run(context.Background(), []string{"history", "5"}))
}

func TestRun_FailedBuildIsRecorded(t *testing.T) {
	dir := setupSession(t, map[string]any{"wallThickness": 200})
	path := filepath.Join(dir, "platform.stl")

	assert.Equal(t, 1, run(context.Background(), []string{"export", path}))
	assert.NoFileExists(t, path)

	builds := listBuilds(t)
	require.Len(t, builds, 1)
	assert.Equal(t, "failed", builds[0].Status)
	assert.Empty(t, builds[0].Exports)
}

func TestRun_HistoryWithCatalogDisabled(t *testing.T) {
	setupSession(t, map[string]any{"catalog": map[string]any{"enabled": false}})
	assert.Equal(t, 1, run(context.Background(), []string{"history"}))
}

func TestPrintHistory(t *testing.T) {
	builds := []catalog.Build{
		{
			ID:         2,
			StartedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			Status:     "ok",
			DurationMs: 812.4,
			SizeX:      457.2,
			SizeY:      300,
			SizeZ:      100,
			Features:   14,
			Triangles:  51230,
			Exports:    []catalog.Export{{Path: "output/base_platform.stl"}},
		},
		{
			ID:        1,
			StartedAt: time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
			Status:    "failed",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, printHistory(&buf, builds))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "2026-03-01 12:00:00")
	assert.Contains(t, lines[1], "457.2x300x100")
	assert.Contains(t, lines[1], "812ms")
	assert.Contains(t, lines[2], "failed")
}
