package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func TestSetup_Destination(t *testing.T) {
	t.Run("file only", func(t *testing.T) {
		restore := captureStdout(t)
		var file bytes.Buffer
		m := NewSlogManager()
		m.Setup(&file, "info", nil)
		m.Logger().Info("Platform built")

		assert.Empty(t, restore())
		assert.Contains(t, file.String(), "Platform built")
		assert.Contains(t, file.String(), "Logging initialized")
	})

	t.Run("stdout without file", func(t *testing.T) {
		restore := captureStdout(t)
		m := NewSlogManager()
		m.Setup(nil, "info", nil)
		m.Logger().Info("Building platform")

		assert.Contains(t, restore(), "Building platform")
	})
}

func TestSetup_Levels(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(&buf, tt.level, nil)
			m.Logger().Debug("Stage complete")
			m.Logger().Info("Exported STL")

			assert.Equal(t, tt.wantDebug, strings.Contains(buf.String(), "Stage complete"))
			assert.Equal(t, tt.wantInfo, strings.Contains(buf.String(), "Exported STL"))
		})
	}
}

func TestSetup_ReplacesLogger(t *testing.T) {
	var first, second bytes.Buffer
	m := NewSlogManager()

	m.Setup(&first, "info", nil)
	m.Logger().Info("build 1")
	m.Setup(&second, "info", nil)
	m.Logger().Info("build 2")

	assert.Contains(t, first.String(), "build 1")
	assert.NotContains(t, first.String(), "build 2")
	assert.Contains(t, second.String(), "build 2")
}

func TestSetup_TimestampsUTC(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", nil)
	assert.Regexp(t, `time=\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z`, buf.String())
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	assert.Equal(t, slog.Default(), NewSlogManager().Logger())
	assert.NoError(t, NewSlogManager().Flush(context.Background()))
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"Warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	} {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestMultiHandler(t *testing.T) {
	var info, debug bytes.Buffer
	infoH := slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugH := slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug})

	multi := NewMultiHandler(nil, infoH, debugH, nil)
	require.Len(t, multi.handlers, 2)
	assert.True(t, multi.Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, NewMultiHandler(infoH).Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, NewMultiHandler().Enabled(context.Background(), slog.LevelInfo))

	logger := slog.New(multi)
	logger.Debug("mesh sampled")
	logger.Info("mesh written")
	assert.NotContains(t, info.String(), "mesh sampled")
	assert.Contains(t, info.String(), "mesh written")
	assert.Contains(t, debug.String(), "mesh sampled")

	slog.New(multi.WithAttrs([]slog.Attr{slog.String("component", "export")})).Info("attrs")
	assert.Contains(t, info.String(), "component=export")
	slog.New(multi.WithGroup("stl")).Info("grouped", "triangles", 12)
	assert.Contains(t, debug.String(), "stl.triangles=12")
	assert.Equal(t, multi, multi.WithGroup(""))
}

func TestFlush_WithProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider() // no exporter, just validates non-nil path
	m := NewSlogManager()

	var buf bytes.Buffer
	m.Setup(&buf, "info", provider)

	err := m.Flush(context.Background())
	assert.NoError(t, err)
}

func TestSetup_Graylog(t *testing.T) {
	var file, gelf bytes.Buffer
	m := NewSlogManager()
	m.SetGraylogWriter(&gelf)
	m.Setup(&file, "info", nil)

	m.Logger().Info("shipped", "stage", "walls")

	assert.Contains(t, file.String(), "shipped")
	assert.Contains(t, gelf.String(), `"msg":"shipped"`)
	assert.Contains(t, gelf.String(), `"stage":"walls"`)
}

func TestEnableGraylog_BadAddress(t *testing.T) {
	m := NewSlogManager()
	assert.Error(t, m.EnableGraylog("not an address"))
}

func TestSetup_ContextProvider(t *testing.T) {
	var buf bytes.Buffer
	stage := ""
	m := NewSlogManager()
	m.Context = func() []slog.Attr {
		if stage == "" {
			return nil
		}
		return []slog.Attr{slog.String("stage", stage)}
	}
	m.Setup(&buf, "info", nil)

	m.Logger().Info("idle")
	assert.NotContains(t, buf.String(), "stage=")

	stage = "fillet"
	m.Logger().Info("busy")
	assert.Contains(t, buf.String(), "stage=fillet")
}

func TestContextHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, nil)
	h := NewContextHandler(inner, func() []slog.Attr {
		return []slog.Attr{slog.String("build", "1")}
	})

	slog.New(h.WithAttrs([]slog.Attr{slog.String("component", "platform")})).Info("attrs")
	assert.Contains(t, buf.String(), "component=platform")
	assert.Contains(t, buf.String(), "build=1")

	assert.Equal(t, h, h.WithGroup(""))
	slog.New(h.WithGroup("grp")).Info("grouped", "key", "val")
	assert.Contains(t, buf.String(), "grp.key=val")
}

// errorHandler is a slog.Handler that always returns an error from Handle.
type errorHandler struct {
	slog.Handler
}

func (h *errorHandler) Handle(_ context.Context, _ slog.Record) error {
	return errors.New("handler error")
}

func (h *errorHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func TestMultiHandler_HandleError(t *testing.T) {
	var buf bytes.Buffer
	spy := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	// First handler errors, second (spy) should still receive the record.
	multi := NewMultiHandler(&errorHandler{}, spy)
	logger := slog.New(multi)
	logger.Info("should reach spy")

	assert.Contains(t, buf.String(), "should reach spy")

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "direct", 0)
	assert.EqualError(t, multi.Handle(context.Background(), r), "handler error")
}

func TestContextHandler_RecordKeyWins(t *testing.T) {
	var buf bytes.Buffer
	h := NewContextHandler(slog.NewTextHandler(&buf, nil), func() []slog.Attr {
		return []slog.Attr{slog.String("stage", "walls"), slog.String("build", "7")}
	})

	slog.New(h).Info("explicit", "stage", "fillet")
	assert.Contains(t, buf.String(), "stage=fillet")
	assert.NotContains(t, buf.String(), "stage=walls")
	assert.Contains(t, buf.String(), "build=7")
}

func TestSetup_WithOTelProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()

	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", provider)

	m.Logger().Info("otel integrated")
	assert.Contains(t, buf.String(), "otel integrated")
}

// captureStdout redirects os.Stdout to a pipe and returns a function
// that restores stdout and returns what was captured.
func captureStdout(t *testing.T) func() string {
	t.Helper()

	r, w, err := osPipe()
	require.NoError(t, err)

	origStdout := osStdout
	osStdout = w

	return func() string {
		w.Close()
		osStdout = origStdout
		var buf bytes.Buffer
		buf.ReadFrom(r)
		r.Close()
		return buf.String()
	}
}
