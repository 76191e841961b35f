package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/liftbot/basecad/internal/config"
	"github.com/liftbot/basecad/internal/logging"
	intOtel "github.com/liftbot/basecad/internal/otel"
	"github.com/liftbot/basecad/internal/platform"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Version and BuildDate can be set at build time via ldflags
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"

	ProgramName string = "basecad"
)

// file paths
var (
	// ConfigDir is searched for basecad.cfg.json.
	ConfigDir string = "."

	LogFilePath string
	LogFile     *os.File
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime time.Time = time.Now()

	// assembler is the platform being built, read by the logging context
	assembler *platform.Assembler
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	setupLogging(ctx)
	code := run(ctx, os.Args[1:])
	shutdown()
	os.Exit(code)
}

// setupLogging loads the config and brings logging up in two passes: stdout
// first so config errors are visible, then the session log file with
// Graylog and OTel.
func setupLogging(ctx context.Context) {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(ConfigDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config")
	}
	level := config.GetString("logLevel")

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		Logger.Error("Failed to create logs directory", "error", err, "path", logsDir)
	}

	LogFilePath = logging.LogFilePath(logsDir, ProgramName, SessionStartTime)
	var err error
	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
		LogFile = nil
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		var otelWriter io.Writer
		if LogFile != nil {
			otelWriter = LogFile
		}
		OTelProvider, err = intOtel.New(ctx, otelCfg, otelWriter)
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
			OTelProvider = nil
		} else {
			Logger.Info("OTel provider initialized", "file", LogFilePath, "endpoint", otelCfg.Endpoint)
		}
	}

	if config.GetBool("graylog.enabled") {
		addr := config.GetString("graylog.address")
		if err := SlogManager.EnableGraylog(addr); err != nil {
			Logger.Error("Failed to enable Graylog", "error", err)
		} else {
			Logger.Info("Graylog enabled", "address", addr)
		}
	}

	SlogManager.Context = func() []slog.Attr {
		if assembler == nil {
			return nil
		}
		return assembler.LogAttrs()
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	var file io.Writer
	if LogFile != nil {
		file = io.MultiWriter(os.Stdout, LogFile)
	}
	SlogManager.Setup(file, level, otelLogProvider)
	Logger = SlogManager.Logger()
	Logger.Info("Starting up", "version", Version, "buildDate", BuildDate, "log", LogFilePath)
}

func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := SlogManager.Flush(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to flush logs: %v\n", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to shut down OTel: %v\n", err)
		}
	}
	if LogFile != nil {
		_ = LogFile.Close()
	}
}
