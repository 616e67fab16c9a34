package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/OCAP2/campath/internal/config"
	"github.com/OCAP2/campath/internal/logging"
	intOtel "github.com/OCAP2/campath/internal/otel"
	"github.com/OCAP2/campath/internal/recorder"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

// BuildDate can be set at build time via ldflags
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

const appName = "campath"

// Flags.
const (
	flagConfig   = "config"
	flagLogLevel = "log-level"
	flagIn       = "in"
	flagOut      = "out"
	flagFormat   = "format"
	flagWidth    = "width"
	flagHeight   = "height"
	flagStep     = "step"
	flagSpeed    = "speed"
	flagNoInterp = "no-interp"
	flagMax      = "max-frames"
	flagPrefix   = "prefix"
	flagName     = "name"
)

// env is the state shared by every command for one run.
type env struct {
	start      time.Time
	slog       *logging.SlogManager
	logger     *slog.Logger
	dbLog      zerolog.Logger
	otel       *intOtel.Provider
	logFile    *os.File
	graylog    io.Closer
	rec        *recorder.Recorder
	recordOpts recorder.Options
}

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	e := &env{start: time.Now()}

	return &cli.App{
		Name:    appName,
		Usage:   "record, convert and replay camera paths",
		Version: fmt.Sprintf("%s (%s)", Version, BuildDate),
		Writer:  out,
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Value:   ".",
				Usage:   "directory containing " + config.FileName,
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "override the configured log level",
			},
		},
		Before: e.setup,
		After:  e.teardown,
		Commands: []*cli.Command{
			convertCommand(e),
			infoCommand(e),
			previewCommand(e),
			renderCommand(e),
			storeCommand(e),
		},
	}
}

// setup loads the configuration and wires logging, telemetry and the recorder.
func (e *env) setup(c *cli.Context) error {
	cfgErr := config.Load(c.Path(flagConfig))

	level := config.GetString("logLevel")
	if c.IsSet(flagLogLevel) {
		level = c.String(flagLogLevel)
	}

	var logOut io.Writer
	if dir := config.GetString("logsDir"); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create logs dir: %w", err)
		}
		f, err := os.OpenFile(logging.LogFilePath(dir, appName, e.start), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		e.logFile = f
		logOut = f
	}

	otelCfg := config.GetOTelConfig()
	provider, err := intOtel.New(intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    logOut,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	e.otel = provider

	opts := []logging.SetupOption{logging.WithContext(e.logContext)}
	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGraylogWriter(gl.Address)
		if err != nil {
			return fmt.Errorf("failed to connect to graylog: %w", err)
		}
		e.graylog = w
		opts = append(opts, logging.WithGraylog(w))
	}

	e.slog = logging.NewSlogManager()
	e.slog.Setup(logOut, level, provider.LoggerProvider(), opts...)
	e.logger = e.slog.Logger()
	e.dbLog = logging.NewZerolog(logOut, level)

	if cfgErr != nil {
		e.logger.Warn("Failed to load config, using defaults!", "error", cfgErr)
	} else {
		e.logger.Info("Loaded config", "dir", c.Path(flagConfig))
	}

	rc := config.GetRecorderConfig()
	e.recordOpts = recorder.Options{
		DefaultFile: rc.DefaultFile,
		Width:       rc.Width,
		Height:      rc.Height,
		Speed:       rc.Speed,
		ImageFormat: rc.ImageFormat,
		VideoPath:   rc.VideoPath,
		Meter:       provider.Meter("campath/recorder"),
	}
	e.rec, err = recorder.New(e.recordOpts, e.logger)
	if err != nil {
		return fmt.Errorf("failed to create recorder: %w", err)
	}
	return nil
}

// logContext adds the recorder state to every log record.
func (e *env) logContext() []slog.Attr {
	if e.rec == nil {
		return nil
	}
	return e.rec.LogAttrs()
}

func (e *env) teardown(c *cli.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if e.slog != nil {
		_ = e.slog.Flush(ctx)
	}
	if e.otel != nil {
		if err := e.otel.Shutdown(ctx); err != nil && e.logger != nil {
			e.logger.Warn("Failed to shut down OpenTelemetry", "error", err)
		}
	}
	if e.graylog != nil {
		_ = e.graylog.Close()
	}
	if e.logFile != nil {
		return e.logFile.Close()
	}
	return nil
}
