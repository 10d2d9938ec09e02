// Package logging provides structured logging for nutrisolve using zerolog.
//
// Loggers travel through context.Context: commands attach a configured logger
// with WithContext, and engine code retrieves it with FromContext. All engine
// events carry a "component" field so log output can be filtered per subsystem.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config controls logger construction.
type Config struct {
	// Level is a zerolog level name ("debug", "info", "warn", "error").
	// Unparseable values fall back to "info".
	Level string
	// Format selects "console" (human readable) or "json".
	Format string
	// File, when non-empty, appends JSON logs to the given path in addition
	// to the console writer.
	File string
}

// NewLogger builds a zerolog.Logger from cfg. It never fails: an unusable
// log file degrades to console-only output with a warning on stderr.
func NewLogger(cfg Config) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}

	var writers []io.Writer
	if cfg.Format == "json" {
		writers = append(writers, os.Stderr)
	} else {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	}

	if cfg.File != "" {
		f, fileErr := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if fileErr == nil {
			writers = append(writers, f)
		} else {
			zerolog.New(os.Stderr).Warn().Err(fileErr).Str("path", cfg.File).
				Msg("could not open log file, logging to console only")
		}
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// ComponentLogger returns a child logger tagged with a component name.
func ComponentLogger(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// WithContext attaches logger to ctx.
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// FromContext returns the logger attached to ctx, or a disabled logger when
// none was attached. Library code should always obtain its logger this way
// rather than holding package-level state.
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}
