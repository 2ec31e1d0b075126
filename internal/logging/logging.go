// Package logging configures structured logging for the pkms pipeline.
//
// A *slog.Logger is constructed once at process start and threaded
// explicitly through the pipeline (spec.md §9: replace process-global
// configuration singletons with explicit values).
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// FilePath is the path to the log file. Empty means stderr only.
	FilePath string
	// WriteToStderr additionally writes to stderr even when FilePath is set.
	WriteToStderr bool
}

// DefaultConfig returns sensible defaults: info level, stderr only.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		WriteToStderr: true,
	}
}

// New builds a *slog.Logger from cfg. The returned closer must be
// called on shutdown; it is a no-op when FilePath is empty.
func New(cfg Config) (*slog.Logger, func() error, error) {
	var output io.Writer = os.Stderr
	closer := func() error { return nil }

	if cfg.FilePath != "" {
		f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		if cfg.WriteToStderr {
			output = io.MultiWriter(f, os.Stderr)
		} else {
			output = f
		}
		closer = f.Close
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})
	return slog.New(handler), closer, nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
