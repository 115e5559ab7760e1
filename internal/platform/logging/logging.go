// Package logging builds the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"libraryapi/internal/config"
)

// New returns a logger for env. An explicit level wins; otherwise
// development logs at debug and production at info. Production writes JSON.
func New(w io.Writer, env config.Environment, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(level, env),
		AddSource: true,
	}

	if format == "" {
		format = "text"
		if env == config.Production {
			format = "json"
		}
	}

	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

func ParseLevel(level string, env config.Environment) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if env == config.Production {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}
