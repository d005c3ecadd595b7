// Package logging builds the *slog.Logger used throughout statepath's
// ambient code, grounded on
// Dutt23-agentic-orchestrator/common/logger/logger.go's level-parsing
// and tint-vs-JSON handler switch.
package logging

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// New builds a logger. format "json" uses slog's stdlib JSON handler
// (for log aggregation); anything else uses tint for colored console
// output, which is the friendlier default for a CLI and for tests.
func New(level, format string) *slog.Logger {
	lvl := parseLevel(level)

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      lvl,
			TimeFormat: time.TimeOnly,
		})
	}
	return slog.New(handler)
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
