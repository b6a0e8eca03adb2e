package logger

import (
	"log/slog"
	"os"
	"strings"
)

var defaultLogger *slog.Logger

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// Init configures the process-wide logger from the observability config.
// JSON output keeps webhook and reconciliation events machine-parseable;
// an empty format means JSON in production and text elsewhere.
func Init(env, level, format string) {
	lvl := parseLevel(level)
	if level == "" && env != "production" {
		lvl = slog.LevelDebug
	}

	var handler slog.Handler
	if format == "json" || (format == "" && env == "production") {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}

	defaultLogger = slog.New(handler).With("service", "cawl-gateway")
	slog.SetDefault(defaultLogger)
}

// L returns the process logger, lazily falling back to a development
// logger so early init paths never hit a nil pointer.
func L() *slog.Logger {
	if defaultLogger == nil {
		Init("development", "", "")
	}
	return defaultLogger
}
