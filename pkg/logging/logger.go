package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global logger. Format is "json" or "text"; JSON
// handlers include source location.
func Init(level, format string) *slog.Logger {
	lvl := ParseLevel(level)
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl, AddSource: true})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewComponentLogger returns a logger that tags every record with the
// component name for traceability.
func NewComponentLogger(base *slog.Logger, component string) *slog.Logger {
	return base.With(slog.String("component", component))
}
