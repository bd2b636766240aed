package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New returns a slog.Logger configured for structured, JSON-oriented output.
// The level is taken from BTMS_LOG_LEVEL (debug, info, warn, error); info is
// the default.
func New(subsystem string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: levelFromEnv()})
	return slog.New(handler).With("subsystem", subsystem)
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("BTMS_LOG_LEVEL"))) {
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
