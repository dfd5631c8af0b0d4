package logging

import (
	"log/slog"
	"os"
	"strings"
)

// NewJSONLogger builds the shared slog logger for the api and worker
// binaries. Every record carries the service name; at debug level records
// also carry their source location.
func NewJSONLogger(service, level string) *slog.Logger {
	parsed := parseLevel(level)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     parsed,
		AddSource: parsed == slog.LevelDebug,
	})
	return slog.New(handler).With("service", service)
}

// parseLevel falls back to info on anything it does not recognize, so a
// misconfigured LOG_LEVEL never silences the process.
func parseLevel(level string) slog.Level {
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
