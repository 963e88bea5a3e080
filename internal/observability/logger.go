// Package observability holds the logger, Prometheus metrics and the
// CloudWatch run publisher shared by the API and the batch runner.
package observability

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger creates a JSON slog.Logger at the given level writing to w. A nil
// writer means stdout; unknown levels fall back to info.
func NewLogger(level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}
