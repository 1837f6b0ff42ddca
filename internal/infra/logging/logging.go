package logging

import (
	"io"
	"log/slog"
	"os"
)

// SetupJSON sets slog's default logger to use JSON output on stdout at the
// given level. attrs are attached to every record, e.g. "app", "ledger-api".
func SetupJSON(level slog.Level, attrs ...any) *slog.Logger {
	logger := NewJSON(os.Stdout, level).With(attrs...)
	slog.SetDefault(logger)

	return logger
}

// NewJSON builds a JSON logger writing to w.
func NewJSON(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
