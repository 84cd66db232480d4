// v1
// internal/app/logger.go
package app

import (
	"io"
	"log/slog"
)

// newLogger builds the service logger. A single text handler writes to out,
// which the caller assembles (stdout plus the log file in production), so
// container logs and the attached volume always carry the same lines. The
// service attribute is attached here so every component logger derived with
// With inherits it.
func newLogger(out io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("service", "lumos-backend"))
}
