// v1
// internal/app/logger_test.go
package app

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerWritesToConfiguredOutput(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, slog.LevelInfo)

	log.Info("event_store_opened", "path", "data/lumos.db")

	out := buf.String()
	if !strings.Contains(out, "event_store_opened") {
		t.Fatalf("expected log line in output, got %q", out)
	}
	if !strings.Contains(out, "service=lumos-backend") {
		t.Fatalf("expected service attribute on every line, got %q", out)
	}
}

func TestNewLoggerHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, slog.LevelWarn)

	log.Info("suppressed")
	log.Warn("emitted")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Fatalf("info line must be filtered at warn level, got %q", out)
	}
	if !strings.Contains(out, "emitted") {
		t.Fatalf("warn line must pass, got %q", out)
	}
}

func TestNewLoggerComponentDerivation(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, slog.LevelInfo)

	log.With(slog.String("component", "ingest")).Info("motion_event_stored")

	out := buf.String()
	if !strings.Contains(out, "component=ingest") || !strings.Contains(out, "service=lumos-backend") {
		t.Fatalf("derived logger must carry both attributes, got %q", out)
	}
}
