// v2
// internal/config/config_test.go
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate points the loader at an empty directory so a stray properties file
// or .env in the working tree cannot leak into assertions.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("LUMOS_PROPERTIES_PATH", filepath.Join(t.TempDir(), "absent.properties"))
	t.Setenv("LUMOS_TIMEZONE", "UTC")
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ListenAddress != ":5050" {
		t.Fatalf("expected default listen address :5050, got %q", cfg.ListenAddress)
	}
	if cfg.DatabasePath != filepath.Clean("data/lumos.db") {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath)
	}
	if len(cfg.KafkaBrokers) != 1 || cfg.KafkaBrokers[0] != "kafka:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if cfg.MotionTopic != "lumos.motion.events" || cfg.MotionGroupID != "lumos-backend" {
		t.Fatalf("unexpected motion topic/group %q/%q", cfg.MotionTopic, cfg.MotionGroupID)
	}
	if cfg.SessionGap != 120*time.Second {
		t.Fatalf("expected 120s session gap, got %v", cfg.SessionGap)
	}
	if cfg.MotionWindow != 3*time.Second {
		t.Fatalf("expected 3s motion window, got %v", cfg.MotionWindow)
	}
	if cfg.LEDPowerHighW != 3.0 || cfg.LEDPowerLowW != 0.5 {
		t.Fatalf("unexpected LED power %v/%v", cfg.LEDPowerHighW, cfg.LEDPowerLowW)
	}
	if cfg.Location != time.UTC {
		t.Fatalf("expected resolved UTC location, got %v", cfg.Location)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("expected default info log level, got %v", cfg.LogLevel)
	}
}

func TestLogLevelOverride(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "lumos.properties")
	if err := os.WriteFile(path, []byte("log_level=warn\n"), 0o600); err != nil {
		t.Fatalf("write properties: %v", err)
	}
	t.Setenv("LUMOS_PROPERTIES_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != slog.LevelWarn {
		t.Fatalf("expected warn from properties, got %v", cfg.LogLevel)
	}

	t.Setenv("LUMOS_LOG_LEVEL", "DEBUG")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("environment must win over properties, got %v", cfg.LogLevel)
	}
}

func TestUnknownLogLevelRejected(t *testing.T) {
	isolate(t)
	t.Setenv("LUMOS_LOG_LEVEL", "loud")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown log level")
	}
}

func TestLoadFromPropertiesFile(t *testing.T) {
	isolate(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "lumos.properties")
	content := "" +
		"# backend settings\n" +
		"listen_address=:9090\n" +
		"db_path=" + filepath.Join(dir, "events.db") + "\n" +
		"kafka_brokers=broker-a:9092, broker-b:9092\n" +
		"session_gap_seconds=60\n" +
		"led_power_high_w=4.5\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write properties: %v", err)
	}
	t.Setenv("LUMOS_PROPERTIES_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ListenAddress != ":9090" {
		t.Fatalf("expected :9090, got %q", cfg.ListenAddress)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "broker-b:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if cfg.SessionGap != 60*time.Second {
		t.Fatalf("expected 60s gap, got %v", cfg.SessionGap)
	}
	if cfg.LEDPowerHighW != 4.5 {
		t.Fatalf("expected 4.5 W, got %v", cfg.LEDPowerHighW)
	}
}

func TestEnvOverridesProperties(t *testing.T) {
	isolate(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "lumos.properties")
	if err := os.WriteFile(path, []byte("listen_address=:7000\n"), 0o600); err != nil {
		t.Fatalf("write properties: %v", err)
	}
	t.Setenv("LUMOS_PROPERTIES_PATH", path)
	t.Setenv("LUMOS_LISTEN_ADDRESS", ":8000")
	t.Setenv("LUMOS_MOTION_TOPIC", "lumos.test.motion")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ListenAddress != ":8000" {
		t.Fatalf("environment must win over properties, got %q", cfg.ListenAddress)
	}
	if cfg.MotionTopic != "lumos.test.motion" {
		t.Fatalf("unexpected topic %q", cfg.MotionTopic)
	}
}

func TestPortFallback(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "6060")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ListenAddress != ":6060" {
		t.Fatalf("expected :6060 from PORT, got %q", cfg.ListenAddress)
	}
}

func TestInvalidPortRejected(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "not-a-port")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for non-numeric PORT")
	}
}

func TestMalformedPropertiesRejected(t *testing.T) {
	isolate(t)

	for name, content := range map[string]string{
		"missing separator": "listen_address :9090\n",
		"empty value":       "motion_topic=\n",
		"bad duration":      "session_gap_seconds=soon\n",
		"negative power":    "led_power_low_w=-1\n",
	} {
		path := filepath.Join(t.TempDir(), "lumos.properties")
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("%s: write properties: %v", name, err)
		}
		t.Setenv("LUMOS_PROPERTIES_PATH", path)
		if _, err := Load(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestInvalidTimezoneRejected(t *testing.T) {
	isolate(t)
	t.Setenv("LUMOS_TIMEZONE", "Not/AZone")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
}

func TestUnknownPropertyIgnored(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "lumos.properties")
	if err := os.WriteFile(path, []byte("future_knob=enabled\nlisten_address=:9191\n"), 0o600); err != nil {
		t.Fatalf("write properties: %v", err)
	}
	t.Setenv("LUMOS_PROPERTIES_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unknown keys must be ignored: %v", err)
	}
	if cfg.ListenAddress != ":9191" {
		t.Fatalf("expected :9191, got %q", cfg.ListenAddress)
	}
}
