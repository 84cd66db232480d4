// v3
// internal/config/config.go
package config

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures all runtime settings required by the lumosMQTT backend.
// Values can be provided by a .env file, a properties file, or environment
// variables, and fall back to sensible defaults so the service can boot with
// minimal setup.
type Config struct {
	// ListenAddress defines the TCP address used by the HTTP server.
	ListenAddress string
	// LogFilePath is the absolute or relative path to the log file.
	LogFilePath string
	// LogLevel is the minimum severity emitted by the service logger.
	LogLevel slog.Level
	// HTTPReadTimeout bounds the time to read incoming requests.
	HTTPReadTimeout time.Duration
	// HTTPWriteTimeout bounds the time to write responses.
	HTTPWriteTimeout time.Duration
	// ShutdownTimeout limits graceful shutdown attempts.
	ShutdownTimeout time.Duration
	// PropertiesPath records the path used to load property values.
	PropertiesPath string
	// DatabasePath locates the SQLite event store file.
	DatabasePath string
	// KafkaBrokers lists the bootstrap brokers used to join the motion topic.
	KafkaBrokers []string
	// MotionTopic identifies the stream carrying raw motion events.
	MotionTopic string
	// MotionGroupID is the consumer group identifier used for checkpointing.
	MotionGroupID string
	// MotionPollTimeout bounds the duration spent waiting for Kafka messages.
	MotionPollTimeout time.Duration
	// Timezone is the IANA name of the calendar timezone used to derive the
	// day and hour of every stored event.
	Timezone string
	// Location is the resolved Timezone. Populated by Load.
	Location *time.Location
	// SessionGap is the maximum distance between consecutive events that
	// still belong to the same presence session.
	SessionGap time.Duration
	// MotionWindow is how long the LED stays on HIGH after a motion event.
	// Must match the firmware's motion-hold window.
	MotionWindow time.Duration
	// LEDPowerHighW is the estimated LED draw at full brightness, in watts.
	LEDPowerHighW float64
	// LEDPowerLowW is the estimated LED draw at standby brightness, in watts.
	LEDPowerLowW float64
}

const (
	defaultListenAddress = ":5050"
	defaultLogFile       = "logs/lumos.log"
	defaultLogLevel      = slog.LevelInfo
	defaultReadTimeout   = 5 * time.Second
	defaultWriteTimeout  = 10 * time.Second
	defaultShutdown      = 5 * time.Second
	defaultPropsPath     = "lumos.properties"
	defaultDatabasePath  = "data/lumos.db"
	defaultKafkaBrokers  = "kafka:9092"
	defaultMotionTopic   = "lumos.motion.events"
	defaultMotionGroup   = "lumos-backend"
	defaultPollTimeout   = 5 * time.Second
	defaultTimezone      = "America/Sao_Paulo"
	defaultSessionGap    = 120 * time.Second
	defaultMotionWindow  = 3 * time.Second
	defaultLEDPowerHighW = 3.0
	defaultLEDPowerLowW  = 0.5
)

// Load resolves configuration by layering defaults, an optional .env file, an
// optional properties file, and finally environment variables. The properties
// file location can be overridden with LUMOS_PROPERTIES_PATH.
func Load() (Config, error) {
	// A .env file next to the binary only populates the environment; the
	// environment still wins below via applyEnv.
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}

	cfg := Config{
		ListenAddress:     defaultListenAddress,
		LogFilePath:       filepath.Clean(defaultLogFile),
		LogLevel:          defaultLogLevel,
		HTTPReadTimeout:   defaultReadTimeout,
		HTTPWriteTimeout:  defaultWriteTimeout,
		ShutdownTimeout:   defaultShutdown,
		DatabasePath:      filepath.Clean(defaultDatabasePath),
		KafkaBrokers:      splitAndTrim(defaultKafkaBrokers),
		MotionTopic:       defaultMotionTopic,
		MotionGroupID:     defaultMotionGroup,
		MotionPollTimeout: defaultPollTimeout,
		Timezone:          defaultTimezone,
		SessionGap:        defaultSessionGap,
		MotionWindow:      defaultMotionWindow,
		LEDPowerHighW:     defaultLEDPowerHighW,
		LEDPowerLowW:      defaultLEDPowerLowW,
	}

	propsPath := strings.TrimSpace(os.Getenv("LUMOS_PROPERTIES_PATH"))
	if propsPath == "" {
		propsPath = defaultPropsPath
	}
	cfg.PropertiesPath = propsPath

	if err := applyProperties(&cfg, propsPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	return cfg, nil
}

func applyProperties(cfg *Config, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		// Close errors are ignored because configuration loading has
		// already completed and there is no logger available at this
		// stage of initialization.
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, ";") {
			continue
		}
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid properties entry on line %d", line)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if err := setProperty(cfg, key, value); err != nil {
			return fmt.Errorf("property %s: %w", key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read properties: %w", err)
	}
	return nil
}

func setProperty(cfg *Config, key, value string) error {
	switch key {
	case "listen_address":
		if value == "" {
			return errors.New("listen_address cannot be empty")
		}
		cfg.ListenAddress = value
	case "log_path":
		if value == "" {
			return errors.New("log_path cannot be empty")
		}
		cfg.LogFilePath = filepath.Clean(value)
	case "log_level":
		lvl, err := parseLogLevel(value)
		if err != nil {
			return err
		}
		cfg.LogLevel = lvl
	case "http_read_timeout_ms":
		d, err := parsePositiveMillis(value)
		if err != nil {
			return err
		}
		cfg.HTTPReadTimeout = d
	case "http_write_timeout_ms":
		d, err := parsePositiveMillis(value)
		if err != nil {
			return err
		}
		cfg.HTTPWriteTimeout = d
	case "shutdown_timeout_ms":
		d, err := parsePositiveMillis(value)
		if err != nil {
			return err
		}
		cfg.ShutdownTimeout = d
	case "db_path":
		if value == "" {
			return errors.New("db_path cannot be empty")
		}
		cfg.DatabasePath = filepath.Clean(value)
	case "kafka_brokers":
		brokers := splitAndTrim(value)
		if len(brokers) == 0 {
			return errors.New("kafka_brokers cannot be empty")
		}
		cfg.KafkaBrokers = brokers
	case "motion_topic":
		if value == "" {
			return errors.New("motion_topic cannot be empty")
		}
		cfg.MotionTopic = value
	case "motion_group_id":
		if value == "" {
			return errors.New("motion_group_id cannot be empty")
		}
		cfg.MotionGroupID = value
	case "motion_poll_timeout_ms":
		d, err := parsePositiveMillis(value)
		if err != nil {
			return err
		}
		cfg.MotionPollTimeout = d
	case "timezone":
		if value == "" {
			return errors.New("timezone cannot be empty")
		}
		cfg.Timezone = value
	case "session_gap_seconds":
		d, err := parsePositiveSeconds(value)
		if err != nil {
			return err
		}
		cfg.SessionGap = d
	case "motion_window_seconds":
		d, err := parsePositiveSeconds(value)
		if err != nil {
			return err
		}
		cfg.MotionWindow = d
	case "led_power_high_w":
		f, err := parsePositiveFloat(value)
		if err != nil {
			return err
		}
		cfg.LEDPowerHighW = f
	case "led_power_low_w":
		f, err := parsePositiveFloat(value)
		if err != nil {
			return err
		}
		cfg.LEDPowerLowW = f
	default:
		// Unknown keys are ignored to keep the loader forward-compatible.
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v, ok := lookupEnvTrimmed("LUMOS_LISTEN_ADDRESS"); ok {
		if v == "" {
			return errors.New("LUMOS_LISTEN_ADDRESS cannot be empty")
		}
		cfg.ListenAddress = v
	} else if v, ok := lookupEnvTrimmed("PORT"); ok {
		// Render and similar platforms hand out a bare port number.
		if _, err := strconv.Atoi(v); err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		cfg.ListenAddress = ":" + v
	}
	if v, ok := lookupEnvTrimmed("LUMOS_LOG_PATH"); ok {
		if v == "" {
			return errors.New("LUMOS_LOG_PATH cannot be empty")
		}
		cfg.LogFilePath = filepath.Clean(v)
	}
	if v, ok := lookupEnvTrimmed("LUMOS_LOG_LEVEL"); ok {
		lvl, err := parseLogLevel(v)
		if err != nil {
			return fmt.Errorf("LUMOS_LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = lvl
	}
	if v, ok := lookupEnvTrimmed("LUMOS_HTTP_READ_TIMEOUT_MS"); ok {
		d, err := parsePositiveMillis(v)
		if err != nil {
			return fmt.Errorf("LUMOS_HTTP_READ_TIMEOUT_MS: %w", err)
		}
		cfg.HTTPReadTimeout = d
	}
	if v, ok := lookupEnvTrimmed("LUMOS_HTTP_WRITE_TIMEOUT_MS"); ok {
		d, err := parsePositiveMillis(v)
		if err != nil {
			return fmt.Errorf("LUMOS_HTTP_WRITE_TIMEOUT_MS: %w", err)
		}
		cfg.HTTPWriteTimeout = d
	}
	if v, ok := lookupEnvTrimmed("LUMOS_SHUTDOWN_TIMEOUT_MS"); ok {
		d, err := parsePositiveMillis(v)
		if err != nil {
			return fmt.Errorf("LUMOS_SHUTDOWN_TIMEOUT_MS: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	if v, ok := lookupEnvTrimmed("DB_PATH"); ok {
		if v == "" {
			return errors.New("DB_PATH cannot be empty")
		}
		cfg.DatabasePath = filepath.Clean(v)
	}
	if v, ok := lookupEnvTrimmed("LUMOS_KAFKA_BROKERS"); ok {
		brokers := splitAndTrim(v)
		if len(brokers) == 0 {
			return errors.New("LUMOS_KAFKA_BROKERS cannot be empty")
		}
		cfg.KafkaBrokers = brokers
	} else if v, ok := lookupEnvTrimmed("KAFKA_BROKERS"); ok {
		brokers := splitAndTrim(v)
		if len(brokers) == 0 {
			return errors.New("KAFKA_BROKERS cannot be empty")
		}
		cfg.KafkaBrokers = brokers
	}
	if v, ok := lookupEnvTrimmed("LUMOS_MOTION_TOPIC"); ok {
		if v == "" {
			return errors.New("LUMOS_MOTION_TOPIC cannot be empty")
		}
		cfg.MotionTopic = v
	}
	if v, ok := lookupEnvTrimmed("LUMOS_MOTION_GROUP"); ok {
		if v == "" {
			return errors.New("LUMOS_MOTION_GROUP cannot be empty")
		}
		cfg.MotionGroupID = v
	}
	if v, ok := lookupEnvTrimmed("LUMOS_MOTION_POLL_TIMEOUT_MS"); ok {
		d, err := parsePositiveMillis(v)
		if err != nil {
			return fmt.Errorf("LUMOS_MOTION_POLL_TIMEOUT_MS: %w", err)
		}
		cfg.MotionPollTimeout = d
	}
	if v, ok := lookupEnvTrimmed("LUMOS_TIMEZONE"); ok {
		if v == "" {
			return errors.New("LUMOS_TIMEZONE cannot be empty")
		}
		cfg.Timezone = v
	}
	if v, ok := lookupEnvTrimmed("LUMOS_SESSION_GAP_SECONDS"); ok {
		d, err := parsePositiveSeconds(v)
		if err != nil {
			return fmt.Errorf("LUMOS_SESSION_GAP_SECONDS: %w", err)
		}
		cfg.SessionGap = d
	}
	if v, ok := lookupEnvTrimmed("LUMOS_MOTION_WINDOW_SECONDS"); ok {
		d, err := parsePositiveSeconds(v)
		if err != nil {
			return fmt.Errorf("LUMOS_MOTION_WINDOW_SECONDS: %w", err)
		}
		cfg.MotionWindow = d
	}
	if v, ok := lookupEnvTrimmed("LUMOS_LED_POWER_HIGH_W"); ok {
		f, err := parsePositiveFloat(v)
		if err != nil {
			return fmt.Errorf("LUMOS_LED_POWER_HIGH_W: %w", err)
		}
		cfg.LEDPowerHighW = f
	}
	if v, ok := lookupEnvTrimmed("LUMOS_LED_POWER_LOW_W"); ok {
		f, err := parsePositiveFloat(v)
		if err != nil {
			return fmt.Errorf("LUMOS_LED_POWER_LOW_W: %w", err)
		}
		cfg.LEDPowerLowW = f
	}
	return nil
}

func lookupEnvTrimmed(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLogLevel(value string) (slog.Level, error) {
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", value)
	}
}

func parsePositiveMillis(value string) (time.Duration, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid milliseconds value: %w", err)
	}
	if n <= 0 {
		return 0, errors.New("milliseconds value must be positive")
	}
	return time.Duration(n) * time.Millisecond, nil
}

func parsePositiveSeconds(value string) (time.Duration, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid seconds value: %w", err)
	}
	if n <= 0 {
		return 0, errors.New("seconds value must be positive")
	}
	return time.Duration(n) * time.Second, nil
}

func parsePositiveFloat(value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value: %w", err)
	}
	if f <= 0 {
		return 0, errors.New("value must be positive")
	}
	return f, nil
}
