package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppEnv          = "dev"
	defaultHTTPAddr        = ":8080"
	defaultDatabaseURL     = "file:advisorbooking.db"
	defaultLogLevel        = "info"
	defaultTimezone        = "UTC"
	defaultLockTTL         = "10s"
	defaultLockWait        = "5s"
	defaultKafkaTopic      = "appointment.events"
	defaultKafkaTimeout    = "5s"
	defaultOTelEnabled     = "false"
	defaultOTelEndpoint    = "localhost:4317"
	defaultSamplingRatio   = "1"
	defaultReminderCron    = "*/15 * * * *"
	defaultReminderLead    = "24h"
	defaultShutdownTimeout = "15s"
)

type Config struct {
	AppEnv          string
	HTTPAddr        string
	DatabaseURL     string
	LogLevel        string
	Location        *time.Location
	ShutdownTimeout time.Duration
	CORSOrigins     []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration
	LockWait      time.Duration

	KafkaBrokers      []string
	KafkaTopic        string
	KafkaWriteTimeout time.Duration

	OTelEnabled       bool
	OTelEndpoint      string
	OTelSamplingRatio float64

	ReminderSchedule string
	ReminderLead     time.Duration
}

// LockEnabled reports whether a Redis address was configured.
func (c *Config) LockEnabled() bool { return c.RedisAddr != "" }

func (c *Config) IsProd() bool { return isProdLike(c.AppEnv) }

// Load reads the process environment, after merging any .env file found in
// the working directory. Existing variables are never overridden.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() (*Config, error) {
	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = defaultAppEnv
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.LogLevel = strings.TrimSpace(getEnv("LOG_LEVEL", defaultLogLevel))
	cfg.CORSOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", ""))

	tz := strings.TrimSpace(getEnv("TIMEZONE", defaultTimezone))
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE value %q: %w", tz, err)
	}
	cfg.Location = loc

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if cfg.RedisDB, err = parseIntEnv("REDIS_DB", "0"); err != nil {
		return nil, err
	}
	if cfg.LockTTL, err = parseDurationEnv("LOCK_TTL", defaultLockTTL); err != nil {
		return nil, err
	}
	if cfg.LockWait, err = parseDurationEnv("LOCK_WAIT", defaultLockWait); err != nil {
		return nil, err
	}

	cfg.KafkaBrokers = splitList(os.Getenv("KAFKA_BROKERS"))
	cfg.KafkaTopic = strings.TrimSpace(getEnv("KAFKA_TOPIC", defaultKafkaTopic))
	if cfg.KafkaWriteTimeout, err = parseDurationEnv("KAFKA_WRITE_TIMEOUT", defaultKafkaTimeout); err != nil {
		return nil, err
	}

	cfg.OTelEnabled = parseBoolEnv("OTEL_ENABLED", defaultOTelEnabled)
	cfg.OTelEndpoint = strings.TrimSpace(getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", defaultOTelEndpoint))
	if cfg.OTelSamplingRatio, err = parseFloatEnv("OTEL_SAMPLING_RATIO", defaultSamplingRatio); err != nil {
		return nil, err
	}

	cfg.ReminderSchedule = strings.TrimSpace(getEnv("REMINDER_SCHEDULE", defaultReminderCron))
	if cfg.ReminderLead, err = parseDurationEnv("REMINDER_LEAD_TIME", defaultReminderLead); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = parseDurationEnv("SHUTDOWN_TIMEOUT", defaultShutdownTimeout); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be > 0")
	}
	if cfg.LockWait <= 0 {
		return fmt.Errorf("LOCK_WAIT must be > 0")
	}
	if cfg.KafkaWriteTimeout <= 0 {
		return fmt.Errorf("KAFKA_WRITE_TIMEOUT must be > 0")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC must be set when KAFKA_BROKERS is set")
	}
	if cfg.OTelSamplingRatio < 0 || cfg.OTelSamplingRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLING_RATIO must be within [0, 1]")
	}
	if cfg.OTelEnabled && cfg.OTelEndpoint == "" {
		return fmt.Errorf("OTEL_EXPORTER_OTLP_ENDPOINT must be set when OTEL_ENABLED=true")
	}
	if cfg.ReminderSchedule == "" {
		return fmt.Errorf("REMINDER_SCHEDULE must not be empty")
	}
	if cfg.ReminderLead <= 0 {
		return fmt.Errorf("REMINDER_LEAD_TIME must be > 0")
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be > 0")
	}

	if isProdLike(cfg.AppEnv) {
		if !isPostgresURL(cfg.DatabaseURL) {
			return fmt.Errorf("in prod/release DATABASE_URL must point at PostgreSQL")
		}
	}
	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isPostgresURL(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseFloatEnv(name, fallback string) (float64, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return f, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
