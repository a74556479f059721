package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTP     HTTPConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Auth     AuthConfig
	Events   EventsConfig
}

type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	SecureCookies   bool
}

type DatabaseConfig struct {
	URL           string
	RunMigrations bool
}

type LoggingConfig struct {
	Level  string
	Format string // text|json
}

type AuthConfig struct {
	SessionTTL  time.Duration
	OTPTTL      time.Duration
	OTPLength   int
	OTPAttempts int
	OTPSweepInt time.Duration
}

type EventsConfig struct {
	BufferSize int
}

const (
	defaultAddr            = ":5000"
	defaultDatabaseURL     = "host=localhost port=5432 user=postgres password=postgres dbname=zensplit sslmode=disable"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultLoggingLevel    = "info"
	defaultLoggingFormat   = "text"
	defaultSessionTTL      = 7 * 24 * time.Hour
	defaultOTPTTL          = 10 * time.Minute
	defaultOTPLength       = 6
	defaultOTPAttempts     = 5
	defaultOTPSweep        = time.Minute
	defaultEventBuffer     = 100
)

// Load reads configuration from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Addr:          valueOrDefault("HTTP_ADDR", defaultAddr),
			SecureCookies: parseBoolWithDefault("SECURE_COOKIES", false),
		},
		Database: DatabaseConfig{
			URL:           valueOrDefault("DATABASE_URL", defaultDatabaseURL),
			RunMigrations: parseBoolWithDefault("RUN_MIGRATIONS", true),
		},
		Logging: LoggingConfig{
			Level:  valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format: valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
		},
		Auth: AuthConfig{
			OTPLength:   parseIntWithDefault("OTP_LENGTH", defaultOTPLength),
			OTPAttempts: parseIntWithDefault("OTP_MAX_ATTEMPTS", defaultOTPAttempts),
		},
		Events: EventsConfig{
			BufferSize: parseIntWithDefault("EVENT_BUFFER_SIZE", defaultEventBuffer),
		},
	}

	durations := []struct {
		key      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"HTTP_READ_TIMEOUT", defaultReadTimeout, &cfg.HTTP.ReadTimeout},
		{"HTTP_WRITE_TIMEOUT", defaultWriteTimeout, &cfg.HTTP.WriteTimeout},
		{"HTTP_SHUTDOWN_TIMEOUT", defaultShutdownTimeout, &cfg.HTTP.ShutdownTimeout},
		{"SESSION_TTL", defaultSessionTTL, &cfg.Auth.SessionTTL},
		{"OTP_TTL", defaultOTPTTL, &cfg.Auth.OTPTTL},
		{"OTP_SWEEP_INTERVAL", defaultOTPSweep, &cfg.Auth.OTPSweepInt},
	}
	for _, d := range durations {
		v, err := parseDuration(d.key, d.fallback)
		if err != nil {
			return Config{}, err
		}
		*d.dst = v
	}

	if cfg.Auth.OTPLength < 4 || cfg.Auth.OTPLength > 10 {
		return Config{}, fmt.Errorf("OTP_LENGTH %d is out of range 4-10", cfg.Auth.OTPLength)
	}
	if cfg.Auth.OTPAttempts < 1 {
		return Config{}, fmt.Errorf("OTP_MAX_ATTEMPTS must be positive, got %d", cfg.Auth.OTPAttempts)
	}
	if cfg.Events.BufferSize < 1 {
		return Config{}, fmt.Errorf("EVENT_BUFFER_SIZE must be positive, got %d", cfg.Events.BufferSize)
	}

	return cfg, nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
