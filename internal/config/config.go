// Package config loads process configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/ambee/internal/database"
	"github.com/breatheroute/ambee/pkg/ambee"
)

var (
	errMissingAPIKey         = errors.New("config: AMBEE_API_KEY is required")
	errInvalidPort           = errors.New("config: invalid APP_PORT number")
	errInvalidDuration       = errors.New("config: invalid duration")
	errConcurrencyOutOfRange = errors.New("config: POLL_CONCURRENCY must be 1-100")
	errInvalidLogLevel       = errors.New("config: invalid LOG_LEVEL")
)

// Config holds all process configuration.
type Config struct {
	Env      string
	Port     string
	LogLevel string

	Ambee     AmbeeConfig
	Telemetry TelemetryConfig
	Database  database.Config
	PubSub    PubSubConfig
	Poll      PollConfig
	JWT       JWTConfig
}

// AmbeeConfig configures the Ambee API client.
type AmbeeConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled  bool
	Endpoint string
}

// PubSubConfig configures reading publication and poll triggers.
// An empty ProjectID disables Pub/Sub.
type PubSubConfig struct {
	ProjectID    string
	Topic        string
	Subscription string
}

// PollConfig configures the reading poller.
type PollConfig struct {
	Interval    time.Duration
	Concurrency int

	// Points is the raw POLL_POINTS value, "name:lat:lng;name:lat:lng".
	Points string
}

// JWTConfig configures bearer token validation for the HTTP API.
type JWTConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
}

// DevSigningKey signs service tokens when JWT_SIGNING_KEY is unset. Never use it in production.
const DevSigningKey = "local-dev-signing-key-change-in-production"

// JWTConfigFrom reads the JWT_* keys through getenv. An empty signing key
// falls back to DevSigningKey.
func JWTConfigFrom(getenv func(string) string) JWTConfig {
	cfg := JWTConfig{
		SigningKey: getenv("JWT_SIGNING_KEY"),
		Issuer:     getenv("JWT_ISSUER"),
		Audience:   getenv("JWT_AUDIENCE"),
	}
	if cfg.SigningKey == "" {
		cfg.SigningKey = DevSigningKey
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "https://ambee.breatheroute.nl"
	}
	if cfg.Audience == "" {
		cfg.Audience = "ambee-api"
	}
	return cfg
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	timeout, err := getEnvAsDuration("AMBEE_TIMEOUT", ambee.DefaultRequestTimeout)
	if err != nil {
		return Config{}, err
	}
	interval, err := getEnvAsDuration("POLL_INTERVAL", 15*time.Minute)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Env:      getEnv("APP_ENV", "development"),
		Port:     getEnv("APP_PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Ambee: AmbeeConfig{
			APIKey:  os.Getenv("AMBEE_API_KEY"),
			BaseURL: getEnv("AMBEE_BASE_URL", ambee.DefaultBaseURL),
			Timeout: timeout,
		},
		Telemetry: TelemetryConfig{
			Enabled:  os.Getenv("OTEL_ENABLED") == "true",
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		},
		Database: database.ConfigFromEnv(),
		PubSub: PubSubConfig{
			ProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
			Topic:        getEnv("PUBSUB_TOPIC", "ambee-readings"),
			Subscription: getEnv("PUBSUB_SUBSCRIPTION", "ambee-poll-triggers"),
		},
		Poll: PollConfig{
			Interval:    interval,
			Concurrency: getEnvAsInt("POLL_CONCURRENCY", 3),
			Points:      os.Getenv("POLL_POINTS"),
		},
		JWT: JWTConfigFrom(os.Getenv),
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%w: %q", errInvalidPort, c.Port)
	}

	if c.Poll.Concurrency < 1 || c.Poll.Concurrency > 100 {
		return fmt.Errorf("%w: got %d", errConcurrencyOutOfRange, c.Poll.Concurrency)
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %q", errInvalidLogLevel, c.LogLevel)
	}

	return nil
}

// Validate reports whether the Ambee settings are usable for API calls.
func (c AmbeeConfig) Validate() error {
	if c.APIKey == "" {
		return errMissingAPIKey
	}
	return nil
}

// ClientConfig returns the library configuration for a coordinate.
func (c AmbeeConfig) ClientConfig(lat, lng float64) ambee.ClientConfig {
	return ambee.ClientConfig{
		APIKey:         c.APIKey,
		BaseURL:        c.BaseURL,
		RequestTimeout: c.Timeout,
		Latitude:       lat,
		Longitude:      lng,
	}
}

// Logger builds the process logger.
func (c Config) Logger(service, version string) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Str("env", c.Env).
		Logger()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %s=%q", errInvalidDuration, key, s)
	}
	return d, nil
}
