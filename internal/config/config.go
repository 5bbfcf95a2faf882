package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the postybirb server.
// Environment variables are parsed from the POSTYBIRB_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string      `envconfig:"LOG_LEVEL" default:"info"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"9487"`

	// DataDir holds the database, stored files, locks and startup options.
	DataDir string `envconfig:"DATA_DIR" default:""`

	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:""`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// Directory watcher
	WatcherIntervalSeconds int `envconfig:"WATCHER_INTERVAL_SECONDS" default:"30"`
	WatcherConcurrency     int `envconfig:"WATCHER_CONCURRENCY" default:"4"`

	BusCallbackTimeoutSeconds int `envconfig:"BUS_CALLBACK_TIMEOUT_SECONDS" default:"10"`

	// Health monitoring
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"2"`

	// Webhook destination; disabled when URL is empty
	WebhookURL        string `envconfig:"WEBHOOK_URL" default:""`
	WebhookMaxRetries int    `envconfig:"WEBHOOK_MAX_RETRIES" default:"3"`

	// Bucket destination; disabled when bucket is empty
	S3Bucket   string `envconfig:"S3_BUCKET" default:""`
	S3Region   string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Endpoint string `envconfig:"S3_ENDPOINT" default:""`

	// Static keys; the default AWS credential chain applies when empty
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" default:""`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" default:""`

	PostTimeoutSeconds int `envconfig:"POST_TIMEOUT_SECONDS" default:"120"`
}

// ResolveDefaults validates DBDriver and derives DataDir and SQLitePath when empty.
func (c *Config) ResolveDefaults() error {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve data dir: %w", err)
		}
		c.DataDir = filepath.Join(home, ".postybirb")
	}

	switch c.DBDriver {
	case "", "sqlite":
		c.DBDriver = "sqlite"
		if c.SQLitePath == "" {
			c.SQLitePath = filepath.Join(c.DataDir, "postybirb.db")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("DB_DRIVER=postgres requires POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}

	if c.WatcherIntervalSeconds <= 0 {
		return fmt.Errorf("WATCHER_INTERVAL_SECONDS must be positive, got %d", c.WatcherIntervalSeconds)
	}
	if c.WatcherConcurrency <= 0 {
		c.WatcherConcurrency = 1
	}
	if c.BusCallbackTimeoutSeconds <= 0 {
		c.BusCallbackTimeoutSeconds = 10
	}
	if c.WebhookMaxRetries < 0 {
		c.WebhookMaxRetries = 0
	}
	return nil
}

// New creates a new Config by parsing environment variables
// Example: POSTYBIRB_HTTP_PORT, POSTYBIRB_DATA_DIR
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("POSTYBIRB", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("db_driver", cfg.DBDriver).
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.HTTPPort).
		Int("watcher_interval_s", cfg.WatcherIntervalSeconds).
		Bool("webhook_enabled", cfg.WebhookURL != "").
		Bool("bucket_enabled", cfg.S3Bucket != "").
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting(dataDir string) *Config {
	cfg := &Config{
		Environment:               EnvTesting,
		LogLevel:                  "debug",
		HTTPPort:                  0,
		DataDir:                   dataDir,
		DBDriver:                  "sqlite",
		WatcherIntervalSeconds:    1,
		WatcherConcurrency:        2,
		BusCallbackTimeoutSeconds: 2,
		HealthIntervalSeconds:     1,
		HealthProbeTimeoutSeconds: 1,
		WebhookMaxRetries:         1,
		S3Region:                  "us-east-1",
		PostTimeoutSeconds:        5,
	}
	_ = cfg.ResolveDefaults()
	return cfg
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func (c *Config) WatcherInterval() time.Duration {
	return time.Duration(c.WatcherIntervalSeconds) * time.Second
}

func (c *Config) BusCallbackTimeout() time.Duration {
	return time.Duration(c.BusCallbackTimeoutSeconds) * time.Second
}

func (c *Config) PostTimeout() time.Duration {
	return time.Duration(c.PostTimeoutSeconds) * time.Second
}

// FilesDir is where stored submission blobs live.
func (c *Config) FilesDir() string { return filepath.Join(c.DataDir, "files") }

// LocksDir holds per-watcher pass locks.
func (c *Config) LocksDir() string { return filepath.Join(c.DataDir, "locks") }
