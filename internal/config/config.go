// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a .env file, an optional YAML file and MOODTUNE_* env vars on top.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"time"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite3"
	StoragePostgres = "postgres"
)

// Dedupe backends.
const (
	DedupeMemory = "memory"
	DedupeRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Threshold is the default detection threshold in [0,1].
	Threshold float64 `koanf:"threshold"`
	// RecentDays is the look-back of the "recent" half of the trend comparison.
	RecentDays int `koanf:"recent_days"`
	// InsightDays is the default analytics window.
	InsightDays int `koanf:"insight_days"`
	// Timezone names the IANA zone used for time-of-day buckets.
	Timezone string `koanf:"timezone"`

	// ModelVersion is reported when the classifier does not name its own.
	ModelVersion        string `koanf:"model_version"`
	ClassifierURL       string `koanf:"classifier_url"`
	ClassifierTimeoutMS int    `koanf:"classifier_timeout_ms"`
	ExplainerURL        string `koanf:"explainer_url"`
	ExplainerTimeoutMS  int    `koanf:"explainer_timeout_ms"`

	StorageDriver string `koanf:"storage_driver"`
	StorageDSN    string `koanf:"storage_dsn"`
	// CatalogFile is an optional YAML catalog seeded into an empty store.
	CatalogFile string `koanf:"catalog_file"`

	DedupeBackend   string `koanf:"dedupe_backend"`
	DedupeSize      int    `koanf:"dedupe_size"`
	RedisURL        string `koanf:"redis_url"`
	IdempotencyTTLS int    `koanf:"idempotency_ttl_s"`
	BatchWorkers    int    `koanf:"batch_workers"`
	MaxBatchSize    int    `koanf:"max_batch_size"`
	MaxTextLength   int    `koanf:"max_text_length"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":8080",
		Threshold:           0.3,
		RecentDays:          7,
		InsightDays:         30,
		Timezone:            "UTC",
		ModelVersion:        "bert-emotion-v1.0",
		ClassifierTimeoutMS: 30_000,
		ExplainerTimeoutMS:  10_000,
		StorageDriver:       StorageMemory,
		DedupeBackend:       DedupeMemory,
		DedupeSize:          100_000,
		IdempotencyTTLS:     86_400,
		BatchWorkers:        runtime.NumCPU() * 2,
		MaxBatchSize:        10,
		MaxTextLength:       5000,
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}

// ClassifierTimeout is ClassifierTimeoutMS as a duration.
func (c *Config) ClassifierTimeout() time.Duration {
	return time.Duration(c.ClassifierTimeoutMS) * time.Millisecond
}

// ExplainerTimeout is ExplainerTimeoutMS as a duration.
func (c *Config) ExplainerTimeout() time.Duration {
	return time.Duration(c.ExplainerTimeoutMS) * time.Millisecond
}

// IdempotencyTTL is IdempotencyTTLS as a duration.
func (c *Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempotencyTTLS) * time.Second
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Threshold < 0 || c.Threshold > 1:
		return fmt.Errorf("%w: threshold must be within [0,1]", ErrInvalidConfig)
	case c.RecentDays < 1:
		return fmt.Errorf("%w: recent_days must be positive", ErrInvalidConfig)
	case c.InsightDays < 1 || c.InsightDays > 365:
		return fmt.Errorf("%w: insight_days must be within [1,365]", ErrInvalidConfig)
	case c.ClassifierTimeoutMS <= 0 || c.ExplainerTimeoutMS <= 0:
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	case c.MaxBatchSize < 1 || c.MaxTextLength < 1:
		return fmt.Errorf("%w: max_batch_size and max_text_length must be positive", ErrInvalidConfig)
	case c.BatchWorkers < 1:
		return fmt.Errorf("%w: batch_workers must be positive", ErrInvalidConfig)
	case c.IdempotencyTTLS < 1:
		return fmt.Errorf("%w: idempotency_ttl_s must be positive", ErrInvalidConfig)
	}

	switch c.StorageDriver {
	case StorageMemory:
	case StorageSQLite, StoragePostgres:
		if c.StorageDSN == "" {
			return fmt.Errorf("%w: storage_dsn is required for %s", ErrInvalidConfig, c.StorageDriver)
		}
	default:
		return fmt.Errorf("%w: unknown storage_driver %q", ErrInvalidConfig, c.StorageDriver)
	}

	switch c.DedupeBackend {
	case DedupeMemory:
		if c.DedupeSize < 1 {
			return fmt.Errorf("%w: dedupe_size must be positive", ErrInvalidConfig)
		}
	case DedupeRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%w: redis_url is required for the redis dedupe backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown dedupe_backend %q", ErrInvalidConfig, c.DedupeBackend)
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
