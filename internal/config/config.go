// Package config defines service configuration and its koanf-based loader.
package config

import (
	"fmt"
	"runtime"
	"slices"
	"time"
)

// Store drivers accepted by StoreDriver.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	StoreDriver   string `koanf:"store_driver"`
	StoreDSN      string `koanf:"store_dsn"`
	StoreMaxConns int    `koanf:"store_max_conns"`

	// RedisAddr enables the cohort snapshot mirror when set.
	RedisAddr       string `koanf:"redis_addr"`
	RedisPassword   string `koanf:"redis_password"`
	RedisDB         int    `koanf:"redis_db"`
	RedisTTLSeconds int    `koanf:"redis_ttl_seconds"`

	// QueueSize bounds the async scoring queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of scoring workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize bounds the in-flight job deduper.
	DedupeSize int `koanf:"dedupe_size"`
	// BatchConcurrency bounds concurrent writes during cohort re-normalization.
	BatchConcurrency int `koanf:"batch_concurrency"`

	DefaultWeeklyHours float64 `koanf:"default_weekly_hours"`
	DefaultMethodology float64 `koanf:"default_methodology"`

	// QuestionBankPath overrides the embedded stage question bank.
	QuestionBankPath string `koanf:"question_bank_path"`

	CORSOrigins []string `koanf:"cors_origins"`

	MetricsRefreshSeconds int `koanf:"metrics_refresh_seconds"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		StoreDriver:           StoreMemory,
		StoreMaxConns:         10,
		RedisTTLSeconds:       86400,
		QueueSize:             10_000,
		WorkerCount:           runtime.NumCPU(),
		DedupeSize:            100_000,
		BatchConcurrency:      4,
		DefaultWeeklyHours:    3,
		DefaultMethodology:    50,
		CORSOrigins:           []string{"*"},
		MetricsRefreshSeconds: 5,
	}
}

// RedisTTL returns the mirror expiry.
func (c *Config) RedisTTL() time.Duration {
	return time.Duration(c.RedisTTLSeconds) * time.Second
}

// MetricsRefresh returns the system metrics refresh period.
func (c *Config) MetricsRefresh() time.Duration {
	if c.MetricsRefreshSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.MetricsRefreshSeconds) * time.Second
}

// Validate checks field ranges. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case !slices.Contains([]string{StoreMemory, StoreSQLite, StorePostgres}, c.StoreDriver):
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	case c.StoreDriver != StoreMemory && c.StoreDSN == "":
		return fmt.Errorf("%w: store_dsn is required for %s", ErrInvalidConfig, c.StoreDriver)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.BatchConcurrency <= 0:
		return fmt.Errorf("%w: batch_concurrency must be positive", ErrInvalidConfig)
	case c.DefaultWeeklyHours < 0:
		return fmt.Errorf("%w: default_weekly_hours must not be negative", ErrInvalidConfig)
	case c.DefaultMethodology < 0 || c.DefaultMethodology > 100:
		return fmt.Errorf("%w: default_methodology must be within [0,100]", ErrInvalidConfig)
	}
	return nil
}
