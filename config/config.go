// Package config loads the runtime's configuration: defaults, then
// environment variables, then functional options, in that priority
// order (lowest to highest) — the same three-layer precedence the
// teacher framework's core.Config applies.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every tunable the wiring in cmd/swarmd needs to build a
// Coordinator: pool sizing, the trust floor, backoff shape, and which
// storage backend to use for trust/checkpoint persistence.
type Config struct {
	// Core
	Namespace  string  `json:"namespace" env:"SWARMKIT_NAMESPACE" default:"default"`
	TrustFloor float64 `json:"trust_floor" env:"SWARMKIT_TRUST_FLOOR" default:"0.3"`

	Pool  PoolConfig  `json:"pool"`
	Trust TrustConfig `json:"trust"`
	Store StoreConfig `json:"store"`
	Retry RetryConfig `json:"retry"`

	Logging LoggingConfig `json:"logging"`
}

// PoolConfig configures the bounded worker pool (§5).
type PoolConfig struct {
	WorkerCount     int           `json:"worker_count" env:"SWARMKIT_POOL_WORKERS" default:"5"`
	QueueCapacity   int           `json:"queue_capacity" env:"SWARMKIT_POOL_QUEUE" default:"64"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" env:"SWARMKIT_POOL_SHUTDOWN_TIMEOUT" default:"30s"`
}

// TrustConfig configures the EWMA trust ledger (§4.4).
type TrustConfig struct {
	Alpha          float64       `json:"alpha" env:"SWARMKIT_TRUST_ALPHA" default:"0.2"`
	ExpiredCredit  float64       `json:"expired_credit" env:"SWARMKIT_TRUST_EXPIRED_CREDIT" default:"0.5"`
	FlushThreshold int           `json:"flush_threshold" env:"SWARMKIT_TRUST_FLUSH_THRESHOLD" default:"20"`
	FlushInterval  time.Duration `json:"flush_interval" env:"SWARMKIT_TRUST_FLUSH_INTERVAL" default:"30s"`
}

// StoreBackend names which persistence collaborator to wire up for
// trust and checkpoint storage.
type StoreBackend string

const (
	StoreMemory StoreBackend = "memory"
	StoreFile   StoreBackend = "file"
	StoreSQLite StoreBackend = "sqlite"
	StoreRedis  StoreBackend = "redis"
)

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Backend  StoreBackend `json:"backend" env:"SWARMKIT_STORE_BACKEND" default:"memory"`
	Path     string       `json:"path" env:"SWARMKIT_STORE_PATH"`           // file/sqlite
	RedisURL string       `json:"redis_url" env:"SWARMKIT_STORE_REDIS_URL"` // redis
}

// RetryConfig seeds the default exponential backoff shape new Steps
// get when a caller doesn't set one explicitly (§3).
type RetryConfig struct {
	InitialInterval time.Duration `json:"initial_interval" env:"SWARMKIT_RETRY_INITIAL" default:"500ms"`
	MaxInterval     time.Duration `json:"max_interval" env:"SWARMKIT_RETRY_MAX" default:"30s"`
	Factor          float64       `json:"factor" env:"SWARMKIT_RETRY_FACTOR" default:"2.0"`
	MaxAttempts     int           `json:"max_attempts" env:"SWARMKIT_RETRY_MAX_ATTEMPTS" default:"3"`
}

// LoggingConfig controls the swarmcore.Logger the runtime builds.
type LoggingConfig struct {
	Level  string `json:"level" env:"SWARMKIT_LOG_LEVEL" default:"info"`
	Format string `json:"format" env:"SWARMKIT_LOG_FORMAT" default:"json"`
}

// Option mutates a Config during NewConfig, after defaults and
// environment variables have already been applied — the highest
// priority layer.
type Option func(*Config)

// WithNamespace overrides the namespace.
func WithNamespace(ns string) Option { return func(c *Config) { c.Namespace = ns } }

// WithTrustFloor overrides the minimum trust score a worker must clear
// to be eligible for selection (§4.3).
func WithTrustFloor(floor float64) Option { return func(c *Config) { c.TrustFloor = floor } }

// WithPool overrides the pool configuration wholesale.
func WithPool(p PoolConfig) Option { return func(c *Config) { c.Pool = p } }

// WithStore overrides the store configuration wholesale.
func WithStore(s StoreConfig) Option { return func(c *Config) { c.Store = s } }

// defaults returns a Config populated with every default: value above.
func defaults() *Config {
	return &Config{
		Namespace:  "default",
		TrustFloor: 0.3,
		Pool: PoolConfig{
			WorkerCount:     5,
			QueueCapacity:   64,
			ShutdownTimeout: 30 * time.Second,
		},
		Trust: TrustConfig{
			Alpha:          0.2,
			ExpiredCredit:  0.5,
			FlushThreshold: 20,
			FlushInterval:  30 * time.Second,
		},
		Store: StoreConfig{Backend: StoreMemory},
		Retry: RetryConfig{
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     30 * time.Second,
			Factor:          2.0,
			MaxAttempts:     3,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// NewConfig builds a Config from defaults, then environment variables,
// then opts, validates it, and returns it.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := defaults()
	applyEnv(cfg)
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(c *Config) {
	if v := os.Getenv("SWARMKIT_NAMESPACE"); v != "" {
		c.Namespace = v
	}
	if v := os.Getenv("SWARMKIT_TRUST_FLOOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.TrustFloor = f
		}
	}
	if v := os.Getenv("SWARMKIT_POOL_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Pool.WorkerCount = n
		}
	}
	if v := os.Getenv("SWARMKIT_POOL_QUEUE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Pool.QueueCapacity = n
		}
	}
	if v := os.Getenv("SWARMKIT_POOL_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Pool.ShutdownTimeout = d
		}
	}
	if v := os.Getenv("SWARMKIT_TRUST_ALPHA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Trust.Alpha = f
		}
	}
	if v := os.Getenv("SWARMKIT_TRUST_EXPIRED_CREDIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Trust.ExpiredCredit = f
		}
	}
	if v := os.Getenv("SWARMKIT_TRUST_FLUSH_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Trust.FlushThreshold = n
		}
	}
	if v := os.Getenv("SWARMKIT_TRUST_FLUSH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Trust.FlushInterval = d
		}
	}
	if v := os.Getenv("SWARMKIT_STORE_BACKEND"); v != "" {
		c.Store.Backend = StoreBackend(v)
	}
	if v := os.Getenv("SWARMKIT_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("SWARMKIT_STORE_REDIS_URL"); v != "" {
		c.Store.RedisURL = v
	} else if v := os.Getenv("REDIS_URL"); v != "" {
		c.Store.RedisURL = v
	}
	if v := os.Getenv("SWARMKIT_RETRY_INITIAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Retry.InitialInterval = d
		}
	}
	if v := os.Getenv("SWARMKIT_RETRY_MAX"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Retry.MaxInterval = d
		}
	}
	if v := os.Getenv("SWARMKIT_RETRY_FACTOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Retry.Factor = f
		}
	}
	if v := os.Getenv("SWARMKIT_RETRY_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Retry.MaxAttempts = n
		}
	}
	if v := os.Getenv("SWARMKIT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SWARMKIT_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

// Validate rejects configurations the runtime cannot safely start
// with — an out-of-range trust floor, a non-positive pool size, or an
// unrecognized store backend.
func (c *Config) Validate() error {
	if c.TrustFloor < 0 || c.TrustFloor > 1 {
		return fmt.Errorf("config: trust_floor must be within [0,1], got %f", c.TrustFloor)
	}
	if c.Trust.Alpha <= 0 || c.Trust.Alpha > 1 {
		return fmt.Errorf("config: trust.alpha must be within (0,1], got %f", c.Trust.Alpha)
	}
	if c.Trust.ExpiredCredit < 0 || c.Trust.ExpiredCredit > 1 {
		return fmt.Errorf("config: trust.expired_credit must be within [0,1], got %f", c.Trust.ExpiredCredit)
	}
	if c.Pool.WorkerCount <= 0 {
		return fmt.Errorf("config: pool.worker_count must be positive, got %d", c.Pool.WorkerCount)
	}
	if c.Pool.QueueCapacity <= 0 {
		return fmt.Errorf("config: pool.queue_capacity must be positive, got %d", c.Pool.QueueCapacity)
	}
	switch c.Store.Backend {
	case StoreMemory, StoreFile, StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("config: unrecognized store.backend %q", c.Store.Backend)
	}
	if (c.Store.Backend == StoreFile || c.Store.Backend == StoreSQLite) && c.Store.Path == "" {
		return fmt.Errorf("config: store.path is required for backend %q", c.Store.Backend)
	}
	if c.Store.Backend == StoreRedis && c.Store.RedisURL == "" {
		return fmt.Errorf("config: store.redis_url is required for backend %q", c.Store.Backend)
	}
	return nil
}
