package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.Namespace)
	assert.Equal(t, 0.3, cfg.TrustFloor)
	assert.Equal(t, 5, cfg.Pool.WorkerCount)
	assert.Equal(t, 64, cfg.Pool.QueueCapacity)
	assert.Equal(t, 0.2, cfg.Trust.Alpha)
	assert.Equal(t, 0.5, cfg.Trust.ExpiredCredit)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
}

func TestNewConfigEnvOverridesDefaults(t *testing.T) {
	t.Setenv("SWARMKIT_TRUST_FLOOR", "0.6")
	t.Setenv("SWARMKIT_POOL_WORKERS", "12")
	t.Setenv("SWARMKIT_STORE_BACKEND", "sqlite")
	t.Setenv("SWARMKIT_STORE_PATH", "/tmp/trust.db")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, 0.6, cfg.TrustFloor)
	assert.Equal(t, 12, cfg.Pool.WorkerCount)
	assert.Equal(t, StoreSQLite, cfg.Store.Backend)
	assert.Equal(t, "/tmp/trust.db", cfg.Store.Path)
}

func TestNewConfigOptionsOverrideEnv(t *testing.T) {
	t.Setenv("SWARMKIT_TRUST_FLOOR", "0.6")

	cfg, err := NewConfig(WithTrustFloor(0.9))
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.TrustFloor, "a functional option must win over an env var")
}

func TestNewConfigRejectsInvalidTrustFloor(t *testing.T) {
	_, err := NewConfig(WithTrustFloor(1.5))
	assert.Error(t, err)
}

func TestNewConfigRejectsMissingStorePath(t *testing.T) {
	_, err := NewConfig(WithStore(StoreConfig{Backend: StoreFile}))
	assert.Error(t, err)
}

func TestNewConfigRejectsUnknownBackend(t *testing.T) {
	_, err := NewConfig(WithStore(StoreConfig{Backend: "carrier-pigeon"}))
	assert.Error(t, err)
}

func TestValidateAcceptsAllKnownBackends(t *testing.T) {
	for _, b := range []StoreBackend{StoreMemory, StoreFile, StoreSQLite, StoreRedis} {
		cfg := defaults()
		cfg.Store.Backend = b
		switch b {
		case StoreFile, StoreSQLite:
			cfg.Store.Path = "/tmp/x"
		case StoreRedis:
			cfg.Store.RedisURL = "redis://localhost:6379"
		}
		assert.NoError(t, cfg.Validate(), string(b))
	}
}

func TestPoolShutdownTimeoutEnvParses(t *testing.T) {
	t.Setenv("SWARMKIT_POOL_SHUTDOWN_TIMEOUT", "5s")
	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Pool.ShutdownTimeout)
}

