package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NERVETASK_JWT_SECRET", "s3cret")
	t.Setenv("NERVETASK_POSTGRES_DSN", "postgres://localhost/nervetask")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "localhost", cfg.DefaultDomain)
	assert.Equal(t, "nervetask-events", cfg.KafkaTopic)
	assert.True(t, cfg.RelationsEnabled)
	assert.Equal(t, "single", cfg.ProvisionScope)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("NERVETASK_HTTP_PORT", "9000")
	t.Setenv("NERVETASK_STORE_DRIVER", "MEMORY")
	t.Setenv("NERVETASK_RELATIONS_ENABLED", "false")
	t.Setenv("NERVETASK_REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.HTTPPort)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.False(t, cfg.RelationsEnabled)
	assert.Equal(t, 3, cfg.RedisDB)
}

func TestValidate(t *testing.T) {
	cfg := &Config{StoreDriver: DriverPostgres, DefaultDomain: "localhost"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres.dsn")
	assert.Contains(t, err.Error(), "jwt.secret")

	cfg = &Config{StoreDriver: "sqlite", JWTSecret: "x", DefaultDomain: "localhost"}
	assert.ErrorContains(t, cfg.Validate(), "unknown store driver")

	cfg = &Config{StoreDriver: DriverMemory, JWTSecret: "x", DefaultDomain: "localhost"}
	assert.NoError(t, cfg.Validate())
}
