package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("BOOKCOURIER_POSTGRES_URL", "postgres://localhost:5432/bookcourier")
	t.Setenv("BOOKCOURIER_JWT_SECRET", "test-secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 1024, cfg.Auth.RoleCacheSize)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.False(t, cfg.Storage.CacheEnabled)
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BOOKCOURIER_PORT", "8080")
	t.Setenv("BOOKCOURIER_READ_TIMEOUT", "5s")
	t.Setenv("BOOKCOURIER_CACHE_ENABLED", "true")
	t.Setenv("BOOKCOURIER_REDIS_URL", "redis://localhost:6379")
	t.Setenv("BOOKCOURIER_BOOK_CACHE_TTL", "2m")
	t.Setenv("BOOKCOURIER_ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, cfg.Storage.CacheEnabled)
	assert.Equal(t, 2*time.Minute, cfg.Storage.BookCacheTTL)
	assert.Equal(t, []string{"https://app.example.com", "https://staging.example.com"}, cfg.AllowedOrigins)
}

func TestLoadConfigMissingPostgres(t *testing.T) {
	t.Setenv("BOOKCOURIER_POSTGRES_URL", "")
	t.Setenv("BOOKCOURIER_JWT_SECRET", "test-secret")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres URL")
}

func TestLoadConfigMissingJWTSecret(t *testing.T) {
	t.Setenv("BOOKCOURIER_POSTGRES_URL", "postgres://localhost:5432/bookcourier")
	t.Setenv("BOOKCOURIER_JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT secret")
}

func TestLoadConfigPortClash(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BOOKCOURIER_PORT", "9090")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be different")
}

func TestLoadConfigCacheWithoutRedis(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BOOKCOURIER_CACHE_ENABLED", "1")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis URL")
}

func TestLoadStorageConfig(t *testing.T) {
	t.Setenv("BOOKCOURIER_POSTGRES_URL", "postgres://localhost:5432/bookcourier")
	t.Setenv("BOOKCOURIER_POSTGRES_MAX_CONNS", "42")

	cfg, err := LoadStorageConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost:5432/bookcourier", cfg.PostgresURL)
	assert.Equal(t, 42, cfg.PostgresMaxConns)
}

func TestLoadStorageConfigRequiresPostgres(t *testing.T) {
	t.Setenv("BOOKCOURIER_POSTGRES_URL", "")

	_, err := LoadStorageConfig()
	assert.Error(t, err)
}

func TestSplitListTrimsAndDropsEmpty(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a ,, b "))
}
