package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bookcourier/bookcourier/pkg/observability"
	"github.com/bookcourier/bookcourier/pkg/storage"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Storage storage.Config
	Auth    AuthConfig
	Stripe  StripeConfig

	LogLevel       slog.Level
	AllowedOrigins []string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for probes)
	HealthPort string
}

// AuthConfig holds credential signing configuration.
type AuthConfig struct {
	JWTSecret string
	// RoleCacheSize is the L1 LRU capacity for role lookups.
	RoleCacheSize int
}

// StripeConfig holds payment provider configuration.
type StripeConfig struct {
	SecretKey string
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("BOOKCOURIER_HOST", "0.0.0.0"),
			Port:            getEnv("BOOKCOURIER_PORT", "5000"),
			ReadTimeout:     getEnvDuration("BOOKCOURIER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("BOOKCOURIER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("BOOKCOURIER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("BOOKCOURIER_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("BOOKCOURIER_HEALTH_PORT", "9090"),
		},
		Storage: loadStorageConfig(),
		Auth: AuthConfig{
			JWTSecret:     getEnv("BOOKCOURIER_JWT_SECRET", ""),
			RoleCacheSize: getEnvInt("BOOKCOURIER_ROLE_CACHE_SIZE", 1024),
		},
		Stripe: StripeConfig{
			SecretKey: getEnv("BOOKCOURIER_STRIPE_SECRET_KEY", ""),
		},
		LogLevel:       observability.ParseLevel(getEnv("BOOKCOURIER_LOG_LEVEL", "info")),
		AllowedOrigins: splitList(getEnv("BOOKCOURIER_ALLOWED_ORIGINS", "http://localhost:5173")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadStorageConfig loads only the storage settings. Used by auxiliary
// binaries that talk to the database but serve no HTTP traffic.
func LoadStorageConfig() (storage.Config, error) {
	cfg := loadStorageConfig()
	if cfg.PostgresURL == "" {
		return cfg, fmt.Errorf("postgres URL is required")
	}
	return cfg, nil
}

func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	if pgURL := getEnv("BOOKCOURIER_POSTGRES_URL", ""); pgURL != "" {
		cfg.PostgresURL = pgURL
	}
	if maxConns := getEnvInt("BOOKCOURIER_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("BOOKCOURIER_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.PostgresMinConns = minConns
	}
	if timeout := getEnvDuration("BOOKCOURIER_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.PostgresTimeout = timeout
	}

	if redisURL := getEnv("BOOKCOURIER_REDIS_URL", ""); redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if redisPassword := getEnv("BOOKCOURIER_REDIS_PASSWORD", ""); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}
	if redisDB := getEnvInt("BOOKCOURIER_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if poolSize := getEnvInt("BOOKCOURIER_REDIS_POOL_SIZE", 0); poolSize > 0 {
		cfg.RedisPoolSize = poolSize
	}

	if cacheEnabled := getEnv("BOOKCOURIER_CACHE_ENABLED", ""); cacheEnabled != "" {
		cfg.CacheEnabled = strings.ToLower(cacheEnabled) == "true" || cacheEnabled == "1"
	}
	if ttl := getEnvDuration("BOOKCOURIER_BOOK_CACHE_TTL", 0); ttl > 0 {
		cfg.BookCacheTTL = ttl
	}
	if ttl := getEnvDuration("BOOKCOURIER_ROLE_CACHE_TTL", 0); ttl > 0 {
		cfg.RoleCacheTTL = ttl
	}

	return cfg
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Storage.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.Storage.CacheEnabled && c.Storage.RedisURL == "" {
		return fmt.Errorf("redis URL is required when caching is enabled")
	}
	return nil
}

// getEnv returns an environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
