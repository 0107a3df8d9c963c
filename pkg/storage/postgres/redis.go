package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/bookcourier/bookcourier/pkg/storage"
)

// ConnectRedis opens a Redis client from the storage config and verifies
// the connection.
func ConnectRedis(ctx context.Context, config storage.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if config.RedisPassword != "" {
		opts.Password = config.RedisPassword
	}
	if config.RedisDB > 0 {
		opts.DB = config.RedisDB
	}
	if config.RedisPoolSize > 0 {
		opts.PoolSize = config.RedisPoolSize
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}
