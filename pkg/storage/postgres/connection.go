// Package postgres implements the storage interfaces on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/bookcourier/bookcourier/pkg/storage"
)

// Connect opens, configures, and pings a PostgreSQL connection pool. The
// handle is owned by the returned Store; callers release it via
// Store.Close, never through ambient globals.
func Connect(ctx context.Context, cfg storage.Config) (*sql.DB, error) {
	if cfg.PostgresURL == "" {
		return nil, fmt.Errorf("postgres URL is required")
	}

	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.PostgresMaxConns)
	db.SetMaxIdleConns(cfg.PostgresMinConns)
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PostgresTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}
