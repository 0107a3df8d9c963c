package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schema holds the idempotent DDL the server applies at startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'user',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		price DOUBLE PRECISION NOT NULL DEFAULT 0,
		image TEXT NOT NULL DEFAULT '',
		rating DOUBLE PRECISION NOT NULL DEFAULT 0,
		quantity INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'draft',
		librarian_email TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_books_status ON books (status)`,
	`CREATE INDEX IF NOT EXISTS idx_books_category ON books (category)`,
	`CREATE INDEX IF NOT EXISTS idx_books_librarian ON books (librarian_email)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		user_email TEXT NOT NULL,
		book_id UUID NOT NULL,
		book_title TEXT NOT NULL DEFAULT '',
		librarian_email TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		payment_status TEXT NOT NULL DEFAULT 'unpaid',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders (user_email)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_librarian ON orders (librarian_email)`,
	`CREATE TABLE IF NOT EXISTS wishlist (
		id UUID PRIMARY KEY,
		user_email TEXT NOT NULL,
		book_id UUID NOT NULL,
		book_title TEXT NOT NULL DEFAULT '',
		added_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_wishlist_user ON wishlist (user_email)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id UUID PRIMARY KEY,
		book_id UUID NOT NULL,
		reviewer_email TEXT NOT NULL,
		reviewer_name TEXT NOT NULL DEFAULT '',
		rating DOUBLE PRECISION NOT NULL DEFAULT 0,
		review_text TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reviews_book ON reviews (book_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id UUID PRIMARY KEY,
		user_email TEXT NOT NULL,
		order_id UUID NOT NULL,
		book_id UUID NOT NULL,
		amount_cents BIGINT NOT NULL,
		intent_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_user ON payments (user_email)`,
}

// Migrate applies the schema. Every statement is idempotent so it is safe
// to run on every startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
