package storage

import (
	"context"
	"errors"
	"time"

	"github.com/bookcourier/bookcourier/pkg/model"
)

// ErrNotFound is returned by lookups that match no record. Handlers map it
// to a 404; every other storage failure surfaces as a 500.
var ErrNotFound = errors.New("storage: record not found")

// UserStore persists accounts and their roles.
type UserStore interface {
	// CreateUser inserts the user unless the email is already registered.
	// It reports whether a row was actually inserted.
	CreateUser(ctx context.Context, user *model.User) (created bool, err error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	// SetUserRole updates the role of the user with the given ID and
	// returns the user's email so callers can invalidate role caches.
	SetUserRole(ctx context.Context, id, role string) (email string, err error)
}

// BookStore persists the catalog.
type BookStore interface {
	CreateBook(ctx context.Context, book *model.Book) error
	GetBook(ctx context.Context, id string) (*model.Book, error)
	ListBooks(ctx context.Context, filter model.BookFilter) ([]*model.Book, error)
	UpdateBook(ctx context.Context, id string, upd model.BookUpdate) error
	UpdateBookStatus(ctx context.Context, id string, status model.BookStatus) error
	DeleteBook(ctx context.Context, id string) error
	// DecrementBookQuantity reduces the stock count by one, not below zero.
	DecrementBookQuantity(ctx context.Context, id string) error
}

// OrderStore persists orders.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *model.Order) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ListOrdersByUser(ctx context.Context, email string) ([]*model.Order, error)
	// ListOrdersByLibrarian returns orders owned by the librarian, or every
	// order when email is empty (admin scope).
	ListOrdersByLibrarian(ctx context.Context, email string) ([]*model.Order, error)
	UpdateOrderStatus(ctx context.Context, id, status string) error
	// MarkOrderPaid flips paymentStatus to paid and resets status to
	// pending, exactly as the payment flow requires.
	MarkOrderPaid(ctx context.Context, id string) error
	// DeleteOrder removes the order only when it belongs to userEmail.
	DeleteOrder(ctx context.Context, id, userEmail string) error
}

// WishlistStore persists per-user bookmarks.
type WishlistStore interface {
	CreateWishlistItem(ctx context.Context, item *model.WishlistItem) error
	ListWishlistByUser(ctx context.Context, email string) ([]*model.WishlistItem, error)
	DeleteWishlistItem(ctx context.Context, id, userEmail string) error
}

// ReviewStore persists public book reviews.
type ReviewStore interface {
	CreateReview(ctx context.Context, review *model.Review) error
	// ListReviewsByBook returns reviews newest first.
	ListReviewsByBook(ctx context.Context, bookID string) ([]*model.Review, error)
}

// PaymentStore persists completed charges.
type PaymentStore interface {
	CreatePayment(ctx context.Context, payment *model.Payment) error
	ListPaymentsByUser(ctx context.Context, email string) ([]*model.Payment, error)
	// ListDriftingPayments returns payments whose order is not marked paid,
	// i.e. the second write of the payment sequence never landed.
	ListDriftingPayments(ctx context.Context) ([]*model.Payment, error)
}

// Store is the full persistence surface the server wires up.
type Store interface {
	UserStore
	BookStore
	OrderStore
	WishlistStore
	ReviewStore
	PaymentStore

	HealthCheck(ctx context.Context) error
	Close() error
}

// Config holds backend configuration for PostgreSQL and the Redis cache.
type Config struct {
	// PostgreSQL
	PostgresURL      string
	PostgresMaxConns int
	PostgresMinConns int
	PostgresTimeout  time.Duration
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration

	// Redis
	RedisURL      string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int

	// Cache behavior
	CacheEnabled bool
	BookCacheTTL time.Duration
	RoleCacheTTL time.Duration
}

// DefaultConfig returns sensible defaults; the postgres URL must still be
// provided by the environment.
func DefaultConfig() Config {
	return Config{
		PostgresMaxConns: 20,
		PostgresMinConns: 2,
		PostgresTimeout:  10 * time.Second,
		MaxConnLifetime:  30 * time.Minute,
		MaxConnIdleTime:  5 * time.Minute,
		RedisDB:          0,
		RedisPoolSize:    10,
		CacheEnabled:     false,
		BookCacheTTL:     5 * time.Minute,
		RoleCacheTTL:     30 * time.Second,
	}
}
