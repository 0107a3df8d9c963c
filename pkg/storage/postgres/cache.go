package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/bookcourier/bookcourier/pkg/model"
	"github.com/bookcourier/bookcourier/pkg/observability"
	"github.com/bookcourier/bookcourier/pkg/storage"
)

// CachedStore wraps a storage.Store with a Redis cache for the book
// catalog. Only reads of single books and the published listing are
// cached; every book write invalidates the affected keys. All other
// resources pass straight through to the underlying store.
type CachedStore struct {
	storage.Store

	redis  *redis.Client
	ttl    time.Duration
	logger *observability.Logger
}

// NewCachedStore creates a book-catalog cache over next.
func NewCachedStore(next storage.Store, client *redis.Client, ttl time.Duration, logger *observability.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedStore{
		Store:  next,
		redis:  client,
		ttl:    ttl,
		logger: logger,
	}
}

func bookKey(id string) string { return "book:" + id }

// listKey covers the published catalog listing only. Filtered and
// sorted variants hit the database.
const listKey = "books:published"

func (c *CachedStore) GetBook(ctx context.Context, id string) (*model.Book, error) {
	key := bookKey(id)

	data, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var book model.Book
		if err := json.Unmarshal([]byte(data), &book); err == nil {
			return &book, nil
		}
		// Corrupt entry, drop it and fall through.
		c.redis.Del(ctx, key)
	} else if err != redis.Nil {
		c.logger.Warn("book cache read failed", "error", err, "key", key)
	}

	book, err := c.Store.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(book); err == nil {
		if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("book cache write failed", "error", err, "key", key)
		}
	}
	return book, nil
}

func (c *CachedStore) ListBooks(ctx context.Context, filter model.BookFilter) ([]*model.Book, error) {
	if !c.cacheableListing(filter) {
		return c.Store.ListBooks(ctx, filter)
	}

	data, err := c.redis.Get(ctx, listKey).Result()
	if err == nil {
		var books []*model.Book
		if err := json.Unmarshal([]byte(data), &books); err == nil {
			return books, nil
		}
		c.redis.Del(ctx, listKey)
	} else if err != redis.Nil {
		c.logger.Warn("book cache read failed", "error", err, "key", listKey)
	}

	books, err := c.Store.ListBooks(ctx, filter)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(books); err == nil {
		if err := c.redis.Set(ctx, listKey, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("book cache write failed", "error", err, "key", listKey)
		}
	}
	return books, nil
}

func (c *CachedStore) cacheableListing(filter model.BookFilter) bool {
	return filter.Status == model.BookStatusPublished &&
		filter.Category == "" && filter.Search == "" &&
		filter.LibrarianEmail == "" && filter.Sort == model.BookSortNone
}

func (c *CachedStore) CreateBook(ctx context.Context, book *model.Book) error {
	if err := c.Store.CreateBook(ctx, book); err != nil {
		return err
	}
	c.invalidate(ctx, listKey)
	return nil
}

func (c *CachedStore) UpdateBook(ctx context.Context, id string, upd model.BookUpdate) error {
	if err := c.Store.UpdateBook(ctx, id, upd); err != nil {
		return err
	}
	c.invalidate(ctx, bookKey(id), listKey)
	return nil
}

func (c *CachedStore) UpdateBookStatus(ctx context.Context, id string, status model.BookStatus) error {
	if err := c.Store.UpdateBookStatus(ctx, id, status); err != nil {
		return err
	}
	c.invalidate(ctx, bookKey(id), listKey)
	return nil
}

func (c *CachedStore) DeleteBook(ctx context.Context, id string) error {
	if err := c.Store.DeleteBook(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, bookKey(id), listKey)
	return nil
}

func (c *CachedStore) DecrementBookQuantity(ctx context.Context, id string) error {
	if err := c.Store.DecrementBookQuantity(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, bookKey(id), listKey)
	return nil
}

func (c *CachedStore) invalidate(ctx context.Context, keys ...string) {
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("book cache invalidation failed", "error", err, "keys", fmt.Sprint(keys))
	}
}

var _ storage.Store = (*CachedStore)(nil)
