package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookcourier/bookcourier/pkg/model"
	"github.com/bookcourier/bookcourier/pkg/storage"
)

// countingBooks fakes the book side of the store and counts reads.
type countingBooks struct {
	storage.Store

	books    map[string]*model.Book
	getCalls int
	lists    int
}

func newCountingBooks() *countingBooks {
	return &countingBooks{books: make(map[string]*model.Book)}
}

func (c *countingBooks) GetBook(ctx context.Context, id string) (*model.Book, error) {
	c.getCalls++
	book, ok := c.books[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return book, nil
}

func (c *countingBooks) ListBooks(ctx context.Context, filter model.BookFilter) ([]*model.Book, error) {
	c.lists++
	books := make([]*model.Book, 0)
	for _, b := range c.books {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		books = append(books, b)
	}
	return books, nil
}

func (c *countingBooks) UpdateBookStatus(ctx context.Context, id string, status model.BookStatus) error {
	book, ok := c.books[id]
	if !ok {
		return storage.ErrNotFound
	}
	book.Status = status
	return nil
}

func (c *countingBooks) DeleteBook(ctx context.Context, id string) error {
	delete(c.books, id)
	return nil
}

func newTestCache(t *testing.T) (*CachedStore, *countingBooks, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	inner := newCountingBooks()
	logger := observabilityLoggerForTests()
	return NewCachedStore(inner, client, time.Minute, logger), inner, mr
}

func TestCachedGetBook(t *testing.T) {
	cache, inner, _ := newTestCache(t)
	inner.books["b1"] = &model.Book{ID: "b1", Title: "Dune", Status: model.BookStatusPublished}
	ctx := context.Background()

	book, err := cache.GetBook(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, 1, inner.getCalls)

	// Second read is a cache hit.
	book, err = cache.GetBook(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, 1, inner.getCalls)
}

func TestCachedGetBookMissPassesThrough(t *testing.T) {
	cache, _, _ := newTestCache(t)

	_, err := cache.GetBook(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPublishedListingCached(t *testing.T) {
	cache, inner, _ := newTestCache(t)
	inner.books["b1"] = &model.Book{ID: "b1", Status: model.BookStatusPublished}
	ctx := context.Background()
	publishedOnly := model.BookFilter{Status: model.BookStatusPublished}

	_, err := cache.ListBooks(ctx, publishedOnly)
	require.NoError(t, err)
	_, err = cache.ListBooks(ctx, publishedOnly)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.lists)

	// Filtered listings bypass the cache entirely.
	_, err = cache.ListBooks(ctx, model.BookFilter{Status: model.BookStatusPublished, Category: "scifi"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.lists)
}

func TestWriteInvalidatesCache(t *testing.T) {
	cache, inner, _ := newTestCache(t)
	inner.books["b1"] = &model.Book{ID: "b1", Status: model.BookStatusPublished}
	ctx := context.Background()

	_, err := cache.GetBook(ctx, "b1")
	require.NoError(t, err)
	_, err = cache.ListBooks(ctx, model.BookFilter{Status: model.BookStatusPublished})
	require.NoError(t, err)

	require.NoError(t, cache.UpdateBookStatus(ctx, "b1", model.BookStatusDraft))

	// Both the item and the listing reflect the write immediately.
	book, err := cache.GetBook(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, model.BookStatusDraft, book.Status)
	assert.Equal(t, 2, inner.getCalls)

	books, err := cache.ListBooks(ctx, model.BookFilter{Status: model.BookStatusPublished})
	require.NoError(t, err)
	assert.Empty(t, books)
	assert.Equal(t, 2, inner.lists)
}

func TestCacheDegradesWhenRedisDown(t *testing.T) {
	cache, inner, mr := newTestCache(t)
	inner.books["b1"] = &model.Book{ID: "b1", Title: "Dune"}
	mr.Close()

	book, err := cache.GetBook(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "Dune", book.Title)
}
