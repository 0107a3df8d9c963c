package api

import (
	"github.com/bookcourier/bookcourier/pkg/model"
)

// The domain records live in pkg/model so the storage layer can share
// them without importing this package. Handlers keep the short names.
type (
	User         = model.User
	Book         = model.Book
	BookStatus   = model.BookStatus
	BookUpdate   = model.BookUpdate
	BookSort     = model.BookSort
	BookFilter   = model.BookFilter
	Order        = model.Order
	WishlistItem = model.WishlistItem
	Review       = model.Review
	Payment      = model.Payment
)

const (
	BookStatusDraft     = model.BookStatusDraft
	BookStatusPublished = model.BookStatusPublished

	BookSortNone      = model.BookSortNone
	BookSortPriceAsc  = model.BookSortPriceAsc
	BookSortPriceDesc = model.BookSortPriceDesc

	PaymentStatusUnpaid = model.PaymentStatusUnpaid
	PaymentStatusPaid   = model.PaymentStatusPaid
)

// ParseBookSort maps a query parameter to a sort order. Unknown values fall
// back to unsorted, matching the original behavior.
func ParseBookSort(s string) BookSort {
	return model.ParseBookSort(s)
}

// InsertResult mirrors the creation acknowledgement the original API
// returned. InsertedID is null when an idempotent create matched an
// existing record.
type InsertResult struct {
	InsertedID *string `json:"insertedId"`
	Message    string  `json:"message,omitempty"`
}
