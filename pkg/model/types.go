// Package model defines the domain records shared by the API and
// storage layers. Field tags match the wire format clients already
// consume.
package model

import (
	"time"
)

// Role values are defined in pkg/rbac; users carry them as plain strings so
// the wire format stays identical to what clients already consume.

// User represents a registered account.
type User struct {
	ID        string    `json:"_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// BookStatus is the publication state of a catalog entry.
type BookStatus string

const (
	BookStatusDraft     BookStatus = "draft"
	BookStatusPublished BookStatus = "published"
)

// Valid reports whether s is a known book status.
func (s BookStatus) Valid() bool {
	return s == BookStatusDraft || s == BookStatusPublished
}

// Book is a catalog entry owned by the librarian who listed it.
type Book struct {
	ID             string     `json:"_id"`
	Title          string     `json:"title"`
	Author         string     `json:"author"`
	Category       string     `json:"category"`
	Price          float64    `json:"price"`
	Image          string     `json:"image,omitempty"`
	Rating         float64    `json:"rating"`
	Quantity       int        `json:"quantity"`
	Status         BookStatus `json:"status"`
	LibrarianEmail string     `json:"librarianEmail"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// BookUpdate carries the librarian-editable fields of a book. Ownership and
// identifiers are never updatable.
type BookUpdate struct {
	Title    string     `json:"title"`
	Author   string     `json:"author"`
	Category string     `json:"category"`
	Price    float64    `json:"price"`
	Image    string     `json:"image"`
	Rating   float64    `json:"rating"`
	Status   BookStatus `json:"status"`
}

// BookSort enumerates the supported catalog sort orders.
type BookSort string

const (
	BookSortNone      BookSort = ""
	BookSortPriceAsc  BookSort = "price-asc"
	BookSortPriceDesc BookSort = "price-desc"
)

// ParseBookSort maps a query parameter to a sort order. Unknown values fall
// back to unsorted, matching the original behavior.
func ParseBookSort(s string) BookSort {
	switch BookSort(s) {
	case BookSortPriceAsc, BookSortPriceDesc:
		return BookSort(s)
	default:
		return BookSortNone
	}
}

// BookFilter selects catalog entries. Zero-value fields are ignored. Search
// matches title or author, case-insensitively, as a substring.
type BookFilter struct {
	Category       string
	Search         string
	Status         BookStatus
	LibrarianEmail string
	Sort           BookSort
}

// PaymentStatus tracks whether an order has been paid.
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

// Order references a book a user wants delivered. LibrarianEmail is
// denormalized from the book at creation so librarian dashboards need a
// single query.
type Order struct {
	ID             string        `json:"_id"`
	UserEmail      string        `json:"userEmail"`
	BookID         string        `json:"bookId"`
	BookTitle      string        `json:"bookTitle,omitempty"`
	LibrarianEmail string        `json:"librarianEmail"`
	Status         string        `json:"status"`
	PaymentStatus  PaymentStatus `json:"paymentStatus"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// WishlistItem is a user's bookmark of a book.
type WishlistItem struct {
	ID        string    `json:"_id"`
	UserEmail string    `json:"email"`
	BookID    string    `json:"bookId"`
	BookTitle string    `json:"bookTitle,omitempty"`
	AddedAt   time.Time `json:"addedAt"`
}

// Review is public feedback attached to a book. CreatedAt is assigned by the
// server at write time.
type Review struct {
	ID            string    `json:"_id"`
	BookID        string    `json:"bookId"`
	ReviewerEmail string    `json:"reviewerEmail"`
	ReviewerName  string    `json:"reviewerName,omitempty"`
	Rating        float64   `json:"rating"`
	Text          string    `json:"text"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Payment records a completed charge against an order.
type Payment struct {
	ID          string    `json:"_id"`
	UserEmail   string    `json:"email"`
	OrderID     string    `json:"orderId"`
	BookID      string    `json:"bookId"`
	AmountCents int64     `json:"amountCents"`
	IntentID    string    `json:"intentId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
