package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bookcourier/bookcourier/pkg/auth"
	"github.com/bookcourier/bookcourier/pkg/observability"
	"github.com/bookcourier/bookcourier/pkg/rbac"
	"github.com/bookcourier/bookcourier/pkg/storage"
)

// mockStore is an in-memory implementation of storage.Store for handler
// tests. A non-nil err makes every operation fail with it.
type mockStore struct {
	users    map[string]*User // keyed by email
	books    map[string]*Book
	orders   map[string]*Order
	wishlist map[string]*WishlistItem
	reviews  map[string]*Review
	payments map[string]*Payment

	err error
}

func newMockStore() *mockStore {
	return &mockStore{
		users:    make(map[string]*User),
		books:    make(map[string]*Book),
		orders:   make(map[string]*Order),
		wishlist: make(map[string]*WishlistItem),
		reviews:  make(map[string]*Review),
		payments: make(map[string]*Payment),
	}
}

func (m *mockStore) CreateUser(ctx context.Context, user *User) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.users[user.Email]; ok {
		return false, nil
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now()
	m.users[user.Email] = user
	return true, nil
}

func (m *mockStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	if m.err != nil {
		return nil, m.err
	}
	user, ok := m.users[email]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return user, nil
}

func (m *mockStore) ListUsers(ctx context.Context) ([]*User, error) {
	if m.err != nil {
		return nil, m.err
	}
	users := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	return users, nil
}

func (m *mockStore) SetUserRole(ctx context.Context, id, role string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	for _, u := range m.users {
		if u.ID == id {
			u.Role = role
			return u.Email, nil
		}
	}
	return "", storage.ErrNotFound
}

func (m *mockStore) CreateBook(ctx context.Context, book *Book) error {
	if m.err != nil {
		return m.err
	}
	if book.ID == "" {
		book.ID = uuid.NewString()
	}
	if book.Status == "" {
		book.Status = BookStatusDraft
	}
	m.books[book.ID] = book
	return nil
}

func (m *mockStore) GetBook(ctx context.Context, id string) (*Book, error) {
	if m.err != nil {
		return nil, m.err
	}
	book, ok := m.books[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return book, nil
}

func (m *mockStore) ListBooks(ctx context.Context, filter BookFilter) ([]*Book, error) {
	if m.err != nil {
		return nil, m.err
	}
	books := make([]*Book, 0)
	for _, b := range m.books {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.Category != "" && b.Category != filter.Category {
			continue
		}
		if filter.LibrarianEmail != "" && b.LibrarianEmail != filter.LibrarianEmail {
			continue
		}
		if filter.Search != "" && !containsFold(b.Title, filter.Search) && !containsFold(b.Author, filter.Search) {
			continue
		}
		books = append(books, b)
	}
	switch filter.Sort {
	case BookSortPriceAsc:
		sort.Slice(books, func(i, j int) bool { return books[i].Price < books[j].Price })
	case BookSortPriceDesc:
		sort.Slice(books, func(i, j int) bool { return books[i].Price > books[j].Price })
	}
	return books, nil
}

func (m *mockStore) UpdateBook(ctx context.Context, id string, upd BookUpdate) error {
	if m.err != nil {
		return m.err
	}
	book, ok := m.books[id]
	if !ok {
		return storage.ErrNotFound
	}
	book.Title = upd.Title
	book.Author = upd.Author
	book.Category = upd.Category
	book.Price = upd.Price
	book.Image = upd.Image
	book.Rating = upd.Rating
	book.Status = upd.Status
	return nil
}

func (m *mockStore) UpdateBookStatus(ctx context.Context, id string, status BookStatus) error {
	if m.err != nil {
		return m.err
	}
	book, ok := m.books[id]
	if !ok {
		return storage.ErrNotFound
	}
	book.Status = status
	return nil
}

func (m *mockStore) DeleteBook(ctx context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.books[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.books, id)
	return nil
}

func (m *mockStore) DecrementBookQuantity(ctx context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	book, ok := m.books[id]
	if !ok {
		return storage.ErrNotFound
	}
	if book.Quantity > 0 {
		book.Quantity--
	}
	return nil
}

func (m *mockStore) CreateOrder(ctx context.Context, order *Order) error {
	if m.err != nil {
		return m.err
	}
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	order.CreatedAt = time.Now()
	m.orders[order.ID] = order
	return nil
}

func (m *mockStore) GetOrder(ctx context.Context, id string) (*Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	order, ok := m.orders[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return order, nil
}

func (m *mockStore) ListOrdersByUser(ctx context.Context, email string) ([]*Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	orders := make([]*Order, 0)
	for _, o := range m.orders {
		if o.UserEmail == email {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

func (m *mockStore) ListOrdersByLibrarian(ctx context.Context, email string) ([]*Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	orders := make([]*Order, 0)
	for _, o := range m.orders {
		if email == "" || o.LibrarianEmail == email {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

func (m *mockStore) UpdateOrderStatus(ctx context.Context, id, status string) error {
	if m.err != nil {
		return m.err
	}
	order, ok := m.orders[id]
	if !ok {
		return storage.ErrNotFound
	}
	order.Status = status
	return nil
}

func (m *mockStore) MarkOrderPaid(ctx context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	order, ok := m.orders[id]
	if !ok {
		return storage.ErrNotFound
	}
	order.PaymentStatus = PaymentStatusPaid
	order.Status = "pending"
	return nil
}

func (m *mockStore) DeleteOrder(ctx context.Context, id, userEmail string) error {
	if m.err != nil {
		return m.err
	}
	order, ok := m.orders[id]
	if !ok || order.UserEmail != userEmail {
		return storage.ErrNotFound
	}
	delete(m.orders, id)
	return nil
}

func (m *mockStore) CreateWishlistItem(ctx context.Context, item *WishlistItem) error {
	if m.err != nil {
		return m.err
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.AddedAt = time.Now()
	m.wishlist[item.ID] = item
	return nil
}

func (m *mockStore) ListWishlistByUser(ctx context.Context, email string) ([]*WishlistItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	items := make([]*WishlistItem, 0)
	for _, item := range m.wishlist {
		if item.UserEmail == email {
			items = append(items, item)
		}
	}
	return items, nil
}

func (m *mockStore) DeleteWishlistItem(ctx context.Context, id, userEmail string) error {
	if m.err != nil {
		return m.err
	}
	item, ok := m.wishlist[id]
	if !ok || item.UserEmail != userEmail {
		return storage.ErrNotFound
	}
	delete(m.wishlist, id)
	return nil
}

func (m *mockStore) CreateReview(ctx context.Context, review *Review) error {
	if m.err != nil {
		return m.err
	}
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	review.CreatedAt = time.Now()
	m.reviews[review.ID] = review
	return nil
}

func (m *mockStore) ListReviewsByBook(ctx context.Context, bookID string) ([]*Review, error) {
	if m.err != nil {
		return nil, m.err
	}
	reviews := make([]*Review, 0)
	for _, review := range m.reviews {
		if review.BookID == bookID {
			reviews = append(reviews, review)
		}
	}
	sort.Slice(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
	})
	return reviews, nil
}

func (m *mockStore) CreatePayment(ctx context.Context, payment *Payment) error {
	if m.err != nil {
		return m.err
	}
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	payment.CreatedAt = time.Now()
	m.payments[payment.ID] = payment
	return nil
}

func (m *mockStore) ListPaymentsByUser(ctx context.Context, email string) ([]*Payment, error) {
	if m.err != nil {
		return nil, m.err
	}
	payments := make([]*Payment, 0)
	for _, p := range m.payments {
		if p.UserEmail == email {
			payments = append(payments, p)
		}
	}
	return payments, nil
}

func (m *mockStore) ListDriftingPayments(ctx context.Context) ([]*Payment, error) {
	if m.err != nil {
		return nil, m.err
	}
	drifting := make([]*Payment, 0)
	for _, p := range m.payments {
		order, ok := m.orders[p.OrderID]
		if !ok || order.PaymentStatus != PaymentStatusPaid {
			drifting = append(drifting, p)
		}
	}
	return drifting, nil
}

func (m *mockStore) HealthCheck(ctx context.Context) error { return m.err }
func (m *mockStore) Close() error                          { return nil }

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// fakeIntents is a canned payment provider.
type fakeIntents struct {
	lastAmount int64
	err        error
}

func (f *fakeIntents) CreateIntent(ctx context.Context, amountCents int64) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	f.lastAmount = amountCents
	return "pi_test", "pi_test_secret", nil
}

// recordingPayments routes Record calls through the store the way the
// real payment service does, without logging or metrics.
type recordingPayments struct {
	store storage.Store
}

func (p recordingPayments) Record(ctx context.Context, payment *Payment) error {
	if err := p.store.CreatePayment(ctx, payment); err != nil {
		return err
	}
	if err := p.store.MarkOrderPaid(ctx, payment.OrderID); err != nil {
		return err
	}
	return p.store.DecrementBookQuantity(ctx, payment.BookID)
}

type testEnv struct {
	server  *Server
	store   *mockStore
	signer  *auth.Signer
	intents *fakeIntents

	invalidated []string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMockStore()
	signer := auth.NewSigner("handler-test-secret")
	logger := observability.NewLogger(observability.ParseLevel("error"), io.Discard)
	resolver := rbac.NewStoreResolver(store)
	gate := rbac.NewGate(signer, resolver, logger, nil)
	intents := &fakeIntents{}

	env := &testEnv{store: store, signer: signer, intents: intents}
	env.server = NewServer(ServerConfig{
		Store:    store,
		Signer:   signer,
		Gate:     gate,
		Roles:    resolver,
		Payments: recordingPayments{store: store},
		Intents:  intents,
		Logger:   logger,
		InvalidateRole: func(email string) {
			env.invalidated = append(env.invalidated, email)
		},
	})
	return env
}

// seedUser registers an account with the given role and returns it.
func (e *testEnv) seedUser(t *testing.T, email, role string) *User {
	t.Helper()
	user := &User{ID: uuid.NewString(), Email: email, Role: role}
	e.store.users[email] = user
	return user
}

func (e *testEnv) token(t *testing.T, email string) string {
	t.Helper()
	token, err := e.signer.Issue(email, "Test User")
	require.NoError(t, err)
	return token
}

// do runs a request through the full router. A non-empty email attaches
// a valid bearer credential for it.
func (e *testEnv) do(t *testing.T, method, target, email string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if email != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(t, email))
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

var _ http.Handler = (*Server)(nil)
