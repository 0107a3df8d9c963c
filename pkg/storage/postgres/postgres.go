package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/bookcourier/bookcourier/pkg/model"
	"github.com/bookcourier/bookcourier/pkg/observability"
	"github.com/bookcourier/bookcourier/pkg/storage"
)

// Store implements storage.Store on PostgreSQL.
type Store struct {
	db      *sql.DB
	metrics *observability.Metrics
}

var _ storage.Store = (*Store)(nil)

// New creates a Store using the provided database handle. metrics may be
// nil (tests).
func New(db *sql.DB, metrics *observability.Metrics) *Store {
	return &Store{db: db, metrics: metrics}
}

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// observe records one storage operation; used with defer and a named
// error return.
func (s *Store) observe(op string, start time.Time, err *error) {
	if s.metrics != nil {
		s.metrics.ObserveStorage(op, *err, time.Since(start))
	}
}

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, user *model.User) (created bool, err error) {
	defer s.observe("create_user", time.Now(), &err)

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = "user"
	}
	user.CreatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO NOTHING
	`, user.ID, user.Email, user.Name, user.Role, user.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("create user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create user: %w", err)
	}
	return rows > 0, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user *model.User, err error) {
	defer s.observe("get_user", time.Now(), &err)

	user = &model.User{}
	err = s.db.QueryRowContext(ctx, `
		SELECT id, email, name, role, created_at
		FROM users WHERE email = $1
	`, email).Scan(&user.ID, &user.Email, &user.Name, &user.Role, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *Store) ListUsers(ctx context.Context) (users []*model.User, err error) {
	defer s.observe("list_users", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, name, role, created_at
		FROM users ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users = make([]*model.User, 0)
	for rows.Next() {
		user := &model.User{}
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &user.Role, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Store) SetUserRole(ctx context.Context, id, role string) (email string, err error) {
	defer s.observe("set_user_role", time.Now(), &err)

	err = s.db.QueryRowContext(ctx, `
		UPDATE users SET role = $2 WHERE id = $1 RETURNING email
	`, id, role).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("set user role: %w", err)
	}
	return email, nil
}

// --- BookStore --------------------------------------------------------------

const bookColumns = `id, title, author, category, price, image, rating, quantity, status, librarian_email, created_at, updated_at`

func scanBook(scanner interface{ Scan(...interface{}) error }) (*model.Book, error) {
	book := &model.Book{}
	err := scanner.Scan(
		&book.ID, &book.Title, &book.Author, &book.Category, &book.Price,
		&book.Image, &book.Rating, &book.Quantity, &book.Status,
		&book.LibrarianEmail, &book.CreatedAt, &book.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return book, nil
}

func (s *Store) CreateBook(ctx context.Context, book *model.Book) (err error) {
	defer s.observe("create_book", time.Now(), &err)

	if book.ID == "" {
		book.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	book.CreatedAt = now
	book.UpdatedAt = now
	if book.Status == "" {
		book.Status = model.BookStatusDraft
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO books (`+bookColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, book.ID, book.Title, book.Author, book.Category, book.Price,
		book.Image, book.Rating, book.Quantity, book.Status,
		book.LibrarianEmail, book.CreatedAt, book.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

func (s *Store) GetBook(ctx context.Context, id string) (book *model.Book, err error) {
	defer s.observe("get_book", time.Now(), &err)

	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id)
	book, err = scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

func (s *Store) ListBooks(ctx context.Context, filter model.BookFilter) (books []*model.Book, err error) {
	defer s.observe("list_books", time.Now(), &err)

	query := `SELECT ` + bookColumns + ` FROM books`
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Status != "" {
		conds = append(conds, "status = "+arg(filter.Status))
	}
	if filter.Category != "" {
		conds = append(conds, "category = "+arg(filter.Category))
	}
	if filter.LibrarianEmail != "" {
		conds = append(conds, "librarian_email = "+arg(filter.LibrarianEmail))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, "(title ILIKE "+p+" OR author ILIKE "+p+")")
	}

	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}

	switch filter.Sort {
	case model.BookSortPriceAsc:
		query += " ORDER BY price ASC"
	case model.BookSortPriceDesc:
		query += " ORDER BY price DESC"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	books = make([]*model.Book, 0)
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

func (s *Store) UpdateBook(ctx context.Context, id string, upd model.BookUpdate) (err error) {
	defer s.observe("update_book", time.Now(), &err)

	result, err := s.db.ExecContext(ctx, `
		UPDATE books
		SET title = $2, author = $3, category = $4, price = $5, image = $6,
		    rating = $7, status = $8, updated_at = $9
		WHERE id = $1
	`, id, upd.Title, upd.Author, upd.Category, upd.Price, upd.Image,
		upd.Rating, upd.Status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	return requireRow(result)
}

func (s *Store) UpdateBookStatus(ctx context.Context, id string, status model.BookStatus) (err error) {
	defer s.observe("update_book_status", time.Now(), &err)

	result, err := s.db.ExecContext(ctx, `
		UPDATE books SET status = $2, updated_at = $3 WHERE id = $1
	`, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update book status: %w", err)
	}
	return requireRow(result)
}

func (s *Store) DeleteBook(ctx context.Context, id string) (err error) {
	defer s.observe("delete_book", time.Now(), &err)

	result, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	return requireRow(result)
}

func (s *Store) DecrementBookQuantity(ctx context.Context, id string) (err error) {
	defer s.observe("decrement_book_quantity", time.Now(), &err)

	result, err := s.db.ExecContext(ctx, `
		UPDATE books
		SET quantity = GREATEST(quantity - 1, 0), updated_at = $2
		WHERE id = $1
	`, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("decrement book quantity: %w", err)
	}
	return requireRow(result)
}

// --- OrderStore -------------------------------------------------------------

const orderColumns = `id, user_email, book_id, book_title, librarian_email, status, payment_status, created_at`

func scanOrder(scanner interface{ Scan(...interface{}) error }) (*model.Order, error) {
	order := &model.Order{}
	err := scanner.Scan(
		&order.ID, &order.UserEmail, &order.BookID, &order.BookTitle,
		&order.LibrarianEmail, &order.Status, &order.PaymentStatus, &order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Store) CreateOrder(ctx context.Context, order *model.Order) (err error) {
	defer s.observe("create_order", time.Now(), &err)

	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.Status == "" {
		order.Status = "pending"
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = model.PaymentStatusUnpaid
	}
	order.CreatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, order.ID, order.UserEmail, order.BookID, order.BookTitle,
		order.LibrarianEmail, order.Status, order.PaymentStatus, order.CreatedAt)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (order *model.Order, err error) {
	defer s.observe("get_order", time.Now(), &err)

	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err = scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

func (s *Store) ListOrdersByUser(ctx context.Context, email string) (orders []*model.Order, err error) {
	defer s.observe("list_orders_user", time.Now(), &err)
	return s.listOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_email = $1 ORDER BY created_at DESC`, email)
}

func (s *Store) ListOrdersByLibrarian(ctx context.Context, email string) (orders []*model.Order, err error) {
	defer s.observe("list_orders_librarian", time.Now(), &err)
	if email == "" {
		return s.listOrders(ctx, `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`)
	}
	return s.listOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE librarian_email = $1 ORDER BY created_at DESC`, email)
}

func (s *Store) listOrders(ctx context.Context, query string, args ...interface{}) ([]*model.Order, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*model.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id, status string) (err error) {
	defer s.observe("update_order_status", time.Now(), &err)

	result, err := s.db.ExecContext(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return requireRow(result)
}

func (s *Store) MarkOrderPaid(ctx context.Context, id string) (err error) {
	defer s.observe("mark_order_paid", time.Now(), &err)

	result, err := s.db.ExecContext(ctx, `
		UPDATE orders SET payment_status = 'paid', status = 'pending' WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}
	return requireRow(result)
}

func (s *Store) DeleteOrder(ctx context.Context, id, userEmail string) (err error) {
	defer s.observe("delete_order", time.Now(), &err)

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM orders WHERE id = $1 AND user_email = $2
	`, id, userEmail)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return requireRow(result)
}

// --- WishlistStore ----------------------------------------------------------

func (s *Store) CreateWishlistItem(ctx context.Context, item *model.WishlistItem) (err error) {
	defer s.observe("create_wishlist_item", time.Now(), &err)

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.AddedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO wishlist (id, user_email, book_id, book_title, added_at)
		VALUES ($1, $2, $3, $4, $5)
	`, item.ID, item.UserEmail, item.BookID, item.BookTitle, item.AddedAt)
	if err != nil {
		return fmt.Errorf("create wishlist item: %w", err)
	}
	return nil
}

func (s *Store) ListWishlistByUser(ctx context.Context, email string) (items []*model.WishlistItem, err error) {
	defer s.observe("list_wishlist", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_email, book_id, book_title, added_at
		FROM wishlist WHERE user_email = $1 ORDER BY added_at DESC
	`, email)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	defer rows.Close()

	items = make([]*model.WishlistItem, 0)
	for rows.Next() {
		item := &model.WishlistItem{}
		if err := rows.Scan(&item.ID, &item.UserEmail, &item.BookID, &item.BookTitle, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("scan wishlist item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) DeleteWishlistItem(ctx context.Context, id, userEmail string) (err error) {
	defer s.observe("delete_wishlist_item", time.Now(), &err)

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM wishlist WHERE id = $1 AND user_email = $2
	`, id, userEmail)
	if err != nil {
		return fmt.Errorf("delete wishlist item: %w", err)
	}
	return requireRow(result)
}

// --- ReviewStore ------------------------------------------------------------

func (s *Store) CreateReview(ctx context.Context, review *model.Review) (err error) {
	defer s.observe("create_review", time.Now(), &err)

	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	review.CreatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reviews (id, book_id, reviewer_email, reviewer_name, rating, review_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, review.ID, review.BookID, review.ReviewerEmail, review.ReviewerName,
		review.Rating, review.Text, review.CreatedAt)
	if err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

func (s *Store) ListReviewsByBook(ctx context.Context, bookID string) (reviews []*model.Review, err error) {
	defer s.observe("list_reviews", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, book_id, reviewer_email, reviewer_name, rating, review_text, created_at
		FROM reviews WHERE book_id = $1 ORDER BY created_at DESC
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews = make([]*model.Review, 0)
	for rows.Next() {
		review := &model.Review{}
		if err := rows.Scan(&review.ID, &review.BookID, &review.ReviewerEmail,
			&review.ReviewerName, &review.Rating, &review.Text, &review.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}

// --- PaymentStore -----------------------------------------------------------

const paymentColumns = `id, user_email, order_id, book_id, amount_cents, intent_id, created_at`

func scanPayment(scanner interface{ Scan(...interface{}) error }) (*model.Payment, error) {
	payment := &model.Payment{}
	err := scanner.Scan(
		&payment.ID, &payment.UserEmail, &payment.OrderID, &payment.BookID,
		&payment.AmountCents, &payment.IntentID, &payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *Store) CreatePayment(ctx context.Context, payment *model.Payment) (err error) {
	defer s.observe("create_payment", time.Now(), &err)

	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	payment.CreatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, payment.ID, payment.UserEmail, payment.OrderID, payment.BookID,
		payment.AmountCents, payment.IntentID, payment.CreatedAt)
	if err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (s *Store) ListPaymentsByUser(ctx context.Context, email string) (payments []*model.Payment, err error) {
	defer s.observe("list_payments", time.Now(), &err)
	return s.listPayments(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE user_email = $1 ORDER BY created_at DESC
	`, email)
}

func (s *Store) ListDriftingPayments(ctx context.Context) (payments []*model.Payment, err error) {
	defer s.observe("list_drifting_payments", time.Now(), &err)
	return s.listPayments(ctx, `
		SELECT p.id, p.user_email, p.order_id, p.book_id, p.amount_cents, p.intent_id, p.created_at
		FROM payments p
		LEFT JOIN orders o ON o.id = p.order_id
		WHERE o.id IS NULL OR o.payment_status <> 'paid'
		ORDER BY p.created_at
	`)
}

func (s *Store) listPayments(ctx context.Context, query string, args ...interface{}) ([]*model.Payment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := make([]*model.Payment, 0)
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

// requireRow converts a zero-row update or delete into ErrNotFound.
func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}
