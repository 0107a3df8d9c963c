package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/bookcourier/bookcourier/pkg/httputil"
	"github.com/bookcourier/bookcourier/pkg/rbac"
	"github.com/bookcourier/bookcourier/pkg/storage"
)

func (s *Server) listUserOrders(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")

	orders, err := s.store.ListOrdersByUser(r.Context(), email)
	if err != nil {
		s.internalError(w, r, "order listing failed", err)
		return
	}
	httputil.WriteSuccess(w, orders)
}

// listLibrarianOrders lists orders for a librarian's books. Non-admin
// callers see only their own; admins see whichever email the path names.
func (s *Server) listLibrarianOrders(w http.ResponseWriter, r *http.Request) {
	email := httputil.PathVar(r, "email")
	if role, _ := rbac.RoleFromContext(r.Context()); role != rbac.RoleAdmin {
		claims, _ := rbac.ClaimsFromContext(r.Context())
		email = claims.Email
	}

	orders, err := s.store.ListOrdersByLibrarian(r.Context(), email)
	if err != nil {
		s.internalError(w, r, "order listing failed", err)
		return
	}
	httputil.WriteSuccess(w, orders)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}

	order, err := s.store.GetOrder(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFound(w, "order not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "order lookup failed", err)
		return
	}
	httputil.WriteSuccess(w, order)
}

type createOrderRequest struct {
	BookID string `json:"bookId"`
}

// createOrder places an order for the caller. The book's title and
// owning librarian are denormalized onto the order at creation.
func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if _, err := uuid.Parse(req.BookID); err != nil {
		httputil.WriteBadRequest(w, "invalid bookId format")
		return
	}

	book, err := s.store.GetBook(r.Context(), req.BookID)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFound(w, "book not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "book lookup failed", err)
		return
	}

	claims, _ := rbac.ClaimsFromContext(r.Context())
	order := &Order{
		UserEmail:      claims.Email,
		BookID:         book.ID,
		BookTitle:      book.Title,
		LibrarianEmail: book.LibrarianEmail,
		Status:         "pending",
		PaymentStatus:  PaymentStatusUnpaid,
	}

	if err := s.store.CreateOrder(r.Context(), order); err != nil {
		s.internalError(w, r, "order creation failed", err)
		return
	}
	if s.metrics != nil {
		s.metrics.OrdersCreatedTotal.Inc()
	}
	httputil.WriteCreated(w, order)
}

// deleteOrder cancels one of the caller's own orders. An order owned by
// someone else is indistinguishable from a missing one.
func (s *Server) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}

	claims, _ := rbac.ClaimsFromContext(r.Context())
	err := s.store.DeleteOrder(r.Context(), id, claims.Email)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFound(w, "order not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "order deletion failed", err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"message": "order deleted"})
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

// updateOrderStatus sets a free-form fulfilment status. Payment status
// is not reachable from here; only the payment flow moves it.
func (s *Server) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}

	var req orderStatusRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Status == "" {
		httputil.WriteBadRequest(w, "status is required")
		return
	}

	err := s.store.UpdateOrderStatus(r.Context(), id, req.Status)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFound(w, "order not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "order status update failed", err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"message": "status updated"})
}
