package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/bookcourier/bookcourier/pkg/httputil"
	"github.com/bookcourier/bookcourier/pkg/payments"
	"github.com/bookcourier/bookcourier/pkg/rbac"
	"github.com/bookcourier/bookcourier/pkg/storage"
)

type intentRequest struct {
	Price float64 `json:"price"`
}

type intentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

// createPaymentIntent opens a provider charge intent for the given
// dollar price and hands the client secret back to the frontend.
func (s *Server) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Price <= 0 {
		httputil.WriteBadRequest(w, "price must be positive")
		return
	}

	_, clientSecret, err := s.intents.CreateIntent(r.Context(), payments.AmountCents(req.Price))
	if err != nil {
		s.internalError(w, r, "payment intent creation failed", err)
		return
	}
	httputil.WriteSuccess(w, intentResponse{ClientSecret: clientSecret})
}

func (s *Server) listPayments(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")

	list, err := s.store.ListPaymentsByUser(r.Context(), email)
	if err != nil {
		s.internalError(w, r, "payment listing failed", err)
		return
	}
	httputil.WriteSuccess(w, list)
}

// recordPayment persists a confirmed charge and applies its side
// effects to the order and book stock.
func (s *Server) recordPayment(w http.ResponseWriter, r *http.Request) {
	var payment Payment
	if !httputil.ParseJSONOrError(w, r, &payment) {
		return
	}
	if _, err := uuid.Parse(payment.OrderID); err != nil {
		httputil.WriteBadRequest(w, "invalid orderId format")
		return
	}
	if _, err := uuid.Parse(payment.BookID); err != nil {
		httputil.WriteBadRequest(w, "invalid bookId format")
		return
	}

	claims, _ := rbac.ClaimsFromContext(r.Context())
	payment.UserEmail = claims.Email

	err := s.payments.Record(r.Context(), &payment)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFound(w, "order or book not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "payment recording failed", err)
		return
	}
	httputil.WriteCreated(w, InsertResult{InsertedID: &payment.ID})
}
