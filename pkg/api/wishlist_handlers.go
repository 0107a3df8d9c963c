package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/bookcourier/bookcourier/pkg/httputil"
	"github.com/bookcourier/bookcourier/pkg/rbac"
	"github.com/bookcourier/bookcourier/pkg/storage"
)

func (s *Server) listWishlist(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")

	items, err := s.store.ListWishlistByUser(r.Context(), email)
	if err != nil {
		s.internalError(w, r, "wishlist listing failed", err)
		return
	}
	httputil.WriteSuccess(w, items)
}

// addToWishlist bookmarks a book for the caller.
func (s *Server) addToWishlist(w http.ResponseWriter, r *http.Request) {
	var item WishlistItem
	if !httputil.ParseJSONOrError(w, r, &item) {
		return
	}
	if _, err := uuid.Parse(item.BookID); err != nil {
		httputil.WriteBadRequest(w, "invalid bookId format")
		return
	}

	claims, _ := rbac.ClaimsFromContext(r.Context())
	item.UserEmail = claims.Email

	if err := s.store.CreateWishlistItem(r.Context(), &item); err != nil {
		s.internalError(w, r, "wishlist insert failed", err)
		return
	}
	httputil.WriteCreated(w, InsertResult{InsertedID: &item.ID})
}

func (s *Server) removeFromWishlist(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}

	claims, _ := rbac.ClaimsFromContext(r.Context())
	err := s.store.DeleteWishlistItem(r.Context(), id, claims.Email)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFound(w, "wishlist item not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "wishlist delete failed", err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"message": "wishlist item removed"})
}
