package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/bookcourier/bookcourier/pkg/httputil"
	"github.com/bookcourier/bookcourier/pkg/rbac"
)

// listReviews returns a book's reviews, newest first. Public.
func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	bookID, ok := httputil.PathID(w, r, "bookId")
	if !ok {
		return
	}

	reviews, err := s.store.ListReviewsByBook(r.Context(), bookID)
	if err != nil {
		s.internalError(w, r, "review listing failed", err)
		return
	}
	httputil.WriteSuccess(w, reviews)
}

// createReview attaches feedback to a book. The reviewer identity and
// timestamp come from the server, never from the body.
func (s *Server) createReview(w http.ResponseWriter, r *http.Request) {
	var review Review
	if !httputil.ParseJSONOrError(w, r, &review) {
		return
	}
	if _, err := uuid.Parse(review.BookID); err != nil {
		httputil.WriteBadRequest(w, "invalid bookId format")
		return
	}

	claims, _ := rbac.ClaimsFromContext(r.Context())
	review.ReviewerEmail = claims.Email
	review.ReviewerName = claims.Name

	if err := s.store.CreateReview(r.Context(), &review); err != nil {
		s.internalError(w, r, "review insert failed", err)
		return
	}
	httputil.WriteCreated(w, InsertResult{InsertedID: &review.ID})
}
