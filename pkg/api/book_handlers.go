package api

import (
	"errors"
	"net/http"

	"github.com/bookcourier/bookcourier/pkg/httputil"
	"github.com/bookcourier/bookcourier/pkg/rbac"
	"github.com/bookcourier/bookcourier/pkg/storage"
)

// listPublishedBooks is the public catalog. Status is always forced to
// published regardless of query parameters.
func (s *Server) listPublishedBooks(w http.ResponseWriter, r *http.Request) {
	filter := BookFilter{
		Status:   BookStatusPublished,
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("search"),
		Sort:     ParseBookSort(r.URL.Query().Get("sort")),
	}

	books, err := s.store.ListBooks(r.Context(), filter)
	if err != nil {
		s.internalError(w, r, "book listing failed", err)
		return
	}
	httputil.WriteSuccess(w, books)
}

// listAllBooks is the admin view: every book in every status.
func (s *Server) listAllBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.store.ListBooks(r.Context(), BookFilter{})
	if err != nil {
		s.internalError(w, r, "book listing failed", err)
		return
	}
	httputil.WriteSuccess(w, books)
}

// listLibrarianBooks lists a librarian's own inventory. Non-admin
// callers are scoped to their own email no matter what the path says.
func (s *Server) listLibrarianBooks(w http.ResponseWriter, r *http.Request) {
	email := httputil.PathVar(r, "email")
	if role, _ := rbac.RoleFromContext(r.Context()); role != rbac.RoleAdmin {
		claims, _ := rbac.ClaimsFromContext(r.Context())
		email = claims.Email
	}

	books, err := s.store.ListBooks(r.Context(), BookFilter{LibrarianEmail: email})
	if err != nil {
		s.internalError(w, r, "book listing failed", err)
		return
	}
	httputil.WriteSuccess(w, books)
}

func (s *Server) getBook(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}

	book, err := s.store.GetBook(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFound(w, "book not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "book lookup failed", err)
		return
	}
	httputil.WriteSuccess(w, book)
}

// createBook lists a new book. Ownership is taken from the verified
// identity; only admins may list on another librarian's behalf.
func (s *Server) createBook(w http.ResponseWriter, r *http.Request) {
	var book Book
	if !httputil.ParseJSONOrError(w, r, &book) {
		return
	}
	if book.Title == "" {
		httputil.WriteBadRequest(w, "title is required")
		return
	}
	if book.Status != "" && !book.Status.Valid() {
		httputil.WriteBadRequest(w, "status must be draft or published")
		return
	}

	claims, _ := rbac.ClaimsFromContext(r.Context())
	role, _ := rbac.RoleFromContext(r.Context())
	if role != rbac.RoleAdmin || book.LibrarianEmail == "" {
		book.LibrarianEmail = claims.Email
	}

	if err := s.store.CreateBook(r.Context(), &book); err != nil {
		s.internalError(w, r, "book creation failed", err)
		return
	}
	httputil.WriteCreated(w, InsertResult{InsertedID: &book.ID})
}

// updateBook edits a listing. Non-admin librarians may only edit books
// they own. Absent body fields keep their current values.
func (s *Server) updateBook(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}

	book, err := s.store.GetBook(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFound(w, "book not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "book lookup failed", err)
		return
	}

	if role, _ := rbac.RoleFromContext(r.Context()); role != rbac.RoleAdmin {
		claims, _ := rbac.ClaimsFromContext(r.Context())
		if book.LibrarianEmail != claims.Email {
			httputil.WriteForbidden(w)
			return
		}
	}

	upd := BookUpdate{
		Title:    book.Title,
		Author:   book.Author,
		Category: book.Category,
		Price:    book.Price,
		Image:    book.Image,
		Rating:   book.Rating,
		Status:   book.Status,
	}
	if !httputil.ParseJSONOrError(w, r, &upd) {
		return
	}
	if !upd.Status.Valid() {
		httputil.WriteBadRequest(w, "status must be draft or published")
		return
	}

	if err := s.store.UpdateBook(r.Context(), id, upd); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFound(w, "book not found")
			return
		}
		s.internalError(w, r, "book update failed", err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"message": "book updated"})
}

func (s *Server) deleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}

	err := s.store.DeleteBook(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFound(w, "book not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "book deletion failed", err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"message": "book deleted"})
}

type bookStatusRequest struct {
	Status BookStatus `json:"status"`
}

// updateBookStatus moves a book between draft and published.
func (s *Server) updateBookStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}

	var req bookStatusRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !req.Status.Valid() {
		httputil.WriteBadRequest(w, "status must be draft or published")
		return
	}

	err := s.store.UpdateBookStatus(r.Context(), id, req.Status)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFound(w, "book not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "book status update failed", err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"message": "status updated"})
}
