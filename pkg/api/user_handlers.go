package api

import (
	"errors"
	"net/http"

	"github.com/bookcourier/bookcourier/pkg/httputil"
	"github.com/bookcourier/bookcourier/pkg/storage"
)

// registerUser creates an account on first login. Re-registration of a
// known email is a no-op acknowledged with a null insertedId.
func (s *Server) registerUser(w http.ResponseWriter, r *http.Request) {
	var user User
	if !httputil.ParseJSONOrError(w, r, &user) {
		return
	}
	if user.Email == "" {
		httputil.WriteBadRequest(w, "email is required")
		return
	}
	user.Role = "user"

	created, err := s.store.CreateUser(r.Context(), &user)
	if err != nil {
		s.internalError(w, r, "user registration failed", err)
		return
	}
	if !created {
		httputil.WriteSuccess(w, InsertResult{InsertedID: nil, Message: "user already exists"})
		return
	}
	httputil.WriteSuccess(w, InsertResult{InsertedID: &user.ID})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.internalError(w, r, "user listing failed", err)
		return
	}
	httputil.WriteSuccess(w, users)
}

// getUserRole reports the caller's own role; unknown emails resolve to
// the default user role.
func (s *Server) getUserRole(w http.ResponseWriter, r *http.Request) {
	email := httputil.PathVar(r, "email")

	role, err := s.roles.Resolve(r.Context(), email)
	if err != nil {
		s.internalError(w, r, "role lookup failed", err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"role": string(role)})
}

func (s *Server) promoteToAdmin(w http.ResponseWriter, r *http.Request) {
	s.promote(w, r, "admin")
}

func (s *Server) promoteToLibrarian(w http.ResponseWriter, r *http.Request) {
	s.promote(w, r, "librarian")
}

func (s *Server) promote(w http.ResponseWriter, r *http.Request, role string) {
	id, ok := httputil.PathID(w, r, "id")
	if !ok {
		return
	}

	email, err := s.store.SetUserRole(r.Context(), id, role)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFound(w, "user not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "role promotion failed", err)
		return
	}

	if s.invalidateRole != nil {
		s.invalidateRole(email)
	}
	s.logger.FromContext(r.Context()).Info("role promoted", "user_id", id, "role", role)
	httputil.WriteSuccess(w, map[string]string{"message": "role updated"})
}
