package rbac

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookcourier/bookcourier/pkg/auth"
)

type staticResolver struct {
	roles map[string]Role
	err   error
	calls int
}

func (s *staticResolver) Resolve(ctx context.Context, email string) (Role, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if role, ok := s.roles[email]; ok {
		return role, nil
	}
	return RoleUser, nil
}

func newTestGate(t *testing.T, resolver Resolver) (*Gate, *auth.Signer) {
	t.Helper()
	signer := auth.NewSigner("gate-test-secret")
	return NewGate(signer, resolver, testLogger(), nil), signer
}

func bearerFor(t *testing.T, signer *auth.Signer, email string) string {
	t.Helper()
	token, err := signer.Issue(email, "")
	require.NoError(t, err)
	return "Bearer " + token
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth(t *testing.T) {
	resolver := &staticResolver{}
	gate, signer := newTestGate(t, resolver)
	handler := gate.RequireAuth(okHandler())

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/users", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "unauthorized access")
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/users", nil)
		req.Header.Set("Authorization", "Basic abc123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/users", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token passes claims", func(t *testing.T) {
		var seen string
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			require.True(t, ok)
			seen = claims.Email
		})
		req := httptest.NewRequest("GET", "/users", nil)
		req.Header.Set("Authorization", bearerFor(t, signer, "alice@example.com"))
		rec := httptest.NewRecorder()
		gate.RequireAuth(inner).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alice@example.com", seen)
	})
}

func TestRequireAdmin(t *testing.T) {
	resolver := &staticResolver{roles: map[string]Role{
		"admin@example.com": RoleAdmin,
		"lib@example.com":   RoleLibrarian,
	}}
	gate, signer := newTestGate(t, resolver)
	handler := gate.RequireAuth(gate.RequireAdmin(okHandler()))

	cases := []struct {
		email string
		want  int
	}{
		{"admin@example.com", http.StatusOK},
		{"lib@example.com", http.StatusForbidden},
		{"user@example.com", http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", "/users", nil)
		req.Header.Set("Authorization", bearerFor(t, signer, tc.email))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code, tc.email)
	}
}

func TestRequireLibrarianAdmitsAdmin(t *testing.T) {
	resolver := &staticResolver{roles: map[string]Role{
		"admin@example.com": RoleAdmin,
		"lib@example.com":   RoleLibrarian,
	}}
	gate, signer := newTestGate(t, resolver)
	handler := gate.RequireAuth(gate.RequireLibrarian(okHandler()))

	for _, email := range []string{"admin@example.com", "lib@example.com"} {
		req := httptest.NewRequest("POST", "/books", nil)
		req.Header.Set("Authorization", bearerFor(t, signer, email))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, email)
	}

	req := httptest.NewRequest("POST", "/books", nil)
	req.Header.Set("Authorization", bearerFor(t, signer, "user@example.com"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// An unauthenticated request must get a 401 and must never trigger a
// role lookup, even on an admin route.
func TestUnauthenticatedNeverResolvesRole(t *testing.T) {
	resolver := &staticResolver{}
	gate, _ := newTestGate(t, resolver)
	handler := gate.RequireAuth(gate.RequireAdmin(okHandler()))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/users", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, resolver.calls)
}

func TestRoleResolutionFaultIs500(t *testing.T) {
	resolver := &staticResolver{err: errors.New("db down")}
	gate, signer := newTestGate(t, resolver)
	handler := gate.RequireAuth(gate.RequireAdmin(okHandler()))

	req := httptest.NewRequest("GET", "/users", nil)
	req.Header.Set("Authorization", bearerFor(t, signer, "alice@example.com"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequireSelfQuery(t *testing.T) {
	resolver := &staticResolver{}
	gate, signer := newTestGate(t, resolver)
	handler := gate.RequireAuth(gate.RequireSelfQuery("email")(okHandler()))

	t.Run("own email passes", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/orders?email=alice@example.com", nil)
		req.Header.Set("Authorization", bearerFor(t, signer, "alice@example.com"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("someone else's email is forbidden", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/orders?email=bob@example.com", nil)
		req.Header.Set("Authorization", bearerFor(t, signer, "alice@example.com"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	// Identity comparison never consults roles, so even an admin cannot
	// read another user's listing through a self-scoped route.
	t.Run("no role lookup", func(t *testing.T) {
		assert.Equal(t, 0, resolver.calls)
	})
}

func TestRequireSelfPath(t *testing.T) {
	resolver := &staticResolver{}
	gate, signer := newTestGate(t, resolver)

	router := mux.NewRouter()
	router.Handle("/users/role/{email}", gate.RequireAuth(gate.RequireSelfPath("email")(okHandler())))

	req := httptest.NewRequest("GET", "/users/role/alice@example.com", nil)
	req.Header.Set("Authorization", bearerFor(t, signer, "alice@example.com"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest("GET", "/users/role/bob@example.com", nil)
	req.Header.Set("Authorization", bearerFor(t, signer, "alice@example.com"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
