package rbac

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/bookcourier/bookcourier/pkg/auth"
	"github.com/bookcourier/bookcourier/pkg/httputil"
	"github.com/bookcourier/bookcourier/pkg/observability"
)

type contextKey int

const (
	claimsKey contextKey = iota
	roleKey
)

// ClaimsFromContext returns the verified identity claims, if any.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}

// RoleFromContext returns the resolved role placed there by a role gate.
func RoleFromContext(ctx context.Context) (Role, bool) {
	role, ok := ctx.Value(roleKey).(Role)
	return role, ok
}

// Gate composes credential verification and role resolution into the
// policies the routes declare. Authentication always runs first: a request
// can only see a 403 after its credential verified (401 precedes 403).
type Gate struct {
	signer  *auth.Signer
	roles   Resolver
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewGate creates an authorization gate.
func NewGate(signer *auth.Signer, roles Resolver, logger *observability.Logger, metrics *observability.Metrics) *Gate {
	return &Gate{signer: signer, roles: roles, logger: logger, metrics: metrics}
}

// RequireAuth verifies the bearer credential and stores its claims on the
// request context. The missing-header and invalid-token cases are logged
// distinctly but both answer 401.
func (g *Gate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			g.reject(w, "missing_header")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			g.reject(w, "bad_header")
			return
		}

		claims, err := g.signer.Verify(parts[1])
		if err != nil {
			g.logger.FromContext(r.Context()).WithError(err).Warn("credential rejected")
			g.reject(w, "invalid_token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		ctx = observability.WithEmail(ctx, claims.Email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin passes only callers whose resolved role is admin. Must be
// mounted behind RequireAuth.
func (g *Gate) RequireAdmin(next http.Handler) http.Handler {
	return g.requireRole(next, func(role Role) bool { return role == RoleAdmin })
}

// RequireLibrarian passes librarians and admins. Must be mounted behind
// RequireAuth.
func (g *Gate) RequireLibrarian(next http.Handler) http.Handler {
	return g.requireRole(next, func(role Role) bool { return role.CanManageCatalog() })
}

func (g *Gate) requireRole(next http.Handler, allowed func(Role) bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			g.reject(w, "unauthenticated")
			return
		}

		role, err := g.roles.Resolve(r.Context(), claims.Email)
		if err != nil {
			g.logger.FromContext(r.Context()).WithError(err).Error("role resolution failed")
			httputil.WriteInternalError(w)
			return
		}

		if !allowed(role) {
			g.forbid(w)
			return
		}

		ctx := context.WithValue(r.Context(), roleKey, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSelfPath passes only when the email path variable equals the
// verified identity. No role lookup is involved.
func (g *Gate) RequireSelfPath(param string) func(http.Handler) http.Handler {
	return g.requireSelf(func(r *http.Request) string { return mux.Vars(r)[param] })
}

// RequireSelfQuery is RequireSelfPath for a query parameter.
func (g *Gate) RequireSelfQuery(param string) func(http.Handler) http.Handler {
	return g.requireSelf(func(r *http.Request) string { return r.URL.Query().Get(param) })
}

func (g *Gate) requireSelf(target func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				g.reject(w, "unauthenticated")
				return
			}
			if target(r) != claims.Email {
				g.forbid(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Gate) reject(w http.ResponseWriter, reason string) {
	if g.metrics != nil {
		g.metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()
	}
	httputil.WriteUnauthorized(w)
}

func (g *Gate) forbid(w http.ResponseWriter) {
	if g.metrics != nil {
		g.metrics.AuthFailuresTotal.WithLabelValues("forbidden").Inc()
	}
	httputil.WriteForbidden(w)
}
