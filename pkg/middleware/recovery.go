package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/bookcourier/bookcourier/pkg/httputil"
	"github.com/bookcourier/bookcourier/pkg/observability"
)

// RecoveryMiddleware converts handler panics into 500 responses instead
// of tearing down the connection.
type RecoveryMiddleware struct {
	logger *observability.Logger
}

// NewRecoveryMiddleware creates a panic recovery middleware.
func NewRecoveryMiddleware(logger *observability.Logger) *RecoveryMiddleware {
	return &RecoveryMiddleware{logger: logger}
}

// Handler returns the recovery middleware handler.
func (m *RecoveryMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				m.logger.FromContext(r.Context()).
					WithField("panic", rec).
					WithField("stack", string(debug.Stack())).
					Error("panic recovered")
				httputil.WriteInternalError(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
