package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/bookcourier/bookcourier/pkg/observability"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs each request and feeds the HTTP metrics. It
// also assigns a request ID carried through the request context.
type LoggingMiddleware struct {
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewLoggingMiddleware creates a request logging middleware.
func NewLoggingMiddleware(logger *observability.Logger, metrics *observability.Metrics) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger, metrics: metrics}
}

// Handler returns the logging middleware handler.
func (m *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()

		ctx := observability.WithRequestID(r.Context(), requestID)
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r.WithContext(ctx))

		elapsed := time.Since(start)
		path := routePattern(r)

		if m.metrics != nil {
			m.metrics.ObserveRequest(r.Method, path, recorder.status, elapsed)
		}
		m.logger.FromContext(ctx).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}

// routePattern returns the mux route template so metrics cardinality
// stays bounded, falling back to the raw path for unmatched requests.
func routePattern(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}
