package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler serves /healthz, probing each named dependency with a
// short timeout. Any failure yields a 503 with per-check detail.
func HealthHandler(checks map[string]HealthChecker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check.HealthCheck(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
			} else {
				results[name] = "ok"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": http.StatusText(status),
			"checks": results,
		})
	})
}
