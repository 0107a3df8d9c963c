package middleware

import "net/http"

// CORSMiddleware restricts cross-origin requests to a configured list
// of frontend origins.
type CORSMiddleware struct {
	allowedOrigins map[string]bool
	allowAll       bool
}

// NewCORSMiddleware creates a CORS middleware. An entry of "*" allows
// every origin.
func NewCORSMiddleware(allowedOrigins []string) *CORSMiddleware {
	m := &CORSMiddleware{allowedOrigins: make(map[string]bool, len(allowedOrigins))}
	for _, origin := range allowedOrigins {
		if origin == "*" {
			m.allowAll = true
		}
		m.allowedOrigins[origin] = true
	}
	return m
}

// Handler returns the CORS middleware handler.
func (m *CORSMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin != "" && (m.allowAll || m.allowedOrigins[origin]) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
