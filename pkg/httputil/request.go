package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// maxBodyBytes caps request bodies; no endpoint accepts payloads
// anywhere near this size.
const maxBodyBytes = 1 << 20

// ParseJSON decodes the request body into dest.
func ParseJSON(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ParseJSONOrError decodes a size-limited body and writes a 400 on
// failure, including bodies over the limit.
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := ParseJSON(r, dest); err != nil {
		WriteBadRequest(w, err.Error())
		return false
	}
	return true
}

// PathVar returns a mux path variable.
func PathVar(r *http.Request, key string) string {
	return mux.Vars(r)[key]
}

// PathID extracts a path variable and validates it as a UUID. A malformed
// identifier is a 400, distinct from the 404 of a well-formed miss.
func PathID(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	id := mux.Vars(r)[key]
	if _, err := uuid.Parse(id); err != nil {
		WriteBadRequest(w, fmt.Sprintf("invalid %s format", key))
		return "", false
	}
	return id, true
}

// QueryString returns a query parameter or the default.
func QueryString(r *http.Request, key, defaultVal string) string {
	if val := r.URL.Query().Get(key); val != "" {
		return val
	}
	return defaultVal
}
