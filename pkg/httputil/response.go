package httputil

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes data as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// WriteErrorMessage writes a JSON error body with a custom message.
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"message": message})
}

// WriteSuccess writes a 200 response with JSON data.
func WriteSuccess(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, data)
}

// WriteCreated writes a 201 response with JSON data.
func WriteCreated(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusCreated, data)
}

// WriteBadRequest writes a 400 with the given message.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteUnauthorized writes the 401 body the original API used.
func WriteUnauthorized(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusUnauthorized, "unauthorized access")
}

// WriteForbidden writes the 403 body the original API used.
func WriteForbidden(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusForbidden, "forbidden access")
}

// WriteNotFound writes a 404 with the given message.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusNotFound, message)
}

// WriteInternalError writes a generic 500. The underlying error is logged
// by the caller, never sent to the client.
func WriteInternalError(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
}
