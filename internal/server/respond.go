// ABOUTME: JSON response helpers and the generic API envelope
// ABOUTME: Error bodies use a FastAPI-style {"detail": ...} shape

package server

import (
	"encoding/json"
	"net/http"
)

// APIResponse is the generic success envelope.
type APIResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
}

// TokenResponse is the login/refresh response body.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeEnvelope writes a success envelope.
func writeEnvelope(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, APIResponse{Message: message, Success: true, Data: data})
}

// writeError writes an error detail body.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeUnauthorized writes a 401 with the bearer challenge header.
func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, detail)
}
