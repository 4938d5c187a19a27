// ABOUTME: HTTP middleware enforcing bearer-token auth on protected path prefixes
// ABOUTME: Excluded prefixes bypass checks; verified identity goes into request context

package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// ExtractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func ExtractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// Middleware gates requests to protected path prefixes behind token
// verification. Exclusion wins over protection: a path matching both lists
// is passed through unchecked. Paths matching neither list pass through
// with no identity attached.
type Middleware struct {
	verifier  TokenVerifier
	protected []string
	excluded  []string
	logger    *slog.Logger
}

// NewMiddleware creates the auth middleware with the given path prefix sets.
func NewMiddleware(verifier TokenVerifier, protected, excluded []string, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{
		verifier:  verifier,
		protected: protected,
		excluded:  excluded,
		logger:    logger.With("component", "auth"),
	}
}

func hasPrefixAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Handler wraps next with the auth gate.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Excluded paths bypass all token checks, even if also protected
		if hasPrefixAny(path, m.excluded) {
			next.ServeHTTP(w, r)
			return
		}

		if !hasPrefixAny(path, m.protected) {
			next.ServeHTTP(w, r)
			return
		}

		token, errMsg := ExtractBearerToken(r.Header.Get("Authorization"))
		if errMsg != "" {
			m.logger.Warn("rejected request", "path", path, "reason", errMsg)
			unauthorized(w, "missing or invalid authorization header")
			return
		}

		claims, err := m.verifier.Verify(token)
		if err != nil {
			// Log which check failed, but never tell the client
			reason := "invalid"
			if errors.Is(err, ErrExpiredToken) {
				reason = "expired"
			}
			m.logger.Warn("rejected token", "path", path, "reason", reason, "error", err)
			unauthorized(w, "could not validate credentials")
			return
		}

		sub, _ := claims["sub"].(string)
		id := &Identity{Username: sub, Claims: claims}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// unauthorized writes a 401 with the bearer challenge header and a generic
// JSON detail body.
func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"detail":"` + detail + `"}`))
}
