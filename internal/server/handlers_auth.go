// ABOUTME: Handlers for registration, login, token refresh, and password change
// ABOUTME: Failed logins are generic and constant-time to prevent user enumeration

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/lorekeep/lorekeep/internal/auth"
	"github.com/lorekeep/lorekeep/internal/store"
)

// RegisterRequest is the JSON body for POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"is_admin"`
}

// ChangePasswordRequest is the JSON body for POST /auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// handleRegister creates a new user account.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := auth.ValidateUsername(req.Username); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.logger.Error("hashing password failed", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	user := &store.User{
		Username:     req.Username,
		PasswordHash: hash,
		IsAdmin:      req.IsAdmin,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicateUser) {
			writeError(w, http.StatusBadRequest, "username already exists")
			return
		}
		s.logger.Error("creating user failed", "username", req.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	s.logger.Info("new user registered", "username", req.Username)
	writeEnvelope(w, http.StatusCreated, "user registered successfully", map[string]string{
		"username": req.Username,
	})
}

// loginCredentials reads username/password from either a JSON body or a
// form-encoded body.
func loginCredentials(r *http.Request) (username, password string, err error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", "", err
		}
		return body.Username, body.Password, nil
	}

	if err := r.ParseForm(); err != nil {
		return "", "", err
	}
	return r.FormValue("username"), r.FormValue("password"), nil
}

// handleLogin authenticates credentials and issues an access token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	username, password, err := loginCredentials(r)
	if err != nil || username == "" || password == "" {
		writeError(w, http.StatusBadRequest, "username and password required")
		return
	}

	user, err := s.store.GetUser(r.Context(), username)
	if err != nil {
		// Burn the same bcrypt work so timing doesn't reveal whether the
		// username exists
		s.hasher.DummyVerify(password)
		s.logger.Warn("login failed", "username", username)
		writeUnauthorized(w, "incorrect username or password")
		return
	}

	if !user.IsActive || !s.hasher.Verify(password, user.PasswordHash) {
		s.logger.Warn("login failed", "username", username)
		writeUnauthorized(w, "incorrect username or password")
		return
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		s.logger.Error("issuing token failed", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	if err := s.store.TouchLastLogin(r.Context(), username, time.Now().UTC()); err != nil {
		s.logger.Warn("updating last login failed", "username", username, "error", err)
	}

	s.logger.Info("user logged in", "username", username)
	writeJSON(w, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.tokens.DefaultTTL().Seconds()),
	})
}

// handleRefresh exchanges a valid token for a fresh one carrying only the
// subject claim.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	token, errMsg := auth.ExtractBearerToken(r.Header.Get("Authorization"))
	if errMsg != "" {
		writeUnauthorized(w, "could not validate credentials")
		return
	}

	fresh, err := s.tokens.Refresh(token)
	if err != nil {
		s.logger.Warn("token refresh failed", "error", err)
		writeUnauthorized(w, "could not refresh token")
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{
		AccessToken: fresh,
		TokenType:   "bearer",
		ExpiresIn:   int(s.tokens.DefaultTTL().Seconds()),
	})
}

// handleChangePassword verifies the current password before replacing it.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id, err := s.identityFromRequest(r)
	if err != nil {
		writeUnauthorized(w, "could not validate credentials")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.store.GetUser(r.Context(), id.Username)
	if err != nil {
		writeUnauthorized(w, "could not validate credentials")
		return
	}

	if !s.hasher.Verify(req.CurrentPassword, user.PasswordHash) {
		writeError(w, http.StatusBadRequest, "current password is incorrect")
		return
	}

	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		s.logger.Error("hashing password failed", "error", err)
		writeError(w, http.StatusInternalServerError, "password change failed")
		return
	}

	if err := s.store.UpdatePassword(r.Context(), id.Username, hash); err != nil {
		s.logger.Error("updating password failed", "username", id.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "password change failed")
		return
	}

	s.logger.Info("password changed", "username", id.Username)
	writeEnvelope(w, http.StatusOK, "password updated successfully", nil)
}
