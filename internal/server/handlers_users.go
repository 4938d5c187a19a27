// ABOUTME: User profile and admin user-management handlers
// ABOUTME: Admin-only operations consult the access policy on every request

package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/lorekeep/lorekeep/internal/auth"
	"github.com/lorekeep/lorekeep/internal/store"
)

// UserListResponse is the JSON response for GET /users/.
type UserListResponse struct {
	Users []store.UserView `json:"users"`
	Total int              `json:"total"`
}

// handleUsers dispatches /users/ routes. The auth gate has already verified
// the token, so an identity is always present.
func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	id := auth.MustIdentityFromContext(r.Context())

	rest := strings.TrimPrefix(r.URL.Path, "/users/")
	switch {
	case rest == "":
		s.handleListUsers(w, r, id)
	case rest == "me":
		switch r.Method {
		case http.MethodGet:
			s.handleGetMe(w, r, id)
		case http.MethodDelete:
			s.handleDeleteMe(w, r, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case !strings.Contains(rest, "/"):
		switch r.Method {
		case http.MethodGet:
			s.handleGetUser(w, r, id, rest)
		case http.MethodDelete:
			s.handleDeleteUser(w, r, id, rest)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// requireAdmin enforces the access policy and writes the 403 itself.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request, id *auth.Identity) bool {
	if !s.policy.IsAdmin(r.Context(), id) {
		writeError(w, http.StatusForbidden, "not enough permissions, admin access required")
		return false
	}
	return true
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request, id *auth.Identity) {
	user, err := s.store.GetUser(r.Context(), id.Username)
	if err != nil {
		// A valid token for a deleted user is still unauthorized
		writeUnauthorized(w, "could not validate credentials")
		return
	}
	writeJSON(w, http.StatusOK, user.View())
}

func (s *Server) handleDeleteMe(w http.ResponseWriter, r *http.Request, id *auth.Identity) {
	if err := s.store.DeleteUser(r.Context(), id.Username); err != nil {
		s.logger.Error("deleting account failed", "username", id.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete user account")
		return
	}
	s.logger.Info("user account deleted", "username", id.Username)
	writeEnvelope(w, http.StatusOK, "user account deleted successfully", nil)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request, id *auth.Identity) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.requireAdmin(w, r, id) {
		return
	}

	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.logger.Error("listing users failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get users list")
		return
	}

	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 100)

	views := make([]store.UserView, 0, len(users))
	for _, u := range users {
		views = append(views, u.View())
	}

	total := len(views)
	if skip > total {
		skip = total
	}
	end := skip + limit
	if end > total {
		end = total
	}

	writeJSON(w, http.StatusOK, UserListResponse{
		Users: views[skip:end],
		Total: total,
	})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request, id *auth.Identity, username string) {
	if !s.requireAdmin(w, r, id) {
		return
	}

	user, err := s.store.GetUser(r.Context(), username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		s.logger.Error("getting user failed", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	writeJSON(w, http.StatusOK, user.View())
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request, id *auth.Identity, username string) {
	if !s.requireAdmin(w, r, id) {
		return
	}

	if username == id.Username {
		writeError(w, http.StatusBadRequest, "cannot delete your own account via this endpoint, use /users/me instead")
		return
	}

	if err := s.store.DeleteUser(r.Context(), username); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		s.logger.Error("deleting user failed", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	s.logger.Info("user deleted by admin", "username", username, "admin", id.Username)
	writeEnvelope(w, http.StatusOK, "user deleted successfully", map[string]string{
		"username": username,
	})
}

// queryInt reads a non-negative integer query parameter with a default.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
