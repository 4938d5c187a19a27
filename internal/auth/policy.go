// ABOUTME: Admin authorization policy consulted by privileged handlers
// ABOUTME: Fails closed when the user directory is unavailable

package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/lorekeep/lorekeep/internal/store"
)

// DefaultSuperuser is the username granted admin rights unconditionally.
const DefaultSuperuser = "admin"

// UserDirectory is the narrow lookup surface the policy needs.
type UserDirectory interface {
	GetUser(ctx context.Context, username string) (*store.User, error)
}

// Policy decides admin-vs-regular authorization for an identity. The
// decision is recomputed on every request and never cached.
type Policy struct {
	directory UserDirectory
	superuser string
	logger    *slog.Logger
}

// NewPolicy creates an access policy. An empty superuser falls back to
// DefaultSuperuser.
func NewPolicy(directory UserDirectory, superuser string, logger *slog.Logger) *Policy {
	if superuser == "" {
		superuser = DefaultSuperuser
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{
		directory: directory,
		superuser: superuser,
		logger:    logger.With("component", "policy"),
	}
}

// IsAdmin reports whether the identity may perform privileged operations:
// the fixed superuser name, or a directory record with the admin flag set.
// Any directory failure means not admin; uncertainty never grants access.
func (p *Policy) IsAdmin(ctx context.Context, id *Identity) bool {
	if id == nil {
		return false
	}
	if id.Username == p.superuser {
		return true
	}

	user, err := p.directory.GetUser(ctx, id.Username)
	if err != nil {
		p.logger.Warn("directory lookup failed, denying admin", "username", id.Username, "error", err)
		return false
	}
	return user.IsAdmin
}

// RequireAdmin wraps next with an admin check. Must run behind the auth
// middleware so an identity is present.
func (p *Policy) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFromContext(r.Context())
		if id == nil {
			unauthorized(w, "not authenticated")
			return
		}
		if !p.IsAdmin(r.Context(), id) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"detail":"not enough permissions, admin access required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
