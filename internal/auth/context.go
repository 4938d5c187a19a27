// ABOUTME: Request identity for tracking the authenticated user through handlers
// ABOUTME: Provides WithIdentity/IdentityFromContext for context propagation

package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// Identity holds the authenticated user information derived from a verified
// token. It is populated by the middleware, lives for the duration of one
// request, and is never persisted.
type Identity struct {
	Username string        // the token's sub claim
	Claims   jwt.MapClaims // full verified claim set
}

// identityKey is the key type for storing Identity in context.Context.
type identityKey struct{}

// WithIdentity returns a new context with the Identity attached.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext retrieves the Identity from the context, returning nil
// if not present.
func IdentityFromContext(ctx context.Context) *Identity {
	val := ctx.Value(identityKey{})
	if val == nil {
		return nil
	}
	id, ok := val.(*Identity)
	if !ok {
		return nil
	}
	return id
}

// MustIdentityFromContext retrieves the Identity from the context, panicking
// if not present. Only for handlers that are guaranteed to sit behind the
// auth middleware.
func MustIdentityFromContext(ctx context.Context) *Identity {
	id := IdentityFromContext(ctx)
	if id == nil {
		panic("auth: Identity not found in context")
	}
	return id
}
