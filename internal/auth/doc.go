// Package auth provides authentication and authorization for lorekeep.
//
// # Components
//
// The package has four pieces, constructed once at startup and passed to the
// HTTP server by reference:
//
//   - Hasher: bcrypt password hashing and verification with tunable cost
//   - TokenService: HS256 JWT issue/verify/refresh with a fixed secret and TTL
//   - Middleware: request gate enforcing bearer tokens on protected prefixes
//   - Policy: admin-vs-regular authorization decisions
//
// # Token Lifecycle
//
// Tokens are issued at login and refresh, verified on every protected
// request, and expire by wall clock. There is no server-side revocation:
// expiry is the only lifecycle bound.
//
//	svc, err := auth.NewTokenService(secret, 30*time.Minute)
//	token, err := svc.Issue("alice")
//	claims, err := svc.Verify(token)
//
// Verification failures are distinguished internally (ErrInvalidToken vs
// ErrExpiredToken) but both surface to clients as a generic 401 with a
// WWW-Authenticate: Bearer challenge.
//
// # Request Gating
//
// The middleware checks two path-prefix sets, excluded first:
//
//   - excluded prefix: pass through, no checks
//   - protected prefix: require a valid bearer token, attach Identity
//   - neither: pass through, no identity
//
// Handlers read the identity back with IdentityFromContext.
//
// # Authorization
//
// Policy.IsAdmin is true for the configured superuser name or a directory
// record with the admin flag. It is recomputed per request and fails closed
// when the directory is unreachable.
package auth
