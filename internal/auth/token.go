// ABOUTME: JWT token issuance, verification, and refresh for API sessions
// ABOUTME: Uses HS256 signing with a secret and default TTL fixed at startup

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token expired")
	ErrMissingClaim  = errors.New("missing required claim")
	ErrSigningFailed = errors.New("token signing failed")
	ErrRefreshFailed = errors.New("token refresh failed")
)

// TokenVerifier defines the verification surface the middleware depends on.
type TokenVerifier interface {
	Verify(tokenString string) (jwt.MapClaims, error)
}

// TokenService issues, verifies, and refreshes HS256-signed JWTs.
// The secret and default TTL are immutable after construction.
type TokenService struct {
	secret     []byte
	defaultTTL time.Duration
}

// NewTokenService creates a token service with the given secret and default
// token lifetime. An empty secret is a configuration error and fatal at
// startup: the process must never serve traffic without a real secret.
func NewTokenService(secret []byte, defaultTTL time.Duration) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: empty signing secret", ErrSigningFailed)
	}
	if defaultTTL <= 0 {
		defaultTTL = 30 * time.Minute
	}
	return &TokenService{secret: secret, defaultTTL: defaultTTL}, nil
}

// DefaultTTL returns the configured default token lifetime.
func (s *TokenService) DefaultTTL() time.Duration {
	return s.defaultTTL
}

// Issue creates a signed token for the given subject. If ttl is given it
// overrides the default lifetime, including zero and negative values, which
// produce an already-expired token.
func (s *TokenService) Issue(subject string, ttl ...time.Duration) (string, error) {
	expiresIn := s.defaultTTL
	if len(ttl) > 0 {
		expiresIn = ttl[0]
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(expiresIn).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}
	return signed, nil
}

// Verify validates the token signature and expiry and returns the full claim
// set unmodified. Returns ErrExpiredToken when the token is past its exp
// claim and ErrInvalidToken for every other failure, including a missing
// sub or exp.
func (s *TokenService) Verify(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method is HS256
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithExpirationRequired())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("%w: sub (%v)", ErrInvalidToken, ErrMissingClaim)
	}

	return claims, nil
}

// Refresh verifies the given token and issues a fresh one carrying only the
// subject claim. Everything else is deliberately dropped: authorization data
// like is_admin is recomputed from the user directory on every request, so a
// refreshed token must not carry stale copies of it.
func (s *TokenService) Refresh(tokenString string) (string, error) {
	claims, err := s.Verify(tokenString)
	if err != nil {
		return "", err
	}

	sub, _ := claims["sub"].(string)
	fresh, err := s.Issue(sub)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	return fresh, nil
}

// DecodeUnverified decodes a token's claims without checking the signature.
// Diagnostics only: callers must never use the result to establish identity.
func DecodeUnverified(tokenString string) jwt.MapClaims {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return jwt.MapClaims{}
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return jwt.MapClaims{}
	}
	return claims
}
