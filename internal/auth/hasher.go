// ABOUTME: Password hashing and verification using bcrypt
// ABOUTME: Cost factor is tunable via config; verification is constant-time

package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the minimum accepted password length. Handlers must
// validate this before hashing.
const MinPasswordLength = 8

// ErrPasswordTooShort is returned by ValidatePassword for passwords below
// the minimum length.
var ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters long", MinPasswordLength)

// dummyHash is a bcrypt hash of a throwaway value, compared against when the
// user record doesn't exist so login timing doesn't reveal valid usernames.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Hasher wraps bcrypt with a configurable cost factor.
type Hasher struct {
	cost int
}

// NewHasher creates a hasher with the given bcrypt cost. Costs outside the
// valid bcrypt range fall back to the library default.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash produces a salted one-way hash of the password.
func (h *Hasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether candidate matches the stored hash. A wrong password
// or a malformed hash both return false; neither is an error condition.
func (h *Hasher) Verify(candidate, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(candidate)) == nil
}

// DummyVerify burns the same bcrypt work as a real comparison. Call it on
// the unknown-username login path to keep response timing uniform.
func (h *Hasher) DummyVerify(candidate string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(candidate))
}

// ValidatePassword checks the minimum length rule.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// ValidateUsername checks the 3-50 character username rule.
func ValidateUsername(username string) error {
	if len(username) < 3 || len(username) > 50 {
		return errors.New("username must be 3-50 characters")
	}
	return nil
}
