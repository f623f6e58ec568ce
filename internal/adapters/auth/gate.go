// Package auth verifies the shared password that unlocks adding staff.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength applies to passwords hashed with HashPassword.
const MinPasswordLength = 8

var (
	// ErrGateDisabled means no password hash is configured, so adding staff is off.
	ErrGateDisabled = errors.New("add-staff password is not configured")
	// ErrWrongPassword means the supplied password does not match the configured hash.
	ErrWrongPassword = errors.New("incorrect password")
	// ErrPasswordTooShort is returned by HashPassword.
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
)

// BcryptGate checks passwords against one bcrypt hash.
type BcryptGate struct {
	hash []byte
}

// NewBcryptGate creates a gate for hash. An empty hash disables the gate.
// PRE: hash is "" or a bcrypt hash
// POST: Returns an error if hash is set but not a bcrypt hash
func NewBcryptGate(hash string) (*BcryptGate, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return &BcryptGate{}, nil
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("invalid add-staff password hash: %w", err)
	}
	return &BcryptGate{hash: []byte(hash)}, nil
}

// Enabled reports whether a password is configured.
func (g *BcryptGate) Enabled() bool {
	return len(g.hash) > 0
}

// Verify checks password against the configured hash.
// PRE: none
// POST: nil only for a matching password on an enabled gate
func (g *BcryptGate) Verify(password string) error {
	if !g.Enabled() {
		return ErrGateDisabled
	}
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(password)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// HashPassword returns a bcrypt hash suitable for the add_staff.password_hash setting.
// PRE: len(password) >= MinPasswordLength
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
