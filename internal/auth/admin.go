// Package auth guards admin operations with a shared admin code, optionally
// exchanged for a short-lived session token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/mbaromire/internal/store"
)

// ErrUnauthorized is returned when neither a valid admin code nor a valid
// session token is presented.
var ErrUnauthorized = errors.New("invalid admin code")

// Admin checks admin credentials. The configured code is kept only as a
// bcrypt hash.
type Admin struct {
	hash   []byte
	secret string
	store  store.Store
}

// NewAdmin returns an Admin for the given code. Tokens are signed with secret
// and revocations are recorded in s. An empty code disables the check.
func NewAdmin(code, secret string, s store.Store) (*Admin, error) {
	a := &Admin{secret: secret, store: s}
	if code == "" {
		return a, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing admin code: %w", err)
	}
	a.hash = hash
	return a, nil
}

// Open reports whether admin checks are disabled.
func (a *Admin) Open() bool {
	return a.hash == nil
}

// CheckCode reports whether code matches the configured admin code.
func (a *Admin) CheckCode(code string) bool {
	if a.Open() {
		return true
	}
	return bcrypt.CompareHashAndPassword(a.hash, []byte(code)) == nil
}

// Login exchanges the admin code for a session token.
func (a *Admin) Login(code string) (string, time.Time, error) {
	if !a.CheckCode(code) {
		return "", time.Time{}, ErrUnauthorized
	}
	token, claims, err := GenerateToken(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, claims.ExpiresAt.Time, nil
}

// Logout revokes a session token so it cannot be used again.
func (a *Admin) Logout(ctx context.Context, token string) error {
	claims, err := ValidateToken(a.secret, token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return store.RevokeToken(ctx, a.store, claims.ID, claims.ExpiresAt.Time)
}

// Authorize accepts either the admin code or an unrevoked session token.
func (a *Admin) Authorize(ctx context.Context, code, token string) error {
	if a.Open() {
		return nil
	}
	if code != "" && a.CheckCode(code) {
		return nil
	}
	if token == "" {
		return ErrUnauthorized
	}

	claims, err := ValidateToken(a.secret, token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	revoked, err := store.IsTokenRevoked(ctx, a.store, claims.ID)
	if err != nil {
		return err
	}
	if revoked {
		return fmt.Errorf("%w: token revoked", ErrUnauthorized)
	}
	return nil
}
