package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type revokedToken struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// RevokeToken adds a token's JTI to the revocation list. Revoking the same
// JTI twice is not an error.
func RevokeToken(ctx context.Context, s Store, jti string, expiresAt time.Time) error {
	doc, err := Encode(jti, revokedToken{ExpiresAt: expiresAt.UTC()})
	if err != nil {
		return err
	}
	if _, err := s.Insert(ctx, RevokedTokens, doc); err != nil && !errors.Is(err, ErrDuplicateID) {
		return fmt.Errorf("revoking token: %w", err)
	}
	return nil
}

// IsTokenRevoked checks if a token's JTI has been revoked.
func IsTokenRevoked(ctx context.Context, s Store, jti string) (bool, error) {
	doc, err := s.FindOne(ctx, RevokedTokens, jti)
	if err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return doc != nil, nil
}
