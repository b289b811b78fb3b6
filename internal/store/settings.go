package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

const jwtSecretID = "jwt_secret"

type setting struct {
	Value string `json:"value"`
}

// JWTSecret retrieves the JWT signing secret from the setting collection.
// If no secret exists, it generates one, stores it, and returns it.
// Concurrent first calls race on the insert; the loser reads back the winner's value.
func JWTSecret(ctx context.Context, s Store) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}

	doc, err := Encode(jwtSecretID, setting{Value: hex.EncodeToString(buf)})
	if err != nil {
		return "", err
	}
	if _, err := s.Insert(ctx, Settings, doc); err != nil && !errors.Is(err, ErrDuplicateID) {
		return "", fmt.Errorf("storing jwt secret: %w", err)
	}

	stored, err := s.FindOne(ctx, Settings, jwtSecretID)
	if err != nil {
		return "", fmt.Errorf("querying jwt secret: %w", err)
	}
	if stored == nil {
		return "", fmt.Errorf("jwt secret vanished after insert")
	}

	var v setting
	if err := stored.Decode(&v); err != nil {
		return "", err
	}
	return v.Value, nil
}
