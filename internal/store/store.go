// Package store is a small document store adapter: keyed JSON documents kept in
// named collections, with filter queries and conditional updates. Backends are
// SQLite and PostgreSQL (one table per collection) and MongoDB.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// Collection names a group of documents.
type Collection string

// Collections used by the service.
const (
	Vendors       Collection = "vendor"
	Offers        Collection = "offer"
	Reservations  Collection = "reservation"
	Settings      Collection = "setting"
	Images        Collection = "image"
	RevokedTokens Collection = "revoked_token"
)

// Collections lists every known collection, in schema creation order.
var Collections = []Collection{Vendors, Offers, Reservations, Settings, Images, RevokedTokens}

var (
	// ErrUnavailable is returned when the backing store is unreachable or
	// misconfigured. Backend errors are wrapped with it.
	ErrUnavailable = errors.New("store unavailable")

	// ErrDuplicateID is returned by Insert when a document with the same ID exists.
	ErrDuplicateID = errors.New("duplicate document id")
)

// Document is a stored record. Data holds a JSON object; the ID is kept
// outside of it.
type Document struct {
	ID   string
	Data json.RawMessage
}

// Encode marshals v into a document with the given ID. An empty ID lets
// Insert assign one.
func Encode(id string, v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Document{}, fmt.Errorf("encoding document: %w", err)
	}
	return Document{ID: id, Data: data}, nil
}

// Decode unmarshals the document body into v.
func (d Document) Decode(v any) error {
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("decoding document %s: %w", d.ID, err)
	}
	return nil
}

// Store is implemented by every backend.
type Store interface {
	// Insert stores doc and returns its ID, generating one if doc.ID is empty.
	Insert(ctx context.Context, c Collection, doc Document) (string, error)

	// Find returns documents matching all conditions of f. A limit <= 0 means
	// no limit. Order is whatever the backend returns.
	Find(ctx context.Context, c Collection, f Filter, limit int) ([]Document, error)

	// FindOne returns the document with the given ID, or nil if there is none.
	FindOne(ctx context.Context, c Collection, id string) (*Document, error)

	// UpdateOne applies p to the document with the given ID if it also matches
	// cond. It reports whether a document was updated.
	UpdateOne(ctx context.Context, c Collection, id string, p Patch, cond Filter) (bool, error)

	// DeleteOne removes the document with the given ID and reports whether it existed.
	DeleteOne(ctx context.Context, c Collection, id string) (bool, error)

	// Atomically runs fn so that the writes it makes through tx are applied
	// together or not at all. fn must use the ctx and tx it is given.
	Atomically(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}

// NewID returns a fresh opaque document ID.
func NewID() string {
	return uuid.NewString()
}

var fieldPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// checkField rejects field names that cannot be spliced into a JSON path.
func checkField(name string) error {
	if !fieldPattern.MatchString(name) {
		return fmt.Errorf("invalid field name %q", name)
	}
	return nil
}

func checkCollection(c Collection) error {
	for _, known := range Collections {
		if c == known {
			return nil
		}
	}
	return fmt.Errorf("unknown collection %q", c)
}

// unavailable wraps a backend error so callers can match ErrUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
