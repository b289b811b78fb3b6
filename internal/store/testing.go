package store

import (
	"context"
	"testing"

	"github.com/erazemk/mbaromire/internal/db"
)

// NewTestStore creates an in-memory SQLite store with all collections created.
func NewTestStore(t *testing.T) *SQLStore {
	t.Helper()

	s := NewSQL(db.NewTestDB(t), SQLite)
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("creating test store schema: %v", err)
	}
	return s
}
