package store

import (
	"context"
	"fmt"
)

// Unavailable returns a store whose every operation fails with ErrUnavailable.
// It stands in for a backend that could not be opened.
func Unavailable(reason error) Store {
	return unavailableStore{reason: reason}
}

type unavailableStore struct {
	reason error
}

func (u unavailableStore) err() error {
	return fmt.Errorf("%w: %w", ErrUnavailable, u.reason)
}

func (u unavailableStore) Insert(context.Context, Collection, Document) (string, error) {
	return "", u.err()
}

func (u unavailableStore) Find(context.Context, Collection, Filter, int) ([]Document, error) {
	return nil, u.err()
}

func (u unavailableStore) FindOne(context.Context, Collection, string) (*Document, error) {
	return nil, u.err()
}

func (u unavailableStore) UpdateOne(context.Context, Collection, string, Patch, Filter) (bool, error) {
	return false, u.err()
}

func (u unavailableStore) DeleteOne(context.Context, Collection, string) (bool, error) {
	return false, u.err()
}

func (u unavailableStore) Atomically(context.Context, func(context.Context, Store) error) error {
	return u.err()
}

func (u unavailableStore) Ping(context.Context) error {
	return u.err()
}
