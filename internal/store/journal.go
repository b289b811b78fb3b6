package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Compensating wraps a store that cannot group writes into a transaction.
// Its Atomically records an undo step for every successful write and, if fn
// fails, replays them newest first. Other writers may observe the
// intermediate state; they can never observe it persist.
//
// Set and unset fields are restored to their snapshot values, and fields the
// write created are removed again. A concurrent write to one of those fields
// between the update and its undo is overwritten. Increments are undone by
// the opposite increment, so concurrent increments are kept.
func Compensating(s Store) Store {
	return &compensating{Store: s}
}

type compensating struct {
	Store
}

func (c *compensating) Atomically(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return runCompensated(ctx, c.Store, fn)
}

func runCompensated(ctx context.Context, base Store, fn func(ctx context.Context, tx Store) error) error {
	j := &journal{base: base}
	if err := fn(ctx, j); err != nil {
		// Undo even if the caller's context is already cancelled.
		if uerr := j.rollback(context.WithoutCancel(ctx)); uerr != nil {
			return errors.Join(err, fmt.Errorf("rolling back: %w", uerr))
		}
		return err
	}
	return nil
}

// journal is a Store that remembers how to revert its own writes.
type journal struct {
	base Store
	undo []func(ctx context.Context) error
}

func (j *journal) rollback(ctx context.Context) error {
	var errs []error
	for i := len(j.undo) - 1; i >= 0; i-- {
		if err := j.undo[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	j.undo = nil
	return errors.Join(errs...)
}

func (j *journal) Insert(ctx context.Context, c Collection, doc Document) (string, error) {
	id, err := j.base.Insert(ctx, c, doc)
	if err != nil {
		return "", err
	}
	j.undo = append(j.undo, func(ctx context.Context) error {
		_, err := j.base.DeleteOne(ctx, c, id)
		return err
	})
	return id, nil
}

func (j *journal) Find(ctx context.Context, c Collection, f Filter, limit int) ([]Document, error) {
	return j.base.Find(ctx, c, f, limit)
}

func (j *journal) FindOne(ctx context.Context, c Collection, id string) (*Document, error) {
	return j.base.FindOne(ctx, c, id)
}

func (j *journal) UpdateOne(ctx context.Context, c Collection, id string, p Patch, cond Filter) (bool, error) {
	// Touched fields are restored from a snapshot taken just before the write.
	doc, err := j.base.FindOne(ctx, c, id)
	if err != nil || doc == nil {
		return false, err
	}
	var before map[string]json.RawMessage
	if err := json.Unmarshal(doc.Data, &before); err != nil {
		return false, fmt.Errorf("snapshotting %s/%s: %w", c, id, err)
	}

	ok, err := j.base.UpdateOne(ctx, c, id, p, cond)
	if err != nil || !ok {
		return ok, err
	}

	inverse := Patch{}
	restore := func(name string) {
		v, ok := before[name]
		if !ok {
			inverse.Unset = append(inverse.Unset, name)
			return
		}
		if inverse.Set == nil {
			inverse.Set = make(map[string]any)
		}
		inverse.Set[name] = v
	}
	for name := range p.Set {
		restore(name)
	}
	for _, name := range p.Unset {
		restore(name)
	}
	for name, delta := range p.Inc {
		if _, ok := before[name]; !ok {
			inverse.Unset = append(inverse.Unset, name)
			continue
		}
		// Increments are undone relatively so concurrent increments survive.
		if inverse.Inc == nil {
			inverse.Inc = make(map[string]int)
		}
		inverse.Inc[name] = -delta
	}

	j.undo = append(j.undo, func(ctx context.Context) error {
		_, err := j.base.UpdateOne(ctx, c, id, inverse, nil)
		return err
	})
	return true, nil
}

func (j *journal) DeleteOne(ctx context.Context, c Collection, id string) (bool, error) {
	doc, err := j.base.FindOne(ctx, c, id)
	if err != nil || doc == nil {
		return false, err
	}

	ok, err := j.base.DeleteOne(ctx, c, id)
	if err != nil || !ok {
		return ok, err
	}
	j.undo = append(j.undo, func(ctx context.Context) error {
		_, err := j.base.Insert(ctx, c, *doc)
		return err
	})
	return true, nil
}

// Atomically joins the enclosing journal.
func (j *journal) Atomically(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return fn(ctx, j)
}

func (j *journal) Ping(ctx context.Context) error {
	return j.base.Ping(ctx)
}
