package store

import (
	"context"
	"errors"
	"testing"
)

func TestCompensatingRollsBackWrites(t *testing.T) {
	base := NewTestStore(t)
	s := Compensating(base)
	ctx := context.Background()

	id := insertOffer(t, base, testOffer{Title: "bag", Quantity: 5, Active: true})
	victim := insertOffer(t, base, testOffer{Title: "victim", Quantity: 1})

	err := s.Atomically(ctx, func(ctx context.Context, tx Store) error {
		ok, err := tx.UpdateOne(ctx, Offers, id, Patch{
			Set: map[string]any{"title": "changed", "vendor_name": "new field"},
			Inc: map[string]int{"quantity": -3},
		}, Filter{Gte{Field: "quantity", Value: 3}})
		if err != nil || !ok {
			t.Fatalf("UpdateOne: ok=%v err=%v", ok, err)
		}
		if _, err := tx.Insert(ctx, Reservations, Document{ID: "r1", Data: []byte(`{"offer_id":"x"}`)}); err != nil {
			return err
		}
		if _, err := tx.DeleteOne(ctx, Offers, victim); err != nil {
			return err
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("expected errAbort, got %v", err)
	}

	got := getOffer(t, base, id)
	if got.Title != "bag" || got.Quantity != 5 || got.Vendor != "" {
		t.Errorf("expected offer restored, got %+v", got)
	}
	if got := getOffer(t, base, victim); got.Title != "victim" {
		t.Errorf("expected deleted offer restored, got %+v", got)
	}
	if doc, _ := base.FindOne(ctx, Reservations, "r1"); doc != nil {
		t.Error("expected inserted reservation to be removed")
	}
}

func TestCompensatingRemovesCreatedFields(t *testing.T) {
	base := NewTestStore(t)
	s := Compensating(base)
	ctx := context.Background()

	id, err := base.Insert(ctx, Offers, Document{Data: []byte(`{"title":"bag","quantity":5,"note":null}`)})
	if err != nil {
		t.Fatal(err)
	}

	err = s.Atomically(ctx, func(ctx context.Context, tx Store) error {
		ok, err := tx.UpdateOne(ctx, Offers, id, Patch{
			Set: map[string]any{"image_url": "/img", "note": "hi"},
			Inc: map[string]int{"quantity": -1, "sold": 1},
		}, nil)
		if err != nil || !ok {
			t.Fatalf("UpdateOne: ok=%v err=%v", ok, err)
		}
		ok, err = tx.UpdateOne(ctx, Offers, id, Patch{Unset: []string{"title"}}, nil)
		if err != nil || !ok {
			t.Fatalf("UpdateOne unset: ok=%v err=%v", ok, err)
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("expected errAbort, got %v", err)
	}

	fields := rawFields(t, base, Offers, id)
	for _, name := range []string{"image_url", "sold"} {
		if _, has := fields[name]; has {
			t.Errorf("expected %s removed on rollback, got %v", name, fields)
		}
	}
	if v, has := fields["note"]; !has || v != nil {
		t.Errorf("expected note restored to null, got %v", fields)
	}
	if fields["title"] != "bag" {
		t.Errorf("expected title restored, got %v", fields["title"])
	}
	if fields["quantity"] != float64(5) {
		t.Errorf("expected quantity 5, got %v", fields["quantity"])
	}
}

func TestCompensatingKeepsWritesOnSuccess(t *testing.T) {
	base := NewTestStore(t)
	s := Compensating(base)
	ctx := context.Background()
	id := insertOffer(t, base, testOffer{Title: "bag", Quantity: 5, Active: true})

	err := s.Atomically(ctx, func(ctx context.Context, tx Store) error {
		_, err := tx.UpdateOne(ctx, Offers, id, Patch{Inc: map[string]int{"quantity": -2}}, nil)
		return err
	})
	if err != nil {
		t.Fatalf("Atomically: %v", err)
	}
	if got := getOffer(t, base, id).Quantity; got != 3 {
		t.Errorf("expected quantity 3, got %d", got)
	}
}

func TestCompensatingSkipsUnappliedUpdate(t *testing.T) {
	base := NewTestStore(t)
	s := Compensating(base)
	ctx := context.Background()
	id := insertOffer(t, base, testOffer{Title: "bag", Quantity: 1, Active: true})

	err := s.Atomically(ctx, func(ctx context.Context, tx Store) error {
		ok, err := tx.UpdateOne(ctx, Offers, id, Patch{Inc: map[string]int{"quantity": -2}},
			Filter{Gte{Field: "quantity", Value: 2}})
		if err != nil {
			return err
		}
		if ok {
			t.Fatal("expected conditional update to be rejected")
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("expected errAbort, got %v", err)
	}
	// A rejected update must not be undone, or the quantity would grow.
	if got := getOffer(t, base, id).Quantity; got != 1 {
		t.Errorf("expected quantity 1, got %d", got)
	}
}

func TestUnavailableStore(t *testing.T) {
	reason := errors.New("connection refused")
	s := Unavailable(reason)
	ctx := context.Background()

	checks := map[string]error{}
	_, checks["Insert"] = s.Insert(ctx, Offers, Document{})
	_, checks["Find"] = s.Find(ctx, Offers, nil, 0)
	_, checks["FindOne"] = s.FindOne(ctx, Offers, "x")
	_, checks["UpdateOne"] = s.UpdateOne(ctx, Offers, "x", Patch{}, nil)
	_, checks["DeleteOne"] = s.DeleteOne(ctx, Offers, "x")
	checks["Atomically"] = s.Atomically(ctx, func(context.Context, Store) error { return nil })
	checks["Ping"] = s.Ping(ctx)

	for op, err := range checks {
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("%s: expected ErrUnavailable, got %v", op, err)
		}
		if !errors.Is(err, reason) {
			t.Errorf("%s: expected reason to be wrapped, got %v", op, err)
		}
	}
}
