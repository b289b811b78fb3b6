package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/mbaromire/internal/model"
	"github.com/erazemk/mbaromire/internal/store"
)

func TestOfferImage(t *testing.T) {
	c := New(store.NewTestStore(t))
	ctx := context.Background()
	id := mustCreate(t, c, draft("Photo Bag"))

	data, _, err := c.GetOfferImage(ctx, id)
	if err != nil {
		t.Fatalf("GetOfferImage: %v", err)
	}
	if data != nil {
		t.Error("expected no image before upload")
	}

	if err := c.SetOfferImage(ctx, id, []byte("first"), "image/jpeg"); err != nil {
		t.Fatalf("SetOfferImage: %v", err)
	}
	// Replacing keeps only the latest photo.
	if err := c.SetOfferImage(ctx, id, []byte("second"), "image/jpeg"); err != nil {
		t.Fatalf("SetOfferImage replace: %v", err)
	}

	data, mime, err := c.GetOfferImage(ctx, id)
	if err != nil {
		t.Fatalf("GetOfferImage: %v", err)
	}
	if string(data) != "second" || mime != "image/jpeg" {
		t.Errorf("expected replaced image, got %q (%s)", data, mime)
	}

	o, err := c.GetOffer(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if o.ImageURL != ImagePath(id) {
		t.Errorf("expected image_url %q, got %q", ImagePath(id), o.ImageURL)
	}
}

func TestSetOfferImageMissingOffer(t *testing.T) {
	s := store.NewTestStore(t)
	c := New(s)
	ctx := context.Background()

	err := c.SetOfferImage(ctx, "missing", []byte("x"), "image/jpeg")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if doc, _ := s.FindOne(ctx, store.Images, "missing"); doc != nil {
		t.Error("expected no orphan image to be stored")
	}
}
