package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/erazemk/mbaromire/internal/model"
	"github.com/erazemk/mbaromire/internal/store"
)

type offerImage struct {
	Data []byte `json:"data"`
	MIME string `json:"mime"`
}

// ImagePath is where an offer's stored photo is served.
func ImagePath(offerID string) string {
	return "/api/offers/" + offerID + "/image"
}

// SetOfferImage stores a processed photo for an offer and points the offer's
// image_url at it. A previous photo is replaced.
func (c *Catalog) SetOfferImage(ctx context.Context, offerID string, data []byte, mime string) error {
	doc, err := store.Encode(offerID, offerImage{Data: data, MIME: mime})
	if err != nil {
		return err
	}

	err = c.store.Atomically(ctx, func(ctx context.Context, tx store.Store) error {
		ok, err := tx.UpdateOne(ctx, store.Offers, offerID, store.Patch{
			Set: map[string]any{
				model.OfferFieldImageURL:  ImagePath(offerID),
				model.OfferFieldUpdatedAt: c.now().UTC(),
			},
		}, nil)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("offer %s: %w", offerID, model.ErrNotFound)
		}

		if _, err := tx.DeleteOne(ctx, store.Images, offerID); err != nil {
			return err
		}
		_, err = tx.Insert(ctx, store.Images, doc)
		return err
	})
	if err != nil {
		return fmt.Errorf("setting offer image: %w", err)
	}

	slog.Info("offer image set", "id", offerID, "bytes", len(data))
	return nil
}

// GetOfferImage returns an offer's stored photo, or nil data if it has none.
func (c *Catalog) GetOfferImage(ctx context.Context, offerID string) ([]byte, string, error) {
	doc, err := c.store.FindOne(ctx, store.Images, offerID)
	if err != nil {
		return nil, "", fmt.Errorf("getting offer image: %w", err)
	}
	if doc == nil {
		return nil, "", nil
	}

	var img offerImage
	if err := doc.Decode(&img); err != nil {
		return nil, "", err
	}
	return img.Data, img.MIME, nil
}
