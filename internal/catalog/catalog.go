// Package catalog manages vendors, offers and offer photos.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/erazemk/mbaromire/internal/model"
	"github.com/erazemk/mbaromire/internal/store"
)

// ListLimit caps the number of offers or vendors returned by a listing.
const ListLimit = 100

// Catalog reads and writes offers and vendors through a document store.
type Catalog struct {
	store  store.Store
	tracer trace.Tracer
	now    func() time.Time
}

// New returns a catalog backed by s.
func New(s store.Store) *Catalog {
	return &Catalog{
		store:  s,
		tracer: otel.Tracer("github.com/erazemk/mbaromire/internal/catalog"),
		now:    time.Now,
	}
}

// OfferFilter narrows an offer listing. Empty fields are ignored.
type OfferFilter struct {
	City    string
	Cuisine string
	Query   string
}

// CreateOffer validates draft and stores it as a new offer.
func (c *Catalog) CreateOffer(ctx context.Context, draft model.OfferDraft) (string, error) {
	ctx, span := c.tracer.Start(ctx, "catalog.create_offer")
	defer span.End()

	offer, err := draft.Offer()
	if err != nil {
		span.SetStatus(codes.Error, "invalid offer")
		return "", err
	}
	now := c.now().UTC()
	offer.CreatedAt = now
	offer.UpdatedAt = now

	doc, err := store.Encode("", offer)
	if err != nil {
		return "", err
	}
	id, err := c.store.Insert(ctx, store.Offers, doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return "", fmt.Errorf("creating offer: %w", err)
	}

	span.SetAttributes(attribute.String("offer.id", id), attribute.Int("offer.quantity", offer.Quantity))
	slog.Info("offer created", "id", id, "title", offer.Title, "city", offer.City, "quantity", offer.Quantity)
	return id, nil
}

// ListOffers returns up to ListLimit active offers that still have bags left.
// The query matches title, vendor name or any tag, ignoring case.
func (c *Catalog) ListOffers(ctx context.Context, f OfferFilter) ([]model.Offer, error) {
	ctx, span := c.tracer.Start(ctx, "catalog.list_offers")
	defer span.End()

	filter := store.Filter{
		store.Eq{Field: model.OfferFieldActive, Value: true},
		store.Gt{Field: model.OfferFieldQuantity, Value: 0},
	}
	if city := strings.TrimSpace(f.City); city != "" {
		filter = append(filter, store.Eq{Field: model.OfferFieldCity, Value: city})
	}
	if cuisine := strings.TrimSpace(f.Cuisine); cuisine != "" {
		filter = append(filter, store.Eq{Field: model.OfferFieldCuisine, Value: cuisine})
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		filter = append(filter, store.Or{
			store.Contains{Field: model.OfferFieldTitle, Substr: q},
			store.Contains{Field: model.OfferFieldVendorName, Substr: q},
			store.ElemContains{Field: model.OfferFieldTags, Substr: q},
		})
	}

	docs, err := c.store.Find(ctx, store.Offers, filter, ListLimit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "find failed")
		return nil, fmt.Errorf("listing offers: %w", err)
	}

	offers := make([]model.Offer, 0, len(docs))
	for _, d := range docs {
		o, err := decodeOffer(d)
		if err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	span.SetAttributes(attribute.Int("offers.count", len(offers)))
	return offers, nil
}

// GetOffer returns an active offer by ID.
func (c *Catalog) GetOffer(ctx context.Context, id string) (*model.Offer, error) {
	o, err := c.loadOffer(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.Active {
		return nil, fmt.Errorf("offer %s: %w", id, model.ErrNotFound)
	}
	return o, nil
}

// DeactivateOffer hides an offer from listings and blocks new reservations.
// Existing reservations are kept.
func (c *Catalog) DeactivateOffer(ctx context.Context, id string) error {
	ok, err := c.store.UpdateOne(ctx, store.Offers, id, store.Patch{
		Set: map[string]any{
			model.OfferFieldActive:    false,
			model.OfferFieldUpdatedAt: c.now().UTC(),
		},
	}, nil)
	if err != nil {
		return fmt.Errorf("deactivating offer: %w", err)
	}
	if !ok {
		return fmt.Errorf("offer %s: %w", id, model.ErrNotFound)
	}

	slog.Info("offer deactivated", "id", id)
	return nil
}

// loadOffer returns an offer by ID regardless of whether it is active.
func (c *Catalog) loadOffer(ctx context.Context, id string) (*model.Offer, error) {
	doc, err := c.store.FindOne(ctx, store.Offers, id)
	if err != nil {
		return nil, fmt.Errorf("getting offer: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("offer %s: %w", id, model.ErrNotFound)
	}
	o, err := decodeOffer(*doc)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func decodeOffer(d store.Document) (model.Offer, error) {
	var o model.Offer
	if err := d.Decode(&o); err != nil {
		return model.Offer{}, err
	}
	o.ID = d.ID
	if o.Tags == nil {
		o.Tags = []string{}
	}
	return o, nil
}
