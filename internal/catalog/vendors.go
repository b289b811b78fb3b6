package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/erazemk/mbaromire/internal/model"
	"github.com/erazemk/mbaromire/internal/store"
)

// CreateVendor validates draft and stores it as a new vendor.
func (c *Catalog) CreateVendor(ctx context.Context, draft model.VendorDraft) (string, error) {
	v, err := draft.Vendor()
	if err != nil {
		return "", err
	}

	doc, err := store.Encode("", v)
	if err != nil {
		return "", err
	}
	id, err := c.store.Insert(ctx, store.Vendors, doc)
	if err != nil {
		return "", fmt.Errorf("creating vendor: %w", err)
	}

	slog.Info("vendor created", "id", id, "name", v.Name, "city", v.City)
	return id, nil
}

// ListVendors returns up to ListLimit active vendors, optionally in one city.
func (c *Catalog) ListVendors(ctx context.Context, city string) ([]model.Vendor, error) {
	filter := store.Filter{store.Eq{Field: model.VendorFieldActive, Value: true}}
	if city = strings.TrimSpace(city); city != "" {
		filter = append(filter, store.Eq{Field: model.VendorFieldCity, Value: city})
	}

	docs, err := c.store.Find(ctx, store.Vendors, filter, ListLimit)
	if err != nil {
		return nil, fmt.Errorf("listing vendors: %w", err)
	}

	vendors := make([]model.Vendor, 0, len(docs))
	for _, d := range docs {
		var v model.Vendor
		if err := d.Decode(&v); err != nil {
			return nil, err
		}
		v.ID = d.ID
		vendors = append(vendors, v)
	}
	return vendors, nil
}
