package model

import (
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers, both on the wire and in stored documents.
	decimal.MarshalJSONWithoutQuotes = true
}

// Offer is a discounted surprise bag listed by a vendor.
type Offer struct {
	ID            string          `json:"id,omitempty"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	VendorName    string          `json:"vendor_name"`
	City          string          `json:"city"`
	Address       string          `json:"address,omitempty"`
	Cuisine       string          `json:"cuisine,omitempty"`
	Tags          []string        `json:"tags"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Price         decimal.Decimal `json:"price"`
	Quantity      int             `json:"quantity"`
	PickupStart   time.Time       `json:"pickup_start"`
	PickupEnd     time.Time       `json:"pickup_end"`
	ImageURL      string          `json:"image_url,omitempty"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Offer document fields used in filters and patches.
const (
	OfferFieldTitle      = "title"
	OfferFieldVendorName = "vendor_name"
	OfferFieldCity       = "city"
	OfferFieldCuisine    = "cuisine"
	OfferFieldTags       = "tags"
	OfferFieldQuantity   = "quantity"
	OfferFieldActive     = "active"
	OfferFieldImageURL   = "image_url"
	OfferFieldUpdatedAt  = "updated_at"
)

// OfferDraft is an offer as submitted for creation. Pointer fields
// distinguish a missing value from a zero one.
type OfferDraft struct {
	Title         *string          `json:"title"`
	Description   *string          `json:"description"`
	VendorName    *string          `json:"vendor_name"`
	City          *string          `json:"city"`
	Address       *string          `json:"address"`
	Cuisine       *string          `json:"cuisine"`
	Tags          []string         `json:"tags"`
	OriginalPrice *decimal.Decimal `json:"original_price"`
	Price         *decimal.Decimal `json:"price"`
	Quantity      *int             `json:"quantity"`
	PickupStart   *time.Time       `json:"pickup_start"`
	PickupEnd     *time.Time       `json:"pickup_end"`
	ImageURL      *string          `json:"image_url"`
	Active        *bool            `json:"active"`
}

// Offer validates the draft and returns the offer it describes, without
// ID or timestamps.
func (d OfferDraft) Offer() (Offer, error) {
	for _, req := range []struct {
		name  string
		value *string
	}{
		{"title", d.Title},
		{"vendor_name", d.VendorName},
		{"city", d.City},
	} {
		if req.value == nil || strings.TrimSpace(*req.value) == "" {
			return Offer{}, invalid(req.name, "is required")
		}
	}
	switch {
	case d.OriginalPrice == nil:
		return Offer{}, invalid("original_price", "is required")
	case d.Price == nil:
		return Offer{}, invalid("price", "is required")
	case d.Quantity == nil:
		return Offer{}, invalid("quantity", "is required")
	case d.PickupStart == nil:
		return Offer{}, invalid("pickup_start", "is required")
	case d.PickupEnd == nil:
		return Offer{}, invalid("pickup_end", "is required")
	}

	if d.OriginalPrice.IsNegative() {
		return Offer{}, invalid("original_price", "must not be negative")
	}
	if d.Price.IsNegative() {
		return Offer{}, invalid("price", "must not be negative")
	}
	if d.Price.GreaterThan(*d.OriginalPrice) {
		return Offer{}, invalid("price", "must be <= original price")
	}
	if *d.Quantity < 0 {
		return Offer{}, invalid("quantity", "must not be negative")
	}
	if d.PickupEnd.Before(*d.PickupStart) {
		return Offer{}, invalid("pickup_end", "must not be before pickup_start")
	}

	o := Offer{
		Title:         strings.TrimSpace(*d.Title),
		VendorName:    strings.TrimSpace(*d.VendorName),
		City:          strings.TrimSpace(*d.City),
		Description:   deref(d.Description),
		Address:       deref(d.Address),
		Cuisine:       deref(d.Cuisine),
		Tags:          cleanTags(d.Tags),
		OriginalPrice: *d.OriginalPrice,
		Price:         *d.Price,
		Quantity:      *d.Quantity,
		PickupStart:   d.PickupStart.UTC(),
		PickupEnd:     d.PickupEnd.UTC(),
		Active:        true,
	}
	if d.Active != nil {
		o.Active = *d.Active
	}
	if d.ImageURL != nil && *d.ImageURL != "" {
		if !IsHTTPURL(*d.ImageURL) {
			return Offer{}, invalid("image_url", "must be an http(s) URL")
		}
		o.ImageURL = *d.ImageURL
	}
	return o, nil
}

// IsHTTPURL reports whether s is an absolute http or https URL.
func IsHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// cleanTags drops blank and repeated tags, keeping first-seen order.
func cleanTags(tags []string) []string {
	out := []string{}
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
