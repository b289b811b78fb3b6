package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func ptr[T any](v T) *T { return &v }

func validDraft() OfferDraft {
	start := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	return OfferDraft{
		Title:         ptr("Surprise Bag"),
		VendorName:    ptr("Furra e Lagjes"),
		City:          ptr("Tirana"),
		Tags:          []string{"bakery", " vegan ", "bakery", ""},
		OriginalPrice: ptr(decimal.RequireFromString("1000")),
		Price:         ptr(decimal.RequireFromString("350.50")),
		Quantity:      ptr(5),
		PickupStart:   ptr(start),
		PickupEnd:     ptr(start.Add(2 * time.Hour)),
	}
}

func TestOfferDraftValid(t *testing.T) {
	o, err := validDraft().Offer()
	if err != nil {
		t.Fatalf("Offer: %v", err)
	}
	if !o.Active {
		t.Error("expected active to default to true")
	}
	if got := strings.Join(o.Tags, ","); got != "bakery,vegan" {
		t.Errorf("expected cleaned tags, got %q", got)
	}
	if o.Quantity != 5 {
		t.Errorf("expected quantity 5, got %d", o.Quantity)
	}
}

func TestOfferDraftEqualPrices(t *testing.T) {
	d := validDraft()
	d.Price = ptr(decimal.RequireFromString("1000.00"))
	if _, err := d.Offer(); err != nil {
		t.Fatalf("expected price == original_price to be accepted, got %v", err)
	}
}

func TestOfferDraftZeroQuantityAllowed(t *testing.T) {
	d := validDraft()
	d.Quantity = ptr(0)
	if _, err := d.Offer(); err != nil {
		t.Fatalf("expected zero quantity to be accepted, got %v", err)
	}
}

func TestOfferDraftInvalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*OfferDraft)
		field  string
	}{
		{"missing title", func(d *OfferDraft) { d.Title = nil }, "title"},
		{"blank vendor", func(d *OfferDraft) { d.VendorName = ptr("  ") }, "vendor_name"},
		{"missing city", func(d *OfferDraft) { d.City = nil }, "city"},
		{"missing original price", func(d *OfferDraft) { d.OriginalPrice = nil }, "original_price"},
		{"missing price", func(d *OfferDraft) { d.Price = nil }, "price"},
		{"missing quantity", func(d *OfferDraft) { d.Quantity = nil }, "quantity"},
		{"missing pickup start", func(d *OfferDraft) { d.PickupStart = nil }, "pickup_start"},
		{"missing pickup end", func(d *OfferDraft) { d.PickupEnd = nil }, "pickup_end"},
		{"price above original", func(d *OfferDraft) { d.Price = ptr(decimal.RequireFromString("1000.01")) }, "price"},
		{"negative price", func(d *OfferDraft) { d.Price = ptr(decimal.RequireFromString("-1")) }, "price"},
		{"negative original price", func(d *OfferDraft) { d.OriginalPrice = ptr(decimal.RequireFromString("-1")) }, "original_price"},
		{"negative quantity", func(d *OfferDraft) { d.Quantity = ptr(-1) }, "quantity"},
		{"pickup window reversed", func(d *OfferDraft) { d.PickupEnd = ptr(d.PickupStart.Add(-time.Minute)) }, "pickup_end"},
		{"relative image url", func(d *OfferDraft) { d.ImageURL = ptr("/img.png") }, "image_url"},
		{"non-http image url", func(d *OfferDraft) { d.ImageURL = ptr("ftp://example.com/a.png") }, "image_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.modify(&d)
			_, err := d.Offer()

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, verr.Field)
			}
		})
	}
}

func TestOfferPricesAreJSONNumbers(t *testing.T) {
	o, err := validDraft().Offer()
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(o)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"price":350.5`) {
		t.Errorf("expected unquoted price, got %s", data)
	}

	var back Offer
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Price.Equal(o.Price) {
		t.Errorf("price changed in round trip: %s != %s", back.Price, o.Price)
	}
}

func TestIsHTTPURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://cdn.example.com/bag.jpg", true},
		{"http://example.com", true},
		{"/api/offers/1/image", false},
		{"example.com/a.jpg", false},
		{"javascript:alert(1)", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsHTTPURL(tt.url); got != tt.want {
			t.Errorf("IsHTTPURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
