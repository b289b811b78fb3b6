package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/mbaromire/internal/model"
	"github.com/erazemk/mbaromire/internal/store"
)

func TestCreateAndListVendors(t *testing.T) {
	c := New(store.NewTestStore(t))
	ctx := context.Background()

	id, err := c.CreateVendor(ctx, model.VendorDraft{Name: "Oda", City: "Tirana", Cuisine: "traditional"})
	if err != nil {
		t.Fatalf("CreateVendor: %v", err)
	}
	c.CreateVendor(ctx, model.VendorDraft{Name: "Peshku", City: "Vlorë"})
	c.CreateVendor(ctx, model.VendorDraft{Name: "Closed", City: "Tirana", Active: ptr(false)})

	all, err := c.ListVendors(ctx, "")
	if err != nil {
		t.Fatalf("ListVendors: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 active vendors, got %d", len(all))
	}

	tirana, err := c.ListVendors(ctx, "Tirana")
	if err != nil {
		t.Fatalf("ListVendors: %v", err)
	}
	if len(tirana) != 1 || tirana[0].ID != id || tirana[0].Name != "Oda" {
		t.Errorf("unexpected vendors in Tirana: %+v", tirana)
	}
}

func TestCreateVendorInvalid(t *testing.T) {
	c := New(store.NewTestStore(t))

	_, err := c.CreateVendor(context.Background(), model.VendorDraft{Name: "No City"})
	var verr *model.ValidationError
	if !errors.As(err, &verr) || verr.Field != "city" {
		t.Fatalf("expected ValidationError on city, got %v", err)
	}
}
