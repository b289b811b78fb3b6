package model

import "strings"

// Vendor is a business that lists offers.
type Vendor struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	City     string `json:"city"`
	Address  string `json:"address,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Cuisine  string `json:"cuisine,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Active   bool   `json:"active"`
}

// Vendor document fields used in filters.
const (
	VendorFieldCity   = "city"
	VendorFieldActive = "active"
)

// VendorDraft is a vendor as submitted for creation.
type VendorDraft struct {
	Name     string `json:"name"`
	City     string `json:"city"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Cuisine  string `json:"cuisine"`
	ImageURL string `json:"image_url"`
	Active   *bool  `json:"active"`
}

// Vendor validates the draft and returns the vendor it describes.
func (d VendorDraft) Vendor() (Vendor, error) {
	v := Vendor{
		Name:     strings.TrimSpace(d.Name),
		City:     strings.TrimSpace(d.City),
		Address:  strings.TrimSpace(d.Address),
		Phone:    strings.TrimSpace(d.Phone),
		Cuisine:  strings.TrimSpace(d.Cuisine),
		ImageURL: strings.TrimSpace(d.ImageURL),
		Active:   true,
	}
	if v.Name == "" {
		return Vendor{}, invalid("name", "is required")
	}
	if v.City == "" {
		return Vendor{}, invalid("city", "is required")
	}
	if v.ImageURL != "" && !IsHTTPURL(v.ImageURL) {
		return Vendor{}, invalid("image_url", "must be an http(s) URL")
	}
	if d.Active != nil {
		v.Active = *d.Active
	}
	return v, nil
}
