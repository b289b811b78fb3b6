package api

import (
	"net/http"

	"github.com/erazemk/mbaromire/internal/catalog"
	"github.com/erazemk/mbaromire/internal/model"
)

// VendorsHandler handles vendor endpoints.
type VendorsHandler struct {
	Catalog *catalog.Catalog
}

// Create handles POST /api/vendors.
func (h *VendorsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var draft model.VendorDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.Catalog.CreateVendor(r.Context(), draft)
	if err != nil {
		writeError(w, r, err, "vendor")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"id": id})
}

// List handles GET /api/vendors.
func (h *VendorsHandler) List(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.Catalog.ListVendors(r.Context(), r.URL.Query().Get("city"))
	if err != nil {
		writeError(w, r, err, "vendor")
		return
	}
	jsonResponse(w, http.StatusOK, vendors)
}
