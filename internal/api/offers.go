package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/mbaromire/internal/catalog"
	"github.com/erazemk/mbaromire/internal/imaging"
	"github.com/erazemk/mbaromire/internal/model"
)

// OffersHandler handles offer endpoints.
type OffersHandler struct {
	Catalog *catalog.Catalog
}

// Create handles POST /api/offers.
func (h *OffersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var draft model.OfferDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.Catalog.CreateOffer(r.Context(), draft)
	if err != nil {
		writeError(w, r, err, "offer")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"id": id})
}

// List handles GET /api/offers.
func (h *OffersHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offers, err := h.Catalog.ListOffers(r.Context(), catalog.OfferFilter{
		City:    q.Get("city"),
		Cuisine: q.Get("cuisine"),
		Query:   q.Get("q"),
	})
	if err != nil {
		writeError(w, r, err, "offer")
		return
	}
	jsonResponse(w, http.StatusOK, offers)
}

// Get handles GET /api/offers/{id}.
func (h *OffersHandler) Get(w http.ResponseWriter, r *http.Request) {
	offer, err := h.Catalog.GetOffer(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, "offer")
		return
	}
	jsonResponse(w, http.StatusOK, offer)
}

// Deactivate handles POST /api/offers/{id}/deactivate.
func (h *OffersHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.DeactivateOffer(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err, "offer")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "offer deactivated"})
}

// UploadImage handles PUT /api/offers/{id}/image.
func (h *OffersHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	// Leave room for multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+64<<10)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	photo, err := imaging.Process(file)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupported) {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("processing image", "offer_id", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to process image")
		return
	}

	if err := h.Catalog.SetOfferImage(r.Context(), id, photo.Data, photo.MIME); err != nil {
		writeError(w, r, err, "offer")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{
		"message":   "image uploaded",
		"image_url": catalog.ImagePath(id),
	})
}

// GetImage handles GET /api/offers/{id}/image.
func (h *OffersHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	data, mime, err := h.Catalog.GetOfferImage(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, "image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}
