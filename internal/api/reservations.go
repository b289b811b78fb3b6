package api

import (
	"net/http"

	"github.com/erazemk/mbaromire/internal/model"
	"github.com/erazemk/mbaromire/internal/reservation"
)

// ReservationsHandler handles reservation endpoints.
type ReservationsHandler struct {
	Service *reservation.Service
}

type reservationRequest struct {
	OfferID       string `json:"offer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	Quantity      *int   `json:"quantity"`
}

type reservationResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Create handles POST /api/reservations.
func (h *ReservationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req reservationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	id, err := h.Service.Reserve(r.Context(), model.ReservationRequest{
		OfferID:       req.OfferID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Quantity:      quantity,
	})
	if err != nil {
		writeError(w, r, err, "offer")
		return
	}
	jsonResponse(w, http.StatusOK, reservationResponse{ID: id, Message: "Reserved"})
}

// Get handles GET /api/reservations/{id}.
func (h *ReservationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, "reservation")
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

// Cancel handles POST /api/reservations/{id}/cancel.
func (h *ReservationsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Service.Cancel(r.Context(), id); err != nil {
		writeError(w, r, err, "reservation")
		return
	}
	jsonResponse(w, http.StatusOK, reservationResponse{ID: id, Message: "Cancelled"})
}

// PickUp handles POST /api/reservations/{id}/pickup.
func (h *ReservationsHandler) PickUp(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Service.PickUp(r.Context(), id); err != nil {
		writeError(w, r, err, "reservation")
		return
	}
	jsonResponse(w, http.StatusOK, reservationResponse{ID: id, Message: "Picked up"})
}
