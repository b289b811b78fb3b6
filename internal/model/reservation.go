package model

import (
	"strings"
	"time"
)

// Reservation holds bags of one offer for a customer until pickup.
type Reservation struct {
	ID            string    `json:"id,omitempty"`
	OfferID       string    `json:"offer_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	Quantity      int       `json:"quantity"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Reservation statuses.
const (
	ReservationStatusReserved  = "reserved"
	ReservationStatusPickedUp  = "picked_up"
	ReservationStatusCancelled = "cancelled"
)

// Reservation document fields used in filters and patches.
const (
	ReservationFieldOfferID   = "offer_id"
	ReservationFieldStatus    = "status"
	ReservationFieldUpdatedAt = "updated_at"
)

// CanTransition reports whether a reservation may move from one status to
// another. Only reserved reservations can change; unknown statuses fail closed.
func CanTransition(from, to string) bool {
	if from != ReservationStatusReserved {
		return false
	}
	return to == ReservationStatusPickedUp || to == ReservationStatusCancelled
}

// ReservationRequest asks to reserve bags of an offer.
type ReservationRequest struct {
	OfferID       string `json:"offer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	Quantity      int    `json:"quantity"`
}

// Validate checks the request shape. It does not look at the offer.
func (r ReservationRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.OfferID) == "":
		return invalid("offer_id", "is required")
	case strings.TrimSpace(r.CustomerName) == "":
		return invalid("customer_name", "is required")
	case strings.TrimSpace(r.CustomerPhone) == "":
		return invalid("customer_phone", "is required")
	case r.Quantity < 1:
		return invalid("quantity", "must be at least 1")
	}
	return nil
}
