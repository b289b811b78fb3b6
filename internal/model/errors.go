package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an offer, vendor or reservation does not
	// exist or is no longer visible.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientQuantity is returned when a reservation asks for more
	// bags than the offer has left.
	ErrInsufficientQuantity = errors.New("not enough quantity")

	// ErrInvalidStatus is returned for a reservation status change that is
	// not allowed from the current status.
	ErrInvalidStatus = errors.New("invalid status transition")
)

// ValidationError reports a malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
