// Package reservation reserves offer bags against live quantity. The
// decrement and the reservation record are committed together, and the
// decrement only applies while enough bags remain, so concurrent requests
// cannot oversell an offer.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/erazemk/mbaromire/internal/model"
	"github.com/erazemk/mbaromire/internal/store"
)

// Service creates reservations and moves them through their lifecycle.
type Service struct {
	store  store.Store
	tracer trace.Tracer
	now    func() time.Time
}

// New returns a reservation service backed by s.
func New(s store.Store) *Service {
	return &Service{
		store:  s,
		tracer: otel.Tracer("github.com/erazemk/mbaromire/internal/reservation"),
		now:    time.Now,
	}
}

// Reserve reserves req.Quantity bags of an active offer and returns the new
// reservation's ID.
func (s *Service) Reserve(ctx context.Context, req model.ReservationRequest) (string, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.reserve", trace.WithAttributes(
		attribute.String("offer.id", req.OfferID),
		attribute.Int("reservation.quantity", req.Quantity),
	))
	defer span.End()

	id, err := s.reserve(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome(err))
		return "", err
	}

	span.SetAttributes(attribute.String("reservation.id", id))
	span.SetStatus(codes.Ok, "reserved")
	slog.Info("reservation created", "id", id, "offer_id", req.OfferID, "quantity", req.Quantity)
	return id, nil
}

func (s *Service) reserve(ctx context.Context, req model.ReservationRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	offer, err := s.offer(ctx, s.store, req.OfferID)
	if err != nil {
		return "", err
	}
	if !offer.Active {
		return "", fmt.Errorf("offer %s: %w", req.OfferID, model.ErrNotFound)
	}
	if req.Quantity > offer.Quantity {
		return "", insufficient(req.Quantity, offer.Quantity)
	}

	now := s.now().UTC()
	doc, err := store.Encode(store.NewID(), model.Reservation{
		OfferID:       req.OfferID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Quantity:      req.Quantity,
		Status:        model.ReservationStatusReserved,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return "", err
	}

	err = s.store.Atomically(ctx, func(ctx context.Context, tx store.Store) error {
		ok, err := tx.UpdateOne(ctx, store.Offers, req.OfferID, store.Patch{
			Inc: map[string]int{model.OfferFieldQuantity: -req.Quantity},
			Set: map[string]any{model.OfferFieldUpdatedAt: now},
		}, store.Filter{
			store.Gte{Field: model.OfferFieldQuantity, Value: req.Quantity},
			store.Eq{Field: model.OfferFieldActive, Value: true},
		})
		if err != nil {
			return fmt.Errorf("decrementing offer quantity: %w", err)
		}
		if !ok {
			// Another reservation or a deactivation got there first.
			return s.explainRejected(ctx, tx, req)
		}

		if _, err := tx.Insert(ctx, store.Reservations, doc); err != nil {
			return fmt.Errorf("creating reservation: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return doc.ID, nil
}

// explainRejected works out why the conditional decrement matched nothing.
func (s *Service) explainRejected(ctx context.Context, tx store.Store, req model.ReservationRequest) error {
	offer, err := s.offer(ctx, tx, req.OfferID)
	if err != nil {
		return err
	}
	if !offer.Active {
		return fmt.Errorf("offer %s: %w", req.OfferID, model.ErrNotFound)
	}
	return insufficient(req.Quantity, offer.Quantity)
}

// Get returns a reservation by ID.
func (s *Service) Get(ctx context.Context, id string) (*model.Reservation, error) {
	doc, err := s.store.FindOne(ctx, store.Reservations, id)
	if err != nil {
		return nil, fmt.Errorf("getting reservation: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("reservation %s: %w", id, model.ErrNotFound)
	}

	var r model.Reservation
	if err := doc.Decode(&r); err != nil {
		return nil, err
	}
	r.ID = doc.ID
	return &r, nil
}

// Cancel cancels a reserved reservation and returns its bags to the offer.
func (s *Service) Cancel(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "reservation.cancel", trace.WithAttributes(
		attribute.String("reservation.id", id),
	))
	defer span.End()

	r, err := s.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}

	err = s.store.Atomically(ctx, func(ctx context.Context, tx store.Store) error {
		if err := s.transition(ctx, tx, r, model.ReservationStatusCancelled); err != nil {
			return err
		}

		ok, err := tx.UpdateOne(ctx, store.Offers, r.OfferID, store.Patch{
			Inc: map[string]int{model.OfferFieldQuantity: r.Quantity},
			Set: map[string]any{model.OfferFieldUpdatedAt: s.now().UTC()},
		}, nil)
		if err != nil {
			return fmt.Errorf("restoring offer quantity: %w", err)
		}
		if !ok {
			slog.Warn("cancelled reservation references a missing offer", "id", id, "offer_id", r.OfferID)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome(err))
		return err
	}

	slog.Info("reservation cancelled", "id", id, "offer_id", r.OfferID, "quantity", r.Quantity)
	return nil
}

// PickUp marks a reserved reservation as collected.
func (s *Service) PickUp(ctx context.Context, id string) error {
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.transition(ctx, s.store, r, model.ReservationStatusPickedUp); err != nil {
		return err
	}

	slog.Info("reservation picked up", "id", id, "offer_id", r.OfferID)
	return nil
}

// transition moves r to status if it is still in the status it was read with.
func (s *Service) transition(ctx context.Context, st store.Store, r *model.Reservation, status string) error {
	if !model.CanTransition(r.Status, status) {
		return fmt.Errorf("reservation %s is %s, cannot become %s: %w", r.ID, r.Status, status, model.ErrInvalidStatus)
	}

	ok, err := st.UpdateOne(ctx, store.Reservations, r.ID, store.Patch{
		Set: map[string]any{
			model.ReservationFieldStatus:    status,
			model.ReservationFieldUpdatedAt: s.now().UTC(),
		},
	}, store.Filter{store.Eq{Field: model.ReservationFieldStatus, Value: r.Status}})
	if err != nil {
		return fmt.Errorf("updating reservation status: %w", err)
	}
	if !ok {
		return fmt.Errorf("reservation %s changed concurrently: %w", r.ID, model.ErrInvalidStatus)
	}
	return nil
}

func (s *Service) offer(ctx context.Context, st store.Store, id string) (*model.Offer, error) {
	doc, err := st.FindOne(ctx, store.Offers, id)
	if err != nil {
		return nil, fmt.Errorf("getting offer: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("offer %s: %w", id, model.ErrNotFound)
	}

	var o model.Offer
	if err := doc.Decode(&o); err != nil {
		return nil, err
	}
	return &o, nil
}

func insufficient(requested, available int) error {
	return fmt.Errorf("requested %d, available %d: %w", requested, available, model.ErrInsufficientQuantity)
}

// outcome names an error for span status descriptions.
func outcome(err error) string {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		return "invalid request"
	case errors.Is(err, model.ErrNotFound):
		return "not found"
	case errors.Is(err, model.ErrInsufficientQuantity):
		return "insufficient quantity"
	case errors.Is(err, model.ErrInvalidStatus):
		return "invalid status"
	case errors.Is(err, store.ErrUnavailable):
		return "store unavailable"
	default:
		return "failed"
	}
}
