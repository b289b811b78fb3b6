package reservation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/erazemk/mbaromire/internal/model"
	"github.com/erazemk/mbaromire/internal/store"
)

// ScenarioSuite walks an offer of five bags through the reservation flows
// customers hit in practice.
type ScenarioSuite struct {
	suite.Suite
	ctx     context.Context
	store   store.Store
	svc     *Service
	offerID string
}

func (s *ScenarioSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewTestStore(s.T())
	s.svc = New(s.store)
	s.offerID = createOffer(s.T(), s.store, 5)
}

func (s *ScenarioSuite) quantity() int {
	return quantityOf(s.T(), s.store, s.offerID)
}

func (s *ScenarioSuite) TestSequentialReservations() {
	_, err := s.svc.Reserve(s.ctx, request(s.offerID, 3))
	s.Require().NoError(err)
	s.Equal(2, s.quantity())

	_, err = s.svc.Reserve(s.ctx, request(s.offerID, 3))
	s.Require().ErrorIs(err, model.ErrInsufficientQuantity)
	s.Equal(2, s.quantity())

	_, err = s.svc.Reserve(s.ctx, request(s.offerID, 2))
	s.Require().NoError(err)
	s.Equal(0, s.quantity())

	_, err = s.svc.Reserve(s.ctx, request(s.offerID, 1))
	s.ErrorIs(err, model.ErrInsufficientQuantity)
}

func (s *ScenarioSuite) TestConcurrentThreeAndFour() {
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, n := range []int{3, 4} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.svc.Reserve(s.ctx, request(s.offerID, n))
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, model.ErrInsufficientQuantity)
	}
	s.Equal(1, succeeded, "exactly one reservation should win")

	want := 2
	if errs[0] != nil {
		want = 1
	}
	s.Equal(want, s.quantity())
}

func (s *ScenarioSuite) TestReservationRecord() {
	id, err := s.svc.Reserve(s.ctx, request(s.offerID, 2))
	s.Require().NoError(err)
	s.NotEmpty(id)

	r, err := s.svc.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(s.offerID, r.OfferID)
	s.Equal("Arta", r.CustomerName)
	s.Equal(2, r.Quantity)
	s.Equal(model.ReservationStatusReserved, r.Status)
	s.False(r.CreatedAt.IsZero())
}

func (s *ScenarioSuite) TestCancelThenReserveAgain() {
	id, err := s.svc.Reserve(s.ctx, request(s.offerID, 5))
	s.Require().NoError(err)

	_, err = s.svc.Reserve(s.ctx, request(s.offerID, 1))
	s.Require().ErrorIs(err, model.ErrInsufficientQuantity)

	s.Require().NoError(s.svc.Cancel(s.ctx, id))
	s.Equal(5, s.quantity())

	_, err = s.svc.Reserve(s.ctx, request(s.offerID, 4))
	s.NoError(err)
	s.Equal(1, s.quantity())
}

func (s *ScenarioSuite) TestGetMissing() {
	_, err := s.svc.Get(s.ctx, "missing")
	s.True(errors.Is(err, model.ErrNotFound))
}

func TestScenarioSuite(t *testing.T) {
	suite.Run(t, new(ScenarioSuite))
}

func TestReserveLastBag(t *testing.T) {
	st := store.NewTestStore(t)
	svc := New(st)
	offerID := createOffer(t, st, 1)

	id, err := svc.Reserve(context.Background(), request(offerID, 1))
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Equal(t, 0, quantityOf(t, st, offerID))
}
