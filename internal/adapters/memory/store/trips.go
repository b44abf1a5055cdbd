package store

import (
	"context"
	"slices"
	"time"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/triprepo"
)

type tripRepo struct {
	tx *txState
}

func (r *tripRepo) Create(ctx context.Context, t domain.Trip) error {
	_ = ctx
	if err := r.tx.check(); err != nil {
		return err
	}
	t = t.Clone()
	t.PassengerIDs = domain.NormalizePassengers(t.PassengerIDs)
	if err := domain.ValidateTrip(t); err != nil {
		return err
	}
	if _, ok := r.tx.trip(t.ID); ok {
		return triprepo.ErrAlreadyExists
	}
	r.tx.trips[t.ID] = t
	return nil
}

func (r *tripRepo) GetByID(ctx context.Context, id domain.TripID) (domain.Trip, error) {
	_ = ctx
	if err := r.tx.check(); err != nil {
		return domain.Trip{}, err
	}
	t, ok := r.tx.trip(id)
	if !ok {
		return domain.Trip{}, triprepo.ErrNotFound
	}
	return t, nil
}

func (r *tripRepo) TransitionToCancelled(ctx context.Context, id domain.TripID, expected domain.TripStatus, at time.Time) (domain.Trip, error) {
	t, err := r.GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, err
	}
	if expected != domain.TripStatusActive || t.Status != expected {
		return domain.Trip{}, triprepo.ErrInvalidState
	}
	t.Status = domain.TripStatusCancelled
	t.PassengerIDs = []domain.UserID{}
	r.touch(&t, at)
	return t.Clone(), nil
}

func (r *tripRepo) RemovePassenger(ctx context.Context, id domain.TripID, passenger domain.UserID, at time.Time) (domain.Trip, error) {
	t, err := r.GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, err
	}
	if t.Status != domain.TripStatusActive {
		return domain.Trip{}, triprepo.ErrInvalidState
	}
	i := slices.Index(t.PassengerIDs, passenger)
	if i < 0 {
		return domain.Trip{}, triprepo.ErrNotAMember
	}
	t.PassengerIDs = slices.Delete(t.PassengerIDs, i, i+1)
	r.touch(&t, at)
	return t.Clone(), nil
}

func (r *tripRepo) touch(t *domain.Trip, at time.Time) {
	t.Version++
	t.UpdatedAt = at.UTC()
	r.tx.trips[t.ID] = t.Clone()
}
