package mirror

import (
	"context"
	"sync"
	"time"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/mirror"
)

// Store is an in-memory implementation of mirror.Store.
// It is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	byID map[domain.TripID]mirror.Record
}

func NewStore() *Store {
	return &Store{byID: make(map[domain.TripID]mirror.Record)}
}

func (s *Store) UpsertTrip(ctx context.Context, t domain.Trip, syncedAt time.Time) error {
	_ = ctx
	t = t.Clone()
	t.PassengerIDs = domain.NormalizePassengers(t.PassengerIDs)
	if err := domain.ValidateTrip(t); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.byID[t.ID]; ok && cur.Trip.Version >= t.Version {
		return nil
	}
	s.byID[t.ID] = mirror.Record{Trip: t, SyncedAt: syncedAt.UTC()}
	return nil
}

func (s *Store) GetTrip(ctx context.Context, id domain.TripID) (mirror.Record, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return mirror.Record{}, mirror.ErrNotFound
	}
	rec.Trip = rec.Trip.Clone()
	return rec, nil
}
