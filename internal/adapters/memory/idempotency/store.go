package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/idempotency"
)

// Store is an in-memory implementation of idempotency.Store.
// It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex
	m  map[idempotency.Fingerprint]idempotency.Record
}

func NewStore() *Store {
	return &Store{
		m: make(map[idempotency.Fingerprint]idempotency.Record),
	}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.m[fp]
	if !ok {
		return idempotency.Record{}, false, nil
	}
	return copyRecord(rec), true, nil
}

func (s *Store) Reserve(ctx context.Context, fp idempotency.Fingerprint, at, staleBefore time.Time) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.m[fp]; ok && !(rec.Pending() && rec.CreatedAt.Before(staleBefore)) {
		return copyRecord(rec), false, nil
	}
	s.m[fp] = idempotency.Record{CreatedAt: at.UTC()}
	return idempotency.Record{}, true, nil
}

func (s *Store) Complete(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.m[fp]; ok && !cur.Pending() {
		return nil
	}
	s.m[fp] = copyRecord(rec)
	return nil
}

func (s *Store) Release(ctx context.Context, fp idempotency.Fingerprint) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.m[fp]; ok && cur.Pending() {
		delete(s.m, fp)
	}
	return nil
}

func copyRecord(rec idempotency.Record) idempotency.Record {
	rec.Body = append([]byte(nil), rec.Body...)
	return rec
}
