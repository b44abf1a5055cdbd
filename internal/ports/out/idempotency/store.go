package idempotency

import (
	"context"
	"time"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// Fingerprint identifies a request for replay purposes: key + requester + route + target resource.
// Route is the HTTP method and route template, e.g. "POST /trips/{tripId}/cancellation".
type Fingerprint struct {
	Key       Key
	Requester domain.UserID
	Method    string
	Route     string
	Resource  string
}

// Record is the stored response replayed for a duplicate request.
//
// A record with StatusCode 0 is a reservation: the first request holding the key is still in flight.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

func (r Record) Pending() bool { return r.StatusCode == 0 }

// Store persists responses so a retried request gets the original answer.
//
// Reserve atomically claims fp for the caller. When fp is already claimed it returns the existing
// record and reserved=false; a pending reservation created before staleBefore is taken over instead.
// Complete stores the final response of a pending reservation and never overwrites a completed one.
// Release drops a pending reservation so a later request can run.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Reserve(ctx context.Context, fp Fingerprint, at, staleBefore time.Time) (existing Record, reserved bool, err error)
	Complete(ctx context.Context, fp Fingerprint, rec Record) error
	Release(ctx context.Context, fp Fingerprint) error
}
