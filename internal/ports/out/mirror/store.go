package mirror

import (
	"context"
	"errors"
	"time"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
)

var ErrNotFound = errors.New("mirrored trip not found")

// Record is the mirrored shape of a trip.
type Record struct {
	Trip     domain.Trip
	SyncedAt time.Time
}

// Store is the secondary reporting copy of trips, keyed by trip id.
//
// UpsertTrip is idempotent: a trip whose Version is not newer than the stored one leaves the
// stored record unchanged, so replays never duplicate or regress a record.
type Store interface {
	UpsertTrip(ctx context.Context, t domain.Trip, syncedAt time.Time) error
	GetTrip(ctx context.Context, id domain.TripID) (Record, error)
}
