package syncqueue

import (
	"context"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
)

// Queue holds trips whose mirror sync failed. It has set semantics: pushing a trip that is
// already pending is a no-op.
type Queue interface {
	Push(ctx context.Context, id domain.TripID) error

	// Pop removes and returns one pending trip. ok is false when the queue is empty.
	Pop(ctx context.Context) (id domain.TripID, ok bool, err error)

	Len(ctx context.Context) (int, error)
}
