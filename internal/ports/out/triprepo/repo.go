package triprepo

import (
	"context"
	"time"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
)

// Repository owns trip records. Every mutation bumps Trip.Version and UpdatedAt.
type Repository interface {
	// Create stores a new trip. It exists for seeding; publishing trips is not part of this module.
	Create(ctx context.Context, t domain.Trip) error

	GetByID(ctx context.Context, id domain.TripID) (domain.Trip, error)

	// TransitionToCancelled moves the trip to cancelled and clears its passengers.
	// It fails with ErrInvalidState unless the current status equals expected and expected is active.
	TransitionToCancelled(ctx context.Context, id domain.TripID, expected domain.TripStatus, at time.Time) (domain.Trip, error)

	// RemovePassenger removes one passenger from an active trip.
	// It fails with ErrInvalidState if the trip is not active and ErrNotAMember if the
	// passenger is not listed, including on a repeated removal.
	RemovePassenger(ctx context.Context, id domain.TripID, passenger domain.UserID, at time.Time) (domain.Trip, error)
}
