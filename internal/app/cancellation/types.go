package cancellation

import (
	"time"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/platform/retry"
)

// Refund is the credit returned to one passenger.
type Refund struct {
	PassengerID domain.UserID
	Amount      int64
}

// Result describes a committed settlement.
type Result struct {
	// Trip is the trip state after commit.
	Trip    domain.Trip
	Refunds []Refund

	EscrowDebit   int64
	PlatformDebit int64

	// MirrorSynced is false when the reporting copy is behind and the trip is queued for retry.
	MirrorSynced        bool
	NotificationsQueued int
}

type Options struct {
	// ServiceFee is the platform fee per seat in credits.
	ServiceFee int64

	// StepTimeout bounds each step: the settlement commit, the mirror sync and each
	// notification enqueue.
	StepTimeout time.Duration

	// Retry governs retries of the settlement on lock contention. Retryable is set by the service.
	Retry retry.Config

	// Location and DateLayout render the trip date shown in notifications.
	Location   *time.Location
	DateLayout string
}

func DefaultOptions() Options {
	return Options{
		ServiceFee:  2,
		StepTimeout: 5 * time.Second,
		Retry:       retry.DefaultConfig(),
		Location:    time.UTC,
		DateLayout:  "Mon 2 Jan 2006",
	}
}

type flow string

const (
	flowDriver    flow = "driver"
	flowPassenger flow = "passenger"
)
