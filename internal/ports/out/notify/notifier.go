package notify

import (
	"context"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
)

// Cancellation is the template data for a trip cancellation email.
type Cancellation struct {
	TripID         domain.TripID `json:"tripId"`
	RecipientEmail string        `json:"recipientEmail"`
	RecipientName  string        `json:"recipientName"`
	// TripDate is already localized for the recipient.
	TripDate       string `json:"tripDate"`
	DepartureLabel string `json:"departureLabel"`
	ArrivalLabel   string `json:"arrivalLabel"`
	RefundAmount   int64  `json:"refundAmount"`
}

// Notifier delivers a cancellation notice. Delivery is best-effort and never retried by callers.
type Notifier interface {
	NotifyCancellation(ctx context.Context, c Cancellation) error
}

// Queue accepts notification jobs for asynchronous delivery.
type Queue interface {
	Enqueue(ctx context.Context, c Cancellation) error
}
