package ledger

import (
	"context"
	"time"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
)

// Ledger is the only writer of account balances.
//
// Adjust is an atomic read-modify-write on a single account: concurrent adjustments of the
// same account never lose updates.
type Ledger interface {
	// Open creates an account with an opening balance. It exists for seeding.
	Open(ctx context.Context, id domain.AccountID, balance int64, at time.Time) error

	Get(ctx context.Context, id domain.AccountID) (domain.Account, error)

	// Adjust applies a signed delta and returns the new balance.
	Adjust(ctx context.Context, id domain.AccountID, delta int64, at time.Time) (int64, error)
}
