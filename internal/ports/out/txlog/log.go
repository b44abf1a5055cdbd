package txlog

import (
	"context"
	"errors"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
)

var ErrDuplicateID = errors.New("transaction id already recorded")

// Log is an append-only record of credit movements.
//
// Result ordering: List methods return records ordered by CreatedAt ascending, then ID.
type Log interface {
	Append(ctx context.Context, rec domain.TransactionRecord) error

	ListByAccount(ctx context.Context, id domain.AccountID) ([]domain.TransactionRecord, error)
	ListByTrip(ctx context.Context, id domain.TripID) ([]domain.TransactionRecord, error)
}
