package uow

import (
	"context"
	"errors"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/ledger"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/triprepo"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/txlog"
)

var (
	// ErrConcurrentModification indicates lock contention or a serialization conflict.
	// The whole unit was rolled back and may be retried.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrCommitFailed indicates the commit itself failed. Nothing was applied.
	ErrCommitFailed = errors.New("commit failed")
)

// Repos are the stores bound to one unit of work. They must not be used after fn returns.
type Repos struct {
	Trips        triprepo.Repository
	Ledger       ledger.Ledger
	Transactions txlog.Log
}

// UnitOfWork runs fn as one atomic unit across trips, accounts and transactions.
// If fn returns an error, or the commit fails, none of fn's writes are observable.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}
