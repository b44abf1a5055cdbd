// Package store is the Postgres primary store for trips, accounts and transactions.
//
// A unit of work is one database transaction. Reading a trip takes its row lock, and account
// rows are locked by the UPDATE that adjusts them, so callers that read the trip first and
// adjust accounts in a fixed order never deadlock each other.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/postgres"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/uow"
)

type Option func(*Store)

// WithLockTimeout sets lock_timeout for each unit of work. A unit that waits longer for a row
// lock fails with uow.ErrConcurrentModification.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

// Store implements uow.UnitOfWork.
type Store struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

func NewStore(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{pool: pool}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r uow.Repos) error) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}

	// fnErr stays nil only when every statement succeeded, so a later error came from COMMIT.
	var (
		began bool
		fnErr error
	)
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		began = true
		if s.lockTimeout > 0 {
			if _, fnErr = tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", s.lockTimeout.Milliseconds())); fnErr != nil {
				return fnErr
			}
		}
		fnErr = fn(ctx, uow.Repos{
			Trips:        &tripRepo{tx: tx},
			Ledger:       &ledgerRepo{tx: tx},
			Transactions: &txLog{tx: tx},
		})
		return fnErr
	})
	switch {
	case err == nil:
		return nil
	case !began:
		return fmt.Errorf("begin transaction: %w", err)
	case postgres.IsContention(err):
		return fmt.Errorf("%w: %w", uow.ErrConcurrentModification, err)
	case fnErr == nil:
		return fmt.Errorf("%w: %w", uow.ErrCommitFailed, err)
	default:
		return err
	}
}

