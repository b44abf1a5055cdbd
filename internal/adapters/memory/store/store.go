// Package store is an in-memory primary store for trips, accounts and transactions.
//
// Every unit of work holds the store's exclusive lock for its whole duration and writes into a
// private staging area; staged writes are copied into the store only when the unit succeeds.
// The escrow and platform accounts are touched by every settlement, so settlements are fully
// serialized here.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/uow"
)

var errFinished = errors.New("unit of work already finished")

type Option func(*Store)

// WithLockWait bounds how long a unit of work waits for the store lock before failing with
// uow.ErrConcurrentModification. Zero waits until the context ends.
func WithLockWait(d time.Duration) Option {
	return func(s *Store) { s.lockWait = d }
}

// Store implements uow.UnitOfWork. It is safe for concurrent use.
type Store struct {
	sem      chan struct{}
	lockWait time.Duration

	trips    map[domain.TripID]domain.Trip
	accounts map[domain.AccountID]domain.Account
	txs      []domain.TransactionRecord
	txIDs    map[domain.TransactionID]struct{}
}

func New(opts ...Option) *Store {
	s := &Store{
		sem:      make(chan struct{}, 1),
		lockWait: 2 * time.Second,
		trips:    make(map[domain.TripID]domain.Trip),
		accounts: make(map[domain.AccountID]domain.Account),
		txIDs:    make(map[domain.TransactionID]struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r uow.Repos) error) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	tx := newTxState(s)
	defer func() { tx.done = true }()

	if err := fn(ctx, tx.repos()); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", uow.ErrCommitFailed, err)
	}
	tx.commit()
	return nil
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	default:
	}

	var timeout <-chan time.Time
	if s.lockWait > 0 {
		t := time.NewTimer(s.lockWait)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-timeout:
		return fmt.Errorf("%w: store lock not acquired within %s", uow.ErrConcurrentModification, s.lockWait)
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", uow.ErrConcurrentModification, ctx.Err())
	}
}

func (s *Store) release() { <-s.sem }

// txState stages the writes of one unit of work.
type txState struct {
	s    *Store
	done bool

	trips    map[domain.TripID]domain.Trip
	accounts map[domain.AccountID]domain.Account
	appended []domain.TransactionRecord
}

func newTxState(s *Store) *txState {
	return &txState{
		s:        s,
		trips:    make(map[domain.TripID]domain.Trip),
		accounts: make(map[domain.AccountID]domain.Account),
	}
}

func (t *txState) repos() uow.Repos {
	return uow.Repos{
		Trips:        &tripRepo{tx: t},
		Ledger:       &ledgerRepo{tx: t},
		Transactions: &txLog{tx: t},
	}
}

func (t *txState) check() error {
	if t.done {
		return errFinished
	}
	return nil
}

func (t *txState) trip(id domain.TripID) (domain.Trip, bool) {
	if v, ok := t.trips[id]; ok {
		return v.Clone(), true
	}
	v, ok := t.s.trips[id]
	return v.Clone(), ok
}

func (t *txState) account(id domain.AccountID) (domain.Account, bool) {
	if v, ok := t.accounts[id]; ok {
		return v, true
	}
	v, ok := t.s.accounts[id]
	return v, ok
}

func (t *txState) commit() {
	for id, v := range t.trips {
		t.s.trips[id] = v
	}
	for id, v := range t.accounts {
		t.s.accounts[id] = v
	}
	for _, rec := range t.appended {
		t.s.txs = append(t.s.txs, rec)
		t.s.txIDs[rec.ID] = struct{}{}
	}
}
