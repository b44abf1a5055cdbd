package store

import (
	"context"
	"time"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/ledger"
)

type ledgerRepo struct {
	tx *txState
}

func (l *ledgerRepo) Open(ctx context.Context, id domain.AccountID, balance int64, at time.Time) error {
	_ = ctx
	if err := l.tx.check(); err != nil {
		return err
	}
	if balance < 0 {
		return ledger.ErrNegativeBalance
	}
	if _, ok := l.tx.account(id); ok {
		return ledger.ErrAccountExists
	}
	a := domain.Account{ID: id, Balance: balance, LastModifiedAt: at.UTC()}
	if err := domain.ValidateAccount(a); err != nil {
		return err
	}
	l.tx.accounts[id] = a
	return nil
}

func (l *ledgerRepo) Get(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	_ = ctx
	if err := l.tx.check(); err != nil {
		return domain.Account{}, err
	}
	a, ok := l.tx.account(id)
	if !ok {
		return domain.Account{}, ledger.ErrAccountNotFound
	}
	return a, nil
}

func (l *ledgerRepo) Adjust(ctx context.Context, id domain.AccountID, delta int64, at time.Time) (int64, error) {
	a, err := l.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	next := a.Balance + delta
	if next < 0 {
		return a.Balance, ledger.ErrNegativeBalance
	}
	a.Balance = next
	a.LastModifiedAt = at.UTC()
	l.tx.accounts[id] = a
	return next, nil
}
