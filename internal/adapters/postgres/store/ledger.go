package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	postgres "github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/postgres"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/ledger"
)

type ledgerRepo struct {
	tx pgx.Tx
}

func (l *ledgerRepo) Open(ctx context.Context, id domain.AccountID, balance int64, at time.Time) error {
	if balance < 0 {
		return ledger.ErrNegativeBalance
	}
	if err := domain.ValidateAccount(domain.Account{ID: id, Balance: balance}); err != nil {
		return err
	}
	ct, err := l.tx.Exec(ctx, `
		INSERT INTO accounts (id, balance, last_modified_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, string(id), balance, at.UTC())
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ledger.ErrAccountExists
	}
	return nil
}

func (l *ledgerRepo) Get(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	a := domain.Account{ID: id}
	err := l.tx.QueryRow(ctx, `
		SELECT balance, last_modified_at FROM accounts WHERE id = $1
	`, string(id)).Scan(&a.Balance, &a.LastModifiedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, ledger.ErrAccountNotFound
		}
		return domain.Account{}, err
	}
	a.LastModifiedAt = a.LastModifiedAt.UTC()
	if err := domain.ValidateAccount(a); err != nil {
		return domain.Account{}, err
	}
	return a, nil
}

// Adjust applies delta in a single UPDATE so the read-modify-write happens under the row lock.
func (l *ledgerRepo) Adjust(ctx context.Context, id domain.AccountID, delta int64, at time.Time) (int64, error) {
	var balance int64
	err := l.tx.QueryRow(ctx, `
		UPDATE accounts
		SET balance = balance + $2,
		    last_modified_at = $3
		WHERE id = $1 AND balance + $2 >= 0
		RETURNING balance
	`, string(id), delta, at.UTC()).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.CheckViolationCode {
		return 0, ledger.ErrNegativeBalance
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	a, err := l.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return a.Balance, ledger.ErrNegativeBalance
}
