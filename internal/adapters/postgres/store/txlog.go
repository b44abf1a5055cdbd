package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	postgres "github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/postgres"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/ledger"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/txlog"
)

type txLog struct {
	tx pgx.Tx
}

func (l *txLog) Append(ctx context.Context, rec domain.TransactionRecord) error {
	if err := domain.ValidateTransaction(rec); err != nil {
		return err
	}
	ct, err := l.tx.Exec(ctx, `
		INSERT INTO transactions (
			id,
			account_id,
			amount,
			type,
			description,
			trip_id,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO NOTHING
	`,
		string(rec.ID),
		string(rec.AccountID),
		rec.Amount,
		string(rec.Type),
		rec.Description,
		string(rec.TripID),
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.ForeignKeyViolationCode {
			return ledger.ErrAccountNotFound
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return txlog.ErrDuplicateID
	}
	return nil
}

func (l *txLog) ListByAccount(ctx context.Context, id domain.AccountID) ([]domain.TransactionRecord, error) {
	return l.list(ctx, `WHERE account_id = $1`, string(id))
}

func (l *txLog) ListByTrip(ctx context.Context, id domain.TripID) ([]domain.TransactionRecord, error) {
	return l.list(ctx, `WHERE trip_id = $1`, string(id))
}

func (l *txLog) list(ctx context.Context, where string, arg string) ([]domain.TransactionRecord, error) {
	rows, err := l.tx.Query(ctx, `
		SELECT id, account_id, amount, type, description, trip_id, created_at
		FROM transactions
		`+where+`
		ORDER BY created_at ASC, id ASC
	`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.TransactionRecord, 0)
	for rows.Next() {
		var rec domain.TransactionRecord
		var id, account, typ, tripID string
		if err := rows.Scan(&id, &account, &rec.Amount, &typ, &rec.Description, &tripID, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.ID = domain.TransactionID(id)
		rec.AccountID = domain.AccountID(account)
		rec.Type = domain.TransactionType(typ)
		rec.TripID = domain.TripID(tripID)
		rec.CreatedAt = rec.CreatedAt.UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
