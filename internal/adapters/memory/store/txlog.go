package store

import (
	"context"
	"sort"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/txlog"
)

type txLog struct {
	tx *txState
}

func (l *txLog) Append(ctx context.Context, rec domain.TransactionRecord) error {
	_ = ctx
	if err := l.tx.check(); err != nil {
		return err
	}
	if err := domain.ValidateTransaction(rec); err != nil {
		return err
	}
	if _, ok := l.tx.s.txIDs[rec.ID]; ok {
		return txlog.ErrDuplicateID
	}
	for _, staged := range l.tx.appended {
		if staged.ID == rec.ID {
			return txlog.ErrDuplicateID
		}
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	l.tx.appended = append(l.tx.appended, rec)
	return nil
}

func (l *txLog) ListByAccount(ctx context.Context, id domain.AccountID) ([]domain.TransactionRecord, error) {
	_ = ctx
	return l.filter(func(r domain.TransactionRecord) bool { return r.AccountID == id })
}

func (l *txLog) ListByTrip(ctx context.Context, id domain.TripID) ([]domain.TransactionRecord, error) {
	_ = ctx
	return l.filter(func(r domain.TransactionRecord) bool { return r.TripID == id })
}

func (l *txLog) filter(keep func(domain.TransactionRecord) bool) ([]domain.TransactionRecord, error) {
	if err := l.tx.check(); err != nil {
		return nil, err
	}
	out := make([]domain.TransactionRecord, 0)
	for _, r := range l.tx.s.txs {
		if keep(r) {
			out = append(out, r)
		}
	}
	for _, r := range l.tx.appended {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
