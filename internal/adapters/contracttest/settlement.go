package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
	ledgerport "github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/ledger"
	triprepoport "github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/triprepo"
	txlogport "github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/txlog"
	uowport "github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/uow"
)

type UnitOfWorkFactory func(t *testing.T) (uowport.UnitOfWork, CleanupFunc)

var errRollback = errors.New("contracttest: rollback")

// RunSettlementStore exercises the trip, ledger and transaction stores through a unit of work.
// Ids are random so the suite can run against a shared database; the reserved accounts are
// opened if missing and asserted by delta.
func RunSettlementStore(t *testing.T, newUoW UnitOfWorkFactory) {
	t.Helper()
	ctx := context.Background()

	u, cleanup := newUoW(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(5000, 0).UTC()
	tx := func(name string, fn func(ctx context.Context, r uowport.Repos) error) {
		t.Helper()
		if err := u.WithinTx(ctx, fn); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}
	balance := func(id domain.AccountID) int64 {
		t.Helper()
		var b int64
		tx("Get "+string(id), func(ctx context.Context, r uowport.Repos) error {
			a, err := r.Ledger.Get(ctx, id)
			b = a.Balance
			return err
		})
		return b
	}

	p1 := domain.UserID(uuid.NewString())
	p2 := domain.UserID(uuid.NewString())
	driver := domain.UserID(uuid.NewString())
	tripID := domain.TripID(uuid.NewString())

	tx("seed", func(ctx context.Context, r uowport.Repos) error {
		for _, id := range []domain.AccountID{domain.AccountEscrow, domain.AccountPlatform} {
			if err := r.Ledger.Open(ctx, id, 0, now); err != nil && !errors.Is(err, ledgerport.ErrAccountExists) {
				return err
			}
		}
		for _, id := range []domain.UserID{p1, p2, driver} {
			if err := r.Ledger.Open(ctx, domain.AccountFor(id), 10, now); err != nil {
				return err
			}
		}
		return r.Trips.Create(ctx, domain.Trip{
			ID:             tripID,
			DriverID:       driver,
			PassengerIDs:   []domain.UserID{p2, p1, p2},
			PricePerSeat:   8,
			Status:         domain.TripStatusActive,
			DepartureLabel: "Berkeley",
			ArrivalLabel:   "Yosemite",
			DepartureAt:    now.Add(24 * time.Hour),
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	})

	// Trips: read-back, duplicate and missing.
	tx("GetByID", func(ctx context.Context, r uowport.Repos) error {
		got, err := r.Trips.GetByID(ctx, tripID)
		if err != nil {
			return err
		}
		if got.DriverID != driver || got.PricePerSeat != 8 || got.Status != domain.TripStatusActive {
			t.Fatalf("GetByID=%+v", got)
		}
		if len(got.PassengerIDs) != 2 || !got.HasPassenger(p1) || !got.HasPassenger(p2) {
			t.Fatalf("expected normalized passengers, got %v", got.PassengerIDs)
		}
		if got.PassengerIDs[0] > got.PassengerIDs[1] {
			t.Fatalf("passengers not sorted: %v", got.PassengerIDs)
		}
		return nil
	})
	if err := u.WithinTx(ctx, func(ctx context.Context, r uowport.Repos) error {
		return r.Trips.Create(ctx, domain.Trip{ID: tripID, DriverID: driver, Status: domain.TripStatusActive})
	}); !errors.Is(err, triprepoport.ErrAlreadyExists) {
		t.Fatalf("Create duplicate err=%v, want %v", err, triprepoport.ErrAlreadyExists)
	}
	if err := u.WithinTx(ctx, func(ctx context.Context, r uowport.Repos) error {
		_, err := r.Trips.GetByID(ctx, domain.TripID(uuid.NewString()))
		return err
	}); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("GetByID missing err=%v, want %v", err, triprepoport.ErrNotFound)
	}

	// Ledger: adjust, missing account, negative balance.
	tx("Adjust", func(ctx context.Context, r uowport.Repos) error {
		b, err := r.Ledger.Adjust(ctx, domain.AccountFor(p1), 5, now.Add(time.Minute))
		if err != nil {
			return err
		}
		if b != 15 {
			t.Fatalf("Adjust balance=%d, want 15", b)
		}
		return nil
	})
	tx("Get adjusted", func(ctx context.Context, r uowport.Repos) error {
		a, err := r.Ledger.Get(ctx, domain.AccountFor(p1))
		if err != nil {
			return err
		}
		if a.Balance != 15 || !a.LastModifiedAt.Equal(now.Add(time.Minute)) {
			t.Fatalf("Get=%+v", a)
		}
		return nil
	})
	if err := u.WithinTx(ctx, func(ctx context.Context, r uowport.Repos) error {
		_, err := r.Ledger.Adjust(ctx, domain.AccountID(uuid.NewString()), 1, now)
		return err
	}); !errors.Is(err, ledgerport.ErrAccountNotFound) {
		t.Fatalf("Adjust missing err=%v, want %v", err, ledgerport.ErrAccountNotFound)
	}
	if err := u.WithinTx(ctx, func(ctx context.Context, r uowport.Repos) error {
		_, err := r.Ledger.Adjust(ctx, domain.AccountFor(p2), -11, now)
		return err
	}); !errors.Is(err, ledgerport.ErrNegativeBalance) {
		t.Fatalf("Adjust below zero err=%v, want %v", err, ledgerport.ErrNegativeBalance)
	}
	if b := balance(domain.AccountFor(p2)); b != 10 {
		t.Fatalf("balance after rejected adjust=%d, want 10", b)
	}
	if err := u.WithinTx(ctx, func(ctx context.Context, r uowport.Repos) error {
		return r.Ledger.Open(ctx, domain.AccountFor(p2), 0, now)
	}); !errors.Is(err, ledgerport.ErrAccountExists) {
		t.Fatalf("Open duplicate err=%v, want %v", err, ledgerport.ErrAccountExists)
	}

	// Rollback: nothing written by a failed unit is observable.
	escrowBefore := balance(domain.AccountEscrow)
	if err := u.WithinTx(ctx, func(ctx context.Context, r uowport.Repos) error {
		if _, err := r.Ledger.Adjust(ctx, domain.AccountEscrow, 100, now); err != nil {
			return err
		}
		if _, err := r.Trips.RemovePassenger(ctx, tripID, p1, now); err != nil {
			return err
		}
		if err := r.Transactions.Append(ctx, domain.TransactionRecord{
			ID: domain.TransactionID(uuid.NewString()), AccountID: domain.AccountEscrow,
			Amount: 100, Type: domain.TransactionCharge, TripID: tripID, CreatedAt: now,
		}); err != nil {
			return err
		}
		return errRollback
	}); !errors.Is(err, errRollback) {
		t.Fatalf("rollback unit err=%v, want %v", err, errRollback)
	}
	if b := balance(domain.AccountEscrow); b != escrowBefore {
		t.Fatalf("escrow after rollback=%d, want %d", b, escrowBefore)
	}
	tx("after rollback", func(ctx context.Context, r uowport.Repos) error {
		got, err := r.Trips.GetByID(ctx, tripID)
		if err != nil {
			return err
		}
		if !got.HasPassenger(p1) || got.Version != 0 {
			t.Fatalf("trip changed by rolled back unit: %+v", got)
		}
		recs, err := r.Transactions.ListByTrip(ctx, tripID)
		if err != nil {
			return err
		}
		if len(recs) != 0 {
			t.Fatalf("records after rollback: %+v", recs)
		}
		return nil
	})

	// RemovePassenger: removes once, then reports non-membership.
	tx("RemovePassenger", func(ctx context.Context, r uowport.Repos) error {
		got, err := r.Trips.RemovePassenger(ctx, tripID, p1, now.Add(time.Hour))
		if err != nil {
			return err
		}
		if got.HasPassenger(p1) || !got.HasPassenger(p2) || got.Version != 1 || got.Status != domain.TripStatusActive {
			t.Fatalf("RemovePassenger=%+v", got)
		}
		if !got.UpdatedAt.Equal(now.Add(time.Hour)) {
			t.Fatalf("UpdatedAt=%v", got.UpdatedAt)
		}
		return nil
	})
	if err := u.WithinTx(ctx, func(ctx context.Context, r uowport.Repos) error {
		_, err := r.Trips.RemovePassenger(ctx, tripID, p1, now)
		return err
	}); !errors.Is(err, triprepoport.ErrNotAMember) {
		t.Fatalf("RemovePassenger repeat err=%v, want %v", err, triprepoport.ErrNotAMember)
	}

	// TransitionToCancelled: only from active, clears passengers.
	if err := u.WithinTx(ctx, func(ctx context.Context, r uowport.Repos) error {
		_, err := r.Trips.TransitionToCancelled(ctx, tripID, domain.TripStatusCancelled, now)
		return err
	}); !errors.Is(err, triprepoport.ErrInvalidState) {
		t.Fatalf("TransitionToCancelled(expected=cancelled) err=%v, want %v", err, triprepoport.ErrInvalidState)
	}
	tx("TransitionToCancelled", func(ctx context.Context, r uowport.Repos) error {
		got, err := r.Trips.TransitionToCancelled(ctx, tripID, domain.TripStatusActive, now.Add(2*time.Hour))
		if err != nil {
			return err
		}
		if got.Status != domain.TripStatusCancelled || len(got.PassengerIDs) != 0 || got.Version != 2 {
			t.Fatalf("TransitionToCancelled=%+v", got)
		}
		return nil
	})
	if err := u.WithinTx(ctx, func(ctx context.Context, r uowport.Repos) error {
		_, err := r.Trips.TransitionToCancelled(ctx, tripID, domain.TripStatusActive, now)
		return err
	}); !errors.Is(err, triprepoport.ErrInvalidState) {
		t.Fatalf("TransitionToCancelled repeat err=%v, want %v", err, triprepoport.ErrInvalidState)
	}
	if err := u.WithinTx(ctx, func(ctx context.Context, r uowport.Repos) error {
		_, err := r.Trips.RemovePassenger(ctx, tripID, p2, now)
		return err
	}); !errors.Is(err, triprepoport.ErrInvalidState) {
		t.Fatalf("RemovePassenger on cancelled err=%v, want %v", err, triprepoport.ErrInvalidState)
	}

	// Transactions: ordering, filtering, duplicate ids.
	first := domain.TransactionRecord{
		ID: domain.TransactionID(uuid.NewString()), AccountID: domain.AccountFor(p1),
		Amount: 8, Type: domain.TransactionRefund, Description: "refund", TripID: tripID, CreatedAt: now.Add(2 * time.Minute),
	}
	second := domain.TransactionRecord{
		ID: domain.TransactionID(uuid.NewString()), AccountID: domain.AccountEscrow,
		Amount: -8, Type: domain.TransactionEscrowRelease, TripID: tripID, CreatedAt: now.Add(time.Minute),
	}
	tx("Append", func(ctx context.Context, r uowport.Repos) error {
		if err := r.Transactions.Append(ctx, first); err != nil {
			return err
		}
		return r.Transactions.Append(ctx, second)
	})
	if err := u.WithinTx(ctx, func(ctx context.Context, r uowport.Repos) error {
		return r.Transactions.Append(ctx, first)
	}); !errors.Is(err, txlogport.ErrDuplicateID) {
		t.Fatalf("Append duplicate err=%v, want %v", err, txlogport.ErrDuplicateID)
	}
	if err := u.WithinTx(ctx, func(ctx context.Context, r uowport.Repos) error {
		return r.Transactions.Append(ctx, domain.TransactionRecord{ID: domain.TransactionID(uuid.NewString()), Type: "bonus"})
	}); !errors.Is(err, domain.ErrMalformedRecord) {
		t.Fatalf("Append malformed err=%v, want %v", err, domain.ErrMalformedRecord)
	}
	tx("ListByTrip", func(ctx context.Context, r uowport.Repos) error {
		recs, err := r.Transactions.ListByTrip(ctx, tripID)
		if err != nil {
			return err
		}
		if len(recs) != 2 || recs[0].ID != second.ID || recs[1].ID != first.ID {
			t.Fatalf("ListByTrip=%+v, want [second first]", recs)
		}
		if recs[1].Amount != 8 || recs[1].Type != domain.TransactionRefund || recs[1].Description != "refund" {
			t.Fatalf("ListByTrip[1]=%+v", recs[1])
		}
		byAcct, err := r.Transactions.ListByAccount(ctx, domain.AccountFor(p1))
		if err != nil {
			return err
		}
		if len(byAcct) != 1 || byAcct[0].ID != first.ID {
			t.Fatalf("ListByAccount=%+v", byAcct)
		}
		return nil
	})
}
