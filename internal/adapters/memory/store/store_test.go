package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/uow"
)

func TestStore_LockWaitExpiresWithConcurrentModification(t *testing.T) {
	t.Parallel()

	s := New(WithLockWait(20 * time.Millisecond))
	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- s.WithinTx(context.Background(), func(ctx context.Context, r uow.Repos) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	err := s.WithinTx(context.Background(), func(ctx context.Context, r uow.Repos) error {
		t.Fatalf("second unit must not run while the lock is held")
		return nil
	})
	if !errors.Is(err, uow.ErrConcurrentModification) {
		t.Fatalf("WithinTx err=%v, want %v", err, uow.ErrConcurrentModification)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first unit err=%v", err)
	}
}

func TestStore_CancelledContextDoesNotCommit(t *testing.T) {
	t.Parallel()

	s := New()
	now := time.Unix(100, 0).UTC()
	if err := s.WithinTx(context.Background(), func(ctx context.Context, r uow.Repos) error {
		return r.Ledger.Open(ctx, domain.AccountEscrow, 50, now)
	}); err != nil {
		t.Fatalf("seed err=%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	err := s.WithinTx(ctx, func(ctx context.Context, r uow.Repos) error {
		if _, err := r.Ledger.Adjust(ctx, domain.AccountEscrow, -10, now); err != nil {
			return err
		}
		cancel()
		return nil
	})
	if !errors.Is(err, uow.ErrCommitFailed) {
		t.Fatalf("WithinTx err=%v, want %v", err, uow.ErrCommitFailed)
	}

	_ = s.WithinTx(context.Background(), func(ctx context.Context, r uow.Repos) error {
		a, err := r.Ledger.Get(ctx, domain.AccountEscrow)
		if err != nil || a.Balance != 50 {
			t.Fatalf("escrow=%+v err=%v, want balance 50", a, err)
		}
		return nil
	})
}

func TestStore_ReposUnusableAfterUnitEnds(t *testing.T) {
	t.Parallel()

	s := New()
	var leaked uow.Repos
	_ = s.WithinTx(context.Background(), func(ctx context.Context, r uow.Repos) error {
		leaked = r
		return nil
	})
	if err := leaked.Ledger.Open(context.Background(), "late", 1, time.Now()); !errors.Is(err, errFinished) {
		t.Fatalf("Open after unit err=%v, want %v", err, errFinished)
	}
}

func TestStore_ConcurrentAdjustmentsAreNotLost(t *testing.T) {
	t.Parallel()

	s := New(WithLockWait(0))
	now := time.Unix(100, 0).UTC()
	_ = s.WithinTx(context.Background(), func(ctx context.Context, r uow.Repos) error {
		return r.Ledger.Open(ctx, domain.AccountPlatform, 0, now)
	})

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithinTx(context.Background(), func(ctx context.Context, r uow.Repos) error {
				_, err := r.Ledger.Adjust(ctx, domain.AccountPlatform, 2, now)
				return err
			})
		}()
	}
	wg.Wait()

	_ = s.WithinTx(context.Background(), func(ctx context.Context, r uow.Repos) error {
		a, _ := r.Ledger.Get(ctx, domain.AccountPlatform)
		if a.Balance != 2*n {
			t.Fatalf("platform balance=%d, want %d", a.Balance, 2*n)
		}
		return nil
	})
}

func TestStore_ReturnedTripsAreCopies(t *testing.T) {
	t.Parallel()

	s := New()
	_ = s.WithinTx(context.Background(), func(ctx context.Context, r uow.Repos) error {
		return r.Trips.Create(ctx, domain.Trip{ID: "t1", DriverID: "d1", PassengerIDs: []domain.UserID{"p1"}, Status: domain.TripStatusActive})
	})
	_ = s.WithinTx(context.Background(), func(ctx context.Context, r uow.Repos) error {
		got, _ := r.Trips.GetByID(ctx, "t1")
		got.PassengerIDs[0] = "mutated"
		again, _ := r.Trips.GetByID(ctx, "t1")
		if again.PassengerIDs[0] != "p1" {
			t.Fatalf("store shares slices with callers: %v", again.PassengerIDs)
		}
		return nil
	})
}
