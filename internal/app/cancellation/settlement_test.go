package cancellation

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/triprepo"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/uow"
)

func seqIDs() func() domain.TransactionID {
	n := 0
	return func() domain.TransactionID {
		n++
		return domain.TransactionID(fmt.Sprintf("tx-%d", n))
	}
}

func TestPlanSettlement_DriverCancellation(t *testing.T) {
	t.Parallel()

	at := time.Unix(1700000000, 0).UTC()
	trip := domain.Trip{ID: "t1", DriverID: "d1", PricePerSeat: 10, DepartureLabel: "A", ArrivalLabel: "B"}

	s, err := planSettlement(trip, flowDriver, []domain.UserID{"p3", "p1", "p2"}, 2, at, seqIDs())
	if err != nil {
		t.Fatalf("planSettlement: %v", err)
	}
	if s.escrowDebit != 30 || s.platformDebit != 6 {
		t.Fatalf("debits = %d/%d, want 30/6", s.escrowDebit, s.platformDebit)
	}
	want := []adjustment{
		{Account: domain.AccountEscrow, Delta: -30},
		{Account: domain.AccountPlatform, Delta: -6},
		{Account: "p1", Delta: 12},
		{Account: "p2", Delta: 12},
		{Account: "p3", Delta: 12},
	}
	if len(s.adjustments) != len(want) {
		t.Fatalf("adjustments = %+v", s.adjustments)
	}
	for i := range want {
		if s.adjustments[i] != want[i] {
			t.Fatalf("adjustment %d = %+v, want %+v", i, s.adjustments[i], want[i])
		}
	}
	if s.net() != 0 {
		t.Fatalf("net = %d", s.net())
	}
	if len(s.records) != 5 {
		t.Fatalf("records = %d, want 5", len(s.records))
	}
	for _, r := range s.records {
		if err := domain.ValidateTransaction(r); err != nil {
			t.Fatalf("record %s invalid: %v", r.ID, err)
		}
		if r.TripID != "t1" || !r.CreatedAt.Equal(at) {
			t.Fatalf("record %+v not stamped with trip and time", r)
		}
	}
	if s.records[0].Type != domain.TransactionEscrowRelease || s.records[1].Type != domain.TransactionFeeReversal {
		t.Fatalf("unexpected record order: %s, %s", s.records[0].Type, s.records[1].Type)
	}
}

func TestPlanSettlement_ZeroMovementsAreSkipped(t *testing.T) {
	t.Parallel()

	trip := domain.Trip{ID: "t1", DriverID: "d1", PricePerSeat: 0}
	s, err := planSettlement(trip, flowPassenger, []domain.UserID{"p1"}, 0, time.Unix(1, 0), seqIDs())
	if err != nil {
		t.Fatalf("planSettlement: %v", err)
	}
	if len(s.adjustments) != 0 || len(s.records) != 0 {
		t.Fatalf("free seat produced movements: %+v %+v", s.adjustments, s.records)
	}
	if len(s.refunds) != 1 || s.refunds[0].Amount != 0 {
		t.Fatalf("refunds = %+v", s.refunds)
	}

	s, err = planSettlement(domain.Trip{ID: "t2", PricePerSeat: 10}, flowDriver, nil, 2, time.Unix(1, 0), seqIDs())
	if err != nil {
		t.Fatalf("planSettlement without passengers: %v", err)
	}
	if len(s.adjustments) != 0 {
		t.Fatalf("empty trip produced adjustments: %+v", s.adjustments)
	}
}

func TestPlanSettlement_RejectsOverflowAndNegativeInputs(t *testing.T) {
	t.Parallel()

	big := domain.Trip{ID: "t1", PricePerSeat: math.MaxInt64 / 2}
	if _, err := planSettlement(big, flowDriver, []domain.UserID{"a", "b", "c"}, 2, time.Unix(1, 0), seqIDs()); err == nil {
		t.Fatalf("expected overflow error")
	}
	if _, err := planSettlement(domain.Trip{ID: "t1", PricePerSeat: 5}, flowDriver, []domain.UserID{"a"}, -1, time.Unix(1, 0), seqIDs()); err == nil {
		t.Fatalf("expected negative fee error")
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err    error
		kind   error
		status int
	}{
		{triprepo.ErrNotFound, ErrNotFound, 404},
		{fmt.Errorf("remove: %w", triprepo.ErrNotAMember), ErrUnauthorized, 403},
		{triprepo.ErrInvalidState, ErrInvalidState, 409},
		{fmt.Errorf("%w: lock timeout", uow.ErrConcurrentModification), ErrConcurrentModification, 503},
		{uow.ErrCommitFailed, ErrSettlementCommitFailed, 503},
		{errUnbalanced, ErrSettlementCommitFailed, 503},
		{errNotDriver(), ErrUnauthorized, 403},
	}
	for _, tc := range cases {
		got := classify(tc.err)
		if !errors.Is(got, tc.kind) || got.Status != tc.status {
			t.Fatalf("classify(%v) = %v (%d), want %v (%d)", tc.err, got.Kind, got.Status, tc.kind, tc.status)
		}
	}
}
