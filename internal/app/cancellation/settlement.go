package cancellation

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
)

var errUnbalanced = errors.New("settlement does not net to zero")

type adjustment struct {
	Account domain.AccountID
	Delta   int64
}

// settlement is the complete set of ledger movements for one cancellation event.
type settlement struct {
	// adjustments are applied in order: escrow, platform, then passengers sorted by id.
	adjustments []adjustment
	records     []domain.TransactionRecord
	refunds     []Refund

	escrowDebit   int64
	platformDebit int64
}

// planSettlement refunds every listed passenger pricePerSeat+fee, funded by escrow (the seat
// prices) and the platform account (the fees). It performs no I/O.
func planSettlement(t domain.Trip, f flow, passengers []domain.UserID, fee int64, at time.Time, newID func() domain.TransactionID) (settlement, error) {
	price := t.PricePerSeat
	if price < 0 || fee < 0 {
		return settlement{}, fmt.Errorf("negative price %d or fee %d", price, fee)
	}
	passengers = domain.NormalizePassengers(passengers)
	n := int64(len(passengers))
	if price > math.MaxInt64-fee || (n > 0 && price+fee > math.MaxInt64/n) {
		return settlement{}, fmt.Errorf("settlement of %d seats at %d credits overflows", n, price+fee)
	}

	refund := price + fee
	s := settlement{
		escrowDebit:   price * n,
		platformDebit: fee * n,
	}
	reason := "trip cancelled by driver"
	if f == flowPassenger {
		reason = "passenger withdrew from trip"
	}
	record := func(acct domain.AccountID, amount int64, typ domain.TransactionType, desc string) {
		s.records = append(s.records, domain.TransactionRecord{
			ID:          newID(),
			AccountID:   acct,
			Amount:      amount,
			Type:        typ,
			Description: desc,
			TripID:      t.ID,
			CreatedAt:   at,
		})
	}

	if s.escrowDebit > 0 {
		s.adjustments = append(s.adjustments, adjustment{Account: domain.AccountEscrow, Delta: -s.escrowDebit})
		record(domain.AccountEscrow, -s.escrowDebit, domain.TransactionEscrowRelease, fmt.Sprintf("escrow released: %s", reason))
	}
	if s.platformDebit > 0 {
		s.adjustments = append(s.adjustments, adjustment{Account: domain.AccountPlatform, Delta: -s.platformDebit})
		record(domain.AccountPlatform, -s.platformDebit, domain.TransactionFeeReversal, fmt.Sprintf("service fees returned: %s", reason))
	}
	for _, p := range passengers {
		s.refunds = append(s.refunds, Refund{PassengerID: p, Amount: refund})
		if refund == 0 {
			continue
		}
		s.adjustments = append(s.adjustments, adjustment{Account: domain.AccountFor(p), Delta: refund})
		record(domain.AccountFor(p), refund, domain.TransactionRefund, fmt.Sprintf("refund: %s (%s to %s)", reason, t.DepartureLabel, t.ArrivalLabel))
	}

	if s.net() != 0 {
		return settlement{}, errUnbalanced
	}
	return s, nil
}

// net is the sum of all balance deltas. A valid settlement nets to zero.
func (s settlement) net() int64 {
	var sum int64
	for _, a := range s.adjustments {
		sum += a.Delta
	}
	return sum
}
