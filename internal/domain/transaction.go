package domain

import "time"

type TransactionType string

const (
	TransactionRefund        TransactionType = "refund"
	TransactionCharge        TransactionType = "charge"
	TransactionFee           TransactionType = "fee"
	TransactionEscrowRelease TransactionType = "escrow_release"
	TransactionFeeReversal   TransactionType = "fee_reversal"
)

// TransactionRecord is one credit movement on one account. Records are append-only
// and exist for audit and history; balances are never derived from them.
type TransactionRecord struct {
	ID        TransactionID   `validate:"required"`
	AccountID AccountID       `validate:"required"`
	Amount    int64           // signed: positive credits the account
	Type      TransactionType `validate:"oneof=refund charge fee escrow_release fee_reversal"`

	Description string
	TripID      TripID

	CreatedAt time.Time `validate:"required"`
}
