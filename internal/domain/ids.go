package domain

// UserID identifies a rider or driver. Its format is controlled by the identity provider.
type UserID string

// TripID is an opaque identifier for a trip record.
type TripID string

// AccountID identifies a credit account. User accounts share the owner's UserID;
// the platform and escrow accounts use reserved ids.
type AccountID string

// TransactionID identifies an appended transaction record.
type TransactionID string

const (
	// AccountPlatform accumulates per-seat service fees.
	AccountPlatform AccountID = "platform"
	// AccountEscrow holds seat prices for trips that have not completed.
	AccountEscrow AccountID = "escrow"
)

// AccountFor returns the credit account owned by a user.
func AccountFor(u UserID) AccountID { return AccountID(u) }

// IsReserved reports whether id is one of the singleton platform accounts.
func (id AccountID) IsReserved() bool {
	return id == AccountPlatform || id == AccountEscrow
}
