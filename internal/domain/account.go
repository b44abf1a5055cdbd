package domain

import "time"

// Account is a credit balance. Balances are integer credits and never negative.
type Account struct {
	ID             AccountID `validate:"required"`
	Balance        int64     `validate:"gte=0"`
	LastModifiedAt time.Time
}
