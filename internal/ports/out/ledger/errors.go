package ledger

import "errors"

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")

	// ErrNegativeBalance indicates an adjustment would take a balance below zero.
	// For the reserved accounts this means the ledger is inconsistent.
	ErrNegativeBalance = errors.New("adjustment would make balance negative")
)
