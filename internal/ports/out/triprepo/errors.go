package triprepo

import "errors"

var (
	ErrNotFound      = errors.New("trip not found")
	ErrAlreadyExists = errors.New("trip already exists")

	// ErrInvalidState indicates the trip is not in the status the mutation requires.
	ErrInvalidState = errors.New("trip is not in the expected state")

	// ErrNotAMember indicates the passenger is not currently booked on the trip.
	ErrNotAMember = errors.New("passenger is not a member of the trip")
)
