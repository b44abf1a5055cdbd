package domain

import (
	"slices"
	"time"
)

type TripStatus string

const (
	TripStatusActive    TripStatus = "active"
	TripStatusCancelled TripStatus = "cancelled"
	TripStatusCompleted TripStatus = "completed"
)

// IsTerminal reports whether no further transition may leave s.
func (s TripStatus) IsTerminal() bool {
	return s == TripStatusCancelled || s == TripStatusCompleted
}

// Trip is a driver-posted trip and the riders holding seats on it.
type Trip struct {
	ID       TripID `validate:"required"`
	DriverID UserID `validate:"required"`

	// PassengerIDs is a set; stores keep it sorted and free of duplicates.
	PassengerIDs []UserID `validate:"dive,required"`

	PricePerSeat int64      `validate:"gte=0"`
	Status       TripStatus `validate:"oneof=active cancelled completed"`

	DepartureLabel string
	ArrivalLabel   string
	DepartureAt    time.Time

	// Version increments on every mutation of the trip.
	Version int64 `validate:"gte=0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t Trip) HasPassenger(id UserID) bool {
	return slices.Contains(t.PassengerIDs, id)
}

// Clone returns a copy that shares no slices with t.
func (t Trip) Clone() Trip {
	cp := t
	if t.PassengerIDs != nil {
		cp.PassengerIDs = append([]UserID(nil), t.PassengerIDs...)
	}
	return cp
}

// NormalizePassengers sorts ids and removes duplicates.
func NormalizePassengers(ids []UserID) []UserID {
	out := append([]UserID{}, ids...)
	slices.Sort(out)
	return slices.Compact(out)
}
