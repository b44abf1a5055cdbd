package domain

import "time"

// User holds the contact details needed to reach a rider.
type User struct {
	ID          UserID `validate:"required"`
	DisplayName string
	Email       string `validate:"omitempty,email"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
