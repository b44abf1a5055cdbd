package userrepo

import (
	"context"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
)

// Repository provides read access to user contact details.
// Profile management lives elsewhere; Create exists for seeding.
type Repository interface {
	Create(ctx context.Context, u domain.User) error
	GetByID(ctx context.Context, id domain.UserID) (domain.User, error)
}
