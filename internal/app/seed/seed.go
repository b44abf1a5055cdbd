// Package seed loads accounts, users and trips from a JSON file into the primary store.
//
// It exists for local and demo deployments: publishing trips and opening accounts are owned by
// other systems. Records that already exist are left as they are, so a seed can be applied on
// every start.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/ledger"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/triprepo"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/uow"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/userrepo"
)

type Account struct {
	ID      string `json:"id"`
	Balance int64  `json:"balance"`
}

type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

type Trip struct {
	ID             string    `json:"id"`
	DriverID       string    `json:"driverId"`
	PassengerIDs   []string  `json:"passengerIds"`
	PricePerSeat   int64     `json:"pricePerSeat"`
	Status         string    `json:"status"` // defaults to active
	DepartureLabel string    `json:"departureLabel"`
	ArrivalLabel   string    `json:"arrivalLabel"`
	DepartureAt    time.Time `json:"departureAt"`
}

type Fixture struct {
	Accounts []Account `json:"accounts"`
	Users    []User    `json:"users"`
	Trips    []Trip    `json:"trips"`
}

// Summary counts the records created; existing ones are skipped.
type Summary struct {
	Accounts int
	Users    int
	Trips    int
	Skipped  int
}

func LoadFile(path string) (Fixture, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read seed file: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(b, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return f, nil
}

// Apply writes accounts and trips in one unit of work, then users.
func Apply(ctx context.Context, u uow.UnitOfWork, users userrepo.Repository, f Fixture, at time.Time, log logrus.FieldLogger) (Summary, error) {
	var sum Summary
	err := u.WithinTx(ctx, func(ctx context.Context, r uow.Repos) error {
		sum = Summary{}
		for _, a := range f.Accounts {
			err := r.Ledger.Open(ctx, domain.AccountID(a.ID), a.Balance, at)
			switch {
			case errors.Is(err, ledger.ErrAccountExists):
				sum.Skipped++
			case err != nil:
				return fmt.Errorf("open account %q: %w", a.ID, err)
			default:
				sum.Accounts++
			}
		}
		for _, t := range f.Trips {
			err := r.Trips.Create(ctx, t.toDomain(at))
			switch {
			case errors.Is(err, triprepo.ErrAlreadyExists):
				sum.Skipped++
			case err != nil:
				return fmt.Errorf("create trip %q: %w", t.ID, err)
			default:
				sum.Trips++
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	for _, usr := range f.Users {
		err := users.Create(ctx, domain.User{
			ID:          domain.UserID(usr.ID),
			DisplayName: usr.DisplayName,
			Email:       usr.Email,
			CreatedAt:   at,
			UpdatedAt:   at,
		})
		switch {
		case errors.Is(err, userrepo.ErrAlreadyExists):
			sum.Skipped++
		case err != nil:
			return sum, fmt.Errorf("create user %q: %w", usr.ID, err)
		default:
			sum.Users++
		}
	}

	log.WithFields(logrus.Fields{
		"accounts": sum.Accounts,
		"users":    sum.Users,
		"trips":    sum.Trips,
		"skipped":  sum.Skipped,
	}).Info("seed applied")
	return sum, nil
}

func (t Trip) toDomain(at time.Time) domain.Trip {
	status := domain.TripStatus(t.Status)
	if status == "" {
		status = domain.TripStatusActive
	}
	passengers := make([]domain.UserID, 0, len(t.PassengerIDs))
	for _, p := range t.PassengerIDs {
		passengers = append(passengers, domain.UserID(p))
	}
	return domain.Trip{
		ID:             domain.TripID(t.ID),
		DriverID:       domain.UserID(t.DriverID),
		PassengerIDs:   passengers,
		PricePerSeat:   t.PricePerSeat,
		Status:         status,
		DepartureLabel: t.DepartureLabel,
		ArrivalLabel:   t.ArrivalLabel,
		DepartureAt:    t.DepartureAt.UTC(),
		Version:        1,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
}
