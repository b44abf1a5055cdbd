package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/triprepo"
)

type tripRepo struct {
	tx pgx.Tx
}

func (r *tripRepo) Create(ctx context.Context, t domain.Trip) error {
	t = t.Clone()
	t.PassengerIDs = domain.NormalizePassengers(t.PassengerIDs)
	if err := domain.ValidateTrip(t); err != nil {
		return err
	}

	ct, err := r.tx.Exec(ctx, `
		INSERT INTO trips (
			id,
			driver_id,
			price_per_seat,
			status,
			departure_label,
			arrival_label,
			departure_at,
			version,
			created_at,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO NOTHING
	`,
		string(t.ID),
		string(t.DriverID),
		t.PricePerSeat,
		string(t.Status),
		t.DepartureLabel,
		t.ArrivalLabel,
		t.DepartureAt.UTC(),
		t.Version,
		t.CreatedAt.UTC(),
		t.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return triprepo.ErrAlreadyExists
	}

	for _, p := range t.PassengerIDs {
		if _, err := r.tx.Exec(ctx, `
			INSERT INTO trip_passengers (trip_id, passenger_id) VALUES ($1, $2)
		`, string(t.ID), string(p)); err != nil {
			return err
		}
	}
	return nil
}

// GetByID reads the trip and holds its row lock until the unit of work ends.
func (r *tripRepo) GetByID(ctx context.Context, id domain.TripID) (domain.Trip, error) {
	var (
		t      domain.Trip
		tripID string
		driver string
		status string
	)
	err := r.tx.QueryRow(ctx, `
		SELECT
			id,
			driver_id,
			price_per_seat,
			status,
			departure_label,
			arrival_label,
			departure_at,
			version,
			created_at,
			updated_at
		FROM trips
		WHERE id = $1
		FOR UPDATE
	`, string(id)).Scan(
		&tripID,
		&driver,
		&t.PricePerSeat,
		&status,
		&t.DepartureLabel,
		&t.ArrivalLabel,
		&t.DepartureAt,
		&t.Version,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, triprepo.ErrNotFound
		}
		return domain.Trip{}, err
	}
	t.ID = domain.TripID(tripID)
	t.DriverID = domain.UserID(driver)
	t.Status = domain.TripStatus(status)
	t.DepartureAt = t.DepartureAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()

	rows, err := r.tx.Query(ctx, `
		SELECT passenger_id FROM trip_passengers WHERE trip_id = $1 ORDER BY passenger_id
	`, string(id))
	if err != nil {
		return domain.Trip{}, err
	}
	passengers, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return domain.Trip{}, err
	}
	t.PassengerIDs = make([]domain.UserID, 0, len(passengers))
	for _, p := range passengers {
		t.PassengerIDs = append(t.PassengerIDs, domain.UserID(p))
	}

	if err := domain.ValidateTrip(t); err != nil {
		return domain.Trip{}, err
	}
	return t, nil
}

func (r *tripRepo) TransitionToCancelled(ctx context.Context, id domain.TripID, expected domain.TripStatus, at time.Time) (domain.Trip, error) {
	t, err := r.GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, err
	}
	if expected != domain.TripStatusActive || t.Status != expected {
		return domain.Trip{}, triprepo.ErrInvalidState
	}

	if _, err := r.tx.Exec(ctx, `DELETE FROM trip_passengers WHERE trip_id = $1`, string(id)); err != nil {
		return domain.Trip{}, err
	}
	t.Status = domain.TripStatusCancelled
	t.PassengerIDs = []domain.UserID{}
	return r.bump(ctx, t, at)
}

func (r *tripRepo) RemovePassenger(ctx context.Context, id domain.TripID, passenger domain.UserID, at time.Time) (domain.Trip, error) {
	t, err := r.GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, err
	}
	if t.Status != domain.TripStatusActive {
		return domain.Trip{}, triprepo.ErrInvalidState
	}

	ct, err := r.tx.Exec(ctx, `
		DELETE FROM trip_passengers WHERE trip_id = $1 AND passenger_id = $2
	`, string(id), string(passenger))
	if err != nil {
		return domain.Trip{}, err
	}
	if ct.RowsAffected() == 0 {
		return domain.Trip{}, triprepo.ErrNotAMember
	}

	kept := make([]domain.UserID, 0, len(t.PassengerIDs))
	for _, p := range t.PassengerIDs {
		if p != passenger {
			kept = append(kept, p)
		}
	}
	t.PassengerIDs = kept
	return r.bump(ctx, t, at)
}

func (r *tripRepo) bump(ctx context.Context, t domain.Trip, at time.Time) (domain.Trip, error) {
	at = at.UTC()
	err := r.tx.QueryRow(ctx, `
		UPDATE trips
		SET status = $2,
		    version = version + 1,
		    updated_at = $3
		WHERE id = $1
		RETURNING version
	`, string(t.ID), string(t.Status), at).Scan(&t.Version)
	if err != nil {
		return domain.Trip{}, err
	}
	t.UpdatedAt = at
	return t, nil
}
