// Package mirror keeps the reporting copy of trips in SQLite.
package mirror

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/mirror"
)

const schema = `
CREATE TABLE IF NOT EXISTS trip_mirror (
	id              TEXT PRIMARY KEY,
	driver_id       TEXT    NOT NULL,
	price_per_seat  INTEGER NOT NULL,
	status          TEXT    NOT NULL,
	departure_label TEXT    NOT NULL DEFAULT '',
	arrival_label   TEXT    NOT NULL DEFAULT '',
	departure_at    TEXT    NOT NULL,
	version         INTEGER NOT NULL,
	created_at      TEXT    NOT NULL,
	updated_at      TEXT    NOT NULL,
	synced_at       TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS trip_mirror_passengers (
	trip_id      TEXT NOT NULL REFERENCES trip_mirror (id) ON DELETE CASCADE,
	passenger_id TEXT NOT NULL,
	PRIMARY KEY (trip_id, passenger_id)
);
`

// Store implements mirror.Store on SQLite.
type Store struct {
	db *sqlx.DB
}

// Open opens (and creates if needed) the mirror database at path. ":memory:" gives a private
// in-process database.
func Open(path string) (*Store, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create mirror directory: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open mirror database: %w", err)
	}
	// One connection: ":memory:" is per-connection and SQLite has a single writer anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create mirror schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

type tripRow struct {
	ID             string `db:"id"`
	DriverID       string `db:"driver_id"`
	PricePerSeat   int64  `db:"price_per_seat"`
	Status         string `db:"status"`
	DepartureLabel string `db:"departure_label"`
	ArrivalLabel   string `db:"arrival_label"`
	DepartureAt    string `db:"departure_at"`
	Version        int64  `db:"version"`
	CreatedAt      string `db:"created_at"`
	UpdatedAt      string `db:"updated_at"`
	SyncedAt       string `db:"synced_at"`
}

func (s *Store) UpsertTrip(ctx context.Context, t domain.Trip, syncedAt time.Time) error {
	t = t.Clone()
	t.PassengerIDs = domain.NormalizePassengers(t.PassengerIDs)
	if err := domain.ValidateTrip(t); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mirror upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.NamedExecContext(ctx, `
		INSERT INTO trip_mirror (
			id, driver_id, price_per_seat, status, departure_label, arrival_label,
			departure_at, version, created_at, updated_at, synced_at
		) VALUES (
			:id, :driver_id, :price_per_seat, :status, :departure_label, :arrival_label,
			:departure_at, :version, :created_at, :updated_at, :synced_at
		)
		ON CONFLICT (id) DO UPDATE SET
			driver_id = excluded.driver_id,
			price_per_seat = excluded.price_per_seat,
			status = excluded.status,
			departure_label = excluded.departure_label,
			arrival_label = excluded.arrival_label,
			departure_at = excluded.departure_at,
			version = excluded.version,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			synced_at = excluded.synced_at
		WHERE excluded.version > trip_mirror.version
	`, toRow(t, syncedAt))
	if err != nil {
		return fmt.Errorf("upsert mirrored trip: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM trip_mirror_passengers WHERE trip_id = ?`, string(t.ID)); err != nil {
		return fmt.Errorf("clear mirrored passengers: %w", err)
	}
	for _, p := range t.PassengerIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO trip_mirror_passengers (trip_id, passenger_id) VALUES (?, ?)
		`, string(t.ID), string(p)); err != nil {
			return fmt.Errorf("insert mirrored passenger: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) GetTrip(ctx context.Context, id domain.TripID) (mirror.Record, error) {
	var row tripRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM trip_mirror WHERE id = ?`, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mirror.Record{}, mirror.ErrNotFound
		}
		return mirror.Record{}, err
	}

	var passengers []string
	if err := s.db.SelectContext(ctx, &passengers, `
		SELECT passenger_id FROM trip_mirror_passengers WHERE trip_id = ? ORDER BY passenger_id
	`, string(id)); err != nil {
		return mirror.Record{}, err
	}
	return fromRow(row, passengers)
}

func toRow(t domain.Trip, syncedAt time.Time) tripRow {
	return tripRow{
		ID:             string(t.ID),
		DriverID:       string(t.DriverID),
		PricePerSeat:   t.PricePerSeat,
		Status:         string(t.Status),
		DepartureLabel: t.DepartureLabel,
		ArrivalLabel:   t.ArrivalLabel,
		DepartureAt:    formatTime(t.DepartureAt),
		Version:        t.Version,
		CreatedAt:      formatTime(t.CreatedAt),
		UpdatedAt:      formatTime(t.UpdatedAt),
		SyncedAt:       formatTime(syncedAt),
	}
}

func fromRow(row tripRow, passengers []string) (mirror.Record, error) {
	var (
		rec mirror.Record
		err error
	)
	t := domain.Trip{
		ID:             domain.TripID(row.ID),
		DriverID:       domain.UserID(row.DriverID),
		PassengerIDs:   make([]domain.UserID, 0, len(passengers)),
		PricePerSeat:   row.PricePerSeat,
		Status:         domain.TripStatus(row.Status),
		DepartureLabel: row.DepartureLabel,
		ArrivalLabel:   row.ArrivalLabel,
		Version:        row.Version,
	}
	for _, p := range passengers {
		t.PassengerIDs = append(t.PassengerIDs, domain.UserID(p))
	}
	if t.DepartureAt, err = parseTime(row.DepartureAt); err != nil {
		return rec, err
	}
	if t.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return rec, err
	}
	if t.UpdatedAt, err = parseTime(row.UpdatedAt); err != nil {
		return rec, err
	}
	if rec.SyncedAt, err = parseTime(row.SyncedAt); err != nil {
		return rec, err
	}
	if err := domain.ValidateTrip(t); err != nil {
		return mirror.Record{}, err
	}
	rec.Trip = t
	return rec, nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse mirrored timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
