package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/idempotency"
)

// Store is a Postgres implementation of idempotency.Store.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if s.pool == nil {
		return idempotency.Record{}, false, errors.New("nil postgres pool")
	}
	row := s.pool.QueryRow(ctx, `
		SELECT status_code, content_type, body, created_at
		FROM idempotency_keys
		WHERE idempotency_key = $1
		  AND requester = $2
		  AND method = $3
		  AND route = $4
		  AND resource = $5
	`,
		string(fp.Key),
		string(fp.Requester),
		fp.Method,
		fp.Route,
		fp.Resource,
	)
	var rec idempotency.Record
	if err := row.Scan(&rec.StatusCode, &rec.ContentType, &rec.Body, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return idempotency.Record{}, false, nil
		}
		return idempotency.Record{}, false, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, true, nil
}

// Reserve inserts a pending row, or takes over a stale pending one. The upsert's WHERE clause
// leaves completed and live reservations untouched, in which case no row is returned.
func (s *Store) Reserve(ctx context.Context, fp idempotency.Fingerprint, at, staleBefore time.Time) (idempotency.Record, bool, error) {
	if s.pool == nil {
		return idempotency.Record{}, false, errors.New("nil postgres pool")
	}
	var status int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO idempotency_keys (
			idempotency_key,
			requester,
			method,
			route,
			resource,
			status_code,
			content_type,
			body,
			created_at
		) VALUES ($1,$2,$3,$4,$5,0,'','',$6)
		ON CONFLICT (idempotency_key, requester, method, route, resource)
		DO UPDATE SET created_at = EXCLUDED.created_at
		WHERE idempotency_keys.status_code = 0
		  AND idempotency_keys.created_at < $7
		RETURNING status_code
	`,
		string(fp.Key),
		string(fp.Requester),
		fp.Method,
		fp.Route,
		fp.Resource,
		at.UTC(),
		staleBefore.UTC(),
	).Scan(&status)
	if err == nil {
		return idempotency.Record{}, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return idempotency.Record{}, false, err
	}

	rec, ok, err := s.Get(ctx, fp)
	if err != nil {
		return idempotency.Record{}, false, err
	}
	if !ok {
		// Released between the upsert and the read; the holder is still settling.
		return idempotency.Record{CreatedAt: at.UTC()}, false, nil
	}
	return rec, false, nil
}

// Complete records the final response. A completed row is never overwritten.
func (s *Store) Complete(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	body := rec.Body
	if body == nil {
		body = []byte{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (
			idempotency_key,
			requester,
			method,
			route,
			resource,
			status_code,
			content_type,
			body,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (idempotency_key, requester, method, route, resource)
		DO UPDATE SET
			status_code = EXCLUDED.status_code,
			content_type = EXCLUDED.content_type,
			body = EXCLUDED.body,
			created_at = EXCLUDED.created_at
		WHERE idempotency_keys.status_code = 0
	`,
		string(fp.Key),
		string(fp.Requester),
		fp.Method,
		fp.Route,
		fp.Resource,
		rec.StatusCode,
		rec.ContentType,
		body,
		createdAt.UTC(),
	)
	return err
}

func (s *Store) Release(ctx context.Context, fp idempotency.Fingerprint) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	_, err := s.pool.Exec(ctx, `
		DELETE FROM idempotency_keys
		WHERE idempotency_key = $1
		  AND requester = $2
		  AND method = $3
		  AND route = $4
		  AND resource = $5
		  AND status_code = 0
	`,
		string(fp.Key),
		string(fp.Requester),
		fp.Method,
		fp.Route,
		fp.Resource,
	)
	return err
}
