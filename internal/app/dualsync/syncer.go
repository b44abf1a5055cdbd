// Package dualsync keeps the reporting mirror eventually consistent with the primary store.
package dualsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/clock"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/mirror"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/syncqueue"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/triprepo"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/uow"
)

// Source reads the authoritative trip state.
type Source interface {
	LoadTrip(ctx context.Context, id domain.TripID) (domain.Trip, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, id domain.TripID) (domain.Trip, error)

func (f SourceFunc) LoadTrip(ctx context.Context, id domain.TripID) (domain.Trip, error) {
	return f(ctx, id)
}

// UnitOfWorkSource reads trips from the primary store through a short unit of work.
func UnitOfWorkSource(u uow.UnitOfWork) Source {
	return SourceFunc(func(ctx context.Context, id domain.TripID) (domain.Trip, error) {
		var t domain.Trip
		err := u.WithinTx(ctx, func(ctx context.Context, r uow.Repos) error {
			var err error
			t, err = r.Trips.GetByID(ctx, id)
			return err
		})
		return t, err
	})
}

type Syncer struct {
	mirror  mirror.Store
	pending syncqueue.Queue
	source  Source
	clock   clock.Clock
	log     logrus.FieldLogger
}

func NewSyncer(m mirror.Store, pending syncqueue.Queue, src Source, clk clock.Clock, log logrus.FieldLogger) *Syncer {
	return &Syncer{mirror: m, pending: pending, source: src, clock: clk, log: log}
}

// Sync upserts t into the mirror. On failure the trip is queued for a later Drain and the
// error is returned for logging; the primary store is unaffected either way.
func (s *Syncer) Sync(ctx context.Context, t domain.Trip) error {
	err := s.mirror.UpsertTrip(ctx, t, s.clock.Now())
	if err == nil {
		return nil
	}
	// The queue push must not inherit an expired step deadline.
	if qerr := s.pending.Push(context.WithoutCancel(ctx), t.ID); qerr != nil {
		return fmt.Errorf("mirror upsert: %w (queueing for retry also failed: %v)", err, qerr)
	}
	return fmt.Errorf("mirror upsert: %w", err)
}

// DrainResult counts the outcome of one Drain.
type DrainResult struct {
	Synced  int
	Failed  int
	Dropped int
}

// Drain retries every trip pending at the time of the call, reloading its current state from
// the primary store. Trips that fail again are re-queued.
func (s *Syncer) Drain(ctx context.Context) (DrainResult, error) {
	var res DrainResult
	n, err := s.pending.Len(ctx)
	if err != nil {
		return res, err
	}

	var retryLater []domain.TripID
	defer func() {
		for _, id := range retryLater {
			if err := s.pending.Push(context.WithoutCancel(ctx), id); err != nil {
				s.log.WithError(err).WithField("trip_id", id).Error("could not re-queue mirror sync")
			}
		}
	}()

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		id, ok, err := s.pending.Pop(ctx)
		if err != nil {
			return res, err
		}
		if !ok {
			break
		}

		t, err := s.source.LoadTrip(ctx, id)
		if errors.Is(err, triprepo.ErrNotFound) {
			s.log.WithField("trip_id", id).Warn("dropping mirror sync for trip missing from primary store")
			res.Dropped++
			continue
		}
		if err == nil {
			err = s.mirror.UpsertTrip(ctx, t, s.clock.Now())
		}
		if err != nil {
			s.log.WithError(err).WithField("trip_id", id).Warn("mirror sync retry failed")
			retryLater = append(retryLater, id)
			res.Failed++
			continue
		}
		res.Synced++
	}
	return res, nil
}

// Run drains the pending queue every interval until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			res, err := s.Drain(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				s.log.WithError(err).Error("mirror sync drain failed")
				continue
			}
			if res.Synced+res.Failed+res.Dropped > 0 {
				s.log.WithFields(logrus.Fields{
					"synced":  res.Synced,
					"failed":  res.Failed,
					"dropped": res.Dropped,
				}).Info("mirror sync drain finished")
			}
		}
	}
}
