// Package cancellation settles driver cancellations and passenger withdrawals.
//
// A settlement moves credits out of the escrow and platform accounts into each affected
// passenger's account, mutates the trip and appends the audit records, all inside one unit of
// work. The mirror sync and passenger notifications run after commit and never change the
// outcome reported to the caller.
package cancellation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/platform/retry"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/clock"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/ledger"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/notify"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/triprepo"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/uow"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/userrepo"
)

// TripSyncer propagates committed trip state to the reporting mirror.
type TripSyncer interface {
	Sync(ctx context.Context, t domain.Trip) error
}

type Deps struct {
	UnitOfWork    uow.UnitOfWork
	Users         userrepo.Repository
	Mirror        TripSyncer
	Notifications notify.Queue
	Clock         clock.Clock
	Log           logrus.FieldLogger
}

type Service struct {
	uow           uow.UnitOfWork
	users         userrepo.Repository
	mirror        TripSyncer
	notifications notify.Queue
	clock         clock.Clock
	log           logrus.FieldLogger

	opts    Options
	retrier *retry.Retrier

	newTransactionID func() domain.TransactionID
}

func NewService(d Deps, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.DateLayout == "" {
		opts.DateLayout = DefaultOptions().DateLayout
	}
	rc := opts.Retry
	rc.Retryable = func(err error) bool { return errors.Is(err, uow.ErrConcurrentModification) }

	return &Service{
		uow:           d.UnitOfWork,
		users:         d.Users,
		mirror:        d.Mirror,
		notifications: d.Notifications,
		clock:         d.Clock,
		log:           d.Log,
		opts:          opts,
		retrier:       retry.New(rc, d.Log),
		newTransactionID: func() domain.TransactionID {
			return domain.TransactionID(uuid.NewString())
		},
	}
}

// SetNewTransactionIDForTest overrides transaction ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewTransactionIDForTest(fn func() domain.TransactionID) {
	if fn != nil {
		s.newTransactionID = fn
	}
}

// CancelByDriver cancels an active trip on behalf of its driver and refunds every passenger
// its seat price plus the service fee. Each refunded passenger is queued a notification.
func (s *Service) CancelByDriver(ctx context.Context, tripID domain.TripID, requester domain.UserID) (Result, error) {
	return s.cancel(ctx, flowDriver, tripID, requester)
}

// CancelByPassenger withdraws the requester from an active trip and refunds them. The trip
// stays active. No notification is sent for this flow.
func (s *Service) CancelByPassenger(ctx context.Context, tripID domain.TripID, requester domain.UserID) (Result, error) {
	return s.cancel(ctx, flowPassenger, tripID, requester)
}

type committed struct {
	before domain.Trip
	after  domain.Trip
	plan   settlement
}

func (s *Service) cancel(ctx context.Context, f flow, tripID domain.TripID, requester domain.UserID) (Result, error) {
	// Once started, a settlement runs to completion regardless of the caller going away.
	ctx = context.WithoutCancel(ctx)
	log := s.log.WithFields(logrus.Fields{
		"trip_id":   tripID,
		"requester": requester,
		"flow":      f,
	})

	var c committed
	err := s.retrier.Execute(ctx, func(ctx context.Context) error {
		stepCtx, cancel := s.step(ctx)
		defer cancel()

		var err error
		c, err = s.settle(stepCtx, f, tripID, requester)
		return err
	})
	if err != nil {
		appErr := classify(err)
		entry := log.WithError(err).WithField("code", appErr.Code)
		if appErr.Retryable() {
			entry.Error("settlement failed")
		} else {
			entry.Info("cancellation rejected")
		}
		return Result{}, appErr
	}

	res := Result{
		Trip:          c.after,
		Refunds:       c.plan.refunds,
		EscrowDebit:   c.plan.escrowDebit,
		PlatformDebit: c.plan.platformDebit,
	}
	log.WithFields(logrus.Fields{
		"refunds":        len(res.Refunds),
		"escrow_debit":   res.EscrowDebit,
		"platform_debit": res.PlatformDebit,
		"version":        c.after.Version,
	}).Info("settlement committed")

	res.MirrorSynced = s.syncMirror(ctx, c.after, log)
	if f == flowDriver {
		res.NotificationsQueued = s.queueNotifications(ctx, c.before, c.plan.refunds, log)
	}
	return res, nil
}

// settle validates and applies one settlement inside a unit of work. Validation runs against the
// trip as read inside the unit, so a stale earlier read can never settle a trip twice.
func (s *Service) settle(ctx context.Context, f flow, tripID domain.TripID, requester domain.UserID) (committed, error) {
	var out committed
	err := s.uow.WithinTx(ctx, func(ctx context.Context, r uow.Repos) error {
		trip, err := r.Trips.GetByID(ctx, tripID)
		if err != nil {
			return err
		}

		var passengers []domain.UserID
		switch f {
		case flowDriver:
			if trip.DriverID != requester {
				return errNotDriver()
			}
			passengers = trip.PassengerIDs
		case flowPassenger:
			if !trip.HasPassenger(requester) {
				return errNotPassenger(nil)
			}
			passengers = []domain.UserID{requester}
		}
		if trip.Status != domain.TripStatusActive {
			return errTripNotActive(string(trip.Status), nil)
		}

		at := s.clock.Now()
		plan, err := planSettlement(trip, f, passengers, s.opts.ServiceFee, at, s.newTransactionID)
		if err != nil {
			return err
		}

		for _, a := range plan.adjustments {
			if _, err := r.Ledger.Adjust(ctx, a.Account, a.Delta, at); err != nil {
				return fmt.Errorf("adjust %s by %d: %w", a.Account, a.Delta, err)
			}
		}
		for _, rec := range plan.records {
			if err := r.Transactions.Append(ctx, rec); err != nil {
				return fmt.Errorf("append %s record for %s: %w", rec.Type, rec.AccountID, err)
			}
		}

		var after domain.Trip
		if f == flowDriver {
			after, err = r.Trips.TransitionToCancelled(ctx, trip.ID, domain.TripStatusActive, at)
		} else {
			after, err = r.Trips.RemovePassenger(ctx, trip.ID, requester, at)
		}
		if err != nil {
			return err
		}

		out = committed{before: trip, after: after, plan: plan}
		return nil
	})
	return out, err
}

func (s *Service) syncMirror(ctx context.Context, t domain.Trip, log logrus.FieldLogger) bool {
	if s.mirror == nil {
		return false
	}
	stepCtx, cancel := s.step(ctx)
	defer cancel()
	if err := s.mirror.Sync(stepCtx, t); err != nil {
		log.WithError(err).Warn("mirror sync failed; trip queued for retry")
		return false
	}
	return true
}

func (s *Service) queueNotifications(ctx context.Context, t domain.Trip, refunds []Refund, log logrus.FieldLogger) int {
	if s.notifications == nil {
		return 0
	}
	tripDate := t.DepartureAt.In(s.opts.Location).Format(s.opts.DateLayout)

	queued := 0
	for _, rf := range refunds {
		plog := log.WithField("passenger", rf.PassengerID)
		if err := s.queueNotification(ctx, t, tripDate, rf); err != nil {
			plog.WithError(err).Warn("cancellation notice not queued")
			continue
		}
		queued++
	}
	return queued
}

func (s *Service) queueNotification(ctx context.Context, t domain.Trip, tripDate string, rf Refund) error {
	stepCtx, cancel := s.step(ctx)
	defer cancel()

	u, err := s.users.GetByID(stepCtx, rf.PassengerID)
	if err != nil {
		return fmt.Errorf("look up passenger: %w", err)
	}
	if u.Email == "" {
		return errors.New("passenger has no email address")
	}
	return s.notifications.Enqueue(stepCtx, notify.Cancellation{
		TripID:         t.ID,
		RecipientEmail: u.Email,
		RecipientName:  u.DisplayName,
		TripDate:       tripDate,
		DepartureLabel: t.DepartureLabel,
		ArrivalLabel:   t.ArrivalLabel,
		RefundAmount:   rf.Amount,
	})
}

func (s *Service) step(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.StepTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.StepTimeout)
}

// classify maps a settlement failure onto the caller-facing taxonomy.
func classify(err error) *Error {
	var appErr *Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, triprepo.ErrNotFound):
		return errTripNotFound(err)
	case errors.Is(err, ledger.ErrAccountNotFound):
		return errAccountNotFound(err)
	case errors.Is(err, triprepo.ErrNotAMember):
		return errNotPassenger(err)
	case errors.Is(err, triprepo.ErrInvalidState):
		return errTripNotActive("no longer active", err)
	case errors.Is(err, uow.ErrConcurrentModification):
		return errContention(err)
	default:
		// Commit failures, step timeouts, negative balances and malformed records: nothing was applied.
		return errCommitFailed(err)
	}
}
