package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/app/cancellation"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/clock"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/idempotency"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
)

// Canceller is the settlement surface the handlers drive.
type Canceller interface {
	CancelByDriver(ctx context.Context, tripID domain.TripID, requester domain.UserID) (cancellation.Result, error)
	CancelByPassenger(ctx context.Context, tripID domain.TripID, requester domain.UserID) (cancellation.Result, error)
}

// DefaultReservationTTL is how long an in-flight Idempotency-Key blocks duplicates before a
// later request may take it over.
const DefaultReservationTTL = 2 * time.Minute

type Handler struct {
	svc   Canceller
	idem  idempotency.Store
	clock clock.Clock
	log   logrus.FieldLogger

	reservationTTL time.Duration
}

// NewHandler builds the cancellation handlers. idem may be nil, which disables replay.
func NewHandler(svc Canceller, idem idempotency.Store, clk clock.Clock, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, idem: idem, clock: clk, log: log, reservationTTL: DefaultReservationTTL}
}

type tripJSON struct {
	ID           string   `json:"id"`
	Status       string   `json:"status"`
	Version      int64    `json:"version"`
	PassengerIDs []string `json:"passengerIds"`
}

type refundJSON struct {
	PassengerID string `json:"passengerId"`
	Amount      int64  `json:"amount"`
}

type settlementResponse struct {
	Trip                tripJSON     `json:"trip"`
	Refunds             []refundJSON `json:"refunds"`
	EscrowDebit         int64        `json:"escrowDebit"`
	PlatformDebit       int64        `json:"platformDebit"`
	MirrorSynced        bool         `json:"mirrorSynced"`
	NotificationsQueued int          `json:"notificationsQueued"`
}

func settlementResponseFromResult(res cancellation.Result) settlementResponse {
	out := settlementResponse{
		Trip: tripJSON{
			ID:           string(res.Trip.ID),
			Status:       string(res.Trip.Status),
			Version:      res.Trip.Version,
			PassengerIDs: make([]string, 0, len(res.Trip.PassengerIDs)),
		},
		Refunds:             make([]refundJSON, 0, len(res.Refunds)),
		EscrowDebit:         res.EscrowDebit,
		PlatformDebit:       res.PlatformDebit,
		MirrorSynced:        res.MirrorSynced,
		NotificationsQueued: res.NotificationsQueued,
	}
	for _, p := range res.Trip.PassengerIDs {
		out.Trip.PassengerIDs = append(out.Trip.PassengerIDs, string(p))
	}
	for _, rf := range res.Refunds {
		out.Refunds = append(out.Refunds, refundJSON{PassengerID: string(rf.PassengerID), Amount: rf.Amount})
	}
	return out
}

// CancelTrip handles POST /trips/{tripId}/cancellation.
func (h *Handler) CancelTrip(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, routeCancellation, h.svc.CancelByDriver)
}

// WithdrawFromTrip handles POST /trips/{tripId}/withdrawal.
func (h *Handler) WithdrawFromTrip(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, routeWithdrawal, h.svc.CancelByPassenger)
}

type settleFunc func(ctx context.Context, tripID domain.TripID, requester domain.UserID) (cancellation.Result, error)

func (h *Handler) settle(w http.ResponseWriter, r *http.Request, route string, fn settleFunc) {
	ctx := r.Context()
	sub, ok := SubjectFromContext(ctx)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject")
		return
	}
	tripID := strings.TrimSpace(chi.URLParam(r, "tripId"))
	if tripID == "" {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "tripId is required")
		return
	}
	log := h.log.WithFields(logrus.Fields{"trip_id": tripID, "requester": sub})

	// The first request with a key reserves it; duplicates replay its stored answer, or get a
	// retryable 409 while it is still in flight.
	var fp idempotency.Fingerprint
	key := strings.TrimSpace(r.Header.Get(headerIdempotencyKey))
	if key != "" && h.idem != nil {
		fp = idempotency.Fingerprint{
			Key:       idempotency.Key(key),
			Requester: sub,
			Method:    r.Method,
			Route:     route,
			Resource:  tripID,
		}
		now := h.clock.Now()
		rec, reserved, err := h.idem.Reserve(ctx, fp, now, now.Add(-h.reservationTTL))
		if err != nil {
			log.WithError(err).Error("idempotency reservation failed")
			writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal error")
			return
		}
		if !reserved {
			if rec.Pending() {
				writeJSON(w, http.StatusConflict, newErrorResponse(r, "REQUEST_IN_PROGRESS", "a request with this Idempotency-Key is still being processed", true))
				return
			}
			w.Header().Set("Content-Type", rec.ContentType)
			w.Header().Set(headerReplayed, "true")
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.Body)
			return
		}
	}

	status, body := h.invoke(ctx, log, r, tripID, sub, fn)

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		log.WithError(err).Error("encode response")
		status = http.StatusInternalServerError
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(newErrorResponse(r, "INTERNAL", "internal error", false))
	}

	if fp.Key != "" {
		// Outlive the request so a disconnecting client never strands its reservation.
		storeCtx := context.WithoutCancel(ctx)
		if status < http.StatusInternalServerError {
			err := h.idem.Complete(storeCtx, fp, idempotency.Record{
				StatusCode:  status,
				ContentType: "application/json",
				Body:        buf.Bytes(),
				CreatedAt:   h.clock.Now(),
			})
			if err != nil {
				log.WithError(err).Warn("idempotency record not stored")
			}
		} else if err := h.idem.Release(storeCtx, fp); err != nil {
			// Transient failures are not stored so the client's retry reaches the service.
			log.WithError(err).Warn("idempotency reservation not released")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) invoke(ctx context.Context, log logrus.FieldLogger, r *http.Request, tripID string, sub domain.UserID, fn settleFunc) (int, any) {
	res, err := fn(ctx, domain.TripID(tripID), sub)
	if err == nil {
		return http.StatusOK, settlementResponseFromResult(res)
	}
	var appErr *cancellation.Error
	if !errors.As(err, &appErr) {
		log.WithError(err).Error("unclassified settlement error")
		return http.StatusInternalServerError, newErrorResponse(r, "INTERNAL", "internal error", false)
	}
	return appErr.Status, newErrorResponse(r, appErr.Code, appErr.Message, appErr.Retryable())
}
