// Package notifier provides a Notifier that records and logs cancellation notices instead of
// delivering them. It backs NOTIFY_SENDER=log and tests.
package notifier

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/notify"
)

type Recorder struct {
	log logrus.FieldLogger

	mu   sync.Mutex
	sent []notify.Cancellation
	fail map[string]error
}

func NewRecorder(log logrus.FieldLogger) *Recorder {
	return &Recorder{log: log, fail: make(map[string]error)}
}

// FailFor makes deliveries to email return err.
func (r *Recorder) FailFor(email string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[email] = err
}

func (r *Recorder) NotifyCancellation(ctx context.Context, c notify.Cancellation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	err := r.fail[c.RecipientEmail]
	if err == nil {
		r.sent = append(r.sent, c)
	}
	r.mu.Unlock()
	if err != nil {
		return err
	}

	if r.log != nil {
		r.log.WithFields(logrus.Fields{
			"trip_id":   c.TripID,
			"recipient": c.RecipientEmail,
			"refund":    c.RefundAmount,
		}).Info("cancellation notice recorded")
	}
	return nil
}

// Sent returns the notices delivered so far.
func (r *Recorder) Sent() []notify.Cancellation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Cancellation(nil), r.sent...)
}
