// Package notifyqueue delivers notification jobs from a bounded in-process buffer using a
// fixed pool of workers.
package notifyqueue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/notify"
)

// ErrQueueFull is returned by Enqueue when the buffer has no room. Enqueue never blocks.
var ErrQueueFull = errors.New("notification queue is full")

// ErrClosed is returned by Enqueue after Run has returned.
var ErrClosed = errors.New("notification queue is closed")

type Options struct {
	Workers    int
	BufferSize int
	// SendTimeout bounds one delivery. Zero means no bound beyond the Run context.
	SendTimeout time.Duration
}

type Dispatcher struct {
	notifier notify.Notifier
	log      logrus.FieldLogger
	opts     Options

	jobs chan notify.Cancellation

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(n notify.Notifier, log logrus.FieldLogger, opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 64
	}
	return &Dispatcher{
		notifier: n,
		log:      log,
		opts:     opts,
		jobs:     make(chan notify.Cancellation, opts.BufferSize),
	}
}

func (d *Dispatcher) Enqueue(ctx context.Context, c notify.Cancellation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.jobs <- c:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run delivers jobs until ctx is cancelled, then drains what is already buffered and returns.
// Failed deliveries are logged and dropped.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < d.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.work(ctx)
		}()
	}
	<-ctx.Done()

	d.mu.Lock()
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	wg.Wait()
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		select {
		case c, ok := <-d.jobs:
			if !ok {
				return
			}
			d.deliver(context.WithoutCancel(ctx), c)
		case <-ctx.Done():
			for c := range d.jobs {
				d.deliver(context.WithoutCancel(ctx), c)
			}
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, c notify.Cancellation) {
	if d.opts.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.SendTimeout)
		defer cancel()
	}
	if err := d.notifier.NotifyCancellation(ctx, c); err != nil {
		d.log.WithError(err).WithFields(logrus.Fields{
			"trip_id":   c.TripID,
			"recipient": c.RecipientEmail,
		}).Warn("cancellation notice not delivered")
	}
}
