package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// Func is one attempt of a retried operation.
type Func func(ctx context.Context) error

// Config holds the backoff policy.
type Config struct {
	MaxRetries int           // retries after the first attempt
	BaseDelay  time.Duration // delay before the first retry
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     bool // add up to 10% random delay

	// Retryable decides whether an error is worth another attempt. Nil retries everything.
	Retryable func(error) bool
}

func DefaultConfig() Config {
	return Config{
		MaxRetries: 4,
		BaseDelay:  20 * time.Millisecond,
		MaxDelay:   500 * time.Millisecond,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// ErrExhausted wraps the last error once every attempt has failed.
type ErrExhausted struct {
	Attempts int
	Err      error
}

func (e *ErrExhausted) Error() string {
	return fmt.Sprintf("retry limit exceeded after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ErrExhausted) Unwrap() error { return e.Err }

// Retrier runs a Func with exponential backoff.
type Retrier struct {
	cfg Config
	log logrus.FieldLogger

	sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg Config, log logrus.FieldLogger) *Retrier {
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 1
	}
	return &Retrier{cfg: cfg, log: log, sleep: sleepCtx}
}

// Execute calls fn until it succeeds, returns a non-retryable error, the context ends,
// or the retry budget is spent.
func (r *Retrier) Execute(ctx context.Context, fn Func) error {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				r.log.WithField("attempts", attempt+1).Info("operation succeeded after retries")
			}
			return nil
		}
		lastErr = err

		if r.cfg.Retryable != nil && !r.cfg.Retryable(err) {
			return err
		}
		if attempt == r.cfg.MaxRetries {
			break
		}

		delay := r.delay(attempt)
		r.log.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"delay":   delay.String(),
		}).Debug("operation failed, retrying")

		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}

	r.log.WithError(lastErr).WithField("attempts", r.cfg.MaxRetries+1).Warn("operation failed after all retries")
	return &ErrExhausted{Attempts: r.cfg.MaxRetries + 1, Err: lastErr}
}

func (r *Retrier) delay(attempt int) time.Duration {
	d := float64(r.cfg.BaseDelay) * math.Pow(r.cfg.Multiplier, float64(attempt))
	if r.cfg.MaxDelay > 0 && d > float64(r.cfg.MaxDelay) {
		d = float64(r.cfg.MaxDelay)
	}
	if r.cfg.Jitter {
		d += d * 0.1 * rand.Float64()
	}
	return time.Duration(d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
