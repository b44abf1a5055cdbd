package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/platform/logger"
)

var errBusy = errors.New("busy")

func newTestRetrier(cfg Config) (*Retrier, *[]time.Duration) {
	r := New(cfg, logger.Discard())
	var slept []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return r, &slept
}

func TestExecute_SucceedsAfterRetries(t *testing.T) {
	t.Parallel()

	r, slept := newTestRetrier(Config{MaxRetries: 3, BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2})
	calls := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errBusy
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, *slept)
}

func TestExecute_ExhaustsBudget(t *testing.T) {
	t.Parallel()

	r, _ := newTestRetrier(Config{MaxRetries: 2, BaseDelay: time.Millisecond, Multiplier: 2})
	calls := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		calls++
		return errBusy
	})

	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, errBusy)
	var ex *ErrExhausted
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, 3, ex.Attempts)
}

func TestExecute_StopsOnNonRetryable(t *testing.T) {
	t.Parallel()

	fatal := errors.New("fatal")
	r, slept := newTestRetrier(Config{
		MaxRetries: 5,
		BaseDelay:  time.Millisecond,
		Retryable:  func(err error) bool { return errors.Is(err, errBusy) },
	})
	calls := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		calls++
		return fatal
	})

	assert.Same(t, fatal, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *slept)
}

func TestExecute_DelayIsCapped(t *testing.T) {
	t.Parallel()

	r, slept := newTestRetrier(Config{MaxRetries: 4, BaseDelay: 100 * time.Millisecond, MaxDelay: 250 * time.Millisecond, Multiplier: 2})
	_ = r.Execute(context.Background(), func(context.Context) error { return errBusy })

	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		250 * time.Millisecond,
		250 * time.Millisecond,
	}, *slept)
}

func TestExecute_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, _ := newTestRetrier(DefaultConfig())
	err := r.Execute(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
