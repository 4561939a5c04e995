package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBroker = errors.New("no brokers available")

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "connect", Bounded(5, time.Millisecond), func(attempt int) error {
		calls++
		assert.Equal(t, calls, attempt)
		if attempt < 3 {
			return errBroker
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_BoundedExhaustion(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "connect", Bounded(4, time.Millisecond), func(int) error {
		calls++
		return errBroker
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, errBroker)
	assert.Equal(t, 4, calls)
	assert.Contains(t, err.Error(), "after 4 attempts")
}

func TestDo_UnboundedStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Do(ctx, "reconnect", Unbounded(time.Millisecond), func(int) error {
		calls++
		if calls == 25 {
			cancel()
		}
		return errBroker
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 25, calls)
}

func TestDo_CancelInterruptsDelay(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := Do(ctx, "connect", Bounded(10, time.Hour), func(int) error { return errBroker })

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDo_CancelledBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := Do(ctx, "connect", Bounded(3, 0), func(int) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestDo_SingleAttemptPolicy(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "ping", Bounded(1, time.Hour), func(int) error {
		calls++
		return errBroker
	})

	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, calls)
	assert.Contains(t, err.Error(), "after 1 attempts")
}

func TestBounded_MinimumOneAttempt(t *testing.T) {
	p := Bounded(0, time.Second)
	assert.Equal(t, 1, p.MaxAttempts)
	assert.True(t, p.IsBounded())
	assert.False(t, Unbounded(time.Second).IsBounded())
}

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, Sleep(ctx, 0), context.Canceled)
}
