package retry

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingSleeper(waits *[]time.Duration) Sleeper {
	return func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

func TestPolicyIntervalIsCapped(t *testing.T) {
	t.Parallel()

	p := Policy{InitialInterval: time.Minute, Multiplier: 2, MaxInterval: 3 * time.Minute, MaxAttempts: 5}

	assert.Equal(t, time.Minute, p.Interval(1))
	assert.Equal(t, 2*time.Minute, p.Interval(2))
	assert.Equal(t, 3*time.Minute, p.Interval(3))
	assert.Equal(t, 3*time.Minute, p.Interval(4))
}

func TestRunnerRetriesTransientUntilSuccess(t *testing.T) {
	t.Parallel()

	var waits []time.Duration
	calls := 0
	r := Runner{
		Policy: Policy{InitialInterval: time.Second, Multiplier: 1.5, MaxInterval: 2 * time.Second, MaxAttempts: 4},
		Sleep:  recordingSleeper(&waits),
	}

	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return Transient(errors.New("connection reset"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 1500 * time.Millisecond}, waits)
}

func TestRunnerStopsOnPermanentError(t *testing.T) {
	t.Parallel()

	var waits []time.Duration
	calls := 0
	permanent := errors.New("bad request")
	r := Runner{Policy: Policy{InitialInterval: time.Second, MaxAttempts: 5}, Sleep: recordingSleeper(&waits)}

	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return permanent
	})

	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
	assert.Empty(t, waits)
}

func TestRunnerGivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	var waits []time.Duration
	calls := 0
	r := Runner{Policy: Policy{InitialInterval: time.Second, Multiplier: 2, MaxInterval: time.Minute, MaxAttempts: 3}, Sleep: recordingSleeper(&waits)}

	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return Transient(errors.New("503 service unavailable"))
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAttemptsExhausted))
	assert.True(t, IsTransient(err))
	assert.Equal(t, 3, calls)
	assert.Len(t, waits, 2)
}

func TestRunnerHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	r := Runner{
		Policy: Policy{InitialInterval: time.Second, MaxAttempts: 3},
		Sleep: func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}

	err := r.Do(ctx, func(context.Context) error {
		calls++
		return Transient(errors.New("timeout"))
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestTransientNil(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Transient(nil))
	assert.False(t, IsTransient(errors.New("plain")))
}
