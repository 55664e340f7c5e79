package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	runs []string
	args []map[string]string
}

func (r *recorder) run(_ context.Context, jobName string, _ time.Time, params map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, jobName)
	r.args = append(r.args, params)
}

func (r *recorder) count(job string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, name := range r.runs {
		if name == job {
			n++
		}
	}
	return n
}

func TestScheduleRejectsBadExpression(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(time.UTC, nil)
	require.Error(t, s.Schedule("releases", "every tuesday"))
	require.NoError(t, s.Schedule("releases", "0 6 * * *"))
	require.NoError(t, s.Schedule("feeds", "@hourly"))
}

func TestTriggerRunsJob(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(time.UTC, nil)
	assert.True(t, errors.Is(s.Trigger("releases", nil), ErrNotStarted))

	rec := &recorder{}
	require.NoError(t, s.Start(context.Background(), rec.run))
	defer func() { require.NoError(t, s.Stop(context.Background())) }()

	require.NoError(t, s.Trigger("releases", map[string]string{"baseDate": "2026-10-18"}))

	assert.Eventually(t, func() bool { return rec.count("releases") == 1 }, time.Second, 10*time.Millisecond)
	rec.mu.Lock()
	assert.Equal(t, "2026-10-18", rec.args[0]["baseDate"])
	rec.mu.Unlock()
}

func TestCronEntriesFire(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(time.UTC, nil, WithSeconds())
	require.NoError(t, s.Schedule("tick", "* * * * * *"))

	rec := &recorder{}
	require.NoError(t, s.Start(context.Background(), rec.run))
	defer func() { require.NoError(t, s.Stop(context.Background())) }()

	assert.Eventually(t, func() bool { return rec.count("tick") >= 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestTriggerQueueFull(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	started := make(chan struct{}, 1)
	run := func(context.Context, string, time.Time, map[string]string) {
		started <- struct{}{}
		<-block
	}

	s := NewCronScheduler(time.UTC, nil, WithQueueSize(1))
	require.NoError(t, s.Start(context.Background(), run))

	require.NoError(t, s.Trigger("a", nil))
	<-started
	require.NoError(t, s.Trigger("b", nil))
	assert.True(t, errors.Is(s.Trigger("c", nil), ErrQueueFull))

	close(block)
	require.NoError(t, s.Stop(context.Background()))
}

func TestStopIsIdempotent(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(nil, nil)
	require.NoError(t, s.Stop(context.Background()))
	require.Error(t, s.Start(context.Background(), nil))
}
