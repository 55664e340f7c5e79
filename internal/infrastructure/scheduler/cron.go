package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"ContentIngestor/internal/ports"
)

const defaultQueueSize = 16

var (
	// ErrNotStarted is returned by Trigger before Start.
	ErrNotStarted = errors.New("scheduler is not started")
	// ErrQueueFull is returned when the trigger queue cannot take more runs.
	ErrQueueFull = errors.New("trigger queue is full")
)

// RunFunc executes one job.
type RunFunc func(ctx context.Context, jobName string, baseDate time.Time, params map[string]string)

type trigger struct {
	jobName string
	at      time.Time
	params  map[string]string
}

type entry struct {
	jobName string
	spec    string
}

// CronScheduler fires jobs on cron expressions and accepts manual triggers.
// Both paths feed one queue drained by a single run loop, so runs never
// overlap.
type CronScheduler struct {
	location *time.Location
	parser   cron.Parser
	logger   *zap.Logger
	queue    chan trigger

	mu      sync.Mutex
	entries []entry
	cron    *cron.Cron
	stop    chan struct{}
	done    chan struct{}
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// Option customizes a CronScheduler.
type Option func(*CronScheduler)

// WithSeconds accepts six-field expressions with a leading seconds field.
func WithSeconds() Option {
	return func(c *CronScheduler) {
		c.parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	}
}

// WithQueueSize bounds the number of pending runs.
func WithQueueSize(n int) Option {
	return func(c *CronScheduler) {
		if n > 0 {
			c.queue = make(chan trigger, n)
		}
	}
}

// NewCronScheduler builds a scheduler evaluating expressions in loc.
func NewCronScheduler(loc *time.Location, logger *zap.Logger, opts ...Option) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &CronScheduler{
		location: loc,
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		logger:   logger,
		queue:    make(chan trigger, defaultQueueSize),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Schedule registers jobName under a cron expression. It must be called
// before Start.
func (c *CronScheduler) Schedule(jobName, spec string) error {
	if _, err := c.parser.Parse(spec); err != nil {
		return errors.Wrapf(err, "parse cron %q for job %s", spec, jobName)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry{jobName: jobName, spec: spec})
	return nil
}

// Start registers the cron entries and launches the run loop.
func (c *CronScheduler) Start(ctx context.Context, run func(ctx context.Context, jobName string, baseDate time.Time, params map[string]string)) error {
	if run == nil {
		return errors.New("run function is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	cr := cron.New(cron.WithLocation(c.location), cron.WithParser(c.parser))
	for _, e := range c.entries {
		e := e
		if _, err := cr.AddFunc(e.spec, func() {
			if err := c.enqueue(trigger{jobName: e.jobName, at: time.Now().In(c.location)}); err != nil {
				c.logger.Warn("scheduled run dropped", zap.String("job", e.jobName), zap.Error(err))
			}
		}); err != nil {
			return errors.Wrapf(err, "schedule job %s", e.jobName)
		}
		c.logger.Info("job scheduled", zap.String("job", e.jobName), zap.String("cron", e.spec))
	}

	c.cron = cr
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.loop(ctx, run, c.stop, c.done)
	cr.Start()
	return nil
}

// Trigger queues a manual run of jobName.
func (c *CronScheduler) Trigger(jobName string, params map[string]string) error {
	c.mu.Lock()
	started := c.cron != nil
	c.mu.Unlock()
	if !started {
		return ErrNotStarted
	}
	return c.enqueue(trigger{jobName: jobName, at: time.Now().In(c.location), params: params})
}

func (c *CronScheduler) enqueue(t trigger) error {
	select {
	case c.queue <- t:
		return nil
	default:
		return errors.Wrapf(ErrQueueFull, "job %s", t.jobName)
	}
}

func (c *CronScheduler) loop(ctx context.Context, run RunFunc, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case t := <-c.queue:
			run(ctx, t.jobName, t.at, t.params)
		case <-ctx.Done():
			return
		case <-stop:
			return
		}
	}
}

// Stop halts cron and waits for the current run to finish or ctx to expire.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	cr, stop, done := c.cron, c.stop, c.done
	c.cron, c.stop, c.done = nil, nil, nil
	c.mu.Unlock()

	if cr == nil {
		return nil
	}

	cr.Stop()
	close(stop)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "wait for run loop")
	}
}
