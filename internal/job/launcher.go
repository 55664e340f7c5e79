package job

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"ContentIngestor/internal/domain"
	"ContentIngestor/internal/metrics"
	"ContentIngestor/internal/ports"
	"ContentIngestor/internal/runid"
)

// SourceResolver resolves a logical source to its registered record.
type SourceResolver interface {
	Resolve(ctx context.Context, url, category string) (domain.SourceRecord, error)
}

// LauncherDeps wires the collaborators of a launcher.
type LauncherDeps struct {
	Registry  *Registry
	Ledger    ports.RunLedger
	Generator *runid.Generator
	Resolver  SourceResolver
	Notifier  ports.Notifier
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	Now       func() time.Time
}

// Launcher executes registered jobs.
type Launcher struct {
	registry  *Registry
	ledger    ports.RunLedger
	generator *runid.Generator
	resolver  SourceResolver
	notifier  ports.Notifier
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLauncher validates deps. Resolver, notifier and metrics are optional;
// a job with a source reference fails without a resolver.
func NewLauncher(deps LauncherDeps) (*Launcher, error) {
	if deps.Registry == nil || deps.Ledger == nil || deps.Generator == nil {
		return nil, Fatal(errors.New("launcher requires a registry, a run ledger and a run-id generator"))
	}

	l := &Launcher{
		registry:  deps.Registry,
		ledger:    deps.Ledger,
		generator: deps.Generator,
		resolver:  deps.Resolver,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		now:       deps.Now,
		locks:     map[string]*sync.Mutex{},
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l, nil
}

// Launch allocates a run identity, resolves the job's source, runs its steps
// in order, and reports the outcome. The returned report is filled even when
// an error is returned, except for unknown jobs and identity failures.
func (l *Launcher) Launch(ctx context.Context, name string, params map[string]string) (domain.JobReport, error) {
	def, err := l.registry.Get(name)
	if err != nil {
		return domain.JobReport{}, err
	}

	identity, err := l.allocate(ctx, def, params)
	if err != nil {
		return domain.JobReport{}, err
	}

	logger := l.logger.With(
		zap.String("job", identity.JobName),
		zap.Int64("run_id", identity.RunID),
		zap.String("base_date", identity.BaseDate),
		zap.String("execution_id", identity.ExecutionID))
	logger.Info("job started", zap.String("identity", identity.Key()))

	report := domain.JobReport{
		Identity:  identity,
		Status:    domain.RunStarted,
		StartedAt: l.now(),
	}

	l.metrics.Running(1)
	runErr := l.execute(ctx, def, identity, &report)
	l.metrics.Running(-1)

	report.Elapsed = l.now().Sub(report.StartedAt)
	report.Status = domain.RunCompleted
	if runErr != nil {
		report.Status = domain.RunFailed
		report.Errors = append(report.Errors, runErr.Error())
	}

	// The ledger and the notifier still run when ctx was cancelled.
	finishCtx := context.WithoutCancel(ctx)
	if err := l.ledger.Finish(finishCtx, identity, report.Status); err != nil {
		logger.Error("record run completion", zap.Error(err))
		finishErr := errors.Wrap(err, "record run completion")
		report.Errors = append(report.Errors, finishErr.Error())
		if runErr == nil {
			runErr = finishErr
			report.Status = domain.RunFailed
		}
	}

	l.notify(finishCtx, logger, report)
	l.metrics.ObserveJob(identity.JobName, string(report.Status), report.Elapsed)

	totals := report.Totals()
	fields := []zap.Field{
		zap.String("status", string(report.Status)),
		zap.Duration("elapsed", report.Elapsed),
		zap.Int("read", totals.Read),
		zap.Int("skipped", totals.Skipped),
		zap.Int("written", totals.Written),
		zap.Int("failed", totals.Failed),
	}
	if runErr != nil {
		logger.Error("job failed", append(fields, zap.Error(runErr))...)
	} else {
		logger.Info("job finished", fields...)
	}

	return report, runErr
}

// allocate serializes identity allocation per job name so that concurrent
// triggers of one job never share a run id.
func (l *Launcher) allocate(ctx context.Context, def Definition, params map[string]string) (domain.JobRunIdentity, error) {
	lock := l.lockFor(def.Name)
	lock.Lock()
	defer lock.Unlock()

	previous, err := l.ledger.LastRunID(ctx, def.Name)
	if err != nil {
		return domain.JobRunIdentity{}, errors.Wrapf(err, "load last run id of %s", def.Name)
	}

	identity, err := l.generator.Next(previous, def.mergeParams(params))
	if err != nil {
		return domain.JobRunIdentity{}, Fatal(errors.Wrapf(err, "build run identity of %s", def.Name))
	}
	identity.JobName = def.Name

	if err := l.ledger.Start(ctx, identity); err != nil {
		return domain.JobRunIdentity{}, errors.Wrapf(err, "record run start of %s", def.Name)
	}
	return identity, nil
}

func (l *Launcher) lockFor(name string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[name] = lock
	}
	return lock
}

func (l *Launcher) execute(ctx context.Context, def Definition, identity domain.JobRunIdentity, report *domain.JobReport) error {
	exec := domain.ExecutionContext{Identity: identity}

	if def.Source != nil {
		if l.resolver == nil {
			return Fatal(errors.Newf("job %s references a source but no resolver is configured", def.Name))
		}
		source, err := l.resolver.Resolve(ctx, def.Source.URL, def.Source.Category)
		if err != nil {
			return Fatal(errors.Wrap(err, "resolve source"))
		}
		exec.Source = source
	}

	steps, err := def.Build(exec)
	if err != nil {
		return Fatal(errors.Wrap(err, "assemble steps"))
	}

	for _, step := range steps {
		stepReport, err := step.Run(ctx)
		report.Steps = append(report.Steps, stepReport)
		report.FailureMessages = append(report.FailureMessages, stepReport.FailureMessages...)
		if err != nil {
			return errors.Wrapf(err, "step %s", step.Name())
		}
	}
	return nil
}

func (l *Launcher) notify(ctx context.Context, logger *zap.Logger, report domain.JobReport) {
	if l.notifier == nil {
		return
	}
	if err := l.notifier.NotifyJob(ctx, report); err != nil {
		logger.Warn("job notification failed", zap.Error(err))
	}
}
