// Package app wires configuration to job definitions and their adapters.
package app

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"ContentIngestor/internal/config"
	"ContentIngestor/internal/domain"
	"ContentIngestor/internal/infrastructure/cache"
	"ContentIngestor/internal/infrastructure/source"
	"ContentIngestor/internal/infrastructure/storage"
	"ContentIngestor/internal/infrastructure/telegram"
	"ContentIngestor/internal/job"
	"ContentIngestor/internal/logging"
	"ContentIngestor/internal/metrics"
	"ContentIngestor/internal/ports"
	"ContentIngestor/internal/resolver"
	"ContentIngestor/internal/runid"
	"ContentIngestor/internal/writer"
)

// Application wires configs to jobs and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *job.Registry
	launcher *job.Launcher
	promReg  *prometheus.Registry

	github  *source.GitHubClient
	reddit  *source.RedditClient
	feeds   *source.FeedClient
	arxiv   *source.ArxivScraper
	writer  ports.BatchWriter
	metrics *metrics.Metrics

	closers []func() error
}

// Option overrides an adapter, mostly for tests and one-off runs.
type Option func(*options)

type options struct {
	cache      ports.SourceCache
	ledger     ports.RunLedger
	notifier   ports.Notifier
	httpClient *http.Client
}

// WithSourceCache replaces the Redis source cache.
func WithSourceCache(c ports.SourceCache) Option {
	return func(o *options) { o.cache = c }
}

// WithLedger replaces the configured run ledger.
func WithLedger(l ports.RunLedger) Option {
	return func(o *options) { o.ledger = l }
}

// WithNotifier replaces the Telegram notifier.
func WithNotifier(n ports.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithHTTPClient sets the client used for upstreams and the downstream.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New validates cfg, connects the configured stores, and registers every job.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &Application{
		cfg:      cfg,
		logger:   logger,
		registry: job.NewRegistry(),
		promReg:  prometheus.NewRegistry(),
	}
	a.promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.promReg)

	httpClient := source.NewHTTPClient(cfg.HTTP, o.httpClient)
	a.github = source.NewGitHubClient(httpClient, cfg.Upstreams.GitHubAPIURL, cfg.Upstreams.GitHubToken)
	a.reddit = source.NewRedditClient(httpClient, cfg.Upstreams.RedditURL)
	a.feeds = source.NewFeedClient(httpClient)
	a.arxiv = source.NewArxivScraper(httpClient, 0)
	a.writer = writer.NewHTTPBatchWriter(cfg.Downstream, o.httpClient, logging.Component(logger, "writer"))

	sourceCache, err := a.sourceCache(ctx, o.cache)
	if err != nil {
		a.Close()
		return nil, err
	}

	ledger, err := a.ledger(ctx, o.ledger)
	if err != nil {
		a.Close()
		return nil, err
	}

	notifier := o.notifier
	if notifier == nil && cfg.Notifications.Telegram.Enabled() {
		tg := cfg.Notifications.Telegram
		notifier = telegram.NewNotifier(tg.APIURL, tg.BotToken, tg.ChatID)
	}

	a.launcher, err = job.NewLauncher(job.LauncherDeps{
		Registry:  a.registry,
		Ledger:    ledger,
		Generator: runid.NewGenerator(runid.WithLocation(cfg.Scheduler.Location())),
		Resolver:  resolver.New(sourceCache, logging.Component(logger, "resolver")),
		Notifier:  notifier,
		Metrics:   a.metrics,
		Logger:    logging.Component(logger, "launcher"),
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	for _, jc := range cfg.Jobs {
		def, err := a.definition(jc)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := a.registry.Register(def); err != nil {
			a.Close()
			return nil, err
		}
	}

	return a, nil
}

func (a *Application) sourceCache(ctx context.Context, override ports.SourceCache) (ports.SourceCache, error) {
	if override != nil {
		return override, nil
	}
	client, err := cache.NewClient(ctx, a.cfg.Redis)
	if err != nil {
		return nil, errors.Wrap(err, "connect source cache")
	}
	a.closers = append(a.closers, client.Close)
	return cache.NewRedisSourceCache(client, a.cfg.Redis.KeyPrefix), nil
}

func (a *Application) ledger(ctx context.Context, override ports.RunLedger) (ports.RunLedger, error) {
	if override != nil {
		return override, nil
	}
	if a.cfg.Database.DSN == "" {
		a.logger.Warn("no database configured, run ids restart from 1 on every start")
		return storage.NewMemoryLedger(), nil
	}

	db, err := storage.Open(ctx, a.cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)

	ledger := storage.NewPostgresLedger(db)
	if err := ledger.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return ledger, nil
}

// RunJob executes one job synchronously.
func (a *Application) RunJob(ctx context.Context, name string, params map[string]string) (domain.JobReport, error) {
	return a.launcher.Launch(ctx, name, params)
}

// Jobs lists the registered job definitions.
func (a *Application) Jobs() []job.Definition {
	return a.registry.Definitions()
}

// Gatherer exposes the application's Prometheus registry.
func (a *Application) Gatherer() prometheus.Gatherer {
	return a.promReg
}

// Close releases store connections.
func (a *Application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close", zap.Error(err))
		}
	}
	a.closers = nil
}
