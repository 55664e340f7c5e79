package app

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"ContentIngestor/internal/config"
	"ContentIngestor/internal/domain"
	"ContentIngestor/internal/job"
	"ContentIngestor/internal/logging"
	"ContentIngestor/internal/processor"
	"ContentIngestor/internal/reader"
	"ContentIngestor/internal/retry"
)

const (
	defaultPageSize = 30
	// ParamSince limits arXiv scans to entries on or after a yyyy-MM-dd date.
	ParamSince = "since"
)

func (a *Application) definition(jc config.JobConfig) (job.Definition, error) {
	var build func(jc config.JobConfig, exec domain.ExecutionContext) (job.Step, error)
	switch jc.Kind {
	case config.KindGitHubReleases:
		build = a.releaseStep
	case config.KindReddit:
		build = a.redditStep
	case config.KindFeed:
		build = a.feedStep
	case config.KindArxiv:
		build = a.arxivStep
	default:
		return job.Definition{}, job.Fatal(errors.Newf("job %s: unknown kind %q", jc.Name, jc.Kind))
	}

	return job.Definition{
		Name:   jc.Name,
		Cron:   jc.Schedule(a.cfg.Scheduler.CronExpression),
		Source: &job.SourceRef{URL: jc.Source.URL, Category: jc.Source.Category},
		Params: jc.Params,
		Build: func(exec domain.ExecutionContext) ([]job.Step, error) {
			step, err := build(jc, exec)
			if err != nil {
				return nil, err
			}
			return []job.Step{step}, nil
		},
	}, nil
}

func (a *Application) stepConfig(jc config.JobConfig) job.StepConfig {
	return job.StepConfig{
		Name:      jc.Kind,
		JobName:   jc.Name,
		ChunkSize: jc.ChunkSize,
		Retry:     retry.Runner{Policy: a.cfg.Retry},
		Logger:    logging.Component(a.logger, "step"),
		Metrics:   a.metrics,
	}
}

func (a *Application) processorOptions(jc config.JobConfig) processor.Options {
	return processor.Options{
		SummaryLength: jc.SummaryLength,
		Logger:        logging.Component(a.logger, "processor").With(zap.String("job", jc.Name)),
	}
}

func pageSize(jc config.JobConfig) int {
	if jc.PageSize > 0 {
		return jc.PageSize
	}
	return defaultPageSize
}

func (a *Application) releaseStep(jc config.JobConfig, exec domain.ExecutionContext) (job.Step, error) {
	repo := exec.Identity.Param("repo")
	if repo == "" {
		return nil, errors.Newf("job %s: repo parameter is empty", jc.Name)
	}

	rd := reader.NewPaged(func(ctx context.Context, req reader.PageRequest) (reader.Page[domain.GitHubRelease], error) {
		return a.github.Releases(ctx, repo, req)
	}, pageSize(jc), 1)

	return job.NewChunkStep[domain.GitHubRelease](a.stepConfig(jc), rd,
		processor.NewReleaseProcessor(exec, repo, a.processorOptions(jc)), a.writer), nil
}

func (a *Application) redditStep(jc config.JobConfig, exec domain.ExecutionContext) (job.Step, error) {
	subreddit := exec.Identity.Param("subreddit")
	if subreddit == "" {
		return nil, errors.Newf("job %s: subreddit parameter is empty", jc.Name)
	}
	sort := exec.Identity.Param("sort")

	rd := reader.NewPaged(func(ctx context.Context, req reader.PageRequest) (reader.Page[domain.RedditPost], error) {
		return a.reddit.Listing(ctx, subreddit, sort, req)
	}, pageSize(jc), 0)

	return job.NewChunkStep[domain.RedditPost](a.stepConfig(jc), rd,
		processor.NewRedditProcessor(exec, a.reddit.BaseURL(), a.processorOptions(jc)), a.writer), nil
}

func (a *Application) feedStep(jc config.JobConfig, exec domain.ExecutionContext) (job.Step, error) {
	rd := reader.NewSingleShot(func(ctx context.Context) ([]*gofeed.Item, error) {
		return a.feeds.Items(ctx, jc.URL)
	}, jc.Limit)

	return job.NewChunkStep[*gofeed.Item](a.stepConfig(jc), rd,
		processor.NewFeedProcessor(exec, a.processorOptions(jc)), a.writer), nil
}

func (a *Application) arxivStep(jc config.JobConfig, exec domain.ExecutionContext) (job.Step, error) {
	var since time.Time
	if raw := exec.Identity.Param(ParamSince); raw != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, raw, a.cfg.Scheduler.Location())
		if err != nil {
			return nil, errors.Wrapf(err, "job %s: invalid %s parameter", jc.Name, ParamSince)
		}
		since = parsed
	}

	category := exec.Identity.Param("category")
	if category == "" {
		category = exec.Source.Category
	}

	rd := reader.NewSliced(func(ctx context.Context) ([]domain.ArxivEntry, error) {
		return a.arxiv.Scan(ctx, category, jc.URL, since)
	}, pageSize(jc))

	return job.NewChunkStep[domain.ArxivEntry](a.stepConfig(jc), rd,
		processor.NewArxivProcessor(exec, a.processorOptions(jc)), a.writer), nil
}
