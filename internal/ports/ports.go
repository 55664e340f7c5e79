package ports

import (
	"context"
	"time"

	"ContentIngestor/internal/domain"
)

// PageReader pulls raw items from a source one page at a time.
// NextPage must be safe to call again after it returned an error: the read
// position only moves once a page has been fetched successfully.
type PageReader[T any] interface {
	Open(ctx context.Context) error
	NextPage(ctx context.Context) (items []T, hasMore bool, err error)
	Close() error
}

// ItemProcessor maps one raw item to a creation request.
// A false result means the item was dropped; it is never an error.
type ItemProcessor[T any] interface {
	Process(ctx context.Context, raw T) (domain.CanonicalCreateRequest, bool)
}

// BatchWriter delivers one chunk to the downstream ingestion boundary.
type BatchWriter interface {
	Write(ctx context.Context, chunk []domain.CanonicalCreateRequest) (domain.BatchWriteOutcome, error)
}

// SourceCache is the read-only view of the source registry cache.
type SourceCache interface {
	Lookup(ctx context.Context, key string) (id string, found bool, err error)
}

// RunLedger persists run identities so the counter survives restarts.
type RunLedger interface {
	LastRunID(ctx context.Context, jobName string) (int64, error)
	Start(ctx context.Context, identity domain.JobRunIdentity) error
	Finish(ctx context.Context, identity domain.JobRunIdentity, status domain.RunStatus) error
}

// Notifier reports job outcomes to an alerting channel.
type Notifier interface {
	NotifyJob(ctx context.Context, report domain.JobReport) error
}

// Scheduler controls when jobs execute. Scheduled and manual triggers reach
// the same run function.
type Scheduler interface {
	Start(ctx context.Context, run func(ctx context.Context, jobName string, baseDate time.Time, params map[string]string)) error
	Trigger(jobName string, params map[string]string) error
	Stop(ctx context.Context) error
}
