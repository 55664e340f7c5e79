// Package processor turns raw source items into canonical creation requests.
//
// Each processor applies the same ordered rules: required fields, lifecycle
// filters, date policy, text shaping, classification, externalId, metadata.
// A dropped item is logged at warn level and never fails the job.
package processor

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"ContentIngestor/internal/domain"
)

// Options are shared by every processor.
type Options struct {
	SummaryLength int
	Now           func() time.Time
	Classifier    *Classifier
	Logger        *zap.Logger
}

type base struct {
	sourceID      string
	summaryLength int
	now           func() time.Time
	classifier    Classifier
	logger        *zap.Logger
}

func newBase(exec domain.ExecutionContext, name string, opts Options) base {
	b := base{
		sourceID:      exec.Source.ID,
		summaryLength: opts.SummaryLength,
		now:           opts.Now,
		classifier:    DefaultClassifier(),
		logger:        opts.Logger,
	}
	if b.summaryLength <= 0 {
		b.summaryLength = DefaultSummaryLength
	}
	if b.now == nil {
		b.now = time.Now
	}
	if opts.Classifier != nil {
		b.classifier = *opts.Classifier
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	b.logger = b.logger.With(zap.String("processor", name), zap.Int64("run_id", exec.Identity.RunID))
	return b
}

func (b base) skip(reason string, fields ...zap.Field) (domain.CanonicalCreateRequest, bool) {
	b.logger.Warn("item skipped", append([]zap.Field{zap.String("reason", reason)}, fields...)...)
	return domain.CanonicalCreateRequest{}, false
}

func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}

func putIf(meta map[string]string, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		meta[key] = value
	}
}
