// Package resolver looks up the registered identifier of a logical source
// before a job is allowed to run.
package resolver

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"ContentIngestor/internal/domain"
	"ContentIngestor/internal/ports"
)

// ErrSourceNotRegistered is fatal: the job must not run without a source id.
var ErrSourceNotRegistered = errors.New("source not registered")

// Resolver reads source ids from the registry cache.
type Resolver struct {
	cache  ports.SourceCache
	logger *zap.Logger
}

// New builds a resolver.
func New(cache ports.SourceCache, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{cache: cache, logger: logger}
}

// Resolve returns the source record for (url, category). A miss or a blank
// identifier yields ErrSourceNotRegistered; there is no default id.
func (r *Resolver) Resolve(ctx context.Context, url, category string) (domain.SourceRecord, error) {
	if r.cache == nil {
		return domain.SourceRecord{}, errors.New("source cache is not configured")
	}

	key := domain.SourceCacheKey(url, category)
	id, found, err := r.cache.Lookup(ctx, key)
	if err != nil {
		return domain.SourceRecord{}, errors.Wrapf(err, "lookup source %s", key)
	}

	id = strings.TrimSpace(id)
	if !found || id == "" {
		r.logger.Error("source not registered", zap.String("key", key))
		return domain.SourceRecord{}, errors.Wrapf(ErrSourceNotRegistered, "key %s", key)
	}

	r.logger.Debug("source resolved", zap.String("key", key), zap.String("source_id", id))
	return domain.SourceRecord{ID: id, URL: url, Category: category}, nil
}
