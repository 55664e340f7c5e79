package reader

import (
	"context"

	"ContentIngestor/internal/ports"
)

// SingleShot treats the whole upstream result as one page, e.g. a fixed
// "top N" feed. A positive limit truncates the result.
type SingleShot[T any] struct {
	state
	fetch FetchAll[T]
	limit int
	done  bool
}

var _ ports.PageReader[struct{}] = (*SingleShot[struct{}])(nil)

// NewSingleShot builds a single-page reader; limit <= 0 keeps every item.
func NewSingleShot[T any](fetch FetchAll[T], limit int) *SingleShot[T] {
	return &SingleShot[T]{fetch: fetch, limit: limit}
}

// Open arms the reader for one fetch.
func (s *SingleShot[T]) Open(context.Context) error {
	s.done = false
	s.open = true
	return nil
}

// NextPage fetches once; every later call reports exhaustion.
func (s *SingleShot[T]) NextPage(ctx context.Context) ([]T, bool, error) {
	if err := s.check(); err != nil {
		return nil, false, err
	}
	if s.done {
		return nil, false, nil
	}

	items, err := s.fetch(ctx)
	if err != nil {
		return nil, false, err
	}
	s.done = true

	if s.limit > 0 && len(items) > s.limit {
		items = items[:s.limit]
	}
	return items, false, nil
}

// Close releases the reader.
func (s *SingleShot[T]) Close() error {
	s.open = false
	return nil
}
