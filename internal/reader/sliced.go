package reader

import (
	"context"

	"ContentIngestor/internal/ports"
)

// Sliced fetches the whole source once, on the first NextPage, and serves
// fixed-size windows of the cached sequence afterwards. It suits scrapers
// and sources without native pagination.
type Sliced[T any] struct {
	state
	fetch  FetchAll[T]
	size   int
	cache  []T
	loaded bool
	index  int
}

var _ ports.PageReader[struct{}] = (*Sliced[struct{}])(nil)

// NewSliced builds a full-fetch-then-slice reader with the given window size.
func NewSliced[T any](fetch FetchAll[T], size int) *Sliced[T] {
	if size <= 0 {
		size = 1
	}
	return &Sliced[T]{fetch: fetch, size: size}
}

// Open resets the window and drops any cache from a previous step.
func (s *Sliced[T]) Open(context.Context) error {
	s.cache = nil
	s.loaded = false
	s.index = 0
	s.open = true
	return nil
}

// NextPage returns the next window; hasMore is index < len(cache).
func (s *Sliced[T]) NextPage(ctx context.Context) ([]T, bool, error) {
	if err := s.check(); err != nil {
		return nil, false, err
	}

	if !s.loaded {
		items, err := s.fetch(ctx)
		if err != nil {
			return nil, false, err
		}
		s.cache = items
		s.loaded = true
	}

	if s.index >= len(s.cache) {
		return nil, false, nil
	}

	end := min(s.index+s.size, len(s.cache))
	window := s.cache[s.index:end]
	s.index = end
	return window, s.index < len(s.cache), nil
}

// Cached reports how many items the full fetch produced.
func (s *Sliced[T]) Cached() int {
	return len(s.cache)
}

// Close drops the cache.
func (s *Sliced[T]) Close() error {
	s.cache = nil
	s.loaded = false
	s.open = false
	return nil
}
