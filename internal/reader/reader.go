// Package reader implements the pagination strategies used to pull raw items
// from a source: passthrough paging, full-fetch-then-slice, and single-shot.
//
// Every reader moves its position only after a successful upstream call, so
// the step may call NextPage again after a transient failure without
// skipping or repeating a page.
package reader

import (
	"context"

	"github.com/cockroachdb/errors"
)

// ErrNotOpen is returned when NextPage is called before Open.
var ErrNotOpen = errors.New("reader is not open")

// FetchAll returns the complete result set of a source in one call.
type FetchAll[T any] func(ctx context.Context) ([]T, error)

type state struct {
	open bool
}

func (s *state) check() error {
	if !s.open {
		return ErrNotOpen
	}
	return nil
}
