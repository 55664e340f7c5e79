package reader

import (
	"context"

	"ContentIngestor/internal/ports"
)

// PageRequest carries every paging dialect a passthrough upstream may speak.
// Number starts at the reader's first page, Offset counts items already
// returned, Cursor is whatever the previous page handed back.
type PageRequest struct {
	Number int
	Offset int
	Size   int
	Cursor string
}

// Page is one upstream response.
type Page[T any] struct {
	Items      []T
	NextCursor string
	HasMore    bool
}

// PageFetcher performs exactly one upstream request.
type PageFetcher[T any] func(ctx context.Context, req PageRequest) (Page[T], error)

// Paged maps each NextPage call to one upstream request; nothing is cached.
type Paged[T any] struct {
	state
	fetch     PageFetcher[T]
	size      int
	firstPage int
	req       PageRequest
	done      bool
}

var _ ports.PageReader[struct{}] = (*Paged[struct{}])(nil)

// NewPaged builds a passthrough reader. firstPage is 0 or 1 depending on the
// upstream's numbering.
func NewPaged[T any](fetch PageFetcher[T], size, firstPage int) *Paged[T] {
	if size <= 0 {
		size = 1
	}
	return &Paged[T]{fetch: fetch, size: size, firstPage: firstPage}
}

// Open rewinds to the first page.
func (p *Paged[T]) Open(context.Context) error {
	p.req = PageRequest{Number: p.firstPage, Size: p.size}
	p.done = false
	p.open = true
	return nil
}

// NextPage requests the current page and advances only on success.
func (p *Paged[T]) NextPage(ctx context.Context) ([]T, bool, error) {
	if err := p.check(); err != nil {
		return nil, false, err
	}
	if p.done {
		return nil, false, nil
	}

	page, err := p.fetch(ctx, p.req)
	if err != nil {
		return nil, false, err
	}

	p.req.Number++
	p.req.Offset += len(page.Items)
	p.req.Cursor = page.NextCursor

	hasMore := page.HasMore && len(page.Items) > 0
	if !hasMore {
		p.done = true
	}
	return page.Items, hasMore, nil
}

// Close releases the reader.
func (p *Paged[T]) Close() error {
	p.open = false
	return nil
}
