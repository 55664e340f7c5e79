package processor

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"ContentIngestor/internal/domain"
	"ContentIngestor/internal/ports"
)

// ArxivIDPrefix namespaces arXiv identifiers.
const ArxivIDPrefix = "arxiv"

// ArxivProcessor maps scraped listing rows. Listing dates are best effort,
// so a missing date falls back to now.
type ArxivProcessor struct {
	base
}

var _ ports.ItemProcessor[domain.ArxivEntry] = (*ArxivProcessor)(nil)

// NewArxivProcessor builds a scraper processor.
func NewArxivProcessor(exec domain.ExecutionContext, opts Options) *ArxivProcessor {
	return &ArxivProcessor{base: newBase(exec, "arxiv", opts)}
}

// Process maps one entry.
func (p *ArxivProcessor) Process(_ context.Context, e domain.ArxivEntry) (domain.CanonicalCreateRequest, bool) {
	title := StripMarkup(e.Title)
	if blank(title, e.URL) {
		return p.skip("missing title or url", zap.String("arxiv_id", e.ID))
	}

	published, _ := DateFallbackNow.Resolve(e.PublishedAt, !e.PublishedAt.IsZero(), p.now)

	externalID := NaturalID(ArxivIDPrefix, strings.TrimPrefix(e.ID, "arXiv:"))
	if externalID == "" {
		externalID = HashedID(ArxivIDPrefix, e.URL)
	}

	meta := map[string]string{
		"category": p.classifier.Classify(title, e.Category),
	}
	putIf(meta, "tags", e.Category)
	putIf(meta, "author", strings.Join(e.Authors, ", "))

	return domain.CanonicalCreateRequest{
		SourceIdentifier: p.sourceID,
		Title:            title,
		Summary:          Shape(e.Abstract, p.summaryLength),
		URL:              e.URL,
		PublishedAt:      published,
		SourceType:       domain.SourceTypeWebScrape,
		Status:           domain.StatusPending,
		ExternalID:       externalID,
		Metadata:         meta,
	}, true
}
