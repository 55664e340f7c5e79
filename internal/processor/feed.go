package processor

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"ContentIngestor/internal/domain"
	"ContentIngestor/internal/ports"
)

// FeedIDPrefix namespaces hashed feed entry ids.
const FeedIDPrefix = "feed"

// FeedProcessor maps RSS/Atom entries. Entries have no natural id, so the
// externalId is a digest of the guid, or of the link when the guid is
// missing. An unusable date falls back to now.
type FeedProcessor struct {
	base
}

var _ ports.ItemProcessor[*gofeed.Item] = (*FeedProcessor)(nil)

// NewFeedProcessor builds a feed processor.
func NewFeedProcessor(exec domain.ExecutionContext, opts Options) *FeedProcessor {
	return &FeedProcessor{base: newBase(exec, "feed", opts)}
}

// Process maps one entry.
func (p *FeedProcessor) Process(_ context.Context, item *gofeed.Item) (domain.CanonicalCreateRequest, bool) {
	if item == nil {
		return p.skip("nil entry")
	}

	link := strings.TrimSpace(item.Link)
	if link == "" && strings.HasPrefix(item.GUID, "http") {
		link = item.GUID
	}
	title := StripMarkup(item.Title)
	if blank(title, link) {
		return p.skip("missing title or link", zap.String("guid", item.GUID))
	}

	parsed, ok := entryDate(item)
	published, _ := DateFallbackNow.Resolve(parsed, ok, p.now)

	body := item.Description
	if strings.TrimSpace(body) == "" {
		body = item.Content
	}

	meta := map[string]string{
		"category": p.classifier.Classify(append([]string{title}, item.Categories...)...),
	}
	if len(item.Categories) > 0 {
		meta["tags"] = strings.Join(item.Categories, ",")
	}
	if item.Author != nil {
		putIf(meta, "author", item.Author.Name)
	} else if len(item.Authors) > 0 && item.Authors[0] != nil {
		putIf(meta, "author", item.Authors[0].Name)
	}
	putIf(meta, "guid", item.GUID)

	return domain.CanonicalCreateRequest{
		SourceIdentifier: p.sourceID,
		Title:            title,
		Summary:          Shape(body, p.summaryLength),
		URL:              link,
		PublishedAt:      published,
		SourceType:       domain.SourceTypeFeed,
		Status:           domain.StatusPending,
		ExternalID:       HashedID(FeedIDPrefix, item.GUID, link),
		Metadata:         meta,
	}, true
}

func entryDate(item *gofeed.Item) (time.Time, bool) {
	switch {
	case item.PublishedParsed != nil:
		return *item.PublishedParsed, true
	case item.UpdatedParsed != nil:
		return *item.UpdatedParsed, true
	}
	return ParseDate(item.Published)
}
