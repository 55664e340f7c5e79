package processor

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"ContentIngestor/internal/domain"
	"ContentIngestor/internal/ports"
)

// RedditIDPrefix namespaces reddit post ids.
const RedditIDPrefix = "reddit"

// RedditProcessor maps subreddit posts. Stickied and NSFW posts are dropped;
// created_utc is required.
type RedditProcessor struct {
	base
	host string
}

var _ ports.ItemProcessor[domain.RedditPost] = (*RedditProcessor)(nil)

// NewRedditProcessor resolves permalinks against host.
func NewRedditProcessor(exec domain.ExecutionContext, host string, opts Options) *RedditProcessor {
	if host == "" {
		host = "https://www.reddit.com"
	}
	return &RedditProcessor{base: newBase(exec, "reddit", opts), host: strings.TrimSuffix(host, "/")}
}

// Process maps one post.
func (p *RedditProcessor) Process(_ context.Context, post domain.RedditPost) (domain.CanonicalCreateRequest, bool) {
	link := post.URL
	if post.Permalink != "" {
		link = p.host + post.Permalink
	}
	if blank(post.Title, link, post.ID) {
		return p.skip("missing title, url or id", zap.String("post_id", post.ID))
	}

	if post.Stickied || post.Over18 {
		return p.skip("stickied or nsfw", zap.String("post_id", post.ID))
	}

	var created time.Time
	if post.CreatedUTC > 0 {
		created = time.Unix(int64(post.CreatedUTC), 0)
	}
	published, ok := DateRequired.Resolve(created, post.CreatedUTC > 0, p.now)
	if !ok {
		return p.skip("missing created_utc", zap.String("post_id", post.ID))
	}

	body := post.SelfText
	if body == "" && post.URL != link {
		body = post.URL
	}

	meta := map[string]string{
		"category": p.classifier.Classify(post.Title, post.LinkFlairText),
		"score":    strconv.Itoa(post.Score),
		"comments": strconv.Itoa(post.NumComments),
	}
	putIf(meta, "author", post.Author)
	putIf(meta, "subreddit", post.Subreddit)
	putIf(meta, "tags", post.LinkFlairText)
	if post.URL != "" && post.URL != link {
		meta["link"] = post.URL
	}

	return domain.CanonicalCreateRequest{
		SourceIdentifier: p.sourceID,
		Title:            strings.TrimSpace(post.Title),
		Summary:          Shape(body, p.summaryLength),
		URL:              link,
		PublishedAt:      published,
		SourceType:       domain.SourceTypeFeed,
		Status:           domain.StatusPending,
		ExternalID:       NaturalID(RedditIDPrefix, post.ID),
		Metadata:         meta,
	}, true
}
