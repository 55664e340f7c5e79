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

// ReleaseIDPrefix namespaces GitHub release ids.
const ReleaseIDPrefix = "github-release"

// ReleaseProcessor maps GitHub releases. Drafts and prereleases are dropped
// and the publication date is required.
type ReleaseProcessor struct {
	base
	repo string
}

var _ ports.ItemProcessor[domain.GitHubRelease] = (*ReleaseProcessor)(nil)

// NewReleaseProcessor builds a processor for repo ("owner/name").
func NewReleaseProcessor(exec domain.ExecutionContext, repo string, opts Options) *ReleaseProcessor {
	return &ReleaseProcessor{base: newBase(exec, "github-release", opts), repo: repo}
}

// Process maps one release.
func (p *ReleaseProcessor) Process(_ context.Context, r domain.GitHubRelease) (domain.CanonicalCreateRequest, bool) {
	title := strings.TrimSpace(r.Name)
	if title == "" {
		title = strings.TrimSpace(r.TagName)
	}
	if blank(title, r.HTMLURL) {
		return p.skip("missing title or url", zap.Int64("release_id", r.ID))
	}
	if r.ID == 0 {
		return p.skip("missing release id", zap.String("url", r.HTMLURL))
	}

	if r.Draft || r.Prerelease {
		return p.skip("draft or prerelease", zap.Int64("release_id", r.ID))
	}

	parsed, ok := ParseDate(r.PublishedAt, time.RFC3339)
	published, ok := DateRequired.Resolve(parsed, ok, p.now)
	if !ok {
		return p.skip("unparseable published_at", zap.Int64("release_id", r.ID), zap.String("published_at", r.PublishedAt))
	}

	meta := map[string]string{"category": "release"}
	putIf(meta, "version", r.TagName)
	putIf(meta, "repo", p.repo)
	putIf(meta, "author", r.Author.Login)

	return domain.CanonicalCreateRequest{
		SourceIdentifier: p.sourceID,
		Title:            title,
		Summary:          Shape(r.Body, p.summaryLength),
		URL:              r.HTMLURL,
		PublishedAt:      published,
		SourceType:       domain.SourceTypeAPIRelease,
		Status:           domain.StatusPublished,
		ExternalID:       NaturalID(ReleaseIDPrefix, strconv.FormatInt(r.ID, 10)),
		Metadata:         meta,
	}, true
}
