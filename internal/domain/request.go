package domain

import "time"

// SourceType tells the downstream store which ingestion family produced a request.
type SourceType string

const (
	SourceTypeFeed       SourceType = "feed"
	SourceTypeAPIRelease SourceType = "api-release"
	SourceTypeWebScrape  SourceType = "web-scrape"
)

// Status is the initial lifecycle state of an ingested record.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusRejected  Status = "rejected"
)

// CanonicalCreateRequest is the normalized unit handed to the batch writer.
// Processors build it once; nothing downstream mutates it.
type CanonicalCreateRequest struct {
	SourceIdentifier string            `json:"sourceIdentifier"`
	Title            string            `json:"title"`
	Summary          string            `json:"summary"`
	URL              string            `json:"url"`
	PublishedAt      time.Time         `json:"publishedAt"`
	SourceType       SourceType        `json:"sourceType"`
	Status           Status            `json:"status"`
	ExternalID       string            `json:"externalId"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}
