package source

import (
	"bytes"
	"context"

	"github.com/cockroachdb/errors"
	"github.com/mmcdole/gofeed"
)

// FeedClient downloads and parses RSS/Atom/JSON feeds.
type FeedClient struct {
	http *HTTPClient
}

// NewFeedClient wraps the shared HTTP client.
func NewFeedClient(httpClient *HTTPClient) *FeedClient {
	return &FeedClient{http: httpClient}
}

// Items returns every entry of the feed at url.
func (f *FeedClient) Items(ctx context.Context, url string) ([]*gofeed.Item, error) {
	body, err := f.http.Get(ctx, url, map[string]string{
		"Accept": "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8",
	})
	if err != nil {
		return nil, errors.Wrap(err, "fetch feed")
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "parse feed %s", url)
	}
	if parsed.Items == nil {
		return []*gofeed.Item{}, nil
	}
	return parsed.Items, nil
}
