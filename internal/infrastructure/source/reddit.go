package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"ContentIngestor/internal/domain"
	"ContentIngestor/internal/reader"
)

const defaultRedditAPI = "https://www.reddit.com"

type redditListing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Data domain.RedditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// RedditClient walks subreddit listings with the "after" cursor.
type RedditClient struct {
	http    *HTTPClient
	baseURL string
}

// NewRedditClient builds a client; an empty baseURL targets reddit.com.
func NewRedditClient(httpClient *HTTPClient, baseURL string) *RedditClient {
	if baseURL == "" {
		baseURL = defaultRedditAPI
	}
	return &RedditClient{http: httpClient, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// BaseURL is the host permalinks are resolved against.
func (r *RedditClient) BaseURL() string {
	return r.baseURL
}

// Listing fetches one page of /r/<subreddit>/<sort>.json.
func (r *RedditClient) Listing(ctx context.Context, subreddit, sort string, req reader.PageRequest) (reader.Page[domain.RedditPost], error) {
	if subreddit == "" {
		return reader.Page[domain.RedditPost]{}, errors.New("subreddit is required")
	}
	if sort == "" {
		sort = "new"
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(req.Size))
	q.Set("raw_json", "1")
	if req.Cursor != "" {
		q.Set("after", req.Cursor)
	}
	endpoint := fmt.Sprintf("%s/r/%s/%s.json?%s", r.baseURL, url.PathEscape(subreddit), sort, q.Encode())

	body, err := r.http.Get(ctx, endpoint, nil)
	if err != nil {
		return reader.Page[domain.RedditPost]{}, errors.Wrapf(err, "list r/%s", subreddit)
	}

	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return reader.Page[domain.RedditPost]{}, errors.Wrap(err, "decode listing")
	}

	posts := make([]domain.RedditPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		posts = append(posts, child.Data)
	}

	return reader.Page[domain.RedditPost]{
		Items:      posts,
		NextCursor: listing.Data.After,
		HasMore:    listing.Data.After != "",
	}, nil
}
