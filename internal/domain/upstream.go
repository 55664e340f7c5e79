package domain

import "time"

// Raw upstream payloads, decoded by the source clients and mapped by the
// item processors.

// GitHubRelease is the subset of the releases API the processors read.
type GitHubRelease struct {
	ID          int64  `json:"id"`
	TagName     string `json:"tag_name"`
	Name        string `json:"name"`
	Body        string `json:"body"`
	HTMLURL     string `json:"html_url"`
	PublishedAt string `json:"published_at"`
	Draft       bool   `json:"draft"`
	Prerelease  bool   `json:"prerelease"`
	Author      struct {
		Login string `json:"login"`
	} `json:"author"`
}

// RedditPost mirrors the listing child payload.
type RedditPost struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	SelfText      string  `json:"selftext"`
	URL           string  `json:"url"`
	Permalink     string  `json:"permalink"`
	Author        string  `json:"author"`
	Subreddit     string  `json:"subreddit"`
	CreatedUTC    float64 `json:"created_utc"`
	Stickied      bool    `json:"stickied"`
	Over18        bool    `json:"over_18"`
	LinkFlairText string  `json:"link_flair_text"`
	Score         int     `json:"score"`
	NumComments   int     `json:"num_comments"`
}

// ArxivEntry is one row of an arXiv listing page. PublishedAt is zero when
// the page carried no recognizable date.
type ArxivEntry struct {
	ID          string
	Title       string
	Abstract    string
	URL         string
	Category    string
	Authors     []string
	PublishedAt time.Time
}
