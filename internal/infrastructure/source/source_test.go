package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContentIngestor/internal/reader"
	"ContentIngestor/internal/retry"
)

func testHTTP(server *httptest.Server) *HTTPClient {
	return NewHTTPClient(HTTPConfig{RequestsPerSecond: 1000, Burst: 100}, server.Client())
}

func TestBuildPageURL(t *testing.T) {
	t.Parallel()

	u, err := buildPageURL("https://export.arxiv.org/list/cs.AI/pastweek", 200, 100)
	require.NoError(t, err)

	parsed, err := url.Parse(u)
	require.NoError(t, err)
	assert.Equal(t, "export.arxiv.org", parsed.Host)
	assert.Equal(t, "200", parsed.Query().Get("skip"))
	assert.Equal(t, "100", parsed.Query().Get("show"))
}

func TestParseEntry(t *testing.T) {
	t.Parallel()

	html := `
	<dl>
	  <dt>
	    <span class="list-identifier"><a href="/abs/1234.56789">arXiv:1234.56789</a></span>
	  </dt>
	  <dd>
	    <div class="list-date">Date: 8 Nov 2025</div>
	    <div class="list-title mathjax">Title: Sample Title</div>
	    <div class="list-authors"><a href="/a/doe_j">Jane Doe</a>, <a href="/a/roe_r">Rick Roe</a></div>
	    <p class="mathjax">Abstract: Sample abstract text.</p>
	  </dd>
	</dl>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	entry := parseEntry(doc.Find("dt").First(), doc.Find("dd").First(), "cs.AI")

	assert.Equal(t, "arXiv:1234.56789", entry.ID)
	assert.Equal(t, "Sample Title", entry.Title)
	assert.Equal(t, "Sample abstract text.", entry.Abstract)
	assert.Equal(t, "https://arxiv.org/abs/1234.56789", entry.URL)
	assert.Equal(t, []string{"Jane Doe", "Rick Roe"}, entry.Authors)
	assert.Equal(t, time.Date(2025, time.November, 8, 0, 0, 0, 0, time.UTC), entry.PublishedAt)
}

func TestArxivScraperStopsAtCutoff(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`
		<dl>
		  <dt><a href="/abs/2501.00001">arXiv:2501.00001</a></dt>
		  <dd>
		    <div class="list-date">Date: 8 Nov 2025</div>
		    <div class="list-title mathjax">Title: Fresh Article</div>
		    <p class="mathjax">Abstract: brand new.</p>
		  </dd>
		  <dt><a href="/abs/2501.00002">arXiv:2501.00002</a></dt>
		  <dd>
		    <div class="list-date">Date: 7 Nov 2025</div>
		    <div class="list-title mathjax">Title: Old Article</div>
		    <p class="mathjax">Abstract: older.</p>
		  </dd>
		</dl>`))
	}))
	defer server.Close()

	sc := NewArxivScraper(testHTTP(server), 10)
	cutoff := time.Date(2025, time.November, 8, 0, 0, 0, 0, time.UTC)

	entries, err := sc.Scan(context.Background(), "cs.AI", server.URL+"/list/cs.AI", cutoff)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "arXiv:2501.00001", entries[0].ID)
	assert.Equal(t, "brand new.", entries[0].Abstract)

	all, err := sc.Scan(context.Background(), "cs.AI", server.URL+"/list/cs.AI", time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGitHubReleasesPaging(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/golang/go/releases", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		if r.URL.Query().Get("page") == "1" {
			w.Header().Set("Link", `<https://api.github.com/repos/golang/go/releases?page=2&per_page=2>; rel="next", `+
				`<https://api.github.com/repos/golang/go/releases?page=2&per_page=2>; rel="last"`)
			_, _ = w.Write([]byte(`[{"id":1,"tag_name":"v1.0.0","name":"One","html_url":"https://x/1"},{"id":2,"tag_name":"v1.1.0"}]`))
			return
		}
		w.Header().Set("Link", `<https://api.github.com/repos/golang/go/releases?page=1&per_page=2>; rel="prev", `+
			`<https://api.github.com/repos/golang/go/releases?page=1&per_page=2>; rel="first"`)
		_, _ = w.Write([]byte(`[{"id":3,"tag_name":"v2.0.0","draft":true},{"id":4,"tag_name":"v2.1.0"}]`))
	}))
	defer server.Close()

	gh := NewGitHubClient(testHTTP(server), server.URL, "secret")

	page, err := gh.Releases(context.Background(), "golang/go", reader.PageRequest{Number: 1, Size: 2})
	require.NoError(t, err)
	assert.True(t, page.HasMore)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(1), page.Items[0].ID)
	assert.Equal(t, "v1.0.0", page.Items[0].TagName)

	page, err = gh.Releases(context.Background(), "golang/go", reader.PageRequest{Number: 2, Size: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.False(t, page.HasMore, "a full last page has no next link")
	assert.True(t, page.Items[0].Draft)

	_, err = gh.Releases(context.Background(), "not-a-repo", reader.PageRequest{Number: 1, Size: 2})
	require.Error(t, err)
}

func TestGitHubReleasesWithoutLinkHeaderIsSinglePage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"tag_name":"v1.0.0"},{"id":2,"tag_name":"v1.1.0"}]`))
	}))
	defer server.Close()

	gh := NewGitHubClient(testHTTP(server), server.URL, "")
	page, err := gh.Releases(context.Background(), "o/r", reader.PageRequest{Number: 1, Size: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.False(t, page.HasMore)
}

func TestHasNextLink(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		values []string
		want   bool
	}{
		{name: "absent", values: nil, want: false},
		{name: "next and last", values: []string{`<https://a?page=2>; rel="next", <https://a?page=5>; rel="last"`}, want: true},
		{name: "prev only", values: []string{`<https://a?page=4>; rel="prev", <https://a?page=1>; rel="first"`}, want: false},
		{name: "unquoted", values: []string{`<https://a?page=2>; rel=next`}, want: true},
		{name: "multiple rels", values: []string{`<https://a?page=2>; rel="next last"`}, want: true},
		{name: "split header", values: []string{`<https://a?page=1>; rel="prev"`, `<https://a?page=3>; REL="Next"`}, want: true},
		{name: "nextish", values: []string{`<https://a?page=2>; rel="next-archive"`}, want: false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, hasNextLink(tc.values), tc.name)
	}
}

func TestRedditListingCursor(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/r/golang/new.json", r.URL.Path)
		if r.URL.Query().Get("after") == "" {
			_, _ = w.Write([]byte(`{"data":{"after":"t3_b","children":[{"data":{"id":"a","title":"A"}},{"data":{"id":"b","title":"B"}}]}}`))
			return
		}
		assert.Equal(t, "t3_b", r.URL.Query().Get("after"))
		_, _ = w.Write([]byte(`{"data":{"after":null,"children":[{"data":{"id":"c","title":"C","stickied":true}}]}}`))
	}))
	defer server.Close()

	rc := NewRedditClient(testHTTP(server), server.URL)

	page, err := rc.Listing(context.Background(), "golang", "", reader.PageRequest{Size: 2})
	require.NoError(t, err)
	assert.Equal(t, "t3_b", page.NextCursor)
	assert.True(t, page.HasMore)
	assert.Len(t, page.Items, 2)

	page, err = rc.Listing(context.Background(), "golang", "new", reader.PageRequest{Size: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	assert.False(t, page.HasMore)
	require.Len(t, page.Items, 1)
	assert.True(t, page.Items[0].Stickied)
}

func TestFeedClientParsesRSS(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(`<?xml version="1.0"?>
<rss version="2.0"><channel><title>Blog</title>
<item><title>Hello</title><link>https://blog.example/hello</link><guid>hello-1</guid>
<pubDate>Mon, 02 Jan 2006 15:04:05 +0000</pubDate><category>go</category></item>
</channel></rss>`))
	}))
	defer server.Close()

	items, err := NewFeedClient(testHTTP(server)).Items(context.Background(), server.URL)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Hello", items[0].Title)
	assert.Equal(t, "hello-1", items[0].GUID)
	assert.Equal(t, []string{"go"}, items[0].Categories)
	require.NotNil(t, items[0].PublishedParsed)
}

func TestHTTPClientClassifiesFailures(t *testing.T) {
	t.Parallel()

	var status atomic.Int32
	status.Store(http.StatusServiceUnavailable)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer server.Close()

	client := testHTTP(server)

	_, err := client.Get(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.True(t, retry.IsTransient(err))

	status.Store(http.StatusNotFound)
	_, err = client.Get(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.False(t, retry.IsTransient(err))
	assert.False(t, errors.Is(err, retry.ErrTransient))
}
