package source

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"

	"ContentIngestor/internal/domain"
)

const (
	arxivBaseURL     = "https://arxiv.org"
	arxivDefaultShow = 200
)

var dateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// ArxivScraper walks listing pages of a category.
type ArxivScraper struct {
	http     *HTTPClient
	pageSize int
}

// NewArxivScraper wires the shared HTTP client; pageSize defaults to 200.
func NewArxivScraper(httpClient *HTTPClient, pageSize int) *ArxivScraper {
	if pageSize <= 0 {
		pageSize = arxivDefaultShow
	}
	return &ArxivScraper{http: httpClient, pageSize: pageSize}
}

// Scan collects every entry of the listing at listURL. Entries dated before
// notBefore end the scan; a zero notBefore reads the whole listing.
func (a *ArxivScraper) Scan(ctx context.Context, category, listURL string, notBefore time.Time) ([]domain.ArxivEntry, error) {
	if listURL == "" {
		return nil, errors.Newf("no listing url for category %s", category)
	}

	cutoff := notBefore.UTC().Truncate(24 * time.Hour)
	results := make([]domain.ArxivEntry, 0)
	seen := map[string]struct{}{}

	for skip := 0; ; skip += a.pageSize {
		pageURL, err := buildPageURL(listURL, skip, a.pageSize)
		if err != nil {
			return nil, errors.Wrapf(err, "category %s", category)
		}

		doc, err := a.fetchDocument(ctx, pageURL)
		if err != nil {
			return nil, errors.Wrapf(err, "category %s", category)
		}

		entries, more := a.extractEntries(doc, category, cutoff)
		for _, entry := range entries {
			if _, ok := seen[entry.ID]; ok {
				continue
			}
			seen[entry.ID] = struct{}{}
			results = append(results, entry)
		}

		if !more {
			return results, nil
		}
	}
}

func (a *ArxivScraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := a.http.Get(ctx, pageURL, nil)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "parse document")
	}
	return doc, nil
}

func (a *ArxivScraper) extractEntries(doc *goquery.Document, category string, cutoff time.Time) ([]domain.ArxivEntry, bool) {
	var (
		collected    []domain.ArxivEntry
		continueScan = true
		processed    int
	)

	doc.Find("dl > dt").EachWithBreak(func(_ int, dt *goquery.Selection) bool {
		processed++
		entry := parseEntry(dt, dt.Next(), category)

		if !cutoff.IsZero() && !entry.PublishedAt.IsZero() &&
			entry.PublishedAt.UTC().Truncate(24*time.Hour).Before(cutoff) {
			continueScan = false
			return false
		}

		collected = append(collected, entry)
		return true
	})

	if processed < a.pageSize {
		continueScan = false
	}

	return collected, continueScan
}

func parseEntry(dt, dd *goquery.Selection, category string) domain.ArxivEntry {
	link := dt.Find(`a[href*="/abs/"]`).First()
	href, _ := link.Attr("href")

	id := strings.TrimSpace(link.Text())
	if id == "" {
		id = strings.TrimPrefix(href, "/abs/")
	}

	if href != "" && !strings.HasPrefix(href, "http") {
		href = strings.TrimSuffix(arxivBaseURL, "/") + href
	}

	title := strings.TrimSpace(dd.Find(".list-title").First().Text())
	title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))

	abstract := dd.Find("p.mathjax").First().Text()
	abstract = strings.TrimSpace(strings.TrimPrefix(abstract, "Abstract:"))

	var authors []string
	dd.Find(".list-authors a").Each(func(_ int, s *goquery.Selection) {
		if name := strings.TrimSpace(s.Text()); name != "" {
			authors = append(authors, name)
		}
	})

	dateText := strings.TrimSpace(dd.Find(".list-date").First().Text())
	if dateText == "" {
		dateText = strings.TrimSpace(dd.Find(".list-dateline").First().Text())
	}

	var publishedAt time.Time
	if match := dateExpr.FindString(dateText); match != "" {
		if parsed, err := time.Parse("2 Jan 2006", match); err == nil {
			publishedAt = parsed
		}
	}

	return domain.ArxivEntry{
		ID:          id,
		Title:       title,
		Abstract:    abstract,
		URL:         href,
		Category:    category,
		Authors:     authors,
		PublishedAt: publishedAt,
	}
}

func buildPageURL(base string, skip, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", errors.Wrapf(err, "invalid listing url %s", base)
	}

	query := parsed.Query()
	query.Set("skip", strconv.Itoa(skip))
	query.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
