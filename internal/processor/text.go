package processor

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const (
	// DefaultSummaryLength bounds summaries sent downstream.
	DefaultSummaryLength = 500
	// Ellipsis is appended to truncated text.
	Ellipsis = "..."
)

// StripMarkup drops HTML tags and collapses whitespace. Plain text passes
// through unchanged apart from whitespace.
func StripMarkup(raw string) string {
	if !strings.ContainsAny(raw, "<&") {
		return collapseSpace(raw)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return collapseSpace(raw)
	}
	doc.Find("script, style").Remove()
	return collapseSpace(doc.Text())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate keeps at most limit characters (runes) and appends Ellipsis when
// anything was cut. It never splits a multi-byte sequence.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}

	count := 0
	for i := range s {
		if count == limit {
			return s[:i] + Ellipsis
		}
		count++
	}
	return s
}

// Shape strips markup and truncates to limit.
func Shape(raw string, limit int) string {
	return Truncate(StripMarkup(raw), limit)
}
