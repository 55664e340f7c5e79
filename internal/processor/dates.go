package processor

import (
	"strings"
	"time"
)

// DatePolicy decides what happens when an item's timestamp is unusable.
type DatePolicy int

const (
	// DateRequired drops the item.
	DateRequired DatePolicy = iota
	// DateFallbackNow stamps the item with the current time.
	DateFallbackNow
)

// CommonLayouts covers the timestamp formats seen across feeds and APIs.
var CommonLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2 Jan 2006",
	"Mon, 2 Jan 2006 15:04:05 -0700",
}

// ParseDate tries each layout in order.
func ParseDate(raw string, layouts ...string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if len(layouts) == 0 {
		layouts = CommonLayouts
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Resolve applies the policy to a parse result.
func (p DatePolicy) Resolve(t time.Time, ok bool, now func() time.Time) (time.Time, bool) {
	if ok && !t.IsZero() {
		return t.UTC(), true
	}
	if p == DateFallbackNow {
		return now().UTC(), true
	}
	return time.Time{}, false
}
