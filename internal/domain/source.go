package domain

// SourceRecord identifies a logical content source registered upstream.
type SourceRecord struct {
	ID       string
	URL      string
	Category string
}

// CacheKey is the lookup key used by the source registry cache.
func (s SourceRecord) CacheKey() string {
	return SourceCacheKey(s.URL, s.Category)
}

// SourceCacheKey builds "<url>:<category>".
func SourceCacheKey(url, category string) string {
	return url + ":" + category
}
