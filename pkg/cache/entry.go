package cache

import (
	"net/http"
	"time"
)

// Entry is a cached API response.
type Entry struct {
	Data []byte `json:"data"`

	// ETag is sent back as If-None-Match when revalidating.
	ETag string `json:"etag"`

	// Expires is when the entry stops being fresh.
	Expires time.Time `json:"expires"`

	LastModified time.Time `json:"last_modified"`

	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`

	CachedAt time.Time `json:"cached_at"`
}

// IsExpired reports whether the entry is stale.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the remaining freshness, or 0 once stale.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Age returns how long ago the entry was stored.
func (e *Entry) Age() time.Duration {
	return time.Since(e.CachedAt)
}
