package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every cache key in Redis.
const KeyPrefix = "artic"

// Key identifies a cached response by endpoint and query.
type Key struct {
	// Endpoint is the request path, e.g. "/api/v1/artworks".
	Endpoint string

	Query url.Values
}

// String returns a deterministic Redis key.
//
//	artic:api/v1/artworks:fields=id,title:limit=12:page=3
func (k Key) String() string {
	parts := []string{KeyPrefix}

	if endpoint := strings.Trim(k.Endpoint, "/"); endpoint != "" {
		parts = append(parts, endpoint)
	}

	names := make([]string, 0, len(k.Query))
	for name := range k.Query {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%s", name, strings.Join(k.Query[name], ",")))
	}

	return strings.Join(parts, ":")
}
