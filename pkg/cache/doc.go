// Package cache stores artworks API responses in Redis.
//
// Entries keep the response body together with its validators (ETag,
// Last-Modified) and freshness (Expires or Cache-Control max-age). A fresh
// entry is served without touching the network. A stale entry is kept in
// Redis for a grace period so the client can revalidate it with a
// conditional request; a 304 Not Modified answer extends its freshness.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.Key{
//		Endpoint: "/api/v1/artworks",
//		Query:    url.Values{"page": []string{"2"}, "limit": []string{"12"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	switch {
//	case errors.Is(err, cache.ErrCacheMiss):
//		// fetch
//	case entry.IsExpired():
//		cache.AddConditionalHeaders(req, entry)
//	default:
//		resp := cache.ToResponse(entry)
//	}
//
// # Metrics
//
//   - artic_cache_hits_total{layer="redis"}
//   - artic_cache_misses_total
//   - artic_cache_size_bytes{layer="redis"}
//   - artic_conditional_requests_total
//   - artic_304_responses_total
//   - artic_cache_errors_total{operation}
package cache
