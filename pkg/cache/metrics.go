package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts fresh entries served without a request.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artic_cache_hits_total",
			Help: "Total number of artworks cache hits",
		},
		[]string{"layer"},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "artic_cache_misses_total",
			Help: "Total number of artworks cache misses",
		},
	)

	// CacheSize tracks bytes written to the cache by layer.
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "artic_cache_size_bytes",
			Help: "Bytes written to the artworks cache",
		},
		[]string{"layer"},
	)

	ConditionalRequestsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "artic_conditional_requests_total",
			Help: "Total number of conditional requests sent to revalidate stale entries",
		},
	)

	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "artic_304_responses_total",
			Help: "Total number of 304 Not Modified responses",
		},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artic_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // get, set, delete
	)
)
