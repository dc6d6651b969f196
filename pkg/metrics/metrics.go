// Package metrics documents the Prometheus metrics of artic-table and
// serves them over HTTP.
//
// All metrics are defined in their respective packages (client, cache,
// ratelimit, pagination, selection) and registered via promauto, which
// avoids circular dependencies.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by artic-table.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// ReadyFunc reports whether the dependencies of the process are reachable.
type ReadyFunc func(ctx context.Context) error

// Handler returns the /metrics handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// NewMux returns a mux serving /metrics, /health and /ready. A nil ready
// always reports ready.
func NewMux(ready ReadyFunc) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(ready))
	return mux
}

// NewServer returns an HTTP server for NewMux on addr.
func NewServer(addr string, ready ReadyFunc) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewMux(ready),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func readyHandler(ready ReadyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				http.Error(w, fmt.Sprintf("not ready: %v", err), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - artic_requests_total{status} (Counter): Requests by HTTP status, "cache", "rate_limited" or "network_error"
//   - artic_request_duration_seconds (Histogram): Request duration including cache lookups
//   - artic_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Cache Metrics (pkg/cache):
//   - artic_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - artic_cache_misses_total (Counter): Cache misses
//   - artic_cache_size_bytes{layer="redis"} (Gauge): Bytes written by the last cache store
//   - artic_304_responses_total (Counter): 304 Not Modified responses
//   - artic_conditional_requests_total (Counter): Conditional requests sent with If-None-Match
//   - artic_cache_errors_total{operation} (Counter): Cache operation errors
//
// Rate Limit Metrics (pkg/ratelimit):
//   - artic_rate_limit_remaining (Gauge): Requests remaining in the current window
//   - artic_rate_limit_blocks_total (Counter): Requests blocked because the quota is exhausted
//   - artic_rate_limit_throttles_total (Counter): Requests delayed because the quota is low
//
// Pagination Metrics (pkg/pagination):
//   - artic_page_loads_total{result} (Counter): Page loads by result (ok, error, stale)
//   - artic_stale_responses_total (Counter): Responses discarded because a newer fetch started
//   - artic_selection_walk_pages (Histogram): Pages loaded to fill one "select N" request
//
// Selection Metrics (pkg/selection):
//   - artic_selection_rows_selected (Gauge): Rows currently selected
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(artic_cache_hits_total[5m])) /
//   (sum(rate(artic_cache_hits_total[5m])) + sum(rate(artic_cache_misses_total[5m])))
//
//   # Quota Status
//   artic_rate_limit_remaining < 10
//
//   # Failed Page Loads
//   rate(artic_page_loads_total{result="error"}[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(artic_request_duration_seconds_bucket[5m]))
