// Package client provides the artworks API client: response caching,
// shared rate limit tracking and page decoding.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/artic-table/pkg/artwork"
	"github.com/Sternrassler/artic-table/pkg/cache"
	"github.com/Sternrassler/artic-table/pkg/ratelimit"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artic_requests_total",
		Help: "Total artworks API requests by status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "artic_request_duration_seconds",
		Help:    "Artworks API request duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artic_errors_total",
		Help: "Total artworks API errors by class",
	}, []string{"class"})
)

// ErrorClass classifies a failed request.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx responses other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport errors and timeouts.
	ErrorClassNetwork ErrorClass = "network"
)

// ArtworksEndpoint is the listing endpoint, relative to the base URL.
const ArtworksEndpoint = "/artworks"

// MaxPageLimit is the largest page size the API accepts.
const MaxPageLimit = 100

// Client fetches pages of artworks.
type Client struct {
	httpClient  *http.Client
	baseURL     *url.URL
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Redis enables response caching and shared rate limit state.
	// Nil disables both.
	Redis *redis.Client

	// BaseURL is the API root, e.g. "https://api.artic.edu/api/v1".
	BaseURL string

	// UserAgent identifies the application. The API asks for a contact
	// address: "AppName/Version (contact@example.com)".
	UserAgent string

	// PageLimit is the number of records per page, 1..MaxPageLimit.
	PageLimit int

	// Timeout bounds a single HTTP request.
	Timeout time.Duration
}

// DefaultConfig returns the production configuration.
func DefaultConfig(redis *redis.Client, userAgent string) Config {
	return Config{
		Redis:     redis,
		BaseURL:   "https://api.artic.edu/api/v1",
		UserAgent: userAgent,
		PageLimit: 12,
		Timeout:   15 * time.Second,
	}
}

// New creates a client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.PageLimit < 1 || cfg.PageLimit > MaxPageLimit {
		return nil, fmt.Errorf("page_limit must be between 1 and %d (got %d)", MaxPageLimit, cfg.PageLimit)
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	logger := log.With().Str("component", "artic-client").Logger()

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    base,
		config:     cfg,
		logger:     logger,
	}

	if cfg.Redis != nil {
		c.rateLimiter = ratelimit.NewTracker(cfg.Redis, logger)
		c.cache = cache.NewManager(cfg.Redis)
	}

	return c, nil
}

// Do performs a GET with rate limit gating and caching. A fresh cache
// entry is returned without a request; a stale one is revalidated.
// Non-2xx responses are returned to the caller, not turned into errors.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	start := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(start).Seconds())
	}()

	key := cache.Key{Endpoint: endpoint, Query: req.URL.Query()}

	var cached *cache.Entry
	if c.cache != nil {
		entry, err := c.cache.Get(ctx, key)
		switch {
		case err == nil && !entry.IsExpired():
			cache.CacheHits.WithLabelValues("redis").Inc()
			requestsTotal.WithLabelValues("cache").Inc()
			c.logger.Debug().
				Str("key", key.String()).
				Dur("ttl", entry.TTL()).
				Dur("age", entry.Age()).
				Msg("Serving fresh cache entry")
			return cache.ToResponse(entry), nil
		case err == nil:
			cached = entry
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	if c.rateLimiter != nil {
		allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Rate limit check failed")
			if ctx.Err() != nil {
				return nil, err
			}
		} else if !allowed {
			requestsTotal.WithLabelValues("rate_limited").Inc()
			return nil, ErrRateLimitBlocked
		}
	}

	if cached != nil && cache.ShouldMakeConditionalRequest(cached) {
		cache.AddConditionalHeaders(req, cached)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("etag", cached.ETag).
			Msg("Revalidating stale cache entry")
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("AIC-User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues("network_error").Inc()
		return nil, err
	}

	if c.rateLimiter != nil {
		if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}
	}

	requestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusNotModified && cached != nil {
		cache.NotModifiedResponses.Inc()
		resp.Body.Close()

		entry := cached
		if refreshed, err := c.cache.Refresh(ctx, key, cache.ParseExpires(resp.Header)); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
		} else {
			entry = refreshed
		}
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		return cache.ToResponse(entry), nil
	}

	if class := classifyStatus(resp.StatusCode); class != "" {
		errorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Artworks API request error")
		return resp, nil
	}

	if c.cache != nil && resp.StatusCode == http.StatusOK {
		entry, err := cache.FromResponse(resp)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if err := c.cache.Set(ctx, key, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		}
	}

	return resp, nil
}

// classifyStatus returns the error class of a status code, or "" for
// success.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// Get performs a GET request to an endpoint relative to the base URL.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + "/" + strings.TrimLeft(endpoint, "/")
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.Do(req)
}

// PageQuery returns the query for one page of artworks.
func (c *Client) PageQuery(page int) url.Values {
	return url.Values{
		"page":   []string{strconv.Itoa(page)},
		"limit":  []string{strconv.Itoa(c.config.PageLimit)},
		"fields": []string{strings.Join(artwork.Fields, ",")},
	}
}

// FetchPage fetches and decodes one page of artworks. Every failure is a
// *FetchError; nothing is retried.
func (c *Client) FetchPage(ctx context.Context, page int) (*artwork.Page, error) {
	if page < 1 {
		return nil, &FetchError{Page: page, Reason: FetchReasonStatus, Err: fmt.Errorf("page must be >= 1")}
	}

	fetchID := uuid.NewString()
	logger := c.logger.With().Str("fetch_id", fetchID).Int("page", page).Logger()
	start := time.Now()

	resp, err := c.Get(ctx, ArtworksEndpoint, c.PageQuery(page))
	if err != nil {
		reason, class := FetchReasonNetwork, ErrorClassNetwork
		if errors.Is(err, ErrRateLimitBlocked) {
			reason, class = FetchReasonBlocked, ErrorClassRateLimit
		}
		logger.Error().Err(err).Str("reason", string(reason)).Msg("Page fetch failed")
		return nil, &FetchError{Page: page, Reason: reason, Class: class, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read page body")
		return nil, &FetchError{Page: page, Reason: FetchReasonNetwork, Class: ErrorClassNetwork, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		logger.Error().Int("status", resp.StatusCode).Msg("Page fetch failed")
		return nil, &FetchError{
			Page:       page,
			Reason:     FetchReasonStatus,
			StatusCode: resp.StatusCode,
			Class:      classifyStatus(resp.StatusCode),
			Err:        errors.New(http.StatusText(resp.StatusCode)),
		}
	}

	result, err := artwork.Decode(body)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to decode page")
		return nil, &FetchError{Page: page, Reason: FetchReasonDecode, StatusCode: resp.StatusCode, Err: err}
	}
	if result.Pagination.CurrentPage == 0 {
		result.Pagination.CurrentPage = page
	}

	logger.Debug().
		Int("records", len(result.Records)).
		Int("total_pages", result.Pagination.TotalPages).
		Dur("duration", time.Since(start)).
		Msg("Page fetched")

	return result, nil
}

// PageLimit returns the configured page size.
func (c *Client) PageLimit() int {
	return c.config.PageLimit
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient replaces the HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager, nil without Redis.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}
