package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "artic_rate_limit_remaining",
		Help: "Requests remaining in the current artworks API window",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artic_rate_limit_blocks_total",
		Help: "Total number of requests blocked because the quota is exhausted",
	})

	rateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artic_rate_limit_throttles_total",
		Help: "Total number of requests delayed because the quota is low",
	})
)

// DefaultThrottleDelay is the pause applied in the warning range.
const DefaultThrottleDelay = 1 * time.Second

// unixThreshold separates a reset given as a unix timestamp from one given
// in seconds.
const unixThreshold = 1_000_000_000

// Tracker reads quota headers and gates requests.
type Tracker struct {
	redis         *redis.Client
	logger        zerolog.Logger
	throttleDelay time.Duration
}

// NewTracker creates a rate limit tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:         redisClient,
		logger:        logger,
		throttleDelay: DefaultThrottleDelay,
	}
}

// SetThrottleDelay changes the warning-range pause.
func (t *Tracker) SetThrottleDelay(d time.Duration) {
	t.throttleDelay = d
}

// GetState returns the stored state, or a healthy default when none exists.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	vals, err := t.redis.MGet(ctx,
		RedisKeyRemaining,
		RedisKeyLimit,
		RedisKeyResetTimestamp,
		RedisKeyLastUpdate,
	).Result()
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}

	if vals[0] == nil {
		t.logger.Debug().Msg("No rate limit state in Redis, assuming healthy")
		now := time.Now()
		return &State{
			Remaining:  ThresholdHealthy,
			ResetAt:    now.Add(DefaultWindow),
			LastUpdate: now,
			IsHealthy:  true,
		}, nil
	}

	remaining, err := intValue(vals[0])
	if err != nil {
		return nil, fmt.Errorf("parse remaining: %w", err)
	}
	limit, err := intValue(vals[1])
	if err != nil {
		return nil, fmt.Errorf("parse limit: %w", err)
	}
	reset, err := intValue(vals[2])
	if err != nil {
		return nil, fmt.Errorf("parse reset timestamp: %w", err)
	}
	lastUpdate, err := intValue(vals[3])
	if err != nil {
		return nil, fmt.Errorf("parse last update: %w", err)
	}

	state := &State{
		Remaining:  remaining,
		Limit:      limit,
		ResetAt:    time.Unix(int64(reset), 0),
		LastUpdate: time.UnixMilli(int64(lastUpdate)),
	}
	state.UpdateHealth()
	return state, nil
}

// intValue converts an MGet value, treating a missing key as 0.
func intValue(v interface{}) (int, error) {
	if v == nil {
		return 0, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected type %T", v)
	}
	return strconv.Atoi(s)
}

// ParseHeaders extracts quota state from response headers. ok is false
// when the response carries no quota information.
func ParseHeaders(headers http.Header) (state *State, ok bool, err error) {
	now := time.Now()
	state = &State{
		ResetAt:    now.Add(DefaultWindow),
		LastUpdate: now,
	}

	remainStr := headers.Get("X-RateLimit-Remaining")
	retryStr := headers.Get("Retry-After")
	if remainStr == "" && retryStr == "" {
		return nil, false, nil
	}

	if remainStr != "" {
		state.Remaining, err = strconv.Atoi(remainStr)
		if err != nil {
			return nil, false, fmt.Errorf("parse X-RateLimit-Remaining header: %w", err)
		}
	}

	if limitStr := headers.Get("X-RateLimit-Limit"); limitStr != "" {
		state.Limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return nil, false, fmt.Errorf("parse X-RateLimit-Limit header: %w", err)
		}
	}

	switch {
	case retryStr != "":
		secs, err := strconv.Atoi(retryStr)
		if err != nil {
			return nil, false, fmt.Errorf("parse Retry-After header: %w", err)
		}
		state.ResetAt = now.Add(time.Duration(secs) * time.Second)
	case headers.Get("X-RateLimit-Reset") != "":
		reset, err := strconv.ParseInt(headers.Get("X-RateLimit-Reset"), 10, 64)
		if err != nil {
			return nil, false, fmt.Errorf("parse X-RateLimit-Reset header: %w", err)
		}
		if reset >= unixThreshold {
			state.ResetAt = time.Unix(reset, 0)
		} else {
			state.ResetAt = now.Add(time.Duration(reset) * time.Second)
		}
	}

	state.UpdateHealth()
	return state, true, nil
}

// UpdateFromHeaders stores the quota reported by a response.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	state, ok, err := ParseHeaders(headers)
	if err != nil || !ok {
		return err
	}

	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyRemaining, state.Remaining, 0)
	pipe.Set(ctx, RedisKeyLimit, state.Limit, 0)
	pipe.Set(ctx, RedisKeyResetTimestamp, state.ResetAt.Unix(), 0)
	pipe.Set(ctx, RedisKeyLastUpdate, state.LastUpdate.UnixMilli(), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	rateLimitRemaining.Set(float64(state.Remaining))

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Int("remaining", state.Remaining).
			Time("reset_at", state.ResetAt).
			Msg("Rate limit CRITICAL - requests will be blocked")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Time("reset_at", state.ResetAt).
			Msg("Rate limit WARNING - requests will be throttled")
	default:
		t.logger.Debug().
			Int("remaining", state.Remaining).
			Int("limit", state.Limit).
			Bool("is_healthy", state.IsHealthy).
			Msg("Rate limit state updated")
	}

	return nil
}

// ShouldAllowRequest reports whether a request may be sent. In the warning
// range it pauses for the throttle delay first.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, err
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("remaining", state.Remaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Rate limit critical - blocking request")
		rateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Dur("delay", t.throttleDelay).
			Msg("Rate limit warning - throttling request")
		rateLimitThrottlesTotal.Inc()

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(t.throttleDelay):
		}
	}

	return true, nil
}
