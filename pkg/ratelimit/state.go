// Package ratelimit tracks the artworks API request quota and gates
// requests before the quota runs out.
//
// The API reports its quota in X-RateLimit-Limit and X-RateLimit-Remaining
// and, once exhausted, answers 429 with Retry-After. The tracker keeps the
// last reported values in Redis so every process sharing an egress IP sees
// the same budget.
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state.
const (
	RedisKeyRemaining      = "artic:rate_limit:remaining"
	RedisKeyLimit          = "artic:rate_limit:limit"
	RedisKeyResetTimestamp = "artic:rate_limit:reset_timestamp"
	RedisKeyLastUpdate     = "artic:rate_limit:last_update"
)

// DefaultWindow is assumed when the API does not say when the quota resets.
const DefaultWindow = 60 * time.Second

// Thresholds on remaining requests.
const (
	// ThresholdCritical blocks requests below this many remaining.
	ThresholdCritical = 2

	// ThresholdWarning throttles requests below this many remaining.
	ThresholdWarning = 10

	// ThresholdHealthy marks the state healthy at or above this many.
	ThresholdHealthy = 20
)

// State is the last quota reported by the API.
type State struct {
	Remaining int `json:"remaining"`

	// Limit is the quota per window, 0 when unknown.
	Limit int `json:"limit"`

	ResetAt    time.Time `json:"reset_at"`
	LastUpdate time.Time `json:"last_update"`
	IsHealthy  bool      `json:"is_healthy"`
}

// IsStale reports whether the state is older than maxAge.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock reports whether requests must stop until the reset.
// A window that has already reset never blocks.
func (s *State) NeedsCriticalBlock() bool {
	return s.Remaining < ThresholdCritical && s.TimeUntilReset() > 0
}

// NeedsThrottling reports whether requests should be slowed down.
func (s *State) NeedsThrottling() bool {
	return s.Remaining < ThresholdWarning && !s.NeedsCriticalBlock() && s.TimeUntilReset() > 0
}

// TimeUntilReset returns the time until the quota resets, or 0.
func (s *State) TimeUntilReset() time.Duration {
	d := time.Until(s.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}

// UpdateHealth recomputes IsHealthy from Remaining.
func (s *State) UpdateHealth() {
	s.IsHealthy = s.Remaining >= ThresholdHealthy
}
