package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseHeaders(t *testing.T) {
	now := time.Now()
	tolerance := 2 * time.Second

	tests := []struct {
		name          string
		headers       map[string]string
		wantOK        bool
		wantRemaining int
		wantLimit     int
		wantResetIn   time.Duration
		wantHealthy   bool
	}{
		{
			name:          "healthy quota",
			headers:       map[string]string{"X-RateLimit-Limit": "60", "X-RateLimit-Remaining": "58"},
			wantOK:        true,
			wantRemaining: 58,
			wantLimit:     60,
			wantResetIn:   DefaultWindow,
			wantHealthy:   true,
		},
		{
			name:          "reset in seconds",
			headers:       map[string]string{"X-RateLimit-Remaining": "5", "X-RateLimit-Reset": "30"},
			wantOK:        true,
			wantRemaining: 5,
			wantResetIn:   30 * time.Second,
		},
		{
			name: "reset as unix timestamp",
			headers: map[string]string{
				"X-RateLimit-Remaining": "5",
				"X-RateLimit-Reset":     strconv.FormatInt(now.Add(45*time.Second).Unix(), 10),
			},
			wantOK:        true,
			wantRemaining: 5,
			wantResetIn:   45 * time.Second,
		},
		{
			name:          "429 with only Retry-After",
			headers:       map[string]string{"Retry-After": "20"},
			wantOK:        true,
			wantRemaining: 0,
			wantResetIn:   20 * time.Second,
		},
		{
			name:    "no quota headers",
			headers: map[string]string{"Content-Type": "application/json"},
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			for k, v := range tt.headers {
				headers.Set(k, v)
			}

			state, ok, err := ParseHeaders(headers)
			if err != nil {
				t.Fatalf("ParseHeaders() error: %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}

			if state.Remaining != tt.wantRemaining {
				t.Errorf("Remaining = %d, want %d", state.Remaining, tt.wantRemaining)
			}
			if state.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", state.Limit, tt.wantLimit)
			}
			if state.IsHealthy != tt.wantHealthy {
				t.Errorf("IsHealthy = %v, want %v", state.IsHealthy, tt.wantHealthy)
			}

			want := now.Add(tt.wantResetIn)
			if diff := state.ResetAt.Sub(want); diff < -tolerance || diff > tolerance {
				t.Errorf("ResetAt = %v, want about %v", state.ResetAt, want)
			}
		})
	}
}

func TestUpdateFromHeaders_InvalidHeaders(t *testing.T) {
	tracker := NewTracker(nil, zerolog.Nop())

	tests := []struct {
		name        string
		headers     map[string]string
		shouldError bool
	}{
		{"no headers", map[string]string{}, false},
		{"invalid remaining", map[string]string{"X-RateLimit-Remaining": "many"}, true},
		{"invalid limit", map[string]string{"X-RateLimit-Remaining": "3", "X-RateLimit-Limit": "x"}, true},
		{"invalid reset", map[string]string{"X-RateLimit-Remaining": "3", "X-RateLimit-Reset": "soon"}, true},
		{"invalid retry-after", map[string]string{"Retry-After": "later"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			for k, v := range tt.headers {
				headers.Set(k, v)
			}

			err := tracker.UpdateFromHeaders(context.Background(), headers)
			if tt.shouldError && err == nil {
				t.Error("Expected error but got nil")
			}
			if !tt.shouldError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestSetThrottleDelay(t *testing.T) {
	tracker := NewTracker(nil, zerolog.Nop())
	if tracker.throttleDelay != DefaultThrottleDelay {
		t.Errorf("throttleDelay = %v, want %v", tracker.throttleDelay, DefaultThrottleDelay)
	}

	tracker.SetThrottleDelay(10 * time.Millisecond)
	if tracker.throttleDelay != 10*time.Millisecond {
		t.Errorf("throttleDelay = %v, want 10ms", tracker.throttleDelay)
	}
}

func TestIntValue(t *testing.T) {
	tests := []struct {
		in      interface{}
		want    int
		wantErr bool
	}{
		{nil, 0, false},
		{"42", 42, false},
		{"x", 0, true},
		{42, 0, true},
	}

	for _, tt := range tests {
		got, err := intValue(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("intValue(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("intValue(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
