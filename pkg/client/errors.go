package client

import (
	"errors"
	"fmt"
)

// ErrRateLimitBlocked is returned when the shared quota is exhausted and the
// request was not sent.
var ErrRateLimitBlocked = errors.New("request blocked: rate limit critical")

// FetchReason says which stage of a page fetch failed.
type FetchReason string

const (
	// FetchReasonNetwork covers transport failures and timeouts.
	FetchReasonNetwork FetchReason = "network"

	// FetchReasonStatus covers non-200 responses.
	FetchReasonStatus FetchReason = "status"

	// FetchReasonDecode covers unreadable or malformed bodies.
	FetchReasonDecode FetchReason = "decode"

	// FetchReasonBlocked covers requests stopped by the rate limiter.
	FetchReasonBlocked FetchReason = "blocked"
)

// FetchError is the single failure kind of the page data source.
type FetchError struct {
	Page       int
	Reason     FetchReason
	StatusCode int
	Class      ErrorClass
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch page %d: %s", e.Page, e.Reason)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err is or wraps a *FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
