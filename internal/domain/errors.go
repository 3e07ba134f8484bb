package domain

import (
	"errors"
	"fmt"
)

// ErrNoHistoricalData is returned when every holding in a history request
// failed to produce a series. It is the only whole-batch failure the
// history engine reports; single-holding failures are contained.
var ErrNoHistoricalData = errors.New("no historical data available for any holding")

// RateLimitedError indicates an upstream kept responding with 429 until
// the retry budget was exhausted.
type RateLimitedError struct {
	Upstream string
	Attempts int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: rate limited after %d attempts", e.Upstream, e.Attempts)
}

// UpstreamError indicates an upstream returned a non-2xx, non-429 status.
type UpstreamError struct {
	Upstream string
	Status   int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Upstream, e.Status)
}

// UpstreamUnreachableError indicates a network or timeout failure before
// any HTTP status was received.
type UpstreamUnreachableError struct {
	Upstream string
	Err      error
}

func (e *UpstreamUnreachableError) Error() string {
	return fmt.Sprintf("%s: unreachable: %v", e.Upstream, e.Err)
}

func (e *UpstreamUnreachableError) Unwrap() error {
	return e.Err
}

// PriceUnavailableError indicates every applicable provider was exhausted
// for one identifier. LastErr is the error from the last source tried.
type PriceUnavailableError struct {
	Identifier string
	LastErr    error
}

func (e *PriceUnavailableError) Error() string {
	return fmt.Sprintf("price unavailable for %q: %v", e.Identifier, e.LastErr)
}

func (e *PriceUnavailableError) Unwrap() error {
	return e.LastErr
}
