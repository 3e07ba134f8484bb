// Package provider contains the outbound adapters for the upstream price
// providers, plus the rate-limited HTTP fetcher they share.
package provider

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/mgoncalves/portfolio-engine/internal/domain"
	"github.com/mgoncalves/portfolio-engine/internal/metrics"
)

// RetryPolicy bounds how often a throttled request is retried and how
// long each attempt backs off. The delay grows with the attempt number
// (base, 2*base, 3*base, ...).
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy retries three times, backing off 2s, 4s, 6s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
	}
}

// Delay returns the backoff before the given 1-based attempt is retried.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(attempt)
}

// Fetcher issues HTTP GET requests against a single upstream while
// enforcing a minimum interval between calls. Each upstream gets its own
// Fetcher instance, so throttling the fallback never delays the primary.
type Fetcher struct {
	upstream string
	client   *http.Client
	interval time.Duration
	retry    RetryPolicy

	// nextSlot is the earliest time the next request may be sent. Callers
	// reserve their slot under mu, then sleep outside it, so two callers
	// can never both believe they may proceed immediately.
	mu       sync.Mutex
	nextSlot time.Time
}

// NewFetcher creates a Fetcher for one upstream. A nil client uses a
// default with a 15 second timeout.
func NewFetcher(upstream string, minInterval time.Duration, retry RetryPolicy, client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	if retry.MaxAttempts < 1 {
		retry = DefaultRetryPolicy()
	}

	return &Fetcher{
		upstream: upstream,
		client:   client,
		interval: minInterval,
		retry:    retry,
	}
}

// Fetch performs a throttled GET against rawURL with the given query
// parameters and returns the response body. Throttling responses (429)
// are retried per the policy; all other failures map onto the typed
// upstream errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	target := rawURL
	if len(params) > 0 {
		target = rawURL + "?" + params.Encode()
	}

	for attempt := 1; attempt <= f.retry.MaxAttempts; attempt++ {
		if err := f.waitTurn(ctx); err != nil {
			return nil, &domain.UpstreamUnreachableError{Upstream: f.upstream, Err: err}
		}

		body, status, err := f.get(ctx, target)
		if err != nil {
			metrics.UpstreamRequests.WithLabelValues(f.upstream, "unreachable").Inc()
			return nil, &domain.UpstreamUnreachableError{Upstream: f.upstream, Err: err}
		}

		if status == http.StatusTooManyRequests {
			metrics.UpstreamRequests.WithLabelValues(f.upstream, "rate_limited").Inc()

			if attempt == f.retry.MaxAttempts {
				break
			}

			metrics.UpstreamRetries.WithLabelValues(f.upstream).Inc()
			select {
			case <-time.After(f.retry.Delay(attempt)):
			case <-ctx.Done():
				return nil, &domain.UpstreamUnreachableError{Upstream: f.upstream, Err: ctx.Err()}
			}
			continue
		}

		if status < 200 || status > 299 {
			metrics.UpstreamRequests.WithLabelValues(f.upstream, "upstream_error").Inc()
			return nil, &domain.UpstreamError{Upstream: f.upstream, Status: status}
		}

		metrics.UpstreamRequests.WithLabelValues(f.upstream, "ok").Inc()
		return body, nil
	}

	return nil, &domain.RateLimitedError{Upstream: f.upstream, Attempts: f.retry.MaxAttempts}
}

// waitTurn reserves the next send slot and sleeps until it arrives.
func (f *Fetcher) waitTurn(ctx context.Context) error {
	f.mu.Lock()
	now := time.Now()
	slot := f.nextSlot
	if slot.Before(now) {
		slot = now
	}
	f.nextSlot = slot.Add(f.interval)
	f.mu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return nil
	}

	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Fetcher) get(ctx context.Context, target string) ([]byte, int, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, err
	}

	response, err := f.client.Do(request)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_ = response.Body.Close()
	}()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, 0, err
	}

	return body, response.StatusCode, nil
}
