package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgoncalves/portfolio-engine/internal/domain"
)

// testRetryPolicy keeps backoff short enough for unit tests
func testRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 5 * time.Millisecond}
}

func TestFetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	fetcher := NewFetcher("test", 0, testRetryPolicy(), nil)

	params := url.Values{}
	params.Set("symbol", "BTCUSDT")

	body, err := fetcher.Fetch(context.Background(), server.URL, params)

	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestFetch_RetriesThrottlingThenSucceeds(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	fetcher := NewFetcher("test", 0, testRetryPolicy(), nil)

	body, err := fetcher.Fetch(context.Background(), server.URL, nil)

	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, 3, calls)
}

func TestFetch_RateLimitedAfterRetryBudget(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	fetcher := NewFetcher("test", 0, testRetryPolicy(), nil)

	_, err := fetcher.Fetch(context.Background(), server.URL, nil)

	var rateLimited *domain.RateLimitedError
	require.ErrorAs(t, err, &rateLimited)
	assert.Equal(t, "test", rateLimited.Upstream)
	assert.Equal(t, 3, rateLimited.Attempts)
	assert.Equal(t, 3, calls)
}

func TestFetch_NonRetryableStatusFailsImmediately(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	fetcher := NewFetcher("test", 0, testRetryPolicy(), nil)

	_, err := fetcher.Fetch(context.Background(), server.URL, nil)

	var upstreamErr *domain.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, http.StatusInternalServerError, upstreamErr.Status)
	assert.Equal(t, 1, calls)
}

func TestFetch_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // closed before use: connection refused

	fetcher := NewFetcher("test", 0, testRetryPolicy(), nil)

	_, err := fetcher.Fetch(context.Background(), server.URL, nil)

	var unreachable *domain.UpstreamUnreachableError
	require.ErrorAs(t, err, &unreachable)
	assert.Equal(t, "test", unreachable.Upstream)
}

func TestFetch_EnforcesMinimumInterval(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	interval := 50 * time.Millisecond
	fetcher := NewFetcher("test", interval, testRetryPolicy(), nil)

	start := time.Now()

	_, err := fetcher.Fetch(context.Background(), server.URL, nil)
	require.NoError(t, err)
	_, err = fetcher.Fetch(context.Background(), server.URL, nil)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), interval)
}

func TestFetch_ConcurrentCallersAreSerializedByThrottle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	interval := 30 * time.Millisecond
	fetcher := NewFetcher("test", interval, testRetryPolicy(), nil)

	const callers = 4

	start := time.Now()
	var wg sync.WaitGroup
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = fetcher.Fetch(context.Background(), server.URL, nil)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	// Four callers racing on the same throttle must span at least three
	// full intervals between the first and last request.
	assert.GreaterOrEqual(t, time.Since(start), 3*interval)
}

func TestFetch_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	fetcher := NewFetcher("test", time.Second, testRetryPolicy(), nil)

	// First call consumes the immediate slot; the second has to wait a
	// full second and should be abandoned when the context is cancelled.
	_, err := fetcher.Fetch(context.Background(), server.URL, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = fetcher.Fetch(ctx, server.URL, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
