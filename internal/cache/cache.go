// Package cache provides the process-wide TTL cache shared by all
// in-flight requests. Entries expire lazily on read relative to their
// category's TTL; an optional sweeper reclaims memory.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/mgoncalves/portfolio-engine/internal/metrics"
)

// Category selects the TTL class applied to an entry.
type Category string

const (
	CurrentPrice     Category = "current-price"
	HistoricalSeries Category = "historical-series"
	SymbolDirectory  Category = "symbol-directory"
)

// TTLs maps each category to its maximum entry age.
type TTLs map[Category]time.Duration

// DefaultTTLs returns the standard TTL classes: short for live prices,
// long for historical series, very long for symbol directories.
func DefaultTTLs() TTLs {
	return TTLs{
		CurrentPrice:     2 * time.Minute,
		HistoricalSeries: 45 * time.Minute,
		SymbolDirectory:  24 * time.Hour,
	}
}

type entry struct {
	payload   any
	fetchedAt time.Time
	category  Category
}

// Cache is a concurrency-safe key -> (payload, fetched-at) store with
// per-category expiry. Expired entries are treated as absent on read and
// only removed by Sweep. Last-writer-wins on concurrent Put is acceptable:
// writes are idempotent and freshness is bounded by the TTL either way.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttls    TTLs

	// now is replaceable in tests
	now func() time.Time
}

// New creates a Cache with the given TTL classes. Categories missing from
// ttls fall back to the defaults.
func New(ttls TTLs) *Cache {
	merged := DefaultTTLs()
	for category, ttl := range ttls {
		merged[category] = ttl
	}

	return &Cache{
		entries: make(map[string]entry),
		ttls:    merged,
		now:     time.Now,
	}
}

// Get returns the payload stored under key, or false when the key is
// absent or its entry has outlived its category TTL.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		metrics.CacheLookups.WithLabelValues("none", "miss").Inc()
		return nil, false
	}

	if c.expired(e, c.now()) {
		metrics.CacheLookups.WithLabelValues(string(e.category), "expired").Inc()
		return nil, false
	}

	metrics.CacheLookups.WithLabelValues(string(e.category), "hit").Inc()
	return e.payload, true
}

// Put stores payload under key with the TTL class of category.
func (c *Cache) Put(key string, payload any, category Category) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{
		payload:   payload,
		fetchedAt: c.now(),
		category:  category,
	}
}

// Len returns the number of stored entries, including expired ones that
// have not been swept yet.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Sweep removes all expired entries and returns how many were removed.
// Sweeping is not required for correctness, only to bound memory.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0

	for key, e := range c.entries {
		if c.expired(e, now) {
			delete(c.entries, key)
			removed++
		}
	}

	return removed
}

// StartSweeper runs Sweep every interval until ctx is cancelled.
func (c *Cache) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Sweep()
			}
		}
	}()
}

func (c *Cache) expired(e entry, now time.Time) bool {
	ttl, ok := c.ttls[e.category]
	if !ok {
		return true
	}

	return now.Sub(e.fetchedAt) >= ttl
}
