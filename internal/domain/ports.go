package domain

import "context"

// PriceProvider defines the capability set every upstream price source
// exposes, regardless of its rate limit or symbol namespace.
type PriceProvider interface {
	// Name identifies the upstream in errors, logs and metrics
	Name() string

	// CurrentPrice retrieves the latest price for an asset identifier
	CurrentPrice(ctx context.Context, identifier string) (PricePoint, error)

	// HistoricalSeries retrieves a price series covering the last N days,
	// sampled at a provider-chosen interval
	HistoricalSeries(ctx context.Context, identifier string, days int) (TimeSeries, error)
}

// PriceResolver resolves one identifier to a current price, applying
// caching and primary/fallback failover.
type PriceResolver interface {
	Resolve(ctx context.Context, identifier string) (PricePoint, error)
}

// SeriesResolver resolves one identifier to a historical series over a
// lookback window, applying caching and primary/fallback failover.
type SeriesResolver interface {
	ResolveSeries(ctx context.Context, identifier string, days int) (TimeSeries, error)
}

// SymbolSearcher searches a provider's coin directory by name or symbol.
type SymbolSearcher interface {
	Search(ctx context.Context, query string) ([]SymbolMatch, error)
}

// SymbolLister enumerates the trading symbols available on a provider.
type SymbolLister interface {
	Symbols(ctx context.Context) (map[string]bool, error)
}
