// Package resolver chooses the right provider for each asset identifier,
// caches results, and fails over from the primary to the fallback.
package resolver

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mgoncalves/portfolio-engine/internal/cache"
	"github.com/mgoncalves/portfolio-engine/internal/domain"
)

// Route is the outcome of classifying an asset identifier.
type Route string

const (
	RoutePrimary  Route = "primary"
	RouteFallback Route = "fallback"
)

// quoteSuffixes are the quote-currency suffixes that mark an identifier
// as an exchange trading pair (BTCUSDT, ETHBTC, ...). Anything else is a
// provider-native slug (bitcoin, avalanche-2, ...).
var quoteSuffixes = []string{"USDT", "USDC", "BUSD", "USD", "BTC", "GBP", "EUR"}

// Classify routes an identifier to the primary or fallback provider. The
// classification is static and deterministic: no probing.
func Classify(identifier string) Route {
	// Pair symbols are upper-case by convention; slugs are not
	if identifier != strings.ToUpper(identifier) {
		return RouteFallback
	}

	for _, suffix := range quoteSuffixes {
		if strings.HasSuffix(identifier, suffix) && len(identifier) > len(suffix) {
			return RoutePrimary
		}
	}

	return RouteFallback
}

// Service resolves identifiers to prices and series through the shared
// TTL cache, with primary -> fallback failover. Fallback failures do not
// retry the primary: the fallback is already the last resort.
type Service struct {
	Primary  domain.PriceProvider
	Fallback domain.PriceProvider
	Cache    *cache.Cache
}

// NewService creates a new resolver Service instance
func NewService(primary, fallback domain.PriceProvider, priceCache *cache.Cache) *Service {
	return &Service{
		Primary:  primary,
		Fallback: fallback,
		Cache:    priceCache,
	}
}

// Resolve returns the current price for an identifier, from cache when
// fresh, otherwise from the applicable providers.
func (s *Service) Resolve(ctx context.Context, identifier string) (domain.PricePoint, error) {
	key := "price:" + identifier

	if payload, ok := s.Cache.Get(key); ok {
		if point, ok := payload.(domain.PricePoint); ok {
			return point, nil
		}
	}

	point, err := fetchFrom(s, identifier, func(p domain.PriceProvider) (domain.PricePoint, error) {
		return p.CurrentPrice(ctx, identifier)
	})
	if err != nil {
		return domain.PricePoint{}, err
	}

	s.Cache.Put(key, point, cache.CurrentPrice)

	return point, nil
}

// ResolveSeries returns the historical series for an identifier over the
// given window, with the same caching and failover discipline.
func (s *Service) ResolveSeries(ctx context.Context, identifier string, days int) (domain.TimeSeries, error) {
	key := fmt.Sprintf("history:%s:%d", identifier, days)

	if payload, ok := s.Cache.Get(key); ok {
		if series, ok := payload.(domain.TimeSeries); ok {
			return series, nil
		}
	}

	series, err := fetchFrom(s, identifier, func(p domain.PriceProvider) (domain.TimeSeries, error) {
		return p.HistoricalSeries(ctx, identifier, days)
	})
	if err != nil {
		return nil, err
	}

	s.Cache.Put(key, series, cache.HistoricalSeries)

	return series, nil
}

// fetchFrom applies the routing and failover rules around a provider call.
func fetchFrom[T any](s *Service, identifier string, call func(domain.PriceProvider) (T, error)) (T, error) {
	var zero T

	if Classify(identifier) == RouteFallback {
		result, err := call(s.Fallback)
		if err != nil {
			return zero, &domain.PriceUnavailableError{Identifier: identifier, LastErr: err}
		}
		return result, nil
	}

	result, err := call(s.Primary)
	if err == nil {
		return result, nil
	}

	log.Printf("resolver: %s failed on %s, trying %s: %v",
		identifier, s.Primary.Name(), s.Fallback.Name(), err)

	result, fallbackErr := call(s.Fallback)
	if fallbackErr != nil {
		return zero, &domain.PriceUnavailableError{Identifier: identifier, LastErr: fallbackErr}
	}

	return result, nil
}
