package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mgoncalves/portfolio-engine/internal/domain"
)

// CoinGecko is the fallback provider. It identifies assets by a
// provider-native slug such as "bitcoin", covers far more assets than the
// primary, and operates under a much stricter rate limit.
type CoinGecko struct {
	baseURL string
	fetcher *Fetcher
}

// NewCoinGecko creates the fallback adapter. baseURL is overridable for
// tests against a fake upstream.
func NewCoinGecko(baseURL string, fetcher *Fetcher) *CoinGecko {
	return &CoinGecko{
		baseURL: baseURL,
		fetcher: fetcher,
	}
}

// Name identifies this upstream in errors, logs and metrics
func (g *CoinGecko) Name() string {
	return "coingecko"
}

// CurrentPrice returns the latest simple price for a coin slug
func (g *CoinGecko) CurrentPrice(ctx context.Context, identifier string) (domain.PricePoint, error) {
	id := strings.ToLower(identifier)

	params := url.Values{}
	params.Set("ids", id)
	params.Set("vs_currencies", "usd")
	params.Set("include_24hr_change", "true")
	params.Set("include_24hr_vol", "true")
	params.Set("include_market_cap", "true")

	body, err := g.fetcher.Fetch(ctx, g.baseURL+"/api/v3/simple/price", params)
	if err != nil {
		return domain.PricePoint{}, err
	}

	var payload map[string]map[string]float64
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.PricePoint{}, fmt.Errorf("coingecko simple price decode: %w", err)
	}

	fields, ok := payload[id]
	if !ok {
		return domain.PricePoint{}, fmt.Errorf("coingecko: coin %q not found", id)
	}

	price, ok := fields["usd"]
	if !ok {
		return domain.PricePoint{}, fmt.Errorf("coingecko: no usd price for %q", id)
	}

	return domain.PricePoint{
		Timestamp: time.Now(),
		Price:     decimal.NewFromFloat(price),
		Change24h: decimal.NewFromFloat(fields["usd_24h_change"]),
		Volume24h: decimal.NewFromFloat(fields["usd_24h_vol"]),
		MarketCap: decimal.NewFromFloat(fields["usd_market_cap"]),
		Source:    domain.SourceFallback,
	}, nil
}

// HistoricalSeries returns the market chart for a coin slug over the last
// N days: hourly samples for a one-day window, daily otherwise.
func (g *CoinGecko) HistoricalSeries(ctx context.Context, identifier string, days int) (domain.TimeSeries, error) {
	id := strings.ToLower(identifier)

	interval := "daily"
	if days <= 1 {
		interval = "hourly"
	}

	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("days", strconv.Itoa(days))
	params.Set("interval", interval)

	target := g.baseURL + "/api/v3/coins/" + url.PathEscape(id) + "/market_chart"

	body, err := g.fetcher.Fetch(ctx, target, params)
	if err != nil {
		return nil, err
	}

	// prices is an array of [timestamp_ms, price] pairs
	var payload struct {
		Prices [][2]float64 `json:"prices"`
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("coingecko market chart decode: %w", err)
	}

	series := make(domain.TimeSeries, 0, len(payload.Prices))

	for _, pair := range payload.Prices {
		series = append(series, domain.PricePoint{
			Timestamp: time.UnixMilli(int64(pair[0])),
			Price:     decimal.NewFromFloat(pair[1]),
			Source:    domain.SourceFallback,
		})
	}

	return series, nil
}

// Search looks up coins by name or symbol in the provider directory.
func (g *CoinGecko) Search(ctx context.Context, query string) ([]domain.SymbolMatch, error) {
	params := url.Values{}
	params.Set("query", query)

	body, err := g.fetcher.Fetch(ctx, g.baseURL+"/api/v3/search", params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Coins []struct {
			ID            string `json:"id"`
			Symbol        string `json:"symbol"`
			Name          string `json:"name"`
			MarketCapRank int    `json:"market_cap_rank"`
		} `json:"coins"`
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("coingecko search decode: %w", err)
	}

	matches := make([]domain.SymbolMatch, 0, len(payload.Coins))

	for _, coin := range payload.Coins {
		matches = append(matches, domain.SymbolMatch{
			ID:            coin.ID,
			Symbol:        strings.ToUpper(coin.Symbol),
			Name:          coin.Name,
			MarketCapRank: coin.MarketCapRank,
		})
	}

	return matches, nil
}
