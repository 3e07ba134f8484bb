package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mgoncalves/portfolio-engine/internal/domain"
)

// klineLimit is the maximum number of candles requested per call.
const klineLimit = 1000

// Binance is the primary provider. It identifies assets by an
// exchange-native trading pair symbol such as BTCUSDT and enjoys a high
// rate limit.
type Binance struct {
	baseURL string
	fetcher *Fetcher
}

// NewBinance creates the primary adapter. baseURL is overridable for
// tests against a fake upstream.
func NewBinance(baseURL string, fetcher *Fetcher) *Binance {
	return &Binance{
		baseURL: baseURL,
		fetcher: fetcher,
	}
}

// Name identifies this upstream in errors, logs and metrics
func (b *Binance) Name() string {
	return "binance"
}

// CurrentPrice returns the latest ticker price for a trading pair symbol
func (b *Binance) CurrentPrice(ctx context.Context, symbol string) (domain.PricePoint, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := b.fetcher.Fetch(ctx, b.baseURL+"/api/v3/ticker/24hr", params)
	if err != nil {
		return domain.PricePoint{}, err
	}

	// Binance returns numeric fields as strings
	var ticker struct {
		Symbol             string `json:"symbol"`
		LastPrice          string `json:"lastPrice"`
		PriceChangePercent string `json:"priceChangePercent"`
		QuoteVolume        string `json:"quoteVolume"`
	}

	if err := json.Unmarshal(body, &ticker); err != nil {
		return domain.PricePoint{}, fmt.Errorf("binance ticker decode: %w", err)
	}

	price, err := decimal.NewFromString(ticker.LastPrice)
	if err != nil {
		return domain.PricePoint{}, fmt.Errorf("binance ticker price %q: %w", ticker.LastPrice, err)
	}

	change, err := decimal.NewFromString(ticker.PriceChangePercent)
	if err != nil {
		change = decimal.Zero
	}

	volume, err := decimal.NewFromString(ticker.QuoteVolume)
	if err != nil {
		volume = decimal.Zero
	}

	return domain.PricePoint{
		Timestamp: time.Now(),
		Price:     price,
		Change24h: change,
		Volume24h: volume,
		Source:    domain.SourcePrimary,
	}, nil
}

// HistoricalSeries returns candle close prices covering the last N days.
// The sampling interval widens with the window so a single call stays
// under the kline limit.
func (b *Binance) HistoricalSeries(ctx context.Context, symbol string, days int) (domain.TimeSeries, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", klineInterval(days))
	params.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	params.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	params.Set("limit", strconv.Itoa(klineLimit))

	body, err := b.fetcher.Fetch(ctx, b.baseURL+"/api/v3/klines", params)
	if err != nil {
		return nil, err
	}

	// Each candle is a mixed array: open time (ms), open, high, low,
	// close, volume, close time, ...
	var candles [][]any
	if err := json.Unmarshal(body, &candles); err != nil {
		return nil, fmt.Errorf("binance klines decode: %w", err)
	}

	series := make(domain.TimeSeries, 0, len(candles))

	for _, candle := range candles {
		if len(candle) < 5 {
			continue
		}

		openTime, ok := candle[0].(float64)
		if !ok {
			continue
		}

		closeRaw, ok := candle[4].(string)
		if !ok {
			continue
		}

		closePrice, err := decimal.NewFromString(closeRaw)
		if err != nil {
			return nil, fmt.Errorf("binance kline close %q: %w", closeRaw, err)
		}

		series = append(series, domain.PricePoint{
			Timestamp: time.UnixMilli(int64(openTime)),
			Price:     closePrice,
			Source:    domain.SourcePrimary,
		})
	}

	return series, nil
}

// Symbols returns the set of currently trading pair symbols.
func (b *Binance) Symbols(ctx context.Context) (map[string]bool, error) {
	body, err := b.fetcher.Fetch(ctx, b.baseURL+"/api/v3/exchangeInfo", nil)
	if err != nil {
		return nil, err
	}

	var info struct {
		Symbols []struct {
			Symbol string `json:"symbol"`
			Status string `json:"status"`
		} `json:"symbols"`
	}

	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("binance exchangeInfo decode: %w", err)
	}

	symbols := make(map[string]bool, len(info.Symbols))

	for _, s := range info.Symbols {
		if s.Status == "TRADING" {
			symbols[s.Symbol] = true
		}
	}

	return symbols, nil
}

// klineInterval picks a sampling interval that keeps the point count for
// the window under the kline limit: finer for short windows, coarser for
// long ones.
func klineInterval(days int) string {
	switch {
	case days <= 1:
		return "15m"
	case days <= 7:
		return "1h"
	case days <= 30:
		return "4h"
	case days <= 90:
		return "12h"
	default:
		return "1d"
	}
}
