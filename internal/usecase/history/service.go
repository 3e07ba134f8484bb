// Package history reconstructs a portfolio's value curve from the
// holdings' independently-sampled price series.
package history

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mgoncalves/portfolio-engine/internal/domain"
)

const defaultMaxConcurrent = 8

// valueEpsilon suppresses the spurious near-zero points that would
// otherwise appear on the timeline before any holding has price data.
var valueEpsilon = decimal.New(1, -8)

// Service handles portfolio history reconstruction requests
type Service struct {
	Series        domain.SeriesResolver
	maxConcurrent int
}

// NewService creates a new history Service instance. maxConcurrent bounds
// the per-request series fetch fan-out.
func NewService(series domain.SeriesResolver, maxConcurrent int) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}

	return &Service{
		Series:        series,
		maxConcurrent: maxConcurrent,
	}
}

// ownedSeries is one holding's fetched series plus its forward-fill cursor.
type ownedSeries struct {
	holding domain.AssetHolding
	series  domain.TimeSeries

	cursor    int
	lastPrice decimal.Decimal
	hasPrice  bool
}

// owned reports whether the holding contributes at ts: a holding with a
// purchase date contributes nothing before it; one without is treated as
// owned for the whole window.
func (o *ownedSeries) owned(ts time.Time) bool {
	return o.holding.PurchaseDate == nil || !ts.Before(*o.holding.PurchaseDate)
}

// priceAt forward-fills: it returns the latest price observed at or
// before ts, advancing the cursor. Timestamps must be visited ascending.
func (o *ownedSeries) priceAt(ts time.Time) (decimal.Decimal, bool) {
	for o.cursor < len(o.series) && !o.series[o.cursor].Timestamp.After(ts) {
		o.lastPrice = o.series[o.cursor].Price
		o.hasPrice = true
		o.cursor++
	}

	return o.lastPrice, o.hasPrice
}

// History fetches every holding's series concurrently and merges them
// onto the union of their native sampling timestamps. A failed holding is
// excluded without failing the call; only when every holding fails does
// the call fail with ErrNoHistoricalData.
func (s *Service) History(ctx context.Context, holdings []domain.AssetHolding, days int) ([]domain.PortfolioHistoryPoint, error) {
	if len(holdings) == 0 {
		return []domain.PortfolioHistoryPoint{}, nil
	}

	fetched := s.fetchAll(ctx, holdings, days)
	if len(fetched) == 0 {
		return nil, domain.ErrNoHistoricalData
	}

	return reconstruct(fetched), nil
}

// fetchAll fans out the series fetches with bounded concurrency and
// returns only the holdings whose fetch succeeded and produced samples.
func (s *Service) fetchAll(ctx context.Context, holdings []domain.AssetHolding, days int) []*ownedSeries {
	results := make([]*ownedSeries, len(holdings))

	sem := make(chan struct{}, s.maxConcurrent)
	var wg sync.WaitGroup

	for i, holding := range holdings {
		wg.Add(1)
		go func(i int, holding domain.AssetHolding) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			series, err := s.Series.ResolveSeries(ctx, holding.Identifier, days)
			if err != nil {
				log.Printf("history: excluding %s: %v", holding.Identifier, err)
				return
			}

			results[i] = &ownedSeries{holding: holding, series: series}
		}(i, holding)
	}

	wg.Wait()

	fetched := make([]*ownedSeries, 0, len(results))
	for _, r := range results {
		if r != nil && len(r.series) > 0 {
			fetched = append(fetched, r)
		}
	}

	return fetched
}

// reconstruct sums each holding's forward-filled contribution at every
// timestamp on the unified timeline.
func reconstruct(fetched []*ownedSeries) []domain.PortfolioHistoryPoint {
	timeline := unionTimeline(fetched)

	points := make([]domain.PortfolioHistoryPoint, 0, len(timeline))

	for _, ts := range timeline {
		total := decimal.Zero

		for _, owned := range fetched {
			price, ok := owned.priceAt(ts)
			if !ok || !owned.owned(ts) {
				continue
			}

			total = total.Add(owned.holding.Quantity.Mul(price))
		}

		if total.GreaterThan(valueEpsilon) {
			points = append(points, domain.PortfolioHistoryPoint{
				Timestamp: ts,
				Value:     total.Round(2),
			})
		}
	}

	return points
}

// unionTimeline merges all native sampling timestamps, sorted ascending.
// Series are never resampled onto a fixed grid.
func unionTimeline(fetched []*ownedSeries) []time.Time {
	seen := make(map[int64]struct{})
	stamps := make([]time.Time, 0)

	for _, owned := range fetched {
		for _, point := range owned.series {
			key := point.Timestamp.UnixMilli()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			stamps = append(stamps, point.Timestamp)
		}
	}

	sort.Slice(stamps, func(i, j int) bool {
		return stamps[i].Before(stamps[j])
	})

	return stamps
}
