// Package valuation computes the current value of a portfolio from
// resolved live prices.
package valuation

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mgoncalves/portfolio-engine/internal/domain"
)

const defaultMaxConcurrent = 8

var hundred = decimal.NewFromInt(100)

// Service handles portfolio valuation requests
type Service struct {
	Resolver      domain.PriceResolver
	maxConcurrent int
}

// NewService creates a new valuation Service instance. maxConcurrent
// bounds the per-request price resolution fan-out.
func NewService(resolver domain.PriceResolver, maxConcurrent int) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}

	return &Service{
		Resolver:      resolver,
		maxConcurrent: maxConcurrent,
	}
}

// Valuate resolves every holding's price concurrently and aggregates a
// snapshot. A resolution failure flags that one asset and never aborts
// its siblings; the snapshot itself is always structurally complete.
func (s *Service) Valuate(ctx context.Context, holdings []domain.AssetHolding) *domain.PortfolioSnapshot {
	assets := make([]domain.ValuedAsset, len(holdings))

	sem := make(chan struct{}, s.maxConcurrent)
	var wg sync.WaitGroup

	for i, holding := range holdings {
		wg.Add(1)
		go func(i int, holding domain.AssetHolding) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			assets[i] = s.valuateOne(ctx, holding)
		}(i, holding)
	}

	wg.Wait()

	snapshot := &domain.PortfolioSnapshot{
		TotalValue: decimal.Zero,
		TotalCost:  decimal.Zero,
		TotalPnl:   decimal.Zero,
		Assets:     assets,
	}

	for _, asset := range assets {
		if asset.CurrentValue == nil {
			continue
		}

		snapshot.TotalValue = snapshot.TotalValue.Add(*asset.CurrentValue)

		// Cost and P&L only aggregate over holdings that have both a
		// purchase price and a resolved current price
		if asset.Cost != nil && asset.Pnl != nil {
			snapshot.TotalCost = snapshot.TotalCost.Add(*asset.Cost)
			snapshot.TotalPnl = snapshot.TotalPnl.Add(*asset.Pnl)
		}
	}

	snapshot.TotalValue = snapshot.TotalValue.Round(2)
	snapshot.TotalCost = snapshot.TotalCost.Round(2)
	snapshot.TotalPnl = snapshot.TotalPnl.Round(2)

	if snapshot.TotalCost.IsPositive() {
		snapshot.TotalPnlPercent = snapshot.TotalPnl.Div(snapshot.TotalCost).Mul(hundred).Round(2)
	}

	return snapshot
}

func (s *Service) valuateOne(ctx context.Context, holding domain.AssetHolding) domain.ValuedAsset {
	asset := domain.ValuedAsset{
		Symbol:        strings.ToUpper(holding.Symbol),
		Identifier:    holding.Identifier,
		Quantity:      holding.Quantity,
		PurchasePrice: holding.PurchasePrice,
		Notes:         holding.Notes,
	}

	point, err := s.Resolver.Resolve(ctx, holding.Identifier)
	if err != nil {
		asset.Error = err.Error()
		return asset
	}

	// Prices keep more precision than monetary aggregates so low-value
	// assets do not round to zero
	price := point.Price.Round(6)
	value := holding.Quantity.Mul(point.Price).Round(2)
	change := point.Change24h.Round(2)

	asset.CurrentPrice = &price
	asset.CurrentValue = &value
	asset.Change24h = &change

	if !point.Volume24h.IsZero() {
		volume := point.Volume24h
		asset.Volume24h = &volume
	}

	if !point.MarketCap.IsZero() {
		marketCap := point.MarketCap
		asset.MarketCap = &marketCap
	}

	if holding.PurchasePrice != nil {
		cost := holding.Quantity.Mul(*holding.PurchasePrice).Round(2)
		pnl := value.Sub(cost)

		asset.Cost = &cost
		asset.Pnl = &pnl

		if cost.IsPositive() {
			pnlPercent := pnl.Div(cost).Mul(hundred).Round(2)
			asset.PnlPercent = &pnlPercent
		}
	}

	return asset
}
