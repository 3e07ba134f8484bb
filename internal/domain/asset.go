package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// PriceSource identifies which provider tier produced a price
type PriceSource string

const (
	SourcePrimary  PriceSource = "primary"
	SourceFallback PriceSource = "fallback"
)

// AssetHolding represents a single held asset as submitted by the caller.
// It is immutable input to a valuation or history request and is never
// persisted by this engine.
type AssetHolding struct {
	Symbol        string           `json:"symbol"`
	Identifier    string           `json:"coin_id"`
	Quantity      decimal.Decimal  `json:"amount"`
	PurchasePrice *decimal.Decimal `json:"purchase_price,omitempty"`
	PurchaseDate  *time.Time       `json:"purchase_date,omitempty"`
	Notes         string           `json:"notes,omitempty"`
}

// Validate ensures the holding adheres to domain rules
// Returns an error if validation fails
func (h *AssetHolding) Validate() error {
	if h.Identifier == "" {
		return errors.New("asset identifier cannot be empty")
	}

	if h.Quantity.IsNegative() {
		return errors.New("asset quantity cannot be negative")
	}

	// A purchase price without a positive value is meaningless for cost basis
	if h.PurchasePrice != nil && h.PurchasePrice.IsNegative() {
		return errors.New("purchase price cannot be negative")
	}

	return nil
}

// PricePoint is a single observed price for an asset, produced by a
// provider adapter. Only Timestamp, Price and Source are guaranteed to be
// set for historical samples; the 24h fields are populated for current
// price lookups where the provider reports them.
type PricePoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Price     decimal.Decimal `json:"price_usd"`
	Change24h decimal.Decimal `json:"change_24h"`
	Volume24h decimal.Decimal `json:"volume_24h"`
	MarketCap decimal.Decimal `json:"market_cap"`
	Source    PriceSource     `json:"source"`
}

// TimeSeries is an ordered sequence of price points for one asset, keyed
// by the provider's native sampling timestamps. Series from different
// assets are not aligned with each other.
type TimeSeries []PricePoint

// ValuedAsset is a holding enriched with its resolved price and computed
// value fields. The computed fields are nil when price resolution failed,
// in which case Error carries the reason.
type ValuedAsset struct {
	Symbol        string           `json:"symbol"`
	Identifier    string           `json:"coin_id"`
	Quantity      decimal.Decimal  `json:"amount"`
	CurrentPrice  *decimal.Decimal `json:"current_price"`
	CurrentValue  *decimal.Decimal `json:"current_value"`
	PurchasePrice *decimal.Decimal `json:"purchase_price,omitempty"`
	Cost          *decimal.Decimal `json:"cost,omitempty"`
	Pnl           *decimal.Decimal `json:"pnl,omitempty"`
	PnlPercent    *decimal.Decimal `json:"pnl_percent,omitempty"`
	Change24h     *decimal.Decimal `json:"change_24h,omitempty"`
	Volume24h     *decimal.Decimal `json:"volume_24h,omitempty"`
	MarketCap     *decimal.Decimal `json:"market_cap,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	Error         string           `json:"error,omitempty"`
}

// PortfolioSnapshot is the aggregate result of a valuation request.
// TotalCost and TotalPnl only accumulate over assets that carry both a
// purchase price and a resolved current price.
type PortfolioSnapshot struct {
	TotalValue      decimal.Decimal `json:"total_value_usd"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	TotalPnl        decimal.Decimal `json:"total_pnl"`
	TotalPnlPercent decimal.Decimal `json:"total_pnl_percent"`
	Assets          []ValuedAsset   `json:"assets"`
}

// PortfolioHistoryPoint is one point on the reconstructed portfolio value
// curve: the aggregate value of all owned holdings at a timestamp on the
// unified timeline.
type PortfolioHistoryPoint struct {
	Timestamp time.Time
	Value     decimal.Decimal
}

// SymbolMatch is a single result from a symbol directory search,
// optionally annotated with the primary exchange pair when the asset is
// tradable there.
type SymbolMatch struct {
	ID            string `json:"id"`
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	MarketCapRank int    `json:"market_cap_rank,omitempty"`
	PrimarySymbol string `json:"primary_symbol,omitempty"`
}
