package valuation

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mgoncalves/portfolio-engine/internal/domain"
)

// MockResolver is a mock implementation of domain.PriceResolver for testing
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, identifier string) (domain.PricePoint, error) {
	args := m.Called(ctx, identifier)
	return args.Get(0).(domain.PricePoint), args.Error(1)
}

func holdingWithPurchase(symbol, identifier string, quantity, purchasePrice string) domain.AssetHolding {
	price := decimal.RequireFromString(purchasePrice)
	return domain.AssetHolding{
		Symbol:        symbol,
		Identifier:    identifier,
		Quantity:      decimal.RequireFromString(quantity),
		PurchasePrice: &price,
	}
}

func resolved(price string) domain.PricePoint {
	return domain.PricePoint{
		Timestamp: time.Now(),
		Price:     decimal.RequireFromString(price),
		Change24h: decimal.RequireFromString("2.5"),
		Source:    domain.SourcePrimary,
	}
}

func TestValuate_SingleHoldingWithPurchasePrice(t *testing.T) {
	ctx := context.Background()
	mockResolver := new(MockResolver)
	service := NewService(mockResolver, 0)

	mockResolver.On("Resolve", ctx, "BTCUSDT").Return(resolved("30000"), nil)

	snapshot := service.Valuate(ctx, []domain.AssetHolding{
		holdingWithPurchase("btc", "BTCUSDT", "0.5", "20000"),
	})

	require.Len(t, snapshot.Assets, 1)
	asset := snapshot.Assets[0]

	assert.Equal(t, "BTC", asset.Symbol)
	require.NotNil(t, asset.CurrentValue)
	assert.True(t, asset.CurrentValue.Equal(decimal.NewFromInt(15000)))
	require.NotNil(t, asset.Cost)
	assert.True(t, asset.Cost.Equal(decimal.NewFromInt(10000)))
	require.NotNil(t, asset.Pnl)
	assert.True(t, asset.Pnl.Equal(decimal.NewFromInt(5000)))
	require.NotNil(t, asset.PnlPercent)
	assert.True(t, asset.PnlPercent.Equal(decimal.NewFromInt(50)))

	assert.True(t, snapshot.TotalValue.Equal(decimal.NewFromInt(15000)))
	assert.True(t, snapshot.TotalCost.Equal(decimal.NewFromInt(10000)))
	assert.True(t, snapshot.TotalPnl.Equal(decimal.NewFromInt(5000)))
	assert.True(t, snapshot.TotalPnlPercent.Equal(decimal.NewFromInt(50)))
}

func TestValuate_EmptyHoldings(t *testing.T) {
	ctx := context.Background()
	mockResolver := new(MockResolver)
	service := NewService(mockResolver, 0)

	snapshot := service.Valuate(ctx, nil)

	assert.True(t, snapshot.TotalValue.IsZero())
	assert.True(t, snapshot.TotalCost.IsZero())
	assert.Empty(t, snapshot.Assets)
	mockResolver.AssertNotCalled(t, "Resolve")
}

func TestValuate_PartialFailureFlagsOnlyThatAsset(t *testing.T) {
	ctx := context.Background()
	mockResolver := new(MockResolver)
	service := NewService(mockResolver, 0)

	mockResolver.On("Resolve", ctx, "BTCUSDT").Return(resolved("30000"), nil)
	mockResolver.On("Resolve", ctx, "unknown-coin").Return(domain.PricePoint{},
		&domain.PriceUnavailableError{Identifier: "unknown-coin", LastErr: assert.AnError})

	snapshot := service.Valuate(ctx, []domain.AssetHolding{
		{Symbol: "btc", Identifier: "BTCUSDT", Quantity: decimal.NewFromInt(1)},
		{Symbol: "xxx", Identifier: "unknown-coin", Quantity: decimal.NewFromInt(10)},
	})

	require.Len(t, snapshot.Assets, 2)

	assert.Empty(t, snapshot.Assets[0].Error)
	require.NotNil(t, snapshot.Assets[0].CurrentValue)

	failed := snapshot.Assets[1]
	assert.Contains(t, failed.Error, "unknown-coin")
	assert.Nil(t, failed.CurrentPrice)
	assert.Nil(t, failed.CurrentValue)

	// Only the resolvable asset contributes to the total
	assert.True(t, snapshot.TotalValue.Equal(decimal.NewFromInt(30000)))
}

func TestValuate_PriceOnlyHoldingExcludedFromCostTotals(t *testing.T) {
	ctx := context.Background()
	mockResolver := new(MockResolver)
	service := NewService(mockResolver, 0)

	mockResolver.On("Resolve", ctx, "BTCUSDT").Return(resolved("30000"), nil)
	mockResolver.On("Resolve", ctx, "ETHUSDT").Return(resolved("2000"), nil)

	snapshot := service.Valuate(ctx, []domain.AssetHolding{
		holdingWithPurchase("btc", "BTCUSDT", "1", "20000"),
		// No purchase price: contributes value, never cost or P&L
		{Symbol: "eth", Identifier: "ETHUSDT", Quantity: decimal.NewFromInt(2)},
	})

	require.Len(t, snapshot.Assets, 2)
	assert.Nil(t, snapshot.Assets[1].Cost)
	assert.Nil(t, snapshot.Assets[1].Pnl)

	assert.True(t, snapshot.TotalValue.Equal(decimal.NewFromInt(34000)))
	assert.True(t, snapshot.TotalCost.Equal(decimal.NewFromInt(20000)))
	assert.True(t, snapshot.TotalPnl.Equal(decimal.NewFromInt(10000)))
}

func TestValuate_TotalValueEqualsSumOfAssetValues(t *testing.T) {
	ctx := context.Background()
	mockResolver := new(MockResolver)
	service := NewService(mockResolver, 2)

	mockResolver.On("Resolve", ctx, "BTCUSDT").Return(resolved("30000.123456"), nil)
	mockResolver.On("Resolve", ctx, "ETHUSDT").Return(resolved("1999.987654"), nil)
	mockResolver.On("Resolve", ctx, "dogecoin").Return(resolved("0.123456789"), nil)

	snapshot := service.Valuate(ctx, []domain.AssetHolding{
		{Symbol: "btc", Identifier: "BTCUSDT", Quantity: decimal.RequireFromString("0.25")},
		{Symbol: "eth", Identifier: "ETHUSDT", Quantity: decimal.RequireFromString("3")},
		{Symbol: "doge", Identifier: "dogecoin", Quantity: decimal.RequireFromString("1000")},
	})

	sum := decimal.Zero
	for _, asset := range snapshot.Assets {
		require.NotNil(t, asset.CurrentValue)
		sum = sum.Add(*asset.CurrentValue)
	}

	assert.True(t, snapshot.TotalValue.Equal(sum.Round(2)))
}

func TestValuate_OutputOrderMatchesInputOrder(t *testing.T) {
	ctx := context.Background()
	mockResolver := new(MockResolver)
	service := NewService(mockResolver, 4)

	identifiers := []string{"BTCUSDT", "ETHUSDT", "bitcoin", "SOLUSDT", "dogecoin"}

	holdings := make([]domain.AssetHolding, len(identifiers))
	for i, id := range identifiers {
		holdings[i] = domain.AssetHolding{Symbol: id, Identifier: id, Quantity: decimal.NewFromInt(1)}
		mockResolver.On("Resolve", ctx, id).Return(resolved("100"), nil)
	}

	snapshot := service.Valuate(ctx, holdings)

	require.Len(t, snapshot.Assets, len(identifiers))
	for i, id := range identifiers {
		assert.Equal(t, id, snapshot.Assets[i].Identifier)
	}
}
