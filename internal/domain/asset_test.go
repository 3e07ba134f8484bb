package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAssetHolding_Validate(t *testing.T) {
	purchasePrice := func(v string) *decimal.Decimal {
		d := decimal.RequireFromString(v)
		return &d
	}

	tests := []struct {
		name    string
		holding AssetHolding
		wantErr bool
		errMsg  string
	}{
		{
			name: "Holding without identifier should fail",
			holding: AssetHolding{
				Symbol:   "BTC",
				Quantity: decimal.NewFromFloat(0.5),
			},
			wantErr: true,
			errMsg:  "asset identifier cannot be empty",
		},
		{
			name: "Holding with negative quantity should fail",
			holding: AssetHolding{
				Symbol:     "BTC",
				Identifier: "BTCUSDT",
				Quantity:   decimal.NewFromInt(-1),
			},
			wantErr: true,
			errMsg:  "asset quantity cannot be negative",
		},
		{
			name: "Holding with negative purchase price should fail",
			holding: AssetHolding{
				Symbol:        "ETH",
				Identifier:    "ETHUSDT",
				Quantity:      decimal.NewFromInt(2),
				PurchasePrice: purchasePrice("-1500"),
			},
			wantErr: true,
			errMsg:  "purchase price cannot be negative",
		},
		{
			name: "Holding with zero quantity should pass",
			holding: AssetHolding{
				Symbol:     "BTC",
				Identifier: "BTCUSDT",
				Quantity:   decimal.Zero,
			},
			wantErr: false,
		},
		{
			name: "Holding without purchase info should pass",
			holding: AssetHolding{
				Symbol:     "SOL",
				Identifier: "SOLUSDT",
				Quantity:   decimal.NewFromInt(10),
			},
			wantErr: false,
		},
		{
			name: "Holding with full purchase info should pass",
			holding: AssetHolding{
				Symbol:        "BTC",
				Identifier:    "BTCUSDT",
				Quantity:      decimal.NewFromFloat(0.25),
				PurchasePrice: purchasePrice("20000"),
				PurchaseDate: func() *time.Time {
					d := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
					return &d
				}(),
				Notes: "cold wallet",
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.holding.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.EqualError(t, err, tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
