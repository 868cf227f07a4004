package filter

import (
	"testing"

	"github.com/dexwatch/dexwatch/internal/config"
	"github.com/dexwatch/dexwatch/internal/model"
)

func strictFilter() *Filter {
	return New(config.FilterConfig{
		MinLiquidityUSD: 10_000,
		MinVolumeUSD:    5_000,
	})
}

func TestIsValid_Strict(t *testing.T) {
	f := strictFilter()

	tests := []struct {
		name      string
		liquidity float64
		volume    float64
		want      bool
	}{
		{"high liquidity, high volume", 50_000, 20_000, true},
		{"high liquidity, low volume", 50_000, 1_000, false},
		{"exactly at thresholds", 10_000, 5_000, true},
		{"low liquidity, tradeable and volume ok", 9_000, 6_000, true},
		{"low liquidity, tradeable too small", 4_000, 6_000, false},
		{"dust pool", 40, 0, false},
		{"zero everything", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &model.PoolRecord{
				Symbol:       "ETH",
				PriceUSD:     3000,
				LiquidityUSD: tt.liquidity,
				Volume24hUSD: tt.volume,
			}
			if got := f.IsValid(rec); got != tt.want {
				t.Errorf("IsValid(liq=%v, vol=%v) = %v, want %v", tt.liquidity, tt.volume, got, tt.want)
			}
		})
	}
}

func TestIsValid_PriceOnlyMode(t *testing.T) {
	f := New(config.FilterConfig{
		MinLiquidityUSD: 10_000,
		MinVolumeUSD:    5_000,
		PriceOnly:       true,
	})

	// Any positive price passes regardless of liquidity.
	rec := &model.PoolRecord{Symbol: "ETH", PriceUSD: 0.0001, LiquidityUSD: 1, Volume24hUSD: 0}
	if !f.IsValid(rec) {
		t.Error("price-only mode rejected a positively priced record")
	}

	// Zero price still falls through to the strict rules.
	rec = &model.PoolRecord{Symbol: "ETH", PriceUSD: 0, LiquidityUSD: 1, Volume24hUSD: 0}
	if f.IsValid(rec) {
		t.Error("price-only mode accepted a zero-price dust record")
	}
	rec = &model.PoolRecord{Symbol: "ETH", PriceUSD: 0, LiquidityUSD: 50_000, Volume24hUSD: 20_000}
	if !f.IsValid(rec) {
		t.Error("price-only mode rejected a zero-price record passing the strict rules")
	}
}

func TestMaxTradeAmount(t *testing.T) {
	f := strictFilter()

	rec := &model.PoolRecord{LiquidityUSD: 250_000}
	if got := f.MaxTradeAmount(rec); got != 5_000 {
		t.Errorf("MaxTradeAmount = %v, want 5000", got)
	}

	// Exposed independently of validity.
	rec = &model.PoolRecord{LiquidityUSD: 40}
	if got := f.MaxTradeAmount(rec); got != 0.8 {
		t.Errorf("MaxTradeAmount = %v, want 0.8", got)
	}
}
