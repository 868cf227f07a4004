// Package filter implements pool validity rules.
package filter

import (
	"github.com/dexwatch/dexwatch/internal/config"
	"github.com/dexwatch/dexwatch/internal/model"
)

// tradeableFraction bounds a single trade to 2% of the LP reserve,
// a slippage-bounded sizing rule.
const tradeableFraction = 0.02

// minTradeableUSD is the floor a low-liquidity pool must clear to be
// worth trading at all.
const minTradeableUSD = 100.0

// Filter decides which pool records are worth caching. Thresholds are
// immutable; build a new Filter to change them.
type Filter struct {
	minLiquidity float64
	minVolume    float64
	minTxCount   int // Reserved; not part of the current validity rule.
	priceOnly    bool
}

// New builds a Filter from config.
func New(cfg config.FilterConfig) *Filter {
	return &Filter{
		minLiquidity: cfg.MinLiquidityUSD,
		minVolume:    cfg.MinVolumeUSD,
		minTxCount:   cfg.MinTxCount,
		priceOnly:    cfg.PriceOnly,
	}
}

// IsValid reports whether a record passes the validity rules.
//
// Strict rules: pools at or above the liquidity threshold just need the
// volume threshold; pools below it additionally need a tradeable amount
// (2% of liquidity) of at least $100.
//
// In price-only mode any record with a positive price passes, with the
// strict rules applying only to zero-price records. Debug use only.
func (f *Filter) IsValid(rec *model.PoolRecord) bool {
	if f.priceOnly && rec.PriceUSD > 0 {
		return true
	}

	if rec.LiquidityUSD >= f.minLiquidity {
		return rec.Volume24hUSD >= f.minVolume
	}

	tradeable := rec.LiquidityUSD * tradeableFraction
	return tradeable >= minTradeableUSD && rec.Volume24hUSD >= f.minVolume
}

// MaxTradeAmount returns the slippage-bounded trade size for a pool,
// independent of validity.
func (f *Filter) MaxTradeAmount(rec *model.PoolRecord) float64 {
	return rec.LiquidityUSD * tradeableFraction
}
