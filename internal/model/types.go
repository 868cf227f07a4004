package model

import "fmt"

// -----------------------------------------------------------------------------
// Pool Types
// -----------------------------------------------------------------------------

// PoolRecord is one observed price point for a token on a specific venue.
type PoolRecord struct {
	Symbol       string   `json:"symbol"`        // Token ticker, uppercase (e.g., "ETH")
	Chain        string   `json:"chain"`         // Network identifier (e.g., "ethereum")
	Dex          string   `json:"dex"`           // Venue identifier (e.g., "uniswap_v3")
	PoolAddress  string   `json:"pool_address"`  // Venue-specific pool identifier, opaque
	Pair         string   `json:"pair"`          // Human-readable pair label (e.g., "ETH/USDC")
	PriceUSD     float64  `json:"price_usd"`     // 0 is a valid "unknown price" sentinel
	LiquidityUSD float64  `json:"liquidity_usd"` // LP reserve in USD
	Volume24hUSD float64  `json:"volume_24h_usd"`
	FeeTier      *float64 `json:"fee_tier,omitempty"`
	Source       string   `json:"source"`      // Provider that produced this record
	ObservedAt   int64    `json:"observed_at"` // Seconds since epoch
}

// Key returns the composite cache key for this record.
//
// The key includes the source because independent providers may report
// different data for the same pool address, or reuse placeholder addresses.
func (p *PoolRecord) Key() string {
	return fmt.Sprintf("%s:%s:%s", p.Source, p.Chain, p.PoolAddress)
}

// VenueLabel returns the "dex:pool_address" label used in alerts.
func (p *PoolRecord) VenueLabel() string {
	return fmt.Sprintf("%s:%s", p.Dex, p.PoolAddress)
}

// -----------------------------------------------------------------------------
// CEX Types
// -----------------------------------------------------------------------------

// CexPrice is a centralized-exchange reference price for a symbol.
type CexPrice struct {
	Symbol     string  `json:"symbol"`
	PriceKRW   float64 `json:"price_krw"`
	PriceUSD   float64 `json:"price_usd"`
	ObservedAt int64   `json:"observed_at"` // Seconds since epoch
}

// -----------------------------------------------------------------------------
// Alert Types
// -----------------------------------------------------------------------------

// AlertKind distinguishes the two detection modes.
type AlertKind string

const (
	// DexToDex flags a price spread between two pools for the same symbol.
	DexToDex AlertKind = "dex_to_dex"

	// DexToCex flags a price spread between a pool and the CEX reference.
	DexToCex AlertKind = "dex_to_cex"
)

// ArbitrageAlert reports a price-dispersion opportunity. Alerts are
// immutable once created; they are transmitted and discarded.
type ArbitrageAlert struct {
	Symbol     string    `json:"symbol"`
	Kind       AlertKind `json:"kind"`
	LowPrice   float64   `json:"low_price"`
	LowSource  string    `json:"low_source"`  // "dex:pool_address" or CEX label
	HighPrice  float64   `json:"high_price"`
	HighSource string    `json:"high_source"` // "dex:pool_address" or CEX label
	DiffPct    float64   `json:"diff_pct"`    // Spread relative to the low price, percent
	DetectedAt int64     `json:"detected_at"` // Seconds since epoch
}

// -----------------------------------------------------------------------------
// Statistics Types
// -----------------------------------------------------------------------------

// CollectorStats is a point-in-time snapshot of the collector's counters.
// Counters increase monotonically and are never reset.
type CollectorStats struct {
	RequestsTotal  int64 `json:"requests_total"`
	Successful     int64 `json:"successful"`
	Failed         int64 `json:"failed"`
	PoolsCollected int64 `json:"pools_collected"`
}
