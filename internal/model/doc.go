// Package model defines shared data types used across the DEX pool monitor.
//
// Conventions:
//   - Prices, liquidity, and volume: float64, USD-denominated
//   - Timestamps: int64 seconds since Unix epoch
//   - Cache keys: "source:chain:pool_address" composite strings
package model
