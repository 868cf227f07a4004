// Package detector implements DEX-DEX and DEX-CEX arbitrage detection.
//
// Both detection passes are pure scans over snapshot inputs: calling
// them repeatedly on the same snapshot yields the same alerts. The only
// mutable state is the threshold, replaceable at runtime.
package detector

import (
	"sync"
	"time"

	"github.com/dexwatch/dexwatch/internal/model"
)

// CexLabel is the fixed source label for the CEX side of an alert.
const CexLabel = "upbit"

// Detector scans pool and CEX price snapshots for price dispersion.
type Detector struct {
	mu        sync.RWMutex
	threshold float64 // Fractional, e.g. 0.02 = 2%
}

// New creates a Detector with the given spread threshold.
func New(threshold float64) *Detector {
	return &Detector{threshold: threshold}
}

// Threshold returns the current spread threshold.
func (d *Detector) Threshold() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.threshold
}

// SetThreshold replaces the spread threshold.
func (d *Detector) SetThreshold(threshold float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.threshold = threshold
}

// DetectDexDex emits one alert per symbol whose cheapest and priciest
// pools are spread at least threshold apart. Ties between equal prices
// resolve by map iteration order; callers must not depend on the winner.
func (d *Detector) DetectDexDex(pools []*model.PoolRecord) []model.ArbitrageAlert {
	threshold := d.Threshold()

	bySymbol := make(map[string][]*model.PoolRecord)
	for _, p := range pools {
		bySymbol[p.Symbol] = append(bySymbol[p.Symbol], p)
	}

	var alerts []model.ArbitrageAlert
	now := time.Now().Unix()

	for _, group := range bySymbol {
		if len(group) < 2 {
			continue
		}

		minPool, maxPool := group[0], group[0]
		for _, p := range group[1:] {
			if p.PriceUSD < minPool.PriceUSD {
				minPool = p
			}
			if p.PriceUSD > maxPool.PriceUSD {
				maxPool = p
			}
		}

		// Zero is the "unknown price" sentinel; it cannot anchor a spread.
		if minPool.PriceUSD <= 0 {
			continue
		}

		spread := (maxPool.PriceUSD - minPool.PriceUSD) / minPool.PriceUSD
		if spread < threshold {
			continue
		}

		alerts = append(alerts, model.ArbitrageAlert{
			Symbol:     minPool.Symbol,
			Kind:       model.DexToDex,
			LowPrice:   minPool.PriceUSD,
			LowSource:  minPool.VenueLabel(),
			HighPrice:  maxPool.PriceUSD,
			HighSource: maxPool.VenueLabel(),
			DiffPct:    spread * 100,
			DetectedAt: now,
		})
	}

	return alerts
}

// DetectDexCex compares each pool against the CEX reference price for
// its symbol and emits an alert when the spread clears the threshold.
func (d *Detector) DetectDexCex(pools []*model.PoolRecord, cexPrices []model.CexPrice) []model.ArbitrageAlert {
	threshold := d.Threshold()

	cexBySymbol := make(map[string]model.CexPrice, len(cexPrices))
	for _, c := range cexPrices {
		cexBySymbol[c.Symbol] = c
	}

	var alerts []model.ArbitrageAlert
	now := time.Now().Unix()

	for _, p := range pools {
		cex, ok := cexBySymbol[p.Symbol]
		if !ok {
			continue
		}
		if p.PriceUSD <= 0 || cex.PriceUSD <= 0 {
			continue
		}

		low, high := p.PriceUSD, cex.PriceUSD
		lowSource, highSource := p.VenueLabel(), CexLabel
		if cex.PriceUSD < p.PriceUSD {
			low, high = cex.PriceUSD, p.PriceUSD
			lowSource, highSource = CexLabel, p.VenueLabel()
		}

		spread := (high - low) / low
		if spread < threshold {
			continue
		}

		alerts = append(alerts, model.ArbitrageAlert{
			Symbol:     p.Symbol,
			Kind:       model.DexToCex,
			LowPrice:   low,
			LowSource:  lowSource,
			HighPrice:  high,
			HighSource: highSource,
			DiffPct:    spread * 100,
			DetectedAt: now,
		})
	}

	return alerts
}
