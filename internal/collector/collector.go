package collector

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dexwatch/dexwatch/internal/cache"
	"github.com/dexwatch/dexwatch/internal/filter"
	"github.com/dexwatch/dexwatch/internal/model"
	"github.com/dexwatch/dexwatch/internal/source"
)

// Config holds collection engine settings.
type Config struct {
	Concurrency  int           // Global in-flight fetch limit
	FetchTimeout time.Duration // Per-attempt timeout
	MaxRetries   int           // Total attempts per (source, symbol) pair
	RetryDelay   time.Duration // Fixed inter-attempt delay
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:  10,
		FetchTimeout: 10 * time.Second,
		MaxRetries:   3,
		RetryDelay:   500 * time.Millisecond,
	}
}

// Result aggregates one collection pass. Total is the number of
// (source, symbol) pairs attempted; Successful + Failed == Total.
type Result struct {
	Total      int
	Successful int
	Failed     int
}

// Collector orchestrates fetching every source for every symbol.
type Collector struct {
	cfg     Config
	sources []source.Source
	cache   *cache.Cache
	filter  *filter.Filter
	logger  *slog.Logger

	// Global concurrency limiter shared across all symbols of a source.
	sem chan struct{}

	// Monotonic counters, incremented from many in-flight tasks.
	requestsTotal  atomic.Int64
	successful     atomic.Int64
	failed         atomic.Int64
	poolsCollected atomic.Int64
}

// New creates a Collector.
func New(cfg Config, sources []source.Source, poolCache *cache.Cache, poolFilter *filter.Filter, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	return &Collector{
		cfg:     cfg,
		sources: sources,
		cache:   poolCache,
		filter:  poolFilter,
		logger:  logger,
		sem:     make(chan struct{}, cfg.Concurrency),
	}
}

// CollectAll fetches every symbol from every source and upserts valid
// records into the cache. Source errors are absorbed into counters;
// this method never returns an error. An empty symbol list is a no-op.
func (c *Collector) CollectAll(ctx context.Context, symbols []string) Result {
	if len(symbols) == 0 {
		return Result{}
	}

	start := time.Now()
	var successful, failed atomic.Int64

	// Sources are queried one at a time to respect per-provider
	// connection and rate limits; symbols fan out within a source.
	for _, src := range c.sources {
		var wg sync.WaitGroup
		for _, symbol := range symbols {
			wg.Add(1)
			go func(symbol string) {
				defer wg.Done()

				c.requestsTotal.Add(1)

				select {
				case c.sem <- struct{}{}:
					defer func() { <-c.sem }()
				case <-ctx.Done():
					failed.Add(1)
					c.failed.Add(1)
					return
				}

				// Lifetime counters move with the per-cycle tally so
				// the two can never drift apart.
				if c.collectOne(ctx, src, symbol) {
					successful.Add(1)
					c.successful.Add(1)
				} else {
					failed.Add(1)
					c.failed.Add(1)
				}
			}(strings.ToUpper(symbol))
		}
		wg.Wait()
	}

	result := Result{
		Total:      len(symbols) * len(c.sources),
		Successful: int(successful.Load()),
		Failed:     int(failed.Load()),
	}

	c.logger.Info("collection pass complete",
		"symbols", len(symbols),
		"sources", len(c.sources),
		"successful", result.Successful,
		"failed", result.Failed,
		"duration", time.Since(start),
	)

	return result
}

// collectOne fetches a single (source, symbol) pair with the retry
// budget and writes surviving records to the cache. Returns success.
func (c *Collector) collectOne(ctx context.Context, src source.Source, symbol string) bool {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(c.cfg.RetryDelay):
			}
		}

		records, err := c.fetchOnce(ctx, src, symbol)
		if err == nil {
			c.store(records)
			return true
		}

		lastErr = err
		c.logger.Warn("fetch attempt failed",
			"source", src.Name(),
			"symbol", symbol,
			"attempt", attempt,
			"error", err,
		)
	}

	c.logger.Warn("fetch exhausted retries",
		"source", src.Name(),
		"symbol", symbol,
		"attempts", c.cfg.MaxRetries,
		"error", lastErr,
	)
	return false
}

// fetchOnce runs one fetch attempt under the per-attempt timeout.
func (c *Collector) fetchOnce(ctx context.Context, src source.Source, symbol string) ([]model.PoolRecord, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	return src.FetchPools(attemptCtx, symbol)
}

// store filters records and upserts survivors into the cache.
func (c *Collector) store(records []model.PoolRecord) {
	for i := range records {
		rec := &records[i]
		if !c.filter.IsValid(rec) {
			continue
		}
		c.cache.Insert(rec.Key(), rec)
		c.poolsCollected.Add(1)
	}
}

// Stats returns a snapshot of the lifetime counters.
func (c *Collector) Stats() model.CollectorStats {
	return model.CollectorStats{
		RequestsTotal:  c.requestsTotal.Load(),
		Successful:     c.successful.Load(),
		Failed:         c.failed.Load(),
		PoolsCollected: c.poolsCollected.Load(),
	}
}
