package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dexwatch/dexwatch/internal/cache"
	"github.com/dexwatch/dexwatch/internal/model"
)

// SnapshotSink receives a full cache snapshot after each collection
// cycle. Delivery is fire-and-forget; the sink must not block.
type SnapshotSink interface {
	SaveSnapshot(pools []*model.PoolRecord)
}

// RunnerConfig holds background cycle settings.
type RunnerConfig struct {
	Interval      time.Duration // Collection cycle period
	PurgeInterval time.Duration // Cache purge tick period
}

// Runner drives periodic collection cycles and cache purges.
type Runner struct {
	cfg       RunnerConfig
	collector *Collector
	cache     *cache.Cache
	symbols   []string
	sink      SnapshotSink
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner creates a Runner. sink may be nil.
func NewRunner(cfg RunnerConfig, c *Collector, poolCache *cache.Cache, symbols []string, sink SnapshotSink, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:       cfg,
		collector: c,
		cache:     poolCache,
		symbols:   symbols,
		sink:      sink,
		logger:    logger,
	}
}

// Start begins the collection and purge loops.
func (r *Runner) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.collectLoop()

	r.wg.Add(1)
	go r.purgeLoop()

	r.logger.Info("collector runner started",
		"interval", r.cfg.Interval,
		"symbols", len(r.symbols),
	)
	return nil
}

// Stop gracefully shuts down the runner.
func (r *Runner) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("collector runner stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// collectLoop runs collection cycles at the configured interval.
func (r *Runner) collectLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	// Collect immediately on start.
	r.runCycle()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.runCycle()
		}
	}
}

// runCycle performs one collection pass and hands the resulting cache
// snapshot to the sink.
func (r *Runner) runCycle() {
	result := r.collector.CollectAll(r.ctx, r.symbols)

	if r.sink != nil {
		r.sink.SaveSnapshot(r.cache.GetAll())
	}

	r.logger.Info("cycle complete",
		"successful", result.Successful,
		"failed", result.Failed,
		"cached_pools", r.cache.Size(),
	)
}

// purgeLoop evicts expired cache entries on an independent cadence.
func (r *Runner) purgeLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.PurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			if removed := r.cache.PurgeIfDue(); removed > 0 {
				r.logger.Debug("purged expired pools", "removed", removed)
			}
		}
	}
}
