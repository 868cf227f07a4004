package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dexwatch/dexwatch/internal/model"
)

// Metrics tracks snapshot writer activity.
type Metrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
	Dropped   int64
	Throttled int64
}

// snapshotRow is one pool observation as it lands in pool_snapshots.
type snapshotRow struct {
	SnapshotTS   int64
	Source       string
	Chain        string
	PoolAddress  string
	Symbol       string
	Dex          string
	Pair         string
	PriceUSD     float64
	LiquidityUSD float64
	Volume24hUSD float64
	FeeTier      *float64
}

// SnapshotWriter persists full cache snapshots to the pool_snapshots
// table. SaveSnapshot never blocks the caller: if the writer is busy
// the snapshot is dropped and counted.
type SnapshotWriter struct {
	db          *pgxpool.Pool
	logger      *slog.Logger
	minInterval time.Duration

	input chan []*model.PoolRecord

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	metrics      Metrics
	closed       bool
	lastAccepted time.Time

	now func() time.Time
}

// NewSnapshotWriter creates a SnapshotWriter on the given pool. A
// positive minInterval throttles persistence: snapshots arriving
// sooner than that since the last accepted one are skipped.
func NewSnapshotWriter(db *pgxpool.Pool, minInterval time.Duration, logger *slog.Logger) *SnapshotWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotWriter{
		db:          db,
		logger:      logger,
		minInterval: minInterval,
		input:       make(chan []*model.PoolRecord, 4),
		now:         time.Now,
	}
}

// Start begins the writer goroutine.
func (w *SnapshotWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.writeLoop()

	w.logger.Info("snapshot writer started")
	return nil
}

// Stop drains queued snapshots and shuts the writer down.
func (w *SnapshotWriter) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.input)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("snapshot writer stopped")
	case <-ctx.Done():
		if w.cancel != nil {
			w.cancel()
		}
		w.logger.Warn("snapshot writer stop timed out")
	}
	return nil
}

// SaveSnapshot queues a snapshot for persistence. Non-blocking.
func (w *SnapshotWriter) SaveSnapshot(pools []*model.PoolRecord) {
	if len(pools) == 0 {
		return
	}

	// The lock is held across the send so Stop cannot close the
	// channel between the closed check and the queue attempt. The
	// send never blocks, so the critical section stays short.
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if w.minInterval > 0 && !w.lastAccepted.IsZero() && w.now().Sub(w.lastAccepted) < w.minInterval {
		w.metrics.Throttled++
		return
	}
	w.lastAccepted = w.now()

	select {
	case w.input <- pools:
	default:
		w.metrics.Dropped++
		w.logger.Warn("snapshot dropped, writer busy", "pools", len(pools))
	}
}

// Stats returns current metrics.
func (w *SnapshotWriter) Stats() Metrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

// writeLoop consumes queued snapshots until the input channel closes.
func (w *SnapshotWriter) writeLoop() {
	defer w.wg.Done()

	for pools := range w.input {
		w.writeSnapshot(pools)
	}
}

// writeSnapshot stamps and persists one snapshot.
func (w *SnapshotWriter) writeSnapshot(pools []*model.PoolRecord) {
	ts := w.now().Unix()
	rows := make([]snapshotRow, 0, len(pools))
	for _, p := range pools {
		rows = append(rows, transform(p, ts))
	}

	start := time.Now()

	conflicts, err := w.batchInsert(rows)
	if err != nil {
		w.logger.Error("snapshot insert failed", "error", err, "count", len(rows))
		w.mu.Lock()
		w.metrics.Errors++
		w.mu.Unlock()
		return
	}

	w.mu.Lock()
	w.metrics.Inserts += int64(len(rows) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.mu.Unlock()

	w.logger.Debug("snapshot persisted",
		"count", len(rows),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// transform converts a pool record into a snapshot row.
func transform(p *model.PoolRecord, snapshotTS int64) snapshotRow {
	return snapshotRow{
		SnapshotTS:   snapshotTS,
		Source:       p.Source,
		Chain:        p.Chain,
		PoolAddress:  p.PoolAddress,
		Symbol:       p.Symbol,
		Dex:          p.Dex,
		Pair:         p.Pair,
		PriceUSD:     p.PriceUSD,
		LiquidityUSD: p.LiquidityUSD,
		Volume24hUSD: p.Volume24hUSD,
		FeeTier:      p.FeeTier,
	}
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *SnapshotWriter) batchInsert(rows []snapshotRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO pool_snapshots
				(snapshot_ts, source, chain, pool_address, symbol, dex, pair,
				 price_usd, liquidity_usd, volume_24h_usd, fee_tier)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (snapshot_ts, source, chain, pool_address) DO NOTHING
		`, r.SnapshotTS, r.Source, r.Chain, r.PoolAddress, r.Symbol, r.Dex, r.Pair,
			r.PriceUSD, r.LiquidityUSD, r.Volume24hUSD, r.FeeTier)
	}

	results := w.db.SendBatch(w.ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
