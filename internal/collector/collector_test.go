package collector

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dexwatch/dexwatch/internal/cache"
	"github.com/dexwatch/dexwatch/internal/config"
	"github.com/dexwatch/dexwatch/internal/filter"
	"github.com/dexwatch/dexwatch/internal/model"
	"github.com/dexwatch/dexwatch/internal/source"
)

// mockSource is a scriptable in-memory source.
type mockSource struct {
	name     string
	fetch    func(ctx context.Context, symbol string) ([]model.PoolRecord, error)
	calls    atomic.Int64
	inFlight atomic.Int64
	maxSeen  atomic.Int64
}

func (m *mockSource) Name() string { return m.name }

func (m *mockSource) FetchPools(ctx context.Context, symbol string) ([]model.PoolRecord, error) {
	m.calls.Add(1)
	cur := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)

	for {
		prev := m.maxSeen.Load()
		if cur <= prev || m.maxSeen.CompareAndSwap(prev, cur) {
			break
		}
	}

	return m.fetch(ctx, symbol)
}

func goodRecord(symbol, src, addr string) model.PoolRecord {
	return model.PoolRecord{
		Symbol:       symbol,
		Chain:        "ethereum",
		Dex:          "uniswap",
		PoolAddress:  addr,
		PriceUSD:     100,
		LiquidityUSD: 50_000,
		Volume24hUSD: 20_000,
		Source:       src,
		ObservedAt:   time.Now().Unix(),
	}
}

func permissiveFilter() *filter.Filter {
	return filter.New(config.FilterConfig{MinLiquidityUSD: 10_000, MinVolumeUSD: 5_000})
}

func testCache() *cache.Cache {
	return cache.New(time.Minute, time.Minute)
}

func quickConfig() Config {
	return Config{
		Concurrency:  10,
		FetchTimeout: time.Second,
		MaxRetries:   3,
		RetryDelay:   time.Millisecond,
	}
}

func TestCollectAll_HappyPath(t *testing.T) {
	src := &mockSource{
		name: "gecko",
		fetch: func(ctx context.Context, symbol string) ([]model.PoolRecord, error) {
			return []model.PoolRecord{goodRecord(symbol, "gecko", "0x"+symbol)}, nil
		},
	}

	poolCache := testCache()
	c := New(quickConfig(), []source.Source{src}, poolCache, permissiveFilter(), nil)

	result := c.CollectAll(context.Background(), []string{"eth", "sol", "btc"})

	if result.Total != 3 || result.Successful != 3 || result.Failed != 0 {
		t.Errorf("result = %+v, want Total=3 Successful=3 Failed=0", result)
	}
	if poolCache.Size() != 3 {
		t.Errorf("cache size = %d, want 3", poolCache.Size())
	}

	// Symbols are uppercase-normalized before fetching.
	if _, ok := poolCache.Get("gecko:ethereum:0xETH"); !ok {
		t.Error("expected record keyed by uppercased symbol")
	}

	stats := c.Stats()
	if stats.PoolsCollected != 3 {
		t.Errorf("PoolsCollected = %d, want 3", stats.PoolsCollected)
	}
}

func TestCollectAll_EmptySymbolsIsNoop(t *testing.T) {
	src := &mockSource{
		name: "gecko",
		fetch: func(ctx context.Context, symbol string) ([]model.PoolRecord, error) {
			t.Error("fetch should not be called")
			return nil, nil
		},
	}

	c := New(quickConfig(), []source.Source{src}, testCache(), permissiveFilter(), nil)

	result := c.CollectAll(context.Background(), nil)
	if result != (Result{}) {
		t.Errorf("result = %+v, want zero result", result)
	}

	stats := c.Stats()
	if stats != (model.CollectorStats{}) {
		t.Errorf("stats = %+v, want all zero", stats)
	}
}

func TestCollectAll_EmptyFetchResultIsSuccess(t *testing.T) {
	src := &mockSource{
		name: "gecko",
		fetch: func(ctx context.Context, symbol string) ([]model.PoolRecord, error) {
			return nil, nil
		},
	}

	c := New(quickConfig(), []source.Source{src}, testCache(), permissiveFilter(), nil)

	result := c.CollectAll(context.Background(), []string{"ETH"})
	if result.Successful != 1 || result.Failed != 0 {
		t.Errorf("result = %+v, want Successful=1 Failed=0", result)
	}
}

func TestCollectAll_PartialFailureAccounting(t *testing.T) {
	good := &mockSource{
		name: "gecko",
		fetch: func(ctx context.Context, symbol string) ([]model.PoolRecord, error) {
			return []model.PoolRecord{goodRecord(symbol, "gecko", "0x"+symbol)}, nil
		},
	}
	bad := &mockSource{
		name: "dexscreener",
		fetch: func(ctx context.Context, symbol string) ([]model.PoolRecord, error) {
			return nil, source.NetworkError(context.DeadlineExceeded)
		},
	}

	poolCache := testCache()
	c := New(quickConfig(), []source.Source{good, bad}, poolCache, permissiveFilter(), nil)

	symbols := []string{"ETH", "SOL", "BTC"}
	result := c.CollectAll(context.Background(), symbols)

	wantTotal := len(symbols) * 2
	if result.Successful+result.Failed != wantTotal {
		t.Errorf("Successful+Failed = %d, want %d", result.Successful+result.Failed, wantTotal)
	}
	if result.Successful != 3 || result.Failed != 3 {
		t.Errorf("result = %+v, want Successful=3 Failed=3", result)
	}

	// All records from the succeeding source are cached.
	if poolCache.Size() != 3 {
		t.Errorf("cache size = %d, want 3", poolCache.Size())
	}

	// The failing source exhausted its full retry budget per symbol.
	if got := bad.calls.Load(); got != int64(3*quickConfig().MaxRetries) {
		t.Errorf("failing source calls = %d, want %d", got, 3*quickConfig().MaxRetries)
	}

	// Lifetime counters agree with the cycle result.
	stats := c.Stats()
	if stats.Successful != int64(result.Successful) || stats.Failed != int64(result.Failed) {
		t.Errorf("stats = %+v, want Successful=%d Failed=%d", stats, result.Successful, result.Failed)
	}
	if stats.RequestsTotal != int64(wantTotal) {
		t.Errorf("RequestsTotal = %d, want %d", stats.RequestsTotal, wantTotal)
	}
}

func TestCollectAll_RetryThenSucceed(t *testing.T) {
	var attempts atomic.Int64
	src := &mockSource{
		name: "flaky",
		fetch: func(ctx context.Context, symbol string) ([]model.PoolRecord, error) {
			if attempts.Add(1) < 3 {
				return nil, source.RateLimitError()
			}
			return []model.PoolRecord{goodRecord(symbol, "flaky", "0xabc")}, nil
		},
	}

	poolCache := testCache()
	c := New(quickConfig(), []source.Source{src}, poolCache, permissiveFilter(), nil)

	result := c.CollectAll(context.Background(), []string{"ETH"})
	if result.Successful != 1 || result.Failed != 0 {
		t.Errorf("result = %+v, want Successful=1 Failed=0", result)
	}
	if attempts.Load() != 3 {
		t.Errorf("attempts = %d, want 3", attempts.Load())
	}
	if poolCache.Size() != 1 {
		t.Errorf("cache size = %d, want 1", poolCache.Size())
	}
}

func TestCollectAll_PerAttemptTimeout(t *testing.T) {
	src := &mockSource{
		name: "slow",
		fetch: func(ctx context.Context, symbol string) ([]model.PoolRecord, error) {
			<-ctx.Done()
			return nil, source.NetworkError(ctx.Err())
		},
	}

	cfg := Config{
		Concurrency:  2,
		FetchTimeout: 20 * time.Millisecond,
		MaxRetries:   2,
		RetryDelay:   time.Millisecond,
	}
	c := New(cfg, []source.Source{src}, testCache(), permissiveFilter(), nil)

	start := time.Now()
	result := c.CollectAll(context.Background(), []string{"ETH"})
	elapsed := time.Since(start)

	if result.Failed != 1 {
		t.Errorf("result = %+v, want Failed=1", result)
	}
	if src.calls.Load() != 2 {
		t.Errorf("calls = %d, want 2 (retry after timeout)", src.calls.Load())
	}
	// Two 20ms attempts plus one 1ms delay, with headroom.
	if elapsed > time.Second {
		t.Errorf("collection took %v, per-attempt timeout not enforced", elapsed)
	}
}

func TestCollectAll_ConcurrencyBound(t *testing.T) {
	const limit = 3

	src := &mockSource{
		name: "sleepy",
		fetch: func(ctx context.Context, symbol string) ([]model.PoolRecord, error) {
			time.Sleep(20 * time.Millisecond)
			return nil, nil
		},
	}

	cfg := quickConfig()
	cfg.Concurrency = limit
	c := New(cfg, []source.Source{src}, testCache(), permissiveFilter(), nil)

	symbols := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}
	c.CollectAll(context.Background(), symbols)

	if got := src.maxSeen.Load(); got > limit {
		t.Errorf("max concurrent fetches = %d, want <= %d", got, limit)
	}
}

func TestCollectAll_FilterDropsInvalidRecords(t *testing.T) {
	src := &mockSource{
		name: "gecko",
		fetch: func(ctx context.Context, symbol string) ([]model.PoolRecord, error) {
			valid := goodRecord(symbol, "gecko", "0xgood")
			dust := goodRecord(symbol, "gecko", "0xdust")
			dust.LiquidityUSD = 40
			dust.Volume24hUSD = 0
			return []model.PoolRecord{valid, dust}, nil
		},
	}

	poolCache := testCache()
	c := New(quickConfig(), []source.Source{src}, poolCache, permissiveFilter(), nil)

	c.CollectAll(context.Background(), []string{"ETH"})

	if poolCache.Size() != 1 {
		t.Errorf("cache size = %d, want 1 (dust record filtered)", poolCache.Size())
	}
	if c.Stats().PoolsCollected != 1 {
		t.Errorf("PoolsCollected = %d, want 1", c.Stats().PoolsCollected)
	}
}

func TestRunner_StartStop(t *testing.T) {
	var cycles atomic.Int64
	src := &mockSource{
		name: "gecko",
		fetch: func(ctx context.Context, symbol string) ([]model.PoolRecord, error) {
			cycles.Add(1)
			return []model.PoolRecord{goodRecord(symbol, "gecko", "0xabc")}, nil
		},
	}

	poolCache := testCache()
	c := New(quickConfig(), []source.Source{src}, poolCache, permissiveFilter(), nil)

	sink := &captureSink{}
	r := NewRunner(RunnerConfig{
		Interval:      50 * time.Millisecond,
		PurgeInterval: time.Hour,
	}, c, poolCache, []string{"ETH"}, sink, nil)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Immediate cycle plus at least one ticker cycle.
	time.Sleep(80 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if cycles.Load() < 2 {
		t.Errorf("cycles = %d, want >= 2", cycles.Load())
	}
	if sink.count() < 2 {
		t.Errorf("sink snapshots = %d, want >= 2", sink.count())
	}
}

// captureSink counts snapshots handed to it.
type captureSink struct {
	mu        sync.Mutex
	snapshots int
}

func (s *captureSink) SaveSnapshot(pools []*model.PoolRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots++
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots
}
