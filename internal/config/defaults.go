package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultServerHost         = "0.0.0.0"
	DefaultServerPort         = 3000
	DefaultCollectInterval    = 1 * time.Minute
	DefaultConcurrency        = 10
	DefaultFetchTimeout       = 10 * time.Second
	DefaultMaxRetries         = 3
	DefaultRetryDelay         = 500 * time.Millisecond
	DefaultCacheTTL           = 2 * time.Minute
	DefaultPurgeInterval      = 1 * time.Minute
	DefaultMinLiquidityUSD    = 10_000.0
	DefaultMinVolumeUSD       = 5_000.0
	DefaultThreshold          = 0.02
	DefaultBroadcastInterval  = 30 * time.Second
	DefaultHeartbeatInterval  = 10 * time.Second
	DefaultSendTimeout        = 5 * time.Second
	DefaultChunkSize          = 50
	DefaultCexWSURL           = "wss://api.upbit.com/websocket/v1"
	DefaultCexRestURL         = "https://api.upbit.com"
	DefaultKRWUSDRate         = 1400.0
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 60 * time.Second
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultSnapshotInterval   = 1 * time.Minute
)

func (c *MonitorConfig) applyDefaults() {
	// Server defaults
	if c.Server.Host == "" {
		c.Server.Host = DefaultServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}

	// Collector defaults
	if c.Collector.Interval == 0 {
		c.Collector.Interval = DefaultCollectInterval
	}
	if c.Collector.Concurrency == 0 {
		c.Collector.Concurrency = DefaultConcurrency
	}
	if c.Collector.FetchTimeout == 0 {
		c.Collector.FetchTimeout = DefaultFetchTimeout
	}
	if c.Collector.MaxRetries == 0 {
		c.Collector.MaxRetries = DefaultMaxRetries
	}
	if c.Collector.RetryDelay == 0 {
		c.Collector.RetryDelay = DefaultRetryDelay
	}

	// Cache defaults
	if c.Cache.TTL == 0 {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Cache.PurgeInterval == 0 {
		c.Cache.PurgeInterval = DefaultPurgeInterval
	}

	// Filter defaults
	if c.Filter.MinLiquidityUSD == 0 {
		c.Filter.MinLiquidityUSD = DefaultMinLiquidityUSD
	}
	if c.Filter.MinVolumeUSD == 0 {
		c.Filter.MinVolumeUSD = DefaultMinVolumeUSD
	}

	// Arbitrage defaults
	if c.Arbitrage.Threshold == 0 {
		c.Arbitrage.Threshold = DefaultThreshold
	}

	// Stream defaults
	if c.Stream.BroadcastInterval == 0 {
		c.Stream.BroadcastInterval = DefaultBroadcastInterval
	}
	if c.Stream.HeartbeatInterval == 0 {
		c.Stream.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Stream.SendTimeout == 0 {
		c.Stream.SendTimeout = DefaultSendTimeout
	}
	if c.Stream.ChunkSize == 0 {
		c.Stream.ChunkSize = DefaultChunkSize
	}

	// CEX feed defaults
	if c.CexFeed.WSURL == "" {
		c.CexFeed.WSURL = DefaultCexWSURL
	}
	if c.CexFeed.RestURL == "" {
		c.CexFeed.RestURL = DefaultCexRestURL
	}
	if c.CexFeed.KRWUSDRate == 0 {
		c.CexFeed.KRWUSDRate = DefaultKRWUSDRate
	}
	if c.CexFeed.ReconnectBaseDelay == 0 {
		c.CexFeed.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.CexFeed.ReconnectMaxDelay == 0 {
		c.CexFeed.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}

	// Database defaults
	if c.Database.SnapshotInterval == 0 {
		c.Database.SnapshotInterval = DefaultSnapshotInterval
	}
	applyDBDefaults(&c.Database.Postgres)
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
