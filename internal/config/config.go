package config

import "time"

// MonitorConfig is the root configuration for a monitor instance.
type MonitorConfig struct {
	Instance  InstanceConfig  `yaml:"instance"`
	Server    ServerConfig    `yaml:"server"`
	Collector CollectorConfig `yaml:"collector"`
	Cache     CacheConfig     `yaml:"cache"`
	Filter    FilterConfig    `yaml:"filter"`
	Arbitrage ArbitrageConfig `yaml:"arbitrage"`
	Stream    StreamConfig    `yaml:"stream"`
	CexFeed   CexFeedConfig   `yaml:"cex_feed"`
	Database  DatabaseConfig  `yaml:"database"`
}

// InstanceConfig identifies this monitor.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ServerConfig holds the HTTP serving layer settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// CollectorConfig holds pool collection settings.
type CollectorConfig struct {
	Symbols      []string      `yaml:"symbols"`       // Empty = discover from CEX markets
	Interval     time.Duration `yaml:"interval"`      // Background cycle period
	Concurrency  int           `yaml:"concurrency"`   // Global in-flight fetch limit
	FetchTimeout time.Duration `yaml:"fetch_timeout"` // Per-attempt timeout
	MaxRetries   int           `yaml:"max_retries"`   // Total attempts per (source, symbol)
	RetryDelay   time.Duration `yaml:"retry_delay"`   // Fixed inter-attempt delay
}

// CacheConfig holds pool cache settings.
type CacheConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	PurgeInterval time.Duration `yaml:"purge_interval"`
}

// FilterConfig holds pool validity thresholds.
type FilterConfig struct {
	MinLiquidityUSD float64 `yaml:"min_liquidity_usd"`
	MinVolumeUSD    float64 `yaml:"min_volume_usd"`
	MinTxCount      int     `yaml:"min_tx_count"`

	// PriceOnly relaxes the filter to accept any record with a positive
	// price, bypassing liquidity checks. Debug mode, off by default.
	PriceOnly bool `yaml:"price_only"`
}

// ArbitrageConfig holds detection settings.
type ArbitrageConfig struct {
	Threshold float64 `yaml:"threshold"` // Fractional, e.g. 0.02 = 2%
}

// StreamConfig holds per-connection distribution loop settings.
type StreamConfig struct {
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	SendTimeout       time.Duration `yaml:"send_timeout"`
	ChunkSize         int           `yaml:"chunk_size"`
}

// CexFeedConfig holds CEX price feed settings.
type CexFeedConfig struct {
	Enabled            bool          `yaml:"enabled"`
	WSURL              string        `yaml:"ws_url"`
	RestURL            string        `yaml:"rest_url"`
	KRWUSDRate         float64       `yaml:"krw_usd_rate"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
}

// DatabaseConfig holds snapshot persistence settings.
type DatabaseConfig struct {
	Enabled          bool          `yaml:"enabled"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
	Postgres         DBConfig      `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}
