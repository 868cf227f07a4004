package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-monitor
server:
  host: 127.0.0.1
  port: 3100
collector:
  symbols: [ETH, SOL]
  interval: 2m
arbitrage:
  threshold: 0.05
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-monitor" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-monitor")
	}
	if cfg.Server.Port != 3100 {
		t.Errorf("Server.Port = %d, want 3100", cfg.Server.Port)
	}
	if len(cfg.Collector.Symbols) != 2 || cfg.Collector.Symbols[0] != "ETH" {
		t.Errorf("Collector.Symbols = %v, want [ETH SOL]", cfg.Collector.Symbols)
	}
	if cfg.Collector.Interval != 2*time.Minute {
		t.Errorf("Collector.Interval = %v, want 2m", cfg.Collector.Interval)
	}
	if cfg.Arbitrage.Threshold != 0.05 {
		t.Errorf("Arbitrage.Threshold = %v, want 0.05", cfg.Arbitrage.Threshold)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
instance:
  id: test-monitor
database:
  enabled: true
  postgres:
    host: localhost
    name: test_db
    user: testuser
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Postgres.Password != "secret123" {
		t.Errorf("Database.Postgres.Password = %q, want %q", cfg.Database.Postgres.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-monitor
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Collector.Interval != DefaultCollectInterval {
		t.Errorf("Collector.Interval = %v, want default %v", cfg.Collector.Interval, DefaultCollectInterval)
	}
	if cfg.Collector.Concurrency != DefaultConcurrency {
		t.Errorf("Collector.Concurrency = %d, want default %d", cfg.Collector.Concurrency, DefaultConcurrency)
	}
	if cfg.Cache.TTL != DefaultCacheTTL {
		t.Errorf("Cache.TTL = %v, want default %v", cfg.Cache.TTL, DefaultCacheTTL)
	}
	if cfg.Arbitrage.Threshold != DefaultThreshold {
		t.Errorf("Arbitrage.Threshold = %v, want default %v", cfg.Arbitrage.Threshold, DefaultThreshold)
	}
	if cfg.Stream.ChunkSize != DefaultChunkSize {
		t.Errorf("Stream.ChunkSize = %d, want default %d", cfg.Stream.ChunkSize, DefaultChunkSize)
	}
	if cfg.CexFeed.WSURL != DefaultCexWSURL {
		t.Errorf("CexFeed.WSURL = %q, want default %q", cfg.CexFeed.WSURL, DefaultCexWSURL)
	}
	if cfg.Database.Postgres.Port != DefaultDBPort {
		t.Errorf("Database.Postgres.Port = %d, want default %d", cfg.Database.Postgres.Port, DefaultDBPort)
	}
}

func TestFilterPriceOnlyDefaultsOff(t *testing.T) {
	yaml := `
instance:
  id: test-monitor
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Filter.PriceOnly {
		t.Error("Filter.PriceOnly defaulted to true, want false")
	}
}

func TestValidate(t *testing.T) {
	valid := func() MonitorConfig {
		cfg := MonitorConfig{Instance: InstanceConfig{ID: "test"}}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*MonitorConfig)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(c *MonitorConfig) {},
			wantErr: "",
		},
		{
			name:    "missing instance id",
			mutate:  func(c *MonitorConfig) { c.Instance.ID = "" },
			wantErr: "instance.id is required",
		},
		{
			name:    "bad port",
			mutate:  func(c *MonitorConfig) { c.Server.Port = 70000 },
			wantErr: "server.port must be between 1 and 65535, got 70000",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *MonitorConfig) { c.Collector.Concurrency = -1 },
			wantErr: "collector.concurrency must be >= 1",
		},
		{
			name:    "negative threshold",
			mutate:  func(c *MonitorConfig) { c.Arbitrage.Threshold = -0.01 },
			wantErr: "arbitrage.threshold must be positive",
		},
		{
			name: "db enabled without host",
			mutate: func(c *MonitorConfig) {
				c.Database.Enabled = true
			},
			wantErr: "database.postgres.host is required",
		},
		{
			name: "min_conns exceeds max_conns",
			mutate: func(c *MonitorConfig) {
				c.Database.Enabled = true
				c.Database.Postgres = DBConfig{
					Host: "localhost", Name: "db", User: "user", Password: "pass",
					MaxConns: 5, MinConns: 10,
				}
			},
			wantErr: "database.postgres.min_conns (10) cannot exceed max_conns (5)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
