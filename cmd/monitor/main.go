package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dexwatch/dexwatch/internal/cache"
	"github.com/dexwatch/dexwatch/internal/cexfeed"
	"github.com/dexwatch/dexwatch/internal/collector"
	"github.com/dexwatch/dexwatch/internal/config"
	"github.com/dexwatch/dexwatch/internal/detector"
	"github.com/dexwatch/dexwatch/internal/filter"
	"github.com/dexwatch/dexwatch/internal/server"
	"github.com/dexwatch/dexwatch/internal/source"
	"github.com/dexwatch/dexwatch/internal/storage"
	"github.com/dexwatch/dexwatch/internal/stream"
	"github.com/dexwatch/dexwatch/internal/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "configs/monitor.local.yaml", "path to config file")
	flag.Parse()

	// Local .env is optional.
	godotenv.Load()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting monitor",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"collect_interval", cfg.Collector.Interval,
		"cache_ttl", cfg.Cache.TTL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Resolve the symbol universe: explicit config wins, otherwise
	// discover every KRW-quoted market the CEX lists.
	symbols := cfg.Collector.Symbols
	if len(symbols) == 0 {
		symbols, err = cexfeed.FetchKRWMarkets(ctx, cfg.CexFeed.RestURL)
		if err != nil {
			logger.Error("failed to discover symbols", "error", err)
			os.Exit(1)
		}
		logger.Info("discovered symbols from CEX markets", "count", len(symbols))
	}

	// CEX price feed
	var cexSource server.CexSource
	var feed *cexfeed.Feed
	if cfg.CexFeed.Enabled {
		feed = cexfeed.New(cexfeed.Config{
			WSURL:              cfg.CexFeed.WSURL,
			KRWUSDRate:         cfg.CexFeed.KRWUSDRate,
			ReconnectBaseDelay: cfg.CexFeed.ReconnectBaseDelay,
			ReconnectMaxDelay:  cfg.CexFeed.ReconnectMaxDelay,
		}, symbols, logger)
		if err := feed.Start(ctx); err != nil {
			logger.Error("failed to start cex feed", "error", err)
			os.Exit(1)
		}
		cexSource = feed
	}

	// Snapshot persistence
	var sink collector.SnapshotSink
	var writer *storage.SnapshotWriter
	if cfg.Database.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Database.Postgres.Host,
			"port", cfg.Database.Postgres.Port,
			"database", cfg.Database.Postgres.Name,
		)

		db, err := storage.Connect(ctx, cfg.Database.Postgres)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		writer = storage.NewSnapshotWriter(db, cfg.Database.SnapshotInterval, logger)
		if err := writer.Start(ctx); err != nil {
			logger.Error("failed to start snapshot writer", "error", err)
			os.Exit(1)
		}
		sink = writer
		logger.Info("database connected")
	}

	// Core pipeline
	poolCache := cache.New(cfg.Cache.TTL, cfg.Cache.PurgeInterval)
	poolFilter := filter.New(cfg.Filter)
	det := detector.New(cfg.Arbitrage.Threshold)

	sources := []source.Source{
		source.NewGeckoTerminal(),
		source.NewDexScreener(),
	}

	coll := collector.New(collector.Config{
		Concurrency:  cfg.Collector.Concurrency,
		FetchTimeout: cfg.Collector.FetchTimeout,
		MaxRetries:   cfg.Collector.MaxRetries,
		RetryDelay:   cfg.Collector.RetryDelay,
	}, sources, poolCache, poolFilter, logger)

	runner := collector.NewRunner(collector.RunnerConfig{
		Interval:      cfg.Collector.Interval,
		PurgeInterval: cfg.Cache.PurgeInterval,
	}, coll, poolCache, symbols, sink, logger)

	if err := runner.Start(ctx); err != nil {
		logger.Error("failed to start collection runner", "error", err)
		os.Exit(1)
	}

	// Serving layer
	hub := stream.NewHub(cfg.Stream, poolCache, det, cexSource, logger)
	srv := server.New(cfg.Server, poolCache, coll, det, cexSource, hub, symbols, logger)
	if err := srv.Start(ctx); err != nil {
		logger.Error("failed to start http server", "error", err)
		os.Exit(1)
	}

	logger.Info("monitor running",
		"instance_id", cfg.Instance.ID,
		"symbols", len(symbols),
		"addr", cfg.Server.Host, "port", cfg.Server.Port,
	)

	// Wait for shutdown or a fatal listen failure
	select {
	case <-ctx.Done():
	case err := <-srv.Errors():
		logger.Error("http server failed", "error", err)
		cancel()
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("http server shutdown failed", "error", err)
	}
	if err := runner.Stop(shutdownCtx); err != nil {
		logger.Warn("runner shutdown failed", "error", err)
	}
	if feed != nil {
		if err := feed.Stop(shutdownCtx); err != nil {
			logger.Warn("cex feed shutdown failed", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Stop(shutdownCtx); err != nil {
			logger.Warn("snapshot writer shutdown failed", "error", err)
		}
	}

	logger.Info("monitor stopped")
}
