package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/dexwatch/dexwatch/internal/cache"
	"github.com/dexwatch/dexwatch/internal/collector"
	"github.com/dexwatch/dexwatch/internal/config"
	"github.com/dexwatch/dexwatch/internal/detector"
	"github.com/dexwatch/dexwatch/internal/model"
	"github.com/dexwatch/dexwatch/internal/stream"
	"github.com/dexwatch/dexwatch/internal/version"
)

// CexSource supplies the latest CEX price snapshot.
type CexSource interface {
	AllPrices() []model.CexPrice
}

// Server serves the REST API and the websocket upgrade point.
type Server struct {
	cfg       config.ServerConfig
	cache     *cache.Cache
	collector *collector.Collector
	detector  *detector.Detector
	cex       CexSource
	hub       *stream.Hub
	symbols   []string
	logger    *slog.Logger

	httpServer *http.Server
	errCh      chan error
}

// New creates a Server. cex may be nil when the CEX feed is disabled.
func New(
	cfg config.ServerConfig,
	poolCache *cache.Cache,
	coll *collector.Collector,
	det *detector.Detector,
	cex CexSource,
	hub *stream.Hub,
	symbols []string,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:       cfg,
		cache:     poolCache,
		collector: coll,
		detector:  det,
		cex:       cex,
		hub:       hub,
		symbols:   symbols,
		logger:    logger,
		errCh:     make(chan error, 1),
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/pools", s.handlePools).Methods(http.MethodGet)
	router.HandleFunc("/pools/cached", s.handleCachedPools).Methods(http.MethodGet)
	router.HandleFunc("/arbitrage", s.handleArbitrage).Methods(http.MethodGet)
	router.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	router.HandleFunc("/ws", hub.HandleWS)

	handler := cors.AllowAll().Handler(router)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Start begins listening in the background.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errCh <- err
		}
	}()
	return nil
}

// Stop drains in-flight requests and closes active websocket sessions.
func (s *Server) Stop(ctx context.Context) error {
	s.hub.CloseAll()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}

// Errors reports a fatal listen failure, if any.
func (s *Server) Errors() <-chan error {
	return s.errCh
}

// Handler returns the full HTTP handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// handleHealth reports liveness and basic component state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	cexPrices := 0
	if s.cex != nil {
		cexPrices = len(s.cex.AllPrices())
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"version":      version.Version,
		"cached_pools": s.cache.Size(),
		"cex_prices":   cexPrices,
		"timestamp":    time.Now().Unix(),
	})
}

// handleCachedPools returns the live cache contents.
func (s *Server) handleCachedPools(w http.ResponseWriter, r *http.Request) {
	pools := s.cache.GetAll()
	if pools == nil {
		pools = []*model.PoolRecord{}
	}
	writeJSON(w, http.StatusOK, pools)
}

// handlePools runs a collection cycle on demand, then returns the
// refreshed cache contents. Slower than /pools/cached.
func (s *Server) handlePools(w http.ResponseWriter, r *http.Request) {
	s.collector.CollectAll(r.Context(), s.symbols)

	pools := s.cache.GetAll()
	if pools == nil {
		pools = []*model.PoolRecord{}
	}
	writeJSON(w, http.StatusOK, pools)
}

// handleArbitrage detects opportunities over the cached pools.
func (s *Server) handleArbitrage(w http.ResponseWriter, r *http.Request) {
	pools := s.cache.GetAll()

	alerts := s.detector.DetectDexDex(pools)
	if s.cex != nil {
		alerts = append(alerts, s.detector.DetectDexCex(pools, s.cex.AllPrices())...)
	}
	if alerts == nil {
		alerts = []model.ArbitrageAlert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

// handleStats returns operational counters.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.collector.Stats()

	cexPrices := 0
	if s.cex != nil {
		cexPrices = len(s.cex.AllPrices())
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"cached_pools":    s.cache.Size(),
		"symbols":         len(s.symbols),
		"cex_prices":      cexPrices,
		"active_sessions": s.hub.SessionCount(),
		"collector":       stats,
	})
}
