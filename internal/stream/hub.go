package stream

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dexwatch/dexwatch/internal/cache"
	"github.com/dexwatch/dexwatch/internal/config"
	"github.com/dexwatch/dexwatch/internal/detector"
	"github.com/dexwatch/dexwatch/internal/model"
)

// CexSource supplies the latest CEX price snapshot for detection.
type CexSource interface {
	AllPrices() []model.CexPrice
}

// Hub accepts websocket connections and runs a session per connection.
type Hub struct {
	cache    *cache.Cache
	detector *detector.Detector
	cex      CexSource
	cfg      config.StreamConfig
	logger   *slog.Logger

	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

// NewHub creates a Hub. cex may be nil when the CEX feed is disabled;
// DEX-to-CEX detection is skipped in that case.
func NewHub(cfg config.StreamConfig, poolCache *cache.Cache, det *detector.Detector, cex CexSource, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		cache:    poolCache,
		detector: det,
		cex:      cex,
		cfg:      cfg,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		sessions: make(map[uuid.UUID]*session),
	}
}

// HandleWS upgrades the request and runs the session until the client
// disconnects or a write fails.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	s := &session{
		id:   uuid.New(),
		hub:  h,
		conn: conn,
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.sessions[s.id] = s
	count := len(h.sessions)
	h.mu.Unlock()

	h.logger.Info("websocket session opened",
		"session_id", s.id,
		"remote", r.RemoteAddr,
		"active_sessions", count,
	)

	s.run(r.Context())

	h.mu.Lock()
	delete(h.sessions, s.id)
	count = len(h.sessions)
	h.mu.Unlock()

	h.logger.Info("websocket session closed",
		"session_id", s.id,
		"active_sessions", count,
	)
}

// SessionCount returns the number of active sessions.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// CloseAll terminates every active session. Used during shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	sessions := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.conn.Close()
	}
}

// poolUpdate is the outbound snapshot message.
type poolUpdate struct {
	Type  string              `json:"type"`
	Count int                 `json:"count"`
	Data  []*model.PoolRecord `json:"data"`
}

// arbAlert is the outbound alert message.
type arbAlert struct {
	Type  string                 `json:"type"`
	Count int                    `json:"count"`
	Data  []model.ArbitrageAlert `json:"data"`
}

// detect runs both detection passes over the given pool snapshot.
func (h *Hub) detect(pools []*model.PoolRecord) []model.ArbitrageAlert {
	alerts := h.detector.DetectDexDex(pools)
	if h.cex != nil {
		alerts = append(alerts, h.detector.DetectDexCex(pools, h.cex.AllPrices())...)
	}
	return alerts
}

// chunkPools splits pools into slices of at most size records.
func chunkPools(pools []*model.PoolRecord, size int) [][]*model.PoolRecord {
	if size <= 0 {
		size = config.DefaultChunkSize
	}
	chunks := make([][]*model.PoolRecord, 0, (len(pools)+size-1)/size)
	for len(pools) > size {
		chunks = append(chunks, pools[:size])
		pools = pools[size:]
	}
	if len(pools) > 0 {
		chunks = append(chunks, pools)
	}
	return chunks
}

func marshalPoolUpdate(chunk []*model.PoolRecord) ([]byte, error) {
	return json.Marshal(poolUpdate{Type: "pool_update", Count: len(chunk), Data: chunk})
}

func marshalArbAlert(alerts []model.ArbitrageAlert) ([]byte, error) {
	return json.Marshal(arbAlert{Type: "arb_alert", Count: len(alerts), Data: alerts})
}

// writeDeadline computes the deadline for the next outbound write.
func (h *Hub) writeDeadline() time.Time {
	return time.Now().Add(h.cfg.SendTimeout)
}
