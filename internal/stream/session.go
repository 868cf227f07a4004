package stream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dexwatch/dexwatch/internal/model"
)

// inboundMessage is a text frame received from the client.
type inboundMessage struct {
	data []byte
	err  error
}

// session is one subscriber connection with its own broadcast loop.
type session struct {
	id   uuid.UUID
	hub  *Hub
	conn *websocket.Conn

	// done is closed when run returns so the read pump never blocks
	// forwarding to a loop that is gone.
	done chan struct{}
}

// run drives the session until the client disconnects, a broadcast or
// heartbeat write fails, or ctx is cancelled.
func (s *session) run(ctx context.Context) {
	defer s.conn.Close()
	defer close(s.done)

	// Server-initiated pings; pongs are consumed by the read loop.
	s.conn.SetPongHandler(func(string) error { return nil })

	inbound := make(chan inboundMessage, 8)
	go s.readPump(inbound)

	broadcast := time.NewTicker(s.hub.cfg.BroadcastInterval)
	defer broadcast.Stop()
	heartbeat := time.NewTicker(s.hub.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-broadcast.C:
			if err := s.broadcastOnce(); err != nil {
				s.hub.logger.Debug("broadcast failed", "session_id", s.id, "error", err)
				return
			}

		case <-heartbeat.C:
			deadline := time.Now().Add(s.hub.cfg.SendTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				s.hub.logger.Debug("heartbeat failed", "session_id", s.id, "error", err)
				return
			}

		case msg := <-inbound:
			if msg.err != nil {
				return
			}
			if err := s.handleInbound(msg.data); err != nil {
				s.hub.logger.Debug("inbound handling failed", "session_id", s.id, "error", err)
				return
			}
		}
	}
}

// readPump forwards inbound text frames to the session loop. A read
// error (including close) is forwarded once, then the pump exits. Every
// send selects against the session's done channel so a terminated loop
// cannot strand the pump.
func (s *session) readPump(inbound chan<- inboundMessage) {
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case inbound <- inboundMessage{err: err}:
			case <-s.done:
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		select {
		case inbound <- inboundMessage{data: data}:
		case <-s.done:
			return
		}
	}
}

// broadcastOnce sends the full cache snapshot in chunks, then any
// alerts detected over the same snapshot. Snapshot writes are fatal to
// the session; the alert write is best-effort.
func (s *session) broadcastOnce() error {
	pools := s.hub.cache.GetAll()

	// An empty cache still produces one count-0 envelope per tick so
	// clients can tell "nothing cached" from a stalled stream.
	chunks := chunkPools(pools, s.hub.cfg.ChunkSize)
	if len(chunks) == 0 {
		chunks = [][]*model.PoolRecord{{}}
	}

	for _, chunk := range chunks {
		payload, err := marshalPoolUpdate(chunk)
		if err != nil {
			return err
		}
		s.conn.SetWriteDeadline(s.hub.writeDeadline())
		if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return err
		}
	}

	alerts := s.hub.detect(pools)
	if len(alerts) == 0 {
		return nil
	}

	payload, err := marshalArbAlert(alerts)
	if err != nil {
		return err
	}
	s.conn.SetWriteDeadline(s.hub.writeDeadline())
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		s.hub.logger.Warn("alert delivery failed", "session_id", s.id, "error", err)
	}
	return nil
}

// handleInbound processes a client command frame.
func (s *session) handleInbound(data []byte) error {
	var cmd struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &cmd); err != nil {
		// Unknown frames are ignored.
		return nil
	}

	if cmd.Type == "ping" {
		s.conn.SetWriteDeadline(s.hub.writeDeadline())
		return s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"pong"}`))
	}
	return nil
}
