package cexfeed

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dexwatch/dexwatch/internal/model"
)

// Config holds feed settings.
type Config struct {
	WSURL              string
	KRWUSDRate         float64
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		WSURL:              "wss://api.upbit.com/websocket/v1",
		KRWUSDRate:         1400.0,
		ReconnectBaseDelay: time.Second,
		ReconnectMaxDelay:  60 * time.Second,
	}
}

// Feed maintains the latest CEX price per symbol from the Upbit stream.
type Feed struct {
	cfg     Config
	symbols []string
	logger  *slog.Logger

	mu     sync.RWMutex
	prices map[string]model.CexPrice

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Feed tracking the given symbols.
func New(cfg Config, symbols []string, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		cfg:     cfg,
		symbols: symbols,
		logger:  logger,
		prices:  make(map[string]model.CexPrice),
	}
}

// Start begins streaming in the background. Connection failures are
// retried with exponential backoff and never surface to the caller.
func (f *Feed) Start(ctx context.Context) error {
	f.ctx, f.cancel = context.WithCancel(ctx)

	f.wg.Add(1)
	go f.run()

	f.logger.Info("cex feed started",
		"url", f.cfg.WSURL,
		"symbols", len(f.symbols),
	)
	return nil
}

// Stop gracefully shuts down the feed.
func (f *Feed) Stop(ctx context.Context) error {
	if f.cancel != nil {
		f.cancel()
	}

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		f.logger.Info("cex feed stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Price returns the latest price for a symbol.
func (f *Feed) Price(symbol string) (model.CexPrice, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	p, ok := f.prices[strings.ToUpper(symbol)]
	return p, ok
}

// AllPrices returns a snapshot of every known price. Non-blocking.
func (f *Feed) AllPrices() []model.CexPrice {
	f.mu.RLock()
	defer f.mu.RUnlock()

	result := make([]model.CexPrice, 0, len(f.prices))
	for _, p := range f.prices {
		result = append(result, p)
	}
	return result
}

// run connects and streams, reconnecting with exponential backoff.
func (f *Feed) run() {
	defer f.wg.Done()

	delay := f.cfg.ReconnectBaseDelay

	for {
		select {
		case <-f.ctx.Done():
			return
		default:
		}

		err := f.streamOnce()
		if err != nil {
			f.logger.Warn("cex stream disconnected", "error", err, "retry_in", delay)
		}

		select {
		case <-f.ctx.Done():
			return
		case <-time.After(delay):
		}

		delay *= 2
		if delay > f.cfg.ReconnectMaxDelay {
			delay = f.cfg.ReconnectMaxDelay
		}
		if err == nil {
			delay = f.cfg.ReconnectBaseDelay
		}
	}
}

// upbitTicker is the subset of the ticker frame the feed consumes.
type upbitTicker struct {
	Code       string  `json:"code"`
	TradePrice float64 `json:"trade_price"`
	Timestamp  int64   `json:"timestamp"` // Milliseconds since epoch
}

// streamOnce dials, subscribes, and reads until the connection drops.
func (f *Feed) streamOnce() error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.DialContext(f.ctx, f.cfg.WSURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Upbit sends pings; answer with pongs to keep the stream open.
	conn.SetPingHandler(func(data string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	if err := f.subscribe(conn); err != nil {
		return err
	}

	f.logger.Debug("cex stream connected", "url", f.cfg.WSURL)

	// Close the connection when the feed stops so ReadMessage unblocks.
	readDone := make(chan struct{})
	defer close(readDone)
	go func() {
		select {
		case <-f.ctx.Done():
			conn.Close()
		case <-readDone:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-f.ctx.Done():
				return nil
			default:
				return err
			}
		}

		var ticker upbitTicker
		if err := json.Unmarshal(data, &ticker); err != nil {
			f.logger.Debug("skipping unparseable frame", "error", err)
			continue
		}
		if ticker.Code == "" || ticker.TradePrice <= 0 {
			continue
		}

		f.record(ticker)
	}
}

// subscribe sends the Upbit ticker subscription frame.
func (f *Feed) subscribe(conn *websocket.Conn) error {
	codes := make([]string, 0, len(f.symbols))
	for _, s := range f.symbols {
		codes = append(codes, "KRW-"+strings.ToUpper(s))
	}

	frame := []any{
		map[string]string{"ticket": uuid.NewString()},
		map[string]any{"type": "ticker", "codes": codes},
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// record converts a ticker frame and stores it under its symbol.
func (f *Feed) record(ticker upbitTicker) {
	symbol := strings.TrimPrefix(ticker.Code, "KRW-")

	price := model.CexPrice{
		Symbol:     symbol,
		PriceKRW:   ticker.TradePrice,
		PriceUSD:   ticker.TradePrice / f.cfg.KRWUSDRate,
		ObservedAt: ticker.Timestamp / 1000,
	}

	f.mu.Lock()
	f.prices[symbol] = price
	f.mu.Unlock()
}
