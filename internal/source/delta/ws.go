package delta

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/logger"
	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/model"
	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/ringbuf"
)

const (
	wsURL             = "wss://socket.india.delta.exchange"
	wsReconnectDelay  = 3 * time.Second
	wsMaxReconnect    = 60 * time.Second
	wsReadDeadline    = 90 * time.Second
	wsPingInterval    = 30 * time.Second
	defaultWindowSize = 200
)

// WSSource maintains a rolling window of closed candles fed by the Delta
// websocket candlestick channel. Fetch serves snapshots from memory, so the
// runner never blocks on the network once the window is primed.
type WSSource struct {
	symbol     string
	resolution string
	log        *slog.Logger

	mu     sync.RWMutex
	window *ringbuf.Window
	primed bool

	dialer *websocket.Dialer
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWSSource builds a websocket candle source. Call Start to begin
// streaming; Fetch returns an error until the window is primed by a REST
// backfill or enough streamed candles.
func NewWSSource(symbol, resolution string, log *slog.Logger) (*WSSource, error) {
	if _, ok := resolutionSeconds[resolution]; !ok {
		return nil, fmt.Errorf("delta: unsupported resolution %q", resolution)
	}
	return &WSSource{
		symbol:     symbol,
		resolution: resolution,
		window:     ringbuf.New(defaultWindowSize),
		log:        log.With("source", "delta-ws").With(logger.Target(symbol, resolution)...),
		dialer:     websocket.DefaultDialer,
	}, nil
}

func (s *WSSource) Name() string { return "delta-ws" }

// Prime seeds the rolling window, typically from a REST backfill, so the
// engine has history before the stream delivers its first close.
func (s *WSSource) Prime(bars []model.Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range bars {
		s.window.Append(b)
	}
	s.primed = s.window.Len() > 0
}

// Start launches the stream loop. It reconnects with backoff until ctx is
// cancelled.
func (s *WSSource) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx)
}

// Stop tears down the stream and waits for the loop to exit.
func (s *WSSource) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

// Fetch returns the most recent closed bars from the rolling window.
func (s *WSSource) Fetch(_ context.Context, count int) ([]model.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.primed {
		return nil, fmt.Errorf("delta: %s/%s stream not primed", s.symbol, s.resolution)
	}
	bars := s.window.Snapshot()
	if len(bars) > count {
		bars = bars[len(bars)-count:]
	}
	return bars, nil
}

func (s *WSSource) run(ctx context.Context) {
	defer close(s.done)
	delay := wsReconnectDelay
	for {
		if err := s.streamOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("stream disconnected", "error", err, "retry_in", delay)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if delay *= 2; delay > wsMaxReconnect {
			delay = wsMaxReconnect
		}
	}
}

type wsCandle struct {
	Type            string  `json:"type"`
	Symbol          string  `json:"symbol"`
	CandleStartTime int64   `json:"candle_start_time"` // microseconds
	Open            float64 `json:"open"`
	High            float64 `json:"high"`
	Low             float64 `json:"low"`
	Close           float64 `json:"close"`
	Volume          float64 `json:"volume"`
}

func (s *WSSource) streamOnce(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	channel := "candlestick_" + s.resolution
	sub := map[string]any{
		"type": "subscribe",
		"payload": map[string]any{
			"channels": []map[string]any{
				{"name": channel, "symbols": []string{s.symbol}},
			},
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	s.log.Info("stream connected", "channel", channel)

	// Close the connection when ctx is cancelled to unblock ReadMessage.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	go s.pingLoop(ctx, conn, stop)

	conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	})

	secs := resolutionSeconds[s.resolution]
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(wsReadDeadline))

		var c wsCandle
		if err := json.Unmarshal(raw, &c); err != nil || c.Type != channel {
			continue
		}
		start := c.CandleStartTime / 1_000_000
		bar := model.Bar{
			Time: start, Open: c.Open, High: c.High, Low: c.Low, Close: c.Close, Volume: c.Volume,
		}
		// The channel re-sends the forming candle on every trade; a bar is
		// closed once its period has fully elapsed. At the exact boundary it
		// still counts as forming, same as the REST adapters.
		if time.Now().Unix() > start+secs {
			s.append(bar)
		}
	}
}

func (s *WSSource) pingLoop(ctx context.Context, conn *websocket.Conn, stop <-chan struct{}) {
	t := time.NewTicker(wsPingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-t.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

func (s *WSSource) append(bar model.Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.window.Append(bar) {
		s.primed = true
	}
}
