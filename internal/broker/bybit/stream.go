package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quantbridge/mt5-bridge/pkg/types"
)

const (
	mainnetStreamURL = "wss://stream.bybit.com/v5/public/linear"
	testnetStreamURL = "wss://stream-testnet.bybit.com/v5/public/linear"

	streamPingInterval = 20 * time.Second
	reconnectDelay     = 5 * time.Second
)

// KlineHandler receives each confirmed candle pushed by the stream.
type KlineHandler func(symbol, timeframe string, candle types.Candle)

// KlineStream subscribes to Bybit's public kline topics and delivers
// confirmed candles to a handler. It reconnects on read failure until
// its context is cancelled.
type KlineStream struct {
	url     string
	topics  []string
	handler KlineHandler

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
}

// NewKlineStream prepares a stream for the given symbols and timeframe.
// Nothing connects until Start.
func NewKlineStream(testnet bool, symbols []string, timeframe string, handler KlineHandler) (*KlineStream, error) {
	interval, ok := intervalFor[timeframe]
	if !ok {
		return nil, fmt.Errorf("unknown timeframe %q", timeframe)
	}

	url := mainnetStreamURL
	if testnet {
		url = testnetStreamURL
	}

	topics := make([]string, len(symbols))
	for i, symbol := range symbols {
		topics[i] = fmt.Sprintf("kline.%s.%s", interval, symbol)
	}

	return &KlineStream{
		url:     url,
		topics:  topics,
		handler: handler,
	}, nil
}

// Start connects and begins delivering candles. It returns after the
// first successful connection; reading and reconnecting continue in the
// background until Stop or context cancellation.
func (s *KlineStream) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	if err := s.connect(ctx); err != nil {
		cancel()
		return err
	}

	go s.readLoop(ctx)
	go s.pingLoop(ctx)
	return nil
}

// Stop cancels the stream and closes the connection.
func (s *KlineStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

func (s *KlineStream) connect(ctx context.Context) error {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to stream: %w", err)
	}

	subscribe := map[string]interface{}{
		"op":   "subscribe",
		"args": s.topics,
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		conn.Close()
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	log.Printf("📡 kline stream connected, topics: %v", s.topics)
	return nil
}

func (s *KlineStream) readLoop(ctx context.Context) {
	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("⚠️ stream read failed, reconnecting: %v", err)
			s.reconnect(ctx)
			continue
		}
		s.dispatch(message)
	}
}

func (s *KlineStream) reconnect(ctx context.Context) {
	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
		if err := s.connect(ctx); err != nil {
			log.Printf("⚠️ stream reconnect failed: %v", err)
			continue
		}
		return
	}
}

func (s *KlineStream) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			conn := s.conn
			s.mu.Unlock()
			if conn == nil {
				continue
			}
			if err := conn.WriteJSON(map[string]string{"op": "ping"}); err != nil {
				log.Printf("⚠️ stream ping failed: %v", err)
			}
		}
	}
}

type klineMessage struct {
	Topic string `json:"topic"`
	Data  []struct {
		Start    int64  `json:"start"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
		Volume   string `json:"volume"`
		Interval string `json:"interval"`
		Confirm  bool   `json:"confirm"`
	} `json:"data"`
}

// dispatch parses a stream message and hands confirmed candles to the
// handler. Unconfirmed (still forming) bars are dropped.
func (s *KlineStream) dispatch(message []byte) {
	var msg klineMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}
	if len(msg.Data) == 0 {
		return
	}

	// Topic format: kline.<interval>.<symbol>
	parts := strings.Split(msg.Topic, ".")
	if len(parts) != 3 {
		return
	}
	symbol := parts[2]

	for _, k := range msg.Data {
		if !k.Confirm {
			continue
		}
		timeframe := timeframeForInterval(k.Interval)
		s.handler(symbol, timeframe, types.Candle{
			Time:   k.Start / 1000,
			Open:   parseFloat64(k.Open),
			High:   parseFloat64(k.High),
			Low:    parseFloat64(k.Low),
			Close:  parseFloat64(k.Close),
			Volume: int64(parseFloat64(k.Volume)),
		})
	}
}

func timeframeForInterval(interval string) string {
	for timeframe, iv := range intervalFor {
		if iv == interval {
			return timeframe
		}
	}
	return interval
}
