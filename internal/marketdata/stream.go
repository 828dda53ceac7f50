package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// CandleHandler is called for every closed candle received on the stream.
type CandleHandler func(symbol string, candle Candle) error

// ReconnectConfig controls reconnection behavior
type ReconnectConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultReconnectConfig returns default reconnection configuration
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxRetries:        10,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 1.5,
	}
}

// StreamClient subscribes to the exchange kline websocket stream and forwards
// closed candles to registered handlers. Open (still-forming) bars are
// dropped; only final bars enter persistence.
type StreamClient struct {
	baseURL         string
	conn            *websocket.Conn
	mu              sync.RWMutex
	isConnected     bool
	handlers        []CandleHandler
	reconnectConfig ReconnectConfig
	lastMessageTime time.Time
	logger          *logrus.Logger
}

// klineEvent is the exchange kline stream payload.
type klineEvent struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Kline     struct {
		OpenTime int64  `json:"t"`
		Open     string `json:"o"`
		High     string `json:"h"`
		Low      string `json:"l"`
		Close    string `json:"c"`
		Volume   string `json:"v"`
		Final    bool   `json:"x"`
	} `json:"k"`
}

// NewStreamClient creates a stream client for the given websocket base URL.
func NewStreamClient(streamURL string, logger *logrus.Logger) *StreamClient {
	if logger == nil {
		logger = logrus.New()
	}
	return &StreamClient{
		baseURL:         streamURL,
		handlers:        make([]CandleHandler, 0),
		reconnectConfig: DefaultReconnectConfig(),
		logger:          logger,
	}
}

// AddHandler registers a closed-candle handler.
func (s *StreamClient) AddHandler(handler CandleHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// Connect subscribes to kline streams for the given display pairs and starts
// the read loop.
func (s *StreamClient) Connect(ctx context.Context, symbols []string, interval string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isConnected {
		return fmt.Errorf("already connected")
	}

	streams := make([]string, len(symbols))
	for i, symbol := range symbols {
		streams[i] = fmt.Sprintf("%s@kline_%s", strings.ToLower(NormalizeSymbol(symbol)), interval)
	}
	wsURL := fmt.Sprintf("%s/stream?streams=%s", s.baseURL, strings.Join(streams, "/"))

	s.logger.WithField("url", wsURL).Info("Connecting to kline stream")

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to stream: %w", err)
	}

	s.conn = conn
	s.isConnected = true
	s.lastMessageTime = time.Now()

	go s.readMessages()
	return nil
}

// IsConnected returns whether the stream is connected
func (s *StreamClient) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isConnected
}

// LastMessageTime returns the time of the last received message
func (s *StreamClient) LastMessageTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastMessageTime
}

// Close shuts the connection down.
func (s *StreamClient) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isConnected = false
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// readMessages reads stream messages until the connection drops.
func (s *StreamClient) readMessages() {
	defer s.Close()

	for {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := s.conn.ReadJSON(&envelope); err != nil {
			s.logger.WithError(err).Warn("Stream read failed")
			s.mu.Lock()
			s.isConnected = false
			s.mu.Unlock()
			return
		}

		s.mu.Lock()
		s.lastMessageTime = time.Now()
		s.mu.Unlock()

		s.dispatch(envelope.Data)
	}
}

func (s *StreamClient) dispatch(payload []byte) {
	var event klineEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.WithError(err).Debug("Skipping unparseable stream message")
		return
	}
	if event.EventType != "kline" || !event.Kline.Final {
		return
	}

	candle, err := candleFromKlineEvent(event)
	if err != nil {
		s.logger.WithError(err).Warn("Skipping malformed stream candle")
		return
	}

	s.mu.RLock()
	handlers := s.handlers
	s.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(event.Symbol, candle); err != nil {
			s.logger.WithError(err).Warn("Candle handler failed")
		}
	}
}

func candleFromKlineEvent(event klineEvent) (Candle, error) {
	fields := [5]string{event.Kline.Open, event.Kline.High, event.Kline.Low, event.Kline.Close, event.Kline.Volume}
	parsed := [5]decimal.Decimal{}
	for i, raw := range fields {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return Candle{}, fmt.Errorf("%w: %v", ErrMalformedKline, err)
		}
		parsed[i] = value
	}
	return Candle{
		OpenTime: time.UnixMilli(event.Kline.OpenTime).UTC(),
		Open:     parsed[0],
		High:     parsed[1],
		Low:      parsed[2],
		Close:    parsed[3],
		Volume:   parsed[4],
	}, nil
}
