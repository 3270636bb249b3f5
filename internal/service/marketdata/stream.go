package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"EquityPulse/internal/domain/models"
	drepo "EquityPulse/internal/domain/repository"
	"EquityPulse/pkg/logger"
)

// Stream implements a MarketStream backed by the provider's WebSocket
// trade feed.
type Stream struct {
	apiKey         string
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *logger.Logger

	conn      *websocket.Conn
	connected bool
}

// NewStream creates a MarketStream for the configured symbols.
func NewStream(apiKey, websocketURL string, symbols []string, reconnectDelay, pingInterval time.Duration, log *logger.Logger) drepo.MarketStream {
	return &Stream{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
	}
}

// Connect establishes the WebSocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", s.websocketURL, s.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("marketdata connect: %w", err)
	}
	s.conn = conn
	s.connected = true
	s.log.Info("marketdata: stream connected")
	return nil
}

// Subscribe subscribes to configured symbols.
func (s *Stream) Subscribe(ctx context.Context) error {
	if s.conn == nil || !s.connected {
		return fmt.Errorf("marketdata stream not connected")
	}
	for _, sym := range s.symbols {
		msg := map[string]string{"type": "subscribe", "symbol": sym}
		if err := s.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", sym, err)
		}
		s.log.Debug("marketdata: subscribed", logger.String("symbol", sym))
	}
	return nil
}

type streamTick struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"` // ms
}

type streamMessage struct {
	Type string       `json:"type"`
	Data []streamTick `json:"data"`
}

// Read streams Quote events and errors.
func (s *Stream) Read(ctx context.Context) (<-chan *models.Quote, <-chan error) {
	quotes := make(chan *models.Quote, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.conn != nil {
					_ = s.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(quotes)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if s.conn == nil {
					errs <- fmt.Errorf("marketdata conn nil")
					return
				}
				_, b, err := s.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("marketdata read: %w", err)
					return
				}
				var m streamMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-trade frames
					continue
				}
				if m.Type != "trade" {
					continue
				}
				for _, d := range m.Data {
					sec := d.T / 1000
					q := &models.Quote{Symbol: d.S, Timestamp: sec, Price: d.P, Volume: d.V}
					select {
					case quotes <- q:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return quotes, errs
}

// Reconnect closes and reconnects.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	time.Sleep(s.reconnectDelay)
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close closes the WS connection.
func (s *Stream) Close() error {
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool { return s.connected }
