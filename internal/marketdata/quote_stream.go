package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Quote is one real-time price update from the quote feed.
type Quote struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
	Timestamp int64   `json:"timestamp"` // Unix ms
}

// StreamConfig configures quote stream behavior.
type StreamConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultStreamConfig returns default quote stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// QuoteStream receives real-time quotes over a WebSocket feed.
type QuoteStream struct {
	endpoint string
	config   StreamConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	// subs maps subscriber ID to its symbol set and channel
	subs   map[uint64]*quoteSub
	subsMu sync.RWMutex
	nextID atomic.Uint64

	// done signals shutdown
	done chan struct{}
	wg   sync.WaitGroup

	// reconnecting indicates reconnection in progress
	reconnecting atomic.Bool
}

type quoteSub struct {
	symbols map[string]struct{}
	ch      chan Quote
}

// NewQuoteStream creates a quote stream and connects to the endpoint.
func NewQuoteStream(ctx context.Context, endpoint string, config *StreamConfig) (*QuoteStream, error) {
	cfg := DefaultStreamConfig()
	if config != nil {
		cfg = *config
	}

	s := &QuoteStream{
		endpoint: endpoint,
		config:   cfg,
		subs:     make(map[uint64]*quoteSub),
		done:     make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	// Start reader goroutine
	s.wg.Add(1)
	go s.readLoop()

	// Start ping goroutine
	s.wg.Add(1)
	go s.pingLoop()

	return s, nil
}

// connect establishes the WebSocket connection.
func (s *QuoteStream) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.conn = conn
	return nil
}

// Subscribe registers for quotes on the given symbols. Quotes for any of
// the symbols are delivered on the returned channel until Close.
func (s *QuoteStream) Subscribe(ctx context.Context, symbols []string) (<-chan Quote, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("stream closed")
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols given")
	}

	symbolSet := make(map[string]struct{}, len(symbols))
	for _, symbol := range symbols {
		symbolSet[symbol] = struct{}{}
	}

	if err := s.writeSubscribe(symbols); err != nil {
		return nil, err
	}

	// Large buffer absorbs bursts; blocking send ensures no quote loss.
	sub := &quoteSub{
		symbols: symbolSet,
		ch:      make(chan Quote, 10000),
	}

	id := s.nextID.Add(1)
	s.subsMu.Lock()
	s.subs[id] = sub
	s.subsMu.Unlock()

	return sub.ch, nil
}

// writeSubscribe sends a subscribe message for the symbols.
func (s *QuoteStream) writeSubscribe(symbols []string) error {
	req := streamRequest{
		Action:  "subscribe",
		Symbols: symbols,
	}

	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return fmt.Errorf("not connected")
	}

	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// Close closes the stream and all subscriber channels.
func (s *QuoteStream) Close() error {
	if s.closed.Swap(true) {
		return nil // Already closed
	}

	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.subsMu.Lock()
	for id, sub := range s.subs {
		close(sub.ch)
		delete(s.subs, id)
	}
	s.subsMu.Unlock()

	s.wg.Wait()
	return nil
}

// readLoop reads messages and dispatches quotes to subscribers.
func (s *QuoteStream) readLoop() {
	defer s.wg.Done()

	reconnectDelay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}

			// Connection error, reconnect with exponential backoff
			if !s.reconnecting.Swap(true) {
				go s.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > s.config.MaxReconnectDelay {
				reconnectDelay = s.config.MaxReconnectDelay
			}

			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = s.config.ReconnectDelay

		s.handleMessage(message)
	}
}

// reconnect attempts to reconnect and resubscribe.
func (s *QuoteStream) reconnect(delay time.Duration) {
	defer s.reconnecting.Store(false)

	if s.closed.Load() {
		return
	}

	select {
	case <-s.done:
		return
	case <-time.After(delay):
	}

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		return
	}

	// Resubscribe to the union of all active symbols
	s.subsMu.RLock()
	seen := make(map[string]struct{})
	var symbols []string
	for _, sub := range s.subs {
		for symbol := range sub.symbols {
			if _, ok := seen[symbol]; ok {
				continue
			}
			seen[symbol] = struct{}{}
			symbols = append(symbols, symbol)
		}
	}
	s.subsMu.RUnlock()

	if len(symbols) > 0 {
		s.writeSubscribe(symbols)
	}
}

// handleMessage parses an incoming message and dispatches quotes.
func (s *QuoteStream) handleMessage(message []byte) {
	var msg streamMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}

	switch msg.Type {
	case "quote":
		s.dispatch(msg.Quote())
	case "error":
		// Log but don't crash, feed keeps running
		fmt.Printf("[quotes] error from feed: %s\n", msg.Message)
	}
}

// dispatch delivers a quote to every subscriber covering its symbol.
func (s *QuoteStream) dispatch(q Quote) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()

	for _, sub := range s.subs {
		if _, ok := sub.symbols[q.Symbol]; !ok {
			continue
		}
		// Block until we can send, never drop quotes
		select {
		case sub.ch <- q:
		case <-s.done:
			return
		}
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (s *QuoteStream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			s.connMu.Unlock()
		}
	}
}

// Quote feed message types

type streamRequest struct {
	Action  string   `json:"action"`
	Symbols []string `json:"symbols"`
}

type streamMessage struct {
	Type      string  `json:"type"`
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
	Timestamp int64   `json:"timestamp"`
	Message   string  `json:"message"`
}

func (m *streamMessage) Quote() Quote {
	return Quote{
		Symbol:    m.Symbol,
		Price:     m.Price,
		Volume:    m.Volume,
		Timestamp: m.Timestamp,
	}
}
