package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crossvenue/arbscan/internal/domain"
)

// StreamConfig configures a websocket book-ticker connector.
type StreamConfig struct {
	Name    string
	WsURL   string
	Symbols []string
	// MaxAge is how long a streamed quote stays servable. FetchTicker
	// returns domain.ErrStaleFeed once the last update is older.
	MaxAge time.Duration
	Logger *slog.Logger
}

// Stream maintains a websocket subscription to an exchange's book-ticker
// channel and serves the latest quote from memory. Run must be started before
// FetchTicker returns anything useful; until the first update every fetch
// fails with domain.ErrStaleFeed.
type Stream struct {
	name    string
	wsURL   string
	maxAge  time.Duration
	logger  *slog.Logger
	symbols []string
	// exchange symbol ("BTCUSDT") back to canonical ("BTC/USDT")
	canonical map[string]string

	mu   sync.RWMutex
	last map[string]domain.Quote
}

// NewStream builds the connector. The wire format follows the Binance
// bookTicker channel; other exchanges with compatible payloads work unchanged.
func NewStream(cfg StreamConfig) (*Stream, error) {
	if cfg.WsURL == "" {
		return nil, fmt.Errorf("venue: %s: websocket url required", cfg.Name)
	}
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("venue: %s: at least one symbol required", cfg.Name)
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Stream{
		name:      cfg.Name,
		wsURL:     cfg.WsURL,
		maxAge:    cfg.MaxAge,
		logger:    cfg.Logger.With(slog.String("component", "venue_stream"), slog.String("venue", cfg.Name)),
		symbols:   append([]string(nil), cfg.Symbols...),
		canonical: make(map[string]string, len(cfg.Symbols)),
		last:      make(map[string]domain.Quote, len(cfg.Symbols)),
	}
	for _, sym := range cfg.Symbols {
		s.canonical[strings.ToUpper(strings.ReplaceAll(sym, "/", ""))] = sym
	}
	return s, nil
}

func (s *Stream) Name() string { return s.name }
func (s *Stream) Kind() Kind   { return KindCEXStream }

// FetchTicker serves the most recent streamed quote for the symbol.
func (s *Stream) FetchTicker(ctx context.Context, symbol string) (domain.Quote, error) {
	s.mu.RLock()
	q, ok := s.last[symbol]
	s.mu.RUnlock()
	if !ok {
		return domain.Quote{}, fmt.Errorf("venue: %s: %s: %w", s.name, symbol, domain.ErrStaleFeed)
	}
	if age := time.Since(q.ObservedAt); age > s.maxAge {
		return domain.Quote{}, fmt.Errorf("venue: %s: %s: last update %s ago: %w",
			s.name, symbol, age.Round(time.Millisecond), domain.ErrStaleFeed)
	}
	return q, nil
}

func (s *Stream) FetchTransferFees(ctx context.Context, asset string) (domain.FeeFragment, error) {
	return domain.FeeFragment{}, domain.ErrUnsupported
}

// Run connects, subscribes, and consumes book-ticker updates until the
// context ends. Connection failures are retried with a capped backoff.
func (s *Stream) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if err := s.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("stream disconnected, reconnecting",
				slog.String("error", err.Error()),
				slog.Duration("backoff", backoff))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

type bookTickerMsg struct {
	Symbol string `json:"s"`
	Bid    string `json:"b"`
	BidQty string `json:"B"`
	Ask    string `json:"a"`
	AskQty string `json:"A"`
}

func (s *Stream) consume(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("venue: %s: dial: %w", s.name, err)
	}
	defer conn.Close()

	params := make([]string, 0, len(s.symbols))
	for _, sym := range s.symbols {
		params = append(params, strings.ToLower(strings.ReplaceAll(sym, "/", ""))+"@bookTicker")
	}
	sub := map[string]any{"method": "SUBSCRIBE", "params": params, "id": 1}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("venue: %s: subscribe: %w", s.name, err)
	}
	s.logger.Info("stream connected", slog.Int("subscriptions", len(params)))

	// Unblock ReadMessage when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("venue: %s: read: %w", s.name, err)
		}
		var msg bookTickerMsg
		if err := json.Unmarshal(payload, &msg); err != nil || msg.Symbol == "" {
			continue // subscription ack or unknown frame
		}
		canonical, ok := s.canonical[strings.ToUpper(msg.Symbol)]
		if !ok {
			continue
		}
		q := domain.Quote{
			VenueID:    s.name,
			Symbol:     canonical,
			Bid:        parsePrice(msg.Bid),
			Ask:        parsePrice(msg.Ask),
			Volume:     parsePrice(msg.BidQty) + parsePrice(msg.AskQty),
			ObservedAt: time.Now().UTC(),
		}
		if !q.Valid() {
			continue
		}
		s.mu.Lock()
		s.last[canonical] = q
		s.mu.Unlock()
	}
}

var _ Connector = (*Stream)(nil)
