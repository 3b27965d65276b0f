package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	bybit_connector "github.com/bybit-exchange/bybit.go.api"

	"github.com/sigma-quantiphi/polymarket-pandas/internal/frame"
	"github.com/sigma-quantiphi/polymarket-pandas/logger"
)

const defaultBybitWSURL = "wss://stream.bybit.com/v5/public/linear"

// BybitStream subscribes to the public v5 ticker stream and forwards each
// ticker update as a record batch.
type BybitStream struct {
	url      string
	category string
	symbols  []string
	out      chan<- []frame.Record
	log      *logger.Log

	mu      sync.Mutex
	running bool
	ws      *bybit_connector.WebSocket
	cancel  context.CancelFunc
}

// NewBybitStream creates a ticker stream adapter. Category defaults to
// "linear".
func NewBybitStream(url, category string, symbols []string, out chan<- []frame.Record) *BybitStream {
	if url == "" {
		url = defaultBybitWSURL
	}
	if category == "" {
		category = "linear"
	}
	return &BybitStream{
		url:      url,
		category: category,
		symbols:  symbols,
		out:      out,
		log:      logger.GetLogger(),
	}
}

// Start connects and subscribes to the configured ticker topics.
func (s *BybitStream) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("bybit stream already running")
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	args := make([]string, 0, len(s.symbols))
	for _, sym := range s.symbols {
		args = append(args, fmt.Sprintf("tickers.%s.%s", s.category, strings.ToUpper(sym)))
	}

	ws := bybit_connector.NewBybitPublicWebSocket(s.url, func(message string) error {
		return s.handleMessage(message)
	})
	if ws == nil {
		return fmt.Errorf("failed to create bybit websocket client")
	}
	if ws.Connect() == nil {
		return fmt.Errorf("failed to connect to bybit websocket")
	}
	if _, err := ws.SendSubscription(args); err != nil {
		return fmt.Errorf("failed to subscribe to bybit tickers: %w", err)
	}

	s.mu.Lock()
	s.ws = ws
	s.mu.Unlock()
	go s.monitorContext(ctx)

	s.log.WithComponent("bybit_adapter").WithFields(logger.Fields{
		"symbols":  s.symbols,
		"category": s.category,
	}).Info("bybit ticker stream started")
	return nil
}

// Stop disconnects the websocket.
func (s *BybitStream) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	ws := s.ws
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if ws != nil {
		ws.Disconnect()
	}
	s.log.WithComponent("bybit_adapter").Info("bybit ticker stream stopped")
}

func (s *BybitStream) monitorContext(ctx context.Context) {
	<-ctx.Done()
	s.Stop()
}

type bybitTickerMessage struct {
	Topic string          `json:"topic"`
	Type  string          `json:"type"`
	Ts    int64           `json:"ts"`
	Data  json.RawMessage `json:"data"`
}

func (s *BybitStream) handleMessage(message string) error {
	var msg bybitTickerMessage
	if err := json.Unmarshal([]byte(message), &msg); err != nil {
		s.log.WithComponent("bybit_adapter").WithError(err).Debug("skipping unparseable message")
		return nil
	}
	if !strings.HasPrefix(msg.Topic, "tickers.") || len(msg.Data) == 0 {
		return nil
	}

	records := tickerRecords(msg)
	if len(records) == 0 {
		return nil
	}
	select {
	case s.out <- records:
	default:
		s.log.WithComponent("bybit_adapter").Warn("ticker channel full, dropping batch")
	}
	return nil
}

// tickerRecords decodes the data section, which is an object on snapshots
// and an array on some delta frames, into records stamped with the
// message-level timestamp.
func tickerRecords(msg bybitTickerMessage) []frame.Record {
	var one frame.Record
	if err := json.Unmarshal(msg.Data, &one); err == nil {
		return []frame.Record{stampTicker(one, msg)}
	}
	var many []frame.Record
	if err := json.Unmarshal(msg.Data, &many); err != nil {
		return nil
	}
	out := make([]frame.Record, 0, len(many))
	for _, rec := range many {
		out = append(out, stampTicker(rec, msg))
	}
	return out
}

func stampTicker(rec frame.Record, msg bybitTickerMessage) frame.Record {
	if _, ok := rec["timestamp"]; !ok {
		rec["timestamp"] = msg.Ts
	}
	rec["topic"] = msg.Topic
	return rec
}
