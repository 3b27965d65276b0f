package poly

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sigma-quantiphi/polymarket-pandas/internal/frame"
	"github.com/sigma-quantiphi/polymarket-pandas/internal/schema"
	"github.com/sigma-quantiphi/polymarket-pandas/logger"
)

// DefaultStreamURL is the public CLOB market channel.
const DefaultStreamURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"

// StreamMessage is one normalized websocket event forwarded to the consumer.
type StreamMessage struct {
	EventType string
	Records   []frame.Record
	Received  time.Time
}

// Stream subscribes to the CLOB market channel for a set of asset ids and
// converts book snapshots and price changes into record batches.
type Stream struct {
	url      string
	assetIDs []string
	out      chan<- StreamMessage
	log      *logger.Log

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
	ctx     context.Context
}

// NewStream creates a market stream. Messages are delivered on out; slow
// consumers drop messages rather than stalling the read loop.
func NewStream(url string, assetIDs []string, out chan<- StreamMessage) *Stream {
	if url == "" {
		url = DefaultStreamURL
	}
	return &Stream{
		url:      url,
		assetIDs: assetIDs,
		out:      out,
		log:      logger.GetLogger(),
	}
}

// Start launches the read loop. It reconnects with a fixed backoff until the
// context is cancelled.
func (s *Stream) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("stream already running")
	}
	s.running = true
	s.ctx = ctx
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run()
	return nil
}

// Stop waits for the read loop to exit. Cancel the Start context first.
func (s *Stream) Stop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Stream) run() {
	defer s.wg.Done()
	log := s.log.WithComponent("poly_stream").WithFields(logger.Fields{"assets": len(s.assetIDs)})

	backoff := 2 * time.Second
	for {
		select {
		case <-s.ctx.Done():
			log.Info("stream stopped")
			return
		default:
		}

		if err := s.readLoop(log); err != nil {
			log.WithError(err).Warn("stream connection lost, reconnecting")
		}
		select {
		case <-s.ctx.Done():
			log.Info("stream stopped")
			return
		case <-time.After(backoff):
		}
	}
}

func (s *Stream) readLoop(log *logger.Entry) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(s.ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close()

	sub := map[string]any{"type": "market", "assets_ids": s.assetIDs}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	log.Info("subscribed to market channel")

	// Unblock ReadMessage when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if s.ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		s.handleMessage(payload, log)
	}
}

func (s *Stream) handleMessage(payload []byte, log *logger.Entry) {
	var raw any
	if err := json.Unmarshal(payload, &raw); err != nil {
		log.WithError(err).Warn("invalid stream payload")
		return
	}

	var events []map[string]any
	switch v := raw.(type) {
	case map[string]any:
		events = []map[string]any{v}
	case []any:
		for _, elem := range v {
			if m, ok := elem.(map[string]any); ok {
				events = append(events, m)
			}
		}
	default:
		return
	}

	for _, event := range events {
		eventType, _ := event["event_type"].(string)
		var records []frame.Record
		switch eventType {
		case "book":
			records = bookEventRecords(event)
		case "price_change":
			records = schema.ExpandPath([]map[string]any{event}, "price_changes", "")
		default:
			continue
		}
		if len(records) == 0 {
			continue
		}
		msg := StreamMessage{EventType: eventType, Records: records, Received: time.Now().UTC()}
		select {
		case s.out <- msg:
		default:
			log.WithFields(logger.Fields{"event_type": eventType}).Warn("stream channel full, dropping message")
		}
	}
}

// bookEventRecords unrolls a book event into one record per ladder level,
// carrying the snapshot meta and a side column.
func bookEventRecords(event map[string]any) []frame.Record {
	meta := frame.Record{}
	for _, key := range []string{"market", "asset_id", "hash", "timestamp", "event_type"} {
		if v, ok := event[key]; ok {
			meta[key] = v
		}
	}
	var records []frame.Record
	appendSide := func(key, side string) {
		levels, _ := event[key].([]any)
		for _, elem := range levels {
			level, ok := elem.(map[string]any)
			if !ok {
				continue
			}
			rec := frame.Record{"side": side}
			for k, v := range meta {
				rec[k] = v
			}
			for k, v := range level {
				rec[k] = v
			}
			records = append(records, rec)
		}
	}
	appendSide("bids", "bid")
	appendSide("asks", "ask")
	return records
}
