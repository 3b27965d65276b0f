package poly

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestStreamDeliversBookAndPriceChange(t *testing.T) {
	book := `{"event_type":"book","market":"0xm","asset_id":"123","timestamp":"1700000000000",` +
		`"bids":[{"price":"0.40","size":"100"}],"asks":[{"price":"0.42","size":"80"}]}`
	priceChange := `{"event_type":"price_change","market":"0xm","timestamp":"1700000000001",` +
		`"price_changes":[{"asset_id":"123","price":"0.41","size":"5","side":"BUY"}]}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		// The first client frame must be the market subscription.
		var sub map[string]any
		if err := conn.ReadJSON(&sub); err != nil {
			t.Errorf("read subscription: %v", err)
			return
		}
		if sub["type"] != "market" {
			t.Errorf("unexpected subscription: %v", sub)
		}

		conn.WriteMessage(websocket.TextMessage, []byte(book))
		conn.WriteMessage(websocket.TextMessage, []byte(priceChange))
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	out := make(chan StreamMessage, 8)
	stream := NewStream(wsURL, []string{"123"}, out)

	ctx, cancel := context.WithCancel(context.Background())
	if err := stream.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() {
		cancel()
		stream.Stop()
	}()

	expect := func(eventType string) StreamMessage {
		select {
		case msg := <-out:
			if msg.EventType != eventType {
				t.Fatalf("expected %s, got %s", eventType, msg.EventType)
			}
			return msg
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %s", eventType)
			return StreamMessage{}
		}
	}

	bookMsg := expect("book")
	if len(bookMsg.Records) != 2 {
		t.Fatalf("expected 2 ladder levels, got %d", len(bookMsg.Records))
	}
	if bookMsg.Records[0]["side"] != "bid" || bookMsg.Records[1]["side"] != "ask" {
		t.Fatalf("sides wrong: %v", bookMsg.Records)
	}
	if bookMsg.Records[0]["market"] != "0xm" {
		t.Fatalf("meta missing from ladder rows: %v", bookMsg.Records[0])
	}

	pcMsg := expect("price_change")
	if len(pcMsg.Records) != 1 {
		t.Fatalf("expected 1 price change, got %d", len(pcMsg.Records))
	}
	if pcMsg.Records[0]["assetId"] != "123" {
		t.Fatalf("price change keys not normalized: %v", pcMsg.Records[0])
	}
}

func TestStreamDoubleStart(t *testing.T) {
	out := make(chan StreamMessage)
	stream := NewStream("ws://127.0.0.1:1", nil, out)
	ctx, cancel := context.WithCancel(context.Background())
	if err := stream.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := stream.Start(ctx); err == nil {
		t.Fatalf("second start must fail")
	}
	cancel()
	stream.Stop()
}
