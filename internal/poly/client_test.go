package poly

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/sigma-quantiphi/polymarket-pandas/internal/schema"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(Config{
		GammaURL:          srv.URL,
		DataURL:           srv.URL,
		CLOBURL:           srv.URL,
		RequestsPerSecond: 1000,
		BurstSize:         100,
	})
	return client, srv
}

func TestFetchDropsEmptyParams(t *testing.T) {
	var gotQuery string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `[{"id":"1"}]`)
	}))

	records, err := client.Markets(context.Background(), Query{
		"limit":  500,
		"slug":   []string{"btc-up-or-down-daily"},
		"closed": nil,
		"order":  []string{},
		"tag_id": "",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if gotQuery != "limit=500&slug=btc-up-or-down-daily" {
		t.Fatalf("unexpected query: %s", gotQuery)
	}
}

func TestFetchUnknownKind(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	if _, err := client.Fetch(context.Background(), schema.KindGreek, nil); err == nil {
		t.Fatalf("expected an error for a kind with no endpoint")
	}
}

func TestFetchAllPaginates(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		var page []map[string]any
		for i := 0; i < limit && offset+i < 5; i++ {
			page = append(page, map[string]any{"id": strconv.Itoa(offset + i)})
		}
		json.NewEncoder(w).Encode(page)
	}))

	records, err := client.FetchAll(context.Background(), schema.KindTag, nil, PageOptions{Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected 5 records across pages, got %d", len(records))
	}
	if records[4]["id"] != "4" {
		t.Fatalf("pages out of order: %v", records)
	}
}

func TestFetchAllRespectsMaxPages(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `[{"id":"x"},{"id":"y"}]`)
	}))

	records, err := client.FetchAll(context.Background(), schema.KindTag, nil, PageOptions{Limit: 2, MaxPages: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 pages, server saw %d calls", calls)
	}
	if len(records) != 6 {
		t.Fatalf("expected 6 records, got %d", len(records))
	}
}

func TestOrderBookFetch(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token_id") != "123" {
			t.Errorf("missing token_id, got query %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `{"market":"0xm","asset_id":"123","bids":[{"price":"0.4","size":"10"}],"asks":[]}`)
	}))

	book, err := client.OrderBook(context.Background(), "123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(book.Bids) != 1 || book.Bids[0].Price != "0.4" {
		t.Fatalf("unexpected book: %+v", book)
	}
}

func TestMarketPriceParsesStringPayload(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"price":"0.515"}`)
	}))
	price, err := client.MarketPrice(context.Background(), "123", "BUY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 0.515 {
		t.Fatalf("expected 0.515, got %v", price)
	}
}

func TestRequestErrorStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such market", http.StatusNotFound)
	}))
	if _, err := client.Markets(context.Background(), nil); err == nil {
		t.Fatalf("expected an error for a 404 response")
	}
}

func TestPrivateEndpointSignsRequest(t *testing.T) {
	var got http.Header
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		fmt.Fprint(w, `[]`)
	}))
	client.creds = Credentials{
		Address:       "0xabc",
		APIKey:        "key",
		APISecret:     "secret",
		APIPassphrase: "pass",
	}
	client.now = func() time.Time { return time.UnixMilli(1700000000000) }

	if _, err := client.UserTrades(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Get("POLY_ADDRESS") != "0xabc" || got.Get("POLY_API_KEY") != "key" {
		t.Fatalf("missing auth headers: %v", got)
	}
	if got.Get("POLY_TIMESTAMP") != "1700000000000" {
		t.Fatalf("unexpected timestamp header: %s", got.Get("POLY_TIMESTAMP"))
	}
	if got.Get("POLY_SIGNATURE") == "" {
		t.Fatalf("signature header missing")
	}
}

func TestPrivateEndpointWithoutCredentials(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	if _, err := client.ActiveOrders(context.Background(), nil); err == nil {
		t.Fatalf("expected an error without credentials")
	}
}

func TestPlaceOrdersBatchCap(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	batch := make([]PlacedOrder, 16)
	if _, err := client.PlaceOrders(context.Background(), batch); err == nil {
		t.Fatalf("expected an error for a 16-order batch")
	}
}
