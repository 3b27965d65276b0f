package frame

import (
	"reflect"
	"testing"
	"time"

	"github.com/sigma-quantiphi/polymarket-pandas/internal/schema"
)

func TestBuildEmptyInput(t *testing.T) {
	table := Build(schema.KindMarket, nil)
	if table.Len() != 0 {
		t.Fatalf("expected 0 rows, got %d", table.Len())
	}
	if len(table.Columns) != 0 {
		t.Fatalf("expected no columns, got %v", table.Columns)
	}
}

func TestBuildCoercesRegistryClasses(t *testing.T) {
	records := []Record{
		{
			"id":         12345.0,
			"best_bid":   "0.52",
			"active":     "true",
			"created_at": "2024-03-01T12:00:00Z",
			"volume":     "not-a-number",
		},
	}
	table := Build(schema.KindMarket, records, WithDropNA(false))
	row := table.Rows[0]

	if s, _ := row["id"].String(); s != "12345" {
		t.Fatalf("id should stay an identifier string, got %v", row["id"].Any())
	}
	if f, ok := row["bestBid"].Float(); !ok || f != 0.52 {
		t.Fatalf("bestBid: expected 0.52, got %v", row["bestBid"].Any())
	}
	if b, ok := row["active"].Bool(); !ok || !b {
		t.Fatalf("active: expected true, got %v", row["active"].Any())
	}
	ts, ok := row["createdAt"].Time()
	if !ok {
		t.Fatalf("createdAt: expected a datetime, got %v", row["createdAt"].Any())
	}
	want := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if !ts.Equal(want) {
		t.Fatalf("createdAt: expected %v, got %v", want, ts)
	}
	if !row["volume"].IsMissing() {
		t.Fatalf("unparseable numeric should be missing, got %v", row["volume"].Any())
	}
}

func TestBuildEpochMillisDatetime(t *testing.T) {
	table := Build(schema.KindTrade, []Record{{"timestamp": 1709294400000.0}})
	ts, ok := table.Rows[0]["timestamp"].Time()
	if !ok {
		t.Fatalf("timestamp should coerce to datetime")
	}
	if ts.Year() != 2024 {
		t.Fatalf("expected a 2024 timestamp, got %v", ts)
	}
}

func TestBuildDropsAllMissingColumns(t *testing.T) {
	records := []Record{
		{"id": "a", "volume": "x"},
		{"id": "b", "volume": nil},
	}
	table := Build(schema.KindMarket, records)
	if table.HasColumn("volume") {
		t.Fatalf("all-missing column should be dropped, columns: %v", table.Columns)
	}
	if !table.HasColumn("id") {
		t.Fatalf("id column should survive, columns: %v", table.Columns)
	}

	kept := Build(schema.KindMarket, records, WithDropNA(false))
	if !kept.HasColumn("volume") {
		t.Fatalf("WithDropNA(false) should keep all-missing columns")
	}
}

func TestBuildDropsDeclaredColumns(t *testing.T) {
	table := Build(schema.KindMarket, []Record{{"id": "a", "icon": "http://x/icon.png"}})
	if table.HasColumn("icon") {
		t.Fatalf("icon should never survive, columns: %v", table.Columns)
	}
}

func TestBuildColumnOrder(t *testing.T) {
	records := []Record{{"custom_field": "x", "best_bid": "0.5", "id": "m1"}}
	table := Build(schema.KindMarket, records)

	idx := func(name string) int {
		for i, c := range table.Columns {
			if c == name {
				return i
			}
		}
		t.Fatalf("column %q missing from %v", name, table.Columns)
		return -1
	}
	if idx("id") > idx("bestBid") || idx("bestBid") > idx("customField") {
		t.Fatalf("registry columns should lead pass-through columns, got %v", table.Columns)
	}
}

func TestBuildFlattensNested(t *testing.T) {
	records := []Record{{"id": "o1", "fee": map[string]any{"cost": "0.01"}}}
	table := Build(schema.KindOrder, records)
	if f, ok := table.Rows[0]["feeCost"].Float(); !ok || f != 0.01 {
		t.Fatalf("feeCost: expected 0.01, got %v", table.Rows[0]["feeCost"].Any())
	}
}

func TestRoundTripIdempotent(t *testing.T) {
	records := []Record{
		{"id": "m1", "best_bid": "0.4", "active": true},
		{"id": "m2", "best_ask": 0.7, "active": "false"},
	}
	first := Build(schema.KindMarket, records)
	second := Build(schema.KindMarket, first.ToRecords())

	if !reflect.DeepEqual(first.Columns, second.Columns) {
		t.Fatalf("columns changed on round trip: %v vs %v", first.Columns, second.Columns)
	}
	if !reflect.DeepEqual(first.Rows, second.Rows) {
		t.Fatalf("rows changed on round trip")
	}
}

func TestBuildBookConcatenatesSides(t *testing.T) {
	book := Book{
		Market:    "0xmarket",
		AssetID:   "123",
		Timestamp: "1709294400000",
		TickSize:  "0.01",
		Bids:      []Level{{Price: "0.40", Size: "100"}, {Price: "0.39", Size: "50"}},
		Asks:      []Level{{Price: "0.42", Size: "80"}},
	}
	table := BuildBook(book)
	if table.Len() != 3 {
		t.Fatalf("expected 3 levels, got %d", table.Len())
	}
	sides := table.Column("side")
	if s, _ := sides[0].String(); s != "bid" {
		t.Fatalf("first row should be a bid, got %v", sides[0].Any())
	}
	if s, _ := sides[2].String(); s != "ask" {
		t.Fatalf("last row should be an ask, got %v", sides[2].Any())
	}
	if m, _ := table.Rows[2]["market"].String(); m != "0xmarket" {
		t.Fatalf("meta should repeat on every row, got %v", table.Rows[2]["market"].Any())
	}
}

func TestBuildBookEmptyLadders(t *testing.T) {
	table := BuildBook(Book{Market: "0xmarket"})
	if table.Len() != 0 {
		t.Fatalf("empty ladders should produce an empty table, got %d rows", table.Len())
	}
}

func TestConcatMixedKinds(t *testing.T) {
	a := Build(schema.KindMarket, []Record{{"id": "1"}})
	b := Build(schema.KindTrade, []Record{{"id": "2"}})
	if _, err := Concat(a, b); err == nil {
		t.Fatalf("expected an error concatenating mixed kinds")
	}
}

func TestConcatSkipsEmptyTables(t *testing.T) {
	a := Build(schema.KindMarket, []Record{{"id": "1"}})
	empty := Build(schema.KindMarket, nil)
	out, err := Concat(empty, a, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Len() != 1 {
		t.Fatalf("expected 1 row, got %d", out.Len())
	}
}

func TestAttachTrades(t *testing.T) {
	orders := Build(schema.KindOrder, []Record{
		{"id": "o1", "price": "0.5"},
		{"id": "o2", "price": "0.6"},
	})
	trades := Build(schema.KindTrade, []Record{
		{"order_id": "o1", "size": "10", "price": "0.5"},
	})
	joined := AttachTrades(orders, trades, JoinOptions{})

	if joined.Len() != 2 {
		t.Fatalf("join must keep every order row, got %d", joined.Len())
	}
	if f, ok := joined.Rows[0]["tradeSize"].Float(); !ok || f != 10 {
		t.Fatalf("tradeSize on matched row: expected 10, got %v", joined.Rows[0]["tradeSize"].Any())
	}
	if v, ok := joined.Rows[1]["tradeSize"]; ok && !v.IsMissing() {
		t.Fatalf("unmatched order should carry no trade cells, got %v", v.Any())
	}
}
