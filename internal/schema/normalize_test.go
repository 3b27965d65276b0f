package schema

import (
	"reflect"
	"testing"
)

func TestNormalizeKeyConventionInvariant(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"best_bid", "bestBid"},
		{"best-bid", "bestBid"},
		{"bestBid", "bestBid"},
		{"tick_size", "tickSize"},
		{"min_order_size", "minOrderSize"},
		{"neg_risk", "negRisk"},
		{"price", "price"},
		{"one_day_price_change", "oneDayPriceChange"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeKey(tc.raw); got != tc.want {
			t.Fatalf("NormalizeKey(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestJoinKeys(t *testing.T) {
	if got := JoinKeys("fee", "cost"); got != "feeCost" {
		t.Fatalf("JoinKeys(fee, cost) = %q", got)
	}
	if got := JoinKeys("event", "start_date"); got != "eventStartDate" {
		t.Fatalf("JoinKeys(event, start_date) = %q", got)
	}
	if got := JoinKeys("", "order_id"); got != "orderId" {
		t.Fatalf("JoinKeys with empty parent = %q", got)
	}
}

func TestFlattenNested(t *testing.T) {
	rec := map[string]any{
		"order_id": "abc",
		"fee": map[string]any{
			"cost":     "0.02",
			"currency": "USDC",
		},
	}
	flat := Flatten(rec)
	want := map[string]any{
		"orderId":     "abc",
		"feeCost":     "0.02",
		"feeCurrency": "USDC",
	}
	if !reflect.DeepEqual(flat, want) {
		t.Fatalf("Flatten = %#v, want %#v", flat, want)
	}
}

func TestFlattenDepthBound(t *testing.T) {
	rec := map[string]any{
		"a": map[string]any{
			"b": map[string]any{
				"c": map[string]any{
					"d": map[string]any{"e": 1},
				},
			},
		},
	}
	flat := Flatten(rec)
	// Depth is bounded; the deepest sub-object survives unflattened.
	v, ok := flat["aBCD"]
	if !ok {
		t.Fatalf("expected bounded key aBCD, got %#v", flat)
	}
	if _, ok := v.(map[string]any); !ok {
		t.Fatalf("expected unflattened map at depth bound, got %T", v)
	}
}

func TestFlattenCollisionLastWriteWins(t *testing.T) {
	rec := map[string]any{
		"best_bid": 0.4,
		"bestBid":  0.5,
	}
	flat := Flatten(rec)
	if len(flat) != 1 {
		t.Fatalf("expected a single column after collision, got %#v", flat)
	}
	if _, ok := flat["bestBid"]; !ok {
		t.Fatalf("canonical key missing: %#v", flat)
	}
}

func TestExpandPath(t *testing.T) {
	records := []map[string]any{
		{
			"id":   "s1",
			"slug": "btc-daily",
			"events": []any{
				map[string]any{"id": "e1", "start_date": "2024-01-01T00:00:00Z"},
				map[string]any{"id": "e2"},
			},
		},
		{"id": "s2", "events": []any{}},
	}
	rows := ExpandPath(records, "events", "event")
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["eventId"] != "e1" || rows[0]["eventStartDate"] != "2024-01-01T00:00:00Z" {
		t.Fatalf("unexpected first row: %#v", rows[0])
	}
	if rows[0]["id"] != "s1" || rows[0]["slug"] != "btc-daily" {
		t.Fatalf("meta columns missing: %#v", rows[0])
	}
	if rows[1]["eventId"] != "e2" {
		t.Fatalf("unexpected second row: %#v", rows[1])
	}
}

func TestClassifyRegistry(t *testing.T) {
	cases := []struct {
		kind  Kind
		field string
		want  Class
	}{
		{KindMarket, "bestBid", Numeric},
		{KindMarket, "active", Boolean},
		{KindMarket, "createdAt", DateTime},
		{KindMarket, "slug", Identifier},
		{KindMarket, "icon", Dropped},
		{KindMarket, "somethingNovel", Unknown},
		{KindOrder, "fee", Nested},
		{KindCandle, "close", Numeric},
		{KindFundingRate, "fundingTime", DateTime},
		{KindSeries, "eventVolume", Numeric},
	}
	for _, tc := range cases {
		if got := Classify(tc.kind, tc.field); got != tc.want {
			t.Fatalf("Classify(%s, %s) = %s, want %s", tc.kind, tc.field, got, tc.want)
		}
	}
}

func TestRegisterExtendsRegistry(t *testing.T) {
	if Classify(KindGreek, "vanna") != Unknown {
		t.Fatalf("vanna should start unknown")
	}
	Register(KindGreek, "vanna", Numeric)
	if Classify(KindGreek, "vanna") != Numeric {
		t.Fatalf("vanna should classify numeric after Register")
	}
	found := false
	for _, f := range Fields(KindGreek) {
		if f.Name == "vanna" {
			found = true
		}
	}
	if !found {
		t.Fatalf("vanna missing from ordered fields")
	}
}
