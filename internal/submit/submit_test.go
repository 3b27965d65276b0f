package submit

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sigma-quantiphi/polymarket-pandas/internal/frame"
	"github.com/sigma-quantiphi/polymarket-pandas/internal/order"
	"github.com/sigma-quantiphi/polymarket-pandas/internal/poly"
)

func dp(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

type fakePrices struct {
	mid   float64
	err   error
	calls int
}

func (f *fakePrices) MidpointPrice(ctx context.Context, tokenID string) (float64, error) {
	f.calls++
	return f.mid, f.err
}

type fakePlacer struct {
	placed []poly.PlacedOrder
	err    error
}

func (f *fakePlacer) PlaceOrder(ctx context.Context, o poly.PlacedOrder) (frame.Record, error) {
	f.placed = append(f.placed, o)
	if f.err != nil {
		return nil, f.err
	}
	return frame.Record{"orderID": "0xabc", "success": true}, nil
}

type fakeLimits struct {
	limits order.MarketLimits
	err    error
}

func (f *fakeLimits) Limits(ctx context.Context, symbol string) (order.MarketLimits, error) {
	return f.limits, f.err
}

func TestSubmitRoundsLimitPriceToTick(t *testing.T) {
	placer := &fakePlacer{}
	s := New(&fakePrices{}, placer, nil, Config{
		PriceTick: decimal.RequireFromString("0.01"),
		Owner:     "0xowner",
	})

	rec, err := s.Submit(context.Background(), Request{
		TokenID: "tok-1",
		Side:    order.SideBuy,
		Type:    order.TypeLimit,
		Price:   dp("0.527"),
		Size:    dp("10"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec["orderID"] != "0xabc" {
		t.Fatalf("expected the placer response, got %v", rec)
	}
	if len(placer.placed) != 1 {
		t.Fatalf("expected one placed order, got %d", len(placer.placed))
	}
	placed := placer.placed[0]
	if placed.Owner != "0xowner" || placed.OrderType != "GTC" {
		t.Fatalf("wrong envelope: %+v", placed)
	}
	if placed.Order["price"] != "0.52" || placed.Order["size"] != "10" || placed.Order["side"] != "BUY" {
		t.Fatalf("wrong wire order: %v", placed.Order)
	}
}

func TestSubmitSizesMarketOrderFromMidpoint(t *testing.T) {
	prices := &fakePrices{mid: 0.5}
	placer := &fakePlacer{}
	s := New(prices, placer, nil, Config{
		PriceTick: decimal.RequireFromString("0.01"),
		MinSize:   decimal.RequireFromString("5"),
	})

	_, err := s.Submit(context.Background(), Request{
		TokenID: "tok-1",
		Side:    order.SideBuy,
		Type:    order.TypeMarket,
		Cost:    dp("100"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prices.calls != 1 {
		t.Fatalf("expected one midpoint lookup, got %d", prices.calls)
	}
	placed := placer.placed[0]
	if placed.OrderType != "FOK" {
		t.Fatalf("market orders must be FOK, got %s", placed.OrderType)
	}
	if placed.Order["size"] != "200" {
		t.Fatalf("expected size 200 from cost 100 at midpoint 0.5, got %v", placed.Order["size"])
	}
}

func TestSubmitRaisePolicyRejectsOutOfRange(t *testing.T) {
	placer := &fakePlacer{}
	s := New(&fakePrices{}, placer, nil, Config{
		PricePolicy: "raise",
		PriceTick:   decimal.RequireFromString("0.01"),
	})

	_, err := s.Submit(context.Background(), Request{
		TokenID: "tok-1",
		Side:    order.SideSell,
		Type:    order.TypeLimit,
		Price:   dp("1.5"),
		Size:    dp("10"),
	})
	if !errors.Is(err, order.ErrPriceOutOfRange) {
		t.Fatalf("expected price out of range, got %v", err)
	}
	if len(placer.placed) != 0 {
		t.Fatalf("rejected orders must never reach the placer")
	}
}

func TestSubmitClipsIntoStaticBounds(t *testing.T) {
	placer := &fakePlacer{}
	s := New(&fakePrices{}, placer, nil, Config{
		PriceTick: decimal.RequireFromString("0.01"),
	})

	_, err := s.Submit(context.Background(), Request{
		TokenID: "tok-1",
		Side:    order.SideBuy,
		Type:    order.TypeLimit,
		Price:   dp("1.5"),
		Size:    dp("10"),
	})
	if err != nil {
		t.Fatalf("clip policy must not reject: %v", err)
	}
	if placer.placed[0].Order["price"] != "0.99" {
		t.Fatalf("expected price clipped to 0.99, got %v", placer.placed[0].Order["price"])
	}
}

func TestSubmitPrefersVenueLimits(t *testing.T) {
	prices := &fakePrices{}
	placer := &fakePlacer{}
	venue := &fakeLimits{limits: order.MarketLimits{
		PriceTick: decimal.RequireFromString("0.1"),
	}}
	s := New(prices, placer, venue, Config{
		PriceTick: decimal.RequireFromString("0.01"),
	})

	_, err := s.Submit(context.Background(), Request{
		TokenID: "BTCUSDT",
		Side:    order.SideBuy,
		Type:    order.TypeLimit,
		Price:   dp("0.55"),
		Size:    dp("10"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if placer.placed[0].Order["price"] != "0.5" {
		t.Fatalf("expected venue tick 0.1 applied, got %v", placer.placed[0].Order["price"])
	}
	if prices.calls != 0 {
		t.Fatalf("limit orders must not look up the midpoint")
	}
}

func TestSubmitLimitsErrorAborts(t *testing.T) {
	placer := &fakePlacer{}
	venue := &fakeLimits{err: errors.New("exchange down")}
	s := New(&fakePrices{}, placer, venue, Config{})

	_, err := s.Submit(context.Background(), Request{
		TokenID: "BTCUSDT",
		Side:    order.SideBuy,
		Type:    order.TypeLimit,
		Price:   dp("0.5"),
		Size:    dp("1"),
	})
	if err == nil || len(placer.placed) != 0 {
		t.Fatalf("limits failure must abort before placing, err=%v placed=%d", err, len(placer.placed))
	}
}
