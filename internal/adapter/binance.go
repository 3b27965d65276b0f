// Package adapter converts payloads from other exchange SDKs into the same
// record and limit shapes the Polymarket client produces, so tables and
// order preprocessing work across venues.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"

	futures "github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	"github.com/sigma-quantiphi/polymarket-pandas/internal/frame"
	"github.com/sigma-quantiphi/polymarket-pandas/internal/order"
	"github.com/sigma-quantiphi/polymarket-pandas/logger"
)

// Binance adapts the public futures REST API.
type Binance struct {
	client *futures.Client
	log    *logger.Log
}

// NewBinance creates an adapter over the public endpoints, no key needed.
func NewBinance() *Binance {
	return &Binance{
		client: futures.NewClient("", ""),
		log:    logger.GetLogger(),
	}
}

// Depth fetches an order book snapshot as a typed table with a side column.
func (b *Binance) Depth(ctx context.Context, symbol string, limit int) (*frame.Table, error) {
	res, err := b.client.NewDepthService().
		Symbol(symbol).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance depth %s: %w", symbol, err)
	}

	book := frame.Book{Market: symbol, Timestamp: res.LastUpdateID}
	for _, bid := range res.Bids {
		book.Bids = append(book.Bids, frame.Level{Price: bid.Price, Size: bid.Quantity})
	}
	for _, ask := range res.Asks {
		book.Asks = append(book.Asks, frame.Level{Price: ask.Price, Size: ask.Quantity})
	}
	return frame.BuildBook(book), nil
}

// exchangeInfoPayload mirrors the exchangeInfo JSON this adapter reads. The
// SDK response is round-tripped through JSON so only wire field names matter.
type exchangeInfoPayload struct {
	Symbols []struct {
		Symbol            string           `json:"symbol"`
		PricePrecision    int32            `json:"pricePrecision"`
		QuantityPrecision int32            `json:"quantityPrecision"`
		Filters           []map[string]any `json:"filters"`
	} `json:"symbols"`
}

// Limits resolves the exchange-reported precision and bounds for a symbol
// from the exchangeInfo filters.
func (b *Binance) Limits(ctx context.Context, symbol string) (order.MarketLimits, error) {
	info, err := b.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return order.MarketLimits{}, fmt.Errorf("binance exchange info: %w", err)
	}

	raw, err := json.Marshal(info)
	if err != nil {
		return order.MarketLimits{}, fmt.Errorf("binance exchange info: %w", err)
	}
	var payload exchangeInfoPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return order.MarketLimits{}, fmt.Errorf("binance exchange info: %w", err)
	}

	for _, sym := range payload.Symbols {
		if sym.Symbol != symbol {
			continue
		}
		limits := order.MarketLimits{
			Symbol:          symbol,
			PricePrecision:  &sym.PricePrecision,
			AmountPrecision: &sym.QuantityPrecision,
		}
		for _, filter := range sym.Filters {
			switch filter["filterType"] {
			case "PRICE_FILTER":
				limits.PriceTick = decimalField(filter, "tickSize")
				limits.Price.Min = optionalDecimalField(filter, "minPrice")
				limits.Price.Max = optionalDecimalField(filter, "maxPrice")
			case "LOT_SIZE":
				limits.AmountStep = decimalField(filter, "stepSize")
				limits.Amount.Min = optionalDecimalField(filter, "minQty")
				limits.Amount.Max = optionalDecimalField(filter, "maxQty")
			case "MIN_NOTIONAL":
				limits.Cost.Min = optionalDecimalField(filter, "notional")
			}
		}
		return limits, nil
	}
	return order.MarketLimits{}, fmt.Errorf("binance exchange info: symbol %s not found", symbol)
}

func decimalField(m map[string]any, key string) decimal.Decimal {
	if d := optionalDecimalField(m, key); d != nil {
		return *d
	}
	return decimal.Zero
}

func optionalDecimalField(m map[string]any, key string) *decimal.Decimal {
	s, ok := m[key].(string)
	if !ok || s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}
