package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	api "github.com/Kucoin/kucoin-universal-sdk/sdk/golang/pkg/api"
	futuresmarket "github.com/Kucoin/kucoin-universal-sdk/sdk/golang/pkg/generate/futures/market"
	sdktype "github.com/Kucoin/kucoin-universal-sdk/sdk/golang/pkg/types"
	"github.com/shopspring/decimal"

	"github.com/sigma-quantiphi/polymarket-pandas/internal/frame"
	"github.com/sigma-quantiphi/polymarket-pandas/internal/order"
	"github.com/sigma-quantiphi/polymarket-pandas/internal/schema"
	"github.com/sigma-quantiphi/polymarket-pandas/internal/symbols"
	"github.com/sigma-quantiphi/polymarket-pandas/logger"
)

// KindPremiumIndex tags premium-index records so they build into typed
// tables like the native entity kinds.
const KindPremiumIndex schema.Kind = "premium_index"

func init() {
	for _, f := range []schema.Field{
		{Name: "symbol", Class: schema.Identifier},
		{Name: "granularity", Class: schema.Numeric},
		{Name: "timePoint", Class: schema.DateTime},
		{Name: "value", Class: schema.Numeric},
	} {
		schema.Register(KindPremiumIndex, f.Name, f.Class)
	}
}

// Kucoin adapts the futures market API of the universal SDK.
type Kucoin struct {
	marketAPI futuresmarket.MarketAPI
	log       *logger.Log
}

// NewKucoin builds an adapter over the public futures endpoints.
func NewKucoin(baseURL string, timeout time.Duration) *Kucoin {
	if baseURL == "" {
		baseURL = "https://api-futures.kucoin.com"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transportOpt := sdktype.NewTransportOptionBuilder().
		SetMaxIdleConns(10).
		SetMaxIdleConnsPerHost(10).
		SetMaxConnsPerHost(10).
		SetIdleConnTimeout(90 * time.Second).
		SetTimeout(timeout).
		Build()

	option := sdktype.NewClientOptionBuilder().
		WithFuturesEndpoint(baseURL).
		WithTransportOption(transportOpt).
		Build()

	client := api.NewClient(option)
	return &Kucoin{
		marketAPI: client.RestService().GetFuturesService().GetMarketAPI(),
		log:       logger.GetLogger(),
	}
}

// Symbol fetches the contract specification as a raw record. The symbol is
// given in canonical form (BTCUSDT) and converted to the contract name.
func (k *Kucoin) Symbol(ctx context.Context, symbol string) (frame.Record, error) {
	contract := symbols.ToKucoinFutures(symbol)
	req := futuresmarket.NewGetSymbolReqBuilder().SetSymbol(contract).Build()
	resp, err := k.marketAPI.GetSymbol(req, ctx)
	if err != nil {
		return nil, fmt.Errorf("kucoin symbol %s: %w", symbol, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("kucoin symbol %s: empty response", symbol)
	}
	return toRecord(resp)
}

// Limits resolves precision and bounds from the contract specification.
func (k *Kucoin) Limits(ctx context.Context, symbol string) (order.MarketLimits, error) {
	record, err := k.Symbol(ctx, symbol)
	if err != nil {
		return order.MarketLimits{}, err
	}
	limits := order.MarketLimits{
		Symbol:     symbol,
		PriceTick:  numericField(record, "tickSize"),
		AmountStep: numericField(record, "lotSize"),
	}
	if max := optionalNumericField(record, "maxPrice"); max != nil {
		limits.Price.Max = max
	}
	if max := optionalNumericField(record, "maxOrderQty"); max != nil {
		limits.Amount.Max = max
	}
	if min := optionalNumericField(record, "lotSize"); min != nil {
		limits.Amount.Min = min
	}
	return limits, nil
}

// PremiumIndex fetches recent premium-index entries as records.
func (k *Kucoin) PremiumIndex(ctx context.Context, symbol string, maxCount int32) ([]frame.Record, error) {
	if maxCount <= 0 {
		maxCount = 1
	}
	req := futuresmarket.NewGetPremiumIndexReqBuilder().
		SetSymbol(symbols.ToKucoinFutures(symbol)).
		SetMaxCount(int64(maxCount)).
		Build()
	resp, err := k.marketAPI.GetPremiumIndex(req, ctx)
	if err != nil {
		return nil, fmt.Errorf("kucoin premium index %s: %w", symbol, err)
	}
	if resp == nil {
		return nil, nil
	}

	records := make([]frame.Record, 0, len(resp.DataList))
	for _, entry := range resp.DataList {
		record, err := toRecord(entry)
		if err != nil {
			k.log.WithComponent("kucoin_adapter").WithError(err).Warn("skipping premium index entry")
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// PremiumIndexTable fetches premium-index entries as a typed table.
func (k *Kucoin) PremiumIndexTable(ctx context.Context, symbol string, maxCount int32, opts ...frame.Option) (*frame.Table, error) {
	records, err := k.PremiumIndex(ctx, symbol, maxCount)
	if err != nil {
		return nil, err
	}
	return frame.Build(KindPremiumIndex, records, opts...), nil
}

// toRecord round-trips an SDK response through JSON so downstream code only
// depends on wire field names, not SDK struct layouts.
func toRecord(v any) (frame.Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	var record frame.Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return record, nil
}

func numericField(record frame.Record, key string) decimal.Decimal {
	if d := optionalNumericField(record, key); d != nil {
		return *d
	}
	return decimal.Zero
}

func optionalNumericField(record frame.Record, key string) *decimal.Decimal {
	switch v := record[key].(type) {
	case float64:
		d := decimal.NewFromFloat(v)
		return &d
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil
		}
		return &d
	default:
		return nil
	}
}
