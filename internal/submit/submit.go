// Package submit prepares and places CLOB orders. It resolves the venue
// limits and a reference price, normalizes the order through the configured
// violation policies, and hands the resulting payload to the order placer.
package submit

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sigma-quantiphi/polymarket-pandas/internal/frame"
	"github.com/sigma-quantiphi/polymarket-pandas/internal/order"
	"github.com/sigma-quantiphi/polymarket-pandas/internal/poly"
	"github.com/sigma-quantiphi/polymarket-pandas/logger"
)

// PriceSource resolves the reference price used to size market orders
// stated as a cost.
type PriceSource interface {
	MidpointPrice(ctx context.Context, tokenID string) (float64, error)
}

// OrderPlacer submits a prepared order payload.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, o poly.PlacedOrder) (frame.Record, error)
}

// LimitsSource resolves venue-reported precision and bounds for a symbol.
// The exchange adapters satisfy it for cross-venue hedging orders.
type LimitsSource interface {
	Limits(ctx context.Context, symbol string) (order.MarketLimits, error)
}

// Config carries the violation policies and the static book bounds applied
// when no LimitsSource is wired.
type Config struct {
	PricePolicy  string
	AmountPolicy string
	CostPolicy   string
	PriceTick    decimal.Decimal
	MinSize      decimal.Decimal
	Owner        string
}

// Request is one order as the caller states it. Price, Size and Cost are
// optional; a market order may carry only a cost.
type Request struct {
	TokenID string
	Side    string
	Type    string
	Price   *decimal.Decimal
	Size    *decimal.Decimal
	Cost    *decimal.Decimal
}

// Submitter normalizes and places orders.
type Submitter struct {
	prices PriceSource
	placer OrderPlacer
	limits LimitsSource
	static order.MarketLimits
	opts   order.Options
	owner  string
	log    *logger.Log
}

// New builds a Submitter. limits may be nil, in which case the static
// bounds derived from cfg apply: prices snap to the book tick and stay
// inside (0, 1), sizes stay at or above the venue minimum.
func New(prices PriceSource, placer OrderPlacer, limits LimitsSource, cfg Config) *Submitter {
	static := order.MarketLimits{PriceTick: cfg.PriceTick}
	if cfg.PriceTick.Sign() > 0 {
		min := cfg.PriceTick
		max := decimal.NewFromInt(1).Sub(cfg.PriceTick)
		static.Price = order.Range{Min: &min, Max: &max}
	}
	if cfg.MinSize.Sign() > 0 {
		min := cfg.MinSize
		static.Amount.Min = &min
	}
	return &Submitter{
		prices: prices,
		placer: placer,
		limits: limits,
		static: static,
		opts: order.Options{
			PricePolicy:  order.Policy(strings.ToLower(cfg.PricePolicy)),
			AmountPolicy: order.Policy(strings.ToLower(cfg.AmountPolicy)),
			CostPolicy:   order.Policy(strings.ToLower(cfg.CostPolicy)),
		},
		owner: cfg.Owner,
		log:   logger.GetLogger(),
	}
}

// Submit normalizes req against the venue limits and places it. A market
// order carrying only a cost is sized off the CLOB midpoint.
func (s *Submitter) Submit(ctx context.Context, req Request) (frame.Record, error) {
	limits := s.static
	if s.limits != nil {
		resolved, err := s.limits.Limits(ctx, req.TokenID)
		if err != nil {
			return nil, fmt.Errorf("resolve limits for %s: %w", req.TokenID, err)
		}
		limits = resolved
	}
	limits.Symbol = req.TokenID

	if req.Size == nil && req.Cost != nil && req.Type == order.TypeMarket {
		mid, err := s.prices.MidpointPrice(ctx, req.TokenID)
		if err != nil {
			return nil, fmt.Errorf("midpoint for %s: %w", req.TokenID, err)
		}
		limits.ReferencePrice = decimal.NewFromFloat(mid)
	}

	processed, err := order.Preprocess(order.Params{
		Symbol: req.TokenID,
		Side:   req.Side,
		Type:   req.Type,
		Price:  req.Price,
		Amount: req.Size,
		Cost:   req.Cost,
	}, limits, s.opts)
	if err != nil {
		return nil, err
	}

	record, err := s.placer.PlaceOrder(ctx, poly.PlacedOrder{
		Owner:     s.owner,
		OrderType: wireOrderType(processed.Type),
		Order:     wireOrder(processed),
	})
	if err != nil {
		return nil, err
	}
	s.log.WithComponent("submit").WithFields(logger.Fields{
		"token": req.TokenID,
		"side":  processed.Side,
		"type":  processed.Type,
	}).Info("order placed")
	return record, nil
}

// wireOrderType maps the order type to the CLOB spelling: market orders
// fill or kill, limit orders rest on the book.
func wireOrderType(typ string) string {
	if typ == order.TypeMarket {
		return "FOK"
	}
	return "GTC"
}

func wireOrder(p order.Params) map[string]any {
	o := map[string]any{
		"tokenID": p.Symbol,
		"side":    strings.ToUpper(p.Side),
	}
	if p.Price != nil {
		o["price"] = p.Price.String()
	}
	if p.Amount != nil {
		o["size"] = p.Amount.String()
	} else if p.Cost != nil {
		o["amount"] = p.Cost.String()
	}
	return o
}
