package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sigma-quantiphi/polymarket-pandas/internal/metrics"
	"github.com/sigma-quantiphi/polymarket-pandas/logger"
)

// Policy selects how a bound violation is handled.
type Policy string

const (
	// Clip silently clamps the offending value into range.
	Clip Policy = "clip"
	// Warn clamps and logs a warning.
	Warn Policy = "warn"
	// Raise rejects the order with a sentinel error.
	Raise Policy = "raise"
)

var (
	ErrPriceOutOfRange  = errors.New("order price out of range")
	ErrAmountOutOfRange = errors.New("order amount out of range")
	ErrCostOutOfRange   = errors.New("order cost out of range")
)

// Range is an optional [Min, Max] bound. A nil Min means zero, a nil Max
// means unbounded.
type Range struct {
	Min *decimal.Decimal
	Max *decimal.Decimal
}

// Clamp applies Min then Max, so contradictory bounds resolve toward Max.
func (r Range) Clamp(v decimal.Decimal) decimal.Decimal {
	if r.Min != nil && v.LessThan(*r.Min) {
		v = *r.Min
	}
	if r.Max != nil && v.GreaterThan(*r.Max) {
		v = *r.Max
	}
	return v
}

// Violates reports whether v falls outside the bound.
func (r Range) Violates(v decimal.Decimal) bool {
	if r.Min != nil && v.LessThan(*r.Min) {
		return true
	}
	if r.Max != nil && v.GreaterThan(*r.Max) {
		return true
	}
	return false
}

// MarketLimits describes the precision and bounds an exchange enforces for a
// symbol. Zero tick/step and nil precision mean the dimension carries no
// rounding rule.
type MarketLimits struct {
	Symbol          string
	PriceTick       decimal.Decimal
	AmountStep      decimal.Decimal
	PricePrecision  *int32
	AmountPrecision *int32
	Price           Range
	Amount          Range
	Cost            Range
	ReferencePrice  decimal.Decimal
}

// Side and Type use the wire spellings of the venue APIs.
const (
	SideBuy    = "buy"
	SideSell   = "sell"
	TypeMarket = "market"
	TypeLimit  = "limit"
)

// Params is one order before submission. Price, Amount and Cost are optional
// because market orders may specify only a cost.
type Params struct {
	Symbol string
	Side   string
	Type   string
	Price  *decimal.Decimal
	Amount *decimal.Decimal
	Cost   *decimal.Decimal
}

// Options selects the violation policy per dimension.
type Options struct {
	PricePolicy  Policy
	AmountPolicy Policy
	CostPolicy   Policy
}

func (o Options) withDefaults() Options {
	if o.PricePolicy == "" {
		o.PricePolicy = Clip
	}
	if o.AmountPolicy == "" {
		o.AmountPolicy = Clip
	}
	if o.CostPolicy == "" {
		o.CostPolicy = Clip
	}
	return o
}

// roundToTick rounds v down to the nearest multiple of tick. Zero or negative
// ticks leave v unchanged.
func roundToTick(v, tick decimal.Decimal) decimal.Decimal {
	if tick.Sign() <= 0 {
		return v
	}
	return v.Div(tick).Floor().Mul(tick)
}

// roundToPrecision truncates v to the given number of decimal digits.
func roundToPrecision(v decimal.Decimal, digits *int32) decimal.Decimal {
	if digits == nil {
		return v
	}
	return v.Truncate(*digits)
}

// Preprocess normalizes one order against the symbol limits: it derives a
// market-order amount from cost and reference price, rounds price and amount
// to the venue precision, and enforces the bounds per the selected policies.
func Preprocess(p Params, limits MarketLimits, opts Options) (Params, error) {
	opts = opts.withDefaults()
	log := logger.GetLogger().WithComponent("order").WithFields(logger.Fields{
		"symbol": p.Symbol,
		"side":   p.Side,
		"type":   p.Type,
	})

	// A market order given only a cost is sized off the reference price.
	// Without one the cost passes through untouched for the venue to size.
	if p.Amount == nil && p.Cost != nil && p.Type == TypeMarket {
		if limits.ReferencePrice.Sign() > 0 {
			amount := p.Cost.Div(limits.ReferencePrice)
			p.Amount = &amount
		}
	}

	if p.Price != nil {
		price := roundToTick(*p.Price, limits.PriceTick)
		price = roundToPrecision(price, limits.PricePrecision)
		price, err := enforce(price, limits.Price, opts.PricePolicy, ErrPriceOutOfRange, log, p.Symbol, "price")
		if err != nil {
			return p, err
		}
		p.Price = &price
	}

	if p.Amount != nil {
		amount := roundToTick(*p.Amount, limits.AmountStep)
		amount = roundToPrecision(amount, limits.AmountPrecision)
		amount, err := enforce(amount, limits.Amount, opts.AmountPolicy, ErrAmountOutOfRange, log, p.Symbol, "amount")
		if err != nil {
			return p, err
		}
		p.Amount = &amount
	}

	cost := p.Cost
	if cost == nil && p.Price != nil && p.Amount != nil {
		c := p.Price.Mul(*p.Amount)
		cost = &c
	}
	if cost != nil && limits.Cost.Violates(*cost) {
		switch opts.CostPolicy {
		case Raise:
			return p, fmt.Errorf("%w: %s for %s", ErrCostOutOfRange, cost.String(), p.Symbol)
		case Warn:
			log.WithFields(logger.Fields{"cost": cost.String()}).Warn("order cost outside limits")
			metrics.EmitClipWarning(context.Background(), p.Symbol, "cost")
		}
		clamped := limits.Cost.Clamp(*cost)
		if p.Cost != nil {
			p.Cost = &clamped
		}
	}

	return p, nil
}

func enforce(v decimal.Decimal, r Range, policy Policy, sentinel error, log *logger.Entry, symbol, dim string) (decimal.Decimal, error) {
	if !r.Violates(v) {
		return v, nil
	}
	switch policy {
	case Raise:
		return v, fmt.Errorf("%w: %s", sentinel, v.String())
	case Warn:
		log.WithFields(logger.Fields{dim: v.String()}).Warn("order " + dim + " outside limits, clamping")
		metrics.EmitClipWarning(context.Background(), symbol, dim)
	}
	return r.Clamp(v), nil
}

// PreprocessBatch applies Preprocess to every order. Under Raise the first
// violation aborts the batch; otherwise violations clamp per order. An empty
// batch returns nil without touching the logger.
func PreprocessBatch(batch []Params, limits MarketLimits, opts Options) ([]Params, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	out := make([]Params, 0, len(batch))
	for i, p := range batch {
		processed, err := Preprocess(p, limits, opts)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", i, err)
		}
		out = append(out, processed)
	}
	return out, nil
}
