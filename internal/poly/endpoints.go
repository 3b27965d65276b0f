package poly

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sigma-quantiphi/polymarket-pandas/internal/frame"
	"github.com/sigma-quantiphi/polymarket-pandas/internal/schema"
)

// endpoint describes where one entity kind is fetched from. defaultLimit of
// zero marks endpoints that do not page.
type endpoint struct {
	host         apiHost
	path         string
	defaultLimit int
}

// endpoints is the entity-kind catalog. Listing endpoints page with
// limit/offset; adding a kind here is the only change a new entity needs.
var endpoints = map[schema.Kind]endpoint{
	schema.KindMarket:       {gammaAPI, "markets", 500},
	schema.KindEvent:        {gammaAPI, "events", 500},
	schema.KindTag:          {gammaAPI, "tags", 300},
	schema.KindSeries:       {gammaAPI, "series", 500},
	schema.KindTrade:        {dataAPI, "trades", 100},
	schema.KindPosition:     {dataAPI, "positions", 100},
	schema.KindPriceHistory: {clobAPI, "prices-history", 0},
}

// Fetch pulls one page of records for an entity kind through the catalog.
func (c *Client) Fetch(ctx context.Context, kind schema.Kind, q Query) ([]frame.Record, error) {
	ep, ok := endpoints[kind]
	if !ok {
		return nil, fmt.Errorf("no endpoint for entity kind %q", kind)
	}
	return c.getRecords(ctx, ep.host, ep.path, q)
}

// FetchTable fetches one page and builds its typed table.
func (c *Client) FetchTable(ctx context.Context, kind schema.Kind, q Query, opts ...frame.Option) (*frame.Table, error) {
	records, err := c.Fetch(ctx, kind, q)
	if err != nil {
		return nil, err
	}
	return frame.Build(kind, records, opts...), nil
}

// Markets lists Gamma markets.
func (c *Client) Markets(ctx context.Context, q Query) ([]frame.Record, error) {
	return c.Fetch(ctx, schema.KindMarket, q)
}

// Events lists Gamma events.
func (c *Client) Events(ctx context.Context, q Query) ([]frame.Record, error) {
	return c.Fetch(ctx, schema.KindEvent, q)
}

// Tags lists Gamma tags.
func (c *Client) Tags(ctx context.Context, q Query) ([]frame.Record, error) {
	return c.Fetch(ctx, schema.KindTag, q)
}

// Series lists Gamma series. With expandEvents each series row expands into
// one row per embedded event, event fields under an "event" prefix and the
// series fields repeated.
func (c *Client) Series(ctx context.Context, q Query, expandEvents bool) ([]frame.Record, error) {
	records, err := c.Fetch(ctx, schema.KindSeries, q)
	if err != nil {
		return nil, err
	}
	if expandEvents {
		records = schema.ExpandPath(records, "events", "event")
	}
	return records, nil
}

// Trades lists Data-API trades.
func (c *Client) Trades(ctx context.Context, q Query) ([]frame.Record, error) {
	return c.Fetch(ctx, schema.KindTrade, q)
}

// Positions lists Data-API positions for a user.
func (c *Client) Positions(ctx context.Context, user string, q Query) ([]frame.Record, error) {
	q = q.clone()
	q["user"] = user
	return c.Fetch(ctx, schema.KindPosition, q)
}

// PriceHistory fetches the CLOB candle history for a token.
func (c *Client) PriceHistory(ctx context.Context, market string, q Query) ([]frame.Record, error) {
	q = q.clone()
	q["market"] = market
	var wrapper struct {
		History []frame.Record `json:"history"`
	}
	ep := endpoints[schema.KindPriceHistory]
	if err := c.request(ctx, ep.host, http.MethodGet, ep.path, q, nil, false, &wrapper); err != nil {
		return nil, err
	}
	return wrapper.History, nil
}

// TokenSide addresses one ladder of one token for batch CLOB lookups.
type TokenSide struct {
	TokenID string `json:"token_id"`
	Side    string `json:"side,omitempty"`
}

// OrderBook fetches one CLOB book snapshot.
func (c *Client) OrderBook(ctx context.Context, tokenID string) (frame.Book, error) {
	var book frame.Book
	err := c.request(ctx, clobAPI, http.MethodGet, "book", Query{"token_id": tokenID}, nil, false, &book)
	return book, err
}

// OrderBooks fetches book snapshots for several tokens in one call.
func (c *Client) OrderBooks(ctx context.Context, tokens []TokenSide) ([]frame.Book, error) {
	var books []frame.Book
	err := c.request(ctx, clobAPI, http.MethodPost, "books", nil, tokens, false, &books)
	return books, err
}

// MarketPrice returns the best price for a token side.
func (c *Client) MarketPrice(ctx context.Context, tokenID, side string) (float64, error) {
	record, err := c.getRecord(ctx, clobAPI, "price", Query{"token_id": tokenID, "side": side})
	if err != nil {
		return 0, err
	}
	return floatField(record, "price")
}

// MidpointPrice returns the midpoint between best bid and ask.
func (c *Client) MidpointPrice(ctx context.Context, tokenID string) (float64, error) {
	record, err := c.getRecord(ctx, clobAPI, "midpoint", Query{"token_id": tokenID})
	if err != nil {
		return 0, err
	}
	return floatField(record, "mid")
}

// Spreads returns bid-ask spreads per token id.
func (c *Client) Spreads(ctx context.Context, tokens []TokenSide) (map[string]float64, error) {
	var raw map[string]string
	if err := c.request(ctx, clobAPI, http.MethodPost, "spreads", nil, tokens, false, &raw); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(raw))
	for token, spread := range raw {
		f, err := strconv.ParseFloat(spread, 64)
		if err != nil {
			return nil, fmt.Errorf("parse spread for %s: %w", token, err)
		}
		out[token] = f
	}
	return out, nil
}

// MarketPrices posts a token/side batch and unrolls the nested response into
// one record per token and side.
func (c *Client) MarketPrices(ctx context.Context, tokens []TokenSide) ([]frame.Record, error) {
	var raw map[string]map[string]string
	if err := c.request(ctx, clobAPI, http.MethodPost, "prices", nil, tokens, false, &raw); err != nil {
		return nil, err
	}
	var records []frame.Record
	for tokenID, sides := range raw {
		for side, price := range sides {
			records = append(records, frame.Record{
				"token_id": tokenID,
				"side":     side,
				"price":    price,
			})
		}
	}
	return records, nil
}

// UserTrades lists the authenticated user's CLOB trades.
func (c *Client) UserTrades(ctx context.Context, q Query) ([]frame.Record, error) {
	var records []frame.Record
	if err := c.request(ctx, clobAPI, http.MethodGet, "data/trades", q, nil, true, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ActiveOrders lists the authenticated user's open CLOB orders.
func (c *Client) ActiveOrders(ctx context.Context, q Query) ([]frame.Record, error) {
	var records []frame.Record
	if err := c.request(ctx, clobAPI, http.MethodGet, "data/orders", q, nil, true, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// PlacedOrder is the signed payload a CLOB order submission carries.
type PlacedOrder struct {
	Order     map[string]any `json:"order"`
	Owner     string         `json:"owner"`
	OrderType string         `json:"orderType"`
}

// PlaceOrder submits one signed order.
func (c *Client) PlaceOrder(ctx context.Context, order PlacedOrder) (frame.Record, error) {
	var record frame.Record
	if err := c.request(ctx, clobAPI, http.MethodPost, "order", nil, order, true, &record); err != nil {
		return nil, err
	}
	return record, nil
}

// PlaceOrders submits a batch of signed orders, at most 15 per call.
func (c *Client) PlaceOrders(ctx context.Context, orders []PlacedOrder) ([]frame.Record, error) {
	if len(orders) > 15 {
		return nil, fmt.Errorf("order batch too large: %d > 15", len(orders))
	}
	var records []frame.Record
	if err := c.request(ctx, clobAPI, http.MethodPost, "orders", nil, orders, true, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// CancelOrder cancels one order by id.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (frame.Record, error) {
	var record frame.Record
	body := map[string]string{"orderID": orderID}
	if err := c.request(ctx, clobAPI, http.MethodDelete, "order", nil, body, true, &record); err != nil {
		return nil, err
	}
	return record, nil
}

// CancelOrders cancels several orders by id.
func (c *Client) CancelOrders(ctx context.Context, orderIDs []string) (frame.Record, error) {
	var record frame.Record
	if err := c.request(ctx, clobAPI, http.MethodDelete, "orders", nil, orderIDs, true, &record); err != nil {
		return nil, err
	}
	return record, nil
}

// CancelAllOrders cancels every open order of the authenticated user.
func (c *Client) CancelAllOrders(ctx context.Context) (frame.Record, error) {
	var record frame.Record
	if err := c.request(ctx, clobAPI, http.MethodDelete, "cancel-all", nil, nil, true, &record); err != nil {
		return nil, err
	}
	return record, nil
}

// TagByID fetches one tag.
func (c *Client) TagByID(ctx context.Context, id int, q Query) (frame.Record, error) {
	return c.getRecord(ctx, gammaAPI, "tags/"+strconv.Itoa(id), q)
}

// TagBySlug fetches one tag by slug.
func (c *Client) TagBySlug(ctx context.Context, slug string, q Query) (frame.Record, error) {
	return c.getRecord(ctx, gammaAPI, "tags/slug/"+url.PathEscape(slug), q)
}

// EventByID fetches one event.
func (c *Client) EventByID(ctx context.Context, id int, q Query) (frame.Record, error) {
	return c.getRecord(ctx, gammaAPI, "events/"+strconv.Itoa(id), q)
}

// EventBySlug fetches one event by slug.
func (c *Client) EventBySlug(ctx context.Context, slug string, q Query) (frame.Record, error) {
	return c.getRecord(ctx, gammaAPI, "events/slug/"+url.PathEscape(slug), q)
}

func floatField(record map[string]any, field string) (float64, error) {
	raw, ok := record[field]
	if !ok {
		return 0, fmt.Errorf("response missing %q field", field)
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("parse %q field: %w", field, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unexpected %q field type %T", field, raw)
	}
}
