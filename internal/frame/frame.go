package frame

import (
	"fmt"
	"sort"

	"github.com/sigma-quantiphi/polymarket-pandas/internal/schema"
	"github.com/sigma-quantiphi/polymarket-pandas/logger"
)

// Record is one raw API object after JSON decoding.
type Record = map[string]any

// Table is a column-ordered collection of typed rows built from raw records.
// Columns appear in registry order first, then in first-seen order for
// pass-through fields the registry does not know about.
type Table struct {
	Kind    schema.Kind
	Columns []string
	Rows    []map[string]Value
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Column reports the typed cells of one column, Missing for rows that never
// carried the field.
func (t *Table) Column(name string) []Value {
	out := make([]Value, len(t.Rows))
	for i, row := range t.Rows {
		if v, ok := row[name]; ok {
			out[i] = v
		} else {
			out[i] = Missing()
		}
	}
	return out
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// ToRecords converts the table back into plain records, omitting missing
// cells. Building a table from its own records yields the same table.
func (t *Table) ToRecords() []Record {
	out := make([]Record, len(t.Rows))
	for i, row := range t.Rows {
		rec := make(Record, len(row))
		for _, col := range t.Columns {
			v, ok := row[col]
			if !ok || v.IsMissing() {
				continue
			}
			rec[col] = v.Any()
		}
		out[i] = rec
	}
	return out
}

type buildOptions struct {
	dropNA bool
}

// Option adjusts table construction.
type Option func(*buildOptions)

// WithDropNA controls whether columns whose every cell is missing are removed
// from the result. Enabled by default.
func WithDropNA(drop bool) Option {
	return func(o *buildOptions) { o.dropNA = drop }
}

// Build normalizes raw records into a typed table for the given entity kind.
// Keys are canonicalized, nested objects flattened, and cells coerced per the
// column registry. Coercion failures become Missing rather than errors.
func Build(kind schema.Kind, records []Record, opts ...Option) *Table {
	options := buildOptions{dropNA: true}
	for _, opt := range opts {
		opt(&options)
	}

	t := &Table{Kind: kind}
	if len(records) == 0 {
		return t
	}

	seen := make(map[string]bool)
	rows := make([]map[string]Value, 0, len(records))
	var passthrough []string

	for _, rec := range records {
		flat := schema.Flatten(rec)
		row := make(map[string]Value, len(flat))
		for key, raw := range flat {
			class := schema.Classify(kind, key)
			if class == schema.Dropped {
				continue
			}
			row[key] = coerce(class, raw)
			if !seen[key] {
				seen[key] = true
				if class == schema.Unknown {
					passthrough = append(passthrough, key)
				}
			}
		}
		rows = append(rows, row)
	}
	t.Rows = rows

	// Registry columns lead in registry order; unknown fields follow in the
	// order they first appeared.
	ordered := make(map[string]bool)
	for _, f := range schema.Fields(kind) {
		if f.Class == schema.Dropped || !seen[f.Name] || ordered[f.Name] {
			continue
		}
		ordered[f.Name] = true
		t.Columns = append(t.Columns, f.Name)
	}
	// Decoded JSON objects are maps, so insertion order is gone by the time
	// records reach the builder. Sort pass-through columns for stable output.
	sort.Strings(passthrough)
	for _, key := range passthrough {
		if ordered[key] {
			continue
		}
		ordered[key] = true
		t.Columns = append(t.Columns, key)
	}

	if options.dropNA {
		t.dropAllMissing()
	}
	return t
}

func coerce(class schema.Class, raw any) Value {
	switch class {
	case schema.Numeric:
		return coerceNumeric(raw)
	case schema.Boolean:
		return coerceBool(raw)
	case schema.DateTime:
		return coerceTime(raw)
	case schema.Identifier:
		return coerceIdentifier(raw)
	default:
		return coercePassthrough(raw)
	}
}

func (t *Table) dropAllMissing() {
	kept := t.Columns[:0]
	for _, col := range t.Columns {
		allMissing := true
		for _, row := range t.Rows {
			if v, ok := row[col]; ok && !v.IsMissing() {
				allMissing = false
				break
			}
		}
		if allMissing {
			for _, row := range t.Rows {
				delete(row, col)
			}
			continue
		}
		kept = append(kept, col)
	}
	t.Columns = kept
}

// Level is one price level of an order book ladder.
type Level struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// Book is a two-sided order book snapshot with its metadata.
type Book struct {
	Market       string  `json:"market"`
	AssetID      string  `json:"asset_id"`
	Timestamp    any     `json:"timestamp"`
	Hash         string  `json:"hash"`
	MinOrderSize string  `json:"min_order_size"`
	TickSize     string  `json:"tick_size"`
	NegRisk      bool    `json:"neg_risk"`
	Bids         []Level `json:"bids"`
	Asks         []Level `json:"asks"`
}

// BuildBook concatenates both ladders of a snapshot into one table with a
// side column and the snapshot metadata repeated on every row. Two empty
// ladders produce an empty table, not an error.
func BuildBook(book Book, opts ...Option) *Table {
	records := make([]Record, 0, len(book.Bids)+len(book.Asks))
	appendSide := func(levels []Level, side string) {
		for _, lvl := range levels {
			records = append(records, Record{
				"side":           side,
				"price":          lvl.Price,
				"size":           lvl.Size,
				"market":         book.Market,
				"asset_id":       book.AssetID,
				"timestamp":      book.Timestamp,
				"hash":           book.Hash,
				"min_order_size": book.MinOrderSize,
				"tick_size":      book.TickSize,
				"neg_risk":       book.NegRisk,
			})
		}
	}
	appendSide(book.Bids, "bid")
	appendSide(book.Asks, "ask")
	return Build(schema.KindOrderBook, records, opts...)
}

// Concat appends rows of tables of the same kind into one table. Column order
// follows the first table, new columns from later tables are appended.
func Concat(tables ...*Table) (*Table, error) {
	var kind schema.Kind
	out := &Table{}
	ordered := make(map[string]bool)
	for _, t := range tables {
		if t == nil || t.Len() == 0 {
			continue
		}
		if kind == "" {
			kind = t.Kind
			out.Kind = kind
		} else if t.Kind != kind {
			return nil, fmt.Errorf("concat: mixed table kinds %q and %q", kind, t.Kind)
		}
		for _, col := range t.Columns {
			if !ordered[col] {
				ordered[col] = true
				out.Columns = append(out.Columns, col)
			}
		}
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out, nil
}

// JoinOptions configures AttachTrades key columns.
type JoinOptions struct {
	OrderKey string
	TradeKey string
}

// AttachTrades left-joins trade columns onto an order table. Trade columns
// are prefixed with "trade"; orders without a matching trade keep their row
// with missing trade cells. When several trades reference the same order the
// first one wins.
func AttachTrades(orders, trades *Table, opts JoinOptions) *Table {
	if opts.OrderKey == "" {
		opts.OrderKey = "id"
	}
	if opts.TradeKey == "" {
		opts.TradeKey = "orderId"
	}

	byOrder := make(map[string]map[string]Value, trades.Len())
	for _, row := range trades.Rows {
		key, ok := row[opts.TradeKey]
		if !ok || key.IsMissing() {
			continue
		}
		id := key.Format()
		if _, dup := byOrder[id]; !dup {
			byOrder[id] = row
		}
	}

	out := &Table{Kind: orders.Kind}
	out.Columns = append(out.Columns, orders.Columns...)
	joined := make([]string, 0, len(trades.Columns))
	for _, col := range trades.Columns {
		joined = append(joined, schema.JoinKeys("trade", col))
	}
	out.Columns = append(out.Columns, joined...)

	matched := 0
	for _, row := range orders.Rows {
		merged := make(map[string]Value, len(row)+len(joined))
		for k, v := range row {
			merged[k] = v
		}
		if key, ok := row[opts.OrderKey]; ok && !key.IsMissing() {
			if trade, hit := byOrder[key.Format()]; hit {
				matched++
				for i, col := range trades.Columns {
					if v, ok := trade[col]; ok {
						merged[joined[i]] = v
					}
				}
			}
		}
		out.Rows = append(out.Rows, merged)
	}

	if orders.Len() > 0 {
		logger.GetLogger().WithComponent("frame").WithFields(logger.Fields{
			"orders":  orders.Len(),
			"trades":  trades.Len(),
			"matched": matched,
		}).Debug("attached trade columns to order table")
	}
	return out
}
