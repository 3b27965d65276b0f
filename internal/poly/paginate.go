package poly

import (
	"context"
	"fmt"

	"github.com/sigma-quantiphi/polymarket-pandas/internal/frame"
	"github.com/sigma-quantiphi/polymarket-pandas/internal/schema"
	"github.com/sigma-quantiphi/polymarket-pandas/logger"
)

// defaultMaxPages caps runaway pagination the way the original client did.
const defaultMaxPages = 100

// PageOptions tunes FetchAll paging.
type PageOptions struct {
	// Limit is the page size; the endpoint default applies when zero.
	Limit int
	// MaxPages caps the number of pages, defaultMaxPages when zero.
	MaxPages int
}

// FetchAll pages through a listing endpoint with limit/offset until a short
// page, an empty page or the page cap, and returns the concatenated records.
func (c *Client) FetchAll(ctx context.Context, kind schema.Kind, q Query, opts PageOptions) ([]frame.Record, error) {
	ep, ok := endpoints[kind]
	if !ok {
		return nil, fmt.Errorf("no endpoint for entity kind %q", kind)
	}
	if ep.defaultLimit == 0 {
		return nil, fmt.Errorf("endpoint %s does not paginate", ep.path)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = ep.defaultLimit
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	log := c.log.WithComponent("poly_client").WithFields(logger.Fields{
		"kind": string(kind), "limit": limit,
	})

	var all []frame.Record
	offset := 0
	for page := 0; page < maxPages; page++ {
		pq := q.clone()
		pq["limit"] = limit
		pq["offset"] = offset

		records, err := c.getRecords(ctx, ep.host, ep.path, pq)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		all = append(all, records...)
		if len(records) < limit {
			break
		}
		offset += len(records)
	}
	log.WithFields(logger.Fields{"records": len(all)}).Debug("pagination complete")
	return all, nil
}

// FetchAllTable pages through an endpoint and builds one typed table.
func (c *Client) FetchAllTable(ctx context.Context, kind schema.Kind, q Query, opts PageOptions, buildOpts ...frame.Option) (*frame.Table, error) {
	records, err := c.FetchAll(ctx, kind, q, opts)
	if err != nil {
		return nil, err
	}
	return frame.Build(kind, records, buildOpts...), nil
}
