package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/sigma-quantiphi/polymarket-pandas/config"
	"github.com/sigma-quantiphi/polymarket-pandas/internal/adapter"
	"github.com/sigma-quantiphi/polymarket-pandas/internal/fetch"
	"github.com/sigma-quantiphi/polymarket-pandas/internal/frame"
	"github.com/sigma-quantiphi/polymarket-pandas/internal/metadata"
	"github.com/sigma-quantiphi/polymarket-pandas/internal/metrics"
	"github.com/sigma-quantiphi/polymarket-pandas/internal/poly"
	"github.com/sigma-quantiphi/polymarket-pandas/internal/schema"
	"github.com/sigma-quantiphi/polymarket-pandas/internal/submit"
	"github.com/sigma-quantiphi/polymarket-pandas/internal/writer"
	"github.com/sigma-quantiphi/polymarket-pandas/logger"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "polyframe.yml", "Path to configuration file")
	orderToken := flag.String("order-token", "", "Token id to place an order for (runs order mode instead of a fetch batch)")
	orderSide := flag.String("order-side", "buy", "Order side: buy or sell")
	orderType := flag.String("order-type", "limit", "Order type: limit or market")
	orderPrice := flag.String("order-price", "", "Limit price")
	orderSize := flag.String("order-size", "", "Order size in tokens")
	orderCost := flag.String("order-cost", "", "Market order cost; sized off the midpoint when no size is given")
	flag.Parse()

	cfg, err := config.LoadConfig(config.ResolveConfigPath(*configPath))
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	env := config.AppEnvironment()
	log.WithFields(logger.Fields{
		"service":     cfg.Polyframe.Name,
		"version":     cfg.Polyframe.Version,
		"environment": env,
	}).Info("starting polyframe")

	if config.IsProductionLike(env) && !cfg.Storage.S3.Enabled {
		log.Warn("production-like environment without S3 storage; tables stay local")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
		cancel()
	}()

	if cfg.Metrics.Prometheus.Enabled {
		listen := cfg.Metrics.Prometheus.Listen
		if listen == "" {
			listen = ":2112"
		}
		metrics.ServePrometheus(listen)
	}
	if cfg.Metrics.CloudWatch.Enabled {
		metrics.Init(cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace)
	}

	client := poly.NewClient(poly.Config{
		GammaURL:          cfg.API.GammaURL,
		DataURL:           cfg.API.DataURL,
		CLOBURL:           cfg.API.ClobURL,
		Credentials:       poly.CredentialsFromEnv(),
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		BurstSize:         cfg.API.Burst,
		Timeout:           time.Duration(cfg.API.Timeout),
	})

	if *orderToken != "" {
		if err := runOrder(ctx, cfg, client, orderArgs{
			token: *orderToken,
			side:  strings.ToLower(*orderSide),
			typ:   strings.ToLower(*orderType),
			price: *orderPrice,
			size:  *orderSize,
			cost:  *orderCost,
		}, log); err != nil {
			log.WithError(err).Error("order submission failed")
			os.Exit(1)
		}
		logStopped(log)
		return
	}

	var s3Writer *writer.S3Writer
	if cfg.Storage.S3.Enabled {
		s3Writer, err = writer.NewS3Writer(ctx, writer.S3Config{
			Bucket:          cfg.Storage.S3.Bucket,
			Region:          cfg.Storage.S3.Region,
			Endpoint:        cfg.Storage.S3.Endpoint,
			PathStyle:       cfg.Storage.S3.PathStyle,
			KeyPrefix:       cfg.Storage.S3.Prefix,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
			Compression:     cfg.Storage.Compression,
		})
		if err != nil {
			log.WithError(err).Error("failed to create S3 writer")
			os.Exit(1)
		}
	} else {
		log.WithComponent("main").Info("S3 storage disabled; writing tables locally")
	}

	flusher := &tableFlusher{
		cfg:        cfg,
		s3:         s3Writer,
		log:        log,
		generators: make(map[schema.Kind]*metadata.Generator),
	}

	if err := runBatch(ctx, cfg, client, flusher, log); err != nil {
		log.WithError(err).Error("fetch batch failed")
		os.Exit(1)
	}

	if cfg.Stream.Enabled {
		runStream(ctx, cfg, flusher, log)
	}

	logStopped(log)
}

func logStopped(log *logger.Log) {
	log.WithFields(logger.Fields{
		"errors":   logger.ErrorCount(),
		"warnings": logger.WarnCount(),
	}).Info("polyframe stopped")
}

// orderArgs carries the order-mode flag values.
type orderArgs struct {
	token, side, typ, price, size, cost string
}

// runOrder places a single order through the preprocessing pipeline. Venue
// limits come from the configured exchange adapter when one is set,
// otherwise from the static book bounds in the orders config.
func runOrder(ctx context.Context, cfg *config.Config, client *poly.Client, args orderArgs, log *logger.Log) error {
	tick := decimal.Zero
	if cfg.Orders.PriceTick != "" {
		var err error
		tick, err = decimal.NewFromString(cfg.Orders.PriceTick)
		if err != nil {
			return fmt.Errorf("orders.price_tick: %w", err)
		}
	}
	minSize := decimal.Zero
	if cfg.Orders.MinSize != "" {
		var err error
		minSize, err = decimal.NewFromString(cfg.Orders.MinSize)
		if err != nil {
			return fmt.Errorf("orders.min_size: %w", err)
		}
	}

	var limits submit.LimitsSource
	switch cfg.Orders.LimitsVenue {
	case "binance":
		limits = adapter.NewBinance()
	case "kucoin":
		limits = adapter.NewKucoin("", time.Duration(cfg.API.Timeout))
	}

	submitter := submit.New(client, client, limits, submit.Config{
		PricePolicy:  cfg.Orders.PricePolicy,
		AmountPolicy: cfg.Orders.AmountPolicy,
		CostPolicy:   cfg.Orders.CostPolicy,
		PriceTick:    tick,
		MinSize:      minSize,
		Owner:        cfg.Orders.Owner,
	})

	req := submit.Request{TokenID: args.token, Side: args.side, Type: args.typ}
	if args.price != "" {
		p, err := decimal.NewFromString(args.price)
		if err != nil {
			return fmt.Errorf("invalid -order-price: %w", err)
		}
		req.Price = &p
	}
	if args.size != "" {
		s, err := decimal.NewFromString(args.size)
		if err != nil {
			return fmt.Errorf("invalid -order-size: %w", err)
		}
		req.Size = &s
	}
	if args.cost != "" {
		c, err := decimal.NewFromString(args.cost)
		if err != nil {
			return fmt.Errorf("invalid -order-cost: %w", err)
		}
		req.Cost = &c
	}

	record, err := submitter.Submit(ctx, req)
	if err != nil {
		return err
	}
	log.WithComponent("main").WithFields(logger.Fields{
		"token":    args.token,
		"order_id": record["orderID"],
	}).Info("order accepted")
	return nil
}

// runBatch fetches every configured entity kind concurrently and flushes the
// resulting tables.
func runBatch(ctx context.Context, cfg *config.Config, client *poly.Client, flusher *tableFlusher, log *logger.Log) error {
	kinds := make([]schema.Kind, 0, len(cfg.Fetch.Kinds))
	for _, name := range cfg.Fetch.Kinds {
		kinds = append(kinds, schema.Kind(strings.ToLower(strings.TrimSpace(name))))
	}
	if len(kinds) == 0 {
		log.WithComponent("main").Info("no fetch kinds configured; skipping batch")
		return nil
	}

	pageOpts := poly.PageOptions{Limit: cfg.Fetch.PageLimit, MaxPages: cfg.Fetch.MaxPages}
	buildOpts := []frame.Option{frame.WithDropNA(cfg.Tables.DropNA)}

	ops := make([]fetch.Op, 0, len(kinds))
	for _, kind := range kinds {
		k := kind
		ops = append(ops, func(ctx context.Context) (any, error) {
			started := time.Now()
			table, err := client.FetchAllTable(ctx, k, nil, pageOpts, buildOpts...)
			metrics.EmitFetchDuration(ctx, string(k), time.Since(started))
			if err != nil {
				return nil, err
			}
			return table, nil
		})
	}

	results, err := fetch.RunAll(ctx, ops, fetch.Options{
		MaxParallel:      cfg.Fetch.MaxParallel,
		ReturnExceptions: cfg.Fetch.ReturnExceptions,
	})
	if err != nil {
		return err
	}

	for i, res := range results {
		kind := string(kinds[i])
		if res.Err != nil {
			metrics.IncrementFetchError(kind)
			metrics.EmitBatchFailure(ctx, kind)
			log.WithComponent("main").WithError(res.Err).WithFields(logger.Fields{
				"kind": kind,
			}).Warn("fetch failed for kind")
			continue
		}
		metrics.IncrementFetchSuccess(kind)

		table, ok := res.Value.(*frame.Table)
		if !ok || table.Len() == 0 {
			log.WithComponent("main").WithFields(logger.Fields{"kind": kind}).Info("no rows fetched")
			continue
		}
		metrics.AddRowsBuilt(kind, table.Len())

		if err := flusher.flush(ctx, table); err != nil {
			log.WithComponent("main").WithError(err).WithFields(logger.Fields{
				"kind": kind,
			}).Warn("failed to flush table")
		}
	}

	return nil
}

// runStream consumes the CLOB market channel until the context is cancelled,
// flushing order book snapshots as tables.
func runStream(ctx context.Context, cfg *config.Config, flusher *tableFlusher, log *logger.Log) {
	buffer := cfg.Stream.Buffer
	if buffer <= 0 {
		buffer = 256
	}
	msgs := make(chan poly.StreamMessage, buffer)

	stream := poly.NewStream(cfg.Stream.URL, cfg.Stream.AssetIDs, msgs)
	if err := stream.Start(ctx); err != nil {
		log.WithComponent("main").WithError(err).Warn("stream failed to start")
		return
	}

	for {
		select {
		case <-ctx.Done():
			stream.Stop()
			return
		case msg := <-msgs:
			if msg.EventType != "book" || len(msg.Records) == 0 {
				continue
			}
			table := frame.Build(schema.KindOrderBook, msg.Records, frame.WithDropNA(cfg.Tables.DropNA))
			if table.Len() == 0 {
				continue
			}
			metrics.AddRowsBuilt(string(schema.KindOrderBook), table.Len())
			if err := flusher.flush(ctx, table); err != nil {
				log.WithComponent("main").WithError(err).Warn("failed to flush stream table")
			}
		}
	}
}

// tableFlusher persists built tables, either to S3 or to the local data
// directory with Iceberg-style metadata alongside.
type tableFlusher struct {
	cfg        *config.Config
	s3         *writer.S3Writer
	log        *logger.Log
	generators map[schema.Kind]*metadata.Generator
}

func (f *tableFlusher) flush(ctx context.Context, table *frame.Table) error {
	if f.s3 != nil {
		key, err := f.s3.WriteTable(ctx, table)
		if err != nil {
			return err
		}
		metrics.EmitRowsWritten(ctx, string(table.Kind), table.Len())
		f.log.WithComponent("main").WithFields(logger.Fields{
			"kind": string(table.Kind),
			"rows": table.Len(),
			"key":  key,
		}).Info("uploaded table")
		return nil
	}

	dir := f.cfg.Storage.LocalDir
	if dir == "" {
		dir = "data"
	}
	data, err := writer.TableToParquet(table, f.cfg.Storage.Compression)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}

	now := time.Now()
	path := filepath.Join(dir, writer.BatchKey("", string(table.Kind), now))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}

	gen, ok := f.generators[table.Kind]
	if !ok {
		gen = metadata.NewGenerator(dir, string(table.Kind))
		f.generators[table.Kind] = gen
	}
	if err := gen.RecordFlush(path, table.Len(), now); err != nil {
		f.log.WithComponent("main").WithError(err).Warn("failed to record table metadata")
	}

	metrics.EmitRowsWritten(ctx, string(table.Kind), table.Len())
	f.log.WithComponent("main").WithFields(logger.Fields{
		"kind": string(table.Kind),
		"rows": table.Len(),
		"path": path,
	}).Info("wrote table")
	return nil
}
