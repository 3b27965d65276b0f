// Package metrics publishes operational counters to CloudWatch: order clip
// warnings, fetch batch failures and fetch durations. Publishing is a no-op
// until Init succeeds, so library use stays dependency-free at runtime.
package metrics

import (
	"context"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/sigma-quantiphi/polymarket-pandas/logger"
)

type cloudWatchState struct {
	client    *cloudwatch.Client
	namespace string
	region    string
}

var cwState atomic.Pointer[cloudWatchState]

// cloudWatchPublishInterval throttles repeated publishes of the same metric
// series so tight fetch loops do not flood PutMetricData.
var cloudWatchPublishInterval = 10 * time.Second

var (
	publishTimesMu sync.Mutex
	publishTimes   = map[string]time.Time{}
)

var timeNow = time.Now

// publishMetricsFunc is replaceable in tests.
var publishMetricsFunc = publishMetrics

func init() {
	cwState.Store(&cloudWatchState{namespace: "PolymarketPandas"})
}

// Init initialises the CloudWatch client using the provided region and
// namespace. When the client cannot be created the function logs a warning
// and leaves publishing disabled.
func Init(region, namespace string) {
	log := logger.GetLogger().WithComponent("cloudwatch")

	if region == "" {
		region = os.Getenv("AWS_REGION")
	}

	ctx := context.Background()
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		log.WithError(err).Warn("failed to load AWS configuration; CloudWatch metrics disabled")
		return
	}

	next := *cwState.Load()
	next.client = cloudwatch.NewFromConfig(cfg)
	if namespace != "" {
		next.namespace = namespace
	}
	if cfg.Region != "" {
		next.region = cfg.Region
	} else {
		next.region = region
	}
	cwState.Store(&next)

	log.WithFields(logger.Fields{
		"region":    next.region,
		"namespace": next.namespace,
	}).Info("initialized CloudWatch client")
}

// EmitClipWarning counts one clamped order dimension (price, amount, cost).
func EmitClipWarning(ctx context.Context, symbol, dimension string) {
	emit(ctx, "OrderClipWarnings", 1, cwtypes.StandardUnitCount, map[string]string{
		"symbol":    symbol,
		"dimension": dimension,
	})
}

// EmitBatchFailure counts one failed fetch batch for an entity kind.
func EmitBatchFailure(ctx context.Context, kind string) {
	emit(ctx, "FetchBatchFailures", 1, cwtypes.StandardUnitCount, map[string]string{
		"kind": kind,
	})
}

// EmitFetchDuration reports how long one fetch batch took.
func EmitFetchDuration(ctx context.Context, kind string, d time.Duration) {
	emit(ctx, "FetchDurationMs", float64(d.Milliseconds()), cwtypes.StandardUnitMilliseconds, map[string]string{
		"kind": kind,
	})
}

// EmitRowsWritten reports how many rows one table flush persisted.
func EmitRowsWritten(ctx context.Context, kind string, rows int) {
	emit(ctx, "RowsWritten", float64(rows), cwtypes.StandardUnitCount, map[string]string{
		"kind": kind,
	})
}

func emit(ctx context.Context, metric string, value float64, unit cwtypes.StandardUnit, dimensions map[string]string) {
	s := cwState.Load()
	if s == nil || s.client == nil {
		return
	}
	if !shouldPublish(seriesKey(metric, dimensions)) {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	dims := make([]cwtypes.Dimension, 0, len(dimensions))
	for k, v := range dimensions {
		if v == "" {
			continue
		}
		dims = append(dims, cwtypes.Dimension{Name: aws.String(k), Value: aws.String(v)})
	}

	publishMetricsFunc(ctx, s, []cwtypes.MetricDatum{{
		MetricName: aws.String(metric),
		Dimensions: dims,
		Unit:       unit,
		Value:      aws.Float64(value),
		Timestamp:  aws.Time(timeNow()),
	}})
}

func publishMetrics(ctx context.Context, state *cloudWatchState, data []cwtypes.MetricDatum) {
	_, err := state.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(state.namespace),
		MetricData: data,
	})
	if err != nil {
		logger.GetLogger().WithComponent("cloudwatch").WithError(err).
			Warn("failed to publish CloudWatch metrics")
	}
}

func seriesKey(metric string, dimensions map[string]string) string {
	parts := make([]string, 0, len(dimensions)+1)
	parts = append(parts, metric)
	for k, v := range dimensions {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts[1:])
	return strings.Join(parts, "|")
}

func shouldPublish(key string) bool {
	publishTimesMu.Lock()
	defer publishTimesMu.Unlock()

	now := timeNow()
	if last, ok := publishTimes[key]; ok && now.Sub(last) < cloudWatchPublishInterval {
		return false
	}
	publishTimes[key] = now
	return true
}

func resetPublishTimes() {
	publishTimesMu.Lock()
	defer publishTimesMu.Unlock()
	publishTimes = map[string]time.Time{}
}
