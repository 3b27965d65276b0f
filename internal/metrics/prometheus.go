// Registers:
//
//	#polyframe_fetch_success_total
//	#polyframe_fetch_errors_total
//	#polyframe_rows_built_total
//	#go_* and process_* system metrics
//
// Exposes them on /metrics using the Prometheus HTTP handler.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once         sync.Once
	fetchSuccess *prometheus.CounterVec
	fetchErrors  *prometheus.CounterVec
	rowsBuilt    *prometheus.CounterVec
)

// ServePrometheus registers the process counters and starts the exposition
// endpoint on addr (for example ":2112").
func ServePrometheus(addr string) {
	once.Do(func() {
		fetchSuccess = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polyframe_fetch_success_total",
				Help: "Number of successful fetch batches per entity kind",
			},
			[]string{"kind"},
		)

		fetchErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polyframe_fetch_errors_total",
				Help: "Number of failed fetch batches per entity kind",
			},
			[]string{"kind"},
		)

		rowsBuilt = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polyframe_rows_built_total",
				Help: "Number of table rows built per entity kind",
			},
			[]string{"kind"},
		)

		_ = prometheus.Register(fetchSuccess)
		_ = prometheus.Register(fetchErrors)
		_ = prometheus.Register(rowsBuilt)
		_ = prometheus.Register(collectors.NewGoCollector())
		_ = prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(addr, nil); err != nil {
				panic("metrics server failed: " + err.Error())
			}
		}()
	})
}

// IncrementFetchSuccess increases the success counter for a given kind.
func IncrementFetchSuccess(kind string) {
	if fetchSuccess != nil {
		fetchSuccess.WithLabelValues(kind).Inc()
	}
}

// IncrementFetchError increases the error counter for a given kind.
func IncrementFetchError(kind string) {
	if fetchErrors != nil {
		fetchErrors.WithLabelValues(kind).Inc()
	}
}

// AddRowsBuilt adds the row count of a built table for a given kind.
func AddRowsBuilt(kind string, rows int) {
	if rowsBuilt != nil && rows > 0 {
		rowsBuilt.WithLabelValues(kind).Add(float64(rows))
	}
}
