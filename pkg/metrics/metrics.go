// Package metrics defines the prometheus instrumentation shared by the
// ingester and the API server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector groups all application metrics.
type Collector struct {
	// Ingestion
	IngestionRecordsTotal    prometheus.Counter
	IngestionDuplicatesTotal prometheus.Counter
	IngestionRowsDropped     prometheus.Counter
	IngestionErrorsTotal     *prometheus.CounterVec
	IngestionDuration        prometheus.Histogram
	IngestionBatchSize       prometheus.Histogram

	// Aggregation
	StatsRebuildDuration prometheus.Histogram

	// Database
	DBQueryDuration  *prometheus.HistogramVec
	DBErrorsTotal    *prometheus.CounterVec
	DBConnectionPool *prometheus.GaugeVec

	// API
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIErrorsTotal     *prometheus.CounterVec
}

// NewCollector registers the application metrics under the given namespace
// on the default prometheus registerer.
func NewCollector(namespace string) *Collector {
	return NewCollectorWith(namespace, prometheus.DefaultRegisterer)
}

// NewCollectorWith registers the metrics on a specific registerer. Tests
// pass a fresh registry to avoid duplicate registration.
func NewCollectorWith(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		IngestionRecordsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestion_records_written_total",
			Help:      "Cumulative count of new weather records persisted, duplicates excluded",
		}),

		IngestionDuplicatesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestion_duplicates_skipped_total",
			Help:      "Records skipped because the (station, date) pair already existed",
		}),

		IngestionRowsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestion_rows_dropped_total",
			Help:      "Rows excluded during parsing because the date was unparseable",
		}),

		IngestionErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestion_errors_total",
			Help:      "Ingestion errors by type",
		}, []string{"error_type"}),

		IngestionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingestion_duration_seconds",
			Help:      "Duration of full ingestion runs in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		IngestionBatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingestion_batch_size",
			Help:      "Number of records committed per file batch",
			Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000},
		}),

		StatsRebuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stats_rebuild_duration_seconds",
			Help:      "Duration of yearly statistics rebuilds in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds by query type",
			Buckets:   []float64{0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5},
		}, []string{"query_type"}),

		DBErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_errors_total",
			Help:      "Database errors by type",
		}, []string{"error_type"}),

		DBConnectionPool: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connection_pool",
			Help:      "Connection pool statistics",
		}, []string{"state"}),

		APIRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "API requests by endpoint, method and status",
		}, []string{"endpoint", "method", "status"}),

		APIRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1, 2, 5},
		}, []string{"endpoint"}),

		APIErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_errors_total",
			Help:      "API errors by type and endpoint",
		}, []string{"error_type", "endpoint"}),
	}
}

// RecordIngestionError increments the ingestion error counter.
func (c *Collector) RecordIngestionError(errorType string) {
	c.IngestionErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordDBError increments the database error counter.
func (c *Collector) RecordDBError(errorType string) {
	c.DBErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordAPIRequest increments the API request counter.
func (c *Collector) RecordAPIRequest(endpoint, method, status string) {
	c.APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// RecordAPIError increments the API error counter.
func (c *Collector) RecordAPIError(errorType, endpoint string) {
	c.APIErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}

// UpdateDBConnectionPool publishes connection pool gauges.
func (c *Collector) UpdateDBConnectionPool(inUse, idle, total int) {
	c.DBConnectionPool.WithLabelValues("in_use").Set(float64(inUse))
	c.DBConnectionPool.WithLabelValues("idle").Set(float64(idle))
	c.DBConnectionPool.WithLabelValues("total").Set(float64(total))
}
