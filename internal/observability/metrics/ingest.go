package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// IngestMetrics contains Prometheus metrics for exposure ingestion.
type IngestMetrics struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
	rowsTotal         *prometheus.CounterVec
	batchRows         *prometheus.HistogramVec

	// collectors is a slice of all collectors for easier iteration
	collectors []prometheus.Collector
}

// NewIngestMetrics creates and registers new ingestion metrics.
func NewIngestMetrics(registry *prometheus.Registry) (*IngestMetrics, error) {
	m := &IngestMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *IngestMetrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "miridb_ingest_operations_total",
			Help: "Total number of ingestion operations",
		},
		[]string{"operation", "status"}, // status: success, error, cached
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "miridb_ingest_operation_duration_seconds",
			Help:    "Time taken for ingestion operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount15), // 10ms to ~5min
		},
		[]string{"operation"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "miridb_ingest_errors_total",
			Help: "Total number of ingestion errors by kind",
		},
		[]string{"operation", "error_type"},
	)

	m.rowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "miridb_ingest_rows_total",
			Help: "Total number of rows written per table",
		},
		[]string{"table"},
	)

	m.batchRows = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "miridb_ingest_rows_per_exposure",
			Help:    "Rows written per exposure and table",
			Buckets: prometheus.ExponentialBuckets(BucketStart1K, BucketFactor10, BucketCount6), // 1k to 100M
		},
		[]string{"table"},
	)

	m.collectors = []prometheus.Collector{
		m.operationsTotal,
		m.operationDuration,
		m.errorsTotal,
		m.rowsTotal,
		m.batchRows,
	}
}

// Describe implements the Collector interface
func (m *IngestMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *IngestMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordOperation records an ingestion operation with its status.
func (m *IngestMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration records the duration of an ingestion operation.
func (m *IngestMetrics) RecordDuration(operation string, seconds float64) {
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError records an ingestion error of the given kind.
func (m *IngestMetrics) RecordError(operation, errorType string) {
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}

// RecordRows adds n rows written to table.
func (m *IngestMetrics) RecordRows(table string, n int) {
	m.rowsTotal.WithLabelValues(table).Add(float64(n))
	m.batchRows.WithLabelValues(table).Observe(float64(n))
}
