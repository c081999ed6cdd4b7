// Package metrics provides Prometheus metrics for the ingestion pipeline.
package metrics

// Recorder defines a minimal interface for recording metrics.
// Components depend on it rather than on a concrete metric set, so tests
// can pass a NoOpRecorder.
type Recorder interface {
	// RecordOperation records an operation (e.g. "raw_ingest") with its status.
	RecordOperation(operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error occurrence. errorType is the error kind
	// label, e.g. "duplicate" or "ordering".
	RecordError(operation, errorType string)
}

// RowRecorder is implemented by recorders that also count stored rows.
type RowRecorder interface {
	RecordRows(table string, n int)
}

// NoOpRecorder is a no-op implementation of the Recorder interface.
type NoOpRecorder struct{}

// RecordOperation does nothing.
func (n *NoOpRecorder) RecordOperation(operation, status string) {}

// RecordDuration does nothing.
func (n *NoOpRecorder) RecordDuration(operation string, seconds float64) {}

// RecordError does nothing.
func (n *NoOpRecorder) RecordError(operation, errorType string) {}

// NewNoOpRecorder creates a new no-op recorder instance.
func NewNoOpRecorder() *NoOpRecorder {
	return &NoOpRecorder{}
}
