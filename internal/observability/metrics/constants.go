// Package metrics provides constants used across metric definitions.
package metrics

// Operation type constants recorded by the ingestion pipeline.
const (
	// OpRawIngest represents storing a raw exposure with its ramps and groups.
	OpRawIngest = "raw_ingest"
	// OpCorrectedIngest represents storing a corrected exposure with its ramps and groups.
	OpCorrectedIngest = "corrected_ingest"
	// OpCalibration represents running (or reusing) the external calibration.
	OpCalibration = "calibration"
	// OpDelete represents a cascading exposure delete.
	OpDelete = "delete"
	// OpFlatten represents flattening a readout cube into ramps.
	OpFlatten = "flatten"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusCached  = "cached"
)

// Table label values for row counters.
const (
	TableRamps           = "ramps"
	TableGroups          = "ramp_groups"
	TableCorrectedRamps  = "corrected_ramps"
	TableCorrectedGroups = "corrected_groups"
)

// Histogram bucket configuration constants.
// These define the base values and factors for exponential bucket generation.
const (
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01
	// BucketStart1s is the starting bucket for 1s histograms (1s to ~9 hours range).
	BucketStart1s = 1.0
	// BucketStart1K is the starting bucket for row count histograms.
	BucketStart1K = 1000.0

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2
	// BucketFactor10 is the exponential growth factor of 10 for larger ranges.
	BucketFactor10 = 10

	// BucketCount6 defines 6 exponential buckets.
	BucketCount6 = 6
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
	// BucketCount15 defines 15 exponential buckets.
	BucketCount15 = 15
)
