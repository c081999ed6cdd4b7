package exposure

import (
	"path/filepath"
	"strings"
)

// File name suffixes of the products derived from one raw exposure.
const (
	fitsSuffix     = ".fits"
	pipeSuffix     = "_pipe.fits"
	rampSuffix     = "_ramp.fits"
	rateSuffix     = "_rate.fits"
	rateIntsSuffix = "_rateints.fits"
)

// PipelineReadyName returns the pipeline-ready name of a raw file,
// X.fits becoming X_pipe.fits. Names already carrying the suffix are
// returned unchanged.
func PipelineReadyName(raw string) string {
	if strings.HasSuffix(raw, pipeSuffix) {
		return raw
	}
	return strings.TrimSuffix(raw, fitsSuffix) + pipeSuffix
}

// CorrectedRampName returns the calibrated ramp product name for a
// pipeline-ready file, X_pipe.fits becoming X_pipe_ramp.fits.
func CorrectedRampName(pipe string) string {
	return strings.TrimSuffix(pipe, fitsSuffix) + rampSuffix
}

// CorrectedRampPath places the calibrated ramp product of pipePath in dir.
// An empty dir keeps it next to the input.
func CorrectedRampPath(dir, pipePath string) string {
	if dir == "" {
		dir = filepath.Dir(pipePath)
	}
	return filepath.Join(dir, CorrectedRampName(filepath.Base(pipePath)))
}

// SlopeName returns the slope product next to a corrected ramp product:
// _rate.fits for single-integration exposures, _rateints.fits otherwise.
func SlopeName(correctedRamp string, ints int) string {
	stem := strings.TrimSuffix(correctedRamp, rampSuffix)
	if ints == 1 {
		return stem + rateSuffix
	}
	return stem + rateIntsSuffix
}

// RawName recovers the raw exposure natural key from a corrected ramp
// product name, X_pipe_ramp.fits becoming X_pipe.fits.
func RawName(correctedRamp string) string {
	base := filepath.Base(correctedRamp)
	return strings.Replace(base, rampSuffix, fitsSuffix, 1)
}
