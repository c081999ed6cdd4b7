// Package entities defines the GORM models of the pixel database.
//
// # Static entities
//
//   - Detector: sensor chip assemblies, keyed by SCA id
//   - Pixel: one row per full-frame pixel id, seeded once
//   - DQFlag: decode table for packed data quality codes
//
// # Raw exposures
//
//   - Exposure: one raw readout, unique by file name
//   - Ramp: reads of one (exposure, pixel, integration)
//   - Group: one read of a ramp
//
// # Calibrated exposures
//
//   - CorrectedExposure: calibration provenance of an exposure
//   - CorrectedRamp: calibrated ramp with slope, DQ and error series
//   - CorrectedGroup: one calibrated read with its packed DQ code
//
// Every child row references its parent with ON DELETE CASCADE, so deleting
// an Exposure removes all dependent rows in the relational layer.
package entities
