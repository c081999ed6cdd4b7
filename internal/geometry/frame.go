// Package geometry builds the detector pixel-ID lattice and maps subarray
// windows onto it.
//
// Pixel IDs are dense, 1-based and row-major over the full frame. The last
// ReferenceRows rows of the frame hold reference pixels; in the readout
// addressing space their values are interleaved as one reference column after
// every DataColumnsPerReference imaging columns.
package geometry

import (
	"github.com/tphakala/miri-pixeldb/internal/errors"
)

const component = "geometry"

// Frame is the full-sensor geometry shared by all detectors of an instrument.
type Frame struct {
	Rows                    int // total rows including reference rows
	Cols                    int
	ReferenceRows           int
	DataColumnsPerReference int
}

// MIRIFrame returns the MIRI focal plane geometry: 1280x1032 with 256
// reference rows and a 4:1 data to reference column interleave.
func MIRIFrame() Frame {
	return Frame{Rows: 1280, Cols: 1032, ReferenceRows: 256, DataColumnsPerReference: 4}
}

// Validate checks that the reference region reshapes exactly into one
// imaging-height column per group of data columns.
func (f Frame) Validate() error {
	switch {
	case f.Rows < 1 || f.Cols < 1:
		return errors.Configuration(component, "frame %dx%d must be positive", f.Rows, f.Cols)
	case f.ReferenceRows < 1 || f.ReferenceRows >= f.Rows:
		return errors.Configuration(component, "reference rows %d must be in [1, %d)", f.ReferenceRows, f.Rows)
	case f.DataColumnsPerReference < 1:
		return errors.Configuration(component, "data columns per reference %d must be positive", f.DataColumnsPerReference)
	case f.Cols%f.DataColumnsPerReference != 0:
		return errors.Configuration(component, "columns %d not divisible by %d", f.Cols, f.DataColumnsPerReference)
	case (f.ReferenceRows*f.Cols)%f.ImagingRows() != 0:
		return errors.Configuration(component, "reference region %dx%d does not reshape into columns of height %d",
			f.ReferenceRows, f.Cols, f.ImagingRows())
	case f.Cols/f.DataColumnsPerReference != f.ReferenceColumns():
		return errors.Configuration(component, "%d data column groups but %d reference columns",
			f.Cols/f.DataColumnsPerReference, f.ReferenceColumns())
	}
	return nil
}

// ImagingRows is the number of rows holding imaging pixels.
func (f Frame) ImagingRows() int {
	return f.Rows - f.ReferenceRows
}

// ReferenceColumns is the number of reference columns in the interleaved space.
func (f Frame) ReferenceColumns() int {
	return f.ReferenceRows * f.Cols / f.ImagingRows()
}

// InterleavedCols is the width of the interleaved addressing space.
func (f Frame) InterleavedCols() int {
	return f.ReferenceColumns() * (f.DataColumnsPerReference + 1)
}

// PixelCount is the number of pixels on the full frame.
func (f Frame) PixelCount() int {
	return f.Rows * f.Cols
}

// PixelID returns the ID of the full-frame pixel at 0-based (row, col).
func (f Frame) PixelID(row, col int) int64 {
	return int64(row)*int64(f.Cols) + int64(col) + 1
}

// ReferencePixelID returns the ID of element r of reference column k.
// The reference rows are flattened row-major and cut into columns of
// ImagingRows elements.
func (f Frame) ReferencePixelID(k, r int) int64 {
	ir := f.ImagingRows()
	return int64(ir)*int64(f.Cols) + 1 + int64(k)*int64(ir) + int64(r)
}

// Position returns the 1-based full-frame row and column of a pixel ID and
// whether it lies in the reference rows.
func (f Frame) Position(id int64) (row, col int, reference bool) {
	idx := id - 1
	row = int(idx/int64(f.Cols)) + 1
	col = int(idx%int64(f.Cols)) + 1
	return row, col, row > f.ImagingRows()
}

// MappedColumn converts a 0-based imaging column into the interleaved space.
func (f Frame) MappedColumn(x int) int {
	return x + x/f.DataColumnsPerReference
}

// IsReferenceColumn reports whether an interleaved column holds reference pixels.
func (f Frame) IsReferenceColumn(col int) bool {
	return col%(f.DataColumnsPerReference+1) == f.DataColumnsPerReference
}
