// Package cube reshapes readout cubes into per-pixel ramps.
package cube

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/tphakala/miri-pixeldb/internal/errors"
)

const component = "cube"

// Shape is the extent of a readout cube, outermost axis first.
type Shape struct {
	Ints   int `json:"ints"`
	Groups int `json:"groups"`
	Rows   int `json:"rows"`
	Cols   int `json:"cols"`
}

// Pixels is the number of pixels per frame.
func (s Shape) Pixels() int {
	return s.Rows * s.Cols
}

// Ramps is the number of (pixel, integration) ramps in the cube.
func (s Shape) Ramps() int {
	return s.Ints * s.Pixels()
}

// Len is the number of values in the cube.
func (s Shape) Len() int {
	return s.Ints * s.Groups * s.Pixels()
}

func (s Shape) valid() bool {
	return s.Ints > 0 && s.Groups > 0 && s.Rows > 0 && s.Cols > 0
}

// Cube holds values in row-major [integration][group][row][col] order.
// Single-quantity products such as slopes use Groups == 1.
type Cube struct {
	Shape Shape
	Data  []float64
}

// New wraps data in a cube after checking it matches shape.
func New(shape Shape, data []float64) (*Cube, error) {
	if !shape.valid() {
		return nil, errors.Configuration(component, "cube shape %+v must be positive", shape)
	}
	if len(data) != shape.Len() {
		return nil, errors.Configuration(component, "cube shape %+v needs %d values, got %d", shape, shape.Len(), len(data))
	}
	return &Cube{Shape: shape, Data: data}, nil
}

// Ramps is a flattened cube: Count ramps of Length values each, ramp i
// covering pixel i%pixels of integration i/pixels.
type Ramps struct {
	Length int
	Count  int
	Values []float64 // concatenation of all ramps, also the flat group sequence
}

// Ramp returns a view of ramp i.
func (r *Ramps) Ramp(i int) []float64 {
	return r.Values[i*r.Length : (i+1)*r.Length]
}

// Int64s converts the values to integers, for raw counts and DQ codes.
// Values that are not integral are rejected.
func (r *Ramps) Int64s() ([]int64, error) {
	out := make([]int64, len(r.Values))
	for i, v := range r.Values {
		if v != math.Trunc(v) || math.IsNaN(v) {
			return nil, errors.Configuration(component, "value %v at position %d is not an integer", v, i)
		}
		out[i] = int64(v)
	}
	return out, nil
}

// Flatten transposes every integration from group-major to pixel-major
// order so that each pixel's reads become one contiguous ramp.
func Flatten(c *Cube) (*Ramps, error) {
	if c == nil || !c.Shape.valid() || len(c.Data) != c.Shape.Len() {
		return nil, errors.Configuration(component, "cannot flatten malformed cube")
	}

	s := c.Shape
	npix := s.Pixels()
	block := s.Groups * npix
	out := make([]float64, s.Len())

	for i := range s.Ints {
		src := mat.NewDense(s.Groups, npix, c.Data[i*block:(i+1)*block])
		dst := mat.NewDense(npix, s.Groups, out[i*block:(i+1)*block])
		dst.Copy(src.T())
	}

	return &Ramps{Length: s.Groups, Count: s.Ramps(), Values: out}, nil
}
