// Package fitsfile reads the header keywords and image extensions of
// exposure products.
package fitsfile

import (
	"encoding/binary"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/astrogo/fitsio"

	"github.com/tphakala/miri-pixeldb/internal/cube"
	"github.com/tphakala/miri-pixeldb/internal/errors"
)

const component = "fitsfile"

// Image is one decoded image HDU. Axes follow the FITS convention with the
// fastest varying axis (NAXIS1) first.
type Image struct {
	Name   string
	Header Header
	Axes   []int
	Data   []float64
}

// Cube reshapes the image into a readout cube. Four axes are
// (cols, rows, groups, ints), three axes are (cols, rows, ints) and two axes
// a single frame.
func (img *Image) Cube() (*cube.Cube, error) {
	var shape cube.Shape
	switch len(img.Axes) {
	case 4:
		shape = cube.Shape{Cols: img.Axes[0], Rows: img.Axes[1], Groups: img.Axes[2], Ints: img.Axes[3]}
	case 3:
		shape = cube.Shape{Cols: img.Axes[0], Rows: img.Axes[1], Groups: 1, Ints: img.Axes[2]}
	case 2:
		shape = cube.Shape{Cols: img.Axes[0], Rows: img.Axes[1], Groups: 1, Ints: 1}
	default:
		return nil, errors.Configuration(component, "extension %s has %d axes, want 2 to 4", img.Name, len(img.Axes))
	}
	return cube.New(shape, img.Data)
}

// Product is a FITS file reduced to its primary header and image extensions.
type Product struct {
	Path    string
	Primary Header
	images  map[string]*Image
	order   []string
}

// Extension returns the image extension with the given EXTNAME.
func (p *Product) Extension(name string) (*Image, error) {
	img, ok := p.images[strings.ToUpper(name)]
	if !ok {
		return nil, errors.Newf("extension %s not found in %s", name, p.Path).
			Component(component).
			Category(errors.CategoryFileParsing).
			Context("extension", name).
			Build()
	}
	return img, nil
}

// Extensions lists the decoded extension names in file order.
func (p *Product) Extensions() []string {
	return slices.Clone(p.order)
}

// Read opens path and decodes the primary header plus the named image
// extensions. With no names every image extension that carries data is
// decoded.
func Read(path string, extnames ...string) (*Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.FileError(err, path, 0)
	}
	defer f.Close()

	var size int64
	if st, statErr := f.Stat(); statErr == nil {
		size = st.Size()
	}

	ff, err := fitsio.Open(f)
	if err != nil {
		return nil, errors.New(err).
			Component(component).
			Category(errors.CategoryFileParsing).
			FileContext(path, size).
			Build()
	}
	defer ff.Close()

	hdus := ff.HDUs()
	if len(hdus) == 0 {
		return nil, errors.Newf("%s has no header data units", path).
			Component(component).
			Category(errors.CategoryFileParsing).
			Build()
	}

	want := make(map[string]bool, len(extnames))
	for _, n := range extnames {
		want[strings.ToUpper(n)] = true
	}

	p := &Product{
		Path:    path,
		Primary: decodeHeader(hdus[0].Header()),
		images:  make(map[string]*Image),
	}

	for i, hdu := range hdus[1:] {
		name := strings.ToUpper(strings.TrimSpace(hdu.Name()))
		if name == "" {
			name = "HDU" + itoa(i+1)
		}
		if len(want) > 0 && !want[name] {
			continue
		}
		fimg, ok := hdu.(fitsio.Image)
		if !ok {
			continue
		}
		hdr := fimg.Header()
		axes := slices.Clone(hdr.Axes())
		if len(axes) == 0 {
			continue
		}

		header := decodeHeader(hdr)
		data, err := decodePixels(fimg.Raw(), hdr.Bitpix(), header)
		if err != nil {
			return nil, errors.New(err).
				Component(component).
				Category(errors.CategoryFileParsing).
				FileContext(path, size).
				Context("extension", name).
				Build()
		}
		n := product(axes)
		if len(data) < n {
			return nil, errors.Newf("extension %s holds %d values, axes %v need %d", name, len(data), axes, n).
				Component(component).
				Category(errors.CategoryFileParsing).
				FileContext(path, size).
				Build()
		}
		data = data[:n]

		p.images[name] = &Image{Name: name, Header: header, Axes: axes, Data: data}
		p.order = append(p.order, name)
	}

	for name := range want {
		if _, ok := p.images[name]; !ok {
			return nil, errors.Newf("extension %s not found in %s", name, path).
				Component(component).
				Category(errors.CategoryFileParsing).
				Context("extension", name).
				Build()
		}
	}

	return p, nil
}

// ReadHeader decodes only the primary header of path.
func ReadHeader(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.FileError(err, path, 0)
	}
	defer f.Close()

	ff, err := fitsio.Open(f)
	if err != nil {
		return nil, errors.New(err).
			Component(component).
			Category(errors.CategoryFileParsing).
			Context("file", path).
			Build()
	}
	defer ff.Close()

	hdus := ff.HDUs()
	if len(hdus) == 0 {
		return nil, errors.Newf("%s has no header data units", path).
			Component(component).
			Category(errors.CategoryFileParsing).
			Build()
	}
	return decodeHeader(hdus[0].Header()), nil
}

func decodeHeader(hdr *fitsio.Header) Header {
	out := make(Header)
	for _, key := range hdr.Keys() {
		card := hdr.Get(key)
		if card == nil {
			continue
		}
		switch v := card.Value.(type) {
		case string:
			out[key] = strings.TrimRight(v, " ")
		case int:
			out[key] = v
		case int64:
			out[key] = v
		case float64:
			out[key] = v
		case bool:
			out[key] = v
		}
	}
	return out
}

// decodePixels converts big-endian raw data to physical values using
// BSCALE and BZERO.
func decodePixels(raw []byte, bitpix int, h Header) ([]float64, error) {
	width := abs(bitpix) / 8
	if width == 0 || len(raw)%width != 0 {
		return nil, &BitpixError{Bitpix: bitpix, Bytes: len(raw)}
	}
	n := len(raw) / width
	out := make([]float64, n)

	be := binary.BigEndian
	switch bitpix {
	case 8:
		for i := range n {
			out[i] = float64(raw[i])
		}
	case 16:
		for i := range n {
			out[i] = float64(int16(be.Uint16(raw[2*i:])))
		}
	case 32:
		for i := range n {
			out[i] = float64(int32(be.Uint32(raw[4*i:])))
		}
	case 64:
		for i := range n {
			out[i] = float64(int64(be.Uint64(raw[8*i:])))
		}
	case -32:
		for i := range n {
			out[i] = float64(math.Float32frombits(be.Uint32(raw[4*i:])))
		}
	case -64:
		for i := range n {
			out[i] = math.Float64frombits(be.Uint64(raw[8*i:]))
		}
	default:
		return nil, &BitpixError{Bitpix: bitpix, Bytes: len(raw)}
	}

	scale, hasScale, err := h.Float("BSCALE")
	if err != nil {
		return nil, err
	}
	zero, hasZero, err := h.Float("BZERO")
	if err != nil {
		return nil, err
	}
	if !hasScale {
		scale = 1
	}
	if (hasScale && scale != 1) || (hasZero && zero != 0) {
		for i, v := range out {
			out[i] = v*scale + zero
		}
	}
	return out, nil
}

// BitpixError reports raw data that cannot be decoded.
type BitpixError struct {
	Bitpix int
	Bytes  int
}

func (e *BitpixError) Error() string {
	return "cannot decode " + itoa(e.Bytes) + " bytes with BITPIX " + itoa(e.Bitpix)
}

func product(axes []int) int {
	n := 1
	for _, a := range axes {
		n *= a
	}
	return n
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
