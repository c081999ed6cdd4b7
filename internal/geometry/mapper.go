package geometry

import (
	"fmt"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/miri-pixeldb/internal/errors"
)

// Mapping is the result of mapping a window onto the lattice. Both ID
// sequences are in row-major scan order of the window.
type Mapping struct {
	Window       Window
	DataIDs      []int64
	ReferenceIDs []int64
}

// FirstDataID returns the pixel ID of the window's first imaging pixel.
func (m *Mapping) FirstDataID() int64 {
	if len(m.DataIDs) == 0 {
		return 0
	}
	return m.DataIDs[0]
}

// Mapper maps windows onto a lattice. Results are memoized per window and
// shared between callers, who must not modify them.
type Mapper struct {
	lattice *Lattice
	cache   *cache.Cache
}

// NewMapper creates a mapper over l.
func NewMapper(l *Lattice) *Mapper {
	return &Mapper{
		lattice: l,
		// No expiry and no janitor goroutine; the set of windows is small.
		cache: cache.New(cache.NoExpiration, 0),
	}
}

// Lattice returns the lattice the mapper slices.
func (m *Mapper) Lattice() *Lattice {
	return m.lattice
}

// Map returns the imaging and reference pixel IDs inside w.
func (m *Mapper) Map(w Window) (*Mapping, error) {
	key := fmt.Sprintf("%d:%d:%d:%d", w.X, w.Y, w.Width, w.Height)
	if cached, ok := m.cache.Get(key); ok {
		if mapping, ok := cached.(*Mapping); ok {
			return mapping, nil
		}
	}

	mapping, err := m.mapWindow(w)
	if err != nil {
		return nil, err
	}

	m.cache.Set(key, mapping, cache.NoExpiration)
	return mapping, nil
}

func (m *Mapper) mapWindow(w Window) (*Mapping, error) {
	f := m.lattice.frame

	if w.Width < 1 || w.Height < 1 {
		return nil, errors.Configuration(component, "window size %dx%d must be positive", w.Width, w.Height)
	}
	if w.X < 1 || w.Y < 1 {
		return nil, errors.Configuration(component, "window origin (%d,%d) must be 1-based", w.X, w.Y)
	}

	p1x, p1y := w.X-1, w.Y-1
	p2x, p2y := p1x+w.Width, p1y+w.Height
	c0, c1 := f.MappedColumn(p1x), f.MappedColumn(p2x)

	if p2y > m.lattice.height || c1 > m.lattice.width {
		return nil, errors.Configuration(component,
			"window origin (%d,%d) size %dx%d exceeds the %dx%d imaging area",
			w.X, w.Y, w.Width, w.Height, f.Cols, f.ImagingRows())
	}

	refCols := 0
	for c := c0; c < c1; c++ {
		if f.IsReferenceColumn(c) {
			refCols++
		}
	}

	mapping := &Mapping{
		Window:       w,
		DataIDs:      make([]int64, 0, w.Width*w.Height),
		ReferenceIDs: make([]int64, 0, refCols*w.Height),
	}

	for r := p1y; r < p2y; r++ {
		row := m.lattice.Row(r)
		for c := c0; c < c1; c++ {
			if f.IsReferenceColumn(c) {
				mapping.ReferenceIDs = append(mapping.ReferenceIDs, row[c])
			} else {
				mapping.DataIDs = append(mapping.DataIDs, row[c])
			}
		}
	}

	if len(mapping.DataIDs) != w.Width*w.Height {
		return nil, errors.Configuration(component, "window %+v mapped to %d data pixels, expected %d",
			w, len(mapping.DataIDs), w.Width*w.Height)
	}

	return mapping, nil
}
