package geometry

// Lattice is the interleaved readout addressing space: ImagingRows rows by
// InterleavedCols columns, each cell holding a full-frame pixel ID. It is
// immutable after construction and safe for concurrent reads.
type Lattice struct {
	frame  Frame
	width  int
	height int
	ids    []int64 // row-major
}

// NewLattice builds the interleaved lattice for a validated frame.
func NewLattice(f Frame) (*Lattice, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	p := f.DataColumnsPerReference
	l := &Lattice{
		frame:  f,
		width:  f.InterleavedCols(),
		height: f.ImagingRows(),
	}
	l.ids = make([]int64, l.width*l.height)

	for r := range l.height {
		row := l.ids[r*l.width : (r+1)*l.width]
		col := 0
		for k := range f.ReferenceColumns() {
			for j := range p {
				row[col] = f.PixelID(r, k*p+j)
				col++
			}
			row[col] = f.ReferencePixelID(k, r)
			col++
		}
	}

	return l, nil
}

// Frame returns the geometry the lattice was built from.
func (l *Lattice) Frame() Frame {
	return l.frame
}

// Width is the number of interleaved columns.
func (l *Lattice) Width() int {
	return l.width
}

// Height is the number of imaging rows.
func (l *Lattice) Height() int {
	return l.height
}

// At returns the pixel ID at 0-based interleaved (row, col).
func (l *Lattice) At(row, col int) int64 {
	return l.ids[row*l.width+col]
}

// Row returns a read-only view of one interleaved row.
func (l *Lattice) Row(row int) []int64 {
	return l.ids[row*l.width : (row+1)*l.width]
}

// Len is the number of cells, equal to the full-frame pixel count.
func (l *Lattice) Len() int {
	return len(l.ids)
}
