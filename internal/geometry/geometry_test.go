package geometry

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/miri-pixeldb/internal/errors"
)

// smallFrame is an 8x8 imaging area with two reference rows, which reshape
// into two reference columns of height 8.
func smallFrame() Frame {
	return Frame{Rows: 10, Cols: 8, ReferenceRows: 2, DataColumnsPerReference: 4}
}

func TestFrameValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		frame   Frame
		wantErr bool
	}{
		{"miri", MIRIFrame(), false},
		{"small", smallFrame(), false},
		{"columns not divisible", Frame{Rows: 10, Cols: 9, ReferenceRows: 2, DataColumnsPerReference: 4}, true},
		{"reference columns mismatch", Frame{Rows: 12, Cols: 8, ReferenceRows: 4, DataColumnsPerReference: 4}, true},
		{"no reference rows", Frame{Rows: 8, Cols: 8, ReferenceRows: 0, DataColumnsPerReference: 4}, true},
		{"zero period", Frame{Rows: 10, Cols: 8, ReferenceRows: 2, DataColumnsPerReference: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.frame.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrConfiguration)
		})
	}
}

func TestMIRIFrameDimensions(t *testing.T) {
	t.Parallel()

	f := MIRIFrame()
	assert.Equal(t, 1024, f.ImagingRows())
	assert.Equal(t, 258, f.ReferenceColumns())
	assert.Equal(t, 1290, f.InterleavedCols())
	assert.Equal(t, 1280*1032, f.PixelCount())
}

func TestLatticeIsDensePermutation(t *testing.T) {
	t.Parallel()

	for _, f := range []Frame{smallFrame(), MIRIFrame()} {
		l, err := NewLattice(f)
		require.NoError(t, err)
		require.Equal(t, f.PixelCount(), l.Len())

		seen := make([]bool, f.PixelCount()+1)
		for r := range l.Height() {
			for _, id := range l.Row(r) {
				if id < 1 || id > int64(f.PixelCount()) {
					t.Fatalf("id %d out of range", id)
				}
				if seen[id] {
					t.Fatalf("id %d repeated", id)
				}
				seen[id] = true
			}
		}
	}
}

func TestLatticeLayout(t *testing.T) {
	t.Parallel()

	l, err := NewLattice(smallFrame())
	require.NoError(t, err)

	assert.Equal(t, 10, l.Width())
	assert.Equal(t, 8, l.Height())

	want := []int64{1, 2, 3, 4, 65, 5, 6, 7, 8, 73}
	if diff := cmp.Diff(want, l.Row(0)); diff != "" {
		t.Errorf("row 0 mismatch (-want +got):\n%s", diff)
	}
	want = []int64{57, 58, 59, 60, 72, 61, 62, 63, 64, 80}
	if diff := cmp.Diff(want, l.Row(7)); diff != "" {
		t.Errorf("row 7 mismatch (-want +got):\n%s", diff)
	}
}

func TestFramePosition(t *testing.T) {
	t.Parallel()

	f := smallFrame()
	row, col, ref := f.Position(1)
	assert.Equal(t, []any{1, 1, false}, []any{row, col, ref})

	row, col, ref = f.Position(64)
	assert.Equal(t, []any{8, 8, false}, []any{row, col, ref})

	row, col, ref = f.Position(65)
	assert.Equal(t, []any{9, 1, true}, []any{row, col, ref})

	row, col, ref = f.Position(80)
	assert.Equal(t, []any{10, 8, true}, []any{row, col, ref})
}

func TestMapperSmallWindows(t *testing.T) {
	t.Parallel()

	l, err := NewLattice(smallFrame())
	require.NoError(t, err)
	m := NewMapper(l)

	tests := []struct {
		name     string
		window   Window
		wantData []int64
		wantRef  []int64
	}{
		{
			name:     "inside one column group",
			window:   Window{X: 2, Y: 1, Width: 2, Height: 2},
			wantData: []int64{2, 3, 10, 11},
			wantRef:  []int64{},
		},
		{
			name:     "first group with trailing reference column",
			window:   Window{X: 1, Y: 2, Width: 4, Height: 2},
			wantData: []int64{9, 10, 11, 12, 17, 18, 19, 20},
			wantRef:  []int64{66, 67},
		},
		{
			name:     "crossing a reference column",
			window:   Window{X: 3, Y: 1, Width: 4, Height: 1},
			wantData: []int64{3, 4, 5, 6},
			wantRef:  []int64{65},
		},
		{
			name:     "second group only",
			window:   Window{X: 6, Y: 8, Width: 2, Height: 1},
			wantData: []int64{62, 63},
			wantRef:  []int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mapping, err := m.Map(tt.window)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.wantData, mapping.DataIDs); diff != "" {
				t.Errorf("data ids (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantRef, mapping.ReferenceIDs); diff != "" {
				t.Errorf("reference ids (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMapperFullSmallFrame(t *testing.T) {
	t.Parallel()

	l, err := NewLattice(smallFrame())
	require.NoError(t, err)

	mapping, err := NewMapper(l).Map(Window{X: 1, Y: 1, Width: 8, Height: 8})
	require.NoError(t, err)

	require.Len(t, mapping.DataIDs, 64)
	for i, id := range mapping.DataIDs {
		assert.Equal(t, int64(i+1), id)
	}
	require.Len(t, mapping.ReferenceIDs, 16)
	assert.Equal(t, []int64{65, 73, 66, 74}, mapping.ReferenceIDs[:4])
}

func TestMapperMIRISubarrays(t *testing.T) {
	t.Parallel()

	l, err := NewLattice(MIRIFrame())
	require.NoError(t, err)
	m := NewMapper(l)
	f := l.Frame()

	for _, sa := range DefaultSubarrays {
		t.Run(sa.Name, func(t *testing.T) {
			t.Parallel()
			mapping, err := m.Map(sa.Window)
			require.NoError(t, err)
			assert.Len(t, mapping.DataIDs, sa.Width*sa.Height)

			// first data pixel sits at the window origin on the full frame
			assert.Equal(t, f.PixelID(sa.Y-1, sa.X-1), mapping.FirstDataID())

			for _, id := range mapping.DataIDs {
				_, _, ref := f.Position(id)
				require.False(t, ref)
			}
			for _, id := range mapping.ReferenceIDs {
				_, _, ref := f.Position(id)
				require.True(t, ref)
			}
		})
	}
}

func TestMapperSUB64(t *testing.T) {
	t.Parallel()

	l, err := NewLattice(MIRIFrame())
	require.NoError(t, err)

	w, ok := NewSubarrayTable().Lookup("SUB64")
	require.True(t, ok)

	mapping, err := NewMapper(l).Map(w)
	require.NoError(t, err)
	assert.Len(t, mapping.DataIDs, 4608)
	assert.Equal(t, int64(802897), mapping.FirstDataID())
	assert.Len(t, mapping.ReferenceIDs, 18*64)
}

func TestMapperFullFrameCoversImagingArea(t *testing.T) {
	t.Parallel()

	l, err := NewLattice(MIRIFrame())
	require.NoError(t, err)

	mapping, err := NewMapper(l).Map(Window{X: 1, Y: 1, Width: 1032, Height: 1024})
	require.NoError(t, err)
	assert.Len(t, mapping.DataIDs, 1032*1024)
	assert.Len(t, mapping.ReferenceIDs, 256*1032)
}

func TestMapperErrors(t *testing.T) {
	t.Parallel()

	l, err := NewLattice(smallFrame())
	require.NoError(t, err)
	m := NewMapper(l)

	for _, w := range []Window{
		{X: 1, Y: 1, Width: 0, Height: 2},
		{X: 0, Y: 1, Width: 2, Height: 2},
		{X: 1, Y: 8, Width: 2, Height: 2},
		{X: 5, Y: 1, Width: 8, Height: 1},
	} {
		_, err := m.Map(w)
		require.Error(t, err, "window %+v", w)
		assert.ErrorIs(t, err, errors.ErrConfiguration)
	}
}

func TestMapperCacheConcurrent(t *testing.T) {
	t.Parallel()

	l, err := NewLattice(smallFrame())
	require.NoError(t, err)
	m := NewMapper(l)
	w := Window{X: 1, Y: 1, Width: 8, Height: 8}

	var wg sync.WaitGroup
	results := make([]*Mapping, 8)
	for i := range results {
		wg.Go(func() {
			mapping, err := m.Map(w)
			assert.NoError(t, err)
			results[i] = mapping
		})
	}
	wg.Wait()

	again, err := m.Map(w)
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, again.DataIDs, r.DataIDs)
	}
}

func TestSubarrayTable(t *testing.T) {
	t.Parallel()

	table := NewSubarrayTable(Subarray{Name: "custom", Window: Window{X: 5, Y: 5, Width: 16, Height: 16}})

	w, ok := table.Lookup("sub128")
	require.True(t, ok)
	assert.Equal(t, Window{X: 1, Y: 889, Width: 136, Height: 128}, w)

	assert.Equal(t, "BRIGHTSKY", table.Identify(Window{X: 457, Y: 51, Width: 512, Height: 512}))
	assert.Equal(t, "CUSTOM", table.Identify(Window{X: 5, Y: 5, Width: 16, Height: 16}))
	assert.Equal(t, GenericSubarray, table.Identify(Window{X: 2, Y: 2, Width: 3, Height: 3}))

	_, ok = table.Lookup("NOPE")
	assert.False(t, ok)
	assert.Len(t, table.All(), len(DefaultSubarrays)+1)
}
