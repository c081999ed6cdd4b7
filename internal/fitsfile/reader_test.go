package fitsfile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/miri-pixeldb/internal/cube"
	"github.com/tphakala/miri-pixeldb/internal/errors"
	"github.com/tphakala/miri-pixeldb/internal/testutil"
)

func TestReadRampProduct(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	// unsigned 16-bit counts stored with the usual BZERO offset
	physical := []float64{
		0, 1, 2, 3, 4, 5, // int 0, group 0
		10, 11, 12, 13, 14, 65535, // int 0, group 1
	}
	stored := make([]float64, len(physical))
	for i, v := range physical {
		stored[i] = v - 32768
	}

	path := testutil.WriteFITS(t, dir, "x_pipe.fits",
		[]testutil.Card{
			{Key: "NGROUPS", Value: 2},
			{Key: "NINTS", Value: 1},
			{Key: "READPATT", Value: "FAST"},
			{Key: "EXPTIME", Value: 2.775},
		},
		testutil.ImageHDU{
			Name:   "SCI",
			Bitpix: 16,
			Axes:   []int{3, 2, 2, 1},
			Data:   stored,
			Cards:  []testutil.Card{{Key: "BZERO", Value: 32768}, {Key: "BSCALE", Value: 1}},
		},
		testutil.ImageHDU{
			Name:   "REFOUT",
			Bitpix: -32,
			Axes:   []int{2, 1},
			Data:   []float64{0.5, -1.25},
		},
	)

	p, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"SCI", "REFOUT"}, p.Extensions())

	n, ok, err := p.Primary.Int("NGROUPS")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, n)

	patt, ok := p.Primary.String("READPATT")
	require.True(t, ok)
	assert.Equal(t, "FAST", patt)

	exptime, ok, err := p.Primary.Float("EXPTIME")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 2.775, exptime, 1e-9)

	sci, err := p.Extension("sci")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 2, 1}, sci.Axes)
	assert.Equal(t, physical, sci.Data)

	c, err := sci.Cube()
	require.NoError(t, err)
	assert.Equal(t, cube.Shape{Ints: 1, Groups: 2, Rows: 2, Cols: 3}, c.Shape)

	ref, err := p.Extension("REFOUT")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -1.25}, ref.Data)
}

func TestReadSelectedExtensions(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	path := testutil.WriteFITS(t, dir, "x_rateints.fits", nil,
		testutil.ImageHDU{Name: "SCI", Bitpix: -32, Axes: []int{2, 2, 3}, Data: make([]float64, 12)},
		testutil.ImageHDU{Name: "DQ", Bitpix: 32, Axes: []int{2, 2, 3}, Data: make([]float64, 12)},
	)

	p, err := Read(path, "SCI")
	require.NoError(t, err)
	assert.Equal(t, []string{"SCI"}, p.Extensions())

	sci, err := p.Extension("SCI")
	require.NoError(t, err)
	c, err := sci.Cube()
	require.NoError(t, err)
	assert.Equal(t, cube.Shape{Ints: 3, Groups: 1, Rows: 2, Cols: 2}, c.Shape)

	_, err = p.Extension("DQ")
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))

	_, err = Read(path, "SCI", "PIXELDQ")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))
}

func TestReadHeader(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	path := testutil.WriteFITS(t, dir, "x.fits",
		[]testutil.Card{{Key: "SUBARRAY", Value: "SUB64"}, {Key: "S_DARK", Value: "COMPLETE"}})

	h, err := ReadHeader(path)
	require.NoError(t, err)
	sub, ok := h.String("SUBARRAY")
	require.True(t, ok)
	assert.Equal(t, "SUB64", sub)
	step, _ := h.String("S_DARK")
	assert.Equal(t, "COMPLETE", step)

	_, err = ReadHeader(dir + "/missing.fits")
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}

func TestDecodePixels(t *testing.T) {
	t.Parallel()

	got, err := decodePixels([]byte{0x00, 0x02, 0xff, 0xfe}, 16, Header{"BSCALE": 0.5, "BZERO": 10})
	require.NoError(t, err)
	assert.Equal(t, []float64{11, 9}, got)

	got, err = decodePixels([]byte{0x7f, 0xc0, 0x00, 0x00}, -32, Header{})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got[0]))

	_, err = decodePixels([]byte{1, 2, 3}, 16, Header{})
	var bpe *BitpixError
	require.ErrorAs(t, err, &bpe)

	_, err = decodePixels([]byte{1, 2}, 12, Header{})
	require.ErrorAs(t, err, &bpe)

	_, err = decodePixels([]byte{1}, 8, Header{"BZERO": "x"})
	var ve *ValueError
	require.ErrorAs(t, err, &ve)
}

func TestHeaderCoercion(t *testing.T) {
	t.Parallel()

	h := Header{"A": 3.0, "B": 3.5, "C": " 12 ", "D": true, "E": int64(7)}

	n, ok, err := h.Int("A")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok, err = h.Int("B")
	assert.True(t, ok)
	require.Error(t, err)

	n, _, err = h.Int("C")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, _, err = h.Int("D")
	require.Error(t, err)

	n, _, err = h.Int("E")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, ok, err = h.Int("MISSING")
	require.NoError(t, err)
	assert.False(t, ok)

	s, ok := h.String("D")
	assert.True(t, ok)
	assert.Equal(t, "true", s)
}
