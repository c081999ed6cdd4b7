package testutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const fitsBlock = 2880

// Card is one header keyword. Value may be string, bool, int or float64.
type Card struct {
	Key   string
	Value any
}

// ImageHDU describes an image extension for WriteFITS. Axes are NAXIS1
// first; Data holds stored (unscaled) values in file order.
type ImageHDU struct {
	Name   string
	Bitpix int
	Axes   []int
	Data   []float64
	Cards  []Card
}

// WriteFITS writes a minimal FITS file with a data-less primary HDU and the
// given image extensions, and returns its path.
func WriteFITS(t *testing.T, dir, name string, primary []Card, exts ...ImageHDU) string {
	t.Helper()

	var buf bytes.Buffer
	head := []Card{
		{"SIMPLE", true},
		{"BITPIX", 8},
		{"NAXIS", 0},
		{"EXTEND", true},
	}
	writeHeader(t, &buf, append(head, primary...))

	for _, ext := range exts {
		cards := []Card{
			{"XTENSION", "IMAGE"},
			{"BITPIX", ext.Bitpix},
			{"NAXIS", len(ext.Axes)},
		}
		for i, a := range ext.Axes {
			cards = append(cards, Card{"NAXIS" + strconv.Itoa(i+1), a})
		}
		cards = append(cards, Card{"PCOUNT", 0}, Card{"GCOUNT", 1}, Card{"EXTNAME", ext.Name})
		writeHeader(t, &buf, append(cards, ext.Cards...))
		writeData(t, &buf, ext.Bitpix, ext.Data)
	}

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func writeHeader(t *testing.T, buf *bytes.Buffer, cards []Card) {
	t.Helper()
	start := buf.Len()
	for _, c := range cards {
		buf.WriteString(formatCard(t, c))
	}
	buf.WriteString(fmt.Sprintf("%-80s", "END"))
	pad(buf, start, ' ')
}

func formatCard(t *testing.T, c Card) string {
	t.Helper()
	var val string
	switch v := c.Value.(type) {
	case string:
		quoted := "'" + fmt.Sprintf("%-8s", strings.ReplaceAll(v, "'", "''")) + "'"
		val = fmt.Sprintf("%-20s", quoted)
	case bool:
		val = fmt.Sprintf("%20s", map[bool]string{true: "T", false: "F"}[v])
	case int:
		val = fmt.Sprintf("%20d", v)
	case float64:
		val = fmt.Sprintf("%20s", strconv.FormatFloat(v, 'E', -1, 64))
	default:
		require.Failf(t, "unsupported card value", "%s: %T", c.Key, c.Value)
	}
	card := fmt.Sprintf("%-8s= %s", c.Key, val)
	require.LessOrEqual(t, len(card), 80, "card %s too long", c.Key)
	return fmt.Sprintf("%-80s", card)
}

func writeData(t *testing.T, buf *bytes.Buffer, bitpix int, data []float64) {
	t.Helper()
	start := buf.Len()
	be := binary.BigEndian
	for _, v := range data {
		switch bitpix {
		case 8:
			buf.WriteByte(byte(v))
		case 16:
			buf.Write(be.AppendUint16(nil, uint16(int16(v))))
		case 32:
			buf.Write(be.AppendUint32(nil, uint32(int32(v))))
		case 64:
			buf.Write(be.AppendUint64(nil, uint64(int64(v))))
		case -32:
			buf.Write(be.AppendUint32(nil, math.Float32bits(float32(v))))
		case -64:
			buf.Write(be.AppendUint64(nil, math.Float64bits(v)))
		default:
			require.Failf(t, "unsupported BITPIX", "%d", bitpix)
		}
	}
	pad(buf, start, 0)
}

func pad(buf *bytes.Buffer, start int, b byte) {
	if rem := (buf.Len() - start) % fitsBlock; rem != 0 {
		buf.Write(bytes.Repeat([]byte{b}, fitsBlock-rem))
	}
}
