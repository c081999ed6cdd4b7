package exposure

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/miri-pixeldb/internal/errors"
	"github.com/tphakala/miri-pixeldb/internal/fitsfile"
	"github.com/tphakala/miri-pixeldb/internal/geometry"
	"github.com/tphakala/miri-pixeldb/internal/logger"
)

func rawHeader() fitsfile.Header {
	return fitsfile.Header{
		"FILENAME": "MIRI_5604_137_S_20191023-104510_SCE1_pipe.fits",
		"SCA_ID":   493,
		"NGROUPS":  50,
		"NINTS":    5,
		"READPATT": "FAST",
		"SUBARRAY": "SUB64",
		"DATE-OBS": "2019-10-23",
		"TIME-OBS": "10:45:10.250",
		"DATE-END": "yyyy-mm-dd",
		"TIME-END": "hh:mm:ss",
		"EXPTIME":  694.0,
		"INTTIME":  138.8,
		"SUBSTRT1": 1,
		"SUBSTRT2": 779,
		"SUBSIZE1": 72,
		"SUBSIZE2": 64,
	}
}

func newTestParser(w io.Writer) *Parser {
	if w == nil {
		w = io.Discard
	}
	return NewParser(nil, nil, geometry.NewSubarrayTable(), logger.NewSlogLogger(w, logger.LogLevelDebug, nil))
}

func TestParseExposure(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := newTestParser(&buf)

	m, err := p.Exposure(rawHeader(), "x_pipe.fits", "jpl")
	require.NoError(t, err)

	assert.Equal(t, "MIRI_5604_137_S_20191023-104510_SCE1_pipe.fits", m.FileName)
	assert.Equal(t, ProvenanceJPL, m.Provenance)
	assert.Equal(t, 493, m.SCAID)
	assert.Equal(t, 50, m.Groups)
	assert.Equal(t, 5, m.Ints)
	assert.Equal(t, "SUB64", m.Subarray)
	assert.Equal(t, geometry.Window{X: 1, Y: 779, Width: 72, Height: 64}, m.Window)
	assert.Equal(t, time.Date(2019, 10, 23, 10, 45, 10, 250_000_000, time.UTC), m.Start)
	assert.Equal(t, SentinelTime, m.End)
	assert.InDelta(t, 138.8, m.IntegrationTime, 1e-9)

	assert.Contains(t, buf.String(), "using sentinel timestamp")
	assert.NotContains(t, buf.String(), "subarray name does not match window")
}

func TestParseExposureMissingKeywords(t *testing.T) {
	t.Parallel()

	p := newTestParser(nil)
	for _, key := range []string{"NGROUPS", "NINTS", "READPATT", "SUBARRAY", "SCA_ID", "FILENAME", "EXPTIME", "SUBSIZE2"} {
		t.Run(key, func(t *testing.T) {
			t.Parallel()
			h := rawHeader()
			delete(h, key)
			_, err := p.Exposure(h, "x_pipe.fits", "JPL")
			require.ErrorIs(t, err, errors.ErrMissingMetadata)
			assert.True(t, errors.IsCategory(err, errors.CategoryMissingMetadata))
		})
	}
}

func TestParseExposureMissingTimestampsUseSentinel(t *testing.T) {
	t.Parallel()

	h := rawHeader()
	delete(h, "DATE-OBS")
	delete(h, "TIME-END")

	m, err := newTestParser(nil).Exposure(h, "x_pipe.fits", "OTIS")
	require.NoError(t, err)
	assert.Equal(t, SentinelTime, m.Start)
	assert.Equal(t, SentinelTime, m.End)
}

func TestParseExposureRejects(t *testing.T) {
	t.Parallel()

	p := newTestParser(nil)

	_, err := p.Exposure(rawHeader(), "x_pipe.fits", "LAB")
	require.ErrorIs(t, err, errors.ErrConfiguration)

	h := rawHeader()
	h["NGROUPS"] = 0
	_, err = p.Exposure(h, "x_pipe.fits", "JPL")
	require.ErrorIs(t, err, errors.ErrConfiguration)

	h = rawHeader()
	h["SCA_ID"] = 101
	_, err = p.Exposure(h, "x_pipe.fits", "JPL")
	require.ErrorIs(t, err, errors.ErrConfiguration)

	h = rawHeader()
	h["NINTS"] = "five"
	_, err = p.Exposure(h, "x_pipe.fits", "JPL")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))
}

func TestParseExposureWarnsOnSubarrayMismatch(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := rawHeader()
	h["SUBARRAY"] = "SUB128"

	m, err := newTestParser(&buf).Exposure(h, "x_pipe.fits", "JPL")
	require.NoError(t, err)
	assert.Equal(t, "SUB128", m.Subarray)
	assert.Contains(t, buf.String(), "subarray name does not match window")
}

func TestProvenanceCustomList(t *testing.T) {
	t.Parallel()

	p := NewParser([]string{" lab "}, nil, nil, logger.NewSlogLogger(io.Discard, logger.LogLevelInfo, nil))
	tag, err := p.Provenance("Lab")
	require.NoError(t, err)
	assert.Equal(t, "LAB", tag)

	_, err = p.Provenance("JPL")
	require.ErrorIs(t, err, errors.ErrConfiguration)

	d, ok := p.Detector(495)
	require.True(t, ok)
	assert.Equal(t, "MIRIFUSHORT", d.Name)
}

func TestParseCorrected(t *testing.T) {
	t.Parallel()

	h := fitsfile.Header{
		"FILENAME": "x_pipe_ramp.fits",
		"CAL_VER":  "0.13.7",
		"CRDS_VER": "7.2.0",
		"CAL_VCS":  "RELEASE",
		"S_DARK":   "SKIPPED",
		"S_DQINIT": "COMPLETE",
		"S_LINEAR": "COMPLETE",
		"S_SATURA": "COMPLETE",
		"R_LINEAR": "crds://jwst_miri_linearity_0024.fits",
		"R_MASK":   "",
	}

	m, err := ParseCorrected(h, "x_pipe_ramp.fits")
	require.NoError(t, err)
	assert.Equal(t, "0.13.7", m.CalVersion)
	assert.Equal(t, Steps{DQInit: true, Linearity: true, Saturation: true}, m.Steps)
	assert.Equal(t, "crds://jwst_miri_linearity_0024.fits", m.References.Linearity)
	assert.Equal(t, NotApplicable, m.References.Mask)
	assert.Equal(t, NotApplicable, m.References.Dark)

	delete(h, "CRDS_VER")
	_, err = ParseCorrected(h, "x_pipe_ramp.fits")
	require.ErrorIs(t, err, errors.ErrMissingMetadata)
}

func TestNaming(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "X_pipe.fits", PipelineReadyName("X.fits"))
	assert.Equal(t, "X_pipe.fits", PipelineReadyName("X_pipe.fits"))
	assert.Equal(t, "X_pipe_ramp.fits", CorrectedRampName("X_pipe.fits"))
	assert.Equal(t, "/out/X_pipe_ramp.fits", CorrectedRampPath("/out", "/data/X_pipe.fits"))
	assert.Equal(t, "/data/X_pipe_ramp.fits", CorrectedRampPath("", "/data/X_pipe.fits"))
	assert.Equal(t, "/out/X_pipe_rate.fits", SlopeName("/out/X_pipe_ramp.fits", 1))
	assert.Equal(t, "/out/X_pipe_rateints.fits", SlopeName("/out/X_pipe_ramp.fits", 5))
	assert.Equal(t, "X_pipe.fits", RawName("/out/X_pipe_ramp.fits"))
}
