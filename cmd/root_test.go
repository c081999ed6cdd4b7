package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/miri-pixeldb/internal/buildinfo"
	"github.com/tphakala/miri-pixeldb/internal/datastore"
	"github.com/tphakala/miri-pixeldb/internal/errors"
)

const testConfig = `
logging:
  default_level: error
  console:
    enabled: true
    level: error
database:
  sqlite:
    path: %DB%
geometry:
  rows: 10
  cols: 8
  reference_rows: 2
  data_columns_per_reference: 4
  subarrays:
    - name: tiny
      origin_x: 1
      origin_y: 1
      width: 4
      height: 2
`

// writeConfig writes a small-frame configuration and returns its path.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	body := bytes.ReplaceAll([]byte(testConfig), []byte("%DB%"), []byte(filepath.Join(dir, "miri.db")))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, body, 0o600))
	return path
}

// execute runs the root command with args on a fresh viper instance.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	root := RootCommand(buildinfo.NewContext("test", ""))
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

func TestInitIsIdempotent(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "--config", cfg, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 3 detectors, 80 pixels, 31 flags")

	out, err = execute(t, "--config", cfg, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 0 detectors, 0 pixels, 0 flags")
}

func TestSubarrayUsesConfiguredTable(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "--config", cfg, "subarray", "tiny")
	require.NoError(t, err)
	assert.Regexp(t, `SUBARRAY\s+TINY\n`, out)
	assert.Regexp(t, `IMAGING PIXELS\s+8\n`, out)
	assert.Regexp(t, `REFERENCE PIXELS\s+2\n`, out)
	assert.Regexp(t, `PIXEL IDS\s+1 \.\. 12\n`, out)

	out, err = execute(t, "--config", cfg, "subarray")
	require.NoError(t, err)
	assert.Contains(t, out, "SUB64")
	assert.Contains(t, out, "TINY")

	_, err = execute(t, "--config", cfg, "subarray", "1", "2")
	require.Error(t, err)

	_, err = execute(t, "--config", cfg, "subarray", "NOPE")
	require.ErrorIs(t, err, errors.ErrConfiguration)
}

func TestDQDecodesCodes(t *testing.T) {
	out, err := execute(t, "dq", "6", "0", "0x80000")
	require.NoError(t, err)
	assert.Regexp(t, `\n6\s+saturated,jump_det\n`, out)
	assert.Regexp(t, `\n0\s+-\n`, out)
	assert.Regexp(t, `\n524288\s+no_gain_value\n`, out)

	_, err = execute(t, "dq", "0x80000000")
	require.ErrorIs(t, err, errors.ErrConfiguration)

	_, err = execute(t, "dq", "abc")
	require.ErrorIs(t, err, errors.ErrConfiguration)
}

func TestConfigHonoursFlags(t *testing.T) {
	cfg := writeConfig(t)
	override := filepath.Join(t.TempDir(), "other.db")

	out, err := execute(t, "--config", cfg, "--db-path", override, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "# loaded from "+cfg)
	assert.Contains(t, out, "path: "+override)
	assert.Contains(t, out, "rows: 10")

	out, err = execute(t, "--config", cfg, "config", "--default")
	require.NoError(t, err)
	assert.Contains(t, out, "calibration:")
}

func TestMissingExposure(t *testing.T) {
	cfg := writeConfig(t)
	_, err := execute(t, "--config", cfg, "init")
	require.NoError(t, err)

	out, err := execute(t, "--config", cfg, "stats")
	require.NoError(t, err)
	assert.Regexp(t, `493\s+MIRIMAGE\s+8x10\n`, out)
	assert.Contains(t, out, "no exposures stored")

	_, err = execute(t, "--config", cfg, "stats", "MIRI_NONE_pipe.fits")
	require.ErrorIs(t, err, datastore.ErrExposureNotFound)

	_, err = execute(t, "--config", cfg, "delete", "MIRI_NONE_pipe.fits")
	require.ErrorIs(t, err, datastore.ErrExposureNotFound)
}

func TestIngestReportsFailedFiles(t *testing.T) {
	cfg := writeConfig(t)
	missing := filepath.Join(t.TempDir(), "MIRI_MISSING_pipe.fits")

	out, err := execute(t, "--config", cfg, "ingest", "--provenance", "JPL", missing)
	require.Error(t, err)
	assert.Contains(t, out, missing)
	assert.Contains(t, out, "FAILED")
}
