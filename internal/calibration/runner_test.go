package calibration

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/miri-pixeldb/internal/conf"
	"github.com/tphakala/miri-pixeldb/internal/errors"
	"github.com/tphakala/miri-pixeldb/internal/logger"
	"github.com/tphakala/miri-pixeldb/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeStrun writes a script standing in for the calibration command. It
// records its arguments to args.txt and, unless told otherwise, creates the
// corrected ramp product for its input in the output directory.
func fakeStrun(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "strun.sh")
	content := "#!/bin/sh\n" +
		"echo \"$@\" > \"" + filepath.Join(dir, "args.txt") + "\"\n" +
		body + "\n"
	require.NoError(t, os.WriteFile(script, []byte(content), 0o755))
	return script
}

const writeRamp = `in="$1"; out="$2"
stem=$(basename "$in" .fits)
: > "$out/${stem}_ramp.fits"
: > "$out/${stem}_rateints.fits"`

func settings(script, outDir string) *conf.CalibrationSettings {
	return &conf.CalibrationSettings{
		Command:   "/bin/sh",
		Args:      []string{script, "{input}", "{output_dir}"},
		OutputDir: outDir,
		Timeout:   testutil.DefaultTestTimeout,
	}
}

func newRunner(cfg *conf.CalibrationSettings) *Runner {
	return NewRunner(cfg, logger.NewSlogLogger(nil, logger.LogLevelError, nil))
}

func TestArgsSubstitutionAndOverrides(t *testing.T) {
	t.Parallel()

	r := newRunner(&conf.CalibrationSettings{
		Command:   "strun",
		Args:      []string{"calwebb_detector1", "{input}", "--save_calibrated_ramp=True", "--output_dir={output_dir}"},
		OutputDir: "/data/out",
		SkipDark:  true,
		Overrides: conf.ReferenceOverrides{
			Linearity: "/refs/lin.fits",
			Mask:      "/refs/mask.fits",
			Dark:      "/refs/dark.fits",
		},
	})

	assert.Equal(t, []string{
		"calwebb_detector1",
		"/data/raw/exp_pipe.fits",
		"--save_calibrated_ramp=True",
		"--output_dir=/data/out",
		"--steps.linearity.override_linearity=/refs/lin.fits",
		"--steps.dq_init.override_mask=/refs/mask.fits",
		"--steps.dark_current.override_dark=/refs/dark.fits",
		"--steps.dark_current.skip=True",
	}, r.Args("/data/raw/exp_pipe.fits"))
}

func TestArgsDefaultOutputDirIsInputDir(t *testing.T) {
	t.Parallel()

	r := newRunner(&conf.CalibrationSettings{Command: "strun", Args: []string{"{input}", "--output_dir={output_dir}"}})
	assert.Equal(t, []string{"/data/raw/exp_pipe.fits", "--output_dir=/data/raw"}, r.Args("/data/raw/exp_pipe.fits"))

	ramp, slope := r.Products("/data/raw/exp_pipe.fits", 1)
	assert.Equal(t, "/data/raw/exp_pipe_ramp.fits", ramp)
	assert.Equal(t, "/data/raw/exp_pipe_rate.fits", slope)
}

func TestRunProducesCorrectedRamp(t *testing.T) {
	t.Parallel()

	script := fakeStrun(t, writeRamp)
	outDir := filepath.Join(t.TempDir(), "calibrated")
	cfg := settings(script, outDir)
	cfg.Overrides.RSCD = "/refs/rscd.fits"

	input := filepath.Join(t.TempDir(), "exp_pipe.fits")
	res := newRunner(cfg).Run(t.Context(), input, 2)

	require.NoError(t, res.Err)
	assert.False(t, res.Cached)
	assert.Equal(t, filepath.Join(outDir, "exp_pipe_ramp.fits"), res.CorrectedRamp)
	assert.Equal(t, filepath.Join(outDir, "exp_pipe_rateints.fits"), res.Slope)
	assert.FileExists(t, res.CorrectedRamp)
	assert.Positive(t, res.Duration)

	recorded, err := os.ReadFile(filepath.Join(filepath.Dir(script), "args.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(recorded), "--steps.rscd.override_rscd=/refs/rscd.fits")
}

func TestRunSkipsExistingCorrectedRamp(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "exp_pipe.fits")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "exp_pipe_ramp.fits"), nil, 0o600))

	cfg := settings("/nonexistent/strun.sh", "")
	cfg.Command = "/nonexistent/strun"
	res := newRunner(cfg).Run(t.Context(), input, 1)

	require.NoError(t, res.Err)
	assert.True(t, res.Cached)
	assert.Equal(t, filepath.Join(dir, "exp_pipe_rate.fits"), res.Slope)
}

func TestRunCommandFailure(t *testing.T) {
	t.Parallel()

	script := fakeStrun(t, `echo "reference file not found" >&2; exit 3`)
	res := newRunner(settings(script, t.TempDir())).Run(t.Context(), filepath.Join(t.TempDir(), "exp_pipe.fits"), 1)

	require.Error(t, res.Err)
	assert.True(t, errors.IsCategory(res.Err, errors.CategoryCommandExecution))
	assert.Contains(t, res.Err.Error(), "reference file not found")
	assert.Contains(t, res.Output, "reference file not found")
}

func TestRunMissingProduct(t *testing.T) {
	t.Parallel()

	script := fakeStrun(t, `exit 0`)
	res := newRunner(settings(script, t.TempDir())).Run(t.Context(), filepath.Join(t.TempDir(), "exp_pipe.fits"), 1)

	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "was not produced")
}

func TestRunTimeout(t *testing.T) {
	t.Parallel()

	script := fakeStrun(t, `exec sleep 5`)
	cfg := settings(script, t.TempDir())
	cfg.Timeout = 100 * time.Millisecond

	res := newRunner(cfg).Run(t.Context(), filepath.Join(t.TempDir(), "exp_pipe.fits"), 1)

	require.Error(t, res.Err)
	assert.True(t, errors.IsCategory(res.Err, errors.CategoryTimeout))
	assert.Less(t, res.Duration, 4*time.Second)
}

func TestRunMissingCommand(t *testing.T) {
	t.Parallel()

	cfg := settings("", t.TempDir())
	cfg.Command = "  "
	res := newRunner(cfg).Run(t.Context(), filepath.Join(t.TempDir(), "exp_pipe.fits"), 1)

	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, errors.ErrConfiguration)
}

func TestStartDeliversOneResult(t *testing.T) {
	t.Parallel()

	script := fakeStrun(t, writeRamp)
	ch := newRunner(settings(script, t.TempDir())).Start(t.Context(), filepath.Join(t.TempDir(), "exp_pipe.fits"), 3)

	res := testutil.Receive(t, ch, testutil.LongTestTimeout)
	require.NoError(t, res.Err)
	assert.True(t, strings.HasSuffix(res.CorrectedRamp, "exp_pipe_ramp.fits"))
	testutil.RequireClosed(t, ch, testutil.ShortTestTimeout)
}
