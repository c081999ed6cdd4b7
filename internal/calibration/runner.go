// Package calibration runs the external detector-level calibration command
// that turns a pipeline-ready raw file into corrected ramp and slope products.
package calibration

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/tphakala/miri-pixeldb/internal/conf"
	"github.com/tphakala/miri-pixeldb/internal/errors"
	"github.com/tphakala/miri-pixeldb/internal/exposure"
	"github.com/tphakala/miri-pixeldb/internal/logger"
)

const (
	component = "calibration"

	inputPlaceholder     = "{input}"
	outputDirPlaceholder = "{output_dir}"

	// outputTruncateLength bounds the command output carried in errors.
	outputTruncateLength = 2048

	// waitDelay is how long a cancelled command may take to exit before its
	// pipes are closed.
	waitDelay = 10 * time.Second
)

// Step parameter flags appended for reference-file overrides.
const (
	flagLinearity  = "--steps.linearity.override_linearity="
	flagSaturation = "--steps.saturation.override_saturation="
	flagRSCD       = "--steps.rscd.override_rscd="
	flagMask       = "--steps.dq_init.override_mask="
	flagDark       = "--steps.dark_current.override_dark="
	flagSkipDark   = "--steps.dark_current.skip=True"
)

// Result describes one calibration attempt.
type Result struct {
	Input         string
	CorrectedRamp string
	Slope         string
	Cached        bool // corrected ramp already existed, command not run
	Duration      time.Duration
	Output        string
	Err           error
}

// Runner invokes the configured calibration command.
type Runner struct {
	command   string
	args      []string
	outputDir string
	timeout   time.Duration
	skipDark  bool
	overrides conf.ReferenceOverrides
	log       logger.Logger
}

// NewRunner returns a Runner for cfg. log may be nil.
func NewRunner(cfg *conf.CalibrationSettings, log logger.Logger) *Runner {
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	return &Runner{
		command:   strings.TrimSpace(cfg.Command),
		args:      slices.Clone(cfg.Args),
		outputDir: cfg.OutputDir,
		timeout:   cfg.Timeout,
		skipDark:  cfg.SkipDark,
		overrides: cfg.Overrides,
		log:       log.Module(component),
	}
}

// Products returns the corrected ramp and slope paths calibration of
// pipePath produces.
func (r *Runner) Products(pipePath string, ints int) (correctedRamp, slope string) {
	correctedRamp = exposure.CorrectedRampPath(r.outputDir, pipePath)
	return correctedRamp, exposure.SlopeName(correctedRamp, ints)
}

// Start calibrates pipePath in the background. The returned channel
// receives exactly one Result and is then closed.
func (r *Runner) Start(ctx context.Context, pipePath string, ints int) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		ch <- r.run(ctx, pipePath, ints)
	}()
	return ch
}

// Run calibrates pipePath and waits for the result.
func (r *Runner) Run(ctx context.Context, pipePath string, ints int) Result {
	return <-r.Start(ctx, pipePath, ints)
}

// Args returns the command arguments for pipePath with placeholders
// substituted and step overrides appended.
func (r *Runner) Args(pipePath string) []string {
	outDir := r.outputDir
	if outDir == "" {
		outDir = filepath.Dir(pipePath)
	}
	replacer := strings.NewReplacer(inputPlaceholder, pipePath, outputDirPlaceholder, outDir)

	args := make([]string, 0, len(r.args)+6)
	for _, a := range r.args {
		args = append(args, replacer.Replace(a))
	}

	for _, o := range []struct{ flag, path string }{
		{flagLinearity, r.overrides.Linearity},
		{flagSaturation, r.overrides.Saturation},
		{flagRSCD, r.overrides.RSCD},
		{flagMask, r.overrides.Mask},
		{flagDark, r.overrides.Dark},
	} {
		if o.path != "" {
			args = append(args, o.flag+o.path)
		}
	}
	if r.skipDark {
		args = append(args, flagSkipDark)
	}
	return args
}

func (r *Runner) run(ctx context.Context, pipePath string, ints int) Result {
	start := time.Now()
	res := Result{Input: pipePath}
	res.CorrectedRamp, res.Slope = r.Products(pipePath, ints)
	log := r.log.WithContext(ctx).With(logger.String("input", filepath.Base(pipePath)))

	if fileExists(res.CorrectedRamp) {
		log.Info("corrected ramp exists, skipping calibration",
			logger.String("corrected_ramp", res.CorrectedRamp))
		res.Cached = true
		return res
	}

	if r.command == "" {
		res.Err = errors.Configuration(component, "calibration command is not configured")
		return res
	}
	if r.outputDir != "" {
		if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
			res.Err = errors.New(err).
				Component(component).
				Category(errors.CategoryFileIO).
				Context("output_dir", r.outputDir).
				Build()
			return res
		}
	}

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	args := r.Args(pipePath)
	log.Info("running calibration",
		logger.String("command", r.command),
		logger.Int("args", len(args)))

	// Command and args come from validated configuration.
	cmd := exec.CommandContext(runCtx, r.command, args...) //nolint:gosec // configuration-sourced command
	cmd.WaitDelay = waitDelay
	out, err := cmd.CombinedOutput()
	res.Duration = time.Since(start)
	res.Output = truncate(strings.TrimSpace(string(out)), outputTruncateLength)

	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		res.Err = errors.Newf("calibration of %s timed out after %s", filepath.Base(pipePath), r.timeout).
			Component(component).
			Category(errors.CategoryTimeout).
			Context("output", res.Output).
			Build()
	case ctx.Err() != nil:
		res.Err = errors.New(ctx.Err()).
			Component(component).
			Category(errors.CategoryCancellation).
			Build()
	case err != nil:
		res.Err = errors.Newf("calibration command %q failed: %w, output: %s", r.command, err, res.Output).
			Component(component).
			Category(errors.CategoryCommandExecution).
			Context("input", pipePath).
			Build()
	case !fileExists(res.CorrectedRamp):
		res.Err = errors.Newf("calibration finished but %s was not produced", res.CorrectedRamp).
			Component(component).
			Category(errors.CategoryCommandExecution).
			Context("output", res.Output).
			Build()
	}

	if res.Err != nil {
		log.Error("calibration failed", logger.Error(res.Err), logger.Duration("duration", res.Duration))
		return res
	}
	log.Info("calibration complete",
		logger.String("corrected_ramp", res.CorrectedRamp),
		logger.Duration("duration", res.Duration))
	return res
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
