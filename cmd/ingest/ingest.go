// Package ingest provides the ingest command.
package ingest

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/miri-pixeldb/internal/app"
	"github.com/tphakala/miri-pixeldb/internal/buildinfo"
	"github.com/tphakala/miri-pixeldb/internal/conf"
	"github.com/tphakala/miri-pixeldb/internal/errors"
	pipeline "github.com/tphakala/miri-pixeldb/internal/ingest"
	"github.com/tphakala/miri-pixeldb/internal/logger"
)

// Command creates and returns the ingest command
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var (
		provenance string
		noCleanup  bool
		failFast   bool
	)

	cmd := &cobra.Command{
		Use:   "ingest <file_pipe.fits>...",
		Short: "Ingest pipeline-ready exposures and their calibrated ramps",
		Long: `Ingest stores each pipeline-ready raw exposure, runs the calibration command
unless the corrected ramp already exists in the output directory, and
stores the corrected ramp with its slopes and data quality flags.

When a run fails after the raw exposure was stored, the exposure is deleted
again so the file can be retried, unless cleanup is disabled.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if provenance == "" {
				provenance = settings.Ingest.DefaultProvenance
			}
			if noCleanup {
				settings.Ingest.CleanupOnFailure = false
			}

			return app.Run(settings, build.Version(), func(rt *app.Runtime) error {
				if _, err := rt.Prepare(cmd.Context()); err != nil {
					return err
				}
				p, err := rt.Pipeline(cmd.Context())
				if err != nil {
					return err
				}

				var failed []error
				for _, path := range args {
					rep, err := p.Run(cmd.Context(), path, provenance)
					if werr := printReport(cmd.OutOrStdout(), path, rep, err); werr != nil {
						return werr
					}
					if err == nil {
						continue
					}
					rt.Log.Error("ingest failed", logger.String("file", path), logger.Error(err))
					failed = append(failed, fmt.Errorf("%s: %w", path, err))
					if failFast || cmd.Context().Err() != nil {
						break
					}
				}
				if len(failed) > 0 {
					return errors.Join(failed...)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&provenance, "provenance", "p", "", "Data provenance tag, e.g. JPL, OTIS or FLIGHT (default from ingest.default_provenance)")
	cmd.Flags().BoolVar(&noCleanup, "no-cleanup", false, "Keep the raw exposure when calibration or corrected ingest fails")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Stop at the first file that fails")

	return cmd
}

// printReport writes one line per pipeline stage of rep.
func printReport(w io.Writer, path string, rep *pipeline.Report, runErr error) error {
	var lines []string
	if rep != nil {
		if rep.Raw != nil {
			lines = append(lines, fmt.Sprintf("  raw:         exposure %d, %d ramps, %d groups, %d reference pixels skipped (%s)",
				rep.Raw.Exposure.ID, rep.Raw.Ramps, rep.Raw.Groups, rep.Raw.ReferencePixels, rep.Raw.Duration.Round(time.Millisecond)))
		}
		if c := rep.Calibration; c != nil {
			switch {
			case c.Err != nil:
				lines = append(lines, "  calibration: failed")
			case c.Cached:
				lines = append(lines, "  calibration: reused "+c.CorrectedRamp)
			default:
				lines = append(lines, fmt.Sprintf("  calibration: %s (%s)", c.CorrectedRamp, c.Duration.Round(time.Millisecond)))
			}
		}
		if c := rep.Corrected; c != nil {
			lines = append(lines, fmt.Sprintf("  corrected:   exposure %d, %d ramps, %d groups, %d flagged ramps (%s)",
				c.Corrected.ID, c.Ramps, c.Groups, c.FlaggedRamps, c.Duration.Round(time.Millisecond)))
		}
		if rep.CleanedUp {
			lines = append(lines, "  cleanup:     raw exposure deleted")
		}
	}

	status := "ok"
	if runErr != nil {
		status = "FAILED: " + runErr.Error()
	}
	runID := ""
	if rep != nil {
		runID = " [" + rep.RunID + "]"
	}
	if _, err := fmt.Fprintf(w, "%s%s %s\n", path, runID, status); err != nil {
		return err
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
