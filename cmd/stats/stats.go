// Package stats provides the stats command.
package stats

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/miri-pixeldb/internal/app"
	"github.com/tphakala/miri-pixeldb/internal/buildinfo"
	"github.com/tphakala/miri-pixeldb/internal/conf"
	"github.com/tphakala/miri-pixeldb/internal/datastore"
	"github.com/tphakala/miri-pixeldb/internal/ingest"
)

// Command creates and returns the stats command
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [exposure file name]",
		Short: "Show row counts and flagged ramps of an exposure",
		Long: `Without arguments stats lists the detectors and stored exposures. With an
exposure file name it shows the row counts of every dependent table and,
per corrected exposure, how many ramps carry each data quality flag.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(settings, build.Version(), func(rt *app.Runtime) error {
				if len(args) == 0 {
					return list(cmd.Context(), cmd.OutOrStdout(), rt.Store)
				}
				engine, err := rt.Engine(cmd.Context())
				if err != nil {
					return err
				}
				st, err := engine.Stats(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), st)
			})
		},
	}
}

func render(out io.Writer, st *ingest.Stats) error {
	e := st.Exposure
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "EXPOSURE\t%s (id %d)\n", e.FileName, e.ID)
	fmt.Fprintf(w, "DETECTOR\t%d\n", e.DetectorID)
	fmt.Fprintf(w, "PROVENANCE\t%s\n", e.Provenance)
	fmt.Fprintf(w, "SUBARRAY\t%s %dx%d at (%d,%d)\n", e.Subarray, e.Width, e.Height, e.OriginX, e.OriginY)
	fmt.Fprintf(w, "INTEGRATIONS\t%d x %d groups\n", e.Ints, e.Groups)
	fmt.Fprintf(w, "RUN\t%s\n", e.RunID)
	fmt.Fprintln(w)

	c := st.Counts
	fmt.Fprintln(w, "TABLE\tROWS")
	fmt.Fprintf(w, "ramps\t%d\n", c.Ramps)
	fmt.Fprintf(w, "ramp_groups\t%d\n", c.Groups)
	fmt.Fprintf(w, "corrected_exposures\t%d\n", c.CorrectedExposures)
	fmt.Fprintf(w, "corrected_ramps\t%d\n", c.CorrectedRamps)
	fmt.Fprintf(w, "corrected_groups\t%d\n", c.CorrectedGroups)

	for _, cs := range st.Corrected {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "CORRECTED\t%s (id %d, pipeline %s)\n", cs.Exposure.FileName, cs.Exposure.ID, cs.Exposure.PipelineVersion)
		if len(cs.Flags) == 0 {
			fmt.Fprintln(w, "FLAGS\tnone")
			continue
		}
		fmt.Fprintln(w, "FLAG\tBIT\tRAMPS")
		for _, fc := range cs.Flags {
			fmt.Fprintf(w, "%s\t%d\t%d\n", fc.Flag.Name, fc.Flag.Bit, fc.Ramps)
		}
	}
	return w.Flush()
}

// list prints the detectors and every stored exposure in start time order.
func list(ctx context.Context, out io.Writer, store *datastore.Store) error {
	detectors, err := store.Detectors(ctx)
	if err != nil {
		return err
	}
	exposures, err := store.Exposures(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DETECTOR\tNAME\tFRAME")
	for _, d := range detectors {
		fmt.Fprintf(w, "%d\t%s\t%dx%d\n", d.ID, d.Name, d.Cols, d.Rows)
	}
	fmt.Fprintln(w)

	if len(exposures) == 0 {
		fmt.Fprintln(w, "no exposures stored")
		return w.Flush()
	}
	fmt.Fprintln(w, "ID\tEXPOSURE\tDETECTOR\tSUBARRAY\tINTS\tGROUPS\tSTART")
	for _, e := range exposures {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%d\t%d\t%s\n",
			e.ID, e.FileName, e.DetectorID, e.Subarray, e.Ints, e.Groups, e.Start.UTC().Format(time.DateTime))
	}
	return w.Flush()
}
