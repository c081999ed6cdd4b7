// Package purge provides the delete command.
package purge

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/miri-pixeldb/internal/app"
	"github.com/tphakala/miri-pixeldb/internal/buildinfo"
	"github.com/tphakala/miri-pixeldb/internal/conf"
)

// Command creates and returns the delete command
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <exposure file name>",
		Short: "Delete an exposure and everything derived from it",
		Long: `Delete removes a raw exposure by its file name together with its ramps,
groups, corrected exposures, corrected ramps and corrected groups. The removal
is verified before the transaction commits; leftover rows abort it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(settings, build.Version(), func(rt *app.Runtime) error {
				engine, err := rt.Engine(cmd.Context())
				if err != nil {
					return err
				}
				res, err := engine.Delete(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				r := res.Removed
				_, err = fmt.Fprintf(cmd.OutOrStdout(),
					"deleted %s (id %d): %d ramps, %d groups, %d corrected exposures, %d corrected ramps, %d corrected groups\n",
					res.Exposure.FileName, res.Exposure.ID,
					r.Ramps, r.Groups, r.CorrectedExposures, r.CorrectedRamps, r.CorrectedGroups)
				return err
			})
		},
	}
}
