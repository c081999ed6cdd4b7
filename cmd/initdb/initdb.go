// Package initdb provides the init command.
package initdb

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/miri-pixeldb/internal/app"
	"github.com/tphakala/miri-pixeldb/internal/buildinfo"
	"github.com/tphakala/miri-pixeldb/internal/conf"
)

// Command creates and returns the init command
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the schema and seed detectors, pixels and DQ flags",
		Long: `Init creates or updates the database schema and fills the static tables:
the detectors, one row per full-frame pixel and the data quality flag table.
Tables that are already populated are left alone, so init can be rerun safely.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(settings, build.Version(), func(rt *app.Runtime) error {
				res, err := rt.Prepare(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(),
					"%s database %s ready: seeded %d detectors, %d pixels, %d flags\n",
					rt.Manager.Dialect(), rt.Manager.Path(), res.Detectors, res.Pixels, res.Flags)
				return err
			})
		},
	}
}
