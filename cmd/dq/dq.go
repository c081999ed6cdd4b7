// Package dq provides the dq command.
package dq

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tphakala/miri-pixeldb/internal/dqflags"
	"github.com/tphakala/miri-pixeldb/internal/errors"
)

// Command creates and returns the dq command
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "dq <code>...",
		Short: "Decode packed data quality codes into flag names",
		Long: `Dq decomposes each packed data quality code into the standard flags it
carries. Codes are decimal or prefixed hexadecimal (0x...).`,
		Example: "  miridb dq 6 0x80000",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table := dqflags.StandardTable()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tFLAGS")
			for _, arg := range args {
				code, err := strconv.ParseInt(arg, 0, 64)
				if err != nil {
					return errors.Configuration("dq", "invalid code %q: %v", arg, err)
				}
				names, err := table.Names(code)
				if err != nil {
					return err
				}
				if len(names) == 0 {
					names = []string{"-"}
				}
				fmt.Fprintf(w, "%d\t%s\n", code, strings.Join(names, ","))
			}
			return w.Flush()
		},
	}
}
