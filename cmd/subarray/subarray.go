// Package subarray provides the subarray command.
package subarray

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tphakala/miri-pixeldb/internal/app"
	"github.com/tphakala/miri-pixeldb/internal/conf"
	"github.com/tphakala/miri-pixeldb/internal/errors"
	"github.com/tphakala/miri-pixeldb/internal/geometry"
)

// Command creates and returns the subarray command
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "subarray [name | x y width height]",
		Short: "List subarrays or show how a window maps onto pixel ids",
		Long: `Without arguments subarray lists the subarray table. Given a subarray name or
a window in 1-based imaging coordinates it prints the imaging and reference
pixel counts of the window and the range of pixel ids it covers.`,
		Example: "  miridb subarray SUB64\n  miridb subarray 1 1 16 16",
		Args: func(cmd *cobra.Command, args []string) error {
			switch len(args) {
			case 0, 1, 4:
				return nil
			}
			return fmt.Errorf("accepts 0, 1 or 4 args, received %d", len(args))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			table := app.Subarrays(&settings.Geometry)
			if len(args) == 0 {
				return list(cmd.OutOrStdout(), table)
			}

			w, err := window(table, args)
			if err != nil {
				return err
			}
			lattice, err := geometry.NewLattice(app.Frame(&settings.Geometry))
			if err != nil {
				return err
			}
			m, err := geometry.NewMapper(lattice).Map(w)
			if err != nil {
				return err
			}
			return describe(cmd.OutOrStdout(), table.Identify(w), m)
		},
	}
}

func window(table *geometry.SubarrayTable, args []string) (geometry.Window, error) {
	if len(args) == 1 {
		w, ok := table.Lookup(args[0])
		if !ok {
			return w, errors.Configuration("subarray", "unknown subarray %q", args[0])
		}
		return w, nil
	}

	var v [4]int
	for i, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return geometry.Window{}, errors.Configuration("subarray", "invalid window value %q", arg)
		}
		v[i] = n
	}
	return geometry.Window{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}

func list(out io.Writer, table *geometry.SubarrayTable) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tX\tY\tWIDTH\tHEIGHT\tPIXELS")
	for _, s := range table.All() {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\n", s.Name, s.X, s.Y, s.Width, s.Height, s.Width*s.Height)
	}
	return w.Flush()
}

func describe(out io.Writer, name string, m *geometry.Mapping) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "SUBARRAY\t%s\n", name)
	fmt.Fprintf(w, "WINDOW\t%dx%d at (%d,%d)\n", m.Window.Width, m.Window.Height, m.Window.X, m.Window.Y)
	fmt.Fprintf(w, "IMAGING PIXELS\t%d\n", len(m.DataIDs))
	fmt.Fprintf(w, "REFERENCE PIXELS\t%d\n", len(m.ReferenceIDs))
	if n := len(m.DataIDs); n > 0 {
		fmt.Fprintf(w, "PIXEL IDS\t%d .. %d\n", m.FirstDataID(), m.DataIDs[n-1])
	}
	return w.Flush()
}
