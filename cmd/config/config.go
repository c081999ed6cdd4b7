// Package config provides the config command.
package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/miri-pixeldb/internal/conf"
)

// Command creates and returns the config command
func Command(settings *conf.Settings) *cobra.Command {
	var defaults bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Config prints the settings in effect after defaults, the config file,
MIRIDB_* environment variables and flags are applied. Passwords and the
telemetry DSN are redacted. With --default it prints the annotated template
instead, suitable as a starting config.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if defaults {
				data, err := conf.DefaultConfigYAML()
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}

			data, err := conf.Dump(settings)
			if err != nil {
				return err
			}
			if used := conf.ConfigFileUsed(); used != "" {
				fmt.Fprintf(out, "# loaded from %s\n", used)
			} else {
				fmt.Fprintln(out, "# no config file found, using defaults and environment")
			}
			_, err = out.Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&defaults, "default", false, "Print the default configuration template")

	return cmd
}
