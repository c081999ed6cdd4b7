// Package cmd wires the miridb command tree.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/miri-pixeldb/cmd/config"
	"github.com/tphakala/miri-pixeldb/cmd/dq"
	"github.com/tphakala/miri-pixeldb/cmd/ingest"
	"github.com/tphakala/miri-pixeldb/cmd/initdb"
	"github.com/tphakala/miri-pixeldb/cmd/purge"
	"github.com/tphakala/miri-pixeldb/cmd/stats"
	"github.com/tphakala/miri-pixeldb/cmd/subarray"
	"github.com/tphakala/miri-pixeldb/internal/buildinfo"
	"github.com/tphakala/miri-pixeldb/internal/conf"
)

// RootCommand creates and returns the root command. Subcommands share
// settings, which is filled from defaults, the config file, the environment
// and the global flags before any of them runs.
func RootCommand(build *buildinfo.Context) *cobra.Command {
	settings := &conf.Settings{}
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "miridb",
		Short:         "Ingest MIRI detector exposures into a pixel database",
		Version:       build.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := setupFlags(rootCmd, &configFile); err != nil {
		// Flag names are static; a binding failure is a programming error.
		panic(err)
	}

	dqCmd := dq.Command()
	rootCmd.AddCommand(
		initdb.Command(settings, build),
		ingest.Command(settings, build),
		purge.Command(settings, build),
		stats.Command(settings, build),
		subarray.Command(settings),
		config.Command(settings),
		dqCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// dq decodes against the standard table and needs no configuration
		if cmd.Name() == dqCmd.Name() {
			return nil
		}
		loaded, err := conf.Load(configFile)
		if err != nil {
			return err
		}
		*settings = *loaded
		return nil
	}

	return rootCmd
}

// setupFlags defines the global flags and binds them to their settings keys.
func setupFlags(rootCmd *cobra.Command, configFile *string) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(configFile, "config", "c", "", "Path to config.yaml (default: search ., ~/.config/miri-pixeldb, /etc/miri-pixeldb)")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("db-type", "", "Database type: sqlite, mysql or postgres")
	flags.String("db-path", "", "SQLite database file")

	bindings := map[string]string{
		"debug":                "debug",
		"database.type":        "db-type",
		"database.sqlite.path": "db-path",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}
