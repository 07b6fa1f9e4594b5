// Package cmd provides the root command and CLI setup for clonex.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"clonex.dev/pkg/clonex/internal/adapter"
)

var snapshotStore adapter.SnapshotStore
var sqliteExporter adapter.SQLiteExporter

// logFileFlag overrides the rotating log file location.
var logFileFlag string

// verboseFlag raises the log level to debug.
var verboseFlag bool

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	snapshotStore = adapter.NewSnapshotStore()
	sqliteExporter = adapter.NewSQLiteExporter()
}

const rootLongDescription = `Clonex is a spatial stochastic simulator of clonal evolution on a
two-dimensional tissue. Cells duplicate, die, and switch epigenetic
state at species-specific rates; scheduled mutations convert the
progeny of a mutant to another mutant. Scenarios are YAML files
describing the tissue, the mutants, and the steps to run; finished
simulations can be saved as snapshots, inspected as tables, and
exported to SQLite.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clonex",
		Short: "Clonal evolution simulator",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(logFileFlag, verboseFlag || viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&logFileFlag, "log-file", viper.GetString(logFilenameKey),
		"rotating log file location")
	bindFlagToConfig(cmd.PersistentFlags().Lookup("log-file"), logFilenameKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", viper.GetBool(logVerboseKey),
		"log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup("verbose"), logVerboseKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
