package cmd

import (
	"github.com/spf13/cobra"
)

// exportCmd represents the export command.
var exportCmd = newExportCmd()

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <snapshot> <out.db>",
		Short: "Export a saved simulation to a SQLite database",
		Long: `Load a snapshot and dump every query table (species, counts, cells,
added_cells, lineage_graph, firings, firing_history, count_history,
samples_info, forest_nodes) into a SQLite database file for
downstream analysis.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, err := snapshotStore.Load(args[0])
			if err != nil {
				return err
			}

			if err := sqliteExporter.Export(args[1], sim); err != nil {
				return err
			}

			cmd.Printf("exported %s to %s\n", args[0], args[1])

			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
