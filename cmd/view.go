package cmd

import (
	"github.com/spf13/cobra"

	"clonex.dev/pkg/clonex/internal/controller"
	"clonex.dev/pkg/clonex/internal/domain"
)

var viewTableFlag string

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view <snapshot>",
		Short: "View the tables of a saved simulation",
		Long: `Load a snapshot and render one of its query tables, or every table
with --table all. Available tables: species, counts, cells,
added-cells, lineage, firings, firing-history, count-history,
samples, forest.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, err := snapshotStore.Load(args[0])
			if err != nil {
				return err
			}

			ui := controller.NewSimpleUI(cmd)
			if viewTableFlag == "all" {
				for _, name := range controller.TableNames {
					if err := displayTable(ui, sim, name); err != nil {
						return err
					}
				}
				return nil
			}

			name, err := controller.ParseTableName(viewTableFlag)
			if err != nil {
				return err
			}

			return displayTable(ui, sim, name)
		},
	}

	cmd.Flags().StringVarP(&viewTableFlag, tableFlagName, "t", string(controller.TableCounts),
		"table to render (or \"all\")")

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}

func displayTable(ui *controller.SimpleUI, sim *domain.Simulation, name controller.TableName) error {
	lastTime, _ := sim.LastHistoryTime()

	var header []string
	var rows [][]string
	switch name {
	case controller.TableSpecies:
		header, rows = controller.SpeciesTable(sim.SpeciesRows())
	case controller.TableCounts:
		header, rows = controller.CountsTable(sim.CountRows())
	case controller.TableCells:
		cellRows, err := sim.CellRows(domain.CellFilter{})
		if err != nil {
			return err
		}
		header, rows = controller.CellsTable(cellRows)
	case controller.TableAddedCells:
		header, rows = controller.AddedCellsTable(sim.AddedCellRows())
	case controller.TableLineage:
		header, rows = controller.LineageTable(sim.LineageRows())
	case controller.TableFirings:
		header, rows = controller.FiringsTable(sim.FiringRows())
	case controller.TableFiringHistory:
		header, rows = controller.FiringHistoryTable(sim.FiringHistoryRows(0, lastTime))
	case controller.TableCountHistory:
		header, rows = controller.CountHistoryTable(sim.CountHistoryRows(0, lastTime))
	case controller.TableSamples:
		header, rows = controller.SamplesTable(sim.SampleInfoRows())
	case controller.TableForest:
		header, rows = controller.ForestTable(sim.SamplesForest().NodeRows())
	}

	return ui.DisplayTable(string(name), header, rows)
}
