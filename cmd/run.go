package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"clonex.dev/pkg/clonex/internal/adapter"
	"clonex.dev/pkg/clonex/internal/controller"
	"clonex.dev/pkg/clonex/internal/domain"
	m "clonex.dev/pkg/clonex/internal/model"
)

var runSnapshotFlag string
var runProgressFlag bool
var runReplicatesFlag int
var runParallelFlag int

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a simulation scenario",
		Long: `Run the simulation described by a scenario file: build the tissue,
register the mutants, place the founders, and execute the scenario
steps in order. The finished simulation can be saved as a snapshot
for later inspection with "view" and "export".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, err := adapter.LoadScenario(args[0])
			if err != nil {
				return err
			}

			replicates := viper.GetInt(runReplicatesConfigKey)
			if replicates <= 1 {
				return runScenario(cmd, scenario, runSnapshotFlag, viper.GetBool(runProgressConfigKey))
			}

			return runReplicates(cmd, scenario, replicates, viper.GetInt(runParallelConfigKey))
		},
	}

	configureRunFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func configureRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&runSnapshotFlag, snapshotFlagName, "s", "",
		"save a snapshot of the finished simulation to this path")
	cmd.Flags().BoolVar(&runProgressFlag, progressFlagName, viper.GetBool(runProgressConfigKey),
		"show a live run monitor (single replicate only)")
	bindFlagToConfig(cmd.Flags().Lookup(progressFlagName), runProgressConfigKey)
	cmd.Flags().IntVarP(&runReplicatesFlag, replicatesFlagName, "r", viper.GetInt(runReplicatesConfigKey),
		"number of independent replicates to run")
	bindFlagToConfig(cmd.Flags().Lookup(replicatesFlagName), runReplicatesConfigKey)
	cmd.Flags().IntVarP(&runParallelFlag, parallelFlagName, "p", viper.GetInt(runParallelConfigKey),
		"number of replicates to run concurrently")
	bindFlagToConfig(cmd.Flags().Lookup(parallelFlagName), runParallelConfigKey)
}

// runScenario executes the scenario once, reporting the outcome on
// the terminal.
func runScenario(cmd *cobra.Command, scenario *adapter.Scenario, snapshotPath string, progress bool) error {
	sim, err := adapter.BuildSimulation(scenario)
	if err != nil {
		return err
	}

	var hook domain.CancelHook
	var monitor *controller.RunMonitor
	if progress {
		monitor = controller.NewRunMonitor(os.Stderr, scenario.Name, lastTimeTarget(scenario))
		monitor.Start()
		hook = monitor.Hook()
		sim.SetProgressFunc(func(p domain.Progress) {
			monitor.Observe(p.Time, p.TotalCells, p.TotalEvents)
		})
	}

	stepErr := runSteps(sim, scenario, hook)

	if monitor != nil {
		monitor.Stop()
	}

	if stepErr != nil && !errors.Is(stepErr, m.ErrCancelled) {
		return stepErr
	}

	ui := controller.NewSimpleUI(cmd)
	if errors.Is(stepErr, m.ErrCancelled) {
		cmd.Println("run cancelled; the simulation state is preserved")
	}
	if err := ui.DisplayRunSummary(sim.Name(), sim.Time(), sim.TotalCells(), sim.TotalEvents()); err != nil {
		return err
	}
	header, rows := controller.CountsTable(sim.CountRows())
	if err := ui.DisplayTable("counts", header, rows); err != nil {
		return err
	}
	if samples := sim.SampleInfoRows(); len(samples) > 0 {
		header, rows := controller.SamplesTable(samples)
		if err := ui.DisplayTable("samples", header, rows); err != nil {
			return err
		}
	}

	if snapshotPath != "" {
		if err := snapshotStore.Save(snapshotPath, sim); err != nil {
			return err
		}
		cmd.Printf("snapshot written to %s\n", snapshotPath)
	}

	return nil
}

func runSteps(sim *domain.Simulation, scenario *adapter.Scenario, hook domain.CancelHook) error {
	for at, step := range scenario.Steps {
		if err := adapter.RunStep(sim, step, hook); err != nil {
			if errors.Is(err, m.ErrCancelled) {
				return err
			}
			return fmt.Errorf("scenario step %d: %w", at+1, err)
		}
	}

	return nil
}

// lastTimeTarget finds the largest run_up_to_time of the scenario so
// the monitor can show a completion bar.
func lastTimeTarget(scenario *adapter.Scenario) float64 {
	target := 0.0
	for _, step := range scenario.Steps {
		if step.RunUpToTime != nil && *step.RunUpToTime > target {
			target = *step.RunUpToTime
		}
	}

	return target
}

// runReplicates executes independent copies of the scenario with
// derived seeds, bounded by the requested parallelism. Each replicate
// owns its simulation, so the single-threaded engine contract holds.
func runReplicates(cmd *cobra.Command, scenario *adapter.Scenario, replicates, parallel int) error {
	if parallel < 1 {
		parallel = 1
	}

	var group errgroup.Group
	group.SetLimit(parallel)

	results := make([]string, replicates)
	for index := range replicates {
		group.Go(func() error {
			replica := *scenario
			replica.Name = fmt.Sprintf("%s-r%d", scenario.Name, index)
			replica.Seed = scenario.Seed + uint64(index)

			sim, err := adapter.BuildSimulation(&replica)
			if err != nil {
				return err
			}
			if err := runSteps(sim, &replica, nil); err != nil {
				return fmt.Errorf("replicate %d: %w", index, err)
			}

			if runSnapshotFlag != "" {
				path := fmt.Sprintf("%s.r%d", runSnapshotFlag, index)
				if err := snapshotStore.Save(path, sim); err != nil {
					return err
				}
			}

			results[index] = fmt.Sprintf("replicate %d: time %.4f cells %d events %d",
				index, sim.Time(), sim.TotalCells(), sim.TotalEvents())
			slog.Info("replicate finished", "replicate", index, "cells", sim.TotalCells())

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	for _, line := range results {
		cmd.Println(line)
	}

	return nil
}
