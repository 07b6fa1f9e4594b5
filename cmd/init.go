package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const exampleScenarioName = "scenario.yaml"

const exampleScenario = `# Example clonex scenario: a single clone growing from the tissue centre.
name: example
seed: 1
tissue:
  width: 100
  height: 100
history_delta: 1
mutants:
  - name: A
    growth_rate: 0.3
    death_rate: 0.02
placements:
  - species: A
    x: 50
    y: 50
steps:
  - run_up_to_time: 30
`

// initCmd represents the init command.
var initCmd = newInitCmd()

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate a default clonex.yaml and an example scenario",
		Long: `Create a clonex.yaml in the current working directory populated with the
current CLI defaults, together with an example scenario file, so both
can be edited manually.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			targetPath := filepath.Join(configFolderPath, configFileName)

			if err := viper.SafeWriteConfigAs(targetPath); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			scenarioPath := filepath.Join(configFolderPath, exampleScenarioName)
			if _, err := os.Stat(scenarioPath); err == nil {
				cmd.Printf("%s already exists, leaving it untouched\n", scenarioPath)
				return nil
			}
			if err := os.WriteFile(scenarioPath, []byte(exampleScenario), 0o644); err != nil {
				return fmt.Errorf("failed to write example scenario: %w", err)
			}

			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
}
