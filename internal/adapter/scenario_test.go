package adapter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "clonex.dev/pkg/clonex/internal/model"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

const validScenario = `
name: demo
seed: 4
tissue:
  width: 50
  height: 40
death_activation_level: 100
history_delta: 1
mutants:
  - name: A
    epigenetic_rates:
      "-+": 0.01
      "+-": 0.02
    growth_rates:
      "+": 0.2
      "-": 0.08
    death_rates:
      "+": 0.1
      "-": 0.01
  - name: B
    growth_rate: 0.3
    death_rate: 0.05
scheduled_mutations:
  - time: 10
    source: B
    destination: B
placements:
  - species: A+
    x: 25
    y: 20
steps:
  - run_up_to_time: 5
  - sample:
      name: S1
      xmin: 20
      ymin: 15
      xmax: 30
      ymax: 25
`

func TestLoadScenario(t *testing.T) {
	scenario, err := LoadScenario(writeScenario(t, validScenario))
	require.NoError(t, err)

	assert.Equal(t, "demo", scenario.Name)
	assert.Equal(t, uint64(4), scenario.Seed)
	assert.Len(t, scenario.Mutants, 2)
	assert.Len(t, scenario.Steps, 2)
	require.NotNil(t, scenario.DeathActivationLevel)
	assert.Equal(t, uint64(100), *scenario.DeathActivationLevel)
}

func TestLoadScenarioRejections(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{
			name: "unknown field",
			content: `
name: x
seed: 1
tissue: {width: 10, height: 10}
gravity: 9.81
`,
		},
		{
			name: "missing tissue",
			content: `
name: x
seed: 1
`,
		},
		{
			name: "multi promoter epigenetics",
			content: `
name: x
seed: 1
tissue: {width: 10, height: 10}
mutants:
  - name: A
    epigenetic_rates: {"-+": 0.1, "+-": 0.1, "#+": 0.1}
`,
		},
		{
			name: "half epigenetic pair",
			content: `
name: x
seed: 1
tissue: {width: 10, height: 10}
mutants:
  - name: A
    epigenetic_rates: {"-+": 0.1}
`,
		},
		{
			name: "mixed flat and signature rates",
			content: `
name: x
seed: 1
tissue: {width: 10, height: 10}
mutants:
  - name: A
    epigenetic_rates: {"-+": 0.1, "+-": 0.1}
    growth_rate: 0.2
`,
		},
		{
			name: "reserved mutant name",
			content: `
name: x
seed: 1
tissue: {width: 10, height: 10}
mutants:
  - name: Wild-type
    growth_rate: 0.1
    death_rate: 0
`,
		},
		{
			name: "step with two operations",
			content: `
name: x
seed: 1
tissue: {width: 10, height: 10}
steps:
  - run_up_to_time: 5
    sample: {name: S, xmin: 0, ymin: 0, xmax: 1, ymax: 1}
`,
		},
		{
			name: "empty step",
			content: `
name: x
seed: 1
tissue: {width: 10, height: 10}
steps:
  - {}
`,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, c.content))
			assert.ErrorIs(t, err, m.ErrPrecondition)
		})
	}
}

func TestBuildSimulation(t *testing.T) {
	scenario, err := LoadScenario(writeScenario(t, validScenario))
	require.NoError(t, err)

	sim, err := BuildSimulation(scenario)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), sim.TotalCells())
	assert.Equal(t, uint64(100), sim.DeathActivationLevel())
	assert.Equal(t, 1.0, sim.HistoryDelta())
	assert.Len(t, sim.PendingMutations(), 1)

	w, h := sim.Tissue().Size()
	assert.Equal(t, 50, w)
	assert.Equal(t, 40, h)

	// The open-question convention: the "+" species switches at the
	// "+-" rate.
	rates, err := sim.Rates("A+")
	require.NoError(t, err)
	assert.Equal(t, 0.02, rates["switch"])
	rates, err = sim.Rates("A-")
	require.NoError(t, err)
	assert.Equal(t, 0.01, rates["switch"])
}

func TestRunSteps(t *testing.T) {
	scenario, err := LoadScenario(writeScenario(t, validScenario))
	require.NoError(t, err)
	sim, err := BuildSimulation(scenario)
	require.NoError(t, err)

	for _, step := range scenario.Steps {
		require.NoError(t, RunStep(sim, step, nil))
	}

	assert.GreaterOrEqual(t, sim.Time(), 5.0)
	assert.Len(t, sim.Samples(), 1)
}
