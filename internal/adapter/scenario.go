package adapter

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"clonex.dev/pkg/clonex/internal/domain"
	m "clonex.dev/pkg/clonex/internal/model"
)

// Scenario is the YAML description of a simulation run: the tissue,
// the mutants, the founder placements, the scheduled mutations, and
// the ordered steps to execute.
type Scenario struct {
	Name string `yaml:"name"`
	Seed uint64 `yaml:"seed"`

	Tissue TissueSpec `yaml:"tissue"`

	DeathActivationLevel   *uint64 `yaml:"death_activation_level"`
	DuplicateInternalCells bool    `yaml:"duplicate_internal_cells"`
	HistoryDelta           float64 `yaml:"history_delta"`

	Mutants            []MutantSpec            `yaml:"mutants"`
	Placements         []PlacementSpec         `yaml:"placements"`
	ScheduledMutations []ScheduledMutationSpec `yaml:"scheduled_mutations"`
	Steps              []StepSpec              `yaml:"steps"`
}

// TissueSpec sizes the grid.
type TissueSpec struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// MutantSpec declares a mutant. Either the flat growth_rate and
// death_rate (no epigenetics) or the per-signature maps together with
// epigenetic_rates must be used.
type MutantSpec struct {
	Name            string             `yaml:"name"`
	EpigeneticRates map[string]float64 `yaml:"epigenetic_rates"`
	GrowthRate      *float64           `yaml:"growth_rate"`
	DeathRate       *float64           `yaml:"death_rate"`
	GrowthRates     map[string]float64 `yaml:"growth_rates"`
	DeathRates      map[string]float64 `yaml:"death_rates"`
}

// PlacementSpec puts a founder cell of a species on the tissue.
type PlacementSpec struct {
	Species string `yaml:"species"`
	X       int    `yaml:"x"`
	Y       int    `yaml:"y"`
}

// ScheduledMutationSpec queues a timed mutant conversion.
type ScheduledMutationSpec struct {
	Time        float64 `yaml:"time"`
	Source      string  `yaml:"source"`
	Destination string  `yaml:"destination"`
}

// StepSpec is one scenario step; exactly one field must be set.
type StepSpec struct {
	RunUpToTime   *float64         `yaml:"run_up_to_time"`
	RunUpToSize   *SizeTargetSpec  `yaml:"run_up_to_size"`
	RunUpToEvent  *EventTargetSpec `yaml:"run_up_to_event"`
	Sample        *SampleSpec      `yaml:"sample"`
	UpdateRates   *RatesSpec       `yaml:"update_rates"`
	MutateProgeny *ProgenySpec     `yaml:"mutate_progeny"`
}

// SizeTargetSpec runs until a species reaches a live count.
type SizeTargetSpec struct {
	Species string `yaml:"species"`
	Count   uint64 `yaml:"count"`
}

// EventTargetSpec runs until an event counter reaches a value.
type EventTargetSpec struct {
	Event   string `yaml:"event"`
	Species string `yaml:"species"`
	Count   uint64 `yaml:"count"`
}

// SampleSpec drains a rectangle into a named sample.
type SampleSpec struct {
	Name string `yaml:"name"`
	XMin int    `yaml:"xmin"`
	YMin int    `yaml:"ymin"`
	XMax int    `yaml:"xmax"`
	YMax int    `yaml:"ymax"`
}

// RatesSpec updates the event rates of a species.
type RatesSpec struct {
	Species string             `yaml:"species"`
	Rates   map[string]float64 `yaml:"rates"`
}

// ProgenySpec forces a mutation of the progeny of the cell at a
// position.
type ProgenySpec struct {
	X           int    `yaml:"x"`
	Y           int    `yaml:"y"`
	Destination string `yaml:"destination"`
}

// LoadScenario parses and validates a scenario file. Unknown fields
// are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("%w: parse scenario %s: %v", m.ErrPrecondition, path, err)
	}

	if err := scenario.validate(); err != nil {
		return nil, err
	}

	return &scenario, nil
}

func (sc *Scenario) validate() error {
	if sc.Name == "" {
		sc.Name = "simulation"
	}
	if sc.Tissue.Width <= 0 || sc.Tissue.Height <= 0 {
		return fmt.Errorf("%w: scenario tissue dimensions must be positive", m.ErrPrecondition)
	}

	for _, mutant := range sc.Mutants {
		if err := validateMutantSpec(mutant); err != nil {
			return err
		}
	}

	for at, step := range sc.Steps {
		set := 0
		if step.RunUpToTime != nil {
			set++
		}
		if step.RunUpToSize != nil {
			set++
		}
		if step.RunUpToEvent != nil {
			set++
		}
		if step.Sample != nil {
			set++
		}
		if step.UpdateRates != nil {
			set++
		}
		if step.MutateProgeny != nil {
			set++
		}
		if set != 1 {
			return fmt.Errorf("%w: scenario step %d must set exactly one operation", m.ErrPrecondition, at+1)
		}
	}

	return nil
}

func validateMutantSpec(spec MutantSpec) error {
	if err := m.ValidateMutantName(spec.Name); err != nil {
		return err
	}

	if len(spec.EpigeneticRates) == 0 {
		if spec.GrowthRate == nil || spec.DeathRate == nil {
			return fmt.Errorf("%w: mutant %q needs growth_rate and death_rate", m.ErrPrecondition, spec.Name)
		}
		if len(spec.GrowthRates) > 0 || len(spec.DeathRates) > 0 {
			return fmt.Errorf("%w: mutant %q mixes flat and per-signature rates", m.ErrPrecondition, spec.Name)
		}
		return nil
	}

	// One epigenetic promoter only: exactly the "-+" and "+-" keys.
	for key := range spec.EpigeneticRates {
		if key != "-+" && key != "+-" {
			return fmt.Errorf("%w: mutant %q: epigenetic rate %q (multiple promoters are not supported)",
				m.ErrPrecondition, spec.Name, key)
		}
	}
	if len(spec.EpigeneticRates) != 2 {
		return fmt.Errorf("%w: mutant %q needs both \"-+\" and \"+-\" epigenetic rates", m.ErrPrecondition, spec.Name)
	}
	if spec.GrowthRate != nil || spec.DeathRate != nil {
		return fmt.Errorf("%w: mutant %q mixes flat and per-signature rates", m.ErrPrecondition, spec.Name)
	}
	for _, rates := range []map[string]float64{spec.GrowthRates, spec.DeathRates} {
		for key := range rates {
			if key != "+" && key != "-" {
				return fmt.Errorf("%w: mutant %q: rate signature %q", m.ErrPrecondition, spec.Name, key)
			}
		}
	}

	return nil
}

// BuildSimulation constructs and configures the simulation described
// by the scenario, up to and including founder placement.
func BuildSimulation(scenario *Scenario) (*domain.Simulation, error) {
	sim, err := domain.NewSimulation(scenario.Name, scenario.Tissue.Width, scenario.Tissue.Height, scenario.Seed)
	if err != nil {
		return nil, err
	}

	if scenario.DeathActivationLevel != nil {
		sim.SetDeathActivationLevel(*scenario.DeathActivationLevel)
	}
	sim.SetDuplicateInternalCells(scenario.DuplicateInternalCells)
	sim.SetHistoryDelta(scenario.HistoryDelta)

	for _, spec := range scenario.Mutants {
		if err := addMutant(sim, spec); err != nil {
			return nil, err
		}
	}
	for _, spec := range scenario.ScheduledMutations {
		if err := sim.ScheduleMutation(spec.Time, spec.Source, spec.Destination); err != nil {
			return nil, err
		}
	}
	for _, spec := range scenario.Placements {
		if err := sim.PlaceCell(spec.Species, m.Position{X: spec.X, Y: spec.Y}); err != nil {
			return nil, err
		}
	}

	return sim, nil
}

func addMutant(sim *domain.Simulation, spec MutantSpec) error {
	if len(spec.EpigeneticRates) == 0 {
		return sim.AddSimpleMutant(spec.Name, *spec.GrowthRate, *spec.DeathRate)
	}

	epigenetic := &m.EpigeneticRates{
		MinusToPlus: spec.EpigeneticRates["-+"],
		PlusToMinus: spec.EpigeneticRates["+-"],
	}

	return sim.AddMutant(spec.Name, epigenetic,
		signatureRates(spec.GrowthRates), signatureRates(spec.DeathRates))
}

func signatureRates(rates map[string]float64) map[m.Signature]float64 {
	converted := make(map[m.Signature]float64, len(rates))
	for key, rate := range rates {
		converted[m.Signature(key)] = rate
	}

	return converted
}

// RunStep executes one scenario step against the simulation.
func RunStep(sim *domain.Simulation, step StepSpec, hook domain.CancelHook) error {
	switch {
	case step.RunUpToTime != nil:
		return sim.RunUpToTime(*step.RunUpToTime, hook)
	case step.RunUpToSize != nil:
		return sim.RunUpToSize(step.RunUpToSize.Species, step.RunUpToSize.Count, hook)
	case step.RunUpToEvent != nil:
		return sim.RunUpToEvent(step.RunUpToEvent.Event, step.RunUpToEvent.Species, step.RunUpToEvent.Count, hook)
	case step.Sample != nil:
		region, err := m.NewRectangle(
			m.Position{X: step.Sample.XMin, Y: step.Sample.YMin},
			m.Position{X: step.Sample.XMax, Y: step.Sample.YMax})
		if err != nil {
			return err
		}
		return sim.Sample(step.Sample.Name, region)
	case step.UpdateRates != nil:
		return sim.UpdateRates(step.UpdateRates.Species, step.UpdateRates.Rates)
	case step.MutateProgeny != nil:
		return sim.SimulateMutation(
			m.Position{X: step.MutateProgeny.X, Y: step.MutateProgeny.Y},
			step.MutateProgeny.Destination)
	default:
		return fmt.Errorf("%w: empty scenario step", m.ErrPrecondition)
	}
}
