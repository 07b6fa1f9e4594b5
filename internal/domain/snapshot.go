package domain

import (
	"fmt"
	"sort"

	m "clonex.dev/pkg/clonex/internal/model"
)

// MutantState archives a registered mutant.
type MutantState struct {
	Name          string
	HasEpigenetic bool
	Epigenetic    m.EpigeneticRates
}

// SpeciesState archives a species descriptor with its counters.
type SpeciesState struct {
	Descriptor     m.Species
	Counters       SpeciesCounters
	DeathActivated bool
}

// SampledCell archives the sample membership of a drained cell.
type SampledCell struct {
	ID     m.CellID
	Sample string
}

// SimulationState is the full serializable state of a simulation. A
// state exported after any event sequence restores a simulation whose
// observable queries, and whose behaviour under further runs, match
// the original.
type SimulationState struct {
	Name        string
	Seed        uint64
	Time        float64
	NextCellID  m.CellID
	TotalEvents uint64
	EverPlaced  bool

	Width  int
	Height int
	Cells  []m.CellInTissue

	Mutants []MutantState
	Species []SpeciesState

	DeathActivationLevel   uint64
	DuplicateInternalCells bool

	HistoryDelta float64
	History      []StatPoint

	LineageEdges []m.LineageEdge
	Pending      []m.ScheduledMutation
	Samples      []m.Sample
	Ancestry     []m.CellRecord
	AddedCells   []m.AddedCell
	SampledBy    []SampledCell

	RNGState []byte
}

// ExportState captures the simulation into a serializable value.
func (s *Simulation) ExportState() (SimulationState, error) {
	rngState, err := s.pcg.MarshalBinary()
	if err != nil {
		return SimulationState{}, fmt.Errorf("marshal rng state: %w", err)
	}

	width, height := s.tissue.Size()
	state := SimulationState{
		Name:                   s.name,
		Seed:                   s.seed,
		Time:                   s.time,
		NextCellID:             s.nextCellID,
		TotalEvents:            s.totalEvents,
		EverPlaced:             s.everPlaced,
		Width:                  width,
		Height:                 height,
		DeathActivationLevel:   s.deathActivationLevel,
		DuplicateInternalCells: s.duplicateInternalCells,
		HistoryDelta:           s.stats.Delta(),
		History:                s.stats.History(),
		LineageEdges:           s.lineage.Edges(),
		Pending:                s.scheduled.Pending(),
		Samples:                s.samples,
		AddedCells:             s.addedCells,
		RNGState:               rngState,
	}

	s.tissue.EachInRectangle(s.tissue.Bounds(), func(_ m.Position, cell *m.CellInTissue) bool {
		if cell != nil {
			state.Cells = append(state.Cells, *cell)
		}
		return true
	})

	for _, mutant := range s.registry.mutants {
		archived := MutantState{Name: mutant.Name}
		if mutant.Epigenetic != nil {
			archived.HasEpigenetic = true
			archived.Epigenetic = *mutant.Epigenetic
		}
		state.Mutants = append(state.Mutants, archived)
	}

	for _, sp := range s.registry.species {
		state.Species = append(state.Species, SpeciesState{
			Descriptor: sp.Descriptor,
			Counters: SpeciesCounters{
				CurrentCells: sp.CurrentCells,
				Duplications: sp.Duplications,
				Deaths:       sp.Deaths,
				Switches:     sp.Switches,
			},
			DeathActivated: sp.DeathActivated,
		})
	}

	state.Ancestry = make([]m.CellRecord, 0, len(s.ancestry))
	for _, record := range s.ancestry {
		state.Ancestry = append(state.Ancestry, record)
	}
	sort.Slice(state.Ancestry, func(i, j int) bool { return state.Ancestry[i].ID < state.Ancestry[j].ID })

	state.SampledBy = make([]SampledCell, 0, len(s.sampledBy))
	for id, sample := range s.sampledBy {
		state.SampledBy = append(state.SampledBy, SampledCell{ID: id, Sample: sample})
	}
	sort.Slice(state.SampledBy, func(i, j int) bool { return state.SampledBy[i].ID < state.SampledBy[j].ID })

	return state, nil
}

// RestoreSimulation rebuilds a simulation from an exported state.
func RestoreSimulation(state SimulationState) (*Simulation, error) {
	s, err := NewSimulation(state.Name, state.Width, state.Height, state.Seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", m.ErrCorrupt, err)
	}

	for at, archived := range state.Mutants {
		var epigenetic *m.EpigeneticRates
		if archived.HasEpigenetic {
			rates := archived.Epigenetic
			epigenetic = &rates
		}
		if err := s.AddMutant(archived.Name, epigenetic, nil, nil); err != nil {
			return nil, fmt.Errorf("%w: restore mutant %d: %v", m.ErrCorrupt, at, err)
		}
	}

	if len(state.Species) != s.registry.NumSpecies() {
		return nil, fmt.Errorf("%w: species catalogue mismatch", m.ErrCorrupt)
	}
	for at, archived := range state.Species {
		sp := s.registry.species[at]
		if sp.Descriptor.ID != archived.Descriptor.ID {
			return nil, fmt.Errorf("%w: species order mismatch", m.ErrCorrupt)
		}
		sp.Descriptor = archived.Descriptor
		sp.CurrentCells = archived.Counters.CurrentCells
		sp.Duplications = archived.Counters.Duplications
		sp.Deaths = archived.Counters.Deaths
		sp.Switches = archived.Counters.Switches
		sp.DeathActivated = archived.DeathActivated
	}

	for _, cell := range state.Cells {
		restored := cell
		if err := s.tissue.Place(&restored, cell.Pos); err != nil {
			return nil, fmt.Errorf("%w: restore cell %d: %v", m.ErrCorrupt, cell.ID, err)
		}
		if int(cell.SpeciesID) < 0 || int(cell.SpeciesID) >= len(s.populations) {
			return nil, fmt.Errorf("%w: cell %d references species %d", m.ErrCorrupt, cell.ID, cell.SpeciesID)
		}
		s.populations[cell.SpeciesID].Add(cell.ID)
		s.livePos[cell.ID] = cell.Pos
	}
	s.totalCells = uint64(len(state.Cells))
	for _, cell := range state.Cells {
		s.refreshBorderAt(cell.Pos)
	}

	s.time = state.Time
	s.nextCellID = state.NextCellID
	s.totalEvents = state.TotalEvents
	s.everPlaced = state.EverPlaced
	s.deathActivationLevel = state.DeathActivationLevel
	s.duplicateInternalCells = state.DuplicateInternalCells

	s.stats.Restore(state.HistoryDelta, state.History)
	s.lineage.Restore(state.LineageEdges)
	s.scheduled.Restore(state.Pending)

	s.samples = state.Samples
	for _, sample := range state.Samples {
		s.sampleNames[sample.Name] = true
	}

	for _, record := range state.Ancestry {
		s.ancestry[record.ID] = record
	}
	for _, sampled := range state.SampledBy {
		s.sampledBy[sampled.ID] = sampled.Sample
	}
	s.addedCells = state.AddedCells

	if err := s.pcg.UnmarshalBinary(state.RNGState); err != nil {
		return nil, fmt.Errorf("%w: rng state: %v", m.ErrCorrupt, err)
	}

	return s, nil
}
