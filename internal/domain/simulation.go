package domain

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	m "clonex.dev/pkg/clonex/internal/model"
)

// DefaultDeathActivationLevel keeps death disabled for every species
// unless the host lowers the threshold.
const DefaultDeathActivationLevel = math.MaxUint64

// Progress is handed to the host's progress callback at every polling
// point of a run loop.
type Progress struct {
	Time        float64
	TotalCells  uint64
	TotalEvents uint64
}

// Simulation is the top-level driver: it owns the tissue, the species
// registry, the recorders, the samples, and the RNG, and exposes the
// setup and run-until operations. A Simulation must not be used from
// more than one goroutine.
type Simulation struct {
	name string
	seed uint64
	pcg  *rand.PCG
	rng  *rand.Rand

	tissue   *Tissue
	registry *SpeciesRegistry

	time        float64
	nextCellID  m.CellID
	totalCells  uint64
	totalEvents uint64
	everPlaced  bool

	// populations and borders hold, per species, the live cells and
	// the live cells with at least one wild-type 8-neighbour. Both are
	// indexed sets so uniform cell choice is O(1).
	populations []*cellSet
	borders     []*cellSet
	livePos     map[m.CellID]m.Position

	ancestry   map[m.CellID]m.CellRecord
	addedCells []m.AddedCell
	sampledBy  map[m.CellID]string

	lineage   *LineageRecorder
	stats     *StatisticsRecorder
	scheduled *mutationQueue

	samples     []m.Sample
	sampleNames map[string]bool

	deathActivationLevel   uint64
	duplicateInternalCells bool

	progressFn func(Progress)
}

// NewSimulation builds an empty simulation over a width x height
// tissue, seeding the RNG with the given seed.
func NewSimulation(name string, width, height int, seed uint64) (*Simulation, error) {
	tissue, err := NewTissue(width, height)
	if err != nil {
		return nil, err
	}

	pcg := rand.NewPCG(seed, 0)
	s := &Simulation{
		name:                 name,
		seed:                 seed,
		pcg:                  pcg,
		rng:                  rand.New(pcg),
		tissue:               tissue,
		registry:             NewSpeciesRegistry(),
		nextCellID:           1,
		livePos:              make(map[m.CellID]m.Position),
		ancestry:             make(map[m.CellID]m.CellRecord),
		sampledBy:            make(map[m.CellID]string),
		lineage:              NewLineageRecorder(),
		stats:                NewStatisticsRecorder(),
		scheduled:            newMutationQueue(),
		sampleNames:          make(map[string]bool),
		deathActivationLevel: DefaultDeathActivationLevel,
	}

	slog.Debug("simulation created", "name", name, "width", width, "height", height, "seed", seed)

	return s, nil
}

// Name returns the simulation name.
func (s *Simulation) Name() string { return s.name }

// Seed returns the RNG seed the simulation was constructed with.
func (s *Simulation) Seed() uint64 { return s.seed }

// Time returns the current simulated time.
func (s *Simulation) Time() float64 { return s.time }

// TotalCells returns the number of live non-wild-type cells.
func (s *Simulation) TotalCells() uint64 { return s.totalCells }

// TotalEvents returns the number of events fired so far.
func (s *Simulation) TotalEvents() uint64 { return s.totalEvents }

// Tissue exposes the grid for read-only inspection.
func (s *Simulation) Tissue() *Tissue { return s.tissue }

// Registry exposes the species catalogue for read-only inspection.
func (s *Simulation) Registry() *SpeciesRegistry { return s.registry }

// HistoryDelta returns the statistics sampling interval.
func (s *Simulation) HistoryDelta() float64 { return s.stats.Delta() }

// SetHistoryDelta updates the statistics sampling interval.
func (s *Simulation) SetHistoryDelta(delta float64) { s.stats.SetDelta(delta) }

// DeathActivationLevel returns the per-species live count that
// permanently enables death events once reached.
func (s *Simulation) DeathActivationLevel() uint64 { return s.deathActivationLevel }

// SetDeathActivationLevel updates the death activation threshold for
// species that have not latched yet.
func (s *Simulation) SetDeathActivationLevel(level uint64) { s.deathActivationLevel = level }

// DuplicateInternalCells reports the growth policy: true for
// homogeneous growth, false for border growth.
func (s *Simulation) DuplicateInternalCells() bool { return s.duplicateInternalCells }

// SetDuplicateInternalCells switches between homogeneous and border
// growth.
func (s *Simulation) SetDuplicateInternalCells(enabled bool) { s.duplicateInternalCells = enabled }

// SetProgressFunc installs a callback invoked at every cancellation
// polling point of a run loop.
func (s *Simulation) SetProgressFunc(fn func(Progress)) { s.progressFn = fn }

// AddMutant registers a mutant with an optional epigenetic switch
// pair and per-signature growth and death rates, creating its derived
// species.
func (s *Simulation) AddMutant(name string, epigenetic *m.EpigeneticRates,
	growth, death map[m.Signature]float64) error {
	mutant, err := s.registry.AddMutant(name, epigenetic, growth, death)
	if err != nil {
		return err
	}

	for range mutant.SpeciesIDs {
		s.populations = append(s.populations, newCellSet())
		s.borders = append(s.borders, newCellSet())
	}

	slog.Debug("mutant registered", "name", name, "species", len(mutant.SpeciesIDs))

	return nil
}

// AddSimpleMutant registers a mutant without epigenetic control.
func (s *Simulation) AddSimpleMutant(name string, growthRate, deathRate float64) error {
	return s.AddMutant(name, nil,
		map[m.Signature]float64{m.SignatureNone: growthRate},
		map[m.Signature]float64{m.SignatureNone: deathRate})
}

// UpdateRates replaces the named event rates of a species; new values
// take effect at the next event selection.
func (s *Simulation) UpdateRates(speciesName string, rates map[string]float64) error {
	return s.registry.UpdateRates(speciesName, rates)
}

// Rates returns the current event rates of a species.
func (s *Simulation) Rates(speciesName string) (map[string]float64, error) {
	return s.registry.Rates(speciesName)
}

// ResizeTissue replaces the grid. It is permitted only while no cell
// has ever been placed.
func (s *Simulation) ResizeTissue(width, height int) error {
	if s.everPlaced {
		return fmt.Errorf("%w: the tissue cannot be resized after a cell placement", m.ErrPrecondition)
	}

	tissue, err := NewTissue(width, height)
	if err != nil {
		return err
	}
	s.tissue = tissue

	return nil
}

// PlaceCell puts a founder cell of the named species on the tissue,
// recording the wild-type lineage edge at the current time.
func (s *Simulation) PlaceCell(speciesName string, pos m.Position) error {
	species, err := s.registry.SpeciesByName(speciesName)
	if err != nil {
		return err
	}
	if !s.tissue.IsValid(pos) {
		return fmt.Errorf("%w: position (%d,%d) is outside the tissue", m.ErrPrecondition, pos.X, pos.Y)
	}
	if s.tissue.Get(pos) != nil {
		return fmt.Errorf("%w: position (%d,%d) is already occupied", m.ErrPrecondition, pos.X, pos.Y)
	}

	cell := s.spawnCell(species.ID, m.NoParent, pos)
	s.lineage.Record(m.WildTypeSpecies, species.ID, s.time)
	s.addedCells = append(s.addedCells, m.AddedCell{SpeciesID: species.ID, Pos: pos, Time: s.time})

	slog.Debug("founder placed", "species", speciesName, "x", pos.X, "y", pos.Y, "cell", cell.ID)

	return nil
}

// ScheduleMutation queues a one-shot conversion of the progeny of a
// source-mutant duplication into the destination mutant, firing once
// the simulated clock passes the given time.
func (s *Simulation) ScheduleMutation(time float64, sourceName, destinationName string) error {
	if time < 0 {
		return fmt.Errorf("%w: mutation time must be non-negative", m.ErrPrecondition)
	}

	source, err := s.registry.MutantByName(sourceName)
	if err != nil {
		return err
	}
	destination, err := s.registry.MutantByName(destinationName)
	if err != nil {
		return err
	}
	if (source.Epigenetic == nil) != (destination.Epigenetic == nil) {
		return fmt.Errorf("%w: mutants %q and %q have incompatible epigenetic structure",
			m.ErrPrecondition, sourceName, destinationName)
	}

	s.scheduled.Push(m.ScheduledMutation{Time: time, Source: source.ID, Destination: destination.ID})

	return nil
}

// PendingMutations returns the queued scheduled mutations in time
// order.
func (s *Simulation) PendingMutations() []m.ScheduledMutation {
	return s.scheduled.Pending()
}

// SimulateMutation forces an immediate duplication of the cell at the
// position, with the child belonging to the destination mutant.
func (s *Simulation) SimulateMutation(pos m.Position, destinationName string) error {
	cell := s.tissue.Get(pos)
	if cell == nil {
		return fmt.Errorf("%w: no cell at position (%d,%d)", m.ErrNotFound, pos.X, pos.Y)
	}

	destination, err := s.registry.MutantByName(destinationName)
	if err != nil {
		return err
	}

	parentSpecies, err := s.registry.Species(cell.SpeciesID)
	if err != nil {
		return err
	}
	childSpecies, err := s.registry.CompanionOf(destination.ID, parentSpecies.Signature)
	if err != nil {
		return fmt.Errorf("%w: mutant %q has no %q species to inherit",
			m.ErrPrecondition, destinationName, string(parentSpecies.Signature))
	}

	s.duplicate(cell, &childSpecies)
	s.registry.state(cell.SpeciesID).Duplications++

	return nil
}

// spawnCell creates a live cell on the tissue and registers it in
// every index. The position must be a valid wild-type slot.
func (s *Simulation) spawnCell(speciesID m.SpeciesID, parent m.CellID, pos m.Position) *m.CellInTissue {
	cell := &m.CellInTissue{
		ID:        s.nextCellID,
		SpeciesID: speciesID,
		ParentID:  parent,
		BirthTime: s.time,
	}
	s.nextCellID++

	// Place cannot fail here: the caller checked the slot.
	if err := s.tissue.Place(cell, pos); err != nil {
		panic(fmt.Errorf("%w: spawn on occupied slot (%d,%d)", m.ErrInternal, pos.X, pos.Y))
	}

	s.populations[speciesID].Add(cell.ID)
	s.livePos[cell.ID] = pos
	s.ancestry[cell.ID] = m.CellRecord{
		ID:        cell.ID,
		ParentID:  parent,
		SpeciesID: speciesID,
		BirthTime: s.time,
	}
	s.registry.noteBirth(speciesID, s.deathActivationLevel)
	s.totalCells++
	s.everPlaced = true
	s.refreshBorderWindow(pos)

	return cell
}

// dropCell removes a live cell from the tissue and every index and
// decrements its species' live count. Event counters such as deaths
// are adjusted by the caller.
func (s *Simulation) dropCell(cell *m.CellInTissue) {
	s.tissue.Clear(cell.Pos)
	s.populations[cell.SpeciesID].Remove(cell.ID)
	s.borders[cell.SpeciesID].Remove(cell.ID)
	delete(s.livePos, cell.ID)
	s.registry.noteRemoval(cell.SpeciesID)
	s.totalCells--
	s.refreshBorderWindow(cell.Pos)
}

// refreshBorderWindow recomputes border membership for every live
// cell in the 3x3 window centred on the position. Any slot change
// only affects border status inside this window.
func (s *Simulation) refreshBorderWindow(pos m.Position) {
	s.refreshBorderAt(pos)
	for _, d := range m.Directions {
		s.refreshBorderAt(pos.Move(d))
	}
}

func (s *Simulation) refreshBorderAt(pos m.Position) {
	cell := s.tissue.Get(pos)
	if cell == nil {
		return
	}

	set := s.borders[cell.SpeciesID]
	if s.tissue.HasWildTypeNeighbour(pos) {
		set.Add(cell.ID)
	} else {
		set.Remove(cell.ID)
	}
}
