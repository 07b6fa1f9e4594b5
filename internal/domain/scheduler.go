package domain

import (
	"fmt"

	m "clonex.dev/pkg/clonex/internal/model"
)

// propensity returns the exponential-race weight of an (species,
// event) pair: the event rate times the live count, gated for death
// activation and epigenetic capability.
func (s *Simulation) propensity(state *speciesState, event m.EventKind) float64 {
	n := float64(state.CurrentCells)
	if n == 0 {
		return 0
	}

	switch event {
	case m.EventGrowth:
		return state.Descriptor.GrowthRate * n
	case m.EventDeath:
		if !state.DeathActivated {
			return 0
		}
		return state.Descriptor.DeathRate * n
	case m.EventSwitch:
		if state.Descriptor.Signature == m.SignatureNone {
			return 0
		}
		return state.Descriptor.SwitchRate * n
	default:
		return 0
	}
}

// totalPropensity sums every pair's weight.
func (s *Simulation) totalPropensity() float64 {
	total := 0.0
	for _, state := range s.registry.species {
		for _, event := range m.EventKinds {
			total += s.propensity(state, event)
		}
	}

	return total
}

// step advances the simulation by one event: it draws the waiting
// time, samples the (species, event) pair proportionally to its
// propensity, and applies the event. It reports false when the total
// propensity is zero and the run must terminate.
func (s *Simulation) step() bool {
	total := s.totalPropensity()
	if total <= 0 {
		return false
	}

	s.time += s.rng.ExpFloat64() / total

	target := s.rng.Float64() * total
	accumulated := 0.0
	var chosenState *speciesState
	chosenEvent := m.EventGrowth
	for _, state := range s.registry.species {
		for _, event := range m.EventKinds {
			weight := s.propensity(state, event)
			if weight == 0 {
				continue
			}
			accumulated += weight
			// Remember the last positive pair so floating point slack
			// at the end of the scan still fires a feasible event.
			chosenState, chosenEvent = state, event
			if target < accumulated {
				break
			}
		}
		if target < accumulated {
			break
		}
	}

	s.apply(chosenState, chosenEvent)
	s.totalEvents++
	s.stats.Observe(s.time, s.registry)

	return true
}

func (s *Simulation) apply(state *speciesState, event m.EventKind) {
	switch event {
	case m.EventGrowth:
		s.applyDuplication(state)
	case m.EventDeath:
		s.applyDeath(state)
	case m.EventSwitch:
		s.applySwitch(state)
	}
}

// applyDuplication fires a growth event for the species: it picks the
// duplicating cell (uniform over live cells under homogeneous growth,
// uniform over border cells otherwise), then copies it along a random
// lattice direction, shoving the intermediate cells one step outward.
func (s *Simulation) applyDuplication(state *speciesState) {
	id := state.Descriptor.ID

	chooser := s.populations[id]
	if !s.duplicateInternalCells {
		chooser = s.borders[id]
	}

	// The event fires even when it cannot take effect: a border-growth
	// species may be fully enclosed.
	state.Duplications++
	if chooser.Len() == 0 {
		return
	}

	cell := s.tissue.Get(s.livePos[chooser.Random(s.rng)])
	s.duplicate(cell, nil)
}

// duplicate grows a copy of the cell along a uniformly chosen
// direction. The cells between the parent and the first wild-type
// slot on the ray are pushed one step along it and the child takes
// the slot next to the parent; if the ray exits the tissue before
// reaching a wild-type slot the duplication is abandoned. When override
// is nil the child species follows the parent, subject to a due
// scheduled mutation.
func (s *Simulation) duplicate(parent *m.CellInTissue, override *m.Species) {
	direction := m.Directions[s.rng.IntN(len(m.Directions))]

	// Collect the ray up to the first wild-type slot.
	var ray []m.Position
	pos := parent.Pos
	for {
		pos = pos.Move(direction)
		if !s.tissue.IsValid(pos) {
			return // abandoned: the ray left the tissue
		}
		ray = append(ray, pos)
		if s.tissue.Get(pos) == nil {
			break
		}
	}

	// Shove the occupied prefix one step along the ray, freeing the
	// slot next to the parent.
	for i := len(ray) - 1; i > 0; i-- {
		s.moveCell(ray[i-1], ray[i])
	}

	childSpecies := override
	if childSpecies == nil {
		childSpecies = s.resolveChildSpecies(parent)
	}

	s.spawnCell(childSpecies.ID, parent.ID, ray[0])

	if childSpecies.ID != parent.SpeciesID {
		s.lineage.Record(parent.SpeciesID, childSpecies.ID, s.time)
		s.addedCells = append(s.addedCells, m.AddedCell{
			SpeciesID: childSpecies.ID,
			Pos:       ray[0],
			Time:      s.time,
		})
	}

	for _, changed := range ray {
		s.refreshBorderWindow(changed)
	}
}

// resolveChildSpecies applies a due scheduled mutation to the progeny
// of the parent, falling back to the parent's own species.
func (s *Simulation) resolveChildSpecies(parent *m.CellInTissue) *m.Species {
	parentSpecies := s.registry.species[parent.SpeciesID].Descriptor

	entry, ok := s.scheduled.ConsumeDue(s.time, parentSpecies.MutantID)
	if !ok {
		return &parentSpecies
	}

	child, err := s.registry.CompanionOf(entry.Destination, parentSpecies.Signature)
	if err != nil {
		// Compatibility was checked when the mutation was scheduled.
		panic(fmt.Errorf("%w: scheduled mutation without matching species: %v", m.ErrInternal, err))
	}

	return &child
}

// moveCell shoves the cell at from into the wild-type slot at to.
func (s *Simulation) moveCell(from, to m.Position) {
	cell := s.tissue.Clear(from)
	if cell == nil || s.tissue.Get(to) != nil {
		panic(fmt.Errorf("%w: shove from (%d,%d) to (%d,%d)", m.ErrInternal, from.X, from.Y, to.X, to.Y))
	}

	cell.Pos = to
	s.tissue.slots[s.tissue.index(to)] = cell
	s.livePos[cell.ID] = to
}

func (s *Simulation) applyDeath(state *speciesState) {
	id := state.Descriptor.ID
	cell := s.tissue.Get(s.livePos[s.populations[id].Random(s.rng)])

	s.dropCell(cell)
	state.Deaths++
}

// applySwitch flips a uniformly chosen cell of the species to the
// companion species of the same mutant.
func (s *Simulation) applySwitch(state *speciesState) {
	source := state.Descriptor
	companion, err := s.registry.CompanionOf(source.MutantID, source.Signature.Companion())
	if err != nil {
		panic(fmt.Errorf("%w: epigenetic species without companion: %v", m.ErrInternal, err))
	}

	cell := s.tissue.Get(s.livePos[s.populations[source.ID].Random(s.rng)])

	s.populations[source.ID].Remove(cell.ID)
	wasBorder := s.borders[source.ID].Has(cell.ID)
	s.borders[source.ID].Remove(cell.ID)

	cell.SpeciesID = companion.ID
	s.populations[companion.ID].Add(cell.ID)
	if wasBorder {
		s.borders[companion.ID].Add(cell.ID)
	}

	s.registry.noteRemoval(source.ID)
	s.registry.noteBirth(companion.ID, s.deathActivationLevel)
	state.Switches++
	s.lineage.Record(source.ID, companion.ID, s.time)
}
