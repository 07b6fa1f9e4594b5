package domain

import (
	"fmt"
	"math"

	m "clonex.dev/pkg/clonex/internal/model"
)

// CellFilter narrows a cell query to an optional rectangle and
// optional mutant and epistate filters. Nil or empty fields leave the
// corresponding dimension unfiltered.
type CellFilter struct {
	Region    *m.Rectangle
	Mutants   []string
	Epistates []m.Signature
}

// SpeciesRows renders the species table: one row per registered
// species with its current rates. The switch rate is NaN for species
// without epigenetic control.
func (s *Simulation) SpeciesRows() []m.SpeciesRow {
	rows := make([]m.SpeciesRow, 0, s.registry.NumSpecies())
	s.registry.EachSpecies(func(sp m.Species) {
		switchRate := math.NaN()
		if sp.Signature != m.SignatureNone {
			switchRate = sp.SwitchRate
		}
		rows = append(rows, m.SpeciesRow{
			Mutant:     sp.MutantName,
			Epistate:   sp.Signature,
			GrowthRate: sp.GrowthRate,
			DeathRate:  sp.DeathRate,
			SwitchRate: switchRate,
		})
	})

	return rows
}

// CountRows renders the counts table: the live cell count of every
// species.
func (s *Simulation) CountRows() []m.CountRow {
	rows := make([]m.CountRow, 0, s.registry.NumSpecies())
	s.registry.EachSpecies(func(sp m.Species) {
		rows = append(rows, m.CountRow{
			Mutant:   sp.MutantName,
			Epistate: sp.Signature,
			Counts:   s.registry.CurrentCells(sp.ID),
		})
	})

	return rows
}

// CellRows renders the cells table for the filtered region in
// row-major order.
func (s *Simulation) CellRows(filter CellFilter) ([]m.CellRow, error) {
	wanted, err := s.speciesFilter(filter)
	if err != nil {
		return nil, err
	}

	region := s.tissue.Bounds()
	if filter.Region != nil {
		region = *filter.Region
	}

	var rows []m.CellRow
	s.tissue.EachInRectangle(region, func(pos m.Position, cell *m.CellInTissue) bool {
		if cell == nil || !wanted[cell.SpeciesID] {
			return true
		}
		sp := s.registry.species[cell.SpeciesID].Descriptor
		rows = append(rows, m.CellRow{
			CellID:    cell.ID,
			Mutant:    sp.MutantName,
			Epistate:  sp.Signature,
			PositionX: pos.X,
			PositionY: pos.Y,
		})
		return true
	})

	return rows, nil
}

// speciesFilter resolves the mutant and epistate filters to the set
// of admitted species ids.
func (s *Simulation) speciesFilter(filter CellFilter) (map[m.SpeciesID]bool, error) {
	epistates := filter.Epistates
	if len(epistates) == 0 {
		epistates = []m.Signature{m.SignatureNone, m.SignaturePlus, m.SignatureMinus}
	}
	admitted := make(map[m.Signature]bool, len(epistates))
	for _, signature := range epistates {
		admitted[signature] = true
	}

	wanted := make(map[m.SpeciesID]bool)
	if len(filter.Mutants) == 0 {
		s.registry.EachSpecies(func(sp m.Species) {
			if admitted[sp.Signature] {
				wanted[sp.ID] = true
			}
		})
		return wanted, nil
	}

	for _, name := range filter.Mutants {
		mutant, err := s.registry.MutantByName(name)
		if err != nil {
			return nil, err
		}
		for _, id := range mutant.SpeciesIDs {
			if admitted[s.registry.species[id].Descriptor.Signature] {
				wanted[id] = true
			}
		}
	}

	return wanted, nil
}

// CellAt returns the cells-table row of the live cell at the
// position.
func (s *Simulation) CellAt(pos m.Position) (m.CellRow, error) {
	cell := s.tissue.Get(pos)
	if cell == nil {
		return m.CellRow{}, fmt.Errorf("%w: no cell at position (%d,%d)", m.ErrNotFound, pos.X, pos.Y)
	}

	sp := s.registry.species[cell.SpeciesID].Descriptor

	return m.CellRow{
		CellID:    cell.ID,
		Mutant:    sp.MutantName,
		Epistate:  sp.Signature,
		PositionX: pos.X,
		PositionY: pos.Y,
	}, nil
}

// ChooseCellIn returns a uniformly chosen live cell of the mutant,
// restricted to the rectangle when one is given. Under border growth
// the choice is restricted to border cells, mirroring the cells a
// duplication could pick.
func (s *Simulation) ChooseCellIn(mutantName string, region *m.Rectangle) (m.CellRow, error) {
	mutant, err := s.registry.MutantByName(mutantName)
	if err != nil {
		return m.CellRow{}, err
	}

	var candidates []m.CellID
	for _, id := range mutant.SpeciesIDs {
		set := s.populations[id]
		if !s.duplicateInternalCells {
			set = s.borders[id]
		}
		for _, cellID := range set.IDs() {
			if region != nil && !region.Contains(s.livePos[cellID]) {
				continue
			}
			candidates = append(candidates, cellID)
		}
	}
	if len(candidates) == 0 {
		return m.CellRow{}, fmt.Errorf("%w: mutant %q has no eligible cell", m.ErrNotFound, mutantName)
	}

	return s.CellAt(s.livePos[candidates[s.rng.IntN(len(candidates))]])
}

// AddedCellRows renders the added_cells table: every cell whose
// species differs from its parent's, in insertion order.
func (s *Simulation) AddedCellRows() []m.AddedCellRow {
	rows := make([]m.AddedCellRow, 0, len(s.addedCells))
	for _, added := range s.addedCells {
		sp := s.registry.species[added.SpeciesID].Descriptor
		rows = append(rows, m.AddedCellRow{
			Mutant:    sp.MutantName,
			Epistate:  sp.Signature,
			PositionX: added.Pos.X,
			PositionY: added.Pos.Y,
			Time:      added.Time,
		})
	}

	return rows
}

// LineageRows renders the lineage_graph table ordered by first cross
// time, then ancestor, then progeny.
func (s *Simulation) LineageRows() []m.LineageRow {
	edges := s.lineage.Edges()
	rows := make([]m.LineageRow, 0, len(edges))
	for _, edge := range edges {
		rows = append(rows, m.LineageRow{
			Ancestor:   s.speciesLabel(edge.Ancestor),
			Progeny:    s.speciesLabel(edge.Progeny),
			FirstCross: edge.FirstTime,
		})
	}

	return rows
}

func (s *Simulation) speciesLabel(id m.SpeciesID) string {
	if id == m.WildTypeSpecies {
		return m.WildTypeName
	}

	return s.registry.species[id].Descriptor.Name()
}

// FiringRows renders the firings table: the cumulative firings of
// every (event, species) pair.
func (s *Simulation) FiringRows() []m.FiringRow {
	var rows []m.FiringRow
	s.registry.EachSpecies(func(sp m.Species) {
		for _, event := range m.EventKinds {
			rows = append(rows, m.FiringRow{
				Event:    event.String(),
				Mutant:   sp.MutantName,
				Epistate: sp.Signature,
				Fired:    s.registry.EventCount(sp.ID, event),
			})
		}
	})

	return rows
}

// FiringHistoryRows renders the firing_history table over the
// inclusive time window.
func (s *Simulation) FiringHistoryRows(minTime, maxTime float64) []m.FiringHistoryRow {
	var rows []m.FiringHistoryRow
	for _, point := range s.stats.Window(minTime, maxTime) {
		s.registry.EachSpecies(func(sp m.Species) {
			counters := countersAt(point, sp.ID)
			for _, event := range m.EventKinds {
				fired := counters.Duplications
				switch event {
				case m.EventDeath:
					fired = counters.Deaths
				case m.EventSwitch:
					fired = counters.Switches
				}
				rows = append(rows, m.FiringHistoryRow{
					Event:    event.String(),
					Mutant:   sp.MutantName,
					Epistate: sp.Signature,
					Fired:    fired,
					Time:     point.Time,
				})
			}
		})
	}

	return rows
}

// CountHistoryRows renders the count_history table over the inclusive
// time window.
func (s *Simulation) CountHistoryRows(minTime, maxTime float64) []m.CountHistoryRow {
	var rows []m.CountHistoryRow
	for _, point := range s.stats.Window(minTime, maxTime) {
		s.registry.EachSpecies(func(sp m.Species) {
			rows = append(rows, m.CountHistoryRow{
				Mutant:   sp.MutantName,
				Epistate: sp.Signature,
				Count:    countersAt(point, sp.ID).CurrentCells,
				Time:     point.Time,
			})
		})
	}

	return rows
}

// countersAt tolerates species registered after the point was taken.
func countersAt(point StatPoint, id m.SpeciesID) SpeciesCounters {
	if int(id) >= len(point.Counters) {
		return SpeciesCounters{}
	}

	return point.Counters[id]
}

// LastHistoryTime returns the time of the newest statistics point.
func (s *Simulation) LastHistoryTime() (float64, bool) {
	return s.stats.LastTime()
}

// SampleInfoRows renders the samples_info table in sample creation
// order.
func (s *Simulation) SampleInfoRows() []m.SampleInfoRow {
	rows := make([]m.SampleInfoRow, 0, len(s.samples))
	for _, sample := range s.samples {
		rows = append(rows, m.SampleInfoRow{
			Name:          sample.Name,
			XMin:          sample.Region.Lower.X,
			YMin:          sample.Region.Lower.Y,
			XMax:          sample.Region.Upper.X,
			YMax:          sample.Region.Upper.Y,
			TumouralCells: len(sample.CellIDs),
			Time:          sample.Time,
		})
	}

	return rows
}
