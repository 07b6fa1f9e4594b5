package domain

import (
	"fmt"
	"sort"

	m "clonex.dev/pkg/clonex/internal/model"
)

// ForestNode is a cell of the samples forest: either a sampled cell
// (a leaf, carrying its sample name) or an ancestor of one.
type ForestNode struct {
	Cell   m.CellRecord
	Sample string
}

// SamplesForest is the ancestry forest of all sampled cells, rooted
// at founders. It owns a copy of the cell records it needs, so it
// stays valid while the originating simulation keeps running.
type SamplesForest struct {
	nodes       []ForestNode
	indexByID   map[m.CellID]int
	parentIndex []int
	depth       []int

	records map[m.CellID]m.CellRecord
	species map[m.SpeciesID]m.Species
}

// SamplesForest builds the descendants forest linking every sampled
// cell back to the founders.
func (s *Simulation) SamplesForest() *SamplesForest {
	sampleOf := make(map[m.CellID]string, len(s.sampledBy))
	for id, name := range s.sampledBy {
		sampleOf[id] = name
	}

	species := make(map[m.SpeciesID]m.Species, s.registry.NumSpecies())
	s.registry.EachSpecies(func(sp m.Species) { species[sp.ID] = sp })

	return buildForest(s.ancestry, sampleOf, species)
}

func buildForest(records map[m.CellID]m.CellRecord, sampleOf map[m.CellID]string,
	species map[m.SpeciesID]m.Species) *SamplesForest {
	needed := make(map[m.CellID]m.CellRecord)
	for id := range sampleOf {
		for walk := id; walk != m.NoParent; {
			record, ok := records[walk]
			if !ok {
				panic(fmt.Errorf("%w: cell %d has no ancestry record", m.ErrInternal, walk))
			}
			if _, seen := needed[walk]; seen {
				break
			}
			needed[walk] = record
			walk = record.ParentID
		}
	}

	ids := make([]m.CellID, 0, len(needed))
	for id := range needed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	forest := &SamplesForest{
		indexByID: make(map[m.CellID]int, len(ids)),
		records:   needed,
		species:   species,
	}
	for at, id := range ids {
		forest.nodes = append(forest.nodes, ForestNode{Cell: needed[id], Sample: sampleOf[id]})
		forest.indexByID[id] = at
	}

	forest.parentIndex = make([]int, len(forest.nodes))
	for at, node := range forest.nodes {
		forest.parentIndex[at] = -1
		if node.Cell.ParentID != m.NoParent {
			forest.parentIndex[at] = forest.indexByID[node.Cell.ParentID]
		}
	}

	// Depths are well defined because cell ids grow monotonically:
	// every parent sorts before its children.
	forest.depth = make([]int, len(forest.nodes))
	for at := range forest.nodes {
		if parent := forest.parentIndex[at]; parent >= 0 {
			forest.depth[at] = forest.depth[parent] + 1
		}
	}

	return forest
}

// Nodes returns every node ordered by cell id.
func (f *SamplesForest) Nodes() []ForestNode { return f.nodes }

// Leaves returns the sampled cells ordered by cell id.
func (f *SamplesForest) Leaves() []ForestNode {
	var leaves []ForestNode
	for _, node := range f.nodes {
		if node.Sample != "" {
			leaves = append(leaves, node)
		}
	}

	return leaves
}

// NodeRows renders the forest as forest_nodes table rows.
func (f *SamplesForest) NodeRows() []m.ForestNodeRow {
	rows := make([]m.ForestNodeRow, 0, len(f.nodes))
	for _, node := range f.nodes {
		sp := f.species[node.Cell.SpeciesID]
		rows = append(rows, m.ForestNodeRow{
			CellID:    node.Cell.ID,
			Ancestor:  node.Cell.ParentID,
			Mutant:    sp.MutantName,
			Epistate:  sp.Signature,
			Sample:    node.Sample,
			BirthTime: node.Cell.BirthTime,
		})
	}

	return rows
}

// CoalescentCells returns the most recent common ancestors of the
// given cells, or of all leaves when none are given. Cells in
// different trees of the forest have no common ancestor and yield an
// empty set.
func (f *SamplesForest) CoalescentCells(cellIDs []m.CellID) ([]ForestNode, error) {
	indices := make(map[int]bool)
	if len(cellIDs) == 0 {
		for at, node := range f.nodes {
			if node.Sample != "" {
				indices[at] = true
			}
		}
	} else {
		for _, id := range cellIDs {
			at, ok := f.indexByID[id]
			if !ok {
				return nil, fmt.Errorf("%w: cell %d is not part of the forest", m.ErrNotFound, id)
			}
			indices[at] = true
		}
	}
	if len(indices) == 0 {
		return nil, nil
	}

	// Lift the deepest pointer until all pointers coincide; hitting a
	// root while pointers still differ means the inputs span distinct
	// trees.
	for len(indices) > 1 {
		deepest := -1
		for at := range indices {
			if deepest < 0 || f.depth[at] > f.depth[deepest] {
				deepest = at
			}
		}

		parent := f.parentIndex[deepest]
		if parent < 0 {
			return nil, nil
		}
		delete(indices, deepest)
		indices[parent] = true
	}

	for at := range indices {
		return []ForestNode{f.nodes[at]}, nil
	}

	return nil, nil
}

// SubforestFor projects the forest onto the named samples: the leaves
// shrink to cells of those samples and the ancestors prune to nodes
// still reachable from a remaining leaf.
func (f *SamplesForest) SubforestFor(sampleNames []string) (*SamplesForest, error) {
	known := make(map[string]bool)
	for _, node := range f.nodes {
		if node.Sample != "" {
			known[node.Sample] = true
		}
	}

	keep := make(map[string]bool, len(sampleNames))
	for _, name := range sampleNames {
		if !known[name] {
			return nil, fmt.Errorf("%w: sample %q", m.ErrNotFound, name)
		}
		keep[name] = true
	}

	sampleOf := make(map[m.CellID]string)
	for _, node := range f.nodes {
		if node.Sample != "" && keep[node.Sample] {
			sampleOf[node.Cell.ID] = node.Sample
		}
	}

	return buildForest(f.records, sampleOf, f.species), nil
}
