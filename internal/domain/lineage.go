package domain

import (
	"sort"

	m "clonex.dev/pkg/clonex/internal/model"
)

// LineageRecorder keeps the first occurrence time of every
// ancestor-species to progeny-species transition observed during the
// simulation. Later occurrences of a recorded pair are ignored.
type LineageRecorder struct {
	firstSeen map[[2]m.SpeciesID]float64
}

// NewLineageRecorder returns an empty recorder.
func NewLineageRecorder() *LineageRecorder {
	return &LineageRecorder{firstSeen: make(map[[2]m.SpeciesID]float64)}
}

// Record notes a transition at the given time; the first time wins.
func (l *LineageRecorder) Record(ancestor, progeny m.SpeciesID, time float64) {
	key := [2]m.SpeciesID{ancestor, progeny}
	if _, ok := l.firstSeen[key]; ok {
		return
	}
	l.firstSeen[key] = time
}

// Edges returns the recorded transitions sorted by time, then
// ancestor id, then progeny id.
func (l *LineageRecorder) Edges() []m.LineageEdge {
	edges := make([]m.LineageEdge, 0, len(l.firstSeen))
	for key, time := range l.firstSeen {
		edges = append(edges, m.LineageEdge{Ancestor: key[0], Progeny: key[1], FirstTime: time})
	}

	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.FirstTime != b.FirstTime {
			return a.FirstTime < b.FirstTime
		}
		if a.Ancestor != b.Ancestor {
			return a.Ancestor < b.Ancestor
		}
		return a.Progeny < b.Progeny
	})

	return edges
}

// Restore rebuilds the recorder from an edge list.
func (l *LineageRecorder) Restore(edges []m.LineageEdge) {
	l.firstSeen = make(map[[2]m.SpeciesID]float64, len(edges))
	for _, edge := range edges {
		l.firstSeen[[2]m.SpeciesID{edge.Ancestor, edge.Progeny}] = edge.FirstTime
	}
}
