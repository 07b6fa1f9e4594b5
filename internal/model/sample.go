package model

// Sample is a named, timestamped record of the cells drained from a
// rectangular region of the tissue. Once created it is append-only.
type Sample struct {
	Name   string
	Time   float64
	Region Rectangle
	// CellIDs lists the drained cells in row-major region order.
	CellIDs []CellID
}

// ScheduledMutation is a one-shot record converting the progeny of a
// source-mutant duplication to the destination mutant once the
// simulated clock passes Time.
type ScheduledMutation struct {
	Time        float64
	Source      MutantID
	Destination MutantID
}

// LineageEdge records the first time a progeny species appeared out
// of an ancestor species. Founder arrivals use WildTypeSpecies as
// the ancestor.
type LineageEdge struct {
	Ancestor  SpeciesID
	Progeny   SpeciesID
	FirstTime float64
}
