package model

// CellID is a monotonically increasing 64-bit cell identifier, unique
// per simulation. Zero is never assigned; it marks a missing parent.
type CellID uint64

// NoParent is the parent id of founder cells.
const NoParent CellID = 0

// CellInTissue is a live cell occupying a tissue slot.
type CellInTissue struct {
	ID        CellID
	SpeciesID SpeciesID
	ParentID  CellID
	BirthTime float64
	Pos       Position
}

// CellRecord is the ancestry archive entry kept for every cell the
// simulation ever created. The samples forest is built from these.
type CellRecord struct {
	ID        CellID
	ParentID  CellID
	SpeciesID SpeciesID
	BirthTime float64
}

// AddedCell records a cell whose species differs from its parent's:
// founders, scheduled-mutation progeny, and forced-mutation progeny.
type AddedCell struct {
	SpeciesID SpeciesID
	Pos       Position
	Time      float64
}
