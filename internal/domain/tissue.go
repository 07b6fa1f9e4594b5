// Package domain implements the clonal evolution engine: the tissue
// grid, the species registry, the Gillespie event scheduler, the
// lineage and statistics recorders, tissue sampling, the samples
// forest, and the Simulation driver binding them together.
package domain

import (
	"fmt"

	m "clonex.dev/pkg/clonex/internal/model"
)

// Tissue is the fixed-size 2D array of cell slots. A nil slot is wild
// type; a non-nil slot holds the live cell occupying the position.
// Slots are stored row-major, as in any dense grid.
type Tissue struct {
	width  int
	height int
	slots  []*m.CellInTissue
}

// NewTissue allocates an empty tissue with the given dimensions.
func NewTissue(width, height int) (*Tissue, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: tissue dimensions must be positive, got %dx%d",
			m.ErrPrecondition, width, height)
	}

	return &Tissue{
		width:  width,
		height: height,
		slots:  make([]*m.CellInTissue, width*height),
	}, nil
}

// Size returns the tissue dimensions.
func (t *Tissue) Size() (int, int) { return t.width, t.height }

// IsValid reports whether the position lies on the grid.
func (t *Tissue) IsValid(pos m.Position) bool {
	return pos.X >= 0 && pos.X < t.width && pos.Y >= 0 && pos.Y < t.height
}

func (t *Tissue) index(pos m.Position) int { return pos.Y*t.width + pos.X }

// Get returns the cell at the position, or nil for a wild-type slot.
func (t *Tissue) Get(pos m.Position) *m.CellInTissue {
	if !t.IsValid(pos) {
		return nil
	}

	return t.slots[t.index(pos)]
}

// Place stores the cell at the position. It fails if the position is
// off-grid or already occupied.
func (t *Tissue) Place(cell *m.CellInTissue, pos m.Position) error {
	if !t.IsValid(pos) {
		return fmt.Errorf("%w: position (%d,%d) is outside the %dx%d tissue",
			m.ErrPrecondition, pos.X, pos.Y, t.width, t.height)
	}
	if t.slots[t.index(pos)] != nil {
		return fmt.Errorf("%w: position (%d,%d) is already occupied",
			m.ErrPrecondition, pos.X, pos.Y)
	}

	cell.Pos = pos
	t.slots[t.index(pos)] = cell

	return nil
}

// Clear empties the slot at the position and returns the cell that
// occupied it, if any.
func (t *Tissue) Clear(pos m.Position) *m.CellInTissue {
	if !t.IsValid(pos) {
		return nil
	}

	at := t.index(pos)
	cell := t.slots[at]
	t.slots[at] = nil

	return cell
}

// Clip intersects the rectangle with the tissue bounds.
func (t *Tissue) Clip(r m.Rectangle) m.Rectangle {
	clipped := r
	if clipped.Lower.X < 0 {
		clipped.Lower.X = 0
	}
	if clipped.Lower.Y < 0 {
		clipped.Lower.Y = 0
	}
	if clipped.Upper.X >= t.width {
		clipped.Upper.X = t.width - 1
	}
	if clipped.Upper.Y >= t.height {
		clipped.Upper.Y = t.height - 1
	}

	return clipped
}

// Bounds returns the rectangle covering the whole tissue.
func (t *Tissue) Bounds() m.Rectangle {
	return m.Rectangle{Upper: m.Position{X: t.width - 1, Y: t.height - 1}}
}

// EachInRectangle visits the rectangle's positions in row-major order
// (increasing y, then increasing x within a row). Positions outside
// the tissue are skipped. Iteration stops when visit returns false.
func (t *Tissue) EachInRectangle(r m.Rectangle, visit func(pos m.Position, cell *m.CellInTissue) bool) {
	clipped := t.Clip(r)
	for y := clipped.Lower.Y; y <= clipped.Upper.Y; y++ {
		for x := clipped.Lower.X; x <= clipped.Upper.X; x++ {
			pos := m.Position{X: x, Y: y}
			if !visit(pos, t.slots[t.index(pos)]) {
				return
			}
		}
	}
}

// HasWildTypeNeighbour reports whether any of the 8 neighbours of the
// position is a wild-type slot. Off-grid neighbours do not count.
func (t *Tissue) HasWildTypeNeighbour(pos m.Position) bool {
	for _, d := range m.Directions {
		q := pos.Move(d)
		if t.IsValid(q) && t.slots[t.index(q)] == nil {
			return true
		}
	}

	return false
}
