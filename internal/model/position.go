// Package model defines the data structures of the clonal evolution
// simulator: tissue positions, species, cells, events, samples, and
// the row types of the tabular queries.
package model

import "fmt"

// Position is an integer coordinate on the tissue grid.
type Position struct {
	X int
	Y int
}

// Rectangle is an inclusive axis-aligned region of the tissue.
// Lower.X <= Upper.X and Lower.Y <= Upper.Y hold by construction.
type Rectangle struct {
	Lower Position
	Upper Position
}

// NewRectangle validates the corner ordering and builds a Rectangle.
func NewRectangle(lower, upper Position) (Rectangle, error) {
	if lower.X > upper.X || lower.Y > upper.Y {
		return Rectangle{}, fmt.Errorf("%w: rectangle lower corner (%d,%d) exceeds upper corner (%d,%d)",
			ErrPrecondition, lower.X, lower.Y, upper.X, upper.Y)
	}

	return Rectangle{Lower: lower, Upper: upper}, nil
}

// Contains reports whether the position lies inside the rectangle.
func (r Rectangle) Contains(pos Position) bool {
	return pos.X >= r.Lower.X && pos.X <= r.Upper.X &&
		pos.Y >= r.Lower.Y && pos.Y <= r.Upper.Y
}

// Width returns the number of columns covered by the rectangle.
func (r Rectangle) Width() int { return r.Upper.X - r.Lower.X + 1 }

// Height returns the number of rows covered by the rectangle.
func (r Rectangle) Height() int { return r.Upper.Y - r.Lower.Y + 1 }

// Direction is one of the 8 non-null neighbour offsets on the lattice.
type Direction struct {
	DX int
	DY int
}

// Directions lists the 8 lattice directions in a fixed order so that
// direction choice is reproducible for a given RNG stream.
var Directions = [8]Direction{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// Move returns the position one step along the direction.
func (p Position) Move(d Direction) Position {
	return Position{X: p.X + d.DX, Y: p.Y + d.DY}
}
