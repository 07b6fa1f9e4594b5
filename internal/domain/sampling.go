package domain

import (
	"fmt"
	"log/slog"

	m "clonex.dev/pkg/clonex/internal/model"
)

// Sample drains every live cell inside the rectangle (clipped to the
// tissue) into a named sample taken at the current simulated time.
// The cells leave the grid but stay referenced by the ancestry
// archive, so the samples forest can still reach them.
func (s *Simulation) Sample(name string, region m.Rectangle) error {
	if name == "" {
		return fmt.Errorf("%w: sample name must not be empty", m.ErrPrecondition)
	}
	if s.sampleNames[name] {
		return fmt.Errorf("%w: sample %q already exists", m.ErrPrecondition, name)
	}

	var drained []m.CellID
	s.tissue.EachInRectangle(region, func(pos m.Position, cell *m.CellInTissue) bool {
		if cell != nil {
			drained = append(drained, cell.ID)
		}
		return true
	})

	for _, id := range drained {
		cell := s.tissue.Get(s.livePos[id])
		s.dropCell(cell)
		s.sampledBy[id] = name
	}

	s.samples = append(s.samples, m.Sample{
		Name:    name,
		Time:    s.time,
		Region:  region,
		CellIDs: drained,
	})
	s.sampleNames[name] = true

	slog.Info("tissue sampled", "sample", name, "cells", len(drained), "time", s.time)

	return nil
}

// Samples returns the recorded samples in creation order.
func (s *Simulation) Samples() []m.Sample { return s.samples }

// TumourBoundingBox returns the smallest rectangle containing every
// live cell. It fails when the tissue holds none.
func (s *Simulation) TumourBoundingBox() (m.Rectangle, error) {
	if s.totalCells == 0 {
		return m.Rectangle{}, fmt.Errorf("%w: the tissue does not contain any cell", m.ErrNotFound)
	}

	width, height := s.tissue.Size()
	lower := m.Position{X: width, Y: height}
	upper := m.Position{X: 0, Y: 0}

	s.tissue.EachInRectangle(s.tissue.Bounds(), func(pos m.Position, cell *m.CellInTissue) bool {
		if cell == nil {
			return true
		}
		if pos.X < lower.X {
			lower.X = pos.X
		}
		if pos.Y < lower.Y {
			lower.Y = pos.Y
		}
		if pos.X > upper.X {
			upper.X = pos.X
		}
		if pos.Y > upper.Y {
			upper.Y = pos.Y
		}
		return true
	})

	return m.Rectangle{Lower: lower, Upper: upper}, nil
}

// SearchSample locates a width x height rectangle inside the tumour
// bounding box holding strictly more than count cells of the mutant.
// The bounding box is covered with a grid of width x height tiles and
// the tiles are scanned in an outward spiral from the grid centre;
// the first satisfying tile wins.
func (s *Simulation) SearchSample(mutantName string, count uint64, width, height int) (m.Rectangle, error) {
	if width <= 0 || height <= 0 {
		return m.Rectangle{}, fmt.Errorf("%w: sample dimensions must be positive", m.ErrPrecondition)
	}

	mutant, err := s.registry.MutantByName(mutantName)
	if err != nil {
		return m.Rectangle{}, err
	}
	wanted := make(map[m.SpeciesID]bool, len(mutant.SpeciesIDs))
	for _, id := range mutant.SpeciesIDs {
		wanted[id] = true
	}

	box, err := s.TumourBoundingBox()
	if err != nil {
		return m.Rectangle{}, err
	}

	tilesX := (box.Width() + width - 1) / width
	tilesY := (box.Height() + height - 1) / height

	for _, tile := range spiralOrder(tilesX, tilesY) {
		rect := m.Rectangle{
			Lower: m.Position{X: box.Lower.X + tile.X*width, Y: box.Lower.Y + tile.Y*height},
		}
		rect.Upper = m.Position{X: rect.Lower.X + width - 1, Y: rect.Lower.Y + height - 1}

		if s.countMutantCells(rect, wanted) > count {
			return rect, nil
		}
	}

	return m.Rectangle{}, fmt.Errorf("%w: no %dx%d rectangle holds more than %d %q cells",
		m.ErrNotFound, width, height, count, mutantName)
}

func (s *Simulation) countMutantCells(rect m.Rectangle, wanted map[m.SpeciesID]bool) uint64 {
	var counted uint64
	s.tissue.EachInRectangle(rect, func(_ m.Position, cell *m.CellInTissue) bool {
		if cell != nil && wanted[cell.SpeciesID] {
			counted++
		}
		return true
	})

	return counted
}

// spiralOrder yields the tile coordinates of a tilesX x tilesY grid in
// an outward spiral starting at the grid centre. Tiles outside the
// grid are skipped, so narrow grids still enumerate every tile once.
func spiralOrder(tilesX, tilesY int) []m.Position {
	if tilesX <= 0 || tilesY <= 0 {
		return nil
	}

	total := tilesX * tilesY
	order := make([]m.Position, 0, total)
	visit := func(x, y int) {
		if x >= 0 && x < tilesX && y >= 0 && y < tilesY {
			order = append(order, m.Position{X: x, Y: y})
		}
	}

	x, y := tilesX/2, tilesY/2
	visit(x, y)

	// Walk right, up, left, down with leg lengths 1,1,2,2,3,3,...
	// covering an ever larger ring around the centre.
	steps := [4]m.Direction{{1, 0}, {0, -1}, {-1, 0}, {0, 1}}
	leg := 1
	for turn := 0; len(order) < total; turn++ {
		d := steps[turn%4]
		for i := 0; i < leg && len(order) < total; i++ {
			x += d.DX
			y += d.DY
			visit(x, y)
		}
		if turn%2 == 1 {
			leg++
		}
	}

	return order
}
