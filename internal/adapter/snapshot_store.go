// Package adapter provides the IO edges of clonex: snapshot
// persistence, scenario loading, and tabular export.
package adapter

import (
	"errors"
	"fmt"

	"clonex.dev/pkg/clonex/internal/domain"
	m "clonex.dev/pkg/clonex/internal/model"
	"clonex.dev/pkg/clonex/pkg"
)

// SnapshotStore persists simulations as versioned binary archives.
type SnapshotStore interface {
	Save(path string, sim *domain.Simulation) error
	Load(path string) (*domain.Simulation, error)
}

type snapshotStore struct{}

// NewSnapshotStore returns the archive-backed snapshot store.
func NewSnapshotStore() SnapshotStore {
	return snapshotStore{}
}

// Save exports the simulation state into an archive file.
func (snapshotStore) Save(path string, sim *domain.Simulation) error {
	state, err := sim.ExportState()
	if err != nil {
		return fmt.Errorf("export simulation: %w", err)
	}

	if err := pkg.WriteArchive(path, state.Seed, state); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	return nil
}

// Load rebuilds a simulation from an archive file. Unreadable
// archives surface ErrCorrupt.
func (snapshotStore) Load(path string) (*domain.Simulation, error) {
	_, state, err := pkg.ReadArchive[domain.SimulationState](path)
	if err != nil {
		var bad *pkg.ErrBadArchive
		if errors.As(err, &bad) {
			return nil, fmt.Errorf("%w: %v", m.ErrCorrupt, err)
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	sim, err := domain.RestoreSimulation(state)
	if err != nil {
		return nil, err
	}

	return sim, nil
}
