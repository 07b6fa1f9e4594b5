package adapter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clonex.dev/pkg/clonex/internal/domain"
	m "clonex.dev/pkg/clonex/internal/model"
)

func grownSimulation(t *testing.T) *domain.Simulation {
	t.Helper()

	sim, err := domain.NewSimulation("store-test", 60, 60, 5)
	require.NoError(t, err)
	require.NoError(t, sim.AddSimpleMutant("A", 0.3, 0.01))
	require.NoError(t, sim.PlaceCell("A", m.Position{X: 30, Y: 30}))
	require.NoError(t, sim.RunUpToTime(10, nil))

	return sim
}

func TestSnapshotStoreRoundTrip(t *testing.T) {
	store := NewSnapshotStore()
	sim := grownSimulation(t)
	path := filepath.Join(t.TempDir(), "sim.clnx")

	require.NoError(t, store.Save(path, sim))

	restored, err := store.Load(path)
	require.NoError(t, err)

	assert.Equal(t, sim.Time(), restored.Time())
	assert.Equal(t, sim.TotalCells(), restored.TotalCells())
	assert.Equal(t, sim.Seed(), restored.Seed())
	assert.Equal(t, sim.CountRows(), restored.CountRows())

	// The restored simulation continues identically to the original.
	require.NoError(t, sim.RunUpToTime(15, nil))
	require.NoError(t, restored.RunUpToTime(15, nil))
	assert.Equal(t, sim.TotalEvents(), restored.TotalEvents())
}

func TestSnapshotStoreLoadFailures(t *testing.T) {
	store := NewSnapshotStore()

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "garbage.clnx")
		require.NoError(t, os.WriteFile(path, []byte("CLNXgarbagegarbagegarbage"), 0o644))

		_, err := store.Load(path)
		assert.ErrorIs(t, err, m.ErrCorrupt)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := store.Load(filepath.Join(t.TempDir(), "absent.clnx"))
		assert.Error(t, err)
		assert.NotErrorIs(t, err, m.ErrCorrupt)
	})
}
