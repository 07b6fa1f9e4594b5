package adapter

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "clonex.dev/pkg/clonex/internal/model"
)

func TestSQLiteExport(t *testing.T) {
	sim := grownSimulation(t)
	require.NoError(t, sim.Sample("S1", m.Rectangle{
		Lower: m.Position{X: 25, Y: 25}, Upper: m.Position{X: 35, Y: 35},
	}))

	path := filepath.Join(t.TempDir(), "out.db")
	require.NoError(t, NewSQLiteExporter().Export(path, sim))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	t.Run("every query table exists", func(t *testing.T) {
		for _, table := range []string{
			"species", "counts", "cells", "added_cells", "lineage_graph",
			"firings", "firing_history", "count_history", "samples_info", "forest_nodes",
		} {
			var count int
			err := db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
			require.NoError(t, err)
			assert.Equal(t, 1, count, "missing table %s", table)
		}
	})

	t.Run("counts agree with the simulation", func(t *testing.T) {
		var total int64
		require.NoError(t, db.QueryRow(`SELECT sum(counts) FROM counts`).Scan(&total))
		assert.Equal(t, int64(sim.TotalCells()), total)

		var cells int64
		require.NoError(t, db.QueryRow(`SELECT count(*) FROM cells`).Scan(&cells))
		assert.Equal(t, int64(sim.TotalCells()), cells)
	})

	t.Run("sample row matches", func(t *testing.T) {
		var name string
		var tumoural int64
		require.NoError(t, db.QueryRow(`SELECT name, tumoural_cells FROM samples_info`).Scan(&name, &tumoural))
		assert.Equal(t, "S1", name)
		assert.Equal(t, int64(len(sim.Samples()[0].CellIDs)), tumoural)
	})

	t.Run("plain species exports a NULL switch rate", func(t *testing.T) {
		var switchRate sql.NullFloat64
		require.NoError(t, db.QueryRow(`SELECT switch_rate FROM species WHERE mutant='A'`).Scan(&switchRate))
		assert.False(t, switchRate.Valid)
	})

	t.Run("forest leaves carry their sample", func(t *testing.T) {
		var leaves int64
		require.NoError(t, db.QueryRow(`SELECT count(*) FROM forest_nodes WHERE sample='S1'`).Scan(&leaves))
		assert.Equal(t, int64(len(sim.Samples()[0].CellIDs)), leaves)
	})
}
