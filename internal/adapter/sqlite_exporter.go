package adapter

import (
	"database/sql"
	"fmt"
	"math"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"clonex.dev/pkg/clonex/internal/domain"
)

// SQLiteExporter dumps every tabular query of a simulation into a
// SQLite database, one table per query, for downstream analysis.
type SQLiteExporter struct{}

// NewSQLiteExporter returns an exporter.
func NewSQLiteExporter() SQLiteExporter {
	return SQLiteExporter{}
}

// Export writes all query tables of the simulation to the database
// file at path, replacing existing tables.
func (SQLiteExporter) Export(path string, sim *domain.Simulation) (retErr error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); retErr == nil && closeErr != nil {
			retErr = fmt.Errorf("close sqlite: %w", closeErr)
		}
	}()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin export: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if err := exportTables(tx, sim); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit export: %w", err)
	}

	return nil
}

func exportTables(tx *sql.Tx, sim *domain.Simulation) error {
	lastTime, _ := sim.LastHistoryTime()

	cellRows, err := sim.CellRows(domain.CellFilter{})
	if err != nil {
		return err
	}

	steps := []struct {
		schema string
		insert string
		rows   func(stmt *sql.Stmt) error
	}{
		{
			schema: `CREATE TABLE species (mutant TEXT, epistate TEXT, growth_rate REAL, death_rate REAL, switch_rate REAL)`,
			insert: `INSERT INTO species VALUES (?, ?, ?, ?, ?)`,
			rows: func(stmt *sql.Stmt) error {
				for _, row := range sim.SpeciesRows() {
					switchRate := any(row.SwitchRate)
					if math.IsNaN(row.SwitchRate) {
						switchRate = nil
					}
					if _, err := stmt.Exec(row.Mutant, string(row.Epistate), row.GrowthRate, row.DeathRate, switchRate); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			schema: `CREATE TABLE counts (mutant TEXT, epistate TEXT, counts INTEGER)`,
			insert: `INSERT INTO counts VALUES (?, ?, ?)`,
			rows: func(stmt *sql.Stmt) error {
				for _, row := range sim.CountRows() {
					if _, err := stmt.Exec(row.Mutant, string(row.Epistate), int64(row.Counts)); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			schema: `CREATE TABLE cells (cell_id INTEGER, mutant TEXT, epistate TEXT, position_x INTEGER, position_y INTEGER)`,
			insert: `INSERT INTO cells VALUES (?, ?, ?, ?, ?)`,
			rows: func(stmt *sql.Stmt) error {
				for _, row := range cellRows {
					if _, err := stmt.Exec(int64(row.CellID), row.Mutant, string(row.Epistate), row.PositionX, row.PositionY); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			schema: `CREATE TABLE added_cells (mutant TEXT, epistate TEXT, position_x INTEGER, position_y INTEGER, time REAL)`,
			insert: `INSERT INTO added_cells VALUES (?, ?, ?, ?, ?)`,
			rows: func(stmt *sql.Stmt) error {
				for _, row := range sim.AddedCellRows() {
					if _, err := stmt.Exec(row.Mutant, string(row.Epistate), row.PositionX, row.PositionY, row.Time); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			schema: `CREATE TABLE lineage_graph (ancestor TEXT, progeny TEXT, first_cross REAL)`,
			insert: `INSERT INTO lineage_graph VALUES (?, ?, ?)`,
			rows: func(stmt *sql.Stmt) error {
				for _, row := range sim.LineageRows() {
					if _, err := stmt.Exec(row.Ancestor, row.Progeny, row.FirstCross); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			schema: `CREATE TABLE firings (event TEXT, mutant TEXT, epistate TEXT, fired INTEGER)`,
			insert: `INSERT INTO firings VALUES (?, ?, ?, ?)`,
			rows: func(stmt *sql.Stmt) error {
				for _, row := range sim.FiringRows() {
					if _, err := stmt.Exec(row.Event, row.Mutant, string(row.Epistate), int64(row.Fired)); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			schema: `CREATE TABLE firing_history (event TEXT, mutant TEXT, epistate TEXT, fired INTEGER, time REAL)`,
			insert: `INSERT INTO firing_history VALUES (?, ?, ?, ?, ?)`,
			rows: func(stmt *sql.Stmt) error {
				for _, row := range sim.FiringHistoryRows(0, lastTime) {
					if _, err := stmt.Exec(row.Event, row.Mutant, string(row.Epistate), int64(row.Fired), row.Time); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			schema: `CREATE TABLE count_history (mutant TEXT, epistate TEXT, count INTEGER, time REAL)`,
			insert: `INSERT INTO count_history VALUES (?, ?, ?, ?)`,
			rows: func(stmt *sql.Stmt) error {
				for _, row := range sim.CountHistoryRows(0, lastTime) {
					if _, err := stmt.Exec(row.Mutant, string(row.Epistate), int64(row.Count), row.Time); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			schema: `CREATE TABLE samples_info (name TEXT, xmin INTEGER, ymin INTEGER, xmax INTEGER, ymax INTEGER, tumoural_cells INTEGER, time REAL)`,
			insert: `INSERT INTO samples_info VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rows: func(stmt *sql.Stmt) error {
				for _, row := range sim.SampleInfoRows() {
					if _, err := stmt.Exec(row.Name, row.XMin, row.YMin, row.XMax, row.YMax, row.TumouralCells, row.Time); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			schema: `CREATE TABLE forest_nodes (cell_id INTEGER, ancestor INTEGER, mutant TEXT, epistate TEXT, sample TEXT, birth_time REAL)`,
			insert: `INSERT INTO forest_nodes VALUES (?, ?, ?, ?, ?, ?)`,
			rows: func(stmt *sql.Stmt) error {
				for _, row := range sim.SamplesForest().NodeRows() {
					ancestor := any(int64(row.Ancestor))
					if row.Ancestor == 0 {
						ancestor = nil
					}
					sample := any(row.Sample)
					if row.Sample == "" {
						sample = nil
					}
					if _, err := stmt.Exec(int64(row.CellID), ancestor, row.Mutant, string(row.Epistate), sample, row.BirthTime); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}

	for _, step := range steps {
		var table string
		if _, err := fmt.Sscanf(step.schema, "CREATE TABLE %s", &table); err != nil {
			return fmt.Errorf("parse schema: %w", err)
		}
		if _, err := tx.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
		if _, err := tx.Exec(step.schema); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
		stmt, err := tx.Prepare(step.insert)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		if err := step.rows(stmt); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("insert rows: %w", err)
		}
		if err := stmt.Close(); err != nil {
			return fmt.Errorf("close statement: %w", err)
		}
	}

	return nil
}
