// Package controller renders simulation output: query tables on the
// terminal and a live monitor for long runs.
package controller

import (
	"fmt"
	"math"
	"strconv"

	m "clonex.dev/pkg/clonex/internal/model"
)

// TableName identifies a tabular query for rendering and export.
type TableName string

// The renderable tables.
const (
	TableSpecies       TableName = "species"
	TableCounts        TableName = "counts"
	TableCells         TableName = "cells"
	TableAddedCells    TableName = "added-cells"
	TableLineage       TableName = "lineage"
	TableFirings       TableName = "firings"
	TableFiringHistory TableName = "firing-history"
	TableCountHistory  TableName = "count-history"
	TableSamples       TableName = "samples"
	TableForest        TableName = "forest"
)

// TableNames lists every renderable table.
var TableNames = []TableName{
	TableSpecies, TableCounts, TableCells, TableAddedCells, TableLineage,
	TableFirings, TableFiringHistory, TableCountHistory, TableSamples, TableForest,
}

// UI displays query tables and run summaries.
type UI interface {
	DisplayTable(title string, header []string, rows [][]string) error
	DisplayRunSummary(name string, time float64, cells, events uint64) error
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'g', -1, 64)
}

func formatRate(value float64) string {
	if math.IsNaN(value) {
		return "NA"
	}

	return formatFloat(value)
}

func formatEpistate(signature m.Signature) string {
	if signature == m.SignatureNone {
		return ""
	}

	return string(signature)
}

// SpeciesTable converts species rows to cells for DisplayTable.
func SpeciesTable(rows []m.SpeciesRow) ([]string, [][]string) {
	header := []string{"mutant", "epistate", "growth_rate", "death_rate", "switch_rate"}
	data := make([][]string, 0, len(rows))
	for _, row := range rows {
		data = append(data, []string{
			row.Mutant, formatEpistate(row.Epistate),
			formatFloat(row.GrowthRate), formatFloat(row.DeathRate), formatRate(row.SwitchRate),
		})
	}

	return header, data
}

// CountsTable converts count rows to cells for DisplayTable.
func CountsTable(rows []m.CountRow) ([]string, [][]string) {
	header := []string{"mutant", "epistate", "counts"}
	data := make([][]string, 0, len(rows))
	for _, row := range rows {
		data = append(data, []string{
			row.Mutant, formatEpistate(row.Epistate), strconv.FormatUint(row.Counts, 10),
		})
	}

	return header, data
}

// CellsTable converts cell rows to cells for DisplayTable.
func CellsTable(rows []m.CellRow) ([]string, [][]string) {
	header := []string{"cell_id", "mutant", "epistate", "position_x", "position_y"}
	data := make([][]string, 0, len(rows))
	for _, row := range rows {
		data = append(data, []string{
			strconv.FormatUint(uint64(row.CellID), 10), row.Mutant, formatEpistate(row.Epistate),
			strconv.Itoa(row.PositionX), strconv.Itoa(row.PositionY),
		})
	}

	return header, data
}

// AddedCellsTable converts added-cell rows to cells for DisplayTable.
func AddedCellsTable(rows []m.AddedCellRow) ([]string, [][]string) {
	header := []string{"mutant", "epistate", "position_x", "position_y", "time"}
	data := make([][]string, 0, len(rows))
	for _, row := range rows {
		data = append(data, []string{
			row.Mutant, formatEpistate(row.Epistate),
			strconv.Itoa(row.PositionX), strconv.Itoa(row.PositionY), formatFloat(row.Time),
		})
	}

	return header, data
}

// LineageTable converts lineage rows to cells for DisplayTable.
func LineageTable(rows []m.LineageRow) ([]string, [][]string) {
	header := []string{"ancestor", "progeny", "first_cross"}
	data := make([][]string, 0, len(rows))
	for _, row := range rows {
		data = append(data, []string{row.Ancestor, row.Progeny, formatFloat(row.FirstCross)})
	}

	return header, data
}

// FiringsTable converts firing rows to cells for DisplayTable.
func FiringsTable(rows []m.FiringRow) ([]string, [][]string) {
	header := []string{"event", "mutant", "epistate", "fired"}
	data := make([][]string, 0, len(rows))
	for _, row := range rows {
		data = append(data, []string{
			row.Event, row.Mutant, formatEpistate(row.Epistate), strconv.FormatUint(row.Fired, 10),
		})
	}

	return header, data
}

// FiringHistoryTable converts firing-history rows to cells for
// DisplayTable.
func FiringHistoryTable(rows []m.FiringHistoryRow) ([]string, [][]string) {
	header := []string{"event", "mutant", "epistate", "fired", "time"}
	data := make([][]string, 0, len(rows))
	for _, row := range rows {
		data = append(data, []string{
			row.Event, row.Mutant, formatEpistate(row.Epistate),
			strconv.FormatUint(row.Fired, 10), formatFloat(row.Time),
		})
	}

	return header, data
}

// CountHistoryTable converts count-history rows to cells for
// DisplayTable.
func CountHistoryTable(rows []m.CountHistoryRow) ([]string, [][]string) {
	header := []string{"mutant", "epistate", "count", "time"}
	data := make([][]string, 0, len(rows))
	for _, row := range rows {
		data = append(data, []string{
			row.Mutant, formatEpistate(row.Epistate),
			strconv.FormatUint(row.Count, 10), formatFloat(row.Time),
		})
	}

	return header, data
}

// SamplesTable converts sample-info rows to cells for DisplayTable.
func SamplesTable(rows []m.SampleInfoRow) ([]string, [][]string) {
	header := []string{"name", "xmin", "ymin", "xmax", "ymax", "tumoural_cells", "time"}
	data := make([][]string, 0, len(rows))
	for _, row := range rows {
		data = append(data, []string{
			row.Name, strconv.Itoa(row.XMin), strconv.Itoa(row.YMin),
			strconv.Itoa(row.XMax), strconv.Itoa(row.YMax),
			strconv.Itoa(row.TumouralCells), formatFloat(row.Time),
		})
	}

	return header, data
}

// ForestTable converts forest-node rows to cells for DisplayTable.
func ForestTable(rows []m.ForestNodeRow) ([]string, [][]string) {
	header := []string{"cell_id", "ancestor", "mutant", "epistate", "sample", "birth_time"}
	data := make([][]string, 0, len(rows))
	for _, row := range rows {
		ancestor := ""
		if row.Ancestor != m.NoParent {
			ancestor = strconv.FormatUint(uint64(row.Ancestor), 10)
		}
		data = append(data, []string{
			strconv.FormatUint(uint64(row.CellID), 10), ancestor,
			row.Mutant, formatEpistate(row.Epistate), row.Sample, formatFloat(row.BirthTime),
		})
	}

	return header, data
}

// ParseTableName validates a table name argument.
func ParseTableName(name string) (TableName, error) {
	for _, known := range TableNames {
		if TableName(name) == known {
			return known, nil
		}
	}

	return "", fmt.Errorf("%w: table %q", m.ErrNotFound, name)
}
