package controller

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	m "clonex.dev/pkg/clonex/internal/model"
)

func captureCommand() (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	buffer := &bytes.Buffer{}
	cmd.SetOut(buffer)
	cmd.SetErr(buffer)

	return cmd, buffer
}

func TestDisplayTable(t *testing.T) {
	cmd, buffer := captureCommand()
	ui := NewSimpleUI(cmd)

	header, rows := CountsTable([]m.CountRow{
		{Mutant: "A", Epistate: m.SignaturePlus, Counts: 42},
		{Mutant: "B", Epistate: m.SignatureNone, Counts: 7},
	})
	if err := ui.DisplayTable("counts", header, rows); err != nil {
		t.Fatalf("DisplayTable failed: %v", err)
	}

	output := buffer.String()
	for _, fragment := range []string{"counts", "mutant", "epistate", "A", "42", "B", "7"} {
		if !strings.Contains(output, fragment) {
			t.Errorf("output missing %q:\n%s", fragment, output)
		}
	}
}

func TestDisplayRunSummary(t *testing.T) {
	cmd, buffer := captureCommand()
	ui := NewSimpleUI(cmd)

	if err := ui.DisplayRunSummary("demo", 12.5, 100, 2000); err != nil {
		t.Fatalf("DisplayRunSummary failed: %v", err)
	}

	output := buffer.String()
	for _, fragment := range []string{"demo", "12.5", "100", "2000"} {
		if !strings.Contains(output, fragment) {
			t.Errorf("output missing %q:\n%s", fragment, output)
		}
	}
}

func TestSpeciesTableFormatsMissingSwitchRate(t *testing.T) {
	_, rows := SpeciesTable([]m.SpeciesRow{
		{Mutant: "A", Epistate: m.SignaturePlus, GrowthRate: 0.2, DeathRate: 0.1, SwitchRate: 0.01},
		{Mutant: "B", Epistate: m.SignatureNone, GrowthRate: 0.3, DeathRate: 0.05, SwitchRate: math.NaN()},
	})

	if rows[0][4] != "0.01" {
		t.Errorf("expected switch rate 0.01, got %q", rows[0][4])
	}
	if rows[1][4] != "NA" {
		t.Errorf("expected NA for a plain species, got %q", rows[1][4])
	}
}

func TestForestTableColumns(t *testing.T) {
	header, rows := ForestTable([]m.ForestNodeRow{
		{CellID: 1, Ancestor: m.NoParent, Mutant: "A", Epistate: m.SignatureNone, BirthTime: 0},
		{CellID: 5, Ancestor: 1, Mutant: "A", Epistate: m.SignatureNone, Sample: "S1", BirthTime: 3.25},
	})

	if len(header) != 6 {
		t.Fatalf("expected 6 columns, got %d", len(header))
	}
	if rows[0][1] != "" {
		t.Errorf("root ancestor must render empty, got %q", rows[0][1])
	}
	if rows[1][1] != "1" || rows[1][4] != "S1" {
		t.Errorf("unexpected leaf row %v", rows[1])
	}
}

func TestParseTableName(t *testing.T) {
	if _, err := ParseTableName("counts"); err != nil {
		t.Fatalf("ParseTableName failed: %v", err)
	}
	if _, err := ParseTableName("nonsense"); err == nil {
		t.Fatal("expected an error for an unknown table")
	}
}
