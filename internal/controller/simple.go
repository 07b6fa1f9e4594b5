package controller

import (
	"bytes"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	summaryStyle = lipgloss.NewStyle().Faint(true)
)

// SimpleUI implements UI using cobra Command's Println.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// DisplayTable renders a query table under a styled title.
func (s *SimpleUI) DisplayTable(title string, header []string, rows [][]string) error {
	s.cmd.Println(titleStyle.Render(title))
	s.cmd.Print(renderTable(header, rows))
	s.cmd.Println()

	return nil
}

// DisplayRunSummary prints the closing line of a simulation run.
func (s *SimpleUI) DisplayRunSummary(name string, time float64, cells, events uint64) error {
	s.cmd.Println(summaryStyle.Render(
		"simulation " + name + " stopped"))
	s.cmd.Printf("  time: %.4f  cells: %d  events: %d\n\n", time, cells, events)

	return nil
}

func renderTable(header []string, rows [][]string) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)

	for _, row := range rows {
		table.Append(row)
	}

	table.Render()

	return tableBuffer.String()
}
