package controller

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// RunMonitor is a live Bubble Tea view of a running simulation. It
// doubles as the host side of the cooperative cancellation protocol:
// pressing q or ctrl+c raises the cancellation flag the engine polls.
type RunMonitor struct {
	program *tea.Program
	cancel  atomic.Bool
	wg      sync.WaitGroup
}

type progressMsg struct {
	time   float64
	cells  uint64
	events uint64
}

type finishedMsg struct{}

// NewRunMonitor builds a monitor writing to the given output. When
// targetTime is positive the view shows a completion bar, otherwise
// only the live counters.
func NewRunMonitor(output io.Writer, title string, targetTime float64) *RunMonitor {
	monitor := &RunMonitor{}

	model := runModel{
		title:      title,
		targetTime: targetTime,
		spin:       spinner.New(spinner.WithSpinner(spinner.Dot)),
		bar:        progress.New(progress.WithDefaultGradient()),
		cancel:     &monitor.cancel,
	}

	monitor.program = tea.NewProgram(model, tea.WithOutput(output))

	return monitor
}

// Start launches the monitor loop in the background.
func (r *RunMonitor) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_, _ = r.program.Run()
	}()
}

// Observe feeds the monitor a progress update from the engine.
func (r *RunMonitor) Observe(time float64, cells, events uint64) {
	r.program.Send(progressMsg{time: time, cells: cells, events: events})
}

// Hook returns the cancellation hook the engine polls.
func (r *RunMonitor) Hook() func() bool {
	return r.cancel.Load
}

// Stop terminates the monitor and waits for its loop to exit.
func (r *RunMonitor) Stop() {
	r.program.Send(finishedMsg{})
	r.wg.Wait()
}

var (
	monitorTitleStyle = lipgloss.NewStyle().Bold(true)
	monitorStatsStyle = lipgloss.NewStyle().Faint(true)
	cancellingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

type runModel struct {
	title      string
	targetTime float64

	spin spinner.Model
	bar  progress.Model

	time   float64
	cells  uint64
	events uint64

	cancel     *atomic.Bool
	cancelling bool
}

func (rm runModel) Init() tea.Cmd {
	return rm.spin.Tick
}

func (rm runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			rm.cancelling = true
			rm.cancel.Store(true)
			return rm, nil
		}
		return rm, nil

	case progressMsg:
		rm.time = msg.time
		rm.cells = msg.cells
		rm.events = msg.events
		return rm, nil

	case finishedMsg:
		return rm, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		rm.spin, cmd = rm.spin.Update(msg)
		return rm, cmd

	case tea.WindowSizeMsg:
		rm.bar.Width = msg.Width - 8
		return rm, nil
	}

	return rm, nil
}

func (rm runModel) View() string {
	var b strings.Builder

	b.WriteString(rm.spin.View())
	b.WriteString(" ")
	b.WriteString(monitorTitleStyle.Render(rm.title))
	b.WriteString("\n")

	if rm.targetTime > 0 {
		ratio := rm.time / rm.targetTime
		if ratio > 1 {
			ratio = 1
		}
		b.WriteString(rm.bar.ViewAs(ratio))
		b.WriteString("\n")
	}

	b.WriteString(monitorStatsStyle.Render(
		fmt.Sprintf("time %.4f  cells %d  events %d", rm.time, rm.cells, rm.events)))
	b.WriteString("\n")

	if rm.cancelling {
		b.WriteString(cancellingStyle.Render("cancelling at the next polling point..."))
		b.WriteString("\n")
	} else {
		b.WriteString(monitorStatsStyle.Render("press q to cancel"))
		b.WriteString("\n")
	}

	return b.String()
}
