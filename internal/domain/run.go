package domain

import (
	"fmt"
	"log/slog"

	m "clonex.dev/pkg/clonex/internal/model"
)

// cancellationPollInterval is the number of events between two
// invocations of the host's cancellation hook.
const cancellationPollInterval = 10000

// CancelHook is supplied by the embedding host; returning true
// requests cancellation at the next polling point. The hook must be
// nonblocking and must not touch the simulation.
type CancelHook func() bool

// EndConditionKind tags the run-until variants.
type EndConditionKind int

// The run-until variants.
const (
	EndTime EndConditionKind = iota
	EndSize
	EndEventCount
)

// EndCondition is the tagged termination predicate shared by the
// three run-until operations.
type EndCondition struct {
	Kind    EndConditionKind
	Time    float64
	Species m.SpeciesID
	Event   m.EventKind
	Count   uint64
}

// Met dispatches on the condition tag.
func (c EndCondition) Met(s *Simulation) bool {
	switch c.Kind {
	case EndTime:
		return s.time >= c.Time
	case EndSize:
		return s.registry.CurrentCells(c.Species) >= c.Count
	case EndEventCount:
		return s.registry.EventCount(c.Species, c.Event) >= c.Count
	default:
		return true
	}
}

// Run advances the simulation until the condition holds, the total
// propensity collapses to zero, or the host requests cancellation.
// Cancellation is surfaced as ErrCancelled with the state preserved;
// a later Run resumes from the last completed event.
func (s *Simulation) Run(condition EndCondition, hook CancelHook) error {
	if s.totalCells == 0 {
		return fmt.Errorf("%w: the tissue does not contain any cell", m.ErrPrecondition)
	}

	slog.Info("run started", "simulation", s.name, "time", s.time, "cells", s.totalCells)

	sincePoll := 0
	for !condition.Met(s) {
		if !s.step() {
			slog.Info("run exhausted", "simulation", s.name, "time", s.time)
			break
		}

		sincePoll++
		if sincePoll < cancellationPollInterval {
			continue
		}
		sincePoll = 0

		if s.progressFn != nil {
			s.progressFn(Progress{Time: s.time, TotalCells: s.totalCells, TotalEvents: s.totalEvents})
		}
		if hook != nil && hook() {
			s.stats.Finalize(s.time, s.registry)
			slog.Info("run cancelled", "simulation", s.name, "time", s.time, "cells", s.totalCells)

			return fmt.Errorf("%w: run interrupted by the host", m.ErrCancelled)
		}
	}

	s.stats.Finalize(s.time, s.registry)
	slog.Info("run finished", "simulation", s.name, "time", s.time, "cells", s.totalCells)

	return nil
}

// RunUpToTime runs until the simulated clock reaches endTime.
func (s *Simulation) RunUpToTime(endTime float64, hook CancelHook) error {
	return s.Run(EndCondition{Kind: EndTime, Time: endTime}, hook)
}

// RunUpToSize runs until the named species holds at least count live
// cells.
func (s *Simulation) RunUpToSize(speciesName string, count uint64, hook CancelHook) error {
	species, err := s.registry.SpeciesByName(speciesName)
	if err != nil {
		return err
	}

	return s.Run(EndCondition{Kind: EndSize, Species: species.ID, Count: count}, hook)
}

// RunUpToEvent runs until the named event has fired count times for
// the named species.
func (s *Simulation) RunUpToEvent(eventName, speciesName string, count uint64, hook CancelHook) error {
	event, err := m.ParseEventKind(eventName)
	if err != nil {
		return err
	}
	species, err := s.registry.SpeciesByName(speciesName)
	if err != nil {
		return err
	}

	return s.Run(EndCondition{Kind: EndEventCount, Species: species.ID, Event: event, Count: count}, hook)
}
