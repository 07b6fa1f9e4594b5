package domain

import (
	"errors"
	"testing"

	m "clonex.dev/pkg/clonex/internal/model"
)

func TestResizeTissueOnlyBeforePlacement(t *testing.T) {
	sim, _ := NewSimulation("test", 10, 10, 1)
	_ = sim.AddSimpleMutant("A", 0.3, 0)

	if err := sim.ResizeTissue(50, 40); err != nil {
		t.Fatalf("resize of an empty tissue failed: %v", err)
	}
	w, h := sim.Tissue().Size()
	if w != 50 || h != 40 {
		t.Fatalf("expected 50x40, got %dx%d", w, h)
	}

	_ = sim.PlaceCell("A", m.Position{X: 1, Y: 1})
	if err := sim.ResizeTissue(60, 60); !errors.Is(err, m.ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition after placement, got %v", err)
	}
}

func TestPlaceCellValidation(t *testing.T) {
	sim, _ := NewSimulation("test", 10, 10, 1)
	_ = sim.AddSimpleMutant("A", 0.3, 0)

	if err := sim.PlaceCell("B", m.Position{X: 1, Y: 1}); !errors.Is(err, m.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown species, got %v", err)
	}
	if err := sim.PlaceCell("A", m.Position{X: 30, Y: 1}); !errors.Is(err, m.ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition off grid, got %v", err)
	}

	if err := sim.PlaceCell("A", m.Position{X: 1, Y: 1}); err != nil {
		t.Fatalf("PlaceCell failed: %v", err)
	}
	if err := sim.PlaceCell("A", m.Position{X: 1, Y: 1}); !errors.Is(err, m.ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition on occupied slot, got %v", err)
	}

	// The founder contributes a wild-type lineage edge at time zero.
	rows := sim.LineageRows()
	if len(rows) != 1 || rows[0].Ancestor != m.WildTypeName || rows[0].Progeny != "A" || rows[0].FirstCross != 0 {
		t.Fatalf("unexpected lineage rows %+v", rows)
	}

	added := sim.AddedCellRows()
	if len(added) != 1 || added[0].Mutant != "A" || added[0].PositionX != 1 {
		t.Fatalf("unexpected added cells %+v", added)
	}
}

func TestScheduledMutationRedirectsProgeny(t *testing.T) {
	sim, _ := NewSimulation("test", 100, 100, 8)
	_ = sim.AddSimpleMutant("A", 0.2, 0.1)
	_ = sim.AddSimpleMutant("B", 0.3, 0.05)
	if err := sim.ScheduleMutation(5, "A", "B"); err != nil {
		t.Fatalf("ScheduleMutation failed: %v", err)
	}
	_ = sim.PlaceCell("A", m.Position{X: 50, Y: 50})

	if err := sim.RunUpToTime(20, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	speciesB, _ := sim.registry.SpeciesByName("B")
	if sim.registry.CurrentCells(speciesB.ID) == 0 {
		t.Fatal("the scheduled mutation never produced a B cell")
	}
	if len(sim.PendingMutations()) != 0 {
		t.Fatal("the scheduled mutation must be consumed")
	}

	var crossed bool
	for _, row := range sim.LineageRows() {
		if row.Ancestor == "A" && row.Progeny == "B" {
			crossed = true
			if row.FirstCross < 5 {
				t.Errorf("A->B crossed at %g, before the scheduled time", row.FirstCross)
			}
		}
	}
	if !crossed {
		t.Fatal("missing lineage edge A -> B")
	}
	checkConsistency(t, sim)
}

func TestScheduleMutationValidation(t *testing.T) {
	sim, _ := NewSimulation("test", 10, 10, 1)
	_ = sim.AddSimpleMutant("A", 0.2, 0)
	_ = sim.AddMutant("E", &m.EpigeneticRates{MinusToPlus: 0.1, PlusToMinus: 0.1}, nil, nil)

	if err := sim.ScheduleMutation(1, "A", "Z"); !errors.Is(err, m.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown destination, got %v", err)
	}
	if err := sim.ScheduleMutation(1, "A", "E"); !errors.Is(err, m.ErrPrecondition) {
		t.Errorf("expected ErrPrecondition for incompatible epigenetic structure, got %v", err)
	}
	if err := sim.ScheduleMutation(-1, "A", "A"); !errors.Is(err, m.ErrPrecondition) {
		t.Errorf("expected ErrPrecondition for negative time, got %v", err)
	}
}

func TestSimulateMutationForcesProgeny(t *testing.T) {
	sim, _ := NewSimulation("test", 20, 20, 4)
	_ = sim.AddSimpleMutant("A", 0.2, 0)
	_ = sim.AddSimpleMutant("B", 0.3, 0)
	pos := m.Position{X: 10, Y: 10}
	_ = sim.PlaceCell("A", pos)

	if err := sim.SimulateMutation(pos, "B"); err != nil {
		t.Fatalf("SimulateMutation failed: %v", err)
	}

	speciesB, _ := sim.registry.SpeciesByName("B")
	if sim.registry.CurrentCells(speciesB.ID) != 1 {
		t.Fatalf("expected one forced B cell, got %d", sim.registry.CurrentCells(speciesB.ID))
	}

	// The parent stays in place and keeps its species.
	parent := sim.Tissue().Get(pos)
	if parent == nil || parent.SpeciesID != 0 {
		t.Fatal("the duplicating cell must keep its position and species")
	}

	if err := sim.SimulateMutation(m.Position{X: 0, Y: 0}, "B"); !errors.Is(err, m.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on a wild-type slot, got %v", err)
	}
	checkConsistency(t, sim)
}

func TestRunCancellation(t *testing.T) {
	sim := newSingleCloneSim(t, 21)

	polls := 0
	hook := func() bool {
		polls++
		return true
	}

	err := sim.RunUpToTime(1e9, hook)
	if !errors.Is(err, m.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if polls != 1 {
		t.Fatalf("hook polled %d times, expected cancellation at the first poll", polls)
	}
	checkConsistency(t, sim)

	// The state stays valid and the run resumes.
	resumeTo := sim.Time() + 1
	if err := sim.RunUpToTime(resumeTo, nil); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if sim.Time() < resumeTo {
		t.Fatalf("resume stopped at %g before the target %g", sim.Time(), resumeTo)
	}
}

func TestSingleCloneTimeRun(t *testing.T) {
	sim, _ := NewSimulation("s1", 100, 100, 1)
	_ = sim.AddSimpleMutant("A", 0.3, 0.02)
	_ = sim.PlaceCell("A", m.Position{X: 50, Y: 50})

	if err := sim.RunUpToTime(30, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	count := sim.registry.CurrentCells(0)
	if count < 1 || count > 10000 {
		t.Fatalf("cell count %d out of the expected range", count)
	}
	if deaths := sim.registry.EventCount(0, m.EventDeath); deaths != 0 {
		t.Fatalf("death fired %d times under the default activation level", deaths)
	}

	rows := sim.LineageRows()
	if len(rows) != 1 || rows[0].Ancestor != m.WildTypeName || rows[0].FirstCross != 0 {
		t.Fatalf("unexpected lineage %+v", rows)
	}
	checkConsistency(t, sim)
}
