package domain

import (
	"container/heap"

	m "clonex.dev/pkg/clonex/internal/model"
)

// mutationQueue is a min-heap of scheduled mutations ordered by their
// firing time. Entries sharing a source mutant fire in time order,
// each consumed by the next matching duplication.
type mutationQueue struct {
	entries mutationHeap
}

type mutationHeap []m.ScheduledMutation

func (h mutationHeap) Len() int           { return len(h) }
func (h mutationHeap) Less(i, j int) bool { return h[i].Time < h[j].Time }
func (h mutationHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *mutationHeap) Push(x any)        { *h = append(*h, x.(m.ScheduledMutation)) }
func (h *mutationHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	*h = old[:n-1]

	return entry
}

func newMutationQueue() *mutationQueue { return &mutationQueue{} }

func (q *mutationQueue) Len() int { return q.entries.Len() }

func (q *mutationQueue) Push(entry m.ScheduledMutation) {
	heap.Push(&q.entries, entry)
}

// ConsumeDue pops the earliest due entry whose source matches the
// duplicating mutant. Due entries with other sources keep waiting for
// a duplication of their own mutant.
func (q *mutationQueue) ConsumeDue(now float64, source m.MutantID) (m.ScheduledMutation, bool) {
	var skipped []m.ScheduledMutation
	var match m.ScheduledMutation
	found := false

	for q.entries.Len() > 0 && q.entries[0].Time <= now {
		entry := heap.Pop(&q.entries).(m.ScheduledMutation)
		if entry.Source == source {
			match = entry
			found = true
			break
		}
		skipped = append(skipped, entry)
	}

	for _, entry := range skipped {
		heap.Push(&q.entries, entry)
	}

	return match, found
}

// Pending returns the queued entries ordered by time.
func (q *mutationQueue) Pending() []m.ScheduledMutation {
	pending := make([]m.ScheduledMutation, len(q.entries))
	copy(pending, q.entries)

	scratch := mutationHeap(pending)
	ordered := make([]m.ScheduledMutation, 0, len(scratch))
	for scratch.Len() > 0 {
		ordered = append(ordered, heap.Pop(&scratch).(m.ScheduledMutation))
	}

	return ordered
}

// Restore rebuilds the queue from a pending list.
func (q *mutationQueue) Restore(pending []m.ScheduledMutation) {
	q.entries = make(mutationHeap, len(pending))
	copy(q.entries, pending)
	heap.Init(&q.entries)
}
