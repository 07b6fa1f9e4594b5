package model

import "errors"

// Sentinel errors classifying every failure the engine can surface.
// Callers match them with errors.Is; lower layers wrap them with
// fmt.Errorf("...: %w", ...) to add context.
var (
	// ErrPrecondition reports an invalid setup or invocation: empty
	// tissue at run start, duplicate mutant, reserved name, tissue
	// resize after placement, incompatible rate lists, inverted
	// rectangle corners, multi-promoter species.
	ErrPrecondition = errors.New("precondition violation")

	// ErrNotFound reports a missing species, mutant, cell, or sample
	// lookup, and an unsatisfiable sample search.
	ErrNotFound = errors.New("not found")

	// ErrCancelled reports cooperative cancellation requested by the
	// host hook. The simulation state stays valid and a later run
	// resumes from the last completed event.
	ErrCancelled = errors.New("cancelled")

	// ErrCorrupt reports a snapshot that cannot be deserialized.
	ErrCorrupt = errors.New("corrupt snapshot")

	// ErrInternal reports a broken engine invariant.
	ErrInternal = errors.New("internal error")
)
