package domain

import (
	"fmt"
	"math"

	m "clonex.dev/pkg/clonex/internal/model"
)

// speciesState couples a species descriptor with its live counters.
type speciesState struct {
	Descriptor m.Species

	CurrentCells uint64
	Duplications uint64
	Deaths       uint64
	Switches     uint64

	// DeathActivated latches once CurrentCells has reached the death
	// activation level; death propensity stays enabled afterwards.
	DeathActivated bool
}

// SpeciesRegistry keeps the ordered catalogue of mutants and their
// derived species, with per-species rates and counters.
type SpeciesRegistry struct {
	mutants []*m.Mutant
	species []*speciesState

	mutantByName  map[string]m.MutantID
	speciesByName map[string]m.SpeciesID
}

// NewSpeciesRegistry returns an empty registry.
func NewSpeciesRegistry() *SpeciesRegistry {
	return &SpeciesRegistry{
		mutantByName:  make(map[string]m.MutantID),
		speciesByName: make(map[string]m.SpeciesID),
	}
}

// AddMutant registers a mutant and creates its derived species: one
// per epigenetic state ("+", "-") when epigenetic switch rates are
// given, a single signature-less species otherwise. The growth and
// death maps are keyed by signature and must only mention signatures
// the mutant actually derives.
func (r *SpeciesRegistry) AddMutant(name string, epigenetic *m.EpigeneticRates,
	growth, death map[m.Signature]float64) (*m.Mutant, error) {
	if err := m.ValidateMutantName(name); err != nil {
		return nil, err
	}
	if _, ok := r.mutantByName[name]; ok {
		return nil, fmt.Errorf("%w: mutant %q is already registered", m.ErrPrecondition, name)
	}

	signatures := []m.Signature{m.SignatureNone}
	if epigenetic != nil {
		signatures = []m.Signature{m.SignaturePlus, m.SignatureMinus}
	}
	if err := validateRateKeys(name, signatures, growth, death); err != nil {
		return nil, err
	}

	mutant := &m.Mutant{
		ID:         m.MutantID(len(r.mutants)),
		Name:       name,
		Epigenetic: epigenetic,
	}

	for _, signature := range signatures {
		state := &speciesState{Descriptor: m.Species{
			ID:         m.SpeciesID(len(r.species)),
			MutantID:   mutant.ID,
			MutantName: name,
			Signature:  signature,
			GrowthRate: growth[signature],
			DeathRate:  death[signature],
			SwitchRate: switchRateFor(epigenetic, signature),
		}}

		mutant.SpeciesIDs = append(mutant.SpeciesIDs, state.Descriptor.ID)
		r.species = append(r.species, state)
		r.speciesByName[state.Descriptor.Name()] = state.Descriptor.ID
	}

	r.mutants = append(r.mutants, mutant)
	r.mutantByName[name] = mutant.ID

	return mutant, nil
}

// switchRateFor maps the mutant-level epigenetic pair onto a species:
// the "+" species switches at the plus-to-minus rate and the "-"
// species at the minus-to-plus rate.
func switchRateFor(epigenetic *m.EpigeneticRates, signature m.Signature) float64 {
	if epigenetic == nil {
		return 0
	}

	switch signature {
	case m.SignaturePlus:
		return epigenetic.PlusToMinus
	case m.SignatureMinus:
		return epigenetic.MinusToPlus
	default:
		return 0
	}
}

func validateRateKeys(mutant string, signatures []m.Signature, rateMaps ...map[m.Signature]float64) error {
	allowed := make(map[m.Signature]bool, len(signatures))
	for _, s := range signatures {
		allowed[s] = true
	}

	for _, rates := range rateMaps {
		for signature, rate := range rates {
			if !allowed[signature] {
				return fmt.Errorf("%w: mutant %q has no %q species to rate",
					m.ErrPrecondition, mutant, string(signature))
			}
			if rate < 0 || math.IsNaN(rate) {
				return fmt.Errorf("%w: mutant %q has a negative %q rate",
					m.ErrPrecondition, mutant, string(signature))
			}
		}
	}

	return nil
}

// NumSpecies returns the number of registered species.
func (r *SpeciesRegistry) NumSpecies() int { return len(r.species) }

// NumMutants returns the number of registered mutants.
func (r *SpeciesRegistry) NumMutants() int { return len(r.mutants) }

// Species returns the descriptor of a species id.
func (r *SpeciesRegistry) Species(id m.SpeciesID) (m.Species, error) {
	if int(id) < 0 || int(id) >= len(r.species) {
		return m.Species{}, fmt.Errorf("%w: species id %d", m.ErrNotFound, id)
	}

	return r.species[id].Descriptor, nil
}

// SpeciesByName resolves a display name like "A+" or "B".
func (r *SpeciesRegistry) SpeciesByName(name string) (m.Species, error) {
	id, ok := r.speciesByName[name]
	if !ok {
		return m.Species{}, fmt.Errorf("%w: species %q", m.ErrNotFound, name)
	}

	return r.species[id].Descriptor, nil
}

// MutantByName resolves a mutant name.
func (r *SpeciesRegistry) MutantByName(name string) (*m.Mutant, error) {
	id, ok := r.mutantByName[name]
	if !ok {
		return nil, fmt.Errorf("%w: mutant %q", m.ErrNotFound, name)
	}

	return r.mutants[id], nil
}

// Mutant returns the mutant record of an id.
func (r *SpeciesRegistry) Mutant(id m.MutantID) (*m.Mutant, error) {
	if int(id) < 0 || int(id) >= len(r.mutants) {
		return nil, fmt.Errorf("%w: mutant id %d", m.ErrNotFound, id)
	}

	return r.mutants[id], nil
}

// CompanionOf returns the species of the mutant carrying the given
// signature. It backs epigenetic switches (opposite signature of the
// same mutant) and scheduled mutations (same signature of another
// mutant).
func (r *SpeciesRegistry) CompanionOf(mutantID m.MutantID, signature m.Signature) (m.Species, error) {
	mutant, err := r.Mutant(mutantID)
	if err != nil {
		return m.Species{}, err
	}

	for _, id := range mutant.SpeciesIDs {
		if r.species[id].Descriptor.Signature == signature {
			return r.species[id].Descriptor, nil
		}
	}

	return m.Species{}, fmt.Errorf("%w: mutant %q has no %q species",
		m.ErrNotFound, mutant.Name, string(signature))
}

// EachSpecies visits the species descriptors in registration order.
func (r *SpeciesRegistry) EachSpecies(visit func(m.Species)) {
	for _, state := range r.species {
		visit(state.Descriptor)
	}
}

// UpdateRates replaces the named rates of a species. New values take
// effect from the next event selection. Setting a switch rate on a
// species without epigenetic control is rejected.
func (r *SpeciesRegistry) UpdateRates(speciesName string, rates map[string]float64) error {
	id, ok := r.speciesByName[speciesName]
	if !ok {
		return fmt.Errorf("%w: species %q", m.ErrNotFound, speciesName)
	}

	descriptor := r.species[id].Descriptor
	for eventName, rate := range rates {
		kind, err := m.ParseEventKind(eventName)
		if err != nil {
			return err
		}
		if rate < 0 || math.IsNaN(rate) {
			return fmt.Errorf("%w: negative %s rate for species %q",
				m.ErrPrecondition, eventName, speciesName)
		}
		if kind == m.EventSwitch && descriptor.Signature == m.SignatureNone {
			return fmt.Errorf("%w: species %q has no epigenetic switch",
				m.ErrPrecondition, speciesName)
		}
	}

	// Validation passed; apply atomically.
	state := r.species[id]
	for eventName, rate := range rates {
		kind, _ := m.ParseEventKind(eventName)
		switch kind {
		case m.EventGrowth:
			state.Descriptor.GrowthRate = rate
		case m.EventDeath:
			state.Descriptor.DeathRate = rate
		case m.EventSwitch:
			state.Descriptor.SwitchRate = rate
		}
	}

	return nil
}

// Rates returns the current rates of a species keyed by event name.
// The switch entry is present only for epigenetic species.
func (r *SpeciesRegistry) Rates(speciesName string) (map[string]float64, error) {
	id, ok := r.speciesByName[speciesName]
	if !ok {
		return nil, fmt.Errorf("%w: species %q", m.ErrNotFound, speciesName)
	}

	descriptor := r.species[id].Descriptor
	rates := map[string]float64{
		m.EventGrowth.String(): descriptor.GrowthRate,
		m.EventDeath.String():  descriptor.DeathRate,
	}
	if descriptor.Signature != m.SignatureNone {
		rates[m.EventSwitch.String()] = descriptor.SwitchRate
	}

	return rates, nil
}

func (r *SpeciesRegistry) state(id m.SpeciesID) *speciesState { return r.species[id] }

// noteBirth increments the live count of a species and latches death
// activation once the count reaches the activation level.
func (r *SpeciesRegistry) noteBirth(id m.SpeciesID, activationLevel uint64) {
	state := r.species[id]
	state.CurrentCells++
	if state.CurrentCells >= activationLevel {
		state.DeathActivated = true
	}
}

func (r *SpeciesRegistry) noteRemoval(id m.SpeciesID) {
	r.species[id].CurrentCells--
}

// EventCount returns the cumulative firings of an event for a species.
func (r *SpeciesRegistry) EventCount(id m.SpeciesID, event m.EventKind) uint64 {
	state := r.species[id]
	switch event {
	case m.EventGrowth:
		return state.Duplications
	case m.EventDeath:
		return state.Deaths
	case m.EventSwitch:
		return state.Switches
	default:
		return 0
	}
}

// CurrentCells returns the live count of a species.
func (r *SpeciesRegistry) CurrentCells(id m.SpeciesID) uint64 {
	return r.species[id].CurrentCells
}
