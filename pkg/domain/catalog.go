package domain

import (
	"errors"
	"fmt"
)

// Catalog is the full lesson content consumed by the simulation widgets.
// It is static per process and read-only once loaded.
type Catalog struct {
	States        []ThreadState   `json:"states"`
	Transitions   []Transition    `json:"transitions"`
	LifecyclePath []ThreadStateID `json:"lifecycle_path"`
	Techniques    []Technique     `json:"techniques"`
	DeadlockSteps []DeadlockStep  `json:"deadlock_steps"`
	RaceActors    [2]string       `json:"race_actors"`
	SwitchActors  []string        `json:"switch_actors"`
}

// State returns the lifecycle state with the given id.
func (c Catalog) State(id ThreadStateID) (ThreadState, bool) {
	for _, s := range c.States {
		if s.ID == id {
			return s, true
		}
	}
	return ThreadState{}, false
}

// Technique returns the synchronization technique with the given id.
func (c Catalog) Technique(id TechniqueID) (Technique, bool) {
	for _, t := range c.Techniques {
		if t.ID == id {
			return t, true
		}
	}
	return Technique{}, false
}

// Validate checks referential integrity of the catalogue. Stored catalogues
// are validated before any widget is built from them.
func (c Catalog) Validate() error {
	var errs []error
	if len(c.States) == 0 {
		errs = append(errs, errors.New("catalog has no lifecycle states"))
	}
	seenStates := make(map[ThreadStateID]struct{}, len(c.States))
	for _, s := range c.States {
		if s.ID == "" {
			errs = append(errs, errors.New("lifecycle state with empty id"))
			continue
		}
		if _, dup := seenStates[s.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate lifecycle state %s", s.ID))
		}
		seenStates[s.ID] = struct{}{}
	}
	for _, t := range c.Transitions {
		if _, ok := seenStates[t.From]; !ok {
			errs = append(errs, fmt.Errorf("transition %s->%s: unknown source", t.From, t.To))
		}
		if _, ok := seenStates[t.To]; !ok {
			errs = append(errs, fmt.Errorf("transition %s->%s: unknown target", t.From, t.To))
		}
	}
	if len(c.LifecyclePath) == 0 {
		errs = append(errs, errors.New("lifecycle path is empty"))
	}
	for i, id := range c.LifecyclePath {
		if _, ok := seenStates[id]; !ok {
			errs = append(errs, fmt.Errorf("lifecycle path[%d]: unknown state %s", i, id))
		}
	}
	if len(c.Techniques) == 0 {
		errs = append(errs, errors.New("catalog has no synchronization techniques"))
	}
	seenTech := make(map[TechniqueID]struct{}, len(c.Techniques))
	for _, t := range c.Techniques {
		if t.ID == "" {
			errs = append(errs, errors.New("technique with empty id"))
			continue
		}
		if _, dup := seenTech[t.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate technique %s", t.ID))
		}
		seenTech[t.ID] = struct{}{}
	}
	if len(c.DeadlockSteps) == 0 {
		errs = append(errs, errors.New("deadlock script is empty"))
	}
	if c.RaceActors[0] == "" || c.RaceActors[1] == "" {
		errs = append(errs, errors.New("race simulator needs two actor names"))
	}
	if len(c.SwitchActors) == 0 {
		errs = append(errs, errors.New("context switch demo needs at least one actor"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidCatalog, errors.Join(errs...))
	}
	return nil
}

// Clone returns a deep copy so callers can hand the catalogue out without
// aliasing the slices held by a store.
func (c Catalog) Clone() Catalog {
	out := Catalog{
		States:        make([]ThreadState, len(c.States)),
		Transitions:   append([]Transition(nil), c.Transitions...),
		LifecyclePath: append([]ThreadStateID(nil), c.LifecyclePath...),
		Techniques:    make([]Technique, len(c.Techniques)),
		DeadlockSteps: append([]DeadlockStep(nil), c.DeadlockSteps...),
		RaceActors:    c.RaceActors,
		SwitchActors:  append([]string(nil), c.SwitchActors...),
	}
	for i, s := range c.States {
		s.Details = append([]string(nil), s.Details...)
		out.States[i] = s
	}
	for i, t := range c.Techniques {
		t.Before = append([]string(nil), t.Before...)
		t.After = append([]string(nil), t.After...)
		t.Pros = append([]string(nil), t.Pros...)
		t.Cons = append([]string(nil), t.Cons...)
		out.Techniques[i] = t
	}
	return out
}
