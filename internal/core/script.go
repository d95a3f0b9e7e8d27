package core

// Script is a fixed, ordered list of authored snapshots played back by index.
// Indexes are clamped, never wrapped.
type Script[T any] struct {
	steps []T
}

// NewScript copies steps into a script.
func NewScript[T any](steps ...T) Script[T] {
	return Script[T]{steps: append([]T(nil), steps...)}
}

// Len returns the number of steps.
func (s Script[T]) Len() int { return len(s.steps) }

// Last returns the index of the final step, or -1 for an empty script.
func (s Script[T]) Last() int { return len(s.steps) - 1 }

// At returns the step at i clamped into range. It panics on an empty script.
func (s Script[T]) At(i int) T {
	return s.steps[s.clamp(i)]
}

// Next returns the index after i, held at the final step.
func (s Script[T]) Next(i int) int {
	return s.clamp(i + 1)
}

// Steps returns a copy of all steps.
func (s Script[T]) Steps() []T {
	return append([]T(nil), s.steps...)
}

func (s Script[T]) clamp(i int) int {
	switch {
	case i < 0:
		return 0
	case i > s.Last():
		return s.Last()
	default:
		return i
	}
}
