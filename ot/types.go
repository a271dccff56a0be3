// Package ot holds the operational transformation algebra: the System
// contract every diff domain implements, helpers that lift pairwise
// functions to diff sequences, and structural composition of systems.
package ot

// TransformResult is the bottom half of the OT diamond. Left is applied on
// top of the branch that holds the left input and Right on top of the branch
// that holds the right input; both lead to the same state.
type TransformResult[D any] struct {
	Left  []D
	Right []D
}

// System is the table of pure functions for one diff type. Implementations
// hold no mutable state and may be shared between goroutines.
type System[D any] interface {
	// Transform resolves two sequences computed from the same base state.
	// The result must be deterministic. Only domains without a safe automatic
	// merge return an error, wrapping ErrTransformFailure.
	Transform(left, right []D) (TransformResult[D], error)
	// Squash returns an equivalent sequence no longer than ops once empty
	// diffs are dropped.
	Squash(ops []D) []D
	// Invert returns the sequence that undoes ops.
	Invert(ops []D) []D
	// IsEmpty reports whether op never changes observable state.
	IsEmpty(op D) bool
}

// State is a materialized projection that diffs are applied to. It is the
// only mutable piece; undo is applying an inverted diff, never a rollback.
type State[D any] interface {
	Init()
	Apply(op D)
}

func ApplyAll[D any](s State[D], ops []D) {
	for _, op := range ops {
		s.Apply(op)
	}
}

// AllEmpty reports whether every op in ops is empty under s.
func AllEmpty[D any](s System[D], ops []D) bool {
	for _, op := range ops {
		if !s.IsEmpty(op) {
			return false
		}
	}
	return true
}
