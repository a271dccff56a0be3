package setop

import (
	"cmp"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// State is the materialized set.
type State[T cmp.Ordered] struct {
	elems mapset.Set[T]
}

func NewState[T cmp.Ordered]() *State[T] {
	s := &State[T]{}
	s.Init()
	return s
}

func (s *State[T]) Init() {
	s.elems = mapset.NewThreadUnsafeSet[T]()
}

func (s *State[T]) Apply(op Op[T]) {
	switch op.Kind() {
	case Add:
		s.elems.Append(op.Values()...)
	case Remove:
		s.elems.RemoveAll(op.Values()...)
	}
}

func (s *State[T]) Contains(v T) bool { return s.elems.Contains(v) }

func (s *State[T]) Len() int { return s.elems.Cardinality() }

// Values returns the members in ascending order.
func (s *State[T]) Values() []T {
	vals := s.elems.ToSlice()
	slices.Sort(vals)
	return vals
}
