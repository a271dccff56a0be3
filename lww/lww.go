// Package lww implements last-writer-wins scalar fields. A Diff records the
// value it was written against, so a field can only move from Prev to Next.
package lww

import (
	"cmp"
	"fmt"

	"github.com/kevinxiao27/otkit/ot"
	"github.com/kevinxiao27/otkit/util"
)

// Diff moves a field from Prev to Next. Prev is left out on the wire when it
// is the zero value, which is the case for the first edit of a field.
type Diff[T comparable] struct {
	Prev T `json:"prev,omitempty"`
	Next T `json:"next"`
}

func Set[T comparable](prev, next T) Diff[T] {
	return Diff[T]{Prev: prev, Next: next}
}

func (d Diff[T]) Invert() Diff[T] { return Diff[T]{Prev: d.Next, Next: d.Prev} }

func (d Diff[T]) IsEmpty() bool { return d.Prev == d.Next }

func (d Diff[T]) String() string { return fmt.Sprintf("%v->%v", d.Prev, d.Next) }

// chain holds Squash, Invert and IsEmpty, shared by every lww system.
type chain[T comparable] struct{}

func (c chain[T]) Squash(ops []Diff[T]) []Diff[T] {
	return ot.SquashEach(ops, c.IsEmpty, c.squashPair)
}

func (chain[T]) squashPair(a, b Diff[T]) (Diff[T], bool) {
	ot.Require(a.Next == b.Prev, "lww squash", "%v does not follow %v", b, a)
	return Diff[T]{Prev: a.Prev, Next: b.Next}, true
}

func (chain[T]) Invert(ops []Diff[T]) []Diff[T] {
	return ot.InvertEach(ops, Diff[T].Invert)
}

func (chain[T]) IsEmpty(op Diff[T]) bool { return op.IsEmpty() }

func requireSameBase[T comparable](l, r Diff[T]) {
	ot.Require(l.Prev == r.Prev, "lww transform", "diffs written against %v and %v", l.Prev, r.Prev)
}

// passThrough handles the cases where one side did not change the value.
func passThrough[T comparable](l, r Diff[T]) (ot.TransformResult[Diff[T]], bool) {
	if !l.IsEmpty() && !r.IsEmpty() {
		return ot.TransformResult[Diff[T]]{}, false
	}
	var res ot.TransformResult[Diff[T]]
	if !r.IsEmpty() {
		res.Left = []Diff[T]{r}
	}
	if !l.IsEmpty() {
		res.Right = []Diff[T]{l}
	}
	return res, true
}

// System resolves concurrent writes by keeping the value that orders last.
type System[T comparable] struct {
	chain[T]
	compare func(a, b T) int
}

// New returns a System ordering values with compare, which must be a total
// order that reports 0 only for equal values.
func New[T comparable](compare func(a, b T) int) System[T] {
	return System[T]{compare: compare}
}

func Ordered[T cmp.Ordered]() System[T] {
	return New(cmp.Compare[T])
}

func (s System[T]) Transform(left, right []Diff[T]) (ot.TransformResult[Diff[T]], error) {
	return ot.TransformEach(left, right, s.transform)
}

func (s System[T]) transform(l, r Diff[T]) (ot.TransformResult[Diff[T]], error) {
	requireSameBase(l, r)
	if res, ok := passThrough(l, r); ok {
		return res, nil
	}
	switch n := s.compare(l.Next, r.Next); {
	case n > 0:
		return ot.TransformResult[Diff[T]]{Right: []Diff[T]{{Prev: r.Next, Next: l.Next}}}, nil
	case n < 0:
		return ot.TransformResult[Diff[T]]{Left: []Diff[T]{{Prev: l.Next, Next: r.Next}}}, nil
	}
	return ot.TransformResult[Diff[T]]{}, nil
}

// Manual is a field with no automatic merge: two concurrent writes of
// different values fail with ot.ErrTransformFailure and need a person to pick.
type Manual[T comparable] struct {
	chain[T]
	name string
}

func NewManual[T comparable](name string) Manual[T] {
	return Manual[T]{name: util.Choose(name != "", name, "lww")}
}

func (m Manual[T]) Transform(left, right []Diff[T]) (ot.TransformResult[Diff[T]], error) {
	return ot.TransformEach(left, right, m.transform)
}

func (m Manual[T]) transform(l, r Diff[T]) (ot.TransformResult[Diff[T]], error) {
	requireSameBase(l, r)
	if res, ok := passThrough(l, r); ok {
		return res, nil
	}
	if l.Next != r.Next {
		return ot.TransformResult[Diff[T]]{}, ot.TransformFailure(m.name, "concurrent %v and %v", l, r)
	}
	return ot.TransformResult[Diff[T]]{}, nil
}

// State is a single field value.
type State[T comparable] struct {
	value T
}

func NewState[T comparable]() *State[T] { return &State[T]{} }

func (s *State[T]) Init() {
	var zero T
	s.value = zero
}

func (s *State[T]) Apply(d Diff[T]) {
	ot.Require(s.value == d.Prev, "lww apply", "value is %v, diff expects %v", s.value, d.Prev)
	s.value = d.Next
}

func (s *State[T]) Value() T { return s.value }
