package setop

import (
	"cmp"
	"slices"

	"github.com/kevinxiao27/otkit/ot"
)

// System is the OT system for Op. It has no state; the zero value is ready.
type System[T cmp.Ordered] struct{}

func NewSystem[T cmp.Ordered]() System[T] { return System[T]{} }

// Transform swaps the sides: each branch replays what the other one did.
func (System[T]) Transform(left, right []Op[T]) (ot.TransformResult[Op[T]], error) {
	return ot.TransformResult[Op[T]]{
		Left:  clone(right),
		Right: clone(left),
	}, nil
}

func (s System[T]) Squash(ops []Op[T]) []Op[T] {
	return ot.SquashEach(ops, s.IsEmpty, s.SquashPair)
}

// SquashPair merges a followed by b into one op. It reports false when the
// pair has no single equivalent: overlapping sets of the same kind, or an add
// and a remove where neither set contains the other.
func (System[T]) SquashPair(a, b Op[T]) (Op[T], bool) {
	if a.IsEmpty() {
		return b, true
	}
	if b.IsEmpty() {
		return a, true
	}
	as, bs := a.set(), b.set()

	if a.Kind() == b.Kind() {
		if !as.Intersect(bs).IsEmpty() {
			return Op[T]{}, false
		}
		return newOp(a.Kind(), as.Union(bs)), true
	}

	switch {
	case as.Equal(bs):
		return NewAdd[T](), true
	case as.IsProperSuperset(bs):
		return newOp(a.Kind(), as.Difference(bs)), true
	case bs.IsProperSuperset(as):
		return newOp(b.Kind(), bs.Difference(as)), true
	}
	return Op[T]{}, false
}

func (System[T]) Invert(ops []Op[T]) []Op[T] {
	return ot.InvertEach(ops, Op[T].Invert)
}

func (System[T]) IsEmpty(op Op[T]) bool { return op.IsEmpty() }

func clone[T cmp.Ordered](ops []Op[T]) []Op[T] {
	if len(ops) == 0 {
		return nil
	}
	return slices.Clone(ops)
}
