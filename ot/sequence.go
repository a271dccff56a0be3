package ot

import (
	"slices"

	"github.com/kevinxiao27/otkit/util"
)

// TransformEach lifts a transform of two single diffs to sequences. The first
// left diff is walked down the whole right sequence, then the rest of the left
// sequence is transformed against what the first one left behind.
func TransformEach[D any](left, right []D, transform func(l, r D) (TransformResult[D], error)) (TransformResult[D], error) {
	switch {
	case len(left) == 0 && len(right) == 0:
		return TransformResult[D]{}, nil
	case len(left) == 0:
		return TransformResult[D]{Left: slices.Clone(right)}, nil
	case len(right) == 0:
		return TransformResult[D]{Right: slices.Clone(left)}, nil
	}

	if len(left) == 1 {
		head, err := transform(left[0], right[0])
		if err != nil {
			return TransformResult[D]{}, err
		}
		// head.Right is the left diff rebased onto right[0].
		tail, err := TransformEach(head.Right, right[1:], transform)
		if err != nil {
			return TransformResult[D]{}, err
		}
		return TransformResult[D]{
			Left:  util.Concat(head.Left, tail.Left),
			Right: tail.Right,
		}, nil
	}

	head, err := TransformEach(left[:1], right, transform)
	if err != nil {
		return TransformResult[D]{}, err
	}
	tail, err := TransformEach(left[1:], head.Left, transform)
	if err != nil {
		return TransformResult[D]{}, err
	}
	return TransformResult[D]{
		Left:  tail.Left,
		Right: util.Concat(head.Right, tail.Right),
	}, nil
}

// SquashEach folds neighbouring diffs with squash. When a pair is not
// squashable both operands stay, in order. Empty diffs are dropped.
func SquashEach[D any](ops []D, isEmpty func(D) bool, squash func(a, b D) (D, bool)) []D {
	nonEmpty := func(d D) bool { return !isEmpty(d) }
	folded := util.Reduce(util.Filter(ops, nonEmpty), func(next D, acc []D) []D {
		if n := len(acc); n > 0 {
			if merged, ok := squash(acc[n-1], next); ok {
				acc[n-1] = merged
				return acc
			}
		}
		return append(acc, next)
	}, nil)
	return util.Filter(folded, nonEmpty)
}

// InvertEach undoes ops: the last diff is reverted first.
func InvertEach[D any](ops []D, invert func(D) D) []D {
	if len(ops) == 0 {
		return nil
	}
	result := make([]D, len(ops))
	for i, op := range ops {
		result[len(ops)-1-i] = invert(op)
	}
	return result
}
