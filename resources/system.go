package resources

import (
	"github.com/kevinxiao27/otkit/ot"
)

type System struct{}

func NewSystem() System { return System{} }

// Transform squashes each side down to a single diff first. The loser of a
// conflict gets two diffs, which must not be walked down the rest of the
// other sequence again.
func (s System) Transform(left, right []Diff) (ot.TransformResult[Diff], error) {
	return ot.TransformEach(s.Squash(left), s.Squash(right), s.transform)
}

// transform resolves two single diffs. Ids written by one side are replayed
// on the other. For ids written by both, the loser's branch reverts its own
// value and applies the winner's; the winner's branch gets nothing.
func (System) transform(left, right Diff) (ot.TransformResult[Diff], error) {
	var (
		onLeft, onRight         = map[string]Resource{}, map[string]Resource{}
		revertLeft, revertRight = map[string]Resource{}, map[string]Resource{}
	)
	for id, l := range left.entries {
		r, ok := right.entries[id]
		if !ok {
			onRight[id] = l
			continue
		}
		switch n := compare(l, r); {
		case n > 0:
			revertRight[id] = r.Invert()
			onRight[id] = l
		case n < 0:
			revertLeft[id] = l.Invert()
			onLeft[id] = r
		}
	}
	for id, r := range right.entries {
		if _, ok := left.entries[id]; !ok {
			onLeft[id] = r
		}
	}
	return ot.TransformResult[Diff]{
		Left:  nonEmpty(revertLeft, onLeft),
		Right: nonEmpty(revertRight, onRight),
	}, nil
}

func nonEmpty(parts ...map[string]Resource) []Diff {
	var out []Diff
	for _, p := range parts {
		if len(p) > 0 {
			out = append(out, Diff{entries: p})
		}
	}
	return out
}

func (s System) Squash(ops []Diff) []Diff {
	return ot.SquashEach(ops, s.IsEmpty, s.SquashPair)
}

// SquashPair always succeeds. For ids in both diffs the second value stays,
// unless it undoes the first, in which case the id disappears.
func (System) SquashPair(first, second Diff) (Diff, bool) {
	out := make(map[string]Resource, len(first.entries)+len(second.entries))
	for id, a := range first.entries {
		if _, ok := second.entries[id]; !ok {
			out[id] = a
		}
	}
	for id, b := range second.entries {
		a, ok := first.entries[id]
		if ok && b.IsInversionOf(a) {
			continue
		}
		out[id] = b
	}
	return Diff{entries: out}, true
}

func (System) Invert(ops []Diff) []Diff {
	return ot.InvertEach(ops, Diff.Invert)
}

func (System) IsEmpty(op Diff) bool { return op.IsEmpty() }
