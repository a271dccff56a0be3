package ot_test

import (
	"github.com/kevinxiao27/otkit/ot"
)

// counter is a commutative domain: every diff adds to an integer.
type counter struct{}

func (counter) Transform(left, right []int) (ot.TransformResult[int], error) {
	return ot.TransformResult[int]{Left: right, Right: left}, nil
}

func (c counter) Squash(ops []int) []int {
	return ot.SquashEach(ops, c.IsEmpty, func(a, b int) (int, bool) { return a + b, true })
}

func (counter) Invert(ops []int) []int {
	return ot.InvertEach(ops, func(d int) int { return -d })
}

func (counter) IsEmpty(op int) bool { return op == 0 }

// reg is a max-wins register diff.
type reg struct{ prev, next int }

type register struct{}

func (register) transformOne(l, r reg) (ot.TransformResult[reg], error) {
	ot.Require(l.prev == r.prev, "register transform", "prev %d != %d", l.prev, r.prev)
	switch {
	case l.next > r.next:
		return ot.TransformResult[reg]{Right: []reg{{r.next, l.next}}}, nil
	case l.next < r.next:
		return ot.TransformResult[reg]{Left: []reg{{l.next, r.next}}}, nil
	}
	return ot.TransformResult[reg]{}, nil
}

func (g register) Transform(left, right []reg) (ot.TransformResult[reg], error) {
	return ot.TransformEach(left, right, g.transformOne)
}

func (g register) Squash(ops []reg) []reg {
	return ot.SquashEach(ops, g.IsEmpty, func(a, b reg) (reg, bool) {
		return reg{a.prev, b.next}, a.next == b.prev
	})
}

func (register) Invert(ops []reg) []reg {
	return ot.InvertEach(ops, func(d reg) reg { return reg{d.next, d.prev} })
}

func (register) IsEmpty(op reg) bool { return op.prev == op.next }

// failing refuses every non-trivial merge.
type failing struct{ counter }

func (failing) Transform(left, right []int) (ot.TransformResult[int], error) {
	if len(left) > 0 && len(right) > 0 {
		return ot.TransformResult[int]{}, ot.TransformFailure("failing", "%v vs %v", left, right)
	}
	return ot.TransformResult[int]{Left: right, Right: left}, nil
}

type doc struct {
	counts []int
	regs   []reg
}

func docCounts(d doc) []int { return d.counts }
func docRegs(d doc) []reg   { return d.regs }
func newDoc(c []int, r []reg) doc {
	return doc{counts: c, regs: r}
}

type docState struct {
	count int
	value int
}

func (s *docState) Init() { *s = docState{} }

func (s *docState) Apply(d doc) {
	for _, c := range d.counts {
		s.count += c
	}
	for _, r := range d.regs {
		ot.Require(s.value == r.prev, "register apply", "value %d, prev %d", s.value, r.prev)
		s.value = r.next
	}
}

func applied(base docState, ops ...[]doc) docState {
	s := base
	for _, seq := range ops {
		ot.ApplyAll[doc](&s, seq)
	}
	return s
}
