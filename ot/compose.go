package ot

import "github.com/kevinxiao27/otkit/util"

// composite runs two component systems side by side. Components never see
// each other's diffs, so each one is transformed, squashed and inverted on
// its own and the halves are joined back together.
type composite[D, A, B any] struct {
	a    System[A]
	b    System[B]
	getA func(D) []A
	getB func(D) []B
	join func([]A, []B) D
}

// Compose builds the System for D out of the systems of its two components.
// getA and getB extract a component's sequence from one composite diff; join
// builds a composite diff back and must accept nil for an unchanged
// component. A side whose components are all empty comes back as nil rather
// than as a diff of empty components.
func Compose[D, A, B any](a System[A], getA func(D) []A, b System[B], getB func(D) []B, join func([]A, []B) D) System[D] {
	return composite[D, A, B]{a: a, b: b, getA: getA, getB: getB, join: join}
}

func (c composite[D, A, B]) split(ops []D) ([]A, []B) {
	return util.FlatMap(ops, c.getA), util.FlatMap(ops, c.getB)
}

// wrap drops components whose diffs are all empty and returns nil when
// nothing is left.
func (c composite[D, A, B]) wrap(as []A, bs []B) []D {
	if AllEmpty(c.a, as) {
		as = nil
	}
	if AllEmpty(c.b, bs) {
		bs = nil
	}
	if as == nil && bs == nil {
		return nil
	}
	return []D{c.join(as, bs)}
}

func (c composite[D, A, B]) Transform(left, right []D) (TransformResult[D], error) {
	leftA, leftB := c.split(left)
	rightA, rightB := c.split(right)

	ta, err := c.a.Transform(leftA, rightA)
	if err != nil {
		return TransformResult[D]{}, err
	}
	tb, err := c.b.Transform(leftB, rightB)
	if err != nil {
		return TransformResult[D]{}, err
	}
	return TransformResult[D]{
		Left:  c.wrap(ta.Left, tb.Left),
		Right: c.wrap(ta.Right, tb.Right),
	}, nil
}

func (c composite[D, A, B]) Squash(ops []D) []D {
	as, bs := c.split(ops)
	return c.wrap(c.a.Squash(as), c.b.Squash(bs))
}

// Invert leaves component order alone; that is only sound while components
// share no state.
func (c composite[D, A, B]) Invert(ops []D) []D {
	as, bs := c.split(ops)
	return c.wrap(c.a.Invert(as), c.b.Invert(bs))
}

func (c composite[D, A, B]) IsEmpty(op D) bool {
	return AllEmpty(c.a, c.getA(op)) && AllEmpty(c.b, c.getB(op))
}

// Pair is the intermediate composite used to nest binary compositions.
type Pair[A, B any] struct {
	First  []A
	Second []B
}

func pairOf[A, B any](as []A, bs []B) Pair[A, B] {
	return Pair[A, B]{First: as, Second: bs}
}

func (p Pair[A, B]) first() []A  { return p.First }
func (p Pair[A, B]) second() []B { return p.Second }

// pairs wraps two component sequences as a pair sequence, nil when both are empty.
func pairs[A, B any](as []A, bs []B) []Pair[A, B] {
	if len(as) == 0 && len(bs) == 0 {
		return nil
	}
	return []Pair[A, B]{pairOf(as, bs)}
}

func unzip[A, B any](ps []Pair[A, B]) ([]A, []B) {
	return util.FlatMap(ps, Pair[A, B].first), util.FlatMap(ps, Pair[A, B].second)
}

func composePair[A, B any](a System[A], b System[B]) System[Pair[A, B]] {
	return Compose(a, Pair[A, B].first, b, Pair[A, B].second, pairOf[A, B])
}

// Compose3 composes three systems as ((a, b), c).
func Compose3[D, A, B, C any](
	a System[A], getA func(D) []A,
	b System[B], getB func(D) []B,
	c System[C], getC func(D) []C,
	join func([]A, []B, []C) D,
) System[D] {
	ab := composePair(a, b)
	return Compose(
		ab, func(d D) []Pair[A, B] { return pairs(getA(d), getB(d)) },
		c, getC,
		func(ps []Pair[A, B], cs []C) D {
			as, bs := unzip(ps)
			return join(as, bs, cs)
		},
	)
}

// Compose4 composes four systems as ((a, b), (c, e)).
func Compose4[D, A, B, C, E any](
	a System[A], getA func(D) []A,
	b System[B], getB func(D) []B,
	c System[C], getC func(D) []C,
	e System[E], getE func(D) []E,
	join func([]A, []B, []C, []E) D,
) System[D] {
	ab := composePair(a, b)
	ce := composePair(c, e)
	return Compose(
		ab, func(d D) []Pair[A, B] { return pairs(getA(d), getB(d)) },
		ce, func(d D) []Pair[C, E] { return pairs(getC(d), getE(d)) },
		func(left []Pair[A, B], right []Pair[C, E]) D {
			as, bs := unzip(left)
			cs, es := unzip(right)
			return join(as, bs, cs, es)
		},
	)
}
