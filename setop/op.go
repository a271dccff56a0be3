// Package setop implements the add/remove pair over a set of ordered
// elements. Concurrent adds and removes are assumed to touch independent
// elements, so transform never rewrites anything; all the work is in squash.
package setop

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

type Kind string

const (
	Add    Kind = "add"
	Remove Kind = "remove"
)

// Op adds or removes a set of elements. The zero Op is Add of the empty set.
type Op[T cmp.Ordered] struct {
	kind  Kind
	elems mapset.Set[T]
}

func NewAdd[T cmp.Ordered](elems ...T) Op[T] {
	return Op[T]{kind: Add, elems: mapset.NewThreadUnsafeSet(elems...)}
}

func NewRemove[T cmp.Ordered](elems ...T) Op[T] {
	return Op[T]{kind: Remove, elems: mapset.NewThreadUnsafeSet(elems...)}
}

func newOp[T cmp.Ordered](kind Kind, elems mapset.Set[T]) Op[T] {
	return Op[T]{kind: kind, elems: elems}
}

func (o Op[T]) Kind() Kind {
	if o.kind == "" {
		return Add
	}
	return o.kind
}

func (o Op[T]) Len() int {
	if o.elems == nil {
		return 0
	}
	return o.elems.Cardinality()
}

func (o Op[T]) IsEmpty() bool { return o.Len() == 0 }

// Elems returns a copy of the element set.
func (o Op[T]) Elems() mapset.Set[T] {
	return o.set().Clone()
}

// Values returns the elements in ascending order.
func (o Op[T]) Values() []T {
	vals := o.set().ToSlice()
	slices.Sort(vals)
	return vals
}

func (o Op[T]) set() mapset.Set[T] {
	if o.elems == nil {
		return mapset.NewThreadUnsafeSet[T]()
	}
	return o.elems
}

func (o Op[T]) Invert() Op[T] {
	switch o.Kind() {
	case Add:
		return newOp(Remove, o.set())
	case Remove:
		return newOp(Add, o.set())
	default:
		panic(fmt.Sprintf("setop: unknown kind %q", o.kind))
	}
}

func (o Op[T]) Equal(other Op[T]) bool {
	return o.Kind() == other.Kind() && o.set().Equal(other.set())
}

func (o Op[T]) String() string {
	return fmt.Sprintf("%s%v", o.Kind(), o.Values())
}

type wireOp[T cmp.Ordered] struct {
	Kind  Kind `json:"kind"`
	Elems []T  `json:"elems"`
}

func (o Op[T]) MarshalJSON() ([]byte, error) {
	vals := o.Values()
	if vals == nil {
		vals = []T{}
	}
	return json.Marshal(wireOp[T]{Kind: o.Kind(), Elems: vals})
}

func (o *Op[T]) UnmarshalJSON(data []byte) error {
	var w wireOp[T]
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Kind {
	case "", Add:
		*o = NewAdd(w.Elems...)
	case Remove:
		*o = NewRemove(w.Elems...)
	default:
		return fmt.Errorf("setop: unknown kind %q", w.Kind)
	}
	return nil
}
