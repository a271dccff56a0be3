// Package resources implements the keyed shared-state diff: each entry puts
// a resource with its participant set or drops it.
package resources

import (
	"cmp"
	"encoding/json"
	"maps"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Resource is one entry of a Diff.
type Resource struct {
	participants mapset.Set[string]
	removed      bool
}

func Put(participants ...string) Resource {
	return Resource{participants: mapset.NewThreadUnsafeSet(participants...)}
}

func Drop(participants ...string) Resource {
	return Resource{participants: mapset.NewThreadUnsafeSet(participants...), removed: true}
}

func (r Resource) Removed() bool { return r.removed }

// Participants returns the participant ids in ascending order.
func (r Resource) Participants() []string {
	ids := r.set().ToSlice()
	slices.Sort(ids)
	return ids
}

func (r Resource) set() mapset.Set[string] {
	if r.participants == nil {
		return mapset.NewThreadUnsafeSet[string]()
	}
	return r.participants
}

func (r Resource) Invert() Resource {
	return Resource{participants: r.participants, removed: !r.removed}
}

// IsInversionOf reports whether r undoes o: same participants, opposite kind.
func (r Resource) IsInversionOf(o Resource) bool {
	return r.removed != o.removed && r.set().Equal(o.set())
}

func (r Resource) Equal(o Resource) bool {
	return r.removed == o.removed && r.set().Equal(o.set())
}

// compare orders two values written concurrently for the same id. Puts beat
// drops, then the larger participant set wins, then the sorted concatenated ids.
func compare(a, b Resource) int {
	if a.removed != b.removed {
		if a.removed {
			return -1
		}
		return 1
	}
	if n := cmp.Compare(a.set().Cardinality(), b.set().Cardinality()); n != 0 {
		return n
	}
	as, bs := a.Participants(), b.Participants()
	if n := strings.Compare(strings.Join(as, ""), strings.Join(bs, "")); n != 0 {
		return n
	}
	return slices.Compare(as, bs)
}

// Diff maps resource ids to the value each one is set to.
type Diff struct {
	entries map[string]Resource
}

func NewDiff(entries map[string]Resource) Diff {
	return Diff{entries: maps.Clone(entries)}
}

func Single(id string, r Resource) Diff {
	return Diff{entries: map[string]Resource{id: r}}
}

func (d Diff) Len() int { return len(d.entries) }

func (d Diff) IsEmpty() bool { return len(d.entries) == 0 }

func (d Diff) Get(id string) (Resource, bool) {
	r, ok := d.entries[id]
	return r, ok
}

// IDs returns the resource ids in ascending order.
func (d Diff) IDs() []string {
	return slices.Sorted(maps.Keys(d.entries))
}

func (d Diff) Invert() Diff {
	out := make(map[string]Resource, len(d.entries))
	for id, r := range d.entries {
		out[id] = r.Invert()
	}
	return Diff{entries: out}
}

func (d Diff) Equal(o Diff) bool {
	return maps.EqualFunc(d.entries, o.entries, Resource.Equal)
}

type wireResource struct {
	Participants []string `json:"participants"`
	Removed      bool     `json:"removed,omitempty"`
}

func (d Diff) MarshalJSON() ([]byte, error) {
	w := make(map[string]wireResource, len(d.entries))
	for id, r := range d.entries {
		w[id] = wireResource{Participants: r.Participants(), Removed: r.removed}
	}
	return json.Marshal(w)
}

func (d *Diff) UnmarshalJSON(data []byte) error {
	var w map[string]wireResource
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	entries := make(map[string]Resource, len(w))
	for id, r := range w {
		entries[id] = Resource{participants: mapset.NewThreadUnsafeSet(r.Participants...), removed: r.Removed}
	}
	*d = Diff{entries: entries}
	return nil
}
