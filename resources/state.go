package resources

import (
	"maps"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// State holds the current participants of every live resource.
type State struct {
	resources map[string]mapset.Set[string]
}

func NewState() *State {
	s := &State{}
	s.Init()
	return s
}

func (s *State) Init() {
	s.resources = map[string]mapset.Set[string]{}
}

func (s *State) Apply(d Diff) {
	for id, r := range d.entries {
		if r.removed {
			delete(s.resources, id)
			continue
		}
		s.resources[id] = r.set().Clone()
	}
}

// Participants returns the sorted participants of id, false when id is not live.
func (s *State) Participants(id string) ([]string, bool) {
	set, ok := s.resources[id]
	if !ok {
		return nil, false
	}
	ids := set.ToSlice()
	slices.Sort(ids)
	return ids, true
}

func (s *State) IDs() []string {
	return slices.Sorted(maps.Keys(s.resources))
}

// Snapshot copies the state as plain sorted slices.
func (s *State) Snapshot() map[string][]string {
	out := make(map[string][]string, len(s.resources))
	for id := range s.resources {
		out[id], _ = s.Participants(id)
	}
	return out
}
