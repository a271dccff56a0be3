package room

import (
	"github.com/kevinxiao27/otkit/lww"
	"github.com/kevinxiao27/otkit/ot"
	"github.com/kevinxiao27/otkit/resources"
	"github.com/kevinxiao27/otkit/setop"
)

// State materializes a room.
type State struct {
	participants *setop.State[string]
	title        *lww.State[string]
	owner        *lww.State[string]
	resources    *resources.State
}

func NewState() *State {
	s := &State{
		participants: setop.NewState[string](),
		title:        lww.NewState[string](),
		owner:        lww.NewState[string](),
		resources:    resources.NewState(),
	}
	return s
}

func (s *State) Init() {
	s.participants.Init()
	s.title.Init()
	s.owner.Init()
	s.resources.Init()
}

func (s *State) Apply(d Diff) {
	ot.ApplyAll[setop.Op[string]](s.participants, d.Participants)
	ot.ApplyAll[lww.Diff[string]](s.title, d.Title)
	ot.ApplyAll[lww.Diff[string]](s.owner, d.Owner)
	ot.ApplyAll[resources.Diff](s.resources, d.Resources)
}

func (s *State) Title() string { return s.title.Value() }

func (s *State) Owner() string { return s.owner.Value() }

func (s *State) Has(participant string) bool { return s.participants.Contains(participant) }

// View is a read-only copy of a room.
type View struct {
	Title        string              `json:"title"`
	Owner        string              `json:"owner,omitempty"`
	Participants []string            `json:"participants"`
	Resources    map[string][]string `json:"resources"`
}

func (s *State) View() View {
	ps := s.participants.Values()
	if ps == nil {
		ps = []string{}
	}
	return View{
		Title:        s.title.Value(),
		Owner:        s.owner.Value(),
		Participants: ps,
		Resources:    s.resources.Snapshot(),
	}
}
