// Package room is the diff type for a shared room: who is in it, its title,
// who owns it and which resources are shared with whom. It is assembled from
// the setop, lww and resources systems with ot.Compose4.
package room

import (
	"github.com/kevinxiao27/otkit/lww"
	"github.com/kevinxiao27/otkit/ot"
	"github.com/kevinxiao27/otkit/resources"
	"github.com/kevinxiao27/otkit/setop"
)

// Diff is one edit of a room. An unchanged part is a nil slice.
type Diff struct {
	Participants []setop.Op[string] `json:"participants,omitempty"`
	Title        []lww.Diff[string] `json:"title,omitempty"`
	Owner        []lww.Diff[string] `json:"owner,omitempty"`
	Resources    []resources.Diff   `json:"resources,omitempty"`
}

func Join(ids ...string) Diff {
	return Diff{Participants: []setop.Op[string]{setop.NewAdd(ids...)}}
}

func Leave(ids ...string) Diff {
	return Diff{Participants: []setop.Op[string]{setop.NewRemove(ids...)}}
}

func Rename(prev, next string) Diff {
	return Diff{Title: []lww.Diff[string]{lww.Set(prev, next)}}
}

func Transfer(prev, next string) Diff {
	return Diff{Owner: []lww.Diff[string]{lww.Set(prev, next)}}
}

func Share(id string, participants ...string) Diff {
	return Diff{Resources: []resources.Diff{resources.Single(id, resources.Put(participants...))}}
}

func Unshare(id string, participants ...string) Diff {
	return Diff{Resources: []resources.Diff{resources.Single(id, resources.Drop(participants...))}}
}

// Merge concatenates several edits into one diff.
func Merge(diffs ...Diff) Diff {
	var out Diff
	for _, d := range diffs {
		out.Participants = append(out.Participants, d.Participants...)
		out.Title = append(out.Title, d.Title...)
		out.Owner = append(out.Owner, d.Owner...)
		out.Resources = append(out.Resources, d.Resources...)
	}
	return out
}

func participants(d Diff) []setop.Op[string] { return d.Participants }
func title(d Diff) []lww.Diff[string]        { return d.Title }
func owner(d Diff) []lww.Diff[string]        { return d.Owner }
func shared(d Diff) []resources.Diff         { return d.Resources }

func join(p []setop.Op[string], t []lww.Diff[string], o []lww.Diff[string], r []resources.Diff) Diff {
	return Diff{Participants: p, Title: t, Owner: o, Resources: r}
}

var system = ot.Compose4[Diff, setop.Op[string], lww.Diff[string], lww.Diff[string], resources.Diff](
	setop.NewSystem[string](), participants,
	lww.Ordered[string](), title,
	lww.NewManual[string]("room owner"), owner,
	resources.NewSystem(), shared,
	join,
)

// System returns the shared OT system for room diffs. Concurrent ownership
// transfers to different people fail with ot.ErrTransformFailure.
func System() ot.System[Diff] { return system }
