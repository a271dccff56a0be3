package ol

import (
	"context"
	"slices"

	"github.com/kevinxiao27/otkit/ot"
)

// Replica is a client-side copy of a log. Local edits apply right away and
// stay pending until Sync commits them and folds in everyone else's.
type Replica[D any, S ot.State[D]] struct {
	agent   string
	seq     int
	system  ot.System[D]
	state   S
	head    LV
	pending []D
}

func NewReplica[D any, S ot.State[D]](agent string, system ot.System[D], state S) *Replica[D, S] {
	state.Init()
	return &Replica[D, S]{agent: agent, system: system, state: state, head: Root}
}

func (r *Replica[D, S]) Head() LV { return r.head }

func (r *Replica[D, S]) State() S { return r.state }

func (r *Replica[D, S]) Pending() []D { return slices.Clone(r.pending) }

func (r *Replica[D, S]) Edit(diffs ...D) {
	ot.ApplyAll(r.state, diffs)
	r.pending = append(r.pending, diffs...)
}

// Undo reverts every pending edit locally.
func (r *Replica[D, S]) Undo() {
	ot.ApplyAll(r.state, r.system.Invert(r.pending))
	r.pending = nil
}

// Sync pushes pending edits and catches up with the log.
func (r *Replica[D, S]) Sync(ctx context.Context, log *OpLog[D, S]) error {
	own := ID{}
	r.pending = r.system.Squash(r.pending)
	if len(r.pending) > 0 {
		id := ID{Agent: r.agent, Seq: r.seq + 1}
		entry, err := log.Push(ctx, id, r.head, r.pending)
		if err != nil {
			return err
		}
		r.seq = id.Seq
		own = entry.ID
	}

	entries, err := log.Since(r.head)
	if err != nil {
		return err
	}
	var before, after []D
	seenOwn := false
	for _, e := range entries {
		switch {
		case e.ID == own:
			seenOwn = true
		case seenOwn:
			after = append(after, e.Diffs...)
		default:
			before = append(before, e.Diffs...)
		}
	}

	// the pending edits are already in the local state; bring the entries
	// committed ahead of them over on top
	res, err := r.system.Transform(r.pending, before)
	if err != nil {
		return err
	}
	ot.ApplyAll(r.state, res.Left)
	ot.ApplyAll(r.state, after)

	r.pending = nil
	if len(entries) > 0 {
		r.head = entries[len(entries)-1].LV
	}
	return nil
}
