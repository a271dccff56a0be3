package ol

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/cenkalti/backoff/v5"
	"github.com/sanity-io/litter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinxiao27/otkit/ot"
	"github.com/kevinxiao27/otkit/room"
)

type roomLog = OpLog[room.Diff, *room.State]

func noWait() backoff.BackOff { return &backoff.ZeroBackOff{} }

func newRoomLog(opts ...Option) *roomLog {
	opts = append([]Option{WithBackOff(noWait)}, opts...)
	return NewOpLog[room.Diff](room.System(), room.NewState(), opts...)
}

func view(l *roomLog) room.View {
	var v room.View
	l.Read(func(_ LV, s *room.State) { v = s.View() })
	return v
}

func replayed(l *roomLog) room.View {
	s := room.NewState()
	l.Checkout(s)
	return s.View()
}

func TestTryAppend(t *testing.T) {
	l := newRoomLog()
	assert.Equal(t, Root, l.Head())

	e, err := l.TryAppend(ID{"ann", 1}, Root, []room.Diff{room.Join("ann")})
	require.NoError(t, err)
	assert.Equal(t, LV(0), e.LV)
	assert.Equal(t, LV(0), l.Head())

	_, err = l.TryAppend(ID{"bob", 1}, Root, []room.Diff{room.Join("bob")})
	assert.ErrorIs(t, err, ErrStaleHead)

	_, err = l.TryAppend(ID{"ann", 3}, l.Head(), nil)
	assert.ErrorIs(t, err, ErrSeqGap)

	again, err := l.TryAppend(ID{"ann", 1}, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, e, again)

	assert.Equal(t, RemoteVersion{"ann": 1}, l.Version())
	assert.Equal(t, []string{"ann"}, view(l).Participants)
}

func TestSince(t *testing.T) {
	l := newRoomLog()
	for i, who := range []string{"ann", "bob", "cid"} {
		_, err := l.TryAppend(ID{who, 1}, LV(i-1), []room.Diff{room.Join(who)})
		require.NoError(t, err)
	}
	all, err := l.Since(Root)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	tail, err := l.Since(1)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, ID{"cid", 1}, tail[0].ID)

	none, err := l.Since(2)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = l.Since(3)
	assert.ErrorIs(t, err, ErrUnknownBase)
	_, err = l.Since(-2)
	assert.ErrorIs(t, err, ErrUnknownBase)
}

func TestPushRebasesOntoUnseen(t *testing.T) {
	ctx := context.Background()
	l := newRoomLog()

	_, err := l.Push(ctx, ID{"ann", 1}, Root, []room.Diff{room.Merge(room.Join("ann"), room.Rename("", "Zeta"))})
	require.NoError(t, err)

	e, err := l.Push(ctx, ID{"bob", 1}, Root, []room.Diff{room.Merge(room.Join("bob"), room.Rename("", "Alpha"))})
	require.NoError(t, err)
	assert.Equal(t, Root, e.Base)
	assert.Equal(t, LV(1), e.LV)

	v := view(l)
	assert.Equal(t, "Zeta", v.Title)
	assert.Equal(t, []string{"ann", "bob"}, v.Participants)
	assert.Equal(t, v, replayed(l), litter.Sdump(l.entries))
}

func TestPushIsIdempotent(t *testing.T) {
	ctx := context.Background()
	l := newRoomLog()
	id := ID{"ann", 1}
	first, err := l.Push(ctx, id, Root, []room.Diff{room.Join("ann")})
	require.NoError(t, err)
	second, err := l.Push(ctx, id, Root, []room.Diff{room.Join("ann")})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, LV(0), l.Head())
}

func TestPushTransformFailureIsPermanent(t *testing.T) {
	ctx := context.Background()
	l := newRoomLog()
	_, err := l.Push(ctx, ID{"ann", 1}, Root, []room.Diff{room.Transfer("", "ann")})
	require.NoError(t, err)

	_, err = l.Push(ctx, ID{"bob", 1}, Root, []room.Diff{room.Transfer("", "bob")})
	assert.ErrorIs(t, err, ot.ErrTransformFailure)
	assert.Equal(t, LV(0), l.Head())
	assert.Equal(t, "ann", view(l).Owner)
}

func TestPushUnknownBase(t *testing.T) {
	_, err := newRoomLog().Push(context.Background(), ID{"ann", 1}, 4, nil)
	assert.ErrorIs(t, err, ErrUnknownBase)
}

// racing moves the log head on every transform, so the commit that follows
// always sees a stale head.
type racing struct {
	ot.System[room.Diff]
	log   *roomLog
	races int
	n     int
}

func (r *racing) Transform(left, right []room.Diff) (ot.TransformResult[room.Diff], error) {
	if r.n < r.races {
		r.n++
		_, err := r.log.TryAppend(ID{"racer", r.n}, r.log.Head(), nil)
		if err != nil {
			panic(err)
		}
	}
	return r.System.Transform(left, right)
}

func TestPushRetriesOnStaleHead(t *testing.T) {
	ctx := context.Background()
	sys := &racing{System: room.System(), races: 2}
	l := NewOpLog[room.Diff](ot.System[room.Diff](sys), room.NewState(), WithBackOff(noWait))
	sys.log = l

	_, err := l.TryAppend(ID{"ann", 1}, Root, []room.Diff{room.Join("ann")})
	require.NoError(t, err)

	e, err := l.Push(ctx, ID{"bob", 1}, Root, []room.Diff{room.Join("bob")})
	require.NoError(t, err)
	assert.Equal(t, LV(3), e.LV)
	assert.Equal(t, 2, sys.n)
	assert.Equal(t, []string{"ann", "bob"}, view(l).Participants)
}

func TestPushGivesUpAfterMaxTries(t *testing.T) {
	ctx := context.Background()
	sys := &racing{System: room.System(), races: 100}
	l := NewOpLog[room.Diff](ot.System[room.Diff](sys), room.NewState(), WithBackOff(noWait), WithMaxTries(3))
	sys.log = l

	_, err := l.TryAppend(ID{"ann", 1}, Root, []room.Diff{room.Join("ann")})
	require.NoError(t, err)

	_, err = l.Push(ctx, ID{"bob", 1}, Root, []room.Diff{room.Join("bob")})
	assert.ErrorIs(t, err, ErrStaleHead)
	assert.Equal(t, 3, sys.n)
}

func TestPushHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sys := &racing{System: room.System(), races: 100}
	l := NewOpLog[room.Diff](ot.System[room.Diff](sys), room.NewState(), WithBackOff(noWait))
	sys.log = l
	_, err := l.TryAppend(ID{"ann", 1}, Root, []room.Diff{room.Join("ann")})
	require.NoError(t, err)

	_, err = l.Push(ctx, ID{"bob", 1}, Root, []room.Diff{room.Join("bob")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sys.n)
}

func TestConcurrentPushesConverge(t *testing.T) {
	ctx := context.Background()
	l := newRoomLog(WithMaxTries(1000))

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			who := fmt.Sprintf("agent-%d", i)
			_, errs[i] = l.Push(ctx, ID{who, 1}, Root, []room.Diff{
				room.Merge(room.Join(who), room.Rename("", who), room.Share("doc-"+who, who)),
			})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	v := view(l)
	assert.Len(t, v.Participants, writers)
	assert.Len(t, v.Resources, writers)
	assert.Equal(t, "agent-7", v.Title)
	assert.Equal(t, v, replayed(l))
	assert.Equal(t, LV(writers-1), l.Head())
}

func TestPushRebasesOverRepeatedResourceEdits(t *testing.T) {
	ctx := context.Background()
	l := newRoomLog()

	_, err := l.Push(ctx, ID{"ann", 1}, Root, []room.Diff{room.Share("A", "p1")})
	require.NoError(t, err)
	_, err = l.Push(ctx, ID{"bob", 1}, 0, []room.Diff{room.Share("A", "p3")})
	require.NoError(t, err)

	// written before either commit, so it is rebased over both
	e, err := l.Push(ctx, ID{"cid", 1}, Root, []room.Diff{room.Share("A", "p1", "p2")})
	require.NoError(t, err)
	assert.Equal(t, LV(2), e.LV)

	v := view(l)
	assert.Equal(t, map[string][]string{"A": {"p1", "p2"}}, v.Resources)
	assert.Equal(t, v, replayed(l), litter.Sdump(l.entries))
}

func TestRejectedPushLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	l := newRoomLog()
	_, err := l.Push(ctx, ID{"ann", 1}, Root, []room.Diff{room.Join("ann")})
	require.NoError(t, err)

	func() {
		defer func() {
			_, ok := ot.Violation(recover())
			assert.True(t, ok)
		}()
		// participants apply before the title check fails
		_, _ = l.Push(ctx, ID{"mallory", 1}, 0, []room.Diff{
			room.Merge(room.Join("mallory"), room.Rename("wrong-prev", "x")),
		})
	}()

	assert.Equal(t, LV(0), l.Head())
	v := view(l)
	assert.Equal(t, []string{"ann"}, v.Participants)
	assert.Equal(t, v, replayed(l))

	// the rejected id was never taken
	_, err = l.Push(ctx, ID{"mallory", 1}, 0, []room.Diff{room.Join("mallory")})
	require.NoError(t, err)
	assert.Equal(t, []string{"ann", "mallory"}, view(l).Participants)
}

func TestConcurrentPushesOnOneResourceConverge(t *testing.T) {
	ctx := context.Background()
	l := newRoomLog(WithMaxTries(1000))

	const writers = 8
	names := make([]string, writers)
	for i := range names {
		names[i] = fmt.Sprintf("agent-%d", i)
	}

	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// agent i shares the doc with the first i+1 agents; the largest set wins
			_, errs[i] = l.Push(ctx, ID{names[i], 1}, Root, []room.Diff{room.Share("doc", names[:i+1]...)})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	v := view(l)
	assert.Equal(t, map[string][]string{"doc": names}, v.Resources)
	assert.Equal(t, v, replayed(l), litter.Sdump(l.entries))
}
