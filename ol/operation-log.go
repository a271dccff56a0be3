package ol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/kevinxiao27/otkit/ot"
	"github.com/kevinxiao27/otkit/util"
)

type options struct {
	logger     *slog.Logger
	newBackOff func() backoff.BackOff
	maxTries   uint
}

type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBackOff sets the policy between commit attempts. f is called once per Push.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(o *options) { o.newBackOff = f }
}

func WithMaxTries(n uint) Option {
	return func(o *options) { o.maxTries = n }
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	return b
}

// OpLog is a linear log of committed diffs for one document together with
// the state they materialize. Writers race optimistically: a commit is only
// accepted against the current head, and Push rebases and retries otherwise.
type OpLog[D any, S ot.State[D]] struct {
	system ot.System[D]
	opts   options

	mu      sync.Mutex // protects the fields below
	state   S
	entries []Entry[D]
	byID    map[ID]LV
	version RemoteVersion
}

func NewOpLog[D any, S ot.State[D]](system ot.System[D], state S, opts ...Option) *OpLog[D, S] {
	o := options{
		logger:     slog.New(slog.DiscardHandler),
		newBackOff: defaultBackOff,
		maxTries:   10,
	}
	for _, opt := range opts {
		opt(&o)
	}
	state.Init()
	return &OpLog[D, S]{
		system:  system,
		opts:    o,
		state:   state,
		byID:    make(map[ID]LV),
		version: make(RemoteVersion),
	}
}

func (l *OpLog[D, S]) head() LV {
	return LV(len(l.entries)) - 1
}

func (l *OpLog[D, S]) Head() LV {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.head()
}

func (l *OpLog[D, S]) Version() RemoteVersion {
	l.mu.Lock()
	defer l.mu.Unlock()
	return maps.Clone(l.version)
}

// Since returns the entries committed after lv.
func (l *OpLog[D, S]) Since(lv LV) ([]Entry[D], error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lv < Root || lv > l.head() {
		return nil, fmt.Errorf("%w: %d (head %d)", ErrUnknownBase, lv, l.head())
	}
	return slices.Clone(l.entries[lv+1:]), nil
}

// Read calls fn with the head and the state it materializes. fn must not
// keep the state or call back into the log.
func (l *OpLog[D, S]) Read(fn func(head LV, state S)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.head(), l.state)
}

func (l *OpLog[D, S]) lookup(id ID) (Entry[D], bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lv, ok := l.byID[id]
	if !ok {
		return Entry[D]{}, false
	}
	return l.entries[lv], true
}

// unseen returns the current head and every diff committed after base.
func (l *OpLog[D, S]) unseen(base LV) (LV, []D, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if base < Root || base > l.head() {
		return 0, nil, fmt.Errorf("%w: %d (head %d)", ErrUnknownBase, base, l.head())
	}
	diffs := util.FlatMap(l.entries[base+1:], func(e Entry[D]) []D { return e.Diffs })
	return l.head(), diffs, nil
}

// TryAppend commits diffs, which must already apply on top of head. It fails
// with ErrStaleHead when another commit got in first. An id that is already
// in the log returns the committed entry.
func (l *OpLog[D, S]) TryAppend(id ID, head LV, diffs []D) (Entry[D], error) {
	return l.tryAppend(id, head, head, diffs)
}

func (l *OpLog[D, S]) tryAppend(id ID, base, head LV, diffs []D) (Entry[D], error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lv, ok := l.byID[id]; ok {
		return l.entries[lv], nil
	}
	agent, seq := id.Unpack()
	if last := l.version[agent]; seq != last+1 {
		return Entry[D]{}, fmt.Errorf("%w: agent %s sent %d after %d", ErrSeqGap, agent, seq, last)
	}
	if head != l.head() {
		return Entry[D]{}, fmt.Errorf("%w: expected %d, at %d", ErrStaleHead, head, l.head())
	}

	defer func() {
		if rec := recover(); rec != nil {
			l.replay()
			panic(rec)
		}
	}()
	ot.ApplyAll[D](l.state, diffs)
	entry := Entry[D]{ID: id, LV: l.head() + 1, Base: base, Diffs: diffs}
	l.entries = append(l.entries, entry)
	l.byID[id] = entry.LV
	l.version[agent] = seq
	return entry, nil
}

// replay rebuilds the state from the committed entries, dropping whatever a
// rejected diff applied before it panicked. l.mu must be held.
func (l *OpLog[D, S]) replay() {
	replayInto[D](l.state, l.entries)
}

// Push commits diffs that were written against base. Diffs committed since
// base are transformed in, the result is squashed and appended; when the head
// moves in between, the whole step is retried with backoff. A transform that
// cannot be merged automatically is returned as is and not retried.
func (l *OpLog[D, S]) Push(ctx context.Context, id ID, base LV, diffs []D) (Entry[D], error) {
	logger := l.opts.logger.With("agent", id.Agent, "seq", id.Seq, "base", base)
	attempt := 0
	commit := func() (Entry[D], error) {
		attempt++
		if err := ctx.Err(); err != nil {
			return Entry[D]{}, backoff.Permanent(err)
		}
		if entry, ok := l.lookup(id); ok {
			return entry, nil
		}
		head, remote, err := l.unseen(base)
		if err != nil {
			return Entry[D]{}, backoff.Permanent(err)
		}
		rebased := diffs
		if len(remote) > 0 {
			res, err := l.system.Transform(diffs, remote)
			if err != nil {
				return Entry[D]{}, backoff.Permanent(err)
			}
			rebased = res.Right
		}
		entry, err := l.tryAppend(id, base, head, l.system.Squash(rebased))
		if errors.Is(err, ErrStaleHead) {
			logger.Debug("head moved, retrying", "attempt", attempt, "head", head)
			return Entry[D]{}, err
		}
		if err != nil {
			return Entry[D]{}, backoff.Permanent(err)
		}
		return entry, nil
	}

	entry, err := backoff.Retry(ctx, commit,
		backoff.WithBackOff(l.opts.newBackOff()),
		backoff.WithMaxTries(l.opts.maxTries),
	)
	if err != nil {
		logger.Warn("push failed", "attempts", attempt, "err", err)
		return Entry[D]{}, err
	}
	logger.Debug("committed", "lv", entry.LV, "attempts", attempt)
	return entry, nil
}

// Checkout replays the whole log into state.
func (l *OpLog[D, S]) Checkout(state ot.State[D]) {
	l.mu.Lock()
	entries := slices.Clone(l.entries)
	l.mu.Unlock()
	replayInto(state, entries)
}

func replayInto[D any](state ot.State[D], entries []Entry[D]) {
	state.Init()
	for _, e := range entries {
		ot.ApplyAll(state, e.Diffs)
	}
}
