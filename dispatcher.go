package seqsync

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jrhy/seqsync/internal/invariants"
)

// Diff computes the coalesced operations that turn old into new.
func Diff[T any](ctx context.Context, old, new []T, cmp Comparator[T], detectMoves bool) ([]Operation, error) {
	edits, err := Script(ctx, old, new, cmp, detectMoves)
	if err != nil {
		return nil, err
	}
	return Coalesce(edits), nil
}

// Dispatcher keeps a Sink in step with a list that is replaced wholesale:
// every Dispatch diffs the last confirmed snapshot against the new one and
// delivers the resulting operations to the sink as one batch.
//
// Diffs of snapshots whose combined length exceeds Options.AsyncThreshold
// are computed on a background goroutine. At most one such computation is
// outstanding: a newer Dispatch supersedes it, and its result is dropped
// when it arrives. Until a result is delivered the confirmed snapshot, and
// so the sink, stays where it was.
//
// Dispatch, Wait and Poll are meant to be called from the goroutine that
// owns the sink, and the sink is only ever called from there. A finished
// background result is applied by the next Wait or Poll, or handed to
// Options.Deliver if it is set. Calling Dispatch, Wait or Poll from inside
// a sink callback returns ErrNestedBatch.
type Dispatcher[T any] struct {
	cmp     Comparator[T]
	sink    Sink[T]
	opts    Options
	log     *slog.Logger
	inBatch atomic.Bool

	current atomic.Pointer[[]T]

	mu      sync.Mutex
	gen     uint64
	pending *request[T]
}

// request is one Dispatch whose result has not yet been delivered or dropped.
type request[T any] struct {
	gen       uint64
	old, next []T

	// ops and err are set before ready is closed.
	ops   []Operation
	err   error
	ready chan struct{}

	finished bool // guarded by Dispatcher.mu
	done     chan struct{}
}

// NewDispatcher returns a dispatcher whose confirmed snapshot is current.
func NewDispatcher[T any](current []T, cmp Comparator[T], sink Sink[T], opts Options) *Dispatcher[T] {
	d := &Dispatcher[T]{
		cmp:  cmp,
		sink: sink,
		opts: opts,
		log:  loggerOrDiscard(opts.Logger),
	}
	initial := slices.Clone(current)
	d.current.Store(&initial)
	return d
}

// Current returns a copy of the last snapshot delivered to the sink. From
// inside a Sink callback it still returns the snapshot the batch started
// from.
func (d *Dispatcher[T]) Current() []T {
	return slices.Clone(*d.current.Load())
}

// Dispatch makes next the target snapshot. Small diffs are computed and
// delivered before Dispatch returns; large ones are handed to a background
// goroutine and Dispatch returns immediately. Cancelling ctx abandons the
// diff; the confirmed snapshot is then left unchanged.
func (d *Dispatcher[T]) Dispatch(ctx context.Context, next []T) error {
	if d.inBatch.Load() {
		return ErrNestedBatch
	}
	d.mu.Lock()
	d.gen++
	req := &request[T]{
		gen:   d.gen,
		old:   *d.current.Load(),
		next:  slices.Clone(next),
		ready: make(chan struct{}),
		done:  make(chan struct{}),
	}
	prev := d.pending
	d.pending = req
	d.mu.Unlock()

	if prev != nil {
		d.log.Debug("superseding pending dispatch", "gen", prev.gen, "by", req.gen)
		select {
		case <-prev.ready:
			d.deliver(prev)
		default:
		}
	}

	threshold := d.opts.asyncThreshold()
	if threshold < 0 || len(req.old)+len(req.next) <= threshold {
		req.ops, req.err = d.diff(ctx, req.old, req.next, "sync")
		close(req.ready)
		d.deliver(req)
		if req.err != nil {
			return errors.Wrapf(req.err, "dispatch %d", req.gen)
		}
		return nil
	}

	d.log.Debug("diffing in background", "gen", req.gen, "old", len(req.old), "new", len(req.next))
	go func() {
		req.ops, req.err = d.diff(ctx, req.old, req.next, "async")
		close(req.ready)
		if d.opts.Deliver != nil {
			d.opts.Deliver(func() { d.deliver(req) })
			return
		}
		d.mu.Lock()
		stale := req.gen != d.gen
		d.mu.Unlock()
		if stale {
			// Nothing reaches the sink for a superseded result.
			d.deliver(req)
		}
	}()
	return nil
}

// Wait blocks until the most recent Dispatch has been delivered or dropped,
// following any newer Dispatch issued while waiting. Unless Options.Deliver
// is set, a background result is applied by Wait on the calling goroutine.
// Abandoned background computations are not waited for.
func (d *Dispatcher[T]) Wait(ctx context.Context) error {
	if d.inBatch.Load() {
		return ErrNestedBatch
	}
	for {
		d.mu.Lock()
		req := d.pending
		d.mu.Unlock()
		if req == nil {
			return nil
		}
		wake := req.ready
		if d.opts.Deliver != nil {
			wake = req.done
		}
		select {
		case <-wake:
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "wait")
		}
		if d.opts.Deliver == nil {
			d.deliver(req)
		}
	}
}

// Poll applies the pending background result if it has finished, without
// blocking, and reports whether a Dispatch is still outstanding afterwards.
// With Options.Deliver set it only reports.
func (d *Dispatcher[T]) Poll() (bool, error) {
	if d.inBatch.Load() {
		return false, ErrNestedBatch
	}
	d.mu.Lock()
	req := d.pending
	d.mu.Unlock()
	if req == nil {
		return false, nil
	}
	if d.opts.Deliver == nil {
		select {
		case <-req.ready:
			d.deliver(req)
			return false, nil
		default:
		}
	}
	return true, nil
}

func (d *Dispatcher[T]) diff(ctx context.Context, old, next []T, path string) ([]Operation, error) {
	start := time.Now()
	ops, err := Diff(ctx, old, next, d.cmp, d.opts.DetectMoves)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	d.opts.Metrics.diffComputed(path, elapsed.Seconds())
	d.log.Debug("diff computed", "path", path, "old", len(old), "new", len(next),
		"operations", len(ops), "elapsed", elapsed)
	return ops, nil
}

// deliver applies the result of req unless a newer Dispatch has superseded
// it, and releases anyone waiting on req either way. Later calls for the
// same req do nothing.
func (d *Dispatcher[T]) deliver(req *request[T]) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if req.finished {
		return
	}
	req.finished = true
	defer close(req.done)
	if d.pending == req {
		d.pending = nil
	}
	switch {
	case req.gen != d.gen:
		d.opts.Metrics.staleDiscarded()
		d.log.Debug("dropping superseded diff", "gen", req.gen, "current", d.gen)
	case req.err != nil:
		d.log.Debug("diff abandoned", "gen", req.gen, "err", req.err)
	default:
		d.apply(req.old, req.next, req.ops)
		d.current.Store(&req.next)
	}
}

func (d *Dispatcher[T]) apply(old, next []T, ops []Operation) {
	changes := NewChangeLedger(len(old))
	d.inBatch.Store(true)
	defer d.inBatch.Store(false)
	d.sink.Batch(func() {
		for _, op := range ops {
			d.emit(changes, old, op)
		}
	})
	if invariants.Enabled && changes.Len() != len(next) {
		panic(errors.AssertionFailedf("batch left %d items, want %d", changes.Len(), len(next)))
	}
}

func (d *Dispatcher[T]) emit(changes *ChangeLedger, old []T, op Operation) {
	switch op.Kind {
	case OpInsert:
		changes.ReplaceOrChange(op.Pos, 0, op.Count)
		d.sink.Insert(op.Pos, op.Count)
	case OpRemove:
		items := oldItems(old, changes, op.Pos, op.Count)
		changes.ReplaceOrChange(op.Pos, op.Count, 0)
		d.sink.Remove(op.Pos, op.Count, items)
	case OpReplace:
		items := oldItems(old, changes, op.Pos, op.Count)
		changes.ReplaceOrChange(op.Pos, op.Count, op.InsertCount)
		d.sink.Replace(op.Pos, op.Count, op.InsertCount, items)
	case OpChange:
		items := oldItems(old, changes, op.Pos, op.Count)
		changes.ReplaceOrChange(op.Pos, op.Count, op.Count)
		d.sink.Change(op.Pos, op.Count, items)
	case OpMove:
		changes.Move(op.Pos, op.Count, op.To)
		d.sink.Move(op.Pos, op.To, op.Count)
	}
	d.opts.Metrics.emitted(op.Kind)
}

// oldItems resolves, before the ledger is updated for the operation, which
// items of the old snapshot occupy [pos, pos+count).
func oldItems[T any](old []T, changes *ChangeLedger, pos, count int) OldItems[T] {
	spans := changes.Apply(pos, count)
	if spans == nil {
		panic(errors.AssertionFailedf("operation at [%d,+%d) displaces content inserted in the same batch", pos, count))
	}
	return func(i int) T {
		for _, s := range spans {
			if i < s.Length {
				return old[s.From+i]
			}
			i -= s.Length
		}
		panic(errors.AssertionFailedf("old item %d outside [%d,+%d)", i, pos, count))
	}
}
