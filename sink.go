package seqsync

// OldItems returns the item that occupied the i-th slot (0-based, relative to
// the operation's position) of a range before it was removed or changed.
type OldItems[T any] func(i int) T

// Sink receives the structural notifications of a list whose content is
// owned elsewhere, typically a rendering layer that animates them. All
// notifications of one update are delivered inside a single Batch call.
//
// Positions follow the Operation conventions: each call is addressed in the
// coordinates left by the calls before it in the same batch.
type Sink[T any] interface {
	Insert(pos, count int)
	Remove(pos, count int, old OldItems[T])
	Replace(pos, removeCount, insertCount int, old OldItems[T])
	Change(pos, count int, old OldItems[T])
	Move(pos, toPos, count int)
	// Batch runs fn and treats the notifications issued inside it as one
	// atomic update.
	Batch(fn func())
}

// Recorded is one notification captured by a Recorder, with the old items
// already resolved.
type Recorded[T any] struct {
	Op  Operation
	Old []T
}

// Recorder is a Sink that keeps every batch it receives. It is meant for
// tests and for debugging integrations.
type Recorder[T any] struct {
	Batches [][]Recorded[T]
	depth   int
}

var _ Sink[int] = (*Recorder[int])(nil)

func (r *Recorder[T]) Batch(fn func()) {
	if r.depth == 0 {
		r.Batches = append(r.Batches, nil)
	}
	r.depth++
	defer func() { r.depth-- }()
	fn()
}

func (r *Recorder[T]) record(op Operation, old OldItems[T], n int) {
	if r.depth == 0 {
		// Outside Batch every notification is its own update.
		r.Batches = append(r.Batches, nil)
	}
	rec := Recorded[T]{Op: op}
	if old != nil {
		rec.Old = make([]T, n)
		for i := range rec.Old {
			rec.Old[i] = old(i)
		}
	}
	last := len(r.Batches) - 1
	r.Batches[last] = append(r.Batches[last], rec)
}

func (r *Recorder[T]) Insert(pos, count int) {
	r.record(Operation{Kind: OpInsert, Pos: pos, Count: count}, nil, 0)
}

func (r *Recorder[T]) Remove(pos, count int, old OldItems[T]) {
	r.record(Operation{Kind: OpRemove, Pos: pos, Count: count}, old, count)
}

func (r *Recorder[T]) Replace(pos, removeCount, insertCount int, old OldItems[T]) {
	r.record(Operation{Kind: OpReplace, Pos: pos, Count: removeCount, InsertCount: insertCount}, old, removeCount)
}

func (r *Recorder[T]) Change(pos, count int, old OldItems[T]) {
	r.record(Operation{Kind: OpChange, Pos: pos, Count: count}, old, count)
}

func (r *Recorder[T]) Move(pos, toPos, count int) {
	r.record(Operation{Kind: OpMove, Pos: pos, To: toPos, Count: count}, nil, 0)
}

// Operations returns the operations of every recorded batch, in order.
func (r *Recorder[T]) Operations() []Operation {
	var ops []Operation
	for _, b := range r.Batches {
		for _, rec := range b {
			ops = append(ops, rec.Op)
		}
	}
	return ops
}

// Reset forgets everything recorded so far.
func (r *Recorder[T]) Reset() {
	r.Batches = nil
}

// Replay applies ops to a copy of items and returns the result. Slots that
// ops insert or change take their value from fill, which is called with the
// slot's final index once every operation has been applied.
func Replay[T any](items []T, ops []Operation, fill func(index int) T) []T {
	type slot struct {
		item  T
		fresh bool
	}
	cur := make([]slot, len(items))
	for i, it := range items {
		cur[i] = slot{item: it}
	}
	freshSlots := func(n int) []slot {
		s := make([]slot, n)
		for i := range s {
			s[i].fresh = true
		}
		return s
	}
	for _, op := range ops {
		switch op.Kind {
		case OpInsert:
			cur = append(cur[:op.Pos], append(freshSlots(op.Count), cur[op.Pos:]...)...)
		case OpRemove:
			cur = append(cur[:op.Pos], cur[op.Pos+op.Count:]...)
		case OpReplace:
			cur = append(cur[:op.Pos], append(freshSlots(op.InsertCount), cur[op.Pos+op.Count:]...)...)
		case OpChange:
			for i := op.Pos; i < op.Pos+op.Count; i++ {
				cur[i].fresh = true
			}
		case OpMove:
			block := append([]slot(nil), cur[op.Pos:op.Pos+op.Count]...)
			cur = append(cur[:op.Pos], cur[op.Pos+op.Count:]...)
			cur = append(cur[:op.To], append(block, cur[op.To:]...)...)
		}
	}
	res := make([]T, len(cur))
	for i, s := range cur {
		if s.fresh {
			res[i] = fill(i)
		} else {
			res[i] = s.item
		}
	}
	return res
}
