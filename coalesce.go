package seqsync

import (
	"fmt"
	"strings"
)

// OpKind tags an Operation.
type OpKind uint8

const (
	OpInsert OpKind = iota
	OpRemove
	OpReplace
	OpChange
	OpMove
)

func (k OpKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpRemove:
		return "remove"
	case OpReplace:
		return "replace"
	case OpChange:
		return "change"
	case OpMove:
		return "move"
	}
	return fmt.Sprintf("OpKind(%d)", uint8(k))
}

// Operation is one coalesced structural edit over a contiguous range.
//
//   - Insert(Pos, Count)
//   - Remove(Pos, Count)
//   - Replace(Pos, Count, InsertCount): Count items removed, InsertCount inserted
//   - Change(Pos, Count)
//   - Move(Pos, To, Count): Count items at Pos end up starting at index To
//
// Positions are in the coordinates left by every earlier operation of the
// same batch.
type Operation struct {
	Kind        OpKind
	Pos         int
	Count       int
	InsertCount int
	To          int
}

func (o Operation) String() string {
	switch o.Kind {
	case OpReplace:
		return fmt.Sprintf("replace(%d,-%d,+%d)", o.Pos, o.Count, o.InsertCount)
	case OpMove:
		return fmt.Sprintf("move(%d->%d,%d)", o.Pos, o.To, o.Count)
	}
	return fmt.Sprintf("%s(%d,%d)", o.Kind, o.Pos, o.Count)
}

// Delta is the change in sequence length caused by the operation.
func (o Operation) Delta() int {
	switch o.Kind {
	case OpInsert:
		return o.Count
	case OpRemove:
		return -o.Count
	case OpReplace:
		return o.InsertCount - o.Count
	}
	return 0
}

// FormatOperations renders ops one per line.
func FormatOperations(ops []Operation) string {
	var b strings.Builder
	for _, op := range ops {
		b.WriteString(op.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// coalescer folds a raw edit script into ranged operations, keeping at most
// one open operation that the next edit may extend.
type coalescer struct {
	open *Operation
	out  []Operation
}

// Coalesce merges a raw edit script into ranged operations:
//
//   - changes at consecutive positions merge into one Change;
//   - removals at the same position merge into one Remove;
//   - insertions at consecutive positions merge into one Insert;
//   - an insertion at the position of an open Remove turns it into a
//     Replace, which further consecutive insertions extend;
//   - single-item moves continuing an open Move in the same direction merge
//     into one ranged Move.
//
// Anything else closes the open operation. Applying the result in order is
// equivalent to applying the edits in order.
func Coalesce(edits []Edit) []Operation {
	c := coalescer{}
	for _, e := range edits {
		if e.Count == 0 && e.Kind != EditMove {
			continue
		}
		if !c.extend(e) {
			c.flush()
			c.open = start(e)
		}
	}
	c.flush()
	return c.out
}

func start(e Edit) *Operation {
	switch e.Kind {
	case EditInsert:
		return &Operation{Kind: OpInsert, Pos: e.Pos, Count: e.Count}
	case EditRemove:
		return &Operation{Kind: OpRemove, Pos: e.Pos, Count: e.Count}
	case EditChange:
		return &Operation{Kind: OpChange, Pos: e.Pos, Count: e.Count}
	default:
		count := e.Count
		if count == 0 {
			count = 1
		}
		return &Operation{Kind: OpMove, Pos: e.Pos, To: e.To, Count: count}
	}
}

func (c *coalescer) extend(e Edit) bool {
	op := c.open
	if op == nil {
		return false
	}
	switch {
	case op.Kind == OpChange && e.Kind == EditChange && e.Pos == op.Pos+op.Count:
		op.Count += e.Count
	case op.Kind == OpRemove && e.Kind == EditRemove && e.Pos == op.Pos:
		op.Count += e.Count
	case op.Kind == OpInsert && e.Kind == EditInsert && e.Pos == op.Pos+op.Count:
		op.Count += e.Count
	case op.Kind == OpRemove && e.Kind == EditInsert && e.Pos == op.Pos:
		op.Kind = OpReplace
		op.InsertCount = e.Count
	case op.Kind == OpReplace && e.Kind == EditInsert && e.Pos == op.Pos+op.InsertCount:
		op.InsertCount += e.Count
	case op.Kind == OpMove && e.Kind == EditMove && (e.Count == 1 || e.Count == 0):
		switch {
		case op.To < op.Pos && e.To < e.Pos &&
			e.Pos == op.Pos+op.Count && e.To == op.To+op.Count:
			// Backward: the next item follows the block it joins.
			op.Count++
		case op.To > op.Pos+1 && e.To > e.Pos &&
			e.Pos == op.Pos && e.To == op.To+op.Count-1:
			// Forward: the next item is taken from where the block was
			// and lands right behind it.
			op.To--
			op.Count++
		default:
			return false
		}
	default:
		return false
	}
	return true
}

func (c *coalescer) flush() {
	if c.open != nil {
		c.out = append(c.out, *c.open)
		c.open = nil
	}
}
