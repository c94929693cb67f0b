package seqsync

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
)

// EditKind tags an Edit.
type EditKind uint8

const (
	EditInsert EditKind = iota
	EditRemove
	EditChange
	EditMove
)

func (k EditKind) String() string {
	switch k {
	case EditInsert:
		return "insert"
	case EditRemove:
		return "remove"
	case EditChange:
		return "change"
	case EditMove:
		return "move"
	}
	return fmt.Sprintf("EditKind(%d)", uint8(k))
}

// Edit is one entry of a raw edit script. Positions are in the coordinates
// of the sequence as it stands after every earlier entry has been applied.
// Insert, Remove and Change cover Count items at Pos; Move takes the item
// at Pos so that it ends up at index To.
type Edit struct {
	Kind  EditKind
	Pos   int
	Count int
	To    int
}

func (e Edit) String() string {
	if e.Kind == EditMove {
		return fmt.Sprintf("move(%d->%d)", e.Pos, e.To)
	}
	return fmt.Sprintf("%s(%d,%d)", e.Kind, e.Pos, e.Count)
}

type rawKind uint8

const (
	rawKeep rawKind = iota
	rawChange
	rawRemove
	rawInsert
)

// rawEdit refers to snapshot indices rather than positions.
type rawEdit struct {
	kind rawKind
	old  int
	new  int
}

// Script computes a shortest edit script that turns old into new, matching
// items with SameItem and emitting a Change for matched pairs whose content
// differs. Within every gap between matched items, removals come before
// insertions.
//
// With detectMoves, a removal and an insertion of the same item are paired
// into a single Move. Pairing costs up to one SameItem call per
// (removal, insertion) pair, which is quadratic in the size of the
// difference; callers diffing large, very different snapshots should leave
// it off.
func Script[T any](ctx context.Context, old, new []T, cmp Comparator[T], detectMoves bool) ([]Edit, error) {
	matches, err := commonSubsequence(ctx, old, new, cmp.SameItem)
	if err != nil {
		return nil, err
	}
	raw := make([]rawEdit, 0, len(old)+len(new)-len(matches))
	i, j := 0, 0
	for _, m := range append(matches, match{len(old), len(new)}) {
		for ; i < m.old; i++ {
			raw = append(raw, rawEdit{kind: rawRemove, old: i, new: -1})
		}
		for ; j < m.new; j++ {
			raw = append(raw, rawEdit{kind: rawInsert, old: -1, new: j})
		}
		if m.old == len(old) {
			break
		}
		kind := rawKeep
		if !cmp.SameContent(old[m.old], new[m.new]) {
			kind = rawChange
		}
		raw = append(raw, rawEdit{kind: kind, old: m.old, new: m.new})
		i, j = m.old+1, m.new+1
	}
	if !detectMoves {
		return positional(raw), nil
	}
	return positionalWithMoves(ctx, raw, old, new, cmp)
}

func positional(raw []rawEdit) []Edit {
	var edits []Edit
	pos := 0
	for _, r := range raw {
		switch r.kind {
		case rawKeep:
			pos++
		case rawChange:
			edits = append(edits, Edit{Kind: EditChange, Pos: pos, Count: 1})
			pos++
		case rawRemove:
			edits = append(edits, Edit{Kind: EditRemove, Pos: pos, Count: 1})
		case rawInsert:
			edits = append(edits, Edit{Kind: EditInsert, Pos: pos, Count: 1})
			pos++
		}
	}
	return edits
}

// positionalWithMoves replays the raw script on a scratch ledger. A removed
// item that is paired with a later insertion is left where it is and moved
// into place when the insertion is reached; one paired with an earlier
// insertion is moved forward out of the unprocessed tail then and skipped
// when its removal comes up.
func positionalWithMoves[T any](ctx context.Context, raw []rawEdit, old, new []T, cmp Comparator[T]) ([]Edit, error) {
	pairOf := map[int]int{}
	paired := map[int]bool{}
	for _, ins := range raw {
		if ins.kind != rawInsert {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "pairing moves")
		}
		for _, rem := range raw {
			if rem.kind == rawRemove && !paired[rem.old] && cmp.SameItem(old[rem.old], new[ins.new]) {
				pairOf[ins.new] = rem.old
				paired[rem.old] = true
				break
			}
		}
	}

	ledger := NewRangeLedger(len(old))
	movedEarly := map[int]bool{}
	var edits []Edit
	pos := 0
	for _, r := range raw {
		switch r.kind {
		case rawKeep:
			pos++
		case rawChange:
			edits = append(edits, Edit{Kind: EditChange, Pos: pos, Count: 1})
			ledger.ReplaceOrChange(pos, 1, 1)
			pos++
		case rawRemove:
			switch {
			case movedEarly[r.old]:
			case paired[r.old]:
				pos++
			default:
				edits = append(edits, Edit{Kind: EditRemove, Pos: pos, Count: 1})
				ledger.ReplaceOrChange(pos, 1, 0)
			}
		case rawInsert:
			o, ok := pairOf[r.new]
			if !ok {
				edits = append(edits, Edit{Kind: EditInsert, Pos: pos, Count: 1})
				ledger.ReplaceOrChange(pos, 0, 1)
				pos++
				continue
			}
			cur, found := ledger.Find(o)
			if !found {
				panic(errors.AssertionFailedf("moved item %d lost from ledger %s", o, ledger))
			}
			to := pos
			if cur < pos {
				to = pos - 1
			} else {
				movedEarly[o] = true
				pos++
			}
			if cur != to {
				edits = append(edits, Edit{Kind: EditMove, Pos: cur, Count: 1, To: to})
				ledger.Move(cur, 1, to)
			}
			if !cmp.SameContent(old[o], new[r.new]) {
				edits = append(edits, Edit{Kind: EditChange, Pos: to, Count: 1})
				ledger.ReplaceOrChange(to, 1, 1)
			}
		}
	}
	return edits, nil
}
