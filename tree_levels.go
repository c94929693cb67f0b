package seqsync

import "github.com/cockroachdb/errors"

// drag describes a drag of the row at from to row to, where to is the row
// the dragged node will occupy once its rows are taken out and put back.
type drag[T any] struct {
	node     T
	rows     int
	above    T
	hasAbove bool
	below    T
	hasBelow bool
}

func (t *TreeAdapter[T]) newDrag(from, to int) (drag[T], error) {
	var d drag[T]
	node, err := t.IndexToNode(from)
	if err != nil {
		return d, err
	}
	if t.isRoot(node) {
		return d, errors.Wrap(ErrInvalidMove, "dragging the view root")
	}
	d.node = node
	d.rows = 1 + t.rowsBelow(node)
	remaining := t.count - d.rows
	if to < 0 || to > remaining {
		return d, errors.Wrapf(ErrIndexOutOfRange, "drop row %d of %d", to, remaining)
	}
	if t.view.IncludeRoot && to == 0 {
		return d, errors.Wrap(ErrInvalidMove, "dropping above the view root")
	}
	// at maps a row of the remaining list back to the full list.
	at := func(i int) (T, error) {
		if i >= from {
			i += d.rows
		}
		return t.IndexToNode(i)
	}
	if to > 0 {
		if d.above, err = at(to - 1); err != nil {
			return d, err
		}
		d.hasAbove = true
	}
	if to < remaining {
		if d.below, err = at(to); err != nil {
			return d, err
		}
		d.hasBelow = true
	}
	return d, nil
}

func (t *TreeAdapter[T]) levels(d drag[T]) (lo, hi int) {
	top := t.topLevel()
	hi = top
	if d.hasAbove {
		hi, _ = t.Level(d.above)
		if t.childrenShown(d.above) {
			hi++
		}
	}
	lo = top
	if d.hasBelow {
		lo, _ = t.Level(d.below)
	}
	return max(lo, top), max(hi, top)
}

// PossibleLevelsOfMove returns the inclusive range of levels the node at row
// from may be dropped at so that it ends up at row to, to being counted with
// the dragged rows taken out. The node can become a child of the row above
// it if that row shows its children, or a sibling of it or of any of its
// ancestors down to the level of the row below.
func (t *TreeAdapter[T]) PossibleLevelsOfMove(from, to int) (lo, hi int, err error) {
	d, err := t.newDrag(from, to)
	if err != nil {
		return 0, 0, err
	}
	lo, hi = t.levels(d)
	return lo, hi, nil
}

// DropTarget returns where a node dropped at level would be attached, as
// arguments for NotifyNodeMoving.
func (t *TreeAdapter[T]) DropTarget(from, to, level int) (parent T, position int, err error) {
	d, err := t.newDrag(from, to)
	if err != nil {
		return parent, 0, err
	}
	return t.dropTarget(d, level)
}

func (t *TreeAdapter[T]) dropTarget(d drag[T], level int) (parent T, position int, err error) {
	lo, hi := t.levels(d)
	if level < lo || level > hi {
		return parent, 0, errors.Wrapf(ErrInvalidLevel, "level %d outside [%d,%d]", level, lo, hi)
	}
	if !d.hasAbove {
		return t.view.Root, 0, nil
	}
	anc := d.above
	l, _ := t.Level(anc)
	if level == l+1 {
		return anc, 0, nil
	}
	for ; l > level; l-- {
		anc, _ = t.model.Parent(anc)
	}
	parent, _ = t.model.Parent(anc)
	position = t.model.IndexOfChild(parent, anc) + 1
	if p, ok := t.model.Parent(d.node); ok && t.model.Equal(p, parent) &&
		t.model.IndexOfChild(parent, d.node) < position {
		position--
	}
	return parent, position, nil
}

// MoveByIndex moves the node at row from so that it lands at row to, at the
// given level, and reports the move like NotifyNodeMoving. mutate performs
// the move in the tree. Nothing changes unless the level is within
// PossibleLevelsOfMove.
func (t *TreeAdapter[T]) MoveByIndex(from, to, level int, mutate func(node, parent T, position int)) error {
	if t.inBatch {
		return ErrNestedBatch
	}
	d, err := t.newDrag(from, to)
	if err != nil {
		return err
	}
	parent, position, err := t.dropTarget(d, level)
	if err != nil {
		return err
	}
	return t.NotifyNodeMoving(d.node, parent, position, func() {
		mutate(d.node, parent, position)
	})
}
