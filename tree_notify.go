package seqsync

import "github.com/cockroachdb/errors"

// NotifyNodeExpanding reports that mutate expands node. The rows of the
// newly shown descendants are inserted after node's row; if updateNode is
// set a Change of node's own row follows so it can redraw its expander.
//
// Node must be visible and collapsed, and mutate must not change anything
// else in the tree.
func (t *TreeAdapter[T]) NotifyNodeExpanding(node T, mutate func(), updateNode bool) error {
	if t.inBatch {
		return ErrNestedBatch
	}
	idx, err := t.NodeToIndex(node)
	if err != nil {
		return errors.Wrap(err, "expanding")
	}
	before := t.rowsBelow(node)
	mutate()
	added := t.rowsBelow(node) - before
	if added < 0 {
		panic(errors.AssertionFailedf("expanding row %d hid %d rows", idx, -added))
	}
	t.win.insert(idx+1, added)
	t.count += added
	t.batch(func() {
		if added > 0 {
			t.sink.Insert(idx+1, added)
		}
		if updateNode {
			t.sink.Change(idx, 1, func(int) T { return node })
		}
	})
	t.log.Debug("node expanded", "row", idx, "rows", added)
	t.maybeCheck()
	return nil
}

// NotifyNodeCollapsing reports that mutate collapses node. The rows of its
// descendants are removed; the Remove carries the nodes that occupied them.
func (t *TreeAdapter[T]) NotifyNodeCollapsing(node T, mutate func(), updateNode bool) error {
	if t.inBatch {
		return ErrNestedBatch
	}
	idx, err := t.NodeToIndex(node)
	if err != nil {
		return errors.Wrap(err, "collapsing")
	}
	hidden := t.subtreeRows(node)[1:]
	mutate()
	removed := len(hidden) - t.rowsBelow(node)
	if removed < 0 {
		panic(errors.AssertionFailedf("collapsing row %d showed %d rows", idx, -removed))
	}
	t.win.remove(idx+1, removed)
	t.count -= removed
	t.batch(func() {
		if removed > 0 {
			t.sink.Remove(idx+1, removed, func(i int) T { return hidden[i] })
		}
		if updateNode {
			t.sink.Change(idx, 1, func(int) T { return node })
		}
	})
	t.log.Debug("node collapsed", "row", idx, "rows", removed)
	t.maybeCheck()
	return nil
}

// NotifyNodeInserting reports that mutate inserts node, together with any
// descendants it already has, as child number position of parent. If parent
// shows its children the new rows are inserted; otherwise nothing but the
// optional Change of parent's row is reported.
func (t *TreeAdapter[T]) NotifyNodeInserting(node, parent T, position int, mutate func(), updateParent bool) error {
	if t.inBatch {
		return ErrNestedBatch
	}
	if c := t.model.ChildCount(parent); position < 0 || position > c {
		return errors.Wrapf(ErrIndexOutOfRange, "inserting child %d of %d", position, c)
	}
	parentIdx, err := t.row(parent)
	if errors.Is(err, ErrNotVisible) {
		mutate()
		return nil
	} else if err != nil {
		return err
	}
	if !t.childrenShown(parent) {
		mutate()
		t.changeRow(parentIdx, parent, updateParent)
		return nil
	}
	pos := parentIdx + 1 + t.rowsBefore(parent, position)
	mutate()
	added := 1 + t.rowsBelow(node)
	t.win.insert(pos, added)
	t.count += added
	t.batch(func() {
		t.sink.Insert(pos, added)
		if updateParent && parentIdx >= 0 {
			t.sink.Change(parentIdx, 1, func(int) T { return parent })
		}
	})
	t.log.Debug("node inserted", "row", pos, "rows", added)
	t.maybeCheck()
	return nil
}

// NotifyNodeRemoving reports that mutate removes node and its descendants
// from the tree. The view root cannot be removed.
func (t *TreeAdapter[T]) NotifyNodeRemoving(node T, mutate func(), updateParent bool) error {
	if t.inBatch {
		return ErrNestedBatch
	}
	if t.isRoot(node) {
		return ErrRemoveRoot
	}
	parent, ok := t.model.Parent(node)
	if !ok {
		return errors.Wrap(ErrNotVisible, "removing node without parent")
	}
	idx, err := t.NodeToIndex(node)
	if errors.Is(err, ErrNotVisible) {
		parentIdx, perr := t.row(parent)
		mutate()
		if perr == nil {
			t.changeRow(parentIdx, parent, updateParent)
		}
		return nil
	} else if err != nil {
		return err
	}
	parentIdx, err := t.row(parent)
	if err != nil {
		return errors.Wrap(err, "parent of visible node")
	}
	rows := t.subtreeRows(node)
	mutate()
	t.win.remove(idx, len(rows))
	t.count -= len(rows)
	t.batch(func() {
		t.sink.Remove(idx, len(rows), func(i int) T { return rows[i] })
		if updateParent && parentIdx >= 0 {
			t.sink.Change(parentIdx, 1, func(int) T { return parent })
		}
	})
	t.log.Debug("node removed", "row", idx, "rows", len(rows))
	t.maybeCheck()
	return nil
}

// NotifyNodeMoving reports that mutate detaches node, with its descendants,
// and reattaches it as child number position of newParent, position being
// counted among newParent's children without node.
//
// When node is shown both before and after, its rows are reported as one
// Move, followed by a Change of the moved rows if their level differs. A
// node that leaves or enters the visible part of the tree is reported as a
// Remove or an Insert. Moving the view root, or moving a node underneath
// itself, fails with ErrInvalidMove and mutate is not called.
func (t *TreeAdapter[T]) NotifyNodeMoving(node, newParent T, position int, mutate func()) error {
	if t.inBatch {
		return ErrNestedBatch
	}
	if t.isRoot(node) {
		return errors.Wrap(ErrInvalidMove, "moving the view root")
	}
	oldParent, ok := t.model.Parent(node)
	if !ok {
		return errors.Wrap(ErrInvalidMove, "moving node without parent")
	}
	for anc, ok := newParent, true; ok; anc, ok = t.model.Parent(anc) {
		if t.model.Equal(anc, node) {
			return errors.Wrap(ErrInvalidMove, "moving node underneath itself")
		}
		if t.isRoot(anc) {
			break
		}
	}
	siblings := t.model.ChildCount(newParent)
	if t.model.Equal(oldParent, newParent) {
		siblings--
	}
	if position < 0 || position > siblings {
		return errors.Wrapf(ErrIndexOutOfRange, "moving to child %d of %d", position, siblings)
	}
	oldLevel, err := t.Level(node)
	if err != nil {
		return err
	}
	newLevel, err := t.Level(newParent)
	if err != nil {
		return err
	}
	newLevel++

	from, err := t.NodeToIndex(node)
	shownBefore := err == nil
	if err != nil && !errors.Is(err, ErrNotVisible) {
		return err
	}
	var rows []T
	n := 1 + t.rowsBelow(node)
	if shownBefore {
		rows = t.subtreeRows(node)
	}

	// The destination slot is found in the current rows, then shifted to
	// the rows that remain once node's rows are taken out.
	to := -1
	parentIdx, err := t.row(newParent)
	if err == nil && t.childrenShown(newParent) {
		slot := position
		if t.model.Equal(oldParent, newParent) && t.model.IndexOfChild(newParent, node) <= position {
			slot++
		}
		to = parentIdx + 1 + t.rowsBefore(newParent, slot)
		if shownBefore && from < to {
			to -= n
		}
	} else if err != nil && !errors.Is(err, ErrNotVisible) {
		return err
	}
	shownAfter := to >= 0

	mutate()

	switch {
	case shownBefore && shownAfter:
		t.win.remove(from, n)
		t.win.insert(to, n)
		if from == to && oldLevel == newLevel {
			break
		}
		t.batch(func() {
			if from != to {
				t.sink.Move(from, to, n)
			}
			if oldLevel != newLevel {
				t.sink.Change(to, n, func(i int) T { return rows[i] })
			}
		})
	case shownBefore:
		t.win.remove(from, n)
		t.count -= n
		t.batch(func() {
			t.sink.Remove(from, n, func(i int) T { return rows[i] })
		})
	case shownAfter:
		t.win.insert(to, n)
		t.count += n
		t.batch(func() {
			t.sink.Insert(to, n)
		})
	}
	t.log.Debug("node moved", "from", from, "to", to, "rows", n)
	t.maybeCheck()
	return nil
}

// batch reports the notifications issued by fn as one batch. Notify calls
// made from the sink meanwhile fail with ErrNestedBatch.
func (t *TreeAdapter[T]) batch(fn func()) {
	t.inBatch = true
	defer func() { t.inBatch = false }()
	t.sink.Batch(fn)
}

func (t *TreeAdapter[T]) changeRow(idx int, node T, update bool) {
	if !update || idx < 0 {
		return
	}
	t.batch(func() {
		t.sink.Change(idx, 1, func(int) T { return node })
	})
}
