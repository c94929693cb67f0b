package seqsync

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/jrhy/seqsync/internal/invariants"
)

// TreeModel is the read-only view of a tree owned elsewhere. The adapter
// never changes the tree; callers do, from the mutate functions they pass to
// the Notify methods.
type TreeModel[T any] interface {
	// Parent returns the parent of node, or false for a node without one.
	Parent(node T) (T, bool)
	ChildCount(node T) int
	ChildAt(parent T, i int) T
	// IndexOfChild returns the position of child among the children of
	// parent.
	IndexOfChild(parent, child T) int
	IsExpanded(node T) bool
	Equal(a, b T) bool
}

// Subtree scopes a TreeAdapter to the part of a tree below Root. When
// IncludeRoot is false the root gets no row of its own and its children are
// always shown. LevelOffset is added to every level the adapter reports.
type Subtree[T any] struct {
	Root        T
	IncludeRoot bool
	LevelOffset int
}

// TreeAdapter presents the visible nodes of a tree as a flat list: a node is
// visible if every ancestor up to the view root shows its children, and
// visible nodes are numbered in pre-order. Lookups are served from a window
// of consecutive rows that follows recent accesses, so scanning a region of
// the list costs time proportional to the distance moved rather than to the
// size of the tree.
//
// Structural changes go through the Notify methods, which compute the rows
// affected, run the caller's mutation, patch the cached state and report the
// change to the Sink as one batch.
//
// A TreeAdapter is not safe for concurrent use. Notify methods called from
// inside the adapter's own sink callbacks fail with ErrNestedBatch.
type TreeAdapter[T comparable] struct {
	model   TreeModel[T]
	view    Subtree[T]
	sink    Sink[T]
	log     *slog.Logger
	metrics *Metrics

	count   int
	win     *window[T]
	hints   nodeHints
	inBatch bool
}

// NewTreeAdapter returns an adapter presenting view of model and reporting
// structural changes to sink.
func NewTreeAdapter[T comparable](model TreeModel[T], view Subtree[T], sink Sink[T], opts TreeOptions) *TreeAdapter[T] {
	t := &TreeAdapter[T]{
		model:   model,
		sink:    sink,
		log:     loggerOrDiscard(opts.Logger),
		metrics: opts.Metrics,
		win:     newWindow[T](opts.windowSize()),
		hints:   newNodeHints(opts.hintCacheSize()),
	}
	t.Reset(view)
	return t
}

// Reset points the adapter at view, typically after the whole tree has been
// replaced. Cached rows are dropped and the row count is recomputed. Nothing
// is reported to the sink.
func (t *TreeAdapter[T]) Reset(view Subtree[T]) {
	t.view = view
	t.win.clear()
	t.hints.Purge()
	t.count = t.recount()
	t.log.Debug("tree view reset", "count", t.count, "include_root", view.IncludeRoot)
}

// View returns the subtree the adapter presents.
func (t *TreeAdapter[T]) View() Subtree[T] {
	return t.view
}

// Count returns the number of visible rows.
func (t *TreeAdapter[T]) Count() int {
	return t.count
}

func (t *TreeAdapter[T]) recount() int {
	n := t.rowsBelow(t.view.Root)
	if t.view.IncludeRoot {
		n++
	}
	return n
}

func (t *TreeAdapter[T]) isRoot(n T) bool {
	return t.model.Equal(n, t.view.Root)
}

// childrenShown reports whether the children of n get rows when n does.
func (t *TreeAdapter[T]) childrenShown(n T) bool {
	if !t.view.IncludeRoot && t.isRoot(n) {
		return true
	}
	return t.model.IsExpanded(n)
}

// rowsBelow counts the visible rows in the subtree of n, excluding n.
func (t *TreeAdapter[T]) rowsBelow(n T) int {
	if !t.childrenShown(n) {
		return 0
	}
	total := 0
	for i, c := 0, t.model.ChildCount(n); i < c; i++ {
		total += 1 + t.rowsBelow(t.model.ChildAt(n, i))
	}
	return total
}

// rowsBefore counts the rows of the first position children of parent and
// their visible descendants.
func (t *TreeAdapter[T]) rowsBefore(parent T, position int) int {
	total := 0
	for i := 0; i < position; i++ {
		total += 1 + t.rowsBelow(t.model.ChildAt(parent, i))
	}
	return total
}

// subtreeRows lists n and its visible descendants in row order.
func (t *TreeAdapter[T]) subtreeRows(n T) []T {
	rows := []T{n}
	var walk func(T)
	walk = func(n T) {
		if !t.childrenShown(n) {
			return
		}
		for i, c := 0, t.model.ChildCount(n); i < c; i++ {
			child := t.model.ChildAt(n, i)
			rows = append(rows, child)
			walk(child)
		}
	}
	walk(n)
	return rows
}

func (t *TreeAdapter[T]) firstRow() T {
	if t.view.IncludeRoot {
		return t.view.Root
	}
	return t.model.ChildAt(t.view.Root, 0)
}

func (t *TreeAdapter[T]) lastRow() T {
	return t.lastVisible(t.view.Root)
}

// lastVisible returns the last row of the subtree of n.
func (t *TreeAdapter[T]) lastVisible(n T) T {
	for t.childrenShown(n) {
		c := t.model.ChildCount(n)
		if c == 0 {
			break
		}
		n = t.model.ChildAt(n, c-1)
	}
	return n
}

// next returns the row after n.
func (t *TreeAdapter[T]) next(n T) (T, bool) {
	if t.childrenShown(n) && t.model.ChildCount(n) > 0 {
		return t.model.ChildAt(n, 0), true
	}
	for !t.isRoot(n) {
		p, ok := t.model.Parent(n)
		if !ok {
			break
		}
		if i := t.model.IndexOfChild(p, n) + 1; i < t.model.ChildCount(p) {
			return t.model.ChildAt(p, i), true
		}
		n = p
	}
	var zero T
	return zero, false
}

// prev returns the row before n.
func (t *TreeAdapter[T]) prev(n T) (T, bool) {
	var zero T
	if t.isRoot(n) {
		return zero, false
	}
	p, ok := t.model.Parent(n)
	if !ok {
		return zero, false
	}
	i := t.model.IndexOfChild(p, n)
	if i == 0 {
		if t.isRoot(p) && !t.view.IncludeRoot {
			return zero, false
		}
		return p, true
	}
	return t.lastVisible(t.model.ChildAt(p, i-1)), true
}

// IndexToNode returns the node shown at row i.
func (t *TreeAdapter[T]) IndexToNode(i int) (T, error) {
	if i < 0 || i >= t.count {
		var zero T
		return zero, errors.Wrapf(ErrIndexOutOfRange, "row %d of %d", i, t.count)
	}
	if n, ok := t.win.get(i); ok {
		t.metrics.lookup(true)
		return n, nil
	}
	t.metrics.lookup(false)
	t.seek(i)
	n, _ := t.win.get(i)
	return n, nil
}

// seek walks the tree from the nearest known row until row i is cached.
func (t *TreeAdapter[T]) seek(i int) {
	fromWindow := false
	best := min(i, t.count-1-i)
	if !t.win.empty() {
		if d := t.win.first() - i; d > 0 && d <= best {
			fromWindow, best = true, d
		}
		if d := i - t.win.last(); d > 0 && d <= best {
			fromWindow = true
		}
	}
	if !fromWindow {
		if i <= t.count-1-i {
			t.win.reset(0, t.firstRow())
		} else {
			t.win.reset(t.count-1, t.lastRow())
		}
	}
	steps := 0
	for i > t.win.last() {
		cur, _ := t.win.get(t.win.last())
		n, ok := t.next(cur)
		if !ok {
			panic(errors.AssertionFailedf("tree ends at row %d, count is %d", t.win.last(), t.count))
		}
		t.win.pushBack(n)
		steps++
	}
	for i < t.win.first() {
		cur, _ := t.win.get(t.win.first())
		n, ok := t.prev(cur)
		if !ok {
			panic(errors.AssertionFailedf("tree starts at row %d", t.win.first()))
		}
		t.win.pushFront(n)
		steps++
	}
	t.metrics.walked(steps)
}

// maxEdgeWalk bounds how many rows NodeToIndex walks outward from the
// window before it computes the row from the shape of the tree instead.
const maxEdgeWalk = 1024

// NodeToIndex returns the row of node. It fails with ErrNotVisible if node
// is not below the view root or is hidden by a collapsed ancestor.
//
// A node outside the window is searched for by walking outward from both
// edges of the window, so the cost grows with its distance from the rows
// used last. Every row passed on the way is cached.
func (t *TreeAdapter[T]) NodeToIndex(node T) (int, error) {
	if i, ok := t.win.find(func(n T) bool { return t.model.Equal(n, node) }); ok {
		t.metrics.lookup(true)
		return i, nil
	}
	t.metrics.lookup(false)
	if err := t.checkVisible(node); err != nil {
		return -1, err
	}
	if h, ok := t.hints.Get(node); ok {
		if i := h.(int); i < t.count {
			if n, err := t.IndexToNode(i); err == nil && t.model.Equal(n, node) {
				return i, nil
			}
		}
	}
	i, ok := t.walkTo(node, maxEdgeWalk)
	if !ok {
		var err error
		if i, err = t.locate(node, true); err != nil {
			return -1, err
		}
		t.win.reset(i, node)
	}
	t.hints.Add(node, i)
	return i, nil
}

// checkVisible climbs from node to the view root and fails with
// ErrNotVisible if node has no row.
func (t *TreeAdapter[T]) checkVisible(node T) error {
	if t.isRoot(node) {
		if t.view.IncludeRoot {
			return nil
		}
		return errors.Wrap(ErrNotVisible, "view root has no row")
	}
	for cur := node; !t.isRoot(cur); {
		p, ok := t.model.Parent(cur)
		if !ok {
			return errors.Wrap(ErrNotVisible, "not below the view root")
		}
		if !t.childrenShown(p) {
			return errors.Wrap(ErrNotVisible, "ancestor is collapsed")
		}
		cur = p
	}
	return nil
}

// walkTo steps outward from both edges of the window, one row on each side
// in turn, until it meets node or has taken limit steps. The rows passed on
// the side where node was found are pushed into the window.
func (t *TreeAdapter[T]) walkTo(node T, limit int) (int, bool) {
	if t.win.empty() {
		return -1, false
	}
	back, _ := t.win.get(t.win.last())
	front, _ := t.win.get(t.win.first())
	backOK, frontOK := true, true
	var ahead, behind []T
	steps := 0
	defer func() { t.metrics.walked(steps) }()
	for steps < limit && (backOK || frontOK) {
		if backOK {
			if back, backOK = t.next(back); backOK {
				steps++
				ahead = append(ahead, back)
				if t.model.Equal(back, node) {
					for _, n := range ahead {
						t.win.pushBack(n)
					}
					return t.win.last(), true
				}
			}
		}
		if frontOK {
			if front, frontOK = t.prev(front); frontOK {
				steps++
				behind = append(behind, front)
				if t.model.Equal(front, node) {
					for _, n := range behind {
						t.win.pushFront(n)
					}
					return t.win.first(), true
				}
			}
		}
	}
	return -1, false
}

// locate computes the row of node from the shape of the tree, climbing until
// it reaches the view root or, if useWindow is set, an ancestor already in
// the window.
func (t *TreeAdapter[T]) locate(node T, useWindow bool) (int, error) {
	rel := 0
	cur := node
	for {
		if useWindow {
			if i, ok := t.win.find(func(n T) bool { return t.model.Equal(n, cur) }); ok {
				return i + rel, nil
			}
		}
		if t.isRoot(cur) {
			if t.view.IncludeRoot {
				return rel, nil
			}
			if rel == 0 {
				return -1, errors.Wrap(ErrNotVisible, "view root has no row")
			}
			return rel - 1, nil
		}
		p, ok := t.model.Parent(cur)
		if !ok {
			return -1, errors.Wrap(ErrNotVisible, "not below the view root")
		}
		if !t.childrenShown(p) {
			return -1, errors.Wrap(ErrNotVisible, "ancestor is collapsed")
		}
		rel += 1 + t.rowsBefore(p, t.model.IndexOfChild(p, cur))
		cur = p
	}
}

// row is like NodeToIndex but returns -1 for a view root without a row of
// its own.
func (t *TreeAdapter[T]) row(node T) (int, error) {
	if !t.view.IncludeRoot && t.isRoot(node) {
		return -1, nil
	}
	return t.NodeToIndex(node)
}

// depth returns the number of edges between the view root and node.
func (t *TreeAdapter[T]) depth(node T) (int, bool) {
	d := 0
	for !t.isRoot(node) {
		p, ok := t.model.Parent(node)
		if !ok {
			return -1, false
		}
		node = p
		d++
	}
	return d, true
}

func (t *TreeAdapter[T]) levelOfDepth(d int) int {
	if !t.view.IncludeRoot {
		d--
	}
	return d + t.view.LevelOffset
}

// topLevel is the level of the children of the view root.
func (t *TreeAdapter[T]) topLevel() int {
	return t.levelOfDepth(1)
}

// Level returns the indentation level of node: the children of the view
// root are at level 0 when the root has no row, and the root is at level 0
// when it does, both shifted by the view's LevelOffset.
func (t *TreeAdapter[T]) Level(node T) (int, error) {
	d, ok := t.depth(node)
	if !ok {
		return 0, errors.Wrap(ErrNotVisible, "not below the view root")
	}
	return t.levelOfDepth(d), nil
}

func (t *TreeAdapter[T]) maybeCheck() {
	if !invariants.Enabled {
		return
	}
	if n := t.recount(); n != t.count {
		panic(errors.AssertionFailedf("tree has %d rows, adapter counted %d", n, t.count))
	}
	for i := t.win.first(); !t.win.empty() && i <= t.win.last(); i++ {
		cached, _ := t.win.get(i)
		if j, err := t.locate(cached, false); err != nil || j != i {
			panic(errors.AssertionFailedf("window caches row %d at %d (err %v)", j, i, err))
		}
	}
}
