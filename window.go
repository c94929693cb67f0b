package seqsync

import "github.com/cockroachdb/errors"

// window caches the nodes at a contiguous run of linear indices
// [offset, offset+n) in a circular buffer of fixed capacity. Indices outside
// the run are absent.
type window[T any] struct {
	buf    []T
	head   int // buf index of offset
	n      int
	offset int
}

func newWindow[T any](capacity int) *window[T] {
	if capacity <= 0 {
		panic(errors.AssertionFailedf("window capacity %d", capacity))
	}
	return &window[T]{buf: make([]T, capacity)}
}

func (w *window[T]) slot(i int) int {
	return (w.head + i - w.offset) % len(w.buf)
}

func (w *window[T]) empty() bool {
	return w.n == 0
}

// first and last are the lowest and highest cached indices; only valid when
// the window is not empty.
func (w *window[T]) first() int { return w.offset }
func (w *window[T]) last() int  { return w.offset + w.n - 1 }

func (w *window[T]) get(i int) (T, bool) {
	if i < w.offset || i >= w.offset+w.n {
		var zero T
		return zero, false
	}
	return w.buf[w.slot(i)], true
}

// find returns the cached index of the first node for which eq holds.
func (w *window[T]) find(eq func(T) bool) (int, bool) {
	for i := w.offset; i < w.offset+w.n; i++ {
		if eq(w.buf[w.slot(i)]) {
			return i, true
		}
	}
	return -1, false
}

// reset makes node at index the only cached entry.
func (w *window[T]) reset(index int, node T) {
	w.clear()
	w.offset = index
	w.buf[0] = node
	w.n = 1
}

func (w *window[T]) clear() {
	var zero T
	for i := range w.buf {
		w.buf[i] = zero
	}
	w.head, w.n, w.offset = 0, 0, 0
}

// pushBack caches node at last()+1, evicting first() when full.
func (w *window[T]) pushBack(node T) {
	if w.n == len(w.buf) {
		w.head = (w.head + 1) % len(w.buf)
		w.offset++
		w.n--
	}
	w.buf[(w.head+w.n)%len(w.buf)] = node
	w.n++
}

// pushFront caches node at first()-1, evicting last() when full.
func (w *window[T]) pushFront(node T) {
	if w.n == len(w.buf) {
		w.n--
	}
	w.head = (w.head - 1 + len(w.buf)) % len(w.buf)
	w.offset--
	w.buf[w.head] = node
	w.n++
}

// insert accounts for count unknown nodes inserted at pos. Cached entries
// at or after pos shift up; if the insertion splits the run, the longer side
// is kept.
func (w *window[T]) insert(pos, count int) {
	if w.n == 0 || count == 0 {
		return
	}
	end := w.offset + w.n
	switch {
	case pos <= w.offset:
		w.offset += count
	case pos >= end:
	default:
		left, right := pos-w.offset, end-pos
		if left >= right {
			w.n = left
		} else {
			w.head = (w.head + left) % len(w.buf)
			w.n = right
			w.offset = pos + count
		}
	}
}

// remove accounts for the removal of [pos, pos+count). Entries after the
// removed range close the gap.
func (w *window[T]) remove(pos, count int) {
	if w.n == 0 || count == 0 {
		return
	}
	end := w.offset + w.n
	rEnd := pos + count
	switch {
	case rEnd <= w.offset:
		w.offset -= count
		return
	case pos >= end:
		return
	}
	pre := max(0, pos-w.offset)
	suf := max(0, end-rEnd)
	switch {
	case suf == 0:
		w.n = pre
	case pre == 0:
		w.head = (w.head + rEnd - w.offset) % len(w.buf)
		w.n = suf
		w.offset = pos
	default:
		gap := rEnd - pos
		for k := 0; k < suf; k++ {
			w.buf[(w.head+pre+k)%len(w.buf)] = w.buf[(w.head+pre+gap+k)%len(w.buf)]
		}
		w.n = pre + suf
	}
	if w.n == 0 {
		w.head, w.offset = 0, 0
	}
}
