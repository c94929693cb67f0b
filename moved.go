package seqsync

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jrhy/seqsync/internal/invariants"
)

// movedRange is a contiguous block of the original sequence occupying a
// contiguous span of the current sequence. Fresh ranges hold content that
// was inserted during the batch and has no original counterpart; their from
// is meaningless.
type movedRange struct {
	from   int
	length int
	fresh  bool
}

func (r movedRange) String() string {
	if r.fresh {
		return fmt.Sprintf("new×%d", r.length)
	}
	return fmt.Sprintf("%d+%d", r.from, r.length)
}

// Span is a run of original positions. From is -1 for fresh content.
type Span struct {
	From   int
	Length int
}

// Fresh reports whether the span holds content inserted during the batch.
func (s Span) Fresh() bool {
	return s.From < 0
}

// Alignment says which part of a ledger entry survived a ReplaceOrChange.
type Alignment uint8

const (
	// AlignWhole means the entire entry was displaced.
	AlignWhole Alignment = iota
	// AlignLeft means the displaced part was the entry's prefix; its suffix
	// survives.
	AlignLeft
	// AlignRight means the displaced part was the entry's suffix; its prefix
	// survives.
	AlignRight
	// AlignMiddle means both a prefix and a suffix of the entry survive.
	AlignMiddle
)

func (a Alignment) String() string {
	switch a {
	case AlignWhole:
		return "whole"
	case AlignLeft:
		return "left"
	case AlignRight:
		return "right"
	case AlignMiddle:
		return "middle"
	}
	return fmt.Sprintf("Alignment(%d)", uint8(a))
}

// Displacement describes what a ReplaceOrChange did to one ledger entry:
// which original positions were removed (From is -1 when they were fresh),
// and how many of the inserted slots take their place. The final record of a
// call may have Removed == 0 and From == -1; it carries inserted slots that
// replace nothing.
type Displacement struct {
	From     int
	Removed  int
	Inserted int
	Align    Alignment
}

// RangeLedger maps positions of a sequence that is being edited back to the
// positions they had before the first edit. It is the "moved array" of a
// diff batch: entries are kept in a flat slice, in current order, and their
// lengths always sum to the current sequence length.
//
// A RangeLedger is not safe for concurrent use.
type RangeLedger struct {
	entries []movedRange
}

// NewRangeLedger returns a ledger for an untouched sequence of the given
// length.
func NewRangeLedger(length int) *RangeLedger {
	if length < 0 {
		panic(errors.AssertionFailedf("negative ledger length %d", length))
	}
	l := &RangeLedger{}
	if length > 0 {
		l.entries = []movedRange{{from: 0, length: length}}
	}
	return l
}

// Len returns the current sequence length.
func (l *RangeLedger) Len() int {
	total := 0
	for _, e := range l.entries {
		total += e.length
	}
	return total
}

// Map returns the original position of the item now at index, or false if
// that item was inserted during the batch.
func (l *RangeLedger) Map(index int) (int, bool) {
	pos := 0
	for _, e := range l.entries {
		if index >= 0 && index < pos+e.length {
			if e.fresh {
				return -1, false
			}
			return e.from + index - pos, true
		}
		pos += e.length
	}
	panic(errors.AssertionFailedf("ledger index %d out of range [0,%d)", index, pos))
}

// Find returns the current index of the item that was at position original
// before the batch, or false if it has been removed or replaced.
func (l *RangeLedger) Find(original int) (int, bool) {
	pos := 0
	for _, e := range l.entries {
		if !e.fresh && original >= e.from && original < e.from+e.length {
			return pos + original - e.from, true
		}
		pos += e.length
	}
	return -1, false
}

// Spans returns the original runs covering [from, from+count), in order.
func (l *RangeLedger) Spans(from, count int) []Span {
	l.checkRange(from, count)
	var res []Span
	pos := 0
	end := from + count
	for _, e := range l.entries {
		s, t := max(pos, from), min(pos+e.length, end)
		if s < t {
			sp := Span{From: -1, Length: t - s}
			if !e.fresh {
				sp.From = e.from + s - pos
			}
			res = append(res, sp)
		}
		pos += e.length
		if pos >= end {
			break
		}
	}
	return res
}

// Move relocates the length items starting at from so that the first of
// them ends up at index to of the resulting sequence.
func (l *RangeLedger) Move(from, length, to int) {
	l.checkRange(from, length)
	l.checkRange(to, length)
	if length == 0 || from == to {
		return
	}
	i := l.splitAt(from)
	j := l.splitAt(from + length)
	span := slices.Clone(l.entries[i:j])
	l.entries = slices.Delete(l.entries, i, j)
	k := l.splitAt(to)
	l.entries = slices.Insert(l.entries, k, span...)
	l.normalize()
	l.maybeCheck()
}

// ReplaceOrChange removes removed items at from and inserts inserted fresh
// ones in their place. It returns one Displacement per entry the removal
// intersected, with the inserted slots credited to them in order; inserted
// slots beyond the removed count are reported on a trailing record with
// From == -1 and Removed == 0.
func (l *RangeLedger) ReplaceOrChange(from, removed, inserted int) []Displacement {
	l.checkRange(from, removed)
	if inserted < 0 {
		panic(errors.AssertionFailedf("negative insert count %d", inserted))
	}
	if removed == 0 && inserted == 0 {
		return nil
	}
	var res []Displacement
	end := from + removed
	credit := inserted
	pos := 0
	for _, e := range l.entries {
		s, t := max(pos, from), min(pos+e.length, end)
		if s < t {
			d := Displacement{From: -1, Removed: t - s}
			if !e.fresh {
				d.From = e.from + s - pos
			}
			d.Inserted = min(credit, d.Removed)
			credit -= d.Inserted
			switch {
			case s == pos && t == pos+e.length:
				d.Align = AlignWhole
			case s == pos:
				d.Align = AlignLeft
			case t == pos+e.length:
				d.Align = AlignRight
			default:
				d.Align = AlignMiddle
			}
			res = append(res, d)
		}
		pos += e.length
		if pos >= end {
			break
		}
	}
	if credit > 0 {
		res = append(res, Displacement{From: -1, Inserted: credit, Align: AlignWhole})
	}

	i := l.splitAt(from)
	j := l.splitAt(end)
	l.entries = slices.Delete(l.entries, i, j)
	if inserted > 0 {
		l.entries = slices.Insert(l.entries, i, movedRange{length: inserted, fresh: true})
	}
	l.normalize()
	l.maybeCheck()
	return res
}

// splitAt makes sure an entry starts at current index pos and returns its
// position in entries (len(entries) when pos is the end of the sequence).
func (l *RangeLedger) splitAt(pos int) int {
	start := 0
	for i, e := range l.entries {
		if pos == start {
			return i
		}
		if pos < start+e.length {
			left := movedRange{from: e.from, length: pos - start, fresh: e.fresh}
			right := movedRange{from: e.from + pos - start, length: e.length - (pos - start), fresh: e.fresh}
			l.entries[i] = left
			l.entries = slices.Insert(l.entries, i+1, right)
			return i + 1
		}
		start += e.length
	}
	if pos != start {
		panic(errors.AssertionFailedf("ledger split at %d beyond length %d", pos, start))
	}
	return len(l.entries)
}

// normalize prunes empty entries and merges neighbours that continue each
// other.
func (l *RangeLedger) normalize() {
	out := l.entries[:0]
	for _, e := range l.entries {
		if e.length == 0 {
			continue
		}
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.fresh && e.fresh || !last.fresh && !e.fresh && last.from+last.length == e.from {
				last.length += e.length
				continue
			}
		}
		out = append(out, e)
	}
	l.entries = out
}

func (l *RangeLedger) checkRange(from, count int) {
	if from < 0 || count < 0 {
		panic(errors.AssertionFailedf("ledger range [%d,+%d) is negative", from, count))
	}
	if n := l.Len(); from+count > n {
		panic(errors.AssertionFailedf("ledger range [%d,+%d) exceeds length %d", from, count, n))
	}
}

func (l *RangeLedger) maybeCheck() {
	if invariants.Enabled {
		l.check()
	}
}

// check panics if the entries are not normalized or an original position is
// claimed twice.
func (l *RangeLedger) check() {
	seen := map[int]struct{}{}
	for i, e := range l.entries {
		if e.length <= 0 {
			panic(errors.AssertionFailedf("ledger entry %d has length %d: %s", i, e.length, l))
		}
		if i > 0 {
			p := l.entries[i-1]
			if p.fresh && e.fresh || !p.fresh && !e.fresh && p.from+p.length == e.from {
				panic(errors.AssertionFailedf("ledger entries %d and %d not merged: %s", i-1, i, l))
			}
		}
		if e.fresh {
			continue
		}
		for o := e.from; o < e.from+e.length; o++ {
			if _, ok := seen[o]; ok {
				panic(errors.AssertionFailedf("original position %d claimed twice: %s", o, l))
			}
			seen[o] = struct{}{}
		}
	}
}

func (l *RangeLedger) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, e := range l.entries {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(e.String())
	}
	b.WriteByte(']')
	return b.String()
}
