package seqsync

import (
	"fmt"
	"slices"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/jrhy/seqsync/internal/invariants"
)

// PendingChange is a substitution that has been applied during a batch but
// not flushed: at current index From, Inserted fresh items now stand where
// Removed original items used to be.
type PendingChange struct {
	From     int
	Removed  int
	Inserted int
}

func (p PendingChange) String() string {
	return fmt.Sprintf("%d:-%d+%d", p.From, p.Removed, p.Inserted)
}

func (p PendingChange) end() int {
	return p.From + p.Inserted
}

// ChangeLedger tracks the edits of one batch so that an operation late in
// the batch, addressed in already-shifted coordinates, can still find the
// original content it displaces.
//
// Pending changes are kept sorted and disjoint; changes that touch are
// merged. A ChangeLedger is not safe for concurrent use.
type ChangeLedger struct {
	moved   *RangeLedger
	pending []PendingChange
}

// NewChangeLedger returns a ledger for a batch starting from a sequence of
// the given length.
func NewChangeLedger(length int) *ChangeLedger {
	return &ChangeLedger{moved: NewRangeLedger(length)}
}

// Len returns the current sequence length.
func (c *ChangeLedger) Len() int {
	return c.moved.Len()
}

// Pending returns a copy of the pending changes in current-index order.
func (c *ChangeLedger) Pending() []PendingChange {
	return slices.Clone(c.pending)
}

// Apply returns the original runs that currently occupy [from, from+count),
// or nil if any of those positions holds content inserted during the batch,
// in which case there is no old content to source.
func (c *ChangeLedger) Apply(from, count int) []Span {
	if count == 0 {
		return []Span{}
	}
	i := sort.Search(len(c.pending), func(i int) bool {
		return c.pending[i].end() > from
	})
	for ; i < len(c.pending) && c.pending[i].From < from+count; i++ {
		if c.pending[i].Inserted > 0 {
			return nil
		}
	}
	spans := c.moved.Spans(from, count)
	for _, s := range spans {
		if s.Fresh() {
			panic(errors.AssertionFailedf(
				"fresh span in [%d,+%d) not covered by pending changes %v", from, count, c.pending))
		}
	}
	return spans
}

// ReplaceOrChange records that removeCount items at from were replaced by
// insertCount new ones. A change is the case removeCount == insertCount.
func (c *ChangeLedger) ReplaceOrChange(from, removeCount, insertCount int) []Displacement {
	disp := c.moved.ReplaceOrChange(from, removeCount, insertCount)
	if removeCount == 0 && insertCount == 0 {
		return disp
	}
	end := from + removeCount
	lo := sort.Search(len(c.pending), func(i int) bool {
		return c.pending[i].end() >= from
	})
	hi := lo
	merged := PendingChange{From: from, Removed: removeCount, Inserted: insertCount}
	for ; hi < len(c.pending) && c.pending[hi].From <= end; hi++ {
		p := c.pending[hi]
		overlap := max(0, min(p.end(), end)-max(p.From, from))
		merged.From = min(merged.From, p.From)
		merged.Removed += p.Removed - overlap
		merged.Inserted += p.Inserted - overlap
	}
	delta := insertCount - removeCount
	for k := hi; k < len(c.pending); k++ {
		c.pending[k].From += delta
	}
	c.pending = slices.Delete(c.pending, lo, hi)
	if merged.Removed > 0 || merged.Inserted > 0 {
		c.pending = slices.Insert(c.pending, lo, merged)
	}
	c.maybeCheck()
	return disp
}

// Move relocates count items from from so that the first lands at to.
// Pending changes travel with the items they cover; a pending change cut by
// the move is split, and its removed count stays with the fragment that was
// first in the original order.
func (c *ChangeLedger) Move(from, count, to int) {
	c.moved.Move(from, count, to)
	if count == 0 || from == to || len(c.pending) == 0 {
		return
	}
	mapPos := func(p int) int {
		if p >= from && p < from+count {
			return to + p - from
		}
		if p >= from+count {
			p -= count
		}
		if p >= to {
			p += count
		}
		return p
	}
	cuts := []int{from, from + count}
	if to < from {
		cuts = append(cuts, to)
	} else {
		cuts = append(cuts, to+count)
	}
	var moved []PendingChange
	for _, p := range c.pending {
		if p.Inserted == 0 {
			moved = append(moved, PendingChange{From: mapPos(p.From), Removed: p.Removed})
			continue
		}
		start := p.From
		removed := p.Removed
		for start < p.end() {
			stop := p.end()
			for _, cut := range cuts {
				if cut > start && cut < stop {
					stop = cut
				}
			}
			moved = append(moved, PendingChange{From: mapPos(start), Removed: removed, Inserted: stop - start})
			removed = 0
			start = stop
		}
	}
	sort.SliceStable(moved, func(i, j int) bool {
		return moved[i].From < moved[j].From
	})
	c.pending = c.pending[:0]
	for _, p := range moved {
		if n := len(c.pending); n > 0 && c.pending[n-1].end() >= p.From {
			last := &c.pending[n-1]
			last.Removed += p.Removed
			last.Inserted += p.Inserted
			continue
		}
		c.pending = append(c.pending, p)
	}
	c.maybeCheck()
}

func (c *ChangeLedger) maybeCheck() {
	if invariants.Enabled {
		c.check()
	}
}

// check panics if pending changes overlap or touch, or if the fresh content
// of the range ledger is not exactly what the pending changes cover.
func (c *ChangeLedger) check() {
	c.moved.check()
	fresh := 0
	for i, p := range c.pending {
		if p.Removed < 0 || p.Inserted < 0 || p.Removed == 0 && p.Inserted == 0 {
			panic(errors.AssertionFailedf("bad pending change %d: %v", i, c.pending))
		}
		if i > 0 && c.pending[i-1].end() >= p.From {
			panic(errors.AssertionFailedf("pending changes %d and %d touch: %v", i-1, i, c.pending))
		}
		if p.Inserted > 0 {
			for _, s := range c.moved.Spans(p.From, p.Inserted) {
				if !s.Fresh() {
					panic(errors.AssertionFailedf("pending change %v covers original content", p))
				}
			}
		}
		fresh += p.Inserted
	}
	ledgerFresh := 0
	for _, e := range c.moved.entries {
		if e.fresh {
			ledgerFresh += e.length
		}
	}
	if fresh != ledgerFresh {
		panic(errors.AssertionFailedf("pending changes cover %d fresh items, ledger holds %d", fresh, ledgerFresh))
	}
}
