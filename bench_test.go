package seqsync

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
)

// edited returns n items and a copy with about n/10 random edits applied.
func edited(n int, seed int64) (old, new []item) {
	r := rand.New(rand.NewSource(seed))
	old = make([]item, n)
	for i := range old {
		old[i] = item{ID: i}
	}
	new = append([]item(nil), old...)
	for e := 0; e < n/10+1; e++ {
		switch i := r.Intn(len(new) + 1); r.Intn(4) {
		case 0:
			new = append(new[:i], append([]item{{ID: n + e}}, new[i:]...)...)
		case 1:
			if i < len(new) {
				new = append(new[:i], new[i+1:]...)
			}
		case 2:
			if i < len(new) {
				new[i].Rev++
			}
		case 3:
			if i < len(new) {
				x := new[i]
				new = append(new[:i], new[i+1:]...)
				j := r.Intn(len(new) + 1)
				new = append(new[:j], append([]item{x}, new[j:]...)...)
			}
		}
	}
	return old, new
}

func benchmarkDiff(n int, moves bool, b *testing.B) {
	old, new := edited(n, 1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Diff(context.Background(), old, new, Comparator[item](byID), moves); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDiff100(b *testing.B)      { benchmarkDiff(100, false, b) }
func BenchmarkDiff1k(b *testing.B)       { benchmarkDiff(1_000, false, b) }
func BenchmarkDiff10k(b *testing.B)      { benchmarkDiff(10_000, false, b) }
func BenchmarkDiffMoves100(b *testing.B) { benchmarkDiff(100, true, b) }
func BenchmarkDiffMoves1k(b *testing.B)  { benchmarkDiff(1_000, true, b) }
func BenchmarkDiffMoves10k(b *testing.B) { benchmarkDiff(10_000, true, b) }

func benchmarkDispatch(n int, b *testing.B) {
	old, new := edited(n, 2)
	d := NewDispatcher(old, byID, discardSink[item]{}, Options{AsyncThreshold: -1, DetectMoves: true})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		next := new
		if i%2 == 1 {
			next = old
		}
		if err := d.Dispatch(context.Background(), next); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDispatch1k(b *testing.B)  { benchmarkDispatch(1_000, b) }
func BenchmarkDispatch10k(b *testing.B) { benchmarkDispatch(10_000, b) }

type discardSink[T any] struct{}

func (discardSink[T]) Insert(int, int)                    {}
func (discardSink[T]) Remove(int, int, OldItems[T])       {}
func (discardSink[T]) Replace(int, int, int, OldItems[T]) {}
func (discardSink[T]) Change(int, int, OldItems[T])       {}
func (discardSink[T]) Move(int, int, int)                 {}
func (discardSink[T]) Batch(fn func())                    { fn() }

// bushyTree has fanout^depth leaves, every node expanded.
func bushyTree(fanout, depth int) *tnode {
	var build func(name string, d int) *tnode
	build = func(name string, d int) *tnode {
		if d == 0 {
			return tn(name)
		}
		kids := make([]*tnode, fanout)
		for i := range kids {
			kids[i] = build(fmt.Sprintf("%s.%d", name, i), d-1)
		}
		return tn(name, kids...)
	}
	return build("r", depth)
}

func benchmarkTreeScroll(window int, b *testing.B) {
	a := NewTreeAdapter[*tnode](tmodel{}, Subtree[*tnode]{Root: bushyTree(8, 4)}, discardSink[*tnode]{},
		TreeOptions{WindowSize: window})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// Scroll down a screen at a time, reading every row.
		base := (i * 40) % (a.Count() - 40)
		for r := base; r < base+40; r++ {
			if _, err := a.IndexToNode(r); err != nil {
				b.Fatal(err)
			}
		}
	}
}

func BenchmarkTreeScroll(b *testing.B)           { benchmarkTreeScroll(DefaultWindowSize, b) }
func BenchmarkTreeScrollTinyWindow(b *testing.B) { benchmarkTreeScroll(4, b) }

func BenchmarkTreeExpandCollapse(b *testing.B) {
	root := bushyTree(8, 4)
	a := NewTreeAdapter[*tnode](tmodel{}, Subtree[*tnode]{Root: root}, discardSink[*tnode]{}, TreeOptions{})
	n := root.children[4]
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := a.NotifyNodeCollapsing(n, func() { n.expanded = false }, false); err != nil {
			b.Fatal(err)
		}
		if err := a.NotifyNodeExpanding(n, func() { n.expanded = true }, false); err != nil {
			b.Fatal(err)
		}
	}
}
