package seqsync

import (
	"context"
	"fmt"
)

func ExampleDiff() {
	same := Funcs[int]{Item: func(a, b int) bool { return a == b }}
	ops, err := Diff(context.Background(), []int{1, 2, 3, 4, 5}, []int{2, 4, 5, 6}, Comparator[int](same), false)
	if err != nil {
		panic(err)
	}
	fmt.Print(FormatOperations(ops))
	// Output:
	// remove(0,1)
	// remove(1,1)
	// insert(3,1)
}

func ExampleDispatcher() {
	ctx := context.Background()
	rec := &Recorder[string]{}
	d := NewDispatcher([]string{"a", "b", "c"}, Funcs[string]{Item: func(a, b string) bool { return a == b }}, rec, Options{})
	if err := d.Dispatch(ctx, []string{"a", "c", "d"}); err != nil {
		panic(err)
	}
	if err := d.Wait(ctx); err != nil {
		panic(err)
	}
	for _, r := range rec.Batches[0] {
		fmt.Println(r.Op, r.Old)
	}
	// Output:
	// remove(1,1) [b]
	// insert(2,1) []
}

func ExampleTreeAdapter_NotifyNodeExpanding() {
	root := sampleTree()
	rec := &Recorder[*tnode]{}
	a := NewTreeAdapter[*tnode](tmodel{}, Subtree[*tnode]{Root: root}, rec, TreeOptions{})
	b := root.find("b")
	if err := a.NotifyNodeExpanding(b, func() { b.expanded = true }, false); err != nil {
		panic(err)
	}
	fmt.Print(FormatOperations(rec.Operations()))
	var rows []*tnode
	for i := 0; i < a.Count(); i++ {
		n, _ := a.IndexToNode(i)
		rows = append(rows, n)
	}
	fmt.Println(names(rows))
	// Output:
	// insert(4,1)
	// a a1 a2 b b1 c
}

func ExampleTreeAdapter_PossibleLevelsOfMove() {
	root := sampleTree()
	a := NewTreeAdapter[*tnode](tmodel{}, Subtree[*tnode]{Root: root}, &Recorder[*tnode]{}, TreeOptions{})
	// Drag c up between a2 and b.
	lo, hi, err := a.PossibleLevelsOfMove(4, 3)
	if err != nil {
		panic(err)
	}
	for level := lo; level <= hi; level++ {
		parent, position, _ := a.DropTarget(4, 3, level)
		fmt.Printf("level %d: child %d of %v\n", level, position, parent)
	}
	// Output:
	// level 0: child 1 of root
	// level 1: child 2 of a
}
