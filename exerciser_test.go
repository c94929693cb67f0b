package seqsync

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/commands"
	"github.com/leanovate/gopter/gen"
)

const uimax = 99_999

var (
	cmdCount = 0
	maxRows  = 0
	debug    = false
)

func progress(format string, args ...interface{}) {
	if debug {
		fmt.Printf(format+"\n", args...)
	}
}

type treeState struct {
	includeRoot bool
}

type treeSystem struct {
	root     *tnode
	adapter  *TreeAdapter[*tnode]
	rec      *Recorder[*tnode]
	next     int
	cmdCount int
}

// treeResult is what every command hands to its post-condition: the rows
// before and after, what the sink saw, and anything the adapter got wrong.
type treeResult struct {
	err     error
	before  []*tnode
	after   []*tnode
	batches [][]Recorded[*tnode]
}

func (s *treeSystem) nodes() []*tnode {
	var res []*tnode
	var walk func(*tnode)
	walk = func(n *tnode) {
		res = append(res, n)
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(s.root)
	return res
}

func within(n, anc *tnode) bool {
	for ; n != nil; n = n.parent {
		if n == anc {
			return true
		}
	}
	return false
}

// run applies mutation and checks the adapter against a fresh walk of the
// tree in both lookup directions.
func (s *treeSystem) run(mutation func() error) commands.Result {
	r := &treeResult{before: flatten(s.adapter.View())}
	s.rec.Reset()
	r.err = mutation()
	r.batches = s.rec.Batches
	r.after = flatten(s.adapter.View())
	s.cmdCount++
	if r.err != nil {
		return r
	}
	if s.adapter.Count() != len(r.after) {
		r.err = errors.Newf("count %d, tree has %d rows", s.adapter.Count(), len(r.after))
		return r
	}
	for i, want := range r.after {
		got, err := s.adapter.IndexToNode(i)
		if err != nil || got != want {
			r.err = errors.Newf("row %d is %v (err %v), want %v", i, got, err, want)
			return r
		}
	}
	for i := len(r.after) - 1; i >= 0; i-- {
		j, err := s.adapter.NodeToIndex(r.after[i])
		if err != nil || j != i {
			r.err = errors.Newf("%v at row %d (err %v), want %d", r.after[i], j, err, i)
			return r
		}
	}
	if len(r.after) > maxRows {
		maxRows = len(r.after)
	}
	return r
}

func checkTreeResult(name string, result commands.Result) *gopter.PropResult {
	r := result.(*treeResult)
	if r.err != nil {
		return gopter.NewPropResult(false, fmt.Sprintf("%s: %v", name, r.err))
	}
	if len(r.batches) > 1 {
		return gopter.NewPropResult(false, fmt.Sprintf("%s: %d batches", name, len(r.batches)))
	}
	var batch []Recorded[*tnode]
	if len(r.batches) == 1 {
		batch = r.batches[0]
	}
	if !checkBatch(progress, r.before, r.after, batch) {
		return gopter.NewPropResult(false, fmt.Sprintf("%s: %v does not turn %s into %s",
			name, batch, names(r.before), names(r.after)))
	}
	progress("%s: %s", name, names(r.after))
	return gopter.NewPropResult(true, name)
}

type toggleCommand uint

func (v toggleCommand) Run(sut commands.SystemUnderTest) commands.Result {
	s := sut.(*treeSystem)
	all := s.nodes()
	n := all[int(v)%len(all)]
	return s.run(func() error {
		flip := func() { n.expanded = !n.expanded }
		if _, err := s.adapter.NodeToIndex(n); errors.Is(err, ErrNotVisible) {
			flip()
			return nil
		}
		if n.expanded {
			return s.adapter.NotifyNodeCollapsing(n, flip, v%2 == 0)
		}
		return s.adapter.NotifyNodeExpanding(n, flip, v%2 == 0)
	})
}

func (v toggleCommand) NextState(state commands.State) commands.State { return state }
func (v toggleCommand) PreCondition(state commands.State) bool        { return true }

func (v toggleCommand) PostCondition(state commands.State, result commands.Result) *gopter.PropResult {
	return checkTreeResult(v.String(), result)
}

func (v toggleCommand) String() string { return fmt.Sprintf("Toggle(%d)", v) }

type insertCommand uint

func (v insertCommand) Run(sut commands.SystemUnderTest) commands.Result {
	s := sut.(*treeSystem)
	all := s.nodes()
	p := all[int(v)%len(all)]
	position := int(v/7) % (len(p.children) + 1)
	s.next++
	name := fmt.Sprintf("n%d", s.next)
	n := tn(name)
	if v%3 == 0 {
		n = tn(name, tn(name+".1"))
	}
	return s.run(func() error {
		return s.adapter.NotifyNodeInserting(n, p, position, func() { attach(p, n, position) }, v%2 == 0)
	})
}

func (v insertCommand) NextState(state commands.State) commands.State { return state }
func (v insertCommand) PreCondition(state commands.State) bool        { return true }

func (v insertCommand) PostCondition(state commands.State, result commands.Result) *gopter.PropResult {
	return checkTreeResult(v.String(), result)
}

func (v insertCommand) String() string { return fmt.Sprintf("Insert(%d)", v) }

type removeCommand uint

func (v removeCommand) Run(sut commands.SystemUnderTest) commands.Result {
	s := sut.(*treeSystem)
	all := s.nodes()[1:]
	if len(all) == 0 {
		return s.run(func() error { return nil })
	}
	n := all[int(v)%len(all)]
	return s.run(func() error {
		return s.adapter.NotifyNodeRemoving(n, func() { detach(n) }, v%2 == 0)
	})
}

func (v removeCommand) NextState(state commands.State) commands.State { return state }
func (v removeCommand) PreCondition(state commands.State) bool        { return true }

func (v removeCommand) PostCondition(state commands.State, result commands.Result) *gopter.PropResult {
	return checkTreeResult(v.String(), result)
}

func (v removeCommand) String() string { return fmt.Sprintf("Remove(%d)", v) }

type moveCommand uint

func (v moveCommand) Run(sut commands.SystemUnderTest) commands.Result {
	s := sut.(*treeSystem)
	all := s.nodes()
	if len(all) < 2 {
		return s.run(func() error { return nil })
	}
	n := all[1+int(v)%(len(all)-1)]
	var parents []*tnode
	for _, p := range all {
		if !within(p, n) {
			parents = append(parents, p)
		}
	}
	p := parents[int(v/3)%len(parents)]
	siblings := len(p.children)
	if n.parent == p {
		siblings--
	}
	position := int(v/11) % (siblings + 1)
	return s.run(func() error {
		return s.adapter.NotifyNodeMoving(n, p, position, func() {
			detach(n)
			attach(p, n, position)
		})
	})
}

func (v moveCommand) NextState(state commands.State) commands.State { return state }
func (v moveCommand) PreCondition(state commands.State) bool        { return true }

func (v moveCommand) PostCondition(state commands.State, result commands.Result) *gopter.PropResult {
	return checkTreeResult(v.String(), result)
}

func (v moveCommand) String() string { return fmt.Sprintf("Move(%d)", v) }

// dragCommand drops a row somewhere else at a level PossibleLevelsOfMove
// allows.
type dragCommand uint

func (v dragCommand) Run(sut commands.SystemUnderTest) commands.Result {
	s := sut.(*treeSystem)
	a := s.adapter
	return s.run(func() error {
		if a.Count() == 0 {
			return nil
		}
		from := int(v) % a.Count()
		node, err := a.IndexToNode(from)
		if err != nil {
			return err
		}
		remaining := a.Count() - 1 - a.rowsBelow(node)
		to := int(v/5) % (remaining + 1)
		lo, hi, err := a.PossibleLevelsOfMove(from, to)
		if errors.Is(err, ErrInvalidMove) {
			return nil
		} else if err != nil {
			return err
		}
		if lo > hi {
			return errors.Newf("empty level range [%d,%d]", lo, hi)
		}
		level := lo + int(v/13)%(hi-lo+1)
		err = a.MoveByIndex(from, to, level, func(n, p *tnode, position int) {
			detach(n)
			attach(p, n, position)
		})
		if err != nil {
			return err
		}
		if got, err := a.NodeToIndex(node); err != nil || got != to {
			return errors.Newf("dragged %v to row %d (err %v), want %d", node, got, err, to)
		}
		if got, _ := a.Level(node); got != level {
			return errors.Newf("dragged %v to level %d, want %d", node, got, level)
		}
		return nil
	})
}

func (v dragCommand) NextState(state commands.State) commands.State { return state }
func (v dragCommand) PreCondition(state commands.State) bool        { return true }

func (v dragCommand) PostCondition(state commands.State, result commands.Result) *gopter.PropResult {
	return checkTreeResult(v.String(), result)
}

func (v dragCommand) String() string { return fmt.Sprintf("Drag(%d)", v) }

type lookupCommand uint

func (v lookupCommand) Run(sut commands.SystemUnderTest) commands.Result {
	s := sut.(*treeSystem)
	return s.run(func() error {
		if s.adapter.Count() == 0 {
			return nil
		}
		i := int(v) % s.adapter.Count()
		n, err := s.adapter.IndexToNode(i)
		if err != nil {
			return err
		}
		if j, err := s.adapter.NodeToIndex(n); err != nil || j != i {
			return errors.Newf("%v at row %d (err %v), want %d", n, j, err, i)
		}
		return nil
	})
}

func (v lookupCommand) NextState(state commands.State) commands.State { return state }
func (v lookupCommand) PreCondition(state commands.State) bool        { return true }

func (v lookupCommand) PostCondition(state commands.State, result commands.Result) *gopter.PropResult {
	return checkTreeResult(v.String(), result)
}

func (v lookupCommand) String() string { return fmt.Sprintf("Lookup(%d)", v) }

func uintCommandGen(toCommand func(uint) commands.Command, fromCommand func(interface{}) uint) gopter.Gen {
	return gen.UIntRange(0, uimax).Map(func(value uint) commands.Command {
		return toCommand(value)
	}).WithShrinker(func(v interface{}) gopter.Shrink {
		return gen.UIntShrinker(fromCommand(v)).Map(func(value uint) commands.Command {
			return toCommand(value)
		})
	})
}

var (
	genToggle = uintCommandGen(
		func(v uint) commands.Command { return toggleCommand(v) },
		func(c interface{}) uint { return uint(c.(toggleCommand)) })
	genInsert = uintCommandGen(
		func(v uint) commands.Command { return insertCommand(v) },
		func(c interface{}) uint { return uint(c.(insertCommand)) })
	genRemove = uintCommandGen(
		func(v uint) commands.Command { return removeCommand(v) },
		func(c interface{}) uint { return uint(c.(removeCommand)) })
	genMove = uintCommandGen(
		func(v uint) commands.Command { return moveCommand(v) },
		func(c interface{}) uint { return uint(c.(moveCommand)) })
	genDrag = uintCommandGen(
		func(v uint) commands.Command { return dragCommand(v) },
		func(c interface{}) uint { return uint(c.(dragCommand)) })
	genLookup = uintCommandGen(
		func(v uint) commands.Command { return lookupCommand(v) },
		func(c interface{}) uint { return uint(c.(lookupCommand)) })
)

var treeCommands = &commands.ProtoCommands{
	NewSystemUnderTestFunc: func(initialState commands.State) commands.SystemUnderTest {
		root := sampleTree()
		rec := &Recorder[*tnode]{}
		view := Subtree[*tnode]{Root: root, IncludeRoot: initialState.(*treeState).includeRoot}
		a := NewTreeAdapter[*tnode](tmodel{}, view, rec, TreeOptions{WindowSize: 4, HintCacheSize: 2})
		progress("NewSystem")
		return &treeSystem{root: root, adapter: a, rec: rec}
	},
	DestroySystemUnderTestFunc: func(sut commands.SystemUnderTest) {
		cmdCount += sut.(*treeSystem).cmdCount
	},
	InitialStateGen: gen.Bool().Map(func(includeRoot bool) *treeState {
		return &treeState{includeRoot: includeRoot}
	}),
	InitialPreConditionFunc: func(state commands.State) bool {
		_ = state.(*treeState)
		return true
	},
	GenCommandFunc: func(state commands.State) gopter.Gen {
		return gen.Weighted(
			[]gen.WeightedGen{
				{Weight: 100, Gen: genToggle},
				{Weight: 150, Gen: genInsert},
				{Weight: 50, Gen: genRemove},
				{Weight: 100, Gen: genMove},
				{Weight: 100, Gen: genDrag},
				{Weight: 50, Gen: genLookup},
			},
		)
	},
}

func TestTreeExerciser(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	if !testing.Short() {
		parameters.MinSuccessfulTests = 300
	}
	properties := gopter.NewProperties(parameters)
	properties.Property("tree adapter exerciser", commands.Prop(treeCommands))
	properties.TestingRun(t)
	if !t.Failed() {
		t.Logf("largest view: %d rows", maxRows)
		t.Logf("successful commands: %d", cmdCount)
	}
}
