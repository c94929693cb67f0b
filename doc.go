/*
Package seqsync keeps a list that is displayed somewhere, typically with
animations, in step with data that changes underneath it. Instead of
redrawing everything, the display is told what happened in terms of
ranges: rows inserted, removed, replaced, changed in place or moved.

Uses

- Animating a list view from successive snapshots of a query result

- Presenting an expandable tree as a flat, virtualized list

- Logging or shipping the structural changes of an ordered collection


Lists

A Dispatcher holds the last snapshot its Sink has seen. Each Dispatch diffs
that snapshot against a new one using a Comparator, which tells whether two
elements are the same item and whether an item's content changed. The
shortest edit script (Myers, "An O(ND) Difference Algorithm and Its
Variations", 1986) is coalesced into Operations and delivered inside one
Sink.Batch call. Every operation is addressed in the positions left by the
operations before it, so applying them in order, as Replay does, turns the
old snapshot into the new one.

Sinks that animate removals need to know which item used to be in a slot
that is going away, even after earlier operations of the same batch shifted
everything around. A ChangeLedger, built on a RangeLedger that tracks where
each block of the original list currently sits, answers that for every
Remove, Replace and Change.

Large diffs are computed on a background goroutine. A newer Dispatch
supersedes an outstanding one; the superseded result is dropped when it
arrives, and the sink only ever sees complete transitions between
snapshots that were dispatched. Finished results are applied on the
goroutine that owns the sink, by Wait or Poll, or through Options.Deliver.

Trees

A TreeAdapter numbers the visible nodes of a TreeModel in pre-order: the
nodes every ancestor of which, up to the root of the Subtree being shown,
is expanded. Row lookups go through a small window of consecutive rows
that slides with use, so scrolling costs in proportion to the distance
scrolled. Expanding, collapsing, inserting, removing and moving nodes is
done by the caller inside the matching Notify method, which reports the
affected rows to the Sink with the same operations lists use.
PossibleLevelsOfMove, DropTarget and MoveByIndex support reordering rows by
drag and drop.

Concurrency

Ledgers and tree adapters are not safe for concurrent use. A Dispatcher is
driven from one goroutine; only the diff itself may run elsewhere.
*/
package seqsync
