package seqsync

import "github.com/cockroachdb/errors"

var (
	// ErrNestedBatch is returned when a dispatch or tree notification is
	// started from inside a Sink callback of a batch that is still being
	// delivered.
	ErrNestedBatch = errors.New("seqsync: nested batch")

	// ErrRemoveRoot is returned when asked to remove the root of a tree view.
	ErrRemoveRoot = errors.New("seqsync: cannot remove the root of the view")

	// ErrInvalidMove is returned for moves that cannot be expressed, such as
	// moving a node underneath itself or moving the view root.
	ErrInvalidMove = errors.New("seqsync: invalid move")

	// ErrInvalidLevel is returned when a drop level is outside the range
	// reported by PossibleLevelsOfMove.
	ErrInvalidLevel = errors.New("seqsync: invalid move level")

	// ErrNotVisible is returned when a node that must be visible in the
	// linear view is not.
	ErrNotVisible = errors.New("seqsync: node is not visible")

	// ErrIndexOutOfRange is returned for linear indices outside [0, Count()).
	ErrIndexOutOfRange = errors.New("seqsync: index out of range")

	// ErrCorruptBatch is returned when decoding an encoded operation batch
	// fails.
	ErrCorruptBatch = errors.New("seqsync: corrupt operation batch")
)
