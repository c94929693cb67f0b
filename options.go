package seqsync

import (
	"context"
	"log/slog"
)

// DefaultAsyncThreshold is the combined old+new length above which a
// Dispatcher computes the diff on a background goroutine.
const DefaultAsyncThreshold = 1500

// DefaultWindowSize is how many consecutive index->node associations a
// TreeAdapter keeps cached.
const DefaultWindowSize = 80

// DefaultHintCacheSize is how many node->index hints a TreeAdapter keeps.
const DefaultHintCacheSize = 256

// Options controls a Dispatcher.
type Options struct {
	// AsyncThreshold is the combined length of the old and new snapshots
	// above which the diff runs in the background. 0 means use
	// DefaultAsyncThreshold; negative means always diff synchronously.
	AsyncThreshold int

	// DetectMoves pairs removals and insertions of the same item into moves.
	// See Script for its cost.
	DetectMoves bool

	// Deliver, if set, is called from the background goroutine with the
	// delivery of every finished result. It must arrange for apply to run on
	// the goroutine that owns the sink, for example by posting it to an event
	// loop. If nil, results wait for the owner's next Wait or Poll.
	Deliver func(apply func())

	// Logger receives debug records. nil discards them.
	Logger *slog.Logger

	// Metrics, if set, is updated by the dispatcher.
	Metrics *Metrics
}

func (o Options) asyncThreshold() int {
	if o.AsyncThreshold == 0 {
		return DefaultAsyncThreshold
	}
	return o.AsyncThreshold
}

// TreeOptions controls a TreeAdapter.
type TreeOptions struct {
	// WindowSize is the capacity of the index->node window cache. 0 means
	// use DefaultWindowSize.
	WindowSize int

	// HintCacheSize is the capacity of the node->index hint cache. 0 means
	// use DefaultHintCacheSize; negative disables hints.
	HintCacheSize int

	// Logger receives debug records. nil discards them.
	Logger *slog.Logger

	// Metrics, if set, is updated by the adapter.
	Metrics *Metrics
}

func (o TreeOptions) windowSize() int {
	if o.WindowSize <= 0 {
		return DefaultWindowSize
	}
	return o.WindowSize
}

func (o TreeOptions) hintCacheSize() int {
	if o.HintCacheSize == 0 {
		return DefaultHintCacheSize
	}
	return o.HintCacheSize
}

func loggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.New(discardHandler{})
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
