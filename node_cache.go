package seqsync

import lru "github.com/hashicorp/golang-lru"

// nodeHints remembers the linear index at which a node was last found. The
// tree changes underneath it, so a hint is only a place to look first and
// must be confirmed before it is trusted.
type nodeHints interface {
	// Add records that key was last seen at index value.
	Add(key, value interface{})
	// Get returns the last index recorded for key, if any.
	Get(key interface{}) (value interface{}, ok bool)
	// Purge forgets every hint.
	Purge()
}

// newNodeHints creates an ARC-based hint cache of the given size. A negative
// size disables hints.
func newNodeHints(size int) nodeHints {
	if size < 0 {
		return noHints{}
	}
	cache, err := lru.NewARC(size)
	if err != nil {
		panic(err)
	}
	return cache
}

type noHints struct{}

func (noHints) Add(interface{}, interface{})        {}
func (noHints) Get(interface{}) (interface{}, bool) { return nil, false }
func (noHints) Purge()                              {}
