package seqsync

import (
	"encoding/json"

	"github.com/minio/blake2b-simd"
)

// Comparator tells the diff engine how the items of two snapshots relate.
//
// Implementations must be deterministic and SameItem must be symmetric;
// neither property is checked at runtime and violating them makes the
// emitted operations meaningless.
type Comparator[T any] interface {
	// SameItem reports whether a and b are the same logical item (identity),
	// possibly with different content.
	SameItem(a, b T) bool
	// SameContent reports whether two items that are SameItem also render
	// identically. It is only called for pairs that are SameItem.
	SameContent(a, b T) bool
}

// Funcs adapts a pair of functions to a Comparator. A nil Content treats
// every pair of same items as having the same content.
type Funcs[T any] struct {
	Item    func(a, b T) bool
	Content func(a, b T) bool
}

func (f Funcs[T]) SameItem(a, b T) bool {
	return f.Item(a, b)
}

func (f Funcs[T]) SameContent(a, b T) bool {
	if f.Content == nil {
		return true
	}
	return f.Content(a, b)
}

// HashComparator identifies items by a key function and compares their
// content by the blake2b-256 digest of their serialized form, so that items
// without a natural equality can still be diffed.
type HashComparator[T any] struct {
	// Key returns the identity of an item. The returned values are compared
	// with ==, so they must be of comparable dynamic types.
	Key func(T) interface{}

	// Marshal function, defaults to JSON
	Marshal func(interface{}) ([]byte, error)
}

func (h HashComparator[T]) SameItem(a, b T) bool {
	return h.Key(a) == h.Key(b)
}

// SameContent reports false if either item fails to marshal.
func (h HashComparator[T]) SameContent(a, b T) bool {
	da, err := h.digest(a)
	if err != nil {
		return false
	}
	db, err := h.digest(b)
	if err != nil {
		return false
	}
	return da == db
}

func (h HashComparator[T]) digest(item T) ([32]byte, error) {
	marshal := h.Marshal
	if marshal == nil {
		marshal = json.Marshal
	}
	encoded, err := marshal(item)
	if err != nil {
		return [32]byte{}, err
	}
	return blake2b.Sum256(encoded), nil
}
