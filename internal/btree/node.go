package btree

import (
	"fmt"
	"sort"

	"github.com/tuannm99/novaspatial/internal/storage"
)

// Node is a thin read-only wrapper around a tree page.
//
// Inner rows are (first key of child subtree, child id), ascending. On the
// leftmost page of a level, row 0 is a sentinel that stands for every key
// below row 1; its stored key is never compared.
type Node[K any] struct {
	ID    storage.PageFileID
	Page  *storage.Page
	Op    storage.TreeOpaque
	codec Codec[K]
}

func newNode[K any](id storage.PageFileID, p *storage.Page, codec Codec[K]) (*Node[K], error) {
	op, err := p.Opaque()
	if err != nil {
		return nil, corrupt(id, "not a tree page", err)
	}
	return &Node[K]{ID: id, Page: p, Op: op, codec: codec}, nil
}

func (n *Node[K]) IsLeaf() bool { return n.Op.IsLeaf() }

func (n *Node[K]) NumRows() int { return n.Page.NumSlots() }

// Leftmost reports whether n has no left sibling.
func (n *Node[K]) Leftmost() bool { return !n.Op.Prev.Valid() }

func (n *Node[K]) Rightmost() bool { return !n.Op.Next.Valid() }

func (n *Node[K]) row(i int) ([]byte, error) {
	data, err := n.Page.ReadTuple(i)
	if err != nil {
		return nil, corrupt(n.ID, fmt.Sprintf("row %d", i), err)
	}
	if len(data) < n.codec.Size() {
		return nil, corrupt(n.ID, fmt.Sprintf("row %d shorter than key", i), nil)
	}
	return data, nil
}

func (n *Node[K]) KeyAt(i int) (K, error) {
	data, err := n.row(i)
	if err != nil {
		var zero K
		return zero, err
	}
	return n.codec.Decode(data), nil
}

// ChildAt returns the child id of inner row i.
func (n *Node[K]) ChildAt(i int) (storage.PageFileID, error) {
	data, err := n.row(i)
	if err != nil {
		return storage.InvalidPage, err
	}
	if n.IsLeaf() || len(data) != n.codec.Size()+storage.PageFileIDSize {
		return storage.InvalidPage, corrupt(n.ID, fmt.Sprintf("row %d is not an inner row", i), nil)
	}
	return storage.DecodePageFileID(data[n.codec.Size():]), nil
}

// PayloadAt returns the bytes stored after the key of leaf row i. The slice
// aliases the page.
func (n *Node[K]) PayloadAt(i int) ([]byte, error) {
	data, err := n.row(i)
	if err != nil {
		return nil, err
	}
	return data[n.codec.Size():], nil
}

// Row decodes leaf row i.
func (n *Node[K]) Row(i int) (Row[K], error) {
	data, err := n.row(i)
	if err != nil {
		return Row[K]{}, err
	}
	return Row[K]{
		ID:      storage.RecordID{PageFileID: n.ID, Slot: uint16(i)},
		Key:     n.codec.Decode(data),
		Payload: data[n.codec.Size():],
	}, nil
}

// search returns the first row for which pred is false, assuming pred is
// true for a prefix of the rows.
func (n *Node[K]) search(pred func(i int, key K) bool) (int, error) {
	var err error
	i := sort.Search(n.NumRows(), func(i int) bool {
		if err != nil {
			return true
		}
		k, kerr := n.KeyAt(i)
		if kerr != nil {
			err = kerr
			return true
		}
		return !pred(i, k)
	})
	return i, err
}

// FindSlot picks the inner row to descend through for key: the last row
// whose key is <= key, with the sentinel covering everything smaller.
func (n *Node[K]) FindSlot(key K) (int, error) {
	size := n.NumRows()
	if size == 0 {
		return 0, corrupt(n.ID, "inner page has no rows", nil)
	}
	sentinel := n.Leftmost()
	i, err := n.search(func(i int, k K) bool {
		if i == 0 && sentinel {
			return true
		}
		return n.codec.Compare(k, key) < 0
	})
	if err != nil {
		return 0, err
	}
	if i < size && i > 0 {
		k, err := n.KeyAt(i)
		if err != nil {
			return 0, err
		}
		if n.codec.Compare(key, k) < 0 {
			i--
		}
	}
	if i >= size {
		i = size - 1
	}
	if err := n.checkAround(i); err != nil {
		return 0, err
	}
	return i, nil
}

// firstKeyed is the first row whose key takes part in ordering.
func (n *Node[K]) firstKeyed() int {
	if !n.IsLeaf() && n.Leftmost() {
		return 1
	}
	return 0
}

// checkAround checks the order of row i against its neighbours.
func (n *Node[K]) checkAround(i int) error {
	lo, hi := max(i-1, n.firstKeyed()), min(i+1, n.NumRows()-1)
	return n.checkRange(lo, hi)
}

func (n *Node[K]) checkRange(lo, hi int) error {
	if lo >= hi {
		return nil
	}
	prev, err := n.KeyAt(lo)
	if err != nil {
		return err
	}
	for i := lo + 1; i <= hi; i++ {
		k, err := n.KeyAt(i)
		if err != nil {
			return err
		}
		if n.codec.Compare(prev, k) > 0 {
			return corrupt(n.ID, fmt.Sprintf("row %d out of order", i), nil)
		}
		prev = k
	}
	return nil
}

// CheckOrder verifies that the keys of the page never decrease. Equal keys
// are allowed since duplicates may spill over several pages.
func (n *Node[K]) CheckOrder() error {
	return n.checkRange(n.firstKeyed(), n.NumRows()-1)
}

// LowerBound returns the first leaf row with key >= key, or NumRows.
func (n *Node[K]) LowerBound(key K) (int, error) {
	i, err := n.search(func(_ int, k K) bool {
		return n.codec.Compare(k, key) < 0
	})
	if err != nil {
		return 0, err
	}
	if err := n.checkAround(min(i, n.NumRows()-1)); err != nil {
		return 0, err
	}
	return i, nil
}
