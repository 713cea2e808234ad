package btree

import (
	"fmt"

	"github.com/tuannm99/novaspatial/internal/storage"
)

// Report summarizes a validated tree.
type Report struct {
	Height     int `json:"height" yaml:"height"`
	Rows       int `json:"rows" yaml:"rows"`
	LeafPages  int `json:"leaf_pages" yaml:"leaf_pages"`
	InnerPages int `json:"inner_pages" yaml:"inner_pages"`
}

type bound[K any] struct {
	key K
	set bool
}

// Validate walks the whole tree and checks that keys are ordered inside
// pages, that every subtree stays within the range its parent row gives it,
// and that the leaf sibling chain visits the leaves in the same order as the
// descent. Any violation is a *CorruptionError.
func (t *IndexTree[K]) Validate() (Report, error) {
	var (
		rep    Report
		leaves []storage.PageFileID
	)
	root, err := t.load(t.root)
	if err != nil {
		return rep, err
	}
	rep.Height = int(root.Op.Level) + 1
	if err := t.check(root, bound[K]{}, bound[K]{}, &rep, &leaves); err != nil {
		return rep, err
	}

	id, err := t.MinPage()
	if err != nil {
		return rep, err
	}
	i := 0
	for n, err := range t.Pages() {
		if err != nil {
			return rep, err
		}
		if i >= len(leaves) || leaves[i] != n.ID {
			return rep, corrupt(n.ID, fmt.Sprintf("leaf chain from %s diverges at position %d", id, i), nil)
		}
		i++
	}
	if i != len(leaves) {
		return rep, corrupt(leaves[len(leaves)-1], "leaf chain ends early", nil)
	}
	return rep, nil
}

func (t *IndexTree[K]) check(n *Node[K], lo, hi bound[K], rep *Report, leaves *[]storage.PageFileID) error {
	size := n.NumRows()
	if size == 0 && n.ID != t.root {
		return corrupt(n.ID, "empty page", nil)
	}
	keys := make([]K, size)
	for i := range size {
		k, err := n.KeyAt(i)
		if err != nil {
			return err
		}
		keys[i] = k
	}

	// row 0 of a leftmost inner page is a sentinel and carries no bound
	first := 0
	if !n.IsLeaf() && n.Leftmost() {
		first = 1
	}
	for i := first; i < size; i++ {
		k := keys[i]
		if i > first && t.codec.Compare(keys[i-1], k) > 0 {
			return corrupt(n.ID, fmt.Sprintf("row %d out of order", i), nil)
		}
		if lo.set && t.codec.Compare(k, lo.key) < 0 {
			return corrupt(n.ID, fmt.Sprintf("row %d below parent bound", i), nil)
		}
		if hi.set && t.codec.Compare(k, hi.key) > 0 {
			return corrupt(n.ID, fmt.Sprintf("row %d above parent bound", i), nil)
		}
	}

	if n.IsLeaf() {
		rep.LeafPages++
		rep.Rows += size
		*leaves = append(*leaves, n.ID)
		return nil
	}

	rep.InnerPages++
	for i := range size {
		c, err := t.child(n, i)
		if err != nil {
			return err
		}
		clo := lo
		if i >= first {
			clo = bound[K]{key: keys[i], set: true}
		}
		chi := hi
		if i+1 < size {
			chi = bound[K]{key: keys[i+1], set: true}
		}
		if err := t.check(c, clo, chi, rep, leaves); err != nil {
			return err
		}
	}
	return nil
}
