package btree

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tuannm99/novaspatial/internal/storage"
)

// maxHeight bounds a descent so that a cyclic tree fails instead of looping.
const maxHeight = 32

// Row is one leaf row.
type Row[K any] struct {
	ID      storage.RecordID
	Key     K
	Payload []byte
}

// IndexTree is a read-only view of a B+tree rooted at a fixed page. Pages
// come from src, which is usually the shared buffer pool.
//
// A tree caches its outermost leaf pages on first use and is not safe for
// concurrent use; open one per session.
type IndexTree[K any] struct {
	src   storage.Source
	root  storage.PageFileID
	codec Codec[K]

	minPage storage.PageFileID
	maxPage storage.PageFileID

	// pages whose row order has been checked
	ordered map[storage.PageFileID]struct{}
}

// Open checks the root page and returns a tree view over it.
func Open[K any](src storage.Source, root storage.PageFileID, codec Codec[K]) (*IndexTree[K], error) {
	t := &IndexTree[K]{src: src, root: root, codec: codec, ordered: map[storage.PageFileID]struct{}{}}
	n, err := t.load(root)
	if err != nil {
		return nil, err
	}
	if n.Op.Prev.Valid() || n.Op.Next.Valid() {
		return nil, corrupt(root, "root has siblings", nil)
	}
	if n.NumRows() == 0 {
		return nil, fmt.Errorf("%w: root %s", ErrEmptyTree, root)
	}
	slog.Debug("btree.open", "root", root.String(), "level", n.Op.Level)
	return t, nil
}

func (t *IndexTree[K]) Root() storage.PageFileID { return t.root }

func (t *IndexTree[K]) Codec() Codec[K] { return t.codec }

// load resolves a page. Missing pages keep ErrPageNotFound in the chain.
func (t *IndexTree[K]) load(id storage.PageFileID) (*Node[K], error) {
	p, err := t.src.LoadPage(id)
	if err != nil {
		return nil, err
	}
	return newNode(id, p, t.codec)
}

// Node loads the tree page id.
func (t *IndexTree[K]) Node(id storage.PageFileID) (*Node[K], error) {
	return t.load(id)
}

// checkOrder verifies once per page that its keys never decrease, so that
// searches never run over an unsorted page.
func (t *IndexTree[K]) checkOrder(n *Node[K]) error {
	if _, ok := t.ordered[n.ID]; ok {
		return nil
	}
	if err := n.CheckOrder(); err != nil {
		return err
	}
	t.ordered[n.ID] = struct{}{}
	return nil
}

// child loads the page an inner row points to and checks it sits one level
// below its parent and does not start below the row's key.
func (t *IndexTree[K]) child(parent *Node[K], slot int) (*Node[K], error) {
	id, err := parent.ChildAt(slot)
	if err != nil {
		return nil, err
	}
	n, err := t.load(id)
	if err != nil {
		var ce *CorruptionError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, corrupt(parent.ID, fmt.Sprintf("child %s of row %d", id, slot), err)
	}
	if n.Op.Level+1 != parent.Op.Level {
		return nil, corrupt(id, fmt.Sprintf("level %d under level %d", n.Op.Level, parent.Op.Level), nil)
	}
	if slot == 0 && parent.Leftmost() {
		return n, nil
	}
	sep, err := parent.KeyAt(slot)
	if err != nil {
		return nil, err
	}
	if n.NumRows() == 0 {
		return nil, corrupt(id, "empty page inside a level", nil)
	}
	first, err := n.KeyAt(0)
	if err != nil {
		return nil, err
	}
	if t.codec.Compare(first, sep) < 0 {
		return nil, corrupt(id, fmt.Sprintf("first key below row %d of parent %s", slot, parent.ID), nil)
	}
	return n, nil
}

// descend walks from the root to a leaf choosing one row per inner page.
func (t *IndexTree[K]) descend(pick func(n *Node[K]) (int, error)) (*Node[K], error) {
	n, err := t.load(t.root)
	if err != nil {
		return nil, err
	}
	for range maxHeight {
		if err := t.checkOrder(n); err != nil {
			return nil, err
		}
		if n.IsLeaf() {
			return n, nil
		}
		slot, err := pick(n)
		if err != nil {
			return nil, err
		}
		if n, err = t.child(n, slot); err != nil {
			return nil, err
		}
	}
	return nil, corrupt(t.root, "tree deeper than limit", nil)
}

// FindPage returns the leaf page whose key range holds key.
func (t *IndexTree[K]) FindPage(key K) (storage.PageFileID, error) {
	n, err := t.findNode(key)
	if err != nil {
		return storage.InvalidPage, err
	}
	return n.ID, nil
}

func (t *IndexTree[K]) findNode(key K) (*Node[K], error) {
	return t.descend(func(n *Node[K]) (int, error) {
		return n.FindSlot(key)
	})
}

// MinPage is the leftmost leaf. The result is cached.
func (t *IndexTree[K]) MinPage() (storage.PageFileID, error) {
	if t.minPage.Valid() {
		return t.minPage, nil
	}
	n, err := t.descend(func(*Node[K]) (int, error) { return 0, nil })
	if err != nil {
		return storage.InvalidPage, err
	}
	if !n.Leftmost() {
		return storage.InvalidPage, corrupt(n.ID, "first leaf has a left sibling", nil)
	}
	t.minPage = n.ID
	return n.ID, nil
}

// MaxPage is the rightmost leaf. The result is cached.
func (t *IndexTree[K]) MaxPage() (storage.PageFileID, error) {
	if t.maxPage.Valid() {
		return t.maxPage, nil
	}
	n, err := t.descend(func(n *Node[K]) (int, error) { return n.NumRows() - 1, nil })
	if err != nil {
		return storage.InvalidPage, err
	}
	if !n.Rightmost() {
		return storage.InvalidPage, corrupt(n.ID, "last leaf has a right sibling", nil)
	}
	t.maxPage = n.ID
	return n.ID, nil
}

// NextPage returns the right sibling of leaf id, or false at the end.
func (t *IndexTree[K]) NextPage(n *Node[K]) (*Node[K], bool, error) {
	return t.sibling(n, n.Op.Next, true)
}

// PrevPage returns the left sibling of leaf id, or false at the start.
func (t *IndexTree[K]) PrevPage(n *Node[K]) (*Node[K], bool, error) {
	return t.sibling(n, n.Op.Prev, false)
}

func (t *IndexTree[K]) sibling(n *Node[K], id storage.PageFileID, next bool) (*Node[K], bool, error) {
	if !id.Valid() {
		return nil, false, nil
	}
	s, err := t.load(id)
	if err != nil {
		var ce *CorruptionError
		if errors.As(err, &ce) {
			return nil, false, err
		}
		return nil, false, corrupt(n.ID, "sibling "+id.String(), err)
	}
	back := s.Op.Prev
	if !next {
		back = s.Op.Next
	}
	if s.Op.Level != n.Op.Level || back != n.ID {
		return nil, false, corrupt(id, "sibling link does not point back to "+n.ID.String(), nil)
	}
	if s.NumRows() == 0 {
		return nil, false, corrupt(id, "empty page inside a level", nil)
	}
	if err := t.checkOrder(s); err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// LoadRow reads the leaf row rid.
func (t *IndexTree[K]) LoadRow(rid storage.RecordID) (Row[K], error) {
	n, err := t.load(rid.PageFileID)
	if err != nil {
		return Row[K]{}, err
	}
	if !n.IsLeaf() || int(rid.Slot) >= n.NumRows() {
		return Row[K]{}, fmt.Errorf("%w: %s", ErrBadRecord, rid)
	}
	return n.Row(int(rid.Slot))
}

// NextRecord returns the row after rid in key order, crossing to the right
// sibling when rid is the last row of its page.
func (t *IndexTree[K]) NextRecord(rid storage.RecordID) (storage.RecordID, bool, error) {
	n, err := t.load(rid.PageFileID)
	if err != nil {
		return storage.RecordID{}, false, err
	}
	if int(rid.Slot)+1 < n.NumRows() {
		return storage.RecordID{PageFileID: n.ID, Slot: rid.Slot + 1}, true, nil
	}
	next, ok, err := t.NextPage(n)
	if err != nil || !ok {
		return storage.RecordID{}, false, err
	}
	return storage.RecordID{PageFileID: next.ID}, true, nil
}

// PrevRecord returns the row before rid in key order.
func (t *IndexTree[K]) PrevRecord(rid storage.RecordID) (storage.RecordID, bool, error) {
	if rid.Slot > 0 {
		return storage.RecordID{PageFileID: rid.PageFileID, Slot: rid.Slot - 1}, true, nil
	}
	n, err := t.load(rid.PageFileID)
	if err != nil {
		return storage.RecordID{}, false, err
	}
	prev, ok, err := t.PrevPage(n)
	if err != nil || !ok {
		return storage.RecordID{}, false, err
	}
	return storage.RecordID{PageFileID: prev.ID, Slot: uint16(prev.NumRows() - 1)}, true, nil
}

// LowerBound returns the first row with key >= key. Equal keys spilled onto
// earlier pages are found by stepping left from the page FindPage picks.
func (t *IndexTree[K]) LowerBound(key K) (storage.RecordID, bool, error) {
	n, err := t.findNode(key)
	if err != nil {
		return storage.RecordID{}, false, err
	}
	for {
		first, err := n.KeyAt(0)
		if err != nil {
			return storage.RecordID{}, false, err
		}
		if t.codec.Compare(first, key) < 0 {
			break
		}
		prev, ok, err := t.PrevPage(n)
		if err != nil {
			return storage.RecordID{}, false, err
		}
		if !ok {
			break
		}
		last, err := prev.KeyAt(prev.NumRows() - 1)
		if err != nil {
			return storage.RecordID{}, false, err
		}
		if t.codec.Compare(last, key) < 0 {
			break
		}
		n = prev
	}

	for {
		slot, err := n.LowerBound(key)
		if err != nil {
			return storage.RecordID{}, false, err
		}
		if slot < n.NumRows() {
			return storage.RecordID{PageFileID: n.ID, Slot: uint16(slot)}, true, nil
		}
		next, ok, err := t.NextPage(n)
		if err != nil || !ok {
			return storage.RecordID{}, false, err
		}
		n = next
	}
}

// Find returns the first row whose key equals key.
func (t *IndexTree[K]) Find(key K) (Row[K], bool, error) {
	rid, ok, err := t.LowerBound(key)
	if err != nil || !ok {
		return Row[K]{}, false, err
	}
	row, err := t.LoadRow(rid)
	if err != nil {
		return Row[K]{}, false, err
	}
	if t.codec.Compare(row.Key, key) != 0 {
		return Row[K]{}, false, nil
	}
	return row, true, nil
}

// MinKey and MaxKey return the smallest and largest stored keys.
func (t *IndexTree[K]) MinKey() (K, error) {
	var zero K
	id, err := t.MinPage()
	if err != nil {
		return zero, err
	}
	n, err := t.load(id)
	if err != nil {
		return zero, err
	}
	return n.KeyAt(0)
}

func (t *IndexTree[K]) MaxKey() (K, error) {
	var zero K
	id, err := t.MaxPage()
	if err != nil {
		return zero, err
	}
	n, err := t.load(id)
	if err != nil {
		return zero, err
	}
	return n.KeyAt(n.NumRows() - 1)
}
