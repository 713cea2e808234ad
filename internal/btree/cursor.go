package btree

import (
	"iter"

	"github.com/tuannm99/novaspatial/internal/storage"
)

// Cursor walks leaf rows in key order across sibling links. A cursor is
// positioned by First, Last, Seek or SeekRecord and stops being Valid when
// it runs off either end or hits an error.
type Cursor[K any] struct {
	t    *IndexTree[K]
	n    *Node[K]
	slot int
	err  error
}

func (t *IndexTree[K]) Cursor() *Cursor[K] {
	return &Cursor[K]{t: t}
}

func (c *Cursor[K]) Valid() bool { return c.err == nil && c.n != nil }

func (c *Cursor[K]) Err() error { return c.err }

func (c *Cursor[K]) fail(err error) bool {
	c.n = nil
	c.err = err
	return false
}

func (c *Cursor[K]) at(id storage.PageFileID, slot int) bool {
	n, err := c.t.load(id)
	if err != nil {
		return c.fail(err)
	}
	if !n.IsLeaf() || slot < 0 || slot >= n.NumRows() {
		return c.fail(corrupt(id, "cursor position outside leaf rows", nil))
	}
	c.n, c.slot = n, slot
	return true
}

func (c *Cursor[K]) First() bool {
	c.err = nil
	id, err := c.t.MinPage()
	if err != nil {
		return c.fail(err)
	}
	return c.at(id, 0)
}

func (c *Cursor[K]) Last() bool {
	c.err = nil
	id, err := c.t.MaxPage()
	if err != nil {
		return c.fail(err)
	}
	n, err := c.t.load(id)
	if err != nil {
		return c.fail(err)
	}
	return c.at(id, n.NumRows()-1)
}

// Seek positions the cursor on the first row with key >= key.
func (c *Cursor[K]) Seek(key K) bool {
	c.err = nil
	rid, ok, err := c.t.LowerBound(key)
	if err != nil {
		return c.fail(err)
	}
	if !ok {
		c.n = nil
		return false
	}
	return c.at(rid.PageFileID, int(rid.Slot))
}

func (c *Cursor[K]) SeekRecord(rid storage.RecordID) bool {
	c.err = nil
	if _, err := c.t.LoadRow(rid); err != nil {
		return c.fail(err)
	}
	return c.at(rid.PageFileID, int(rid.Slot))
}

func (c *Cursor[K]) Next() bool {
	if !c.Valid() {
		return false
	}
	if c.slot+1 < c.n.NumRows() {
		c.slot++
		return true
	}
	next, ok, err := c.t.NextPage(c.n)
	if err != nil {
		return c.fail(err)
	}
	if !ok {
		c.n = nil
		return false
	}
	c.n, c.slot = next, 0
	return true
}

func (c *Cursor[K]) Prev() bool {
	if !c.Valid() {
		return false
	}
	if c.slot > 0 {
		c.slot--
		return true
	}
	prev, ok, err := c.t.PrevPage(c.n)
	if err != nil {
		return c.fail(err)
	}
	if !ok {
		c.n = nil
		return false
	}
	c.n, c.slot = prev, prev.NumRows()-1
	return true
}

func (c *Cursor[K]) RecordID() storage.RecordID {
	if c.n == nil {
		return storage.RecordID{}
	}
	return storage.RecordID{PageFileID: c.n.ID, Slot: uint16(c.slot)}
}

// Row decodes the current row. The payload aliases the page.
func (c *Cursor[K]) Row() (Row[K], error) {
	if c.n == nil {
		return Row[K]{}, ErrBadRecord
	}
	return c.n.Row(c.slot)
}

// Rows yields every row in ascending key order. Iteration stops after the
// first error, which is yielded with a zero row.
func (t *IndexTree[K]) Rows() iter.Seq2[Row[K], error] {
	return t.rows(func(c *Cursor[K]) bool { return c.First() }, (*Cursor[K]).Next)
}

// RowsFrom yields rows with key >= key in ascending order.
func (t *IndexTree[K]) RowsFrom(key K) iter.Seq2[Row[K], error] {
	return t.rows(func(c *Cursor[K]) bool { return c.Seek(key) }, (*Cursor[K]).Next)
}

func (t *IndexTree[K]) RowsBackward() iter.Seq2[Row[K], error] {
	return t.rows(func(c *Cursor[K]) bool { return c.Last() }, (*Cursor[K]).Prev)
}

func (t *IndexTree[K]) rows(start, step func(*Cursor[K]) bool) iter.Seq2[Row[K], error] {
	return func(yield func(Row[K], error) bool) {
		c := t.Cursor()
		for ok := start(c); ok; ok = step(c) {
			row, err := c.Row()
			if err != nil {
				yield(Row[K]{}, err)
				return
			}
			if !yield(row, nil) {
				return
			}
		}
		if err := c.Err(); err != nil {
			yield(Row[K]{}, err)
		}
	}
}

// Pages yields the leaf pages from MinPage to MaxPage.
func (t *IndexTree[K]) Pages() iter.Seq2[*Node[K], error] {
	return func(yield func(*Node[K], error) bool) {
		id, err := t.MinPage()
		if err != nil {
			yield(nil, err)
			return
		}
		n, err := t.load(id)
		if err != nil {
			yield(nil, err)
			return
		}
		for {
			if !yield(n, nil) {
				return
			}
			next, ok, err := t.NextPage(n)
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok {
				return
			}
			n = next
		}
	}
}
