package spatialtree

import (
	"fmt"
	"log/slog"

	"golang.org/x/exp/constraints"

	"github.com/tuannm99/novaspatial/internal/cellset"
	"github.com/tuannm99/novaspatial/internal/cover"
	"github.com/tuannm99/novaspatial/internal/spatial"
	"github.com/tuannm99/novaspatial/internal/storage"
)

func checkCell(c spatial.Cell) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %s", spatial.ErrInvalidCell, c)
	}
	return nil
}

// FindCell returns the first row in key order whose cell is c, an ancestor
// of c, or sorts after c. Ancestors sort before c, so the coarsest stored
// ancestor wins when there is one.
func (t *Tree[PK]) FindCell(c spatial.Cell) (storage.RecordID, bool, error) {
	if err := checkCell(c); err != nil {
		return storage.RecordID{}, false, err
	}
	for d := 1; d < int(c.Depth); d++ {
		prefix := c.Parent(d)
		rid, ok, err := t.idx.LowerBound(t.seekKey(prefix))
		if err != nil || !ok {
			return storage.RecordID{}, false, err
		}
		row, err := t.idx.LoadRow(rid)
		if err != nil {
			return storage.RecordID{}, false, err
		}
		if row.Key.Cell == prefix {
			return rid, true, nil
		}
	}
	return t.idx.LowerBound(t.seekKey(c))
}

// ForCell calls visit once for every row whose cell intersects c: rows
// stored under any ancestor of c, under c itself, or under a descendant.
// Each depth from 1 to c.Depth is searched from the first row of its prefix
// cell; a search that lands inside rows already visited is skipped. It
// reports whether visit stopped the walk.
func (t *Tree[PK]) ForCell(c spatial.Cell, visit Visit[PK]) (bool, error) {
	if err := checkCell(c); err != nil {
		return false, err
	}
	var (
		last Key[PK]
		seen bool
	)
	cur := t.idx.Cursor()
	for d := 1; d <= int(c.Depth); d++ {
		if !cur.Seek(t.seekKey(c.Parent(d))) {
			// nothing at or after this prefix, nor after deeper ones
			return false, cur.Err()
		}
		first, err := cur.Row()
		if err != nil {
			return false, err
		}
		if seen && t.codec.Compare(first.Key, last) <= 0 {
			continue
		}
		for cur.Valid() {
			row, err := cur.Row()
			if err != nil {
				return false, err
			}
			if !row.Key.Cell.Intersect(c) {
				break
			}
			if !visit(t.row(row)) {
				return true, nil
			}
			last, seen = row.Key, true
			cur.Next()
		}
		if err := cur.Err(); err != nil {
			return false, err
		}
	}
	return false, nil
}

// ForPoint visits the rows intersecting the leaf cell of p.
func (t *Tree[PK]) ForPoint(p spatial.Point, visit Visit[PK]) (bool, error) {
	c, err := spatial.MakeCell(p, t.opts.Grid)
	if err != nil {
		return false, err
	}
	return t.ForCell(c, visit)
}

// ForCover runs ForCell for every merged cell of ic.
func (t *Tree[PK]) ForCover(ic *cellset.IntervalCell, visit Visit[PK]) (bool, error) {
	var (
		stopped bool
		err     error
		lookups int
	)
	ic.ForEachMerged(func(c spatial.Cell) bool {
		lookups++
		stopped, err = t.ForCell(c, visit)
		return err == nil && !stopped
	})
	slog.Debug("spatialtree.for_cover", "leaves", ic.Size(), "lookups", lookups, "stopped", stopped)
	return stopped, err
}

// distinct passes each primary key to visit only once.
func distinct[PK constraints.Integer](visit Visit[PK]) Visit[PK] {
	seen := cellset.NewSparseSet[PK]()
	return func(r Row[PK]) bool {
		if !seen.Insert(r.PK) {
			return true
		}
		return visit(r)
	}
}

// ForRect visits rows inside the covering of r, once per primary key.
// The covering over-approximates: rows near the border may lie outside r.
func (t *Tree[PK]) ForRect(r spatial.Rect, visit Visit[PK]) (bool, error) {
	ic, err := cover.Rect(r, t.opts.Cover)
	if err != nil {
		return false, err
	}
	return t.ForCover(ic, distinct(visit))
}

// ForRange visits rows inside the covering of the circle around center,
// once per primary key.
func (t *Tree[PK]) ForRange(center spatial.Point, meters float64, visit Visit[PK]) (bool, error) {
	ic, err := cover.Range(center, meters, t.opts.Cover)
	if err != nil {
		return false, err
	}
	return t.ForCover(ic, distinct(visit))
}

// ForRangeExact is ForRange that drops rows whose payload point lies
// farther than meters from center. Rows without a point are kept.
func (t *Tree[PK]) ForRangeExact(center spatial.Point, meters float64, visit Visit[PK]) (bool, error) {
	return t.ForRange(center, meters, func(r Row[PK]) bool {
		if p, ok := r.Point(); ok && spatial.Haversine(center, p) > meters {
			return true
		}
		return visit(r)
	})
}

// ForPolygon visits rows inside ring, once per primary key. Rows are found
// through the covering of the ring's bounding box and kept when their
// payload point is inside the ring. Rows without a point are kept.
func (t *Tree[PK]) ForPolygon(ring []spatial.Point, visit Visit[PK]) (bool, error) {
	ic, err := cover.Polygon(ring, t.opts.Cover)
	if err != nil {
		return false, err
	}
	return t.ForCover(ic, distinct(func(r Row[PK]) bool {
		if p, ok := r.Point(); ok && !spatial.RingContains(ring, p) {
			return true
		}
		return visit(r)
	}))
}

func (t *Tree[PK]) collectPK0(ic *cellset.IntervalCell) (*cellset.SparseSet[PK], error) {
	set := cellset.NewSparseSet[PK]()
	_, err := t.ForCover(ic, func(r Row[PK]) bool {
		set.Insert(r.PK)
		return true
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

// ForRectPK0 collects the distinct primary keys inside the covering of r
// and then calls fn with them in ascending order.
func (t *Tree[PK]) ForRectPK0(r spatial.Rect, fn func(PK) bool) (bool, error) {
	ic, err := cover.Rect(r, t.opts.Cover)
	if err != nil {
		return false, err
	}
	set, err := t.collectPK0(ic)
	if err != nil {
		return false, err
	}
	return !set.ForEach(fn), nil
}

func (t *Tree[PK]) ForRangePK0(center spatial.Point, meters float64, fn func(PK) bool) (bool, error) {
	ic, err := cover.Range(center, meters, t.opts.Cover)
	if err != nil {
		return false, err
	}
	set, err := t.collectPK0(ic)
	if err != nil {
		return false, err
	}
	return !set.ForEach(fn), nil
}

// FullGlobe visits every row in key order.
func (t *Tree[PK]) FullGlobe(visit Visit[PK]) (bool, error) {
	for row, err := range t.idx.Rows() {
		if err != nil {
			return false, err
		}
		if !visit(t.row(row)) {
			return true, nil
		}
	}
	return false, nil
}
