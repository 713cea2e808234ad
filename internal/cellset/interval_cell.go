// Package cellset holds compact ordered sets used by the spatial queries: an
// interval set that stores runs of consecutive integers as two markers, a
// bitmap-backed sparse set, and a cell set layered over the interval set.
package cellset

import "github.com/tuannm99/novaspatial/internal/spatial"

// IntervalCell is a set of cells kept as runs of leaf ranks. A leaf's rank is
// its position among the valid leaves of the grid, so a cell of depth d
// covers one contiguous block of span[d] ranks. With 16-wide levels the rank
// equals R32.
type IntervalCell struct {
	set    *IntervalSet[uint32]
	digits [spatial.MaxDepth]uint64     // valid digits per level
	span   [spatial.MaxDepth + 1]uint64 // leaves per cell of each depth
}

// NewGridIntervalCell sizes the leaf blocks to g. An invalid g falls back to
// the default grid.
func NewGridIntervalCell(g spatial.Grid) *IntervalCell {
	if g.Validate() != nil {
		g = spatial.DefaultGrid
	}
	ic := &IntervalCell{set: NewIntervalSet[uint32]()}
	ic.span[spatial.MaxDepth] = 1
	for i := spatial.MaxDepth - 1; i >= 0; i-- {
		ic.digits[i] = uint64(g[i]) * uint64(g[i])
		ic.span[i] = ic.span[i+1] * ic.digits[i]
	}
	return ic
}

// rank of the first leaf of c. ok is false when c has an invalid depth or a
// digit outside the grid.
func (ic *IntervalCell) rank(c spatial.Cell) (uint32, bool) {
	if c.Depth < 1 || c.Depth > spatial.MaxDepth {
		return 0, false
	}
	var r uint64
	for i := range spatial.MaxDepth {
		if uint64(c.ID[i]) >= ic.digits[i] {
			return 0, false
		}
		r = r*ic.digits[i] + uint64(c.ID[i])
	}
	return uint32(r), true
}

func (ic *IntervalCell) leaf(rank uint32) spatial.Cell {
	var id [spatial.GridLevels]byte
	r := uint64(rank)
	for i := spatial.MaxDepth - 1; i >= 0; i-- {
		id[i] = byte(r % ic.digits[i])
		r /= ic.digits[i]
	}
	return spatial.NewCell(id, spatial.MaxDepth)
}

// Insert adds the leaves of c and reports whether any was new. Cells with an
// invalid depth or a digit outside the grid are ignored.
func (ic *IntervalCell) Insert(c spatial.Cell) bool {
	lo, ok := ic.rank(c)
	if !ok {
		return false
	}
	if c.Depth == spatial.MaxDepth {
		return ic.set.Insert(lo)
	}
	return ic.set.InsertRange(lo, lo+uint32(ic.span[c.Depth]-1)) > 0
}

// Find reports whether every leaf of c is in the set.
func (ic *IntervalCell) Find(c spatial.Cell) bool {
	lo, ok := ic.rank(c)
	if !ok {
		return false
	}
	if c.Depth == spatial.MaxDepth {
		return ic.set.Find(lo)
	}
	_, runHi, ok := ic.set.FindRun(lo)
	return ok && uint64(runHi) >= uint64(lo)+ic.span[c.Depth]-1
}

// ForEach calls fn with every leaf cell in ascending order.
func (ic *IntervalCell) ForEach(fn func(spatial.Cell) bool) bool {
	return ic.set.ForEach(func(v uint32) bool {
		return fn(ic.leaf(v))
	})
}

// ForEachInterval calls fn with every maximal leaf run.
func (ic *IntervalCell) ForEachInterval(fn func(lo, hi spatial.Cell) bool) bool {
	return ic.set.ForEachInterval(func(lo, hi uint32) bool {
		return fn(ic.leaf(lo), ic.leaf(hi))
	})
}

// ForEachMerged calls fn with the coarsest aligned cells that exactly tile the
// set, in ascending order.
func (ic *IntervalCell) ForEachMerged(fn func(spatial.Cell) bool) bool {
	return ic.set.ForEachInterval(func(lo, hi uint32) bool {
		v, end := uint64(lo), uint64(hi)
		for v <= end {
			depth := spatial.MaxDepth
			for d := 1; d < spatial.MaxDepth; d++ {
				b := ic.span[d]
				if v%b == 0 && v+b-1 <= end {
					depth = d
					break
				}
			}
			if !fn(ic.leaf(uint32(v)).Parent(depth)) {
				return false
			}
			v += ic.span[depth]
		}
		return true
	})
}

// Merged collects ForEachMerged into a slice.
func (ic *IntervalCell) Merged() []spatial.Cell {
	var out []spatial.Cell
	ic.ForEachMerged(func(c spatial.Cell) bool {
		out = append(out, c)
		return true
	})
	return out
}

// Size is the number of leaves.
func (ic *IntervalCell) Size() int   { return ic.set.Size() }
func (ic *IntervalCell) Empty() bool { return ic.set.Empty() }
func (ic *IntervalCell) Clear()      { ic.set.Clear() }

func (ic *IntervalCell) Front() (spatial.Cell, bool) {
	v, ok := ic.set.Front()
	return ic.leaf(v), ok
}

func (ic *IntervalCell) Back() (spatial.Cell, bool) {
	v, ok := ic.set.Back()
	return ic.leaf(v), ok
}
