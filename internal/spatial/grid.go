package spatial

import (
	"errors"
	"fmt"
)

// GridLevels is the number of hierarchy levels of a Cell.
const GridLevels = 4

// MaxGridSize keeps size*size inside one byte digit.
const MaxGridSize = 16

var ErrInvalidGrid = errors.New("spatial: invalid grid")

// Grid holds the per-level grid size, coarsest level first.
type Grid [GridLevels]uint8

// DefaultGrid is the HIGH/HIGH/HIGH/HIGH grid.
var DefaultGrid = Grid{16, 16, 16, 16}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func (g Grid) Validate() error {
	for i, s := range g {
		if !isPowerOfTwo(int(s)) || s > MaxGridSize {
			return fmt.Errorf("%w: level %d size %d", ErrInvalidGrid, i, s)
		}
	}
	return nil
}

// Size returns the grid size at level i.
func (g Grid) Size(i int) int { return int(g[i]) }

// Resolution returns the number of raster cells per side at full depth.
func (g Grid) Resolution() int {
	return g.ResolutionAt(GridLevels)
}

// ResolutionAt returns the number of cells per side of the unit square for
// cells of the given depth.
func (g Grid) ResolutionAt(depth int) int {
	n := 1
	for i := 0; i < depth && i < GridLevels; i++ {
		n *= int(g[i])
	}
	return n
}

// GridFromInts builds a Grid from config values.
func GridFromInts(v []int) (Grid, error) {
	var g Grid
	if len(v) != GridLevels {
		return g, fmt.Errorf("%w: want %d levels, got %d", ErrInvalidGrid, GridLevels, len(v))
	}
	for i, s := range v {
		if s <= 0 || s > MaxGridSize {
			return g, fmt.Errorf("%w: level %d size %d", ErrInvalidGrid, i, s)
		}
		g[i] = uint8(s)
	}
	return g, g.Validate()
}

func (g Grid) Ints() []int {
	return []int{int(g[0]), int(g[1]), int(g[2]), int(g[3])}
}
