package spatial

import "log/slog"

// MakeCell encodes a point as a leaf cell of grid.
func MakeCell(p Point, grid Grid) (Cell, error) {
	if err := p.Check(); err != nil {
		return Cell{}, err
	}
	if err := grid.Validate(); err != nil {
		return Cell{}, err
	}
	c := GlobeToCell(ProjectGlobe(p), grid)
	slog.Debug("spatial.make_cell", "point", p, "cell", c)
	return c, nil
}

// GlobeToCell encodes a unit-square position at all four levels.
func GlobeToCell(pos Point2D, grid Grid) Cell {
	var c Cell
	for i := range GridLevels {
		g := grid.Size(i)
		hx := levelIndex(pos.X, g)
		hy := levelIndex(pos.Y, g)
		c.ID[i] = byte(XY2D(g, hx, hy))
		pos = Point2D{
			X: float64(g) * (pos.X - float64(hx)/float64(g)),
			Y: float64(g) * (pos.Y - float64(hy)/float64(g)),
		}
	}
	c.Depth = MaxDepth
	return c
}

func levelIndex(v float64, g int) int {
	h := int(v * float64(g))
	if h > g-1 {
		h = g - 1
	}
	if h < 0 {
		h = 0
	}
	return h
}

// CellFromXY builds a leaf cell from integer raster coordinates in
// [0, grid.Resolution()).
func CellFromXY(x, y int, grid Grid) Cell {
	var c Cell
	div := grid.Resolution()
	for i := range GridLevels {
		div /= grid.Size(i)
		hx, hy := x/div, y/div
		x -= hx * div
		y -= hy * div
		c.ID[i] = byte(XY2D(grid.Size(i), hx, hy))
	}
	c.Depth = MaxDepth
	return c
}

// CellPoint returns the lower left corner of c inside the unit square.
func CellPoint(c Cell, grid Grid) Point2D {
	var pos Point2D
	f := 1.0
	for i := range int(c.Depth) {
		g := grid.Size(i)
		f /= float64(g)
		hx, hy := D2XY(g, int(c.ID[i]))
		pos.X += float64(hx) * f
		pos.Y += float64(hy) * f
	}
	return pos
}

// CellSide is the side length of a cell of the given depth in the unit square.
func CellSide(depth int, grid Grid) float64 {
	return 1 / float64(grid.ResolutionAt(depth))
}

// CellCenter returns the globe position of the centre of c.
func CellCenter(c Cell, grid Grid) Point {
	p := CellPoint(c, grid)
	half := CellSide(int(c.Depth), grid) / 2
	return ReverseProjectGlobe(Point2D{X: p.X + half, Y: p.Y + half})
}
