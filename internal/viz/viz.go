// Package viz draws covering sets and points in the projected unit square.
package viz

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/tuannm99/novaspatial/internal/spatial"
)

var ErrNothingToDraw = errors.New("viz: nothing to draw")

// palette colours cells by depth, coarsest first.
var palette = [spatial.MaxDepth + 1]color.RGBA{
	{R: 0x99, G: 0x99, B: 0x99, A: 0xff},
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
}

// Figure collects layers before saving. The file format follows the
// extension passed to Save (png, svg, pdf, ...).
type Figure struct {
	p     *plot.Plot
	grid  spatial.Grid
	items int
}

func NewFigure(title string, grid spatial.Grid) *Figure {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.Add(plotter.NewGrid())
	return &Figure{p: p, grid: grid}
}

// CellSquare returns the corners of c in unit-square coordinates.
func CellSquare(c spatial.Cell, grid spatial.Grid) plotter.XYs {
	o := spatial.CellPoint(c, grid)
	side := spatial.CellSide(int(c.Depth), grid)
	return plotter.XYs{
		{X: o.X, Y: o.Y},
		{X: o.X + side, Y: o.Y},
		{X: o.X + side, Y: o.Y + side},
		{X: o.X, Y: o.Y + side},
	}
}

// AddCells outlines each cell.
func (f *Figure) AddCells(cells []spatial.Cell) error {
	for _, c := range cells {
		if !c.Valid() {
			return fmt.Errorf("%w: %s", spatial.ErrInvalidCell, c)
		}
		poly, err := plotter.NewPolygon(CellSquare(c, f.grid))
		if err != nil {
			return err
		}
		poly.Color = nil
		poly.LineStyle.Color = palette[c.Depth]
		poly.LineStyle.Width = vg.Points(0.5)
		f.p.Add(poly)
		f.items++
	}
	return nil
}

// AddPoints projects pts into the unit square and draws them as dots.
func (f *Figure) AddPoints(pts []spatial.Point) error {
	if len(pts) == 0 {
		return nil
	}
	xys := make(plotter.XYs, len(pts))
	for i, p := range pts {
		if err := p.Check(); err != nil {
			return err
		}
		q := spatial.ProjectGlobe(p)
		xys[i].X, xys[i].Y = q.X, q.Y
	}
	s, err := plotter.NewScatter(xys)
	if err != nil {
		return err
	}
	s.GlyphStyle.Radius = vg.Points(1.5)
	s.GlyphStyle.Color = color.Black
	f.p.Add(s)
	f.items += len(pts)
	return nil
}

func (f *Figure) Save(path string, size vg.Length) error {
	if f.items == 0 {
		return ErrNothingToDraw
	}
	if err := f.p.Save(size, size, path); err != nil {
		return fmt.Errorf("viz: save %s: %w", path, err)
	}
	slog.Debug("viz.saved", "path", path, "items", f.items)
	return nil
}

// RenderCover saves a plot of cells, plus optional points, to path.
func RenderCover(path string, cells []spatial.Cell, pts []spatial.Point, grid spatial.Grid) error {
	f := NewFigure(fmt.Sprintf("%d covering cells", len(cells)), grid)
	if err := f.AddCells(cells); err != nil {
		return err
	}
	if err := f.AddPoints(pts); err != nil {
		return err
	}
	return f.Save(path, 6*vg.Inch)
}

// RenderPoints saves a scatter plot of pts to path.
func RenderPoints(path string, pts []spatial.Point) error {
	f := NewFigure(fmt.Sprintf("%d points", len(pts)), spatial.DefaultGrid)
	if err := f.AddPoints(pts); err != nil {
		return err
	}
	return f.Save(path, 6*vg.Inch)
}
