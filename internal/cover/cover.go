// Package cover turns query regions into covering cell sets.
//
// A region is cut into sectors that each fall inside one face of the
// projection (one hemisphere and one longitude quadrant). Every sector's
// outline is sampled and projected; the padded bounding box of the samples
// is rasterized at the finest depth that stays under the cell budget. Points
// of the region always land in a cell of the result. Cells outside the
// region may be included.
package cover

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/tuannm99/novaspatial/internal/cellset"
	"github.com/tuannm99/novaspatial/internal/spatial"
)

// DefaultMaxCells bounds the raster of one sector.
const DefaultMaxCells = 1 << 14

const (
	sampleStep = 0.25 // degrees between outline samples
	minSamples = 4
	maxSamples = 720
)

type Options struct {
	Grid     spatial.Grid
	MaxCells int
}

func DefaultOptions() Options {
	return Options{Grid: spatial.DefaultGrid, MaxCells: DefaultMaxCells}
}

func (o Options) norm() Options {
	if o.Grid == (spatial.Grid{}) {
		o.Grid = spatial.DefaultGrid
	}
	if o.MaxCells <= 0 {
		o.MaxCells = DefaultMaxCells
	}
	return o
}

// Sector is the part of a region inside one projection face.
type Sector struct {
	Rect       spatial.Rect
	Hemisphere spatial.Hemisphere
	Quadrant   spatial.Quadrant
}

type lonSpan struct {
	lo, hi float64
	q      spatial.Quadrant
}

// quadrant spans in ascending longitude; hi belongs to the next span
// except for the last one
var quadrantSpans = []lonSpan{
	{-180, -135, spatial.Q2},
	{-135, -45, spatial.Q3},
	{-45, 45, spatial.Q0},
	{45, 135, spatial.Q1},
	{135, 180, spatial.Q2},
}

// Sectors splits r at the equator, the quadrant meridians and the
// antimeridian. A region ending exactly on a border also gets the
// degenerate sector on the far side, since border points are encoded on
// that side.
func Sectors(r spatial.Rect) []Sector {
	type latSpan struct {
		lo, hi float64
		h      spatial.Hemisphere
	}
	var lats []latSpan
	if r.MinLat < 0 {
		lats = append(lats, latSpan{r.MinLat, math.Min(r.MaxLat, 0), spatial.South})
	}
	if r.MaxLat >= 0 {
		lats = append(lats, latSpan{math.Max(r.MinLat, 0), r.MaxLat, spatial.North})
	}

	lons := [][2]float64{{r.MinLon, r.MaxLon}}
	if r.CrossesAntimeridian() {
		lons = [][2]float64{{r.MinLon, spatial.MaxLongitude}, {spatial.MinLongitude, r.MaxLon}}
	}

	var out []Sector
	for _, la := range lats {
		for _, lo := range lons {
			for i, qs := range quadrantSpans {
				last := i == len(quadrantSpans)-1
				if lo[0] > qs.hi || lo[1] < qs.lo || (!last && lo[0] == qs.hi) {
					continue
				}
				out = append(out, Sector{
					Rect: spatial.Rect{
						MinLat: la.lo,
						MaxLat: la.hi,
						MinLon: math.Max(lo[0], qs.lo),
						MaxLon: math.Min(lo[1], qs.hi),
					},
					Hemisphere: la.h,
					Quadrant:   qs.q,
				})
			}
		}
	}
	return out
}

func samples(span float64) int {
	n := int(math.Ceil(math.Abs(span) / sampleStep))
	return min(max(n, minSamples), maxSamples)
}

// outline projects the border of s and returns its bounding box in the
// unit square, padded by the longest gap between two samples.
func outline(s Sector) (x0, y0, x1, y1 float64) {
	r := s.Rect
	x0, y0 = math.Inf(1), math.Inf(1)
	x1, y1 = math.Inf(-1), math.Inf(-1)
	var (
		prev    spatial.Point2D
		started bool
		gap     float64
	)
	add := func(lat, lon float64) {
		p := spatial.ProjectGlobeIn(spatial.Point{Latitude: lat, Longitude: lon}, s.Hemisphere, s.Quadrant)
		x0, x1 = math.Min(x0, p.X), math.Max(x1, p.X)
		y0, y1 = math.Min(y0, p.Y), math.Max(y1, p.Y)
		if started {
			gap = math.Max(gap, math.Hypot(p.X-prev.X, p.Y-prev.Y))
		}
		prev, started = p, true
	}

	nLon, nLat := samples(r.MaxLon-r.MinLon), samples(r.MaxLat-r.MinLat)
	for i := 0; i <= nLon; i++ {
		add(r.MinLat, r.MinLon+(r.MaxLon-r.MinLon)*float64(i)/float64(nLon))
	}
	for i := 1; i <= nLat; i++ {
		add(r.MinLat+(r.MaxLat-r.MinLat)*float64(i)/float64(nLat), r.MaxLon)
	}
	for i := 1; i <= nLon; i++ {
		add(r.MaxLat, r.MaxLon-(r.MaxLon-r.MinLon)*float64(i)/float64(nLon))
	}
	for i := 1; i <= nLat; i++ {
		add(r.MaxLat-(r.MaxLat-r.MinLat)*float64(i)/float64(nLat), r.MinLon)
	}

	pad := gap + 1e-9
	return x0 - pad, y0 - pad, x1 + pad, y1 + pad
}

func pixel(v float64, res int) int {
	return min(max(int(math.Floor(v*float64(res))), 0), res-1)
}

// raster adds the cells of the box at the finest depth whose cell count
// fits the budget.
func raster(ic *cellset.IntervalCell, x0, y0, x1, y1 float64, o Options) int {
	full := o.Grid.Resolution()
	depth := spatial.MaxDepth
	for ; depth > 1; depth-- {
		res := o.Grid.ResolutionAt(depth)
		nx := pixel(x1, res) - pixel(x0, res) + 1
		ny := pixel(y1, res) - pixel(y0, res) + 1
		if nx*ny <= o.MaxCells {
			break
		}
	}
	res := o.Grid.ResolutionAt(depth)
	div := full / res
	for x := pixel(x0, res); x <= pixel(x1, res); x++ {
		for y := pixel(y0, res); y <= pixel(y1, res); y++ {
			ic.Insert(spatial.CellFromXY(x*div, y*div, o.Grid).Parent(depth))
		}
	}
	return depth
}

// Rect covers a latitude/longitude box.
func Rect(r spatial.Rect, opts Options) (*cellset.IntervalCell, error) {
	if err := r.Check(); err != nil {
		return nil, err
	}
	o := opts.norm()
	if err := o.Grid.Validate(); err != nil {
		return nil, err
	}
	ic := cellset.NewGridIntervalCell(o.Grid)
	for _, s := range Sectors(r) {
		x0, y0, x1, y1 := outline(s)
		depth := raster(ic, x0, y0, x1, y1, o)
		slog.Debug("cover.sector",
			"hemisphere", s.Hemisphere,
			"quadrant", s.Quadrant,
			"depth", depth,
		)
	}
	slog.Debug("cover.rect", "rect", r, "leaves", ic.Size())
	return ic, nil
}

// Range covers the circle of radius meters around center.
func Range(center spatial.Point, meters float64, opts Options) (*cellset.IntervalCell, error) {
	if err := center.Check(); err != nil {
		return nil, err
	}
	if meters < 0 || math.IsNaN(meters) || math.IsInf(meters, 0) {
		return nil, fmt.Errorf("%w: radius %v", spatial.ErrInvalidPoint, meters)
	}
	return Rect(spatial.RangeRect(center, meters), opts)
}

// Polygon covers the bounding box of ring.
func Polygon(ring []spatial.Point, opts Options) (*cellset.IntervalCell, error) {
	r, err := spatial.RingRect(ring)
	if err != nil {
		return nil, err
	}
	return Rect(r, opts)
}

// Point covers a single point with its leaf cell.
func Point(p spatial.Point, opts Options) (*cellset.IntervalCell, error) {
	o := opts.norm()
	c, err := spatial.MakeCell(p, o.Grid)
	if err != nil {
		return nil, err
	}
	ic := cellset.NewGridIntervalCell(o.Grid)
	ic.Insert(c)
	return ic, nil
}
