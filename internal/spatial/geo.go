package spatial

import (
	"fmt"
	"math"
)

// EarthRadius is the mean radius in meters used by all distance math.
const EarthRadius = 6371000.0

// Haversine returns the great circle distance in meters.
func Haversine(p1, p2 Point) float64 {
	return HaversineWithRadius(p1, p2, EarthRadius)
}

func HaversineWithRadius(p1, p2 Point, radius float64) float64 {
	dlon := degToRad * (p2.Longitude - p1.Longitude)
	dlat := degToRad * (p2.Latitude - p1.Latitude)
	sinLat := math.Sin(dlat * 0.5)
	sinLon := math.Sin(dlon * 0.5)
	a := sinLat*sinLat + math.Cos(degToRad*p1.Latitude)*math.Cos(degToRad*p2.Latitude)*sinLon*sinLon
	return 2 * math.Asin(math.Min(1, math.Sqrt(a))) * radius
}

// Destination travels distance meters from p along the great circle with
// the given initial bearing (degrees clockwise from north).
func Destination(p Point, distance, bearing float64) Point {
	if distance <= 0 {
		return p
	}
	dist := distance / EarthRadius
	brng := bearing * degToRad
	lat1 := p.Latitude * degToRad
	lon1 := p.Longitude * degToRad
	lat2 := math.Asin(math.Sin(lat1)*math.Cos(dist) + math.Cos(lat1)*math.Sin(dist)*math.Cos(brng))
	x := math.Cos(dist) - math.Sin(lat1)*math.Sin(lat2)
	y := math.Sin(brng) * math.Sin(dist) * math.Cos(lat1)
	lon2 := lon1 + fatan2(y, x)

	dest := Point{Latitude: NormLatitude(lat2 * radToDeg)}
	if p.IsPole() {
		dest.Longitude = NormLongitude(bearing)
	} else {
		dest.Longitude = NormLongitude(lon2 * radToDeg)
	}
	return dest
}

// Rect is a latitude/longitude box. MinLon > MaxLon means the box crosses
// the ±180 meridian.
type Rect struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

func (r Rect) Valid() bool {
	return r.MinLat <= r.MaxLat &&
		ValidLatitude(r.MinLat) && ValidLatitude(r.MaxLat) &&
		ValidLongitude(r.MinLon) && ValidLongitude(r.MaxLon)
}

func (r Rect) Check() error {
	if !r.Valid() {
		return fmt.Errorf("%w: rect %+v", ErrInvalidPoint, r)
	}
	return nil
}

// CrossesAntimeridian reports whether the box wraps over ±180.
func (r Rect) CrossesAntimeridian() bool { return r.MinLon > r.MaxLon }

// Contains reports whether p is inside the box, borders included.
func (r Rect) Contains(p Point) bool {
	if p.Latitude < r.MinLat || p.Latitude > r.MaxLat {
		return false
	}
	if r.CrossesAntimeridian() {
		return p.Longitude >= r.MinLon || p.Longitude <= r.MaxLon
	}
	return p.Longitude >= r.MinLon && p.Longitude <= r.MaxLon
}

// rangePad absorbs rounding so that points computed by Destination stay inside.
const rangePad = 1e-9

// RangeRect bounds the circle of radius meters around center. Circles that
// reach a pole get the full longitude span.
func RangeRect(center Point, radius float64) Rect {
	if radius <= 0 {
		return Rect{center.Latitude, center.Longitude, center.Latitude, center.Longitude}
	}
	delta := radius / EarthRadius
	dlat := delta*radToDeg + rangePad
	r := Rect{
		MinLat: center.Latitude - dlat,
		MaxLat: center.Latitude + dlat,
	}
	if r.MaxLat >= MaxLatitude || r.MinLat <= MinLatitude || delta >= math.Pi/2 {
		r.MinLat = math.Max(r.MinLat, MinLatitude)
		r.MaxLat = math.Min(r.MaxLat, MaxLatitude)
		r.MinLon, r.MaxLon = MinLongitude, MaxLongitude
		return r
	}
	s := math.Sin(delta) / math.Cos(center.Latitude*degToRad)
	if s >= 1 {
		r.MinLon, r.MaxLon = MinLongitude, MaxLongitude
		return r
	}
	dlon := math.Asin(s)*radToDeg + rangePad
	if dlon >= 180 {
		r.MinLon, r.MaxLon = MinLongitude, MaxLongitude
		return r
	}
	r.MinLon = NormLongitude(center.Longitude - dlon)
	r.MaxLon = NormLongitude(center.Longitude + dlon)
	return r
}

// RingRect bounds a ring of at least three valid vertices. Rings are plain
// latitude/longitude polygons and never wrap over ±180.
func RingRect(ring []Point) (Rect, error) {
	if len(ring) < 3 {
		return Rect{}, fmt.Errorf("%w: ring needs 3 vertices, got %d", ErrInvalidPoint, len(ring))
	}
	r := Rect{
		MinLat: math.Inf(1), MinLon: math.Inf(1),
		MaxLat: math.Inf(-1), MaxLon: math.Inf(-1),
	}
	for i, p := range ring {
		if err := p.Check(); err != nil {
			return Rect{}, fmt.Errorf("ring vertex %d: %w", i, err)
		}
		r.MinLat = math.Min(r.MinLat, p.Latitude)
		r.MinLon = math.Min(r.MinLon, p.Longitude)
		r.MaxLat = math.Max(r.MaxLat, p.Latitude)
		r.MaxLon = math.Max(r.MaxLon, p.Longitude)
	}
	return r, nil
}

// RingContains is an even-odd test of p against a closed ring given in
// degrees (the closing vertex may be omitted).
func RingContains(ring []Point, p Point) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a.Latitude > p.Latitude) != (b.Latitude > p.Latitude) {
			x := (b.Longitude-a.Longitude)*(p.Latitude-a.Latitude)/(b.Latitude-a.Latitude) + a.Longitude
			if p.Longitude < x {
				inside = !inside
			}
		}
	}
	return inside
}
