package spatial

import (
	"errors"
	"fmt"
	"math"
)

const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0

	// Epsilon is the tolerance used when comparing coordinates.
	Epsilon = 1e-12
)

var ErrInvalidPoint = errors.New("spatial: invalid point")

// Point is a position on the globe in degrees.
type Point struct {
	Latitude  float64 `json:"lat" yaml:"lat"`
	Longitude float64 `json:"lon" yaml:"lon"`
}

// Point2D is a position inside the unit square produced by ProjectGlobe.
type Point2D struct {
	X float64
	Y float64
}

type point3D struct {
	X, Y, Z float64
}

func inRange(v, lo, hi float64) bool {
	return v >= lo-Epsilon && v <= hi+Epsilon
}

func ValidLatitude(v float64) bool  { return inRange(v, MinLatitude, MaxLatitude) }
func ValidLongitude(v float64) bool { return inRange(v, MinLongitude, MaxLongitude) }

func (p Point) Valid() bool {
	return ValidLatitude(p.Latitude) && ValidLongitude(p.Longitude)
}

// Check returns ErrInvalidPoint wrapped with the offending coordinates.
func (p Point) Check() error {
	if !p.Valid() {
		return fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidPoint, p.Latitude, p.Longitude)
	}
	return nil
}

func (p Point) Equal(o Point) bool {
	return floatEqual(p.Latitude, o.Latitude) && floatEqual(p.Longitude, o.Longitude)
}

func (p Point) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", p.Latitude, p.Longitude)
}

// IsPole reports whether the point sits on either pole.
func (p Point) IsPole() bool {
	return LatitudePole(p.Latitude)
}

func LatitudePole(lat float64) bool {
	if lat > 0 {
		return floatEqual(lat, MaxLatitude)
	}
	return floatEqual(lat, MinLatitude)
}

// NormLongitude wraps x around the ±180 meridian.
func NormLongitude(x float64) float64 {
	for x > MaxLongitude {
		x -= 360
	}
	for x < MinLongitude {
		x += 360
	}
	return x
}

// NormLatitude wraps x over the poles into [-90, 90].
func NormLatitude(x float64) float64 {
	for x > 180 {
		x -= 360
	}
	for x < -180 {
		x += 360
	}
	if x > MaxLatitude {
		x = 180 - x
	} else if x < MinLatitude {
		x = -180 - x
	}
	return x
}

// Normalize wraps both coordinates into their valid ranges.
func (p Point) Normalize() Point {
	return Point{Latitude: NormLatitude(p.Latitude), Longitude: NormLongitude(p.Longitude)}
}

func floatEqual(a, b float64) bool {
	return math.Abs(a-b) <= Epsilon
}

// atan2 that treats a vector shorter than Epsilon as angle zero.
func fatan2(y, x float64) float64 {
	if math.Abs(y) <= Epsilon && math.Abs(x) <= Epsilon {
		return 0
	}
	return math.Atan2(y, x)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func dot(a, b point3D) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

func sub(a, b point3D) point3D { return point3D{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }

func add(a, b point3D) point3D { return point3D{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }

func scale3(a point3D, f float64) point3D { return point3D{a.X * f, a.Y * f, a.Z * f} }

func length(a point3D) float64 { return math.Sqrt(dot(a, a)) }

func normalize(a point3D) point3D { return scale3(a, 1/length(a)) }
