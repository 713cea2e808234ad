package spatial

import "math"

// Quadrant is a 90 degree longitude sector; quadrant 0 is centred on the
// prime meridian and numbering goes east.
type Quadrant int

const (
	Q0 Quadrant = iota
	Q1
	Q2
	Q3
)

type Hemisphere int

const (
	North Hemisphere = iota
	South
)

const (
	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi
)

var atanHalf = math.Atan(0.5)

// face x+y+z=1 of the octahedron and its 2D basis
var (
	e1      = point3D{1, 0, 0}
	e2      = point3D{0, 1, 0}
	e3      = point3D{0, 0, 1}
	faceN   = normalize(point3D{1, 1, 1})
	faceMid = point3D{0.5, 0.5, 0}
	facePX  = normalize(sub(e2, e1))
	facePY  = normalize(sub(e3, faceMid))
	faceLX  = length(sub(e2, e1))
	faceLY  = length(sub(e3, faceMid))

	scaleEven = Point2D{0.5 / faceLX, 0.5 / faceLY}
	scaleOdd  = Point2D{1 / faceLX, 0.25 / faceLY}
)

func LatitudeHemisphere(lat float64) Hemisphere {
	if lat >= 0 {
		return North
	}
	return South
}

func LongitudeQuadrant(lon float64) Quadrant {
	if lon >= 0 {
		if lon < 45 {
			return Q0
		}
		if lon < 135 {
			return Q1
		}
	} else {
		if lon >= -45 {
			return Q0
		}
		if lon >= -135 {
			return Q3
		}
	}
	return Q2
}

// LongitudeMeridian measures lon from the west edge of quadrant q, in [0, 90].
func LongitudeMeridian(lon float64, q Quadrant) float64 {
	if lon >= 0 {
		switch q {
		case Q0:
			return lon + 45
		case Q1:
			return lon - 45
		default:
			return lon - 135
		}
	}
	switch q {
	case Q0:
		return lon + 45
	case Q3:
		return lon + 135
	default:
		return lon + 225
	}
}

// ReverseLongitudeMeridian is the inverse of LongitudeMeridian.
func ReverseLongitudeMeridian(x float64, q Quadrant) float64 {
	switch q {
	case Q0:
		return x - 45
	case Q1:
		return x + 45
	case Q2:
		if x <= 45 {
			return x + 135
		}
		return x - 225
	default:
		return x - 135
	}
}

func cartesian(lat, lon float64) point3D {
	l := math.Cos(lat * degToRad)
	return point3D{
		X: l * math.Cos(lon*degToRad),
		Y: l * math.Sin(lon*degToRad),
		Z: math.Sin(lat * degToRad),
	}
}

func reverseCartesian(p point3D) Point {
	var s Point
	switch {
	case p.Z >= 1-Epsilon:
		s.Latitude = MaxLatitude
	case p.Z <= -1+Epsilon:
		s.Latitude = MinLatitude
	default:
		s.Latitude = math.Asin(p.Z) * radToDeg
	}
	s.Longitude = fatan2(p.Y, p.X) * radToDeg
	return s
}

// LinePlaneIntersect intersects the ray from the globe centre through
// (lat, meridian) with the plane x+y+z=1. Both angles are in [0, 90].
func LinePlaneIntersect(lat, meridian float64) (x, y, z float64) {
	p := linePlaneIntersect(lat, meridian)
	return p.X, p.Y, p.Z
}

func linePlaneIntersect(lat, meridian float64) point3D {
	ray := cartesian(lat, meridian)
	nu := dot(ray, faceN)
	return scale3(ray, faceN.X/nu)
}

// ScalePlaneIntersect maps a point of the face onto the quadrant's part of
// the unit square.
func ScalePlaneIntersect(x, y, z float64, q Quadrant, h Hemisphere) Point2D {
	return scalePlaneIntersect(point3D{x, y, z}, q, h)
}

func scalePlaneIntersect(p3 point3D, q Quadrant, h Hemisphere) Point2D {
	v3 := sub(p3, e1)
	p2 := Point2D{dot(v3, facePX), dot(v3, facePY)}
	if q&1 != 0 {
		p2.X *= scaleOdd.X
		p2.Y *= scaleOdd.Y
	} else {
		p2.X *= scaleEven.X
		p2.Y *= scaleEven.Y
	}

	var ret Point2D
	if h == North {
		switch q {
		case Q0:
			ret = Point2D{1 - p2.Y, 0.5 + p2.X}
		case Q1:
			ret = Point2D{1 - p2.X, 1 - p2.Y}
		case Q2:
			ret = Point2D{p2.Y, 1 - p2.X}
		default:
			ret = Point2D{p2.X, 0.5 + p2.Y}
		}
	} else {
		switch q {
		case Q0:
			ret = Point2D{1 - p2.Y, 0.5 - p2.X}
		case Q1:
			ret = Point2D{1 - p2.X, p2.Y}
		case Q2:
			ret = Point2D{p2.Y, p2.X}
		default:
			ret = Point2D{p2.X, 0.5 - p2.Y}
		}
	}
	return Point2D{clamp01(ret.X), clamp01(ret.Y)}
}

// ProjectGlobe maps a valid point onto the unit square.
func ProjectGlobe(p Point) Point2D {
	return ProjectGlobeIn(p, LatitudeHemisphere(p.Latitude), LongitudeQuadrant(p.Longitude))
}

// ProjectGlobeIn projects p as if it belonged to sector (h, q). Points on a
// sector border project onto the border of that sector's area; the covering
// code relies on it to keep a sector's samples together.
func ProjectGlobeIn(p Point, h Hemisphere, q Quadrant) Point2D {
	meridian := math.Min(math.Max(LongitudeMeridian(p.Longitude, q), 0), 90)
	lat := p.Latitude
	if h == South {
		lat = -lat
	}
	lat = math.Min(math.Max(lat, 0), MaxLatitude)
	return scalePlaneIntersect(linePlaneIntersect(lat, meridian), q, h)
}

func PointHemisphere(p Point2D) Hemisphere {
	if p.Y >= 0.5 {
		return North
	}
	return South
}

// PointQuadrant finds the quadrant of a unit-square point by its angle
// around the hemisphere's pole.
func PointQuadrant(p Point2D) Quadrant {
	north := p.Y >= 0.5
	poleY := 0.25
	if north {
		poleY = 0.75
	}
	arg := math.Atan2(p.Y-poleY, p.X-0.5)
	if !north {
		arg = -arg
	}
	if arg >= 0 {
		if arg <= atanHalf {
			return Q0
		}
		if arg <= math.Pi-atanHalf {
			return Q1
		}
	} else {
		if arg >= -atanHalf {
			return Q0
		}
		if arg >= atanHalf-math.Pi {
			return Q3
		}
	}
	return Q2
}

func reverseScalePlaneIntersect(ret Point2D, q Quadrant, h Hemisphere) point3D {
	var p2 Point2D
	if h == North {
		switch q {
		case Q0:
			p2 = Point2D{ret.Y - 0.5, 1 - ret.X}
		case Q1:
			p2 = Point2D{1 - ret.X, 1 - ret.Y}
		case Q2:
			p2 = Point2D{1 - ret.Y, ret.X}
		default:
			p2 = Point2D{ret.X, ret.Y - 0.5}
		}
	} else {
		switch q {
		case Q0:
			p2 = Point2D{0.5 - ret.Y, 1 - ret.X}
		case Q1:
			p2 = Point2D{1 - ret.X, ret.Y}
		case Q2:
			p2 = Point2D{ret.Y, ret.X}
		default:
			p2 = Point2D{ret.X, 0.5 - ret.Y}
		}
	}
	if q&1 != 0 {
		p2.X /= scaleOdd.X
		p2.Y /= scaleOdd.Y
	} else {
		p2.X /= scaleEven.X
		p2.Y /= scaleEven.Y
	}
	return add(e1, add(scale3(facePX, p2.X), scale3(facePY, p2.Y)))
}

// ReverseProjectGlobe maps a unit-square point back onto the globe.
func ReverseProjectGlobe(p Point2D) Point {
	q := PointQuadrant(p)
	h := PointHemisphere(p)
	ret := reverseCartesian(normalize(reverseScalePlaneIntersect(p, q, h)))
	if h == South {
		ret.Latitude = -ret.Latitude
	}
	if floatEqual(math.Abs(ret.Latitude), MaxLatitude) {
		ret.Longitude = 0
	} else {
		ret.Longitude = ReverseLongitudeMeridian(ret.Longitude, q)
	}
	return ret
}
