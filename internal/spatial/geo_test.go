package spatial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormLongitudeLatitude(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0}, {180, 180}, {-180, -180}, {-270, 90}, {270, -90}, {630, -90},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, NormLongitude(tc.in), 1e-12, "lon %v", tc.in)
	}
	lat := []struct{ in, want float64 }{
		{0, 0}, {-90, -90}, {90, 90}, {100, 80}, {460, 80}, {-100, -80}, {-460, -80}, {260, -80},
	}
	for _, tc := range lat {
		assert.InDelta(t, tc.want, NormLatitude(tc.in), 1e-12, "lat %v", tc.in)
	}
}

func TestHaversine(t *testing.T) {
	p1 := Point{}
	p2 := Point{Latitude: 45}
	require.InDelta(t, 45*degToRad*EarthRadius, Haversine(p1, p2), 1e-6)

	p2 = Point{Latitude: 90}
	require.InDelta(t, math.Pi/2*EarthRadius, Haversine(p1, p2), 1e-6)

	require.Zero(t, Haversine(p1, p1))
	a := Point{Latitude: 55.7975, Longitude: 49.2194}
	b := Point{Latitude: 48.7139, Longitude: 44.4984}
	require.InDelta(t, Haversine(a, b), Haversine(b, a), 1e-9)
}

func TestDestination(t *testing.T) {
	quarter := EarthRadius * math.Pi / 2
	half := quarter / 2
	origin := Point{}

	cases := []struct {
		dist, bearing float64
		want          Point
	}{
		{quarter, 0, Point{90, 0}},
		{quarter, 360, Point{90, 0}},
		{half, 0, Point{45, 0}},
		{half, 90, Point{0, 45}},
		{half, 180, Point{-45, 0}},
		{half, 270, Point{0, -45}},
	}
	for _, tc := range cases {
		got := Destination(origin, tc.dist, tc.bearing)
		assert.InDelta(t, tc.want.Latitude, got.Latitude, 1e-9, "%+v", tc)
		assert.InDelta(t, tc.want.Longitude, got.Longitude, 1e-9, "%+v", tc)
	}
	require.Equal(t, origin, Destination(origin, 0, 45))
}

func TestRangeRect(t *testing.T) {
	center := Point{Latitude: 48.7139, Longitude: 44.4984}
	r := RangeRect(center, 10000)
	require.True(t, r.Valid())
	require.False(t, r.CrossesAntimeridian())
	require.True(t, r.Contains(center))

	// every point on the circle lies in the box
	for b := 0.0; b < 360; b += 5 {
		p := Destination(center, 10000, b)
		require.True(t, r.Contains(p), "bearing %v -> %v", b, p)
	}

	wrap := RangeRect(Point{Latitude: 0, Longitude: 179.9}, 50000)
	require.True(t, wrap.CrossesAntimeridian())
	require.True(t, wrap.Contains(Point{Latitude: 0, Longitude: -179.9}))

	polar := RangeRect(Point{Latitude: 89.9, Longitude: 10}, 50000)
	require.Equal(t, MinLongitude, polar.MinLon)
	require.Equal(t, MaxLongitude, polar.MaxLon)
	require.Equal(t, MaxLatitude, polar.MaxLat)
}

func TestRingContainsAndRect(t *testing.T) {
	ring := []Point{{0, 0}, {0, 10}, {10, 10}, {10, 0}}
	require.True(t, RingContains(ring, Point{5, 5}))
	require.False(t, RingContains(ring, Point{15, 5}))
	require.False(t, RingContains(ring[:2], Point{5, 5}))

	// concave: the notch between the two arms is outside
	u := []Point{{0, 0}, {10, 0}, {10, 3}, {2, 3}, {2, 7}, {10, 7}, {10, 10}, {0, 10}}
	require.True(t, RingContains(u, Point{1, 5}))
	require.False(t, RingContains(u, Point{5, 5}))
	require.True(t, RingContains(u, Point{5, 8}))

	r, err := RingRect(u)
	require.NoError(t, err)
	require.Equal(t, Rect{MinLat: 0, MinLon: 0, MaxLat: 10, MaxLon: 10}, r)

	_, err = RingRect(ring[:2])
	require.ErrorIs(t, err, ErrInvalidPoint)
	_, err = RingRect([]Point{{0, 0}, {0, 1}, {95, 1}})
	require.ErrorIs(t, err, ErrInvalidPoint)
}
