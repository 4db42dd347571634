package geo

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var paris = Point{Lat: 48.8566, Lng: 2.3522}

// destination returns the point reached from p after distanceKm along bearing (radians).
func destination(p Point, bearing, distanceKm float64) Point {
	lat1 := toRadians(p.Lat)
	lng1 := toRadians(p.Lng)
	d := distanceKm / EarthRadiusKm

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(bearing))
	lng2 := lng1 + math.Atan2(
		math.Sin(bearing)*math.Sin(d)*math.Cos(lat1),
		math.Cos(d)-math.Sin(lat1)*math.Sin(lat2),
	)

	return Point{Lat: lat2 * 180 / math.Pi, Lng: lng2 * 180 / math.Pi}
}

// lngExtremes returns the points of the circle with the largest and smallest
// longitude. They sit poleward of the center, not due east and west.
func lngExtremes(c Point, radiusKm float64) (east, west Point) {
	d := radiusKm / EarthRadiusKm
	phi := toRadians(c.Lat)
	lat := math.Asin(math.Sin(phi)/math.Cos(d)) * 180 / math.Pi
	dLng := math.Asin(math.Sin(d)/math.Cos(phi)) * 180 / math.Pi
	return Point{Lat: lat, Lng: c.Lng + dLng}, Point{Lat: lat, Lng: c.Lng - dLng}
}

func randomPoint(r *rand.Rand, center Point, maxKm float64) Point {
	return destination(center, r.Float64()*2*math.Pi, r.Float64()*maxKm)
}

func TestDistanceKmKnownValues(t *testing.T) {
	lyon := Point{Lat: 45.7640, Lng: 4.8357}

	assert.InDelta(t, 391.5, Distance(paris, lyon), 2.0)
	assert.InDelta(t, 111.19, DistanceKm(0, 0, 1, 0), 0.01)
	assert.Zero(t, Distance(paris, paris))
}

func TestDistanceKmSymmetryAndIdentity(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		a := Point{Lat: r.Float64()*170 - 85, Lng: r.Float64()*360 - 180}
		b := Point{Lat: r.Float64()*170 - 85, Lng: r.Float64()*360 - 180}

		assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-9)
		assert.Zero(t, Distance(a, a))
		assert.GreaterOrEqual(t, Distance(a, b), 0.0)
	}
}

func TestDistanceKmTriangleInequality(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		a := randomPoint(r, paris, 300)
		b := randomPoint(r, paris, 300)
		c := randomPoint(r, paris, 300)

		assert.LessOrEqual(t, Distance(a, c), Distance(a, b)+Distance(b, c)+1e-9)
	}
}

func TestDistanceKmNaNPropagates(t *testing.T) {
	assert.True(t, math.IsNaN(DistanceKm(math.NaN(), 0, 0, 0)))
}

func TestBoundingBoxDeltas(t *testing.T) {
	box := BoundingBox(0, 0, 111)

	assert.InDelta(t, -1.0, box.MinLat, 1e-9)
	assert.InDelta(t, 1.0, box.MaxLat, 1e-9)
	assert.InDelta(t, -1.0, box.MinLng, 1e-9)
	assert.InDelta(t, 1.0, box.MaxLng, 1e-9)

	// meridians converge, so the longitude span widens with latitude
	north := BoundingBox(60, 0, 111)
	assert.InDelta(t, 2.0, north.MaxLng, 1e-9)
	assert.InDelta(t, 1.0, north.MaxLat-60, 1e-9)
}

func TestBoundingBoxIsSupersetOfCircle(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	centers := []Point{paris, {Lat: -33.87, Lng: 151.21}, {Lat: 64.14, Lng: -21.94}, {Lat: 0, Lng: 0}}

	for _, center := range centers {
		for _, radius := range []float64{0.5, 5, 20, 80} {
			box := BoundingBox(center.Lat, center.Lng, radius)
			for i := 0; i < 300; i++ {
				p := randomPoint(r, center, radius)
				require.LessOrEqual(t, Distance(center, p), radius+1e-9)
				assert.Truef(t, box.Contains(p.Lat, p.Lng),
					"point %+v at %.3fkm outside box %+v", p, Distance(center, p), box)
			}
			// latitude extremes lie due north and south
			for _, bearing := range []float64{0, math.Pi} {
				p := destination(center, bearing, radius)
				assert.True(t, box.Contains(p.Lat, p.Lng))
			}
			east, west := lngExtremes(center, radius)
			require.InDelta(t, radius, Distance(center, east), 1e-6)
			assert.Truef(t, box.Contains(east.Lat, east.Lng), "east extreme %+v outside box %+v", east, box)
			assert.Truef(t, box.Contains(west.Lat, west.Lng), "west extreme %+v outside box %+v", west, box)
		}
	}
}

func TestBoundingBoxMissesLongitudeExtremeAtLargeRadius(t *testing.T) {
	center := Point{Lat: 60, Lng: 0}
	box := BoundingBox(center.Lat, center.Lng, 500)

	east, _ := lngExtremes(center, 500)
	require.InDelta(t, 500, Distance(center, east), 1e-6)
	assert.Greater(t, east.Lng, box.MaxLng)
	assert.False(t, box.Contains(east.Lat, east.Lng))
}

func TestBoxContainsIsInclusive(t *testing.T) {
	box := Box{MinLat: 1, MaxLat: 2, MinLng: 3, MaxLng: 4}

	assert.True(t, box.Contains(1, 3))
	assert.True(t, box.Contains(2, 4))
	assert.False(t, box.Contains(2.0001, 4))
	assert.False(t, box.Contains(1.5, 2.9999))
}

func TestPointValid(t *testing.T) {
	assert.True(t, paris.Valid())
	assert.True(t, Point{Lat: -90, Lng: 180}.Valid())
	assert.False(t, Point{Lat: 91, Lng: 0}.Valid())
	assert.False(t, Point{Lat: 0, Lng: -180.5}.Valid())
	assert.False(t, Point{Lat: math.NaN(), Lng: 0}.Valid())
}
