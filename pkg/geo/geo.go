// Package geo holds the great-circle helpers used by market search.
package geo

import "math"

const (
	// EarthRadiusKm is the mean Earth radius used by the haversine formula.
	EarthRadiusKm = 6371.0
	// KmPerDegreeLat approximates the length of one degree of latitude.
	KmPerDegreeLat = 111.0
)

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Box is an axis-aligned lat/lng rectangle in degrees.
type Box struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLng float64 `json:"minLng"`
	MaxLng float64 `json:"maxLng"`
}

// DistanceKm returns the haversine distance between two points in kilometers.
// Inputs are not validated; NaN propagates.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// Distance is DistanceKm for two Points.
func Distance(a, b Point) float64 {
	return DistanceKm(a.Lat, a.Lng, b.Lat, b.Lng)
}

// BoundingBox returns a rectangle that contains every point within radiusKm
// of the center. It is a loose pre-filter; callers must still apply an exact
// distance check.
//
// The longitude seam at ±180° is not wrapped and the box degenerates near the
// poles, where cos(lat) reaches zero. Markets never sit there.
//
// The longitude delta r/(111·cos lat) is also only a superset while the radius
// is small. The circle's true longitude extent is asin(sin(r/R)/cos lat), reached
// poleward of the center, and it outgrows the delta at large radii or high
// latitudes: at 60°N a 500 km circle pokes about 0.012° past the box. Up to
// 100 km below 65° the 111 km/degree constant leaves enough slack.
func BoundingBox(centerLat, centerLng, radiusKm float64) Box {
	latDelta := radiusKm / KmPerDegreeLat
	lngDelta := radiusKm / (KmPerDegreeLat * math.Cos(toRadians(centerLat)))

	return Box{
		MinLat: centerLat - latDelta,
		MaxLat: centerLat + latDelta,
		MinLng: centerLng - lngDelta,
		MaxLng: centerLng + lngDelta,
	}
}

// Contains reports whether (lat, lng) lies inside the box, edges included.
func (b Box) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat &&
		lng >= b.MinLng && lng <= b.MaxLng
}

// Valid reports whether p is within the WGS84 latitude/longitude ranges.
func (p Point) Valid() bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lng) &&
		p.Lat >= -90 && p.Lat <= 90 &&
		p.Lng >= -180 && p.Lng <= 180
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
