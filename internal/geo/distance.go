package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

// EarthRadiusKm is Earth's mean radius.
const EarthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two points in km.
func DistanceKm(a, b Point) float64 {
	p1 := s2.LatLngFromDegrees(a.Latitude, a.Longitude)
	p2 := s2.LatLngFromDegrees(b.Latitude, b.Longitude)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// Offset returns the point reached by travelling distanceKm from p along
// the given initial bearing (degrees clockwise from north).
func Offset(p Point, bearingDeg, distanceKm float64) Point {
	bearing := bearingDeg * math.Pi / 180
	angular := distanceKm / EarthRadiusKm

	lat := p.Latitude * math.Pi / 180
	lon := p.Longitude * math.Pi / 180

	lat2 := math.Asin(math.Sin(lat)*math.Cos(angular) +
		math.Cos(lat)*math.Sin(angular)*math.Cos(bearing))

	lon2 := lon + math.Atan2(
		math.Sin(bearing)*math.Sin(angular)*math.Cos(lat),
		math.Cos(angular)-math.Sin(lat)*math.Sin(lat2))

	return Point{
		Latitude:  lat2 * 180 / math.Pi,
		Longitude: math.Mod(lon2*180/math.Pi+540, 360) - 180,
	}
}

// OppositeBearing flips a bearing by 180 degrees, normalized to [0, 360).
func OppositeBearing(bearingDeg float64) float64 {
	return math.Mod(bearingDeg+180, 360)
}
