package physics

import (
	"math"
	"time"

	"github.com/atmoscast/atmoscast/internal/geo"
)

// minPBLHeight floors the boundary layer at 300 m so a collapsed nocturnal
// layer cannot amplify surface estimates without bound.
const minPBLHeight = 300

// minFireDistanceKm floors plume distances so a fire sitting on top of a
// cell cannot divide by zero.
const minFireDistanceKm = 0.1

// DiurnalFactor is the step multiplier for traffic-driven NO2 cycles:
// morning rush boosts, midday photolysis suppresses, evening rush boosts.
func DiurnalFactor(localHour int) float64 {
	switch {
	case localHour >= 6 && localHour < 10:
		return 1.15
	case localHour >= 10 && localHour < 16:
		return 0.85
	case localHour >= 16 && localHour < 20:
		return 1.10
	default:
		return 1.0
	}
}

// SurfaceFromColumn converts a satellite column density to a ground-level
// concentration estimate. The boundary layer dilutes by square root, not
// linearly. A missing column propagates to a missing surface value.
func SurfaceFromColumn(column *float64, pblHeight float64, f Factors, localHour int) *float64 {
	if column == nil {
		return nil
	}

	pbl := math.Max(pblHeight, minPBLHeight)
	surface := *column * f.NO2ColumnToSurface *
		math.Sqrt(f.PBLReference/pbl) *
		DiurnalFactor(localHour)
	return &surface
}

// Fire is a single satellite fire detection.
type Fire struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	FRP        float64   `json:"frp"`
	AcquiredAt time.Time `json:"acquired_at"`
	Confidence string    `json:"confidence"`
}

// Point returns the detection's location.
func (f *Fire) Point() geo.Point {
	return geo.Point{Latitude: f.Latitude, Longitude: f.Longitude}
}

// FireImpact sums the distance-decayed radiative power of all fires as
// seen from at. No fires is a valid state contributing zero.
func FireImpact(fires []Fire, at geo.Point, f Factors) float64 {
	var sum float64
	for i := range fires {
		d := math.Max(geo.DistanceKm(at, fires[i].Point()), minFireDistanceKm)
		sum += fires[i].FRP / math.Pow(d, f.FireDistanceDecay)
	}
	return sum * f.FireFRPScaling
}

// Washout returns the multiplicative attenuation from precipitation
// scavenging, always in (0, 1] and exactly 1 when dry.
func Washout(precipitationMM float64, f Factors) float64 {
	if precipitationMM <= 0 {
		return 1.0
	}
	return math.Exp(-precipitationMM * f.WashoutRate)
}
