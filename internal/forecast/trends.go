// Package forecast propagates pollutant grids forward in time: a temporal
// trend analyzer over the look-back window, a wind-driven transport
// operator, and an orchestrator that sequences transport across horizons.
package forecast

import (
	"github.com/atmoscast/atmoscast/internal/geo"
	"github.com/atmoscast/atmoscast/internal/grid"
	"github.com/atmoscast/atmoscast/internal/meteo"
	"github.com/atmoscast/atmoscast/internal/physics"
)

// Trends summarizes the recent history feeding a forecast. All fields are
// zero with SampleCount 0 when fewer than two points were available; that
// is a valid degenerate state, not an error.
type Trends struct {
	NO2Trend        float64 `json:"no2_trend"`         // column per hour
	NO2SurfaceTrend float64 `json:"no2_surface_trend"` // surface per hour
	WindStability   float64 `json:"wind_stability"`    // [0, 1]
	FireGrowthRate  float64 `json:"fire_growth_rate"`  // weighted FRP per hour
	SampleCount     int     `json:"sample_count"`
}

// AnalyzeTrends computes regression slopes of the spatial-mean column and
// surface values over the historical window, the circular stability of the
// wind, and the growth rate of distance-weighted fire power. Grids and
// weather must be chronological and matched; fireHistory may be nil.
func AnalyzeTrends(grids []*grid.Grid, weather []meteo.Conditions, fireHistory [][]physics.Fire, factors physics.Factors) Trends {
	if len(grids) < 2 || len(weather) < len(grids) {
		return Trends{}
	}

	t0 := grids[0].Timestamp
	hours := make([]float64, len(grids))
	columns := make([]float64, len(grids))
	surfaces := make([]float64, len(grids))
	for i, g := range grids {
		hours[i] = g.Timestamp.Sub(t0).Hours()
		columns[i] = g.MeanColumn()
		surfaces[i] = g.MeanSurface()
	}

	directions := make([]float64, len(grids))
	for i := range grids {
		directions[i] = weather[i].WindDirection
	}

	tr := Trends{
		NO2Trend:        linearSlope(hours, columns),
		NO2SurfaceTrend: linearSlope(hours, surfaces),
		WindStability:   geo.DirectionalStability(directions),
		SampleCount:     len(grids),
	}

	if len(fireHistory) == len(grids) {
		center := grids[0].Bounds.Center()
		power := make([]float64, len(grids))
		for i := range fireHistory {
			power[i] = physics.FireImpact(fireHistory[i], center, factors)
		}
		tr.FireGrowthRate = linearSlope(hours, power)
	}

	return tr
}

// linearSlope is least-squares slope of y over x.
func linearSlope(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}

	var meanX, meanY float64
	for i := range x {
		meanX += x[i]
		meanY += y[i]
	}
	meanX /= float64(len(x))
	meanY /= float64(len(y))

	var sumXY, sumX2 float64
	for i := range x {
		dx := x[i] - meanX
		sumXY += dx * (y[i] - meanY)
		sumX2 += dx * dx
	}
	if sumX2 == 0 {
		return 0
	}
	return sumXY / sumX2
}
