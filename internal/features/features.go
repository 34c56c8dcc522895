// Package features flattens a grid snapshot plus weather and trend context
// into a fixed-order numeric vector for ML training. Every directional
// query that matches no cells resolves to 0 so the vector stays dense.
package features

import (
	"math"
	"time"

	"github.com/atmoscast/atmoscast/internal/forecast"
	"github.com/atmoscast/atmoscast/internal/geo"
	"github.com/atmoscast/atmoscast/internal/grid"
	"github.com/atmoscast/atmoscast/internal/meteo"
	"github.com/atmoscast/atmoscast/internal/physics"
)

const (
	// directionalSearchRadiusKm bounds how far off-axis a cell may sit and
	// still count toward an upwind/downwind/cardinal aggregate.
	directionalSearchRadiusKm = 5
	// gradientScaleM converts the difference of two 10 km aggregates into a
	// per-meter gradient across the 20 km span.
	gradientScaleM = 20000
	// centerGradientScaleM spans center to the 10 km neighborhood mean.
	centerGradientScaleM = 10000
)

// Extract builds the feature vector for a query point on g. The grid's
// timestamp localized to loc supplies the temporal fields; hoursAhead tags
// which forecast horizon the sample describes (0 for nowcasts). Returns a
// MissingDataError when the grid has no cells.
func Extract(g *grid.Grid, at geo.Point, wx meteo.Conditions, trends forecast.Trends, hoursAhead int, factors physics.Factors, loc *time.Location) (*Vector, error) {
	if g == nil || len(g.Cells) == 0 {
		return nil, &forecast.MissingDataError{Reason: "no grid cells to extract features from"}
	}
	if loc == nil {
		loc = time.UTC
	}

	center, _ := g.NearestCell(at)
	centerColumn := 0.0
	if center.NO2Column != nil {
		centerColumn = *center.NO2Column
	}

	no2In5 := grid.ColumnValues(g.CellsInRadius(at, 5))
	no2In10 := grid.ColumnValues(g.CellsInRadius(at, 10))
	no2In20 := grid.ColumnValues(g.CellsInRadius(at, 20))

	// Upwind lies along the direction the wind blows FROM; downwind is the
	// opposite bearing. Same translation math as the transport operator.
	upwind10 := grid.ColumnValues(g.CellsToward(at, wx.WindDirection, 10, directionalSearchRadiusKm))
	upwind20 := grid.ColumnValues(g.CellsToward(at, wx.WindDirection, 20, directionalSearchRadiusKm))
	upwind30 := grid.ColumnValues(g.CellsToward(at, wx.WindDirection, 30, directionalSearchRadiusKm))
	downwind10 := grid.ColumnValues(g.CellsToward(at, geo.OppositeBearing(wx.WindDirection), 10, directionalSearchRadiusKm))

	north := grid.ColumnValues(g.CellsToward(at, 0, 10, directionalSearchRadiusKm))
	east := grid.ColumnValues(g.CellsToward(at, 90, 10, directionalSearchRadiusKm))
	south := grid.ColumnValues(g.CellsToward(at, 180, 10, directionalSearchRadiusKm))
	west := grid.ColumnValues(g.CellsToward(at, 270, 10, directionalSearchRadiusKm))

	local := g.Timestamp.In(loc)
	localHour := local.Hour()
	dayOfWeek := float64(local.Weekday())
	month := float64(local.Month())

	physicsPred := 0.0
	if p := physics.SurfaceFromColumn(center.NO2Column, wx.PBLHeight, factors, localHour); p != nil {
		physicsPred = *p
	}

	windU, windV := wx.UV()

	v := &Vector{
		NO2ColumnCenter: centerColumn,

		NO2Avg5km: safeAvg(no2In5),
		NO2Max5km: safeMax(no2In5),
		NO2Min5km: safeMin(no2In5),
		NO2Std5km: safeStd(no2In5),

		NO2Avg10km: safeAvg(no2In10),
		NO2Max10km: safeMax(no2In10),
		NO2Min10km: safeMin(no2In10),
		NO2Std10km: safeStd(no2In10),

		NO2Avg20km: safeAvg(no2In20),
		NO2Max20km: safeMax(no2In20),
		NO2Min20km: safeMin(no2In20),
		NO2Std20km: safeStd(no2In20),

		NO2Upwind10kmAvg: safeAvg(upwind10),
		NO2Upwind10kmMax: safeMax(upwind10),
		NO2Upwind10kmStd: safeStd(upwind10),

		NO2Upwind20kmAvg: safeAvg(upwind20),
		NO2Upwind20kmMax: safeMax(upwind20),
		NO2Upwind20kmStd: safeStd(upwind20),

		NO2Upwind30kmAvg: safeAvg(upwind30),
		NO2Upwind30kmMax: safeMax(upwind30),
		NO2Upwind30kmStd: safeStd(upwind30),

		NO2Downwind10kmAvg: safeAvg(downwind10),
		NO2Downwind10kmMax: safeMax(downwind10),
		NO2Downwind10kmStd: safeStd(downwind10),

		NO2North10km:    safeAvg(north),
		NO2NorthStd10km: safeStd(north),
		NO2East10km:     safeAvg(east),
		NO2EastStd10km:  safeStd(east),
		NO2South10km:    safeAvg(south),
		NO2SouthStd10km: safeStd(south),
		NO2West10km:     safeAvg(west),
		NO2WestStd10km:  safeStd(west),

		GradientNS:             (safeAvg(north) - safeAvg(south)) / gradientScaleM,
		GradientEW:             (safeAvg(east) - safeAvg(west)) / gradientScaleM,
		GradientUpwindDownwind: (safeAvg(upwind10) - safeAvg(downwind10)) / gradientScaleM,
		GradientCenterAvg:      (centerColumn - safeAvg(no2In10)) / centerGradientScaleM,

		WindSpeed:     wx.WindSpeed,
		WindDirection: wx.WindDirection,
		WindU:         windU,
		WindV:         windV,
		PBLHeight:     wx.PBLHeight,
		Temperature:   wx.Temperature,
		Precipitation: wx.Precipitation,
		PBLNormalized: wx.PBLHeight / factors.PBLReference,

		NO2Trend:         trends.NO2Trend,
		NO2SurfaceTrend:  trends.NO2SurfaceTrend,
		WindStability:    trends.WindStability,
		FireGrowthRate:   trends.FireGrowthRate,
		TrendSampleCount: float64(trends.SampleCount),

		Hour:       float64(localHour),
		DayOfWeek:  dayOfWeek,
		IsWeekend:  boolToFloat(local.Weekday() == time.Saturday || local.Weekday() == time.Sunday),
		IsRushHour: boolToFloat((localHour >= 7 && localHour < 10) || (localHour >= 16 && localHour < 19)),
		Month:      month,
		HoursAhead: float64(hoursAhead),

		HourSin:  math.Sin(2 * math.Pi * float64(localHour) / 24),
		HourCos:  math.Cos(2 * math.Pi * float64(localHour) / 24),
		DaySin:   math.Sin(2 * math.Pi * dayOfWeek / 7),
		DayCos:   math.Cos(2 * math.Pi * dayOfWeek / 7),
		MonthSin: math.Sin(2 * math.Pi * month / 12),
		MonthCos: math.Cos(2 * math.Pi * month / 12),

		WindSpeedXUpwindNO2: wx.WindSpeed * safeAvg(upwind30),
		PBLXCenterNO2:       wx.PBLHeight * centerColumn,

		PhysicsPrediction: physicsPred,
	}

	return v, nil
}

func safeAvg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func safeMax(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

func safeMin(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// safeStd is the population standard deviation, 0 for empty input.
func safeStd(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := safeAvg(values)
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
