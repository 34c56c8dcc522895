package features

import "strconv"

// Vector is the fixed-order feature set for one (location, grid, weather,
// trends, horizon) sample. Field order here is the serialization order;
// training pipelines depend on it staying stable.
type Vector struct {
	NO2ColumnCenter float64

	NO2Avg5km float64
	NO2Max5km float64
	NO2Min5km float64
	NO2Std5km float64

	NO2Avg10km float64
	NO2Max10km float64
	NO2Min10km float64
	NO2Std10km float64

	NO2Avg20km float64
	NO2Max20km float64
	NO2Min20km float64
	NO2Std20km float64

	NO2Upwind10kmAvg float64
	NO2Upwind10kmMax float64
	NO2Upwind10kmStd float64

	NO2Upwind20kmAvg float64
	NO2Upwind20kmMax float64
	NO2Upwind20kmStd float64

	NO2Upwind30kmAvg float64
	NO2Upwind30kmMax float64
	NO2Upwind30kmStd float64

	NO2Downwind10kmAvg float64
	NO2Downwind10kmMax float64
	NO2Downwind10kmStd float64

	NO2North10km    float64
	NO2NorthStd10km float64
	NO2East10km     float64
	NO2EastStd10km  float64
	NO2South10km    float64
	NO2SouthStd10km float64
	NO2West10km     float64
	NO2WestStd10km  float64

	GradientNS             float64
	GradientEW             float64
	GradientUpwindDownwind float64
	GradientCenterAvg      float64

	WindSpeed     float64
	WindDirection float64
	WindU         float64
	WindV         float64
	PBLHeight     float64
	Temperature   float64
	Precipitation float64
	PBLNormalized float64

	NO2Trend         float64
	NO2SurfaceTrend  float64
	WindStability    float64
	FireGrowthRate   float64
	TrendSampleCount float64

	Hour       float64
	DayOfWeek  float64
	IsWeekend  float64
	IsRushHour float64
	Month      float64
	HoursAhead float64

	HourSin  float64
	HourCos  float64
	DaySin   float64
	DayCos   float64
	MonthSin float64
	MonthCos float64

	WindSpeedXUpwindNO2 float64
	PBLXCenterNO2       float64

	PhysicsPrediction float64
}

// fieldNames lists every feature in serialization order. Must stay in sync
// with Vector.Values.
var fieldNames = []string{
	"no2_column_center",

	"no2_avg_5km", "no2_max_5km", "no2_min_5km", "no2_std_5km",
	"no2_avg_10km", "no2_max_10km", "no2_min_10km", "no2_std_10km",
	"no2_avg_20km", "no2_max_20km", "no2_min_20km", "no2_std_20km",

	"no2_upwind_10km_avg", "no2_upwind_10km_max", "no2_upwind_10km_std",
	"no2_upwind_20km_avg", "no2_upwind_20km_max", "no2_upwind_20km_std",
	"no2_upwind_30km_avg", "no2_upwind_30km_max", "no2_upwind_30km_std",

	"no2_downwind_10km_avg", "no2_downwind_10km_max", "no2_downwind_10km_std",

	"no2_north_10km", "no2_north_std_10km",
	"no2_east_10km", "no2_east_std_10km",
	"no2_south_10km", "no2_south_std_10km",
	"no2_west_10km", "no2_west_std_10km",

	"gradient_ns", "gradient_ew", "gradient_upwind_downwind", "gradient_center_avg",

	"wind_speed", "wind_direction", "wind_u", "wind_v",
	"pbl_height", "temperature", "precipitation", "pbl_normalized",

	"no2_trend", "no2_surface_trend", "wind_stability", "fire_growth_rate", "trend_sample_count",

	"hour", "day_of_week", "is_weekend", "is_rush_hour", "month", "hours_ahead",

	"hour_sin", "hour_cos", "day_sin", "day_cos", "month_sin", "month_cos",

	"wind_speed_x_upwind_no2", "pbl_x_center_no2",

	"physics_prediction",
}

// Names returns the feature names in serialization order.
func Names() []string {
	out := make([]string, len(fieldNames))
	copy(out, fieldNames)
	return out
}

// Values returns the vector's fields in the order given by Names.
func (v *Vector) Values() []float64 {
	return []float64{
		v.NO2ColumnCenter,

		v.NO2Avg5km, v.NO2Max5km, v.NO2Min5km, v.NO2Std5km,
		v.NO2Avg10km, v.NO2Max10km, v.NO2Min10km, v.NO2Std10km,
		v.NO2Avg20km, v.NO2Max20km, v.NO2Min20km, v.NO2Std20km,

		v.NO2Upwind10kmAvg, v.NO2Upwind10kmMax, v.NO2Upwind10kmStd,
		v.NO2Upwind20kmAvg, v.NO2Upwind20kmMax, v.NO2Upwind20kmStd,
		v.NO2Upwind30kmAvg, v.NO2Upwind30kmMax, v.NO2Upwind30kmStd,

		v.NO2Downwind10kmAvg, v.NO2Downwind10kmMax, v.NO2Downwind10kmStd,

		v.NO2North10km, v.NO2NorthStd10km,
		v.NO2East10km, v.NO2EastStd10km,
		v.NO2South10km, v.NO2SouthStd10km,
		v.NO2West10km, v.NO2WestStd10km,

		v.GradientNS, v.GradientEW, v.GradientUpwindDownwind, v.GradientCenterAvg,

		v.WindSpeed, v.WindDirection, v.WindU, v.WindV,
		v.PBLHeight, v.Temperature, v.Precipitation, v.PBLNormalized,

		v.NO2Trend, v.NO2SurfaceTrend, v.WindStability, v.FireGrowthRate, v.TrendSampleCount,

		v.Hour, v.DayOfWeek, v.IsWeekend, v.IsRushHour, v.Month, v.HoursAhead,

		v.HourSin, v.HourCos, v.DaySin, v.DayCos, v.MonthSin, v.MonthCos,

		v.WindSpeedXUpwindNO2, v.PBLXCenterNO2,

		v.PhysicsPrediction,
	}
}

// CSVRecord renders the vector for encoding/csv, matching Names column for
// column.
func (v *Vector) CSVRecord() []string {
	vals := v.Values()
	out := make([]string, len(vals))
	for i, f := range vals {
		out[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return out
}
