package forecast

import (
	"math"
	"sort"
	"time"

	"github.com/atmoscast/atmoscast/internal/geo"
	"github.com/atmoscast/atmoscast/internal/grid"
	"github.com/atmoscast/atmoscast/internal/meteo"
	"github.com/atmoscast/atmoscast/internal/physics"
)

const (
	baseConfidence         = 0.9
	confidenceDecayPerHour = 0.08
	minConfidence          = 0.05
	idwNeighbors           = 4
	// idwDistanceFloorKm keeps the weight finite when the source point
	// lands exactly on a historical cell.
	idwDistanceFloorKm = 0.001
)

// Transport advects a grid forward along the wind field. It is stateless
// apart from the read-only factor set and the timezone used to localize
// the diurnal cycle.
type Transport struct {
	factors physics.Factors
	loc     *time.Location
}

func NewTransport(factors physics.Factors, loc *time.Location) *Transport {
	if loc == nil {
		loc = time.UTC
	}
	return &Transport{factors: factors, loc: loc}
}

// Advect propagates source forward by stepHours under wx, blending the
// upwind-advected column with the trend extrapolation (advection weighted
// by wind stability), then deriving surface values through the converter,
// fire plume and washout models. totalHours is the distance from the
// original observation and drives confidence decay.
func (t *Transport) Advect(source *grid.Grid, trends Trends, wx meteo.Conditions, fires []physics.Fire, stepHours, totalHours float64) (*grid.Grid, float64, error) {
	if source == nil || len(source.Cells) == 0 {
		return nil, 0, &MissingDataError{Reason: "no source grid to advect"}
	}
	if err := wx.Check(); err != nil {
		return nil, 0, err
	}

	target := source.Clone()
	target.Timestamp = source.Timestamp.Add(time.Duration(stepHours * float64(time.Hour)))
	localHour := target.Timestamp.In(t.loc).Hour()

	// Wind speed is m/s; stepHours of travel in km.
	travelKm := wx.WindSpeed * 3.6 * stepHours
	washout := physics.Washout(wx.Precipitation, t.factors)

	for i := range target.Cells {
		cell := &target.Cells[i]

		// The air arriving here left from upwind: offset along the
		// direction the wind blows FROM.
		upwind := geo.Offset(cell.Point(), wx.WindDirection, travelKm)
		advected, ok := interpolateColumn(source, upwind)

		var column float64
		switch {
		case ok && cell.NO2Column != nil:
			extrapolated := *cell.NO2Column + trends.NO2Trend*stepHours
			column = trends.WindStability*advected + (1-trends.WindStability)*extrapolated
		case ok:
			column = advected
		case cell.NO2Column != nil:
			column = *cell.NO2Column + trends.NO2Trend*stepHours
		default:
			cell.NO2Column = nil
			cell.NO2Surface = nil
			continue
		}
		if column < 0 {
			column = 0
		}
		cell.NO2Column = &column

		surface := physics.SurfaceFromColumn(&column, wx.PBLHeight, t.factors, localHour)
		combined := (*surface + physics.FireImpact(fires, cell.Point(), t.factors)) * washout
		cell.NO2Surface = &combined
	}

	confidence := baseConfidence * trends.WindStability * math.Exp(-confidenceDecayPerHour*totalHours)
	if confidence < minConfidence {
		confidence = minConfidence
	}
	if confidence > 1 {
		confidence = 1
	}

	return target, confidence, nil
}

// interpolateColumn estimates column density at p by inverse-distance
// weighting over the nearest cells carrying a column value.
func interpolateColumn(g *grid.Grid, p geo.Point) (float64, bool) {
	type neighbor struct {
		dist  float64
		value float64
	}

	var candidates []neighbor
	for i := range g.Cells {
		if g.Cells[i].NO2Column == nil {
			continue
		}
		candidates = append(candidates, neighbor{
			dist:  geo.DistanceKm(p, g.Cells[i].Point()),
			value: *g.Cells[i].NO2Column,
		})
	}
	if len(candidates) == 0 {
		return 0, false
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })
	if len(candidates) > idwNeighbors {
		candidates = candidates[:idwNeighbors]
	}

	var weightSum, valueSum float64
	for _, n := range candidates {
		d := math.Max(n.dist, idwDistanceFloorKm)
		w := 1.0 / (d * d)
		weightSum += w
		valueSum += w * n.value
	}
	return valueSum / weightSum, true
}
