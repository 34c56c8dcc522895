package forecast

import (
	"time"

	"github.com/atmoscast/atmoscast/internal/geo"
	"github.com/atmoscast/atmoscast/internal/grid"
	"github.com/atmoscast/atmoscast/internal/meteo"
	"github.com/atmoscast/atmoscast/internal/physics"
)

// Request carries everything a multi-horizon forecast needs, already
// materialized in memory. HistoricalGrids and HistoricalWeather are
// chronological and matched; WeatherForecasts pairs with Horizons.
type Request struct {
	HistoricalGrids   []*grid.Grid
	HistoricalWeather []meteo.Conditions
	FireHistory       [][]physics.Fire // optional, matched to HistoricalGrids
	ActiveFires       []physics.Fire   // detections feeding the plume model
	WeatherForecasts  []meteo.Conditions
	Horizons          []int // hours ahead, ascending
}

// HorizonForecast is one forecast grid with its confidence.
type HorizonForecast struct {
	HoursAhead int        `json:"hours_ahead"`
	Grid       *grid.Grid `json:"grid"`
	Confidence float64    `json:"confidence"`
}

// Result is the orchestrator's output. A requested horizon missing from
// Horizons was skipped because its weather snapshot was malformed.
type Result struct {
	Horizons []HorizonForecast `json:"forecast_grids"`
	Trends   Trends            `json:"trends"`
}

// Orchestrator sequences the transport operator across horizons.
type Orchestrator struct {
	transport *Transport
	factors   physics.Factors
}

func NewOrchestrator(factors physics.Factors, loc *time.Location) *Orchestrator {
	return &Orchestrator{
		transport: NewTransport(factors, loc),
		factors:   factors,
	}
}

// Forecast computes trends once over the historical window, then chains
// the transport operator horizon to horizon: each run starts from the
// previous horizon's output grid but reuses the original fixed trend, so
// trend error does not compound across horizons.
func (o *Orchestrator) Forecast(req Request) (*Result, error) {
	if len(req.HistoricalGrids) < 2 {
		return nil, &MissingDataError{Reason: "need at least 2 historical grids to compute trends"}
	}
	if len(req.HistoricalWeather) != len(req.HistoricalGrids) {
		return nil, &MissingDataError{Reason: "historical weather does not match historical grids"}
	}
	if len(req.WeatherForecasts) != len(req.Horizons) {
		return nil, &MissingDataError{Reason: "one weather forecast required per requested horizon"}
	}
	for i := 1; i < len(req.Horizons); i++ {
		if req.Horizons[i] <= req.Horizons[i-1] {
			return nil, &geo.ValidationError{Field: "horizons", Message: "must be strictly ascending"}
		}
	}
	if len(req.Horizons) > 0 && req.Horizons[0] <= 0 {
		return nil, &geo.ValidationError{Field: "horizons", Message: "must be positive hours"}
	}

	trends := AnalyzeTrends(req.HistoricalGrids, req.HistoricalWeather, req.FireHistory, o.factors)

	result := &Result{Trends: trends}
	current := req.HistoricalGrids[len(req.HistoricalGrids)-1]
	currentHours := 0

	for i, h := range req.Horizons {
		wx := req.WeatherForecasts[i]
		if wx.Check() != nil {
			// Malformed snapshot: omit this horizon rather than failing
			// the whole call. Callers detect omission by comparing
			// returned hours against the requested list.
			continue
		}

		step := float64(h - currentHours)
		g, confidence, err := o.transport.Advect(current, trends, wx, req.ActiveFires, step, float64(h))
		if err != nil {
			return nil, err
		}

		result.Horizons = append(result.Horizons, HorizonForecast{
			HoursAhead: h,
			Grid:       g,
			Confidence: confidence,
		})
		current = g
		currentHours = h
	}

	return result, nil
}
