package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/atmoscast/atmoscast/internal/features"
	"github.com/atmoscast/atmoscast/internal/forecast"
	"github.com/atmoscast/atmoscast/internal/geo"
	"github.com/atmoscast/atmoscast/internal/grid"
	"github.com/atmoscast/atmoscast/internal/meteo"
	"github.com/atmoscast/atmoscast/internal/metrics"
	"github.com/atmoscast/atmoscast/internal/physics"
	"github.com/atmoscast/atmoscast/internal/render"
	"github.com/atmoscast/atmoscast/internal/store"
	"github.com/atmoscast/atmoscast/internal/validate"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// statusFor maps engine error types onto HTTP codes: bad inputs are the
// caller's fault, missing history is 422, anything else is a 500.
func statusFor(err error) int {
	var verr *geo.ValidationError
	var missing *forecast.MissingDataError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.As(err, &missing):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type forecastRequest struct {
	HistoricalGrids   []*grid.Grid       `json:"historical_grids"`
	HistoricalWeather []meteo.Conditions `json:"historical_weather"`
	FireHistory       [][]physics.Fire   `json:"fire_history,omitempty"`
	ActiveFires       []physics.Fire     `json:"active_fires,omitempty"`
	WeatherForecasts  []meteo.Conditions `json:"weather_forecasts"`
	Horizons          []int              `json:"forecast_horizons"`
	WithNarrative     bool               `json:"with_narrative,omitempty"`
}

type forecastResponse struct {
	*forecast.Result
	Narrative string `json:"narrative,omitempty"`
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req forecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("decode request: %v", err), http.StatusBadRequest)
		return
	}
	if err := revalidateGrids(req.HistoricalGrids); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	factors, err := s.store.ActiveFactors()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	started := time.Now()
	o := forecast.NewOrchestrator(factors, s.loc)
	res, err := o.Forecast(forecast.Request{
		HistoricalGrids:   req.HistoricalGrids,
		HistoricalWeather: req.HistoricalWeather,
		FireHistory:       req.FireHistory,
		ActiveFires:       req.ActiveFires,
		WeatherForecasts:  req.WeatherForecasts,
		Horizons:          req.Horizons,
	})
	metrics.ForecastLatency.Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.ForecastRunsTotal.WithLabelValues("error").Inc()
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	metrics.ForecastRunsTotal.WithLabelValues("ok").Inc()
	s.recordRun(req.Horizons, res)

	resp := forecastResponse{Result: res}
	if req.WithNarrative && s.narrator != nil {
		if text, err := s.narrator.Summarize(r.Context(), res); err == nil {
			resp.Narrative = text
		}
	}
	writeJSON(w, resp)
}

// recordRun persists per-horizon summaries and updates gauges. Persistence
// failures are not the caller's problem; they only lose history.
func (s *Server) recordRun(requested []int, res *forecast.Result) {
	produced := make(map[int]bool, len(res.Horizons))
	runAt := time.Now().UTC().Truncate(time.Minute)

	for _, h := range res.Horizons {
		produced[h.HoursAhead] = true
		metrics.ForecastHorizonsTotal.WithLabelValues("produced").Inc()
		metrics.ForecastConfidence.WithLabelValues(strconv.Itoa(h.HoursAhead)).Set(h.Confidence)

		err := s.store.SaveForecastRun(store.ForecastRun{
			RunAt:       runAt,
			HoursAhead:  h.HoursAhead,
			Confidence:  h.Confidence,
			MeanSurface: h.Grid.MeanSurface(),
			CellCount:   len(h.Grid.Cells),
		})
		if err != nil {
			log.Printf("persist forecast run (h=%d): %v", h.HoursAhead, err)
		}
	}
	for _, h := range requested {
		if !produced[h] {
			metrics.ForecastHorizonsTotal.WithLabelValues("skipped").Inc()
		}
	}
}

type featuresRequest struct {
	Grid      *grid.Grid       `json:"grid"`
	Latitude  float64          `json:"latitude"`
	Longitude float64          `json:"longitude"`
	Weather   meteo.Conditions `json:"weather"`
	// WeatherSites, when present, supplies site series to interpolate at
	// the query point instead of a single pre-resolved record.
	WeatherSites []meteo.Series  `json:"weather_sites,omitempty"`
	Trends       forecast.Trends `json:"trends"`
	HoursAhead   int             `json:"hours_ahead"`
}

func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req featuresRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("decode request: %v", err), http.StatusBadRequest)
		return
	}
	if err := revalidateGrids([]*grid.Grid{req.Grid}); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	at, err := geo.NewPoint(req.Latitude, req.Longitude)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	wx := req.Weather
	if len(req.WeatherSites) > 0 {
		wx = meteo.NewInterpolator(req.WeatherSites).At(at, req.Grid.Timestamp, meteo.DefaultNeighbors)
	}

	factors, err := s.store.ActiveFactors()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	v, err := features.Extract(req.Grid, at, wx, req.Trends, req.HoursAhead, factors, s.loc)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, map[string]any{
		"names":  features.Names(),
		"values": v.Values(),
	})
}

type calibrateRequest struct {
	Space   validate.SearchSpace     `json:"search_space"`
	Samples []validate.LabeledSample `json:"samples"`
	Workers int                      `json:"workers,omitempty"`
}

func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req calibrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("decode request: %v", err), http.StatusBadRequest)
		return
	}

	base, err := s.store.ActiveFactors()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	progress := func(done, total int) {
		metrics.CalibrationCombosTotal.Inc()
	}
	result, err := validate.Calibrate(base, req.Space, req.Samples, req.Workers, progress)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	if _, err := s.store.SaveCalibration(result, time.Now().UTC()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, result)
}

type heatmapRequest struct {
	Grid   *grid.Grid `json:"grid"`
	Width  int        `json:"width,omitempty"`
	Height int        `json:"height,omitempty"`
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req heatmapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("decode request: %v", err), http.StatusBadRequest)
		return
	}
	if req.Grid == nil {
		http.Error(w, "grid is required", http.StatusBadRequest)
		return
	}

	opts := render.Options{Width: req.Width, Height: req.Height}
	key := render.Key(req.Grid.Timestamp, opts)
	data, ok := s.heatmaps.Get(key)
	if !ok {
		var err error
		data, err = render.Heatmap(req.Grid, opts)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		s.heatmaps.Set(key, data)
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	n := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		n = parsed
	}

	runs, err := s.store.RecentForecastRuns(n)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

// revalidateGrids re-runs construction checks on grids that arrived over
// the wire, since json decoding bypasses grid.New.
func revalidateGrids(grids []*grid.Grid) error {
	for i, g := range grids {
		if g == nil {
			return fmt.Errorf("grid %d is null", i)
		}
		if _, err := grid.New(g.Cells, g.Bounds, g.Resolution, g.Timestamp); err != nil {
			return fmt.Errorf("grid %d: %w", i, err)
		}
	}
	return nil
}
