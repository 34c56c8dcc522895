package loader

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/atmoscast/atmoscast/internal/geo"
	"github.com/atmoscast/atmoscast/internal/httputil"
	"github.com/atmoscast/atmoscast/internal/meteo"
	"github.com/atmoscast/atmoscast/internal/metrics"
)

const openMeteoBaseURL = "https://api.open-meteo.com/v1/forecast"

// OpenMeteo fetches hourly weather for a point from the Open-Meteo API.
type OpenMeteo struct {
	baseURL string
	client  *http.Client
}

func NewOpenMeteo() *OpenMeteo {
	return &OpenMeteo{
		baseURL: openMeteoBaseURL,
		client:  httputil.NewClient(),
	}
}

// NewOpenMeteoWithBase points the client at an alternate endpoint, used by
// tests.
func NewOpenMeteoWithBase(baseURL string) *OpenMeteo {
	om := NewOpenMeteo()
	om.baseURL = baseURL
	return om
}

type openMeteoResponse struct {
	Hourly struct {
		Time             []string  `json:"time"`
		WindSpeed10m     []float64 `json:"wind_speed_10m"`
		WindDirection10m []float64 `json:"wind_direction_10m"`
		BoundaryLayerPBL []float64 `json:"boundary_layer_height"`
		Temperature2m    []float64 `json:"temperature_2m"`
		Precipitation    []float64 `json:"precipitation"`
	} `json:"hourly"`
}

// FetchHourly returns the site series for the given point and day span.
// Wind speed is requested in m/s to match the transport operator's units.
func (o *OpenMeteo) FetchHourly(p geo.Point, start, end time.Time) (*meteo.Series, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", p.Latitude))
	q.Set("longitude", fmt.Sprintf("%.4f", p.Longitude))
	q.Set("hourly", "wind_speed_10m,wind_direction_10m,boundary_layer_height,temperature_2m,precipitation")
	q.Set("wind_speed_unit", "ms")
	q.Set("timeformat", "iso8601")
	q.Set("timezone", "UTC")
	q.Set("start_date", start.UTC().Format("2006-01-02"))
	q.Set("end_date", end.UTC().Format("2006-01-02"))

	reqURL := o.baseURL + "?" + q.Encode()

	var body []byte
	operation := func() error {
		resp, err := o.client.Get(reqURL)
		if err != nil {
			return fmt.Errorf("fetch weather: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("rate limited: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch weather: status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, bo); err != nil {
		metrics.LoaderFetchesTotal.WithLabelValues("openmeteo", "error").Inc()
		return nil, err
	}
	metrics.LoaderFetchesTotal.WithLabelValues("openmeteo", "ok").Inc()

	return parseOpenMeteo(body, p)
}

func parseOpenMeteo(body []byte, p geo.Point) (*meteo.Series, error) {
	var data openMeteoResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("unmarshal weather: %w", err)
	}

	h := data.Hourly
	n := len(h.Time)
	if len(h.WindSpeed10m) != n || len(h.WindDirection10m) != n ||
		len(h.Temperature2m) != n || len(h.Precipitation) != n {
		return nil, fmt.Errorf("weather response: ragged hourly arrays")
	}

	series := &meteo.Series{
		Name:     fmt.Sprintf("openmeteo %.2f,%.2f", p.Latitude, p.Longitude),
		Location: p,
		Hours:    make(map[time.Time]meteo.Conditions, n),
	}
	for i := 0; i < n; i++ {
		ts, err := time.Parse("2006-01-02T15:04", h.Time[i])
		if err != nil {
			return nil, fmt.Errorf("weather response: parse time %q: %w", h.Time[i], err)
		}
		ts = ts.UTC()

		c := meteo.Conditions{
			WindSpeed:     h.WindSpeed10m[i],
			WindDirection: h.WindDirection10m[i],
			Temperature:   h.Temperature2m[i],
			Precipitation: h.Precipitation[i],
			Timestamp:     ts,
		}
		// Boundary layer height is missing from some model runs; fall back
		// to the climatological default rather than dropping the hour.
		if i < len(h.BoundaryLayerPBL) && h.BoundaryLayerPBL[i] > 0 {
			c.PBLHeight = h.BoundaryLayerPBL[i]
		} else {
			c.PBLHeight = meteo.DefaultPBLHeight
		}
		series.Hours[ts] = c
	}
	return series, nil
}
