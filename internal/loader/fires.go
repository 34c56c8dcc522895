package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/atmoscast/atmoscast/internal/geo"
	"github.com/atmoscast/atmoscast/internal/httputil"
	"github.com/atmoscast/atmoscast/internal/metrics"
	"github.com/atmoscast/atmoscast/internal/physics"
)

const firmsBaseURL = "https://firms.modaps.eosdis.nasa.gov/api/area/csv"

// FIRMS fetches active fire detections from the NASA FIRMS area API.
type FIRMS struct {
	apiKey  string
	source  string
	baseURL string
	client  *http.Client
}

func NewFIRMS(apiKey string) *FIRMS {
	return &FIRMS{
		apiKey:  apiKey,
		source:  "VIIRS_SNPP_NRT",
		baseURL: firmsBaseURL,
		client:  httputil.NewClient(),
	}
}

// FetchArea returns detections inside bounds over the trailing dayRange
// days (1-10 per the API).
func (f *FIRMS) FetchArea(bounds geo.BoundingBox, dayRange int) ([]physics.Fire, error) {
	area := fmt.Sprintf("%.3f,%.3f,%.3f,%.3f", bounds.West, bounds.South, bounds.East, bounds.North)
	reqURL := fmt.Sprintf("%s/%s/%s/%s/%d", f.baseURL, f.apiKey, f.source, area, dayRange)

	var body []byte
	operation := func() error {
		resp, err := f.client.Get(reqURL)
		if err != nil {
			return fmt.Errorf("fetch fires: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("rate limited: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch fires: status %d: %s", resp.StatusCode, string(b)))
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
		metrics.LoaderFetchesTotal.WithLabelValues("firms", "error").Inc()
		return nil, err
	}
	metrics.LoaderFetchesTotal.WithLabelValues("firms", "ok").Inc()

	return ParseFIRMS(body)
}

// ParseFIRMS decodes the FIRMS CSV export. Rows missing coordinates or FRP
// are skipped; a negative FRP fails the whole parse since it indicates a
// corrupt export rather than a single bad row.
func ParseFIRMS(data []byte) ([]physics.Fire, error) {
	r := csv.NewReader(strings.NewReader(string(data)))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse fires: %w", err)
	}

	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	maxIdx := 0
	for _, required := range []string{"latitude", "longitude", "frp", "acq_date", "acq_time"} {
		idx, ok := col[required]
		if !ok {
			return nil, fmt.Errorf("parse fires: missing column %q", required)
		}
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	confIdx, hasConf := col["confidence"]

	var fires []physics.Fire
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse fires: %w", err)
		}
		// Truncated downloads leave short tail rows; skip them like any
		// other malformed row.
		if len(rec) <= maxIdx {
			continue
		}

		lat, latErr := strconv.ParseFloat(rec[col["latitude"]], 64)
		lon, lonErr := strconv.ParseFloat(rec[col["longitude"]], 64)
		frp, frpErr := strconv.ParseFloat(rec[col["frp"]], 64)
		if latErr != nil || lonErr != nil || frpErr != nil {
			continue
		}
		if frp < 0 {
			return nil, fmt.Errorf("parse fires: negative frp %v", frp)
		}

		acquired, err := parseFIRMSTime(rec[col["acq_date"]], rec[col["acq_time"]])
		if err != nil {
			continue
		}

		fire := physics.Fire{
			Latitude:   lat,
			Longitude:  lon,
			FRP:        frp,
			AcquiredAt: acquired,
		}
		if hasConf && confIdx < len(rec) {
			fire.Confidence = strings.TrimSpace(rec[confIdx])
		}
		fires = append(fires, fire)
	}
	return fires, nil
}

// parseFIRMSTime combines the acq_date and acq_time columns; acq_time is
// HHMM with leading zeros sometimes dropped.
func parseFIRMSTime(date, clock string) (time.Time, error) {
	clock = strings.TrimSpace(clock)
	for len(clock) < 4 {
		clock = "0" + clock
	}
	return time.Parse("2006-01-02 1504", strings.TrimSpace(date)+" "+clock)
}
