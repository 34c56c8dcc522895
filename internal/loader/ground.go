package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/atmoscast/atmoscast/internal/geo"
	"github.com/atmoscast/atmoscast/internal/metrics"
)

// GroundMeasurement is one station reading used as calibration ground
// truth.
type GroundMeasurement struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Parameter string    `json:"parameter"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
	Timestamp time.Time `json:"timestamp"`
}

// Point returns the station location.
func (m *GroundMeasurement) Point() geo.Point {
	return geo.Point{Latitude: m.Latitude, Longitude: m.Longitude}
}

// epaColumns maps the hourly-export header names we consume.
var epaColumns = []string{"Latitude", "Longitude", "Parameter Name", "Sample Measurement", "Units of Measure", "Date GMT", "Time GMT"}

// ParseEPA decodes an EPA hourly-data CSV export, keeping rows matching
// parameter (e.g. "Nitrogen dioxide (NO2)"). Results come back sorted
// chronologically, ready for the calibration split.
func ParseEPA(r io.Reader, parameter string) ([]GroundMeasurement, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse ground truth: %w", err)
	}

	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	maxIdx := 0
	for _, required := range epaColumns {
		idx, ok := col[required]
		if !ok {
			return nil, fmt.Errorf("parse ground truth: missing column %q", required)
		}
		if idx > maxIdx {
			maxIdx = idx
		}
	}

	var out []GroundMeasurement
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse ground truth: %w", err)
		}
		// Short rows from a truncated export cannot be indexed safely.
		if len(rec) <= maxIdx {
			continue
		}
		if strings.TrimSpace(rec[col["Parameter Name"]]) != parameter {
			continue
		}

		lat, latErr := strconv.ParseFloat(rec[col["Latitude"]], 64)
		lon, lonErr := strconv.ParseFloat(rec[col["Longitude"]], 64)
		value, valErr := strconv.ParseFloat(rec[col["Sample Measurement"]], 64)
		if latErr != nil || lonErr != nil || valErr != nil {
			continue
		}

		ts, err := time.Parse("2006-01-02 15:04", rec[col["Date GMT"]]+" "+rec[col["Time GMT"]])
		if err != nil {
			continue
		}

		out = append(out, GroundMeasurement{
			Latitude:  lat,
			Longitude: lon,
			Parameter: parameter,
			Value:     value,
			Unit:      strings.TrimSpace(rec[col["Units of Measure"]]),
			Timestamp: ts.UTC(),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// EPAArchive retrieves hourly-data exports from an FTP mirror of the EPA
// pre-generated files.
type EPAArchive struct {
	host string
}

func NewEPAArchive(host string) *EPAArchive {
	return &EPAArchive{host: host}
}

// Fetch downloads and parses one export file from the mirror.
func (a *EPAArchive) Fetch(path, parameter string) ([]GroundMeasurement, error) {
	ms, err := a.fetch(path, parameter)
	if err != nil {
		metrics.LoaderFetchesTotal.WithLabelValues("epa", "error").Inc()
		return nil, err
	}
	metrics.LoaderFetchesTotal.WithLabelValues("epa", "ok").Inc()
	return ms, nil
}

func (a *EPAArchive) fetch(path, parameter string) ([]GroundMeasurement, error) {
	conn, err := ftp.Dial(a.host, ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login("anonymous", "anonymous"); err != nil {
		return nil, fmt.Errorf("ftp login: %w", err)
	}

	resp, err := conn.Retr(path)
	if err != nil {
		return nil, fmt.Errorf("ftp retr: %w", err)
	}
	defer resp.Close()

	return ParseEPA(resp, parameter)
}
