package loader

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/atmoscast/atmoscast/internal/geo"
	"github.com/atmoscast/atmoscast/internal/metrics"
)

func TestParseGrid(t *testing.T) {
	doc := `{
		"cells": [
			{"latitude": 34.05, "longitude": -118.24, "no2_column": 5e15},
			{"latitude": 34.10, "longitude": -118.20, "no2_column": null}
		],
		"bounds": {"west": -119, "south": 33, "east": -117, "north": 35},
		"resolution": 0.05,
		"timestamp": "2024-02-15T11:00:00Z"
	}`

	g, err := ParseGrid([]byte(doc))
	if err != nil {
		t.Fatalf("ParseGrid: %v", err)
	}
	if len(g.Cells) != 2 {
		t.Fatalf("got %d cells, want 2", len(g.Cells))
	}
	if g.Cells[0].NO2Column == nil || *g.Cells[0].NO2Column != 5e15 {
		t.Errorf("cell 0 column = %v, want 5e15", g.Cells[0].NO2Column)
	}
	if g.Cells[1].NO2Column != nil {
		t.Errorf("cell 1 column = %v, want nil", *g.Cells[1].NO2Column)
	}
	if g.Resolution != 0.05 {
		t.Errorf("resolution = %v, want 0.05", g.Resolution)
	}
	if want := time.Date(2024, 2, 15, 11, 0, 0, 0, time.UTC); !g.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", g.Timestamp, want)
	}
}

func TestParseGridRejectsBadBounds(t *testing.T) {
	doc := `{
		"cells": [],
		"bounds": {"west": -117, "south": 33, "east": -119, "north": 35},
		"resolution": 0.05,
		"timestamp": "2024-02-15T11:00:00Z"
	}`
	if _, err := ParseGrid([]byte(doc)); err == nil {
		t.Error("ParseGrid accepted west >= east")
	}
}

func TestParseGridRejectsCellOutsideBounds(t *testing.T) {
	doc := `{
		"cells": [{"latitude": 50, "longitude": -118.24, "no2_column": 1e15}],
		"bounds": {"west": -119, "south": 33, "east": -117, "north": 35},
		"resolution": 0.05,
		"timestamp": "2024-02-15T11:00:00Z"
	}`
	if _, err := ParseGrid([]byte(doc)); err == nil {
		t.Error("ParseGrid accepted a cell outside the bounds")
	}
}

const openMeteoFixture = `{
	"hourly": {
		"time": ["2024-02-15T11:00", "2024-02-15T12:00"],
		"wind_speed_10m": [5.2, 4.8],
		"wind_direction_10m": [270, 265],
		"boundary_layer_height": [750, 0],
		"temperature_2m": [18.5, 19.1],
		"precipitation": [0, 1.2]
	}
}`

func TestFetchHourly(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RawQuery
		w.Write([]byte(openMeteoFixture))
	}))
	defer srv.Close()

	p, err := geo.NewPoint(34.05, -118.24)
	if err != nil {
		t.Fatalf("NewPoint: %v", err)
	}
	start := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)

	okBefore := testutil.ToFloat64(metrics.LoaderFetchesTotal.WithLabelValues("openmeteo", "ok"))
	series, err := NewOpenMeteoWithBase(srv.URL).FetchHourly(p, start, start)
	if err != nil {
		t.Fatalf("FetchHourly: %v", err)
	}
	if got := testutil.ToFloat64(metrics.LoaderFetchesTotal.WithLabelValues("openmeteo", "ok")); got != okBefore+1 {
		t.Errorf("openmeteo ok fetches = %v, want %v", got, okBefore+1)
	}
	if !strings.Contains(gotPath, "wind_speed_unit=ms") {
		t.Errorf("query %q missing m/s wind unit", gotPath)
	}
	if len(series.Hours) != 2 {
		t.Fatalf("got %d hours, want 2", len(series.Hours))
	}

	first := series.Hours[time.Date(2024, 2, 15, 11, 0, 0, 0, time.UTC)]
	if first.WindSpeed != 5.2 || first.PBLHeight != 750 {
		t.Errorf("first hour = %+v, want wind 5.2 pbl 750", first)
	}

	second := series.Hours[time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC)]
	if second.PBLHeight != 800 {
		t.Errorf("missing pbl hour = %v, want default 800", second.PBLHeight)
	}
	if second.Precipitation != 1.2 {
		t.Errorf("second hour precipitation = %v, want 1.2", second.Precipitation)
	}
}

func TestFetchHourlyServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	p, _ := geo.NewPoint(34.05, -118.24)
	start := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	errBefore := testutil.ToFloat64(metrics.LoaderFetchesTotal.WithLabelValues("openmeteo", "error"))
	if _, err := NewOpenMeteoWithBase(srv.URL).FetchHourly(p, start, start); err == nil {
		t.Error("FetchHourly succeeded on a 400 response")
	}
	if got := testutil.ToFloat64(metrics.LoaderFetchesTotal.WithLabelValues("openmeteo", "error")); got != errBefore+1 {
		t.Errorf("openmeteo error fetches = %v, want %v", got, errBefore+1)
	}
}

const firmsFixture = `latitude,longitude,bright_ti4,acq_date,acq_time,confidence,frp
34.12,-118.45,330.5,2024-02-15,945,n,12.5
34.30,-118.60,340.2,2024-02-15,2130,h,88.0
bad,row,skipped,2024-02-15,1200,n,1.0
`

func TestParseFIRMS(t *testing.T) {
	fires, err := ParseFIRMS([]byte(firmsFixture))
	if err != nil {
		t.Fatalf("ParseFIRMS: %v", err)
	}
	if len(fires) != 2 {
		t.Fatalf("got %d fires, want 2", len(fires))
	}
	if fires[0].FRP != 12.5 || fires[0].Confidence != "n" {
		t.Errorf("fire 0 = %+v, want frp 12.5 confidence n", fires[0])
	}
	if want := time.Date(2024, 2, 15, 9, 45, 0, 0, time.UTC); !fires[0].AcquiredAt.Equal(want) {
		t.Errorf("fire 0 acquired = %v, want %v", fires[0].AcquiredAt, want)
	}
	if want := time.Date(2024, 2, 15, 21, 30, 0, 0, time.UTC); !fires[1].AcquiredAt.Equal(want) {
		t.Errorf("fire 1 acquired = %v, want %v", fires[1].AcquiredAt, want)
	}
}

func TestParseFIRMSTruncatedRow(t *testing.T) {
	// A download cut off mid-row leaves a tail shorter than the header.
	truncated := firmsFixture + "34.2,-118.5\n"
	fires, err := ParseFIRMS([]byte(truncated))
	if err != nil {
		t.Fatalf("ParseFIRMS: %v", err)
	}
	if len(fires) != 2 {
		t.Errorf("got %d fires, want 2 (truncated row skipped)", len(fires))
	}
}

func TestParseFIRMSNegativeFRP(t *testing.T) {
	bad := "latitude,longitude,frp,acq_date,acq_time\n34.1,-118.4,-5,2024-02-15,1200\n"
	if _, err := ParseFIRMS([]byte(bad)); err == nil {
		t.Error("ParseFIRMS accepted a negative FRP")
	}
}

func TestParseFIRMSEmpty(t *testing.T) {
	fires, err := ParseFIRMS(nil)
	if err != nil {
		t.Fatalf("ParseFIRMS: %v", err)
	}
	if len(fires) != 0 {
		t.Errorf("got %d fires from empty input, want 0", len(fires))
	}
}

const epaFixture = `"Latitude","Longitude","Parameter Name","Sample Measurement","Units of Measure","Date GMT","Time GMT"
34.0669,-118.2417,"Nitrogen dioxide (NO2)",23.4,"Parts per billion","2024-02-15","19:00"
34.0669,-118.2417,"Ozone",41.0,"Parts per billion","2024-02-15","19:00"
34.0669,-118.2417,"Nitrogen dioxide (NO2)",19.8,"Parts per billion","2024-02-15","18:00"
`

func TestParseEPA(t *testing.T) {
	got, err := ParseEPA(strings.NewReader(epaFixture), "Nitrogen dioxide (NO2)")
	if err != nil {
		t.Fatalf("ParseEPA: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d measurements, want 2 (ozone filtered)", len(got))
	}
	if !got[0].Timestamp.Before(got[1].Timestamp) {
		t.Errorf("measurements not chronological: %v then %v", got[0].Timestamp, got[1].Timestamp)
	}
	if got[0].Value != 19.8 {
		t.Errorf("earliest value = %v, want 19.8", got[0].Value)
	}
	if got[1].Unit != "Parts per billion" {
		t.Errorf("unit = %q, want Parts per billion", got[1].Unit)
	}
}

func TestParseEPATruncatedRow(t *testing.T) {
	truncated := epaFixture + `34.0669,-118.2417,"Nitrogen dioxide (NO2)",9.9` + "\n"
	got, err := ParseEPA(strings.NewReader(truncated), "Nitrogen dioxide (NO2)")
	if err != nil {
		t.Fatalf("ParseEPA: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d measurements, want 2 (truncated row skipped)", len(got))
	}
}

func TestParseEPAMissingColumn(t *testing.T) {
	bad := "Latitude,Longitude\n34,-118\n"
	if _, err := ParseEPA(strings.NewReader(bad), "Nitrogen dioxide (NO2)"); err == nil {
		t.Error("ParseEPA accepted a header missing required columns")
	}
}
