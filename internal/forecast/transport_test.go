package forecast

import (
	"errors"
	"testing"
	"time"

	"github.com/atmoscast/atmoscast/internal/meteo"
	"github.com/atmoscast/atmoscast/internal/physics"
)

func TestAdvectNilSource(t *testing.T) {
	tr := NewTransport(physics.DefaultFactors(), nil)
	wx := meteo.DefaultConditions(testT0)

	_, _, err := tr.Advect(nil, Trends{}, wx, nil, 1, 1)
	var missing *MissingDataError
	if !errors.As(err, &missing) {
		t.Fatalf("Advect(nil source) error = %v, want MissingDataError", err)
	}
}

func TestAdvectMalformedWeather(t *testing.T) {
	tr := NewTransport(physics.DefaultFactors(), nil)
	source := testGrid(t, testT0, 5e15)

	tests := []struct {
		name string
		mod  func(*meteo.Conditions)
	}{
		{name: "negative wind speed", mod: func(c *meteo.Conditions) { c.WindSpeed = -1 }},
		{name: "zero pbl", mod: func(c *meteo.Conditions) { c.PBLHeight = 0 }},
		{name: "negative pbl", mod: func(c *meteo.Conditions) { c.PBLHeight = -50 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wx := meteo.DefaultConditions(testT0)
			tt.mod(&wx)
			if _, _, err := tr.Advect(source, Trends{}, wx, nil, 1, 1); err == nil {
				t.Error("Advect accepted malformed weather")
			}
		})
	}
}

func TestAdvectTimestampAndShape(t *testing.T) {
	tr := NewTransport(physics.DefaultFactors(), nil)
	source := testGrid(t, testT0, 5e15)
	wx := meteo.DefaultConditions(testT0.Add(2 * time.Hour))

	got, confidence, err := tr.Advect(source, Trends{WindStability: 0.8}, wx, nil, 2, 2)
	if err != nil {
		t.Fatalf("Advect: %v", err)
	}
	if len(got.Cells) != len(source.Cells) {
		t.Errorf("cell count = %d, want %d", len(got.Cells), len(source.Cells))
	}
	if want := testT0.Add(2 * time.Hour); !got.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, want)
	}
	if confidence <= 0 || confidence > 1 {
		t.Errorf("confidence = %v, want in (0, 1]", confidence)
	}
	for i, c := range got.Cells {
		if c.NO2Column == nil || c.NO2Surface == nil {
			t.Fatalf("cell %d lost its values", i)
		}
		if *c.NO2Column < 0 {
			t.Errorf("cell %d column = %v, want >= 0", i, *c.NO2Column)
		}
	}
}

func TestAdvectSourceUnchanged(t *testing.T) {
	tr := NewTransport(physics.DefaultFactors(), nil)
	source := testGrid(t, testT0, 5e15)
	wx := meteo.DefaultConditions(testT0.Add(time.Hour))

	if _, _, err := tr.Advect(source, Trends{WindStability: 1}, wx, nil, 1, 1); err != nil {
		t.Fatalf("Advect: %v", err)
	}
	for i, c := range source.Cells {
		if *c.NO2Column != 5e15 {
			t.Errorf("source cell %d mutated to %v", i, *c.NO2Column)
		}
	}
	if !source.Timestamp.Equal(testT0) {
		t.Errorf("source timestamp mutated to %v", source.Timestamp)
	}
}

func TestAdvectTrendExtrapolation(t *testing.T) {
	// Under a dead-calm stability of 0 the advected term drops out and the
	// column follows the trend alone. Uniform grid keeps IDW irrelevant.
	tr := NewTransport(physics.DefaultFactors(), nil)
	source := testGrid(t, testT0, 5e15)
	wx := meteo.DefaultConditions(testT0.Add(2 * time.Hour))
	trends := Trends{NO2Trend: 1e14, WindStability: 0, SampleCount: 4}

	got, _, err := tr.Advect(source, trends, wx, nil, 2, 2)
	if err != nil {
		t.Fatalf("Advect: %v", err)
	}
	want := 5e15 + 2*1e14
	for i, c := range got.Cells {
		if diff := *c.NO2Column - want; diff > 1 || diff < -1 {
			t.Errorf("cell %d column = %v, want %v", i, *c.NO2Column, want)
		}
	}
}

func TestAdvectNegativeClamped(t *testing.T) {
	tr := NewTransport(physics.DefaultFactors(), nil)
	source := testGrid(t, testT0, 1e14)
	wx := meteo.DefaultConditions(testT0.Add(time.Hour))
	trends := Trends{NO2Trend: -5e14, WindStability: 0, SampleCount: 4}

	got, _, err := tr.Advect(source, trends, wx, nil, 1, 1)
	if err != nil {
		t.Fatalf("Advect: %v", err)
	}
	for i, c := range got.Cells {
		if *c.NO2Column != 0 {
			t.Errorf("cell %d column = %v, want clamped to 0", i, *c.NO2Column)
		}
		if *c.NO2Surface < 0 {
			t.Errorf("cell %d surface = %v, want >= 0", i, *c.NO2Surface)
		}
	}
}

func TestAdvectWashoutReducesSurface(t *testing.T) {
	tr := NewTransport(physics.DefaultFactors(), nil)
	source := testGrid(t, testT0, 5e15)
	trends := Trends{WindStability: 1, SampleCount: 4}

	dry := meteo.DefaultConditions(testT0.Add(time.Hour))
	wet := dry
	wet.Precipitation = 5

	dryGrid, _, err := tr.Advect(source, trends, dry, nil, 1, 1)
	if err != nil {
		t.Fatalf("Advect dry: %v", err)
	}
	wetGrid, _, err := tr.Advect(source, trends, wet, nil, 1, 1)
	if err != nil {
		t.Fatalf("Advect wet: %v", err)
	}
	for i := range dryGrid.Cells {
		d, w := *dryGrid.Cells[i].NO2Surface, *wetGrid.Cells[i].NO2Surface
		if d <= 0 {
			t.Fatalf("cell %d dry surface = %v, want positive", i, d)
		}
		if w >= d {
			t.Errorf("cell %d wet surface %v not below dry %v", i, w, d)
		}
	}
}

func TestAdvectFiresRaiseSurface(t *testing.T) {
	tr := NewTransport(physics.DefaultFactors(), nil)
	source := testGrid(t, testT0, 5e15)
	wx := meteo.DefaultConditions(testT0.Add(time.Hour))
	trends := Trends{WindStability: 1, SampleCount: 4}

	clean, _, err := tr.Advect(source, trends, wx, nil, 1, 1)
	if err != nil {
		t.Fatalf("Advect clean: %v", err)
	}
	fires := []physics.Fire{{Latitude: 34.05, Longitude: -118.25, FRP: 120}}
	smoky, _, err := tr.Advect(source, trends, wx, fires, 1, 1)
	if err != nil {
		t.Fatalf("Advect with fires: %v", err)
	}
	for i := range clean.Cells {
		if *smoky.Cells[i].NO2Surface <= *clean.Cells[i].NO2Surface {
			t.Errorf("cell %d: fire did not raise surface (%v vs %v)",
				i, *smoky.Cells[i].NO2Surface, *clean.Cells[i].NO2Surface)
		}
	}
}

func TestConfidenceDecaysWithHorizon(t *testing.T) {
	tr := NewTransport(physics.DefaultFactors(), nil)
	source := testGrid(t, testT0, 5e15)
	trends := Trends{WindStability: 0.9, SampleCount: 4}

	var prev float64 = 2
	for _, h := range []float64{1, 2, 3, 6, 12} {
		wx := meteo.DefaultConditions(testT0.Add(time.Duration(h) * time.Hour))
		_, confidence, err := tr.Advect(source, trends, wx, nil, h, h)
		if err != nil {
			t.Fatalf("Advect h=%v: %v", h, err)
		}
		if confidence <= 0 || confidence > 1 {
			t.Errorf("h=%v: confidence = %v, want in (0, 1]", h, confidence)
		}
		if confidence > prev {
			t.Errorf("h=%v: confidence %v increased from %v", h, confidence, prev)
		}
		prev = confidence
	}
}

func TestConfidenceFloorAtZeroStability(t *testing.T) {
	tr := NewTransport(physics.DefaultFactors(), nil)
	source := testGrid(t, testT0, 5e15)
	wx := meteo.DefaultConditions(testT0.Add(time.Hour))

	_, confidence, err := tr.Advect(source, Trends{WindStability: 0}, wx, nil, 1, 1)
	if err != nil {
		t.Fatalf("Advect: %v", err)
	}
	if confidence <= 0 {
		t.Errorf("confidence = %v, want strictly positive", confidence)
	}
}

func TestInterpolateColumnGradient(t *testing.T) {
	// Southern row carries 2e15, northern row 8e15. A point between the
	// rows must land strictly between the two values.
	source := testGrid(t, testT0, 0)
	for i := range source.Cells {
		var v float64 = 2e15
		if source.Cells[i].Latitude > 34.05 {
			v = 8e15
		}
		source.Cells[i].NO2Column = &v
	}

	mid := source.Cells[0].Point()
	mid.Latitude = 34.05
	got, ok := interpolateColumn(source, mid)
	if !ok {
		t.Fatal("interpolateColumn found no neighbors")
	}
	if got <= 2e15 || got >= 8e15 {
		t.Errorf("interpolated = %v, want between 2e15 and 8e15", got)
	}

	onCell := source.Cells[0].Point()
	got, ok = interpolateColumn(source, onCell)
	if !ok {
		t.Fatal("interpolateColumn found no neighbors at a cell location")
	}
	if diff := got - 2e15; diff > 1e12 || diff < -1e12 {
		t.Errorf("on-cell interpolation = %v, want ~2e15", got)
	}
}

func TestInterpolateColumnNoValues(t *testing.T) {
	source := testGrid(t, testT0, 5e15)
	for i := range source.Cells {
		source.Cells[i].NO2Column = nil
	}
	if _, ok := interpolateColumn(source, source.Cells[0].Point()); ok {
		t.Error("interpolateColumn reported success with no column values")
	}
}
