package grid

import (
	"math"
	"testing"
	"time"

	"github.com/atmoscast/atmoscast/internal/geo"
)

func fp(v float64) *float64 { return &v }

func laBounds(t *testing.T) geo.BoundingBox {
	t.Helper()
	b, err := geo.NewBoundingBox(-119, 33, -117, 35)
	if err != nil {
		t.Fatalf("NewBoundingBox: %v", err)
	}
	return b
}

func TestNew(t *testing.T) {
	bounds := laBounds(t)
	ts := time.Date(2024, 2, 15, 14, 0, 0, 0, time.UTC)

	cells := []Cell{
		{Latitude: 34.05, Longitude: -118.24, NO2Column: fp(5e15)},
		{Latitude: 34.10, Longitude: -118.20, NO2Column: fp(3e15)},
	}
	g, err := New(cells, bounds, 0.02, ts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(g.Cells) != 2 {
		t.Errorf("len(Cells) = %d, want 2", len(g.Cells))
	}

	outside := []Cell{{Latitude: 36.0, Longitude: -118.24}}
	if _, err := New(outside, bounds, 0.02, ts); err == nil {
		t.Error("cell outside bounds: want error")
	}

	if _, err := New(cells, bounds, 0, ts); err == nil {
		t.Error("zero resolution: want error")
	}
}

func TestNearestCell(t *testing.T) {
	bounds := laBounds(t)
	cells := []Cell{
		{Latitude: 34.05, Longitude: -118.24, NO2Column: fp(5e15)},
		{Latitude: 34.50, Longitude: -118.00, NO2Column: fp(2e15)},
		{Latitude: 33.70, Longitude: -118.40, NO2Column: fp(1e15)},
	}
	g, err := New(cells, bounds, 0.02, time.Now())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Lookup at a cell's own coordinates returns that cell with distance 0.
	c, d := g.NearestCell(geo.Point{Latitude: 34.05, Longitude: -118.24})
	if c == nil || *c.NO2Column != 5e15 {
		t.Fatalf("NearestCell returned wrong cell: %+v", c)
	}
	if d != 0 {
		t.Errorf("distance = %v, want 0", d)
	}

	empty := &Grid{Bounds: bounds, Resolution: 0.02}
	if c, _ := empty.NearestCell(geo.Point{Latitude: 34, Longitude: -118}); c != nil {
		t.Errorf("NearestCell on empty grid = %+v, want nil", c)
	}
}

func TestCellsInRadius(t *testing.T) {
	bounds := laBounds(t)
	center := geo.Point{Latitude: 34.05, Longitude: -118.24}
	cells := []Cell{
		{Latitude: 34.05, Longitude: -118.24, NO2Column: fp(5e15)}, // 0 km
		{Latitude: 34.09, Longitude: -118.24, NO2Column: fp(4e15)}, // ~4.4 km
		{Latitude: 34.50, Longitude: -118.24, NO2Column: fp(3e15)}, // ~50 km
	}
	g, err := New(cells, bounds, 0.02, time.Now())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := len(g.CellsInRadius(center, 5)); got != 2 {
		t.Errorf("CellsInRadius(5km) = %d cells, want 2", got)
	}
	if got := len(g.CellsInRadius(center, 100)); got != 3 {
		t.Errorf("CellsInRadius(100km) = %d cells, want 3", got)
	}
	if got := g.CellsInRadius(center, 0.01); len(got) != 1 {
		t.Errorf("CellsInRadius(10m) = %d cells, want 1", len(got))
	}
}

func TestCellsToward(t *testing.T) {
	bounds := laBounds(t)
	center := geo.Point{Latitude: 34.05, Longitude: -118.24}

	// One cell ~10 km due north of center.
	north := geo.Offset(center, 0, 10)
	cells := []Cell{
		{Latitude: center.Latitude, Longitude: center.Longitude, NO2Column: fp(5e15)},
		{Latitude: north.Latitude, Longitude: north.Longitude, NO2Column: fp(8e15)},
	}
	g, err := New(cells, bounds, 0.02, time.Now())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got := g.CellsToward(center, 0, 10, 5)
	if len(got) != 1 || *got[0].NO2Column != 8e15 {
		t.Fatalf("CellsToward(north) = %d cells, want the northern cell", len(got))
	}

	if got := g.CellsToward(center, 180, 10, 5); len(got) != 0 {
		t.Errorf("CellsToward(south) = %d cells, want 0", len(got))
	}
}

func TestColumnValues(t *testing.T) {
	cells := []*Cell{
		{NO2Column: fp(5e15)},
		{NO2Column: fp(0)},  // non-positive: skipped
		{NO2Column: nil},    // missing: skipped
		{NO2Column: fp(-1)}, // negative: skipped
		{NO2Column: fp(2e15)},
	}
	got := ColumnValues(cells)
	if len(got) != 2 {
		t.Fatalf("ColumnValues = %v, want 2 values", got)
	}
	if got[0] != 5e15 || got[1] != 2e15 {
		t.Errorf("ColumnValues = %v", got)
	}
}

func TestMeans(t *testing.T) {
	bounds := laBounds(t)
	cells := []Cell{
		{Latitude: 34.0, Longitude: -118.2, NO2Column: fp(4e15), NO2Surface: fp(10)},
		{Latitude: 34.1, Longitude: -118.2, NO2Column: fp(6e15), NO2Surface: fp(20)},
		{Latitude: 34.2, Longitude: -118.2}, // no data
	}
	g, err := New(cells, bounds, 0.02, time.Now())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := g.MeanColumn(); math.Abs(got-5e15) > 1 {
		t.Errorf("MeanColumn = %v, want 5e15", got)
	}
	if got := g.MeanSurface(); math.Abs(got-15) > 1e-9 {
		t.Errorf("MeanSurface = %v, want 15", got)
	}

	empty := &Grid{Bounds: bounds}
	if got := empty.MeanColumn(); got != 0 {
		t.Errorf("empty MeanColumn = %v, want 0", got)
	}
}

func TestClone(t *testing.T) {
	bounds := laBounds(t)
	cells := []Cell{{Latitude: 34.05, Longitude: -118.24, NO2Column: fp(5e15)}}
	g, err := New(cells, bounds, 0.02, time.Now())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c := g.Clone()
	*c.Cells[0].NO2Column = 1e15
	if *g.Cells[0].NO2Column != 5e15 {
		t.Error("Clone shares column storage with the source grid")
	}
}
