package geo

import (
	"math"
	"testing"
	"time"
)

func TestNewPoint(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lon     float64
		wantErr bool
	}{
		{name: "valid", lat: 34.05, lon: -118.24},
		{name: "poles", lat: 90, lon: 180},
		{name: "lat too high", lat: 90.1, lon: 0, wantErr: true},
		{name: "lat too low", lat: -91, lon: 0, wantErr: true},
		{name: "lon too high", lat: 0, lon: 180.5, wantErr: true},
		{name: "lon too low", lat: 0, lon: -181, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPoint(tt.lat, tt.lon)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewPoint(%v, %v) error = %v, wantErr %v", tt.lat, tt.lon, err, tt.wantErr)
			}
		})
	}
}

func TestNewBoundingBox(t *testing.T) {
	tests := []struct {
		name                     string
		west, south, east, north float64
		wantErr                  bool
	}{
		{name: "valid", west: -119, south: 33, east: -117, north: 35},
		{name: "west equals east", west: -118, south: 33, east: -118, north: 35, wantErr: true},
		{name: "west past east", west: -117, south: 33, east: -118, north: 35, wantErr: true},
		{name: "south past north", west: -119, south: 35, east: -117, north: 33, wantErr: true},
		{name: "out of range", west: -190, south: 33, east: -117, north: 35, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBoundingBox(tt.west, tt.south, tt.east, tt.north)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewBoundingBox error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBoundingBoxDerived(t *testing.T) {
	b, err := NewBoundingBox(-119, 33, -117, 35)
	if err != nil {
		t.Fatalf("NewBoundingBox: %v", err)
	}
	if got := b.Width(); got != 2 {
		t.Errorf("Width() = %v, want 2", got)
	}
	if got := b.Height(); got != 2 {
		t.Errorf("Height() = %v, want 2", got)
	}
	c := b.Center()
	if c.Latitude != 34 || c.Longitude != -118 {
		t.Errorf("Center() = %+v, want (34, -118)", c)
	}
	if !b.Contains(Point{Latitude: 34.05, Longitude: -118.24}) {
		t.Error("Contains(LA) = false, want true")
	}
	if b.Contains(Point{Latitude: 36, Longitude: -118.24}) {
		t.Error("Contains(point north of box) = true, want false")
	}
}

func TestNewTimeRange(t *testing.T) {
	start := time.Date(2024, 2, 15, 14, 0, 0, 0, time.UTC)

	if _, err := NewTimeRange(start, start.Add(time.Hour)); err != nil {
		t.Errorf("valid range: %v", err)
	}
	if _, err := NewTimeRange(start, start); err == nil {
		t.Error("start == end: want error")
	}
	if _, err := NewTimeRange(start.Add(time.Hour), start); err == nil {
		t.Error("start after end: want error")
	}
}

func TestDistanceKm(t *testing.T) {
	la := Point{Latitude: 34.0522, Longitude: -118.2437}
	sd := Point{Latitude: 32.7157, Longitude: -117.1611}

	if got := DistanceKm(la, la); got != 0 {
		t.Errorf("DistanceKm(p, p) = %v, want 0", got)
	}

	// LA to San Diego is roughly 179 km.
	got := DistanceKm(la, sd)
	if got < 170 || got > 190 {
		t.Errorf("DistanceKm(LA, SD) = %v, want ~179", got)
	}

	if d1, d2 := DistanceKm(la, sd), DistanceKm(sd, la); math.Abs(d1-d2) > 1e-9 {
		t.Errorf("distance not symmetric: %v vs %v", d1, d2)
	}
}

func TestOffset(t *testing.T) {
	start := Point{Latitude: 34.05, Longitude: -118.24}

	tests := []struct {
		name    string
		bearing float64
		km      float64
	}{
		{name: "north 10km", bearing: 0, km: 10},
		{name: "east 25km", bearing: 90, km: 25},
		{name: "southwest 50km", bearing: 225, km: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest := Offset(start, tt.bearing, tt.km)
			got := DistanceKm(start, dest)
			if math.Abs(got-tt.km) > 0.01 {
				t.Errorf("distance to offset point = %v, want %v", got, tt.km)
			}
		})
	}

	// Moving north increases latitude, keeps longitude.
	north := Offset(start, 0, 10)
	if north.Latitude <= start.Latitude {
		t.Errorf("north offset latitude = %v, want > %v", north.Latitude, start.Latitude)
	}
	if math.Abs(north.Longitude-start.Longitude) > 1e-6 {
		t.Errorf("north offset longitude = %v, want %v", north.Longitude, start.Longitude)
	}
}

func TestOppositeBearing(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{in: 0, want: 180},
		{in: 90, want: 270},
		{in: 270, want: 90},
		{in: 350, want: 170},
	}
	for _, tt := range tests {
		if got := OppositeBearing(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("OppositeBearing(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDirectionalStability(t *testing.T) {
	tests := []struct {
		name    string
		degrees []float64
		want    float64
		tol     float64
	}{
		{name: "empty", degrees: nil, want: 0, tol: 0},
		{name: "steady wind", degrees: []float64{270, 270, 270, 270}, want: 1, tol: 1e-9},
		{name: "steady across north wrap", degrees: []float64{355, 5, 358, 2}, want: 1, tol: 0.01},
		{name: "opposing winds", degrees: []float64{0, 180, 0, 180}, want: 0, tol: 1e-9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DirectionalStability(tt.degrees)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("DirectionalStability(%v) = %v, want %v", tt.degrees, got, tt.want)
			}
			if got < 0 || got > 1 {
				t.Errorf("stability %v outside [0, 1]", got)
			}
		})
	}
}
