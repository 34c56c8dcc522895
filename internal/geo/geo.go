// Package geo holds the validated geospatial primitives and the
// great-circle math shared by the transport operator and the feature
// extractor. Keeping bearing/distance math in one place is what guarantees
// upwind and downwind mean the same thing everywhere.
package geo

import (
	"fmt"
	"time"
)

// ValidationError reports a malformed geographic or temporal input. These
// are detected at construction and never silently clamped.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Point is a WGS84 coordinate pair.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewPoint validates latitude/longitude ranges.
func NewPoint(lat, lon float64) (Point, error) {
	if lat < -90 || lat > 90 {
		return Point{}, &ValidationError{Field: "latitude", Message: fmt.Sprintf("%v out of range [-90, 90]", lat)}
	}
	if lon < -180 || lon > 180 {
		return Point{}, &ValidationError{Field: "longitude", Message: fmt.Sprintf("%v out of range [-180, 180]", lon)}
	}
	return Point{Latitude: lat, Longitude: lon}, nil
}

// BoundingBox is a geographic extent. West must be strictly less than east
// and south strictly less than north.
type BoundingBox struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

func NewBoundingBox(west, south, east, north float64) (BoundingBox, error) {
	if west < -180 || west > 180 || east < -180 || east > 180 {
		return BoundingBox{}, &ValidationError{Field: "longitude", Message: "bounds out of range [-180, 180]"}
	}
	if south < -90 || south > 90 || north < -90 || north > 90 {
		return BoundingBox{}, &ValidationError{Field: "latitude", Message: "bounds out of range [-90, 90]"}
	}
	if west >= east {
		return BoundingBox{}, &ValidationError{Field: "bounds", Message: fmt.Sprintf("west %v must be less than east %v", west, east)}
	}
	if south >= north {
		return BoundingBox{}, &ValidationError{Field: "bounds", Message: fmt.Sprintf("south %v must be less than north %v", south, north)}
	}
	return BoundingBox{West: west, South: south, East: east, North: north}, nil
}

// Width returns the longitudinal extent in degrees.
func (b BoundingBox) Width() float64 { return b.East - b.West }

// Height returns the latitudinal extent in degrees.
func (b BoundingBox) Height() float64 { return b.North - b.South }

// Center returns the midpoint of the box.
func (b BoundingBox) Center() Point {
	return Point{Latitude: (b.South + b.North) / 2, Longitude: (b.West + b.East) / 2}
}

// Contains reports whether p falls within the box (inclusive).
func (b BoundingBox) Contains(p Point) bool {
	return p.Latitude >= b.South && p.Latitude <= b.North &&
		p.Longitude >= b.West && p.Longitude <= b.East
}

// TimeRange is a half-open [Start, End) interval.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if !start.Before(end) {
		return TimeRange{}, &ValidationError{Field: "time range", Message: fmt.Sprintf("start %s must be before end %s", start.Format(time.RFC3339), end.Format(time.RFC3339))}
	}
	return TimeRange{Start: start, End: end}, nil
}

// Contains reports whether t falls within the range.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Duration returns the length of the range.
func (r TimeRange) Duration() time.Duration { return r.End.Sub(r.Start) }
