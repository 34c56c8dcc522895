// Package grid models a geolocated snapshot of satellite column densities
// and the surface values derived from them.
package grid

import (
	"fmt"
	"time"

	"github.com/atmoscast/atmoscast/internal/geo"
)

// Cell is one grid point. Column density comes from the satellite
// extraction; surface values are filled in by the converter and are nil
// until then. PMIndex is an optional aerosol index carried alongside.
type Cell struct {
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`
	NO2Column  *float64 `json:"no2_column,omitempty"`
	NO2Surface *float64 `json:"no2_surface,omitempty"`
	PMIndex    *float64 `json:"pm_index,omitempty"`
}

// Point returns the cell's location.
func (c *Cell) Point() geo.Point {
	return geo.Point{Latitude: c.Latitude, Longitude: c.Longitude}
}

// Grid is one satellite snapshot (or one forecast horizon): a set of cells
// bound to an extent, a resolution in degrees and a timestamp.
type Grid struct {
	Cells      []Cell          `json:"cells"`
	Bounds     geo.BoundingBox `json:"bounds"`
	Resolution float64         `json:"resolution"`
	Timestamp  time.Time       `json:"timestamp"`
}

// New validates that every cell falls inside bounds.
func New(cells []Cell, bounds geo.BoundingBox, resolution float64, ts time.Time) (*Grid, error) {
	if resolution <= 0 {
		return nil, &geo.ValidationError{Field: "resolution", Message: fmt.Sprintf("%v must be positive", resolution)}
	}
	for i := range cells {
		if !bounds.Contains(cells[i].Point()) {
			return nil, &geo.ValidationError{
				Field:   "cells",
				Message: fmt.Sprintf("cell %d at (%v, %v) outside bounds", i, cells[i].Latitude, cells[i].Longitude),
			}
		}
	}
	return &Grid{Cells: cells, Bounds: bounds, Resolution: resolution, Timestamp: ts}, nil
}

// NearestCell returns the cell closest to p and its distance in km, or nil
// for an empty grid.
func (g *Grid) NearestCell(p geo.Point) (*Cell, float64) {
	var nearest *Cell
	best := 0.0
	for i := range g.Cells {
		d := geo.DistanceKm(p, g.Cells[i].Point())
		if nearest == nil || d < best {
			nearest = &g.Cells[i]
			best = d
		}
	}
	return nearest, best
}

// CellsInRadius returns all cells within radiusKm of p.
func (g *Grid) CellsInRadius(p geo.Point, radiusKm float64) []*Cell {
	var out []*Cell
	for i := range g.Cells {
		if geo.DistanceKm(p, g.Cells[i].Point()) <= radiusKm {
			out = append(out, &g.Cells[i])
		}
	}
	return out
}

// CellsToward returns the cells within searchRadiusKm of the point
// distanceKm away from p along bearing. This is the shared primitive behind
// upwind, downwind and cardinal neighborhood queries.
func (g *Grid) CellsToward(p geo.Point, bearingDeg, distanceKm, searchRadiusKm float64) []*Cell {
	target := geo.Offset(p, bearingDeg, distanceKm)
	return g.CellsInRadius(target, searchRadiusKm)
}

// ColumnValues extracts the positive column densities from a cell set.
// Cells with missing or non-positive columns are skipped.
func ColumnValues(cells []*Cell) []float64 {
	var out []float64
	for _, c := range cells {
		if c.NO2Column != nil && *c.NO2Column > 0 {
			out = append(out, *c.NO2Column)
		}
	}
	return out
}

// MeanColumn returns the spatial mean column density over the whole grid,
// or 0 when no cell carries one.
func (g *Grid) MeanColumn() float64 {
	var sum float64
	var n int
	for i := range g.Cells {
		if g.Cells[i].NO2Column != nil && *g.Cells[i].NO2Column > 0 {
			sum += *g.Cells[i].NO2Column
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// MeanSurface returns the spatial mean surface concentration, or 0 when no
// cell has been converted yet.
func (g *Grid) MeanSurface() float64 {
	var sum float64
	var n int
	for i := range g.Cells {
		if g.Cells[i].NO2Surface != nil {
			sum += *g.Cells[i].NO2Surface
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Clone deep-copies the grid so a forecast horizon can be derived without
// mutating its source.
func (g *Grid) Clone() *Grid {
	cells := make([]Cell, len(g.Cells))
	for i, c := range g.Cells {
		cells[i] = Cell{Latitude: c.Latitude, Longitude: c.Longitude}
		if c.NO2Column != nil {
			v := *c.NO2Column
			cells[i].NO2Column = &v
		}
		if c.NO2Surface != nil {
			v := *c.NO2Surface
			cells[i].NO2Surface = &v
		}
		if c.PMIndex != nil {
			v := *c.PMIndex
			cells[i].PMIndex = &v
		}
	}
	return &Grid{Cells: cells, Bounds: g.Bounds, Resolution: g.Resolution, Timestamp: g.Timestamp}
}
