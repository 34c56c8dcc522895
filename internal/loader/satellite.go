// Package loader materializes grids, weather, fire and ground-truth records
// from their external sources. The forecast core never performs I/O; it
// consumes what this package hands it.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/atmoscast/atmoscast/internal/geo"
	"github.com/atmoscast/atmoscast/internal/grid"
)

// GridLoader turns one satellite snapshot into a grid. Implementations own
// the file-format details so the core stays independent of them.
type GridLoader interface {
	Load(ctx context.Context, path string) (*grid.Grid, error)
}

// ExecLoader shells out to an external extractor that reads a satellite
// granule and prints the cell grid as JSON on stdout.
type ExecLoader struct {
	// Command is the extractor binary, e.g. "extract-tempo-grid".
	Command string
	// Args precede the granule path on the command line.
	Args []string
}

type gridDocument struct {
	Cells  []cellDocument `json:"cells"`
	Bounds struct {
		West  float64 `json:"west"`
		South float64 `json:"south"`
		East  float64 `json:"east"`
		North float64 `json:"north"`
	} `json:"bounds"`
	Resolution float64   `json:"resolution"`
	Timestamp  time.Time `json:"timestamp"`
}

type cellDocument struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	NO2Column *float64 `json:"no2_column"`
	PMIndex   *float64 `json:"pm_index"`
}

func (l *ExecLoader) Load(ctx context.Context, path string) (*grid.Grid, error) {
	args := append(append([]string{}, l.Args...), path)
	out, err := exec.CommandContext(ctx, l.Command, args...).Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("extractor %s: %w: %s", l.Command, err, string(ee.Stderr))
		}
		return nil, fmt.Errorf("extractor %s: %w", l.Command, err)
	}
	return ParseGrid(out)
}

// ParseGrid decodes the extractor's JSON document into a validated grid.
func ParseGrid(data []byte) (*grid.Grid, error) {
	var doc gridDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse grid: %w", err)
	}

	bounds, err := geo.NewBoundingBox(doc.Bounds.West, doc.Bounds.South, doc.Bounds.East, doc.Bounds.North)
	if err != nil {
		return nil, fmt.Errorf("parse grid: %w", err)
	}

	cells := make([]grid.Cell, len(doc.Cells))
	for i, c := range doc.Cells {
		cells[i] = grid.Cell{
			Latitude:  c.Latitude,
			Longitude: c.Longitude,
			NO2Column: c.NO2Column,
			PMIndex:   c.PMIndex,
		}
	}

	g, err := grid.New(cells, bounds, doc.Resolution, doc.Timestamp.UTC())
	if err != nil {
		return nil, fmt.Errorf("parse grid: %w", err)
	}
	return g, nil
}
