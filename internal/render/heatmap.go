// Package render turns forecast grids into PNG heatmaps for dashboards and
// social previews.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/atmoscast/atmoscast/internal/grid"
)

// Options controls the output raster. Zero values fall back to defaults.
type Options struct {
	Width  int
	Height int
	// MaxSurface pins the top of the color ramp; 0 means scale to the
	// grid's own maximum.
	MaxSurface float64
}

const (
	defaultWidth  = 800
	defaultHeight = 600
)

// Heatmap rasterizes the grid's surface concentrations onto a lat/lon
// raster, upscales it smoothly and encodes PNG. Cells without a surface
// value render as transparent.
func Heatmap(g *grid.Grid, opts Options) ([]byte, error) {
	if g == nil || len(g.Cells) == 0 {
		return nil, fmt.Errorf("render: no cells to draw")
	}
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = defaultHeight
	}

	cols := int(math.Round(g.Bounds.Width() / g.Resolution))
	rows := int(math.Round(g.Bounds.Height() / g.Resolution))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	maxSurface := opts.MaxSurface
	if maxSurface <= 0 {
		for i := range g.Cells {
			if s := g.Cells[i].NO2Surface; s != nil && *s > maxSurface {
				maxSurface = *s
			}
		}
	}
	if maxSurface <= 0 {
		return nil, fmt.Errorf("render: grid has no surface values")
	}

	raster := image.NewRGBA(image.Rect(0, 0, cols, rows))
	for i := range g.Cells {
		c := &g.Cells[i]
		if c.NO2Surface == nil {
			continue
		}
		x := int((c.Longitude - g.Bounds.West) / g.Resolution)
		// Row 0 is the northern edge.
		y := int((g.Bounds.North - c.Latitude) / g.Resolution)
		if x < 0 || x >= cols || y < 0 || y >= rows {
			continue
		}
		raster.SetRGBA(x, y, rampColor(*c.NO2Surface/maxSurface))
	}

	out := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	xdraw.CatmullRom.Scale(out, out.Bounds(), raster, raster.Bounds(), xdraw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("render: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// rampColor maps a normalized concentration onto a blue-green-yellow-red
// ramp. Input clamps to [0, 1].
func rampColor(t float64) color.RGBA {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}

	type stop struct {
		at      float64
		r, g, b float64
	}
	stops := []stop{
		{0.00, 38, 70, 160},
		{0.33, 46, 160, 90},
		{0.66, 235, 200, 50},
		{1.00, 200, 40, 35},
	}

	for i := 0; i < len(stops)-1; i++ {
		lo, hi := stops[i], stops[i+1]
		if t > hi.at {
			continue
		}
		f := (t - lo.at) / (hi.at - lo.at)
		return color.RGBA{
			R: uint8(lo.r + f*(hi.r-lo.r)),
			G: uint8(lo.g + f*(hi.g-lo.g)),
			B: uint8(lo.b + f*(hi.b-lo.b)),
			A: 255,
		}
	}
	last := stops[len(stops)-1]
	return color.RGBA{R: uint8(last.r), G: uint8(last.g), B: uint8(last.b), A: 255}
}
