// Package raster provides the in-memory raster model and the spatial
// operations of the pipeline: a minimal GeoTIFF codec, CRS projection
// math, clipping/reprojection/resampling, validation, and preview
// rendering. Everything here is pure computation with no side effects.
package raster

import (
	"fmt"
	"math"
)

// Grid is a single-band, north-up raster: row-major float64 samples with
// a top-left origin and square-ish pixels. X/Y are CRS units (degrees for
// geographic systems, meters for projected ones).
type Grid struct {
	CRS     string // "EPSG:4326", "EPSG:3857", "EPSG:5070"
	OriginX float64
	OriginY float64
	PixelW  float64 // positive, X units per column
	PixelH  float64 // positive, Y units per row (rows advance southward)
	Width   int
	Height  int
	NoData  *float64
	Data    []float64
}

// NewGrid allocates a grid filled with the nodata value (or zero when
// nodata is nil).
func NewGrid(crs string, originX, originY, pixelW, pixelH float64, width, height int, nodata *float64) *Grid {
	g := &Grid{
		CRS:     crs,
		OriginX: originX,
		OriginY: originY,
		PixelW:  pixelW,
		PixelH:  pixelH,
		Width:   width,
		Height:  height,
		NoData:  nodata,
		Data:    make([]float64, width*height),
	}
	if nodata != nil && *nodata != 0 {
		for i := range g.Data {
			g.Data[i] = *nodata
		}
	}
	return g
}

// At returns the sample at (col, row). Out-of-range access panics, the
// same contract as slice indexing.
func (g *Grid) At(col, row int) float64 {
	return g.Data[row*g.Width+col]
}

// Set writes the sample at (col, row).
func (g *Grid) Set(col, row int, v float64) {
	g.Data[row*g.Width+col] = v
}

// IsNoData reports whether v equals the grid's nodata value.
func (g *Grid) IsNoData(v float64) bool {
	if g.NoData == nil {
		return false
	}
	return v == *g.NoData || (math.IsNaN(v) && math.IsNaN(*g.NoData))
}

// Bounds returns (minX, minY, maxX, maxY) in CRS units.
func (g *Grid) Bounds() (minX, minY, maxX, maxY float64) {
	minX = g.OriginX
	maxX = g.OriginX + float64(g.Width)*g.PixelW
	maxY = g.OriginY
	minY = g.OriginY - float64(g.Height)*g.PixelH
	return minX, minY, maxX, maxY
}

// CellCenter returns the CRS coordinates of a pixel center.
func (g *Grid) CellCenter(col, row int) (x, y float64) {
	x = g.OriginX + (float64(col)+0.5)*g.PixelW
	y = g.OriginY - (float64(row)+0.5)*g.PixelH
	return x, y
}

// cellOf returns the pixel indices containing CRS point (x, y); ok is
// false outside the grid.
func (g *Grid) cellOf(x, y float64) (col, row int, ok bool) {
	fc := (x - g.OriginX) / g.PixelW
	fr := (g.OriginY - y) / g.PixelH
	col = int(math.Floor(fc))
	row = int(math.Floor(fr))
	ok = col >= 0 && col < g.Width && row >= 0 && row < g.Height
	return col, row, ok
}

// Stats returns the observed min/max over valid samples and the valid
// sample count.
func (g *Grid) Stats() (min, max float64, valid int) {
	min = math.Inf(1)
	max = math.Inf(-1)
	for _, v := range g.Data {
		if g.IsNoData(v) || math.IsNaN(v) {
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		valid++
	}
	if valid == 0 {
		return 0, 0, 0
	}
	return min, max, valid
}

// sampleNearest reads the nearest pixel to CRS point (x, y); ok is false
// outside the grid or on nodata.
func (g *Grid) sampleNearest(x, y float64) (float64, bool) {
	col, row, ok := g.cellOf(x, y)
	if !ok {
		return 0, false
	}
	v := g.At(col, row)
	if g.IsNoData(v) {
		return 0, false
	}
	return v, true
}

// sampleBilinear interpolates the four pixel centers around CRS point
// (x, y), skipping nodata neighbors. ok is false when no valid neighbor
// exists.
func (g *Grid) sampleBilinear(x, y float64) (float64, bool) {
	fc := (x-g.OriginX)/g.PixelW - 0.5
	fr := (g.OriginY-y)/g.PixelH - 0.5
	c0 := int(math.Floor(fc))
	r0 := int(math.Floor(fr))
	dx := fc - float64(c0)
	dy := fr - float64(r0)

	var sum, weight float64
	for dr := 0; dr <= 1; dr++ {
		for dc := 0; dc <= 1; dc++ {
			c, r := c0+dc, r0+dr
			if c < 0 || c >= g.Width || r < 0 || r >= g.Height {
				continue
			}
			v := g.At(c, r)
			if g.IsNoData(v) || math.IsNaN(v) {
				continue
			}
			w := (1 - math.Abs(float64(dc)-dx)) * (1 - math.Abs(float64(dr)-dy))
			if w <= 0 {
				continue
			}
			sum += w * v
			weight += w
		}
	}
	if weight == 0 {
		return 0, false
	}
	return sum / weight, true
}

func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%s %dx%d @%g)", g.CRS, g.Width, g.Height, g.PixelW)
}
