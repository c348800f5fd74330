package raster

import (
	"fmt"
	"math"

	"github.com/urbanlens/urbanlens/internal/core/domain"
)

// Resampling selects the interpolation used when pixels are remapped.
type Resampling int

const (
	// Bilinear suits continuous measurements (NDVI, canopy percent,
	// population density).
	Bilinear Resampling = iota
	// Nearest preserves class codes in categorical rasters.
	Nearest
)

// Processor clips, reprojects, and aligns grids onto a consistent target
// grid. Pure transformation: inputs are never modified.
type Processor struct {
	TargetCRS  string
	Resolution float64 // target pixel size in TargetCRS units
}

// NewProcessor validates the target CRS up front.
func NewProcessor(targetCRS string, resolution float64) (*Processor, error) {
	if !SupportedCRS(targetCRS) {
		return nil, fmt.Errorf("%w: unsupported target CRS %q", domain.ErrReprojection, targetCRS)
	}
	if resolution <= 0 {
		return nil, fmt.Errorf("target resolution must be positive, got %g", resolution)
	}
	return &Processor{TargetCRS: targetCRS, Resolution: resolution}, nil
}

// Clip extracts the sub-grid covering the lat/lon bounding box. The box
// is projected into the grid's CRS first. Returns ErrInvalidGeometry when
// the box does not intersect the grid extent.
func (p *Processor) Clip(g *Grid, bbox domain.BoundingBox) (*Grid, error) {
	minX, minY, maxX, maxY, err := projectEnvelope(g.CRS, bbox)
	if err != nil {
		return nil, err
	}

	gMinX, gMinY, gMaxX, gMaxY := g.Bounds()
	if maxX <= gMinX || minX >= gMaxX || maxY <= gMinY || minY >= gMaxY {
		return nil, fmt.Errorf("%w: box [%g %g %g %g] outside raster extent [%g %g %g %g]",
			domain.ErrInvalidGeometry, minX, minY, maxX, maxY, gMinX, gMinY, gMaxX, gMaxY)
	}

	col0 := int(math.Floor((minX - g.OriginX) / g.PixelW))
	col1 := int(math.Ceil((maxX - g.OriginX) / g.PixelW))
	row0 := int(math.Floor((g.OriginY - maxY) / g.PixelH))
	row1 := int(math.Ceil((g.OriginY - minY) / g.PixelH))
	col0 = clampInt(col0, 0, g.Width)
	col1 = clampInt(col1, 0, g.Width)
	row0 = clampInt(row0, 0, g.Height)
	row1 = clampInt(row1, 0, g.Height)
	if col1 <= col0 || row1 <= row0 {
		return nil, fmt.Errorf("%w: empty clip window", domain.ErrInvalidGeometry)
	}

	out := NewGrid(g.CRS,
		g.OriginX+float64(col0)*g.PixelW,
		g.OriginY-float64(row0)*g.PixelH,
		g.PixelW, g.PixelH,
		col1-col0, row1-row0, g.NoData)
	for r := row0; r < row1; r++ {
		copy(out.Data[(r-row0)*out.Width:(r-row0+1)*out.Width],
			g.Data[r*g.Width+col0:r*g.Width+col1])
	}
	return out, nil
}

// Reproject resamples the grid onto the processor's target CRS and
// resolution over the given lat/lon box. Every target pixel center is
// inverse-mapped through both projections and sampled from the source.
func (p *Processor) Reproject(g *Grid, bbox domain.BoundingBox, method Resampling) (*Grid, error) {
	if !SupportedCRS(g.CRS) {
		return nil, fmt.Errorf("%w: unsupported source CRS %q", domain.ErrReprojection, g.CRS)
	}
	minX, minY, maxX, maxY, err := projectEnvelope(p.TargetCRS, bbox)
	if err != nil {
		return nil, err
	}

	width := int(math.Ceil((maxX - minX) / p.Resolution))
	height := int(math.Ceil((maxY - minY) / p.Resolution))
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: degenerate target extent", domain.ErrInvalidGeometry)
	}

	nodata := g.NoData
	if nodata == nil {
		nd := defaultNoData
		nodata = &nd
	}
	out := NewGrid(p.TargetCRS, minX, maxY, p.Resolution, p.Resolution, width, height, nodata)

	filled := 0
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			x, y := out.CellCenter(col, row)
			lon, lat, err := Inverse(p.TargetCRS, x, y)
			if err != nil {
				return nil, err
			}
			sx, sy, err := Forward(g.CRS, lon, lat)
			if err != nil {
				return nil, err
			}
			var v float64
			var ok bool
			if method == Nearest {
				v, ok = g.sampleNearest(sx, sy)
			} else {
				v, ok = g.sampleBilinear(sx, sy)
			}
			if ok {
				out.Set(col, row, v)
				filled++
			}
		}
	}
	if filled == 0 {
		return nil, fmt.Errorf("%w: no source pixels cover the target extent", domain.ErrInvalidGeometry)
	}
	return out, nil
}

// Align resamples a grid onto the exact geometry of a reference grid so
// the two stack pixel-for-pixel.
func (p *Processor) Align(g *Grid, ref *Grid, method Resampling) (*Grid, error) {
	if !SupportedCRS(g.CRS) || !SupportedCRS(ref.CRS) {
		return nil, fmt.Errorf("%w: unsupported CRS in align", domain.ErrReprojection)
	}
	nodata := g.NoData
	if nodata == nil {
		nd := defaultNoData
		nodata = &nd
	}
	out := NewGrid(ref.CRS, ref.OriginX, ref.OriginY, ref.PixelW, ref.PixelH, ref.Width, ref.Height, nodata)
	for row := 0; row < out.Height; row++ {
		for col := 0; col < out.Width; col++ {
			x, y := out.CellCenter(col, row)
			lon, lat, err := Inverse(ref.CRS, x, y)
			if err != nil {
				return nil, err
			}
			sx, sy, err := Forward(g.CRS, lon, lat)
			if err != nil {
				return nil, err
			}
			var v float64
			var ok bool
			if method == Nearest {
				v, ok = g.sampleNearest(sx, sy)
			} else {
				v, ok = g.sampleBilinear(sx, sy)
			}
			if ok {
				out.Set(col, row, v)
			}
		}
	}
	return out, nil
}

// defaultNoData matches the common convention for byte-coded products.
const defaultNoData = 255.0

// projectEnvelope projects a lat/lon box into a CRS and returns the
// covering envelope. Edges are densified because projected edges curve.
func projectEnvelope(crs string, bbox domain.BoundingBox) (minX, minY, maxX, maxY float64, err error) {
	if err = bbox.Validate(); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("%w: %v", domain.ErrInvalidGeometry, err)
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	const steps = 16
	for i := 0; i <= steps; i++ {
		t := float64(i) / steps
		lon := bbox.MinLon + t*(bbox.MaxLon-bbox.MinLon)
		lat := bbox.MinLat + t*(bbox.MaxLat-bbox.MinLat)
		for _, pt := range [][2]float64{
			{lon, bbox.MinLat}, {lon, bbox.MaxLat},
			{bbox.MinLon, lat}, {bbox.MaxLon, lat},
		} {
			x, y, perr := Forward(crs, pt[0], pt[1])
			if perr != nil {
				return 0, 0, 0, 0, perr
			}
			minX = math.Min(minX, x)
			minY = math.Min(minY, y)
			maxX = math.Max(maxX, x)
			maxY = math.Max(maxY, y)
		}
	}
	return minX, minY, maxX, maxY, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
