package raster

import (
	"fmt"
	"math"

	"github.com/urbanlens/urbanlens/internal/core/domain"
)

// Expectation declares what a standardized raster should look like.
type Expectation struct {
	CRS           string
	Resolution    float64
	ResolutionTol float64 // fraction, e.g. 0.01 for 1%
	Bounds        domain.BoundingBox
	MinValue      float64
	MaxValue      float64
}

// Validator inspects rasters for CRS/resolution/bounds/nodata/value-range
// consistency. Failed checks are reported, never raised: the caller owns
// the decision of whether a failure is fatal.
type Validator struct{}

// Validate runs the five independent checks and returns the report.
func (Validator) Validate(g *Grid, want Expectation) *domain.ValidationReport {
	r := &domain.ValidationReport{
		CRS:        g.CRS,
		Resolution: g.PixelW,
	}

	r.CRSMatch = g.CRS == want.CRS
	if !r.CRSMatch {
		r.Diagnostics = append(r.Diagnostics, fmt.Sprintf("crs %s, expected %s", g.CRS, want.CRS))
	}

	tol := want.ResolutionTol
	if tol == 0 {
		tol = 0.01
	}
	r.ResolutionOK = want.Resolution == 0 ||
		(math.Abs(g.PixelW-want.Resolution) <= tol*want.Resolution &&
			math.Abs(g.PixelH-want.Resolution) <= tol*want.Resolution)
	if !r.ResolutionOK {
		r.Diagnostics = append(r.Diagnostics,
			fmt.Sprintf("resolution %gx%g, expected %g (±%g%%)", g.PixelW, g.PixelH, want.Resolution, tol*100))
	}

	r.BoundsOK = boundsContain(g, want.Bounds)
	if !r.BoundsOK {
		r.Diagnostics = append(r.Diagnostics, "raster extent does not cover the requested box")
	}

	min, max, valid := g.Stats()
	r.MinValue = min
	r.MaxValue = max

	r.NoDataOK = g.NoData != nil && valid > 0
	if g.NoData == nil {
		r.Diagnostics = append(r.Diagnostics, "no nodata value declared")
	} else if valid == 0 {
		r.Diagnostics = append(r.Diagnostics, "every sample is nodata")
	}

	r.RangeOK = valid > 0 && min >= want.MinValue && max <= want.MaxValue
	if !r.RangeOK && valid > 0 {
		r.Diagnostics = append(r.Diagnostics,
			fmt.Sprintf("values [%g, %g] outside expected [%g, %g]", min, max, want.MinValue, want.MaxValue))
	}

	return r
}

// boundsContain reports whether the grid extent covers the lat/lon box,
// with half a pixel of slack on each edge.
func boundsContain(g *Grid, bbox domain.BoundingBox) bool {
	minX, minY, maxX, maxY, err := projectEnvelope(g.CRS, bbox)
	if err != nil {
		return false
	}
	gMinX, gMinY, gMaxX, gMaxY := g.Bounds()
	slackX := g.PixelW / 2
	slackY := g.PixelH / 2
	return gMinX-slackX <= minX && gMaxX+slackX >= maxX &&
		gMinY-slackY <= minY && gMaxY+slackY >= maxY
}
