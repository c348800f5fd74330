package raster

import (
	"errors"
	"math"
	"testing"

	"github.com/urbanlens/urbanlens/internal/core/domain"
)

// sourceGrid builds a 1x1 degree geographic grid around Denver with a
// smooth gradient, 0.01 degree pixels.
func sourceGrid() *Grid {
	nodata := -9999.0
	g := NewGrid(CRSGeographic, -105.5, 40.2, 0.01, 0.01, 100, 100, &nodata)
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			g.Set(col, row, float64(col)+float64(row)/100)
		}
	}
	return g
}

func denverBox() domain.BoundingBox {
	return domain.BoundingBox{
		MinLat: 39.6, MaxLat: 39.9, MinLon: -105.1, MaxLon: -104.7,
		CenterLat: 39.75, CenterLon: -104.9,
	}
}

func TestProcessor_Clip(t *testing.T) {
	p, err := NewProcessor(CRSAlbersCONUS, 30)
	if err != nil {
		t.Fatalf("processor: %v", err)
	}

	g := sourceGrid()
	clipped, err := p.Clip(g, denverBox())
	if err != nil {
		t.Fatalf("clip: %v", err)
	}

	if clipped.CRS != g.CRS {
		t.Errorf("clip must not change the CRS, got %s", clipped.CRS)
	}
	if clipped.Width >= g.Width || clipped.Height >= g.Height {
		t.Errorf("clip did not shrink the grid: %dx%d", clipped.Width, clipped.Height)
	}

	// The window must cover the requested box.
	minX, minY, maxX, maxY := clipped.Bounds()
	box := denverBox()
	if minX > box.MinLon || maxX < box.MaxLon || minY > box.MinLat || maxY < box.MaxLat {
		t.Errorf("clip window [%g %g %g %g] does not cover the box", minX, minY, maxX, maxY)
	}
}

func TestProcessor_Clip_Disjoint(t *testing.T) {
	p, _ := NewProcessor(CRSAlbersCONUS, 30)
	g := sourceGrid()

	box := domain.BoundingBox{
		MinLat: 25.0, MaxLat: 26.0, MinLon: -81.0, MaxLon: -80.0,
		CenterLat: 25.5, CenterLon: -80.5,
	}
	_, err := p.Clip(g, box)
	if !errors.Is(err, domain.ErrInvalidGeometry) {
		t.Errorf("expected ErrInvalidGeometry, got %v", err)
	}
}

func TestProcessor_Reproject(t *testing.T) {
	p, _ := NewProcessor(CRSAlbersCONUS, 30)
	g := sourceGrid()

	out, err := p.Reproject(g, denverBox(), Bilinear)
	if err != nil {
		t.Fatalf("reproject: %v", err)
	}
	if out.CRS != CRSAlbersCONUS {
		t.Errorf("crs = %s, want %s", out.CRS, CRSAlbersCONUS)
	}
	if out.PixelW != 30 || out.PixelH != 30 {
		t.Errorf("pixel = %gx%g, want 30x30", out.PixelW, out.PixelH)
	}
	if out.Width <= 0 || out.Height <= 0 {
		t.Fatalf("degenerate output %dx%d", out.Width, out.Height)
	}

	// Interpolated values stay inside the source value range.
	min, max, valid := out.Stats()
	if valid == 0 {
		t.Fatal("no valid pixels after reprojection")
	}
	if min < 0 || max > 100 {
		t.Errorf("values [%g, %g] escaped the source range", min, max)
	}
}

func TestProcessor_Reproject_NearestPreservesClasses(t *testing.T) {
	p, _ := NewProcessor(CRSAlbersCONUS, 30)

	// Categorical raster with NLCD-style class codes.
	nodata := 255.0
	g := NewGrid(CRSGeographic, -105.5, 40.2, 0.01, 0.01, 100, 100, &nodata)
	classes := []float64{11, 21, 22, 41, 71, 82}
	for i := range g.Data {
		g.Data[i] = classes[i%len(classes)]
	}

	out, err := p.Reproject(g, denverBox(), Nearest)
	if err != nil {
		t.Fatalf("reproject: %v", err)
	}
	allowed := make(map[float64]bool, len(classes)+1)
	for _, c := range classes {
		allowed[c] = true
	}
	allowed[nodata] = true
	for i, v := range out.Data {
		if !allowed[v] {
			t.Fatalf("pixel %d = %g is not one of the source class codes", i, v)
		}
	}
}

func TestProcessor_Reproject_NoCoverage(t *testing.T) {
	p, _ := NewProcessor(CRSAlbersCONUS, 30)
	g := sourceGrid()

	// Box inside CONUS but far outside the source grid.
	box := domain.BoundingBox{
		MinLat: 30.0, MaxLat: 30.2, MinLon: -90.2, MaxLon: -90.0,
		CenterLat: 30.1, CenterLon: -90.1,
	}
	_, err := p.Reproject(g, box, Bilinear)
	if !errors.Is(err, domain.ErrInvalidGeometry) {
		t.Errorf("expected ErrInvalidGeometry, got %v", err)
	}
}

func TestProcessor_Align(t *testing.T) {
	p, _ := NewProcessor(CRSAlbersCONUS, 30)
	g := sourceGrid()

	ref, err := p.Reproject(g, denverBox(), Bilinear)
	if err != nil {
		t.Fatalf("reference: %v", err)
	}

	// A second grid with a coarser resolution and shifted origin.
	nodata := -9999.0
	other := NewGrid(CRSGeographic, -105.6, 40.3, 0.025, 0.025, 48, 48, &nodata)
	for i := range other.Data {
		other.Data[i] = 7
	}

	aligned, err := p.Align(other, ref, Bilinear)
	if err != nil {
		t.Fatalf("align: %v", err)
	}
	if aligned.Width != ref.Width || aligned.Height != ref.Height {
		t.Errorf("aligned %dx%d, reference %dx%d", aligned.Width, aligned.Height, ref.Width, ref.Height)
	}
	if aligned.OriginX != ref.OriginX || aligned.OriginY != ref.OriginY {
		t.Error("aligned origin differs from the reference")
	}
	// Constant input must stay constant where covered.
	for _, v := range aligned.Data {
		if !aligned.IsNoData(v) && math.Abs(v-7) > 1e-9 {
			t.Fatalf("constant field distorted: %g", v)
		}
	}
}

func TestNewProcessor_Validation(t *testing.T) {
	if _, err := NewProcessor("EPSG:32633", 30); err == nil {
		t.Error("expected error for unsupported CRS")
	}
	if _, err := NewProcessor(CRSAlbersCONUS, 0); err == nil {
		t.Error("expected error for zero resolution")
	}
}
