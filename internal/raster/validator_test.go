package raster

import (
	"testing"

	"github.com/urbanlens/urbanlens/internal/core/domain"
)

// validatedGrid builds a grid in the target CRS that covers the box.
func validatedGrid(t *testing.T, box domain.BoundingBox) *Grid {
	t.Helper()
	p, err := NewProcessor(CRSAlbersCONUS, 30)
	if err != nil {
		t.Fatalf("processor: %v", err)
	}
	g, err := p.Reproject(sourceGrid(), box, Bilinear)
	if err != nil {
		t.Fatalf("reproject: %v", err)
	}
	return g
}

func TestValidator_AllChecksPass(t *testing.T) {
	box := denverBox()
	g := validatedGrid(t, box)

	report := Validator{}.Validate(g, Expectation{
		CRS:        CRSAlbersCONUS,
		Resolution: 30,
		Bounds:     box,
		MinValue:   -1000,
		MaxValue:   1000,
	})

	if !report.Passed() {
		t.Errorf("expected all checks to pass: %+v", report)
	}
	if report.CRS != CRSAlbersCONUS || report.Resolution != 30 {
		t.Errorf("observed properties wrong: %+v", report)
	}
}

func TestValidator_CRSMismatch(t *testing.T) {
	box := denverBox()
	g := validatedGrid(t, box)
	g.CRS = CRSWebMercator

	report := Validator{}.Validate(g, Expectation{
		CRS: CRSAlbersCONUS, Resolution: 30, Bounds: box, MinValue: -1000, MaxValue: 1000,
	})
	if report.CRSMatch {
		t.Error("CRS check should have failed")
	}
	if report.Passed() {
		t.Error("report must not pass with a failed check")
	}
	if len(report.Diagnostics) == 0 {
		t.Error("expected a diagnostic for the CRS mismatch")
	}
}

func TestValidator_ResolutionTolerance(t *testing.T) {
	box := denverBox()
	g := validatedGrid(t, box)

	// Within the default 1% tolerance.
	g.PixelW, g.PixelH = 30.2, 30.2
	report := Validator{}.Validate(g, Expectation{
		CRS: CRSAlbersCONUS, Resolution: 30, Bounds: box, MinValue: -1000, MaxValue: 1000,
	})
	if !report.ResolutionOK {
		t.Error("30.2 m should pass a 1% tolerance on 30 m")
	}

	g.PixelW, g.PixelH = 33, 33
	report = Validator{}.Validate(g, Expectation{
		CRS: CRSAlbersCONUS, Resolution: 30, Bounds: box, MinValue: -1000, MaxValue: 1000,
	})
	if report.ResolutionOK {
		t.Error("33 m should fail a 1% tolerance on 30 m")
	}
}

func TestValidator_RangeCheck(t *testing.T) {
	box := denverBox()
	g := validatedGrid(t, box)

	report := Validator{}.Validate(g, Expectation{
		CRS: CRSAlbersCONUS, Resolution: 30, Bounds: box,
		MinValue: -1, MaxValue: 1, // NDVI range, but the grid holds 0..100
	})
	if report.RangeOK {
		t.Error("values outside [-1, 1] should fail the range check")
	}
}

func TestValidator_AllNoData(t *testing.T) {
	nodata := -9999.0
	g := NewGrid(CRSAlbersCONUS, 0, 0, 30, 30, 4, 4, &nodata)

	report := Validator{}.Validate(g, Expectation{
		CRS: CRSAlbersCONUS, Resolution: 30, Bounds: denverBox(), MinValue: -1000, MaxValue: 1000,
	})
	if report.NoDataOK {
		t.Error("an all-nodata grid should fail the nodata check")
	}
	if report.RangeOK {
		t.Error("an all-nodata grid should fail the range check")
	}
}
