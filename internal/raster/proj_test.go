package raster

import (
	"math"
	"testing"
)

func TestForward_AlbersOrigin(t *testing.T) {
	// The projection origin maps to (0, 0) by construction.
	x, y, err := Forward(CRSAlbersCONUS, -96, 23)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(x) > 1e-6 || math.Abs(y) > 1e-6 {
		t.Errorf("origin projected to (%f, %f), want (0, 0)", x, y)
	}
}

func TestForward_WebMercator(t *testing.T) {
	x, y, err := Forward(CRSWebMercator, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if x != 0 || y != 0 {
		t.Errorf("(0,0) projected to (%f, %f)", x, y)
	}

	x, _, _ = Forward(CRSWebMercator, 180, 0)
	if math.Abs(x-20037508.34) > 1 {
		t.Errorf("antimeridian x = %f, want ~20037508.34", x)
	}
}

func TestRoundTrip_AllCRS(t *testing.T) {
	// Points across CONUS; Albers is only defined for its valid region.
	points := []struct{ lon, lat float64 }{
		{-104.99, 39.74},  // Denver
		{-74.006, 40.713}, // New York
		{-122.33, 47.61},  // Seattle
		{-80.19, 25.76},   // Miami
	}

	for _, crs := range []string{CRSGeographic, CRSWebMercator, CRSAlbersCONUS} {
		for _, pt := range points {
			x, y, err := Forward(crs, pt.lon, pt.lat)
			if err != nil {
				t.Fatalf("%s forward: %v", crs, err)
			}
			lon, lat, err := Inverse(crs, x, y)
			if err != nil {
				t.Fatalf("%s inverse: %v", crs, err)
			}
			if math.Abs(lon-pt.lon) > 1e-6 || math.Abs(lat-pt.lat) > 1e-6 {
				t.Errorf("%s round trip (%f, %f) -> (%f, %f)", crs, pt.lon, pt.lat, lon, lat)
			}
		}
	}
}

func TestForward_UnsupportedCRS(t *testing.T) {
	if _, _, err := Forward("EPSG:32633", -104, 39); err == nil {
		t.Error("expected error for unsupported CRS")
	}
	if SupportedCRS("EPSG:32633") {
		t.Error("EPSG:32633 must not be reported as supported")
	}
}

func TestAlbers_EqualAreaProperty(t *testing.T) {
	// Both standard parallels are distortion-free for distances along
	// the parallel: one degree of longitude at 29.5N and 45.5N must map
	// to its true ellipsoidal length within a small tolerance.
	for _, lat := range []float64{29.5, 45.5} {
		x1, y1, _ := Forward(CRSAlbersCONUS, -96, lat)
		x2, y2, _ := Forward(CRSAlbersCONUS, -95, lat)
		got := math.Hypot(x2-x1, y2-y1)

		s := math.Sin(rad(lat))
		trueLen := rad(1) * semiMajor * math.Cos(rad(lat)) / math.Sqrt(1-ecc2*s*s)
		if math.Abs(got-trueLen)/trueLen > 1e-4 {
			t.Errorf("1 degree at %gN spans %f m, want %f m", lat, got, trueLen)
		}
	}
}
