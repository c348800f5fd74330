package raster

import (
	"fmt"
	"math"

	"github.com/urbanlens/urbanlens/internal/core/domain"
)

// Supported coordinate reference systems. The pipeline standardizes onto
// EPSG:5070 (NAD83 CONUS Albers); sources deliver EPSG:4326 or EPSG:3857.
const (
	CRSGeographic  = "EPSG:4326"
	CRSWebMercator = "EPSG:3857"
	CRSAlbersCONUS = "EPSG:5070"
)

const (
	semiMajor = 6378137.0 // GRS80 / WGS84 semi-major axis, meters

	// GRS80 first eccentricity squared, used by the Albers projection.
	ecc2 = 0.00669438002290
)

// Albers equal-area conic parameters for EPSG:5070.
const (
	albersLat1 = 29.5  // first standard parallel, degrees
	albersLat2 = 45.5  // second standard parallel, degrees
	albersLat0 = 23.0  // latitude of origin
	albersLon0 = -96.0 // central meridian
)

// SupportedCRS reports whether the code is in the projection registry.
func SupportedCRS(crs string) bool {
	switch crs {
	case CRSGeographic, CRSWebMercator, CRSAlbersCONUS:
		return true
	}
	return false
}

// Forward projects geographic (lon, lat) degrees into CRS units.
func Forward(crs string, lon, lat float64) (x, y float64, err error) {
	switch crs {
	case CRSGeographic:
		return lon, lat, nil
	case CRSWebMercator:
		x = semiMajor * rad(lon)
		y = semiMajor * math.Log(math.Tan(math.Pi/4+rad(lat)/2))
		return x, y, nil
	case CRSAlbersCONUS:
		x, y = albersForward(lon, lat)
		return x, y, nil
	}
	return 0, 0, fmt.Errorf("%w: unsupported CRS %q", domain.ErrReprojection, crs)
}

// Inverse converts CRS units back to geographic (lon, lat) degrees.
func Inverse(crs string, x, y float64) (lon, lat float64, err error) {
	switch crs {
	case CRSGeographic:
		return x, y, nil
	case CRSWebMercator:
		lon = deg(x / semiMajor)
		lat = deg(2*math.Atan(math.Exp(y/semiMajor)) - math.Pi/2)
		return lon, lat, nil
	case CRSAlbersCONUS:
		lon, lat = albersInverse(x, y)
		return lon, lat, nil
	}
	return 0, 0, fmt.Errorf("%w: unsupported CRS %q", domain.ErrReprojection, crs)
}

// Ellipsoidal Albers equal-area conic (Snyder 1987, eqs 14-1..14-21).

func albersM(phi float64) float64 {
	s := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-ecc2*s*s)
}

func albersQ(phi float64) float64 {
	e := math.Sqrt(ecc2)
	s := math.Sin(phi)
	return (1 - ecc2) * (s/(1-ecc2*s*s) - (1/(2*e))*math.Log((1-e*s)/(1+e*s)))
}

var (
	albersN, albersC, albersRho0 float64
)

func init() {
	phi1 := rad(albersLat1)
	phi2 := rad(albersLat2)
	phi0 := rad(albersLat0)
	m1 := albersM(phi1)
	m2 := albersM(phi2)
	q1 := albersQ(phi1)
	q2 := albersQ(phi2)
	q0 := albersQ(phi0)
	albersN = (m1*m1 - m2*m2) / (q2 - q1)
	albersC = m1*m1 + albersN*q1
	albersRho0 = semiMajor * math.Sqrt(albersC-albersN*q0) / albersN
}

func albersForward(lon, lat float64) (x, y float64) {
	q := albersQ(rad(lat))
	rho := semiMajor * math.Sqrt(albersC-albersN*q) / albersN
	theta := albersN * (rad(lon) - rad(albersLon0))
	x = rho * math.Sin(theta)
	y = albersRho0 - rho*math.Cos(theta)
	return x, y
}

func albersInverse(x, y float64) (lon, lat float64) {
	rho := math.Hypot(x, albersRho0-y)
	theta := math.Atan2(x, albersRho0-y)
	q := (albersC - (rho*albersN/semiMajor)*(rho*albersN/semiMajor)) / albersN

	// Iterate Snyder eq 3-16 for the latitude; converges in a few steps.
	e := math.Sqrt(ecc2)
	phi := math.Asin(clamp(q/2, -1, 1))
	for i := 0; i < 15; i++ {
		s := math.Sin(phi)
		den := 1 - ecc2*s*s
		delta := (den * den / (2 * math.Cos(phi))) *
			(q/(1-ecc2) - s/den + (1/(2*e))*math.Log((1-e*s)/(1+e*s)))
		phi += delta
		if math.Abs(delta) < 1e-12 {
			break
		}
	}
	lon = deg(rad(albersLon0) + theta/albersN)
	lat = deg(phi)
	return lon, lat
}

func rad(d float64) float64 { return d * math.Pi / 180 }
func deg(r float64) float64 { return r * 180 / math.Pi }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
