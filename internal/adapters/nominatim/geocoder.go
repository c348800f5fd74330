// Package nominatim implements ports.Geocoder against the OpenStreetMap
// Nominatim search API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/urbanlens/urbanlens/internal/core/domain"
	"github.com/urbanlens/urbanlens/internal/pkg/geospatial"
)

// pointRadiusMeters inflates a degenerate result (a single address,
// not a region) into a workable area of interest.
const pointRadiusMeters = 2500.0

// Geocoder resolves place names via Nominatim. One call per request; no
// retries (Nominatim's usage policy is strict about request volume).
type Geocoder struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// New creates a Geocoder. baseURL defaults to the public instance when
// empty.
func New(baseURL, userAgent string, timeout time.Duration) *Geocoder {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	if userAgent == "" {
		userAgent = "urbanlens"
	}
	return &Geocoder{
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// searchResult is the subset of the Nominatim jsonv2 response we use.
// The bounding box arrives as decimal strings [minlat, maxlat, minlon,
// maxlon].
type searchResult struct {
	Lat         string    `json:"lat"`
	Lon         string    `json:"lon"`
	DisplayName string    `json:"display_name"`
	BoundingBox [4]string `json:"boundingbox"`
}

// Resolve implements ports.Geocoder.
func (g *Geocoder) Resolve(ctx context.Context, place string) (domain.BoundingBox, error) {
	if place == "" {
		return domain.BoundingBox{}, fmt.Errorf("place name must not be empty")
	}

	q := url.Values{}
	q.Set("q", place)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return domain.BoundingBox{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return domain.BoundingBox{}, fmt.Errorf("%w: nominatim: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.BoundingBox{}, fmt.Errorf("%w: nominatim returned %d", domain.ErrServiceUnavailable, resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return domain.BoundingBox{}, fmt.Errorf("%w: decode nominatim response: %v", domain.ErrServiceUnavailable, err)
	}
	if len(results) == 0 {
		return domain.BoundingBox{}, fmt.Errorf("%w: %q", domain.ErrNotFound, place)
	}

	return toBoundingBox(results[0])
}

func toBoundingBox(r searchResult) (domain.BoundingBox, error) {
	var vals [4]float64
	for i, s := range r.BoundingBox {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.BoundingBox{}, fmt.Errorf("parse boundingbox[%d]=%q: %w", i, s, err)
		}
		vals[i] = v
	}
	centerLat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return domain.BoundingBox{}, fmt.Errorf("parse lat %q: %w", r.Lat, err)
	}
	centerLon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return domain.BoundingBox{}, fmt.Errorf("parse lon %q: %w", r.Lon, err)
	}

	bbox := domain.BoundingBox{
		MinLat:    vals[0],
		MaxLat:    vals[1],
		MinLon:    vals[2],
		MaxLon:    vals[3],
		CenterLat: centerLat,
		CenterLon: centerLon,
		Name:      r.DisplayName,
	}
	if geospatial.Haversine(bbox.MinLat, bbox.MinLon, bbox.MaxLat, bbox.MaxLon) < 2*pointRadiusMeters {
		bbox.MinLat, bbox.MinLon, bbox.MaxLat, bbox.MaxLon =
			geospatial.AroundPoint(centerLat, centerLon, pointRadiusMeters)
	}
	if err := bbox.Validate(); err != nil {
		return domain.BoundingBox{}, fmt.Errorf("nominatim box: %w", err)
	}
	return bbox, nil
}
