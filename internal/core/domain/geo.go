package domain

import "fmt"

// BoundingBox is an axis-aligned lat/lon rectangle (WGS 84) describing an
// area of interest, plus the centroid and canonical display name returned
// by the geocoder.
type BoundingBox struct {
	MinLat    float64 `json:"min_lat"`
	MaxLat    float64 `json:"max_lat"`
	MinLon    float64 `json:"min_lon"`
	MaxLon    float64 `json:"max_lon"`
	CenterLat float64 `json:"center_lat"`
	CenterLon float64 `json:"center_lon"`
	Name      string  `json:"name,omitempty"`
}

// Validate checks the min<=max invariant on both axes and that the center
// lies within the box.
func (b BoundingBox) Validate() error {
	if b.MinLat > b.MaxLat {
		return fmt.Errorf("bounding box: min_lat %f > max_lat %f", b.MinLat, b.MaxLat)
	}
	if b.MinLon > b.MaxLon {
		return fmt.Errorf("bounding box: min_lon %f > max_lon %f", b.MinLon, b.MaxLon)
	}
	if b.CenterLat < b.MinLat || b.CenterLat > b.MaxLat {
		return fmt.Errorf("bounding box: center_lat %f outside [%f, %f]", b.CenterLat, b.MinLat, b.MaxLat)
	}
	if b.CenterLon < b.MinLon || b.CenterLon > b.MaxLon {
		return fmt.Errorf("bounding box: center_lon %f outside [%f, %f]", b.CenterLon, b.MinLon, b.MaxLon)
	}
	return nil
}

// Intersects reports whether two boxes share any area.
func (b BoundingBox) Intersects(o BoundingBox) bool {
	return b.MinLon < o.MaxLon && o.MinLon < b.MaxLon &&
		b.MinLat < o.MaxLat && o.MinLat < b.MaxLat
}

// GeoJSON returns the box as a GeoJSON Polygon (closed ring, lon/lat order).
func (b BoundingBox) GeoJSON() map[string]any {
	return map[string]any{
		"type": "Polygon",
		"coordinates": [][][2]float64{{
			{b.MinLon, b.MinLat},
			{b.MaxLon, b.MinLat},
			{b.MaxLon, b.MaxLat},
			{b.MinLon, b.MaxLat},
			{b.MinLon, b.MinLat},
		}},
	}
}
