package domain

// DatasetResult describes one successfully produced raster artifact.
// Immutable after creation.
type DatasetResult struct {
	Kind        DatasetKind       `json:"kind"`
	Source      string            `json:"source"`
	Year        int               `json:"year"`
	BBox        BoundingBox       `json:"bbox"`
	Format      string            `json:"format"`
	Path        string            `json:"path"`
	PreviewPath string            `json:"preview_path,omitempty"`
	Validation  *ValidationReport `json:"validation,omitempty"`
}

// ValidationReport carries the outcome of the five independent raster
// checks. Failed checks are data, not errors: callers decide whether a
// failure is fatal.
type ValidationReport struct {
	CRSMatch     bool `json:"crs_match"`
	ResolutionOK bool `json:"resolution_ok"`
	BoundsOK     bool `json:"bounds_ok"`
	NoDataOK     bool `json:"nodata_ok"`
	RangeOK      bool `json:"range_ok"`

	// Observed properties, for diagnostics and the manifest.
	CRS         string   `json:"crs"`
	Resolution  float64  `json:"resolution"`
	MinValue    float64  `json:"min_value"`
	MaxValue    float64  `json:"max_value"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// Passed reports whether every check succeeded.
func (r *ValidationReport) Passed() bool {
	return r.CRSMatch && r.ResolutionOK && r.BoundsOK && r.NoDataOK && r.RangeOK
}
