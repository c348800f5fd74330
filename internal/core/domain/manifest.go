package domain

import "time"

// ManifestEntry is the per-kind record inside a manifest.
type ManifestEntry struct {
	Source string      `json:"source"`
	Year   int         `json:"year"`
	BBox   BoundingBox `json:"bbox"`
	Format string      `json:"format"`
	Path   string      `json:"path"`

	Preview    string            `json:"preview,omitempty"`
	Validation *ValidationReport `json:"validation,omitempty"`
}

// ProcessingParams records the standardization targets applied to every
// raster in the job.
type ProcessingParams struct {
	TargetCRS        string  `json:"target_crs"`
	TargetResolution float64 `json:"target_resolution"`
	Success          bool    `json:"success"`
}

// Manifest is the durable record of a finished job: the only persisted
// state of the system. Reloading a manifest must reproduce the numeric
// fields byte-for-byte, so it is always marshalled from this struct
// (fixed field order) rather than from maps.
type Manifest struct {
	JobID     string                        `json:"job_id"`
	Timestamp time.Time                     `json:"timestamp"`
	Location  string                        `json:"location"`
	BBox      BoundingBox                   `json:"aoi_bbox"`
	Datasets  map[DatasetKind]ManifestEntry `json:"datasets"`
	Failures  map[DatasetKind]string        `json:"failures,omitempty"`
	Status    JobStatus                     `json:"status"`
	Params    ProcessingParams              `json:"processing_parameters"`
}

// BuildManifest assembles the manifest for a finalized job.
func BuildManifest(j *Job, targetCRS string, targetResolution float64) *Manifest {
	m := &Manifest{
		JobID:     j.ID,
		Timestamp: j.CreatedAt,
		Location:  j.Place,
		Datasets:  make(map[DatasetKind]ManifestEntry, len(j.Results)),
		Status:    j.Status,
		Params: ProcessingParams{
			TargetCRS:        targetCRS,
			TargetResolution: targetResolution,
			Success:          j.Status == StatusCompleted,
		},
	}
	if j.BBox != nil {
		m.BBox = *j.BBox
	}
	for kind, res := range j.Results {
		m.Datasets[kind] = ManifestEntry{
			Source:     res.Source,
			Year:       res.Year,
			BBox:       res.BBox,
			Format:     res.Format,
			Path:       res.Path,
			Preview:    res.PreviewPath,
			Validation: res.Validation,
		}
	}
	if len(j.Failures) > 0 {
		m.Failures = make(map[DatasetKind]string, len(j.Failures))
		for kind, reason := range j.Failures {
			m.Failures[kind] = reason
		}
	}
	return m
}
