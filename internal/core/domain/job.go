package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobState is a pipeline lifecycle state.
type JobState string

const (
	StateReceived   JobState = "received"
	StateGeocoding  JobState = "geocoding"
	StateFetching   JobState = "fetching"
	StateValidating JobState = "validating"
	StateCompleted  JobState = "completed"
	StateFailed     JobState = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// JobStatus summarizes the per-kind outcomes of a finished job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusCompleted JobStatus = "completed"
	StatusPartial   JobStatus = "partial"
	StatusFailed    JobStatus = "failed"
)

// Job tracks one pipeline run. It is created at request arrival, mutated
// by the orchestrator as each dataset kind completes, and never mutated
// after reaching a terminal state.
type Job struct {
	ID        string                         `json:"id"`
	CreatedAt time.Time                      `json:"created_at"`
	Place     string                         `json:"place"`
	Year      int                            `json:"year"`
	Requested []DatasetKind                  `json:"requested"`
	BBox      *BoundingBox                   `json:"bbox,omitempty"`
	State     JobState                       `json:"state"`
	Status    JobStatus                      `json:"status"`
	Results   map[DatasetKind]*DatasetResult `json:"results,omitempty"`
	Failures  map[DatasetKind]string         `json:"failures,omitempty"`
	Error     string                         `json:"error,omitempty"`
	Manifest  string                         `json:"manifest,omitempty"` // path of the persisted manifest
}

// NewJob creates a pending job with a fresh identifier.
func NewJob(place string, year int, kinds []DatasetKind) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        NewJobID(now),
		CreatedAt: now,
		Place:     place,
		Year:      year,
		Requested: kinds,
		State:     StateReceived,
		Status:    StatusPending,
		Results:   make(map[DatasetKind]*DatasetResult),
		Failures:  make(map[DatasetKind]string),
	}
}

// NewJobID builds a time-based identifier with a random suffix, e.g.
// data_20240612_153001_9f4c2a1b.
func NewJobID(t time.Time) string {
	return fmt.Sprintf("data_%s_%s", t.Format("20060102_150405"), uuid.NewString()[:8])
}

// Finalize settles the terminal state and summary status from the
// per-kind outcomes.
func (j *Job) Finalize() {
	switch {
	case j.State == StateFailed:
		j.Status = StatusFailed
	case len(j.Results) == 0:
		j.State = StateFailed
		j.Status = StatusFailed
	case len(j.Failures) > 0:
		j.State = StateCompleted
		j.Status = StatusPartial
	default:
		j.State = StateCompleted
		j.Status = StatusCompleted
	}
}
