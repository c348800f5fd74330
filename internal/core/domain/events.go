package domain

import "time"

// JobEvent is published on each pipeline state transition and per-kind
// outcome, for live dashboard updates. Best-effort: losing events never
// affects the job itself.
type JobEvent struct {
	JobID string      `json:"job_id"`
	Time  time.Time   `json:"time"`
	State JobState    `json:"state"`
	Kind  DatasetKind `json:"kind,omitempty"`
	OK    *bool       `json:"ok,omitempty"`
	Note  string      `json:"note,omitempty"`
}
