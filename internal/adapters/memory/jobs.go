// Package memory holds in-process repositories. Job records are
// ephemeral by design; the manifest file is the durable record.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/urbanlens/urbanlens/internal/core/domain"
)

// JobRepo is a concurrency-safe in-memory JobRepository.
type JobRepo struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

func NewJobRepo() *JobRepo {
	return &JobRepo{jobs: make(map[string]*domain.Job)}
}

func (r *JobRepo) Create(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; ok {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	r.jobs[job.ID] = clone(job)
	return nil
}

func (r *JobRepo) Update(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		return domain.ErrNotFound
	}
	r.jobs[job.ID] = clone(job)
	return nil
}

func (r *JobRepo) Get(_ context.Context, id string) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(job), nil
}

// List returns jobs newest first.
func (r *JobRepo) List(_ context.Context) ([]*domain.Job, error) {
	r.mu.RLock()
	out := make([]*domain.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, clone(job))
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// clone deep-copies a job so stored records never share maps or the
// bounding box with the pipeline's live job. DatasetResult values are
// immutable once created, so sharing those pointers is safe.
func clone(job *domain.Job) *domain.Job {
	cp := *job
	if job.Requested != nil {
		cp.Requested = append([]domain.DatasetKind(nil), job.Requested...)
	}
	if job.BBox != nil {
		bbox := *job.BBox
		cp.BBox = &bbox
	}
	if job.Results != nil {
		cp.Results = make(map[domain.DatasetKind]*domain.DatasetResult, len(job.Results))
		for k, v := range job.Results {
			cp.Results[k] = v
		}
	}
	if job.Failures != nil {
		cp.Failures = make(map[domain.DatasetKind]string, len(job.Failures))
		for k, v := range job.Failures {
			cp.Failures[k] = v
		}
	}
	return &cp
}
