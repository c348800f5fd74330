package ports

import (
	"context"

	"github.com/urbanlens/urbanlens/internal/core/domain"
)

// ArtifactStore persists job outputs (rasters, previews, manifests).
// Writes are append-only and keyed by job identifier, so concurrent jobs
// need no coordination.
type ArtifactStore interface {
	// Put stores data under the job's prefix and returns the stable path
	// recorded in manifests.
	Put(ctx context.Context, jobID, name string, data []byte) (string, error)
	Get(ctx context.Context, jobID, name string) ([]byte, error)
	List(ctx context.Context, jobID string) ([]string, error)
}

// JobRepository tracks job state for the status endpoint. The manifest
// file is the only durable store; this repository may be in-memory.
type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) error
	Update(ctx context.Context, job *domain.Job) error
	Get(ctx context.Context, id string) (*domain.Job, error)
	List(ctx context.Context) ([]*domain.Job, error)
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// EventPublisher emits job lifecycle events for live dashboard updates.
type EventPublisher interface {
	PublishJobEvent(ctx context.Context, event *domain.JobEvent) error
}
