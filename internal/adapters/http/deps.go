package http

import (
	"github.com/nats-io/nats.go"

	"github.com/urbanlens/urbanlens/internal/adapters/valkey"
	"github.com/urbanlens/urbanlens/internal/core/ports"
	"github.com/urbanlens/urbanlens/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
// NATS and Cache may be nil when those backends are not configured.
type Dependencies struct {
	Pipeline  *usecases.PipelineService
	Parser    *usecases.ParseService
	Jobs      ports.JobRepository
	Artifacts ports.ArtifactStore
	NATS      *nats.Conn
	Cache     *valkey.Cache
}
