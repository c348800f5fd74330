package ports

import (
	"context"

	"github.com/urbanlens/urbanlens/internal/core/domain"
	"github.com/urbanlens/urbanlens/internal/raster"
)

// Geocoder resolves a place name to a bounding box via an external
// geocoding service. Read-only; a single call per request, no retries.
type Geocoder interface {
	// Resolve returns domain.ErrNotFound when the service has no match and
	// a wrapped domain.ErrServiceUnavailable on transport failure.
	Resolve(ctx context.Context, place string) (domain.BoundingBox, error)
}

// PromptStrategy extracts a place name and dataset kinds from free text.
// Strategies are tried in order by the ParseService; the first success
// wins. A strategy fails by returning an error or an empty place.
type PromptStrategy interface {
	Name() string
	Parse(ctx context.Context, prompt string) (domain.ParsedRequest, error)
}

// RasterSource retrieves one dataset kind from its remote backend. The
// returned grid may be wider than the requested box (e.g. country-wide
// population tiles); the pipeline clips it afterwards.
type RasterSource interface {
	Kind() domain.DatasetKind
	Label() string
	Fetch(ctx context.Context, bbox domain.BoundingBox, year int) (*raster.Grid, error)
}
