package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pipeline error taxonomy. Per-dataset fetch
// failures are absorbed into the job manifest and never surface as bare
// errors to API callers.
var (
	// ErrNotFound: the geocoder returned no match for the place name.
	ErrNotFound = errors.New("place not found")

	// ErrParseFailure: neither the LLM nor the keyword fallback could
	// extract a place name from the prompt.
	ErrParseFailure = errors.New("prompt parse failure")

	// ErrServiceUnavailable: an external collaborator could not be reached.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrInvalidGeometry: a clip region does not intersect the raster extent.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrReprojection: the target CRS is unsupported or malformed.
	ErrReprojection = errors.New("reprojection failure")
)

// FetchError records a per-kind dataset failure. It is non-fatal to the
// job: the orchestrator stores it in the manifest and continues.
type FetchError struct {
	Kind   DatasetKind
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s", e.Kind, e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Err }
