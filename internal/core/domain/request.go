package domain

import "fmt"

// DefaultYear is used when a request does not specify one.
const DefaultYear = 2020

// GeoRequest is a fully resolved data request: a place name, a year, and
// the set of dataset kinds to produce.
type GeoRequest struct {
	Place string        `json:"place"`
	Year  int           `json:"year"`
	Kinds []DatasetKind `json:"kinds"`
}

// Normalize fills defaults and validates the kind set.
func (r *GeoRequest) Normalize() error {
	if r.Place == "" {
		return fmt.Errorf("place is required")
	}
	if r.Year == 0 {
		r.Year = DefaultYear
	}
	if len(r.Kinds) == 0 {
		r.Kinds = AllKinds()
		return nil
	}
	seen := make(map[DatasetKind]bool, len(r.Kinds))
	kinds := r.Kinds[:0]
	for _, k := range r.Kinds {
		parsed, err := ParseKind(string(k))
		if err != nil {
			return err
		}
		if !seen[parsed] {
			seen[parsed] = true
			kinds = append(kinds, parsed)
		}
	}
	r.Kinds = kinds
	return nil
}

// ParsedRequest is the outcome of prompt parsing: the extracted place and
// kind set, plus which strategy produced it.
type ParsedRequest struct {
	Place      string        `json:"place"`
	Kinds      []DatasetKind `json:"kinds"`
	Source     string        `json:"source"` // "llm" or "keyword"
	Confidence float64       `json:"confidence"`
}
