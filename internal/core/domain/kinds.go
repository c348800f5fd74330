package domain

import (
	"fmt"
	"strings"
)

// DatasetKind identifies one of the supported raster products.
type DatasetKind string

const (
	KindNDVI       DatasetKind = "ndvi"
	KindLandCover  DatasetKind = "land_cover"
	KindTreeCover  DatasetKind = "tree_cover"
	KindPopulation DatasetKind = "population"
)

// AllKinds returns every supported kind in stable order.
func AllKinds() []DatasetKind {
	return []DatasetKind{KindNDVI, KindLandCover, KindTreeCover, KindPopulation}
}

// ParseKind normalizes and validates a dataset kind string.
func ParseKind(s string) (DatasetKind, error) {
	k := DatasetKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindNDVI, KindLandCover, KindTreeCover, KindPopulation:
		return k, nil
	}
	return "", fmt.Errorf("unknown dataset kind %q", s)
}

// Categorical reports whether the kind carries class codes rather than a
// continuous measurement. Categorical rasters must be resampled with
// nearest-neighbor to keep class values intact.
func (k DatasetKind) Categorical() bool {
	return k == KindLandCover
}
