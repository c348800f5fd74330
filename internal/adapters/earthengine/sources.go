package earthengine

import (
	"context"
	"fmt"

	"github.com/urbanlens/urbanlens/internal/core/domain"
	"github.com/urbanlens/urbanlens/internal/raster"
)

// Nominal output scale for Earth Engine products, meters per pixel.
const scaleMeters = 30

// LandCoverSource fetches the NLCD categorical land-cover raster.
type LandCoverSource struct {
	client *Client
}

func NewLandCoverSource(client *Client) *LandCoverSource {
	return &LandCoverSource{client: client}
}

func (s *LandCoverSource) Kind() domain.DatasetKind { return domain.KindLandCover }
func (s *LandCoverSource) Label() string            { return "NLCD Land Cover" }

func (s *LandCoverSource) Fetch(ctx context.Context, bbox domain.BoundingBox, year int) (*raster.Grid, error) {
	// NLCD publishes the 2019 release as a single epoch image.
	return s.client.ComputePixels(ctx, imageSpec{
		AssetID: "USGS/NLCD_RELEASES/2019_REL/NLCD/2019",
		Bands:   []string{"landcover"},
	}, bbox, scaleMeters)
}

// TreeCoverSource fetches the NLCD tree-canopy-percent raster.
type TreeCoverSource struct {
	client *Client
}

func NewTreeCoverSource(client *Client) *TreeCoverSource {
	return &TreeCoverSource{client: client}
}

func (s *TreeCoverSource) Kind() domain.DatasetKind { return domain.KindTreeCover }
func (s *TreeCoverSource) Label() string            { return "NLCD Tree Canopy" }

func (s *TreeCoverSource) Fetch(ctx context.Context, bbox domain.BoundingBox, year int) (*raster.Grid, error) {
	// The v2023-5 release covers 2011-2023; anything else falls back to
	// the 2021 product.
	if year < 2011 || year > 2023 {
		year = 2021
	}
	return s.client.ComputePixels(ctx, imageSpec{
		Collection: "USGS/NLCD_RELEASES/2023_REL/TCC/v2023-5",
		Bands:      []string{"NLCD_Percent_Tree_Canopy_Cover"},
		Filters:    []filter{{Name: "year", Op: "equals", Value: float64(year)}},
		Reducer:    "first",
	}, bbox, scaleMeters)
}

// NDVISource computes the Sentinel-2 summer-median NDVI server-side:
// cloud-filtered scenes, median composite, normalized difference of the
// near-infrared and red bands.
type NDVISource struct {
	client *Client
}

func NewNDVISource(client *Client) *NDVISource {
	return &NDVISource{client: client}
}

func (s *NDVISource) Kind() domain.DatasetKind { return domain.KindNDVI }
func (s *NDVISource) Label() string            { return "Sentinel-2 NDVI" }

func (s *NDVISource) Fetch(ctx context.Context, bbox domain.BoundingBox, year int) (*raster.Grid, error) {
	return s.client.ComputePixels(ctx, imageSpec{
		Collection: "COPERNICUS/S2_SR_HARMONIZED",
		Bands:      []string{"B8", "B4"},
		StartDate:  fmt.Sprintf("%d-06-01", year),
		EndDate:    fmt.Sprintf("%d-08-31", year),
		Filters:    []filter{{Name: "CLOUDY_PIXEL_PERCENTAGE", Op: "less_than", Value: 20}},
		Reducer:    "median",
		Expression: "(B8 - B4) / (B8 + B4)",
	}, bbox, scaleMeters)
}
