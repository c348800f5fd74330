// Package earthengine implements the ports.RasterSource backends that
// sit on the Earth Engine REST API: NLCD land cover, NLCD tree canopy,
// and Sentinel-2 NDVI. The heavy lifting happens server-side; this
// adapter only describes the image to compute and decodes the GeoTIFF
// that comes back.
package earthengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/urbanlens/urbanlens/internal/core/domain"
	"github.com/urbanlens/urbanlens/internal/raster"
)

// Client talks to the Earth Engine REST API (image:computePixels).
type Client struct {
	baseURL string
	project string
	token   string
	http    *http.Client
}

// NewClient creates an Earth Engine client. baseURL defaults to the
// public endpoint when empty. token is a ready OAuth2 bearer token;
// obtaining it is the deployment's concern.
func NewClient(baseURL, project, token string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://earthengine.googleapis.com"
	}
	return &Client{
		baseURL: baseURL,
		project: project,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// imageSpec describes one server-side image computation. Collections are
// reduced to a single image by the named reducer after filtering;
// expression post-processes the selected bands.
type imageSpec struct {
	AssetID    string   `json:"assetId,omitempty"`
	Collection string   `json:"collection,omitempty"`
	Bands      []string `json:"bandIds"`
	StartDate  string   `json:"startDate,omitempty"`
	EndDate    string   `json:"endDate,omitempty"`
	Filters    []filter `json:"filters,omitempty"`
	Reducer    string   `json:"reducer,omitempty"`
	Expression string   `json:"expression,omitempty"`
}

type filter struct {
	Name  string  `json:"name"`
	Op    string  `json:"op"`
	Value float64 `json:"value"`
}

// pixelGrid is the output grid request: geographic CRS with the pixel
// size derived from the nominal scale in meters.
type pixelGrid struct {
	CRSCode    string  `json:"crsCode"`
	ScaleX     float64 `json:"scaleX"`
	ScaleY     float64 `json:"scaleY"`
	TranslateX float64 `json:"translateX"`
	TranslateY float64 `json:"translateY"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

type computeRequest struct {
	Expression imageSpec `json:"expression"`
	FileFormat string    `json:"fileFormat"`
	Grid       pixelGrid `json:"grid"`
}

// metersPerDegree at the equator; used to convert a nominal scale in
// meters to geographic pixel size.
const metersPerDegree = 111320.0

// ComputePixels runs the computation over the bounding box at the given
// scale (meters) and returns the decoded grid.
func (c *Client) ComputePixels(ctx context.Context, spec imageSpec, bbox domain.BoundingBox, scaleMeters float64) (*raster.Grid, error) {
	deg := scaleMeters / metersPerDegree
	width := int(math.Ceil((bbox.MaxLon - bbox.MinLon) / deg))
	height := int(math.Ceil((bbox.MaxLat - bbox.MinLat) / deg))
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: degenerate request extent", domain.ErrInvalidGeometry)
	}

	body, err := json.Marshal(computeRequest{
		Expression: spec,
		FileFormat: "GEO_TIFF",
		Grid: pixelGrid{
			CRSCode:    raster.CRSGeographic,
			ScaleX:     deg,
			ScaleY:     -deg,
			TranslateX: bbox.MinLon,
			TranslateY: bbox.MaxLat,
			Width:      width,
			Height:     height,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal compute request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/projects/%s/image:computePixels", c.baseURL, c.project)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: earth engine: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: earth engine returned %d: %s", domain.ErrServiceUnavailable, resp.StatusCode, snippet)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	grid, err := raster.DecodeGeoTIFF(data)
	if err != nil {
		return nil, fmt.Errorf("decode earth engine tiff: %w", err)
	}
	return grid, nil
}
