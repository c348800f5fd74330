// Package worldpop implements the population ports.RasterSource against
// the WorldPop public GeoTIFF archive.
package worldpop

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/urbanlens/urbanlens/internal/core/domain"
	"github.com/urbanlens/urbanlens/internal/raster"
)

// WorldPop publishes per-country annual grids for 2000-2020.
const (
	minYear = 2000
	maxYear = 2020
)

// Source downloads the UN-adjusted population grid. The file is
// country-wide; the pipeline clips it to the area of interest.
type Source struct {
	baseURL string
	country string // ISO3 code in the archive layout, e.g. "USA"
	client  *http.Client
}

// New creates the source. baseURL defaults to the public archive.
func New(baseURL, country string, timeout time.Duration) *Source {
	if baseURL == "" {
		baseURL = "https://data.worldpop.org"
	}
	if country == "" {
		country = "USA"
	}
	return &Source{
		baseURL: baseURL,
		country: country,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *Source) Kind() domain.DatasetKind { return domain.KindPopulation }
func (s *Source) Label() string            { return "WorldPop Population" }

// Fetch implements ports.RasterSource.
func (s *Source) Fetch(ctx context.Context, bbox domain.BoundingBox, year int) (*raster.Grid, error) {
	if year < minYear || year > maxYear {
		return nil, fmt.Errorf("worldpop: year %d outside available range %d-%d", year, minYear, maxYear)
	}

	url := fmt.Sprintf("%s/GIS/Population/Global_2000_2020/%d/%s/%s_ppp_%d_UNadj.tif",
		s.baseURL, year, s.country, strings.ToLower(s.country), year)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: worldpop: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: worldpop returned %d for %s", domain.ErrServiceUnavailable, resp.StatusCode, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read worldpop body: %w", err)
	}
	grid, err := raster.DecodeGeoTIFF(data)
	if err != nil {
		return nil, fmt.Errorf("decode worldpop tiff: %w", err)
	}
	return grid, nil
}
