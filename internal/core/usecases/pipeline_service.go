package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/urbanlens/urbanlens/internal/core/domain"
	"github.com/urbanlens/urbanlens/internal/core/ports"
	"github.com/urbanlens/urbanlens/internal/pkg/metrics"
	"github.com/urbanlens/urbanlens/internal/raster"
)

// geocodeCacheTTL: Nominatim results are stable; a day keeps us well
// clear of its rate limits.
const geocodeCacheTTL = 86400

// PipelineService runs the request-to-manifest pipeline: geocode the
// place, fetch each requested dataset kind, standardize and validate the
// rasters, persist artifacts, and assemble the manifest. One job is one
// sequential execution path; concurrent jobs share nothing but the
// append-only artifact store.
type PipelineService struct {
	geocoder  ports.Geocoder
	sources   map[domain.DatasetKind]ports.RasterSource
	processor *raster.Processor
	validator raster.Validator
	artifacts ports.ArtifactStore
	jobs      ports.JobRepository
	cache     ports.CacheService   // optional
	events    ports.EventPublisher // optional
}

// NewPipelineService wires the pipeline. cache and events may be nil.
func NewPipelineService(
	geocoder ports.Geocoder,
	sources []ports.RasterSource,
	processor *raster.Processor,
	artifacts ports.ArtifactStore,
	jobs ports.JobRepository,
	cache ports.CacheService,
	events ports.EventPublisher,
) *PipelineService {
	byKind := make(map[domain.DatasetKind]ports.RasterSource, len(sources))
	for _, src := range sources {
		byKind[src.Kind()] = src
	}
	return &PipelineService{
		geocoder:  geocoder,
		sources:   byKind,
		processor: processor,
		artifacts: artifacts,
		jobs:      jobs,
		cache:     cache,
		events:    events,
	}
}

// Run executes the full pipeline synchronously and returns the finished
// job. The returned error is non-nil only for job-level failures (place
// unresolvable); per-kind failures are absorbed into the job and
// manifest, never raised.
func (p *PipelineService) Run(ctx context.Context, req domain.GeoRequest) (*domain.Job, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	job := domain.NewJob(req.Place, req.Year, req.Kinds)
	if err := p.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	metrics.JobsStarted.Inc()
	start := time.Now()
	log := slog.With("job_id", job.ID, "place", req.Place)
	log.Info("pipeline started", "year", req.Year, "kinds", req.Kinds)

	p.transition(ctx, job, domain.StateGeocoding)
	bbox, err := p.geocode(ctx, req.Place)
	if err != nil {
		job.State = domain.StateFailed
		job.Error = fmt.Sprintf("geocode %q: %v", req.Place, err)
		job.Finalize()
		p.finish(ctx, job, start, log)
		return job, err
	}
	job.BBox = &bbox

	p.transition(ctx, job, domain.StateFetching)
	grids := make(map[domain.DatasetKind]*raster.Grid, len(req.Kinds))
	var reference *raster.Grid
	for _, kind := range req.Kinds {
		grid, err := p.fetchOne(ctx, kind, bbox, req.Year, reference)
		if err != nil {
			p.recordFailure(ctx, job, kind, err, log)
			continue
		}
		if reference == nil {
			reference = grid
		}
		grids[kind] = grid
	}

	p.transition(ctx, job, domain.StateValidating)
	for _, kind := range req.Kinds {
		grid, ok := grids[kind]
		if !ok {
			continue
		}
		res, err := p.persistAndValidate(ctx, job, kind, grid, bbox, req.Year)
		if err != nil {
			p.recordFailure(ctx, job, kind, err, log)
			continue
		}
		job.Results[kind] = res
		metrics.DatasetsFetched.WithLabelValues(string(kind)).Inc()
		ok2 := true
		p.publish(ctx, &domain.JobEvent{JobID: job.ID, Time: time.Now().UTC(), State: job.State, Kind: kind, OK: &ok2})
	}

	job.Finalize()
	if manifest, err := p.writeManifest(ctx, job); err != nil {
		log.Error("manifest write failed", "error", err)
	} else {
		job.Manifest = manifest
	}
	p.finish(ctx, job, start, log)
	return job, nil
}

// geocode resolves a place with a read-through cache in front of the
// upstream service.
func (p *PipelineService) geocode(ctx context.Context, place string) (domain.BoundingBox, error) {
	key := "geocode:" + strings.ToLower(strings.TrimSpace(place))
	if p.cache != nil {
		if data, err := p.cache.Get(ctx, key); err == nil {
			var bbox domain.BoundingBox
			if err := json.Unmarshal(data, &bbox); err == nil {
				metrics.GeocodeCacheHits.Inc()
				return bbox, nil
			}
		}
		metrics.GeocodeCacheMisses.Inc()
	}

	bbox, err := p.geocoder.Resolve(ctx, place)
	if err != nil {
		return domain.BoundingBox{}, err
	}
	if err := bbox.Validate(); err != nil {
		return domain.BoundingBox{}, fmt.Errorf("geocoder returned invalid box: %w", err)
	}

	if p.cache != nil {
		if data, err := json.Marshal(bbox); err == nil {
			_ = p.cache.Set(ctx, key, data, geocodeCacheTTL)
		}
	}
	return bbox, nil
}

// fetchOne retrieves one dataset kind and standardizes it onto the
// target grid: clip to the box, reproject to the target CRS/resolution,
// and align to the first kind's grid so all outputs stack.
func (p *PipelineService) fetchOne(ctx context.Context, kind domain.DatasetKind, bbox domain.BoundingBox, year int, reference *raster.Grid) (*raster.Grid, error) {
	src, ok := p.sources[kind]
	if !ok {
		return nil, &domain.FetchError{Kind: kind, Reason: "no source configured"}
	}

	begin := time.Now()
	defer func() {
		metrics.FetchDuration.WithLabelValues(string(kind)).Observe(time.Since(begin).Seconds())
	}()

	grid, err := src.Fetch(ctx, bbox, year)
	if err != nil {
		return nil, &domain.FetchError{Kind: kind, Reason: err.Error(), Err: err}
	}

	clipped, err := p.processor.Clip(grid, bbox)
	if err != nil {
		return nil, &domain.FetchError{Kind: kind, Reason: err.Error(), Err: err}
	}

	method := raster.Bilinear
	if kind.Categorical() {
		method = raster.Nearest
	}
	projected, err := p.processor.Reproject(clipped, bbox, method)
	if err != nil {
		return nil, &domain.FetchError{Kind: kind, Reason: err.Error(), Err: err}
	}

	if reference != nil && !sameGeometry(projected, reference) {
		projected, err = p.processor.Align(projected, reference, method)
		if err != nil {
			return nil, &domain.FetchError{Kind: kind, Reason: err.Error(), Err: err}
		}
	}
	return projected, nil
}

// persistAndValidate encodes the standardized grid, stores the artifact
// and preview, and attaches the validation report.
func (p *PipelineService) persistAndValidate(ctx context.Context, job *domain.Job, kind domain.DatasetKind, grid *raster.Grid, bbox domain.BoundingBox, year int) (*domain.DatasetResult, error) {
	tiff, err := raster.EncodeGeoTIFF(grid)
	if err != nil {
		return nil, &domain.FetchError{Kind: kind, Reason: err.Error(), Err: err}
	}
	path, err := p.artifacts.Put(ctx, job.ID, string(kind)+"_aligned.tif", tiff)
	if err != nil {
		return nil, &domain.FetchError{Kind: kind, Reason: err.Error(), Err: err}
	}

	report := p.validator.Validate(grid, raster.Expectation{
		CRS:        p.processor.TargetCRS,
		Resolution: p.processor.Resolution,
		Bounds:     bbox,
		MinValue:   expectedRange(kind).min,
		MaxValue:   expectedRange(kind).max,
	})
	if !report.Passed() {
		slog.Warn("validation checks failed", "job_id", job.ID, "kind", kind, "diagnostics", report.Diagnostics)
	}

	previewPath := ""
	if png, err := raster.RenderPNG(grid, paletteFor(kind)); err == nil {
		if pp, err := p.artifacts.Put(ctx, job.ID, string(kind)+"_preview.png", png); err == nil {
			previewPath = pp
		}
	}

	return &domain.DatasetResult{
		Kind:        kind,
		Source:      p.sources[kind].Label(),
		Year:        year,
		BBox:        bbox,
		Format:      "GeoTIFF",
		Path:        path,
		PreviewPath: previewPath,
		Validation:  report,
	}, nil
}

func (p *PipelineService) writeManifest(ctx context.Context, job *domain.Job) (string, error) {
	m := domain.BuildManifest(job, p.processor.TargetCRS, p.processor.Resolution)
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	return p.artifacts.Put(ctx, job.ID, "manifest.json", data)
}

func (p *PipelineService) recordFailure(ctx context.Context, job *domain.Job, kind domain.DatasetKind, err error, log *slog.Logger) {
	job.Failures[kind] = err.Error()
	metrics.DatasetFailures.WithLabelValues(string(kind)).Inc()
	log.Warn("dataset failed", "kind", kind, "error", err)
	notOK := false
	p.publish(ctx, &domain.JobEvent{JobID: job.ID, Time: time.Now().UTC(), State: job.State, Kind: kind, OK: &notOK, Note: err.Error()})
}

func (p *PipelineService) transition(ctx context.Context, job *domain.Job, state domain.JobState) {
	job.State = state
	_ = p.jobs.Update(ctx, job)
	p.publish(ctx, &domain.JobEvent{JobID: job.ID, Time: time.Now().UTC(), State: state})
}

func (p *PipelineService) finish(ctx context.Context, job *domain.Job, start time.Time, log *slog.Logger) {
	_ = p.jobs.Update(ctx, job)
	metrics.JobsFinished.WithLabelValues(string(job.Status)).Inc()
	metrics.JobDuration.Observe(time.Since(start).Seconds())
	p.publish(ctx, &domain.JobEvent{JobID: job.ID, Time: time.Now().UTC(), State: job.State, Note: string(job.Status)})
	log.Info("pipeline finished",
		"state", job.State, "status", job.Status,
		"succeeded", len(job.Results), "failed", len(job.Failures),
		"duration", time.Since(start).String())
}

func (p *PipelineService) publish(ctx context.Context, ev *domain.JobEvent) {
	if p.events == nil {
		return
	}
	if err := p.events.PublishJobEvent(ctx, ev); err != nil {
		slog.Debug("job event publish failed", "job_id", ev.JobID, "error", err)
	}
}

// sameGeometry reports whether two grids already stack pixel-for-pixel.
func sameGeometry(a, b *raster.Grid) bool {
	const eps = 1e-6
	return a.CRS == b.CRS && a.Width == b.Width && a.Height == b.Height &&
		approx(a.OriginX, b.OriginX, eps) && approx(a.OriginY, b.OriginY, eps) &&
		approx(a.PixelW, b.PixelW, eps) && approx(a.PixelH, b.PixelH, eps)
}

func approx(a, b, eps float64) bool {
	d := a - b
	return d < eps && d > -eps
}

type valueRange struct{ min, max float64 }

// expectedRange gives the sanity window for each product.
func expectedRange(kind domain.DatasetKind) valueRange {
	switch kind {
	case domain.KindNDVI:
		return valueRange{-1, 1}
	case domain.KindTreeCover:
		return valueRange{0, 100}
	case domain.KindLandCover:
		return valueRange{0, 255}
	case domain.KindPopulation:
		return valueRange{0, 1e6}
	}
	return valueRange{0, 1e9}
}

func paletteFor(kind domain.DatasetKind) raster.Palette {
	switch kind {
	case domain.KindNDVI:
		return raster.NDVIPalette()
	case domain.KindLandCover:
		return raster.LandCoverPalette()
	case domain.KindTreeCover:
		return raster.TreeCoverPalette()
	case domain.KindPopulation:
		return raster.PopulationPalette()
	}
	return raster.TreeCoverPalette()
}
