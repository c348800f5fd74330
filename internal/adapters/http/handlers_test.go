package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/urbanlens/urbanlens/internal/adapters/memory"
	"github.com/urbanlens/urbanlens/internal/adapters/storage"
	"github.com/urbanlens/urbanlens/internal/core/domain"
	"github.com/urbanlens/urbanlens/internal/core/ports"
	"github.com/urbanlens/urbanlens/internal/core/usecases"
	"github.com/urbanlens/urbanlens/internal/raster"

	httpadapter "github.com/urbanlens/urbanlens/internal/adapters/http"
)

type stubGeocoder struct{}

func (stubGeocoder) Resolve(_ context.Context, place string) (domain.BoundingBox, error) {
	if strings.Contains(strings.ToLower(place), "atlantis") {
		return domain.BoundingBox{}, fmt.Errorf("%w: %q", domain.ErrNotFound, place)
	}
	return domain.BoundingBox{
		MinLat: 39.73, MaxLat: 39.76, MinLon: -105.01, MaxLon: -104.97,
		CenterLat: 39.745, CenterLon: -104.99, Name: place,
	}, nil
}

type stubSource struct{ kind domain.DatasetKind }

func (s stubSource) Kind() domain.DatasetKind { return s.kind }
func (s stubSource) Label() string            { return "stub/" + string(s.kind) }

func (s stubSource) Fetch(_ context.Context, _ domain.BoundingBox, _ int) (*raster.Grid, error) {
	nodata := -9999.0
	g := raster.NewGrid(raster.CRSGeographic, -105.1, 39.85, 0.002, 0.002, 120, 120, &nodata)
	for i := range g.Data {
		g.Data[i] = 0.5
	}
	return g, nil
}

func newTestApp(t *testing.T) (*fiber.App, *httpadapter.Dependencies) {
	t.Helper()
	processor, err := raster.NewProcessor(raster.CRSAlbersCONUS, 30)
	if err != nil {
		t.Fatalf("processor: %v", err)
	}

	jobs := memory.NewJobRepo()
	artifacts := storage.NewMemStore()
	sources := []ports.RasterSource{
		stubSource{kind: domain.KindNDVI},
		stubSource{kind: domain.KindTreeCover},
		stubSource{kind: domain.KindLandCover},
		stubSource{kind: domain.KindPopulation},
	}
	deps := &httpadapter.Dependencies{
		Pipeline:  usecases.NewPipelineService(stubGeocoder{}, sources, processor, artifacts, jobs, nil, nil),
		Parser:    usecases.NewParseService(usecases.KeywordStrategy{}),
		Jobs:      jobs,
		Artifacts: artifacts,
	}

	app := fiber.New()
	httpadapter.SetupRoutes(app, deps)
	return app, deps
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s: %v", path, err)
	}
	return resp
}

func get(t *testing.T, app *fiber.App, path string) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	if err != nil {
		t.Fatalf("request %s: %v", path, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestCreateJob_Structured(t *testing.T) {
	app, _ := newTestApp(t)

	resp := postJSON(t, app, "/v1/jobs", httpadapter.CreateJobRequest{
		Place: "Denver", Year: 2020, DataTypes: []string{"ndvi"},
	})
	if resp.StatusCode != 201 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	job := decode[domain.Job](t, resp)
	if job.Status != domain.StatusCompleted {
		t.Fatalf("job status = %s", job.Status)
	}
	if job.ID == "" || job.Place != "Denver" {
		t.Errorf("job = %+v", job)
	}

	// The finished job is retrievable and its artifacts are served.
	resp = get(t, app, "/v1/jobs/"+job.ID)
	if resp.StatusCode != 200 {
		t.Fatalf("get job status = %d", resp.StatusCode)
	}

	resp = get(t, app, "/v1/jobs/"+job.ID+"/manifest")
	if resp.StatusCode != 200 {
		t.Fatalf("manifest status = %d", resp.StatusCode)
	}
	manifest := decode[domain.Manifest](t, resp)
	if manifest.JobID != job.ID || len(manifest.Datasets) != 1 {
		t.Errorf("manifest = %+v", manifest)
	}

	resp = get(t, app, "/v1/jobs/"+job.ID+"/artifacts")
	if resp.StatusCode != 200 {
		t.Fatalf("artifacts status = %d", resp.StatusCode)
	}
	listing := decode[struct {
		JobID     string   `json:"job_id"`
		Artifacts []string `json:"artifacts"`
	}](t, resp)
	found := false
	for _, n := range listing.Artifacts {
		if n == "ndvi_aligned.tif" {
			found = true
		}
	}
	if !found {
		t.Errorf("artifacts = %v", listing.Artifacts)
	}

	resp = get(t, app, "/v1/jobs/"+job.ID+"/artifacts/ndvi_aligned.tif")
	if resp.StatusCode != 200 {
		t.Fatalf("artifact status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/tiff" {
		t.Errorf("content-type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("content-disposition = %q", cd)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if _, err := raster.DecodeGeoTIFF(data); err != nil {
		t.Errorf("served artifact is not a valid tiff: %v", err)
	}
}

func TestCreateJob_FromPrompt(t *testing.T) {
	app, _ := newTestApp(t)

	resp := postJSON(t, app, "/v1/jobs", httpadapter.CreateJobRequest{
		Prompt: "Get NDVI and tree cover for Denver",
	})
	if resp.StatusCode != 201 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	job := decode[domain.Job](t, resp)
	if job.Place != "Denver" {
		t.Errorf("place = %q", job.Place)
	}
	if len(job.Results) != 2 {
		t.Errorf("results = %v", job.Results)
	}
}

func TestCreateJob_BadRequests(t *testing.T) {
	app, _ := newTestApp(t)

	resp := postJSON(t, app, "/v1/jobs", httpadapter.CreateJobRequest{})
	if resp.StatusCode != 400 {
		t.Errorf("empty request status = %d", resp.StatusCode)
	}

	resp = postJSON(t, app, "/v1/jobs", httpadapter.CreateJobRequest{
		Prompt: "get me the data",
	})
	if resp.StatusCode != 422 {
		t.Fatalf("unparseable prompt status = %d", resp.StatusCode)
	}
	// An unparseable prompt still yields a persisted failed job record,
	// same as a geocode failure.
	job := decode[domain.Job](t, resp)
	if job.ID == "" || job.Status != domain.StatusFailed || job.Error == "" {
		t.Errorf("job = %+v", job)
	}
	resp = get(t, app, "/v1/jobs/"+job.ID)
	if resp.StatusCode != 200 {
		t.Errorf("failed job not retrievable: %d", resp.StatusCode)
	}
	stored := decode[domain.Job](t, resp)
	if stored.Status != domain.StatusFailed {
		t.Errorf("stored status = %s", stored.Status)
	}
}

func TestCreateJob_PlaceNotFound(t *testing.T) {
	app, _ := newTestApp(t)

	resp := postJSON(t, app, "/v1/jobs", httpadapter.CreateJobRequest{Place: "Atlantis"})
	if resp.StatusCode != 422 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	// The failed job record comes back in the body for inspection.
	job := decode[domain.Job](t, resp)
	if job.Status != domain.StatusFailed || job.Error == "" {
		t.Errorf("job = %+v", job)
	}
}

func TestListJobs_Pagination(t *testing.T) {
	app, _ := newTestApp(t)

	for _, place := range []string{"Denver", "Austin", "Seattle"} {
		resp := postJSON(t, app, "/v1/jobs", httpadapter.CreateJobRequest{
			Place: place, DataTypes: []string{"ndvi"},
		})
		if resp.StatusCode != 201 {
			t.Fatalf("create %s: %d", place, resp.StatusCode)
		}
	}

	resp := get(t, app, "/v1/jobs?limit=2")
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if link := resp.Header.Get("Link"); !strings.Contains(link, `rel="next"`) {
		t.Errorf("link header = %q", link)
	}
	page := decode[struct {
		Data       []domain.Job           `json:"data"`
		Pagination httpadapter.Pagination `json:"pagination"`
	}](t, resp)
	if len(page.Data) != 2 {
		t.Errorf("page size = %d", len(page.Data))
	}
	if page.Pagination.Total != 3 || page.Pagination.Limit != 2 {
		t.Errorf("pagination = %+v", page.Pagination)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	app, _ := newTestApp(t)
	resp := get(t, app, "/v1/jobs/data_20240101_000000_deadbeef")
	if resp.StatusCode != 404 {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestParse(t *testing.T) {
	app, _ := newTestApp(t)

	resp := postJSON(t, app, "/v1/parse", fiber.Map{"prompt": "Show population density for Austin"})
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	parsed := decode[domain.ParsedRequest](t, resp)
	if parsed.Place != "Austin" || parsed.Source != "keyword" {
		t.Errorf("parsed = %+v", parsed)
	}

	resp = postJSON(t, app, "/v1/parse", fiber.Map{"prompt": ""})
	if resp.StatusCode != 400 {
		t.Errorf("empty prompt status = %d", resp.StatusCode)
	}
}

func TestChat(t *testing.T) {
	app, _ := newTestApp(t)

	resp := postJSON(t, app, "/v1/chat", fiber.Map{"message": "Get NDVI for Denver"})
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	reply := decode[usecases.ChatReply](t, resp)
	if reply.Response == "" || reply.Structured.Place != "Denver" {
		t.Errorf("reply = %+v", reply)
	}
}

func TestHealthAndReady(t *testing.T) {
	app, _ := newTestApp(t)

	resp := get(t, app, "/v1/health")
	if resp.StatusCode != 200 {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	// NATS and cache are optional; with storage healthy the service is
	// ready without them.
	resp = get(t, app, "/v1/ready")
	if resp.StatusCode != 200 {
		t.Errorf("ready status = %d", resp.StatusCode)
	}
}
