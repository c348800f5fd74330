// Command fetch runs the pipeline once from the command line and
// prints the manifest, without the API server in front.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urbanlens/urbanlens/internal/adapters/earthengine"
	"github.com/urbanlens/urbanlens/internal/adapters/llm"
	"github.com/urbanlens/urbanlens/internal/adapters/memory"
	"github.com/urbanlens/urbanlens/internal/adapters/nominatim"
	"github.com/urbanlens/urbanlens/internal/adapters/storage"
	"github.com/urbanlens/urbanlens/internal/adapters/worldpop"
	"github.com/urbanlens/urbanlens/internal/core/domain"
	"github.com/urbanlens/urbanlens/internal/core/ports"
	"github.com/urbanlens/urbanlens/internal/core/usecases"
	"github.com/urbanlens/urbanlens/internal/pkg/config"
	"github.com/urbanlens/urbanlens/internal/pkg/logging"
	"github.com/urbanlens/urbanlens/internal/raster"
)

func main() {
	var (
		prompt = flag.String("prompt", "", "natural-language request, e.g. 'NDVI and land cover for Denver'")
		place  = flag.String("place", "", "place name (alternative to -prompt)")
		year   = flag.Int("year", 0, "data year (default 2020)")
		kinds  = flag.String("kinds", "", "comma-separated dataset kinds (default all)")
	)
	flag.Parse()

	cfg, err := config.Load("urbanlens-fetch")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup("urbanlens-fetch", os.Getenv("LOG_LEVEL"), "text")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	req, err := buildRequest(ctx, cfg, *prompt, *place, *year, *kinds)
	if err != nil {
		log.Fatalf("request: %v", err)
	}

	artifacts, err := storage.NewFSStore(cfg.Storage.Dir)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	processor, err := raster.NewProcessor(cfg.Processing.TargetCRS, cfg.Processing.Resolution)
	if err != nil {
		log.Fatalf("processor: %v", err)
	}

	geocoder := nominatim.New(cfg.Geocoder.BaseURL, cfg.Geocoder.UserAgent,
		time.Duration(cfg.Geocoder.TimeoutS)*time.Second)
	ee := earthengine.NewClient(cfg.EarthEngine.BaseURL, cfg.EarthEngine.Project,
		cfg.EarthEngine.Token, 2*time.Minute)
	sources := []ports.RasterSource{
		earthengine.NewNDVISource(ee),
		earthengine.NewLandCoverSource(ee),
		earthengine.NewTreeCoverSource(ee),
		worldpop.New(cfg.WorldPop.BaseURL, cfg.WorldPop.Country, 2*time.Minute),
	}

	pipeline := usecases.NewPipelineService(geocoder, sources, processor, artifacts,
		memory.NewJobRepo(), nil, nil)

	job, err := pipeline.Run(ctx, req)
	if err != nil {
		log.Fatalf("pipeline: %v", err)
	}

	slog.Info("job finished", "id", job.ID, "status", job.Status)
	for kind, res := range job.Results {
		fmt.Printf("%-12s %s\n", kind, res.Path)
	}
	for kind, reason := range job.Failures {
		fmt.Printf("%-12s FAILED: %s\n", kind, reason)
	}
	if job.Manifest != "" {
		fmt.Printf("manifest     %s\n", job.Manifest)
	}
	if job.Status == domain.StatusFailed {
		os.Exit(1)
	}
}

// buildRequest resolves the prompt (if given) into a structured
// request, falling back to keyword parsing when no LLM is configured.
func buildRequest(ctx context.Context, cfg *config.Config, prompt, place string, year int, kinds string) (domain.GeoRequest, error) {
	req := domain.GeoRequest{Place: place, Year: year}
	for _, k := range strings.Split(kinds, ",") {
		if k = strings.TrimSpace(k); k != "" {
			req.Kinds = append(req.Kinds, domain.DatasetKind(k))
		}
	}
	if strings.TrimSpace(prompt) == "" {
		if strings.TrimSpace(place) == "" {
			return req, fmt.Errorf("either -prompt or -place is required")
		}
		return req, nil
	}

	var strategies []ports.PromptStrategy
	if cfg.LLM.Provider != "off" {
		if s, err := llm.New(llm.Options{
			Provider:        cfg.LLM.Provider,
			Model:           cfg.LLM.Model,
			OpenAIAPIKey:    cfg.LLM.OpenAIAPIKey,
			AnthropicAPIKey: cfg.LLM.AnthropicAPIKey,
			OllamaHost:      cfg.LLM.OllamaHost,
		}); err == nil {
			strategies = append(strategies, s)
		}
	}
	strategies = append(strategies, usecases.KeywordStrategy{})

	parsed, err := usecases.NewParseService(strategies...).Parse(ctx, prompt)
	if err != nil {
		return req, err
	}
	req.Place = parsed.Place
	if len(req.Kinds) == 0 {
		req.Kinds = parsed.Kinds
	}
	return req, nil
}
