package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"

	"github.com/urbanlens/urbanlens/internal/adapters/earthengine"
	"github.com/urbanlens/urbanlens/internal/adapters/http"
	"github.com/urbanlens/urbanlens/internal/adapters/llm"
	"github.com/urbanlens/urbanlens/internal/adapters/memory"
	natsadapter "github.com/urbanlens/urbanlens/internal/adapters/nats"
	"github.com/urbanlens/urbanlens/internal/adapters/nominatim"
	"github.com/urbanlens/urbanlens/internal/adapters/storage"
	"github.com/urbanlens/urbanlens/internal/adapters/valkey"
	"github.com/urbanlens/urbanlens/internal/adapters/worldpop"
	"github.com/urbanlens/urbanlens/internal/core/ports"
	"github.com/urbanlens/urbanlens/internal/core/usecases"
	"github.com/urbanlens/urbanlens/internal/pkg/config"
	"github.com/urbanlens/urbanlens/internal/pkg/logging"
	"github.com/urbanlens/urbanlens/internal/pkg/telemetry"
	"github.com/urbanlens/urbanlens/internal/raster"
)

func main() {
	cfg, err := config.Load("urbanlens-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup("urbanlens-api", logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Artifact storage
	artifacts, err := buildArtifactStore(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	// Cache
	var cache *valkey.Cache
	if cfg.Valkey.Enabled {
		cache, err = valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	// NATS job event feed
	var events *natsadapter.Publisher
	var natsConn *nats.Conn
	if cfg.NATS.Enabled {
		events, err = natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
			events = nil
		} else {
			defer events.Close()
		}
		natsConn, err = natsadapter.RawConn(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats ws conn unavailable", "error", err)
		}
	}

	// External data services
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

	processor, err := raster.NewProcessor(cfg.Processing.TargetCRS, cfg.Processing.Resolution)
	if err != nil {
		log.Fatalf("processor: %v", err)
	}

	// Prompt parsing: LLM first, keyword fallback
	var strategies []ports.PromptStrategy
	if cfg.LLM.Provider != "off" {
		llmStrategy, err := llm.New(llm.Options{
			Provider:        cfg.LLM.Provider,
			Model:           cfg.LLM.Model,
			OpenAIAPIKey:    cfg.LLM.OpenAIAPIKey,
			AnthropicAPIKey: cfg.LLM.AnthropicAPIKey,
			OllamaHost:      cfg.LLM.OllamaHost,
		})
		if err != nil {
			slog.Warn("llm strategy unavailable, keyword parsing only", "error", err)
		} else {
			strategies = append(strategies, llmStrategy)
		}
	}
	strategies = append(strategies, usecases.KeywordStrategy{})

	jobs := memory.NewJobRepo()

	// Leave the interfaces nil rather than wrapping nil pointers
	var cacheSvc ports.CacheService
	if cache != nil {
		cacheSvc = cache
	}
	var eventsSvc ports.EventPublisher
	if events != nil {
		eventsSvc = events
	}

	pipeline := usecases.NewPipelineService(geocoder, sources, processor, artifacts, jobs, cacheSvc, eventsSvc)
	parser := usecases.NewParseService(strategies...)

	deps := &http.Dependencies{
		Pipeline:  pipeline,
		Parser:    parser,
		Jobs:      jobs,
		Artifacts: artifacts,
		NATS:      natsConn,
		Cache:     cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "UrbanLens API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func buildArtifactStore(ctx context.Context, cfg *config.Config) (ports.ArtifactStore, error) {
	switch cfg.Storage.Backend {
	case "minio":
		return storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.Storage.MinioEndpoint,
			AccessKey: cfg.Storage.MinioAccessKey,
			SecretKey: cfg.Storage.MinioSecretKey,
			Region:    cfg.Storage.MinioRegion,
			UseSSL:    cfg.Storage.MinioUseSSL,
			Bucket:    cfg.Storage.MinioBucket,
		})
	default:
		return storage.NewFSStore(cfg.Storage.Dir)
	}
}
