package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "urbanlens",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "urbanlens",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
	}, []string{"method", "path"})

	// Pipeline metrics
	JobsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "urbanlens",
		Subsystem: "pipeline",
		Name:      "jobs_started_total",
		Help:      "Total pipeline jobs started",
	})

	JobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "urbanlens",
		Subsystem: "pipeline",
		Name:      "jobs_finished_total",
		Help:      "Total pipeline jobs finished, by summary status",
	}, []string{"status"})

	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "urbanlens",
		Subsystem: "pipeline",
		Name:      "job_duration_seconds",
		Help:      "End-to-end pipeline duration",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	})

	DatasetsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "urbanlens",
		Subsystem: "pipeline",
		Name:      "datasets_fetched_total",
		Help:      "Datasets fetched successfully, by kind",
	}, []string{"kind"})

	DatasetFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "urbanlens",
		Subsystem: "pipeline",
		Name:      "dataset_failures_total",
		Help:      "Per-kind dataset failures absorbed into manifests",
	}, []string{"kind"})

	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "urbanlens",
		Subsystem: "pipeline",
		Name:      "fetch_duration_seconds",
		Help:      "Duration of one dataset fetch + standardization",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
	}, []string{"kind"})

	// Prompt parsing
	ParseOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "urbanlens",
		Subsystem: "parser",
		Name:      "outcomes_total",
		Help:      "Prompt parse outcomes, by winning strategy (or 'failed')",
	}, []string{"strategy"})

	// Geocoder cache
	GeocodeCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "urbanlens",
		Subsystem: "geocode",
		Name:      "cache_hits_total",
		Help:      "Geocode lookups served from cache",
	})

	GeocodeCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "urbanlens",
		Subsystem: "geocode",
		Name:      "cache_misses_total",
		Help:      "Geocode lookups that went to the upstream service",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "urbanlens",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
