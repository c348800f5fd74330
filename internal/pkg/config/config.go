package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Geocoder    GeocoderConfig    `mapstructure:"geocoder"`
	LLM         LLMConfig         `mapstructure:"llm"`
	EarthEngine EarthEngineConfig `mapstructure:"earthengine"`
	WorldPop    WorldPopConfig    `mapstructure:"worldpop"`
	Processing  ProcessingConfig  `mapstructure:"processing"`
	Storage     StorageConfig     `mapstructure:"storage"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Valkey      ValkeyConfig      `mapstructure:"valkey"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type GeocoderConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`
	TimeoutS  int    `mapstructure:"timeout_s"`
	CacheTTLS int    `mapstructure:"cache_ttl_s"`
}

type LLMConfig struct {
	Provider        string `mapstructure:"provider"` // openai | anthropic | ollama | off
	Model           string `mapstructure:"model"`
	OpenAIAPIKey    string `mapstructure:"openai_api_key"`
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
	OllamaHost      string `mapstructure:"ollama_host"`
}

type EarthEngineConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Project string `mapstructure:"project"`
	Token   string `mapstructure:"token"`
}

type WorldPopConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Country string `mapstructure:"country"`
}

type ProcessingConfig struct {
	TargetCRS  string  `mapstructure:"target_crs"`
	Resolution float64 `mapstructure:"resolution"`
}

type StorageConfig struct {
	Backend string `mapstructure:"backend"` // fs | minio
	Dir     string `mapstructure:"dir"`

	MinioEndpoint  string `mapstructure:"minio_endpoint"`
	MinioAccessKey string `mapstructure:"minio_access_key"`
	MinioSecretKey string `mapstructure:"minio_secret_key"`
	MinioRegion    string `mapstructure:"minio_region"`
	MinioBucket    string `mapstructure:"minio_bucket"`
	MinioUseSSL    bool   `mapstructure:"minio_use_ssl"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type ValkeyConfig struct {
	Addr    string `mapstructure:"addr"`
	Enabled bool   `mapstructure:"enabled"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	OTLPAddr    string `mapstructure:"otlp_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 330)
	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.user_agent", "urbanlens/1.0")
	v.SetDefault("geocoder.timeout_s", 10)
	v.SetDefault("geocoder.cache_ttl_s", 86400)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.ollama_host", "http://localhost:11434")
	v.SetDefault("earthengine.base_url", "https://earthengine.googleapis.com")
	v.SetDefault("earthengine.project", "")
	v.SetDefault("earthengine.token", "")
	v.SetDefault("worldpop.base_url", "https://data.worldpop.org")
	v.SetDefault("worldpop.country", "USA")
	v.SetDefault("processing.target_crs", "EPSG:5070")
	v.SetDefault("processing.resolution", 30.0)
	v.SetDefault("storage.backend", "fs")
	v.SetDefault("storage.dir", "outputs")
	v.SetDefault("storage.minio_endpoint", "localhost:9000")
	v.SetDefault("storage.minio_region", "us-east-1")
	v.SetDefault("storage.minio_bucket", "urbanlens")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.enabled", false)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_addr", "localhost:4317")
	v.SetDefault("telemetry.enabled", false)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: URBANLENS_GEOCODER_BASE_URL → geocoder.base_url
	v.SetEnvPrefix("URBANLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Geocoder.BaseURL == "" {
		errs = append(errs, "geocoder.base_url is required")
	}
	if c.Geocoder.UserAgent == "" {
		errs = append(errs, "geocoder.user_agent is required")
	}
	switch c.LLM.Provider {
	case "openai", "anthropic", "ollama", "off":
	default:
		errs = append(errs, fmt.Sprintf("llm.provider must be openai, anthropic, ollama, or off, got %q", c.LLM.Provider))
	}
	if c.WorldPop.BaseURL == "" {
		errs = append(errs, "worldpop.base_url is required")
	}
	if c.Processing.TargetCRS == "" {
		errs = append(errs, "processing.target_crs is required")
	}
	if c.Processing.Resolution <= 0 {
		errs = append(errs, "processing.resolution must be positive")
	}
	switch c.Storage.Backend {
	case "fs":
		if c.Storage.Dir == "" {
			errs = append(errs, "storage.dir is required for the fs backend")
		}
	case "minio":
		if c.Storage.MinioEndpoint == "" {
			errs = append(errs, "storage.minio_endpoint is required for the minio backend")
		}
		if c.Storage.MinioAccessKey == "" || c.Storage.MinioSecretKey == "" {
			errs = append(errs, "storage.minio_access_key and storage.minio_secret_key are required for the minio backend")
		}
		if c.Storage.MinioBucket == "" {
			errs = append(errs, "storage.minio_bucket is required for the minio backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage.backend must be fs or minio, got %q", c.Storage.Backend))
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required when nats is enabled")
	}
	if c.Valkey.Enabled && c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required when valkey is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
