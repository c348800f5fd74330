// Package llm implements the primary prompt-parsing strategy on top of
// langchaingo, with pluggable providers (OpenAI, Ollama, Anthropic).
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/urbanlens/urbanlens/internal/core/domain"
)

// Provider names accepted in configuration.
const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
)

// Options configures the LLM strategy.
type Options struct {
	Provider        string
	Model           string // default gpt-4o-mini for openai
	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaHost      string
}

// Strategy is the LLM-backed ports.PromptStrategy. Any failure — call
// error, unparseable output, empty place — makes the ParseService fall
// through to the keyword strategy.
type Strategy struct {
	model llms.Model
}

// New creates the strategy for the configured provider.
func New(opts Options) (*Strategy, error) {
	var model llms.Model
	var err error

	switch opts.Provider {
	case ProviderOpenAI:
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		name := opts.Model
		if name == "" {
			name = "gpt-4o-mini"
		}
		model, err = openai.New(
			openai.WithToken(opts.OpenAIAPIKey),
			openai.WithModel(name),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(opts.Model),
			ollama.WithServerURL(opts.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case ProviderAnthropic:
		if opts.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(opts.AnthropicAPIKey),
			anthropic.WithModel(opts.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", opts.Provider)
	}

	return &Strategy{model: model}, nil
}

// NewWithModel injects a model directly; used by tests.
func NewWithModel(model llms.Model) *Strategy {
	return &Strategy{model: model}
}

// Name implements ports.PromptStrategy.
func (s *Strategy) Name() string { return "llm" }

const systemPrompt = `You are a geographic data extraction assistant.
Parse the user's request and extract the location and requested data types.

Available data types:
- land_cover: Land Use/Land Cover data
- tree_cover: Tree Canopy Cover data
- ndvi: Normalized Difference Vegetation Index
- population: Population density data

Return strictly a JSON object and nothing else:
{"place": "<city or region name>", "data_types": ["list", "of", "data types"]}

If no specific types are mentioned, return an empty data_types list.`

// extraction is the structured output we ask the model for.
type extraction struct {
	Place     string   `json:"place"`
	DataTypes []string `json:"data_types"`
}

// Parse implements ports.PromptStrategy.
func (s *Strategy) Parse(ctx context.Context, prompt string) (domain.ParsedRequest, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	resp, err := s.model.GenerateContent(ctx, messages, llms.WithTemperature(0))
	if err != nil {
		return domain.ParsedRequest{}, fmt.Errorf("llm generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.ParsedRequest{}, fmt.Errorf("llm returned no choices")
	}

	ext, err := parseExtraction(resp.Choices[0].Content)
	if err != nil {
		return domain.ParsedRequest{}, err
	}
	if ext.Place == "" {
		return domain.ParsedRequest{}, fmt.Errorf("llm extracted no place")
	}

	// Unknown kinds from the model are dropped rather than failing the
	// whole parse.
	var kinds []domain.DatasetKind
	for _, dt := range ext.DataTypes {
		if k, err := domain.ParseKind(dt); err == nil {
			kinds = append(kinds, k)
		}
	}

	return domain.ParsedRequest{
		Place:      ext.Place,
		Kinds:      kinds,
		Source:     "llm",
		Confidence: 0.95,
	}, nil
}

// parseExtraction tolerates markdown code fences and leading prose
// around the JSON object.
func parseExtraction(content string) (extraction, error) {
	content = strings.TrimSpace(content)
	if i := strings.Index(content, "{"); i >= 0 {
		if j := strings.LastIndex(content, "}"); j > i {
			content = content[i : j+1]
		}
	}
	var ext extraction
	if err := json.Unmarshal([]byte(content), &ext); err != nil {
		return extraction{}, fmt.Errorf("unparseable llm output: %w", err)
	}
	return ext, nil
}
