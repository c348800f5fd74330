package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/urbanlens/urbanlens/internal/core/domain"
	"github.com/urbanlens/urbanlens/internal/core/ports"
	"github.com/urbanlens/urbanlens/internal/pkg/metrics"
)

// ParseService turns free-text prompts into structured requests. It
// tries its strategies in order — typically the LLM first, then the
// deterministic keyword fallback — and the first success wins.
type ParseService struct {
	strategies []ports.PromptStrategy
}

// NewParseService creates a ParseService. Strategy order is significant.
func NewParseService(strategies ...ports.PromptStrategy) *ParseService {
	return &ParseService{strategies: strategies}
}

// Parse extracts the place name and dataset kinds from a prompt. Kinds
// default to all known kinds when none are detected. Returns
// domain.ErrParseFailure only when every strategy fails to produce a
// place name.
func (s *ParseService) Parse(ctx context.Context, prompt string) (domain.ParsedRequest, error) {
	if strings.TrimSpace(prompt) == "" {
		return domain.ParsedRequest{}, fmt.Errorf("%w: empty prompt", domain.ErrParseFailure)
	}

	var lastErr error
	for _, strat := range s.strategies {
		parsed, err := strat.Parse(ctx, prompt)
		if err != nil {
			slog.Debug("prompt strategy failed", "strategy", strat.Name(), "error", err)
			lastErr = err
			continue
		}
		if parsed.Place == "" {
			lastErr = fmt.Errorf("strategy %s returned no place", strat.Name())
			continue
		}
		if len(parsed.Kinds) == 0 {
			parsed.Kinds = domain.AllKinds()
		}
		metrics.ParseOutcomes.WithLabelValues(strat.Name()).Inc()
		return parsed, nil
	}

	metrics.ParseOutcomes.WithLabelValues("failed").Inc()
	if lastErr != nil {
		return domain.ParsedRequest{}, fmt.Errorf("%w: %v", domain.ErrParseFailure, lastErr)
	}
	return domain.ParsedRequest{}, domain.ErrParseFailure
}

// ChatReply is the conversational parse response: a confirmation line
// plus the structured extraction and any clarification hints.
type ChatReply struct {
	Response      string               `json:"response"`
	Structured    domain.ParsedRequest `json:"structured_data"`
	Clarification []string             `json:"clarification_needed,omitempty"`
}

// Conversational parses a prompt and wraps the result in a short
// conversational confirmation, flagging anything worth clarifying.
func (s *ParseService) Conversational(ctx context.Context, prompt string) (ChatReply, error) {
	parsed, err := s.Parse(ctx, prompt)
	if err != nil {
		return ChatReply{}, err
	}

	names := make([]string, len(parsed.Kinds))
	for i, k := range parsed.Kinds {
		names[i] = string(k)
	}

	reply := ChatReply{
		Response: fmt.Sprintf("I'll fetch %s data for %s. Processing your request now...",
			strings.Join(names, ", "), parsed.Place),
		Structured: parsed,
	}
	if len(strings.Fields(parsed.Place)) < 2 {
		reply.Clarification = append(reply.Clarification,
			"Please confirm which city or region you need data for.")
	}
	if len(parsed.Kinds) == len(domain.AllKinds()) {
		reply.Clarification = append(reply.Clarification,
			"Would you like all data types or specific ones?")
	}
	return reply, nil
}
