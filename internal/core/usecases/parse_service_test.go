package usecases_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/urbanlens/urbanlens/internal/core/domain"
	"github.com/urbanlens/urbanlens/internal/core/usecases"
)

// --- Mock PromptStrategy ---

type mockStrategy struct {
	name    string
	parseFn func(ctx context.Context, prompt string) (domain.ParsedRequest, error)
}

func (m *mockStrategy) Name() string { return m.name }

func (m *mockStrategy) Parse(ctx context.Context, prompt string) (domain.ParsedRequest, error) {
	if m.parseFn != nil {
		return m.parseFn(ctx, prompt)
	}
	return domain.ParsedRequest{}, errors.New("not configured")
}

// --- Tests ---

func TestParseService_FirstStrategyWins(t *testing.T) {
	llm := &mockStrategy{
		name: "llm",
		parseFn: func(_ context.Context, _ string) (domain.ParsedRequest, error) {
			return domain.ParsedRequest{
				Place: "Denver, Colorado", Kinds: []domain.DatasetKind{domain.KindNDVI},
				Source: "llm", Confidence: 0.95,
			}, nil
		},
	}
	keywordCalled := false
	keyword := &mockStrategy{
		name: "keyword",
		parseFn: func(_ context.Context, _ string) (domain.ParsedRequest, error) {
			keywordCalled = true
			return domain.ParsedRequest{Place: "Denver", Source: "keyword"}, nil
		},
	}

	svc := usecases.NewParseService(llm, keyword)
	parsed, err := svc.Parse(context.Background(), "NDVI for Denver")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Source != "llm" || parsed.Place != "Denver, Colorado" {
		t.Errorf("unexpected result: %+v", parsed)
	}
	if keywordCalled {
		t.Error("fallback strategy must not run when the first succeeds")
	}
}

func TestParseService_FallsBackOnError(t *testing.T) {
	llm := &mockStrategy{
		name: "llm",
		parseFn: func(_ context.Context, _ string) (domain.ParsedRequest, error) {
			return domain.ParsedRequest{}, errors.New("model unavailable")
		},
	}
	svc := usecases.NewParseService(llm, usecases.KeywordStrategy{})

	parsed, err := svc.Parse(context.Background(), "Get tree cover for Seattle")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Source != "keyword" {
		t.Errorf("source = %q, want keyword", parsed.Source)
	}
	if parsed.Place != "Seattle" {
		t.Errorf("place = %q, want Seattle", parsed.Place)
	}
}

func TestParseService_DefaultsToAllKinds(t *testing.T) {
	strat := &mockStrategy{
		name: "llm",
		parseFn: func(_ context.Context, _ string) (domain.ParsedRequest, error) {
			return domain.ParsedRequest{Place: "Boston", Source: "llm"}, nil
		},
	}
	svc := usecases.NewParseService(strat)

	parsed, err := svc.Parse(context.Background(), "all data for Boston")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(parsed.Kinds, domain.AllKinds()) {
		t.Errorf("kinds = %v, want all kinds", parsed.Kinds)
	}
}

func TestParseService_AllStrategiesFail(t *testing.T) {
	svc := usecases.NewParseService(usecases.KeywordStrategy{})

	_, err := svc.Parse(context.Background(), "get me some ndvi data")
	if !errors.Is(err, domain.ErrParseFailure) {
		t.Errorf("expected ErrParseFailure, got %v", err)
	}

	_, err = svc.Parse(context.Background(), "  ")
	if !errors.Is(err, domain.ErrParseFailure) {
		t.Errorf("empty prompt: expected ErrParseFailure, got %v", err)
	}
}

func TestParseService_Conversational(t *testing.T) {
	svc := usecases.NewParseService(usecases.KeywordStrategy{})

	reply, err := svc.Conversational(context.Background(), "Get NDVI and land cover for New York City")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Response == "" {
		t.Error("expected a confirmation line")
	}
	if reply.Structured.Place != "New York City" {
		t.Errorf("place = %q", reply.Structured.Place)
	}
	if len(reply.Clarification) != 0 {
		t.Errorf("specific request should need no clarification, got %v", reply.Clarification)
	}

	// A one-word place and no kind keywords both prompt clarifications.
	reply, err = svc.Conversational(context.Background(), "data about Chicago")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reply.Clarification) != 2 {
		t.Errorf("expected 2 clarifications, got %v", reply.Clarification)
	}
}
