package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/tmc/langchaingo/llms"

	llmadapter "github.com/urbanlens/urbanlens/internal/adapters/llm"
	"github.com/urbanlens/urbanlens/internal/core/domain"
)

// fakeModel returns a canned completion.
type fakeModel struct {
	content string
	err     error
}

func (f *fakeModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.content}},
	}, nil
}

func (f *fakeModel) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return f.content, f.err
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantPlace string
		wantKinds []domain.DatasetKind
	}{
		{
			"plain json",
			`{"place": "Denver, Colorado", "data_types": ["ndvi", "tree_cover"]}`,
			"Denver, Colorado",
			[]domain.DatasetKind{domain.KindNDVI, domain.KindTreeCover},
		},
		{
			"fenced json",
			"```json\n{\"place\": \"Austin\", \"data_types\": [\"population\"]}\n```",
			"Austin",
			[]domain.DatasetKind{domain.KindPopulation},
		},
		{
			"leading prose",
			`Here is the extraction: {"place": "Chicago", "data_types": []}`,
			"Chicago",
			nil,
		},
		{
			"unknown kind dropped",
			`{"place": "Seattle", "data_types": ["NDVI", "weather"]}`,
			"Seattle",
			[]domain.DatasetKind{domain.KindNDVI},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := llmadapter.NewWithModel(&fakeModel{content: tt.content})
			got, err := s.Parse(context.Background(), "whatever")
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got.Place != tt.wantPlace {
				t.Errorf("place = %q, want %q", got.Place, tt.wantPlace)
			}
			if len(got.Kinds) != len(tt.wantKinds) {
				t.Fatalf("kinds = %v, want %v", got.Kinds, tt.wantKinds)
			}
			for i := range tt.wantKinds {
				if got.Kinds[i] != tt.wantKinds[i] {
					t.Errorf("kinds[%d] = %s, want %s", i, got.Kinds[i], tt.wantKinds[i])
				}
			}
			if got.Source != "llm" {
				t.Errorf("source = %q", got.Source)
			}
		})
	}
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name  string
		model *fakeModel
	}{
		{"model error", &fakeModel{err: errors.New("rate limited")}},
		{"no json", &fakeModel{content: "I cannot help with that."}},
		{"empty place", &fakeModel{content: `{"place": "", "data_types": ["ndvi"]}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := llmadapter.NewWithModel(tt.model)
			if _, err := s.Parse(context.Background(), "whatever"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := llmadapter.New(llmadapter.Options{Provider: "openai"}); err == nil {
		t.Error("expected error without OpenAI key")
	}
	if _, err := llmadapter.New(llmadapter.Options{Provider: "anthropic"}); err == nil {
		t.Error("expected error without Anthropic key")
	}
	if _, err := llmadapter.New(llmadapter.Options{Provider: "psychic"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
