package usecases

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/urbanlens/urbanlens/internal/core/domain"
)

// keywordMap associates prompt keywords with dataset kinds. Multi-word
// keywords are matched as substrings of the lowercased prompt.
var keywordMap = map[domain.DatasetKind][]string{
	domain.KindLandCover:  {"land cover", "land use", "landcover", "lulc", "nlcd"},
	domain.KindTreeCover:  {"tree cover", "tree canopy", "canopy", "forest", "trees"},
	domain.KindNDVI:       {"ndvi", "vegetation index", "vegetation", "greenness"},
	domain.KindPopulation: {"population", "people", "demographic", "census"},
}

// locative prepositions that commonly precede the place name.
var locatives = map[string]bool{
	"in": true, "for": true, "around": true, "near": true, "at": true, "of": true,
}

// leading verbs and filler that start prompts but never name a place.
var promptStopwords = map[string]bool{
	"get": true, "show": true, "fetch": true, "give": true, "find": true,
	"download": true, "i": true, "please": true, "me": true, "the": true,
}

// KeywordStrategy is the deterministic fallback prompt parser: dataset
// kinds from keyword scanning, place name from a capitalization
// heuristic. It never calls out and always produces the same output for
// the same prompt.
type KeywordStrategy struct{}

// Name implements ports.PromptStrategy.
func (KeywordStrategy) Name() string { return "keyword" }

// Parse implements ports.PromptStrategy.
func (KeywordStrategy) Parse(_ context.Context, prompt string) (domain.ParsedRequest, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return domain.ParsedRequest{}, fmt.Errorf("%w: empty prompt", domain.ErrParseFailure)
	}

	place := extractPlace(prompt)
	if place == "" {
		return domain.ParsedRequest{}, fmt.Errorf("%w: no place name in prompt", domain.ErrParseFailure)
	}

	return domain.ParsedRequest{
		Place:      place,
		Kinds:      matchKinds(prompt),
		Source:     "keyword",
		Confidence: 0.5,
	}, nil
}

// matchKinds returns every kind whose keyword appears in the prompt, in
// the stable AllKinds order. Each keyword maps to exactly one kind.
func matchKinds(prompt string) []domain.DatasetKind {
	lower := strings.ToLower(prompt)
	var kinds []domain.DatasetKind
	for _, kind := range domain.AllKinds() {
		for _, kw := range keywordMap[kind] {
			if strings.Contains(lower, kw) {
				kinds = append(kinds, kind)
				break
			}
		}
	}
	return kinds
}

// extractPlace finds the longest run of capitalized words that is not
// made of keywords or prompt filler; failing that, it takes the text
// following the last locative preposition.
func extractPlace(prompt string) string {
	words := strings.FieldsFunc(prompt, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';' || r == '.' || r == '?' || r == '!'
	})

	var best []string
	var run []string
	flush := func() {
		if len(run) > len(best) {
			best = run
		}
		run = nil
	}
	for _, w := range words {
		if isCapitalized(w) && !isNoise(w) {
			run = append(run, w)
			continue
		}
		flush()
	}
	flush()
	if len(best) > 0 {
		return strings.Join(best, " ")
	}

	// Locative fallback: "data near downtown chicago" → "downtown chicago".
	for i := len(words) - 2; i >= 0; i-- {
		if locatives[strings.ToLower(words[i])] {
			rest := words[i+1:]
			var kept []string
			for _, w := range rest {
				if isNoise(w) {
					continue
				}
				kept = append(kept, w)
			}
			if len(kept) > 0 {
				return strings.Join(kept, " ")
			}
		}
	}
	return ""
}

func isCapitalized(w string) bool {
	r := []rune(w)
	return len(r) > 0 && unicode.IsUpper(r[0])
}

// isNoise reports whether a word is a dataset keyword, a locative, or
// prompt filler — none of which can be part of a place name.
func isNoise(w string) bool {
	lw := strings.ToLower(w)
	if promptStopwords[lw] || locatives[lw] {
		return true
	}
	for _, kws := range keywordMap {
		for _, kw := range kws {
			for _, part := range strings.Fields(kw) {
				if lw == part {
					return true
				}
			}
		}
	}
	return false
}
