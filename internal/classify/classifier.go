// Package classify decides a query's intent and extracts preference
// categories using two independent passes: a language-model pass that can
// fail, and a deterministic pattern pass that cannot. The combination policy
// guarantees a classification for every input.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/wayfinderhq/wayfinder/backend/internal/model/travel"
)

// Reasoner is the language-model backend. Any error counts as the model pass
// being unavailable for this turn; the pattern pass covers for it.
type Reasoner interface {
	Reason(ctx context.Context, prompt string) (string, error)
}

// Config carries the combination constants. They are deliberately
// configurable rather than hard-coded; see DefaultConfig for the values the
// service ships with.
type Config struct {
	// ModelWeight and PatternWeight scale the two passes' confidence
	// contributions; AgreementBonus is added when both passes pick the same
	// intent. The sum is clamped to [0,1].
	ModelWeight    float64
	PatternWeight  float64
	AgreementBonus float64

	// ConfidenceThreshold is the tie-break line: below it, a disagreeing
	// model intent loses to the pattern intent.
	ConfidenceThreshold float64

	// MaxQueryBytes bounds classifier input. Longer input is malformed and
	// skips the model pass; the pattern pass still runs.
	MaxQueryBytes int
}

// DefaultConfig mirrors the combination formula the service was tuned with.
func DefaultConfig() Config {
	return Config{
		ModelWeight:         0.8,
		PatternWeight:       0.2,
		AgreementBonus:      0.3,
		ConfidenceThreshold: 0.5,
		MaxQueryBytes:       2000,
	}
}

// Classifier is the hybrid intent/category extractor.
type Classifier struct {
	reasoner Reasoner
	cfg      Config
}

// New builds a classifier. A nil reasoner is allowed: every turn then takes
// the pattern fallback path.
func New(reasoner Reasoner, cfg Config) *Classifier {
	if cfg.MaxQueryBytes <= 0 {
		cfg.MaxQueryBytes = DefaultConfig().MaxQueryBytes
	}
	return &Classifier{reasoner: reasoner, cfg: cfg}
}

// Classify never fails: for any input it returns a classification with a
// defined intent and confidence, even with the model unavailable.
func (c *Classifier) Classify(ctx context.Context, query string, prior travel.Context) travel.Classification {
	now := time.Now().UTC()
	pattern := matchPatterns(query)

	trimmed := strings.TrimSpace(query)
	if trimmed == "" || len(query) > c.cfg.MaxQueryBytes {
		return travel.Classification{
			Intent:       pattern.Intent,
			Confidence:   pattern.Confidence,
			Categories:   pattern.Categories,
			Source:       travel.SourceFallback,
			Reasoning:    "malformed input, pattern pass only",
			ModelFailure: "input rejected before model pass",
			CreatedAt:    now,
			DataNeeds:    pattern.Needs,
		}
	}

	model, err := c.modelPass(ctx, trimmed, prior)
	if err != nil {
		log.Printf("[classify] model pass unavailable: %v", err)
		return travel.Classification{
			Intent:       pattern.Intent,
			Confidence:   pattern.Confidence,
			Categories:   pattern.Categories,
			Source:       travel.SourceFallback,
			Reasoning:    fmt.Sprintf("pattern matches: %s", strings.Join(pattern.Matches, ", ")),
			ModelFailure: err.Error(),
			CreatedAt:    now,
			DataNeeds:    pattern.Needs,
		}
	}

	return c.combine(model, pattern, now)
}

// modelResult is the structured answer expected from the reasoning backend.
type modelResult struct {
	Intent       string              `json:"intent"`
	Confidence   float64             `json:"confidence"`
	Reasoning    string              `json:"reasoning"`
	Categories   map[string][]string `json:"categories"`
	ExternalData []string            `json:"external_data"`
}

func (c *Classifier) modelPass(ctx context.Context, query string, prior travel.Context) (modelResult, error) {
	if c.reasoner == nil {
		return modelResult{}, fmt.Errorf("no reasoning backend configured")
	}

	raw, err := c.reasoner.Reason(ctx, buildClassificationPrompt(query, prior))
	if err != nil {
		return modelResult{}, fmt.Errorf("reason: %w", err)
	}

	var result modelResult
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &result); err != nil {
		return modelResult{}, fmt.Errorf("malformed model output: %w", err)
	}

	if travel.ParseIntent(result.Intent) == travel.IntentUnknown {
		return modelResult{}, fmt.Errorf("model returned unknown intent %q", result.Intent)
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	if result.Categories == nil {
		result.Categories = map[string][]string{}
	}
	return result, nil
}

func (c *Classifier) combine(model modelResult, pattern patternResult, now time.Time) travel.Classification {
	modelIntent := travel.ParseIntent(model.Intent)
	agree := modelIntent == pattern.Intent

	intent := modelIntent
	source := travel.SourceModel
	reasoning := model.Reasoning
	switch {
	case agree:
		source = travel.SourceConsensus
	case model.Confidence < c.cfg.ConfidenceThreshold:
		// The pattern pass cannot silently fail, which makes it the
		// trustworthy side of a low-confidence disagreement.
		intent = pattern.Intent
		source = travel.SourcePatterns
		reasoning = fmt.Sprintf("pattern intent preferred over low-confidence model (%.2f)", model.Confidence)
	}

	confidence := c.cfg.ModelWeight*model.Confidence + c.cfg.PatternWeight*pattern.Confidence
	if agree {
		confidence += c.cfg.AgreementBonus
	}
	if confidence > 1 {
		confidence = 1
	}

	// Model values first; pattern values fill gaps but never override.
	categories := map[string][]string{}
	for category, values := range model.Categories {
		for _, v := range values {
			appendValue(categories, category, v)
		}
	}
	for category, values := range pattern.Categories {
		for _, v := range values {
			appendValue(categories, category, v)
		}
	}

	// Needs are a union too: either pass spotting a use for live data is
	// enough to let the router consider it.
	needs := append([]travel.DataKind(nil), pattern.Needs...)
	for _, s := range model.ExternalData {
		if kind, ok := travel.ParseDataKind(s); ok && !containsKind(needs, kind) {
			needs = append(needs, kind)
		}
	}

	return travel.Classification{
		Intent:     intent,
		Confidence: confidence,
		Categories: categories,
		Source:     source,
		Reasoning:  reasoning,
		CreatedAt:  now,
		DataNeeds:  needs,
	}
}

func containsKind(kinds []travel.DataKind, kind travel.DataKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func buildClassificationPrompt(query string, prior travel.Context) string {
	var b strings.Builder
	b.WriteString("You are a travel query classifier. Classify the query into exactly one intent: ")
	b.WriteString(`"destination", "packing" or "attractions".` + "\n")
	b.WriteString("Extract every explicitly stated preference into categories, regardless of intent: ")
	b.WriteString("location, month, budget, climate, duration, group_size, interests, activities.\n")
	b.WriteString("Only extract what the user actually said; never invent placeholder values.\n")
	b.WriteString("Also list which live data sources would help answer the query in ")
	b.WriteString(`"external_data", choosing from "weather" and "attractions"; use an empty list when none apply.` + "\n\n")

	if summary := summarizeContext(prior); summary != "" {
		b.WriteString("Known context from earlier turns: ")
		b.WriteString(summary)
		b.WriteString("\n")
	}

	b.WriteString("Query: ")
	b.WriteString(fmt.Sprintf("%q", query))
	b.WriteString("\n\nRespond with JSON only: ")
	b.WriteString(`{"intent": "...", "confidence": 0.0, "reasoning": "...", "categories": {"location": ["..."]}, "external_data": ["weather"]}`)
	return b.String()
}

// summarizeContext renders prior context compactly, sorted for deterministic
// prompts.
func summarizeContext(prior travel.Context) string {
	if len(prior) == 0 {
		return ""
	}
	categories := make([]string, 0, len(prior))
	for category := range prior {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	parts := make([]string, 0, len(categories))
	for _, category := range categories {
		parts = append(parts, category+"="+strings.Join(prior[category], "/"))
	}
	return strings.Join(parts, "; ")
}

// stripCodeFence unwraps responses the model insists on fencing as markdown.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
