package ai

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/wayfinderhq/wayfinder/backend/internal/model/travel"
)

func TestBuildResponsePromptIncludesContext(t *testing.T) {
	plan := travel.ResponsePlan{
		Query: "What should I pack for Tokyo in March?",
		Context: travel.Context{
			travel.CategoryLocation: {"Tokyo"},
			travel.CategoryMonth:    {"march"},
		},
		Plan: travel.DataPlan{},
	}

	prompt := BuildResponsePrompt(plan)

	if !strings.Contains(prompt, `"What should I pack for Tokyo in March?"`) {
		t.Fatalf("expected the query in the prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "location: Tokyo") {
		t.Fatalf("expected the location line:\n%s", prompt)
	}
	if !strings.Contains(prompt, "month: march") {
		t.Fatalf("expected the month line:\n%s", prompt)
	}
}

func TestBuildResponsePromptRendersWeather(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{
		"location": "Tokyo, JP",
		"current":  map[string]any{"temperature": 12.3, "feelsLike": 10.1, "description": "light rain"},
	})
	plan := travel.ResponsePlan{
		Query:    "pack for Tokyo",
		Payloads: map[travel.DataKind]json.RawMessage{travel.DataWeather: raw},
		Plan:     travel.DataPlan{},
	}

	prompt := BuildResponsePrompt(plan)

	if !strings.Contains(prompt, "Tokyo, JP") || !strings.Contains(prompt, "light rain") {
		t.Fatalf("expected rendered weather:\n%s", prompt)
	}
}

func TestBuildResponsePromptNotesModelKnowledge(t *testing.T) {
	plan := travel.ResponsePlan{
		Query: "pack for Tokyo",
		Plan: travel.DataPlan{
			travel.DataWeather: {Source: travel.SourceModelKnowledge, Reason: "fetch failed"},
		},
	}

	prompt := BuildResponsePrompt(plan)

	if !strings.Contains(prompt, "No live weather data") {
		t.Fatalf("expected the model-knowledge note:\n%s", prompt)
	}
}

func TestBuildResponsePromptForwardsOpaquePayloads(t *testing.T) {
	plan := travel.ResponsePlan{
		Query:    "things to do in Paris",
		Payloads: map[travel.DataKind]json.RawMessage{travel.DataAttractions: json.RawMessage(`"opaque"`)},
		Plan:     travel.DataPlan{},
	}

	prompt := BuildResponsePrompt(plan)

	if !strings.Contains(prompt, "opaque") {
		t.Fatalf("unparseable payloads must still be forwarded:\n%s", prompt)
	}
}

func TestSystemPromptVariesByIntent(t *testing.T) {
	packing := systemPromptFor(travel.IntentPacking)
	attractions := systemPromptFor(travel.IntentAttractions)

	if packing == attractions {
		t.Fatal("expected intent-specific system prompts")
	}
	if systemPromptFor(travel.IntentUnknown) == "" {
		t.Fatal("expected a default system prompt")
	}
}
