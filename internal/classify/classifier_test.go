package classify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/wayfinderhq/wayfinder/backend/internal/model/travel"
)

type stubReasoner struct {
	response string
	err      error
	prompt   string
}

func (s *stubReasoner) Reason(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.response, s.err
}

func TestClassifyWithoutReasonerFallsBack(t *testing.T) {
	c := New(nil, DefaultConfig())

	got := c.Classify(context.Background(), "What should I pack for Tokyo in March?", nil)

	if got.Source != travel.SourceFallback {
		t.Fatalf("expected fallback source, got %s", got.Source)
	}
	if got.Intent != travel.IntentPacking {
		t.Fatalf("expected packing intent, got %s", got.Intent)
	}
	if got.ModelFailure == "" {
		t.Fatal("expected the model failure to be recorded")
	}
	if got.Confidence < 0.5 {
		t.Fatalf("pattern confidence with a location must clear 0.5, got %.2f", got.Confidence)
	}
}

func TestClassifyModelErrorFallsBack(t *testing.T) {
	reasoner := &stubReasoner{err: errors.New("backend down")}
	c := New(reasoner, DefaultConfig())

	got := c.Classify(context.Background(), "things to do in Paris", nil)

	if got.Source != travel.SourceFallback {
		t.Fatalf("expected fallback source, got %s", got.Source)
	}
	if got.Intent != travel.IntentAttractions {
		t.Fatalf("expected attractions intent, got %s", got.Intent)
	}
}

func TestClassifyMalformedModelOutputFallsBack(t *testing.T) {
	reasoner := &stubReasoner{response: "I think this is about packing."}
	c := New(reasoner, DefaultConfig())

	got := c.Classify(context.Background(), "what should I pack for Oslo", nil)

	if got.Source != travel.SourceFallback {
		t.Fatalf("expected fallback source, got %s", got.Source)
	}
}

func TestClassifyAgreementBoostsConfidence(t *testing.T) {
	reasoner := &stubReasoner{
		response: `{"intent":"packing","confidence":0.9,"reasoning":"asks about clothes","categories":{"location":["Tokyo"]}}`,
	}
	c := New(reasoner, DefaultConfig())

	got := c.Classify(context.Background(), "What should I pack for Tokyo in March?", nil)

	if got.Source != travel.SourceConsensus {
		t.Fatalf("expected consensus source, got %s", got.Source)
	}
	if got.Intent != travel.IntentPacking {
		t.Fatalf("expected packing intent, got %s", got.Intent)
	}
	// 0.8*0.9 + 0.2*0.6 + 0.3 clamps to 1.
	if got.Confidence != 1 {
		t.Fatalf("expected clamped confidence 1, got %.2f", got.Confidence)
	}
}

func TestClassifyLowConfidenceDisagreementPrefersPatterns(t *testing.T) {
	reasoner := &stubReasoner{
		response: `{"intent":"destination","confidence":0.3,"reasoning":"unsure","categories":{}}`,
	}
	c := New(reasoner, DefaultConfig())

	got := c.Classify(context.Background(), "What should I pack for Tokyo?", nil)

	if got.Source != travel.SourcePatterns {
		t.Fatalf("expected pattern source, got %s", got.Source)
	}
	if got.Intent != travel.IntentPacking {
		t.Fatalf("expected packing intent, got %s", got.Intent)
	}
}

func TestClassifyConfidentDisagreementPrefersModel(t *testing.T) {
	reasoner := &stubReasoner{
		response: `{"intent":"destination","confidence":0.9,"reasoning":"asks where to go","categories":{}}`,
	}
	c := New(reasoner, DefaultConfig())

	got := c.Classify(context.Background(), "What should I pack for Tokyo?", nil)

	if got.Source != travel.SourceModel {
		t.Fatalf("expected model source, got %s", got.Source)
	}
	if got.Intent != travel.IntentDestination {
		t.Fatalf("expected destination intent, got %s", got.Intent)
	}
}

func TestClassifyStripsCodeFence(t *testing.T) {
	reasoner := &stubReasoner{
		response: "```json\n{\"intent\":\"attractions\",\"confidence\":0.8,\"categories\":{}}\n```",
	}
	c := New(reasoner, DefaultConfig())

	got := c.Classify(context.Background(), "things to do in Paris", nil)

	if got.Source != travel.SourceConsensus {
		t.Fatalf("expected consensus source, got %s", got.Source)
	}
}

func TestClassifyUnknownModelIntentFallsBack(t *testing.T) {
	reasoner := &stubReasoner{
		response: `{"intent":"weather","confidence":0.9,"categories":{}}`,
	}
	c := New(reasoner, DefaultConfig())

	got := c.Classify(context.Background(), "things to do in Paris", nil)

	if got.Source != travel.SourceFallback {
		t.Fatalf("expected fallback for unknown model intent, got %s", got.Source)
	}
}

func TestClassifyMergesModelAndPatternCategories(t *testing.T) {
	reasoner := &stubReasoner{
		response: `{"intent":"packing","confidence":0.9,"categories":{"location":["Tokyo, Japan"],"duration":["10 days"]}}`,
	}
	c := New(reasoner, DefaultConfig())

	got := c.Classify(context.Background(), "What should I pack for Tokyo in March?", nil)

	if got.Categories[travel.CategoryLocation][0] != "Tokyo, Japan" {
		t.Fatalf("model values must come first, got %v", got.Categories[travel.CategoryLocation])
	}
	if len(got.Categories[travel.CategoryMonth]) != 1 {
		t.Fatalf("pattern values must fill gaps, got %v", got.Categories)
	}
	if len(got.Categories[travel.CategoryDuration]) != 1 {
		t.Fatalf("model-only categories must survive, got %v", got.Categories)
	}
}

func TestClassifyFallbackCarriesDataNeeds(t *testing.T) {
	c := New(nil, DefaultConfig())

	got := c.Classify(context.Background(), "What should I pack for Tokyo in March?", nil)

	if !got.NeedsData(travel.DataWeather) {
		t.Fatalf("packing fallback must need weather, got %v", got.DataNeeds)
	}
	if got.NeedsData(travel.DataAttractions) {
		t.Fatalf("unexpected attractions need: %v", got.DataNeeds)
	}
}

func TestClassifyUnionsExternalDataFromModel(t *testing.T) {
	reasoner := &stubReasoner{
		response: `{"intent":"packing","confidence":0.9,"categories":{},"external_data":["attractions"]}`,
	}
	c := New(reasoner, DefaultConfig())

	got := c.Classify(context.Background(), "What should I pack for Tokyo in March?", nil)

	if !got.NeedsData(travel.DataWeather) {
		t.Fatalf("pattern-side weather need must survive, got %v", got.DataNeeds)
	}
	if !got.NeedsData(travel.DataAttractions) {
		t.Fatalf("model-side attractions need must be unioned in, got %v", got.DataNeeds)
	}
}

func TestClassifyIgnoresUnknownExternalData(t *testing.T) {
	reasoner := &stubReasoner{
		response: `{"intent":"packing","confidence":0.9,"categories":{},"external_data":["flights","weather"]}`,
	}
	c := New(reasoner, DefaultConfig())

	got := c.Classify(context.Background(), "What should I pack for Tokyo in March?", nil)

	if len(got.DataNeeds) != 1 || got.DataNeeds[0] != travel.DataWeather {
		t.Fatalf("unknown kinds must be dropped and known ones deduplicated, got %v", got.DataNeeds)
	}
}

func TestClassifyRejectsOversizedInput(t *testing.T) {
	reasoner := &stubReasoner{response: `{"intent":"packing","confidence":0.9,"categories":{}}`}
	c := New(reasoner, Config{ModelWeight: 0.8, PatternWeight: 0.2, AgreementBonus: 0.3, ConfidenceThreshold: 0.5, MaxQueryBytes: 10})

	got := c.Classify(context.Background(), strings.Repeat("pack ", 10), nil)

	if got.Source != travel.SourceFallback {
		t.Fatalf("oversized input must skip the model pass, got %s", got.Source)
	}
	if reasoner.prompt != "" {
		t.Fatal("the model must not be called for rejected input")
	}
}

func TestClassifyEmptyInputFallsBack(t *testing.T) {
	c := New(&stubReasoner{}, DefaultConfig())

	got := c.Classify(context.Background(), "   ", nil)

	if got.Source != travel.SourceFallback {
		t.Fatalf("expected fallback source, got %s", got.Source)
	}
	if got.Intent != travel.IntentDestination {
		t.Fatalf("expected destination default, got %s", got.Intent)
	}
}

func TestClassificationPromptIncludesPriorContext(t *testing.T) {
	reasoner := &stubReasoner{response: `{"intent":"packing","confidence":0.9,"categories":{}}`}
	c := New(reasoner, DefaultConfig())

	prior := travel.Context{travel.CategoryLocation: {"Tokyo"}}
	c.Classify(context.Background(), "what should I pack?", prior)

	if !strings.Contains(reasoner.prompt, "location=Tokyo") {
		t.Fatalf("expected prior context in prompt, got %q", reasoner.prompt)
	}
}
