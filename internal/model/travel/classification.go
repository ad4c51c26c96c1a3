package travel

import "time"

// Intent enumerates the supported query types.
type Intent string

const (
	IntentDestination Intent = "destination"
	IntentPacking     Intent = "packing"
	IntentAttractions Intent = "attractions"
	IntentUnknown     Intent = "unknown"
)

// ParseIntent maps arbitrary input to a known intent, defaulting to unknown.
func ParseIntent(s string) Intent {
	switch Intent(s) {
	case IntentDestination, IntentPacking, IntentAttractions:
		return Intent(s)
	default:
		return IntentUnknown
	}
}

// ClassificationSource records which pass produced the final intent.
type ClassificationSource string

const (
	SourceConsensus ClassificationSource = "consensus"
	SourceModel     ClassificationSource = "model"
	SourcePatterns  ClassificationSource = "patterns"
	SourceFallback  ClassificationSource = "patterns_fallback"
)

// Well-known category names shared by the classifier, the context merge and
// the data router. Categories are open-ended strings; these are the ones the
// pattern rule table knows how to extract.
const (
	CategoryLocation  = "location"
	CategoryMonth     = "month"
	CategoryBudget    = "budget"
	CategoryClimate   = "climate"
	CategoryDuration  = "duration"
	CategoryGroupSize = "group_size"
	CategoryInterests = "interests"
	CategoryActivity  = "activities"
)

// Classification is the classifier's structured output for one turn.
// It is immutable once produced; the store merges Categories into the
// session context but never rewrites the classification itself.
type Classification struct {
	Intent       Intent               `json:"intent"`
	Confidence   float64              `json:"confidence"`
	Categories   map[string][]string  `json:"categories"`
	Source       ClassificationSource `json:"source"`
	Reasoning    string               `json:"reasoning,omitempty"`
	ModelFailure string               `json:"modelFailure,omitempty"`
	CreatedAt    time.Time            `json:"createdAt"`

	// DataNeeds lists the external data kinds that would ground an answer
	// to this query. Independent of which intent won: a destination query
	// asking about rain still needs weather.
	DataNeeds []DataKind `json:"dataNeeds,omitempty"`
}

// NeedsData reports whether the classification calls for the given kind.
func (c Classification) NeedsData(kind DataKind) bool {
	for _, k := range c.DataNeeds {
		if k == kind {
			return true
		}
	}
	return false
}

// Values returns the extracted values for a category, nil when absent.
func (c Classification) Values(category string) []string {
	if c.Categories == nil {
		return nil
	}
	return c.Categories[category]
}
