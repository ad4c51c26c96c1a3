package travel

import (
	"encoding/json"
	"strings"
	"time"
)

// DataKind names an external data category the router can source.
type DataKind string

const (
	DataWeather     DataKind = "weather"
	DataAttractions DataKind = "attractions"
)

// ParseDataKind maps arbitrary input to a known data kind.
func ParseDataKind(s string) (DataKind, bool) {
	switch DataKind(strings.ToLower(strings.TrimSpace(s))) {
	case DataWeather:
		return DataWeather, true
	case DataAttractions:
		return DataAttractions, true
	default:
		return "", false
	}
}

// DataSource is the router's per-category decision.
type DataSource string

const (
	// SourceCache means a valid cached payload exists for the key.
	SourceCache DataSource = "use_cache"
	// SourceFetch means the key is missing or expired and a fresh external
	// call is required.
	SourceFetch DataSource = "fetch"
	// SourceModelKnowledge means no external call will be made; the model
	// answers from its own knowledge.
	SourceModelKnowledge DataSource = "model_knowledge"
)

// PlanEntry is one category's sourcing decision.
type PlanEntry struct {
	Source   DataSource    `json:"source"`
	CacheKey string        `json:"cacheKey,omitempty"`
	TTL      time.Duration `json:"ttl,omitempty"`
	Reason   string        `json:"reason,omitempty"`
}

// DataPlan maps each relevant data kind to its sourcing decision.
type DataPlan map[DataKind]PlanEntry

// ResponsePlan is the orchestrator's full output for one turn. Downstream
// prompt construction consumes this value and nothing else.
type ResponsePlan struct {
	SessionID      string                       `json:"sessionId"`
	Query          string                       `json:"query"`
	Intent         Intent                       `json:"intent"`
	Confidence     float64                      `json:"confidence"`
	Context        Context                      `json:"context"`
	Plan           DataPlan                     `json:"plan"`
	Payloads       map[DataKind]json.RawMessage `json:"payloads,omitempty"`
	Answer         string                       `json:"answer,omitempty"`
	Classification Classification               `json:"classification"`
	CreatedAt      time.Time                    `json:"createdAt"`
}

// CacheEntry is a TTL-bounded cached result of an external fetch.
type CacheEntry struct {
	Key        string          `json:"key"`
	Payload    json.RawMessage `json:"payload"`
	InsertedAt time.Time       `json:"insertedAt"`
	TTL        time.Duration   `json:"ttl"`
}

// Valid reports whether the entry is still within its TTL window.
func (e CacheEntry) Valid(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return now.Sub(e.InsertedAt) < e.TTL
}

// CacheKey builds the stable cache key for a data kind: the kind, the
// normalized location and an optional date bucket, so that two sessions
// phrasing the same place the same way share one entry.
func CacheKey(kind DataKind, location, bucket string) string {
	parts := []string{string(kind), NormalizeValue(location)}
	if b := NormalizeValue(bucket); b != "" {
		parts = append(parts, b)
	}
	return strings.Join(parts, "|")
}
