// Package routing decides, per external data category, whether a turn is
// answered from cache, a fresh fetch, or the model's own knowledge. This is
// the freshness/cost/availability trade-off at the heart of the service: a
// turn never blocks on a hard external dependency.
package routing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/wayfinderhq/wayfinder/backend/internal/model/travel"
	"github.com/wayfinderhq/wayfinder/backend/internal/store"
)

// Config carries the routing constants.
type Config struct {
	// ConfidenceThreshold gates external calls: below it the classification
	// is not trusted enough to spend a fetch on.
	ConfidenceThreshold float64
	// WeatherTTL and AttractionsTTL bound cache freshness per category.
	WeatherTTL     time.Duration
	AttractionsTTL time.Duration
}

// DefaultConfig keeps entries fresh within a planning session without
// refetching on every turn.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: 0.5,
		WeatherTTL:          time.Hour,
		AttractionsTTL:      time.Hour,
	}
}

// dataKinds is every external data category the router decides on.
var dataKinds = []travel.DataKind{travel.DataWeather, travel.DataAttractions}

// Router implements the data-routing policy against the context store.
type Router struct {
	store store.ContextStore
	cfg   Config
}

// New builds a router over the given store.
func New(contextStore store.ContextStore, cfg Config) *Router {
	return &Router{store: contextStore, cfg: cfg}
}

// Route produces the per-category plan for one classified turn. Every known
// data kind gets an entry; categories the turn cannot justify fetching are
// marked as model knowledge with the reason recorded.
func (r *Router) Route(ctx context.Context, classification travel.Classification, sessionContext travel.Context) travel.DataPlan {
	plan := travel.DataPlan{}
	for _, kind := range dataKinds {
		plan[kind] = r.routeKind(ctx, kind, classification, sessionContext)
	}
	return plan
}

func (r *Router) routeKind(ctx context.Context, kind travel.DataKind, classification travel.Classification, sessionContext travel.Context) travel.PlanEntry {
	// The classifier decides which kinds a query needs; any intent can
	// carry any need. The router only decides how to satisfy it.
	if !classification.NeedsData(kind) {
		return travel.PlanEntry{
			Source: travel.SourceModelKnowledge,
			Reason: fmt.Sprintf("%s data not needed for this query", kind),
		}
	}
	if classification.Confidence < r.cfg.ConfidenceThreshold {
		return travel.PlanEntry{
			Source: travel.SourceModelKnowledge,
			Reason: fmt.Sprintf("confidence %.2f below threshold %.2f", classification.Confidence, r.cfg.ConfidenceThreshold),
		}
	}

	location, ok := sessionContext.First(travel.CategoryLocation)
	if !ok {
		// Never fetch without a location; the model answers generically
		// until the user names a place.
		return travel.PlanEntry{
			Source: travel.SourceModelKnowledge,
			Reason: "location not yet known",
		}
	}

	key := r.cacheKeyFor(kind, location, sessionContext)
	if _, err := r.store.GetCache(ctx, key); err == nil {
		// The TTL travels with cache hits too, so a resolver that finds
		// the entry gone can refetch and re-cache without a second trip
		// through the router.
		return travel.PlanEntry{Source: travel.SourceCache, CacheKey: key, TTL: r.ttlFor(kind)}
	} else if !errors.Is(err, store.ErrCacheMiss) {
		// Cache backend trouble is not worth failing the turn over; fall
		// through to a fetch as if the entry were missing.
		log.Printf("[routing] cache lookup for %s failed: %v", key, err)
	}

	return travel.PlanEntry{
		Source:   travel.SourceFetch,
		CacheKey: key,
		TTL:      r.ttlFor(kind),
	}
}

// cacheKeyFor buckets weather by month when known, so "Tokyo in March" and
// "Tokyo in July" do not share stale forecasts. Attractions change slowly
// enough that location alone is the key.
func (r *Router) cacheKeyFor(kind travel.DataKind, location string, sessionContext travel.Context) string {
	bucket := ""
	if kind == travel.DataWeather {
		bucket, _ = sessionContext.First(travel.CategoryMonth)
	}
	return travel.CacheKey(kind, location, bucket)
}

func (r *Router) ttlFor(kind travel.DataKind) time.Duration {
	switch kind {
	case travel.DataWeather:
		return r.cfg.WeatherTTL
	case travel.DataAttractions:
		return r.cfg.AttractionsTTL
	default:
		return time.Hour
	}
}
