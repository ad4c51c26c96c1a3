// Package conversation orchestrates one turn end to end: classify, merge
// into the session context, route data sources, resolve the plan, and hand a
// ResponsePlan to whoever renders the answer.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/wayfinderhq/wayfinder/backend/internal/classify"
	"github.com/wayfinderhq/wayfinder/backend/internal/external"
	"github.com/wayfinderhq/wayfinder/backend/internal/model/travel"
	"github.com/wayfinderhq/wayfinder/backend/internal/routing"
	"github.com/wayfinderhq/wayfinder/backend/internal/store"
)

var (
	// ErrSessionRequired signals a missing session identifier.
	ErrSessionRequired = errors.New("session id is required")
	// ErrSessionNotFound mirrors the store sentinel for handlers.
	ErrSessionNotFound = store.ErrSessionNotFound
)

// Responder renders a resolved plan into the final answer text. Optional:
// without one the service returns the bare plan.
type Responder interface {
	Respond(ctx context.Context, plan travel.ResponsePlan) (string, error)
}

// Service is the per-message orchestrator.
type Service struct {
	store      store.ContextStore
	classifier *classify.Classifier
	router     *routing.Router
	fetchers   map[travel.DataKind]external.Fetcher
	responder  Responder

	fetchTimeout time.Duration
}

// NewService wires the orchestrator. Fetchers may be nil for kinds the
// deployment cannot serve; those categories then always downgrade.
func NewService(
	contextStore store.ContextStore,
	classifier *classify.Classifier,
	router *routing.Router,
	fetchers map[travel.DataKind]external.Fetcher,
	responder Responder,
	fetchTimeout time.Duration,
) *Service {
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	return &Service{
		store:        contextStore,
		classifier:   classifier,
		router:       router,
		fetchers:     fetchers,
		responder:    responder,
		fetchTimeout: fetchTimeout,
	}
}

// CreateSession provisions a fresh session identifier. The session record
// itself materializes on the first message.
func (s *Service) CreateSession(context.Context) travel.Session {
	now := time.Now().UTC()
	return travel.Session{
		ID:         uuid.NewString(),
		Context:    travel.Context{},
		CreatedAt:  now,
		LastAccess: now,
	}
}

// GetSession retrieves a session snapshot.
func (s *Service) GetSession(ctx context.Context, sessionID string) (travel.Session, error) {
	if sessionID == "" {
		return travel.Session{}, ErrSessionRequired
	}
	return s.store.Get(ctx, sessionID)
}

// ClearSession drops a session and its accumulated context.
func (s *Service) ClearSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionRequired
	}
	return s.store.Clear(ctx, sessionID)
}

// HandleMessage processes one user message and returns the response plan.
// The only fatal condition is the store being unable to track the session;
// every external dependency failure degrades to model knowledge instead.
func (s *Service) HandleMessage(ctx context.Context, sessionID, text string) (travel.ResponsePlan, error) {
	if sessionID == "" {
		return travel.ResponsePlan{}, ErrSessionRequired
	}

	now := time.Now().UTC()
	s.store.Expire(ctx, now)

	prior := travel.Context{}
	if existing, err := s.store.Get(ctx, sessionID); err == nil {
		prior = existing.Context
	}

	classification := s.classifier.Classify(ctx, text, prior)

	turn := travel.Turn{Query: text, Classification: classification, CreatedAt: now}
	session, err := s.store.AppendTurn(ctx, sessionID, turn)
	if err != nil {
		// A silently reset context would corrupt the conversation, so
		// storage trouble is surfaced rather than papered over.
		return travel.ResponsePlan{}, fmt.Errorf("append turn: %w", err)
	}

	// Destination-switch policy: a freshly named place that matches nothing
	// already known replaces the accumulated locations instead of joining
	// them. Other categories always merge.
	if replaceLocation(prior, classification) {
		session, err = s.store.ReplaceCategory(ctx, sessionID, travel.CategoryLocation, classification.Values(travel.CategoryLocation))
		if err != nil {
			return travel.ResponsePlan{}, fmt.Errorf("replace location: %w", err)
		}
	}

	plan := s.router.Route(ctx, classification, session.Context)
	payloads := s.resolvePlan(ctx, plan, session.Context)

	response := travel.ResponsePlan{
		SessionID:      sessionID,
		Query:          text,
		Intent:         classification.Intent,
		Confidence:     classification.Confidence,
		Context:        session.Context,
		Plan:           plan,
		Payloads:       payloads,
		Classification: classification,
		CreatedAt:      now,
	}

	if s.responder != nil {
		answer, err := s.responder.Respond(ctx, response)
		if err != nil {
			log.Printf("[conversation] answer generation failed for session=%s: %v", sessionID, err)
		} else {
			response.Answer = answer
		}
	}

	return response, nil
}

// resolvePlan executes the plan decisions, mutating entries in place when a
// fetch fails. Each category resolves independently; a partial result is a
// valid outcome.
func (s *Service) resolvePlan(ctx context.Context, plan travel.DataPlan, sessionContext travel.Context) map[travel.DataKind]json.RawMessage {
	payloads := map[travel.DataKind]json.RawMessage{}

	for kind, entry := range plan {
		switch entry.Source {
		case travel.SourceCache:
			cached, err := s.store.GetCache(ctx, entry.CacheKey)
			if err == nil {
				payloads[kind] = cached.Payload
				continue
			}
			// The entry expired between routing and resolution; fall
			// through to a fresh fetch.
			log.Printf("[conversation] cached %s entry vanished, refetching", kind)
			entry.Source = travel.SourceFetch
			fallthrough
		case travel.SourceFetch:
			payload, err := s.fetch(ctx, kind, sessionContext)
			if err != nil {
				log.Printf("[conversation] %s fetch failed: %v", kind, err)
				// Failures are never cached; the next turn retries.
				plan[kind] = travel.PlanEntry{
					Source: travel.SourceModelKnowledge,
					Reason: fmt.Sprintf("fetch failed: %v", err),
				}
				continue
			}
			if entry.TTL > 0 {
				if err := s.store.PutCache(ctx, entry.CacheKey, payload, entry.TTL); err != nil {
					log.Printf("[conversation] caching %s payload failed: %v", kind, err)
				}
			}
			payloads[kind] = payload
			plan[kind] = entry
		}
	}

	return payloads
}

func (s *Service) fetch(ctx context.Context, kind travel.DataKind, sessionContext travel.Context) (json.RawMessage, error) {
	fetcher, ok := s.fetchers[kind]
	if !ok || fetcher == nil {
		return nil, fmt.Errorf("no %s fetcher configured", kind)
	}

	location, ok := sessionContext.First(travel.CategoryLocation)
	if !ok {
		return nil, fmt.Errorf("location missing from context")
	}

	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	return fetcher.Fetch(ctx, location)
}

// replaceLocation reports whether the new classification names a place that
// shares nothing with the locations already on record.
func replaceLocation(prior travel.Context, classification travel.Classification) bool {
	fresh := classification.Values(travel.CategoryLocation)
	known := prior[travel.CategoryLocation]
	if len(fresh) == 0 || len(known) == 0 {
		return false
	}
	for _, newValue := range fresh {
		for _, oldValue := range known {
			if travel.NormalizeValue(newValue) == travel.NormalizeValue(oldValue) {
				return false
			}
		}
	}
	return true
}
