package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/wayfinderhq/wayfinder/backend/internal/model/travel"
)

// MemoryStore keeps sessions in a mutex-guarded map and cache entries in a
// go-cache instance. Suitable for single-instance deployments and tests; the
// redis store offers the same contract for shared deployments.
type MemoryStore struct {
	mu         sync.RWMutex
	sessions   map[string]*travel.Session
	sessionTTL time.Duration

	entries *gocache.Cache
}

// NewMemoryStore builds an in-memory store. Sessions idle longer than
// sessionTTL are dropped lazily on access or via Expire.
func NewMemoryStore(sessionTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions:   make(map[string]*travel.Session),
		sessionTTL: sessionTTL,
		// go-cache's own janitor handles entry expiry; per-entry TTLs are
		// passed on Set so the default here only covers zero TTLs.
		entries: gocache.New(time.Hour, 10*time.Minute),
	}
}

// Get retrieves a session, treating one idle past the TTL as absent. The
// copy happens under the read lock so a concurrent AppendTurn cannot mutate
// the record mid-read.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (travel.Session, error) {
	now := time.Now().UTC()

	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok || s.expired(session, now) {
		return travel.Session{}, ErrSessionNotFound
	}
	return copySession(session), nil
}

// AppendTurn appends the turn and merges its categories into the context.
func (s *MemoryStore) AppendTurn(_ context.Context, sessionID string, turn travel.Turn) (travel.Session, error) {
	now := time.Now().UTC()
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = now
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok || s.expired(session, now) {
		session = &travel.Session{
			ID:        sessionID,
			Context:   travel.Context{},
			CreatedAt: now,
		}
		s.sessions[sessionID] = session
	}

	session.Turns = append(session.Turns, turn)
	session.Context.Merge(turn.Classification.Categories)
	session.LastAccess = now

	return copySession(session), nil
}

// ReplaceCategory swaps out all known values for one category.
func (s *MemoryStore) ReplaceCategory(_ context.Context, sessionID, category string, values []string) (travel.Session, error) {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok || s.expired(session, now) {
		return travel.Session{}, ErrSessionNotFound
	}

	session.Context.Replace(category, values)
	session.LastAccess = now
	return copySession(session), nil
}

// Clear removes the session if present.
func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

// Expire removes sessions whose last access exceeds the session TTL.
func (s *MemoryStore) Expire(_ context.Context, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if s.expired(session, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// GetCache returns the entry iff it is still inside its TTL window.
func (s *MemoryStore) GetCache(_ context.Context, key string) (travel.CacheEntry, error) {
	raw, ok := s.entries.Get(key)
	if !ok {
		return travel.CacheEntry{}, ErrCacheMiss
	}
	entry, ok := raw.(travel.CacheEntry)
	if !ok || !entry.Valid(time.Now().UTC()) {
		return travel.CacheEntry{}, ErrCacheMiss
	}
	return entry, nil
}

// PutCache stores the payload, replacing any previous entry for the key.
func (s *MemoryStore) PutCache(_ context.Context, key string, payload json.RawMessage, ttl time.Duration) error {
	entry := travel.CacheEntry{
		Key:        key,
		Payload:    append(json.RawMessage(nil), payload...),
		InsertedAt: time.Now().UTC(),
		TTL:        ttl,
	}
	s.entries.Set(key, entry, ttl)
	return nil
}

func (s *MemoryStore) expired(session *travel.Session, now time.Time) bool {
	if s.sessionTTL <= 0 {
		return false
	}
	last := session.LastAccess
	if last.IsZero() {
		last = session.CreatedAt
	}
	return now.Sub(last) >= s.sessionTTL
}

func copySession(session *travel.Session) travel.Session {
	copied := *session
	copied.Turns = append([]travel.Turn(nil), session.Turns...)
	copied.Context = session.Context.Clone()
	return copied
}
