// Package store persists sessions and the shared external-data cache.
//
// Absence is a normal branch, not an error path: Get and GetCache signal it
// with sentinel errors the caller is expected to switch on. All other
// operations succeed for missing keys.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/wayfinderhq/wayfinder/backend/internal/model/travel"
)

var (
	// ErrSessionNotFound signals an unknown or expired session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrCacheMiss signals a missing or expired cache entry. Callers treat
	// both identically: a fresh fetch is required.
	ErrCacheMiss = errors.New("cache miss")
)

// ContextStore is the session store plus the cross-session data cache.
type ContextStore interface {
	// Get retrieves a session by identifier.
	Get(ctx context.Context, sessionID string) (travel.Session, error)

	// AppendTurn appends a turn to the session, creating it if absent, and
	// recomputes the merged context from the turn's classification.
	AppendTurn(ctx context.Context, sessionID string, turn travel.Turn) (travel.Session, error)

	// ReplaceCategory discards accumulated values for a category and
	// installs the supplied ones. Which categories reset, and when, is the
	// orchestrator's policy; the store only exposes the operation.
	ReplaceCategory(ctx context.Context, sessionID, category string, values []string) (travel.Session, error)

	// Clear removes a session. Clearing an unknown session is a no-op.
	Clear(ctx context.Context, sessionID string) error

	// Expire removes sessions idle past the session TTL and reports how
	// many were dropped. Implementations with native key expiry may return
	// zero unconditionally.
	Expire(ctx context.Context, now time.Time) int

	// GetCache returns the valid entry for the key or ErrCacheMiss.
	GetCache(ctx context.Context, key string) (travel.CacheEntry, error)

	// PutCache overwrites the entry unconditionally (last writer wins).
	PutCache(ctx context.Context, key string, payload json.RawMessage, ttl time.Duration) error
}
