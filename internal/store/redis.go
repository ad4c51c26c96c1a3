package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gojson "github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"

	"github.com/wayfinderhq/wayfinder/backend/internal/model/travel"
)

// RedisStore implements ContextStore on redis so several API instances can
// share sessions and the data cache. Records are stored as JSON with redis
// key expiry mirroring the record TTL; a record that fails to decode is
// treated as absent, never as a fatal error.
type RedisStore struct {
	client     goredis.UniversalClient
	namespace  string
	sessionTTL time.Duration
}

// RedisConfig holds connection settings for the redis store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	Namespace    string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(cfg RedisConfig, sessionTTL time.Duration) (*RedisStore, error) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "wayfinder"
	}

	return &RedisStore{
		client:     client,
		namespace:  namespace,
		sessionTTL: sessionTTL,
	}, nil
}

func (s *RedisStore) sessionKey(sessionID string) string {
	return s.namespace + ":session:" + sessionID
}

func (s *RedisStore) cacheKey(key string) string {
	return s.namespace + ":cache:" + key
}

// Get loads a session. Redis key expiry implements the session TTL.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (travel.Session, error) {
	raw, err := s.client.Get(ctx, s.sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return travel.Session{}, ErrSessionNotFound
		}
		return travel.Session{}, fmt.Errorf("redis get session: %w", err)
	}

	var session travel.Session
	if err := gojson.Unmarshal(raw, &session); err != nil || session.ID == "" {
		// Malformed or pre-schema record: treat as absent.
		return travel.Session{}, ErrSessionNotFound
	}
	if session.Context == nil {
		session.Context = travel.Context{}
	}
	return session, nil
}

// AppendTurn performs a read-modify-write of the session record. Turns within
// one session arrive sequentially, so no cross-instance locking is needed.
func (s *RedisStore) AppendTurn(ctx context.Context, sessionID string, turn travel.Turn) (travel.Session, error) {
	now := time.Now().UTC()
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = now
	}

	session, err := s.Get(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		session = travel.Session{
			ID:        sessionID,
			Context:   travel.Context{},
			CreatedAt: now,
		}
	} else if err != nil {
		return travel.Session{}, err
	}

	session.Turns = append(session.Turns, turn)
	session.Context.Merge(turn.Classification.Categories)
	session.LastAccess = now

	if err := s.saveSession(ctx, session); err != nil {
		return travel.Session{}, err
	}
	return session, nil
}

// ReplaceCategory swaps out all known values for one category.
func (s *RedisStore) ReplaceCategory(ctx context.Context, sessionID, category string, values []string) (travel.Session, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return travel.Session{}, err
	}

	session.Context.Replace(category, values)
	session.LastAccess = time.Now().UTC()

	if err := s.saveSession(ctx, session); err != nil {
		return travel.Session{}, err
	}
	return session, nil
}

// Clear removes the session record.
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

// Expire is a no-op: redis drops idle sessions through native key expiry.
func (s *RedisStore) Expire(context.Context, time.Time) int {
	return 0
}

// GetCache returns the entry for the key, applying the TTL check locally as
// well in case the record outlived its redis expiry (e.g. TTL shortened in
// config between writes).
func (s *RedisStore) GetCache(ctx context.Context, key string) (travel.CacheEntry, error) {
	raw, err := s.client.Get(ctx, s.cacheKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return travel.CacheEntry{}, ErrCacheMiss
		}
		return travel.CacheEntry{}, fmt.Errorf("redis get cache: %w", err)
	}

	var entry travel.CacheEntry
	if err := gojson.Unmarshal(raw, &entry); err != nil || entry.Key == "" {
		return travel.CacheEntry{}, ErrCacheMiss
	}
	if !entry.Valid(time.Now().UTC()) {
		return travel.CacheEntry{}, ErrCacheMiss
	}
	return entry, nil
}

// PutCache overwrites the entry with redis expiry matching the TTL.
func (s *RedisStore) PutCache(ctx context.Context, key string, payload json.RawMessage, ttl time.Duration) error {
	entry := travel.CacheEntry{
		Key:        key,
		Payload:    payload,
		InsertedAt: time.Now().UTC(),
		TTL:        ttl,
	}

	raw, err := gojson.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := s.client.Set(ctx, s.cacheKey(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set cache: %w", err)
	}
	return nil
}

// Close releases the redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) saveSession(ctx context.Context, session travel.Session) error {
	raw, err := gojson.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.sessionKey(session.ID), raw, s.sessionTTL).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}
