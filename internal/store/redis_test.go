package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/wayfinderhq/wayfinder/backend/internal/model/travel"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	s, err := NewRedisStore(RedisConfig{Addr: mr.Addr(), Namespace: "test"}, 30*time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisStoreSessionRoundTrip(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	session, err := s.AppendTurn(ctx, "s1", turnWith(map[string][]string{
		travel.CategoryLocation: {"Tokyo"},
	}))
	require.NoError(t, err)
	require.Equal(t, "s1", session.ID)

	loaded, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, loaded.Turns, 1)
	loc, ok := loaded.Context.First(travel.CategoryLocation)
	require.True(t, ok)
	require.Equal(t, "Tokyo", loc)
}

func TestRedisStoreGetUnknownSession(t *testing.T) {
	s, _ := newTestRedisStore(t)

	_, err := s.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStoreMalformedRecordIsNotFound(t *testing.T) {
	s, mr := newTestRedisStore(t)

	mr.Set("test:session:s1", "{not json")

	_, err := s.Get(context.Background(), "s1")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStoreSessionTTL(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	_, err := s.AppendTurn(ctx, "s1", turnWith(nil))
	require.NoError(t, err)

	mr.FastForward(31 * time.Minute)

	_, err = s.Get(ctx, "s1")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStoreReplaceCategory(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	_, err := s.AppendTurn(ctx, "s1", turnWith(map[string][]string{travel.CategoryLocation: {"Tokyo"}}))
	require.NoError(t, err)

	session, err := s.ReplaceCategory(ctx, "s1", travel.CategoryLocation, []string{"Paris"})
	require.NoError(t, err)
	require.Equal(t, []string{"Paris"}, session.Context[travel.CategoryLocation])
}

func TestRedisStoreClear(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	_, err := s.AppendTurn(ctx, "s1", turnWith(nil))
	require.NoError(t, err)
	require.NoError(t, s.Clear(ctx, "s1"))

	_, err = s.Get(ctx, "s1")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStoreCacheRoundTrip(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()
	payload := json.RawMessage(`{"temp":21}`)

	require.NoError(t, s.PutCache(ctx, "weather|tokyo|march", payload, time.Hour))

	entry, err := s.GetCache(ctx, "weather|tokyo|march")
	require.NoError(t, err)
	require.JSONEq(t, string(payload), string(entry.Payload))
}

func TestRedisStoreCacheMissAndExpiry(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	_, err := s.GetCache(ctx, "weather|tokyo")
	require.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, s.PutCache(ctx, "weather|tokyo", json.RawMessage(`{}`), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err = s.GetCache(ctx, "weather|tokyo")
	require.ErrorIs(t, err, ErrCacheMiss)
}
