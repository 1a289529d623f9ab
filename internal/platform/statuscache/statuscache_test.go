package statuscache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, ok := s.Get(ctx, "missing")
	assert.False(t, ok)

	s.Set(ctx, "k", []byte("v"), time.Minute)
	got, ok := s.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	s.Delete(ctx, "k")
	_, ok = s.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	s.Set(ctx, "k", []byte("v"), 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)

	_, ok := s.Get(ctx, "k")
	assert.False(t, ok, "entry past freshness bound must not be served")
}

func TestMemoryStoreRejectsNonPositiveTTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	s.Set(ctx, "k", []byte("v"), 0)
	_, ok := s.Get(ctx, "k")
	assert.False(t, ok)
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(client, zerolog.Nop()), mr
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t)

	_, ok := s.Get(ctx, "missing")
	assert.False(t, ok)

	s.Set(ctx, "k", []byte("v"), time.Minute)
	got, ok := s.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	s.Delete(ctx, "k")
	_, ok = s.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedisStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	s.Set(ctx, "k", []byte("v"), 30*time.Second)
	mr.FastForward(31 * time.Second)

	_, ok := s.Get(ctx, "k")
	assert.False(t, ok, "entry past freshness bound must not be served")
}

func TestRedisStoreDegradesToMiss(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)
	mr.Close()

	// Backend failure is a miss, never an error surfaced to the caller.
	_, ok := s.Get(ctx, "k")
	assert.False(t, ok)
	s.Set(ctx, "k", []byte("v"), time.Minute)
	s.Delete(ctx, "k")
}
