package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore[widget], *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore[widget](client, "test"), mr
}

func TestRedisStore_SetGetDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, mr := newTestRedisStore(t)
	defer mr.Close()

	require.NoError(t, s.Set(ctx, "a", widget{Name: "gear"}, 0))

	got, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "gear", got.Name)

	require.NoError(t, s.Delete(ctx, "a"))
	_, ok, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, mr := newTestRedisStore(t)
	defer mr.Close()

	require.NoError(t, s.Set(ctx, "a", widget{Name: "gear"}, time.Second))
	mr.FastForward(2 * time.Second)

	_, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_GetMissing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, mr := newTestRedisStore(t)
	defer mr.Close()

	_, ok, err := s.Get(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}
