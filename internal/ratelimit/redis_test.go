package ratelimit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisLimiter(t *testing.T, capacity, windowSeconds int) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisLimiter(client, capacity, windowSeconds), mr
}

func TestRedisLimiter_FirstRequestAlwaysAdmitted(t *testing.T) {
	t.Parallel()
	l, mr := newTestRedisLimiter(t, 1, 60)
	defer mr.Close()

	ok, err := l.Allow(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiter_ExhaustsCapacity(t *testing.T) {
	t.Parallel()
	l, mr := newTestRedisLimiter(t, 2, 3600)
	defer mr.Close()
	ctx := context.Background()

	ok1, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	ok2, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	ok3, err := l.Allow(ctx, "k")
	require.NoError(t, err)

	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.False(t, ok3)
}

func TestTTLMillis(t *testing.T) {
	t.Parallel()
	assert.Equal(t, int64(60000), ttlMillis(1, 1.0/60000))
}
