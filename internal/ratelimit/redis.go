package ratelimit

import (
	"context"
	"math"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript runs the refill/decrement/auto-expire sequence
// atomically on the Redis server, reading the server clock so that
// limiter state never depends on client-side time. Grounded on the
// original project's Lua rate-limit script.
const tokenBucketScript = `
local key = KEYS[1]

local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2]) -- tokens per millisecond
local requested = tonumber(ARGV[3])

local now_data = redis.call("TIME")
local now = now_data[1] * 1000 + math.floor(now_data[2] / 1000)

local bucket = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(bucket[1])
local last_refill = tonumber(bucket[2])

if tokens == nil then
    tokens = capacity - requested
    last_refill = now
    redis.call("HMSET", key, "tokens", tokens, "last_refill", last_refill)
    local ttl = math.ceil(capacity / refill_rate)
    redis.call("PEXPIRE", key, ttl)
    return 1
end

local delta = now - last_refill
local refill = delta * refill_rate
tokens = math.min(capacity, tokens + refill)
last_refill = now

local allowed = 0
if tokens >= requested then
    tokens = tokens - requested
    allowed = 1
end

redis.call("HMSET", key, "tokens", tokens, "last_refill", last_refill)

local ttl = math.ceil(capacity / refill_rate)
redis.call("PEXPIRE", key, ttl)

return allowed
`

// RedisLimiter is the Redis-backed token-bucket, sharing a single
// registered Lua script across all (capacity, window) instances that
// use the same client.
type RedisLimiter struct {
	client     *redis.Client
	script     *redis.Script
	capacity   float64
	refillRate float64 // tokens per millisecond
}

// NewRedisLimiter builds a limiter against client with the given burst
// capacity and refill window in seconds.
func NewRedisLimiter(client *redis.Client, capacity int, windowSeconds int) *RedisLimiter {
	return &RedisLimiter{
		client:     client,
		script:     redis.NewScript(tokenBucketScript),
		capacity:   float64(capacity),
		refillRate: float64(capacity) / (float64(windowSeconds) * 1000),
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return l.AllowN(ctx, key, 1)
}

func (l *RedisLimiter) AllowN(ctx context.Context, key string, n int) (bool, error) {
	fullKey := "rl:" + key
	result, err := l.script.Run(ctx, l.client, []string{fullKey}, l.capacity, l.refillRate, float64(n)).Result()
	if err != nil {
		return false, err
	}
	allowed, ok := result.(int64)
	if !ok {
		return false, nil
	}
	return allowed == 1, nil
}

// ttlMillis mirrors the script's own TTL computation, exposed for
// tests that want to assert on it without round-tripping through Lua.
func ttlMillis(capacity, refillRatePerMs float64) int64 {
	return int64(math.Ceil(capacity / refillRatePerMs))
}
