package ratelimit

import (
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zohoanalytics/mcp-oauth-proxy/internal/config"
)

type limiterKey struct {
	capacity int
	window   int
}

// Registry caches limiter instances by (capacity, windowSeconds) so
// concurrent requests for the same policy share one backend instance
// instead of building a duplicate. Construction is guarded by a mutex
// with double-checked presence, matching the original's
// build_rate_limiter.
type Registry struct {
	backend config.StorageBackend
	client  *redis.Client

	mu       sync.RWMutex
	limiters map[limiterKey]Limiter
}

// NewRegistry builds a registry that produces in-process limiters
// unless backend is "redis", in which case client must be non-nil.
func NewRegistry(backend config.StorageBackend, client *redis.Client) *Registry {
	return &Registry{
		backend:  backend,
		client:   client,
		limiters: make(map[limiterKey]Limiter),
	}
}

// Get returns the shared limiter for (capacity, windowSeconds),
// constructing it on first use.
func (r *Registry) Get(capacity, windowSeconds int) Limiter {
	key := limiterKey{capacity: capacity, window: windowSeconds}

	r.mu.RLock()
	l, ok := r.limiters[key]
	r.mu.RUnlock()
	if ok {
		return l
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[key]; ok {
		return l
	}

	if r.backend == config.StorageRedis && r.client != nil {
		l = NewRedisLimiter(r.client, capacity, windowSeconds)
	} else {
		l = NewInProcessLimiter(capacity, windowSeconds, time.Hour)
	}
	r.limiters[key] = l
	return l
}

// CleanupInProcess runs Cleanup on every in-process limiter held by
// the registry; Redis-backed limiters expire natively and are skipped.
func (r *Registry) CleanupInProcess() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, l := range r.limiters {
		if ip, ok := l.(*InProcessLimiter); ok {
			total += ip.Cleanup()
		}
	}
	return total
}
