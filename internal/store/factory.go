package store

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/zohoanalytics/mcp-oauth-proxy/internal/config"
)

// Backends bundles the shared infrastructure a set of scoped stores is
// built from, so callers construct the Redis client / remote cache
// config once and hand it to New for each record type.
type Backends struct {
	Kind        config.StorageBackend
	RedisClient *redis.Client
	RemoteCache RemoteCacheConfig
}

// NewBackends wires up whichever shared client the configured backend
// needs. For STORAGE_BACKEND=memory this returns a zero-value Backends
// that New never dereferences.
func NewBackends(cfg *config.Config) *Backends {
	b := &Backends{Kind: cfg.StorageBackend}
	switch cfg.StorageBackend {
	case config.StorageRedis:
		b.RedisClient = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
			Password: cfg.RedisPassword,
		})
	case config.StorageRemoteCache:
		b.RemoteCache = RemoteCacheConfig{
			BaseURL:      cfg.RemoteCacheBaseURL,
			ProjectID:    cfg.RemoteCacheProjectID,
			SegmentID:    cfg.RemoteCacheSegmentID,
			ClientID:     cfg.RemoteCacheClientID,
			ClientSecret: cfg.RemoteCacheClientSecret,
			RefreshToken: cfg.RemoteCacheRefreshToken,
		}
	}
	return b
}

// New builds a Store[T] scoped under prefix (e.g. "registered_clients",
// "transactions", "authorization_codes") using whichever backend b was
// constructed for. If the backend is in-memory, the returned store is
// also registered with reaper so its TTL entries get swept.
func New[T any](b *Backends, prefix string, reaper *Reaper) Store[T] {
	switch b.Kind {
	case config.StorageRedis:
		return NewRedisStore[T](b.RedisClient, prefix)
	case config.StorageRemoteCache:
		return NewRemoteCacheStore[T](b.RemoteCache, prefix)
	default:
		ms := NewMemoryStore[T]()
		if reaper != nil {
			reaper.Add(ms)
		}
		return ms
	}
}
