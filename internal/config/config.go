// Package config loads and validates the OAuth proxy's environment-driven
// settings, in the style of the original Settings class: a flat set of
// environment variables with documented defaults, resolved once at
// startup and failed fast if invalid rather than panicking deep in a
// handler.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// StorageBackend selects which persistence implementation backs the
// registered-client, transaction, and authorization-code stores.
type StorageBackend string

const (
	// StorageMemory keeps all state in the process and is suitable for
	// single-instance deployments and local development.
	StorageMemory StorageBackend = "memory"
	// StorageRedis persists state in Redis for multi-instance deployments.
	StorageRedis StorageBackend = "redis"
	// StorageRemoteCache persists state in a hosted REST cache service.
	StorageRemoteCache StorageBackend = "remotecache"
)

// Config is the fully resolved configuration for the proxy process.
type Config struct {
	// OIDCProviderBaseURL is the upstream provider's base URL, e.g.
	// "https://accounts.zoho.com".
	OIDCProviderBaseURL string
	// OIDCProviderClientID/Secret are the proxy's single, statically
	// registered credentials with the upstream provider. Never exposed
	// to downstream clients (invariant I5).
	OIDCProviderClientID     string
	OIDCProviderClientSecret string

	// AnalyticsAPIBaseURL is the analytics collaborator's base URL that
	// the bearer validator (C6) probes to confirm a token is live.
	AnalyticsAPIBaseURL string

	// MCPServerPublicURL is this proxy's own externally reachable base
	// URL, used to build redirect_uri, discovery metadata, and the
	// registration_client_uri.
	MCPServerPublicURL string

	Port int

	// SessionSecretKey signs the session cookie that carries the CSRF
	// token between GET /consent and POST /consent/approve.
	SessionSecretKey string

	StorageBackend StorageBackend

	RedisHost     string
	RedisPort     int
	RedisPassword string

	RemoteCacheBaseURL      string
	RemoteCacheClientID     string
	RemoteCacheClientSecret string
	RemoteCacheRefreshToken string
	RemoteCacheProjectID    string
	RemoteCacheSegmentID    string

	BehindProxy       bool
	TrustedProxyCIDRs []string

	ReapIntervalSeconds int
	MaxBodySizeBytes    int64

	GlobalRateLimitCapacity      int
	GlobalRateLimitWindowSeconds int

	StaticDir    string
	TemplatesDir string
}

// Load reads configuration from the process environment, applying
// documented defaults for everything optional.
func Load() (*Config, error) {
	c := &Config{
		OIDCProviderBaseURL:      os.Getenv("OIDC_PROVIDER_BASE_URL"),
		OIDCProviderClientID:     os.Getenv("OIDC_PROVIDER_CLIENT_ID"),
		OIDCProviderClientSecret: os.Getenv("OIDC_PROVIDER_CLIENT_SECRET"),
		AnalyticsAPIBaseURL:      getEnvDefault("ANALYTICS_API_BASE_URL", "https://analyticsapi.zoho.com/restapi/v2"),
		MCPServerPublicURL:       os.Getenv("MCP_SERVER_PUBLIC_URL"),
		SessionSecretKey:         getEnvDefault("SESSION_SECRET_KEY", "supersecretkey"),
		StorageBackend:           StorageBackend(strings.ToLower(getEnvDefault("STORAGE_BACKEND", "memory"))),
		RedisHost:                getEnvDefault("REDIS_HOST", "localhost"),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
		RemoteCacheBaseURL:       os.Getenv("REMOTE_CACHE_BASE_URL"),
		RemoteCacheClientID:      os.Getenv("REMOTE_CACHE_CLIENT_ID"),
		RemoteCacheClientSecret:  os.Getenv("REMOTE_CACHE_CLIENT_SECRET"),
		RemoteCacheRefreshToken:  os.Getenv("REMOTE_CACHE_REFRESH_TOKEN"),
		RemoteCacheProjectID:     os.Getenv("REMOTE_CACHE_PROJECT_ID"),
		RemoteCacheSegmentID:     os.Getenv("REMOTE_CACHE_SEGMENT_ID"),
		StaticDir:                getEnvDefault("STATIC_DIR", "./web/static"),
		TemplatesDir:             getEnvDefault("TEMPLATES_DIR", "./web/templates"),
	}

	var err error
	if c.Port, err = getEnvIntDefault("PORT", 4000); err != nil {
		return nil, err
	}
	if c.RedisPort, err = getEnvIntDefault("REDIS_PORT", 6379); err != nil {
		return nil, err
	}
	if c.ReapIntervalSeconds, err = getEnvIntDefault("REAP_INTERVAL_SECONDS", 60); err != nil {
		return nil, err
	}
	var maxBody int
	if maxBody, err = getEnvIntDefault("MAX_BODY_SIZE_BYTES", 1_048_576); err != nil {
		return nil, err
	}
	c.MaxBodySizeBytes = int64(maxBody)
	if c.GlobalRateLimitCapacity, err = getEnvIntDefault("GLOBAL_RATE_LIMIT_CAPACITY", 50); err != nil {
		return nil, err
	}
	if c.GlobalRateLimitWindowSeconds, err = getEnvIntDefault("GLOBAL_RATE_LIMIT_WINDOW_SECONDS", 60); err != nil {
		return nil, err
	}

	c.BehindProxy = getEnvBoolDefault("BEHIND_PROXY", false)
	c.TrustedProxyCIDRs = splitCSV(os.Getenv("TRUSTED_PROXY_LIST"))

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that the configuration is internally consistent,
// mirroring the fail-fast pattern used throughout the proxy's settings.
func (c *Config) Validate() error {
	if c.OIDCProviderBaseURL == "" {
		return fmt.Errorf("OIDC_PROVIDER_BASE_URL is required")
	}
	if c.OIDCProviderClientID == "" || c.OIDCProviderClientSecret == "" {
		return fmt.Errorf("OIDC_PROVIDER_CLIENT_ID and OIDC_PROVIDER_CLIENT_SECRET are required")
	}
	if c.MCPServerPublicURL == "" {
		return fmt.Errorf("MCP_SERVER_PUBLIC_URL is required")
	}

	switch c.StorageBackend {
	case StorageMemory, StorageRedis, StorageRemoteCache:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of memory, redis, remotecache; got %q", c.StorageBackend)
	}

	if c.StorageBackend == StorageRemoteCache {
		if c.RemoteCacheBaseURL == "" || c.RemoteCacheProjectID == "" || c.RemoteCacheSegmentID == "" {
			return fmt.Errorf("REMOTE_CACHE_BASE_URL, REMOTE_CACHE_PROJECT_ID, and REMOTE_CACHE_SEGMENT_ID are required when STORAGE_BACKEND=remotecache")
		}
	}

	if c.MaxBodySizeBytes <= 0 {
		return fmt.Errorf("MAX_BODY_SIZE_BYTES must be positive")
	}
	return nil
}

func getEnvDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvIntDefault(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, v, err)
	}
	return n, nil
}

func getEnvBoolDefault(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
