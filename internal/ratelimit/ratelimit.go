// Package ratelimit implements the proxy's token-bucket rate limiter
// (C3): an in-process backend and a Redis backend sharing one
// contract, plus a registry that caches limiter instances by
// (capacity, window) so repeated requests for the same limit reuse the
// same bucket state.
package ratelimit

import "context"

// Limiter admits or rejects a request identified by key under a
// token-bucket policy.
type Limiter interface {
	// Allow is equivalent to AllowN(ctx, key, 1).
	Allow(ctx context.Context, key string) (bool, error)
	// AllowN attempts to admit a request consuming n tokens.
	AllowN(ctx context.Context, key string, n int) (bool, error)
}
