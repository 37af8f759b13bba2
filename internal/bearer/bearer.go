// Package bearer validates the Authorization header on every
// non-exempt request (C6), delegating the actual credential check to
// a TokenProbe capability rather than reimplementing the upstream
// analytics API.
package bearer

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/zohoanalytics/mcp-oauth-proxy/internal/httperr"
)

// TokenProbe performs one cheap authenticated call against the
// upstream analytics collaborator to confirm a bearer token is live.
// Any non-nil error is treated as an invalid token.
type TokenProbe interface {
	Probe(ctx context.Context, token string) error
}

// Config wires the middleware to its probe and the exempt-path list.
type Config struct {
	Probe TokenProbe
	// ResourceMetadataURL is advertised in WWW-Authenticate as the
	// RFC 9728 resource_metadata value.
	ResourceMetadataURL string
	// ExemptPaths bypass validation outright (discovery, the OAuth
	// endpoints themselves, and static assets).
	ExemptPaths []string
	// ExemptPrefixes bypass validation for any path under them.
	ExemptPrefixes []string
}

// Middleware builds the bearer-validation middleware from cfg.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	exempt := make(map[string]struct{}, len(cfg.ExemptPaths))
	for _, p := range cfg.ExemptPaths {
		exempt[p] = struct{}{}
	}

	isExempt := func(path string) bool {
		if _, ok := exempt[path]; ok {
			return true
		}
		for _, prefix := range cfg.ExemptPrefixes {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, cfg, "unauthorized", "Authorization header required")
				return
			}

			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				unauthorized(w, cfg, "unauthorized", "Authorization header must be of the form: Bearer <token>")
				return
			}
			token := parts[1]

			if err := cfg.Probe.Probe(r.Context(), token); err != nil {
				unauthorized(w, cfg, "invalid_token", fmt.Sprintf("token validation failed: %v", err))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, cfg Config, code, description string) {
	w.Header().Set("WWW-Authenticate", buildWWWAuthenticate(cfg.ResourceMetadataURL, code, description))
	httperr.WithOAuthError(http.StatusUnauthorized, code, description).WriteTo(w)
}

// buildWWWAuthenticate builds an RFC 6750 / RFC 9728 compliant
// WWW-Authenticate value, always present regardless of which failure
// path produced the 401.
func buildWWWAuthenticate(resourceMetadataURL, code, description string) string {
	parts := []string{`realm="OAuth"`}
	if resourceMetadataURL != "" {
		parts = append(parts, fmt.Sprintf(`resource_metadata=%q`, resourceMetadataURL))
	}
	if code != "" {
		parts = append(parts, fmt.Sprintf(`error=%q`, code))
	}
	if description != "" {
		parts = append(parts, fmt.Sprintf(`error_description=%q`, escapeQuotes(description)))
	}
	return "Bearer " + strings.Join(parts, ", ")
}

func escapeQuotes(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// DefaultExemptPaths lists the OAuth surface paths that must stay
// reachable without a bearer token — the flow that gets a client a
// token in the first place.
var DefaultExemptPaths = []string{
	"/",
	"/register",
	"/authorize",
	"/consent",
	"/consent/approve",
	"/consent/deny",
	"/auth/callback",
	"/token",
	"/favicon.ico",
}

// DefaultExemptPrefixes lists the path prefixes that bypass bearer
// validation regardless of the exact suffix.
var DefaultExemptPrefixes = []string{
	"/.well-known/",
	"/static/",
}
