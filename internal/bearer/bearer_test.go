package bearer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubProbe struct {
	err error
}

func (s stubProbe) Probe(context.Context, string) error { return s.err }

func newTestMiddleware(probe TokenProbe) func(http.Handler) http.Handler {
	return Middleware(Config{
		Probe:               probe,
		ResourceMetadataURL: "https://proxy.example.com/.well-known/oauth-protected-resource",
		ExemptPaths:         DefaultExemptPaths,
		ExemptPrefixes:      DefaultExemptPrefixes,
	})
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_ExemptPathBypassesValidation(t *testing.T) {
	t.Parallel()
	h := newTestMiddleware(stubProbe{err: errors.New("would fail")})(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/authorize", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddleware_MissingAuthorizationHeader(t *testing.T) {
	t.Parallel()
	h := newTestMiddleware(stubProbe{})(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer")
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), "resource_metadata")
}

func TestMiddleware_MalformedAuthorizationHeader(t *testing.T) {
	t.Parallel()
	h := newTestMiddleware(stubProbe{})(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	r.Header.Set("Authorization", "Basic abc123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddleware_ProbeFailureRejectsWithInvalidToken(t *testing.T) {
	t.Parallel()
	h := newTestMiddleware(stubProbe{err: errors.New("expired")})(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	r.Header.Set("Authorization", "Bearer sometoken")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), `error="invalid_token"`)
}

func TestMiddleware_ValidTokenPassesThrough(t *testing.T) {
	t.Parallel()
	h := newTestMiddleware(stubProbe{})(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	r.Header.Set("Authorization", "Bearer sometoken")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}
