package clientip

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trustedCfg(t *testing.T, cidrs ...string) Config {
	t.Helper()
	nets, invalid := ParseTrustedProxies(cidrs)
	require.Empty(t, invalid)
	return Config{BehindProxy: true, TrustedProxies: nets}
}

func TestExtract_NotBehindProxy_ReturnsSocketPeer(t *testing.T) {
	t.Parallel()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.5:5000"
	r.Header.Set("X-Forwarded-For", "198.51.100.9")

	got := Extract(r, Config{BehindProxy: false})
	assert.Equal(t, "203.0.113.5", got)
}

func TestExtract_UntrustedPeer_IgnoresForwardedHeader(t *testing.T) {
	t.Parallel()
	cfg := trustedCfg(t, "10.0.0.0/8")
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.5:5000" // not in 10.0.0.0/8
	r.Header.Set("X-Forwarded-For", "198.51.100.9")

	got := Extract(r, cfg)
	assert.Equal(t, "203.0.113.5", got)
}

func TestExtract_TrustedPeer_WalksForwardedForRightToLeft(t *testing.T) {
	t.Parallel()
	cfg := trustedCfg(t, "10.0.0.0/8")
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5000"
	r.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.2, 10.0.0.1")

	got := Extract(r, cfg)
	assert.Equal(t, "198.51.100.9", got)
}

func TestExtract_FallsBackToXRealIP(t *testing.T) {
	t.Parallel()
	cfg := trustedCfg(t, "10.0.0.0/8")
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5000"
	r.Header.Set("X-Real-IP", "198.51.100.9")

	got := Extract(r, cfg)
	assert.Equal(t, "198.51.100.9", got)
}

func TestExtract_NoSocketPeer_ReturnsEmpty(t *testing.T) {
	t.Parallel()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = ""

	got := Extract(r, Config{})
	assert.Empty(t, got)
}
