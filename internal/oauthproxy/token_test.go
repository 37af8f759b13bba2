package oauthproxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zohoanalytics/mcp-oauth-proxy/internal/store"
)

func newTestProxy(t *testing.T, upstreamURL string) *Proxy {
	t.Helper()
	p := New(
		store.NewMemoryStore[RegisteredClient](),
		store.NewMemoryStore[AuthorizationTransaction](),
		store.NewMemoryStore[AuthorizationCode](),
		Config{
			PublicURL:        "https://proxy.example.com",
			OIDCBaseURL:      upstreamURL,
			OIDCClientID:     "upstream-client-id",
			OIDCClientSecret: "upstream-client-secret",
			SessionSecret:    "test-secret",
		},
	)
	return p
}

func tokenRequest(form url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func TestTokenHandler_InvalidClientCredentials(t *testing.T) {
	p := newTestProxy(t, "http://unused.invalid")

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {"no-such-client"},
		"client_secret": {"wrong"},
		"code":          {"whatever"},
	}
	w := httptest.NewRecorder()
	err := p.TokenHandler(w, tokenRequest(form))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTokenHandler_AuthorizationCodeHappyPath(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "upstream-client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "upstream-client-secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "upstream-issued-code", r.PostForm.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-123","refresh_token":"rt-456","token_type":"Bearer","expires_in":3600}`))
	}))
	defer upstream.Close()

	p := newTestProxy(t, upstream.URL)

	client := RegisteredClient{
		ClientID:     "client-1",
		ClientSecret: "client-1-secret",
		RedirectURIs: []string{"https://host.example.com/callback"},
	}
	require.NoError(t, p.Clients.Set(context.Background(), client.ClientID, client, clientTTL))

	code := AuthorizationCode{
		CreatedAt:    time.Now(),
		ExpiresAt:    time.Now().Add(codeTTL),
		ClientID:     client.ClientID,
		RedirectURI:  client.RedirectURIs[0],
		UpstreamCode: "upstream-issued-code",
	}
	require.NoError(t, p.Codes.Set(context.Background(), "proxy-code-1", code, codeTTL))

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {client.ClientID},
		"client_secret": {client.ClientSecret},
		"code":          {"proxy-code-1"},
	}
	w := httptest.NewRecorder()
	err := p.TokenHandler(w, tokenRequest(form))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "at-123")

	_, ok, _ := p.Codes.Get(context.Background(), "proxy-code-1")
	assert.False(t, ok, "authorization code must be single-use")
}

func TestTokenHandler_AuthorizationCodeWrongClient(t *testing.T) {
	p := newTestProxy(t, "http://unused.invalid")

	client1 := RegisteredClient{ClientID: "client-1", ClientSecret: "secret-1"}
	client2 := RegisteredClient{ClientID: "client-2", ClientSecret: "secret-2"}
	require.NoError(t, p.Clients.Set(context.Background(), client1.ClientID, client1, clientTTL))
	require.NoError(t, p.Clients.Set(context.Background(), client2.ClientID, client2, clientTTL))

	code := AuthorizationCode{
		CreatedAt:    time.Now(),
		ExpiresAt:    time.Now().Add(codeTTL),
		ClientID:     client1.ClientID,
		UpstreamCode: "upstream-code",
	}
	require.NoError(t, p.Codes.Set(context.Background(), "proxy-code-2", code, codeTTL))

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {client2.ClientID},
		"client_secret": {client2.ClientSecret},
		"code":          {"proxy-code-2"},
	}
	w := httptest.NewRecorder()
	err := p.TokenHandler(w, tokenRequest(form))
	assert.Error(t, err)
}

func TestTokenHandler_RefreshTokenRequiresValue(t *testing.T) {
	p := newTestProxy(t, "http://unused.invalid")

	client := RegisteredClient{ClientID: "client-1", ClientSecret: "secret-1"}
	require.NoError(t, p.Clients.Set(context.Background(), client.ClientID, client, clientTTL))

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {client.ClientID},
		"client_secret": {client.ClientSecret},
	}
	w := httptest.NewRecorder()
	err := p.TokenHandler(w, tokenRequest(form))
	assert.Error(t, err)
}

func TestTokenHandler_UnsupportedGrantType(t *testing.T) {
	p := newTestProxy(t, "http://unused.invalid")

	client := RegisteredClient{ClientID: "client-1", ClientSecret: "secret-1"}
	require.NoError(t, p.Clients.Set(context.Background(), client.ClientID, client, clientTTL))

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {client.ClientID},
		"client_secret": {client.ClientSecret},
	}
	w := httptest.NewRecorder()
	err := p.TokenHandler(w, tokenRequest(form))
	assert.Error(t, err)
}
