package oauthproxy

import (
	"net/http"
	"strings"
	"time"

	"github.com/zohoanalytics/mcp-oauth-proxy/internal/store"
)

const (
	clientTTL      = 24 * time.Hour
	transactionTTL = 120 * time.Second
	codeTTL        = 120 * time.Second
)

// Proxy holds everything the OAuth endpoints need: the three stores,
// the upstream provider's static credentials, this server's own
// public URL, and the HTTP client used for the upstream exchange.
type Proxy struct {
	Clients      store.Store[RegisteredClient]
	Transactions store.Store[AuthorizationTransaction]
	Codes        store.Store[AuthorizationCode]

	PublicURL        string // this proxy's externally reachable base URL
	OIDCBaseURL      string
	OIDCClientID     string
	OIDCClientSecret string

	Sessions *SessionManager

	httpClient *http.Client
}

// Config bundles the construction-time settings for a Proxy.
type Config struct {
	PublicURL        string
	OIDCBaseURL      string
	OIDCClientID     string
	OIDCClientSecret string
	SessionSecret    string
}

// New builds a Proxy from its three stores and cfg.
func New(clients store.Store[RegisteredClient], transactions store.Store[AuthorizationTransaction], codes store.Store[AuthorizationCode], cfg Config) *Proxy {
	return &Proxy{
		Clients:          clients,
		Transactions:     transactions,
		Codes:            codes,
		PublicURL:        strings.TrimRight(cfg.PublicURL, "/"),
		OIDCBaseURL:      strings.TrimRight(cfg.OIDCBaseURL, "/"),
		OIDCClientID:     cfg.OIDCClientID,
		OIDCClientSecret: cfg.OIDCClientSecret,
		Sessions:         NewSessionManager(cfg.SessionSecret),
		httpClient:       &http.Client{Timeout: 15 * time.Second},
	}
}

// base returns the proxy's public base URL with a trailing slash, the
// form urljoin-style path building expects.
func (p *Proxy) base() string {
	return p.PublicURL + "/"
}

func (p *Proxy) urlFor(path string) string {
	return p.base() + strings.TrimPrefix(path, "/")
}
