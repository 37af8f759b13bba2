package oauthproxy

import (
	"encoding/json"
	"net/http"

	"github.com/zohoanalytics/mcp-oauth-proxy/internal/logger"
)

// ProtectedResourceMetadata is the RFC 9728 document served at
// /.well-known/oauth-protected-resource.
type ProtectedResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers"`
	ScopesSupported        []string `json:"scopes_supported"`
	BearerMethodsSupported []string `json:"bearer_methods_supported"`
}

// AuthorizationServerMetadata is the RFC 8414 document served at
// /.well-known/oauth-authorization-server.
type AuthorizationServerMetadata struct {
	Issuer                                  string   `json:"issuer"`
	AuthorizationEndpoint                   string   `json:"authorization_endpoint"`
	TokenEndpoint                           string   `json:"token_endpoint"`
	RegistrationEndpoint                    string   `json:"registration_endpoint"`
	RevocationEndpoint                      string   `json:"revocation_endpoint"`
	ScopesSupported                         []string `json:"scopes_supported"`
	ResponseTypesSupported                  []string `json:"response_types_supported"`
	GrantTypesSupported                     []string `json:"grant_types_supported"`
	TokenEndpointAuthMethodsSupported       []string `json:"token_endpoint_auth_methods_supported"`
	RevocationEndpointAuthMethodsSupported  []string `json:"revocation_endpoint_auth_methods_supported"`
	CodeChallengeMethodsSupported           []string `json:"code_challenge_methods_supported"`
}

// ProtectedResourceHandler serves GET /.well-known/oauth-protected-resource.
func (p *Proxy) ProtectedResourceHandler(w http.ResponseWriter, _ *http.Request) error {
	logger.Debugw("serving oauth protected resource metadata")
	writeJSON(w, http.StatusOK, ProtectedResourceMetadata{
		Resource:               p.urlFor("mcp"),
		AuthorizationServers:   []string{p.base()},
		ScopesSupported:        []string{"ZohoAnalytics.fullaccess.all"},
		BearerMethodsSupported: []string{"header"},
	})
	return nil
}

// AuthorizationServerHandler serves GET /.well-known/oauth-authorization-server.
func (p *Proxy) AuthorizationServerHandler(w http.ResponseWriter, _ *http.Request) error {
	logger.Debugw("serving oauth authorization server metadata")
	writeJSON(w, http.StatusOK, AuthorizationServerMetadata{
		Issuer:                                 p.base(),
		AuthorizationEndpoint:                  p.urlFor("authorize"),
		TokenEndpoint:                          p.urlFor("token"),
		RegistrationEndpoint:                   p.urlFor("register"),
		RevocationEndpoint:                     p.urlFor("revoke"),
		ScopesSupported:                        []string{"ZohoAnalytics.fullaccess.all", "offline_access"},
		ResponseTypesSupported:                 []string{"code"},
		GrantTypesSupported:                    []string{"authorization_code", "refresh_token"},
		TokenEndpointAuthMethodsSupported:      []string{"client_secret_post"},
		RevocationEndpointAuthMethodsSupported: []string{"client_secret_post"},
		CodeChallengeMethodsSupported:          []string{"S256"},
	})
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
