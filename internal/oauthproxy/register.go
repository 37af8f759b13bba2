package oauthproxy

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/zohoanalytics/mcp-oauth-proxy/internal/httperr"
	"github.com/zohoanalytics/mcp-oauth-proxy/internal/logger"
)

// registrationRequest is the body accepted by POST /register.
type registrationRequest struct {
	RedirectURIs  []string `json:"redirect_uris"`
	ClientName    string   `json:"client_name"`
	Scope         string   `json:"scope"`
	GrantTypes    []string `json:"grant_types"`
	ResponseTypes []string `json:"response_types"`
}

type registrationResponse struct {
	ClientID                string   `json:"client_id"`
	ClientSecret            string   `json:"client_secret"`
	ClientIDIssuedAt        int64    `json:"client_id_issued_at"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
	Scope                   string   `json:"scope"`
	RegistrationClientURI   string   `json:"registration_client_uri"`
	RegistrationAccessToken string   `json:"registration_access_token"`
}

// registrationPublicView is returned by GET /register/{client_id}: the
// client's own metadata with no secret.
type registrationPublicView struct {
	ClientID      string   `json:"client_id"`
	ClientName    string   `json:"client_name,omitempty"`
	RedirectURIs  []string `json:"redirect_uris"`
	GrantTypes    []string `json:"grant_types"`
	ResponseTypes []string `json:"response_types"`
	Scope         string   `json:"scope,omitempty"`
}

// RegisterHandler implements POST /register: the DCR surface. The
// proxy never forwards this to the upstream provider — it mints its
// own client_id/client_secret pair and keeps the upstream's static
// credentials entirely out of band (invariant I5).
func (p *Proxy) RegisterHandler(w http.ResponseWriter, r *http.Request) error {
	var req registrationRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return httperr.WithOAuthError(http.StatusBadRequest, "invalid_client_metadata", "request body must be valid JSON")
		}
	}

	if req.RedirectURIs == nil {
		req.RedirectURIs = []string{}
	}
	if req.GrantTypes == nil {
		req.GrantTypes = []string{"authorization_code", "refresh_token"}
	}
	if req.ResponseTypes == nil {
		req.ResponseTypes = []string{"code"}
	}

	clientID := uuid.NewString()
	clientSecret := randomURLSafeToken(32)
	now := time.Now()

	client := RegisteredClient{
		ClientID:      clientID,
		ClientSecret:  clientSecret,
		ClientName:    req.ClientName,
		RedirectURIs:  req.RedirectURIs,
		Scope:         req.Scope,
		GrantTypes:    req.GrantTypes,
		ResponseTypes: req.ResponseTypes,
		IssuedAt:      now.Unix(),
	}

	if err := p.Clients.Set(r.Context(), clientID, client, clientTTL); err != nil {
		return httperr.WithCode(err, http.StatusInternalServerError)
	}

	logger.Infow("client registered", "client_id", clientID, "client_name", req.ClientName)

	writeJSON(w, http.StatusOK, registrationResponse{
		ClientID:                clientID,
		ClientSecret:            clientSecret,
		ClientIDIssuedAt:        now.Unix(),
		TokenEndpointAuthMethod: "client_secret_post",
		RedirectURIs:            req.RedirectURIs,
		GrantTypes:              req.GrantTypes,
		ResponseTypes:           req.ResponseTypes,
		Scope:                   "ZohoAnalytics.fullaccess.all",
		RegistrationClientURI:   p.urlFor("register/" + clientID),
		RegistrationAccessToken: randomURLSafeToken(32),
	})
	return nil
}

// RegisterClientConfigHandler implements GET /register/{client_id}, an
// RFC 7592-style client configuration read so a client can probe its
// own registration. The original only ever advertised this URI without
// implementing it; this completes that gap within DCR's existing
// scope.
func (p *Proxy) RegisterClientConfigHandler(w http.ResponseWriter, r *http.Request, clientID string) error {
	client, ok, err := p.Clients.Get(r.Context(), clientID)
	if err != nil {
		return httperr.WithCode(err, http.StatusInternalServerError)
	}
	if !ok {
		return httperr.WithOAuthError(http.StatusNotFound, "invalid_client", "no such registered client")
	}

	writeJSON(w, http.StatusOK, registrationPublicView{
		ClientID:      client.ClientID,
		ClientName:    client.ClientName,
		RedirectURIs:  client.RedirectURIs,
		GrantTypes:    client.GrantTypes,
		ResponseTypes: client.ResponseTypes,
		Scope:         client.Scope,
	})
	return nil
}

