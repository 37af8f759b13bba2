package oauthproxy

import (
	"crypto/subtle"
	"net/http"

	"github.com/zohoanalytics/mcp-oauth-proxy/internal/httperr"
	"github.com/zohoanalytics/mcp-oauth-proxy/internal/logger"
)

// RevokeHandler implements POST /revoke. Per RFC 7009 the endpoint
// always answers 200 regardless of whether the token was recognized,
// so a client probing for valid tokens learns nothing from the
// response. There is no upstream call: the proxy only ever holds its
// own short-lived codes, never the upstream's long-lived tokens.
func (p *Proxy) RevokeHandler(w http.ResponseWriter, r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return httperr.WithOAuthError(http.StatusBadRequest, "invalid_request", "malformed form body")
	}

	clientID := r.PostForm.Get("client_id")
	clientSecret := r.PostForm.Get("client_secret")
	token := r.PostForm.Get("token")

	client, ok, err := p.Clients.Get(r.Context(), clientID)
	if err != nil {
		return httperr.WithCode(err, http.StatusInternalServerError)
	}
	if !ok || subtle.ConstantTimeCompare([]byte(client.ClientSecret), []byte(clientSecret)) != 1 {
		return httperr.WithOAuthError(http.StatusUnauthorized, "invalid_client", "client authentication failed")
	}

	if token != "" {
		if record, ok, _ := p.Codes.Get(r.Context(), token); ok && record.ClientID == clientID {
			_ = p.Codes.Delete(r.Context(), token)
			logger.Infow("revoked authorization code", "client_id", clientID)
		}
	}

	w.WriteHeader(http.StatusOK)
	return nil
}
