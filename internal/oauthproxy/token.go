package oauthproxy

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/zohoanalytics/mcp-oauth-proxy/internal/httperr"
	"github.com/zohoanalytics/mcp-oauth-proxy/internal/logger"
)

// TokenHandler implements POST /token: the final leg of the
// authorization_code and refresh_token grants, exchanging a
// proxy-issued credential for the real upstream tokens.
func (p *Proxy) TokenHandler(w http.ResponseWriter, r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return httperr.WithOAuthError(http.StatusBadRequest, "invalid_request", "malformed form body")
	}

	grantType := r.PostForm.Get("grant_type")
	clientID := r.PostForm.Get("client_id")
	clientSecret := r.PostForm.Get("client_secret")

	logger.Infow("token exchange requested", "client_id", clientID, "grant_type", grantType)

	client, ok, err := p.Clients.Get(r.Context(), clientID)
	if err != nil {
		return httperr.WithCode(err, http.StatusInternalServerError)
	}
	if !ok || subtle.ConstantTimeCompare([]byte(client.ClientSecret), []byte(clientSecret)) != 1 {
		logger.Warnw("invalid client credentials at token exchange", "client_id", clientID)
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "invalid_client",
			"error_description": "The registered client has expired or is invalid. " +
				"Clear cached MCP credentials and re-authenticate.",
			"help_url": p.urlFor("static/invalid_token.html"),
		})
		return nil
	}

	upstreamPayload := map[string]string{"grant_type": grantType}

	switch grantType {
	case "authorization_code":
		code := r.PostForm.Get("code")
		if code == "" {
			return httperr.WithOAuthError(http.StatusBadRequest, "code_required", "code is required")
		}

		record, ok, err := p.Codes.Get(r.Context(), code)
		if err != nil {
			return httperr.WithCode(err, http.StatusInternalServerError)
		}
		if !ok || record.ClientID != clientID {
			logger.Warnw("invalid or mismatched authorization code", "client_id", clientID)
			return httperr.WithOAuthError(http.StatusBadRequest, "invalid_grant", "authorization code is invalid")
		}
		if record.ExpiresAt.Before(time.Now()) {
			_ = p.Codes.Delete(r.Context(), code)
			return httperr.WithOAuthError(http.StatusBadRequest, "invalid_grant", "authorization code has expired")
		}

		if err := validatePKCE(r.PostForm.Get("code_verifier"), record.CodeChallenge, record.CodeChallengeMethod); err != nil {
			return err
		}

		upstreamPayload["code"] = record.UpstreamCode
		// Single-use guarantee (invariant I2): delete before the
		// upstream call so a concurrent retry can never replay it.
		if err := p.Codes.Delete(r.Context(), code); err != nil {
			return httperr.WithCode(err, http.StatusInternalServerError)
		}

	case "refresh_token":
		refreshToken := r.PostForm.Get("refresh_token")
		if refreshToken == "" {
			return httperr.WithOAuthError(http.StatusBadRequest, "refresh_token_required", "refresh_token is required")
		}
		upstreamPayload["refresh_token"] = refreshToken

	default:
		logger.Warnw("unsupported grant type", "grant_type", grantType)
		return httperr.WithOAuthError(http.StatusBadRequest, "unsupported_grant_type", "grant_type is not supported")
	}

	tokens, err := p.upstreamTokenExchange(r.Context(), upstreamPayload)
	if err != nil {
		logger.Errorw("upstream token exchange failed", "grant_type", grantType, "error", err)
		return httperr.WithOAuthError(http.StatusBadGateway, "upstream_token_exchange_failed", "the upstream provider rejected the token exchange")
	}

	writeJSON(w, http.StatusOK, tokens)
	return nil
}
