package oauthproxy

import (
	"net/http"
	"time"

	"github.com/zohoanalytics/mcp-oauth-proxy/internal/httperr"
	"github.com/zohoanalytics/mcp-oauth-proxy/internal/logger"
)

// CallbackHandler implements GET /auth/callback: the registered
// redirect_uri the upstream provider returns the user to. It brokers
// the upstream authorization code into a new, proxy-issued one handed
// back to the downstream MCP client.
func (p *Proxy) CallbackHandler(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	upstreamCode := q.Get("code")
	state := q.Get("state")
	location := q.Get("location")

	if upstreamCode == "" || state == "" {
		return httperr.WithOAuthError(http.StatusBadRequest, "invalid_request", "code and state are required")
	}

	transactionID := state
	txn, ok, err := p.Transactions.Get(r.Context(), transactionID)
	if err != nil {
		return httperr.WithCode(err, http.StatusInternalServerError)
	}
	if !ok {
		logger.Errorw("callback received with invalid or expired transaction", "transaction_id", transactionID)
		return httperr.WithOAuthError(http.StatusBadRequest, "invalid_state_or_transaction_expired", "unknown or expired transaction")
	}
	if txn.ExpiresAt.Before(time.Now()) {
		_ = p.Transactions.Delete(r.Context(), transactionID)
		return httperr.WithOAuthError(http.StatusBadRequest, "transaction_expired", "the authorization transaction has expired")
	}

	newCode := randomURLSafeToken(32)
	now := time.Now()

	record := AuthorizationCode{
		CreatedAt:           now,
		ExpiresAt:           now.Add(codeTTL),
		TransactionID:       transactionID,
		ClientID:            txn.ClientID,
		RedirectURI:         txn.RedirectURI,
		CodeChallenge:       txn.CodeChallenge,
		CodeChallengeMethod: txn.CodeChallengeMethod,
		UpstreamLocation:    location,
		UpstreamCode:        upstreamCode,
	}

	if err := p.Codes.Set(r.Context(), newCode, record, codeTTL); err != nil {
		return httperr.WithCode(err, http.StatusInternalServerError)
	}

	logger.Infow("proxy authorization code issued", "client_id", txn.ClientID, "transaction_id", transactionID)

	finalURL := buildURLWithParams(txn.RedirectURI, map[string]string{
		"code":  newCode,
		"state": txn.State,
	})
	http.Redirect(w, r, finalURL, http.StatusFound)
	return nil
}
