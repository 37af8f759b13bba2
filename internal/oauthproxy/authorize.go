package oauthproxy

import (
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/zohoanalytics/mcp-oauth-proxy/internal/httperr"
	"github.com/zohoanalytics/mcp-oauth-proxy/internal/logger"
)

// StaticDir is where invalid_token.html and other static assets live;
// set by the server package at startup.
var StaticDir = "./web/static"

// AuthorizeHandler implements GET /authorize: validates the client and
// redirect_uri, opens a new transaction, and sends the user to the
// consent page.
func (p *Proxy) AuthorizeHandler(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	clientID := q.Get("client_id")
	redirectURI := q.Get("redirect_uri")
	if clientID == "" || redirectURI == "" {
		return httperr.WithOAuthError(http.StatusBadRequest, "invalid_request", "client_id and redirect_uri are required")
	}

	client, ok, err := p.Clients.Get(r.Context(), clientID)
	if err != nil {
		return httperr.WithCode(err, http.StatusInternalServerError)
	}
	if !ok {
		logger.Warnw("authorize request with invalid client_id", "client_id", clientID)
		serveInvalidTokenPage(w)
		return nil
	}

	if !slices.Contains(client.RedirectURIs, redirectURI) {
		logger.Warnw("authorize request with invalid redirect_uri", "client_id", clientID)
		return httperr.WithOAuthError(http.StatusBadRequest, "invalid_redirect_uri", "redirect_uri is not registered for this client")
	}

	scope := q.Get("scope")
	if scope == "" {
		scope = client.Scope
	}
	if scope == "" {
		scope = "ZohoAnalytics.fullaccess.all"
	}

	transactionID := uuid.NewString()
	now := time.Now()
	txn := AuthorizationTransaction{
		CreatedAt:           now,
		ExpiresAt:           now.Add(transactionTTL),
		ClientID:            clientID,
		RedirectURI:         redirectURI,
		Scope:               scope,
		State:               q.Get("state"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
	}

	if err := p.Transactions.Set(r.Context(), transactionID, txn, transactionTTL); err != nil {
		return httperr.WithCode(err, http.StatusInternalServerError)
	}

	logger.Infow("authorization transaction created", "client_id", clientID, "transaction_id", transactionID)

	consentURL := p.urlFor("consent") + "?transaction_id=" + transactionID
	http.Redirect(w, r, consentURL, http.StatusFound)
	return nil
}

func serveInvalidTokenPage(w http.ResponseWriter) {
	path := filepath.Join(StaticDir, "invalid_token.html")
	data, err := os.ReadFile(path)
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusUnauthorized)
	if err != nil {
		_, _ = w.Write([]byte("<html><body><h1>Invalid or unknown client</h1></body></html>"))
		return
	}
	_, _ = w.Write(data)
}
