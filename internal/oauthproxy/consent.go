package oauthproxy

import (
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/zohoanalytics/mcp-oauth-proxy/internal/httperr"
	"github.com/zohoanalytics/mcp-oauth-proxy/internal/logger"
)

// TemplatesDir is where consent.html lives; set by the server package
// at startup.
var TemplatesDir = "./web/templates"

type consentView struct {
	TransactionID    string
	ClientID         string
	Scope            string
	CSRFToken        string
	AppName          string
	UpstreamProvider string
}

// ConsentHandler implements GET /consent.
func (p *Proxy) ConsentHandler(w http.ResponseWriter, r *http.Request) error {
	transactionID := r.URL.Query().Get("transaction_id")
	if transactionID == "" {
		return httperr.WithOAuthError(http.StatusBadRequest, "invalid_transaction", "transaction_id is required")
	}

	txn, ok, err := p.Transactions.Get(r.Context(), transactionID)
	if err != nil {
		return httperr.WithCode(err, http.StatusInternalServerError)
	}
	if !ok {
		logger.Warnw("consent requested for invalid transaction", "transaction_id", transactionID)
		return httperr.WithOAuthError(http.StatusBadRequest, "invalid_transaction", "unknown or expired transaction")
	}
	if txn.ExpiresAt.Before(time.Now()) {
		_ = p.Transactions.Delete(r.Context(), transactionID)
		return httperr.WithOAuthError(http.StatusBadRequest, "transaction_expired", "the authorization transaction has expired")
	}

	csrfToken := p.Sessions.EnsureCSRFToken(w, r)

	view := consentView{
		TransactionID:    transactionID,
		ClientID:         txn.ClientID,
		Scope:            txn.Scope,
		CSRFToken:        csrfToken,
		AppName:          "Model Context Protocol (MCP) Host Application",
		UpstreamProvider: "Zoho Accounts",
	}

	tmpl, err := loadConsentTemplate()
	if err != nil {
		return httperr.WithCode(err, http.StatusInternalServerError)
	}

	w.Header().Set("Content-Type", "text/html")
	return tmpl.Execute(w, view)
}

func loadConsentTemplate() (*template.Template, error) {
	path := filepath.Join(TemplatesDir, "consent.html")
	return template.ParseFiles(path)
}

// ApproveConsentHandler implements POST /consent/approve: validates
// CSRF, re-validates the transaction, and sends the user agent on to
// the upstream provider's authorize endpoint.
func (p *Proxy) ApproveConsentHandler(w http.ResponseWriter, r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return httperr.WithOAuthError(http.StatusBadRequest, "invalid_request", "malformed form body")
	}
	transactionID := r.PostForm.Get("transaction_id")
	csrfToken := r.PostForm.Get("csrf_token")

	if !p.Sessions.ValidateCSRFToken(w, r, csrfToken) {
		return httperr.WithCode(errInvalidCSRF, http.StatusForbidden)
	}

	logger.Infow("user approved consent", "transaction_id", transactionID)

	txn, ok, err := p.Transactions.Get(r.Context(), transactionID)
	if err != nil {
		return httperr.WithCode(err, http.StatusInternalServerError)
	}
	if !ok {
		return httperr.WithOAuthError(http.StatusBadRequest, "invalid_transaction", "unknown or expired transaction")
	}
	if txn.ExpiresAt.Before(time.Now()) {
		_ = p.Transactions.Delete(r.Context(), transactionID)
		return httperr.WithOAuthError(http.StatusBadRequest, "transaction_expired", "the authorization transaction has expired")
	}

	upstreamParams := map[string]string{
		"client_id":     p.OIDCClientID,
		"response_type": "code",
		"redirect_uri":  p.urlFor("auth/callback"),
		"scope":         txn.Scope,
		"state":         transactionID,
		"access_type":   "offline",
		"prompt":        "Consent",
	}
	upstreamURL := buildURLWithParams(p.OIDCBaseURL+"/oauth/v2/auth", upstreamParams)

	logger.Infow("redirecting to upstream authorization endpoint", "transaction_id", transactionID)
	http.Redirect(w, r, upstreamURL, http.StatusFound)
	return nil
}

// DenyConsentHandler implements POST /consent/deny: the user declined,
// so the transaction is discarded and the client is told the user
// denied access. This path exists because the consent UI always
// offers a decline option even though the original only ever wired up
// approval.
func (p *Proxy) DenyConsentHandler(w http.ResponseWriter, r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return httperr.WithOAuthError(http.StatusBadRequest, "invalid_request", "malformed form body")
	}
	transactionID := r.PostForm.Get("transaction_id")

	txn, ok, _ := p.Transactions.Get(r.Context(), transactionID)
	_ = p.Transactions.Delete(r.Context(), transactionID)

	if !ok {
		return httperr.WithOAuthError(http.StatusBadRequest, "invalid_transaction", "unknown or expired transaction")
	}

	deniedURL := buildURLWithParams(txn.RedirectURI, map[string]string{
		"error":             "access_denied",
		"error_description": "the user denied the authorization request",
		"state":             txn.State,
	})
	http.Redirect(w, r, deniedURL, http.StatusFound)
	return nil
}

func staticFileHandler(name string) func(http.ResponseWriter, *http.Request) error {
	return func(w http.ResponseWriter, _ *http.Request) error {
		data, err := os.ReadFile(filepath.Join(StaticDir, name))
		if err != nil {
			return httperr.WithCode(err, http.StatusNotFound)
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write(data)
		return nil
	}
}
