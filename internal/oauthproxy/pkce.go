package oauthproxy

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"regexp"
	"strings"

	"github.com/zohoanalytics/mcp-oauth-proxy/internal/httperr"
)

var pkceVerifierRe = regexp.MustCompile(`^[A-Za-z0-9\-._~]{43,128}$`)

// validatePKCE checks codeVerifier against the code_challenge stored
// with the authorization code. A code that was issued without a
// challenge requires no verifier at all.
func validatePKCE(codeVerifier, codeChallenge, method string) error {
	if codeChallenge == "" {
		return nil
	}
	if codeVerifier == "" {
		return httperr.WithOAuthError(http.StatusBadRequest, "invalid_request", "code_verifier is required")
	}
	if !pkceVerifierRe.MatchString(codeVerifier) {
		return httperr.WithOAuthError(http.StatusBadRequest, "invalid_request", "code_verifier has an invalid format")
	}

	m := method
	if m == "" {
		m = "plain"
	}

	var computed string
	switch strings.ToUpper(m) {
	case "S256":
		sum := sha256.Sum256([]byte(codeVerifier))
		computed = base64.RawURLEncoding.EncodeToString(sum[:])
	case "PLAIN":
		computed = codeVerifier
	default:
		return httperr.WithOAuthError(http.StatusBadRequest, "invalid_request", "unsupported code_challenge_method")
	}

	if subtle.ConstantTimeCompare([]byte(computed), []byte(codeChallenge)) != 1 {
		return httperr.WithOAuthError(http.StatusBadRequest, "invalid_grant", "code_verifier does not match code_challenge")
	}
	return nil
}
