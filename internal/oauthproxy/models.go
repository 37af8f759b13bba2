// Package oauthproxy implements the OAuth proxy core (C7): dynamic
// client registration, the authorize/consent/callback/token endpoints,
// PKCE verification, and the upstream token exchange.
package oauthproxy

import "time"

// RegisteredClient is the record created by POST /register. The proxy
// owns client_id/client_secret entirely — the upstream provider never
// sees them (invariant I5).
type RegisteredClient struct {
	ClientID      string   `json:"client_id"`
	ClientSecret  string   `json:"client_secret"`
	ClientName    string   `json:"client_name,omitempty"`
	RedirectURIs  []string `json:"redirect_uris"`
	Scope         string   `json:"scope,omitempty"`
	GrantTypes    []string `json:"grant_types"`
	ResponseTypes []string `json:"response_types"`
	IssuedAt      int64    `json:"client_id_issued_at"`
}

// AuthorizationTransaction is the in-flight state held between the
// user's click on the client and the return from the upstream
// provider.
type AuthorizationTransaction struct {
	CreatedAt           time.Time `json:"created_at"`
	ExpiresAt           time.Time `json:"expires_at"`
	ClientID            string    `json:"client_id"`
	RedirectURI         string    `json:"redirect_uri"`
	Scope               string    `json:"scope"`
	State               string    `json:"state,omitempty"`
	CodeChallenge       string    `json:"code_challenge,omitempty"`
	CodeChallengeMethod string    `json:"code_challenge_method,omitempty"`
}

// AuthorizationCode is the proxy-issued, single-use code handed to the
// downstream client after the upstream round trip completes.
type AuthorizationCode struct {
	CreatedAt           time.Time `json:"created_at"`
	ExpiresAt           time.Time `json:"expires_at"`
	TransactionID       string    `json:"transaction_id"`
	ClientID            string    `json:"client_id"`
	RedirectURI         string    `json:"redirect_uri"`
	CodeChallenge       string    `json:"code_challenge,omitempty"`
	CodeChallengeMethod string    `json:"code_challenge_method,omitempty"`
	// UpstreamLocation preserves the upstream's optional region hint
	// verbatim; the proxy never infers semantics from it (an open
	// question left unresolved upstream of this implementation).
	UpstreamLocation string `json:"upstream_location,omitempty"`
	UpstreamCode     string `json:"upstream_code"`
}
