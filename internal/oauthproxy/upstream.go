package oauthproxy

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// oauthConfig builds the golang.org/x/oauth2 client config for the
// upstream provider, pointed at its token endpoint with this proxy's
// own static credentials (invariant I5: those credentials never reach
// the downstream MCP client).
func (p *Proxy) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.OIDCClientID,
		ClientSecret: p.OIDCClientSecret,
		RedirectURL:  p.urlFor("auth/callback"),
		Endpoint: oauth2.Endpoint{
			TokenURL:  p.OIDCBaseURL + "/oauth/v2/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// upstreamTokenExchange forwards a grant to the real identity
// provider's token endpoint. fields carries the grant-specific
// parameters ("code" for authorization_code, "refresh_token" for
// refresh_token); client credentials and redirect_uri are attached by
// oauthConfig. The downstream client gets the upstream token document
// back verbatim: access_token, token_type, expires_in, refresh_token,
// scope, and id_token. golang.org/x/oauth2 only promotes the first
// four to named Token fields; scope, id_token, and any other
// provider-specific field (e.g. Zoho's api_domain) live in the decoded
// response map and are recovered through Token.Extra. x/oauth2 does
// not expose a way to enumerate unanticipated extra keys, so any
// upstream field outside this list is not forwarded.
func (p *Proxy) upstreamTokenExchange(ctx context.Context, fields map[string]string) (map[string]any, error) {
	conf := p.oauthConfig()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	var token *oauth2.Token
	var err error

	switch fields["grant_type"] {
	case "authorization_code":
		token, err = conf.Exchange(ctx, fields["code"])
	case "refresh_token":
		src := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: fields["refresh_token"]})
		token, err = src.Token()
	default:
		return nil, fmt.Errorf("unsupported grant_type %q", fields["grant_type"])
	}
	if err != nil {
		return nil, fmt.Errorf("upstream token exchange: %w", err)
	}

	out := map[string]any{
		"access_token": token.AccessToken,
		"token_type":   token.TokenType,
	}
	if token.RefreshToken != "" {
		out["refresh_token"] = token.RefreshToken
	}
	if token.ExpiresIn > 0 {
		out["expires_in"] = token.ExpiresIn
	}
	for _, extra := range []string{"scope", "api_domain", "id_token"} {
		if v := token.Extra(extra); v != nil {
			out[extra] = v
		}
	}
	return out, nil
}
