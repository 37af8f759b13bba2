package oauthproxy

import (
	"errors"
	"net/url"
)

var errInvalidCSRF = errors.New("oauthproxy: invalid csrf token")

// buildURLWithParams merges params into baseURL's existing query
// string, leaving unrelated query parameters (if any) untouched. Empty
// values are omitted entirely rather than included as empty strings.
func buildURLWithParams(baseURL string, params map[string]string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL
	}
	q := u.Query()
	for k, v := range params {
		if v == "" {
			continue
		}
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
