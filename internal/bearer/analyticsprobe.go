package bearer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AnalyticsProbe validates a bearer token by performing the cheapest
// authenticated read the analytics collaborator exposes: listing the
// caller's own workspaces. A 2xx response means the token is live; any
// other status or transport error is treated as invalid.
type AnalyticsProbe struct {
	// BaseURL is the analytics API's base URL, e.g.
	// "https://analyticsapi.zoho.com/restapi/v2".
	BaseURL string
	client  *http.Client
}

// NewAnalyticsProbe builds a probe against baseURL.
func NewAnalyticsProbe(baseURL string) *AnalyticsProbe {
	return &AnalyticsProbe{
		BaseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *AnalyticsProbe) Probe(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/workspaces", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+token)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("workspace probe returned status %d", resp.StatusCode)
	}
	return nil
}
