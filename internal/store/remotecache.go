package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/zohoanalytics/mcp-oauth-proxy/internal/logger"
)

// RemoteCacheConfig names the hosted cache service and the OAuth
// credentials used to authenticate to it, mirroring the original's
// CatalystSDKConfig/AuthConfig pair.
type RemoteCacheConfig struct {
	BaseURL      string // e.g. "https://api.catalyst.zoho.in"
	ProjectID    string
	SegmentID    string
	ClientID     string
	ClientSecret string
	RefreshToken string
	// AccountsURL is the OAuth token endpoint used to mint access
	// tokens from RefreshToken; defaults to https://accounts.zoho.com.
	AccountsURL string
}

// remoteCacheError mirrors the upstream cache service's error envelope
// closely enough to detect an expired access token.
type remoteCacheError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

const authenticationFailure = "AUTHENTICATION_FAILURE"

// RemoteCacheStore persists records against a hosted REST cache
// service over plain net/http, modeled on the original project's
// Catalyst cache client: TTL is expressed in whole hours, and an
// expired OAuth access token is refreshed and the call retried exactly
// once.
type RemoteCacheStore[T any] struct {
	cfg    RemoteCacheConfig
	prefix string
	http   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewRemoteCacheStore constructs a store for T scoped under prefix.
func NewRemoteCacheStore[T any](cfg RemoteCacheConfig, prefix string) *RemoteCacheStore[T] {
	if cfg.AccountsURL == "" {
		cfg.AccountsURL = "https://accounts.zoho.com"
	}
	return &RemoteCacheStore[T]{
		cfg:    cfg,
		prefix: prefix,
		http:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *RemoteCacheStore[T]) segmentURL() string {
	return fmt.Sprintf("%s/baas/v1/project/%s/segment/%s/cache", s.cfg.BaseURL, s.cfg.ProjectID, s.cfg.SegmentID)
}

func (s *RemoteCacheStore[T]) fullKey(key string) string {
	return s.prefix + ":" + key
}

// secToExpiryHours converts a TTL into the hour granularity the cache
// service requires: 0 means no expiry, otherwise ceil(seconds/3600)
// clamped to a minimum of 1.
func secToExpiryHours(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	hours := int(math.Ceil(ttl.Seconds() / 3600))
	if hours < 1 {
		hours = 1
	}
	return hours
}

func (s *RemoteCacheStore[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	body := map[string]any{
		"key":   s.fullKey(key),
		"value": string(raw),
	}
	if hours := secToExpiryHours(ttl); hours > 0 {
		body["expiry_in_hours"] = hours
	}
	_, err = s.doWithRetry(ctx, http.MethodPost, s.segmentURL(), body)
	return err
}

func (s *RemoteCacheStore[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	u := s.segmentURL() + "?key=" + url.QueryEscape(s.fullKey(key))
	respBody, err := s.doWithRetry(ctx, http.MethodGet, u, nil)
	if err != nil {
		return zero, false, err
	}
	if respBody == nil {
		return zero, false, nil
	}

	var envelope struct {
		Data struct {
			Value string `json:"value"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return zero, false, err
	}
	if envelope.Data.Value == "" {
		return zero, false, nil
	}

	var value T
	if err := json.Unmarshal([]byte(envelope.Data.Value), &value); err != nil {
		return zero, false, err
	}
	return value, true, nil
}

func (s *RemoteCacheStore[T]) Delete(ctx context.Context, key string) error {
	u := s.segmentURL() + "?key=" + url.QueryEscape(s.fullKey(key))
	_, err := s.doWithRetry(ctx, http.MethodDelete, u, nil)
	return err
}

// doWithRetry performs one HTTP call against the cache service,
// refreshing the access token and retrying exactly once if the service
// reports AUTHENTICATION_FAILURE.
func (s *RemoteCacheStore[T]) doWithRetry(ctx context.Context, method, u string, body any) ([]byte, error) {
	respBody, status, errCode, err := s.do(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status >= 400 && errCode == authenticationFailure {
		logger.Warnw("remote cache access token expired, refreshing", "path", u)
		if err := s.refreshAccessToken(ctx); err != nil {
			return nil, fmt.Errorf("remote cache: refresh access token: %w", err)
		}
		respBody, status, errCode, err = s.do(ctx, method, u, body)
		if err != nil {
			return nil, err
		}
		if status == http.StatusNotFound {
			return nil, nil
		}
	}
	if status >= 400 {
		return nil, fmt.Errorf("remote cache: request failed: status=%d code=%s", status, errCode)
	}
	return respBody, nil
}

func (s *RemoteCacheStore[T]) do(ctx context.Context, method, u string, body any) (respBody []byte, status int, errCode string, err error) {
	var reader io.Reader
	if body != nil {
		raw, merr := json.Marshal(body)
		if merr != nil {
			return nil, 0, "", merr
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, 0, "", err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	s.mu.Lock()
	token := s.accessToken
	s.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Zoho-oauthtoken "+token)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, 0, "", err
	}
	defer resp.Body.Close()

	respBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, "", err
	}

	if resp.StatusCode >= 400 {
		var rerr remoteCacheError
		_ = json.Unmarshal(respBody, &rerr)
		return respBody, resp.StatusCode, rerr.ErrorCode, nil
	}
	return respBody, resp.StatusCode, "", nil
}

// refreshAccessToken exchanges the configured refresh token for a new
// access token via the accounts OAuth endpoint.
func (s *RemoteCacheStore[T]) refreshAccessToken(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", s.cfg.RefreshToken)
	form.Set("client_id", s.cfg.ClientID)
	form.Set("client_secret", s.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.AccountsURL+"/oauth/v2/token", bytes.NewBufferString(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("remote cache: token refresh failed: status=%d body=%s", resp.StatusCode, string(raw))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}

	s.mu.Lock()
	s.accessToken = payload.AccessToken
	s.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	s.mu.Unlock()
	return nil
}
