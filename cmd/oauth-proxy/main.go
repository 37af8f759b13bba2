// Package main is the entry point for the MCP OAuth proxy.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/zohoanalytics/mcp-oauth-proxy/internal/bearer"
	"github.com/zohoanalytics/mcp-oauth-proxy/internal/config"
	"github.com/zohoanalytics/mcp-oauth-proxy/internal/logger"
	"github.com/zohoanalytics/mcp-oauth-proxy/internal/oauthproxy"
	"github.com/zohoanalytics/mcp-oauth-proxy/internal/ratelimit"
	"github.com/zohoanalytics/mcp-oauth-proxy/internal/server"
	"github.com/zohoanalytics/mcp-oauth-proxy/internal/store"
)

func main() {
	logger.Configure(logger.Options{Level: slog.LevelInfo})

	cfg, err := config.Load()
	if err != nil {
		logger.Errorw("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		logger.Errorw("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	// Background tasks are cancelled when run returns, and run waits for
	// them to stop before returning.
	ctx, cancel := context.WithCancel(ctx)
	var background sync.WaitGroup
	defer background.Wait()
	defer cancel()

	reaper := store.NewReaper(time.Duration(cfg.ReapIntervalSeconds) * time.Second)
	backends := store.NewBackends(cfg)

	clients := store.New[oauthproxy.RegisteredClient](backends, "registered_clients", reaper)
	transactions := store.New[oauthproxy.AuthorizationTransaction](backends, "transactions", reaper)
	codes := store.New[oauthproxy.AuthorizationCode](backends, "authorization_codes", reaper)

	background.Add(1)
	go func() {
		defer background.Done()
		reaper.Run(ctx)
	}()

	proxy := oauthproxy.New(clients, transactions, codes, oauthproxy.Config{
		PublicURL:        cfg.MCPServerPublicURL,
		OIDCBaseURL:      cfg.OIDCProviderBaseURL,
		OIDCClientID:     cfg.OIDCProviderClientID,
		OIDCClientSecret: cfg.OIDCProviderClientSecret,
		SessionSecret:    cfg.SessionSecretKey,
	})

	probe := bearer.NewAnalyticsProbe(cfg.AnalyticsAPIBaseURL)
	limiters := ratelimit.NewRegistry(cfg.StorageBackend, backends.RedisClient)
	background.Add(1)
	go func() {
		defer background.Done()
		runLimiterCleanup(ctx, limiters, time.Duration(cfg.ReapIntervalSeconds)*time.Second)
	}()

	handler := server.NewRouter(cfg, server.Deps{
		Proxy:    proxy,
		Probe:    probe,
		Limiters: limiters,
	})

	return server.Run(ctx, cfg, handler)
}

// runLimiterCleanup periodically evicts stale per-key buckets from every
// in-process rate limiter the registry has built, so a global or
// per-client limiter keyed on client IP doesn't grow unbounded across
// the life of the process. Redis-backed limiters are skipped; they
// expire natively.
func runLimiterCleanup(ctx context.Context, limiters *ratelimit.Registry, interval time.Duration) {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiters.CleanupInProcess(); n > 0 {
				logger.Debugw("rate limiter cleanup evicted stale buckets", "count", n)
			}
		}
	}
}
