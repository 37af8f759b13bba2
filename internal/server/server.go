// Package server assembles the HTTP front-end (C8): the chi router,
// the middleware chain (body-size guard, bearer validation, global
// rate limiting), and graceful shutdown, in the style of toolhive's
// own pkg/api/server.go.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/zohoanalytics/mcp-oauth-proxy/internal/bearer"
	"github.com/zohoanalytics/mcp-oauth-proxy/internal/bodylimit"
	"github.com/zohoanalytics/mcp-oauth-proxy/internal/clientip"
	"github.com/zohoanalytics/mcp-oauth-proxy/internal/config"
	"github.com/zohoanalytics/mcp-oauth-proxy/internal/httperr"
	"github.com/zohoanalytics/mcp-oauth-proxy/internal/logger"
	"github.com/zohoanalytics/mcp-oauth-proxy/internal/oauthproxy"
	"github.com/zohoanalytics/mcp-oauth-proxy/internal/ratelimit"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second

	globalRateLimitKeyPrefix = "global"
)

// Deps bundles everything the router needs beyond cfg itself.
type Deps struct {
	Proxy    *oauthproxy.Proxy
	Probe    bearer.TokenProbe
	Limiters *ratelimit.Registry
}

// NewRouter builds the fully wired chi.Router for the proxy.
func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	oauthproxy.StaticDir = cfg.StaticDir
	oauthproxy.TemplatesDir = cfg.TemplatesDir

	ipCfg := clientip.Config{BehindProxy: cfg.BehindProxy}
	if cfg.BehindProxy {
		nets, invalid := clientip.ParseTrustedProxies(cfg.TrustedProxyCIDRs)
		for _, bad := range invalid {
			logger.Warnw("ignoring invalid trusted proxy CIDR", "cidr", bad)
		}
		ipCfg.TrustedProxies = nets
	}

	limiter := deps.Limiters.Get(cfg.GlobalRateLimitCapacity, cfg.GlobalRateLimitWindowSeconds)

	r := chi.NewRouter()
	r.Use(
		chimiddleware.RequestID,
		chimiddleware.Recoverer,
		requestLogger,
		bodylimit.Middleware(bodylimit.Options{
			MaxBytes:                cfg.MaxBodySizeBytes,
			DrainTimeout:            2 * time.Second,
			CloseConnectionOnReject: true,
		}),
		globalRateLimit(limiter, ipCfg),
	)

	r.Get("/", landingHandler(cfg))
	r.Get("/favicon.ico", func(w http.ResponseWriter, req *http.Request) {
		http.ServeFile(w, req, filepath.Join(cfg.StaticDir, "favicon.ico"))
	})

	r.Get("/.well-known/oauth-protected-resource", httperr.ErrorHandler(deps.Proxy.ProtectedResourceHandler))
	r.Get("/.well-known/oauth-authorization-server", httperr.ErrorHandler(deps.Proxy.AuthorizationServerHandler))

	r.Post("/register", httperr.ErrorHandler(deps.Proxy.RegisterHandler))
	r.Get("/register/{client_id}", httperr.ErrorHandler(func(w http.ResponseWriter, req *http.Request) error {
		return deps.Proxy.RegisterClientConfigHandler(w, req, chi.URLParam(req, "client_id"))
	}))

	r.Get("/authorize", httperr.ErrorHandler(deps.Proxy.AuthorizeHandler))
	r.Get("/consent", httperr.ErrorHandler(deps.Proxy.ConsentHandler))
	r.Post("/consent/approve", httperr.ErrorHandler(deps.Proxy.ApproveConsentHandler))
	r.Post("/consent/deny", httperr.ErrorHandler(deps.Proxy.DenyConsentHandler))
	r.Get("/auth/callback", httperr.ErrorHandler(deps.Proxy.CallbackHandler))
	r.Post("/token", httperr.ErrorHandler(deps.Proxy.TokenHandler))
	r.Post("/revoke", httperr.ErrorHandler(deps.Proxy.RevokeHandler))

	fileServer := http.FileServer(http.Dir(cfg.StaticDir))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	r.Group(func(protected chi.Router) {
		protected.Use(bearer.Middleware(bearer.Config{
			Probe:               deps.Probe,
			ResourceMetadataURL: cfg.MCPServerPublicURL + "/.well-known/oauth-protected-resource",
			ExemptPaths:         bearer.DefaultExemptPaths,
			ExemptPrefixes:      bearer.DefaultExemptPrefixes,
		}))
		protected.Get("/mcp", mcpPlaceholderHandler)
	})

	return r
}

// requestLogger logs each request at debug level once it completes,
// mirroring the structured-logging habit the rest of the proxy uses.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Debugw("request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
		)
	})
}

// globalRateLimit enforces the process-wide request cap (capacity 50,
// window 60s by default) keyed by client IP, ahead of any OAuth or
// bearer-token logic.
func globalRateLimit(limiter ratelimit.Limiter, ipCfg clientip.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := globalRateLimitKeyPrefix + ":" + clientip.Extract(r, ipCfg)
			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Errorw("rate limiter error", "error", err)
				allowed = true
			}
			if !allowed {
				w.Header().Set("Retry-After", "60")
				httperr.WithOAuthError(http.StatusTooManyRequests, "rate_limited", "too many requests").WriteTo(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func landingHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(cfg.StaticDir, "index.html")
		data, err := os.ReadFile(path)
		if err != nil {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("mcp-oauth-proxy is running\n"))
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write(data)
	}
}

// mcpPlaceholderHandler stands in for the actual MCP application this
// proxy fronts; everything it needs from OAuth has already happened by
// the time a request reaches here.
func mcpPlaceholderHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"authenticated"}`))
}

// Run starts the HTTP server on cfg.Port and blocks until ctx is
// canceled, then shuts down gracefully.
func Run(ctx context.Context, cfg *config.Config, handler http.Handler) error {
	srv := &http.Server{
		BaseContext:       func(net.Listener) context.Context { return ctx },
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("starting http server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Infow("http server stopped")
	return nil
}
