package internal

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgellow/movie-gateway/internal/auth"
	"github.com/dgellow/movie-gateway/internal/config"
	"github.com/dgellow/movie-gateway/internal/cookie"
	"github.com/dgellow/movie-gateway/internal/crypto"
	"github.com/dgellow/movie-gateway/internal/idp"
	"github.com/dgellow/movie-gateway/internal/log"
	"github.com/dgellow/movie-gateway/internal/metrics"
	"github.com/dgellow/movie-gateway/internal/server"
	"github.com/dgellow/movie-gateway/internal/upstream"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds graceful shutdown
const shutdownTimeout = 30 * time.Second

// stateKeyPurpose separates the OAuth state key from other uses of the
// session secret.
const stateKeyPurpose = "oauth-state"

// Gateway is the complete authentication gateway application
type Gateway struct {
	config     config.Config
	handler    http.Handler
	httpServer *server.HTTPServer
}

// NewGateway builds the gateway and all of its dependencies
func NewGateway(cfg config.Config) (*Gateway, error) {
	if err := log.Configure(cfg.Gateway.LogLevel, cfg.Gateway.LogFormat); err != nil {
		return nil, fmt.Errorf("configuring logging: %w", err)
	}

	log.LogInfoWithFields("gateway", "Building gateway", map[string]any{
		"baseURL":   cfg.Gateway.BaseURL,
		"upstream":  cfg.Upstream.URL,
		"providers": len(cfg.Providers),
		"dev":       cfg.Gateway.Dev,
	})

	m := metrics.New()
	api := upstream.NewClient(upstream.Config{
		BaseURL:     cfg.Upstream.URL,
		APIKeyToken: string(cfg.Upstream.APIKeyToken),
		Timeout:     cfg.Upstream.Timeout,
		Observer:    m,
	})

	flows, err := buildProviderFlows(cfg, api)
	if err != nil {
		return nil, fmt.Errorf("building provider flows: %w", err)
	}

	stateKey, err := crypto.DeriveKey([]byte(cfg.Gateway.SessionSecret), stateKeyPurpose)
	if err != nil {
		return nil, fmt.Errorf("deriving state key: %w", err)
	}

	handler := buildHTTPHandler(cfg, httpDeps{
		local:   auth.NewLocalStrategy(api),
		api:     api,
		flows:   flows,
		states:  auth.NewStateCodec(stateKey),
		metrics: m,
	})

	return &Gateway{
		config:     cfg,
		handler:    handler,
		httpServer: server.NewHTTPServer(handler, cfg.Gateway.Addr),
	}, nil
}

// Handler returns the fully wired HTTP handler
func (g *Gateway) Handler() http.Handler {
	return g.handler
}

// Run serves until ctx is cancelled, SIGINT or SIGTERM arrives, or the
// server fails, then shuts down gracefully.
func (g *Gateway) Run(ctx context.Context) error {
	log.LogInfoWithFields("gateway", "Starting gateway", map[string]any{
		"addr": g.config.Gateway.Addr,
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if err := g.httpServer.Start(); err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		log.LogInfoWithFields("gateway", "Starting graceful shutdown", map[string]any{
			"timeout": shutdownTimeout.String(),
		})

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return g.httpServer.Stop(shutdownCtx)
	})

	if err := eg.Wait(); err != nil {
		log.LogErrorWithFields("gateway", "Gateway stopped with error", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	log.LogInfoWithFields("gateway", "Gateway shutdown complete", nil)
	return nil
}

// buildProviderFlows creates one flow per configured provider route key
func buildProviderFlows(cfg config.Config, api auth.SignProviderAPI) (map[string]auth.ProviderFlow, error) {
	flows := make(map[string]auth.ProviderFlow, len(cfg.Providers))
	for key, providerCfg := range cfg.Providers {
		provider, err := idp.NewProvider(providerCfg, cfg.Gateway.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", key, err)
		}
		flows[key] = auth.NewProviderStrategy(provider, api)

		log.LogInfoWithFields("gateway", "Provider configured", map[string]any{
			"route":    key,
			"kind":     string(providerCfg.Kind),
			"callback": providerCfg.CallbackPath,
		})
	}
	return flows, nil
}

// upstreamAPI is everything the handlers need from the upstream client
type upstreamAPI interface {
	server.SignUpAPI
	server.ResourceAPI
}

type httpDeps struct {
	local   server.CredentialVerifier
	api     upstreamAPI
	flows   map[string]auth.ProviderFlow
	states  *auth.StateCodec
	metrics *metrics.Metrics
}

func buildHTTPHandler(cfg config.Config, deps httpDeps) http.Handler {
	mux := http.NewServeMux()

	authHandlers := server.NewAuthHandlers(
		deps.local,
		deps.api,
		deps.flows,
		deps.states,
		cookie.Policy{Dev: cfg.Gateway.Dev},
		deps.metrics,
	)
	resourceHandlers := server.NewResourceHandlers(deps.api)

	mux.Handle("GET /health", server.NewHealthHandler())
	mux.Handle("GET /metrics", deps.metrics.Handler())

	mux.HandleFunc("POST /auth/sign-in", authHandlers.SignInHandler)
	mux.HandleFunc("POST /auth/sign-up", authHandlers.SignUpHandler)
	mux.HandleFunc("GET /auth/{provider}", authHandlers.ProviderAuthHandler)
	for key, providerCfg := range cfg.Providers {
		mux.HandleFunc("GET "+providerCfg.CallbackPath, authHandlers.CallbackHandler(key))
	}

	mux.HandleFunc("GET /movies", resourceHandlers.ListMoviesHandler)
	mux.HandleFunc("POST /user-movies", resourceHandlers.CreateUserMovieHandler)
	mux.HandleFunc("DELETE /user-movies/{userMovieId}", resourceHandlers.DeleteUserMovieHandler)

	// Listed innermost first
	return server.ChainMiddleware(mux,
		server.NewMetricsMiddleware(deps.metrics),
		server.NewRecoverMiddleware("http"),
		server.NewCORSMiddleware(cfg.Gateway.AllowedOrigins),
		server.NewSecurityHeadersMiddleware(cfg.Gateway.Dev),
		server.NewLoggerMiddleware("http"),
		server.NewRequestIDMiddleware(),
	)
}
