package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/vladimir-tutin/plex-mcp-server/pkg/auth"
	"github.com/vladimir-tutin/plex-mcp-server/pkg/config"
	"github.com/vladimir-tutin/plex-mcp-server/pkg/livecoll"
	"github.com/vladimir-tutin/plex-mcp-server/pkg/plex"
	"github.com/vladimir-tutin/plex-mcp-server/pkg/resolve"
	"github.com/vladimir-tutin/plex-mcp-server/pkg/tools"
)

// Server represents the Plex MCP server
type Server struct {
	config         *config.Config
	mcpServer      *server.MCPServer
	streamableHTTP *server.StreamableHTTPServer
	sse            *server.SSEServer
	plex           *plex.Client
	cache          *cache.Cache
	rateLimiter    *rate.Limiter
	authProvider   auth.Provider
	oauthProvider  *auth.OAuthProvider
	liveStore      *livecoll.Store
	liveScheduler  *livecoll.Scheduler
}

// New creates a new Plex MCP server
func New(cfg *config.Config) (*Server, error) {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.RateLimitPerSecond <= 0 {
		cfg.RateLimitPerSecond = 100
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 200
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.PlexTimeout <= 0 {
		cfg.PlexTimeout = 30 * time.Second
	}

	// Create Plex client
	plexClient, plexAccount, err := connectPlex(cfg)
	if err != nil {
		return nil, err
	}

	// Create cache
	cacheStore := cache.New(cfg.CacheTTL, cfg.CacheTTL*2)

	// Create rate limiter
	rateLimiter := rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurst)

	// Create auth provider
	authProvider, oauthProvider, err := createAuthProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth provider: %w", err)
	}

	// Create live collection store and scheduler
	var liveStore *livecoll.Store
	var liveScheduler *livecoll.Scheduler
	if cfg.EnableLiveCollections {
		liveStore, err = livecoll.NewStore(cfg.LiveCollectionStorePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open live collection store: %w", err)
		}
		liveScheduler = livecoll.NewScheduler(cfg, plexClient, liveStore)
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		"plex-mcp-server",
		"1.0.0",
	)

	// Register all tools
	tools.RegisterTools(mcpServer, tools.Deps{
		Config:    cfg,
		Client:    plexClient,
		Account:   plexAccount,
		Resolver:  resolve.New(plexClient),
		Cache:     cacheStore,
		Store:     liveStore,
		Scheduler: liveScheduler,
	})

	// Create StreamableHTTP and SSE servers
	streamableHTTP := server.NewStreamableHTTPServer(mcpServer)
	sse := server.NewSSEServer(mcpServer)

	s := &Server{
		config:         cfg,
		mcpServer:      mcpServer,
		streamableHTTP: streamableHTTP,
		sse:            sse,
		plex:           plexClient,
		cache:          cacheStore,
		rateLimiter:    rateLimiter,
		authProvider:   authProvider,
		oauthProvider:  oauthProvider,
		liveStore:      liveStore,
		liveScheduler:  liveScheduler,
	}

	return s, nil
}

// connectPlex builds the Plex client from a direct URL and token, or
// through plex.tv account sign-in when only credentials are given. The
// returned account serves the plex.tv tools; with a direct connection
// it reuses the server token.
func connectPlex(cfg *config.Config) (*plex.Client, *plex.Account, error) {
	if cfg.PlexURL != "" && cfg.PlexToken != "" {
		client := plex.NewClient(cfg.PlexURL, cfg.PlexToken, cfg.PlexTimeout)
		return client, plex.NewAccount(cfg.PlexToken, cfg.PlexTimeout), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PlexTimeout)
	defer cancel()

	account, err := plex.SignIn(ctx, cfg.PlexUsername, cfg.PlexPassword, cfg.PlexTimeout)
	if err != nil {
		return nil, nil, fmt.Errorf("plex.tv sign-in failed: %w", err)
	}

	client, err := account.ServerByName(ctx, cfg.PlexServerName, cfg.PlexTimeout)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to locate server %q: %w", cfg.PlexServerName, err)
	}

	log.Info().Str("server", cfg.PlexServerName).Msg("Connected through plex.tv account")
	return client, account, nil
}

// Start runs the server on the given transport: stdio, sse or http.
func (s *Server) Start(ctx context.Context, transport string) error {
	switch transport {
	case "stdio":
		return s.startStdio(ctx)
	case "sse", "http":
		return s.startHTTP(ctx, transport)
	default:
		return fmt.Errorf("unknown transport: %s", transport)
	}
}

// startStdio serves MCP over stdin/stdout.
func (s *Server) startStdio(ctx context.Context) error {
	log.Info().Msg("Starting stdio transport")

	if s.liveScheduler != nil {
		if err := s.liveScheduler.Start(); err != nil {
			return fmt.Errorf("failed to start live collection scheduler: %w", err)
		}
		defer s.liveScheduler.Stop()
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.ServeStdio(s.mcpServer)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// startHTTP serves MCP over StreamableHTTP or SSE.
func (s *Server) startHTTP(ctx context.Context, transport string) error {
	mux := http.NewServeMux()

	if transport == "sse" {
		mux.Handle("/sse", s.sse.SSEHandler())
		mux.Handle("/message", s.sse.MessageHandler())
	} else {
		mux.HandleFunc("/mcp", s.streamableHTTP.ServeHTTP)
	}

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Ready check
	mux.HandleFunc("/ready", s.handleReady)

	// OAuth discovery metadata
	if s.oauthProvider != nil {
		mux.HandleFunc("/.well-known/oauth-protected-resource", s.handleProtectedResource)
		mux.HandleFunc("/.well-known/oauth-authorization-server", s.handleAuthorizationServer)
	}

	// Apply middleware
	handler := s.authMiddleware(
		s.rateLimitMiddleware(
			s.loggingMiddleware(mux),
		),
	)

	httpServer := &http.Server{
		Addr:         s.config.ListenAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.config.RequestTimeout,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().
		Str("addr", s.config.ListenAddr).
		Str("transport", transport).
		Msg("Starting HTTP server")

	// Start live collection scheduler
	if s.liveScheduler != nil {
		if err := s.liveScheduler.Start(); err != nil {
			return fmt.Errorf("failed to start live collection scheduler: %w", err)
		}
	}

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for context or error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down HTTP server")

		if s.liveScheduler != nil {
			s.liveScheduler.Stop()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errChan:
		if s.liveScheduler != nil {
			s.liveScheduler.Stop()
		}
		return err
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"status":"healthy"}`)); err != nil {
		log.Error().Err(err).Msg("Failed to write health response")
	}
}

// handleReady handles readiness check requests
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Check Plex connectivity
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.plex.Ping(ctx); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		if _, err := w.Write([]byte(`{"status":"not_ready","reason":"plex_unavailable"}`)); err != nil {
			log.Error().Err(err).Msg("Failed to write ready error response")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"status":"ready"}`)); err != nil {
		log.Error().Err(err).Msg("Failed to write ready response")
	}
}

// handleProtectedResource serves RFC 9728 resource metadata so MCP
// clients can discover the authorization server.
func (s *Server) handleProtectedResource(w http.ResponseWriter, r *http.Request) {
	resourceURL := s.config.OAuth.ResourceURL
	if resourceURL == "" {
		resourceURL = "http://" + r.Host
	}

	metadata := map[string]interface{}{
		"resource":                 resourceURL,
		"authorization_servers":    []string{s.oauthProvider.Issuer()},
		"bearer_methods_supported": []string{"header"},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(metadata); err != nil {
		log.Error().Err(err).Msg("Failed to write resource metadata")
	}
}

// handleAuthorizationServer republishes the issuer's endpoints so MCP
// clients behind strict CORS policies can discover them from us.
func (s *Server) handleAuthorizationServer(w http.ResponseWriter, r *http.Request) {
	endpoint, err := s.oauthProvider.Endpoint(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("OAuth discovery failed")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"discovery_failed"}`))
		return
	}

	metadata := map[string]interface{}{
		"issuer":                 s.oauthProvider.Issuer(),
		"authorization_endpoint": endpoint.AuthURL,
		"token_endpoint":         endpoint.TokenURL,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(metadata); err != nil {
		log.Error().Err(err).Msg("Failed to write authorization server metadata")
	}
}

// createAuthProvider creates the appropriate auth provider based on config
func createAuthProvider(cfg *config.Config) (auth.Provider, *auth.OAuthProvider, error) {
	switch cfg.AuthMode {
	case "none":
		return auth.NewNoOpProvider(), nil, nil
	case "api_key":
		return auth.NewAPIKeyProvider(cfg.APIKeys), nil, nil
	case "oauth":
		if cfg.OAuth == nil {
			return nil, nil, fmt.Errorf("oauth config required for oauth auth mode")
		}
		provider, err := auth.NewOAuthProvider(cfg.OAuth)
		if err != nil {
			return nil, nil, err
		}
		return provider, provider, nil
	case "both":
		providers := []auth.Provider{}
		var oauthProvider *auth.OAuthProvider
		if len(cfg.APIKeys) > 0 {
			providers = append(providers, auth.NewAPIKeyProvider(cfg.APIKeys))
		}
		if cfg.OAuth != nil {
			provider, err := auth.NewOAuthProvider(cfg.OAuth)
			if err != nil {
				return nil, nil, err
			}
			oauthProvider = provider
			providers = append(providers, provider)
		}
		return auth.NewMultiProvider(providers...), oauthProvider, nil
	default:
		return nil, nil, fmt.Errorf("invalid auth mode: %s", cfg.AuthMode)
	}
}
