package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vladimir-tutin/plex-mcp-server/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		PlexURL:            "http://localhost:32400",
		PlexToken:          "test-token",
		AuthMode:           "none",
		CacheTTL:           5 * time.Minute,
		RateLimitPerSecond: 100,
		RateLimitBurst:     200,
	}
}

func TestNewServer(t *testing.T) {
	srv, err := New(testConfig())
	require.NoError(t, err)
	assert.NotNil(t, srv)
	assert.NotNil(t, srv.mcpServer)
	assert.NotNil(t, srv.plex)
	assert.NotNil(t, srv.cache)
	assert.NotNil(t, srv.rateLimiter)
	assert.NotNil(t, srv.authProvider)
	assert.Nil(t, srv.liveScheduler)
}

func TestServerHealthCheck(t *testing.T) {
	srv, err := New(testConfig())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	srv.handleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestServerReadyCheck(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"MediaContainer":{"machineIdentifier":"machine-1","version":"1.41.0"}}`))
	}))
	defer backend.Close()

	cfg := testConfig()
	cfg.PlexURL = backend.URL
	srv, err := New(cfg)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()

	srv.handleReady(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ready")
}

func TestServerReadyCheckPlexDown(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer backend.Close()

	cfg := testConfig()
	cfg.PlexURL = backend.URL
	srv, err := New(cfg)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()

	srv.handleReady(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "plex_unavailable")
}

func TestServerAuthModes(t *testing.T) {
	tests := []struct {
		name     string
		authMode string
		apiKeys  []string
		wantErr  bool
	}{
		{
			name:     "no auth",
			authMode: "none",
			wantErr:  false,
		},
		{
			name:     "api key auth with keys",
			authMode: "api_key",
			apiKeys:  []string{"key1", "key2"},
			wantErr:  false,
		},
		{
			name:     "api key auth without keys",
			authMode: "api_key",
			apiKeys:  []string{},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.AuthMode = tt.authMode
			cfg.APIKeys = tt.apiKeys

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAuthMiddlewareSkipsHealthEndpoints(t *testing.T) {
	cfg := testConfig()
	cfg.AuthMode = "api_key"
	cfg.APIKeys = []string{"secret"}
	srv, err := New(cfg)
	require.NoError(t, err)

	handler := srv.authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Health endpoint passes without a key
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Tool endpoint requires a key
	req = httptest.NewRequest(http.MethodPost, "/mcp", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// And accepts a valid one
	req = httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("X-API-Key", "secret")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitPerSecond = 1
	cfg.RateLimitBurst = 1

	srv, err := New(cfg)
	require.NoError(t, err)

	handler := srv.rateLimitMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// First request should succeed
	req1 := httptest.NewRequest(http.MethodGet, "/test", nil)
	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, req1)
	assert.Equal(t, http.StatusOK, w1.Code)

	// Second immediate request should be rate limited
	req2 := httptest.NewRequest(http.MethodGet, "/test", nil)
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusTooManyRequests, w2.Code)

	// Wait for rate limiter to reset
	time.Sleep(1100 * time.Millisecond)

	// Third request should succeed
	req3 := httptest.NewRequest(http.MethodGet, "/test", nil)
	w3 := httptest.NewRecorder()
	handler.ServeHTTP(w3, req3)
	assert.Equal(t, http.StatusOK, w3.Code)
}

func TestAuthorizationServerDiscovery(t *testing.T) {
	var issuerURL string
	issuer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/.well-known/openid-configuration", r.URL.Path)
		fmt.Fprintf(w, `{"issuer":%q,"authorization_endpoint":%q,"token_endpoint":%q,"jwks_uri":%q}`,
			issuerURL, issuerURL+"/authorize", issuerURL+"/token", issuerURL+"/jwks")
	}))
	defer issuer.Close()
	issuerURL = issuer.URL

	cfg := testConfig()
	cfg.AuthMode = "oauth"
	cfg.OAuth = &config.OAuthConfig{
		Issuer:   issuer.URL,
		Audience: "plex-mcp",
		JWKSTTL:  time.Hour,
	}

	srv, err := New(cfg)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/.well-known/oauth-authorization-server", nil)
	w := httptest.NewRecorder()

	srv.handleAuthorizationServer(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), issuer.URL+"/authorize")
	assert.Contains(t, w.Body.String(), issuer.URL+"/token")
}

func TestStartStopServer(t *testing.T) {
	cfg := testConfig()
	cfg.ListenAddr = ":0"
	cfg.RequestTimeout = 30 * time.Second

	srv, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(ctx, "http")
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	// Stop server
	cancel()

	// Wait for server to stop
	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Server did not stop in time")
	}
}
