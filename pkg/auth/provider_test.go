package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladimir-tutin/plex-mcp-server/pkg/config"
)

func TestNoOpProviderAlwaysSucceeds(t *testing.T) {
	t.Parallel()

	provider := NewNoOpProvider()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	ctx, err := provider.Authenticate(req)

	assert.NoError(t, err)
	assert.NotNil(t, ctx)
}

func TestAPIKeyProviderHeader(t *testing.T) {
	t.Parallel()

	provider := NewAPIKeyProvider([]string{"valid-key"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "valid-key")
	_, err := provider.Authenticate(req)
	assert.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "wrong-key")
	_, err = provider.Authenticate(req)
	assert.Error(t, err)
}

func TestAPIKeyProviderQueryFallback(t *testing.T) {
	t.Parallel()

	provider := NewAPIKeyProvider([]string{"valid-key"})
	req := httptest.NewRequest(http.MethodGet, "/?api_key=valid-key", nil)

	_, err := provider.Authenticate(req)

	assert.NoError(t, err)
}

func TestAPIKeyProviderMissingKey(t *testing.T) {
	t.Parallel()

	provider := NewAPIKeyProvider([]string{"valid-key"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := provider.Authenticate(req)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no API key")
}

// fakeIssuer serves OIDC discovery and a JWKS for a generated RSA key.
type fakeIssuer struct {
	server *httptest.Server
	key    *rsa.PrivateKey
	kid    string
}

func newFakeIssuer(t *testing.T) *fakeIssuer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	issuer := &fakeIssuer{key: key, kid: "test-key-1"}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":                 issuer.server.URL,
			"authorization_endpoint": issuer.server.URL + "/authorize",
			"token_endpoint":         issuer.server.URL + "/token",
			"jwks_uri":               issuer.server.URL + "/jwks",
		})
	})
	mux.HandleFunc("/jwks", func(w http.ResponseWriter, r *http.Request) {
		pub := &issuer.key.PublicKey
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"keys": []map[string]string{{
				"kid": issuer.kid,
				"kty": "RSA",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			}},
		})
	})

	issuer.server = httptest.NewServer(mux)
	t.Cleanup(issuer.server.Close)

	return issuer
}

func (f *fakeIssuer) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = f.kid
	signed, err := token.SignedString(f.key)
	require.NoError(t, err)
	return signed
}

func TestOAuthProviderValidToken(t *testing.T) {
	t.Parallel()

	issuer := newFakeIssuer(t)
	provider, err := NewOAuthProvider(&config.OAuthConfig{
		Issuer:   issuer.server.URL,
		Audience: "plex-mcp",
	})
	require.NoError(t, err)

	signed := issuer.sign(t, jwt.MapClaims{
		"iss": issuer.server.URL,
		"aud": "plex-mcp",
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer "+signed)

	ctx, err := provider.Authenticate(req)

	require.NoError(t, err)
	claims, ok := Claims(ctx)
	require.True(t, ok)
	assert.Equal(t, "user-1", claims["sub"])
}

func TestOAuthProviderRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	issuer := newFakeIssuer(t)
	provider, err := NewOAuthProvider(&config.OAuthConfig{Issuer: issuer.server.URL})
	require.NoError(t, err)

	signed := issuer.sign(t, jwt.MapClaims{
		"iss": issuer.server.URL,
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer "+signed)

	_, err = provider.Authenticate(req)

	assert.Error(t, err)
}

func TestOAuthProviderRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	issuer := newFakeIssuer(t)
	provider, err := NewOAuthProvider(&config.OAuthConfig{Issuer: issuer.server.URL})
	require.NoError(t, err)

	signed := issuer.sign(t, jwt.MapClaims{
		"iss": "https://evil.example.com",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer "+signed)

	_, err = provider.Authenticate(req)

	assert.Error(t, err)
}

func TestOAuthProviderMissingHeader(t *testing.T) {
	t.Parallel()

	issuer := newFakeIssuer(t)
	provider, err := NewOAuthProvider(&config.OAuthConfig{Issuer: issuer.server.URL})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)

	_, err = provider.Authenticate(req)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no authorization header")
}

func TestOAuthProviderEndpointDiscovery(t *testing.T) {
	t.Parallel()

	issuer := newFakeIssuer(t)
	provider, err := NewOAuthProvider(&config.OAuthConfig{Issuer: issuer.server.URL})
	require.NoError(t, err)

	endpoint, err := provider.Endpoint(context.Background())

	require.NoError(t, err)
	assert.Equal(t, issuer.server.URL+"/authorize", endpoint.AuthURL)
	assert.Equal(t, issuer.server.URL+"/token", endpoint.TokenURL)
}

func TestMultiProviderFallsThrough(t *testing.T) {
	t.Parallel()

	provider := NewMultiProvider(
		NewAPIKeyProvider([]string{"key-a"}),
		NewAPIKeyProvider([]string{"key-b"}),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "key-b")

	_, err := provider.Authenticate(req)

	assert.NoError(t, err)
}

func TestMultiProviderAllFail(t *testing.T) {
	t.Parallel()

	provider := NewMultiProvider(NewAPIKeyProvider([]string{"key-a"}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "nope")

	_, err := provider.Authenticate(req)

	require.Error(t, err)
	assert.Equal(t, "invalid API key", err.Error())
}
