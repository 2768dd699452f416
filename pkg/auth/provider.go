package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/oauth2"

	"github.com/vladimir-tutin/plex-mcp-server/pkg/config"
)

// Context keys for authentication
type contextKey int

const (
	contextKeyAPIKey contextKey = iota
	contextKeyClaims
)

// Provider defines the authentication interface
type Provider interface {
	Authenticate(r *http.Request) (context.Context, error)
}

// NoOpProvider provides no authentication
type NoOpProvider struct{}

// NewNoOpProvider creates a new no-op auth provider
func NewNoOpProvider() Provider {
	return &NoOpProvider{}
}

// Authenticate always succeeds for no-op provider
func (p *NoOpProvider) Authenticate(r *http.Request) (context.Context, error) {
	return r.Context(), nil
}

// APIKeyProvider provides API key authentication
type APIKeyProvider struct {
	validKeys map[string]bool
}

// NewAPIKeyProvider creates a new API key provider
func NewAPIKeyProvider(keys []string) Provider {
	validKeys := make(map[string]bool)
	for _, key := range keys {
		validKeys[key] = true
	}
	return &APIKeyProvider{validKeys: validKeys}
}

// Authenticate validates API key from header or query param
func (p *APIKeyProvider) Authenticate(r *http.Request) (context.Context, error) {
	// Check header first
	apiKey := r.Header.Get("X-API-Key")
	if apiKey == "" {
		apiKey = r.Header.Get("x-api-key")
	}

	// Check query parameter as fallback
	if apiKey == "" {
		apiKey = r.URL.Query().Get("api_key")
	}

	if apiKey == "" {
		return nil, fmt.Errorf("no API key provided")
	}

	if !p.validKeys[apiKey] {
		return nil, fmt.Errorf("invalid API key")
	}

	// Add API key to context
	ctx := context.WithValue(r.Context(), contextKeyAPIKey, apiKey)
	return ctx, nil
}

const (
	discoveryCacheKey = "oidc-discovery"
	jwksCacheKey      = "jwks"
)

// OAuthProvider validates OAuth 2.1 bearer tokens against the signing
// keys published by the configured issuer.
type OAuthProvider struct {
	issuer   string
	audience string
	jwksURL  string

	httpClient *http.Client
	cache      *gocache.Cache
}

// NewOAuthProvider creates a provider that validates JWTs issued by
// cfg.Issuer. The issuer's endpoints and signing keys are discovered
// on first use and cached for cfg.JWKSTTL.
func NewOAuthProvider(cfg *config.OAuthConfig) (*OAuthProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("OAuth config is nil")
	}
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("OAuth issuer is required")
	}

	ttl := cfg.JWKSTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &OAuthProvider{
		issuer:     strings.TrimRight(cfg.Issuer, "/"),
		audience:   cfg.Audience,
		jwksURL:    cfg.JWKSURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      gocache.New(ttl, 2*ttl),
	}, nil
}

// Authenticate validates the bearer token's signature, issuer and
// audience.
func (p *OAuthProvider) Authenticate(r *http.Request) (context.Context, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, fmt.Errorf("no authorization header")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return nil, fmt.Errorf("invalid authorization header format")
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		jwt.WithIssuer(p.issuer),
		jwt.WithExpirationRequired(),
	}
	if p.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(p.audience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, p.keyFunc(r.Context()), parserOpts...)
	if err != nil {
		return nil, fmt.Errorf("invalid bearer token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid bearer token")
	}

	ctx := context.WithValue(r.Context(), contextKeyClaims, claims)
	return ctx, nil
}

// Endpoint returns the issuer's authorization and token endpoints from
// discovery metadata, for advertising in resource metadata.
func (p *OAuthProvider) Endpoint(ctx context.Context) (oauth2.Endpoint, error) {
	doc, err := p.discover(ctx)
	if err != nil {
		return oauth2.Endpoint{}, err
	}
	return oauth2.Endpoint{
		AuthURL:  doc.AuthorizationEndpoint,
		TokenURL: doc.TokenEndpoint,
	}, nil
}

// Issuer returns the configured issuer URL.
func (p *OAuthProvider) Issuer() string {
	return p.issuer
}

type discoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
}

func (p *OAuthProvider) discover(ctx context.Context) (*discoveryDocument, error) {
	if cached, ok := p.cache.Get(discoveryCacheKey); ok {
		return cached.(*discoveryDocument), nil
	}

	endpoint := p.issuer + "/.well-known/openid-configuration"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("issuer discovery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("issuer discovery failed: status=%d", resp.StatusCode)
	}

	var doc discoveryDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode discovery document: %w", err)
	}

	p.cache.Set(discoveryCacheKey, &doc, gocache.DefaultExpiration)
	return &doc, nil
}

type jsonWebKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jsonWebKeySet struct {
	Keys []jsonWebKey `json:"keys"`
}

// keyFunc resolves a token's kid against the issuer's JWKS.
func (p *OAuthProvider) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)

		keys, err := p.signingKeys(ctx)
		if err != nil {
			return nil, err
		}

		if kid == "" && len(keys) == 1 {
			for _, key := range keys {
				return key, nil
			}
		}

		key, ok := keys[kid]
		if !ok {
			return nil, fmt.Errorf("no signing key with kid %q", kid)
		}
		return key, nil
	}
}

func (p *OAuthProvider) signingKeys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	if cached, ok := p.cache.Get(jwksCacheKey); ok {
		return cached.(map[string]*rsa.PublicKey), nil
	}

	jwksURL := p.jwksURL
	if jwksURL == "" {
		doc, err := p.discover(ctx)
		if err != nil {
			return nil, err
		}
		jwksURL = doc.JWKSURI
	}
	if jwksURL == "" {
		return nil, fmt.Errorf("issuer publishes no jwks_uri")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("JWKS fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS fetch failed: status=%d", resp.StatusCode)
	}

	var set jsonWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if jwk.Kty != "RSA" || (jwk.Use != "" && jwk.Use != "sig") {
			continue
		}
		key, err := rsaKeyFromJWK(jwk)
		if err != nil {
			continue
		}
		keys[jwk.Kid] = key
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("JWKS contains no usable RSA signing keys")
	}

	p.cache.Set(jwksCacheKey, keys, gocache.DefaultExpiration)
	return keys, nil
}

func rsaKeyFromJWK(jwk jsonWebKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}

	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	if e <= 0 {
		return nil, fmt.Errorf("invalid exponent")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}

// Claims returns the token claims stored during authentication, if
// any.
func Claims(ctx context.Context) (jwt.MapClaims, bool) {
	claims, ok := ctx.Value(contextKeyClaims).(jwt.MapClaims)
	return claims, ok
}

// MultiProvider tries multiple auth providers
type MultiProvider struct {
	providers []Provider
}

// NewMultiProvider creates a provider that tries multiple auth methods
func NewMultiProvider(providers ...Provider) Provider {
	return &MultiProvider{providers: providers}
}

// Authenticate tries each provider until one succeeds
func (p *MultiProvider) Authenticate(r *http.Request) (context.Context, error) {
	var lastErr error

	for _, provider := range p.providers {
		ctx, err := provider.Authenticate(r)
		if err == nil {
			return ctx, nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return nil, lastErr
	}

	return nil, fmt.Errorf("no auth providers configured")
}
