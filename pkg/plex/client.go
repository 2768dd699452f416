package plex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	product          = "plex-mcp-server"
	clientIdentifier = "plex-mcp-server"
)

// Client talks to a Plex Media Server over its HTTP API.
type Client struct {
	baseURL     string
	token       string
	httpClient  *http.Client
	rateLimiter *rate.Limiter

	mu        sync.Mutex
	machineID string
}

// NewClient creates a new Plex client for the given server URL and token.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: trimTrailingSlash(baseURL),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:       10,
				MaxConnsPerHost:    10,
				IdleConnTimeout:    90 * time.Second,
				DisableCompression: false,
			},
		},
		rateLimiter: rate.NewLimiter(rate.Every(10*time.Millisecond), 100), // 100 req/sec
	}
}

// BaseURL returns the server URL the client was configured with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Token returns the auth token the client was configured with.
func (c *Client) Token() string {
	return c.token
}

// Ping checks if the Plex server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/identity", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping failed with status: %d", resp.StatusCode)
	}

	return nil
}

// ServerInfo returns server-level details from the API root.
func (c *Client) ServerInfo(ctx context.Context) (*ServerInfo, error) {
	var out struct {
		MediaContainer ServerInfo `json:"MediaContainer"`
	}
	if err := c.get(ctx, c.baseURL+"/", &out); err != nil {
		return nil, err
	}

	return &out.MediaContainer, nil
}

// MachineIdentifier returns the server's machine identifier, fetching
// it on first use and caching it for the process lifetime.
func (c *Client) MachineIdentifier(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.machineID
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	info, err := c.ServerInfo(ctx)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.machineID = info.MachineIdentifier
	c.mu.Unlock()

	return info.MachineIdentifier, nil
}

// Helper methods for HTTP operations

func (c *Client) get(ctx context.Context, url string, result interface{}) error {
	return c.request(ctx, http.MethodGet, url, nil, result)
}

func (c *Client) post(ctx context.Context, url string, body interface{}, result interface{}) error {
	return c.request(ctx, http.MethodPost, url, body, result)
}

func (c *Client) put(ctx context.Context, url string, body interface{}, result interface{}) error {
	return c.request(ctx, http.MethodPut, url, body, result)
}

func (c *Client) delete(ctx context.Context, url string) error {
	return c.request(ctx, http.MethodDelete, url, nil, nil)
}

func (c *Client) request(ctx context.Context, method, url string, body interface{}, result interface{}) error {
	// Rate limit
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	// Prepare body
	var bodyReader io.Reader
	var jsonBody []byte
	if body != nil {
		var err error
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	requestLogger := log.Debug().
		Str("method", method).
		Str("url", url)

	var prettyPayload string
	if len(jsonBody) > 0 && zerolog.GlobalLevel() <= zerolog.DebugLevel {
		var buf bytes.Buffer
		if err := json.Indent(&buf, jsonBody, "", "  "); err != nil {
			buf.Write(jsonBody)
		}
		prettyPayload = buf.String()
		requestLogger = requestLogger.Str("payload", prettyPayload)
	}

	requestLogger.Msg("Calling Plex API")

	// Create request
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("X-Plex-Product", product)
	req.Header.Set("X-Plex-Client-Identifier", clientIdentifier)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Execute request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	responseLogger := log.Debug().
		Str("method", method).
		Str("url", url).
		Int("status", resp.StatusCode)
	if prettyPayload != "" {
		responseLogger = responseLogger.Str("payload", prettyPayload)
	}
	responseLogger.Msg("Received Plex API response")

	// Check status
	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}

	// Decode response
	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// download fetches a raw (non-JSON) resource, such as the server log archive.
func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Plex-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}

	return io.ReadAll(resp.Body)
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

func encodeQuery(params map[string]string) string {
	query := url.Values{}
	for key, value := range params {
		if value != "" {
			query.Set(key, value)
		}
	}
	return query.Encode()
}
