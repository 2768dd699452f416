package plex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const plexTVBaseURL = "https://plex.tv"

// Account talks to the plex.tv account API. It is separate from Client
// because it authenticates against plex.tv rather than a server.
type Account struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewAccount creates a plex.tv account client from an existing token.
func NewAccount(token string, timeout time.Duration) *Account {
	return &Account{
		baseURL:    plexTVBaseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SignIn exchanges a username and password for an account token and
// returns a client bound to it.
func SignIn(ctx context.Context, username, password string, timeout time.Duration) (*Account, error) {
	payload := map[string]string{
		"login":    username,
		"password": password,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		plexTVBaseURL+"/api/v2/users/signin", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Product", product)
	req.Header.Set("X-Plex-Client-Identifier", clientIdentifier)

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sign-in request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("sign-in failed: status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}

	var out struct {
		AuthToken string `json:"authToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode sign-in response: %w", err)
	}
	if out.AuthToken == "" {
		return nil, fmt.Errorf("sign-in returned no token")
	}

	return &Account{
		baseURL:    plexTVBaseURL,
		token:      out.AuthToken,
		httpClient: client,
	}, nil
}

// Token returns the plex.tv account token.
func (a *Account) Token() string {
	return a.token
}

// Friends lists the users the account shares servers with.
func (a *Account) Friends(ctx context.Context) ([]Friend, error) {
	var out []Friend
	if err := a.get(ctx, a.baseURL+"/api/v2/friends", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Resources lists servers and players registered to the account.
func (a *Account) Resources(ctx context.Context) ([]Resource, error) {
	var out []Resource
	endpoint := a.baseURL + "/api/v2/resources?includeHttps=1&includeRelay=1"
	if err := a.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ServerByName finds an owned server resource by its friendly name and
// returns a Client connected to its preferred connection.
func (a *Account) ServerByName(ctx context.Context, name string, timeout time.Duration) (*Client, error) {
	resources, err := a.Resources(ctx)
	if err != nil {
		return nil, err
	}

	for _, res := range resources {
		if res.Name != name || res.Provides != "server" {
			continue
		}

		uri := preferredConnection(res.Connections)
		if uri == "" {
			return nil, fmt.Errorf("server %q has no usable connection", name)
		}

		token := res.AccessToken
		if token == "" {
			token = a.token
		}
		return NewClient(uri, token, timeout), nil
	}

	return nil, fmt.Errorf("no server named %q on this account", name)
}

// preferredConnection picks a local non-relay connection when one
// exists, then any non-relay, then whatever is left.
func preferredConnection(conns []Connection) string {
	var remote, relay string
	for _, conn := range conns {
		switch {
		case conn.Local && !conn.Relay:
			return conn.URI
		case !conn.Relay && remote == "":
			remote = conn.URI
		case relay == "":
			relay = conn.URI
		}
	}
	if remote != "" {
		return remote
	}
	return relay
}

func (a *Account) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Plex-Token", a.token)
	req.Header.Set("X-Plex-Product", product)
	req.Header.Set("X-Plex-Client-Identifier", clientIdentifier)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
