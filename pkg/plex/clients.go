package plex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Clients lists the controllable players currently advertising to the
// server.
func (c *Client) Clients(ctx context.Context) ([]PlayerClient, error) {
	endpoint := fmt.Sprintf("%s/clients", c.baseURL)

	var out struct {
		MediaContainer struct {
			Server []PlayerClient `json:"Server"`
		} `json:"MediaContainer"`
	}
	if err := c.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}

	return out.MediaContainer.Server, nil
}

// Timelines polls a player for its current timelines.
func (c *Client) Timelines(ctx context.Context, clientID string) ([]Timeline, error) {
	endpoint := fmt.Sprintf("%s/player/timeline/poll?wait=0&commandID=1", c.baseURL)

	var out struct {
		MediaContainer struct {
			Timeline []Timeline `json:"Timeline"`
		} `json:"MediaContainer"`
	}
	if err := c.playerRequest(ctx, clientID, endpoint, &out); err != nil {
		return nil, err
	}

	return out.MediaContainer.Timeline, nil
}

// StartPlayback tells a player to start playing an item.
func (c *Client) StartPlayback(ctx context.Context, clientID string, ratingKey int, offsetMs int64) error {
	machineID, err := c.MachineIdentifier(ctx)
	if err != nil {
		return fmt.Errorf("failed to determine machine identifier: %w", err)
	}

	query := url.Values{}
	query.Set("key", fmt.Sprintf("/library/metadata/%d", ratingKey))
	query.Set("machineIdentifier", machineID)
	query.Set("commandID", "1")
	if offsetMs > 0 {
		query.Set("offset", fmt.Sprintf("%d", offsetMs))
	}

	endpoint := fmt.Sprintf("%s/player/playback/playMedia?%s", c.baseURL, query.Encode())
	return c.playerRequest(ctx, clientID, endpoint, nil)
}

// playbackCommands maps tool-level command names to player endpoints.
var playbackCommands = map[string]string{
	"play":         "play",
	"pause":        "pause",
	"stop":         "stop",
	"skipNext":     "skipNext",
	"skipPrevious": "skipPrevious",
	"stepForward":  "stepForward",
	"stepBack":     "stepBack",
}

// ControlPlayback sends a transport command (play, pause, stop,
// skipNext, skipPrevious, stepForward, stepBack) to a player.
func (c *Client) ControlPlayback(ctx context.Context, clientID, command string) error {
	cmd, ok := playbackCommands[command]
	if !ok {
		return fmt.Errorf("unsupported playback command %q", command)
	}

	endpoint := fmt.Sprintf("%s/player/playback/%s?commandID=1", c.baseURL, cmd)
	return c.playerRequest(ctx, clientID, endpoint, nil)
}

// Seek moves a player to an absolute offset in milliseconds.
func (c *Client) Seek(ctx context.Context, clientID string, offsetMs int64) error {
	endpoint := fmt.Sprintf("%s/player/playback/seekTo?offset=%d&commandID=1", c.baseURL, offsetMs)
	return c.playerRequest(ctx, clientID, endpoint, nil)
}

// navigationCommands maps tool-level navigation names to player
// endpoints.
var navigationCommands = map[string]string{
	"moveUp":    "moveUp",
	"moveDown":  "moveDown",
	"moveLeft":  "moveLeft",
	"moveRight": "moveRight",
	"select":    "select",
	"back":      "back",
	"home":      "home",
	"music":     "music",
}

// Navigate sends a navigation command to a player.
func (c *Client) Navigate(ctx context.Context, clientID, command string) error {
	cmd, ok := navigationCommands[command]
	if !ok {
		return fmt.Errorf("unsupported navigation command %q", command)
	}

	endpoint := fmt.Sprintf("%s/player/navigation/%s?commandID=1", c.baseURL, cmd)
	return c.playerRequest(ctx, clientID, endpoint, nil)
}

// SetStreams selects audio and subtitle streams on a player. A stream
// ID of 0 leaves that stream unchanged; subtitleStreamID of -1 turns
// subtitles off.
func (c *Client) SetStreams(ctx context.Context, clientID string, audioStreamID, subtitleStreamID int) error {
	query := url.Values{}
	query.Set("commandID", "1")
	if audioStreamID > 0 {
		query.Set("audioStreamID", fmt.Sprintf("%d", audioStreamID))
	}
	if subtitleStreamID != 0 {
		id := subtitleStreamID
		if id < 0 {
			id = 0 // 0 disables subtitles
		}
		query.Set("subtitleStreamID", fmt.Sprintf("%d", id))
	}

	endpoint := fmt.Sprintf("%s/player/playback/setStreams?%s", c.baseURL, query.Encode())
	return c.playerRequest(ctx, clientID, endpoint, nil)
}

// playerRequest issues a GET targeted at a specific player through the
// server's command relay.
func (c *Client) playerRequest(ctx context.Context, clientID, endpoint string, result interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("X-Plex-Target-Client-Identifier", clientID)
	req.Header.Set("X-Plex-Client-Identifier", clientIdentifier)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("player command failed: status=%d", resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
