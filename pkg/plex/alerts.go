package plex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// CollectAlerts connects to the server's notification websocket and
// gathers alerts until the duration elapses or maxAlerts arrive. Alert
// types can be filtered with types (empty means all).
func (c *Client) CollectAlerts(ctx context.Context, duration time.Duration, maxAlerts int, types []string) ([]Alert, error) {
	if duration <= 0 {
		duration = 10 * time.Second
	}
	if maxAlerts <= 0 {
		maxAlerts = 50
	}

	wsURL, err := c.websocketURL()
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to notification websocket: %w", err)
	}
	defer conn.Close()

	wanted := make(map[string]bool, len(types))
	for _, t := range types {
		wanted[strings.ToLower(t)] = true
	}

	deadline := time.Now().Add(duration)
	alerts := make([]Alert, 0, maxAlerts)

	for len(alerts) < maxAlerts {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if err := conn.SetReadDeadline(time.Now().Add(remaining)); err != nil {
			return alerts, err
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			// Deadline expiry ends collection, anything else is a
			// real transport failure.
			if websocket.IsUnexpectedCloseError(err) {
				return alerts, fmt.Errorf("websocket closed: %w", err)
			}
			break
		}

		alert, ok := parseAlert(message)
		if !ok {
			continue
		}
		if len(wanted) > 0 && !wanted[strings.ToLower(alert.Type)] {
			continue
		}

		log.Debug().Str("type", alert.Type).Msg("Received server alert")
		alerts = append(alerts, alert)
	}

	return alerts, nil
}

// websocketURL derives the notification socket URL from the base URL.
func (c *Client) websocketURL() (string, error) {
	parsed, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	default:
		parsed.Scheme = "ws"
	}
	parsed.Path = "/:/websockets/notifications"
	parsed.RawQuery = "X-Plex-Token=" + url.QueryEscape(c.token)

	return parsed.String(), nil
}

// parseAlert unwraps one NotificationContainer frame.
func parseAlert(message []byte) (Alert, bool) {
	var frame struct {
		NotificationContainer map[string]interface{} `json:"NotificationContainer"`
	}
	if err := json.Unmarshal(message, &frame); err != nil || frame.NotificationContainer == nil {
		return Alert{}, false
	}

	alert := Alert{Raw: frame.NotificationContainer}
	if t, ok := frame.NotificationContainer["type"].(string); ok {
		alert.Type = t
	}
	if size, ok := frame.NotificationContainer["size"].(float64); ok {
		alert.Size = int(size)
	}

	return alert, true
}
