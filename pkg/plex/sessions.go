package plex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Sessions lists the playback sessions currently active on the server.
func (c *Client) Sessions(ctx context.Context) ([]Metadata, error) {
	endpoint := fmt.Sprintf("%s/status/sessions", c.baseURL)

	var out struct {
		MediaContainer struct {
			Metadata []Metadata `json:"Metadata"`
		} `json:"MediaContainer"`
	}
	if err := c.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}

	return out.MediaContainer.Metadata, nil
}

// HistoryParams narrows a playback history query.
type HistoryParams struct {
	AccountID  int
	SectionKey string
	MinDate    int64 // unix seconds
	Limit      int
}

// History returns playback history records, newest first.
func (c *Client) History(ctx context.Context, params HistoryParams) ([]Metadata, error) {
	query := url.Values{}
	query.Set("sort", "viewedAt:desc")
	if params.AccountID > 0 {
		query.Set("accountID", strconv.Itoa(params.AccountID))
	}
	if params.SectionKey != "" {
		query.Set("librarySectionID", params.SectionKey)
	}
	if params.MinDate > 0 {
		query.Set("viewedAt>", strconv.FormatInt(params.MinDate, 10))
	}
	if params.Limit > 0 {
		query.Set("X-Plex-Container-Start", "0")
		query.Set("X-Plex-Container-Size", strconv.Itoa(params.Limit))
	}

	endpoint := fmt.Sprintf("%s/status/sessions/history/all?%s", c.baseURL, query.Encode())

	var out struct {
		MediaContainer struct {
			Metadata []Metadata `json:"Metadata"`
		} `json:"MediaContainer"`
	}
	if err := c.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}

	return out.MediaContainer.Metadata, nil
}

// SystemAccounts returns all server-local accounts in one call.
func (c *Client) SystemAccounts(ctx context.Context) ([]SystemAccount, error) {
	endpoint := fmt.Sprintf("%s/accounts", c.baseURL)

	var out struct {
		MediaContainer struct {
			Account []SystemAccount `json:"Account"`
		} `json:"MediaContainer"`
	}
	if err := c.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}

	return out.MediaContainer.Account, nil
}

// SystemAccount fetches a single server-local account by ID. Used as a
// fallback when the batch listing omits an account referenced by a
// history record.
func (c *Client) SystemAccount(ctx context.Context, accountID int) (*SystemAccount, error) {
	endpoint := fmt.Sprintf("%s/accounts/%d", c.baseURL, accountID)

	var out struct {
		MediaContainer struct {
			Account []SystemAccount `json:"Account"`
		} `json:"MediaContainer"`
	}
	if err := c.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	if len(out.MediaContainer.Account) == 0 {
		return nil, fmt.Errorf("no account with id %d", accountID)
	}

	account := out.MediaContainer.Account[0]
	return &account, nil
}

// SystemDevices returns the devices the server has seen.
func (c *Client) SystemDevices(ctx context.Context) ([]SystemDevice, error) {
	endpoint := fmt.Sprintf("%s/devices", c.baseURL)

	var out struct {
		MediaContainer struct {
			Device []SystemDevice `json:"Device"`
		} `json:"MediaContainer"`
	}
	if err := c.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}

	return out.MediaContainer.Device, nil
}

// TerminateSession stops a playback session with a message shown to
// the viewer.
func (c *Client) TerminateSession(ctx context.Context, sessionID, reason string) error {
	query := url.Values{}
	query.Set("sessionId", sessionID)
	if reason != "" {
		query.Set("reason", reason)
	}

	endpoint := fmt.Sprintf("%s/status/sessions/terminate?%s", c.baseURL, query.Encode())
	return c.get(ctx, endpoint, nil)
}
