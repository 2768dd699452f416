package plex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Playlists lists playlists on the server, optionally filtered by
// playlist type (audio, video, photo).
func (c *Client) Playlists(ctx context.Context, playlistType string) ([]Metadata, error) {
	endpoint := fmt.Sprintf("%s/playlists", c.baseURL)
	if playlistType != "" {
		endpoint = fmt.Sprintf("%s?playlistType=%s", endpoint, url.QueryEscape(playlistType))
	}

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

// PlaylistItems lists the items of a playlist in playlist order.
func (c *Client) PlaylistItems(ctx context.Context, ratingKey int) ([]Metadata, error) {
	endpoint := fmt.Sprintf("%s/playlists/%d/items", c.baseURL, ratingKey)

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

// CreatePlaylist creates a playlist containing the given items, in the
// given order. playlistType is audio, video or photo.
func (c *Client) CreatePlaylist(ctx context.Context, title, playlistType string, itemIDs []int) (*Metadata, error) {
	if len(itemIDs) == 0 {
		return nil, fmt.Errorf("no items for playlist %q", title)
	}

	uri, err := c.libraryURI(ctx, itemIDs)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("title", title)
	query.Set("type", playlistType)
	query.Set("smart", "0")
	query.Set("uri", uri)

	endpoint := fmt.Sprintf("%s/playlists?%s", c.baseURL, query.Encode())

	var out struct {
		MediaContainer struct {
			Metadata []Metadata `json:"Metadata"`
		} `json:"MediaContainer"`
	}
	if err := c.post(ctx, endpoint, nil, &out); err != nil {
		return nil, err
	}
	if len(out.MediaContainer.Metadata) == 0 {
		return nil, fmt.Errorf("server returned no playlist for %q", title)
	}

	playlist := out.MediaContainer.Metadata[0]
	return &playlist, nil
}

// AddPlaylistItems appends items to an existing playlist.
func (c *Client) AddPlaylistItems(ctx context.Context, ratingKey int, itemIDs []int) error {
	if len(itemIDs) == 0 {
		return nil
	}

	uri, err := c.libraryURI(ctx, itemIDs)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/playlists/%d/items?uri=%s", c.baseURL, ratingKey, url.QueryEscape(uri))
	return c.put(ctx, endpoint, nil, nil)
}

// RemovePlaylistItem removes one entry from a playlist by its
// playlistItemID.
func (c *Client) RemovePlaylistItem(ctx context.Context, ratingKey, playlistItemID int) error {
	endpoint := fmt.Sprintf("%s/playlists/%d/items/%d", c.baseURL, ratingKey, playlistItemID)
	return c.delete(ctx, endpoint)
}

// DeletePlaylist removes a playlist from the server.
func (c *Client) DeletePlaylist(ctx context.Context, ratingKey int) error {
	endpoint := fmt.Sprintf("%s/playlists/%d", c.baseURL, ratingKey)
	return c.delete(ctx, endpoint)
}

// libraryURI builds the server://.../library/metadata/{ids} reference
// Plex expects for playlist and collection item operations.
func (c *Client) libraryURI(ctx context.Context, itemIDs []int) (string, error) {
	machineID, err := c.MachineIdentifier(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to determine machine identifier: %w", err)
	}

	keys := make([]string, len(itemIDs))
	for i, id := range itemIDs {
		keys[i] = strconv.Itoa(id)
	}

	return fmt.Sprintf("server://%s/com.plexapp.plugins.library/library/metadata/%s",
		machineID, strings.Join(keys, ",")), nil
}
