package plex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Sections lists all library sections on the server.
func (c *Client) Sections(ctx context.Context) ([]Directory, error) {
	endpoint := fmt.Sprintf("%s/library/sections", c.baseURL)

	var out struct {
		MediaContainer struct {
			Directory []Directory `json:"Directory"`
		} `json:"MediaContainer"`
	}
	if err := c.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}

	return out.MediaContainer.Directory, nil
}

// SectionContentsParams narrows a section listing.
type SectionContentsParams struct {
	Type           string // movie, show, episode, artist, album, track
	Title          string
	Unwatched      bool
	ContainerSize  int
	ContainerStart int
}

// SectionContents lists items in a library section.
func (c *Client) SectionContents(ctx context.Context, sectionKey string, params SectionContentsParams) ([]Metadata, int, error) {
	query := url.Values{}
	if params.Type != "" {
		if id, ok := libtypeIDs[params.Type]; ok {
			query.Set("type", strconv.Itoa(id))
		}
	}
	if params.Title != "" {
		query.Set("title", params.Title)
	}
	if params.Unwatched {
		query.Set("unwatched", "1")
	}
	if params.ContainerSize > 0 {
		query.Set("X-Plex-Container-Size", strconv.Itoa(params.ContainerSize))
		query.Set("X-Plex-Container-Start", strconv.Itoa(params.ContainerStart))
	}

	endpoint := fmt.Sprintf("%s/library/sections/%s/all", c.baseURL, sectionKey)
	if len(query) > 0 {
		endpoint = fmt.Sprintf("%s?%s", endpoint, query.Encode())
	}

	var out struct {
		MediaContainer struct {
			TotalSize int        `json:"totalSize"`
			Size      int        `json:"size"`
			Metadata  []Metadata `json:"Metadata"`
		} `json:"MediaContainer"`
	}
	if err := c.get(ctx, endpoint, &out); err != nil {
		return nil, 0, err
	}

	total := out.MediaContainer.TotalSize
	if total == 0 {
		total = out.MediaContainer.Size
	}

	return out.MediaContainer.Metadata, total, nil
}

// RefreshSection triggers a metadata refresh for one section, or a
// scan of a specific path inside it when path is non-empty.
func (c *Client) RefreshSection(ctx context.Context, sectionKey, path string) error {
	endpoint := fmt.Sprintf("%s/library/sections/%s/refresh", c.baseURL, sectionKey)
	if path != "" {
		endpoint = fmt.Sprintf("%s?path=%s", endpoint, url.QueryEscape(path))
	}
	return c.get(ctx, endpoint, nil)
}

// RefreshAllSections triggers a refresh of every library.
func (c *Client) RefreshAllSections(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/library/sections/all/refresh", c.baseURL)
	return c.get(ctx, endpoint, nil)
}

// RecentlyAdded returns recently added items, optionally scoped to a
// section. Plex returns newest first.
func (c *Client) RecentlyAdded(ctx context.Context, sectionKey string, limit int) ([]Metadata, error) {
	var endpoint string
	if sectionKey != "" {
		endpoint = fmt.Sprintf("%s/library/sections/%s/recentlyAdded", c.baseURL, sectionKey)
	} else {
		endpoint = fmt.Sprintf("%s/library/recentlyAdded", c.baseURL)
	}
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?X-Plex-Container-Start=0&X-Plex-Container-Size=%d", endpoint, limit)
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

// OnDeck returns the server owner's continue-watching items.
func (c *Client) OnDeck(ctx context.Context) ([]Metadata, error) {
	endpoint := fmt.Sprintf("%s/library/onDeck", c.baseURL)

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

// libtypeIDs maps plexapi-style libtype names to Plex numeric type IDs.
var libtypeIDs = map[string]int{
	"movie":      1,
	"show":       2,
	"season":     3,
	"episode":    4,
	"trailer":    5,
	"artist":     8,
	"album":      9,
	"track":      10,
	"photo":      13,
	"playlist":   15,
	"collection": 18,
}
