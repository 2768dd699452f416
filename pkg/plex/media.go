package plex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Search runs a server-wide library search. contentType, when set,
// restricts results to a single item type (movie, show, episode,
// artist, album, track).
func (c *Client) Search(ctx context.Context, query, contentType string, limit int) ([]Metadata, error) {
	if limit <= 0 {
		limit = 100
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("includeCollections", "1")

	endpoint := fmt.Sprintf("%s/library/search?%s", c.baseURL, params.Encode())

	var out struct {
		MediaContainer struct {
			SearchResult []SearchResult `json:"SearchResult"`
		} `json:"MediaContainer"`
	}
	if err := c.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}

	results := make([]Metadata, 0, len(out.MediaContainer.SearchResult))
	for _, hit := range out.MediaContainer.SearchResult {
		if contentType != "" && hit.Metadata.Type != contentType {
			continue
		}
		results = append(results, hit.Metadata)
	}

	return results, nil
}

// FetchMetadata fetches a single item by its numeric rating key.
func (c *Client) FetchMetadata(ctx context.Context, ratingKey int) (*Metadata, error) {
	endpoint := fmt.Sprintf("%s/library/metadata/%d", c.baseURL, ratingKey)

	var out struct {
		MediaContainer struct {
			Metadata []Metadata `json:"Metadata"`
		} `json:"MediaContainer"`
	}
	if err := c.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	if len(out.MediaContainer.Metadata) == 0 {
		return nil, fmt.Errorf("no item with rating key %d", ratingKey)
	}

	item := out.MediaContainer.Metadata[0]
	return &item, nil
}

// EditMetadata applies field edits to an item. Fields are Plex edit
// parameters in "field.value"/"field.locked" form; tag edits use the
// "genre[0].tag.tag" / "genre[].tag.tag-" convention.
func (c *Client) EditMetadata(ctx context.Context, item *Metadata, fields map[string]string) error {
	if len(fields) == 0 {
		return fmt.Errorf("no metadata fields to edit")
	}
	if item.LibrarySectionID == 0 {
		return fmt.Errorf("item %q has no library section", item.Title)
	}

	typeID, ok := libtypeIDs[item.Type]
	if !ok {
		return fmt.Errorf("unsupported item type %q", item.Type)
	}

	query := url.Values{}
	query.Set("type", strconv.Itoa(typeID))
	query.Set("id", item.RatingKey)
	query.Set("includeExternalMedia", "1")
	for key, value := range fields {
		query.Set(key, value)
	}

	endpoint := fmt.Sprintf("%s/library/sections/%d/all?%s", c.baseURL, item.LibrarySectionID, query.Encode())
	return c.put(ctx, endpoint, nil, nil)
}

// Rate sets the user rating (0-10) on an item.
func (c *Client) Rate(ctx context.Context, ratingKey int, rating float64) error {
	query := url.Values{}
	query.Set("key", strconv.Itoa(ratingKey))
	query.Set("identifier", "com.plexapp.plugins.library")
	query.Set("rating", strconv.FormatFloat(rating, 'f', -1, 64))

	endpoint := fmt.Sprintf("%s/:/rate?%s", c.baseURL, query.Encode())
	return c.put(ctx, endpoint, nil, nil)
}

// DeleteMetadata removes an item (and its files) from the server.
func (c *Client) DeleteMetadata(ctx context.Context, ratingKey int) error {
	endpoint := fmt.Sprintf("%s/library/metadata/%d", c.baseURL, ratingKey)
	return c.delete(ctx, endpoint)
}

// ListArtwork lists available posters or background art for an item.
// kind is "poster" or "art".
func (c *Client) ListArtwork(ctx context.Context, ratingKey int, kind string) ([]Artwork, error) {
	path, err := artworkPath(kind)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/library/metadata/%d/%s", c.baseURL, ratingKey, path)

	var out struct {
		MediaContainer struct {
			Metadata []Artwork `json:"Metadata"`
		} `json:"MediaContainer"`
	}
	if err := c.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}

	return out.MediaContainer.Metadata, nil
}

// SetArtwork uploads a poster or background from a URL and selects it.
func (c *Client) SetArtwork(ctx context.Context, ratingKey int, kind, imageURL string) error {
	path, err := artworkPath(kind)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/library/metadata/%d/%s?url=%s", c.baseURL, ratingKey, path, url.QueryEscape(imageURL))
	return c.post(ctx, endpoint, nil, nil)
}

func artworkPath(kind string) (string, error) {
	switch kind {
	case "", "poster":
		return "posters", nil
	case "art", "background":
		return "arts", nil
	default:
		return "", fmt.Errorf("unsupported artwork type %q (use poster or art)", kind)
	}
}
