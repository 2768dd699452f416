package plex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Collections lists the collections in a library section.
func (c *Client) Collections(ctx context.Context, sectionKey string) ([]Metadata, error) {
	endpoint := fmt.Sprintf("%s/library/sections/%s/collections", c.baseURL, sectionKey)

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

// CollectionItems lists the items inside a collection.
func (c *Client) CollectionItems(ctx context.Context, ratingKey int) ([]Metadata, error) {
	endpoint := fmt.Sprintf("%s/library/collections/%d/children", c.baseURL, ratingKey)

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

// CreateCollection creates a collection in a section from the given
// item rating keys. itemType is the libtype of the members (movie,
// show, ...).
func (c *Client) CreateCollection(ctx context.Context, sectionID int, title, itemType string, itemIDs []int) (*Metadata, error) {
	if len(itemIDs) == 0 {
		return nil, fmt.Errorf("no items for collection %q", title)
	}

	typeID, ok := libtypeIDs[itemType]
	if !ok {
		return nil, fmt.Errorf("unsupported collection item type %q", itemType)
	}

	uri, err := c.libraryURI(ctx, itemIDs)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("title", title)
	query.Set("type", strconv.Itoa(typeID))
	query.Set("smart", "0")
	query.Set("sectionId", strconv.Itoa(sectionID))
	query.Set("uri", uri)

	endpoint := fmt.Sprintf("%s/library/collections?%s", c.baseURL, query.Encode())

	var out struct {
		MediaContainer struct {
			Metadata []Metadata `json:"Metadata"`
		} `json:"MediaContainer"`
	}
	if err := c.post(ctx, endpoint, nil, &out); err != nil {
		return nil, err
	}
	if len(out.MediaContainer.Metadata) == 0 {
		return nil, fmt.Errorf("server returned no collection for %q", title)
	}

	collection := out.MediaContainer.Metadata[0]
	return &collection, nil
}

// AddCollectionItems adds items to an existing collection.
func (c *Client) AddCollectionItems(ctx context.Context, ratingKey int, itemIDs []int) error {
	if len(itemIDs) == 0 {
		return nil
	}

	uri, err := c.libraryURI(ctx, itemIDs)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/library/collections/%d/items?uri=%s", c.baseURL, ratingKey, url.QueryEscape(uri))
	return c.put(ctx, endpoint, nil, nil)
}

// RemoveCollectionItem removes one item from a collection.
func (c *Client) RemoveCollectionItem(ctx context.Context, ratingKey, itemID int) error {
	endpoint := fmt.Sprintf("%s/library/collections/%d/children/%d", c.baseURL, ratingKey, itemID)
	return c.delete(ctx, endpoint)
}

// DeleteCollection removes a collection. Its members stay in the
// library.
func (c *Client) DeleteCollection(ctx context.Context, ratingKey int) error {
	endpoint := fmt.Sprintf("%s/library/collections/%d", c.baseURL, ratingKey)
	return c.delete(ctx, endpoint)
}
