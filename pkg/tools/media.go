package tools

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// media_search tool
func registerMediaSearch(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "media_search",
		Description: "Search the whole library by title, with optional type and attribute filters",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query":      map[string]interface{}{"type": "string", "description": "Title to search for"},
				"type":       map[string]interface{}{"type": "string", "enum": []string{"movie", "show", "season", "episode", "artist", "album", "track"}},
				"genre":      map[string]interface{}{"type": "string"},
				"year":       map[string]interface{}{"type": "integer"},
				"actor":      map[string]interface{}{"type": "string"},
				"director":   map[string]interface{}{"type": "string"},
				"studio":     map[string]interface{}{"type": "string"},
				"network":    map[string]interface{}{"type": "string"},
				"resolution": map[string]interface{}{"type": "string", "description": "e.g. 1080, 4k"},
				"watched":    map[string]interface{}{"type": "boolean"},
				"minRating":  map[string]interface{}{"type": "number"},
				"limit":      map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 200, "default": 25},
			},
			Required: []string{"query"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Query string `json:"query"`
			Type  string `json:"type"`
			Limit int    `json:"limit"`
			searchFilters
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}
		if params.Limit == 0 {
			params.Limit = 25
		}

		results, err := deps.Client.Search(ctx, params.Query, params.Type, params.Limit)
		if err != nil {
			return errorResult(err.Error())
		}

		results = params.searchFilters.apply(results)

		return successResult(map[string]interface{}{
			"totalCount": len(results),
			"items":      itemSummaries(results),
		})
	}

	s.AddTool(tool, handler)
}

// media_get_details tool
func registerMediaGetDetails(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "media_get_details",
		Description: "Get full details for one item by title or numeric id",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"media": map[string]interface{}{"type": "string", "description": "Item title or numeric id"},
				"type":  map[string]interface{}{"type": "string", "enum": []string{"movie", "show", "season", "episode", "artist", "album", "track"}},
			},
			Required: []string{"media"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Media string `json:"media"`
			Type  string `json:"type"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}

		item, err := deps.Resolver.Item(ctx, params.Media, params.Type)
		if err != nil {
			return resolveFailure(err)
		}

		// Resolve through search returns partial records, re-fetch for
		// the full attribute set.
		if full, err := deps.Client.FetchMetadata(ctx, item.ID()); err == nil {
			item = full
		}

		return successResult(itemDetails(item))
	}

	s.AddTool(tool, handler)
}

// media_edit_metadata tool
func registerMediaEditMetadata(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "media_edit_metadata",
		Description: "Edit item metadata: title, summary, year, content rating, user rating, genres and labels",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"media":         map[string]interface{}{"type": "string", "description": "Item title or numeric id"},
				"type":          map[string]interface{}{"type": "string", "enum": []string{"movie", "show", "season", "episode", "artist", "album", "track"}},
				"newTitle":      map[string]interface{}{"type": "string"},
				"summary":       map[string]interface{}{"type": "string"},
				"year":          map[string]interface{}{"type": "integer"},
				"contentRating": map[string]interface{}{"type": "string"},
				"userRating":    map[string]interface{}{"type": "number", "minimum": 0, "maximum": 10},
				"addGenres":     map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
				"removeGenres":  map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
				"addLabels":     map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
				"removeLabels":  map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
			},
			Required: []string{"media"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Media         string   `json:"media"`
			Type          string   `json:"type"`
			NewTitle      string   `json:"newTitle"`
			Summary       string   `json:"summary"`
			Year          int      `json:"year"`
			ContentRating string   `json:"contentRating"`
			UserRating    *float64 `json:"userRating"`
			AddGenres     []string `json:"addGenres"`
			RemoveGenres  []string `json:"removeGenres"`
			AddLabels     []string `json:"addLabels"`
			RemoveLabels  []string `json:"removeLabels"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}

		item, err := deps.Resolver.Item(ctx, params.Media, params.Type)
		if err != nil {
			return resolveFailure(err)
		}
		if item.LibrarySectionID == 0 {
			if full, err := deps.Client.FetchMetadata(ctx, item.ID()); err == nil {
				item = full
			}
		}

		fields := map[string]string{}
		if params.NewTitle != "" {
			fields["title.value"] = params.NewTitle
			fields["title.locked"] = "1"
		}
		if params.Summary != "" {
			fields["summary.value"] = params.Summary
			fields["summary.locked"] = "1"
		}
		if params.Year > 0 {
			fields["year.value"] = strconv.Itoa(params.Year)
			fields["year.locked"] = "1"
		}
		if params.ContentRating != "" {
			fields["contentRating.value"] = params.ContentRating
			fields["contentRating.locked"] = "1"
		}
		addTagFields(fields, "genre", params.AddGenres, params.RemoveGenres)
		addTagFields(fields, "label", params.AddLabels, params.RemoveLabels)

		edited := []string{}
		if len(fields) > 0 {
			if err := deps.Client.EditMetadata(ctx, item, fields); err != nil {
				return errorResult(err.Error())
			}
			for field := range fields {
				edited = append(edited, field)
			}
		}

		if params.UserRating != nil {
			if *params.UserRating < 0 || *params.UserRating > 10 {
				return errorResult("userRating must be between 0 and 10")
			}
			if err := deps.Client.Rate(ctx, item.ID(), *params.UserRating); err != nil {
				return errorResult(err.Error())
			}
			edited = append(edited, "userRating")
		}

		if len(edited) == 0 {
			return errorResult("no metadata fields to edit")
		}

		return successResult(map[string]interface{}{
			"message": fmt.Sprintf("Updated %q", item.Title),
			"edited":  edited,
		})
	}

	s.AddTool(tool, handler)
}

// addTagFields builds the add/remove edit parameters for a tag field.
func addTagFields(fields map[string]string, tagType string, add, remove []string) {
	for i, tag := range add {
		fields[fmt.Sprintf("%s[%d].tag.tag", tagType, i)] = tag
	}
	for _, tag := range remove {
		fields[fmt.Sprintf("%s[].tag.tag-", tagType)] = tag
	}
	if len(add) > 0 || len(remove) > 0 {
		fields[tagType+".locked"] = "1"
	}
}

// media_delete tool
func registerMediaDelete(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "media_delete",
		Description: "Delete an item and its files from the server. Requires confirm=true.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"media":   map[string]interface{}{"type": "string", "description": "Item title or numeric id"},
				"type":    map[string]interface{}{"type": "string", "enum": []string{"movie", "show", "season", "episode", "artist", "album", "track"}},
				"confirm": map[string]interface{}{"type": "boolean", "description": "Must be true to delete"},
			},
			Required: []string{"media", "confirm"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Media   string `json:"media"`
			Type    string `json:"type"`
			Confirm bool   `json:"confirm"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}
		if !params.Confirm {
			return errorResult("deletion not confirmed, set confirm=true")
		}

		item, err := deps.Resolver.Item(ctx, params.Media, params.Type)
		if err != nil {
			return resolveFailure(err)
		}

		if err := deps.Client.DeleteMetadata(ctx, item.ID()); err != nil {
			return errorResult(err.Error())
		}

		return successResult(map[string]interface{}{
			"message": fmt.Sprintf("Deleted %q", item.Title),
		})
	}

	s.AddTool(tool, handler)
}

// media_list_artwork tool
func registerMediaListArtwork(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "media_list_artwork",
		Description: "List available posters or background art for an item",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"media":   map[string]interface{}{"type": "string", "description": "Item title or numeric id"},
				"type":    map[string]interface{}{"type": "string", "enum": []string{"movie", "show", "season", "episode", "artist", "album", "track"}},
				"artwork": map[string]interface{}{"type": "string", "enum": []string{"poster", "art"}, "default": "poster"},
			},
			Required: []string{"media"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Media   string `json:"media"`
			Type    string `json:"type"`
			Artwork string `json:"artwork"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}

		item, err := deps.Resolver.Item(ctx, params.Media, params.Type)
		if err != nil {
			return resolveFailure(err)
		}

		artworks, err := deps.Client.ListArtwork(ctx, item.ID(), params.Artwork)
		if err != nil {
			return errorResult(err.Error())
		}

		entries := make([]map[string]interface{}, len(artworks))
		for i, artwork := range artworks {
			entries[i] = map[string]interface{}{
				"key":      artwork.Key,
				"thumb":    artwork.Thumb,
				"selected": artwork.Selected,
				"provider": artwork.Provider,
			}
		}

		return successResult(map[string]interface{}{
			"item":     item.Title,
			"artworks": entries,
		})
	}

	s.AddTool(tool, handler)
}

// media_set_artwork tool
func registerMediaSetArtwork(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "media_set_artwork",
		Description: "Set an item's poster or background art from a URL",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"media":   map[string]interface{}{"type": "string", "description": "Item title or numeric id"},
				"type":    map[string]interface{}{"type": "string", "enum": []string{"movie", "show", "season", "episode", "artist", "album", "track"}},
				"artwork": map[string]interface{}{"type": "string", "enum": []string{"poster", "art"}, "default": "poster"},
				"url":     map[string]interface{}{"type": "string", "description": "Image URL"},
			},
			Required: []string{"media", "url"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Media   string `json:"media"`
			Type    string `json:"type"`
			Artwork string `json:"artwork"`
			URL     string `json:"url"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}

		item, err := deps.Resolver.Item(ctx, params.Media, params.Type)
		if err != nil {
			return resolveFailure(err)
		}

		if err := deps.Client.SetArtwork(ctx, item.ID(), params.Artwork, params.URL); err != nil {
			return errorResult(err.Error())
		}

		return successResult(map[string]interface{}{
			"message": fmt.Sprintf("Artwork updated for %q", item.Title),
		})
	}

	s.AddTool(tool, handler)
}
