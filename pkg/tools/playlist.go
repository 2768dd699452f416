package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// playlist_list tool
func registerPlaylistList(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "playlist_list",
		Description: "List playlists on the server, optionally filtered by playlist type",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"playlistType": map[string]interface{}{"type": "string", "enum": []string{"audio", "video", "photo"}},
			},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			PlaylistType string `json:"playlistType"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}

		playlists, err := deps.Client.Playlists(ctx, params.PlaylistType)
		if err != nil {
			return errorResult(err.Error())
		}

		entries := make([]map[string]interface{}, len(playlists))
		for i, playlist := range playlists {
			entries[i] = map[string]interface{}{
				"id":           playlist.ID(),
				"title":        playlist.Title,
				"playlistType": playlist.PlaylistType,
				"smart":        playlist.Smart,
				"itemCount":    playlist.LeafCount,
			}
		}

		return successResult(map[string]interface{}{"playlists": entries})
	}

	s.AddTool(tool, handler)
}

// playlist_get_contents tool
func registerPlaylistGetContents(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "playlist_get_contents",
		Description: "List the items of a playlist in playlist order",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"playlist": map[string]interface{}{"type": "string", "description": "Playlist title or numeric id"},
			},
			Required: []string{"playlist"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Playlist string `json:"playlist"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}

		playlist, err := deps.Resolver.Playlist(ctx, params.Playlist, "")
		if err != nil {
			return resolveFailure(err)
		}

		items, err := deps.Client.PlaylistItems(ctx, playlist.ID())
		if err != nil {
			return errorResult(err.Error())
		}

		return successResult(map[string]interface{}{
			"playlist": playlist.Title,
			"items":    itemSummaries(items),
		})
	}

	s.AddTool(tool, handler)
}

// resolveItemRefs resolves each entry of refs (titles or ids) to a
// rating key, preserving order.
func resolveItemRefs(ctx context.Context, deps Deps, refs []string, contentType string) ([]int, *mcp.CallToolResult, error) {
	ids := make([]int, 0, len(refs))
	for _, ref := range refs {
		item, err := deps.Resolver.Item(ctx, ref, contentType)
		if err != nil {
			result, rerr := resolveFailure(err)
			return nil, result, rerr
		}
		ids = append(ids, item.ID())
	}
	return ids, nil, nil
}

// playlist_create tool
func registerPlaylistCreate(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "playlist_create",
		Description: "Create a playlist from a list of item titles or ids, keeping the given order",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"title":        map[string]interface{}{"type": "string", "description": "Playlist title"},
				"playlistType": map[string]interface{}{"type": "string", "enum": []string{"audio", "video", "photo"}, "default": "video"},
				"items":        map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Item titles or numeric ids"},
				"itemType":     map[string]interface{}{"type": "string", "enum": []string{"movie", "show", "episode", "track", "album", "photo"}},
			},
			Required: []string{"title", "items"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Title        string   `json:"title"`
			PlaylistType string   `json:"playlistType"`
			Items        []string `json:"items"`
			ItemType     string   `json:"itemType"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}
		if len(params.Items) == 0 {
			return errorResult("items must not be empty")
		}
		if params.PlaylistType == "" {
			params.PlaylistType = "video"
		}

		ids, failure, err := resolveItemRefs(ctx, deps, params.Items, params.ItemType)
		if failure != nil || err != nil {
			return failure, err
		}

		playlist, err := deps.Client.CreatePlaylist(ctx, params.Title, params.PlaylistType, ids)
		if err != nil {
			return errorResult(err.Error())
		}

		return successResult(map[string]interface{}{
			"message":   fmt.Sprintf("Created playlist %q with %d items", playlist.Title, len(ids)),
			"id":        playlist.ID(),
			"itemCount": len(ids),
		})
	}

	s.AddTool(tool, handler)
}

// playlist_add_items tool
func registerPlaylistAddItems(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "playlist_add_items",
		Description: "Append items to an existing playlist",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"playlist": map[string]interface{}{"type": "string", "description": "Playlist title or numeric id"},
				"items":    map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Item titles or numeric ids"},
				"itemType": map[string]interface{}{"type": "string", "enum": []string{"movie", "show", "episode", "track", "album", "photo"}},
			},
			Required: []string{"playlist", "items"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Playlist string   `json:"playlist"`
			Items    []string `json:"items"`
			ItemType string   `json:"itemType"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}
		if len(params.Items) == 0 {
			return errorResult("items must not be empty")
		}

		playlist, err := deps.Resolver.Playlist(ctx, params.Playlist, "")
		if err != nil {
			return resolveFailure(err)
		}

		ids, failure, err := resolveItemRefs(ctx, deps, params.Items, params.ItemType)
		if failure != nil || err != nil {
			return failure, err
		}

		if err := deps.Client.AddPlaylistItems(ctx, playlist.ID(), ids); err != nil {
			return errorResult(err.Error())
		}

		return successResult(map[string]interface{}{
			"message": fmt.Sprintf("Added %d items to playlist %q", len(ids), playlist.Title),
		})
	}

	s.AddTool(tool, handler)
}

// playlist_remove_items tool
func registerPlaylistRemoveItems(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "playlist_remove_items",
		Description: "Remove items from a playlist by title or id",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"playlist": map[string]interface{}{"type": "string", "description": "Playlist title or numeric id"},
				"items":    map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Item titles or numeric ids"},
			},
			Required: []string{"playlist", "items"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Playlist string   `json:"playlist"`
			Items    []string `json:"items"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}
		if len(params.Items) == 0 {
			return errorResult("items must not be empty")
		}

		playlist, err := deps.Resolver.Playlist(ctx, params.Playlist, "")
		if err != nil {
			return resolveFailure(err)
		}

		entries, err := deps.Client.PlaylistItems(ctx, playlist.ID())
		if err != nil {
			return errorResult(err.Error())
		}

		removed := 0
		for _, ref := range params.Items {
			found := false
			for _, entry := range entries {
				if !matchesRef(entry, ref) {
					continue
				}
				if entry.PlaylistItemID == 0 {
					return errorResultf("playlist entry %q has no item id", entry.Title)
				}
				if err := deps.Client.RemovePlaylistItem(ctx, playlist.ID(), entry.PlaylistItemID); err != nil {
					return errorResult(err.Error())
				}
				removed++
				found = true
				break
			}
			if !found {
				return errorResultf("no item matching %q in playlist %q", ref, playlist.Title)
			}
		}

		return successResult(map[string]interface{}{
			"message": fmt.Sprintf("Removed %d items from playlist %q", removed, playlist.Title),
		})
	}

	s.AddTool(tool, handler)
}

// playlist_delete tool
func registerPlaylistDelete(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "playlist_delete",
		Description: "Delete a playlist. The items stay in the library.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"playlist": map[string]interface{}{"type": "string", "description": "Playlist title or numeric id"},
			},
			Required: []string{"playlist"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Playlist string `json:"playlist"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}

		playlist, err := deps.Resolver.Playlist(ctx, params.Playlist, "")
		if err != nil {
			return resolveFailure(err)
		}

		if err := deps.Client.DeletePlaylist(ctx, playlist.ID()); err != nil {
			return errorResult(err.Error())
		}

		return successResult(map[string]interface{}{
			"message": fmt.Sprintf("Deleted playlist %q", playlist.Title),
		})
	}

	s.AddTool(tool, handler)
}
