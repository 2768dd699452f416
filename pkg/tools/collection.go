package tools

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vladimir-tutin/plex-mcp-server/pkg/livecoll"
)

// collection_list tool
func registerCollectionList(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "collection_list",
		Description: "List collections, optionally scoped to one library",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"library": map[string]interface{}{"type": "string", "description": "Library name or section key"},
			},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Library string `json:"library"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}

		var sectionKeys []string
		if params.Library != "" {
			section, err := deps.Resolver.Library(ctx, params.Library)
			if err != nil {
				return resolveFailure(err)
			}
			sectionKeys = []string{section.Key}
		} else {
			sections, err := deps.Client.Sections(ctx)
			if err != nil {
				return errorResult(err.Error())
			}
			for _, section := range sections {
				sectionKeys = append(sectionKeys, section.Key)
			}
		}

		entries := []map[string]interface{}{}
		for _, key := range sectionKeys {
			collections, err := deps.Client.Collections(ctx, key)
			if err != nil {
				return errorResult(err.Error())
			}
			for _, collection := range collections {
				entries = append(entries, map[string]interface{}{
					"id":         collection.ID(),
					"title":      collection.Title,
					"childCount": collection.ChildCount,
					"library":    collection.LibrarySectionTitle,
				})
			}
		}

		return successResult(map[string]interface{}{"collections": entries})
	}

	s.AddTool(tool, handler)
}

// collection_get_contents tool
func registerCollectionGetContents(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "collection_get_contents",
		Description: "List the items inside a collection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"collection": map[string]interface{}{"type": "string", "description": "Collection title or numeric id"},
				"library":    map[string]interface{}{"type": "string", "description": "Library to search in"},
			},
			Required: []string{"collection"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Collection string `json:"collection"`
			Library    string `json:"library"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}

		sectionKey := ""
		if params.Library != "" {
			section, err := deps.Resolver.Library(ctx, params.Library)
			if err != nil {
				return resolveFailure(err)
			}
			sectionKey = section.Key
		}

		collection, err := deps.Resolver.Collection(ctx, params.Collection, sectionKey)
		if err != nil {
			return resolveFailure(err)
		}

		items, err := deps.Client.CollectionItems(ctx, collection.ID())
		if err != nil {
			return errorResult(err.Error())
		}

		return successResult(map[string]interface{}{
			"collection": collection.Title,
			"items":      itemSummaries(items),
		})
	}

	s.AddTool(tool, handler)
}

// collection_create tool
func registerCollectionCreate(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "collection_create",
		Description: "Create a collection in a library from a list of item titles or ids",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"title":    map[string]interface{}{"type": "string", "description": "Collection title"},
				"library":  map[string]interface{}{"type": "string", "description": "Library name or section key"},
				"items":    map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Item titles or numeric ids"},
				"itemType": map[string]interface{}{"type": "string", "enum": []string{"movie", "show", "album", "artist"}, "default": "movie"},
			},
			Required: []string{"title", "library", "items"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Title    string   `json:"title"`
			Library  string   `json:"library"`
			Items    []string `json:"items"`
			ItemType string   `json:"itemType"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}
		if len(params.Items) == 0 {
			return errorResult("items must not be empty")
		}
		if params.ItemType == "" {
			params.ItemType = "movie"
		}

		section, err := deps.Resolver.Library(ctx, params.Library)
		if err != nil {
			return resolveFailure(err)
		}
		sectionID, err := strconv.Atoi(section.Key)
		if err != nil {
			return errorResultf("library %q has non-numeric key %q", section.Title, section.Key)
		}

		ids, failure, err := resolveItemRefs(ctx, deps, params.Items, params.ItemType)
		if failure != nil || err != nil {
			return failure, err
		}

		collection, err := deps.Client.CreateCollection(ctx, sectionID, params.Title, params.ItemType, ids)
		if err != nil {
			return errorResult(err.Error())
		}

		return successResult(map[string]interface{}{
			"message":   fmt.Sprintf("Created collection %q with %d items", collection.Title, len(ids)),
			"id":        collection.ID(),
			"itemCount": len(ids),
		})
	}

	s.AddTool(tool, handler)
}

// collection_add_items tool
func registerCollectionAddItems(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "collection_add_items",
		Description: "Add items to an existing collection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"collection": map[string]interface{}{"type": "string", "description": "Collection title or numeric id"},
				"items":      map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Item titles or numeric ids"},
				"itemType":   map[string]interface{}{"type": "string", "enum": []string{"movie", "show", "album", "artist"}},
			},
			Required: []string{"collection", "items"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Collection string   `json:"collection"`
			Items      []string `json:"items"`
			ItemType   string   `json:"itemType"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}
		if len(params.Items) == 0 {
			return errorResult("items must not be empty")
		}

		collection, err := deps.Resolver.Collection(ctx, params.Collection, "")
		if err != nil {
			return resolveFailure(err)
		}

		ids, failure, err := resolveItemRefs(ctx, deps, params.Items, params.ItemType)
		if failure != nil || err != nil {
			return failure, err
		}

		if err := deps.Client.AddCollectionItems(ctx, collection.ID(), ids); err != nil {
			return errorResult(err.Error())
		}

		return successResult(map[string]interface{}{
			"message": fmt.Sprintf("Added %d items to collection %q", len(ids), collection.Title),
		})
	}

	s.AddTool(tool, handler)
}

// collection_remove_items tool
func registerCollectionRemoveItems(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "collection_remove_items",
		Description: "Remove items from a collection by title or id",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"collection": map[string]interface{}{"type": "string", "description": "Collection title or numeric id"},
				"items":      map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Item titles or numeric ids"},
			},
			Required: []string{"collection", "items"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Collection string   `json:"collection"`
			Items      []string `json:"items"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}
		if len(params.Items) == 0 {
			return errorResult("items must not be empty")
		}

		collection, err := deps.Resolver.Collection(ctx, params.Collection, "")
		if err != nil {
			return resolveFailure(err)
		}

		members, err := deps.Client.CollectionItems(ctx, collection.ID())
		if err != nil {
			return errorResult(err.Error())
		}

		removed := 0
		for _, ref := range params.Items {
			found := false
			for _, member := range members {
				if !matchesRef(member, ref) {
					continue
				}
				if err := deps.Client.RemoveCollectionItem(ctx, collection.ID(), member.ID()); err != nil {
					return errorResult(err.Error())
				}
				removed++
				found = true
				break
			}
			if !found {
				return errorResultf("no item matching %q in collection %q", ref, collection.Title)
			}
		}

		return successResult(map[string]interface{}{
			"message": fmt.Sprintf("Removed %d items from collection %q", removed, collection.Title),
		})
	}

	s.AddTool(tool, handler)
}

// collection_edit tool
func registerCollectionEdit(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "collection_edit",
		Description: "Edit a collection's title or summary",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"collection": map[string]interface{}{"type": "string", "description": "Collection title or numeric id"},
				"newTitle":   map[string]interface{}{"type": "string"},
				"summary":    map[string]interface{}{"type": "string"},
			},
			Required: []string{"collection"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Collection string `json:"collection"`
			NewTitle   string `json:"newTitle"`
			Summary    string `json:"summary"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}

		collection, err := deps.Resolver.Collection(ctx, params.Collection, "")
		if err != nil {
			return resolveFailure(err)
		}
		if collection.LibrarySectionID == 0 {
			if full, err := deps.Client.FetchMetadata(ctx, collection.ID()); err == nil {
				collection = full
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
		if len(fields) == 0 {
			return errorResult("no fields to edit")
		}

		if err := deps.Client.EditMetadata(ctx, collection, fields); err != nil {
			return errorResult(err.Error())
		}

		return successResult(map[string]interface{}{
			"message": fmt.Sprintf("Updated collection %q", collection.Title),
		})
	}

	s.AddTool(tool, handler)
}

// collection_delete tool
func registerCollectionDelete(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "collection_delete",
		Description: "Delete a collection. Its members stay in the library.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"collection": map[string]interface{}{"type": "string", "description": "Collection title or numeric id"},
			},
			Required: []string{"collection"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Collection string `json:"collection"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}

		collection, err := deps.Resolver.Collection(ctx, params.Collection, "")
		if err != nil {
			return resolveFailure(err)
		}

		if err := deps.Client.DeleteCollection(ctx, collection.ID()); err != nil {
			return errorResult(err.Error())
		}

		return successResult(map[string]interface{}{
			"message": fmt.Sprintf("Deleted collection %q", collection.Title),
		})
	}

	s.AddTool(tool, handler)
}

// collection_create_live tool
func registerCollectionCreateLive(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "collection_create_live",
		Description: "Create a live collection: a saved search whose results are synced into a collection on a schedule",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"title":        map[string]interface{}{"type": "string", "description": "Collection title"},
				"library":      map[string]interface{}{"type": "string", "description": "Library name or section key"},
				"query":        map[string]interface{}{"type": "string", "description": "Search query that feeds the collection"},
				"itemType":     map[string]interface{}{"type": "string", "enum": []string{"movie", "show", "album", "artist"}, "default": "movie"},
				"syncStrategy": map[string]interface{}{"type": "string", "enum": []string{"add-only", "full-sync"}},
				"maxResults":   map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 1000},
			},
			Required: []string{"title", "library", "query"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Title        string `json:"title"`
			Library      string `json:"library"`
			Query        string `json:"query"`
			ItemType     string `json:"itemType"`
			SyncStrategy string `json:"syncStrategy"`
			MaxResults   int    `json:"maxResults"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}
		if params.ItemType == "" {
			params.ItemType = "movie"
		}
		if params.SyncStrategy == "" {
			params.SyncStrategy = deps.Config.LiveCollectionSyncStrategy
		}
		if params.MaxResults <= 0 {
			params.MaxResults = deps.Config.LiveCollectionMaxResults
		}

		section, err := deps.Resolver.Library(ctx, params.Library)
		if err != nil {
			return resolveFailure(err)
		}
		sectionID, err := strconv.Atoi(section.Key)
		if err != nil {
			return errorResultf("library %q has non-numeric key %q", section.Title, section.Key)
		}

		matches, err := deps.Client.Search(ctx, params.Query, params.ItemType, params.MaxResults)
		if err != nil {
			return errorResult(err.Error())
		}
		if len(matches) == 0 {
			return errorResultf("search %q matched nothing, not creating an empty collection", params.Query)
		}

		ids := make([]int, 0, len(matches))
		for _, item := range matches {
			if id := item.ID(); id > 0 {
				ids = append(ids, id)
			}
		}

		collection, err := deps.Client.CreateCollection(ctx, sectionID, params.Title, params.ItemType, ids)
		if err != nil {
			return errorResult(err.Error())
		}

		def, err := deps.Store.Save(livecoll.Definition{
			Name:         params.Title,
			CollectionID: collection.ID(),
			SectionID:    sectionID,
			Query:        params.Query,
			ContentType:  params.ItemType,
			SyncStrategy: params.SyncStrategy,
			MaxResults:   params.MaxResults,
			Enabled:      true,
		})
		if err != nil {
			return errorResult(err.Error())
		}

		return successResult(map[string]interface{}{
			"message":      fmt.Sprintf("Created live collection %q with %d items", params.Title, len(ids)),
			"definitionId": def.ID,
			"collectionId": collection.ID(),
			"itemCount":    len(ids),
		})
	}

	s.AddTool(tool, handler)
}

// collection_list_live tool
func registerCollectionListLive(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "collection_list_live",
		Description: "List live collection definitions and their last run state",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		defs := deps.Store.List()

		entries := make([]map[string]interface{}, len(defs))
		for i, def := range defs {
			entry := map[string]interface{}{
				"definitionId": def.ID,
				"name":         def.Name,
				"collectionId": def.CollectionID,
				"query":        def.Query,
				"syncStrategy": def.SyncStrategy,
				"enabled":      def.Enabled,
			}
			if def.LastRunAt != nil {
				entry["lastRunAt"] = def.LastRunAt
				entry["lastResultCount"] = def.LastResultCount
				entry["lastAddedCount"] = def.LastAddedCount
			}
			if def.LastRunError != "" {
				entry["lastRunError"] = def.LastRunError
			}
			entries[i] = entry
		}

		return successResult(map[string]interface{}{
			"schedulerRunning": deps.Scheduler != nil && deps.Scheduler.IsRunning(),
			"definitions":      entries,
		})
	}

	s.AddTool(tool, handler)
}

// collection_refresh_live tool
func registerCollectionRefreshLive(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "collection_refresh_live",
		Description: "Run all live collection updates now instead of waiting for the schedule",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Scheduler == nil {
			return errorResult("live collections are not enabled")
		}

		results, err := deps.Scheduler.RunNow(ctx)
		if err != nil {
			return errorResult(err.Error())
		}

		entries := make([]map[string]interface{}, len(results))
		for i, result := range results {
			entry := map[string]interface{}{
				"definitionId": result.DefinitionID,
				"name":         result.CollectionName,
				"added":        result.ItemsAdded,
				"removed":      result.ItemsRemoved,
				"total":        result.TotalItems,
			}
			if result.Error != nil {
				entry["error"] = result.Error.Error()
			}
			entries[i] = entry
		}

		return successResult(map[string]interface{}{"results": entries})
	}

	s.AddTool(tool, handler)
}

// collection_disable_live tool
func registerCollectionDisableLive(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "collection_disable_live",
		Description: "Disable or delete a live collection definition. The Plex collection itself is kept.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"definition": map[string]interface{}{"type": "string", "description": "Definition name or id"},
				"delete":     map[string]interface{}{"type": "boolean", "description": "Delete the definition instead of disabling it"},
			},
			Required: []string{"definition"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Definition string `json:"definition"`
			Delete     bool   `json:"delete"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}

		def, ok := deps.Store.GetByID(params.Definition)
		if !ok {
			def, ok = deps.Store.GetByName(params.Definition)
		}
		if !ok {
			return errorResultf("no live collection definition matching %q", params.Definition)
		}

		if params.Delete {
			if err := deps.Store.Delete(def.ID); err != nil {
				return errorResult(err.Error())
			}
			return successResult(map[string]interface{}{
				"message": fmt.Sprintf("Deleted live collection definition %q", def.Name),
			})
		}

		def.Enabled = false
		if _, err := deps.Store.Save(def); err != nil {
			return errorResult(err.Error())
		}

		return successResult(map[string]interface{}{
			"message": fmt.Sprintf("Disabled live collection %q", def.Name),
		})
	}

	s.AddTool(tool, handler)
}
