package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	gocache "github.com/patrickmn/go-cache"

	"github.com/vladimir-tutin/plex-mcp-server/pkg/plex"
)

// library_list tool
func registerLibraryList(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "library_list",
		Description: "List all library sections on the Plex server",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		const cacheKey = "library_list"
		if cached, found := deps.Cache.Get(cacheKey); found {
			return successResult(cached)
		}

		sections, err := deps.Client.Sections(ctx)
		if err != nil {
			return errorResult(err.Error())
		}

		libraries := make([]map[string]interface{}, len(sections))
		for i, section := range sections {
			libraries[i] = map[string]interface{}{
				"key":   section.Key,
				"title": section.Title,
				"type":  section.Type,
			}
		}
		data := map[string]interface{}{"libraries": libraries}

		deps.Cache.Set(cacheKey, data, gocache.DefaultExpiration)
		return successResult(data)
	}

	s.AddTool(tool, handler)
}

// library_get_details tool
func registerLibraryGetDetails(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "library_get_details",
		Description: "Get details of one library section: agent, scanner, language and folder locations",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"library": map[string]interface{}{"type": "string", "description": "Library name or section key"},
			},
			Required: []string{"library"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Library string `json:"library"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}

		section, err := deps.Resolver.Library(ctx, params.Library)
		if err != nil {
			return resolveFailure(err)
		}

		locations := make([]string, len(section.Location))
		for i, location := range section.Location {
			locations[i] = location.Path
		}

		return successResult(map[string]interface{}{
			"key":        section.Key,
			"title":      section.Title,
			"type":       section.Type,
			"agent":      section.Agent,
			"scanner":    section.Scanner,
			"language":   section.Language,
			"refreshing": section.Refreshing,
			"locations":  locations,
		})
	}

	s.AddTool(tool, handler)
}

// library_get_stats tool
func registerLibraryGetStats(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "library_get_stats",
		Description: "Get item counts for a library section, split by item type",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"library": map[string]interface{}{"type": "string", "description": "Library name or section key"},
			},
			Required: []string{"library"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Library string `json:"library"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}

		section, err := deps.Resolver.Library(ctx, params.Library)
		if err != nil {
			return resolveFailure(err)
		}

		cacheKey := "library_stats:" + section.Key
		if cached, found := deps.Cache.Get(cacheKey); found {
			return successResult(cached)
		}

		counts := map[string]int{}
		countTypes := sectionCountTypes(section.Type)
		for _, itemType := range countTypes {
			_, total, err := deps.Client.SectionContents(ctx, section.Key, plex.SectionContentsParams{
				Type:          itemType,
				ContainerSize: 1,
			})
			if err != nil {
				return errorResultf("failed to count %ss: %s", itemType, err)
			}
			counts[itemType] = total
		}

		data := map[string]interface{}{
			"library": section.Title,
			"key":     section.Key,
			"counts":  counts,
		}
		deps.Cache.Set(cacheKey, data, gocache.DefaultExpiration)
		return successResult(data)
	}

	s.AddTool(tool, handler)
}

// sectionCountTypes returns the item types worth counting for a
// section type.
func sectionCountTypes(sectionType string) []string {
	switch sectionType {
	case "movie":
		return []string{"movie"}
	case "show":
		return []string{"show", "season", "episode"}
	case "artist":
		return []string{"artist", "album", "track"}
	case "photo":
		return []string{"photo"}
	default:
		return []string{sectionType}
	}
}

// library_get_contents tool
func registerLibraryGetContents(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "library_get_contents",
		Description: "List items in a library section with optional type, title and watched-state filters",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"library":    map[string]interface{}{"type": "string", "description": "Library name or section key"},
				"type":       map[string]interface{}{"type": "string", "enum": []string{"movie", "show", "season", "episode", "artist", "album", "track", "photo"}},
				"title":      map[string]interface{}{"type": "string", "description": "Title filter"},
				"unwatched":  map[string]interface{}{"type": "boolean", "description": "Only unwatched items"},
				"watched":    map[string]interface{}{"type": "boolean", "description": "Filter by watched state"},
				"genre":      map[string]interface{}{"type": "string"},
				"year":       map[string]interface{}{"type": "integer"},
				"actor":      map[string]interface{}{"type": "string"},
				"director":   map[string]interface{}{"type": "string"},
				"studio":     map[string]interface{}{"type": "string"},
				"network":    map[string]interface{}{"type": "string"},
				"resolution": map[string]interface{}{"type": "string", "description": "e.g. 1080, 4k"},
				"minRating":  map[string]interface{}{"type": "number"},
				"limit":      map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 1000, "default": 100},
				"offset":     map[string]interface{}{"type": "integer", "minimum": 0, "default": 0},
			},
			Required: []string{"library"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Library   string `json:"library"`
			Type      string `json:"type"`
			Title     string `json:"title"`
			Unwatched bool   `json:"unwatched"`
			Limit     int    `json:"limit"`
			Offset    int    `json:"offset"`
			searchFilters
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}
		if params.Limit == 0 {
			params.Limit = 100
		}

		section, err := deps.Resolver.Library(ctx, params.Library)
		if err != nil {
			return resolveFailure(err)
		}

		items, total, err := deps.Client.SectionContents(ctx, section.Key, plex.SectionContentsParams{
			Type:           params.Type,
			Title:          params.Title,
			Unwatched:      params.Unwatched,
			ContainerSize:  params.Limit,
			ContainerStart: params.Offset,
		})
		if err != nil {
			return errorResult(err.Error())
		}

		items = params.searchFilters.apply(items)

		return successResult(map[string]interface{}{
			"library":    section.Title,
			"totalCount": total,
			"items":      itemSummaries(items),
		})
	}

	s.AddTool(tool, handler)
}

// library_get_recently_added tool
func registerLibraryGetRecentlyAdded(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "library_get_recently_added",
		Description: "List recently added items, newest first, optionally scoped to one library",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"library": map[string]interface{}{"type": "string", "description": "Library name or section key"},
				"limit":   map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 200, "default": 25},
			},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Library string `json:"library"`
			Limit   int    `json:"limit"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}
		if params.Limit == 0 {
			params.Limit = 25
		}

		sectionKey := ""
		if params.Library != "" {
			section, err := deps.Resolver.Library(ctx, params.Library)
			if err != nil {
				return resolveFailure(err)
			}
			sectionKey = section.Key
		}

		items, err := deps.Client.RecentlyAdded(ctx, sectionKey, params.Limit)
		if err != nil {
			return errorResult(err.Error())
		}

		return successResult(map[string]interface{}{
			"items": itemSummaries(items),
		})
	}

	s.AddTool(tool, handler)
}

// library_refresh tool
func registerLibraryRefresh(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "library_refresh",
		Description: "Refresh metadata for one library, or all libraries when none is given",
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

		if params.Library == "" {
			if err := deps.Client.RefreshAllSections(ctx); err != nil {
				return errorResult(err.Error())
			}
			return successResult(map[string]interface{}{
				"message": "Refresh started for all libraries",
			})
		}

		section, err := deps.Resolver.Library(ctx, params.Library)
		if err != nil {
			return resolveFailure(err)
		}
		if err := deps.Client.RefreshSection(ctx, section.Key, ""); err != nil {
			return errorResult(err.Error())
		}

		return successResult(map[string]interface{}{
			"message": fmt.Sprintf("Refresh started for library %q", section.Title),
		})
	}

	s.AddTool(tool, handler)
}

// library_scan tool
func registerLibraryScan(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "library_scan",
		Description: "Scan a library for new files, optionally limited to one folder path",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"library": map[string]interface{}{"type": "string", "description": "Library name or section key"},
				"path":    map[string]interface{}{"type": "string", "description": "Folder path inside the library to scan"},
			},
			Required: []string{"library"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Library string `json:"library"`
			Path    string `json:"path"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}

		section, err := deps.Resolver.Library(ctx, params.Library)
		if err != nil {
			return resolveFailure(err)
		}

		if params.Path != "" {
			valid := false
			for _, location := range section.Location {
				if strings.HasPrefix(params.Path, location.Path) {
					valid = true
					break
				}
			}
			if !valid {
				return errorResultf("path %q is not inside library %q", params.Path, section.Title)
			}
		}

		if err := deps.Client.RefreshSection(ctx, section.Key, params.Path); err != nil {
			return errorResult(err.Error())
		}

		message := fmt.Sprintf("Scan started for library %q", section.Title)
		if params.Path != "" {
			message = fmt.Sprintf("Scan started for %q in library %q", params.Path, section.Title)
		}
		return successResult(map[string]interface{}{"message": message})
	}

	s.AddTool(tool, handler)
}
