package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vladimir-tutin/plex-mcp-server/pkg/plex"
)

// user_search tool
func registerUserSearch(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "user_search",
		Description: "Search the server's known accounts by name",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{"type": "string", "description": "Name to search for, empty lists all"},
			},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Query string `json:"query"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}

		accounts, err := deps.Client.SystemAccounts(ctx)
		if err != nil {
			return errorResult(err.Error())
		}

		entries := []map[string]interface{}{}
		for _, account := range accounts {
			if account.ID == 0 {
				// Account 0 is the server-internal placeholder.
				continue
			}
			if params.Query != "" && !strings.Contains(strings.ToLower(account.Name), strings.ToLower(params.Query)) {
				continue
			}
			entries = append(entries, map[string]interface{}{
				"id":   account.ID,
				"name": account.Name,
			})
		}

		return successResult(map[string]interface{}{"users": entries})
	}

	s.AddTool(tool, handler)
}

// user_list_friends tool, registered only when a plex.tv account is
// configured.
func registerUserListFriends(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "user_list_friends",
		Description: "List the plex.tv users this account shares servers with",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		friends, err := deps.Account.Friends(ctx)
		if err != nil {
			return errorResult(err.Error())
		}

		entries := make([]map[string]interface{}, len(friends))
		for i, friend := range friends {
			entries[i] = map[string]interface{}{
				"id":         friend.ID,
				"username":   friend.Username,
				"title":      friend.Title,
				"home":       friend.Home,
				"restricted": friend.Restricted,
			}
		}

		return successResult(map[string]interface{}{"friends": entries})
	}

	s.AddTool(tool, handler)
}

// user_get_info tool
func registerUserGetInfo(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "user_get_info",
		Description: "Get details for one account by name or id",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user": map[string]interface{}{"type": "string", "description": "Account name or numeric id"},
			},
			Required: []string{"user"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			User string `json:"user"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}

		account, err := deps.Resolver.Account(ctx, params.User)
		if err != nil {
			return resolveFailure(err)
		}

		info := map[string]interface{}{
			"id":   account.ID,
			"name": account.Name,
		}
		if account.DefaultAudioLanguage != "" {
			info["defaultAudioLanguage"] = account.DefaultAudioLanguage
		}
		if account.DefaultSubtitleLanguage != "" {
			info["defaultSubtitleLanguage"] = account.DefaultSubtitleLanguage
		}

		return successResult(info)
	}

	s.AddTool(tool, handler)
}

// user_get_on_deck tool
func registerUserGetOnDeck(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "user_get_on_deck",
		Description: "Get continue-watching items. Only available for the server owner's account.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user": map[string]interface{}{"type": "string", "description": "Account name or numeric id, defaults to the owner"},
			},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			User string `json:"user"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}

		if params.User != "" {
			account, err := deps.Resolver.Account(ctx, params.User)
			if err != nil {
				return resolveFailure(err)
			}
			// The HTTP API only exposes on-deck for the token owner,
			// account 1.
			if account.ID != 1 {
				return errorResultf("on deck is only available for the server owner, not %q", account.Name)
			}
		}

		items, err := deps.Client.OnDeck(ctx)
		if err != nil {
			return errorResult(err.Error())
		}

		return successResult(map[string]interface{}{
			"items": itemSummaries(items),
		})
	}

	s.AddTool(tool, handler)
}

// user_get_watch_history tool
func registerUserGetWatchHistory(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "user_get_watch_history",
		Description: "Get playback history for one account, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user":  map[string]interface{}{"type": "string", "description": "Account name or numeric id"},
				"limit": map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 500, "default": 50},
			},
			Required: []string{"user"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			User  string `json:"user"`
			Limit int    `json:"limit"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}
		if params.Limit == 0 {
			params.Limit = 50
		}

		account, err := deps.Resolver.Account(ctx, params.User)
		if err != nil {
			return resolveFailure(err)
		}

		records, err := deps.Client.History(ctx, plex.HistoryParams{
			AccountID: account.ID,
			Limit:     params.Limit,
		})
		if err != nil {
			return errorResult(err.Error())
		}

		entries := make([]map[string]interface{}, len(records))
		for i, record := range records {
			entry := itemSummary(record)
			if record.ViewedAt > 0 {
				entry["viewedAt"] = record.ViewedAt
			}
			entries[i] = entry
		}

		return successResult(map[string]interface{}{
			"user":    account.Name,
			"history": entries,
		})
	}

	s.AddTool(tool, handler)
}
