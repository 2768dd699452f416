package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vladimir-tutin/plex-mcp-server/pkg/plex"
)

// sessions_get_active tool
func registerSessionsGetActive(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "sessions_get_active",
		Description: "List the playback sessions currently active on the server",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessions, err := deps.Client.Sessions(ctx)
		if err != nil {
			return errorResult(err.Error())
		}

		entries := make([]map[string]interface{}, len(sessions))
		for i, session := range sessions {
			entry := itemSummary(session)
			if session.User != nil {
				entry["user"] = session.User.Title
			}
			if session.Player != nil {
				entry["player"] = session.Player.Title
				entry["playerState"] = session.Player.State
				entry["device"] = session.Player.Product
			}
			if session.ViewOffset > 0 && session.Duration > 0 {
				entry["progressPercent"] = int(float64(session.ViewOffset) / float64(session.Duration) * 100)
			}
			if session.TranscodeSession != nil {
				entry["transcoding"] = map[string]interface{}{
					"videoDecision": session.TranscodeSession.VideoDecision,
					"audioDecision": session.TranscodeSession.AudioDecision,
					"speed":         session.TranscodeSession.Speed,
				}
			}
			if session.Session != nil {
				entry["sessionId"] = session.Session.ID
				entry["bandwidthKbps"] = session.Session.Bandwidth
				entry["location"] = session.Session.Location
			}
			entries[i] = entry
		}

		return successResult(map[string]interface{}{
			"sessionCount": len(entries),
			"sessions":     entries,
		})
	}

	s.AddTool(tool, handler)
}

// sessions_get_history tool
func registerSessionsGetHistory(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "sessions_get_history",
		Description: "Get server-wide playback history with account names, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user":    map[string]interface{}{"type": "string", "description": "Limit to one account, by name or id"},
				"library": map[string]interface{}{"type": "string", "description": "Limit to one library"},
				"media":   map[string]interface{}{"type": "string", "description": "Limit to one item, by title or id"},
				"type":    map[string]interface{}{"type": "string", "enum": []string{"movie", "show", "episode", "track", "album"}},
				"limit":   map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 500, "default": 50},
			},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			User    string `json:"user"`
			Library string `json:"library"`
			Media   string `json:"media"`
			Type    string `json:"type"`
			Limit   int    `json:"limit"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}
		if params.Limit == 0 {
			params.Limit = 50
		}

		historyParams := plex.HistoryParams{Limit: params.Limit}
		if params.User != "" {
			account, err := deps.Resolver.Account(ctx, params.User)
			if err != nil {
				return resolveFailure(err)
			}
			historyParams.AccountID = account.ID
		}
		if params.Library != "" {
			section, err := deps.Resolver.Library(ctx, params.Library)
			if err != nil {
				return resolveFailure(err)
			}
			historyParams.SectionKey = section.Key
		}

		var item *plex.Metadata
		if params.Media != "" {
			resolved, err := deps.Resolver.Item(ctx, params.Media, params.Type)
			if err != nil {
				return resolveFailure(err)
			}
			item = resolved
		}

		records, err := deps.Client.History(ctx, historyParams)
		if err != nil {
			return errorResult(err.Error())
		}

		if item != nil {
			records = filterHistoryByItem(records, item)
		}

		names, err := accountNames(ctx, deps, records)
		if err != nil {
			return errorResult(err.Error())
		}

		entries := make([]map[string]interface{}, len(records))
		for i, record := range records {
			entry := itemSummary(record)
			if record.ViewedAt > 0 {
				entry["viewedAt"] = record.ViewedAt
			}
			if name, ok := names[record.AccountID]; ok {
				entry["user"] = name
			}
			entries[i] = entry
		}

		return successResult(map[string]interface{}{
			"history": entries,
		})
	}

	s.AddTool(tool, handler)
}

// filterHistoryByItem keeps history records for one item. For a show,
// season or album the record's parent chain counts too, so asking for
// a show returns its episodes' plays.
func filterHistoryByItem(records []plex.Metadata, item *plex.Metadata) []plex.Metadata {
	kept := make([]plex.Metadata, 0, len(records))
	for _, record := range records {
		switch {
		case record.RatingKey == item.RatingKey:
		case record.GrandparentTitle != "" && strings.EqualFold(record.GrandparentTitle, item.Title):
		case record.ParentTitle != "" && strings.EqualFold(record.ParentTitle, item.Title):
		default:
			continue
		}
		kept = append(kept, record)
	}
	return kept
}

// sessions_terminate tool
func registerSessionsTerminate(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "sessions_terminate",
		Description: "Stop an active playback session, optionally with a message shown to the viewer",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"sessionId": map[string]interface{}{"type": "string", "description": "Session id from sessions_get_active"},
				"reason":    map[string]interface{}{"type": "string", "description": "Message shown on the player"},
			},
			Required: []string{"sessionId"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			SessionID string `json:"sessionId"`
			Reason    string `json:"reason"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}
		if params.Reason == "" {
			params.Reason = "Session terminated by the server owner"
		}

		if err := deps.Client.TerminateSession(ctx, params.SessionID, params.Reason); err != nil {
			return errorResult(err.Error())
		}

		return successResult(map[string]interface{}{
			"message": "Terminated session " + params.SessionID,
		})
	}

	s.AddTool(tool, handler)
}

// accountNames maps the account IDs referenced by history records to
// names. The batch listing covers most of them; anything missing gets
// a per-account lookup.
func accountNames(ctx context.Context, deps Deps, records []plex.Metadata) (map[int]string, error) {
	needed := map[int]bool{}
	for _, record := range records {
		if record.AccountID > 0 {
			needed[record.AccountID] = true
		}
	}
	if len(needed) == 0 {
		return map[int]string{}, nil
	}

	names := map[int]string{}
	accounts, err := deps.Client.SystemAccounts(ctx)
	if err != nil {
		return nil, err
	}
	for _, account := range accounts {
		names[account.ID] = account.Name
	}

	for id := range needed {
		if _, ok := names[id]; ok {
			continue
		}
		account, err := deps.Client.SystemAccount(ctx, id)
		if err != nil {
			// A deleted account is not worth failing the whole
			// history call over.
			continue
		}
		names[id] = account.Name
	}

	return names, nil
}
