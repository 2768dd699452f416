package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// client_list tool
func registerClientList(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "client_list",
		Description: "List the controllable players currently connected to the server",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		players, err := deps.Client.Clients(ctx)
		if err != nil {
			return errorResult(err.Error())
		}

		entries := make([]map[string]interface{}, len(players))
		for i, player := range players {
			entries[i] = map[string]interface{}{
				"name":              player.Name,
				"machineIdentifier": player.MachineIdentifier,
				"product":           player.Product,
				"address":           player.Address,
			}
		}

		return successResult(map[string]interface{}{"clients": entries})
	}

	s.AddTool(tool, handler)
}

// client_get_details tool
func registerClientGetDetails(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "client_get_details",
		Description: "Get details and capabilities for one player",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"client": map[string]interface{}{"type": "string", "description": "Player name or machine identifier"},
			},
			Required: []string{"client"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Client string `json:"client"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}

		player, err := deps.Resolver.Player(ctx, params.Client)
		if err != nil {
			return resolveFailure(err)
		}

		return successResult(map[string]interface{}{
			"name":                 player.Name,
			"machineIdentifier":    player.MachineIdentifier,
			"product":              player.Product,
			"version":              player.Version,
			"address":              player.Address,
			"port":                 player.Port,
			"protocolVersion":      player.ProtocolVersion,
			"protocolCapabilities": player.ProtocolCapabilities,
			"deviceClass":          player.DeviceClass,
		})
	}

	s.AddTool(tool, handler)
}

// client_get_active tool
func registerClientGetActive(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "client_get_active",
		Description: "List players that currently have an active playback session",
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

		entries := []map[string]interface{}{}
		seen := map[string]bool{}
		for _, session := range sessions {
			if session.Player == nil || seen[session.Player.MachineIdentifier] {
				continue
			}
			seen[session.Player.MachineIdentifier] = true
			entry := map[string]interface{}{
				"name":              session.Player.Title,
				"machineIdentifier": session.Player.MachineIdentifier,
				"product":           session.Player.Product,
				"state":             session.Player.State,
				"nowPlaying":        session.Title,
			}
			if session.User != nil {
				entry["user"] = session.User.Title
			}
			entries = append(entries, entry)
		}

		return successResult(map[string]interface{}{"clients": entries})
	}

	s.AddTool(tool, handler)
}

// client_get_timelines tool
func registerClientGetTimelines(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "client_get_timelines",
		Description: "Poll a player for its current playback timelines",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"client": map[string]interface{}{"type": "string", "description": "Player name or machine identifier"},
			},
			Required: []string{"client"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Client string `json:"client"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}

		player, err := deps.Resolver.Player(ctx, params.Client)
		if err != nil {
			return resolveFailure(err)
		}

		timelines, err := deps.Client.Timelines(ctx, player.MachineIdentifier)
		if err != nil {
			return errorResult(err.Error())
		}

		entries := make([]map[string]interface{}, len(timelines))
		for i, timeline := range timelines {
			entries[i] = map[string]interface{}{
				"type":     timeline.Type,
				"state":    timeline.State,
				"itemId":   timeline.RatingKey,
				"timeMs":   timeline.Time,
				"duration": timeline.Duration,
				"volume":   timeline.Volume,
			}
		}

		return successResult(map[string]interface{}{
			"client":    player.Name,
			"timelines": entries,
		})
	}

	s.AddTool(tool, handler)
}

// client_start_playback tool
func registerClientStartPlayback(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "client_start_playback",
		Description: "Start playing an item on a player, optionally from a time offset",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"client":   map[string]interface{}{"type": "string", "description": "Player name or machine identifier"},
				"media":    map[string]interface{}{"type": "string", "description": "Item title or numeric id"},
				"type":     map[string]interface{}{"type": "string", "enum": []string{"movie", "show", "episode", "track", "album"}},
				"offsetMs": map[string]interface{}{"type": "integer", "minimum": 0, "description": "Start offset in milliseconds"},
			},
			Required: []string{"client", "media"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Client   string `json:"client"`
			Media    string `json:"media"`
			Type     string `json:"type"`
			OffsetMs int64  `json:"offsetMs"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}

		player, err := deps.Resolver.Player(ctx, params.Client)
		if err != nil {
			return resolveFailure(err)
		}
		item, err := deps.Resolver.Item(ctx, params.Media, params.Type)
		if err != nil {
			return resolveFailure(err)
		}

		if err := deps.Client.StartPlayback(ctx, player.MachineIdentifier, item.ID(), params.OffsetMs); err != nil {
			return errorResult(err.Error())
		}

		return successResult(map[string]interface{}{
			"message": fmt.Sprintf("Playing %q on %q", item.Title, player.Name),
		})
	}

	s.AddTool(tool, handler)
}

// client_control_playback tool
func registerClientControlPlayback(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "client_control_playback",
		Description: "Send a transport command to a player: play, pause, stop, skipNext, skipPrevious, stepForward, stepBack, or seekTo",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"client":   map[string]interface{}{"type": "string", "description": "Player name or machine identifier"},
				"command":  map[string]interface{}{"type": "string", "enum": []string{"play", "pause", "stop", "skipNext", "skipPrevious", "stepForward", "stepBack", "seekTo"}},
				"offsetMs": map[string]interface{}{"type": "integer", "minimum": 0, "description": "Target offset for seekTo"},
			},
			Required: []string{"client", "command"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Client   string `json:"client"`
			Command  string `json:"command"`
			OffsetMs int64  `json:"offsetMs"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}

		player, err := deps.Resolver.Player(ctx, params.Client)
		if err != nil {
			return resolveFailure(err)
		}

		if params.Command == "seekTo" {
			err = deps.Client.Seek(ctx, player.MachineIdentifier, params.OffsetMs)
		} else {
			err = deps.Client.ControlPlayback(ctx, player.MachineIdentifier, params.Command)
		}
		if err != nil {
			return errorResult(err.Error())
		}

		return successResult(map[string]interface{}{
			"message": fmt.Sprintf("Sent %s to %q", params.Command, player.Name),
		})
	}

	s.AddTool(tool, handler)
}

// client_navigate tool
func registerClientNavigate(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "client_navigate",
		Description: "Send a navigation command to a player: moveUp, moveDown, moveLeft, moveRight, select, back, home, music",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"client":  map[string]interface{}{"type": "string", "description": "Player name or machine identifier"},
				"command": map[string]interface{}{"type": "string", "enum": []string{"moveUp", "moveDown", "moveLeft", "moveRight", "select", "back", "home", "music"}},
			},
			Required: []string{"client", "command"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Client  string `json:"client"`
			Command string `json:"command"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}

		player, err := deps.Resolver.Player(ctx, params.Client)
		if err != nil {
			return resolveFailure(err)
		}

		if err := deps.Client.Navigate(ctx, player.MachineIdentifier, params.Command); err != nil {
			return errorResult(err.Error())
		}

		return successResult(map[string]interface{}{
			"message": fmt.Sprintf("Sent %s to %q", params.Command, player.Name),
		})
	}

	s.AddTool(tool, handler)
}

// client_set_streams tool
func registerClientSetStreams(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "client_set_streams",
		Description: "Select audio and subtitle streams on a player. subtitleStreamId -1 turns subtitles off.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"client":           map[string]interface{}{"type": "string", "description": "Player name or machine identifier"},
				"audioStreamId":    map[string]interface{}{"type": "integer"},
				"subtitleStreamId": map[string]interface{}{"type": "integer"},
			},
			Required: []string{"client"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Client           string `json:"client"`
			AudioStreamID    int    `json:"audioStreamId"`
			SubtitleStreamID int    `json:"subtitleStreamId"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}
		if params.AudioStreamID == 0 && params.SubtitleStreamID == 0 {
			return errorResult("nothing to change, set audioStreamId or subtitleStreamId")
		}

		player, err := deps.Resolver.Player(ctx, params.Client)
		if err != nil {
			return resolveFailure(err)
		}

		if err := deps.Client.SetStreams(ctx, player.MachineIdentifier, params.AudioStreamID, params.SubtitleStreamID); err != nil {
			return errorResult(err.Error())
		}

		return successResult(map[string]interface{}{
			"message": fmt.Sprintf("Updated streams on %q", player.Name),
		})
	}

	s.AddTool(tool, handler)
}
