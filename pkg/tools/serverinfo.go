package tools

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// server_get_info tool
func registerServerGetInfo(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "server_get_info",
		Description: "Get server identity: name, version, platform and machine identifier",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		info, err := deps.Client.ServerInfo(ctx)
		if err != nil {
			return errorResult(err.Error())
		}

		data := map[string]interface{}{
			"friendlyName":      info.FriendlyName,
			"machineIdentifier": info.MachineIdentifier,
			"version":           info.Version,
			"platform":          info.Platform,
			"platformVersion":   info.PlatformVersion,
			"myPlexUsername":    info.MyPlexUsername,
		}
		data["transcoderActiveSessions"] = info.TranscoderActive
		return successResult(data)
	}

	s.AddTool(tool, handler)
}

// server_list_butler_tasks tool
func registerServerListButlerTasks(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "server_list_butler_tasks",
		Description: "List the server's scheduled maintenance (butler) tasks",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tasks, err := deps.Client.ButlerTasks(ctx)
		if err != nil {
			return errorResult(err.Error())
		}

		entries := make([]map[string]interface{}, len(tasks))
		for i, task := range tasks {
			entries[i] = map[string]interface{}{
				"name":        task.Name,
				"title":       task.Title,
				"description": task.Description,
				"interval":    task.Interval,
			}
		}

		return successResult(map[string]interface{}{"tasks": entries})
	}

	s.AddTool(tool, handler)
}

// server_run_butler_task tool
func registerServerRunButlerTask(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "server_run_butler_task",
		Description: "Start one maintenance task immediately, e.g. CleanOldBundles or OptimizeDatabase",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"task": map[string]interface{}{"type": "string", "description": "Task name from server_list_butler_tasks"},
			},
			Required: []string{"task"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Task string `json:"task"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}

		if err := deps.Client.RunButlerTask(ctx, params.Task); err != nil {
			return errorResult(err.Error())
		}

		return successResult(map[string]interface{}{
			"message": "Started butler task " + params.Task,
		})
	}

	s.AddTool(tool, handler)
}

// server_stop_butler_task tool
func registerServerStopButlerTask(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "server_stop_butler_task",
		Description: "Stop a running maintenance task",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"task": map[string]interface{}{"type": "string", "description": "Task name from server_list_butler_tasks"},
			},
			Required: []string{"task"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Task string `json:"task"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}

		if err := deps.Client.StopButlerTask(ctx, params.Task); err != nil {
			return errorResult(err.Error())
		}

		return successResult(map[string]interface{}{
			"message": "Stopped butler task " + params.Task,
		})
	}

	s.AddTool(tool, handler)
}

// server_list_devices tool
func registerServerListDevices(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "server_list_devices",
		Description: "List the devices the server has seen, with their client identifiers",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		devices, err := deps.Client.SystemDevices(ctx)
		if err != nil {
			return errorResult(err.Error())
		}

		entries := make([]map[string]interface{}, len(devices))
		for i, device := range devices {
			entries[i] = map[string]interface{}{
				"id":               device.ID,
				"name":             device.Name,
				"platform":         device.Platform,
				"clientIdentifier": device.ClientIdentifier,
				"createdAt":        device.CreatedAt,
			}
		}

		return successResult(map[string]interface{}{"devices": entries})
	}

	s.AddTool(tool, handler)
}

// server_get_bandwidth tool
func registerServerGetBandwidth(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "server_get_bandwidth",
		Description: "Get bandwidth statistics with per-account and per-device samples",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"timespan": map[string]interface{}{"type": "integer", "description": "Sample granularity, 6 is hourly", "default": 6},
			},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Timespan int `json:"timespan"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}
		if params.Timespan == 0 {
			params.Timespan = 6
		}

		samples, err := deps.Client.Bandwidth(ctx, params.Timespan)
		if err != nil {
			return errorResult(err.Error())
		}

		var totalBytes int64
		entries := make([]map[string]interface{}, len(samples))
		for i, sample := range samples {
			totalBytes += sample.Bytes
			entries[i] = map[string]interface{}{
				"accountId": sample.AccountID,
				"deviceId":  sample.DeviceID,
				"at":        sample.At,
				"lan":       sample.Lan,
				"bytes":     sample.Bytes,
			}
		}

		return successResult(map[string]interface{}{
			"totalBytes": totalBytes,
			"samples":    entries,
		})
	}

	s.AddTool(tool, handler)
}

// server_get_resources tool
func registerServerGetResources(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "server_get_resources",
		Description: "Get host and server process CPU and memory utilization samples",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		samples, err := deps.Client.Resources(ctx)
		if err != nil {
			return errorResult(err.Error())
		}

		entries := make([]map[string]interface{}, len(samples))
		for i, sample := range samples {
			entries[i] = map[string]interface{}{
				"at":                       sample.At,
				"hostCpuUtilization":       sample.HostCpuUtilization,
				"processCpuUtilization":    sample.ProcessCpuUtilization,
				"hostMemoryUtilization":    sample.HostMemoryUtilization,
				"processMemoryUtilization": sample.ProcessMemoryUtilization,
			}
		}

		return successResult(map[string]interface{}{"samples": entries})
	}

	s.AddTool(tool, handler)
}

// logTypeFiles maps short log type names to the file names inside the
// diagnostics archive.
var logTypeFiles = map[string]string{
	"server":     "Plex Media Server.log",
	"scanner":    "Plex Media Scanner.log",
	"transcoder": "Plex Transcoder.log",
	"updater":    "Plex Update Service.log",
}

// server_get_logs tool
func registerServerGetLogs(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "server_get_logs",
		Description: "Get the last lines of one server log file from the diagnostics archive",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"logType":  map[string]interface{}{"type": "string", "description": "server, scanner, transcoder, updater, or a log file name", "default": "server"},
				"numLines": map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 2000, "default": 100},
			},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			LogType  string `json:"logType"`
			NumLines int    `json:"numLines"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}
		if params.LogType == "" {
			params.LogType = "server"
		}
		if params.NumLines == 0 {
			params.NumLines = 100
		}

		fileName := params.LogType
		if mapped, ok := logTypeFiles[strings.ToLower(params.LogType)]; ok {
			fileName = mapped
		}

		archive, err := deps.Client.DownloadLogs(ctx)
		if err != nil {
			return errorResult(err.Error())
		}

		content, matched, err := extractLog(archive, fileName)
		if err != nil {
			return errorResult(err.Error())
		}

		lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
		if len(lines) > params.NumLines {
			lines = lines[len(lines)-params.NumLines:]
		}

		return successResult(map[string]interface{}{
			"logFile":   matched,
			"lineCount": len(lines),
			"lines":     lines,
		})
	}

	s.AddTool(tool, handler)
}

// extractLog pulls one log file out of the diagnostics zip, matching
// the entry base name case-insensitively.
func extractLog(archive []byte, fileName string) (string, string, error) {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return "", "", fmt.Errorf("log archive is not a valid zip: %w", err)
	}

	want := strings.ToLower(fileName)
	for _, entry := range reader.File {
		base := strings.ToLower(path.Base(entry.Name))
		if !strings.Contains(base, want) {
			continue
		}

		file, err := entry.Open()
		if err != nil {
			return "", "", err
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			return "", "", err
		}
		return string(content), path.Base(entry.Name), nil
	}

	names := make([]string, len(reader.File))
	for i, entry := range reader.File {
		names[i] = path.Base(entry.Name)
	}
	return "", "", fmt.Errorf("no log file matching %q in archive (available: %s)",
		fileName, strings.Join(names, ", "))
}

// server_get_alerts tool
func registerServerGetAlerts(s *server.MCPServer, deps Deps) {
	tool := mcp.Tool{
		Name:        "server_get_alerts",
		Description: "Listen on the server notification websocket and collect alerts for a few seconds",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"durationSeconds": map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 60, "default": 10},
				"maxAlerts":       map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 200, "default": 50},
				"types":           map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Alert types to keep, e.g. playing, timeline, activity"},
			},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			DurationSeconds int      `json:"durationSeconds"`
			MaxAlerts       int      `json:"maxAlerts"`
			Types           []string `json:"types"`
		}
		if err := decodeArgs(request, &params); err != nil {
			return errorResult(err.Error())
		}
		if params.DurationSeconds == 0 {
			params.DurationSeconds = 10
		}

		alerts, err := deps.Client.CollectAlerts(ctx,
			time.Duration(params.DurationSeconds)*time.Second, params.MaxAlerts, params.Types)
		if err != nil {
			return errorResult(err.Error())
		}

		entries := make([]map[string]interface{}, len(alerts))
		for i, alert := range alerts {
			entries[i] = map[string]interface{}{
				"type":    alert.Type,
				"payload": alert.Raw,
			}
		}

		return successResult(map[string]interface{}{
			"alertCount": len(entries),
			"alerts":     entries,
		})
	}

	s.AddTool(tool, handler)
}
