package tools

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/server"
	gocache "github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladimir-tutin/plex-mcp-server/pkg/config"
	"github.com/vladimir-tutin/plex-mcp-server/pkg/plex"
	"github.com/vladimir-tutin/plex-mcp-server/pkg/resolve"
)

// newToolServer wires the tool handlers against a fake Plex backend.
func newToolServer(t *testing.T, mux *http.ServeMux) *server.MCPServer {
	t.Helper()

	backend := httptest.NewServer(mux)
	t.Cleanup(backend.Close)

	client := plex.NewClient(backend.URL, "test-token", 5*time.Second)
	mcpServer := server.NewMCPServer("plex-mcp-server", "test")
	RegisterTools(mcpServer, Deps{
		Config:   &config.Config{},
		Client:   client,
		Resolver: resolve.New(client),
		Cache:    gocache.New(time.Minute, 2*time.Minute),
	})
	return mcpServer
}

// callTool runs one tools/call through the JSON-RPC layer and returns
// the decoded response envelope.
func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]interface{}) map[string]interface{} {
	t.Helper()

	request := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      name,
			"arguments": args,
		},
	}
	raw, err := json.Marshal(request)
	require.NoError(t, err)

	response := s.HandleMessage(context.Background(), raw)
	raw, err = json.Marshal(response)
	require.NoError(t, err)

	var decoded struct {
		Result struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Nil(t, decoded.Error)
	require.NotEmpty(t, decoded.Result.Content)

	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(decoded.Result.Content[0].Text), &envelope))
	return envelope
}

func envelopeData(t *testing.T, envelope map[string]interface{}) map[string]interface{} {
	t.Helper()
	require.Equal(t, "success", envelope["status"], "envelope: %v", envelope)
	data, ok := envelope["data"].(map[string]interface{})
	require.True(t, ok)
	return data
}

func searchResponse(items ...plex.Metadata) string {
	hits := make([]map[string]interface{}, len(items))
	for i, item := range items {
		hits[i] = map[string]interface{}{"score": 1.0, "Metadata": item}
	}
	raw, _ := json.Marshal(map[string]interface{}{
		"MediaContainer": map[string]interface{}{"SearchResult": hits},
	})
	return string(raw)
}

func metadataResponse(items ...plex.Metadata) string {
	raw, _ := json.Marshal(map[string]interface{}{
		"MediaContainer": map[string]interface{}{"Metadata": items},
	})
	return string(raw)
}

func TestToolsListIncludesEveryGroup(t *testing.T) {
	s := newToolServer(t, http.NewServeMux())

	raw, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/list",
	})
	require.NoError(t, err)

	response := s.HandleMessage(context.Background(), raw)
	raw, err = json.Marshal(response)
	require.NoError(t, err)

	var decoded struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	names := map[string]bool{}
	for _, tool := range decoded.Result.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{
		"library_list", "media_search", "playlist_create", "collection_create",
		"user_get_info", "sessions_get_active", "sessions_terminate", "server_get_info",
		"server_get_logs", "server_list_devices", "server_stop_butler_task",
		"client_start_playback",
	} {
		assert.True(t, names[want], "missing tool %s", want)
	}
	// Live collection tools only register with a store configured.
	assert.False(t, names["collection_create_live"])
	// Friends need a plex.tv account.
	assert.False(t, names["user_list_friends"])
}

func TestUserListFriendsRegistersWithAccount(t *testing.T) {
	backend := httptest.NewServer(http.NewServeMux())
	t.Cleanup(backend.Close)

	client := plex.NewClient(backend.URL, "test-token", 5*time.Second)
	s := server.NewMCPServer("plex-mcp-server", "test")
	RegisterTools(s, Deps{
		Config:   &config.Config{},
		Client:   client,
		Account:  plex.NewAccount("tv-token", 5*time.Second),
		Resolver: resolve.New(client),
		Cache:    gocache.New(time.Minute, 2*time.Minute),
	})

	raw, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/list",
	})
	require.NoError(t, err)

	response := s.HandleMessage(context.Background(), raw)
	raw, err = json.Marshal(response)
	require.NoError(t, err)

	assert.Contains(t, string(raw), "user_list_friends")
}

func TestMediaSearchWatchedFilter(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/library/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchResponse(
			plex.Metadata{RatingKey: "1", Type: "movie", Title: "Heat", Year: 1995, ViewCount: 3},
			plex.Metadata{RatingKey: "2", Type: "movie", Title: "Heathers", Year: 1988},
		))
	})

	s := newToolServer(t, mux)

	envelope := callTool(t, s, "media_search", map[string]interface{}{
		"query":   "Heat",
		"type":    "movie",
		"watched": true,
	})

	data := envelopeData(t, envelope)
	items, ok := data["items"].([]interface{})
	require.True(t, ok)
	require.Len(t, items, 1)

	item := items[0].(map[string]interface{})
	assert.Equal(t, "Heat", item["title"])
	assert.Equal(t, true, item["watched"])
}

func TestMediaGetDetailsNumericIDBypassesSearch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/library/search", func(w http.ResponseWriter, r *http.Request) {
		t.Error("numeric id must not trigger a search")
	})
	mux.HandleFunc("/library/metadata/42", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, metadataResponse(plex.Metadata{
			RatingKey: "42", Type: "movie", Title: "Blade Runner", Year: 1982,
			Summary: "A blade runner must pursue replicants.",
		}))
	})

	s := newToolServer(t, mux)

	envelope := callTool(t, s, "media_get_details", map[string]interface{}{
		"media": "42",
	})

	data := envelopeData(t, envelope)
	assert.Equal(t, "Blade Runner", data["title"])
	assert.Equal(t, float64(42), data["id"])
	assert.Equal(t, "A blade runner must pursue replicants.", data["summary"])
}

func TestMediaGetDetailsAmbiguousReturnsMatches(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/library/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchResponse(
			plex.Metadata{RatingKey: "10", Type: "movie", Title: "Dune", Year: 1984},
			plex.Metadata{RatingKey: "11", Type: "movie", Title: "Dune", Year: 2021},
		))
	})

	s := newToolServer(t, mux)

	envelope := callTool(t, s, "media_get_details", map[string]interface{}{
		"media": "Dune",
		"type":  "movie",
	})

	// Ambiguity comes back as success with the candidate list.
	data := envelopeData(t, envelope)
	assert.Contains(t, data["message"], "Dune")

	matches, ok := data["matches"].([]interface{})
	require.True(t, ok)
	require.Len(t, matches, 2)
	for _, entry := range matches {
		match := entry.(map[string]interface{})
		assert.NotEmpty(t, match["title"])
		assert.NotEmpty(t, match["id"])
		assert.NotEmpty(t, match["type"])
		assert.NotEmpty(t, match["year"])
	}
}

func TestMediaGetDetailsNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/library/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchResponse())
	})

	s := newToolServer(t, mux)

	envelope := callTool(t, s, "media_get_details", map[string]interface{}{
		"media": "Nonexistent",
		"type":  "movie",
	})

	assert.Equal(t, "error", envelope["status"])
	assert.Contains(t, envelope["message"], "Nonexistent")
}

func TestPlaylistCreatePreservesItemOrder(t *testing.T) {
	var capturedURI string

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"MediaContainer":{"machineIdentifier":"machine-1"}}`)
	})
	for _, id := range []string{"30", "10", "20"} {
		key := id
		mux.HandleFunc("/library/metadata/"+key, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, metadataResponse(plex.Metadata{RatingKey: key, Type: "movie", Title: "Item " + key}))
		})
	}
	mux.HandleFunc("/playlists", func(w http.ResponseWriter, r *http.Request) {
		capturedURI = r.URL.Query().Get("uri")
		fmt.Fprint(w, metadataResponse(plex.Metadata{
			RatingKey: "99", Type: "playlist", Title: "Road Trip", LeafCount: 3,
		}))
	})

	s := newToolServer(t, mux)

	envelope := callTool(t, s, "playlist_create", map[string]interface{}{
		"title": "Road Trip",
		"items": []string{"30", "10", "20"},
	})

	data := envelopeData(t, envelope)
	assert.Equal(t, float64(99), data["id"])
	assert.True(t, strings.HasSuffix(capturedURI, "/library/metadata/30,10,20"),
		"uri %q should keep the requested order", capturedURI)
}

func TestLibraryListUsesCache(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/library/sections", func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"MediaContainer":{"Directory":[{"key":"1","title":"Movies","type":"movie"}]}}`)
	})

	s := newToolServer(t, mux)

	first := callTool(t, s, "library_list", map[string]interface{}{})
	second := callTool(t, s, "library_list", map[string]interface{}{})

	assert.Equal(t, 1, calls)
	assert.Equal(t, envelopeData(t, first), envelopeData(t, second))
}

func TestMediaDeleteRequiresConfirmation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/library/metadata/7", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			t.Error("delete must not run without confirmation")
		}
		fmt.Fprint(w, metadataResponse(plex.Metadata{RatingKey: "7", Type: "movie", Title: "Old Rip"}))
	})

	s := newToolServer(t, mux)

	envelope := callTool(t, s, "media_delete", map[string]interface{}{
		"media": "7",
	})

	assert.Equal(t, "error", envelope["status"])
	assert.Contains(t, envelope["message"], "confirm")
}

func TestLibraryGetContentsWatchedFilter(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/library/sections", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"MediaContainer":{"Directory":[{"key":"1","title":"Movies","type":"movie"}]}}`)
	})
	mux.HandleFunc("/library/sections/1/all", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := json.Marshal(map[string]interface{}{
			"MediaContainer": map[string]interface{}{
				"totalSize": 2,
				"Metadata": []plex.Metadata{
					{RatingKey: "1", Type: "movie", Title: "Heat", Year: 1995, ViewCount: 3},
					{RatingKey: "2", Type: "movie", Title: "Ronin", Year: 1998},
				},
			},
		})
		w.Write(raw)
	})

	s := newToolServer(t, mux)

	envelope := callTool(t, s, "library_get_contents", map[string]interface{}{
		"library": "Movies",
		"watched": true,
	})

	data := envelopeData(t, envelope)
	items, ok := data["items"].([]interface{})
	require.True(t, ok)
	require.Len(t, items, 1)

	item := items[0].(map[string]interface{})
	assert.Equal(t, "Heat", item["title"])
	assert.Equal(t, true, item["watched"])
}

func TestMediaSearchNetworkFilter(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/library/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchResponse(
			plex.Metadata{RatingKey: "1", Type: "show", Title: "The Wire", Network: "HBO"},
			plex.Metadata{RatingKey: "2", Type: "show", Title: "The Shield", Network: "FX"},
		))
	})

	s := newToolServer(t, mux)

	envelope := callTool(t, s, "media_search", map[string]interface{}{
		"query":   "The",
		"type":    "show",
		"network": "hbo",
	})

	data := envelopeData(t, envelope)
	items, ok := data["items"].([]interface{})
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "The Wire", items[0].(map[string]interface{})["title"])
}

// logArchive builds a diagnostics zip like the one /diagnostics/logs
// serves.
func logArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for name, content := range files {
		entry, err := writer.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return buf.Bytes()
}

func TestServerGetLogsReturnsLastLines(t *testing.T) {
	archive := logArchive(t, map[string]string{
		"Plex Media Server Logs/Plex Media Server.log":  "line 1\nline 2\nline 3\nline 4\nline 5\n",
		"Plex Media Server Logs/Plex Media Scanner.log": "scan 1\nscan 2\n",
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/diagnostics/logs", func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	})

	s := newToolServer(t, mux)

	envelope := callTool(t, s, "server_get_logs", map[string]interface{}{
		"logType":  "server",
		"numLines": 3,
	})

	data := envelopeData(t, envelope)
	assert.Equal(t, "Plex Media Server.log", data["logFile"])
	assert.Equal(t, float64(3), data["lineCount"])

	lines, ok := data["lines"].([]interface{})
	require.True(t, ok)
	require.Len(t, lines, 3)
	assert.Equal(t, "line 3", lines[0])
	assert.Equal(t, "line 5", lines[2])
}

func TestServerGetLogsScannerLogType(t *testing.T) {
	archive := logArchive(t, map[string]string{
		"Plex Media Server Logs/Plex Media Server.log":  "server line\n",
		"Plex Media Server Logs/Plex Media Scanner.log": "scan 1\nscan 2\n",
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/diagnostics/logs", func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	})

	s := newToolServer(t, mux)

	envelope := callTool(t, s, "server_get_logs", map[string]interface{}{
		"logType": "scanner",
	})

	data := envelopeData(t, envelope)
	assert.Equal(t, "Plex Media Scanner.log", data["logFile"])
	assert.Equal(t, float64(2), data["lineCount"])
}

func TestServerGetLogsBadArchive(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/diagnostics/logs", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not a zip")
	})

	s := newToolServer(t, mux)

	envelope := callTool(t, s, "server_get_logs", map[string]interface{}{})

	assert.Equal(t, "error", envelope["status"])
	assert.Contains(t, envelope["message"], "not a valid zip")
}

func TestSessionsGetHistoryFilteredByMedia(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/library/metadata/100", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, metadataResponse(plex.Metadata{RatingKey: "100", Type: "movie", Title: "Alien"}))
	})
	mux.HandleFunc("/status/sessions/history/all", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, metadataResponse(
			plex.Metadata{RatingKey: "100", Type: "movie", Title: "Alien", AccountID: 1, ViewedAt: 1700000200},
			plex.Metadata{RatingKey: "200", Type: "movie", Title: "Heat", AccountID: 1, ViewedAt: 1700000100},
		))
	})
	mux.HandleFunc("/accounts", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"MediaContainer":{"Account":[{"id":1,"name":"owner"}]}}`)
	})

	s := newToolServer(t, mux)

	envelope := callTool(t, s, "sessions_get_history", map[string]interface{}{
		"media": "100",
	})

	data := envelopeData(t, envelope)
	history, ok := data["history"].([]interface{})
	require.True(t, ok)
	require.Len(t, history, 1)

	entry := history[0].(map[string]interface{})
	assert.Equal(t, "Alien", entry["title"])
	assert.Equal(t, "owner", entry["user"])
}

func TestSessionsTerminateSendsReason(t *testing.T) {
	var captured map[string][]string

	mux := http.NewServeMux()
	mux.HandleFunc("/status/sessions/terminate", func(w http.ResponseWriter, r *http.Request) {
		captured = r.URL.Query()
	})

	s := newToolServer(t, mux)

	envelope := callTool(t, s, "sessions_terminate", map[string]interface{}{
		"sessionId": "abc123",
	})

	data := envelopeData(t, envelope)
	assert.Contains(t, data["message"], "abc123")
	require.NotNil(t, captured)
	assert.Equal(t, "abc123", captured["sessionId"][0])
	assert.Equal(t, "Session terminated by the server owner", captured["reason"][0])
}

func TestServerListDevices(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/devices", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"MediaContainer":{"Device":[{"id":5,"name":"Living Room","platform":"Roku","clientIdentifier":"roku-1","createdAt":1600000000}]}}`)
	})

	s := newToolServer(t, mux)

	envelope := callTool(t, s, "server_list_devices", map[string]interface{}{})

	data := envelopeData(t, envelope)
	devices, ok := data["devices"].([]interface{})
	require.True(t, ok)
	require.Len(t, devices, 1)

	device := devices[0].(map[string]interface{})
	assert.Equal(t, "Living Room", device["name"])
	assert.Equal(t, "roku-1", device["clientIdentifier"])
}
