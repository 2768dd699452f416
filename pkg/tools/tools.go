package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	gocache "github.com/patrickmn/go-cache"

	"github.com/vladimir-tutin/plex-mcp-server/pkg/config"
	"github.com/vladimir-tutin/plex-mcp-server/pkg/livecoll"
	"github.com/vladimir-tutin/plex-mcp-server/pkg/plex"
	"github.com/vladimir-tutin/plex-mcp-server/pkg/resolve"
)

// Deps bundles what the tool handlers need.
type Deps struct {
	Config    *config.Config
	Client    *plex.Client
	Account   *plex.Account
	Resolver  *resolve.Resolver
	Cache     *gocache.Cache
	Store     *livecoll.Store
	Scheduler *livecoll.Scheduler
}

// RegisterTools registers all tools with the MCP server
func RegisterTools(s *server.MCPServer, deps Deps) {
	// Library tools
	registerLibraryList(s, deps)
	registerLibraryGetDetails(s, deps)
	registerLibraryGetStats(s, deps)
	registerLibraryGetContents(s, deps)
	registerLibraryGetRecentlyAdded(s, deps)
	registerLibraryRefresh(s, deps)
	registerLibraryScan(s, deps)

	// Media tools
	registerMediaSearch(s, deps)
	registerMediaGetDetails(s, deps)
	registerMediaEditMetadata(s, deps)
	registerMediaDelete(s, deps)
	registerMediaListArtwork(s, deps)
	registerMediaSetArtwork(s, deps)

	// Playlist tools
	registerPlaylistList(s, deps)
	registerPlaylistGetContents(s, deps)
	registerPlaylistCreate(s, deps)
	registerPlaylistAddItems(s, deps)
	registerPlaylistRemoveItems(s, deps)
	registerPlaylistDelete(s, deps)

	// Collection tools
	registerCollectionList(s, deps)
	registerCollectionGetContents(s, deps)
	registerCollectionCreate(s, deps)
	registerCollectionAddItems(s, deps)
	registerCollectionRemoveItems(s, deps)
	registerCollectionEdit(s, deps)
	registerCollectionDelete(s, deps)

	// Live collection tools
	if deps.Store != nil {
		registerCollectionCreateLive(s, deps)
		registerCollectionListLive(s, deps)
		registerCollectionRefreshLive(s, deps)
		registerCollectionDisableLive(s, deps)
	}

	// User tools
	registerUserSearch(s, deps)
	registerUserGetInfo(s, deps)
	registerUserGetOnDeck(s, deps)
	registerUserGetWatchHistory(s, deps)
	if deps.Account != nil {
		registerUserListFriends(s, deps)
	}

	// Session tools
	registerSessionsGetActive(s, deps)
	registerSessionsGetHistory(s, deps)
	registerSessionsTerminate(s, deps)

	// Server tools
	registerServerGetInfo(s, deps)
	registerServerListButlerTasks(s, deps)
	registerServerRunButlerTask(s, deps)
	registerServerStopButlerTask(s, deps)
	registerServerListDevices(s, deps)
	registerServerGetBandwidth(s, deps)
	registerServerGetResources(s, deps)
	registerServerGetLogs(s, deps)
	registerServerGetAlerts(s, deps)

	// Client tools
	registerClientList(s, deps)
	registerClientGetDetails(s, deps)
	registerClientGetActive(s, deps)
	registerClientGetTimelines(s, deps)
	registerClientStartPlayback(s, deps)
	registerClientControlPlayback(s, deps)
	registerClientNavigate(s, deps)
	registerClientSetStreams(s, deps)
}

// decodeArgs unmarshals the tool call arguments into params.
func decodeArgs(request mcp.CallToolRequest, params interface{}) error {
	argBytes, ok := request.Params.Arguments.([]byte)
	if !ok {
		// Try to marshal if it's already a structured type
		argBytes, _ = json.Marshal(request.Params.Arguments)
	}
	if err := json.Unmarshal(argBytes, params); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}

func makeMCPResult(data interface{}) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(string(content)), nil
}

// successResult wraps tool output in the uniform response envelope.
func successResult(data interface{}) (*mcp.CallToolResult, error) {
	return makeMCPResult(map[string]interface{}{
		"status": "success",
		"data":   data,
	})
}

// errorResult reports a failure in the uniform response envelope.
func errorResult(message string) (*mcp.CallToolResult, error) {
	return makeMCPResult(map[string]interface{}{
		"status":  "error",
		"message": message,
	})
}

// errorResultf is errorResult with formatting.
func errorResultf(format string, args ...interface{}) (*mcp.CallToolResult, error) {
	return errorResult(fmt.Sprintf(format, args...))
}

// resolveFailure converts a resolver error into an envelope. An
// ambiguous lookup is not a failure: the caller gets every candidate
// back so it can retry with an id.
func resolveFailure(err error) (*mcp.CallToolResult, error) {
	var ambiguous *resolve.AmbiguousError
	if errors.As(err, &ambiguous) {
		return makeMCPResult(map[string]interface{}{
			"status": "success",
			"data": map[string]interface{}{
				"message": fmt.Sprintf("Multiple %ss match %q. Retry with one of the listed ids.",
					ambiguous.Kind, ambiguous.Query),
				"matches": ambiguous.Matches,
			},
		})
	}

	var notFound *resolve.NotFoundError
	if errors.As(err, &notFound) {
		return errorResult(notFound.Error())
	}

	return errorResult(err.Error())
}

// itemSummary flattens one library item for listing output.
func itemSummary(item plex.Metadata) map[string]interface{} {
	summary := map[string]interface{}{
		"id":    item.ID(),
		"title": item.Title,
		"type":  item.Type,
	}
	if item.Year > 0 {
		summary["year"] = item.Year
	}
	if item.GrandparentTitle != "" {
		summary["show"] = item.GrandparentTitle
	}
	if item.ParentTitle != "" {
		summary["parent"] = item.ParentTitle
	}
	if item.Index > 0 {
		summary["index"] = item.Index
	}
	if item.Type == "movie" || item.Type == "episode" {
		summary["watched"] = item.Watched()
	}
	if item.PlaylistItemID > 0 {
		summary["playlistItemId"] = item.PlaylistItemID
	}
	if item.LeafCount > 0 {
		summary["itemCount"] = item.LeafCount
	}
	if item.ChildCount > 0 {
		summary["childCount"] = item.ChildCount
	}
	return summary
}

func itemSummaries(items []plex.Metadata) []map[string]interface{} {
	summaries := make([]map[string]interface{}, len(items))
	for i, item := range items {
		summaries[i] = itemSummary(item)
	}
	return summaries
}

// itemDetails flattens one library item with its full attribute set.
func itemDetails(item *plex.Metadata) map[string]interface{} {
	details := itemSummary(*item)

	if item.Summary != "" {
		details["summary"] = item.Summary
	}
	if item.Rating > 0 {
		details["rating"] = item.Rating
	}
	if item.UserRating > 0 {
		details["userRating"] = item.UserRating
	}
	if item.ContentRating != "" {
		details["contentRating"] = item.ContentRating
	}
	if item.Studio != "" {
		details["studio"] = item.Studio
	}
	if item.Duration > 0 {
		details["durationMs"] = item.Duration
	}
	if item.OriginallyAvailableAt != "" {
		details["originallyAvailableAt"] = item.OriginallyAvailableAt
	}
	if item.AddedAt > 0 {
		details["addedAt"] = item.AddedAt
	}
	if item.ViewCount > 0 {
		details["viewCount"] = item.ViewCount
	}
	if item.LibrarySectionTitle != "" {
		details["library"] = item.LibrarySectionTitle
	}
	if len(item.Genre) > 0 {
		details["genres"] = tagNames(item.Genre)
	}
	if len(item.Director) > 0 {
		details["directors"] = tagNames(item.Director)
	}
	if len(item.Writer) > 0 {
		details["writers"] = tagNames(item.Writer)
	}
	if len(item.Role) > 0 {
		details["actors"] = tagNames(item.Role)
	}
	if len(item.Label) > 0 {
		details["labels"] = tagNames(item.Label)
	}
	if len(item.Media) > 0 {
		media := item.Media[0]
		details["resolution"] = media.VideoResolution
		details["container"] = media.Container
		details["videoCodec"] = media.VideoCodec
		details["audioCodec"] = media.AudioCodec
	}

	return details
}

// matchesRef reports whether a container entry matches a user
// reference, by numeric id or case-insensitive title.
func matchesRef(item plex.Metadata, ref string) bool {
	if item.RatingKey == strings.TrimSpace(ref) {
		return true
	}
	return strings.EqualFold(item.Title, ref)
}

func tagNames(tags []plex.Tag) []string {
	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = tag.Tag
	}
	return names
}
