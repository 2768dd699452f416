// Package resolve turns user-supplied names into concrete Plex
// entities. Lookups accept either a numeric ID, which is used
// directly, or a name, which is matched exactly first and fuzzily as a
// fallback. A lookup that matches several entities fails with an
// AmbiguousError listing every candidate so a caller can retry with an
// ID.
package resolve

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/vladimir-tutin/plex-mcp-server/pkg/plex"
)

// Match is a disambiguation stub describing one candidate entity.
type Match struct {
	Title string `json:"title"`
	ID    int    `json:"id"`
	Type  string `json:"type"`
	Year  int    `json:"year,omitempty"`
}

// NotFoundError reports that no entity matched a query.
type NotFoundError struct {
	Kind  string
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s matching %q", e.Kind, e.Query)
}

// AmbiguousError reports that several entities matched a query. It
// carries a stub for every candidate.
type AmbiguousError struct {
	Kind    string
	Query   string
	Matches []Match
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%d %ss match %q", len(e.Matches), e.Kind, e.Query)
}

// Resolver resolves names to entities against one Plex server.
type Resolver struct {
	client *plex.Client
}

// New creates a Resolver backed by the given client.
func New(client *plex.Client) *Resolver {
	return &Resolver{client: client}
}

// Item resolves a media item by numeric rating key or title.
// contentType, when set, restricts name matching to one item type.
func (r *Resolver) Item(ctx context.Context, ref, contentType string) (*plex.Metadata, error) {
	if id, ok := numericID(ref); ok {
		return r.client.FetchMetadata(ctx, id)
	}

	candidates, err := r.client.Search(ctx, ref, contentType, 50)
	if err != nil {
		return nil, err
	}

	kind := contentType
	if kind == "" {
		kind = "item"
	}
	return pick(kind, ref, candidates)
}

// Library resolves a library section by key or title.
func (r *Resolver) Library(ctx context.Context, ref string) (*plex.Directory, error) {
	sections, err := r.client.Sections(ctx)
	if err != nil {
		return nil, err
	}

	if _, ok := numericID(ref); ok {
		for i := range sections {
			if sections[i].Key == ref {
				return &sections[i], nil
			}
		}
		return nil, &NotFoundError{Kind: "library", Query: ref}
	}

	var exact, fuzzy []plex.Directory
	for _, section := range sections {
		switch {
		case strings.EqualFold(section.Title, ref):
			exact = append(exact, section)
		case containsFold(section.Title, ref):
			fuzzy = append(fuzzy, section)
		}
	}

	if len(exact) == 1 {
		section := exact[0]
		return &section, nil
	}

	candidates := exact
	if len(candidates) == 0 {
		candidates = fuzzy
	}

	switch len(candidates) {
	case 0:
		return nil, &NotFoundError{Kind: "library", Query: ref}
	case 1:
		section := candidates[0]
		return &section, nil
	default:
		matches := make([]Match, len(candidates))
		for i, section := range candidates {
			id, _ := strconv.Atoi(section.Key)
			matches[i] = Match{Title: section.Title, ID: id, Type: section.Type}
		}
		return nil, &AmbiguousError{Kind: "library", Query: ref, Matches: matches}
	}
}

// Playlist resolves a playlist by rating key or title.
func (r *Resolver) Playlist(ctx context.Context, ref, playlistType string) (*plex.Metadata, error) {
	if id, ok := numericID(ref); ok {
		return r.client.FetchMetadata(ctx, id)
	}

	playlists, err := r.client.Playlists(ctx, playlistType)
	if err != nil {
		return nil, err
	}

	return pick("playlist", ref, narrowByTitle(playlists, ref))
}

// Collection resolves a collection by rating key or title. With
// sectionKey empty every section is searched.
func (r *Resolver) Collection(ctx context.Context, ref, sectionKey string) (*plex.Metadata, error) {
	if id, ok := numericID(ref); ok {
		return r.client.FetchMetadata(ctx, id)
	}

	if sectionKey != "" {
		collections, err := r.client.Collections(ctx, sectionKey)
		if err != nil {
			return nil, err
		}
		return pick("collection", ref, narrowByTitle(collections, ref))
	}

	sections, err := r.client.Sections(ctx)
	if err != nil {
		return nil, err
	}

	var collections []plex.Metadata
	for _, section := range sections {
		sectionCollections, err := r.client.Collections(ctx, section.Key)
		if err != nil {
			return nil, err
		}
		collections = append(collections, sectionCollections...)
	}

	return pick("collection", ref, narrowByTitle(collections, ref))
}

// Account resolves a server-local account by ID or name.
func (r *Resolver) Account(ctx context.Context, ref string) (*plex.SystemAccount, error) {
	if id, ok := numericID(ref); ok {
		return r.client.SystemAccount(ctx, id)
	}

	accounts, err := r.client.SystemAccounts(ctx)
	if err != nil {
		return nil, err
	}

	var exact, fuzzy []plex.SystemAccount
	for _, account := range accounts {
		switch {
		case strings.EqualFold(account.Name, ref):
			exact = append(exact, account)
		case containsFold(account.Name, ref):
			fuzzy = append(fuzzy, account)
		}
	}

	if len(exact) == 1 {
		account := exact[0]
		return &account, nil
	}

	candidates := exact
	if len(candidates) == 0 {
		candidates = fuzzy
	}

	switch len(candidates) {
	case 0:
		return nil, &NotFoundError{Kind: "user", Query: ref}
	case 1:
		account := candidates[0]
		return &account, nil
	default:
		matches := make([]Match, len(candidates))
		for i, account := range candidates {
			matches[i] = Match{Title: account.Name, ID: account.ID, Type: "account"}
		}
		return nil, &AmbiguousError{Kind: "user", Query: ref, Matches: matches}
	}
}

// Player resolves a controllable player by name or machine identifier.
func (r *Resolver) Player(ctx context.Context, ref string) (*plex.PlayerClient, error) {
	players, err := r.client.Clients(ctx)
	if err != nil {
		return nil, err
	}

	for i := range players {
		if players[i].MachineIdentifier == ref {
			return &players[i], nil
		}
	}

	var exact, fuzzy []plex.PlayerClient
	for _, player := range players {
		switch {
		case strings.EqualFold(player.Name, ref):
			exact = append(exact, player)
		case containsFold(player.Name, ref):
			fuzzy = append(fuzzy, player)
		}
	}

	if len(exact) == 1 {
		player := exact[0]
		return &player, nil
	}

	candidates := exact
	if len(candidates) == 0 {
		candidates = fuzzy
	}

	switch len(candidates) {
	case 0:
		return nil, &NotFoundError{Kind: "client", Query: ref}
	case 1:
		player := candidates[0]
		return &player, nil
	default:
		matches := make([]Match, len(candidates))
		for i, player := range candidates {
			matches[i] = Match{Title: player.Name, Type: "client"}
		}
		return nil, &AmbiguousError{Kind: "client", Query: ref, Matches: matches}
	}
}

// pick applies the shared selection policy to metadata candidates: a
// single exact title match wins, a single candidate of any kind wins,
// zero candidates is not found and anything else is ambiguous.
func pick(kind, query string, candidates []plex.Metadata) (*plex.Metadata, error) {
	var exact []plex.Metadata
	for _, item := range candidates {
		if strings.EqualFold(item.Title, query) {
			exact = append(exact, item)
		}
	}
	if len(exact) == 1 {
		item := exact[0]
		return &item, nil
	}
	if len(exact) > 1 {
		candidates = exact
	}

	switch len(candidates) {
	case 0:
		return nil, &NotFoundError{Kind: kind, Query: query}
	case 1:
		item := candidates[0]
		return &item, nil
	default:
		matches := make([]Match, len(candidates))
		for i, item := range candidates {
			matches[i] = Match{
				Title: item.Title,
				ID:    item.ID(),
				Type:  item.Type,
				Year:  item.Year,
			}
		}
		return nil, &AmbiguousError{Kind: kind, Query: query, Matches: matches}
	}
}

// narrowByTitle keeps candidates whose title contains the query,
// case-insensitively. Exact matches survive the filter too, so pick
// can still prefer them.
func narrowByTitle(items []plex.Metadata, query string) []plex.Metadata {
	var kept []plex.Metadata
	for _, item := range items {
		if containsFold(item.Title, query) {
			kept = append(kept, item)
		}
	}
	return kept
}

func numericID(ref string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(ref))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
