package resolve

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladimir-tutin/plex-mcp-server/pkg/plex"
)

func newTestResolver(t *testing.T, handler http.Handler) *Resolver {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(plex.NewClient(server.URL, "test-token", time.Second))
}

func searchHandler(t *testing.T, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/library/search", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
}

func TestItemExactMatchWinsOverFuzzy(t *testing.T) {
	t.Parallel()

	resolver := newTestResolver(t, searchHandler(t, `{"MediaContainer":{"SearchResult":[
		{"Metadata":{"ratingKey":"1","title":"Alien","type":"movie","year":1979}},
		{"Metadata":{"ratingKey":"2","title":"Aliens","type":"movie","year":1986}},
		{"Metadata":{"ratingKey":"3","title":"Alien: Covenant","type":"movie","year":2017}}
	]}}`))

	item, err := resolver.Item(context.Background(), "alien", "movie")

	require.NoError(t, err)
	assert.Equal(t, 1, item.ID())
	assert.Equal(t, "Alien", item.Title)
}

func TestItemZeroCandidatesNotFound(t *testing.T) {
	t.Parallel()

	resolver := newTestResolver(t, searchHandler(t, `{"MediaContainer":{"SearchResult":[]}}`))

	_, err := resolver.Item(context.Background(), "No Such Movie", "movie")

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "No Such Movie", notFound.Query)
}

func TestItemAmbiguousListsEveryCandidate(t *testing.T) {
	t.Parallel()

	resolver := newTestResolver(t, searchHandler(t, `{"MediaContainer":{"SearchResult":[
		{"Metadata":{"ratingKey":"10","title":"Dune Part One","type":"movie","year":2021}},
		{"Metadata":{"ratingKey":"11","title":"Dune Part Two","type":"movie","year":2024}},
		{"Metadata":{"ratingKey":"12","title":"Dune World","type":"movie","year":2021}}
	]}}`))

	_, err := resolver.Item(context.Background(), "dune", "movie")

	var ambiguous *AmbiguousError
	require.ErrorAs(t, err, &ambiguous)
	require.Len(t, ambiguous.Matches, 3)
	for _, match := range ambiguous.Matches {
		assert.NotEmpty(t, match.Title)
		assert.NotZero(t, match.ID)
		assert.Equal(t, "movie", match.Type)
		assert.NotZero(t, match.Year)
	}
}

func TestItemMultipleExactMatchesAmbiguous(t *testing.T) {
	t.Parallel()

	resolver := newTestResolver(t, searchHandler(t, `{"MediaContainer":{"SearchResult":[
		{"Metadata":{"ratingKey":"20","title":"Hamlet","type":"movie","year":1990}},
		{"Metadata":{"ratingKey":"21","title":"Hamlet","type":"movie","year":1996}},
		{"Metadata":{"ratingKey":"22","title":"Hamlet 2","type":"movie","year":2008}}
	]}}`))

	_, err := resolver.Item(context.Background(), "Hamlet", "movie")

	var ambiguous *AmbiguousError
	require.ErrorAs(t, err, &ambiguous)
	require.Len(t, ambiguous.Matches, 2)
	assert.Equal(t, "Hamlet", ambiguous.Matches[0].Title)
	assert.Equal(t, "Hamlet", ambiguous.Matches[1].Title)
}

func TestItemNumericIDBypassesSearch(t *testing.T) {
	t.Parallel()

	searched := false
	mux := http.NewServeMux()
	mux.HandleFunc("/library/search", func(w http.ResponseWriter, r *http.Request) {
		searched = true
		http.Error(w, "should not search", http.StatusInternalServerError)
	})
	mux.HandleFunc("/library/metadata/42", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"MediaContainer":{"Metadata":[
			{"ratingKey":"42","title":"Blade Runner","type":"movie","year":1982}
		]}}`))
	})
	resolver := newTestResolver(t, mux)

	item, err := resolver.Item(context.Background(), "42", "")

	require.NoError(t, err)
	assert.Equal(t, "Blade Runner", item.Title)
	assert.False(t, searched)
}

func TestItemSingleFuzzyCandidateWins(t *testing.T) {
	t.Parallel()

	resolver := newTestResolver(t, searchHandler(t, `{"MediaContainer":{"SearchResult":[
		{"Metadata":{"ratingKey":"30","title":"The Grand Budapest Hotel","type":"movie","year":2014}}
	]}}`))

	item, err := resolver.Item(context.Background(), "budapest", "movie")

	require.NoError(t, err)
	assert.Equal(t, 30, item.ID())
}

func TestLibraryResolvesByTitleAndKey(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/library/sections", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"MediaContainer":{"Directory":[
			{"key":"1","title":"Movies","type":"movie"},
			{"key":"2","title":"Movies 4K","type":"movie"},
			{"key":"3","title":"TV Shows","type":"show"}
		]}}`))
	})
	resolver := newTestResolver(t, mux)

	byTitle, err := resolver.Library(context.Background(), "movies")
	require.NoError(t, err)
	assert.Equal(t, "1", byTitle.Key)

	byKey, err := resolver.Library(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, "TV Shows", byKey.Title)

	_, err = resolver.Library(context.Background(), "music")
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestPlaylistFuzzyAmbiguous(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/playlists", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"MediaContainer":{"Metadata":[
			{"ratingKey":"100","title":"Workout Mix","type":"playlist"},
			{"ratingKey":"101","title":"Morning Workout","type":"playlist"},
			{"ratingKey":"102","title":"Chill","type":"playlist"}
		]}}`))
	})
	resolver := newTestResolver(t, mux)

	_, err := resolver.Playlist(context.Background(), "workout", "")

	var ambiguous *AmbiguousError
	require.ErrorAs(t, err, &ambiguous)
	assert.Len(t, ambiguous.Matches, 2)
}

func TestAccountExactBeatsSubstring(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/accounts", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"MediaContainer":{"Account":[
			{"id":1,"name":"sam"},
			{"id":2,"name":"samantha"}
		]}}`))
	})
	resolver := newTestResolver(t, mux)

	account, err := resolver.Account(context.Background(), "sam")

	require.NoError(t, err)
	assert.Equal(t, 1, account.ID)
}

func TestPlayerByMachineIdentifier(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/clients", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"MediaContainer":{"Server":[
			{"name":"Living Room","machineIdentifier":"abc-123"},
			{"name":"Bedroom","machineIdentifier":"def-456"}
		]}}`))
	})
	resolver := newTestResolver(t, mux)

	player, err := resolver.Player(context.Background(), "def-456")

	require.NoError(t, err)
	assert.Equal(t, "Bedroom", player.Name)
}

func TestErrorTypesAreDistinct(t *testing.T) {
	t.Parallel()

	notFound := &NotFoundError{Kind: "movie", Query: "x"}
	ambiguous := &AmbiguousError{Kind: "movie", Query: "x", Matches: []Match{{Title: "A"}, {Title: "B"}}}

	var asNotFound *NotFoundError
	assert.False(t, errors.As(error(ambiguous), &asNotFound))
	assert.Contains(t, notFound.Error(), "no movie")
	assert.Contains(t, ambiguous.Error(), "2 movies")
}
