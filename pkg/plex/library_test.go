package plex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSections(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/library/sections", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"MediaContainer":{"Directory":[
			{"key":"1","title":"Movies","type":"movie"},
			{"key":"2","title":"TV Shows","type":"show"}
		]}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", time.Second)
	sections, err := client.Sections(context.Background())

	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, "Movies", sections[0].Title)
	assert.Equal(t, "show", sections[1].Type)
}

func TestSectionContentsFilters(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/library/sections/1/all", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("type"))
		assert.Equal(t, "1", r.URL.Query().Get("unwatched"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"MediaContainer":{"totalSize":1,"Metadata":[
			{"ratingKey":"100","title":"Inception","type":"movie","year":2010}
		]}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", time.Second)
	items, total, err := client.SectionContents(context.Background(), "1", SectionContentsParams{
		Type:      "movie",
		Unwatched: true,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, 100, items[0].ID())
	assert.False(t, items[0].Watched())
}

func TestSearchFiltersByType(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/library/search", r.URL.Path)
		assert.Equal(t, "matrix", r.URL.Query().Get("query"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"MediaContainer":{"SearchResult":[
			{"score":0.9,"Metadata":{"ratingKey":"10","title":"The Matrix","type":"movie","year":1999}},
			{"score":0.5,"Metadata":{"ratingKey":"11","title":"The Matrix","type":"show"}}
		]}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", time.Second)
	results, err := client.Search(context.Background(), "matrix", "movie", 10)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "The Matrix", results[0].Title)
	assert.Equal(t, 1999, results[0].Year)
}

func TestEditMetadataBuildsSectionQuery(t *testing.T) {
	t.Parallel()

	var captured *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", time.Second)
	item := &Metadata{
		RatingKey:        "42",
		Type:             "movie",
		Title:            "Old Title",
		LibrarySectionID: 3,
	}

	err := client.EditMetadata(context.Background(), item, map[string]string{
		"title.value":  "New Title",
		"title.locked": "1",
	})

	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, http.MethodPut, captured.Method)
	assert.Equal(t, "/library/sections/3/all", captured.URL.Path)
	assert.Equal(t, "42", captured.URL.Query().Get("id"))
	assert.Equal(t, "1", captured.URL.Query().Get("type"))
	assert.Equal(t, "New Title", captured.URL.Query().Get("title.value"))
}

func TestRefreshSectionWithPath(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/library/sections/2/refresh", r.URL.Path)
		assert.Equal(t, "/media/tv", r.URL.Query().Get("path"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", time.Second)
	err := client.RefreshSection(context.Background(), "2", "/media/tv")

	assert.NoError(t, err)
}
