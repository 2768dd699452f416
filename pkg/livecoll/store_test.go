package livecoll

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladimir-tutin/plex-mcp-server/pkg/plex"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "live_collections.json"))
	require.NoError(t, err)
	return store
}

func TestStoreSaveAssignsIDAndTimestamps(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	saved, err := store.Save(Definition{
		Name:         "80s Action",
		CollectionID: 600,
		Query:        "action",
		ContentType:  "movie",
		Enabled:      true,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.False(t, saved.UpdatedAt.IsZero())
}

func TestStoreRoundTripsThroughDisk(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "live_collections.json")
	store, err := NewStore(path)
	require.NoError(t, err)

	saved, err := store.Save(Definition{Name: "Noir", CollectionID: 601, Query: "noir", Enabled: true})
	require.NoError(t, err)

	reopened, err := NewStore(path)
	require.NoError(t, err)

	byID, ok := reopened.GetByID(saved.ID)
	require.True(t, ok)
	assert.Equal(t, "Noir", byID.Name)

	byName, ok := reopened.GetByName("noir")
	require.True(t, ok)
	assert.Equal(t, saved.ID, byName.ID)
}

func TestStoreListSortedByName(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	for _, name := range []string{"Zulu", "alpha", "Mid"} {
		_, err := store.Save(Definition{Name: name, CollectionID: 1, Enabled: true})
		require.NoError(t, err)
	}

	defs := store.List()

	require.Len(t, defs, 3)
	assert.Equal(t, "alpha", defs[0].Name)
	assert.Equal(t, "Mid", defs[1].Name)
	assert.Equal(t, "Zulu", defs[2].Name)
}

func TestStoreDelete(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	saved, err := store.Save(Definition{Name: "Temp", CollectionID: 5, Enabled: true})
	require.NoError(t, err)

	require.NoError(t, store.Delete(saved.ID))

	_, ok := store.GetByID(saved.ID)
	assert.False(t, ok)
	_, ok = store.GetByName("Temp")
	assert.False(t, ok)
}

func TestUpdaterAddsMissingItems(t *testing.T) {
	t.Parallel()

	var addedURI string
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"MediaContainer":{"machineIdentifier":"machine-1"}}`))
	})
	mux.HandleFunc("/library/collections/600/children", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"MediaContainer":{"Metadata":[
			{"ratingKey":"10","title":"Die Hard","type":"movie"}
		]}}`))
	})
	mux.HandleFunc("/library/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"MediaContainer":{"SearchResult":[
			{"Metadata":{"ratingKey":"10","title":"Die Hard","type":"movie"}},
			{"Metadata":{"ratingKey":"11","title":"Predator","type":"movie"}}
		]}}`))
	})
	mux.HandleFunc("/library/collections/600/items", func(w http.ResponseWriter, r *http.Request) {
		addedURI = r.URL.Query().Get("uri")
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := newTestStore(t)
	def, err := store.Save(Definition{
		Name:         "80s Action",
		CollectionID: 600,
		Query:        "action",
		ContentType:  "movie",
		SyncStrategy: "add-only",
		Enabled:      true,
	})
	require.NoError(t, err)

	client := plex.NewClient(server.URL, "test-token", time.Second)
	updater := NewUpdater(client, store)

	result := updater.UpdateDefinition(context.Background(), def)

	require.NoError(t, result.Error)
	assert.Equal(t, 1, result.ItemsAdded)
	assert.Equal(t, 0, result.ItemsRemoved)
	assert.Equal(t, 2, result.TotalItems)
	assert.Contains(t, addedURI, "library/metadata/11")

	stored, ok := store.GetByID(def.ID)
	require.True(t, ok)
	require.NotNil(t, stored.LastRunAt)
	assert.Equal(t, 1, stored.LastAddedCount)
	assert.Empty(t, stored.LastRunError)
}

func TestUpdaterSkipsDisabledDefinition(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	def, err := store.Save(Definition{Name: "Paused", CollectionID: 1, Query: "x", Enabled: false})
	require.NoError(t, err)

	client := plex.NewClient("http://localhost:1", "test-token", time.Second)
	updater := NewUpdater(client, store)

	result := updater.UpdateDefinition(context.Background(), def)

	assert.NoError(t, result.Error)
	assert.Zero(t, result.ItemsAdded)
}
