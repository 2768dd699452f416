package livecoll

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultStorePath = "data/live_collections.json"

// Definition represents a persistent live collection rule: a saved
// search that keeps a Plex collection in sync with its results.
type Definition struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	CollectionID     int        `json:"collectionId"`
	SectionID        int        `json:"sectionId"`
	Query            string     `json:"query"`
	ContentType      string     `json:"contentType"`
	SyncStrategy     string     `json:"syncStrategy,omitempty"` // "add-only" or "full-sync"
	MaxResults       int        `json:"maxResults,omitempty"`
	Enabled          bool       `json:"enabled"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	LastRunAt        *time.Time `json:"lastRunAt,omitempty"`
	LastResultCount  int        `json:"lastResultCount,omitempty"`
	LastAddedCount   int        `json:"lastAddedCount,omitempty"`
	LastRemovedCount int        `json:"lastRemovedCount,omitempty"`
	LastRunError     string     `json:"lastRunError,omitempty"`
}

// Store manages live collection definitions persisted on disk.
type Store struct {
	mu     sync.RWMutex
	path   string
	defs   map[string]Definition
	byName map[string]string
	loaded bool
}

// NewStore creates a new store instance backed by the provided file path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = defaultStorePath
	}

	store := &Store{
		path:   path,
		defs:   make(map[string]Definition),
		byName: make(map[string]string),
	}

	if err := store.load(); err != nil {
		return nil, err
	}

	return store, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// load loads definitions from disk if present.
func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return nil
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.loaded = true
			return nil
		}
		return err
	}

	if len(data) == 0 {
		s.loaded = true
		return nil
	}

	var defs []Definition
	if err := json.Unmarshal(data, &defs); err != nil {
		return err
	}

	for _, def := range defs {
		s.defs[def.ID] = def
		if def.Name != "" {
			s.byName[strings.ToLower(def.Name)] = def.ID
		}
	}

	s.loaded = true
	return nil
}

// Save persists the definition, assigning IDs and timestamps as needed.
func (s *Store) Save(def Definition) (Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if def.ID == "" {
		def.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	if def.CreatedAt.IsZero() {
		def.CreatedAt = now
	}
	def.UpdatedAt = now

	s.defs[def.ID] = def
	if def.Name != "" {
		s.byName[strings.ToLower(def.Name)] = def.ID
	}

	if err := s.persistLocked(); err != nil {
		return Definition{}, err
	}

	return def, nil
}

// GetByID retrieves a definition by its ID.
func (s *Store) GetByID(id string) (Definition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.defs[id]
	return def, ok
}

// GetByName retrieves a definition by its name (case-insensitive).
func (s *Store) GetByName(name string) (Definition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if name == "" {
		return Definition{}, false
	}

	id, ok := s.byName[strings.ToLower(name)]
	if !ok {
		return Definition{}, false
	}

	def, ok := s.defs[id]
	return def, ok
}

// List returns all stored definitions sorted by name.
func (s *Store) List() []Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	defs := make([]Definition, 0, len(s.defs))
	for _, def := range s.defs {
		defs = append(defs, def)
	}

	sort.Slice(defs, func(i, j int) bool {
		return strings.ToLower(defs[i].Name) < strings.ToLower(defs[j].Name)
	})

	return defs
}

// persistLocked writes the current definitions to disk. Caller must hold write lock.
func (s *Store) persistLocked() error {
	defs := make([]Definition, 0, len(s.defs))
	for _, def := range s.defs {
		defs = append(defs, def)
	}

	sort.Slice(defs, func(i, j int) bool {
		return strings.ToLower(defs[i].Name) < strings.ToLower(defs[j].Name)
	})

	data, err := json.MarshalIndent(defs, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmpPath, s.path)
}

// Delete removes a definition by ID.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := s.defs[id]
	if !ok {
		return nil
	}

	delete(s.defs, id)
	if def.Name != "" {
		delete(s.byName, strings.ToLower(def.Name))
	}

	return s.persistLocked()
}
