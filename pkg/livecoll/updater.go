package livecoll

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vladimir-tutin/plex-mcp-server/pkg/plex"
)

// UpdateResult contains the result of one collection update
type UpdateResult struct {
	DefinitionID   string
	CollectionID   int
	CollectionName string
	ItemsAdded     int
	ItemsRemoved   int
	TotalItems     int
	UpdatedAt      time.Time
	Error          error
}

// Updater re-runs each definition's saved search and reconciles the
// backing collection with the results.
type Updater struct {
	client *plex.Client
	store  *Store
}

// NewUpdater creates a new live collection updater
func NewUpdater(client *plex.Client, store *Store) *Updater {
	return &Updater{
		client: client,
		store:  store,
	}
}

// UpdateDefinition updates a single live collection
func (u *Updater) UpdateDefinition(ctx context.Context, def Definition) UpdateResult {
	result := UpdateResult{
		DefinitionID:   def.ID,
		CollectionID:   def.CollectionID,
		CollectionName: def.Name,
		UpdatedAt:      time.Now(),
	}

	if !def.Enabled {
		log.Debug().
			Str("definition_id", def.ID).
			Str("name", def.Name).
			Msg("Live collection disabled, skipping")
		return result
	}

	log.Info().
		Str("definition_id", def.ID).
		Str("name", def.Name).
		Str("query", def.Query).
		Str("sync_strategy", def.SyncStrategy).
		Msg("Updating live collection")

	currentItems, err := u.client.CollectionItems(ctx, def.CollectionID)
	if err != nil {
		result.Error = fmt.Errorf("failed to get current collection items: %w", err)
		return u.record(def, result)
	}

	currentIDs := make(map[int]bool)
	for _, item := range currentItems {
		currentIDs[item.ID()] = true
	}

	maxResults := def.MaxResults
	if maxResults <= 0 {
		maxResults = 500
	}
	matches, err := u.client.Search(ctx, def.Query, def.ContentType, maxResults)
	if err != nil {
		result.Error = fmt.Errorf("failed to run search: %w", err)
		return u.record(def, result)
	}

	newIDs := make(map[int]bool)
	for _, item := range matches {
		if id := item.ID(); id > 0 {
			newIDs[id] = true
		}
	}

	var toAdd []int
	for id := range newIDs {
		if !currentIDs[id] {
			toAdd = append(toAdd, id)
		}
	}

	if len(toAdd) > 0 {
		log.Info().
			Int("collection_id", def.CollectionID).
			Int("count", len(toAdd)).
			Msg("Adding items to collection")

		if err := u.client.AddCollectionItems(ctx, def.CollectionID, toAdd); err != nil {
			result.Error = fmt.Errorf("failed to add items: %w", err)
			return u.record(def, result)
		}
		result.ItemsAdded = len(toAdd)
	}

	if def.SyncStrategy == "full-sync" {
		for id := range currentIDs {
			if newIDs[id] {
				continue
			}
			if err := u.client.RemoveCollectionItem(ctx, def.CollectionID, id); err != nil {
				result.Error = fmt.Errorf("failed to remove item %d: %w", id, err)
				return u.record(def, result)
			}
			result.ItemsRemoved++
		}
		if result.ItemsRemoved > 0 {
			log.Info().
				Int("collection_id", def.CollectionID).
				Int("count", result.ItemsRemoved).
				Msg("Removed items from collection (full-sync mode)")
		}
	}

	result.TotalItems = len(newIDs)

	log.Info().
		Str("definition_id", def.ID).
		Str("name", def.Name).
		Int("added", result.ItemsAdded).
		Int("removed", result.ItemsRemoved).
		Int("total", result.TotalItems).
		Msg("Live collection update completed")

	return u.record(def, result)
}

// UpdateAll updates every stored live collection
func (u *Updater) UpdateAll(ctx context.Context) ([]UpdateResult, error) {
	defs := u.store.List()

	results := make([]UpdateResult, 0, len(defs))
	for _, def := range defs {
		results = append(results, u.UpdateDefinition(ctx, def))
	}

	log.Info().
		Int("definitions", len(defs)).
		Int("updated", len(results)).
		Msg("Completed live collection update cycle")

	return results, nil
}

// record writes run outcome back to the stored definition.
func (u *Updater) record(def Definition, result UpdateResult) UpdateResult {
	now := time.Now().UTC()
	def.LastRunAt = &now
	def.LastResultCount = result.TotalItems
	def.LastAddedCount = result.ItemsAdded
	def.LastRemovedCount = result.ItemsRemoved
	def.LastRunError = ""
	if result.Error != nil {
		def.LastRunError = result.Error.Error()
	}

	if _, err := u.store.Save(def); err != nil {
		log.Error().Err(err).Str("definition_id", def.ID).Msg("Failed to persist live collection state")
	}

	return result
}
