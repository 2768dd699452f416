package livecoll

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/vladimir-tutin/plex-mcp-server/pkg/config"
	"github.com/vladimir-tutin/plex-mcp-server/pkg/plex"
)

// Scheduler manages periodic live collection updates
type Scheduler struct {
	cfg     *config.Config
	client  *plex.Client
	updater *Updater
	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// NewScheduler creates a new live collection scheduler
func NewScheduler(cfg *config.Config, client *plex.Client, store *Store) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		client:  client,
		updater: NewUpdater(client, store),
		cron:    cron.New(),
		running: false,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		log.Warn().Msg("Live collection scheduler already running")
		return nil
	}

	if !s.cfg.EnableLiveCollections {
		log.Info().Msg("Live collections disabled in configuration, scheduler not started")
		return nil
	}

	log.Info().
		Str("cron_expression", s.cfg.LiveCollectionUpdateCron).
		Str("sync_strategy", s.cfg.LiveCollectionSyncStrategy).
		Int("max_results", s.cfg.LiveCollectionMaxResults).
		Msg("Starting live collection scheduler")

	// Add cron job
	_, err := s.cron.AddFunc(s.cfg.LiveCollectionUpdateCron, func() {
		s.runUpdate()
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.running = true

	log.Info().Msg("Live collection scheduler started successfully")

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	log.Info().Msg("Stopping live collection scheduler")

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.running = false

	log.Info().Msg("Live collection scheduler stopped")
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunNow triggers an immediate update of all live collections
func (s *Scheduler) RunNow(ctx context.Context) ([]UpdateResult, error) {
	log.Info().Msg("Running live collection update on demand")
	return s.updater.UpdateAll(ctx)
}

// runUpdate is called by the cron scheduler
func (s *Scheduler) runUpdate() {
	ctx := context.Background()

	log.Info().Msg("Starting scheduled live collection update")

	results, err := s.updater.UpdateAll(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to update live collections")
		return
	}

	// Log summary
	successCount := 0
	errorCount := 0
	totalAdded := 0
	totalRemoved := 0

	for _, result := range results {
		if result.Error != nil {
			errorCount++
			log.Error().
				Err(result.Error).
				Str("definition_id", result.DefinitionID).
				Str("name", result.CollectionName).
				Msg("Failed to update live collection")
		} else {
			successCount++
			totalAdded += result.ItemsAdded
			totalRemoved += result.ItemsRemoved
		}
	}

	log.Info().
		Int("success", successCount).
		Int("errors", errorCount).
		Int("total_added", totalAdded).
		Int("total_removed", totalRemoved).
		Msg("Scheduled live collection update completed")
}
