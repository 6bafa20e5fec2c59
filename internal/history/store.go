// Package history persists run summaries across invocations so trends and
// regressions are visible without an external service. Storage is an
// embedded Badger database accessed through badgerhold.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/runner"
)

// Store is the run-history database.
type Store struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	keep   int
}

// NewStore opens the history database at the configured path, creating the
// directory when missing.
func NewStore(config common.HistoryConfig, logger arbor.ILogger) (*Store, error) {
	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	logger.Debug().Str("path", config.Path).Msg("Opening history database")

	options := badgerhold.DefaultOptions
	options.Dir = config.Path
	options.ValueDir = config.Path
	options.Logger = nil // Disable default badger logger to use arbor

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	return &Store{
		store:  store,
		logger: logger,
		keep:   config.Keep,
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// SaveRun persists a run summary and prunes old runs past the retention
// limit.
func (s *Store) SaveRun(summary *runner.RunSummary) error {
	if summary.RunID == "" {
		return fmt.Errorf("run ID is required")
	}

	if err := s.store.Upsert(summary.RunID, summary); err != nil {
		return fmt.Errorf("failed to save run %s: %w", summary.RunID, err)
	}

	s.logger.Debug().Str("run_id", summary.RunID).Msg("Run summary saved to history")

	if s.keep > 0 {
		if err := s.prune(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to prune run history")
		}
	}
	return nil
}

// GetRun returns one run summary by ID.
func (s *Store) GetRun(runID string) (*runner.RunSummary, error) {
	var summary runner.RunSummary
	if err := s.store.Get(runID, &summary); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("run not found: %s", runID)
		}
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return &summary, nil
}

// ListRuns returns up to limit summaries, newest first. limit <= 0 returns
// all.
func (s *Store) ListRuns(limit int) ([]*runner.RunSummary, error) {
	var summaries []*runner.RunSummary
	query := badgerhold.Where("RunID").Ne("").SortBy("StartedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.store.Find(&summaries, query); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return summaries, nil
}

// ListByEnvironment returns summaries for one environment, newest first.
func (s *Store) ListByEnvironment(environment string, limit int) ([]*runner.RunSummary, error) {
	var summaries []*runner.RunSummary
	query := badgerhold.Where("Environment").Eq(environment).SortBy("StartedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.store.Find(&summaries, query); err != nil {
		return nil, fmt.Errorf("failed to list runs for %s: %w", environment, err)
	}
	return summaries, nil
}

// prune deletes the oldest runs beyond the retention limit.
func (s *Store) prune() error {
	var all []*runner.RunSummary
	if err := s.store.Find(&all, badgerhold.Where("RunID").Ne("")); err != nil {
		return err
	}
	if len(all) <= s.keep {
		return nil
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].StartedAt.Before(all[j].StartedAt)
	})

	for _, old := range all[:len(all)-s.keep] {
		if err := s.store.Delete(old.RunID, &runner.RunSummary{}); err != nil {
			return fmt.Errorf("failed to delete run %s: %w", old.RunID, err)
		}
		s.logger.Debug().Str("run_id", old.RunID).Msg("Pruned old run from history")
	}
	return nil
}
