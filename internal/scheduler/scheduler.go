// Package scheduler triggers runs on a cron expression for unattended
// regression monitoring. Overlapping executions are suppressed; a tick that
// arrives while a run is in flight is skipped.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// RunFunc executes one full run. The bool reports whether all cases passed.
type RunFunc func(ctx context.Context) (bool, error)

// Scheduler executes a RunFunc on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	logger  arbor.ILogger
	run     RunFunc
	mu      sync.Mutex
	running bool
}

// New creates a Scheduler around run.
func New(run RunFunc, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
		run:    run,
	}
}

// Start registers the schedule and begins ticking. The expression uses
// standard five-field cron syntax.
func (s *Scheduler) Start(ctx context.Context, expression string) error {
	_, err := s.cron.AddFunc(expression, func() { s.tick(ctx) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expression, err)
	}

	s.logger.Info().Str("schedule", expression).Msg("Scheduler started")
	s.cron.Start()
	return nil
}

// Stop halts the schedule and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn().Msg("Previous run still in progress, skipping scheduled run")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ok, err := s.run(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled run failed to execute")
		return
	}
	if !ok {
		s.logger.Warn().Msg("Scheduled run completed with failures")
	}
}
