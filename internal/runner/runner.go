package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/probo/internal/common"
)

// Runner executes registered suites against the active environment.
type Runner struct {
	config   *common.Config
	logger   arbor.ILogger
	suites   []Suite
	reporter *ConsoleReporter
}

// New creates a Runner. Suites are registered afterwards with Register.
func New(config *common.Config, logger arbor.ILogger) *Runner {
	return &Runner{
		config:   config,
		logger:   logger,
		reporter: NewConsoleReporter(),
	}
}

// Register adds a suite to the run. Suites execute in registration order per
// worker, cases fan out across workers.
func (r *Runner) Register(suite Suite) {
	r.suites = append(r.suites, suite)
}

// scheduledCase is a selected case paired with its suite name.
type scheduledCase struct {
	suite string
	c     Case
}

// Run executes every case passing filters and returns the aggregated
// summary. The summary is always returned, also when cases failed; the error
// covers run-level problems such as an unusable results directory.
func (r *Runner) Run(ctx context.Context, filters Filters) (*RunSummary, error) {
	profile, err := r.config.ActiveProfile()
	if err != nil {
		return nil, err
	}

	runID := common.NewRunID()
	startedAt := time.Now()

	resultsDir := filepath.Join(r.config.Output.ResultsDir, startedAt.Format("20060102-150405"))
	if err := os.MkdirAll(resultsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}

	selected, skipped := r.selectCases(filters)

	r.logger.Info().
		Str("run_id", runID).
		Str("environment", r.config.Environment).
		Int("selected", len(selected)).
		Int("skipped", len(skipped)).
		Int("workers", r.config.Runner.Workers).
		Msg("Starting run")

	r.reporter.RunStarted(runID, r.config.Environment, len(selected))

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	work := make(chan scheduledCase)
	var mu sync.Mutex
	var results []CaseResult

	g, gctx := errgroup.WithContext(runCtx)
	for i := 0; i < r.config.Runner.Workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case sc, ok := <-work:
					if !ok {
						return nil
					}
					result := r.runCase(gctx, runID, profile, resultsDir, sc)
					r.reporter.CaseFinished(result)

					mu.Lock()
					results = append(results, result)
					mu.Unlock()

					if result.Status == StatusFailed && r.config.Runner.StopOnFirst {
						cancelRun()
					}
				}
			}
		})
	}

	// Cases still queued when the run is cancelled (StopOnFirst, interrupt)
	// are recorded as skipped so the summary covers every selected case.
	var undispatched []scheduledCase
	for i, sc := range selected {
		select {
		case work <- sc:
		case <-gctx.Done():
			undispatched = selected[i:]
		}
		if undispatched != nil {
			break
		}
	}
	close(work)

	// Worker errors are only context cancellations; results carry the
	// per-case outcomes.
	_ = g.Wait()

	skipped = append(skipped, undispatched...)
	for _, sc := range skipped {
		results = append(results, CaseResult{
			Suite:     sc.suite,
			Name:      sc.c.Name,
			Status:    StatusSkipped,
			StartedAt: startedAt,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].FullName() < results[j].FullName()
	})

	summary := &RunSummary{
		RunID:       runID,
		Environment: r.config.Environment,
		StartedAt:   startedAt,
		FinishedAt:  time.Now(),
		Results:     results,
	}
	summary.Duration = summary.FinishedAt.Sub(summary.StartedAt)
	for _, res := range results {
		summary.Total++
		switch res.Status {
		case StatusPassed:
			summary.Passed++
		case StatusFailed:
			summary.Failed++
		case StatusSkipped:
			summary.Skipped++
		}
	}

	r.reporter.RunFinished(summary)

	r.logger.Info().
		Str("run_id", runID).
		Int("passed", summary.Passed).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Str("duration", summary.Duration.String()).
		Msg("Run completed")

	return summary, nil
}

// ResultsDirFor returns the per-run directory a summary's artifacts live in.
func (r *Runner) ResultsDirFor(summary *RunSummary) string {
	return filepath.Join(r.config.Output.ResultsDir, summary.StartedAt.Format("20060102-150405"))
}

func (r *Runner) selectCases(filters Filters) (selected, skipped []scheduledCase) {
	for _, suite := range r.suites {
		for _, c := range suite.Cases {
			sc := scheduledCase{suite: suite.Name, c: c}
			if filters.Matches(suite.Name, c) {
				selected = append(selected, sc)
			} else {
				skipped = append(skipped, sc)
			}
		}
	}
	return selected, skipped
}

// runCase executes one case including its retry attempts. A failed attempt
// is retried up to the configured count; the first passing attempt wins.
func (r *Runner) runCase(ctx context.Context, runID string, profile common.EnvironmentProfile, resultsDir string, sc scheduledCase) CaseResult {
	result := CaseResult{
		Suite:     sc.suite,
		Name:      sc.c.Name,
		StartedAt: time.Now(),
	}

	attempts := 1
	if r.config.Runner.RetryFailed && r.config.Runner.RetryCount > 0 {
		attempts += r.config.Runner.RetryCount
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			result.Status = StatusSkipped
			return result
		}
		result.Attempts = attempt

		if attempt > 1 {
			r.logger.Warn().
				Str("case", result.FullName()).
				Int("attempt", attempt).
				Msg("Retrying failed case")
		}

		screenshot, err := r.runAttempt(ctx, runID, profile, resultsDir, sc)
		if err == nil {
			result.Status = StatusPassed
			result.Duration = time.Since(result.StartedAt)
			return result
		}
		lastErr = err
		if screenshot != "" {
			result.Screenshot = screenshot
		}
	}

	result.Status = StatusFailed
	result.Error = lastErr.Error()
	result.Duration = time.Since(result.StartedAt)

	r.logger.Error().
		Str("case", result.FullName()).
		Int("attempts", result.Attempts).
		Err(lastErr).
		Msg("Case failed")

	return result
}

// runAttempt executes a single attempt with its own timeout and browser
// session. On failure of a browser case a screenshot is captured before the
// session closes.
func (r *Runner) runAttempt(ctx context.Context, runID string, profile common.EnvironmentProfile, resultsDir string, sc scheduledCase) (screenshot string, err error) {
	caseCtx, cancel := context.WithTimeout(ctx, r.config.Runner.CaseTimeout.Std())
	defer cancel()

	tc := newContext(caseCtx, runID, r.config, profile, resultsDir, r.logger)
	defer tc.close()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("case panicked: %v", rec)
		}
		if err != nil && tc.hasBrowser() {
			if path, serr := tc.Screenshot(sc.suite + "-" + sc.c.Name); serr == nil {
				screenshot = path
			} else {
				r.logger.Warn().Err(serr).Str("case", sc.c.Name).Msg("Failed to capture failure screenshot")
			}
		}
	}()

	err = sc.c.Run(tc)
	return screenshot, err
}
