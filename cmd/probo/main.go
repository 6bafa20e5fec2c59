package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/history"
	"github.com/ternarybob/probo/internal/reports"
	"github.com/ternarybob/probo/internal/runner"
	"github.com/ternarybob/probo/internal/scheduler"
	"github.com/ternarybob/probo/internal/suites"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	mustMatch    runner.RegexList
	mustNotMatch runner.RegexList
	markers      runner.MarkerList
	environment  = flag.String("env", "", "Environment profile (overrides config)")
	workers      = flag.Int("workers", 0, "Parallel worker count (overrides config)")
	schedule     = flag.String("schedule", "", "Cron expression for repeated runs (empty = run once)")
	reportList   = flag.String("reports", "", "Comma-separated report formats: json, junit, html (overrides config)")
	listRuns     = flag.Int("history", 0, "Print the last N runs from history and exit")
	showVersion  = flag.Bool("version", false, "Print version information")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
	flag.Var(&mustMatch, "run", "Regex of suite/case names to run (repeatable)")
	flag.Var(&mustNotMatch, "skip", "Regex of suite/case names to skip (repeatable)")
	flag.Var(&markers, "markers", "Only run cases carrying one of these markers (repeatable or comma separated)")
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Probo version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("probo.toml"); err == nil {
			configFiles = append(configFiles, "probo.toml")
		}
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner
	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		arbor.NewLogger().Fatal().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, *environment, *workers)
	if *reportList != "" {
		config.Output.Reports = nil
		for _, format := range strings.Split(*reportList, ",") {
			if format = strings.TrimSpace(format); format != "" {
				config.Output.Reports = append(config.Output.Reports, format)
			}
		}
	}

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	if err := config.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
		os.Exit(1)
	}

	logger.Info().
		Strs("config_files", configFiles).
		Str("environment", config.Environment).
		Int("workers", config.Runner.Workers).
		Msg("Configuration loaded")

	var store *history.Store
	if config.History.Enabled {
		store, err = history.NewStore(config.History, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to open history store")
			os.Exit(1)
		}
		defer store.Close()
	}

	if *listRuns > 0 {
		os.Exit(printHistory(store, *listRuns))
	}

	filters := runner.Filters{
		MustMatch:    mustMatch,
		MustNotMatch: mustNotMatch,
		Markers:      markers.Values(),
	}

	r := runner.New(config, logger)
	r.Register(suites.Web())
	r.Register(suites.API())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info().Msg("Interrupt signal received")
		cancel()
	}()

	execute := func(ctx context.Context) (bool, error) {
		summary, err := r.Run(ctx, filters)
		if err != nil {
			return false, err
		}
		dir := r.ResultsDirFor(summary)
		if written, err := reports.Write(summary, dir, config.Output.Reports); err != nil {
			logger.Error().Err(err).Msg("Failed to write reports")
		} else {
			logger.Info().Strs("reports", written).Msg("Reports written")
		}
		if store != nil {
			if err := store.SaveRun(summary); err != nil {
				logger.Error().Err(err).Msg("Failed to save run history")
			}
		}
		return summary.OK(), nil
	}

	if *schedule != "" {
		s := scheduler.New(execute, logger)
		if err := s.Start(ctx, *schedule); err != nil {
			logger.Fatal().Err(err).Msg("Failed to start scheduler")
			os.Exit(1)
		}
		<-ctx.Done()
		s.Stop()
		return
	}

	ok, err := execute(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("Run failed")
		os.Exit(1)
	}
	if !ok {
		os.Exit(1)
	}
}

// printHistory prints the newest runs from the history store. Returns the
// process exit code.
func printHistory(store *history.Store, limit int) int {
	if store == nil {
		fmt.Println("History is disabled; enable [history] in the config file")
		return 1
	}

	runs, err := store.ListRuns(limit)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list run history")
		return 1
	}

	for _, run := range runs {
		fmt.Printf("%s  %-8s  %s  passed=%d failed=%d skipped=%d  (%s)\n",
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Environment,
			run.RunID,
			run.Passed, run.Failed, run.Skipped,
			run.Duration.Round(time.Millisecond))
	}
	return 0
}
