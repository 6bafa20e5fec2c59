package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Duration wraps time.Duration so TOML values like "10s" decode with
// time.ParseDuration. go-toml only maps integers onto a bare time.Duration.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML string values.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Config represents the framework configuration. Exactly one environment
// profile is active at a time, selected by Environment.
type Config struct {
	Environment  string                        `toml:"environment" validate:"required"` // Active profile name, e.g. "dev", "qa", "staging", "prod"
	Browser      BrowserConfig                 `toml:"browser"`
	API          APIConfig                     `toml:"api"`
	Runner       RunnerConfig                  `toml:"runner"`
	Fixtures     FixturesConfig                `toml:"fixtures"`
	Output       OutputConfig                  `toml:"output"`
	Logging      LoggingConfig                 `toml:"logging"`
	History      HistoryConfig                 `toml:"history"`
	Environments map[string]EnvironmentProfile `toml:"environments" validate:"required,min=1,dive"`
}

// EnvironmentProfile holds the per-environment endpoints. Profiles are
// declared as [environments.<name>] tables in the config file.
type EnvironmentProfile struct {
	BaseURL    string `toml:"base_url" validate:"required,url"`     // Application under test (browser cases)
	APIBaseURL string `toml:"api_base_url" validate:"required,url"` // REST API under test (api cases)
}

type BrowserConfig struct {
	Name            string   `toml:"name"`              // Browser to drive; only "chrome" is supported via chromedp
	Headless        bool     `toml:"headless"`          // Run without a visible window
	WindowWidth     int      `toml:"window_width"`      // Viewport width in pixels
	WindowHeight    int      `toml:"window_height"`     // Viewport height in pixels
	UserAgent       string   `toml:"user_agent"`        // Override user agent (empty = browser default)
	NoSandbox       bool     `toml:"no_sandbox"`        // Required in most container environments
	DisableGPU      bool     `toml:"disable_gpu"`       // Disable GPU acceleration
	ExplicitWait    Duration `toml:"explicit_wait"`     // Per-element wait-then-act timeout
	PageLoadTimeout Duration `toml:"page_load_timeout"` // Navigation timeout
}

type APIConfig struct {
	Timeout    Duration `toml:"timeout"`     // Per-request timeout
	RetryCount int      `toml:"retry_count"` // Retries on 429/5xx and transport errors
	RetryDelay Duration `toml:"retry_delay"` // Initial backoff, doubled per attempt
	RateLimit  Duration `toml:"rate_limit"`  // Minimum interval between requests (0 = unlimited)
}

type RunnerConfig struct {
	Workers     int      `toml:"workers"`       // Parallel worker count
	RetryFailed bool     `toml:"retry_failed"`  // Re-execute failed cases
	RetryCount  int      `toml:"retry_count"`   // Fixed re-execution count per failed case
	StopOnFirst bool     `toml:"stop_on_first"` // Abort the run on first failure
	CaseTimeout Duration `toml:"case_timeout"`  // Hard limit per case execution
}

type FixturesConfig struct {
	Dir string `toml:"dir"` // Directory containing YAML/JSON/CSV fixture files
}

type OutputConfig struct {
	ResultsDir string   `toml:"results_dir"` // Base directory for per-run result directories
	Reports    []string `toml:"reports"`     // Report formats to write: "json", "junit", "html"
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// HistoryConfig controls the persisted run-history store.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled"` // Persist run summaries to the history store
	Path    string `toml:"path"`    // Badger database directory
	Keep    int    `toml:"keep"`    // Runs to retain when pruning (0 = keep all)
}

// NewDefaultConfig creates a configuration with default values. Only the
// environment profiles have no usable default; a config file must declare
// at least one.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "qa",
		Browser: BrowserConfig{
			Name:            "chrome",
			Headless:        true,
			WindowWidth:     1920,
			WindowHeight:    1080,
			NoSandbox:       true,
			DisableGPU:      true,
			ExplicitWait:    Duration(10 * time.Second),
			PageLoadTimeout: Duration(30 * time.Second),
		},
		API: APIConfig{
			Timeout:    Duration(30 * time.Second),
			RetryCount: 3,
			RetryDelay: Duration(1 * time.Second),
		},
		Runner: RunnerConfig{
			Workers:     4,
			RetryFailed: true,
			RetryCount:  2,
			CaseTimeout: Duration(5 * time.Minute),
		},
		Fixtures: FixturesConfig{
			Dir: "./testdata",
		},
		Output: OutputConfig{
			ResultsDir: "./results",
			Reports:    []string{"json"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		History: HistoryConfig{
			Enabled: false,
			Path:    "./data/history",
			Keep:    50,
		},
		Environments: map[string]EnvironmentProfile{},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files. Later files override
// earlier files; environment variables override all files. CLI flags are
// applied afterwards by the caller via ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// ApplyFlagOverrides applies command-line flag values (highest priority).
// Zero values leave the config untouched. Endpoint environment variables are
// re-applied afterwards so PROBO_BASE_URL targets the profile an -env flag
// selects.
func ApplyFlagOverrides(config *Config, environment string, workers int) {
	if environment != "" {
		config.Environment = environment
	}
	if workers > 0 {
		config.Runner.Workers = workers
	}
	applyEndpointOverrides(config)
}

// ActiveProfile resolves the active environment profile. Exactly one profile
// is active per run; an unknown environment name is a configuration error.
func (c *Config) ActiveProfile() (EnvironmentProfile, error) {
	profile, ok := c.Environments[c.Environment]
	if !ok {
		known := make([]string, 0, len(c.Environments))
		for name := range c.Environments {
			known = append(known, name)
		}
		return EnvironmentProfile{}, fmt.Errorf("unknown environment %q (configured: %s)", c.Environment, strings.Join(known, ", "))
	}
	return profile, nil
}

// Validate checks the configuration, including the active profile.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := c.ActiveProfile(); err != nil {
		return err
	}
	if c.Runner.Workers < 1 {
		return fmt.Errorf("runner workers must be at least 1, got %d", c.Runner.Workers)
	}
	return nil
}

// applyEnvOverrides applies PROBO_* environment variable overrides.
func applyEnvOverrides(config *Config) {
	// Active environment (highest priority: PROBO_ENV, fallback: GO_ENV)
	if env := os.Getenv("PROBO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Browser configuration
	if name := os.Getenv("PROBO_BROWSER"); name != "" {
		config.Browser.Name = name
	}
	if headless := os.Getenv("PROBO_BROWSER_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = h
		}
	}
	if width := os.Getenv("PROBO_BROWSER_WIDTH"); width != "" {
		if w, err := strconv.Atoi(width); err == nil {
			config.Browser.WindowWidth = w
		}
	}
	if height := os.Getenv("PROBO_BROWSER_HEIGHT"); height != "" {
		if h, err := strconv.Atoi(height); err == nil {
			config.Browser.WindowHeight = h
		}
	}
	if userAgent := os.Getenv("PROBO_BROWSER_USER_AGENT"); userAgent != "" {
		config.Browser.UserAgent = userAgent
	}
	if explicitWait := os.Getenv("PROBO_BROWSER_EXPLICIT_WAIT"); explicitWait != "" {
		if d, err := time.ParseDuration(explicitWait); err == nil {
			config.Browser.ExplicitWait = Duration(d)
		}
	}
	if pageLoad := os.Getenv("PROBO_BROWSER_PAGE_LOAD_TIMEOUT"); pageLoad != "" {
		if d, err := time.ParseDuration(pageLoad); err == nil {
			config.Browser.PageLoadTimeout = Duration(d)
		}
	}

	// API configuration
	if timeout := os.Getenv("PROBO_API_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.API.Timeout = Duration(d)
		}
	}
	if retryCount := os.Getenv("PROBO_API_RETRY_COUNT"); retryCount != "" {
		if rc, err := strconv.Atoi(retryCount); err == nil {
			config.API.RetryCount = rc
		}
	}
	if retryDelay := os.Getenv("PROBO_API_RETRY_DELAY"); retryDelay != "" {
		if d, err := time.ParseDuration(retryDelay); err == nil {
			config.API.RetryDelay = Duration(d)
		}
	}
	if rateLimit := os.Getenv("PROBO_API_RATE_LIMIT"); rateLimit != "" {
		if d, err := time.ParseDuration(rateLimit); err == nil {
			config.API.RateLimit = Duration(d)
		}
	}

	// Runner configuration
	if workers := os.Getenv("PROBO_RUNNER_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil {
			config.Runner.Workers = w
		}
	}
	if retryFailed := os.Getenv("PROBO_RUNNER_RETRY_FAILED"); retryFailed != "" {
		if rf, err := strconv.ParseBool(retryFailed); err == nil {
			config.Runner.RetryFailed = rf
		}
	}
	if retryCount := os.Getenv("PROBO_RUNNER_RETRY_COUNT"); retryCount != "" {
		if rc, err := strconv.Atoi(retryCount); err == nil {
			config.Runner.RetryCount = rc
		}
	}
	if caseTimeout := os.Getenv("PROBO_RUNNER_CASE_TIMEOUT"); caseTimeout != "" {
		if d, err := time.ParseDuration(caseTimeout); err == nil {
			config.Runner.CaseTimeout = Duration(d)
		}
	}

	// Fixture and output directories
	if dir := os.Getenv("PROBO_FIXTURES_DIR"); dir != "" {
		config.Fixtures.Dir = dir
	}
	if dir := os.Getenv("PROBO_RESULTS_DIR"); dir != "" {
		config.Output.ResultsDir = dir
	}
	if reports := os.Getenv("PROBO_REPORTS"); reports != "" {
		formats := []string{}
		for _, r := range strings.Split(reports, ",") {
			if trimmed := strings.TrimSpace(r); trimmed != "" {
				formats = append(formats, trimmed)
			}
		}
		if len(formats) > 0 {
			config.Output.Reports = formats
		}
	}

	// Logging configuration
	if level := os.Getenv("PROBO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("PROBO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// History configuration
	if enabled := os.Getenv("PROBO_HISTORY_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.History.Enabled = e
		}
	}
	if path := os.Getenv("PROBO_HISTORY_PATH"); path != "" {
		config.History.Path = path
	}

	applyEndpointOverrides(config)
}

// applyEndpointOverrides patches the active profile's endpoints from
// PROBO_BASE_URL / PROBO_API_BASE_URL. Called from applyEnvOverrides and again
// from ApplyFlagOverrides, since an -env flag changes which profile is active.
func applyEndpointOverrides(config *Config) {
	if baseURL := os.Getenv("PROBO_BASE_URL"); baseURL != "" {
		if config.Environments == nil {
			config.Environments = map[string]EnvironmentProfile{}
		}
		profile := config.Environments[config.Environment]
		profile.BaseURL = baseURL
		config.Environments[config.Environment] = profile
	}
	if apiBaseURL := os.Getenv("PROBO_API_BASE_URL"); apiBaseURL != "" {
		if config.Environments == nil {
			config.Environments = map[string]EnvironmentProfile{}
		}
		profile := config.Environments[config.Environment]
		profile.APIBaseURL = apiBaseURL
		config.Environments[config.Environment] = profile
	}
}
