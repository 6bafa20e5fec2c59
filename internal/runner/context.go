package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/apiclient"
	"github.com/ternarybob/probo/internal/browser"
	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/fixtures"
	"github.com/ternarybob/probo/internal/pages"
)

// Context carries everything a case needs during execution. The browser
// session is started lazily on the first Page call so API-only cases never
// launch Chrome. One Context serves one case attempt.
type Context struct {
	ctx        context.Context
	runID      string
	config     *common.Config
	profile    common.EnvironmentProfile
	logger     arbor.ILogger
	resultsDir string

	mu      sync.Mutex
	session *browser.Session
	page    *pages.Page
	api     *apiclient.Client
	reader  *fixtures.Reader
}

func newContext(ctx context.Context, runID string, config *common.Config, profile common.EnvironmentProfile, resultsDir string, logger arbor.ILogger) *Context {
	return &Context{
		ctx:        ctx,
		runID:      runID,
		config:     config,
		profile:    profile,
		logger:     logger,
		resultsDir: resultsDir,
	}
}

// Ctx returns the case's deadline-bound context.
func (c *Context) Ctx() context.Context { return c.ctx }

// RunID returns the identifier of the enclosing run.
func (c *Context) RunID() string { return c.runID }

// Config returns the loaded framework configuration.
func (c *Context) Config() *common.Config { return c.config }

// BaseURL returns the active profile's application URL.
func (c *Context) BaseURL() string { return c.profile.BaseURL }

// Log returns the case logger.
func (c *Context) Log() arbor.ILogger { return c.logger }

// ResultsDir returns the per-run output directory.
func (c *Context) ResultsDir() string { return c.resultsDir }

// Page returns the page object for this case, starting a browser session on
// first use.
func (c *Context) Page() (*pages.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.page != nil {
		return c.page, nil
	}

	session, err := browser.NewSession(c.ctx, c.config.Browser, c.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}
	c.session = session
	c.page = pages.New(session, c.config.Browser.ExplicitWait.Std(), c.config.Browser.PageLoadTimeout.Std(), c.logger)
	return c.page, nil
}

// API returns the REST client bound to the active profile's API base URL.
func (c *Context) API() *apiclient.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.api == nil {
		opts := []apiclient.Option{
			apiclient.WithTimeout(c.config.API.Timeout.Std()),
			apiclient.WithRetry(c.config.API.RetryCount, c.config.API.RetryDelay.Std()),
		}
		if c.config.API.RateLimit > 0 {
			opts = append(opts, apiclient.WithRateLimit(float64(time.Second)/float64(c.config.API.RateLimit)))
		}
		c.api = apiclient.New(c.profile.APIBaseURL, c.logger, opts...)
	}
	return c.api
}

// Fixtures returns the fixture reader for the configured data directory.
func (c *Context) Fixtures() (*fixtures.Reader, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reader == nil {
		reader, err := fixtures.NewReader(c.config.Fixtures.Dir)
		if err != nil {
			return nil, err
		}
		c.reader = reader
	}
	return c.reader, nil
}

// Screenshot captures the current page into the run's screenshots directory
// and returns the file path. It is a no-op error when no browser session has
// been started.
func (c *Context) Screenshot(name string) (string, error) {
	c.mu.Lock()
	page := c.page
	c.mu.Unlock()

	if page == nil {
		return "", fmt.Errorf("no browser session active")
	}

	dir := filepath.Join(c.resultsDir, "screenshots")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create screenshots directory: %w", err)
	}

	filename := fmt.Sprintf("%s-%s.png", common.SanitizeFilename(name), common.Timestamp())
	path := filepath.Join(dir, filename)
	if err := page.Screenshot(path); err != nil {
		return "", err
	}
	return path, nil
}

// close tears down the browser session if one was started.
func (c *Context) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		c.session.Close()
		c.session = nil
		c.page = nil
	}
}

// hasBrowser reports whether a browser session was started for this case.
func (c *Context) hasBrowser() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}
