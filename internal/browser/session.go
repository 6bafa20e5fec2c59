package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/common"
)

// Session owns a single headless Chrome instance and its chromedp contexts.
// Cleanup functions run in reverse order on Close.
type Session struct {
	ctx     context.Context
	cleanup []func()
	logger  arbor.ILogger
	config  common.BrowserConfig
}

// NewSession launches a browser configured from BrowserConfig and verifies it
// responds before returning. The parent context bounds the whole session.
func NewSession(parent context.Context, config common.BrowserConfig, logger arbor.ILogger) (*Session, error) {
	if config.Name != "" && config.Name != "chrome" && config.Name != "chromium" {
		return nil, fmt.Errorf("unsupported browser %q: only chrome/chromium is supported", config.Name)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, BuildAllocatorOptions(config)...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx:     browserCtx,
		logger:  logger,
		config:  config,
		cleanup: make([]func(), 0, 3),
	}
	s.cleanup = append(s.cleanup, cancelAlloc)
	s.cleanup = append(s.cleanup, cancelBrowser)
	s.cleanup = append(s.cleanup, func() {
		if err := chromedp.Cancel(browserCtx); err != nil {
			logger.Debug().Err(err).Msg("Browser cancel returned error")
		}
	})

	// Verify the browser actually started by loading a blank page
	testCtx, cancel := context.WithTimeout(browserCtx, 15*time.Second)
	defer cancel()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		s.Close()
		return nil, fmt.Errorf("browser failed to start: %w", err)
	}

	logger.Debug().
		Bool("headless", config.Headless).
		Int("width", config.WindowWidth).
		Int("height", config.WindowHeight).
		Msg("Browser session started")

	return s, nil
}

// Context returns the chromedp browser context for running actions.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Close releases the browser and all associated resources. Safe to call once;
// cleanup functions execute in reverse order (LIFO).
func (s *Session) Close() {
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
	s.cleanup = nil
}

// BuildAllocatorOptions translates BrowserConfig into chromedp allocator
// options. Exposed separately so option construction is testable without
// launching a browser.
func BuildAllocatorOptions(config common.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	opts = append(opts,
		chromedp.Flag("headless", config.Headless),
		chromedp.Flag("disable-gpu", config.DisableGPU),
		chromedp.Flag("no-sandbox", config.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	if config.WindowWidth > 0 && config.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(config.WindowWidth, config.WindowHeight))
	}
	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}

	return opts
}
