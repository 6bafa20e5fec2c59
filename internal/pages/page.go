// Page objects wrap chromedp's wait-then-act primitives behind one method per
// user-facing action, hiding selector plumbing from test code. Every method is
// a direct pass-through: errors from the driver propagate unmodified apart
// from %w wrapping, and no retry or classification happens here.

package pages

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/browser"
)

// Page is the base page object. Concrete page objects embed it and add one
// method per screen action, keeping locators out of test cases.
type Page struct {
	ctx      context.Context
	wait     time.Duration
	pageLoad time.Duration
	logger   arbor.ILogger
}

// New creates a Page bound to a browser session.
func New(session *browser.Session, explicitWait, pageLoadTimeout time.Duration, logger arbor.ILogger) *Page {
	if explicitWait <= 0 {
		explicitWait = 10 * time.Second
	}
	if pageLoadTimeout <= 0 {
		pageLoadTimeout = 30 * time.Second
	}
	return &Page{
		ctx:      session.Context(),
		wait:     explicitWait,
		pageLoad: pageLoadTimeout,
		logger:   logger,
	}
}

// withTimeout derives a bounded context for a single wait-then-act step.
func (p *Page) withTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(p.ctx, d)
}

// Navigate loads a URL and waits for the document to be ready.
func (p *Page) Navigate(url string) error {
	p.logger.Debug().Str("url", url).Msg("Navigating")

	ctx, cancel := p.withTimeout(p.pageLoad)
	defer cancel()

	if err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// Click waits for the element to be visible and clicks it.
func (p *Page) Click(selector string) error {
	p.logger.Debug().Str("selector", selector).Msg("Clicking element")

	ctx, cancel := p.withTimeout(p.wait)
	defer cancel()

	if err := chromedp.Run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}
	return nil
}

// Type clears the element and enters text.
func (p *Page) Type(selector, text string) error {
	p.logger.Debug().Str("selector", selector).Msg("Entering text")

	ctx, cancel := p.withTimeout(p.wait)
	defer cancel()

	if err := chromedp.Run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to type into %s: %w", selector, err)
	}
	return nil
}

// Text waits for the element and returns its text content.
func (p *Page) Text(selector string) (string, error) {
	ctx, cancel := p.withTimeout(p.wait)
	defer cancel()

	var text string
	if err := chromedp.Run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Text(selector, &text, chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("failed to read text from %s: %w", selector, err)
	}
	return text, nil
}

// Attribute returns an attribute value from the element. ok is false when the
// attribute is not present on the element.
func (p *Page) Attribute(selector, name string) (string, bool, error) {
	ctx, cancel := p.withTimeout(p.wait)
	defer cancel()

	var value string
	var ok bool
	if err := chromedp.Run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.AttributeValue(selector, name, &value, &ok, chromedp.ByQuery),
	); err != nil {
		return "", false, fmt.Errorf("failed to read attribute %s from %s: %w", name, selector, err)
	}
	return value, ok, nil
}

// WaitVisible waits for the element to become visible within timeout.
func (p *Page) WaitVisible(selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = p.wait
	}
	ctx, cancel := p.withTimeout(timeout)
	defer cancel()

	if err := chromedp.Run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("element %s not visible after %v: %w", selector, timeout, err)
	}
	return nil
}

// WaitReady waits for the element to be attached to the DOM, visible or not.
func (p *Page) WaitReady(selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = p.wait
	}
	ctx, cancel := p.withTimeout(timeout)
	defer cancel()

	if err := chromedp.Run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("element %s not ready after %v: %w", selector, timeout, err)
	}
	return nil
}

// IsPresent reports whether the element appears in the DOM within timeout.
// Timeouts are swallowed; they are the expected negative outcome here.
func (p *Page) IsPresent(selector string, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = p.wait
	}
	ctx, cancel := p.withTimeout(timeout)
	defer cancel()

	err := chromedp.Run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery))
	return err == nil
}

// IsVisible reports whether the element becomes visible within timeout.
func (p *Page) IsVisible(selector string, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = p.wait
	}
	ctx, cancel := p.withTimeout(timeout)
	defer cancel()

	err := chromedp.Run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
	return err == nil
}

// Hover dispatches a mouseover event on the element. Chrome has no direct
// hover action over the query API, so the event is raised from script.
func (p *Page) Hover(selector string) error {
	ctx, cancel := p.withTimeout(p.wait)
	defer cancel()

	script := fmt.Sprintf(
		`document.querySelector(%q).dispatchEvent(new MouseEvent('mouseover', {bubbles: true}))`,
		selector)

	if err := chromedp.Run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Evaluate(script, nil),
	); err != nil {
		return fmt.Errorf("failed to hover over %s: %w", selector, err)
	}
	return nil
}

// SetViewport overrides the device metrics for the session. Width and height
// are CSS pixels; mobile switches the emulated device type.
func (p *Page) SetViewport(width, height int64, mobile bool) error {
	ctx, cancel := p.withTimeout(p.wait)
	defer cancel()

	if err := chromedp.Run(ctx,
		emulation.SetDeviceMetricsOverride(width, height, 1.0, mobile),
	); err != nil {
		return fmt.Errorf("failed to set viewport: %w", err)
	}
	return nil
}

// ScrollTo scrolls the element into view.
func (p *Page) ScrollTo(selector string) error {
	ctx, cancel := p.withTimeout(p.wait)
	defer cancel()

	if err := chromedp.Run(ctx,
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to scroll to %s: %w", selector, err)
	}
	return nil
}

// Title returns the current page title.
func (p *Page) Title() (string, error) {
	ctx, cancel := p.withTimeout(p.wait)
	defer cancel()

	var title string
	if err := chromedp.Run(ctx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("failed to read page title: %w", err)
	}
	return title, nil
}

// Location returns the current page URL.
func (p *Page) Location() (string, error) {
	ctx, cancel := p.withTimeout(p.wait)
	defer cancel()

	var url string
	if err := chromedp.Run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read page location: %w", err)
	}
	return url, nil
}

// Evaluate runs a JavaScript expression and stores the result in dest.
func (p *Page) Evaluate(expression string, dest interface{}) error {
	ctx, cancel := p.withTimeout(p.wait)
	defer cancel()

	if err := chromedp.Run(ctx, chromedp.Evaluate(expression, dest)); err != nil {
		return fmt.Errorf("failed to evaluate expression: %w", err)
	}
	return nil
}

// Screenshot captures the current viewport and writes it to path.
func (p *Page) Screenshot(path string) error {
	ctx, cancel := p.withTimeout(p.pageLoad)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("failed to save screenshot: %w", err)
	}
	return nil
}

// FullScreenshot captures the entire scrollable page and writes it to path.
func (p *Page) FullScreenshot(path string) error {
	ctx, cancel := p.withTimeout(p.pageLoad)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return fmt.Errorf("failed to capture full screenshot: %w", err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("failed to save screenshot: %w", err)
	}
	return nil
}

// SetExtraHeaders attaches headers to every subsequent browser request.
// Useful for auth tokens when driving authenticated pages.
func (p *Page) SetExtraHeaders(headers map[string]string) error {
	ctx, cancel := p.withTimeout(p.wait)
	defer cancel()

	h := make(network.Headers, len(headers))
	for k, v := range headers {
		h[k] = v
	}

	if err := chromedp.Run(ctx,
		network.Enable(),
		network.SetExtraHTTPHeaders(h),
	); err != nil {
		return fmt.Errorf("failed to set extra headers: %w", err)
	}
	return nil
}

// OuterHTML returns the rendered HTML of the element matching selector.
// Pass "html" for the whole document.
func (p *Page) OuterHTML(selector string) (string, error) {
	ctx, cancel := p.withTimeout(p.wait)
	defer cancel()

	var html string
	if err := chromedp.Run(ctx,
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.OuterHTML(selector, &html, chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("failed to read outer HTML of %s: %w", selector, err)
	}
	return html, nil
}
