// Package suites holds the built-in test suites that ship with the runner.
// They target the local testbed server and double as usage examples for
// writing project-specific suites.
package suites

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/probo/internal/apiclient"
	"github.com/ternarybob/probo/internal/runner"
)

// Web returns the browser suite exercising the testbed's HTML pages.
func Web() runner.Suite {
	return runner.Suite{
		Name: "web",
		Cases: []runner.Case{
			{
				Name:         "homepage-title",
				Markers:      []string{"smoke", "web"},
				NeedsBrowser: true,
				Run:          homepageTitle,
			},
			{
				Name:         "button-click-updates-output",
				Markers:      []string{"web"},
				NeedsBrowser: true,
				Run:          buttonClickUpdatesOutput,
			},
			{
				Name:         "login-form-greets-user",
				Markers:      []string{"web", "auth"},
				NeedsBrowser: true,
				Run:          loginFormGreetsUser,
			},
			{
				Name:         "navigation-links-resolve",
				Markers:      []string{"web"},
				NeedsBrowser: true,
				Run:          navigationLinksResolve,
			},
			{
				Name:         "items-table-lists-seed-data",
				Markers:      []string{"web"},
				NeedsBrowser: true,
				Run:          itemsTableListsSeedData,
			},
		},
	}
}

func homepageTitle(c *runner.Context) error {
	page, err := c.Page()
	if err != nil {
		return err
	}
	if err := page.Navigate(c.BaseURL() + "/"); err != nil {
		return err
	}

	title, err := page.Title()
	if err != nil {
		return err
	}
	if !strings.Contains(title, "Probo Testbed") {
		return fmt.Errorf("unexpected page title %q", title)
	}
	return nil
}

func buttonClickUpdatesOutput(c *runner.Context) error {
	page, err := c.Page()
	if err != nil {
		return err
	}
	if err := page.Navigate(c.BaseURL() + "/"); err != nil {
		return err
	}
	if err := page.Click("#action-button"); err != nil {
		return err
	}
	if err := page.WaitVisible("#action-output", 5*time.Second); err != nil {
		return err
	}

	text, err := page.Text("#action-output")
	if err != nil {
		return err
	}
	if text != "Button clicked!" {
		return fmt.Errorf("unexpected output text %q", text)
	}
	return nil
}

func loginFormGreetsUser(c *runner.Context) error {
	reader, err := c.Fixtures()
	if err != nil {
		return err
	}

	var creds struct {
		Username string `json:"username" yaml:"username"`
		Password string `json:"password" yaml:"password"`
	}
	if err := reader.Load("login.yaml", &creds); err != nil {
		return err
	}

	page, err := c.Page()
	if err != nil {
		return err
	}
	if err := page.Navigate(c.BaseURL() + "/login"); err != nil {
		return err
	}
	if err := page.Type("#username", creds.Username); err != nil {
		return err
	}
	if err := page.Type("#password", creds.Password); err != nil {
		return err
	}
	if err := page.Click("#login-submit"); err != nil {
		return err
	}
	if err := page.WaitVisible("#welcome", 5*time.Second); err != nil {
		return err
	}

	text, err := page.Text("#welcome")
	if err != nil {
		return err
	}
	if !strings.Contains(text, creds.Username) {
		return fmt.Errorf("welcome message %q does not mention %q", text, creds.Username)
	}
	return nil
}

func navigationLinksResolve(c *runner.Context) error {
	page, err := c.Page()
	if err != nil {
		return err
	}
	if err := page.Navigate(c.BaseURL() + "/"); err != nil {
		return err
	}

	links, err := page.Links()
	if err != nil {
		return err
	}
	if len(links) == 0 {
		return fmt.Errorf("homepage has no links")
	}

	site := apiclient.New(c.BaseURL(), c.Log())
	for _, link := range links {
		if !strings.HasPrefix(link.URL, c.BaseURL()) {
			continue
		}
		resp, err := site.Get(c.Ctx(), strings.TrimPrefix(link.URL, c.BaseURL()))
		if err != nil {
			return fmt.Errorf("link %s: %w", link.URL, err)
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("link %s returned status %d", link.URL, resp.StatusCode)
		}
	}
	return nil
}

func itemsTableListsSeedData(c *runner.Context) error {
	page, err := c.Page()
	if err != nil {
		return err
	}
	if err := page.Navigate(c.BaseURL() + "/items"); err != nil {
		return err
	}

	rows, err := page.TableRows("#items-table")
	if err != nil {
		return err
	}
	if len(rows) < 2 {
		return fmt.Errorf("expected header plus at least one item row, got %d rows", len(rows))
	}
	if rows[0][0] != "Name" {
		return fmt.Errorf("unexpected table header %v", rows[0])
	}
	return nil
}
