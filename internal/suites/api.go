package suites

import (
	"fmt"

	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/runner"
)

type item struct {
	ID    string  `json:"id,omitempty"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// API returns the REST suite exercising the testbed's items endpoints.
func API() runner.Suite {
	return runner.Suite{
		Name: "api",
		Cases: []runner.Case{
			{Name: "status-endpoint", Markers: []string{"smoke", "api"}, Run: statusEndpoint},
			{Name: "list-items", Markers: []string{"api"}, Run: listItems},
			{Name: "create-and-fetch-item", Markers: []string{"api"}, Run: createAndFetchItem},
			{Name: "update-item", Markers: []string{"api"}, Run: updateItem},
			{Name: "delete-item", Markers: []string{"api"}, Run: deleteItem},
			{Name: "missing-item-returns-404", Markers: []string{"api"}, Run: missingItemReturns404},
		},
	}
}

func statusEndpoint(c *runner.Context) error {
	resp, err := c.API().Get(c.Ctx(), "/status")
	if err != nil {
		return err
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("status endpoint returned %d", resp.StatusCode)
	}

	var status struct {
		Status string `json:"status"`
	}
	if err := resp.JSON(&status); err != nil {
		return err
	}
	if status.Status != "ok" {
		return fmt.Errorf("unexpected status %q", status.Status)
	}
	return nil
}

func listItems(c *runner.Context) error {
	resp, err := c.API().Get(c.Ctx(), "/items")
	if err != nil {
		return err
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("list returned %d", resp.StatusCode)
	}

	var items []item
	if err := resp.JSON(&items); err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("expected seeded items, got none")
	}
	return nil
}

func createAndFetchItem(c *runner.Context) error {
	name := "probe-" + common.RandomString(8)
	created, err := c.API().Post(c.Ctx(), "/items", item{Name: name, Price: 4.50})
	if err != nil {
		return err
	}
	if created.StatusCode != 201 {
		return fmt.Errorf("create returned %d", created.StatusCode)
	}

	var got item
	if err := created.JSON(&got); err != nil {
		return err
	}
	if got.ID == "" {
		return fmt.Errorf("created item has no ID")
	}

	fetched, err := c.API().Get(c.Ctx(), "/items/"+got.ID)
	if err != nil {
		return err
	}
	if fetched.StatusCode != 200 {
		return fmt.Errorf("fetch returned %d", fetched.StatusCode)
	}

	var roundTrip item
	if err := fetched.JSON(&roundTrip); err != nil {
		return err
	}
	if roundTrip.Name != name {
		return fmt.Errorf("fetched name %q, want %q", roundTrip.Name, name)
	}
	return nil
}

func updateItem(c *runner.Context) error {
	created, err := c.API().Post(c.Ctx(), "/items", item{Name: "update-me", Price: 1.00})
	if err != nil {
		return err
	}
	var got item
	if err := created.JSON(&got); err != nil {
		return err
	}

	updated, err := c.API().Put(c.Ctx(), "/items/"+got.ID, item{Name: "updated", Price: 2.00})
	if err != nil {
		return err
	}
	if updated.StatusCode != 200 {
		return fmt.Errorf("update returned %d", updated.StatusCode)
	}

	var after item
	if err := updated.JSON(&after); err != nil {
		return err
	}
	if after.Name != "updated" || after.Price != 2.00 {
		return fmt.Errorf("update not applied: %+v", after)
	}
	return nil
}

func deleteItem(c *runner.Context) error {
	created, err := c.API().Post(c.Ctx(), "/items", item{Name: "delete-me", Price: 1.00})
	if err != nil {
		return err
	}
	var got item
	if err := created.JSON(&got); err != nil {
		return err
	}

	deleted, err := c.API().Delete(c.Ctx(), "/items/"+got.ID)
	if err != nil {
		return err
	}
	if deleted.StatusCode != 204 {
		return fmt.Errorf("delete returned %d", deleted.StatusCode)
	}

	fetched, err := c.API().Get(c.Ctx(), "/items/"+got.ID)
	if err != nil {
		return err
	}
	if fetched.StatusCode != 404 {
		return fmt.Errorf("deleted item still fetchable, status %d", fetched.StatusCode)
	}
	return nil
}

func missingItemReturns404(c *runner.Context) error {
	resp, err := c.API().Get(c.Ctx(), "/items/does-not-exist")
	if err != nil {
		return err
	}
	if resp.StatusCode != 404 {
		return fmt.Errorf("expected 404, got %d", resp.StatusCode)
	}
	return nil
}
