package youtrack

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

const workItemFields = "id,text,date,created,author(id,login,name),duration(minutes,presentation),type(id,name)"

// WorkItemsClient provides time-tracking operations on the YouTrack API.
type WorkItemsClient struct {
	client *Client
}

// NewWorkItemsClient creates a work items client on top of the given
// Client.
func NewWorkItemsClient(client *Client) *WorkItemsClient {
	return &WorkItemsClient{client: client}
}

// Add logs spent time on an issue. The date must be YYYY-MM-DD and
// defaults to today when empty; the work type is optional.
func (c *WorkItemsClient) Add(ctx context.Context, issueID string, minutes int, description, date, workTypeID string) (*WorkItem, error) {
	if minutes <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %d minutes", minutes)
	}

	body := map[string]any{
		"duration": map[string]any{"minutes": minutes},
	}
	if description != "" {
		body["text"] = description
	}
	if date != "" {
		ts, err := parseWorkDate(date)
		if err != nil {
			return nil, err
		}
		body["date"] = ts
	}
	if workTypeID != "" {
		body["type"] = map[string]any{"id": workTypeID}
	}

	var item WorkItem
	params := url.Values{"fields": {workItemFields}}
	path := "issues/" + url.PathEscape(issueID) + "/timeTracking/workItems"
	if err := c.client.Post(ctx, path, params, body, &item); err != nil {
		return nil, fmt.Errorf("add work item to %s: %w", issueID, err)
	}
	return &item, nil
}

// List returns the work items logged on an issue.
func (c *WorkItemsClient) List(ctx context.Context, issueID string) ([]WorkItem, error) {
	var items []WorkItem
	params := url.Values{"fields": {workItemFields}}
	path := "issues/" + url.PathEscape(issueID) + "/timeTracking/workItems"
	if err := c.client.Get(ctx, path, params, &items); err != nil {
		return nil, fmt.Errorf("get work items of %s: %w", issueID, err)
	}
	return items, nil
}

// WorkTypes returns the work item types configured on a project.
func (c *WorkItemsClient) WorkTypes(ctx context.Context, projectID string) ([]WorkItemType, error) {
	var types []WorkItemType
	params := url.Values{"fields": {"id,name"}}
	path := "admin/projects/" + url.PathEscape(projectID) + "/timeTrackingSettings/workItemTypes"
	if err := c.client.Get(ctx, path, params, &types); err != nil {
		return nil, fmt.Errorf("get work types of project %s: %w", projectID, err)
	}
	return types, nil
}

// TotalMinutes sums the durations of the given work items.
func TotalMinutes(items []WorkItem) int {
	total := 0
	for _, item := range items {
		if item.Duration != nil {
			total += item.Duration.Minutes
		}
	}
	return total
}

// parseWorkDate converts a YYYY-MM-DD date to epoch milliseconds at
// UTC midnight.
func parseWorkDate(date string) (int64, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, fmt.Errorf("invalid date format %q, use YYYY-MM-DD", date)
	}
	return t.UnixMilli(), nil
}
