package mcp

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/trackforge/youtrackd/internal/journal"
	"github.com/trackforge/youtrackd/internal/timeparse"
	"github.com/trackforge/youtrackd/internal/youtrack"
)

// ===== TIME TRACKING TOOLS =====

type addWorkItemInput struct {
	IssueID         string `json:"issue_id" jsonschema:"Issue identifier like 'DEMO-123'"`
	DurationMinutes int    `json:"duration_minutes" jsonschema:"Duration in minutes (e.g. 30, 120)"`
	Description     string `json:"description,omitempty" jsonschema:"What the time was spent on"`
	WorkDate        string `json:"work_date,omitempty" jsonschema:"Date in YYYY-MM-DD format (default: today)"`
	WorkTypeID      string `json:"work_type_id,omitempty" jsonschema:"Work type ID from get_work_types"`
}

type addSpentTimeInput struct {
	IssueID     string `json:"issue_id" jsonschema:"Issue identifier like 'DEMO-123'"`
	TimeString  string `json:"time_string" jsonschema:"Time in natural format like '1h', '30m', '2h 15m', or plain minutes"`
	Description string `json:"description,omitempty" jsonschema:"What the time was spent on"`
	WorkDate    string `json:"work_date,omitempty" jsonschema:"Date in YYYY-MM-DD format (default: today)"`
	WorkTypeID  string `json:"work_type_id,omitempty" jsonschema:"Work type ID from get_work_types"`
}

type workItemSummary struct {
	IssueID        string `json:"issue_id"`
	DurationLogged string `json:"duration_logged"`
	Description    string `json:"description"`
	Date           string `json:"date"`
}

type workItemOutput struct {
	WorkItem *youtrack.WorkItem `json:"work_item"`
	Summary  workItemSummary    `json:"summary"`
}

type getWorkItemsInput struct {
	IssueID string `json:"issue_id" jsonschema:"Issue identifier like 'DEMO-123'"`
}

type workItemsSummary struct {
	TotalEntries   int     `json:"total_entries"`
	TotalMinutes   int     `json:"total_time_minutes"`
	TotalTimeHours float64 `json:"total_time_hours"`
}

type getWorkItemsOutput struct {
	IssueID   string              `json:"issue_id"`
	WorkItems []youtrack.WorkItem `json:"work_items"`
	Summary   workItemsSummary    `json:"summary"`
}

type getWorkTypesInput struct {
	ProjectID string `json:"project_id" jsonschema:"Project short name like 'DEMO' or internal ID like '0-1'"`
}

type workTypesSummary struct {
	TotalTypes     int      `json:"total_types"`
	AvailableTypes []string `json:"available_types"`
}

type getWorkTypesOutput struct {
	ProjectID string                  `json:"project_id"`
	WorkTypes []youtrack.WorkItemType `json:"work_types"`
	Summary   workTypesSummary        `json:"summary"`
}

func (s *Server) registerTimeTools() {
	addTool(s, &ToolMetadata{
		Name:        "add_work_item",
		Description: "Log spent time on an issue in minutes, reflected in the issue's 'Spent time' field",
		Category:    CategoryTime,
		Keywords:    []string{"time", "log", "spent", "track", "minutes"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args addWorkItemInput) (*mcp.CallToolResult, workItemOutput, error) {
		result, out := s.logWork(ctx, args.IssueID, args.DurationMinutes, args.Description, args.WorkDate, args.WorkTypeID)
		return result, out, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "add_spent_time",
		Description: "Log spent time on an issue using natural formats like '1h', '30m', or '2h 15m'",
		Category:    CategoryTime,
		Keywords:    []string{"time", "hours", "natural", "log"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args addSpentTimeInput) (*mcp.CallToolResult, workItemOutput, error) {
		minutes, err := timeparse.Minutes(args.TimeString)
		if err != nil {
			issueID := s.normalizeID(args.IssueID)
			return errorResult(fmt.Errorf("failed to add spent time to issue %s: %w", issueID, err), map[string]any{
				"issue_id":       issueID,
				"attempted_time": args.TimeString,
			}), workItemOutput{}, nil
		}

		result, out := s.logWork(ctx, args.IssueID, minutes, args.Description, args.WorkDate, args.WorkTypeID)
		return result, out, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "get_work_items",
		Description: "List the time entries logged on an issue with totals",
		Category:    CategoryTime,
		Keywords:    []string{"time", "entries", "total", "spent"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getWorkItemsInput) (*mcp.CallToolResult, getWorkItemsOutput, error) {
		issueID := s.normalizeID(args.IssueID)
		items, err := s.work.List(ctx, issueID)
		if err != nil {
			return errorResult(fmt.Errorf("failed to get work items for issue %s: %w", issueID, err),
				map[string]any{"issue_id": issueID}), getWorkItemsOutput{}, nil
		}

		total := youtrack.TotalMinutes(items)
		out := getWorkItemsOutput{
			IssueID:   issueID,
			WorkItems: items,
			Summary: workItemsSummary{
				TotalEntries:   len(items),
				TotalMinutes:   total,
				TotalTimeHours: math.Round(float64(total)/60*100) / 100,
			},
		}
		return jsonResult(out), out, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "get_work_types",
		Description: "List the work item types a project accepts, e.g. Development or Testing",
		Category:    CategoryTime,
		Keywords:    []string{"types", "development", "testing", "categories"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getWorkTypesInput) (*mcp.CallToolResult, getWorkTypesOutput, error) {
		// The time tracking settings endpoint wants the internal
		// project ID, so short names get resolved first.
		types, err := s.work.WorkTypes(ctx, s.resolveProjectID(ctx, args.ProjectID))
		if err != nil {
			return errorResult(fmt.Errorf("failed to get work types for project %s: %w", args.ProjectID, err),
				map[string]any{"project_id": args.ProjectID}), getWorkTypesOutput{}, nil
		}

		names := make([]string, 0, len(types))
		for _, wt := range types {
			if wt.Name != "" {
				names = append(names, wt.Name)
			} else {
				names = append(names, "Unknown")
			}
		}

		out := getWorkTypesOutput{
			ProjectID: args.ProjectID,
			WorkTypes: types,
			Summary:   workTypesSummary{TotalTypes: len(types), AvailableTypes: names},
		}
		return jsonResult(out), out, nil
	})
}

// logWork submits a work item and journals the outcome. The journal is
// best effort: a recording failure never fails the tool call.
func (s *Server) logWork(ctx context.Context, rawIssueID string, minutes int, description, workDate, workTypeID string) (*mcp.CallToolResult, workItemOutput) {
	issueID := s.normalizeID(rawIssueID)

	item, err := s.work.Add(ctx, issueID, minutes, description, workDate, workTypeID)
	s.journalWork(ctx, issueID, minutes, description, workDate, err)
	if err != nil {
		return errorResult(fmt.Errorf("failed to add work item to issue %s: %w", issueID, err), map[string]any{
			"issue_id":           issueID,
			"attempted_duration": fmt.Sprintf("%d minutes", minutes),
		}), workItemOutput{}
	}

	summary := workItemSummary{
		IssueID:        issueID,
		DurationLogged: fmt.Sprintf("%d minutes", minutes),
		Description:    description,
		Date:           workDate,
	}
	if summary.Description == "" {
		summary.Description = "(no description)"
	}
	if summary.Date == "" {
		summary.Date = "today"
	}

	out := workItemOutput{WorkItem: item, Summary: summary}
	return jsonResult(out), out
}

// journalWork records a work item submission locally when the journal
// is enabled.
func (s *Server) journalWork(ctx context.Context, issueID string, minutes int, description, workDate string, submitErr error) {
	if s.journal == nil {
		return
	}

	entry := &journal.Entry{
		IssueID:     issueID,
		Minutes:     minutes,
		Description: description,
		WorkDate:    workDate,
		Status:      journal.StatusSubmitted,
	}
	if entry.WorkDate == "" {
		entry.WorkDate = time.Now().Format("2006-01-02")
	}
	if submitErr != nil {
		entry.Status = journal.StatusFailed
		entry.Detail = submitErr.Error()
	}

	if err := s.journal.Record(ctx, entry); err != nil {
		s.logger.Warn(ctx, "could not journal work item",
			zap.Int("minutes", minutes), zap.Error(err))
	}
}
