package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/trackforge/youtrackd/internal/youtrack"
)

// ===== DEDICATED UPDATE TOOLS =====
//
// These tools wrap the most common field changes with plain string
// values ("In Progress", "Critical", "admin") so callers never have to
// construct custom field objects. State changes additionally carry
// workflow guidance when YouTrack rejects a transition.

type updateIssueStateInput struct {
	IssueID  string `json:"issue_id" jsonschema:"Issue identifier like 'DEMO-123'"`
	NewState string `json:"new_state" jsonschema:"Target state name like 'In Progress' or 'Fixed'"`
}

type stateUpdateOutput struct {
	Status    string          `json:"status" jsonschema:"Always 'success' on this shape"`
	Message   string          `json:"message" jsonschema:"Human readable confirmation"`
	IssueID   string          `json:"issue_id" jsonschema:"Normalized issue identifier"`
	NewState  string          `json:"new_state" jsonschema:"State that was applied"`
	APIMethod string          `json:"api_method" jsonschema:"Which API path performed the change"`
	IssueData *youtrack.Issue `json:"issue_data" jsonschema:"Issue after the update"`
}

type updateIssuePriorityInput struct {
	IssueID     string `json:"issue_id" jsonschema:"Issue identifier like 'DEMO-123'"`
	NewPriority string `json:"new_priority" jsonschema:"Target priority like 'Critical' or 'Normal'"`
}

type priorityUpdateOutput struct {
	Status        string          `json:"status"`
	Message       string          `json:"message"`
	IssueID       string          `json:"issue_id"`
	NewPriority   string          `json:"new_priority"`
	APIMethod     string          `json:"api_method"`
	UpdatedFields []string        `json:"updated_fields"`
	IssueData     *youtrack.Issue `json:"issue_data"`
}

type updateIssueAssigneeInput struct {
	IssueID  string `json:"issue_id" jsonschema:"Issue identifier like 'DEMO-123'"`
	Assignee string `json:"assignee" jsonschema:"User login name like 'admin' or 'john.doe'"`
}

type assigneeUpdateOutput struct {
	Status        string          `json:"status"`
	Message       string          `json:"message"`
	IssueID       string          `json:"issue_id"`
	Assignee      string          `json:"assignee"`
	APIMethod     string          `json:"api_method"`
	UpdatedFields []string        `json:"updated_fields"`
	IssueData     *youtrack.Issue `json:"issue_data"`
}

type updateIssueTypeInput struct {
	IssueID   string `json:"issue_id" jsonschema:"Issue identifier like 'DEMO-123'"`
	IssueType string `json:"issue_type" jsonschema:"Target type like 'Bug' or 'Feature'"`
}

type typeUpdateOutput struct {
	Status        string          `json:"status"`
	Message       string          `json:"message"`
	IssueID       string          `json:"issue_id"`
	IssueType     string          `json:"issue_type"`
	APIMethod     string          `json:"api_method"`
	UpdatedFields []string        `json:"updated_fields"`
	IssueData     *youtrack.Issue `json:"issue_data"`
}

type updateIssueEstimationInput struct {
	IssueID    string `json:"issue_id" jsonschema:"Issue identifier like 'DEMO-123'"`
	Estimation string `json:"estimation" jsonschema:"Time estimate like '4h' or '2d' or '3d 5h'"`
}

type estimationUpdateOutput struct {
	Status        string          `json:"status"`
	Message       string          `json:"message"`
	IssueID       string          `json:"issue_id"`
	Estimation    string          `json:"estimation"`
	APIMethod     string          `json:"api_method"`
	UpdatedFields []string        `json:"updated_fields"`
	IssueData     *youtrack.Issue `json:"issue_data"`
}

func (s *Server) registerUpdateTools() {
	addTool(s, &ToolMetadata{
		Name:        "update_issue_state",
		Description: "Change an issue's state with a plain value like 'In Progress', with a Commands API fallback and workflow guidance when transitions are blocked",
		Category:    CategoryUpdates,
		Keywords:    []string{"state", "transition", "workflow", "status", "close", "reopen"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args updateIssueStateInput) (*mcp.CallToolResult, stateUpdateOutput, error) {
		if args.IssueID == "" || args.NewState == "" {
			return errorResult(fmt.Errorf("both issue_id and new_state are required"), nil), stateUpdateOutput{}, nil
		}
		issueID := s.normalizeID(args.IssueID)

		if err := s.issues.ApplyStateUpdate(ctx, issueID, args.NewState); err == nil {
			out := s.stateSuccess(ctx, issueID, args.NewState, "direct field update")
			return jsonResult(out), out, nil
		}

		// The direct field update gets rejected on state machine
		// workflows; the Commands API drives those transitions.
		s.logger.Debug(ctx, "direct state update rejected, falling back to commands",
			zap.String("new_state", args.NewState))

		if _, err := s.issues.UpdateCustomFields(ctx, issueID, map[string]any{"State": args.NewState}, false); err != nil {
			return s.stateRestricted(ctx, issueID, args.NewState, err), stateUpdateOutput{}, nil
		}

		out := s.stateSuccess(ctx, issueID, args.NewState, "commands API (fallback)")
		out.Message += " using fallback method"
		return jsonResult(out), out, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "update_issue_priority",
		Description: "Set an issue's priority with a plain value like 'Critical', 'Major', 'Normal', or 'Minor'",
		Category:    CategoryUpdates,
		Keywords:    []string{"priority", "critical", "major", "severity"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args updateIssuePriorityInput) (*mcp.CallToolResult, priorityUpdateOutput, error) {
		if args.IssueID == "" || args.NewPriority == "" {
			return errorResult(fmt.Errorf("both issue_id and new_priority are required"), nil), priorityUpdateOutput{}, nil
		}
		issueID := s.normalizeID(args.IssueID)

		issue, err := s.issues.UpdateCustomFields(ctx, issueID, map[string]any{"Priority": args.NewPriority}, true)
		if err != nil {
			return errorResult(fmt.Errorf("priority update failed: %w", err), map[string]any{
				"issue_id":        issueID,
				"target_priority": args.NewPriority,
				"troubleshooting": []string{
					"Check if the priority value exists in your YouTrack project",
					"Verify you have permissions to change issue priorities",
					"Common priority values: Critical, Major, Normal, Minor",
				},
				"field_help": "Use get_available_custom_field_values with field_name 'Priority' to see valid options",
			}), priorityUpdateOutput{}, nil
		}

		out := priorityUpdateOutput{
			Status:        "success",
			Message:       fmt.Sprintf("Successfully updated issue %s priority to '%s'", issueID, args.NewPriority),
			IssueID:       issueID,
			NewPriority:   args.NewPriority,
			APIMethod:     "direct field update",
			UpdatedFields: []string{"Priority"},
			IssueData:     issue,
		}
		return jsonResult(out), out, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "update_issue_assignee",
		Description: "Assign an issue to a user by login name, e.g. 'admin' or 'john.doe'",
		Category:    CategoryUpdates,
		Keywords:    []string{"assign", "assignee", "owner", "triage"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args updateIssueAssigneeInput) (*mcp.CallToolResult, assigneeUpdateOutput, error) {
		if args.IssueID == "" || args.Assignee == "" {
			return errorResult(fmt.Errorf("both issue_id and assignee are required"), nil), assigneeUpdateOutput{}, nil
		}
		issueID := s.normalizeID(args.IssueID)

		issue, err := s.issues.UpdateCustomFields(ctx, issueID, map[string]any{"Assignee": args.Assignee}, true)
		if err != nil {
			return errorResult(fmt.Errorf("assignee update failed: %w", err), map[string]any{
				"issue_id":        issueID,
				"target_assignee": args.Assignee,
				"troubleshooting": []string{
					"Check if the user exists in your YouTrack instance",
					"Verify the user has access to this project",
					"Use login names like 'admin' or 'john.doe', not display names",
				},
				"user_help": "Use get_current_user or search_users to find valid login names",
			}), assigneeUpdateOutput{}, nil
		}

		out := assigneeUpdateOutput{
			Status:        "success",
			Message:       fmt.Sprintf("Successfully assigned issue %s to '%s'", issueID, args.Assignee),
			IssueID:       issueID,
			Assignee:      args.Assignee,
			APIMethod:     "direct field update",
			UpdatedFields: []string{"Assignee"},
			IssueData:     issue,
		}
		return jsonResult(out), out, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "update_issue_type",
		Description: "Change an issue's type with a plain value like 'Bug', 'Feature', or 'Task'",
		Category:    CategoryUpdates,
		Keywords:    []string{"type", "bug", "feature", "task", "kind"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args updateIssueTypeInput) (*mcp.CallToolResult, typeUpdateOutput, error) {
		if args.IssueID == "" || args.IssueType == "" {
			return errorResult(fmt.Errorf("both issue_id and issue_type are required"), nil), typeUpdateOutput{}, nil
		}
		issueID := s.normalizeID(args.IssueID)

		issue, err := s.issues.UpdateCustomFields(ctx, issueID, map[string]any{"Type": args.IssueType}, true)
		if err != nil {
			return errorResult(fmt.Errorf("type update failed: %w", err), map[string]any{
				"issue_id":    issueID,
				"target_type": args.IssueType,
				"troubleshooting": []string{
					"Check if the issue type exists in your YouTrack project",
					"Verify you have permissions to change issue types",
					"Common types: Bug, Feature, Task, Story, Epic",
				},
				"type_help": "Use get_available_custom_field_values with field_name 'Type' to see valid options",
			}), typeUpdateOutput{}, nil
		}

		out := typeUpdateOutput{
			Status:        "success",
			Message:       fmt.Sprintf("Successfully updated issue %s type to '%s'", issueID, args.IssueType),
			IssueID:       issueID,
			IssueType:     args.IssueType,
			APIMethod:     "direct field update",
			UpdatedFields: []string{"Type"},
			IssueData:     issue,
		}
		return jsonResult(out), out, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "update_issue_estimation",
		Description: "Set an issue's time estimation with formats like '30m', '4h', '2d', '1w', or '3d 5h'",
		Category:    CategoryUpdates,
		Keywords:    []string{"estimation", "estimate", "effort", "hours"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args updateIssueEstimationInput) (*mcp.CallToolResult, estimationUpdateOutput, error) {
		if args.IssueID == "" || args.Estimation == "" {
			return errorResult(fmt.Errorf("both issue_id and estimation are required"), nil), estimationUpdateOutput{}, nil
		}
		issueID := s.normalizeID(args.IssueID)

		issue, err := s.issues.UpdateCustomFields(ctx, issueID, map[string]any{"Estimation": args.Estimation}, true)
		if err != nil {
			return errorResult(fmt.Errorf("estimation update failed: %w", err), map[string]any{
				"issue_id":          issueID,
				"target_estimation": args.Estimation,
				"troubleshooting": []string{
					"Use simple time formats: '4h', '2d', '30m', '1w'",
					"Combine units like '3d 5h' for 3 days 5 hours",
					"Check if the Estimation field exists in your project",
					"Verify you have permissions to update time estimates",
				},
				"format_examples": []string{
					"30m (30 minutes)",
					"4h (4 hours)",
					"2d (2 days)",
					"1w (1 week)",
					"3d 5h (3 days 5 hours)",
				},
			}), estimationUpdateOutput{}, nil
		}

		out := estimationUpdateOutput{
			Status:        "success",
			Message:       fmt.Sprintf("Successfully updated issue %s estimation to '%s'", issueID, args.Estimation),
			IssueID:       issueID,
			Estimation:    args.Estimation,
			APIMethod:     "direct field update",
			UpdatedFields: []string{"Estimation"},
			IssueData:     issue,
		}
		return jsonResult(out), out, nil
	})
}

// stateSuccess builds the success payload for a state change, refetching
// the issue so the caller sees the state that actually stuck.
func (s *Server) stateSuccess(ctx context.Context, issueID, newState, method string) stateUpdateOutput {
	out := stateUpdateOutput{
		Status:    "success",
		Message:   fmt.Sprintf("Successfully updated issue %s state to '%s'", issueID, newState),
		IssueID:   issueID,
		NewState:  newState,
		APIMethod: method,
	}
	issue, err := s.issues.Get(ctx, issueID)
	if err != nil {
		s.logger.Warn(ctx, "could not refetch issue after state update", zap.Error(err))
		return out
	}
	out.IssueData = issue
	return out
}

// stateRestricted turns a rejected state change into a guidance payload.
// The current state is looked up so the advice can name the transition
// that was blocked.
func (s *Server) stateRestricted(ctx context.Context, issueID, newState string, cause error) *mcp.CallToolResult {
	current := "Unknown"
	if fields, err := s.issues.GetCustomFields(ctx, issueID); err == nil {
		if v, ok := fields["State"].(string); ok && v != "" {
			current = v
		}
	}

	reason := fmt.Sprintf("transition from '%s' to '%s' is blocked by workflow rules", current, newState)
	if current == "Unknown" {
		reason = fmt.Sprintf("transition to '%s' is blocked by workflow rules", newState)
	}

	return errorResult(fmt.Errorf("state transition failed: %s", reason), map[string]any{
		"issue_id":             issueID,
		"target_state":         newState,
		"workflow_restriction": true,
		"specific_guidance":    stateGuidance(current, newState, cause),
		"general_troubleshooting": []string{
			"Check if the target state exists in your YouTrack project",
			"Verify you have permissions to change issue states",
			"Some transitions require intermediate steps or conditions",
		},
		"diagnostic_help":        fmt.Sprintf("Use diagnose_workflow_restrictions on %s for a detailed workflow analysis", issueID),
		"alternative_suggestion": "Try forward transitions like 'In Progress' or 'Fixed' instead of backward ones",
	})
}

// stateGuidance maps the common workflow rejection patterns to concrete
// advice. Ordering matters: the most specific patterns come first.
func stateGuidance(current, target string, cause error) []string {
	errText := strings.ToLower(cause.Error())

	switch {
	case current == "Submitted" && target == "Open":
		return []string{
			"Moving from 'Submitted' back to 'Open' is typically not allowed",
			"Issues usually cannot go backwards once they enter review",
			"Move to 'In Progress' to continue work, or 'Fixed' when the work is complete",
			"Ask a YouTrack admin to change the workflow rules if the transition is genuinely needed",
		}
	case target == "In Progress" && (strings.Contains(errText, "assignee") || current == "Open" || current == "Submitted"):
		return []string{
			"'In Progress' may require the issue to have an assignee",
			"Set an assignee with update_issue_assignee first, then retry the state change",
		}
	case (current == "Fixed" || current == "Closed") && (target == "Open" || target == "In Progress"):
		return []string{
			fmt.Sprintf("Reopening from '%s' may require special permissions", current),
			"Completed work is usually not reopened without approval",
			"Check whether the transition needs admin rights, or open a new issue for the follow-up work",
		}
	case youtrack.IsMethodNotAllowed(cause):
		return []string{
			"HTTP 405 means the operation is not allowed for this issue",
			fmt.Sprintf("The '%s' to '%s' transition most likely violates a workflow rule", current, target),
			"Forward transitions like 'In Progress' or 'Fixed' tend to be permitted",
			"Run diagnose_workflow_restrictions to see which transitions are available",
		}
	default:
		return []string{
			fmt.Sprintf("The '%s' to '%s' transition is not allowed by the project workflow", current, target),
			"Run diagnose_workflow_restrictions to see which transitions are available from the current state",
		}
	}
}
