package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/trackforge/youtrackd/internal/youtrack"
)

// ===== DIAGNOSTIC AND HELP TOOLS =====

type diagnoseInput struct {
	IssueID string `json:"issue_id" jsonschema:"Issue identifier like 'DEMO-123'"`
}

type transitionInfo struct {
	EventID      string `json:"event_id"`
	Presentation string `json:"presentation"`
	Description  string `json:"description"`
}

type workflowAnalysis struct {
	IssueID              string            `json:"issue_id"`
	CurrentState         string            `json:"current_state"`
	FieldType            string            `json:"field_type"`
	WorkflowType         string            `json:"workflow_type"`
	AvailableTransitions []transitionInfo  `json:"available_transitions"`
	Restrictions         []string          `json:"restrictions"`
	Recommendations      []string          `json:"recommendations"`
	TechnicalNotes       map[string]string `json:"technical_notes"`
	Troubleshooting      []string          `json:"troubleshooting"`
}

type diagnoseOutput struct {
	Status           string           `json:"status"`
	WorkflowAnalysis workflowAnalysis `json:"workflow_analysis"`
}

type getHelpInput struct {
	Topic string `json:"topic,omitempty" jsonschema:"Help topic: all, state, priority, fields, projects, examples, functions, or workflow (default: all)"`
}

type helpOutput struct {
	HelpTopic          string         `json:"help_topic"`
	YouTrackHelp       map[string]any `json:"youtrack_help"`
	QuickExamples      map[string]any `json:"quick_examples"`
	AvailableFunctions map[string]any `json:"available_functions"`
	QuickTips          map[string]any `json:"quick_tips"`
	WorkflowGuidance   map[string]any `json:"workflow_guidance,omitempty"`
}

type searchToolsInput struct {
	Query    string `json:"query" jsonschema:"Search text matched against tool names and descriptions"`
	Category string `json:"category,omitempty" jsonschema:"Restrict matches to one category: issues, updates, fields, links, attachments, time, diagnostics, projects, or users"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum number of matches to return (default: 10)"`
}

type toolMatch struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Reason      string `json:"reason"`
}

type searchToolsOutput struct {
	Query   string      `json:"query"`
	Matches []toolMatch `json:"matches"`
	Count   int         `json:"count"`
}

func (s *Server) registerDiagnosticTools() {
	addTool(s, &ToolMetadata{
		Name:        "diagnose_workflow_restrictions",
		Description: "Analyze an issue's state field for workflow type, available transitions, and likely restrictions",
		Category:    CategoryDiagnostics,
		Keywords:    []string{"workflow", "blocked", "transitions", "analyze", "why"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args diagnoseInput) (*mcp.CallToolResult, diagnoseOutput, error) {
		if args.IssueID == "" {
			return errorResult(fmt.Errorf("issue_id is required"), nil), diagnoseOutput{}, nil
		}
		issueID := s.normalizeID(args.IssueID)

		field, err := s.issues.GetStateField(ctx, issueID)
		if err != nil {
			if errors.Is(err, youtrack.ErrNoStateField) {
				return errorResult(fmt.Errorf("no State field found for this issue"),
					map[string]any{"issue_id": issueID}), diagnoseOutput{}, nil
			}
			return errorResult(fmt.Errorf("failed to analyze workflow: %w", err), map[string]any{
				"issue_id":   issueID,
				"suggestion": "Try checking issue permissions or contact a YouTrack administrator",
			}), diagnoseOutput{}, nil
		}

		out := diagnoseOutput{Status: "success", WorkflowAnalysis: analyzeWorkflow(issueID, field)}
		return jsonResult(out), out, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "get_help",
		Description: "Interactive help with live project data, worked examples, and the full tool inventory",
		Category:    CategoryDiagnostics,
		Keywords:    []string{"help", "examples", "usage", "how"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getHelpInput) (*mcp.CallToolResult, helpOutput, error) {
		topic := args.Topic
		if topic == "" {
			topic = "all"
		}

		out := s.buildHelp(ctx, topic)
		return jsonResult(out), out, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "search_tools",
		Description: "Search the tool inventory by name, description, or keyword, optionally within one category",
		Category:    CategoryDiagnostics,
		Keywords:    []string{"search", "discover", "tools", "find", "which"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args searchToolsInput) (*mcp.CallToolResult, searchToolsOutput, error) {
		if args.Query == "" {
			return errorResult(fmt.Errorf("query is required"), nil), searchToolsOutput{}, nil
		}
		limit := args.Limit
		if limit <= 0 {
			limit = 10
		}

		results := s.registry.Search(args.Query, ToolCategory(args.Category))
		if len(results) > limit {
			results = results[:limit]
		}

		matches := make([]toolMatch, 0, len(results))
		for _, r := range results {
			matches = append(matches, toolMatch{
				Name:        r.Tool.Name,
				Description: r.Tool.Description,
				Category:    string(r.Tool.Category),
				Reason:      r.Reason,
			})
		}

		out := searchToolsOutput{Query: args.Query, Matches: matches, Count: len(matches)}
		return jsonResult(out), out, nil
	})
}

// analyzeWorkflow interprets a state field into transition and
// restriction guidance.
func analyzeWorkflow(issueID string, field *youtrack.StateField) workflowAnalysis {
	analysis := workflowAnalysis{
		IssueID:              issueID,
		CurrentState:         field.CurrentState,
		FieldType:            field.Type,
		WorkflowType:         "direct_field",
		AvailableTransitions: []transitionInfo{},
		Restrictions:         []string{},
		Recommendations:      []string{},
	}
	if field.StateMachine() {
		analysis.WorkflowType = "state_machine"
	}

	for _, event := range field.PossibleEvents {
		presentation := event.Presentation
		if presentation == "" {
			presentation = "Unknown"
		}
		analysis.AvailableTransitions = append(analysis.AvailableTransitions, transitionInfo{
			EventID:      event.ID,
			Presentation: event.Presentation,
			Description:  "Transition via event: " + presentation,
		})
	}

	if len(field.PossibleEvents) > 0 {
		if field.StateMachine() {
			analysis.Restrictions = append(analysis.Restrictions,
				"State machine workflow detected, transitions must go through events")
			analysis.Recommendations = append(analysis.Recommendations,
				"Use event-based transitions instead of direct state updates",
				"Check guard conditions that may block specific transitions",
				"Verify user permissions for workflow transitions")
		} else {
			analysis.Recommendations = append(analysis.Recommendations,
				"Direct state updates should work with proper field formatting")
		}
	} else {
		analysis.Restrictions = append(analysis.Restrictions,
			"No transition events available, which may indicate permission restrictions")
		analysis.Recommendations = append(analysis.Recommendations,
			"Check user permissions for state field updates",
			"Verify the workflow allows transitions from the current state",
			"Contact a YouTrack administrator if transitions should be available")
	}

	analysis.TechnicalNotes = map[string]string{
		"command_api":       "Use POST /api/commands with 'State NewState' for the most reliable transitions",
		"direct_api":        "Use POST /api/issues/{id} with the StateIssueCustomField type for direct updates",
		"state_machine_api": "Use POST /api/issues/{id} with StateMachineIssueCustomField and an event for state machine workflows",
		"permission_check":  "Verify 'Update Issue' or 'Update Issue Private Fields' permissions",
	}
	analysis.Troubleshooting = []string{
		"If 'Open' to 'In Progress' is blocked, check whether assignment is required first",
		"If transitions fail with 500 errors, verify the field type in the request",
		"If no events are available, check user role and project permissions",
		"The command-based approach (POST /api/commands) has the widest compatibility",
	}
	return analysis
}

// buildHelp assembles the help tree for a topic, pulling live project
// names and the registered tool inventory so the examples match this
// YouTrack instance.
func (s *Server) buildHelp(ctx context.Context, topic string) helpOutput {
	out := helpOutput{
		HelpTopic:          topic,
		YouTrackHelp:       map[string]any{},
		QuickExamples:      map[string]any{},
		AvailableFunctions: map[string]any{},
	}

	if topic == "all" || topic == "projects" {
		example := `create_issue(project="DEMO", summary="Your issue title")`
		projects, err := s.projects.List(ctx, false)
		if err != nil {
			out.YouTrackHelp["projects"] = map[string]any{
				"error":         fmt.Sprintf("could not fetch projects: %v", err),
				"example_usage": example,
			}
		} else {
			names := make([]string, 0, len(projects))
			for _, p := range projects {
				if p.ShortName != "" {
					names = append(names, p.ShortName)
				}
			}
			if len(names) > 0 {
				example = fmt.Sprintf(`create_issue(project=%q, summary="Your issue title")`, names[0])
			}
			out.YouTrackHelp["projects"] = map[string]any{
				"available_projects": names,
				"default_project":    s.defaultProjectKey,
				"example_usage":      example,
			}
		}
	}

	if topic == "all" || topic == "state" || topic == "priority" || topic == "fields" || topic == "workflow" {
		out.YouTrackHelp["workflow"] = map[string]any{
			"workflow_help": []string{
				"Use diagnose_workflow_restrictions on an issue to analyze specific restrictions",
				"The typical forward path is Open, then In Progress, then Fixed, then Closed",
				"Some transitions require an assignee or other conditions",
			},
			"priority_help": "Use update_issue_priority with values like 'Show-stopper', 'Critical', 'Major', 'Normal', 'Minor'",
			"field_help":    "Use get_available_custom_field_values to explore valid values per field",
		}
	}

	if topic == "all" || topic == "examples" {
		out.QuickExamples = map[string]any{
			"most_common_operations": map[string]string{
				"move_to_in_progress":   `update_issue_state(issue_id="DEMO-123", new_state="In Progress")`,
				"set_critical_priority": `update_issue_priority(issue_id="DEMO-123", new_priority="Critical")`,
				"assign_to_user":        `update_issue_assignee(issue_id="DEMO-123", assignee="admin")`,
				"change_to_bug":         `update_issue_type(issue_id="DEMO-123", issue_type="Bug")`,
				"set_estimation":        `update_issue_estimation(issue_id="DEMO-123", estimation="4h")`,
				"create_new_issue":      `create_issue(project="DEMO", summary="Bug in login system")`,
				"add_comment":           `add_comment(issue_id="DEMO-123", text="Working on this issue")`,
				"log_time":              `add_spent_time(issue_id="DEMO-123", time_string="1h 30m")`,
			},
			"workflow_combinations": map[string][]string{
				"escalate_issue": {
					`update_issue_priority(issue_id="DEMO-123", new_priority="Critical")`,
					`update_issue_assignee(issue_id="DEMO-123", assignee="admin")`,
					`update_issue_state(issue_id="DEMO-123", new_state="In Progress")`,
					`add_comment(issue_id="DEMO-123", text="Escalated to critical priority")`,
				},
				"complete_issue": {
					`update_issue_state(issue_id="DEMO-123", new_state="Fixed")`,
					`add_comment(issue_id="DEMO-123", text="Issue resolved and tested")`,
				},
				"triage_new_issue": {
					`update_issue_type(issue_id="DEMO-123", issue_type="Bug")`,
					`update_issue_priority(issue_id="DEMO-123", new_priority="Major")`,
					`update_issue_assignee(issue_id="DEMO-123", assignee="jane.doe")`,
					`update_issue_estimation(issue_id="DEMO-123", estimation="2d")`,
				},
			},
		}
	}

	if topic == "all" || topic == "functions" {
		// Group the registered tools so callers always see the real
		// inventory, not a hand-maintained list.
		byCategory := make(map[string]map[string]string)
		for _, tool := range s.registry.List() {
			category := string(tool.Category)
			if byCategory[category] == nil {
				byCategory[category] = make(map[string]string)
			}
			byCategory[category][tool.Name] = tool.Description
		}
		for category, tools := range byCategory {
			out.AvailableFunctions[category] = tools
		}
	}

	out.QuickTips = map[string]any{
		"proven_formats": map[string]string{
			"states":     "Use simple strings: 'In Progress', not {'name': 'In Progress'}",
			"priorities": "Use simple strings: 'Critical', not {'name': 'Critical'}",
			"users":      "Use login names: 'admin', not {'login': 'admin'}",
			"time":       "Use simple formats: '4h', '2d', '30m', not ISO durations",
		},
		"troubleshooting": map[string]string{
			"workflow_errors": "Use diagnose_workflow_restrictions to understand blocked transitions",
			"field_values":    "Use get_available_custom_field_values to see valid options",
			"permissions":     "Ensure you have edit permissions for the project",
			"format_errors":   "Always use simple string values, avoid complex objects",
		},
	}

	if topic == "workflow" {
		out.WorkflowGuidance = map[string]any{
			"common_restrictions": []string{
				"'Submitted' to 'Open' is often blocked to prevent backward workflow",
				"Moving to 'In Progress' may require an assignee to be set first",
				"'Fixed' or 'Closed' to 'Open' usually requires admin permissions",
			},
			"best_practices": []string{
				"Use forward transitions when possible: Open, In Progress, Fixed",
				"Set the assignee before moving to 'In Progress'",
				"Use diagnose_workflow_restrictions to understand blocks",
				"Check the project workflow configuration if transitions keep failing",
			},
			"troubleshooting_steps": []string{
				"1. Run diagnose_workflow_restrictions on the issue",
				"2. Check whether an assignee is required: run update_issue_assignee first",
				"3. Try forward transitions instead of backward ones",
				"4. Contact an admin if the workflow needs to be modified",
			},
		}
	}

	return out
}
