package mcp

import (
	"context"
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/trackforge/youtrackd/internal/youtrack"
)

// ===== CUSTOM FIELD TOOLS =====

type updateCustomFieldsInput struct {
	IssueID      string         `json:"issue_id" jsonschema:"Issue identifier like 'DEMO-123'"`
	CustomFields map[string]any `json:"custom_fields" jsonschema:"Field name to value pairs using plain strings (e.g. {\"Priority\": \"Critical\"})"`
	Validate     *bool          `json:"validate,omitempty" jsonschema:"Validate values against the project schema first (default: true)"`
}

type updateCustomFieldsOutput struct {
	Status        string          `json:"status"`
	IssueID       string          `json:"issue_id"`
	UpdatedFields []string        `json:"updated_fields"`
	Message       string          `json:"message"`
	IssueData     *youtrack.Issue `json:"issue_data"`
}

type batchUpdateInput struct {
	Updates      []youtrack.BatchUpdate `json:"updates,omitempty" jsonschema:"Per-issue updates, each with 'issue_id' and 'fields'"`
	Issues       []string               `json:"issues,omitempty" jsonschema:"Issue IDs to apply the same fields to (bulk format)"`
	CustomFields map[string]any         `json:"custom_fields,omitempty" jsonschema:"Fields to apply to every issue in 'issues' (bulk format)"`
}

type batchSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Errors     int `json:"errors"`
	Skipped    int `json:"skipped"`
}

type batchUpdateOutput struct {
	Status  string                 `json:"status"`
	Summary batchSummary           `json:"summary"`
	Results []youtrack.BatchResult `json:"results"`
}

type getCustomFieldsInput struct {
	IssueID string `json:"issue_id" jsonschema:"Issue identifier like 'DEMO-123'"`
}

type getCustomFieldsOutput struct {
	Status       string         `json:"status"`
	IssueID      string         `json:"issue_id"`
	CustomFields map[string]any `json:"custom_fields"`
	FieldCount   int            `json:"field_count"`
}

type validateFieldInput struct {
	ProjectID  string `json:"project_id" jsonschema:"Project short name like 'DEMO' or internal ID like '0-0'"`
	FieldName  string `json:"field_name" jsonschema:"Custom field name like 'Priority' or 'State'"`
	FieldValue any    `json:"field_value" jsonschema:"Value to check against the field schema"`
}

type fieldValuesInput struct {
	ProjectID string `json:"project_id" jsonschema:"Project short name like 'DEMO' or internal ID like '0-0'"`
	FieldName string `json:"field_name" jsonschema:"Custom field name like 'Priority' or 'Type'"`
}

type fieldValuesOutput struct {
	Status        string                  `json:"status"`
	ProjectID     string                  `json:"project_id"`
	FieldName     string                  `json:"field_name"`
	AllowedValues []youtrack.AllowedValue `json:"allowed_values"`
	ValueCount    int                     `json:"value_count"`
}

func (s *Server) registerFieldTools() {
	addTool(s, &ToolMetadata{
		Name:        "update_custom_fields",
		Description: "Update custom fields on an issue with schema validation, using plain values like {\"Priority\": \"Critical\", \"Assignee\": \"admin\"}",
		Category:    CategoryFields,
		Keywords:    []string{"fields", "set", "custom", "validate"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args updateCustomFieldsInput) (*mcp.CallToolResult, updateCustomFieldsOutput, error) {
		if args.IssueID == "" {
			return errorResult(fmt.Errorf("issue_id is required"), nil), updateCustomFieldsOutput{}, nil
		}
		if len(args.CustomFields) == 0 {
			return errorResult(fmt.Errorf("custom_fields map is required"), nil), updateCustomFieldsOutput{}, nil
		}

		issueID := s.normalizeID(args.IssueID)
		validate := args.Validate == nil || *args.Validate

		issue, err := s.issues.UpdateCustomFields(ctx, issueID, args.CustomFields, validate)
		if err != nil {
			return errorResult(err, map[string]any{
				"issue_id":         issueID,
				"attempted_fields": fieldNames(args.CustomFields),
			}), updateCustomFieldsOutput{}, nil
		}

		out := updateCustomFieldsOutput{
			Status:        "success",
			IssueID:       issueID,
			UpdatedFields: fieldNames(args.CustomFields),
			Message:       fmt.Sprintf("Updated %d custom field(s)", len(args.CustomFields)),
			IssueData:     issue,
		}
		return jsonResult(out), out, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "batch_update_custom_fields",
		Description: "Update custom fields across several issues in one call, either per-issue 'updates' or the same 'custom_fields' for a list of 'issues'",
		Category:    CategoryFields,
		Keywords:    []string{"batch", "bulk", "multiple", "mass"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args batchUpdateInput) (*mcp.CallToolResult, batchUpdateOutput, error) {
		var updates []youtrack.BatchUpdate
		switch {
		case len(args.Updates) > 0:
			updates = args.Updates
		case len(args.Issues) > 0 && len(args.CustomFields) > 0:
			updates = make([]youtrack.BatchUpdate, 0, len(args.Issues))
			for _, issueID := range args.Issues {
				updates = append(updates, youtrack.BatchUpdate{IssueID: issueID, Fields: args.CustomFields})
			}
		default:
			return errorResult(fmt.Errorf("either 'updates' list or both 'issues' and 'custom_fields' parameters are required"),
				map[string]any{
					"received_params": map[string]bool{
						"updates":       args.Updates != nil,
						"issues":        args.Issues != nil,
						"custom_fields": args.CustomFields != nil,
					},
				}), batchUpdateOutput{}, nil
		}

		for i := range updates {
			updates[i].IssueID = s.normalizeID(updates[i].IssueID)
		}

		results := s.issues.BatchUpdateCustomFields(ctx, updates)

		summary := batchSummary{Total: len(updates)}
		for _, r := range results {
			switch r.Status {
			case "success":
				summary.Successful++
			case "error":
				summary.Errors++
			case "skipped":
				summary.Skipped++
			}
		}

		out := batchUpdateOutput{Status: "completed", Summary: summary, Results: results}
		return jsonResult(out), out, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "get_custom_fields",
		Description: "Get all custom fields of an issue as a flat name-to-value map",
		Category:    CategoryFields,
		Keywords:    []string{"fields", "values", "current"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getCustomFieldsInput) (*mcp.CallToolResult, getCustomFieldsOutput, error) {
		if args.IssueID == "" {
			return errorResult(fmt.Errorf("issue_id is required"), nil), getCustomFieldsOutput{}, nil
		}
		issueID := s.normalizeID(args.IssueID)

		fields, err := s.issues.GetCustomFields(ctx, issueID)
		if err != nil {
			return errorResult(err, map[string]any{"issue_id": issueID}), getCustomFieldsOutput{}, nil
		}

		out := getCustomFieldsOutput{
			Status:       "success",
			IssueID:      issueID,
			CustomFields: fields,
			FieldCount:   len(fields),
		}
		return jsonResult(out), out, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "validate_custom_field",
		Description: "Check a custom field value against the project schema before applying it",
		Category:    CategoryFields,
		Keywords:    []string{"validate", "check", "schema", "allowed"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args validateFieldInput) (*mcp.CallToolResult, youtrack.FieldValidation, error) {
		if args.ProjectID == "" || args.FieldName == "" {
			return errorResult(fmt.Errorf("project_id and field_name are required"), nil), youtrack.FieldValidation{}, nil
		}

		// A "valid: false" verdict is a successful check, not a tool
		// failure.
		result := s.projects.ValidateFieldValue(ctx, args.ProjectID, args.FieldName, args.FieldValue)
		return jsonResult(result), result, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "get_available_custom_field_values",
		Description: "List the values an enum, state, or user field accepts in a project",
		Category:    CategoryFields,
		Keywords:    []string{"enum", "options", "allowed", "bundle"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args fieldValuesInput) (*mcp.CallToolResult, fieldValuesOutput, error) {
		if args.ProjectID == "" || args.FieldName == "" {
			return errorResult(fmt.Errorf("project_id and field_name are required"), nil), fieldValuesOutput{}, nil
		}

		values, err := s.projects.AllowedValues(ctx, args.ProjectID, args.FieldName)
		if err != nil {
			return errorResult(err, map[string]any{
				"project_id": args.ProjectID,
				"field_name": args.FieldName,
			}), fieldValuesOutput{}, nil
		}

		out := fieldValuesOutput{
			Status:        "success",
			ProjectID:     args.ProjectID,
			FieldName:     args.FieldName,
			AllowedValues: values,
			ValueCount:    len(values),
		}
		return jsonResult(out), out, nil
	})
}

// fieldNames returns the keys of a field map in sorted order so
// responses stay deterministic.
func fieldNames(fields map[string]any) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
