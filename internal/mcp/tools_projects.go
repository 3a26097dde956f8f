package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/trackforge/youtrackd/internal/youtrack"
)

// ===== PROJECT TOOLS =====

type getProjectsInput struct {
	IncludeArchived bool `json:"include_archived,omitempty" jsonschema:"Include archived projects (default: false)"`
}

type getProjectsOutput struct {
	Projects []youtrack.Project `json:"projects"`
	Count    int                `json:"count"`
}

type getProjectInput struct {
	ProjectID string `json:"project_id" jsonschema:"Project short name like 'DEMO' or internal ID like '0-1'"`
}

type getProjectOutput struct {
	Project *youtrack.Project `json:"project"`
}

type projectByNameInput struct {
	ProjectName string `json:"project_name" jsonschema:"Project name or short name, matched case-insensitively"`
}

type projectIssuesInput struct {
	ProjectID string `json:"project_id" jsonschema:"Project short name like 'DEMO' or internal ID like '0-1'"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum issues to return (default: 10)"`
}

type projectIssuesOutput struct {
	ProjectID string           `json:"project_id"`
	Issues    []youtrack.Issue `json:"issues"`
	Count     int              `json:"count"`
}

type fieldSchemaInput struct {
	ProjectID string `json:"project_id" jsonschema:"Project short name like 'DEMO' or internal ID like '0-1'"`
	FieldName string `json:"field_name,omitempty" jsonschema:"Custom field name; omit to get every field's schema"`
}

type fieldSchemaOutput struct {
	ProjectID string                          `json:"project_id"`
	FieldName string                          `json:"field_name,omitempty"`
	Schema    *youtrack.FieldSchema           `json:"schema,omitempty"`
	Schemas   map[string]youtrack.FieldSchema `json:"schemas,omitempty"`
	Count     int                             `json:"count,omitempty"`
}

func (s *Server) registerProjectTools() {
	addTool(s, &ToolMetadata{
		Name:        "get_projects",
		Description: "List the projects in this YouTrack instance",
		Category:    CategoryProjects,
		Keywords:    []string{"projects", "list", "explore", "archived"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getProjectsInput) (*mcp.CallToolResult, getProjectsOutput, error) {
		projects, err := s.projects.List(ctx, args.IncludeArchived)
		if err != nil {
			return errorResult(err, nil), getProjectsOutput{}, nil
		}

		out := getProjectsOutput{Projects: projects, Count: len(projects)}
		return jsonResult(out), out, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "get_project",
		Description: "Get a project's details by short name or internal ID",
		Category:    CategoryProjects,
		Keywords:    []string{"project", "details", "lead"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getProjectInput) (*mcp.CallToolResult, getProjectOutput, error) {
		if args.ProjectID == "" {
			return errorResult(fmt.Errorf("project_id is required"), nil), getProjectOutput{}, nil
		}

		project, err := s.projects.Get(ctx, s.resolveProjectID(ctx, args.ProjectID))
		if err != nil {
			return errorResult(err, map[string]any{"project_id": args.ProjectID}), getProjectOutput{}, nil
		}

		out := getProjectOutput{Project: project}
		return jsonResult(out), out, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "get_project_by_name",
		Description: "Find a project by name or short name, matching case-insensitively",
		Category:    CategoryProjects,
		Keywords:    []string{"find", "lookup", "name"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args projectByNameInput) (*mcp.CallToolResult, getProjectOutput, error) {
		if args.ProjectName == "" {
			return errorResult(fmt.Errorf("project_name is required"), nil), getProjectOutput{}, nil
		}

		project, err := s.projects.GetByName(ctx, args.ProjectName)
		if err != nil {
			return errorResult(err, map[string]any{"project_name": args.ProjectName}), getProjectOutput{}, nil
		}

		out := getProjectOutput{Project: project}
		return jsonResult(out), out, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "get_project_issues",
		Description: "List a project's issues with full field data",
		Category:    CategoryProjects,
		Keywords:    []string{"issues", "list", "browse"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args projectIssuesInput) (*mcp.CallToolResult, projectIssuesOutput, error) {
		if args.ProjectID == "" {
			return errorResult(fmt.Errorf("project_id is required"), nil), projectIssuesOutput{}, nil
		}
		limit := args.Limit
		if limit <= 0 {
			limit = 10
		}

		projectID := s.resolveProjectID(ctx, args.ProjectID)
		issues, err := s.projects.Issues(ctx, projectID, limit)
		if err != nil {
			return errorResult(err, map[string]any{"project_id": args.ProjectID}), projectIssuesOutput{}, nil
		}

		out := projectIssuesOutput{ProjectID: projectID, Issues: issues, Count: len(issues)}
		return jsonResult(out), out, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "get_custom_field_schema",
		Description: "Get the schema of one custom field, or of every field in a project when no name is given",
		Category:    CategoryProjects,
		Keywords:    []string{"schema", "fields", "types", "bundle"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args fieldSchemaInput) (*mcp.CallToolResult, fieldSchemaOutput, error) {
		if args.ProjectID == "" {
			return errorResult(fmt.Errorf("project_id is required"), nil), fieldSchemaOutput{}, nil
		}
		projectID := s.resolveProjectID(ctx, args.ProjectID)

		if args.FieldName != "" {
			schema, err := s.projects.CustomFieldSchema(ctx, projectID, args.FieldName)
			if err != nil {
				return errorResult(err, map[string]any{
					"project_id": args.ProjectID,
					"field_name": args.FieldName,
				}), fieldSchemaOutput{}, nil
			}
			out := fieldSchemaOutput{ProjectID: projectID, FieldName: args.FieldName, Schema: schema}
			return jsonResult(out), out, nil
		}

		schemas, err := s.projects.AllSchemas(ctx, projectID)
		if err != nil {
			return errorResult(err, map[string]any{"project_id": args.ProjectID}), fieldSchemaOutput{}, nil
		}
		out := fieldSchemaOutput{ProjectID: projectID, Schemas: schemas, Count: len(schemas)}
		return jsonResult(out), out, nil
	})
}

// resolveProjectID maps a project short name to its internal ID.
// Values that already look internal ("0-" prefixed) pass through, as
// does anything lookup cannot resolve.
func (s *Server) resolveProjectID(ctx context.Context, projectID string) string {
	if strings.HasPrefix(projectID, "0-") {
		return projectID
	}
	if project, err := s.projects.GetByName(ctx, projectID); err == nil && project.ID != "" {
		return project.ID
	}
	return projectID
}
