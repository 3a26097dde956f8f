package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/trackforge/youtrackd/internal/ids"
	"github.com/trackforge/youtrackd/internal/youtrack"
)

// ===== BASIC ISSUE TOOLS =====

type getIssueInput struct {
	IssueID string `json:"issue_id" jsonschema:"Issue identifier like 'DEMO-123' (bare numbers get the default project key)"`
}

type getIssueOutput struct {
	Issue *youtrack.Issue `json:"issue" jsonschema:"Issue data with project and custom fields"`
}

type searchIssuesInput struct {
	Query string `json:"query" jsonschema:"YouTrack search query (e.g. 'project: DEMO #Unresolved')"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum results to return (default: 10)"`
}

type searchIssuesOutput struct {
	Query  string           `json:"query" jsonschema:"Normalized query that was executed"`
	Issues []youtrack.Issue `json:"issues" jsonschema:"Matching issues"`
	Count  int              `json:"count" jsonschema:"Number of issues returned"`
}

type createIssueInput struct {
	Project     string `json:"project" jsonschema:"Project short name like 'DEMO' or internal ID like '0-1'"`
	Summary     string `json:"summary" jsonschema:"Issue title"`
	Description string `json:"description,omitempty" jsonschema:"Detailed description"`
}

type createIssueOutput struct {
	Issue *youtrack.Issue `json:"issue" jsonschema:"Created issue"`
}

type updateIssueInput struct {
	IssueID          string         `json:"issue_id" jsonschema:"Issue identifier"`
	Summary          string         `json:"summary,omitempty" jsonschema:"New summary"`
	Description      string         `json:"description,omitempty" jsonschema:"New description"`
	AdditionalFields map[string]any `json:"additional_fields,omitempty" jsonschema:"Extra top-level fields to set"`
}

type updateIssueOutput struct {
	Issue *youtrack.Issue `json:"issue" jsonschema:"Updated issue"`
}

type addCommentInput struct {
	IssueID string `json:"issue_id" jsonschema:"Issue identifier"`
	Text    string `json:"text" jsonschema:"Comment text"`
}

type addCommentOutput struct {
	Comment *youtrack.Comment `json:"comment" jsonschema:"Created comment"`
}

type getIssueRawOutput struct {
	Issue map[string]any `json:"issue" jsonschema:"Complete API shape including comments and attachments"`
}

func (s *Server) registerIssueTools() {
	addTool(s, &ToolMetadata{
		Name:        "get_issue",
		Description: "Get complete information about a YouTrack issue including custom fields and metadata",
		Category:    CategoryIssues,
		Keywords:    []string{"read", "fetch", "details", "show"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getIssueInput) (*mcp.CallToolResult, getIssueOutput, error) {
		issueID := s.normalizeID(args.IssueID)
		issue, err := s.issues.Get(ctx, issueID)
		if err != nil {
			return errorResult(err, map[string]any{"issue_id": issueID}), getIssueOutput{}, nil
		}

		out := getIssueOutput{Issue: issue}
		return jsonResult(out), out, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "search_issues",
		Description: "Search for issues using YouTrack query syntax",
		Category:    CategoryIssues,
		Keywords:    []string{"query", "find", "filter", "unresolved"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args searchIssuesInput) (*mcp.CallToolResult, searchIssuesOutput, error) {
		query := ids.NormalizeQuery(args.Query, s.defaultProjectKey)
		limit := args.Limit
		if limit <= 0 {
			limit = 10
		}

		issues, err := s.issues.Search(ctx, query, limit)
		if err != nil {
			return errorResult(err, map[string]any{"query": query}), searchIssuesOutput{}, nil
		}

		out := searchIssuesOutput{Query: query, Issues: issues, Count: len(issues)}
		return jsonResult(out), out, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "create_issue",
		Description: "Create a new issue, accepting project short names like 'DEMO' or internal IDs like '0-1'",
		Category:    CategoryIssues,
		Keywords:    []string{"new", "report", "file", "open"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args createIssueInput) (*mcp.CallToolResult, createIssueOutput, error) {
		if args.Project == "" {
			return errorResult(fmt.Errorf("project is required"), nil), createIssueOutput{}, nil
		}
		if args.Summary == "" {
			return errorResult(fmt.Errorf("summary is required"), nil), createIssueOutput{}, nil
		}

		issue, err := s.issues.Create(ctx, args.Project, args.Summary, args.Description, nil)
		if err != nil {
			return errorResult(err, map[string]any{"project": args.Project}), createIssueOutput{}, nil
		}

		// Refetch for the complete field set; the creation response is sparse.
		if detailed, err := s.issues.Get(ctx, issue.ID); err == nil {
			issue = detailed
		} else {
			s.logger.Warn(ctx, "could not refetch created issue",
				zap.String("issue_id", issue.ID), zap.Error(err))
		}

		out := createIssueOutput{Issue: issue}
		return jsonResult(out), out, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "update_issue",
		Description: "Update an issue's summary, description, or other top-level fields (custom fields go through update_custom_fields)",
		Category:    CategoryIssues,
		Keywords:    []string{"edit", "rename", "modify"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args updateIssueInput) (*mcp.CallToolResult, updateIssueOutput, error) {
		issueID := s.normalizeID(args.IssueID)
		issue, err := s.issues.Update(ctx, issueID, args.Summary, args.Description, args.AdditionalFields)
		if err != nil {
			return errorResult(err, map[string]any{"issue_id": issueID}), updateIssueOutput{}, nil
		}

		out := updateIssueOutput{Issue: issue}
		return jsonResult(out), out, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "add_comment",
		Description: "Add a text comment to an issue",
		Category:    CategoryIssues,
		Keywords:    []string{"comment", "note", "reply"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args addCommentInput) (*mcp.CallToolResult, addCommentOutput, error) {
		issueID := s.normalizeID(args.IssueID)
		if args.Text == "" {
			return errorResult(fmt.Errorf("comment text is required"),
				map[string]any{"issue_id": issueID}), addCommentOutput{}, nil
		}

		comment, err := s.issues.AddComment(ctx, issueID, args.Text)
		if err != nil {
			return errorResult(err, map[string]any{"issue_id": issueID}), addCommentOutput{}, nil
		}

		out := addCommentOutput{Comment: comment}
		return jsonResult(out), out, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "get_issue_raw",
		Description: "Get the complete raw API shape of an issue, comments and attachments included",
		Category:    CategoryIssues,
		Keywords:    []string{"raw", "comments", "attachments", "full"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getIssueInput) (*mcp.CallToolResult, getIssueRawOutput, error) {
		issueID := s.normalizeID(args.IssueID)
		raw, err := s.issues.GetRaw(ctx, issueID)
		if err != nil {
			return errorResult(err, map[string]any{"issue_id": issueID}), getIssueRawOutput{}, nil
		}

		out := getIssueRawOutput{Issue: raw}
		return jsonResult(out), out, nil
	})
}
