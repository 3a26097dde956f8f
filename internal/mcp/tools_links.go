package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/trackforge/youtrackd/internal/youtrack"
)

// ===== ISSUE LINK TOOLS =====
//
// link_issues is the general form; the dependency, relates, and
// duplicate tools are conveniences that pin the link type so callers
// do not have to remember YouTrack's directed type names.

type linkIssuesInput struct {
	SourceIssueID string `json:"source_issue_id" jsonschema:"Source issue like 'DEMO-123'"`
	TargetIssueID string `json:"target_issue_id" jsonschema:"Target issue like 'DEMO-456'"`
	LinkType      string `json:"link_type" jsonschema:"Link type like 'Relates', 'Duplicates', 'Depends on'"`
}

type dependencyInput struct {
	DependentIssueID  string `json:"dependent_issue_id" jsonschema:"Issue that depends on another"`
	DependencyIssueID string `json:"dependency_issue_id" jsonschema:"Issue that is depended upon"`
}

type relatedInput struct {
	SourceIssueID string `json:"source_issue_id" jsonschema:"Source issue like 'DEMO-123'"`
	TargetIssueID string `json:"target_issue_id" jsonschema:"Related issue like 'DEMO-456'"`
}

type duplicateInput struct {
	DuplicateIssueID string `json:"duplicate_issue_id" jsonschema:"Issue that duplicates another"`
	OriginalIssueID  string `json:"original_issue_id" jsonschema:"Issue being duplicated"`
}

type issueLinksInput struct {
	IssueID string `json:"issue_id" jsonschema:"Issue identifier like 'DEMO-123'"`
}

type issueLinksOutput struct {
	IssueID string               `json:"issue_id"`
	Links   []youtrack.IssueLink `json:"links"`
	Count   int                  `json:"count"`
}

type linkTypesInput struct{}

type linkTypesOutput struct {
	LinkTypes []youtrack.LinkType `json:"link_types"`
	Count     int                 `json:"count"`
}

func (s *Server) registerLinkTools() {
	addTool(s, &ToolMetadata{
		Name:        "link_issues",
		Description: "Link two issues with a relationship type such as 'Relates', 'Duplicates', 'Depends on', or 'Blocks'",
		Category:    CategoryLinks,
		Keywords:    []string{"link", "relationship", "connect", "blocks"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args linkIssuesInput) (*mcp.CallToolResult, youtrack.LinkResult, error) {
		return s.linkWithType(ctx, args.SourceIssueID, args.TargetIssueID, args.LinkType)
	})

	addTool(s, &ToolMetadata{
		Name:        "get_issue_links",
		Description: "List all inward and outward links of an issue",
		Category:    CategoryLinks,
		Keywords:    []string{"links", "related", "dependencies"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args issueLinksInput) (*mcp.CallToolResult, issueLinksOutput, error) {
		issueID := s.normalizeID(args.IssueID)
		links, err := s.issues.GetIssueLinks(ctx, issueID)
		if err != nil {
			return errorResult(err, map[string]any{"issue_id": issueID}), issueLinksOutput{}, nil
		}

		out := issueLinksOutput{IssueID: issueID, Links: links, Count: len(links)}
		return jsonResult(out), out, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "get_available_link_types",
		Description: "List the link types configured in YouTrack with their directed names",
		Category:    CategoryLinks,
		Keywords:    []string{"types", "relates", "duplicates", "discover"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args linkTypesInput) (*mcp.CallToolResult, linkTypesOutput, error) {
		types, err := s.issues.GetLinkTypes(ctx)
		if err != nil {
			return errorResult(err, nil), linkTypesOutput{}, nil
		}

		out := linkTypesOutput{LinkTypes: types, Count: len(types)}
		return jsonResult(out), out, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "add_dependency",
		Description: "Make one issue depend on another ('Depends on' link)",
		Category:    CategoryLinks,
		Keywords:    []string{"depends", "blocked", "prerequisite"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args dependencyInput) (*mcp.CallToolResult, youtrack.LinkResult, error) {
		return s.linkWithType(ctx, args.DependentIssueID, args.DependencyIssueID, "Depends on")
	})

	addTool(s, &ToolMetadata{
		Name:        "remove_dependency",
		Description: "Remove a dependency relationship between two issues",
		Category:    CategoryLinks,
		Keywords:    []string{"remove", "unlink", "depends"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args dependencyInput) (*mcp.CallToolResult, youtrack.LinkResult, error) {
		dependent := s.normalizeID(args.DependentIssueID)
		dependency := s.normalizeID(args.DependencyIssueID)

		result, err := s.issues.RemoveDependency(ctx, dependent, dependency)
		if err != nil {
			return errorResult(err, map[string]any{
				"dependent_issue_id":  dependent,
				"dependency_issue_id": dependency,
			}), youtrack.LinkResult{}, nil
		}

		return jsonResult(*result), *result, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "add_relates_link",
		Description: "Connect two issues with the general-purpose 'Relates' link",
		Category:    CategoryLinks,
		Keywords:    []string{"relates", "related", "connect"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args relatedInput) (*mcp.CallToolResult, youtrack.LinkResult, error) {
		return s.linkWithType(ctx, args.SourceIssueID, args.TargetIssueID, "Relates")
	})

	addTool(s, &ToolMetadata{
		Name:        "add_duplicate_link",
		Description: "Mark one issue as a duplicate of another ('Duplicates' link)",
		Category:    CategoryLinks,
		Keywords:    []string{"duplicate", "dupe", "same"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args duplicateInput) (*mcp.CallToolResult, youtrack.LinkResult, error) {
		return s.linkWithType(ctx, args.DuplicateIssueID, args.OriginalIssueID, "Duplicates")
	})
}

// linkWithType runs the shared link creation path used by link_issues
// and the fixed-type convenience tools.
func (s *Server) linkWithType(ctx context.Context, sourceID, targetID, linkType string) (*mcp.CallToolResult, youtrack.LinkResult, error) {
	if sourceID == "" || targetID == "" {
		return errorResult(fmt.Errorf("both source and target issue IDs are required"), nil), youtrack.LinkResult{}, nil
	}
	if linkType == "" {
		return errorResult(fmt.Errorf("link_type is required"), nil), youtrack.LinkResult{}, nil
	}

	source := s.normalizeID(sourceID)
	target := s.normalizeID(targetID)

	result, err := s.issues.LinkIssues(ctx, source, target, linkType)
	if err != nil {
		return errorResult(err, map[string]any{
			"source_issue_id": source,
			"target_issue_id": target,
			"link_type":       linkType,
		}), youtrack.LinkResult{}, nil
	}

	return jsonResult(*result), *result, nil
}
