package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/trackforge/youtrackd/internal/youtrack"
)

// ===== USER TOOLS =====

type getCurrentUserInput struct{}

type getUserInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"User ID like '1-2' (alternative to user)"`
	User   string `json:"user,omitempty" jsonschema:"User login like 'john.doe' (alternative to user_id)"`
}

type searchUsersInput struct {
	Query string `json:"query" jsonschema:"Name or login to search for"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum results to return (default: 10)"`
}

type searchUsersOutput struct {
	Query string          `json:"query"`
	Users []youtrack.User `json:"users"`
	Count int             `json:"count"`
}

type userPermissionsOutput struct {
	UserID     string               `json:"user_id"`
	Login      string               `json:"login"`
	Groups     []youtrack.UserGroup `json:"groups"`
	GroupCount int                  `json:"group_count"`
}

func (s *Server) registerUserTools() {
	addTool(s, &ToolMetadata{
		Name:        "get_current_user",
		Description: "Get the user the API token authenticates as",
		Category:    CategoryUsers,
		Keywords:    []string{"me", "whoami", "token", "login"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getCurrentUserInput) (*mcp.CallToolResult, youtrack.User, error) {
		user, err := s.users.Me(ctx)
		if err != nil {
			return errorResult(err, nil), youtrack.User{}, nil
		}

		return jsonResult(*user), *user, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "get_user",
		Description: "Get a user by ID or login name",
		Category:    CategoryUsers,
		Keywords:    []string{"user", "lookup", "login", "profile"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getUserInput) (*mcp.CallToolResult, youtrack.User, error) {
		user, err := s.lookupUser(ctx, args.UserID, args.User)
		if err != nil {
			return errorResult(err, nil), youtrack.User{}, nil
		}

		return jsonResult(*user), *user, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "search_users",
		Description: "Search for users by name or login",
		Category:    CategoryUsers,
		Keywords:    []string{"search", "find", "people"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args searchUsersInput) (*mcp.CallToolResult, searchUsersOutput, error) {
		limit := args.Limit
		if limit <= 0 {
			limit = 10
		}

		users, err := s.users.Search(ctx, args.Query, limit)
		if err != nil {
			return errorResult(err, map[string]any{"query": args.Query}), searchUsersOutput{}, nil
		}

		out := searchUsersOutput{Query: args.Query, Users: users, Count: len(users)}
		return jsonResult(out), out, nil
	})

	addTool(s, &ToolMetadata{
		Name:        "get_user_permissions",
		Description: "Get a user's group memberships, which carry their permissions",
		Category:    CategoryUsers,
		Keywords:    []string{"permissions", "groups", "access", "roles"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getUserInput) (*mcp.CallToolResult, userPermissionsOutput, error) {
		user, err := s.lookupUser(ctx, args.UserID, args.User)
		if err != nil {
			return errorResult(err, nil), userPermissionsOutput{}, nil
		}

		groups, err := s.users.Groups(ctx, user.ID)
		if err != nil {
			return errorResult(err, map[string]any{
				"user_id": user.ID,
				"login":   user.Login,
			}), userPermissionsOutput{}, nil
		}

		out := userPermissionsOutput{
			UserID:     user.ID,
			Login:      user.Login,
			Groups:     groups,
			GroupCount: len(groups),
		}
		return jsonResult(out), out, nil
	})
}

// lookupUser resolves either identifier form. IDs are tried first;
// a login lookup covers callers who pass a login in the ID slot.
func (s *Server) lookupUser(ctx context.Context, userID, login string) (*youtrack.User, error) {
	identifier := userID
	if identifier == "" {
		identifier = login
	}
	if identifier == "" {
		return nil, fmt.Errorf("either user_id or user parameter is required")
	}

	user, err := s.users.Get(ctx, identifier)
	if err == nil {
		return user, nil
	}
	if youtrack.IsNotFound(err) {
		if byLogin, loginErr := s.users.GetByLogin(ctx, identifier); loginErr == nil {
			return byLogin, nil
		}
	}
	return nil, err
}
