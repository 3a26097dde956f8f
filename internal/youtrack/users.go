package youtrack

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const userFields = "id,login,name,email,jabber,ringId,guest,online,banned"

// UsersClient provides user operations on the YouTrack API.
type UsersClient struct {
	client *Client
}

// NewUsersClient creates a users client on top of the given Client.
func NewUsersClient(client *Client) *UsersClient {
	return &UsersClient{client: client}
}

// Me returns the user the API token belongs to.
func (c *UsersClient) Me(ctx context.Context) (*User, error) {
	var user User
	params := url.Values{"fields": {userFields}}
	if err := c.client.Get(ctx, "users/me", params, &user); err != nil {
		return nil, fmt.Errorf("get current user: %w", err)
	}
	return &user, nil
}

// Get fetches a user by ID or login.
func (c *UsersClient) Get(ctx context.Context, userID string) (*User, error) {
	var user User
	params := url.Values{"fields": {userFields}}
	if err := c.client.Get(ctx, "users/"+url.PathEscape(userID), params, &user); err != nil {
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}
	return &user, nil
}

// Search finds users matching the query. Entries the API returns
// without an ID are dropped.
func (c *UsersClient) Search(ctx context.Context, query string, limit int) ([]User, error) {
	params := url.Values{
		"query":  {query},
		"$top":   {strconv.Itoa(limit)},
		"fields": {userFields},
	}

	var raw []User
	if err := c.client.Get(ctx, "users", params, &raw); err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	users := make([]User, 0, len(raw))
	for _, u := range raw {
		if u.ID == "" {
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

// GetByLogin finds a user by exact login.
func (c *UsersClient) GetByLogin(ctx context.Context, login string) (*User, error) {
	users, err := c.Search(ctx, "login: "+login, 1)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("user not found: %s", login)
	}
	return &users[0], nil
}

// Groups returns the groups a user belongs to.
func (c *UsersClient) Groups(ctx context.Context, userID string) ([]UserGroup, error) {
	var groups []UserGroup
	params := url.Values{"fields": {"id,name,description"}}
	if err := c.client.Get(ctx, "users/"+url.PathEscape(userID)+"/groups", params, &groups); err != nil {
		return nil, fmt.Errorf("get groups of user %s: %w", userID, err)
	}
	return groups, nil
}

// CheckPermission reports whether any of the user's group names
// contains the permission string, case-insensitively. The API exposes
// no real permission endpoint to non-admin tokens, so group membership
// stands in. Lookup failures report false.
func (c *UsersClient) CheckPermission(ctx context.Context, userID, permission string) bool {
	groups, err := c.Groups(ctx, userID)
	if err != nil {
		return false
	}

	needle := strings.ToLower(permission)
	for _, group := range groups {
		if strings.Contains(strings.ToLower(group.Name), needle) {
			return true
		}
	}
	return false
}
