package youtrack

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsers_Me(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userFields, r.URL.Query().Get("fields"))
		fmt.Fprint(w, `{"id":"1-1","login":"alice","name":"Alice","email":"alice@example.com"}`)
	})
	client, _ := newTestClient(t, mux)

	user, err := NewUsersClient(client).Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Login)
	assert.Equal(t, "alice@example.com", user.Email)
}

func TestUsers_Get(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/1-2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"1-2","login":"bob","name":"Bob","banned":true}`)
	})
	client, _ := newTestClient(t, mux)

	user, err := NewUsersClient(client).Get(context.Background(), "1-2")
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Login)
	assert.True(t, user.Banned)
}

func TestUsers_Search(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Ali", r.URL.Query().Get("query"))
		assert.Equal(t, "10", r.URL.Query().Get("$top"))
		// The API pads results with permission stubs that carry no ID.
		fmt.Fprint(w, `[
			{"id":"1-1","login":"alice","name":"Alice"},
			{"login":"shadow"},
			{"id":"1-3","login":"alina","name":"Alina"}
		]`)
	})
	client, _ := newTestClient(t, mux)

	users, err := NewUsersClient(client).Search(context.Background(), "Ali", 10)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Login)
	assert.Equal(t, "alina", users[1].Login)
}

func TestUsers_GetByLogin(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "login: alice", r.URL.Query().Get("query"))
		assert.Equal(t, "1", r.URL.Query().Get("$top"))
		fmt.Fprint(w, `[{"id":"1-1","login":"alice","name":"Alice"}]`)
	})
	client, _ := newTestClient(t, mux)

	user, err := NewUsersClient(client).GetByLogin(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "1-1", user.ID)
}

func TestUsers_GetByLoginNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	client, _ := newTestClient(t, mux)

	_, err := NewUsersClient(client).GetByLogin(context.Background(), "nobody")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user not found: nobody")
}

func TestUsers_Groups(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/1-1/groups", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "id,name,description", r.URL.Query().Get("fields"))
		fmt.Fprint(w, `[
			{"id":"g-1","name":"All Users"},
			{"id":"g-2","name":"Project Admins","description":"can configure projects"}
		]`)
	})
	client, _ := newTestClient(t, mux)

	groups, err := NewUsersClient(client).Groups(context.Background(), "1-1")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Project Admins", groups[1].Name)
}

func TestUsers_CheckPermission(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/1-1/groups", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"g-1","name":"All Users"},{"id":"g-2","name":"Project Admins"}]`)
	})
	client, _ := newTestClient(t, mux)
	users := NewUsersClient(client)
	ctx := context.Background()

	assert.True(t, users.CheckPermission(ctx, "1-1", "admin"))
	assert.True(t, users.CheckPermission(ctx, "1-1", "ADMIN"))
	assert.False(t, users.CheckPermission(ctx, "1-1", "reporter"))

	// Group lookup failures deny rather than error.
	assert.False(t, users.CheckPermission(ctx, "1-9", "admin"))
}
