package youtrack

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const issueFixture = `{
	"id": "3-123",
	"idReadable": "DEMO-123",
	"summary": "Fix login timeout",
	"description": "Sessions expire too early",
	"created": 1718000000000,
	"updated": 1718100000000,
	"project": {"id": "0-0", "name": "Demo Project", "shortName": "DEMO"},
	"reporter": {"id": "1-1", "login": "alice", "name": "Alice"},
	"customFields": [
		{"id": "f-1", "name": "Priority", "value": {"name": "Critical"}},
		{"id": "f-2", "name": "Assignee", "value": {"login": "bob"}}
	]
}`

func TestIssues_Get(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/issues/DEMO-123", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, issueFields, r.URL.Query().Get("fields"))
		fmt.Fprint(w, issueFixture)
	})
	client, _ := newTestClient(t, mux)

	issue, err := NewIssuesClient(client).Get(context.Background(), "DEMO-123")
	require.NoError(t, err)

	assert.Equal(t, "3-123", issue.ID)
	assert.Equal(t, "DEMO-123", issue.IDReadable)
	assert.Equal(t, "Fix login timeout", issue.Summary)
	assert.Equal(t, int64(1718000000000), issue.Created)
	require.NotNil(t, issue.Project)
	assert.Equal(t, "DEMO", issue.Project.ShortName)
	require.Len(t, issue.CustomFields, 2)
	assert.Equal(t, "Critical", issue.CustomFields[0].ExtractValue())
}

func TestIssues_GetNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/issues/DEMO-999", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"Entity with id DEMO-999 not found"}`)
	})
	client, _ := newTestClient(t, mux)

	_, err := NewIssuesClient(client).Get(context.Background(), "DEMO-999")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestIssues_GetRaw(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/issues/DEMO-123", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("fields"), "comments(")
		fmt.Fprint(w, `{"id":"3-123","idReadable":"DEMO-123","comments":[{"id":"c-1","text":"ship it"}]}`)
	})
	client, _ := newTestClient(t, mux)

	raw, err := NewIssuesClient(client).GetRaw(context.Background(), "DEMO-123")
	require.NoError(t, err)
	assert.Equal(t, "DEMO-123", raw["idReadable"])
	comments, ok := raw["comments"].([]any)
	require.True(t, ok)
	assert.Len(t, comments, 1)
}

func TestIssues_Create(t *testing.T) {
	var created map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/api/admin/projects", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"0-0","name":"Demo Project","shortName":"DEMO"},{"id":"0-1","name":"Agi Project","shortName":"AGI"}]`)
	})
	mux.HandleFunc("/api/issues", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
		fmt.Fprint(w, `{"id":"3-200","idReadable":"AGI-200","summary":"New issue"}`)
	})
	client, _ := newTestClient(t, mux)

	issue, err := NewIssuesClient(client).Create(context.Background(), "AGI", "New issue", "details", nil)
	require.NoError(t, err)

	assert.Equal(t, "AGI-200", issue.IDReadable)
	assert.Equal(t, map[string]any{"id": "0-1"}, created["project"])
	assert.Equal(t, "New issue", created["summary"])
	assert.Equal(t, "details", created["description"])
}

func TestIssues_CreateInternalProjectID(t *testing.T) {
	var resolvedCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/admin/projects", func(w http.ResponseWriter, r *http.Request) {
		resolvedCalls.Add(1)
		fmt.Fprint(w, `[]`)
	})
	mux.HandleFunc("/api/issues", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"3-201"}`)
	})
	client, _ := newTestClient(t, mux)

	_, err := NewIssuesClient(client).Create(context.Background(), "0-1", "Summary", "", nil)
	require.NoError(t, err)
	assert.Zero(t, resolvedCalls.Load(), "internal IDs must not trigger a project lookup")
}

func TestIssues_CreateProjectNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/admin/projects", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"0-0","name":"Demo","shortName":"DEMO"}]`)
	})
	client, _ := newTestClient(t, mux)

	_, err := NewIssuesClient(client).Create(context.Background(), "NOPE", "Summary", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project not found: NOPE")
}

func TestIssues_CreateValidation(t *testing.T) {
	client, _ := newTestClient(t, http.NewServeMux())
	issues := NewIssuesClient(client)

	_, err := issues.Create(context.Background(), "", "Summary", "", nil)
	assert.ErrorContains(t, err, "project ID is required")

	_, err = issues.Create(context.Background(), "DEMO", "", "", nil)
	assert.ErrorContains(t, err, "summary is required")
}

func TestIssues_Update(t *testing.T) {
	var body map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/api/issues/DEMO-123", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		}
		fmt.Fprint(w, issueFixture)
	})
	client, _ := newTestClient(t, mux)

	issue, err := NewIssuesClient(client).Update(context.Background(), "DEMO-123", "New summary", "", nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"summary": "New summary"}, body)
	assert.Equal(t, "DEMO-123", issue.IDReadable)
}

func TestIssues_UpdateNothingFallsBackToGet(t *testing.T) {
	var posts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/issues/DEMO-123", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts.Add(1)
		}
		fmt.Fprint(w, issueFixture)
	})
	client, _ := newTestClient(t, mux)

	_, err := NewIssuesClient(client).Update(context.Background(), "DEMO-123", "", "", nil)
	require.NoError(t, err)
	assert.Zero(t, posts.Load())
}

func TestIssues_Search(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/issues", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "project: DEMO #Unresolved", r.URL.Query().Get("query"))
		assert.Equal(t, "5", r.URL.Query().Get("$top"))
		fmt.Fprintf(w, `[%s]`, issueFixture)
	})
	client, _ := newTestClient(t, mux)

	issues, err := NewIssuesClient(client).Search(context.Background(), "project: DEMO #Unresolved", 5)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "DEMO-123", issues[0].IDReadable)
}

func TestIssues_AddComment(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/issues/DEMO-123/comments", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "looks good", body["text"])
		fmt.Fprint(w, `{"id":"c-9","text":"looks good","created":1718000000000,"author":{"login":"alice"}}`)
	})
	client, _ := newTestClient(t, mux)

	comment, err := NewIssuesClient(client).AddComment(context.Background(), "DEMO-123", "looks good")
	require.NoError(t, err)
	assert.Equal(t, "c-9", comment.ID)
	assert.Equal(t, "alice", comment.Author.Login)
}

func TestIssues_ApplyStateUpdate(t *testing.T) {
	var body map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/api/issues/DEMO-123", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		fmt.Fprint(w, `{}`)
	})
	client, _ := newTestClient(t, mux)

	err := NewIssuesClient(client).ApplyStateUpdate(context.Background(), "DEMO-123", "In Progress")
	require.NoError(t, err)

	fields, ok := body["customFields"].([]any)
	require.True(t, ok)
	require.Len(t, fields, 1)
	assert.Equal(t, map[string]any{
		"name":  "State",
		"$type": "StateIssueCustomField",
		"value": map[string]any{"name": "In Progress"},
	}, fields[0])
}

func TestIssues_ApplyStateUpdateRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/issues/DEMO-123", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
	client, _ := newTestClient(t, mux)

	err := NewIssuesClient(client).ApplyStateUpdate(context.Background(), "DEMO-123", "Open")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply state update on DEMO-123")
}

func TestIssues_GetStateField(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/issues/DEMO-123/customFields", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "name,possibleEvents(id,presentation),value(name),$type", r.URL.Query().Get("fields"))
		fmt.Fprint(w, `[
			{"name":"Priority","$type":"SingleEnumIssueCustomField","value":{"name":"Major"}},
			{"name":"State","$type":"StateMachineIssueCustomField","value":{"name":"Open"},
			 "possibleEvents":[{"id":"e-1","presentation":"start"},{"id":"e-2","presentation":"fix"}]}
		]`)
	})
	client, _ := newTestClient(t, mux)

	field, err := NewIssuesClient(client).GetStateField(context.Background(), "DEMO-123")
	require.NoError(t, err)
	assert.Equal(t, "Open", field.CurrentState)
	assert.True(t, field.StateMachine())
	require.Len(t, field.PossibleEvents, 2)
	assert.Equal(t, "start", field.PossibleEvents[0].Presentation)
}

func TestIssues_GetStateFieldMissing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/issues/DEMO-123/customFields", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"name":"Priority","$type":"SingleEnumIssueCustomField"}]`)
	})
	client, _ := newTestClient(t, mux)

	_, err := NewIssuesClient(client).GetStateField(context.Background(), "DEMO-123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no State field found")
}

// projectSchemaMux serves the custom field schema fixtures the
// validation flow walks through.
func projectSchemaMux(t *testing.T, commandBody *map[string]any) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/issues/DEMO-123", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, issueFixture)
	})
	mux.HandleFunc("/api/admin/projects/0-0/customFields", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"field":{"id":"f-1","name":"Priority","fieldType":{"$type":"EnumBundle","valueType":"enum","id":"b-1"}},"canBeEmpty":false,"autoAttached":true},
			{"field":{"id":"f-3","name":"Estimate","fieldType":{"$type":"PeriodProjectCustomField","valueType":"period"}},"canBeEmpty":true}
		]`)
	})
	mux.HandleFunc("/api/admin/customFieldSettings/bundles/enum/b-1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"values":[{"id":"v1","name":"Critical"},{"id":"v2","name":"Major"},{"id":"v3","name":"Normal"}]}`)
	})
	mux.HandleFunc("/api/commands", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(commandBody))
		fmt.Fprint(w, `{}`)
	})
	return mux
}

func TestIssues_UpdateCustomFields(t *testing.T) {
	var commandBody map[string]any
	client, _ := newTestClient(t, projectSchemaMux(t, &commandBody))

	issue, err := NewIssuesClient(client).UpdateCustomFields(context.Background(), "DEMO-123",
		map[string]any{"Priority": "Major"}, true)
	require.NoError(t, err)

	assert.Equal(t, "Priority Major", commandBody["query"])
	assert.Equal(t, []any{map[string]any{"idReadable": "DEMO-123"}}, commandBody["issues"])
	assert.Equal(t, "DEMO-123", issue.IDReadable)
}

func TestIssues_UpdateCustomFieldsQuotesSpaces(t *testing.T) {
	var commandBody map[string]any
	client, _ := newTestClient(t, projectSchemaMux(t, &commandBody))

	_, err := NewIssuesClient(client).UpdateCustomFields(context.Background(), "DEMO-123",
		map[string]any{"Stage": "In Progress", "Points": 5}, false)
	require.NoError(t, err)

	assert.Equal(t, `Points 5 Stage "In Progress"`, commandBody["query"])
}

func TestIssues_UpdateCustomFieldsValidationFails(t *testing.T) {
	var commandBody map[string]any
	client, _ := newTestClient(t, projectSchemaMux(t, &commandBody))

	_, err := NewIssuesClient(client).UpdateCustomFields(context.Background(), "DEMO-123",
		map[string]any{"Priority": "Urgent"}, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "custom field validation failed")
	assert.Contains(t, err.Error(), `"Priority"`)
	assert.Nil(t, commandBody, "command must not run when validation fails")
}

func TestIssues_UpdateCustomFieldsUnknownFieldPassesThrough(t *testing.T) {
	var commandBody map[string]any
	client, _ := newTestClient(t, projectSchemaMux(t, &commandBody))

	_, err := NewIssuesClient(client).UpdateCustomFields(context.Background(), "DEMO-123",
		map[string]any{"Stage": "Done"}, true)
	require.NoError(t, err)
	assert.Equal(t, "Stage Done", commandBody["query"])
}

func TestIssues_UpdateCustomFieldsEmptyIsGet(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/issues/DEMO-123", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, issueFixture)
	})
	client, _ := newTestClient(t, mux)

	issue, err := NewIssuesClient(client).UpdateCustomFields(context.Background(), "DEMO-123", nil, true)
	require.NoError(t, err)
	assert.Equal(t, "DEMO-123", issue.IDReadable)
}

func TestIssues_GetCustomFields(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/issues/DEMO-123", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, issueCustomFieldsSelector, r.URL.Query().Get("fields"))
		fmt.Fprint(w, `{"customFields":[
			{"name":"Priority","value":{"name":"Critical","id":"v1"}},
			{"name":"Assignee","value":{"login":"bob","id":"1-2"}},
			{"name":"Notes","value":{"text":"needs review"}},
			{"name":"Sprint","value":{"id":"s-1"}},
			{"name":"Votes","value":3},
			{"name":"Resolved","value":null}
		]}`)
	})
	client, _ := newTestClient(t, mux)

	fields, err := NewIssuesClient(client).GetCustomFields(context.Background(), "DEMO-123")
	require.NoError(t, err)

	assert.Equal(t, "Critical", fields["Priority"])
	assert.Equal(t, "bob", fields["Assignee"])
	assert.Equal(t, "needs review", fields["Notes"])
	assert.Equal(t, "s-1", fields["Sprint"])
	assert.Equal(t, float64(3), fields["Votes"])
	assert.Nil(t, fields["Resolved"])
}

func TestIssues_BatchUpdateCustomFields(t *testing.T) {
	var commandBody map[string]any
	client, _ := newTestClient(t, projectSchemaMux(t, &commandBody))
	noValidate := false

	results := NewIssuesClient(client).BatchUpdateCustomFields(context.Background(), []BatchUpdate{
		{IssueID: "DEMO-123", Fields: map[string]any{"Priority": "Major"}, Validate: &noValidate},
		{IssueID: "", Fields: map[string]any{"Priority": "Major"}},
		{IssueID: "DEMO-124", Fields: nil},
	})

	require.Len(t, results, 3)
	assert.Equal(t, "success", results[0].Status)
	assert.Equal(t, []string{"Priority"}, results[0].UpdatedFields)
	assert.Equal(t, "error", results[1].Status)
	assert.Contains(t, results[1].Error, "missing issue_id")
	assert.Equal(t, "skipped", results[2].Status)
}

func TestIssues_BatchUpdateReportsFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/commands", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"unknown field"}`)
	})
	client, _ := newTestClient(t, mux)
	noValidate := false

	results := NewIssuesClient(client).BatchUpdateCustomFields(context.Background(), []BatchUpdate{
		{IssueID: "DEMO-125", Fields: map[string]any{"Bogus": "x"}, Validate: &noValidate},
	})

	require.Len(t, results, 1)
	assert.Equal(t, "error", results[0].Status)
	assert.Equal(t, []string{"Bogus"}, results[0].AttemptedFields)
	assert.Contains(t, results[0].Error, "unknown field")
}

func TestIssues_LinkIssues(t *testing.T) {
	var commandBody map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/api/issues/DEMO-123", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"3-123"}`)
	})
	mux.HandleFunc("/api/issues/DEMO-456", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"3-456"}`)
	})
	mux.HandleFunc("/api/commands", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&commandBody))
		fmt.Fprint(w, `{}`)
	})
	client, _ := newTestClient(t, mux)

	result, err := NewIssuesClient(client).LinkIssues(context.Background(), "DEMO-123", "DEMO-456", "Relates")
	require.NoError(t, err)

	assert.Equal(t, "relates to DEMO-456", commandBody["query"])
	assert.Equal(t, []any{map[string]any{"id": "3-123"}}, commandBody["issues"])

	assert.Equal(t, "success", result.Status)
	assert.Equal(t, "relates to DEMO-456", result.Command)
	assert.Equal(t, "DEMO-123", result.SourceIssue)
	assert.Equal(t, "DEMO-456", result.TargetIssue)
	assert.Equal(t, "Relates", result.LinkType)
	assert.Equal(t, map[string]string{"source": "3-123", "target": "3-456"}, result.InternalIDs)
}

func TestIssues_LinkIssuesUnknownTypePassesThrough(t *testing.T) {
	var commandBody map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/api/issues/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"3-1"}`)
	})
	mux.HandleFunc("/api/commands", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&commandBody))
		fmt.Fprint(w, `{}`)
	})
	client, _ := newTestClient(t, mux)

	_, err := NewIssuesClient(client).LinkIssues(context.Background(), "DEMO-1", "DEMO-2", "Blocks")
	require.NoError(t, err)
	assert.Equal(t, "blocks DEMO-2", commandBody["query"])
}

func TestIssues_RemoveDependency(t *testing.T) {
	var commandBody map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/api/issues/DEMO-123", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"3-123"}`)
	})
	mux.HandleFunc("/api/commands", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&commandBody))
		fmt.Fprint(w, `{}`)
	})
	client, _ := newTestClient(t, mux)

	result, err := NewIssuesClient(client).RemoveDependency(context.Background(), "DEMO-123", "DEMO-456")
	require.NoError(t, err)

	assert.Equal(t, "remove depends on DEMO-456", commandBody["query"])
	assert.Equal(t, []any{map[string]any{"id": "3-123"}}, commandBody["issues"])
	assert.Equal(t, "success", result.Status)
	assert.Contains(t, result.Message, "DEMO-123")
}

func TestIssues_GetIssueLinks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/issues/DEMO-123/links", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, linkFields, r.URL.Query().Get("fields"))
		fmt.Fprint(w, `[
			{"id":"l-1","direction":"OUTWARD","linkType":{"name":"Depend","localizedName":""}},
			{"id":"l-2","direction":"BOTH","linkType":{"name":"Relates"}}
		]`)
	})
	client, _ := newTestClient(t, mux)

	links, err := NewIssuesClient(client).GetIssueLinks(context.Background(), "DEMO-123")
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "OUTWARD", links[0].Direction)
	assert.Equal(t, "Depend", links[0].LinkType.Name)
}

func TestIssues_GetLinkTypes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/issueLinkTypes", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, linkTypeFields, r.URL.Query().Get("fields"))
		fmt.Fprint(w, `[{"name":"Depend","sourceToTarget":"is required for","targetToSource":"depends on"}]`)
	})
	client, _ := newTestClient(t, mux)

	types, err := NewIssuesClient(client).GetLinkTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "depends on", types[0].TargetToSource)
}

func TestIssues_InternalID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/issues/DEMO-123", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "id", r.URL.Query().Get("fields"))
		fmt.Fprint(w, `{"id":"3-123"}`)
	})
	client, _ := newTestClient(t, mux)
	issues := NewIssuesClient(client)

	assert.Equal(t, "3-123", issues.InternalID(context.Background(), "DEMO-123"))
	// Lookup failures fall back to the input.
	assert.Equal(t, "GONE-1", issues.InternalID(context.Background(), "GONE-1"))
}

func TestIssues_ReadableID(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/issues/3-37", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "idReadable", r.URL.Query().Get("fields"))
		fmt.Fprint(w, `{"idReadable":"DEMO-37"}`)
	})
	client, _ := newTestClient(t, mux)
	issues := NewIssuesClient(client)

	assert.Equal(t, "DEMO-37", issues.ReadableID(context.Background(), "3-37"))
	assert.Equal(t, int32(1), calls.Load())

	// Readable inputs short-circuit without an API call.
	assert.Equal(t, "DEMO-42", issues.ReadableID(context.Background(), "DEMO-42"))
	assert.Equal(t, int32(1), calls.Load())
}

func TestIssues_GetAttachmentContent(t *testing.T) {
	payload := strings.Repeat("a", 128)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/issues/DEMO-123", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"attachments":[
			{"id":"1-10","name":"log.txt","url":"/attachments/log.txt","size":%d,"mimeType":"text/plain"}
		]}`, len(payload))
	})
	mux.HandleFunc("/attachments/log.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, payload)
	})
	client, _ := newTestClient(t, mux)

	content, err := NewIssuesClient(client).GetAttachmentContent(context.Background(), "DEMO-123", "1-10")
	require.NoError(t, err)

	assert.Equal(t, []byte(payload), content.Content)
	assert.Equal(t, "log.txt", content.Name)
	assert.Equal(t, "text/plain", content.MimeType)
	assert.Equal(t, int64(len(payload)), content.Size)
}

func TestIssues_GetAttachmentContentNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/issues/DEMO-123", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"attachments":[]}`)
	})
	client, _ := newTestClient(t, mux)

	_, err := NewIssuesClient(client).GetAttachmentContent(context.Background(), "DEMO-123", "1-99")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attachment 1-99 not found in issue DEMO-123")
}

func TestIssues_GetAttachmentContentTooLarge(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/issues/DEMO-123", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"attachments":[{"id":"1-10","name":"dump.bin","url":"/attachments/dump.bin","size":%d,"mimeType":"application/octet-stream"}]}`,
			maxAttachmentSize+1)
	})
	client, _ := newTestClient(t, mux)

	_, err := NewIssuesClient(client).GetAttachmentContent(context.Background(), "DEMO-123", "1-10")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestIssues_GetAttachmentContentGrewAfterMetadata(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/issues/DEMO-123", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"attachments":[{"id":"1-10","name":"grow.bin","url":"/attachments/grow.bin","size":16,"mimeType":"application/octet-stream"}]}`)
	})
	mux.HandleFunc("/attachments/grow.bin", func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, maxAttachmentSize+1))
	})
	client, _ := newTestClient(t, mux)

	_, err := NewIssuesClient(client).GetAttachmentContent(context.Background(), "DEMO-123", "1-10")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum allowed size")
}

func TestBuildFieldCommand(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]any
		want   string
	}{
		{
			name:   "single field",
			fields: map[string]any{"Priority": "High"},
			want:   "Priority High",
		},
		{
			name:   "value with spaces quoted",
			fields: map[string]any{"State": "In Progress"},
			want:   `State "In Progress"`,
		},
		{
			name:   "already quoted value untouched",
			fields: map[string]any{"State": `"In Progress"`},
			want:   `State "In Progress"`,
		},
		{
			name:   "numeric value",
			fields: map[string]any{"Points": 8},
			want:   "Points 8",
		},
		{
			name:   "multiple fields sorted by name",
			fields: map[string]any{"Type": "Bug", "Assignee": "alice"},
			want:   "Assignee alice Type Bug",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildFieldCommand(tt.fields))
		})
	}
}
