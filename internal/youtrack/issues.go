package youtrack

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// ErrNoStateField reports an issue whose project defines no State
// custom field.
var ErrNoStateField = errors.New("no State field found")

// Field selectors for issue fetches. YouTrack returns only $type and id
// unless every wanted field is spelled out.
const (
	issueFields = "id,idReadable,summary,description,created,updated," +
		"project(id,name,shortName),reporter(id,login,name),assignee(id,login,name)," +
		"customFields(id,name,value($type,name,text,id,login,presentation,minutes))," +
		"attachments(id,name,url,mimeType,size)"

	issueRawFields = issueFields + ",comments(id,text,created,author(id,login,name))"

	issueCustomFieldsSelector = "customFields(id,name,value($type,name,text,id,login))"

	linkFields     = "id,summary,linkType(name,localizedName),direction"
	linkTypeFields = "name,localizedName,sourceToTarget,targetToSource"
)

// Attachment size caps. Base64 encoding inflates content by roughly a
// third, so a 750 KiB original stays under the 1 MiB limit MCP clients
// place on embedded resources.
const (
	maxAttachmentSize = 750 * 1024
	maxBase64Size     = 1024 * 1024
)

// linkCommandPhrases maps link type names to the phrases the Commands
// API understands. Unknown types pass through lowercased.
var linkCommandPhrases = map[string]string{
	"relates":          "relates to",
	"depends on":       "depends on",
	"duplicates":       "duplicates",
	"is duplicated by": "is duplicated by",
	"is required for":  "is required for",
	"parent for":       "parent for",
	"subtask":          "subtask of",
	"subtask of":       "subtask of",
}

// IssuesClient provides issue operations on the YouTrack API.
type IssuesClient struct {
	client *Client
}

// NewIssuesClient creates an issues client on top of the given Client.
func NewIssuesClient(client *Client) *IssuesClient {
	return &IssuesClient{client: client}
}

// Get fetches an issue by readable or internal ID.
func (c *IssuesClient) Get(ctx context.Context, issueID string) (*Issue, error) {
	var issue Issue
	params := url.Values{"fields": {issueFields}}
	if err := c.client.Get(ctx, "issues/"+url.PathEscape(issueID), params, &issue); err != nil {
		return nil, fmt.Errorf("get issue %s: %w", issueID, err)
	}
	return &issue, nil
}

// GetRaw fetches an issue with the comprehensive field set, comments
// included, and returns the undecoded API shape.
func (c *IssuesClient) GetRaw(ctx context.Context, issueID string) (map[string]any, error) {
	var raw map[string]any
	params := url.Values{"fields": {issueRawFields}}
	if err := c.client.Get(ctx, "issues/"+url.PathEscape(issueID), params, &raw); err != nil {
		return nil, fmt.Errorf("get issue %s: %w", issueID, err)
	}
	return raw, nil
}

// Create creates an issue in the given project. The project may be an
// internal ID (accepted as-is when it starts with "0-"), a short name,
// or a full project name; short and full names are resolved first.
// Extra fields are merged into the request body untouched.
func (c *IssuesClient) Create(ctx context.Context, projectID, summary, description string, extra map[string]any) (*Issue, error) {
	if projectID == "" {
		return nil, fmt.Errorf("project ID is required")
	}
	if summary == "" {
		return nil, fmt.Errorf("summary is required")
	}

	resolved, err := c.resolveProjectID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"project": map[string]any{"id": resolved},
		"summary": summary,
	}
	if description != "" {
		body["description"] = description
	}
	for k, v := range extra {
		body[k] = v
	}

	var issue Issue
	params := url.Values{"fields": {"id,idReadable,summary,description,created,project(id,name,shortName)"}}
	if err := c.client.Post(ctx, "issues", params, body, &issue); err != nil {
		return nil, fmt.Errorf("create issue in %s: %w", projectID, err)
	}
	return &issue, nil
}

// resolveProjectID turns a project short name or full name into the
// internal project ID. Internal IDs ("0-…") pass through.
func (c *IssuesClient) resolveProjectID(ctx context.Context, projectID string) (string, error) {
	if strings.HasPrefix(projectID, "0-") {
		return projectID, nil
	}

	var projects []Project
	params := url.Values{"fields": {"id,name,shortName"}}
	if err := c.client.Get(ctx, "admin/projects", params, &projects); err != nil {
		return "", fmt.Errorf("resolve project %s: %w", projectID, err)
	}

	for _, p := range projects {
		if strings.EqualFold(p.ShortName, projectID) {
			return p.ID, nil
		}
	}
	for _, p := range projects {
		if strings.EqualFold(p.Name, projectID) {
			return p.ID, nil
		}
	}
	return "", fmt.Errorf("project not found: %s", projectID)
}

// Update changes the summary and/or description of an issue. Extra
// fields are merged into the request body. Returns the updated issue.
func (c *IssuesClient) Update(ctx context.Context, issueID, summary, description string, extra map[string]any) (*Issue, error) {
	body := map[string]any{}
	if summary != "" {
		body["summary"] = summary
	}
	if description != "" {
		body["description"] = description
	}
	for k, v := range extra {
		body[k] = v
	}
	if len(body) == 0 {
		return c.Get(ctx, issueID)
	}

	if err := c.client.Post(ctx, "issues/"+url.PathEscape(issueID), nil, body, nil); err != nil {
		return nil, fmt.Errorf("update issue %s: %w", issueID, err)
	}
	return c.Get(ctx, issueID)
}

// Search runs a YouTrack query and returns up to limit issues.
func (c *IssuesClient) Search(ctx context.Context, query string, limit int) ([]Issue, error) {
	params := url.Values{
		"query":  {query},
		"$top":   {strconv.Itoa(limit)},
		"fields": {issueFields},
	}

	var issues []Issue
	if err := c.client.Get(ctx, "issues", params, &issues); err != nil {
		return nil, fmt.Errorf("search issues: %w", err)
	}
	return issues, nil
}

// AddComment adds a comment to an issue.
func (c *IssuesClient) AddComment(ctx context.Context, issueID, text string) (*Comment, error) {
	var comment Comment
	params := url.Values{"fields": {"id,text,created,author(id,login,name)"}}
	body := map[string]any{"text": text}
	if err := c.client.Post(ctx, "issues/"+url.PathEscape(issueID)+"/comments", params, body, &comment); err != nil {
		return nil, fmt.Errorf("add comment to %s: %w", issueID, err)
	}
	return &comment, nil
}

// ApplyStateUpdate sets the State field through the direct field update
// endpoint. Workflow rules can reject this where the Commands API would
// succeed, so callers fall back to UpdateCustomFields on failure.
func (c *IssuesClient) ApplyStateUpdate(ctx context.Context, issueID, state string) error {
	body := map[string]any{
		"customFields": []map[string]any{{
			"name":  "State",
			"$type": "StateIssueCustomField",
			"value": map[string]any{"name": state},
		}},
	}
	if err := c.client.Post(ctx, "issues/"+url.PathEscape(issueID), nil, body, nil); err != nil {
		return fmt.Errorf("apply state update on %s: %w", issueID, err)
	}
	return nil
}

// StateEvent is a workflow transition event offered on a state field.
type StateEvent struct {
	ID           string `json:"id,omitempty"`
	Presentation string `json:"presentation,omitempty"`
}

// StateField describes the state custom field of an issue, including
// the transition events the workflow currently allows.
type StateField struct {
	Name           string       `json:"name"`
	Type           string       `json:"$type,omitempty"`
	CurrentState   string       `json:"current_state,omitempty"`
	PossibleEvents []StateEvent `json:"possible_events,omitempty"`
}

// StateMachine reports whether the field is driven by a state machine
// workflow, which only accepts event-based transitions.
func (f *StateField) StateMachine() bool {
	return f.Type == "StateMachineIssueCustomField"
}

// GetStateField returns the state field of an issue with its possible
// transition events, or an error when the issue has no state field.
func (c *IssuesClient) GetStateField(ctx context.Context, issueID string) (*StateField, error) {
	var fields []struct {
		Name  string `json:"name"`
		Type  string `json:"$type"`
		Value struct {
			Name string `json:"name"`
		} `json:"value"`
		PossibleEvents []StateEvent `json:"possibleEvents"`
	}
	params := url.Values{"fields": {"name,possibleEvents(id,presentation),value(name),$type"}}
	if err := c.client.Get(ctx, "issues/"+url.PathEscape(issueID)+"/customFields", params, &fields); err != nil {
		return nil, fmt.Errorf("get state field of %s: %w", issueID, err)
	}

	for _, field := range fields {
		if !strings.EqualFold(field.Name, "state") {
			continue
		}
		state := field.Value.Name
		if state == "" {
			state = "Unknown"
		}
		return &StateField{
			Name:           field.Name,
			Type:           field.Type,
			CurrentState:   state,
			PossibleEvents: field.PossibleEvents,
		}, nil
	}
	return nil, fmt.Errorf("%w on issue %s", ErrNoStateField, issueID)
}

// UpdateCustomFields sets custom fields on an issue through the
// Commands API. Field values are validated against the project schema
// first when validate is true; validation is skipped when the project
// cannot be determined.
func (c *IssuesClient) UpdateCustomFields(ctx context.Context, issueID string, fields map[string]any, validate bool) (*Issue, error) {
	if len(fields) == 0 {
		return c.Get(ctx, issueID)
	}

	if validate {
		if projectID := c.projectIDForIssue(ctx, issueID); projectID != "" {
			if err := c.validateFields(ctx, projectID, fields); err != nil {
				return nil, err
			}
		}
	}

	command := buildFieldCommand(fields)
	body := map[string]any{
		"query":  command,
		"issues": []map[string]any{{"idReadable": issueID}},
	}
	if err := c.client.Post(ctx, "commands", nil, body, nil); err != nil {
		return nil, fmt.Errorf("update custom fields on %s: %w", issueID, err)
	}
	return c.Get(ctx, issueID)
}

// projectIDForIssue determines the internal project ID of an issue,
// falling back to the readable ID prefix when the fetch comes back
// without a project. Returns "" when nothing works.
func (c *IssuesClient) projectIDForIssue(ctx context.Context, issueID string) string {
	var issue Issue
	params := url.Values{"fields": {"id,idReadable,project(id,shortName)"}}
	if err := c.client.Get(ctx, "issues/"+url.PathEscape(issueID), params, &issue); err == nil {
		if issue.Project != nil && issue.Project.ID != "" {
			return issue.Project.ID
		}
	}

	// Readable IDs carry the project short name as their prefix.
	if !strings.Contains(issueID, "-") || allDigits(strings.ReplaceAll(issueID, "-", "")) {
		return ""
	}
	shortName := issueID[:strings.Index(issueID, "-")]

	var projects []Project
	params = url.Values{"fields": {"id,shortName"}}
	if err := c.client.Get(ctx, "admin/projects", params, &projects); err != nil {
		return ""
	}
	for _, p := range projects {
		if p.ShortName == shortName {
			return p.ID
		}
	}
	return ""
}

// validateFields checks every field value against the project schema
// and collects all failures into a single error. Fields the schema
// does not know are let through; the Commands API is the authority on
// those.
func (c *IssuesClient) validateFields(ctx context.Context, projectID string, fields map[string]any) error {
	projects := NewProjectsClient(c.client)
	var problems []string
	for _, name := range sortedKeys(fields) {
		if _, err := projects.CustomFieldSchema(ctx, projectID, name); err != nil {
			continue
		}
		result := projects.ValidateFieldValue(ctx, projectID, name, fields[name])
		if !result.Valid {
			problems = append(problems, fmt.Sprintf("invalid value for field %q: %v", name, fields[name]))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("custom field validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

// buildFieldCommand renders field assignments as a Commands API query.
// Values containing spaces get quoted; field names are sorted so the
// command is deterministic.
func buildFieldCommand(fields map[string]any) string {
	parts := make([]string, 0, len(fields))
	for _, name := range sortedKeys(fields) {
		parts = append(parts, name+" "+formatCommandValue(fields[name]))
	}
	return strings.Join(parts, " ")
}

func formatCommandValue(value any) string {
	s, ok := value.(string)
	if !ok {
		return fmt.Sprint(value)
	}
	if strings.Contains(s, " ") && !(strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`)) {
		return `"` + s + `"`
	}
	return s
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// GetCustomFields returns the custom fields of an issue as a flat
// name-to-value map. Object values flatten by name, login, text, then
// id; anything else passes through.
func (c *IssuesClient) GetCustomFields(ctx context.Context, issueID string) (map[string]any, error) {
	var issue Issue
	params := url.Values{"fields": {issueCustomFieldsSelector}}
	if err := c.client.Get(ctx, "issues/"+url.PathEscape(issueID), params, &issue); err != nil {
		return nil, fmt.Errorf("get custom fields of %s: %w", issueID, err)
	}

	fields := make(map[string]any, len(issue.CustomFields))
	for _, field := range issue.CustomFields {
		if field.Name == "" {
			continue
		}
		fields[field.Name] = field.ExtractValue()
	}
	return fields, nil
}

// BatchUpdate is one entry in a batch custom field update.
type BatchUpdate struct {
	IssueID  string         `json:"issue_id"`
	Fields   map[string]any `json:"fields"`
	Validate *bool          `json:"validate,omitempty"`
}

// BatchResult is the outcome of one batch update entry.
type BatchResult struct {
	IssueID         string   `json:"issue_id,omitempty"`
	Status          string   `json:"status"`
	Message         string   `json:"message,omitempty"`
	Error           string   `json:"error,omitempty"`
	UpdatedFields   []string `json:"updated_fields,omitempty"`
	AttemptedFields []string `json:"attempted_fields,omitempty"`
}

// BatchUpdateCustomFields applies custom field updates to several
// issues, reporting success, error, or skipped per entry. Failures do
// not stop the batch.
func (c *IssuesClient) BatchUpdateCustomFields(ctx context.Context, updates []BatchUpdate) []BatchResult {
	results := make([]BatchResult, 0, len(updates))
	for _, update := range updates {
		if update.IssueID == "" {
			results = append(results, BatchResult{
				Status: "error",
				Error:  "missing issue_id in update",
			})
			continue
		}
		if len(update.Fields) == 0 {
			results = append(results, BatchResult{
				IssueID: update.IssueID,
				Status:  "skipped",
				Message: "no fields to update",
			})
			continue
		}

		validate := update.Validate == nil || *update.Validate
		if _, err := c.UpdateCustomFields(ctx, update.IssueID, update.Fields, validate); err != nil {
			results = append(results, BatchResult{
				IssueID:         update.IssueID,
				Status:          "error",
				Error:           err.Error(),
				AttemptedFields: sortedKeys(update.Fields),
			})
			continue
		}
		results = append(results, BatchResult{
			IssueID:       update.IssueID,
			Status:        "success",
			UpdatedFields: sortedKeys(update.Fields),
		})
	}
	return results
}

// LinkResult reports a link command applied through the Commands API.
type LinkResult struct {
	Status      string            `json:"status"`
	Message     string            `json:"message"`
	Command     string            `json:"command"`
	SourceIssue string            `json:"source_issue,omitempty"`
	TargetIssue string            `json:"target_issue,omitempty"`
	LinkType    string            `json:"link_type,omitempty"`
	InternalIDs map[string]string `json:"internal_ids,omitempty"`
}

// LinkIssues links two issues with the given link type. The Commands
// API wants the internal source ID in the issues array but the readable
// target ID in the command text.
func (c *IssuesClient) LinkIssues(ctx context.Context, sourceID, targetID, linkType string) (*LinkResult, error) {
	sourceInternal := c.InternalID(ctx, sourceID)
	targetInternal := c.InternalID(ctx, targetID)
	targetReadable := c.ReadableID(ctx, targetID)

	phrase, ok := linkCommandPhrases[strings.ToLower(linkType)]
	if !ok {
		phrase = strings.ToLower(linkType)
	}
	command := phrase + " " + targetReadable

	body := map[string]any{
		"query":  command,
		"issues": []map[string]any{{"id": sourceInternal}},
	}
	if err := c.client.Post(ctx, "commands", nil, body, nil); err != nil {
		return nil, fmt.Errorf("link %s to %s: %w", sourceID, targetID, err)
	}

	return &LinkResult{
		Status:      "success",
		Message:     fmt.Sprintf("Successfully linked %s to %s with relationship '%s'", sourceID, targetID, linkType),
		Command:     command,
		SourceIssue: sourceID,
		TargetIssue: targetID,
		LinkType:    linkType,
		InternalIDs: map[string]string{"source": sourceInternal, "target": targetInternal},
	}, nil
}

// RemoveDependency removes a "depends on" link between two issues.
func (c *IssuesClient) RemoveDependency(ctx context.Context, dependentID, dependencyID string) (*LinkResult, error) {
	dependentInternal := c.InternalID(ctx, dependentID)
	dependencyReadable := c.ReadableID(ctx, dependencyID)

	command := "remove depends on " + dependencyReadable
	body := map[string]any{
		"query":  command,
		"issues": []map[string]any{{"id": dependentInternal}},
	}
	if err := c.client.Post(ctx, "commands", nil, body, nil); err != nil {
		return nil, fmt.Errorf("remove dependency %s on %s: %w", dependentID, dependencyID, err)
	}

	return &LinkResult{
		Status:  "success",
		Message: fmt.Sprintf("Successfully removed dependency between %s and %s", dependentID, dependencyID),
		Command: command,
	}, nil
}

// GetIssueLinks returns the link buckets of an issue.
func (c *IssuesClient) GetIssueLinks(ctx context.Context, issueID string) ([]IssueLink, error) {
	var links []IssueLink
	params := url.Values{"fields": {linkFields}}
	if err := c.client.Get(ctx, "issues/"+url.PathEscape(issueID)+"/links", params, &links); err != nil {
		return nil, fmt.Errorf("get links of %s: %w", issueID, err)
	}
	return links, nil
}

// GetLinkTypes returns the link types available on the instance.
func (c *IssuesClient) GetLinkTypes(ctx context.Context) ([]LinkType, error) {
	var types []LinkType
	params := url.Values{"fields": {linkTypeFields}}
	if err := c.client.Get(ctx, "issueLinkTypes", params, &types); err != nil {
		return nil, fmt.Errorf("get link types: %w", err)
	}
	return types, nil
}

// InternalID resolves an issue ID to its internal form. The input is
// returned unchanged when the lookup fails, matching the forgiving
// behavior the Commands API flow relies on.
func (c *IssuesClient) InternalID(ctx context.Context, issueID string) string {
	var issue Issue
	params := url.Values{"fields": {"id"}}
	if err := c.client.Get(ctx, "issues/"+url.PathEscape(issueID), params, &issue); err != nil || issue.ID == "" {
		return issueID
	}
	return issue.ID
}

// ReadableID resolves an internal issue ID (like "3-37") to its
// readable form (like "DEMO-37"). Readable inputs and failed lookups
// return the input unchanged.
func (c *IssuesClient) ReadableID(ctx context.Context, issueID string) string {
	if !strings.Contains(issueID, "-") || !allDigits(strings.ReplaceAll(issueID, "-", "")) {
		return issueID
	}

	var issue Issue
	params := url.Values{"fields": {"idReadable"}}
	if err := c.client.Get(ctx, "issues/"+url.PathEscape(issueID), params, &issue); err != nil || issue.IDReadable == "" {
		return issueID
	}
	return issue.IDReadable
}

// AttachmentContent is downloaded attachment data plus the metadata the
// download was sized against.
type AttachmentContent struct {
	Content  []byte
	Name     string
	MimeType string
	Size     int64
}

// GetAttachmentContent downloads an attachment, enforcing the size caps
// both on the advertised size and on the actual downloaded content.
func (c *IssuesClient) GetAttachmentContent(ctx context.Context, issueID, attachmentID string) (*AttachmentContent, error) {
	var issue Issue
	params := url.Values{"fields": {"attachments(id,url,size,name,mimeType)"}}
	if err := c.client.Get(ctx, "issues/"+url.PathEscape(issueID), params, &issue); err != nil {
		return nil, fmt.Errorf("get attachments of %s: %w", issueID, err)
	}

	var meta *Attachment
	for i := range issue.Attachments {
		if issue.Attachments[i].ID == attachmentID {
			meta = &issue.Attachments[i]
			break
		}
	}
	if meta == nil {
		return nil, fmt.Errorf("attachment %s not found in issue %s", attachmentID, issueID)
	}

	if meta.Size > maxAttachmentSize {
		return nil, fmt.Errorf(
			"attachment %q (%s) is too large (%d bytes, ~%d bytes after base64 encoding); maximum allowed: %d bytes original (%d bytes base64)",
			meta.Name, meta.MimeType, meta.Size, estimateBase64Size(meta.Size), maxAttachmentSize, maxBase64Size)
	}
	if meta.URL == "" {
		return nil, fmt.Errorf("no download URL found for attachment %s", attachmentID)
	}

	data, err := c.client.Download(ctx, c.attachmentURL(meta.URL))
	if err != nil {
		return nil, fmt.Errorf("download attachment %s: %w", attachmentID, err)
	}

	// The file may have changed since the metadata was fetched.
	if int64(len(data)) > maxAttachmentSize {
		return nil, fmt.Errorf(
			"downloaded content size (%d bytes, ~%d bytes base64) exceeds maximum allowed size (%d bytes original)",
			len(data), estimateBase64Size(int64(len(data))), maxAttachmentSize)
	}

	return &AttachmentContent{
		Content:  data,
		Name:     meta.Name,
		MimeType: meta.MimeType,
		Size:     int64(len(data)),
	}, nil
}

// attachmentURL resolves an attachment URL against the YouTrack host.
// Attachment URLs are relative to the host root, not the REST base.
func (c *IssuesClient) attachmentURL(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	host := strings.TrimSuffix(c.client.baseURL, "/api")
	return host + "/" + strings.TrimPrefix(raw, "/")
}

func estimateBase64Size(n int64) int64 {
	return int64(float64(n) * 1.33)
}
