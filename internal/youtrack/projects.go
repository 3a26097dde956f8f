package youtrack

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	projectFields = "id,name,shortName,description,archived,created,updated,lead(id,name,login)"

	projectIssueFields = "id,summary,description,created,updated,reporter(id,login,name)," +
		"assignee(id,login,name),project(id,name,shortName)," +
		"customFields(id,name,value($type,name,text,id),projectCustomField(field(name)))"

	projectFieldSelector = "field(id,name,fieldType($type,valueType,id)),canBeEmpty,autoAttached"
)

// ProjectsClient provides project operations on the YouTrack API.
type ProjectsClient struct {
	client *Client
}

// NewProjectsClient creates a projects client on top of the given Client.
func NewProjectsClient(client *Client) *ProjectsClient {
	return &ProjectsClient{client: client}
}

// List returns all projects, filtering out archived ones unless asked
// to include them.
func (c *ProjectsClient) List(ctx context.Context, includeArchived bool) ([]Project, error) {
	params := url.Values{"fields": {projectFields}}
	if !includeArchived {
		params.Set("$filter", "archived eq false")
	}

	var projects []Project
	if err := c.client.Get(ctx, "admin/projects", params, &projects); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// Get fetches a project by its internal ID.
func (c *ProjectsClient) Get(ctx context.Context, projectID string) (*Project, error) {
	var project Project
	params := url.Values{"fields": {projectFields}}
	if err := c.client.Get(ctx, "admin/projects/"+url.PathEscape(projectID), params, &project); err != nil {
		return nil, fmt.Errorf("get project %s: %w", projectID, err)
	}
	return &project, nil
}

// GetByName finds a project by short name or full name. Matching is
// case-insensitive and tries exact short name, exact name, then name
// substring, in that order.
func (c *ProjectsClient) GetByName(ctx context.Context, name string) (*Project, error) {
	projects, err := c.List(ctx, true)
	if err != nil {
		return nil, err
	}

	for i := range projects {
		if strings.EqualFold(projects[i].ShortName, name) {
			return &projects[i], nil
		}
	}
	for i := range projects {
		if strings.EqualFold(projects[i].Name, name) {
			return &projects[i], nil
		}
	}
	for i := range projects {
		if strings.Contains(strings.ToLower(projects[i].Name), strings.ToLower(name)) {
			return &projects[i], nil
		}
	}
	return nil, fmt.Errorf("project not found: %s", name)
}

// Issues returns up to limit issues belonging to a project.
func (c *ProjectsClient) Issues(ctx context.Context, projectID string, limit int) ([]Issue, error) {
	params := url.Values{
		"$filter": {fmt.Sprintf("project/id eq %s", projectID)},
		"$top":    {strconv.Itoa(limit)},
		"fields":  {projectIssueFields},
	}

	var issues []Issue
	if err := c.client.Get(ctx, "issues", params, &issues); err != nil {
		return nil, fmt.Errorf("get issues of project %s: %w", projectID, err)
	}
	return issues, nil
}

// Create creates a project. Name and short name are required; the
// leader is optional. The API response is sparse, so the full project
// is fetched afterwards; when that fetch fails the known values are
// returned instead.
func (c *ProjectsClient) Create(ctx context.Context, name, shortName, description, leadID string) (*Project, error) {
	if name == "" {
		return nil, fmt.Errorf("project name is required")
	}
	if shortName == "" {
		return nil, fmt.Errorf("project short name is required")
	}

	body := map[string]any{"name": name, "shortName": shortName}
	if description != "" {
		body["description"] = description
	}
	if leadID != "" {
		// The API expects "leader", not "lead".
		body["leader"] = map[string]any{"id": leadID}
	}

	var created Project
	params := url.Values{"fields": {"id,name,shortName"}}
	if err := c.client.Post(ctx, "admin/projects", params, body, &created); err != nil {
		return nil, fmt.Errorf("create project %s: %w", shortName, err)
	}

	if created.ID != "" {
		if full, err := c.Get(ctx, created.ID); err == nil {
			return full, nil
		}
	}
	created.Name = name
	created.ShortName = shortName
	created.Description = description
	return &created, nil
}

// ProjectUpdate holds the changeable project attributes. Empty strings
// leave the attribute untouched; Archived is a pointer because false is
// a meaningful value.
type ProjectUpdate struct {
	Name        string
	Description string
	LeadID      string
	Archived    *bool
}

// Update applies the given changes to a project and returns the
// refreshed project. With nothing to change it degrades to a Get.
func (c *ProjectsClient) Update(ctx context.Context, projectID string, update ProjectUpdate) (*Project, error) {
	body := map[string]any{}
	if update.Name != "" {
		body["name"] = update.Name
	}
	if update.Description != "" {
		body["description"] = update.Description
	}
	if update.LeadID != "" {
		body["leader"] = map[string]any{"id": update.LeadID}
	}
	if update.Archived != nil {
		body["archived"] = *update.Archived
	}
	if len(body) == 0 {
		return c.Get(ctx, projectID)
	}

	if err := c.client.Post(ctx, "admin/projects/"+url.PathEscape(projectID), nil, body, nil); err != nil {
		return nil, fmt.Errorf("update project %s: %w", projectID, err)
	}
	return c.Get(ctx, projectID)
}

// Delete deletes a project. This cannot be undone through the API.
func (c *ProjectsClient) Delete(ctx context.Context, projectID string) error {
	if err := c.client.Delete(ctx, "admin/projects/"+url.PathEscape(projectID)); err != nil {
		return fmt.Errorf("delete project %s: %w", projectID, err)
	}
	return nil
}

// CustomFields returns the custom fields attached to a project.
func (c *ProjectsClient) CustomFields(ctx context.Context, projectID string) ([]ProjectCustomField, error) {
	var fields []ProjectCustomField
	params := url.Values{"fields": {projectFieldSelector}}
	path := "admin/projects/" + url.PathEscape(projectID) + "/customFields"
	if err := c.client.Get(ctx, path, params, &fields); err != nil {
		return nil, fmt.Errorf("get custom fields of project %s: %w", projectID, err)
	}
	return fields, nil
}

// AddCustomField attaches an existing custom field to a project.
func (c *ProjectsClient) AddCustomField(ctx context.Context, projectID, fieldID, emptyFieldText string) (*ProjectCustomField, error) {
	body := map[string]any{"field": map[string]any{"id": fieldID}}
	if emptyFieldText != "" {
		body["emptyFieldText"] = emptyFieldText
	}

	var field ProjectCustomField
	params := url.Values{"fields": {projectFieldSelector}}
	path := "admin/projects/" + url.PathEscape(projectID) + "/customFields"
	if err := c.client.Post(ctx, path, params, body, &field); err != nil {
		return nil, fmt.Errorf("add custom field %s to project %s: %w", fieldID, projectID, err)
	}
	return &field, nil
}

// FieldSchema is the flattened description of a project custom field.
type FieldSchema struct {
	Name          string         `json:"name"`
	Type          string         `json:"type"`
	BundleType    string         `json:"bundle_type,omitempty"`
	Required      bool           `json:"required"`
	MultiValue    bool           `json:"multi_value"`
	AutoAttach    bool           `json:"auto_attach"`
	FieldID       string         `json:"field_id,omitempty"`
	BundleID      string         `json:"bundle_id,omitempty"`
	AllowedValues []AllowedValue `json:"allowed_values,omitempty"`
}

// AllowedValue is one permitted value of an enum, state, or user field.
type AllowedValue struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Login       string `json:"login,omitempty"`
	Email       string `json:"email,omitempty"`
	Resolved    bool   `json:"resolved,omitempty"`
	Color       *Color `json:"color,omitempty"`
}

// CustomFieldSchema returns the schema of one custom field, with
// allowed values resolved for enum and state fields.
func (c *ProjectsClient) CustomFieldSchema(ctx context.Context, projectID, fieldName string) (*FieldSchema, error) {
	fields, err := c.CustomFields(ctx, projectID)
	if err != nil {
		return nil, err
	}

	for _, field := range fields {
		schema := c.buildSchema(ctx, projectID, field)
		if schema != nil && schema.Name == fieldName {
			return schema, nil
		}
	}
	return nil, fmt.Errorf("custom field %q not found in project %s", fieldName, projectID)
}

// AllSchemas returns the schemas of every custom field in a project,
// keyed by field name.
func (c *ProjectsClient) AllSchemas(ctx context.Context, projectID string) (map[string]FieldSchema, error) {
	fields, err := c.CustomFields(ctx, projectID)
	if err != nil {
		return nil, err
	}

	schemas := make(map[string]FieldSchema, len(fields))
	for _, field := range fields {
		if schema := c.buildSchema(ctx, projectID, field); schema != nil {
			schemas[schema.Name] = *schema
		}
	}
	return schemas, nil
}

// buildSchema flattens one project custom field. Nil when the entry
// has no usable field definition.
func (c *ProjectsClient) buildSchema(ctx context.Context, projectID string, field ProjectCustomField) *FieldSchema {
	if field.Field == nil || field.Field.Name == "" {
		return nil
	}

	schema := &FieldSchema{
		Name:       field.Field.Name,
		Type:       "string",
		Required:   !field.CanBeEmpty,
		MultiValue: field.Field.IsMultiValue,
		AutoAttach: field.AutoAttached,
		FieldID:    field.Field.ID,
	}
	if ft := field.Field.FieldType; ft != nil {
		if ft.ValueType != "" {
			schema.Type = ft.ValueType
		}
		schema.BundleType = ft.Type
		schema.BundleID = ft.ID
	}

	if schema.Type == "enum" || schema.Type == "state" {
		if values, err := c.AllowedValues(ctx, projectID, schema.Name); err == nil {
			schema.AllowedValues = values
		}
	}
	return schema
}

// AllowedValues returns the permitted values of an enum, state, or user
// field. Fields without a value bundle return an empty list.
func (c *ProjectsClient) AllowedValues(ctx context.Context, projectID, fieldName string) ([]AllowedValue, error) {
	fields, err := c.CustomFields(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var match *ProjectCustomField
	for i := range fields {
		if fields[i].Field != nil && fields[i].Field.Name == fieldName {
			match = &fields[i]
			break
		}
	}
	if match == nil {
		return nil, fmt.Errorf("custom field %q not found in project %s", fieldName, projectID)
	}

	var bundleType, bundleID string
	if ft := match.Field.FieldType; ft != nil {
		bundleType = ft.Type
		bundleID = ft.ID
	}
	if bundleID == "" {
		return []AllowedValue{}, nil
	}

	switch {
	case strings.Contains(bundleType, "EnumBundle"):
		return c.bundleValues(ctx, "enum", bundleID, "values(id,name,description,color)")
	case strings.Contains(bundleType, "StateBundle"), strings.Contains(bundleType, "StateMachineBundle"):
		return c.bundleValues(ctx, "state", bundleID, "values(id,name,description,isResolved,color)")
	case strings.Contains(bundleType, "UserBundle"):
		return c.userValues(ctx)
	default:
		return []AllowedValue{}, nil
	}
}

func (c *ProjectsClient) bundleValues(ctx context.Context, kind, bundleID, fields string) ([]AllowedValue, error) {
	var bundle struct {
		Values []BundleElement `json:"values"`
	}
	path := "admin/customFieldSettings/bundles/" + kind + "/" + url.PathEscape(bundleID)
	params := url.Values{"fields": {fields}}
	if err := c.client.Get(ctx, path, params, &bundle); err != nil {
		return nil, fmt.Errorf("get %s bundle %s: %w", kind, bundleID, err)
	}

	values := make([]AllowedValue, 0, len(bundle.Values))
	for _, v := range bundle.Values {
		values = append(values, AllowedValue{
			ID:          v.ID,
			Name:        v.Name,
			Description: v.Description,
			Resolved:    v.IsResolved,
			Color:       v.Color,
		})
	}
	return values, nil
}

func (c *ProjectsClient) userValues(ctx context.Context) ([]AllowedValue, error) {
	var users []User
	params := url.Values{"fields": {"id,login,name,email"}}
	if err := c.client.Get(ctx, "users", params, &users); err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}

	values := make([]AllowedValue, 0, len(users))
	for _, u := range users {
		values = append(values, AllowedValue{
			ID:    u.ID,
			Name:  u.Name,
			Login: u.Login,
			Email: u.Email,
		})
	}
	return values, nil
}

// FieldValidation is the outcome of validating a field value against
// the project schema.
type FieldValidation struct {
	Valid      bool   `json:"valid"`
	Field      string `json:"field,omitempty"`
	Value      any    `json:"value,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// ValidateFieldValue checks a value against the field's schema. The
// result always describes the outcome; API failures come back as
// invalid with a suggestion rather than an error return.
func (c *ProjectsClient) ValidateFieldValue(ctx context.Context, projectID, fieldName string, value any) FieldValidation {
	schema, err := c.CustomFieldSchema(ctx, projectID, fieldName)
	if err != nil {
		return FieldValidation{
			Valid:      false,
			Error:      fmt.Sprintf("custom field %q not found in project %s", fieldName, projectID),
			Suggestion: "Check field name spelling and project configuration",
		}
	}

	if result, ok := c.validateTypedValue(ctx, projectID, fieldName, schema, value); !ok {
		return result
	}

	if schema.MultiValue {
		if _, isList := value.([]any); !isList {
			return FieldValidation{
				Valid:      false,
				Error:      fmt.Sprintf("field %q expects multiple values (array)", fieldName),
				Suggestion: "Provide value as an array, e.g., ['value1', 'value2']",
			}
		}
	}

	return FieldValidation{Valid: true, Field: fieldName, Value: value, Message: "Valid"}
}

// validateTypedValue applies the per-type checks. The second return is
// false when validation failed and the first value carries the result.
func (c *ProjectsClient) validateTypedValue(ctx context.Context, projectID, fieldName string, schema *FieldSchema, value any) (FieldValidation, bool) {
	isState := schema.Type == "state" ||
		strings.Contains(schema.BundleType, "StateBundle") ||
		strings.Contains(schema.BundleType, "StateMachine")
	isEnum := schema.Type == "enum" || strings.Contains(schema.BundleType, "EnumBundle")
	isUser := schema.Type == "user" || strings.Contains(schema.BundleType, "UserBundle")

	switch {
	case isState, isEnum:
		kind := "enum"
		if isState {
			kind = "state"
		}
		names, err := c.allowedNames(ctx, projectID, fieldName)
		if err != nil {
			return FieldValidation{
				Valid:      false,
				Error:      fmt.Sprintf("validation error: %v", err),
				Suggestion: "Check field name and project configuration",
			}, false
		}
		if !containsString(names, fmt.Sprint(value)) {
			suggestion := "Check field configuration"
			if len(names) > 0 {
				suggestion = "Use one of: " + strings.Join(names, ", ")
			}
			return FieldValidation{
				Valid:      false,
				Error:      fmt.Sprintf("invalid %s value '%v' for field %q", kind, value, fieldName),
				Suggestion: suggestion,
			}, false
		}

	case isUser:
		if err := c.client.Get(ctx, "users/"+url.PathEscape(fmt.Sprint(value)), nil, nil); err != nil {
			return FieldValidation{
				Valid:      false,
				Error:      fmt.Sprintf("user '%v' not found", value),
				Suggestion: "Use valid user login or ID",
			}, false
		}

	case schema.Type == "integer":
		if !isInteger(value) {
			return FieldValidation{
				Valid:      false,
				Error:      fmt.Sprintf("invalid integer value: %v", value),
				Suggestion: "Provide a valid integer number",
			}, false
		}

	case schema.Type == "float":
		if !isFloat(value) {
			return FieldValidation{
				Valid:      false,
				Error:      fmt.Sprintf("invalid float value: %v", value),
				Suggestion: "Provide a valid float number",
			}, false
		}

	case schema.Type == "period":
		s, ok := value.(string)
		if !ok || !strings.HasPrefix(s, "PT") {
			return FieldValidation{
				Valid:      false,
				Error:      fmt.Sprintf("invalid period format: %v", value),
				Suggestion: "Use ISO 8601 duration format like 'PT2H30M' for 2 hours 30 minutes",
			}, false
		}
	}

	return FieldValidation{}, true
}

func (c *ProjectsClient) allowedNames(ctx context.Context, projectID, fieldName string) ([]string, error) {
	values, err := c.AllowedValues(ctx, projectID, fieldName)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(values))
	for _, v := range values {
		names = append(names, v.Name)
	}
	return names, nil
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float32, float64:
		return true
	case string:
		_, err := strconv.ParseInt(v, 10, 64)
		return err == nil
	default:
		return false
	}
}

func isFloat(value any) bool {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	case string:
		_, err := strconv.ParseFloat(v, 64)
		return err == nil
	default:
		return false
	}
}
