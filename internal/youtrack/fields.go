package youtrack

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// ExtractValue flattens the raw custom field value into something a
// caller can display. Objects flatten by name, login, text, then id;
// arrays and scalars pass through decoded.
func (f CustomFieldValue) ExtractValue() any {
	if len(f.Value) == 0 {
		return nil
	}

	var decoded any
	if err := json.Unmarshal(f.Value, &decoded); err != nil {
		return string(f.Value)
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return decoded
	}
	for _, key := range []string{"name", "login", "text", "id"} {
		if v, ok := obj[key]; ok {
			return v
		}
	}
	return decoded
}

// FieldTypeInfo is the type information behind a project custom field,
// used to pick the issue-level $type and value shape.
type FieldTypeInfo struct {
	BundleType string
	ValueType  string
	BundleID   string
}

// IssueFieldType maps field type information to the IssueCustomField
// $type the REST API expects on direct updates. The field ID breaks
// ties when the type information is incomplete.
func IssueFieldType(info FieldTypeInfo, fieldID string) string {
	lowered := strings.ToLower(fieldID)
	for _, keyword := range []string{"assignee", "reporter", "user"} {
		if strings.Contains(lowered, keyword) {
			return "SingleUserIssueCustomField"
		}
	}
	if strings.Contains(info.BundleType, "UserBundle") {
		return "SingleUserIssueCustomField"
	}

	switch info.ValueType {
	case "enum":
		return "SingleEnumIssueCustomField"
	case "state":
		return "StateIssueCustomField"
	case "user":
		return "SingleUserIssueCustomField"
	case "period":
		return "PeriodIssueCustomField"
	case "integer", "float", "string", "date":
		return "SimpleIssueCustomField"
	case "text":
		return "TextIssueCustomField"
	}

	switch {
	case strings.Contains(info.BundleType, "StateBundle"), strings.Contains(info.BundleType, "StateMachine"):
		return "StateIssueCustomField"
	case strings.Contains(info.BundleType, "EnumBundle"):
		return "SingleEnumIssueCustomField"
	case strings.Contains(info.BundleType, "PeriodBundle"):
		return "PeriodIssueCustomField"
	}

	// Last resort: guess from common field names.
	switch {
	case strings.Contains(lowered, "priority"), strings.Contains(lowered, "type"):
		return "SingleEnumIssueCustomField"
	case strings.Contains(lowered, "state"):
		return "StateIssueCustomField"
	default:
		return "SingleEnumIssueCustomField"
	}
}

// FormatFieldValue shapes a value for a direct custom field update.
// Users become {login, $type: User}, periods {presentation, $type:
// PeriodValue}, states and enums bundle elements by name; numerics and
// strings stay scalar.
func FormatFieldValue(value any, info FieldTypeInfo, fieldID string) any {
	if value == nil {
		return nil
	}

	lowered := strings.ToLower(fieldID)
	isUserField := strings.Contains(info.BundleType, "UserBundle") || info.ValueType == "user"
	for _, keyword := range []string{"assignee", "reporter", "user"} {
		if strings.Contains(lowered, keyword) {
			isUserField = true
		}
	}

	if isUserField {
		switch v := value.(type) {
		case string:
			return map[string]any{"login": v, "$type": "User"}
		case map[string]any:
			if login, ok := v["login"]; ok {
				return map[string]any{"login": login, "$type": "User"}
			}
		}
	}

	str, isString := value.(string)
	switch {
	case info.ValueType == "period" || (isString && strings.HasPrefix(str, "PT")):
		return map[string]any{"presentation": fmt.Sprint(value), "$type": "PeriodValue"}
	case info.ValueType == "state" ||
		strings.Contains(info.BundleType, "StateBundle") ||
		strings.Contains(info.BundleType, "StateMachine") ||
		strings.Contains(lowered, "state"):
		return map[string]any{"name": fmt.Sprint(value), "$type": "StateBundleElement"}
	case info.ValueType == "enum" || strings.Contains(info.BundleType, "EnumBundle"):
		return map[string]any{"name": fmt.Sprint(value), "$type": "EnumBundleElement"}
	}

	switch info.ValueType {
	case "integer", "float":
		switch value.(type) {
		case int, int32, int64, float32, float64:
			return value
		}
	case "string", "text":
		return fmt.Sprint(value)
	case "date":
		return value
	}

	return map[string]any{"name": fmt.Sprint(value), "$type": "EnumBundleElement"}
}

// TypedFieldPayload builds the complete IssueCustomField object for a
// direct REST update, resolving the field type from the project when a
// project ID is given.
func (c *IssuesClient) TypedFieldPayload(ctx context.Context, projectID, fieldID string, value any) map[string]any {
	var info FieldTypeInfo
	if projectID != "" {
		info = c.fieldTypeInfo(ctx, projectID, fieldID)
	}

	return map[string]any{
		"id":    fieldID,
		"value": FormatFieldValue(value, info, fieldID),
		"$type": IssueFieldType(info, fieldID),
	}
}

// fieldTypeInfo looks up type information for a field by ID or name.
// Lookup failures return the zero value, which downgrades formatting
// to the name-based heuristics.
func (c *IssuesClient) fieldTypeInfo(ctx context.Context, projectID, fieldID string) FieldTypeInfo {
	var fields []ProjectCustomField
	params := url.Values{"fields": {"field(id,name,fieldType($type,valueType,id))"}}
	path := "admin/projects/" + url.PathEscape(projectID) + "/customFields"
	if err := c.client.Get(ctx, path, params, &fields); err != nil {
		return FieldTypeInfo{}
	}

	for _, field := range fields {
		if field.Field == nil || field.Field.FieldType == nil {
			continue
		}
		if field.Field.ID == fieldID || field.Field.Name == fieldID {
			return FieldTypeInfo{
				BundleType: field.Field.FieldType.Type,
				ValueType:  field.Field.FieldType.ValueType,
				BundleID:   field.Field.FieldType.ID,
			}
		}
	}
	return FieldTypeInfo{}
}
