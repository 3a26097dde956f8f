package youtrack

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractValue(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  any
	}{
		{"empty", "", nil},
		{"json null", "null", nil},
		{"object by name", `{"name":"Critical","id":"v-1"}`, "Critical"},
		{"object by login", `{"login":"bob","id":"1-2"}`, "bob"},
		{"object by text", `{"text":"wiki content"}`, "wiki content"},
		{"object by id", `{"id":"s-1"}`, "s-1"},
		{"name wins over login", `{"login":"bob","name":"Bob B"}`, "Bob B"},
		{"number scalar", `42`, float64(42)},
		{"string scalar", `"fast"`, "fast"},
		{"object without known keys", `{"presentation":"2h"}`, map[string]any{"presentation": "2h"}},
		{"array passthrough", `[{"name":"a"},{"name":"b"}]`, []any{
			map[string]any{"name": "a"},
			map[string]any{"name": "b"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field := CustomFieldValue{Value: json.RawMessage(tt.value)}
			assert.Equal(t, tt.want, field.ExtractValue())
		})
	}
}

func TestIssueFieldType(t *testing.T) {
	tests := []struct {
		name    string
		info    FieldTypeInfo
		fieldID string
		want    string
	}{
		{"enum value type", FieldTypeInfo{BundleType: "EnumBundle", ValueType: "enum"}, "f-1", "SingleEnumIssueCustomField"},
		{"state value type", FieldTypeInfo{ValueType: "state"}, "f-2", "StateIssueCustomField"},
		{"user value type", FieldTypeInfo{ValueType: "user"}, "f-3", "SingleUserIssueCustomField"},
		{"period value type", FieldTypeInfo{ValueType: "period"}, "f-4", "PeriodIssueCustomField"},
		{"integer value type", FieldTypeInfo{ValueType: "integer"}, "f-5", "SimpleIssueCustomField"},
		{"date value type", FieldTypeInfo{ValueType: "date"}, "f-6", "SimpleIssueCustomField"},
		{"text value type", FieldTypeInfo{ValueType: "text"}, "f-7", "TextIssueCustomField"},
		{"assignee keyword", FieldTypeInfo{}, "Assignee", "SingleUserIssueCustomField"},
		{"user bundle", FieldTypeInfo{BundleType: "UserBundle"}, "f-8", "SingleUserIssueCustomField"},
		{"state bundle fallback", FieldTypeInfo{BundleType: "StateBundle"}, "f-9", "StateIssueCustomField"},
		{"state machine fallback", FieldTypeInfo{BundleType: "StateMachineBundle"}, "f-10", "StateIssueCustomField"},
		{"enum bundle fallback", FieldTypeInfo{BundleType: "EnumBundle"}, "f-11", "SingleEnumIssueCustomField"},
		{"priority name heuristic", FieldTypeInfo{}, "Priority", "SingleEnumIssueCustomField"},
		{"state name heuristic", FieldTypeInfo{}, "State", "StateIssueCustomField"},
		{"unknown defaults to enum", FieldTypeInfo{}, "Subsystem", "SingleEnumIssueCustomField"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IssueFieldType(tt.info, tt.fieldID))
		})
	}
}

func TestFormatFieldValue(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		info    FieldTypeInfo
		fieldID string
		want    any
	}{
		{
			name:    "user login string",
			value:   "alice",
			info:    FieldTypeInfo{ValueType: "user"},
			fieldID: "f-1",
			want:    map[string]any{"login": "alice", "$type": "User"},
		},
		{
			name:    "user by field name",
			value:   "bob",
			info:    FieldTypeInfo{},
			fieldID: "Assignee",
			want:    map[string]any{"login": "bob", "$type": "User"},
		},
		{
			name:    "user map keeps login only",
			value:   map[string]any{"login": "carol", "id": "1-3"},
			info:    FieldTypeInfo{BundleType: "UserBundle"},
			fieldID: "f-2",
			want:    map[string]any{"login": "carol", "$type": "User"},
		},
		{
			name:    "period value type",
			value:   "PT2H30M",
			info:    FieldTypeInfo{ValueType: "period"},
			fieldID: "Estimate",
			want:    map[string]any{"presentation": "PT2H30M", "$type": "PeriodValue"},
		},
		{
			name:    "period guessed from PT prefix",
			value:   "PT30M",
			info:    FieldTypeInfo{},
			fieldID: "Spent time",
			want:    map[string]any{"presentation": "PT30M", "$type": "PeriodValue"},
		},
		{
			name:    "state value type",
			value:   "Open",
			info:    FieldTypeInfo{ValueType: "state"},
			fieldID: "f-3",
			want:    map[string]any{"name": "Open", "$type": "StateBundleElement"},
		},
		{
			name:    "state by field name",
			value:   "Fixed",
			info:    FieldTypeInfo{},
			fieldID: "State",
			want:    map[string]any{"name": "Fixed", "$type": "StateBundleElement"},
		},
		{
			name:    "enum value type",
			value:   "High",
			info:    FieldTypeInfo{ValueType: "enum", BundleType: "EnumBundle"},
			fieldID: "Priority",
			want:    map[string]any{"name": "High", "$type": "EnumBundleElement"},
		},
		{
			name:    "integer passthrough",
			value:   42,
			info:    FieldTypeInfo{ValueType: "integer"},
			fieldID: "Points",
			want:    42,
		},
		{
			name:    "float passthrough",
			value:   3.5,
			info:    FieldTypeInfo{ValueType: "float"},
			fieldID: "Weight",
			want:    3.5,
		},
		{
			name:    "string value type stringifies",
			value:   42,
			info:    FieldTypeInfo{ValueType: "string"},
			fieldID: "Build",
			want:    "42",
		},
		{
			name:    "date passthrough",
			value:   "2024-01-15",
			info:    FieldTypeInfo{ValueType: "date"},
			fieldID: "Due Date",
			want:    "2024-01-15",
		},
		{
			name:    "nil stays nil",
			value:   nil,
			info:    FieldTypeInfo{ValueType: "enum"},
			fieldID: "Priority",
			want:    nil,
		},
		{
			name:    "unknown wraps as enum element",
			value:   "Widget",
			info:    FieldTypeInfo{},
			fieldID: "Subsystem",
			want:    map[string]any{"name": "Widget", "$type": "EnumBundleElement"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFieldValue(tt.value, tt.info, tt.fieldID))
		})
	}
}

func TestTypedFieldPayload(t *testing.T) {
	var lookups atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/admin/projects/0-0/customFields", func(w http.ResponseWriter, r *http.Request) {
		lookups.Add(1)
		fmt.Fprint(w, `[{"field":{"id":"f-1","name":"Priority","fieldType":{"$type":"EnumBundle","valueType":"enum","id":"b-1"}}}]`)
	})
	client, _ := newTestClient(t, mux)
	issues := NewIssuesClient(client)

	payload := issues.TypedFieldPayload(context.Background(), "0-0", "Priority", "High")
	assert.Equal(t, map[string]any{
		"id":    "Priority",
		"value": map[string]any{"name": "High", "$type": "EnumBundleElement"},
		"$type": "SingleEnumIssueCustomField",
	}, payload)
	assert.Equal(t, int32(1), lookups.Load())
}

func TestTypedFieldPayloadWithoutProject(t *testing.T) {
	var lookups atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/admin/projects/", func(w http.ResponseWriter, r *http.Request) {
		lookups.Add(1)
		fmt.Fprint(w, `[]`)
	})
	client, _ := newTestClient(t, mux)
	issues := NewIssuesClient(client)

	payload := issues.TypedFieldPayload(context.Background(), "", "Assignee", "alice")
	assert.Equal(t, map[string]any{
		"id":    "Assignee",
		"value": map[string]any{"login": "alice", "$type": "User"},
		"$type": "SingleUserIssueCustomField",
	}, payload)
	assert.Zero(t, lookups.Load(), "no project means no type lookup")
}

func TestTypedFieldPayloadLookupFailureFallsBack(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/admin/projects/0-9/customFields", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	client, _ := newTestClient(t, mux)
	issues := NewIssuesClient(client)

	payload := issues.TypedFieldPayload(context.Background(), "0-9", "State", "Fixed")
	assert.Equal(t, "StateIssueCustomField", payload["$type"])
	assert.Equal(t, map[string]any{"name": "Fixed", "$type": "StateBundleElement"}, payload["value"])
}
