package youtrack

import "encoding/json"

// Issue is a YouTrack issue. Timestamps are epoch milliseconds as
// returned by the API.
type Issue struct {
	ID           string             `json:"id,omitempty"`
	IDReadable   string             `json:"idReadable,omitempty"`
	Summary      string             `json:"summary,omitempty"`
	Description  string             `json:"description,omitempty"`
	Created      int64              `json:"created,omitempty"`
	Updated      int64              `json:"updated,omitempty"`
	Project      *Project           `json:"project,omitempty"`
	Reporter     *User              `json:"reporter,omitempty"`
	Assignee     *User              `json:"assignee,omitempty"`
	CustomFields []CustomFieldValue `json:"customFields,omitempty"`
	Attachments  []Attachment       `json:"attachments,omitempty"`
}

// Project is a YouTrack project.
type Project struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	ShortName   string `json:"shortName,omitempty"`
	Description string `json:"description,omitempty"`
	Archived    bool   `json:"archived,omitempty"`
	Created     int64  `json:"created,omitempty"`
	Updated     int64  `json:"updated,omitempty"`
	Lead        *User  `json:"lead,omitempty"`
}

// User is a YouTrack user account.
type User struct {
	ID     string `json:"id,omitempty"`
	Login  string `json:"login,omitempty"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Jabber string `json:"jabber,omitempty"`
	RingID string `json:"ringId,omitempty"`
	Guest  bool   `json:"guest,omitempty"`
	Online bool   `json:"online,omitempty"`
	Banned bool   `json:"banned,omitempty"`
}

// UserGroup is a group a user belongs to. Group membership doubles as
// the permission surface the API exposes to non-admin tokens.
type UserGroup struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// CustomFieldValue is one custom field on an issue. Value stays raw
// because the API returns objects, arrays, numbers, or null depending
// on the field type; ExtractValue flattens it.
type CustomFieldValue struct {
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Type  string          `json:"$type,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Attachment is file metadata on an issue. URL is relative to the
// YouTrack host, not the REST base.
type Attachment struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	URL      string `json:"url,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// Comment is a comment on an issue.
type Comment struct {
	ID      string `json:"id,omitempty"`
	Text    string `json:"text,omitempty"`
	Created int64  `json:"created,omitempty"`
	Author  *User  `json:"author,omitempty"`
}

// IssueLink is one link bucket on an issue, grouping linked issues by
// link type and direction.
type IssueLink struct {
	ID        string    `json:"id,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	LinkType  *LinkType `json:"linkType,omitempty"`
	Direction string    `json:"direction,omitempty"`
}

// LinkType describes an available issue link type.
type LinkType struct {
	Name           string `json:"name,omitempty"`
	LocalizedName  string `json:"localizedName,omitempty"`
	SourceToTarget string `json:"sourceToTarget,omitempty"`
	TargetToSource string `json:"targetToSource,omitempty"`
}

// WorkItem is a time-tracking entry on an issue.
type WorkItem struct {
	ID       string        `json:"id,omitempty"`
	Text     string        `json:"text,omitempty"`
	Date     int64         `json:"date,omitempty"`
	Created  int64         `json:"created,omitempty"`
	Author   *User         `json:"author,omitempty"`
	Duration *WorkDuration `json:"duration,omitempty"`
	Type     *WorkItemType `json:"type,omitempty"`
}

// WorkDuration is the duration of a work item.
type WorkDuration struct {
	Minutes      int    `json:"minutes,omitempty"`
	Presentation string `json:"presentation,omitempty"`
}

// WorkItemType is a project-level work type (Development, Testing, ...).
type WorkItemType struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// ProjectCustomField is a custom field attached to a project, as
// returned by admin/projects/{id}/customFields.
type ProjectCustomField struct {
	Field        *FieldDefinition `json:"field,omitempty"`
	CanBeEmpty   bool             `json:"canBeEmpty,omitempty"`
	AutoAttached bool             `json:"autoAttached,omitempty"`
	Bundle       *Bundle          `json:"bundle,omitempty"`
}

// FieldDefinition is the field prototype behind a project custom field.
type FieldDefinition struct {
	ID           string     `json:"id,omitempty"`
	Name         string     `json:"name,omitempty"`
	IsMultiValue bool       `json:"isMultiValue,omitempty"`
	FieldType    *FieldType `json:"fieldType,omitempty"`
}

// FieldType carries the bundle type and value type of a field.
type FieldType struct {
	Type      string `json:"$type,omitempty"`
	ID        string `json:"id,omitempty"`
	ValueType string `json:"valueType,omitempty"`
}

// Bundle is a value bundle backing an enum, state, or user field.
type Bundle struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"$type,omitempty"`
}

// BundleElement is one allowed value inside an enum or state bundle.
type BundleElement struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Color       *Color `json:"color,omitempty"`
	IsResolved  bool   `json:"isResolved,omitempty"`
}

// Color is a bundle element color pair.
type Color struct {
	ID         string `json:"id,omitempty"`
	Background string `json:"background,omitempty"`
	Foreground string `json:"foreground,omitempty"`
}
