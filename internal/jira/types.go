package jira

import "encoding/json"

// Issue is the subset of a Jira issue this tool reads.
type Issue struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Fields Fields `json:"fields"`
}

// Fields holds the named issue fields plus the raw field map, so that
// instance-specific custom fields (epic link, story points, MVP status)
// stay reachable under whatever key the server uses.
type Fields struct {
	Summary    string                     `json:"summary"`
	Status     Status                     `json:"status"`
	Resolution *Name                      `json:"resolution"`
	Assignee   *User                      `json:"assignee"`
	DueDate    string                     `json:"duedate"`
	Comment    CommentPage                `json:"comment"`
	IssueLinks []IssueLink                `json:"issuelinks"`
	Raw        map[string]json.RawMessage `json:"-"`
}

func (f *Fields) UnmarshalJSON(data []byte) error {
	type plain Fields
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Raw = raw
	*f = Fields(p)
	return nil
}

type Name struct {
	Name string `json:"name"`
}

type Status struct {
	Name     string `json:"name"`
	Category Name   `json:"statusCategory"`
}

type User struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

type CommentPage struct {
	Comments []Comment `json:"comments"`
}

type Comment struct {
	Author  User   `json:"author"`
	Body    string `json:"body"`
	Created string `json:"created"`
}

// IssueLink relates two issues; Inward/Outward is filled depending on
// which side of the link the queried issue sits on.
type IssueLink struct {
	Type         LinkType     `json:"type"`
	InwardIssue  *LinkedIssue `json:"inwardIssue"`
	OutwardIssue *LinkedIssue `json:"outwardIssue"`
}

type LinkType struct {
	Name    string `json:"name"`
	Inward  string `json:"inward"`
	Outward string `json:"outward"`
}

type LinkedIssue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
	} `json:"fields"`
}

type searchResponse struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []Issue `json:"issues"`
}

type errorResponse struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
}

// StatusCategory returns the tracker's progress classification for the
// issue, falling back to the raw status name when the server does not
// report categories.
func (i Issue) StatusCategory() string {
	if i.Fields.Status.Category.Name != "" {
		return i.Fields.Status.Category.Name
	}
	return i.Fields.Status.Name
}

// Resolved reports whether the issue carries a resolution.
func (i Issue) Resolved() bool {
	return i.Fields.Resolution != nil && i.Fields.Resolution.Name != ""
}

// CustomString reads a custom field as a string. Option-style fields
// ({"value": ...}) unwrap to their value.
func (i Issue) CustomString(key string) string {
	raw, ok := i.Fields.Raw[key]
	if !ok || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var opt struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &opt); err == nil {
		return opt.Value
	}
	return ""
}

// CustomFloat reads a numeric custom field, reporting whether it was set.
func (i Issue) CustomFloat(key string) (float64, bool) {
	raw, ok := i.Fields.Raw[key]
	if !ok || string(raw) == "null" {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	return v, true
}
