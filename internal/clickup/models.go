package clickup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// CustomFieldDefinition is a workspace-level custom field declaration.
// Type drives the destination column type; unknown kinds fall back to
// string downstream.
type CustomFieldDefinition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// CustomTaskType is workspace metadata; retrieved alongside custom fields
// but not consumed beyond logging.
type CustomTaskType struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Space struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type List struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TaskStatus struct {
	Status string `json:"status"`
	Type   string `json:"type"`
}

// TaskPriority is nullable in the API; ID carries the numeric level as a
// quoted string ("1" = urgent .. "4" = low).
type TaskPriority struct {
	ID       string `json:"id"`
	Priority string `json:"priority"`
}

// Level returns the numeric priority, 0 when unparsable.
func (p *TaskPriority) Level() int64 {
	if p == nil {
		return 0
	}
	n, err := strconv.ParseInt(p.ID, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// CustomFieldValue is the per-task value of a custom field. Value stays
// untyped: the API supplies strings, numbers, lists or null depending on
// the field kind, and the value is loaded verbatim.
type CustomFieldValue struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// Task is the typed shape of a ClickUp task. Optional keys decode to nil
// pointers here, once, rather than being re-checked during extraction.
type Task struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	Status       TaskStatus         `json:"status"`
	Priority     *TaskPriority      `json:"priority"`
	DueDate      *Millis            `json:"due_date"`
	DateCreated  *Millis            `json:"date_created"`
	DateUpdated  *Millis            `json:"date_updated"`
	CustomFields []CustomFieldValue `json:"custom_fields"`
}

// Millis is a unix-millisecond timestamp. ClickUp encodes these as quoted
// strings, bare numbers, or null.
type Millis struct {
	time.Time
}

func (m *Millis) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) >= 2 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		data = []byte(s)
	}
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("parse millis timestamp %q: %w", data, err)
	}
	m.Time = time.UnixMilli(ms).UTC()
	return nil
}

func (m Millis) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Time.Format(time.RFC3339Nano))
}

// Envelope shapes of the list endpoints.
type customFieldsResponse struct {
	CustomFields []CustomFieldDefinition `json:"custom_fields"`
}

type customTaskTypesResponse struct {
	CustomTaskTypes []CustomTaskType `json:"custom_task_types"`
}

type spacesResponse struct {
	Spaces []Space `json:"spaces"`
}

type listsResponse struct {
	Lists []List `json:"lists"`
}

type tasksResponse struct {
	Tasks    []Task `json:"tasks"`
	LastPage *bool  `json:"last_page"`
}
