package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clicksync/internal/clickup"
)

type fakeSource struct {
	spaces   map[string][]clickup.Space
	lists    map[string][]clickup.List
	tasks    map[string][]clickup.Task
	listErr  map[string]error
	taskErr  map[string]error
	spaceErr error
}

func (f *fakeSource) Spaces(_ context.Context, workspaceID string) ([]clickup.Space, error) {
	if f.spaceErr != nil {
		return nil, f.spaceErr
	}
	return f.spaces[workspaceID], nil
}

func (f *fakeSource) Lists(_ context.Context, spaceID string) ([]clickup.List, error) {
	if err := f.listErr[spaceID]; err != nil {
		return nil, err
	}
	return f.lists[spaceID], nil
}

func (f *fakeSource) Tasks(_ context.Context, listID string) ([]clickup.Task, error) {
	if err := f.taskErr[listID]; err != nil {
		return nil, err
	}
	return f.tasks[listID], nil
}

func newExtractor(src Source) *Extractor {
	logger := zerolog.Nop()
	return New(src, &logger)
}

func millis(t time.Time) *clickup.Millis {
	return &clickup.Millis{Time: t}
}

func TestWorkspaceTasksFlattening(t *testing.T) {
	due := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	src := &fakeSource{
		spaces: map[string][]clickup.Space{"W": {{ID: "S1"}}},
		lists:  map[string][]clickup.List{"S1": {{ID: "L1"}}},
		tasks: map[string][]clickup.Task{
			"L1": {
				{
					ID:          "T2",
					Name:        "Ship it",
					Description: "release task",
					Status:      clickup.TaskStatus{Status: "open"},
					Priority:    &clickup.TaskPriority{ID: "1", Priority: "urgent"},
					DueDate:     millis(due),
					DateCreated: millis(created),
					CustomFields: []clickup.CustomFieldValue{
						{ID: "F1", Type: "number", Value: 4.5},
						{ID: "F2", Type: "text", Value: "alice"},
					},
				},
			},
		},
	}

	rows, err := newExtractor(src).WorkspaceTasks(context.Background(), "W")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "T2", row["id"])
	assert.Equal(t, "open", row["status"])
	assert.Equal(t, int64(1), row["priority"])
	assert.Equal(t, due, row["due_date"])
	assert.Equal(t, created, row["created_at"])
	assert.Equal(t, "S1", row["space_id"])
	assert.Equal(t, "L1", row["list_id"])

	// Custom-field values pass through verbatim.
	assert.Equal(t, 4.5, row["custom_field_F1"])
	assert.Equal(t, "alice", row["custom_field_F2"])

	// Absent optional attributes stay absent, not zero-valued.
	_, hasUpdated := row["updated_at"]
	assert.False(t, hasUpdated)
}

func TestWorkspaceTasksContextInjection(t *testing.T) {
	src := &fakeSource{
		spaces: map[string][]clickup.Space{"W": {{ID: "S1"}, {ID: "S2"}}},
		lists: map[string][]clickup.List{
			"S1": {{ID: "L1"}},
			"S2": {{ID: "L2"}, {ID: "L3"}},
		},
		tasks: map[string][]clickup.Task{
			"L1": {{ID: "A"}},
			"L2": {{ID: "B"}},
			"L3": {{ID: "C"}, {ID: "D"}},
		},
	}

	rows, err := newExtractor(src).WorkspaceTasks(context.Background(), "W")
	require.NoError(t, err)
	require.Len(t, rows, 4)

	byID := map[string]Row{}
	for _, row := range rows {
		byID[row["id"].(string)] = row
	}
	assert.Equal(t, "S1", byID["A"]["space_id"])
	assert.Equal(t, "L1", byID["A"]["list_id"])
	assert.Equal(t, "S2", byID["C"]["space_id"])
	assert.Equal(t, "L3", byID["D"]["list_id"])
}

func TestWorkspaceTasksEmptyWorkspace(t *testing.T) {
	src := &fakeSource{spaces: map[string][]clickup.Space{}}

	rows, err := newExtractor(src).WorkspaceTasks(context.Background(), "W")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWorkspaceTasksListFailureAbortsRun(t *testing.T) {
	src := &fakeSource{
		spaces: map[string][]clickup.Space{"W": {{ID: "S1"}, {ID: "S2"}}},
		lists: map[string][]clickup.List{
			"S1": {{ID: "L1"}},
		},
		tasks:   map[string][]clickup.Task{"L1": {{ID: "A"}}},
		listErr: map[string]error{"S2": errors.New("malformed response")},
	}

	rows, err := newExtractor(src).WorkspaceTasks(context.Background(), "W")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S2")
	// Nothing survives a partial failure.
	assert.Nil(t, rows)
}

func TestWorkspaceTasksTaskFailureAbortsRun(t *testing.T) {
	src := &fakeSource{
		spaces:  map[string][]clickup.Space{"W": {{ID: "S1"}}},
		lists:   map[string][]clickup.List{"S1": {{ID: "L1"}}},
		taskErr: map[string]error{"L1": errors.New("boom")},
	}

	_, err := newExtractor(src).WorkspaceTasks(context.Background(), "W")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "L1")
}

func TestFlattenNoCustomFields(t *testing.T) {
	row := flatten(clickup.Task{ID: "T1", Name: "bare"}, "S1", "L1")

	assert.Equal(t, "T1", row["id"])
	assert.Equal(t, "S1", row["space_id"])
	assert.Equal(t, "L1", row["list_id"])
	for key := range row {
		assert.NotContains(t, key, "custom_field_")
	}
}
