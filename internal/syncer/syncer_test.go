package syncer

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clicksync/internal/clickup"
	"clicksync/internal/extract"
	"clicksync/internal/schema"
)

type fakeFields struct {
	fields    []clickup.CustomFieldDefinition
	taskTypes []clickup.CustomTaskType
	fieldsErr error
}

func (f *fakeFields) CustomFields(context.Context, string) ([]clickup.CustomFieldDefinition, error) {
	return f.fields, f.fieldsErr
}

func (f *fakeFields) CustomTaskTypes(context.Context, string) ([]clickup.CustomTaskType, error) {
	return f.taskTypes, nil
}

type fakeTasks struct {
	rows []extract.Row
	err  error
}

func (f *fakeTasks) WorkspaceTasks(context.Context, string) ([]extract.Row, error) {
	return f.rows, f.err
}

type fakeWarehouse struct {
	ensuredSchema *schema.Descriptor
	ensureErr     error
	loadedRows    []extract.Row
	loadCalls     int
	loadErr       error
}

func (f *fakeWarehouse) EnsureTaskTable(_ context.Context, desc schema.Descriptor) error {
	f.ensuredSchema = &desc
	return f.ensureErr
}

func (f *fakeWarehouse) ReplaceTasks(_ context.Context, rows []extract.Row) error {
	f.loadCalls++
	f.loadedRows = rows
	return f.loadErr
}

func newSyncer(fields *fakeFields, tasks *fakeTasks, wh *fakeWarehouse) *Syncer {
	logger := zerolog.Nop()
	return New(fields, tasks, wh, nil, "W", &logger)
}

// Workspace with one space/list, two tasks, one number field; the derived
// schema gains a float column and both rows carry their containers.
func TestRunEndToEnd(t *testing.T) {
	fields := &fakeFields{
		fields: []clickup.CustomFieldDefinition{{ID: "F1", Name: "Estimate", Type: "number"}},
	}
	tasks := &fakeTasks{rows: []extract.Row{
		{"id": "T1", "space_id": "S1", "list_id": "L1"},
		{"id": "T2", "space_id": "S1", "list_id": "L1", "custom_field_F1": 4.5},
	}}
	wh := &fakeWarehouse{}

	err := newSyncer(fields, tasks, wh).Run(context.Background())
	require.NoError(t, err)

	require.NotNil(t, wh.ensuredSchema)
	columns := wh.ensuredSchema.Columns
	require.Len(t, columns, 11)
	assert.Equal(t, "custom_field_F1", columns[10].Name)
	assert.Equal(t, schema.TypeFloat, columns[10].Type)

	assert.Equal(t, 1, wh.loadCalls)
	require.Len(t, wh.loadedRows, 2)

	t1 := wh.loadedRows[0]
	_, hasF1 := t1["custom_field_F1"]
	assert.False(t, hasF1)
	assert.Equal(t, "S1", t1["space_id"])
	assert.Equal(t, "L1", t1["list_id"])

	t2 := wh.loadedRows[1]
	assert.Equal(t, 4.5, t2["custom_field_F1"])
}

// Zero spaces: the table still gets ensured, but no load call is issued.
func TestRunEmptyWorkspaceSkipsLoad(t *testing.T) {
	fields := &fakeFields{}
	tasks := &fakeTasks{rows: nil}
	wh := &fakeWarehouse{}

	err := newSyncer(fields, tasks, wh).Run(context.Background())
	require.NoError(t, err)

	assert.NotNil(t, wh.ensuredSchema)
	assert.Equal(t, 0, wh.loadCalls)
}

// One malformed stage fails the whole run; nothing reaches the warehouse.
func TestRunExtractionFailureLoadsNothing(t *testing.T) {
	fields := &fakeFields{}
	tasks := &fakeTasks{err: errors.New("fetch lists for space S2: malformed response")}
	wh := &fakeWarehouse{}

	err := newSyncer(fields, tasks, wh).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S2")
	assert.Equal(t, 0, wh.loadCalls)
}

func TestRunMetadataFailureAbortsBeforeTableCreate(t *testing.T) {
	fields := &fakeFields{fieldsErr: errors.New("401 token invalid")}
	tasks := &fakeTasks{}
	wh := &fakeWarehouse{}

	err := newSyncer(fields, tasks, wh).Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, wh.ensuredSchema)
	assert.Equal(t, 0, wh.loadCalls)
}

func TestRunEnsureTableFailurePropagates(t *testing.T) {
	fields := &fakeFields{}
	tasks := &fakeTasks{rows: []extract.Row{{"id": "T1"}}}
	wh := &fakeWarehouse{ensureErr: errors.New("dataset missing")}

	err := newSyncer(fields, tasks, wh).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, wh.loadCalls)
}

func TestRunLoadFailurePropagates(t *testing.T) {
	fields := &fakeFields{}
	tasks := &fakeTasks{rows: []extract.Row{{"id": "T1"}}}
	wh := &fakeWarehouse{loadErr: errors.New("schema mismatch")}

	err := newSyncer(fields, tasks, wh).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema mismatch")
}
