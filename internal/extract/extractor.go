// Package extract walks the ClickUp hierarchy and flattens tasks into
// destination rows.
package extract

import (
	"context"
	"fmt"

	"clicksync/internal/clickup"
	"clicksync/internal/schema"

	"github.com/rs/zerolog"
)

// Source is the slice of the ClickUp API the extractor needs.
type Source interface {
	Spaces(ctx context.Context, workspaceID string) ([]clickup.Space, error)
	Lists(ctx context.Context, spaceID string) ([]clickup.List, error)
	Tasks(ctx context.Context, listID string) ([]clickup.Task, error)
}

// Row is a flattened task record keyed by destination column name.
type Row map[string]any

type Extractor struct {
	source Source
	logger zerolog.Logger
}

func New(source Source, logger *zerolog.Logger) *Extractor {
	return &Extractor{
		source: source,
		logger: logger.With().Str("component", "extract").Logger(),
	}
}

// WorkspaceTasks returns every task currently visible under the
// workspace, flattened and annotated with its containing space and list.
// Tasks are fetched once per containing list, with no deduplication. Any
// failure aborts the whole extraction; there is no per-resource
// isolation.
func (e *Extractor) WorkspaceTasks(ctx context.Context, workspaceID string) ([]Row, error) {
	spaces, err := e.source.Spaces(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("fetch spaces for workspace %s: %w", workspaceID, err)
	}

	var rows []Row
	for _, space := range spaces {
		lists, err := e.source.Lists(ctx, space.ID)
		if err != nil {
			return nil, fmt.Errorf("fetch lists for space %s: %w", space.ID, err)
		}

		for _, list := range lists {
			tasks, err := e.source.Tasks(ctx, list.ID)
			if err != nil {
				return nil, fmt.Errorf("fetch tasks for list %s: %w", list.ID, err)
			}

			for _, task := range tasks {
				rows = append(rows, flatten(task, space.ID, list.ID))
			}

			e.logger.Debug().
				Str("space_id", space.ID).
				Str("list_id", list.ID).
				Int("tasks", len(tasks)).
				Msg("list extracted")
		}
	}

	return rows, nil
}

// flatten maps a task to its destination row. Custom-field values are
// copied verbatim under custom_field_<id>; no type coercion happens here.
func flatten(task clickup.Task, spaceID, listID string) Row {
	row := Row{
		schema.ColID:          task.ID,
		schema.ColName:        task.Name,
		schema.ColDescription: task.Description,
		schema.ColStatus:      task.Status.Status,
		schema.ColSpaceID:     spaceID,
		schema.ColListID:      listID,
	}

	if task.Priority != nil {
		row[schema.ColPriority] = task.Priority.Level()
	}
	if task.DueDate != nil {
		row[schema.ColDueDate] = task.DueDate.Time
	}
	if task.DateCreated != nil {
		row[schema.ColCreatedAt] = task.DateCreated.Time
	}
	if task.DateUpdated != nil {
		row[schema.ColUpdatedAt] = task.DateUpdated.Time
	}

	for _, field := range task.CustomFields {
		row[schema.FieldColumn(field.ID)] = field.Value
	}

	return row
}
