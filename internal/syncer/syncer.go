// Package syncer drives one sync run end to end: schema from workspace
// metadata, table creation, extraction, full-replace load.
package syncer

import (
	"context"
	"fmt"
	"time"

	"clicksync/internal/clickup"
	"clicksync/internal/extract"
	"clicksync/internal/journal"
	"clicksync/internal/metrics"
	"clicksync/internal/schema"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FieldSource supplies workspace-level metadata for the schema build.
type FieldSource interface {
	CustomFields(ctx context.Context, workspaceID string) ([]clickup.CustomFieldDefinition, error)
	CustomTaskTypes(ctx context.Context, workspaceID string) ([]clickup.CustomTaskType, error)
}

// TaskSource produces the flattened rows for a workspace.
type TaskSource interface {
	WorkspaceTasks(ctx context.Context, workspaceID string) ([]extract.Row, error)
}

// Warehouse is the destination side consumed by a run.
type Warehouse interface {
	EnsureTaskTable(ctx context.Context, desc schema.Descriptor) error
	ReplaceTasks(ctx context.Context, rows []extract.Row) error
}

type Syncer struct {
	fields      FieldSource
	tasks       TaskSource
	warehouse   Warehouse
	journal     *journal.Journal // nil when disabled
	workspaceID string
	logger      zerolog.Logger
}

func New(fields FieldSource, tasks TaskSource, wh Warehouse, jr *journal.Journal, workspaceID string, logger *zerolog.Logger) *Syncer {
	return &Syncer{
		fields:      fields,
		tasks:       tasks,
		warehouse:   wh,
		journal:     jr,
		workspaceID: workspaceID,
		logger:      logger.With().Str("component", "syncer").Logger(),
	}
}

// Run performs one sync. Every step is sequential and blocking; the
// first failure aborts the run and is returned after being journaled.
// Rows fetched before a failure are discarded, never partially loaded.
func (s *Syncer) Run(ctx context.Context) error {
	runID := uuid.NewString()
	logger := s.logger.With().Str("run_id", runID).Logger()
	started := time.Now()

	logger.Info().Str("workspace_id", s.workspaceID).Msg("starting ClickUp to BigQuery sync")
	s.journalBegin(ctx, runID, &logger)

	loaded, err := s.run(ctx, &logger)
	if err != nil {
		s.journalFail(ctx, runID, err, &logger)
		metrics.ObserveRun("failed", time.Since(started))
		logger.Error().Err(err).Msg("sync failed")
		return err
	}

	s.journalFinish(ctx, runID, loaded, &logger)
	metrics.ObserveRun("completed", time.Since(started))
	metrics.AddTasksLoaded(loaded)
	logger.Info().Int("tasks", loaded).Dur("took", time.Since(started)).Msg("sync completed successfully")
	return nil
}

func (s *Syncer) run(ctx context.Context, logger *zerolog.Logger) (int, error) {
	fields, err := s.fields.CustomFields(ctx, s.workspaceID)
	if err != nil {
		return 0, fmt.Errorf("fetch custom fields: %w", err)
	}

	taskTypes, err := s.fields.CustomTaskTypes(ctx, s.workspaceID)
	if err != nil {
		return 0, fmt.Errorf("fetch custom task types: %w", err)
	}
	logger.Debug().
		Int("custom_fields", len(fields)).
		Int("custom_task_types", len(taskTypes)).
		Msg("workspace metadata fetched")

	desc := schema.ForTasks(fields)
	if err := s.warehouse.EnsureTaskTable(ctx, desc); err != nil {
		return 0, err
	}

	rows, err := s.tasks.WorkspaceTasks(ctx, s.workspaceID)
	if err != nil {
		return 0, err
	}

	if len(rows) == 0 {
		logger.Info().Msg("no tasks extracted, load skipped")
		return 0, nil
	}

	if err := s.warehouse.ReplaceTasks(ctx, rows); err != nil {
		return 0, err
	}
	logger.Info().Int("tasks", len(rows)).Msg("loaded tasks to BigQuery")
	return len(rows), nil
}

// Journal writes never fail a sync; they only log.

func (s *Syncer) journalBegin(ctx context.Context, runID string, logger *zerolog.Logger) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Begin(ctx, runID, s.workspaceID); err != nil {
		logger.Warn().Err(err).Msg("journal begin failed")
	}
}

func (s *Syncer) journalFinish(ctx context.Context, runID string, loaded int, logger *zerolog.Logger) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Finish(ctx, runID, loaded); err != nil {
		logger.Warn().Err(err).Msg("journal finish failed")
	}
}

func (s *Syncer) journalFail(ctx context.Context, runID string, cause error, logger *zerolog.Logger) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Fail(ctx, runID, cause); err != nil {
		logger.Warn().Err(err).Msg("journal fail-mark failed")
	}
}
