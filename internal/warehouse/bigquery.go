// Package warehouse is the BigQuery side of the sync: table creation and
// the full-replace load.
package warehouse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"clicksync/internal/config"
	"clicksync/internal/extract"
	"clicksync/internal/schema"
)

type BigQuery struct {
	client  *bigquery.Client
	dataset string
	table   string
	logger  zerolog.Logger
}

// New builds a BigQuery client. A service-account credentials file is
// turned into a JWT token source; without one, application default
// credentials apply.
func New(ctx context.Context, cfg config.BigQueryConfig, logger *zerolog.Logger) (*BigQuery, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		credentialsJSON, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read credentials file: %w", err)
		}
		jwtConfig, err := google.JWTConfigFromJSON(credentialsJSON, bigquery.Scope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse credentials: %w", err)
		}
		opts = append(opts, option.WithTokenSource(jwtConfig.TokenSource(ctx)))
	}

	client, err := bigquery.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create BigQuery client: %w", err)
	}
	if cfg.Location != "" {
		client.Location = cfg.Location
	}

	return &BigQuery{
		client:  client,
		dataset: cfg.Dataset,
		table:   cfg.Table,
		logger:  logger.With().Str("component", "warehouse").Logger(),
	}, nil
}

func (b *BigQuery) Close() error {
	return b.client.Close()
}

// EnsureTaskTable creates the tasks table with the given schema if it
// does not exist yet. An existing table is left untouched, whatever its
// schema; the layout is never reconciled against a changed field set.
func (b *BigQuery) EnsureTaskTable(ctx context.Context, desc schema.Descriptor) error {
	table := b.client.Dataset(b.dataset).Table(b.table)
	err := table.Create(ctx, &bigquery.TableMetadata{Schema: desc.BigQuery()})
	if err == nil {
		b.logger.Info().Str("table", b.table).Int("columns", len(desc.Columns)).Msg("table created")
		return nil
	}
	if isAlreadyExists(err) {
		b.logger.Debug().Str("table", b.table).Msg("table already exists")
		return nil
	}
	return fmt.Errorf("create table %s.%s: %w", b.dataset, b.table, err)
}

// ReplaceTasks replaces the whole table content with the given rows via a
// truncate-disposition load job and blocks until BigQuery confirms it.
// Zero rows issue no job at all.
func (b *BigQuery) ReplaceTasks(ctx context.Context, rows []extract.Row) error {
	if len(rows) == 0 {
		return nil
	}

	payload, err := encodeRows(rows)
	if err != nil {
		return err
	}

	source := bigquery.NewReaderSource(bytes.NewReader(payload))
	source.SourceFormat = bigquery.JSON

	loader := b.client.Dataset(b.dataset).Table(b.table).LoaderFrom(source)
	loader.WriteDisposition = bigquery.WriteTruncate

	started := time.Now()
	job, err := loader.Run(ctx)
	if err != nil {
		return fmt.Errorf("start load job: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("wait for load job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("load job failed: %w", err)
	}

	b.logger.Info().
		Int("rows", len(rows)).
		Dur("took", time.Since(started)).
		Msg("load job completed")
	return nil
}

// encodeRows renders rows as newline-delimited JSON, the wire format of a
// JSON load job. time.Time values serialize as RFC 3339, which BigQuery
// accepts for TIMESTAMP columns.
func encodeRows(rows []extract.Row) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, row := range rows {
		if err := enc.Encode(row); err != nil {
			return nil, fmt.Errorf("encode row %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

func isAlreadyExists(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict
}
