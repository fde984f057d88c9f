package main

import (
	"context"
	"io"
	"log"
	"os"

	"clicksync/internal/clickup"
	"clicksync/internal/config"
	"clicksync/internal/extract"
	"clicksync/internal/journal"
	"clicksync/internal/logging"
	"clicksync/internal/metrics"
	"clicksync/internal/syncer"
	"clicksync/internal/warehouse"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}
	logger := baseLogger.With().Str("component", "sync-main").Logger()

	metrics.Register()
	if cfg.Monitoring.PrometheusEnabled {
		metrics.Serve(cfg.Monitoring.PrometheusPort)
		logger.Info().Int("port", cfg.Monitoring.PrometheusPort).Msg("metrics listener started")
	}

	// A run cannot be aborted once started; no signal handling on purpose.
	ctx := context.Background()

	var jr *journal.Journal
	if cfg.Journal.Enabled {
		jr, err = journal.Open(cfg.Journal.Path, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("journal init failed")
			return err
		}
		defer jr.Close()
	}

	client := clickup.NewClient(cfg.ClickUp, baseLogger)

	wh, err := warehouse.New(ctx, cfg.BigQuery, baseLogger)
	if err != nil {
		logger.Error().Err(err).Msg("BigQuery client init failed")
		return err
	}
	defer wh.Close()

	extractor := extract.New(client, baseLogger)
	s := syncer.New(client, extractor, wh, jr, cfg.ClickUp.WorkspaceID, baseLogger)

	return s.Run(ctx)
}
