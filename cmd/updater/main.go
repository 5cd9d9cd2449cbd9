package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/ksred/corporate-actions-api/internal/batch"
	"github.com/ksred/corporate-actions-api/internal/config"
	"github.com/ksred/corporate-actions-api/internal/database"
	"github.com/ksred/corporate-actions-api/internal/ingest"
	"github.com/ksred/corporate-actions-api/internal/resolver"
	"github.com/ksred/corporate-actions-api/internal/sweeper"
	"github.com/ksred/corporate-actions-api/internal/updater"
)

// init mirrors the server logging setup so cron output stays readable.
func init() {
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main runs one full update pass: fetch all datasets, process the staging
// area, sweep expired records. Designed to run from cron; a run that inserts
// nothing still exits zero as long as the pipeline itself succeeded.
//
// With -fix-dates it instead runs the one-off date repair pass over stored
// records and exits.
func main() {
	fixDates := flag.Bool("fix-dates", false, "repair non-canonical date formats in stored records and exit")
	flag.Parse()

	cfg := config.Load()

	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	if *fixDates {
		repaired, err := ingest.RepairDateFormats(db)
		if err != nil {
			zlog.Fatal().Err(err).Msg("date repair failed")
		}
		zlog.Info().Int("repaired", repaired).Msg("date repair complete")
		return
	}

	if cfg.ProwessAPIKey == "" {
		zlog.Fatal().Msg("PROWESS_API_KEY is required for an update run")
	}

	resolverService := resolver.NewService(cfg.AlfagoBaseURL, cfg.ResolveDelay, cfg.ResolveTimeout)
	ingestService := ingest.NewService(db, resolverService)
	sweeperService := sweeper.NewService(db, cfg.RetentionDays)
	batchClient := batch.NewClient(cfg.ProwessAPIKey, cfg.SendBatchURL, cfg.GetBatchURL, cfg.StagingDir)

	runner := updater.NewRunner(
		batchClient, ingestService, sweeperService,
		cfg.BatchDir, cfg.StagingDir,
		cfg.PollInterval, cfg.PollTimeout,
	)

	counts, swept, err := runner.Run(context.Background())
	if err != nil {
		zlog.Fatal().Err(err).Msg("update run failed")
	}

	total := 0
	for _, c := range counts {
		total += c
	}
	zlog.Info().
		Int("inserted", total).
		Int64("swept", swept).
		Msg("update run finished")
}
