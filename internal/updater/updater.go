// Package updater orchestrates a full ingestion run: it fetches the seven
// batch datasets from the provider, stages the detailed data files, processes
// the staging area into the store and finally prunes records past the
// retention horizon.
package updater

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ksred/corporate-actions-api/internal/batch"
	"github.com/ksred/corporate-actions-api/internal/ingest"
	"github.com/ksred/corporate-actions-api/internal/sweeper"
	"github.com/rs/zerolog/log"
)

// dataset binds one provider batch descriptor to the canonical staged name the
// ingestion orchestrator matches on.
type dataset struct {
	batchFile   string
	description string
	targetName  string
}

var datasets = []dataset{
	{batchFile: "bonus_nse.bt", description: "NSE bonus issues", targetName: "bonus_nse.json"},
	{batchFile: "bonus_bse.bt", description: "BSE bonus issues", targetName: "bonus_bse.json"},
	{batchFile: "dividend_nse.bt", description: "NSE dividends", targetName: "dividend_nse.json"},
	{batchFile: "dividend_bse.bt", description: "BSE dividends", targetName: "dividend_bse.json"},
	{batchFile: "splits_nse.bt", description: "NSE stock splits", targetName: "splits_nse.json"},
	{batchFile: "splits_bse.bt", description: "BSE stock splits", targetName: "splits_bse.json"},
	{batchFile: "rights_nse.bt", description: "NSE rights issues", targetName: "rights_nse.json"},
}

// Runner wires the batch client, the ingestion service and the sweeper into
// one sequential run. Datasets are fetched and processed one at a time; there
// is no parallel fan-out.
type Runner struct {
	batch        *batch.Client
	ingest       *ingest.Service
	sweeper      *sweeper.Service
	batchDir     string
	stagingDir   string
	pollInterval time.Duration
	pollTimeout  time.Duration
}

func NewRunner(
	batchClient *batch.Client,
	ingestService *ingest.Service,
	sweeperService *sweeper.Service,
	batchDir, stagingDir string,
	pollInterval, pollTimeout time.Duration,
) *Runner {
	return &Runner{
		batch:        batchClient,
		ingest:       ingestService,
		sweeper:      sweeperService,
		batchDir:     batchDir,
		stagingDir:   stagingDir,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
	}
}

// FetchAll submits every batch descriptor and stages the delivered detail
// files. Individual fetch failures are logged and do not stop the remaining
// datasets; the number of successfully staged datasets is returned.
func (r *Runner) FetchAll(ctx context.Context) int {
	logger := log.With().Str("service", "updater").Logger()

	fetched := 0
	for idx, ds := range datasets {
		dsLogger := logger.With().
			Str("dataset", ds.description).
			Int("index", idx+1).
			Int("total", len(datasets)).
			Logger()

		dsLogger.Info().Msg("fetching dataset")

		token, err := r.batch.Submit(ctx, filepath.Join(r.batchDir, ds.batchFile))
		if err != nil {
			dsLogger.Error().Err(err).Msg("batch submission failed")
			continue
		}

		files, err := r.batch.AwaitResult(ctx, token, r.pollInterval, r.pollTimeout)
		if err != nil {
			dsLogger.Error().Err(err).Msg("batch result failed")
			continue
		}

		if err := r.stageDetailFile(files, ds.targetName); err != nil {
			dsLogger.Warn().Err(err).Int("files", len(files)).Msg("no detailed data file delivered")
			continue
		}

		dsLogger.Info().Int("files", len(files)).Str("staged_as", ds.targetName).Msg("dataset staged")
		fetched++
	}

	logger.Info().Int("fetched", fetched).Int("total", len(datasets)).Msg("fetch pass complete")
	return fetched
}

// stageDetailFile picks the delivered file that carries the detailed rows
// (summary files have two columns or fewer) and copies it to the canonical
// staged name the orchestrator matches on.
func (r *Runner) stageDetailFile(files []string, targetName string) error {
	for _, path := range files {
		if !strings.HasSuffix(strings.ToLower(path), ".json") {
			continue
		}

		payload, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var doc struct {
			Data [][]any `json:"data"`
		}
		if err := json.Unmarshal(payload, &doc); err != nil {
			continue
		}
		if len(doc.Data) == 0 || len(doc.Data[0]) <= 2 {
			continue
		}

		return copyFile(path, filepath.Join(r.stagingDir, targetName))
	}

	return errors.New("no detailed data file in batch result")
}

// ErrNoDatasets is returned when not a single dataset could be fetched from
// the provider. The run stops there: nothing is processed and, in particular,
// no retention sweep happens, so a provider outage never deletes stored
// records on a day nothing new arrived.
var ErrNoDatasets = errors.New("no datasets could be fetched from provider")

// Run performs the full sequential pipeline and returns the per-dataset insert
// counts and the number of records swept. Empty counts from a successful fetch
// signal "nothing new", not failure; a fetch pass that delivers nothing at all
// aborts the run with ErrNoDatasets.
func (r *Runner) Run(ctx context.Context) (map[string]int, int64, error) {
	logger := log.With().Str("service", "updater").Logger()
	start := time.Now()

	if fetched := r.FetchAll(ctx); fetched == 0 {
		logger.Error().Msg("no datasets fetched, aborting run")
		return nil, 0, ErrNoDatasets
	}

	counts, err := r.ingest.ProcessAllFiles(ctx, r.stagingDir)
	if err != nil {
		return nil, 0, err
	}

	total := 0
	for _, c := range counts {
		total += c
	}

	swept, err := r.sweeper.Sweep(time.Now())
	if err != nil {
		// The new records are already committed; report the sweep failure
		// without discarding the ingestion summary.
		logger.Error().Err(err).Msg("retention sweep failed after ingestion")
	}

	logger.Info().
		Int("inserted", total).
		Int64("swept", swept).
		Dur("elapsed", time.Since(start)).
		Msg("update run complete")

	return counts, swept, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
