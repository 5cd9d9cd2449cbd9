package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/ksred/corporate-actions-api/internal/resolver"
	"github.com/ksred/corporate-actions-api/internal/types"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// fileHandler binds a staged-file name pattern to its dataset descriptor and
// market code.
type fileHandler struct {
	pattern string
	spec    datasetSpec
	market  string
}

// fileHandlers are the seven known (dataset, market) pairs. Rights issues are
// only published for NSE.
var fileHandlers = []fileHandler{
	{pattern: "bonus_nse", spec: bonusSpec, market: types.MarketNSE},
	{pattern: "bonus_bse", spec: bonusSpec, market: types.MarketBSE},
	{pattern: "dividend_nse", spec: dividendSpec, market: types.MarketNSE},
	{pattern: "dividend_bse", spec: dividendSpec, market: types.MarketBSE},
	{pattern: "splits_nse", spec: splitSpec, market: types.MarketNSE},
	{pattern: "splits_bse", spec: splitSpec, market: types.MarketBSE},
	{pattern: "rights_nse", spec: rightsSpec, market: types.MarketNSE},
}

// Service normalizes staged dataset files into corporate action records and
// persists them.
type Service struct {
	db       *Database
	resolver resolver.Resolver
}

// NewService creates an ingestion service over the given database connection
// and identifier resolver.
func NewService(gormDB *gorm.DB, r resolver.Resolver) *Service {
	return &Service{
		db:       NewDatabase(gormDB),
		resolver: r,
	}
}

// ProcessAllFiles walks the staging directory and dispatches every file whose
// name matches a known dataset pattern to its normalizer. A file that fails to
// parse is skipped; other files still process. The returned map carries the
// inserted count per dataset and market; an empty map means nothing was
// processed, which is not an error.
func (s *Service) ProcessAllFiles(ctx context.Context, stagingDir string) (map[string]int, error) {
	logger := log.With().
		Str("service", "ingest").
		Str("staging_dir", stagingDir).
		Logger()

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		return nil, err
	}

	stats := make(map[string]int)
	for _, handler := range fileHandlers {
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasSuffix(strings.ToLower(name), ".json") {
				continue
			}
			if !strings.Contains(strings.ToLower(name), handler.pattern) {
				continue
			}

			path := filepath.Join(stagingDir, name)
			count, _, err := s.processFile(ctx, path, handler.spec, handler.market)
			if err != nil {
				logger.Error().Err(err).Str("file", name).Msg("skipping unparseable file")
				continue
			}

			key := handler.pattern + "_" + handler.market
			stats[key] += count
		}
	}

	return stats, nil
}

// processFile normalizes one staged dataset file: it batch-resolves the
// distinct company names, maps each raw row through the dataset descriptor,
// drops rows already stored for the same (company, action, market, ex-date)
// and commits the remainder in a single transaction. It returns the inserted
// count and the per-reason skip statistics. Row-level problems skip the row;
// only file-level parse errors and store failures are returned to the caller.
func (s *Service) processFile(ctx context.Context, path string, spec datasetSpec, market string) (int, skipStats, error) {
	logger := log.With().
		Str("service", "ingest").
		Str("action_type", spec.actionType).
		Str("market", market).
		Str("file", filepath.Base(path)).
		Logger()

	logger.Info().Msg("processing dataset file")

	payload, err := os.ReadFile(path)
	if err != nil {
		return 0, nil, err
	}

	raw, err := parseRawFile(payload)
	if err != nil {
		return 0, nil, err
	}

	rows := make([][]string, 0, len(raw.Data))
	for _, r := range raw.Data {
		rows = append(rows, stringRow(r))
	}

	// Resolve every distinct company once before the row pass.
	secMap := s.resolver.ResolveBatch(ctx, uniqueCompanies(rows), market)

	var (
		batch   []*types.CorporateAction
		skips   = make(skipStats)
		dupes   int
		pending = make(map[string]struct{})
	)

	for _, row := range rows {
		if len(row) < spec.minColumns {
			skips[SkipShortRow]++
			logger.Warn().Int("columns", len(row)).Msg("skipping short row")
			continue
		}
		if row[0] == "" {
			skips[SkipNoCompany]++
			logger.Warn().Msg("skipping row without company name")
			continue
		}

		rec, rerr := spec.normalize(row, market, secMap[row[0]])
		if rerr != nil {
			skips[rerr.Reason]++
			logger.Warn().Str("reason", string(rerr.Reason)).Str("detail", rerr.Detail).Msg("skipping row")
			continue
		}

		exists, err := s.db.Exists(rec.CompanyName, rec.ActionType, rec.MarketCode, rec.ExDate)
		if err != nil {
			return 0, nil, err
		}
		if exists {
			dupes++
			continue
		}

		// Guard against the same row appearing twice within one file, which
		// would otherwise fail the whole transaction on the unique key.
		key := dedupKey(rec)
		if _, seen := pending[key]; seen {
			dupes++
			continue
		}
		pending[key] = struct{}{}

		batch = append(batch, rec)
	}

	if err := s.db.InsertActions(batch); err != nil {
		return 0, nil, err
	}

	logger.Info().
		Int("inserted", len(batch)).
		Int("duplicates", dupes).
		Int("skipped_short", skips[SkipShortRow]).
		Int("skipped_no_company", skips[SkipNoCompany]).
		Int("skipped_bad_number", skips[SkipBadNumber]).
		Msg("dataset file processed")

	return len(batch), skips, nil
}

func uniqueCompanies(rows [][]string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, row := range rows {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		if _, ok := seen[row[0]]; ok {
			continue
		}
		seen[row[0]] = struct{}{}
		names = append(names, row[0])
	}
	return names
}

func dedupKey(rec *types.CorporateAction) string {
	exDate := ""
	if rec.ExDate != nil {
		exDate = *rec.ExDate
	}
	return rec.CompanyName + "|" + rec.ActionType + "|" + rec.MarketCode + "|" + exDate
}
