package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ksred/corporate-actions-api/internal/resolver"
	"github.com/ksred/corporate-actions-api/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// stubResolver serves a fixed name-to-security mapping without HTTP.
type stubResolver struct {
	securities map[string]*resolver.ResolvedSecurity
}

func (r *stubResolver) Resolve(_ context.Context, companyName, _ string) (*resolver.ResolvedSecurity, error) {
	return r.securities[companyName], nil
}

func (r *stubResolver) ResolveBatch(_ context.Context, companyNames []string, _ string) map[string]*resolver.ResolvedSecurity {
	results := make(map[string]*resolver.ResolvedSecurity)
	for _, name := range companyNames {
		if sec, ok := r.securities[name]; ok && sec != nil {
			results[name] = sec
		}
	}
	return results
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&types.CorporateAction{}))
	return db
}

func writeStagedFile(t *testing.T, dir, name, payload string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(payload), 0o644))
}

const bonusPayload = `{
	"head": [["Company Name", "ISIN", "Security Type", "Announcement Date", "Ex Date", "Ratio Num", "Ratio Den"]],
	"data": [
		["Acme Ltd", "INE000A01001", "Equity", "1 Oct 2025", "20 Oct 2025", "2", "1"],
		["Beta Industries", "INE000B01002", "Equity", "2 Oct 2025", "21 Oct 2025", "1", "1"]
	]
}`

func bonusService(db *gorm.DB) *Service {
	return NewService(db, &stubResolver{
		securities: map[string]*resolver.ResolvedSecurity{
			"Acme Ltd": {SecurityID: 123, Symbol: "ACME", MarketCode: types.MarketNSE},
		},
	})
}

func TestProcessAllFilesBonusDataset(t *testing.T) {
	db := testDB(t)
	staging := t.TempDir()
	writeStagedFile(t, staging, "bonus_nse.json", bonusPayload)

	counts, err := bonusService(db).ProcessAllFiles(context.Background(), staging)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"bonus_nse_NSE": 2}, counts)

	var rec types.CorporateAction
	require.NoError(t, db.Where("company_name = ?", "Acme Ltd").First(&rec).Error)

	assert.Equal(t, types.ActionBonus, rec.ActionType)
	assert.Equal(t, types.MarketNSE, rec.MarketCode)
	require.NotNil(t, rec.ExDate)
	assert.Equal(t, "2025-10-20", *rec.ExDate)
	require.NotNil(t, rec.RatioNumerator)
	assert.Equal(t, 2.0, *rec.RatioNumerator)
	require.NotNil(t, rec.RatioDenominator)
	assert.Equal(t, 1.0, *rec.RatioDenominator)
	require.NotNil(t, rec.SecurityID)
	assert.Equal(t, int64(123), *rec.SecurityID)

	// Beta Industries had no resolution; the record still lands without identifiers.
	var beta types.CorporateAction
	require.NoError(t, db.Where("company_name = ?", "Beta Industries").First(&beta).Error)
	assert.Nil(t, beta.SecurityID)
}

func TestProcessAllFilesIsIdempotent(t *testing.T) {
	db := testDB(t)
	staging := t.TempDir()
	writeStagedFile(t, staging, "bonus_nse.json", bonusPayload)

	svc := bonusService(db)

	counts, err := svc.ProcessAllFiles(context.Background(), staging)
	require.NoError(t, err)
	assert.Equal(t, 2, counts["bonus_nse_NSE"])

	// Second pass over the same file inserts nothing.
	counts, err = svc.ProcessAllFiles(context.Background(), staging)
	require.NoError(t, err)
	assert.Equal(t, 0, counts["bonus_nse_NSE"])

	var total int64
	require.NoError(t, db.Model(&types.CorporateAction{}).Count(&total).Error)
	assert.Equal(t, int64(2), total)
}

func TestProcessFileClassifiesSkippedRows(t *testing.T) {
	db := testDB(t)
	staging := t.TempDir()
	writeStagedFile(t, staging, "bonus_nse.json", `{
		"head": [[]],
		"data": [
			["Acme Ltd", "INE000A01001", "Equity", "1 Oct 2025", "20 Oct 2025", "2", "1"],
			["Too Short"],
			["", "INE000C01003", "Equity", "1 Oct 2025", "20 Oct 2025", "2", "1"],
			["Bad Numbers Ltd", "INE000D01004", "Equity", "1 Oct 2025", "20 Oct 2025", "two", "1"]
		]
	}`)

	count, skips, err := bonusService(db).processFile(
		context.Background(), filepath.Join(staging, "bonus_nse.json"), bonusSpec, types.MarketNSE)
	require.NoError(t, err)

	assert.Equal(t, 1, count)
	// A full-width row with an empty company cell is not a short row.
	assert.Equal(t, skipStats{
		SkipShortRow:  1,
		SkipNoCompany: 1,
		SkipBadNumber: 1,
	}, skips)
}

func TestProcessAllFilesSkipsUnparseableFile(t *testing.T) {
	db := testDB(t)
	staging := t.TempDir()
	writeStagedFile(t, staging, "bonus_nse.json", `this is not json`)
	writeStagedFile(t, staging, "dividend_nse.json", `{
		"head": [[]],
		"data": [["Acme Ltd", "1 Oct 2025", "20 Oct 2025", "12.5", "Final", "22 Oct 2025"]]
	}`)

	counts, err := bonusService(db).ProcessAllFiles(context.Background(), staging)
	require.NoError(t, err)

	// The broken bonus file is skipped, the dividend file still processes.
	assert.Equal(t, 0, counts["bonus_nse_NSE"])
	assert.Equal(t, 1, counts["dividend_nse_NSE"])
}

func TestProcessAllFilesIgnoresUnknownFiles(t *testing.T) {
	db := testDB(t)
	staging := t.TempDir()
	writeStagedFile(t, staging, "notes.txt", "not a dataset")
	writeStagedFile(t, staging, "unrelated.json", `{"head":[[]],"data":[]}`)

	counts, err := bonusService(db).ProcessAllFiles(context.Background(), staging)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestProcessAllFilesDeduplicatesWithinFile(t *testing.T) {
	db := testDB(t)
	staging := t.TempDir()
	writeStagedFile(t, staging, "bonus_nse.json", `{
		"head": [[]],
		"data": [
			["Acme Ltd", "INE000A01001", "Equity", "1 Oct 2025", "20 Oct 2025", "2", "1"],
			["Acme Ltd", "INE000A01001", "Equity", "1 Oct 2025", "20 Oct 2025", "2", "1"]
		]
	}`)

	counts, err := bonusService(db).ProcessAllFiles(context.Background(), staging)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["bonus_nse_NSE"])
}

func TestProcessAllFilesMissingStagingDir(t *testing.T) {
	db := testDB(t)

	_, err := bonusService(db).ProcessAllFiles(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestProcessAllFilesNumericCells(t *testing.T) {
	db := testDB(t)
	staging := t.TempDir()
	// Ratio columns arrive as JSON numbers in some deliveries.
	writeStagedFile(t, staging, "bonus_bse.json", `{
		"head": [[]],
		"data": [["Acme Ltd", "INE000A01001", "Equity", "1 Oct 2025", "20 Oct 2025", 2, 1]]
	}`)

	counts, err := bonusService(db).ProcessAllFiles(context.Background(), staging)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["bonus_bse_BSE"])

	var rec types.CorporateAction
	require.NoError(t, db.First(&rec).Error)
	assert.Equal(t, types.MarketBSE, rec.MarketCode)
	require.NotNil(t, rec.RatioNumerator)
	assert.Equal(t, 2.0, *rec.RatioNumerator)
}
