package ingest

import (
	"testing"

	"github.com/ksred/corporate-actions-api/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestRepairDate(t *testing.T) {
	got := repairDate("20 Oct 2025")
	require.NotNil(t, got)
	assert.Equal(t, "2025-10-20", *got)

	// Datetime rendering picked up from upstream tooling
	got = repairDate("2025-10-20 00:00:00")
	require.NotNil(t, got)
	assert.Equal(t, "2025-10-20", *got)

	// Already canonical stays untouched
	got = repairDate("2025-10-20")
	require.NotNil(t, got)
	assert.Equal(t, "2025-10-20", *got)

	// Unrepairable values are kept verbatim
	got = repairDate("garbage")
	require.NotNil(t, got)
	assert.Equal(t, "garbage", *got)

	assert.Nil(t, repairDate(""))
	assert.Nil(t, repairDate("N.A."))
}

func TestRepairDateFormats(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.Create(&types.CorporateAction{
		CompanyName:      "Acme Ltd",
		ActionType:       types.ActionDividend,
		MarketCode:       types.MarketNSE,
		AnnouncementDate: strPtr("1 Oct 2025"),
		ExDate:           strPtr("2025-10-20 00:00:00"),
		FinalDate:        strPtr("2025-10-20 00:00:00"),
	}).Error)
	require.NoError(t, db.Create(&types.CorporateAction{
		CompanyName:      "Beta Industries",
		ActionType:       types.ActionBonus,
		MarketCode:       types.MarketBSE,
		AnnouncementDate: strPtr("2025-10-01"),
		ExDate:           strPtr("2025-10-21"),
		FinalDate:        strPtr("2025-10-21"),
	}).Error)

	fixed, err := RepairDateFormats(db)
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)

	var rec types.CorporateAction
	require.NoError(t, db.Where("company_name = ?", "Acme Ltd").First(&rec).Error)
	require.NotNil(t, rec.AnnouncementDate)
	assert.Equal(t, "2025-10-01", *rec.AnnouncementDate)
	require.NotNil(t, rec.ExDate)
	assert.Equal(t, "2025-10-20", *rec.ExDate)
	require.NotNil(t, rec.FinalDate)
	assert.Equal(t, "2025-10-20", *rec.FinalDate)

	// The pass is idempotent: a second run finds nothing to change.
	fixed, err = RepairDateFormats(db)
	require.NoError(t, err)
	assert.Equal(t, 0, fixed)
}
