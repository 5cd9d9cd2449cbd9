package ingest

import (
	"github.com/ksred/corporate-actions-api/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// Exists reports whether a record for the same company, action type, market
// and ex-date is already stored. This is the idempotent re-ingestion check; the
// unique constraint on the full tuple remains the hard backstop.
func (d *Database) Exists(companyName, actionType, marketCode string, exDate *string) (bool, error) {
	query := d.db.Model(&types.CorporateAction{}).
		Where("company_name = ? AND action_type = ? AND market_code = ?", companyName, actionType, marketCode)

	if exDate == nil {
		query = query.Where("ex_date IS NULL")
	} else {
		query = query.Where("ex_date = ?", *exDate)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertActions commits all newly added rows for one file as a single
// transaction. Any failure rolls back the whole batch; previously committed
// files are unaffected.
func (d *Database) InsertActions(actions []*types.CorporateAction) error {
	if len(actions) == 0 {
		return nil
	}

	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for _, action := range actions {
		if err := tx.Create(action).Error; err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit().Error
}
