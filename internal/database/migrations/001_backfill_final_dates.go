package migrations

import (
	"gorm.io/gorm"
)

// BackfillFinalDates fills final_date from ex_date for rows ingested before the
// settlement date column existed, and adds the lookup indexes the query surface
// and sweeper rely on.
func BackfillFinalDates(db *gorm.DB) error {
	if err := db.Exec(`UPDATE corporate_actions
		 SET final_date = ex_date
		 WHERE final_date IS NULL AND ex_date IS NOT NULL`).Error; err != nil {
		return err
	}

	// Using raw SQL for index creation to have more control over index types
	indexes := []string{
		// Index for sweeper cutoff scans
		`CREATE INDEX IF NOT EXISTS idx_corporate_actions_final_date
		 ON corporate_actions(final_date)`,

		// Composite index for the per-type upcoming queries
		`CREATE INDEX IF NOT EXISTS idx_corporate_actions_type_ex_date
		 ON corporate_actions(action_type, ex_date)`,

		// Index for company name lookups
		`CREATE INDEX IF NOT EXISTS idx_corporate_actions_company
		 ON corporate_actions(company_name)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
