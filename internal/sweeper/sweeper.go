package sweeper

import (
	"time"

	"github.com/ksred/corporate-actions-api/internal/types"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// DefaultRetentionDays is how long a record may outlive its final date before
// it is eligible for deletion.
const DefaultRetentionDays = 10

// Service removes corporate action records whose final date has passed the
// retention horizon. Dates are canonical YYYY-MM-DD strings, so the string
// comparison in SQL orders correctly.
type Service struct {
	db            *gorm.DB
	retentionDays int
}

// NewService creates a sweeper with the given retention horizon in days;
// non-positive values fall back to the default.
func NewService(db *gorm.DB, retentionDays int) *Service {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &Service{
		db:            db,
		retentionDays: retentionDays,
	}
}

// Sweep deletes every record whose final_date is strictly before
// now − retention horizon, in a single transaction. It returns the count
// deleted; on failure everything rolls back and zero is reported.
func (s *Service) Sweep(now time.Time) (int64, error) {
	cutoff := now.AddDate(0, 0, -s.retentionDays).Format("2006-01-02")

	logger := log.With().
		Str("service", "sweeper").
		Str("cutoff", cutoff).
		Logger()

	tx := s.db.Begin()
	if err := tx.Error; err != nil {
		return 0, err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	// Hard delete: a soft-deleted row would still hold the unique index slot
	// and block a later re-ingestion of the same action.
	result := tx.Unscoped().Where("final_date < ?", cutoff).Delete(&types.CorporateAction{})
	if result.Error != nil {
		tx.Rollback()
		logger.Error().Err(result.Error).Msg("retention sweep failed, rolled back")
		return 0, result.Error
	}

	if err := tx.Commit().Error; err != nil {
		return 0, err
	}

	if result.RowsAffected == 0 {
		logger.Info().Msg("no records past retention horizon")
	} else {
		logger.Info().Int64("deleted", result.RowsAffected).Msg("retention sweep complete")
	}

	return result.RowsAffected, nil
}
