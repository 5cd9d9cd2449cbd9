package ingest

import (
	"strings"
	"time"

	"github.com/ksred/corporate-actions-api/internal/types"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// repairLayouts extends the ingestion layouts with the datetime rendering that
// older rows picked up from upstream tooling.
var repairLayouts = append(append([]string{}, dateLayouts...), "2006-01-02 15:04:05")

// repairDate re-canonicalizes one stored date value. Already-canonical values
// come back unchanged; values no layout matches are kept verbatim rather than
// destroyed.
func repairDate(raw string) *string {
	s := strings.TrimSpace(raw)
	if s == "" || s == sentinel {
		return nil
	}

	if isCanonicalShape(s) {
		if _, err := time.Parse("2006-01-02", s); err == nil {
			return &s
		}
	}

	for _, layout := range repairLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			canonical := t.Format("2006-01-02")
			return &canonical
		}
	}

	log.Warn().Str("value", s).Msg("could not repair date, keeping as-is")
	return &raw
}

// RepairDateFormats is the out-of-band repair pass converting every stored
// date field to canonical YYYY-MM-DD. It is idempotent: reapplying it to
// already-canonical rows changes nothing. All updates commit in one
// transaction; on failure nothing is changed and zero is reported.
func RepairDateFormats(db *gorm.DB) (int, error) {
	logger := log.With().Str("service", "ingest").Logger()

	var records []types.CorporateAction
	if err := db.Find(&records).Error; err != nil {
		return 0, err
	}

	logger.Info().Int("records", len(records)).Msg("checking stored date formats")

	tx := db.Begin()
	if err := tx.Error; err != nil {
		return 0, err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	fixed := 0
	for i := range records {
		rec := &records[i]
		updated := false

		for _, field := range []struct {
			name  string
			value **string
		}{
			{"announcement_date", &rec.AnnouncementDate},
			{"ex_date", &rec.ExDate},
			{"record_date", &rec.RecordDate},
			{"final_date", &rec.FinalDate},
		} {
			if *field.value == nil {
				continue
			}
			repaired := repairDate(**field.value)
			if !equalDates(repaired, *field.value) {
				logger.Info().
					Str("field", field.name).
					Str("from", **field.value).
					Msg("repairing date format")
				*field.value = repaired
				updated = true
			}
		}

		if updated {
			if err := tx.Save(rec).Error; err != nil {
				tx.Rollback()
				return 0, err
			}
			fixed++
		}
	}

	if err := tx.Commit().Error; err != nil {
		return 0, err
	}

	logger.Info().Int("fixed", fixed).Msg("date format repair complete")
	return fixed, nil
}

func equalDates(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
