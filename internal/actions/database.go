package actions

import (
	"time"

	"github.com/ksred/corporate-actions-api/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func today() string {
	return time.Now().Format("2006-01-02")
}

// List returns actions matching the filters, soonest ex-date first. Unless
// ShowAll is set, only actions trading ex today or later are included.
func (d *Database) List(filters ListFilters) ([]types.CorporateAction, error) {
	query := d.db.Model(&types.CorporateAction{})

	if !filters.ShowAll {
		query = query.Where("ex_date >= ?", today())
	}
	if filters.Company != "" {
		query = query.Where("company_name LIKE ?", "%"+filters.Company+"%")
	}
	if filters.ActionType != "" {
		query = query.Where("action_type = ?", filters.ActionType)
	}

	var records []types.CorporateAction
	err := query.Order("ex_date ASC").Limit(filters.Limit).Find(&records).Error
	return records, err
}

// Upcoming returns actions whose final date falls within the next daysAhead days.
func (d *Database) Upcoming(daysAhead int, actionType string) ([]types.CorporateAction, string, string, error) {
	from := today()
	to := time.Now().AddDate(0, 0, daysAhead).Format("2006-01-02")

	query := d.db.Model(&types.CorporateAction{}).
		Where("final_date >= ? AND final_date <= ?", from, to)
	if actionType != "" {
		query = query.Where("action_type = ?", actionType)
	}

	var records []types.CorporateAction
	err := query.Order("final_date ASC").Find(&records).Error
	return records, from, to, err
}

// Today returns actions whose final date is today.
func (d *Database) Today(actionType, marketCode string) ([]types.CorporateAction, string, error) {
	date := today()

	query := d.db.Model(&types.CorporateAction{}).Where("final_date = ?", date)
	if actionType != "" {
		query = query.Where("action_type = ?", actionType)
	}
	if marketCode != "" {
		query = query.Where("market_code = ?", marketCode)
	}

	var records []types.CorporateAction
	err := query.Order("company_name ASC").Find(&records).Error
	return records, date, err
}

// Dividends returns upcoming dividend actions, optionally filtered by company
// and minimum rate.
func (d *Database) Dividends(company string, minRate *float64, limit int) ([]types.CorporateAction, error) {
	query := d.db.Model(&types.CorporateAction{}).
		Where("action_type = ? AND ex_date >= ?", types.ActionDividend, today())

	if company != "" {
		query = query.Where("company_name LIKE ?", "%"+company+"%")
	}
	if minRate != nil {
		query = query.Where("dividend_rate >= ?", *minRate)
	}

	var records []types.CorporateAction
	err := query.Order("ex_date ASC").Limit(limit).Find(&records).Error
	return records, err
}

// BonusIssues returns upcoming bonus issues, optionally filtered by company.
func (d *Database) BonusIssues(company string, limit int) ([]types.CorporateAction, error) {
	query := d.db.Model(&types.CorporateAction{}).
		Where("action_type = ? AND ex_date >= ?", types.ActionBonus, today())

	if company != "" {
		query = query.Where("company_name LIKE ?", "%"+company+"%")
	}

	var records []types.CorporateAction
	err := query.Order("ex_date ASC").Limit(limit).Find(&records).Error
	return records, err
}

// CompanyActions returns all upcoming actions for one company (partial match).
func (d *Database) CompanyActions(companyName string) ([]types.CorporateAction, error) {
	var records []types.CorporateAction
	err := d.db.Model(&types.CorporateAction{}).
		Where("company_name LIKE ? AND ex_date >= ?", "%"+companyName+"%", today()).
		Order("ex_date ASC").
		Find(&records).Error
	return records, err
}

// Stats aggregates counts over the active (ex_date >= today) records.
func (d *Database) Stats() (*StatsResult, error) {
	date := today()
	weekAhead := time.Now().AddDate(0, 0, 7).Format("2006-01-02")

	var total int64
	if err := d.db.Model(&types.CorporateAction{}).
		Where("ex_date >= ?", date).
		Count(&total).Error; err != nil {
		return nil, err
	}

	var byType []TypeCount
	if err := d.db.Model(&types.CorporateAction{}).
		Select("action_type, count(*) as count").
		Where("ex_date >= ?", date).
		Group("action_type").
		Scan(&byType).Error; err != nil {
		return nil, err
	}

	var upcomingWeek int64
	if err := d.db.Model(&types.CorporateAction{}).
		Where("ex_date >= ? AND ex_date <= ?", date, weekAhead).
		Count(&upcomingWeek).Error; err != nil {
		return nil, err
	}

	return &StatsResult{
		TotalActiveActions: total,
		ByType:             byType,
		UpcomingThisWeek:   upcomingWeek,
	}, nil
}
