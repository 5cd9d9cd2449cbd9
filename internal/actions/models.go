package actions

import (
	"github.com/ksred/corporate-actions-api/internal/types"
)

// ListFilters are the optional filters for the main corporate actions listing.
type ListFilters struct {
	Company    string // partial match on company name
	ActionType string
	Limit      int
	ShowAll    bool // when false, only actions with ex_date >= today
}

// ListResult is the payload for the filtered listing.
type ListResult struct {
	Count   int                     `json:"count"`
	Actions []types.CorporateAction `json:"actions"`
}

// UpcomingResult is the payload for the upcoming-actions window query.
type UpcomingResult struct {
	Count     int                     `json:"count"`
	DaysAhead int                     `json:"days_ahead"`
	From      string                  `json:"from"`
	To        string                  `json:"to"`
	Actions   []types.CorporateAction `json:"upcoming_actions"`
}

// TodayResult is the payload for actions whose final date is today.
type TodayResult struct {
	Count   int                     `json:"count"`
	Date    string                  `json:"date"`
	Actions []types.CorporateAction `json:"actions_today"`
}

// DividendEntry is the reduced projection used by the dividends listing.
type DividendEntry struct {
	CompanyName      string   `json:"company_name"`
	AnnouncementDate *string  `json:"announcement_date"`
	ExDate           *string  `json:"ex_date"`
	DividendRate     *float64 `json:"dividend_rate"`
	DividendType     *string  `json:"dividend_type"`
}

// BonusEntry is the reduced projection used by the bonus listing, including
// the derived whole-number ratio display.
type BonusEntry struct {
	CompanyName      string   `json:"company_name"`
	AnnouncementDate *string  `json:"announcement_date"`
	ExDate           *string  `json:"ex_date"`
	RatioNumerator   *float64 `json:"ratio_numerator"`
	RatioDenominator *float64 `json:"ratio_denominator"`
	SecurityType     *string  `json:"security_type"`
	RatioDisplay     *string  `json:"ratio_display"`
}

// TypeCount is one action type's share of the active records.
type TypeCount struct {
	ActionType string `json:"action_type"`
	Count      int64  `json:"count"`
}

// StatsResult summarizes the active dataset.
type StatsResult struct {
	TotalActiveActions int64       `json:"total_active_actions"`
	ByType             []TypeCount `json:"by_type"`
	UpcomingThisWeek   int64       `json:"upcoming_this_week"`
}

// RefreshResult reports a synchronous ingestion run.
type RefreshResult struct {
	RunID   string         `json:"run_id"`
	Counts  map[string]int `json:"counts"`
	Swept   int64          `json:"swept"`
	Message string         `json:"message"`
}
