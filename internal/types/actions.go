package types

import (
	"time"

	"gorm.io/gorm"
)

// Action types recognized by the pipeline
const (
	ActionDividend = "dividend"
	ActionBonus    = "bonus"
	ActionSplit    = "split"
	ActionRights   = "rights"
)

// Market codes for the two supported exchanges
const (
	MarketNSE = "NSE"
	MarketBSE = "BSE"
)

// CorporateAction is one disclosed corporate action event (dividend, bonus
// issue, stock split or rights issue) for a listed company. The tuple
// (company_name, action_type, market_code, announcement_date, ex_date) is the
// deduplication key; a second ingestion of the same source row is a no-op.
//
// All date fields are canonical YYYY-MM-DD strings or nil. FinalDate defaults
// to ExDate when the dataset carries no separate settlement date and is the
// only field the retention sweeper examines.
type CorporateAction struct {
	gorm.Model `json:"-"`

	// Company identification
	CompanyName string  `gorm:"size:500;not null;index;uniqueIndex:uix_company_action_market_dates" json:"company_name"`
	SecurityID  *int64  `gorm:"index" json:"security_id"`
	MarketCode  string  `gorm:"size:10;index;uniqueIndex:uix_company_action_market_dates" json:"market_code"`
	Symbol      *string `gorm:"size:50" json:"symbol"`
	ISIN        *string `gorm:"size:50" json:"isin"`

	// Action details
	ActionType       string  `gorm:"size:50;not null;index;uniqueIndex:uix_company_action_market_dates" json:"action_type"`
	AnnouncementDate *string `gorm:"size:50;uniqueIndex:uix_company_action_market_dates" json:"announcement_date"`
	ExDate           *string `gorm:"size:50;index;uniqueIndex:uix_company_action_market_dates" json:"ex_date"`
	RecordDate       *string `gorm:"size:50" json:"record_date"`
	FinalDate        *string `gorm:"size:50;index" json:"final_date"`

	// Dividend specific
	DividendRate *float64 `json:"dividend_rate"`
	DividendType *string  `gorm:"size:100" json:"dividend_type"`

	// Bonus / split specific
	RatioNumerator   *float64 `json:"ratio_numerator"`
	RatioDenominator *float64 `json:"ratio_denominator"`
	SplitRatio       *string  `gorm:"size:50" json:"split_ratio"`

	// Rights specific
	RightsRatioNumerator   *float64 `json:"rights_ratio_numerator"`
	RightsRatioDenominator *float64 `json:"rights_ratio_denominator"`
	RightsPrice            *float64 `json:"rights_price"`

	// Common fields
	SecurityType *string   `gorm:"size:200" json:"security_type"`
	RawData      string    `gorm:"type:text" json:"raw_data"`
	CreatedAt    time.Time `json:"created_at"`
}

func (CorporateAction) TableName() string {
	return "corporate_actions"
}
