package ingest

import (
	"encoding/json"
	"strconv"

	"github.com/ksred/corporate-actions-api/internal/resolver"
	"github.com/ksred/corporate-actions-api/internal/types"
)

// datasetSpec is the typed descriptor for one dataset's positional row shape:
// the action type it produces, the minimum column count a row must carry, and
// the mapping from raw columns to a normalized record.
type datasetSpec struct {
	actionType string
	minColumns int
	normalize  func(row []string, market string, sec *resolver.ResolvedSecurity) (*types.CorporateAction, *rowError)
}

var (
	dividendSpec = datasetSpec{
		actionType: types.ActionDividend,
		minColumns: 6,
		normalize:  normalizeDividend,
	}
	bonusSpec = datasetSpec{
		actionType: types.ActionBonus,
		minColumns: 7,
		normalize:  normalizeBonus,
	}
	splitSpec = datasetSpec{
		actionType: types.ActionSplit,
		minColumns: 7,
		normalize:  normalizeSplit,
	}
	rightsSpec = datasetSpec{
		actionType: types.ActionRights,
		minColumns: 9,
		normalize:  normalizeRights,
	}
)

// newRecord fills the fields every action type shares. FinalDate defaults to
// the ex-date: these datasets carry no separate settlement date.
func newRecord(actionType, market string, row []string, sec *resolver.ResolvedSecurity) *types.CorporateAction {
	raw, _ := json.Marshal(row)

	rec := &types.CorporateAction{
		CompanyName: row[0],
		ActionType:  actionType,
		MarketCode:  market,
		RawData:     string(raw),
	}
	if sec != nil {
		rec.SecurityID = &sec.SecurityID
		if sec.Symbol != "" {
			symbol := sec.Symbol
			rec.Symbol = &symbol
		}
	}
	return rec
}

// normalizeDividend maps
// [company, announce_date, ex_date, rate, type, record_date].
func normalizeDividend(row []string, market string, sec *resolver.ResolvedSecurity) (*types.CorporateAction, *rowError) {
	rate, rerr := parseDecimal("dividend_rate", row[3])
	if rerr != nil {
		return nil, rerr
	}

	rec := newRecord(types.ActionDividend, market, row, sec)
	rec.AnnouncementDate = ParseDate(row[1])
	rec.ExDate = ParseDate(row[2])
	rec.RecordDate = ParseDate(row[5])
	rec.FinalDate = rec.ExDate
	rec.DividendRate = rate
	rec.DividendType = optionalText(row[4])
	if sec != nil && sec.ISIN != "" {
		isin := sec.ISIN
		rec.ISIN = &isin
	}
	return rec, nil
}

// normalizeBonus maps
// [company, isin, security_type, announce_date, ex_date, ratio_num, ratio_den].
// The ISIN comes from the dataset itself, not the resolver.
func normalizeBonus(row []string, market string, sec *resolver.ResolvedSecurity) (*types.CorporateAction, *rowError) {
	num, rerr := parseDecimal("ratio_numerator", row[5])
	if rerr != nil {
		return nil, rerr
	}
	den, rerr := parseDecimal("ratio_denominator", row[6])
	if rerr != nil {
		return nil, rerr
	}

	rec := newRecord(types.ActionBonus, market, row, sec)
	rec.ISIN = optionalText(row[1])
	rec.SecurityType = optionalText(row[2])
	rec.AnnouncementDate = ParseDate(row[3])
	rec.ExDate = ParseDate(row[4])
	rec.FinalDate = rec.ExDate
	rec.RatioNumerator = num
	rec.RatioDenominator = den
	return rec, nil
}

// normalizeSplit maps
// [company, capital_issue_type, security_type, announce_date, ex_date,
// ratio_num, ratio_den, x_price, x_date, returns_on_x_date]; only the first
// seven columns are consumed.
func normalizeSplit(row []string, market string, sec *resolver.ResolvedSecurity) (*types.CorporateAction, *rowError) {
	num, rerr := parseDecimal("ratio_numerator", row[5])
	if rerr != nil {
		return nil, rerr
	}
	den, rerr := parseDecimal("ratio_denominator", row[6])
	if rerr != nil {
		return nil, rerr
	}

	rec := newRecord(types.ActionSplit, market, row, sec)
	rec.AnnouncementDate = ParseDate(row[3])
	rec.ExDate = ParseDate(row[4])
	rec.FinalDate = rec.ExDate
	rec.RatioNumerator = num
	rec.RatioDenominator = den
	rec.SplitRatio = splitRatio(num, den)
	if sec != nil && sec.ISIN != "" {
		isin := sec.ISIN
		rec.ISIN = &isin
	}
	return rec, nil
}

// normalizeRights maps
// [company, issue_type, _, announce_date, ex_date, _, rights_price,
// rights_num, rights_den]. This dataset carries no ISIN.
func normalizeRights(row []string, market string, sec *resolver.ResolvedSecurity) (*types.CorporateAction, *rowError) {
	price, rerr := parseDecimal("rights_price", row[6])
	if rerr != nil {
		return nil, rerr
	}
	num, rerr := parseDecimal("rights_ratio_numerator", row[7])
	if rerr != nil {
		return nil, rerr
	}
	den, rerr := parseDecimal("rights_ratio_denominator", row[8])
	if rerr != nil {
		return nil, rerr
	}

	rec := newRecord(types.ActionRights, market, row, sec)
	rec.AnnouncementDate = ParseDate(row[3])
	rec.ExDate = ParseDate(row[4])
	rec.FinalDate = rec.ExDate
	rec.RightsRatioNumerator = num
	rec.RightsRatioDenominator = den
	rec.RightsPrice = price
	return rec, nil
}

// splitRatio derives the "N:D" display string, absent when either side is.
func splitRatio(num, den *float64) *string {
	if num == nil || den == nil {
		return nil
	}
	s := strconv.FormatFloat(*num, 'f', -1, 64) + ":" + strconv.FormatFloat(*den, 'f', -1, 64)
	return &s
}
