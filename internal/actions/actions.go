package actions

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ksred/corporate-actions-api/internal/types"
	"github.com/ksred/corporate-actions-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// RefreshFunc runs a full synchronous ingestion (fetch, process, sweep) and
// returns the per-dataset insert counts plus the swept row count. Wired in by
// the server so this package stays a thin query surface.
type RefreshFunc func(ctx context.Context) (map[string]int, int64, error)

// Service serves the read-only query surface over stored corporate actions
// and the manual refresh trigger.
type Service struct {
	db      *Database
	refresh RefreshFunc
}

// NewService creates the query service. refresh may be nil when the deployment
// has no ingestion credentials; the endpoint then reports a bad request.
func NewService(gormDB *gorm.DB, refresh RefreshFunc) *Service {
	return &Service{
		db:      NewDatabase(gormDB),
		refresh: refresh,
	}
}

// List returns actions matching the filters, capped at 1000 records.
func (s *Service) List(filters ListFilters) (*ListResult, error) {
	if filters.Limit <= 0 {
		filters.Limit = 100
	}
	if filters.Limit > 1000 {
		filters.Limit = 1000
	}
	filters.ActionType = strings.ToLower(filters.ActionType)

	records, err := s.db.List(filters)
	if err != nil {
		return nil, err
	}
	return &ListResult{Count: len(records), Actions: records}, nil
}

func (s *Service) Upcoming(daysAhead int, actionType string) (*UpcomingResult, error) {
	if daysAhead <= 0 {
		daysAhead = 30
	}
	if daysAhead > 365 {
		daysAhead = 365
	}

	records, from, to, err := s.db.Upcoming(daysAhead, strings.ToLower(actionType))
	if err != nil {
		return nil, err
	}
	return &UpcomingResult{
		Count:     len(records),
		DaysAhead: daysAhead,
		From:      from,
		To:        to,
		Actions:   records,
	}, nil
}

func (s *Service) Today(actionType, marketCode string) (*TodayResult, error) {
	records, date, err := s.db.Today(strings.ToLower(actionType), strings.ToUpper(marketCode))
	if err != nil {
		return nil, err
	}
	return &TodayResult{Count: len(records), Date: date, Actions: records}, nil
}

func (s *Service) Dividends(company string, minRate *float64, limit int) ([]DividendEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	records, err := s.db.Dividends(company, minRate, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]DividendEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, DividendEntry{
			CompanyName:      rec.CompanyName,
			AnnouncementDate: rec.AnnouncementDate,
			ExDate:           rec.ExDate,
			DividendRate:     rec.DividendRate,
			DividendType:     rec.DividendType,
		})
	}
	return entries, nil
}

func (s *Service) BonusIssues(company string, limit int) ([]BonusEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	records, err := s.db.BonusIssues(company, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]BonusEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, BonusEntry{
			CompanyName:      rec.CompanyName,
			AnnouncementDate: rec.AnnouncementDate,
			ExDate:           rec.ExDate,
			RatioNumerator:   rec.RatioNumerator,
			RatioDenominator: rec.RatioDenominator,
			SecurityType:     rec.SecurityType,
			RatioDisplay:     ratioDisplay(rec.RatioNumerator, rec.RatioDenominator),
		})
	}
	return entries, nil
}

func (s *Service) CompanyActions(companyName string) ([]types.CorporateAction, error) {
	return s.db.CompanyActions(companyName)
}

func (s *Service) Stats() (*StatsResult, error) {
	return s.db.Stats()
}

// ratioDisplay renders a whole-number "N:D" display for a bonus ratio, absent
// when either side is.
func ratioDisplay(num, den *float64) *string {
	if num == nil || den == nil {
		return nil
	}
	s := fmt.Sprintf("%d:%d", int64(*num), int64(*den))
	return &s
}

// GinHandlers contains HTTP handlers for the corporate actions endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// ListHandler handles GET requests for the filtered actions listing
func (h *GinHandlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

		filters := ListFilters{
			Company:    c.Query("company"),
			ActionType: c.Query("action_type"),
			Limit:      limit,
			ShowAll:    c.Query("show_all") == "true",
		}

		result, err := h.service.List(filters)
		response.Handle(c, result, err)
	}
}

func (h *GinHandlers) UpcomingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		daysAhead, _ := strconv.Atoi(c.DefaultQuery("days_ahead", "30"))

		result, err := h.service.Upcoming(daysAhead, c.Query("action_type"))
		response.Handle(c, result, err)
	}
}

func (h *GinHandlers) TodayHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.service.Today(c.Query("action_type"), c.Query("market_code"))
		response.Handle(c, result, err)
	}
}

func (h *GinHandlers) DividendsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

		var minRate *float64
		if raw := c.Query("min_rate"); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				response.BadRequest(c, "min_rate must be numeric")
				return
			}
			minRate = &v
		}

		entries, err := h.service.Dividends(c.Query("company"), minRate, limit)
		response.Handle(c, gin.H{"dividend_count": len(entries), "dividends": entries}, err)
	}
}

func (h *GinHandlers) BonusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

		entries, err := h.service.BonusIssues(c.Query("company"), limit)
		response.Handle(c, gin.H{"bonus_count": len(entries), "bonus_issues": entries}, err)
	}
}

func (h *GinHandlers) CompanyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		companyName := c.Param("company_name")

		records, err := h.service.CompanyActions(companyName)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		if len(records) == 0 {
			response.NotFound(c, fmt.Sprintf("no upcoming actions found for company: %s", companyName))
			return
		}

		response.Success(c, gin.H{
			"company":       companyName,
			"actions_count": len(records),
			"actions":       records,
		})
	}
}

func (h *GinHandlers) StatsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.service.Stats()
		response.Handle(c, result, err)
	}
}

// RefreshHandler triggers a full synchronous ingestion run. Zero counts mean
// nothing new arrived, which is a success, not a failure.
func (h *GinHandlers) RefreshHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.service.refresh == nil {
			response.BadRequest(c, "ingestion is not configured on this deployment")
			return
		}

		runID := uuid.New().String()
		log.Info().Str("service", "actions").Str("run_id", runID).Msg("manual refresh triggered")

		counts, swept, err := h.service.refresh(c.Request.Context())
		if err != nil {
			response.InternalError(c, err.Error())
			return
		}

		message := "corporate actions data refreshed"
		if len(counts) == 0 {
			message = "no datasets processed"
		}

		response.Success(c, RefreshResult{
			RunID:   runID,
			Counts:  counts,
			Swept:   swept,
			Message: message,
		})
	}
}
