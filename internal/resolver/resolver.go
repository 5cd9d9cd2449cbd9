package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ResolvedSecurity is the canonical identification for a company name as
// reported by the lookup service.
type ResolvedSecurity struct {
	SecurityID  int64  `json:"security_id"`
	Symbol      string `json:"symbol"`
	ISIN        string `json:"isin"`
	MarketCode  string `json:"market_code"`
	CompanyName string `json:"company_name"`
}

// Resolver maps company names to canonical security identifiers. Implemented
// by Service; the ingestion pipeline depends on this interface so tests can
// substitute a fixed mapping.
type Resolver interface {
	Resolve(ctx context.Context, companyName, marketHint string) (*ResolvedSecurity, error)
	ResolveBatch(ctx context.Context, companyNames []string, marketHint string) map[string]*ResolvedSecurity
}

// securityEntry is one security in the lookup service's response envelope.
type securityEntry struct {
	ID          int64  `json:"id"`
	Symbol1     string `json:"symbol1"`
	Symbol2     string `json:"symbol2"`
	ISIN        string `json:"isin"`
	MarketCode1 string `json:"market_code1"`
	MarketCode2 string `json:"market_code2"`
	CompanyName string `json:"company_name"`
}

type securityEnvelope struct {
	Status string          `json:"status"`
	Data   []securityEntry `json:"data"`
}

// Service resolves company names through the lookup service's HTTP API,
// caching outcomes and pacing outbound requests to respect provider limits.
type Service struct {
	baseURL string
	http    *http.Client
	cache   *Cache
	limiter *rate.Limiter
}

// NewService creates a resolver against baseURL. interRequestDelay is the
// minimum spacing between outbound lookups during batch resolution.
func NewService(baseURL string, interRequestDelay, requestTimeout time.Duration) *Service {
	if interRequestDelay <= 0 {
		interRequestDelay = 50 * time.Millisecond
	}
	return &Service{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: requestTimeout,
		},
		cache:   NewCache(),
		limiter: rate.NewLimiter(rate.Every(interRequestDelay), 1),
	}
}

// Cache exposes the resolution cache, mainly so callers can clear it.
func (s *Service) Cache() *Cache {
	return s.cache
}

// Resolve looks up the canonical security for a company name. When marketHint
// is given, the entry whose market designator matches is selected; otherwise
// the first entry wins, with the market taken from whichever of its two market
// designators is populated first.
//
// A definitive miss (no match, non-success status, malformed response) returns
// (nil, nil) and is cached. Transport failures return an error and are not
// cached, so a later attempt can succeed.
func (s *Service) Resolve(ctx context.Context, companyName, marketHint string) (*ResolvedSecurity, error) {
	if sec, ok := s.cache.Get(companyName, marketHint); ok {
		return sec, nil
	}

	logger := log.With().
		Str("service", "resolver").
		Str("company", companyName).
		Logger()

	reqURL := fmt.Sprintf("%s/api/alfagrow/security/get/%s", s.baseURL, url.PathEscape(companyName))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", companyName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn().Int("status", resp.StatusCode).Msg("lookup service returned non-OK status")
		s.cache.Put(companyName, marketHint, nil)
		return nil, nil
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		logger.Warn().Msg("lookup service returned non-JSON response")
		s.cache.Put(companyName, marketHint, nil)
		return nil, nil
	}

	var envelope securityEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		logger.Warn().Err(err).Msg("lookup service returned malformed body")
		s.cache.Put(companyName, marketHint, nil)
		return nil, nil
	}

	if envelope.Status != "success" || len(envelope.Data) == 0 {
		logger.Debug().Msg("no security found for company")
		s.cache.Put(companyName, marketHint, nil)
		return nil, nil
	}

	sec := selectSecurity(envelope.Data, marketHint)
	s.cache.Put(companyName, marketHint, sec)
	return sec, nil
}

// selectSecurity applies the market-hint match, falling back to the first
// entry. With no hint the market is the first populated of the two designators
// rather than any fixed exchange preference.
func selectSecurity(entries []securityEntry, marketHint string) *ResolvedSecurity {
	if marketHint != "" {
		for _, e := range entries {
			if e.MarketCode1 == marketHint || e.MarketCode2 == marketHint {
				return &ResolvedSecurity{
					SecurityID:  e.ID,
					Symbol:      firstNonEmpty(e.Symbol1, e.Symbol2),
					ISIN:        e.ISIN,
					MarketCode:  marketHint,
					CompanyName: e.CompanyName,
				}
			}
		}
	}

	e := entries[0]
	return &ResolvedSecurity{
		SecurityID:  e.ID,
		Symbol:      firstNonEmpty(e.Symbol1, e.Symbol2),
		ISIN:        e.ISIN,
		MarketCode:  firstNonEmpty(e.MarketCode1, e.MarketCode2, marketHint),
		CompanyName: e.CompanyName,
	}
}

// ResolveBatch resolves each name sequentially, paced by the configured
// inter-request delay. Unresolved names are omitted from the result map; a
// failing lookup is logged and never aborts the rest of the batch.
func (s *Service) ResolveBatch(ctx context.Context, companyNames []string, marketHint string) map[string]*ResolvedSecurity {
	logger := log.With().
		Str("service", "resolver").
		Str("market_hint", marketHint).
		Logger()

	total := len(companyNames)
	logger.Info().Int("companies", total).Msg("resolving security identifiers")

	results := make(map[string]*ResolvedSecurity)
	found, missed := 0, 0

	for idx, name := range companyNames {
		if err := s.limiter.Wait(ctx); err != nil {
			logger.Warn().Err(err).Msg("batch resolution interrupted")
			break
		}

		sec, err := s.Resolve(ctx, name, marketHint)
		switch {
		case err != nil:
			logger.Warn().Err(err).Str("company", name).Msg("lookup failed, continuing")
			missed++
		case sec == nil:
			missed++
		default:
			results[name] = sec
			found++
		}

		if (idx+1)%10 == 0 || idx+1 == total {
			logger.Info().
				Int("done", idx+1).
				Int("total", total).
				Int("found", found).
				Int("missed", missed).
				Msg("resolution progress")
		}
	}

	return results
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
