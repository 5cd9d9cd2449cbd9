package ingest

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// sentinel is the provider's marker for a missing value.
const sentinel = "N.A."

// dateLayouts are the candidate encodings seen across the two exchanges'
// datasets, tried in order.
var dateLayouts = []string{
	"2 Jan 2006", // "17 Oct 2025"
	"2006-01-02", // "2025-10-17"
	"2-1-2006",   // "17-10-2025"
	"2/1/2006",   // "17/10/2025"
	"2-Jan-2006", // "17-Oct-2025"
}

// ParseDate normalizes a raw date value to canonical YYYY-MM-DD. The sentinel
// and empty values normalize to nil. A ten-character value with dashes in the
// date positions is accepted as-is without re-parsing. An unparseable value is
// logged and normalized to nil; ParseDate never fails a row on its own.
func ParseDate(raw string) *string {
	s := strings.TrimSpace(raw)
	if s == "" || s == sentinel {
		return nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			canonical := t.Format("2006-01-02")
			return &canonical
		}
	}

	if isCanonicalShape(s) {
		return &s
	}

	log.Warn().Str("value", s).Msg("could not parse date")
	return nil
}

// isCanonicalShape reports whether s already looks like YYYY-MM-DD.
func isCanonicalShape(s string) bool {
	return len(s) == 10 && s[4] == '-' && s[7] == '-'
}
