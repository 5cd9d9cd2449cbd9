package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDateEquivalentEncodings(t *testing.T) {
	// The same calendar date in every encoding the exchanges emit.
	encodings := []string{
		"20 Oct 2025",
		"2025-10-20",
		"20-10-2025",
		"20/10/2025",
		"20-Oct-2025",
	}

	for _, raw := range encodings {
		got := ParseDate(raw)
		if assert.NotNil(t, got, "encoding %q", raw) {
			assert.Equal(t, "2025-10-20", *got, "encoding %q", raw)
		}
	}
}

func TestParseDateSingleDigitDayAndMonth(t *testing.T) {
	got := ParseDate("5/3/2025")
	if assert.NotNil(t, got) {
		assert.Equal(t, "2025-03-05", *got)
	}

	got = ParseDate("5 Mar 2025")
	if assert.NotNil(t, got) {
		assert.Equal(t, "2025-03-05", *got)
	}
}

func TestParseDateMissingValues(t *testing.T) {
	assert.Nil(t, ParseDate(""))
	assert.Nil(t, ParseDate("   "))
	assert.Nil(t, ParseDate("N.A."))
}

func TestParseDateUnparseable(t *testing.T) {
	assert.Nil(t, ParseDate("not a date"))
	assert.Nil(t, ParseDate("32/13/2025"))
}

func TestParseDateCanonicalPassthrough(t *testing.T) {
	got := ParseDate("2025-10-20")
	if assert.NotNil(t, got) {
		assert.Equal(t, "2025-10-20", *got)
	}
}

func TestParseDateTrimsWhitespace(t *testing.T) {
	got := ParseDate("  20 Oct 2025  ")
	if assert.NotNil(t, got) {
		assert.Equal(t, "2025-10-20", *got)
	}
}
