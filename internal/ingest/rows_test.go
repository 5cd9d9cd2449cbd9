package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRawFile(t *testing.T) {
	payload := []byte(`{"head":[["Company","Rate"]],"data":[["Acme Ltd","12.5"]]}`)

	raw, err := parseRawFile(payload)
	require.NoError(t, err)
	require.Len(t, raw.Data, 1)
	assert.Equal(t, "Acme Ltd", raw.Data[0][0])
}

func TestParseRawFileRejectsMissingStructure(t *testing.T) {
	_, err := parseRawFile([]byte(`{"rows":[]}`))
	assert.Error(t, err)

	_, err = parseRawFile([]byte(`not json`))
	assert.Error(t, err)
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "Acme Ltd", cellString("Acme Ltd"))
	assert.Equal(t, "2", cellString(float64(2)))
	assert.Equal(t, "12.5", cellString(12.5))
	assert.Equal(t, "", cellString(nil))
}

func TestParseDecimal(t *testing.T) {
	v, rerr := parseDecimal("rate", "12.5")
	require.Nil(t, rerr)
	require.NotNil(t, v)
	assert.Equal(t, 12.5, *v)
}

func TestParseDecimalMissing(t *testing.T) {
	v, rerr := parseDecimal("rate", "N.A.")
	assert.Nil(t, rerr)
	assert.Nil(t, v)

	v, rerr = parseDecimal("rate", "")
	assert.Nil(t, rerr)
	assert.Nil(t, v)
}

func TestParseDecimalBadValue(t *testing.T) {
	v, rerr := parseDecimal("rate", "twelve")
	require.NotNil(t, rerr)
	assert.Nil(t, v)
	assert.Equal(t, SkipBadNumber, rerr.Reason)
	assert.Contains(t, rerr.Detail, "rate")
}

func TestOptionalText(t *testing.T) {
	got := optionalText("  Final  ")
	require.NotNil(t, got)
	assert.Equal(t, "Final", *got)

	assert.Nil(t, optionalText("N.A."))
	assert.Nil(t, optionalText(""))
}
