package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SkipReason classifies why a raw row was not turned into a record. Skips are
// per-row: the rest of the file still processes.
type SkipReason string

const (
	SkipShortRow  SkipReason = "short_row"  // fewer columns than the dataset requires
	SkipNoCompany SkipReason = "no_company" // full-width row with an empty company cell
	SkipBadNumber SkipReason = "bad_number" // non-numeric value in a numeric field
)

// rowError is the structured outcome for a skipped row.
type rowError struct {
	Reason SkipReason
	Detail string
}

func (e *rowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

// skipStats accumulates per-reason skip counts for one file.
type skipStats map[SkipReason]int

// rawFile is the {head, data} structure the provider delivers per dataset.
// Headers can be multi-level so they stay opaque; only the rows are consumed
// positionally.
type rawFile struct {
	Head json.RawMessage `json:"head"`
	Data [][]any         `json:"data"`
}

// parseRawFile validates that payload is the expected {head, data} document.
func parseRawFile(payload []byte) (*rawFile, error) {
	var f rawFile
	if err := json.Unmarshal(payload, &f); err != nil {
		return nil, fmt.Errorf("not a valid dataset file: %w", err)
	}
	if f.Head == nil || f.Data == nil {
		return nil, fmt.Errorf("dataset file missing head/data structure")
	}
	return &f, nil
}

// cellString renders one raw cell as a string. The provider usually emits
// strings, but numeric cells appear in some datasets.
func cellString(cell any) string {
	switch v := cell.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// stringRow converts a raw row to its string cells.
func stringRow(row []any) []string {
	cells := make([]string, len(row))
	for i, c := range row {
		cells[i] = cellString(c)
	}
	return cells
}

// parseDecimal normalizes a numeric field. The sentinel and empty values are
// absent; anything else must parse as a decimal or the row is skipped.
func parseDecimal(field, raw string) (*float64, *rowError) {
	s := strings.TrimSpace(raw)
	if s == "" || s == sentinel {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, &rowError{
			Reason: SkipBadNumber,
			Detail: fmt.Sprintf("%s=%q", field, raw),
		}
	}
	return &v, nil
}

// optionalText normalizes a free-text field, treating the sentinel as absent.
func optionalText(raw string) *string {
	s := strings.TrimSpace(raw)
	if s == "" || s == sentinel {
		return nil
	}
	return &s
}
