package excel

import (
	"strconv"
	"strings"
)

// RawRowData represents a row of raw sheet data as string key-value pairs
type RawRowData map[string]string

// ExcelData represents a complete sheet
type ExcelData struct {
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows
	Cells   [][]string   // Data rows in column order, padded to len(Headers)
}

// HasColumn reports whether a header is present
func (d *ExcelData) HasColumn(name string) bool {
	for _, h := range d.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// Column returns the raw values of one column
func (d *ExcelData) Column(name string) []string {
	values := make([]string, len(d.Rows))
	for i, row := range d.Rows {
		values[i] = row[name]
	}
	return values
}

// missing cell spellings written by R, pandas and spreadsheet exports
var missingTokens = map[string]bool{
	"":    true,
	"NA":  true,
	"NaN": true,
	"nan": true,
	"N/A": true,
}

func isMissing(s string) bool {
	return missingTokens[strings.TrimSpace(s)]
}

// parseNumeric parses a numeric column. ok is false when any non-missing
// cell fails to parse; missing cells become NaN.
func parseNumeric(values []string) (out []float64, ok bool) {
	out = make([]float64, len(values))
	seen := false
	for i, v := range values {
		if isMissing(v) {
			out[i] = nan
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, false
		}
		out[i] = f
		seen = true
	}
	return out, seen
}
