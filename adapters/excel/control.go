package excel

import (
	"fmt"
	"strconv"
	"strings"

	"gosip/domain/core"
)

// ControlSelector classifies metadata rows as control or treatment. With a
// Value it matches Column == Value; without one Column must hold booleans.
type ControlSelector struct {
	Column string `json:"column"`
	Value  string `json:"value,omitempty"`
}

// ParseControlSelector accepts "column=value" or a bare boolean column name
func ParseControlSelector(expr string) (ControlSelector, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return ControlSelector{}, core.NewInvalidInputError("control", "selector is empty")
	}
	if column, value, ok := strings.Cut(expr, "=="); ok {
		return newSelector(column, value)
	}
	if column, value, ok := strings.Cut(expr, "="); ok {
		return newSelector(column, value)
	}
	return ControlSelector{Column: expr}, nil
}

func newSelector(column, value string) (ControlSelector, error) {
	column = strings.TrimSpace(column)
	value = strings.Trim(strings.TrimSpace(value), `"'`)
	if column == "" {
		return ControlSelector{}, core.NewInvalidInputError("control", "selector has no column")
	}
	return ControlSelector{Column: column, Value: value}, nil
}

// String renders the selector in the form ParseControlSelector accepts
func (s ControlSelector) String() string {
	if s.Value == "" {
		return s.Column
	}
	return s.Column + "=" + s.Value
}

// Select evaluates the selector against every row
func (s ControlSelector) Select(data *ExcelData) ([]bool, error) {
	if s.Column == "" {
		return nil, core.NewInvalidInputError("control", "selector has no column")
	}
	if !data.HasColumn(s.Column) {
		return nil, core.NewMissingColumnError(s.Column)
	}

	values := data.Column(s.Column)
	flags := make([]bool, len(values))
	for i, v := range values {
		if s.Value != "" {
			flags[i] = v == s.Value
			continue
		}
		b, err := parseFlag(v)
		if err != nil {
			return nil, core.NewInvalidInputError(s.Column, fmt.Sprintf("row %d: %q is not a boolean", i+2, v))
		}
		flags[i] = b
	}
	return flags, nil
}

func parseFlag(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "y", "control":
		return true, nil
	case "no", "n", "treatment":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(v))
}
