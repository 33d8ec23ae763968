package sip

import (
	"fmt"
	"strconv"

	"gosip/domain/core"
)

// SampleTable is columnar per-sample metadata keyed by sample id.
// Numeric columns use NaN for missing cells; label columns use "".
type SampleTable struct {
	SampleIDs []core.SampleID
	IsControl []bool
	Numeric   map[string][]float64
	Labels    map[string][]string

	index map[core.SampleID]int
}

// NewSampleTable creates a table over the given samples; isControl may be nil
// when the classification is attached later with WithControl
func NewSampleTable(ids []core.SampleID, isControl []bool) (*SampleTable, error) {
	if isControl == nil {
		isControl = make([]bool, len(ids))
	}
	if len(isControl) != len(ids) {
		return nil, core.NewInvalidInputError("is_control", fmt.Sprintf("%d flags for %d samples", len(isControl), len(ids)))
	}

	index := make(map[core.SampleID]int, len(ids))
	for i, id := range ids {
		if id.String() == "" {
			return nil, core.NewInvalidInputError("sample_id", fmt.Sprintf("empty id at row %d", i))
		}
		if _, dup := index[id]; dup {
			return nil, core.NewInvalidInputError("sample_id", fmt.Sprintf("duplicate id %s", id))
		}
		index[id] = i
	}

	return &SampleTable{
		SampleIDs: ids,
		IsControl: isControl,
		Numeric:   make(map[string][]float64),
		Labels:    make(map[string][]string),
		index:     index,
	}, nil
}

// Len returns the number of samples
func (t *SampleTable) Len() int {
	return len(t.SampleIDs)
}

// Lookup returns the row of a sample id
func (t *SampleTable) Lookup(id core.SampleID) (int, bool) {
	i, ok := t.index[id]
	return i, ok
}

// AddNumeric attaches a numeric column
func (t *SampleTable) AddNumeric(name string, values []float64) error {
	if len(values) != t.Len() {
		return core.NewInvalidInputError(name, fmt.Sprintf("%d values for %d samples", len(values), t.Len()))
	}
	t.Numeric[name] = values
	return nil
}

// AddLabel attaches a label column
func (t *SampleTable) AddLabel(name string, values []string) error {
	if len(values) != t.Len() {
		return core.NewInvalidInputError(name, fmt.Sprintf("%d values for %d samples", len(values), t.Len()))
	}
	t.Labels[name] = values
	return nil
}

// Float returns a numeric column or ErrMissingColumn
func (t *SampleTable) Float(name string) ([]float64, error) {
	values, ok := t.Numeric[name]
	if !ok {
		return nil, core.NewMissingColumnError(name)
	}
	return values, nil
}

// Label returns a label column. Numeric columns are formatted when no label
// column of that name exists.
func (t *SampleTable) Label(name string) ([]string, error) {
	if values, ok := t.Labels[name]; ok {
		return values, nil
	}
	numeric, ok := t.Numeric[name]
	if !ok {
		return nil, core.NewMissingColumnError(name)
	}
	labels := make([]string, len(numeric))
	for i, v := range numeric {
		labels[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return labels, nil
}

// WithControl returns a copy of the table carrying a new control/treatment classification.
// Columns are shared with the receiver.
func (t *SampleTable) WithControl(isControl []bool) (*SampleTable, error) {
	if len(isControl) != t.Len() {
		return nil, core.NewInvalidInputError("is_control", fmt.Sprintf("%d flags for %d samples", len(isControl), t.Len()))
	}
	out := *t
	out.IsControl = isControl
	return &out, nil
}

// Counts returns the number of control and treatment samples
func (t *SampleTable) Counts() (control, treatment int) {
	for _, c := range t.IsControl {
		if c {
			control++
		} else {
			treatment++
		}
	}
	return control, treatment
}
