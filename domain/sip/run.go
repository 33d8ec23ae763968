package sip

import (
	"encoding/json"
	"time"

	"gosip/domain/core"
)

// RunKind distinguishes the two analyses
type RunKind string

const (
	RunKindBDShift RunKind = "bd_shift"
	RunKindQSIP    RunKind = "qsip"
)

// Run is the header of a stored analysis
type Run struct {
	ID        core.RunID      `json:"id" db:"id"`
	Kind      RunKind         `json:"kind" db:"kind"`
	Isotope   Isotope         `json:"isotope,omitempty" db:"isotope"`
	Params    json.RawMessage `json:"params" db:"params"`
	RowCount  int             `json:"row_count" db:"row_count"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
