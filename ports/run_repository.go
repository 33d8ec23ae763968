package ports

import (
	"context"

	"gosip/domain/core"
	"gosip/domain/sip"
)

// RunRepository persists analysis runs and their result tables
type RunRepository interface {
	// SaveShiftRun stores a BD_shift run with its weighted shift table
	SaveShiftRun(ctx context.Context, run *sip.Run, shifts []sip.WeightedShiftRecord) error

	// SaveAtomExcessRun stores a qSIP run with its atom excess table
	SaveAtomExcessRun(ctx context.Context, run *sip.Run, atoms []sip.AtomExcessInterval) error

	// GetRun retrieves a run header, or core.ErrRunNotFound
	GetRun(ctx context.Context, id core.RunID) (*sip.Run, error)

	// ListRuns returns run headers, newest first
	ListRuns(ctx context.Context, limit, offset int) ([]*sip.Run, error)

	// ShiftResults returns the shift table of a BD_shift run
	ShiftResults(ctx context.Context, id core.RunID) ([]sip.WeightedShiftRecord, error)

	// AtomExcessResults returns the atom excess table of a qSIP run
	AtomExcessResults(ctx context.Context, id core.RunID) ([]sip.AtomExcessInterval, error)
}
